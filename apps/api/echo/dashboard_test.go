package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copalsoft/copalschool/core/notification"
	"github.com/copalsoft/copalschool/core/student"
)

func Test_dashboardApi_exactRoleGates(t *testing.T) {
	app := setupAPI(t)
	admin, director, teacher, parent := app.createAllRoles(t)

	// every portal rejects every other role, admin included
	boards := []string{"admin", "director", "teacher", "parent"}
	tokens := map[string]string{
		"admin":    app.getToken(t, admin),
		"director": app.getToken(t, director),
		"teacher":  app.getToken(t, teacher),
		"parent":   app.getToken(t, parent),
	}
	// the teacher board needs a teacher record to answer 200
	_, err := app.stdSvc.AssignTeacher(student.NewTeacher{UserID: teacher.ID, ClassID: 1})
	require.NoError(t, err)

	for _, board := range boards {
		for role, token := range tokens {
			wantCode := http.StatusForbidden
			if role == board {
				wantCode = http.StatusOK
			}
			tt := httpTest{
				name:     board + " board as " + role,
				method:   http.MethodGet,
				path:     "/v1/dashboard/" + board,
				token:    token,
				wantCode: wantCode,
			}
			t.Run(tt.name, func(t *testing.T) {
				checkCodeAndData(t, tt, app.do(tt))
			})
		}
	}

	tt := httpTest{method: http.MethodGet, path: "/v1/dashboard/admin", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}
	checkCodeAndData(t, tt, app.do(tt))
}

func Test_dashboardApi_staffBoard(t *testing.T) {
	app := setupAPI(t)
	admin, _, _, parent := app.createAllRoles(t)

	sch := app.createSchool(t, "Les Pigeons")
	app.createClass(t, sch.ID, "CM2", "A")
	app.createClass(t, sch.ID, "CM2", "B")
	st := app.enrollChild(t, "Junior", 1, parent.ID)
	_, err := app.stdSvc.RegisterPayment(student.NewPayment{StudentID: st.ID, Amount: 25000, Reason: "tuition"})
	require.NoError(t, err)
	_, err = app.notSvc.Notify(notification.NewNotification{UserID: parent.ID, Kind: notification.KindEmail, Subject: "hi", Body: "hello"})
	require.NoError(t, err)

	tt := httpTest{method: http.MethodGet, path: "/v1/dashboard/admin", token: app.getToken(t, admin), wantCode: http.StatusOK}
	rec := app.do(tt)
	checkCodeAndData(t, tt, rec)

	var board StaffDashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &board))
	assert.Equal(t, 1, board.Schools)
	assert.Equal(t, 2, board.Classes)
	assert.Equal(t, 1, board.Students)
	assert.Equal(t, 1, board.Teachers)
	assert.Equal(t, 1, board.Parents)
	assert.Equal(t, 1, board.PendingPayments)
	assert.Len(t, board.RecentNotifications, 1)
}

func Test_dashboardApi_teacherBoard(t *testing.T) {
	app := setupAPI(t)
	_, _, teacher, parent := app.createAllRoles(t)

	sch := app.createSchool(t, "Les Pigeons")
	cls := app.createClass(t, sch.ID, "CM2", "A")
	_, err := app.stdSvc.AssignTeacher(student.NewTeacher{UserID: teacher.ID, ClassID: cls.ID})
	require.NoError(t, err)
	st := app.enrollChild(t, "Junior", cls.ID, parent.ID)
	for _, score := range []float64{12, 15} {
		_, err = app.stdSvc.RecordGrade(student.NewGrade{StudentID: st.ID, SubjectID: 1, Term: 1, Sequence: int(score) - 11, Score: score})
		require.NoError(t, err)
	}

	tt := httpTest{method: http.MethodGet, path: "/v1/dashboard/teacher", token: app.getToken(t, teacher), wantCode: http.StatusOK}
	rec := app.do(tt)
	checkCodeAndData(t, tt, rec)

	var board TeacherDashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &board))
	assert.Equal(t, cls.ID, board.Class.ID)
	require.Len(t, board.Roster, 1)
	assert.Equal(t, st.ID, board.Roster[0].Student.ID)
	assert.Equal(t, [3]float64{13.5, 0, 0}, board.Roster[0].TermAverages)
}

func Test_dashboardApi_parentBoard(t *testing.T) {
	app := setupAPI(t)
	_, _, _, parent := app.createAllRoles(t)

	st := app.enrollChild(t, "Junior", 1, parent.ID)
	_, err := app.stdSvc.RecordGrade(student.NewGrade{StudentID: st.ID, SubjectID: 1, Term: 1, Sequence: 1, Score: 14})
	require.NoError(t, err)
	_, err = app.stdSvc.RegisterPayment(student.NewPayment{StudentID: st.ID, Amount: 25000, Reason: "tuition"})
	require.NoError(t, err)

	tt := httpTest{method: http.MethodGet, path: "/v1/dashboard/parent", token: app.getToken(t, parent), wantCode: http.StatusOK}
	rec := app.do(tt)
	checkCodeAndData(t, tt, rec)

	var board ParentDashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &board))
	require.Len(t, board.Children, 1)
	assert.Equal(t, st.ID, board.Children[0].Student.ID)
	require.Len(t, board.Children[0].Grades, 1)
	assert.Equal(t, 14.0, board.Children[0].Grades[0].Score)
	assert.Len(t, board.PendingPayments, 1)
}
