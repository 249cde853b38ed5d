package echoapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copalsoft/copalschool/core/student"
	"github.com/copalsoft/copalschool/core/user"
	emailsvc "github.com/copalsoft/copalschool/services/email"
)

func (app *testApp) enrollChild(t *testing.T, first string, classID, parentID int) student.Student {
	st, err := app.stdSvc.Enroll(student.NewStudent{
		FirstName: first,
		LastName:  "Doe",
		Sex:       "boy",
		ClassID:   classID,
		ParentID:  parentID,
	})
	require.NoError(t, err)
	return st
}

func Test_studentApi_enroll(t *testing.T) {
	app := setupAPI(t)
	admin, _, teacher, parent := app.createAllRoles(t)
	emailsvc.ClearSentMessages()

	withNewParent := marchallObj(t, student.NewStudent{
		FirstName: "Junior",
		LastName:  "Doe",
		Sex:       "boy",
		ClassID:   1,
		NewParent: &user.NewUser{
			Name:            "Joe Dad",
			Username:        "jdad1",
			Email:           "jdad@test.cm",
			Password:        "v3rys3cr3t",
			PasswordConfirm: "v3rys3cr3t",
		},
	})

	tests := []httpTest{
		{name: "anon", wantCode: http.StatusUnauthorized, body: withNewParent},
		{name: "teacher cannot enroll", token: app.getToken(t, teacher), body: withNewParent, wantCode: http.StatusForbidden},
		{name: "admin enrolls with new parent", token: app.getToken(t, admin), body: withNewParent, wantCode: http.StatusCreated},
		{name: "existing parent", token: app.getToken(t, admin), wantCode: http.StatusCreated,
			body: marchallObj(t, student.NewStudent{FirstName: "Sissy", LastName: "Doe", Sex: "girl", ClassID: 1, ParentID: parent.ID})},
		{name: "no parent at all", token: app.getToken(t, admin), wantCode: http.StatusBadRequest,
			body: marchallObj(t, student.NewStudent{FirstName: "Orphan", LastName: "Doe", Sex: "boy", ClassID: 1})},
		{name: "bad sex value", token: app.getToken(t, admin), wantCode: http.StatusBadRequest,
			body: marchallObj(t, student.NewStudent{FirstName: "X", LastName: "Doe", Sex: "other", ClassID: 1, ParentID: parent.ID})},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/students"

		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt))
		})
	}

	// the created parent can log in and got their credentials
	newParent, err := app.usrSvc.GetByUsername("jdad1")
	require.NoError(t, err)
	assert.True(t, newParent.IsParent())
	require.NotEmpty(t, emailsvc.SentMessages)
	assert.Contains(t, emailsvc.SentMessages[0].TextContent, "jdad1")
}

func Test_studentApi_parentVisibility(t *testing.T) {
	app := setupAPI(t)
	admin, _, _, parent := app.createAllRoles(t)
	other := app.createUser(t, "Other Parent", "oparent", user.RoleParent, "v3rys3cr3t")

	mine := app.enrollChild(t, "Junior", 1, parent.ID)
	notMine := app.enrollChild(t, "Stranger", 1, other.ID)

	pathOf := func(st student.Student) string { return "/v1/students/" + strconv.Itoa(st.ID) }

	tests := []httpTest{
		{name: "parent reads own child", method: http.MethodGet, path: pathOf(mine), token: app.getToken(t, parent), wantCode: http.StatusOK},
		{name: "parent cannot read another child", method: http.MethodGet, path: pathOf(notMine), token: app.getToken(t, parent), wantCode: http.StatusNotFound},
		{name: "admin reads any child", method: http.MethodGet, path: pathOf(notMine), token: app.getToken(t, admin), wantCode: http.StatusOK},
		{name: "children listing", method: http.MethodGet, path: "/v1/students/children", token: app.getToken(t, parent), wantCode: http.StatusOK, wantData: marchallObj(t, []student.Student{mine})},
		{name: "children listing is parent-only", method: http.MethodGet, path: "/v1/students/children", token: app.getToken(t, admin), wantCode: http.StatusForbidden},
		{name: "roster is staff-only", method: http.MethodGet, path: "/v1/students", token: app.getToken(t, parent), wantCode: http.StatusForbidden},
		{name: "roster", method: http.MethodGet, path: "/v1/students?class=1", token: app.getToken(t, admin), wantCode: http.StatusOK, wantData: marchallObj(t, []student.Student{mine, notMine})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt))
		})
	}
}

func Test_studentApi_grades(t *testing.T) {
	app := setupAPI(t)
	admin, _, teacher, parent := app.createAllRoles(t)

	_, err := app.stdSvc.AssignTeacher(student.NewTeacher{UserID: teacher.ID, ClassID: 1})
	require.NoError(t, err)
	st := app.enrollChild(t, "Junior", 1, parent.ID)
	stPath := "/v1/students/" + strconv.Itoa(st.ID)

	grade := func(subjectID, term, seq int, score float64) []byte {
		return marchallObj(t, student.NewGrade{StudentID: st.ID, SubjectID: subjectID, Term: term, Sequence: seq, Score: score})
	}

	tests := []httpTest{
		{name: "parent cannot grade", method: http.MethodPost, path: "/v1/grades", token: app.getToken(t, parent), body: grade(1, 1, 1, 12), wantCode: http.StatusForbidden},
		{name: "teacher grades", method: http.MethodPost, path: "/v1/grades", token: app.getToken(t, teacher), body: grade(1, 1, 1, 12), wantCode: http.StatusCreated},
		{name: "admin grades", method: http.MethodPost, path: "/v1/grades", token: app.getToken(t, admin), body: grade(2, 1, 1, 15), wantCode: http.StatusCreated},
		{name: "score above scale", method: http.MethodPost, path: "/v1/grades", token: app.getToken(t, admin), body: grade(3, 1, 1, 21), wantCode: http.StatusBadRequest},
		{name: "term out of range", method: http.MethodPost, path: "/v1/grades", token: app.getToken(t, admin), body: grade(3, 4, 1, 10), wantCode: http.StatusBadRequest},
		{name: "parent reads own child's grades", method: http.MethodGet, path: stPath + "/grades", token: app.getToken(t, parent), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt))
		})
	}

	// a teacher-recorded grade is stamped with the teacher
	grades, err := app.stdSvc.QueryGrades(st.ID, 1, 1)
	require.NoError(t, err)
	require.Len(t, grades, 2)
	var stamped bool
	for _, g := range grades {
		if g.TeacherID.Valid && int(g.TeacherID.Int) == teacher.ID {
			stamped = true
		}
	}
	assert.True(t, stamped)

	// average endpoint
	tt := httpTest{method: http.MethodGet, path: stPath + "/averages?term=1", token: app.getToken(t, parent), wantCode: http.StatusOK}
	rec := app.do(tt)
	checkCodeAndData(t, tt, rec)
	var avg AverageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &avg))
	assert.Equal(t, 13.5, avg.Average)
}

func Test_studentApi_attendance(t *testing.T) {
	app := setupAPI(t)
	admin, _, teacher, parent := app.createAllRoles(t)
	st := app.enrollChild(t, "Junior", 1, parent.ID)

	att := marchallObj(t, map[string]interface{}{
		"student_id": st.ID, "date": "2021-03-08T00:00:00Z", "present": false, "remark": "sick",
	})

	tests := []httpTest{
		{name: "parent cannot record", method: http.MethodPost, path: "/v1/attendance", token: app.getToken(t, parent), body: att, wantCode: http.StatusForbidden},
		{name: "teacher records", method: http.MethodPost, path: "/v1/attendance", token: app.getToken(t, teacher), body: att, wantCode: http.StatusCreated},
		{name: "admin corrects same day", method: http.MethodPost, path: "/v1/attendance", token: app.getToken(t, admin), wantCode: http.StatusCreated,
			body: marchallObj(t, map[string]interface{}{"student_id": st.ID, "date": "2021-03-08T00:00:00Z", "present": true})},
		{name: "parent reads child's attendance", method: http.MethodGet, path: "/v1/students/" + strconv.Itoa(st.ID) + "/attendance",
			token: app.getToken(t, parent), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt))
		})
	}

	// the correction replaced the first record
	records, err := app.stdSvc.QueryAttendance(st.ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Present)
}

func Test_studentApi_payments(t *testing.T) {
	app := setupAPI(t)
	admin, director, _, parent := app.createAllRoles(t)
	st := app.enrollChild(t, "Junior", 1, parent.ID)

	newPayment := marchallObj(t, student.NewPayment{StudentID: st.ID, Amount: 25000, Reason: "tuition, term 1"})

	tests := []httpTest{
		{name: "parent cannot register", method: http.MethodPost, path: "/v1/payments", token: app.getToken(t, parent), body: newPayment, wantCode: http.StatusForbidden},
		{name: "admin registers", method: http.MethodPost, path: "/v1/payments", token: app.getToken(t, admin), body: newPayment, wantCode: http.StatusCreated},
		{name: "zero amount", method: http.MethodPost, path: "/v1/payments", token: app.getToken(t, admin),
			body: marchallObj(t, student.NewPayment{StudentID: st.ID, Amount: 0, Reason: "x"}), wantCode: http.StatusBadRequest},
		{name: "director lists", method: http.MethodGet, path: "/v1/payments?status=unpaid", token: app.getToken(t, director), wantCode: http.StatusOK},
		{name: "parent sees pending", method: http.MethodGet, path: "/v1/payments/pending", token: app.getToken(t, parent), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt))
		})
	}

	payments, err := app.stdSvc.QueryPayments(st.ID, "")
	require.NoError(t, err)
	require.Len(t, payments, 1)
	p := payments[0]

	// settle, then settle again
	settle := marchallObj(t, student.SettlePayment{Method: student.MethodCash})
	settlePath := "/v1/payments/" + strconv.Itoa(p.ID) + "/settle"
	tests = []httpTest{
		{name: "parent cannot settle", method: http.MethodPut, path: settlePath, token: app.getToken(t, parent), body: settle, wantCode: http.StatusForbidden},
		{name: "admin settles", method: http.MethodPut, path: settlePath, token: app.getToken(t, admin), body: settle, wantCode: http.StatusOK},
		{name: "already paid", method: http.MethodPut, path: settlePath, token: app.getToken(t, admin), body: settle, wantCode: http.StatusBadRequest},
		{name: "unknown payment", method: http.MethodPut, path: "/v1/payments/999/settle", token: app.getToken(t, admin), body: settle, wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt))
		})
	}
}
