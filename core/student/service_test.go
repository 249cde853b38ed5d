package student_test

import (
	"log"
	"net/mail"
	"os"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copalsoft/copalschool/core"
	"github.com/copalsoft/copalschool/core/student"
	"github.com/copalsoft/copalschool/core/user"
	emailsvc "github.com/copalsoft/copalschool/services/email"
	logsvc "github.com/copalsoft/copalschool/services/logger"
	dummydb "github.com/copalsoft/copalschool/storage/database/dummy"
)

func setup(t *testing.T) (student.Service, *dummydb.DB) {
	conf := &core.Config{
		Debug:                    true,
		TestMode:                 true,
		AppName:                  "CopalSchool",
		WorkDir:                  core.Getwd(),
		SecretKey:                []byte("secret"),
		DefaultFromEmail:         mail.Address{Name: "CopalSchool", Address: "noreply@localhost"},
		PasswordResetCodeTimeout: time.Hour,
	}
	user.Configure(conf)
	emailsvc.ClearSentMessages()

	db, err := dummydb.Open()
	require.NoError(t, err)

	logger := logsvc.NewStdLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags))
	usrSvc := user.NewService(dummydb.NewUserRepository(db), emailsvc.NewConsoleService(conf), logger)
	svc := student.NewService(dummydb.NewStudentRepository(db), usrSvc, logger)
	return svc, db
}

func newParent(uname string) *user.NewUser {
	return &user.NewUser{
		Name:            "Parent " + uname,
		Username:        uname,
		Email:           uname + "@test.cm",
		Role:            user.RoleParent,
		Password:        "v3rys3cr3t",
		PasswordConfirm: "v3rys3cr3t",
	}
}

func enroll(t *testing.T, svc student.Service, first string, classID int, parentUname string) student.Student {
	st, err := svc.Enroll(student.NewStudent{
		FirstName: first,
		LastName:  "Doe",
		Sex:       "boy",
		ClassID:   classID,
		NewParent: newParent(parentUname),
	})
	require.NoError(t, err)
	return st
}

func Test_service_Enroll(t *testing.T) {
	svc, _ := setup(t)

	st := enroll(t, svc, "Junior", 1, "jdad")
	assert.True(t, st.ID > 0)
	assert.True(t, st.ParentID > 0)
	assert.Equal(t, "Junior Doe", st.FullName())

	// parent got their credentials
	require.Len(t, emailsvc.SentMessages, 1)
	assert.Contains(t, emailsvc.SentMessages[0].TextContent, "jdad")

	// enrolling a sibling against the existing parent account
	sibling, err := svc.Enroll(student.NewStudent{
		FirstName: "Sissy",
		LastName:  "Doe",
		Sex:       "girl",
		ClassID:   1,
		ParentID:  st.ParentID,
	})
	require.NoError(t, err)
	assert.Equal(t, st.ParentID, sibling.ParentID)

	children, err := svc.ChildrenOf(st.ParentID)
	require.NoError(t, err)
	assert.Len(t, children, 2)

	// unknown parent ID
	_, err = svc.Enroll(student.NewStudent{
		FirstName: "Orphan",
		LastName:  "Doe",
		Sex:       "boy",
		ClassID:   1,
		ParentID:  999,
	})
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
}

func Test_service_Enroll_atomic(t *testing.T) {
	svc, db := setup(t)

	repo := dummydb.NewStudentRepository(db)
	repo.EnrollFailure = errors.New("boom")
	logger := logsvc.NewStdLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags))
	usrSvc := user.NewService(dummydb.NewUserRepository(db), emailsvc.NewConsoleService(&core.Config{TestMode: true}), logger)
	failingSvc := student.NewService(repo, usrSvc, logger)

	_, err := failingSvc.Enroll(student.NewStudent{
		FirstName: "Junior",
		LastName:  "Doe",
		Sex:       "boy",
		ClassID:   1,
		NewParent: newParent("jdad"),
	})
	require.Error(t, err)

	// nothing was left behind: no parent account, no student, no mail
	_, err = usrSvc.GetByUsername("jdad")
	assert.Equal(t, user.ErrNotFound, err)
	students, err := svc.QueryStudents(0)
	require.NoError(t, err)
	assert.Empty(t, students)
	assert.Empty(t, emailsvc.SentMessages)
}

func Test_service_Averages(t *testing.T) {
	svc, _ := setup(t)

	st := enroll(t, svc, "Junior", 1, "jdad")

	record := func(subjectID, term, sequence int, score float64) {
		_, err := svc.RecordGrade(student.NewGrade{
			StudentID: st.ID,
			SubjectID: subjectID,
			Term:      term,
			Sequence:  sequence,
			Score:     score,
		})
		require.NoError(t, err)
	}

	// no grades yet: average is 0, not an error
	avg, err := svc.TermAverage(st.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, avg)

	record(1, 1, 1, 12)
	record(2, 1, 1, 15)
	record(3, 1, 2, 9)

	avg, err = svc.TermAverage(st.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 12.0, avg)

	avg, err = svc.SequenceAverage(st.ID, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 13.5, avg)

	avg, err = svc.SequenceAverage(st.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 9.0, avg)

	// other terms are untouched
	avg, err = svc.TermAverage(st.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 0.0, avg)

	// re-recording a grade replaces the previous score instead of stacking
	record(1, 1, 1, 18)
	avg, err = svc.SequenceAverage(st.ID, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 16.5, avg)

	grades, err := svc.QueryGrades(st.ID, 1, 1)
	require.NoError(t, err)
	assert.Len(t, grades, 2)
}

func Test_service_RecordAttendance(t *testing.T) {
	svc, _ := setup(t)

	st := enroll(t, svc, "Junior", 1, "jdad")
	day := time.Date(2021, time.March, 8, 0, 0, 0, 0, time.UTC)

	a, err := svc.RecordAttendance(student.NewAttendance{StudentID: st.ID, Date: day, Present: false, Remark: "sick"})
	require.NoError(t, err)
	assert.False(t, a.Present)

	// correcting the same day replaces the record
	a, err = svc.RecordAttendance(student.NewAttendance{StudentID: st.ID, Date: day, Present: true})
	require.NoError(t, err)
	assert.True(t, a.Present)

	records, err := svc.QueryAttendance(st.ID, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Present)

	// range filters
	records, err = svc.QueryAttendance(st.ID, day.AddDate(0, 0, 1), time.Time{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func Test_service_Payments(t *testing.T) {
	svc, _ := setup(t)

	st := enroll(t, svc, "Junior", 1, "jdad")

	p, err := svc.RegisterPayment(student.NewPayment{StudentID: st.ID, Amount: 25000, Reason: "tuition, term 1"})
	require.NoError(t, err)
	assert.Equal(t, student.PaymentUnpaid, p.Status)
	assert.False(t, p.IsPaid())

	pending, err := svc.PendingPayments(st.ParentID)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	p, err = svc.SettlePayment(p.ID, student.SettlePayment{Method: student.MethodMobileMoney})
	require.NoError(t, err)
	assert.True(t, p.IsPaid())
	assert.Equal(t, student.MethodMobileMoney, p.Method)
	assert.True(t, p.PaidAt.Valid)

	// settling twice is a validation error
	_, err = svc.SettlePayment(p.ID, student.SettlePayment{Method: student.MethodCash})
	var vErr *core.ValidationError
	assert.True(t, errors.As(err, &vErr))

	pending, err = svc.PendingPayments(st.ParentID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func Test_service_AssignTeacher(t *testing.T) {
	svc, db := setup(t)

	logger := logsvc.NewStdLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags))
	usrSvc := user.NewService(dummydb.NewUserRepository(db), emailsvc.NewConsoleService(&core.Config{TestMode: true}), logger)

	teacher, err := usrSvc.Create(user.NewUser{
		Name: "Mr T", Username: "mrtea", Email: "mrtea@test.cm",
		Role: user.RoleTeacher, Password: "v3rys3cr3t", PasswordConfirm: "v3rys3cr3t",
	})
	require.NoError(t, err)
	parent, err := usrSvc.Create(user.NewUser{
		Name: "Mr P", Username: "mrpar", Email: "mrpar@test.cm",
		Role: user.RoleParent, Password: "v3rys3cr3t", PasswordConfirm: "v3rys3cr3t",
	})
	require.NoError(t, err)

	tch, err := svc.AssignTeacher(student.NewTeacher{UserID: teacher.ID, ClassID: 1, Salary: 120000})
	require.NoError(t, err)
	assert.Equal(t, teacher.ID, tch.UserID)
	require.True(t, tch.ClassID.Valid)
	assert.EqualValues(t, 1, tch.ClassID.Int)

	// only users holding the teacher role qualify
	_, err = svc.AssignTeacher(student.NewTeacher{UserID: parent.ID})
	var vErr *core.ValidationError
	assert.True(t, errors.As(err, &vErr))
}
