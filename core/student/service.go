package student

import (
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/copalsoft/copalschool/core"
	"github.com/copalsoft/copalschool/core/user"
)

var (
	ErrNotFound        = errors.New("student not found")
	ErrTeacherNotFound = errors.New("teacher profile not found")
	ErrPaymentNotFound = errors.New("payment not found")

	alreadyPaidErr = core.NewValidationError(nil, core.FieldError{Field: "status", Error: "payment has already been settled"})
)

type (
	Repository interface {
		CreateStudent(st Student) (Student, error)
		// EnrollStudent creates the student and, when parent is non-nil, the
		// parent account in a single transaction. Neither row survives a
		// failure of the other.
		EnrollStudent(st Student, parent *user.User) (Student, user.User, error)
		QueryStudents(classID int) ([]Student, error) // classID <= 0 lists all
		QueryStudentsByParent(parentID int) ([]Student, error)
		GetStudentByID(id int) (Student, error)
		UpdateStudent(st Student) error
		DeleteStudentsByID(ids ...int) error

		CreateTeacher(t Teacher) (Teacher, error)
		QueryTeachers() ([]Teacher, error)
		GetTeacherByUserID(userID int) (Teacher, error)
		GetTeacherByClassID(classID int) (Teacher, error)
		UpdateTeacher(t Teacher) error
		DeleteTeachersByID(ids ...int) error

		// UpsertGrade overwrites the active row sharing the same
		// (student, subject, term, sequence) key, if any.
		UpsertGrade(g Grade) (Grade, error)
		// QueryGrades filters by student; term and sequence narrow the set
		// when positive.
		QueryGrades(studentID, term, sequence int) ([]Grade, error)
		DeleteGradesByID(ids ...int) error

		// UpsertAttendance overwrites the active row for the same
		// (student, date) pair, if any.
		UpsertAttendance(a Attendance) (Attendance, error)
		QueryAttendance(studentID int, from, to time.Time) ([]Attendance, error)
		DeleteAttendanceByID(ids ...int) error

		CreatePayment(p Payment) (Payment, error)
		QueryPayments(studentID int, status string) ([]Payment, error) // studentID <= 0 lists all
		QueryPaymentsByParent(parentID int, status string) ([]Payment, error)
		GetPaymentByID(id int) (Payment, error)
		UpdatePayment(p Payment) error
	}

	Service interface {
		Repository
		Enroll(ns NewStudent) (Student, error)
		Update(id int, us UpdateStudent) (Student, error)
		ChildrenOf(parentID int) ([]Student, error)

		AssignTeacher(nt NewTeacher) (Teacher, error)

		RecordGrade(ng NewGrade) (Grade, error)
		TermAverage(studentID, term int) (float64, error)
		SequenceAverage(studentID, term, sequence int) (float64, error)

		RecordAttendance(na NewAttendance) (Attendance, error)

		RegisterPayment(np NewPayment) (Payment, error)
		SettlePayment(id int, sp SettlePayment) (Payment, error)
		PendingPayments(parentID int) ([]Payment, error)
	}

	service struct {
		repo   Repository
		usrSvc user.Service
		log    core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, usrSvc user.Service, log core.Logger) *service {
	return &service{repo: repo, usrSvc: usrSvc, log: log}
}

func (svc service) CreateStudent(st Student) (Student, error) { return svc.repo.CreateStudent(st) }
func (svc service) EnrollStudent(st Student, parent *user.User) (Student, user.User, error) {
	return svc.repo.EnrollStudent(st, parent)
}
func (svc service) QueryStudents(classID int) ([]Student, error) {
	return svc.repo.QueryStudents(classID)
}
func (svc service) QueryStudentsByParent(pID int) ([]Student, error) {
	return svc.repo.QueryStudentsByParent(pID)
}
func (svc service) GetStudentByID(id int) (Student, error) { return svc.repo.GetStudentByID(id) }
func (svc service) UpdateStudent(st Student) error         { return svc.repo.UpdateStudent(st) }
func (svc service) DeleteStudentsByID(ids ...int) error    { return svc.repo.DeleteStudentsByID(ids...) }

func (svc service) CreateTeacher(t Teacher) (Teacher, error) { return svc.repo.CreateTeacher(t) }
func (svc service) QueryTeachers() ([]Teacher, error)        { return svc.repo.QueryTeachers() }
func (svc service) GetTeacherByUserID(uID int) (Teacher, error) {
	return svc.repo.GetTeacherByUserID(uID)
}
func (svc service) GetTeacherByClassID(cID int) (Teacher, error) {
	return svc.repo.GetTeacherByClassID(cID)
}
func (svc service) UpdateTeacher(t Teacher) error        { return svc.repo.UpdateTeacher(t) }
func (svc service) DeleteTeachersByID(ids ...int) error  { return svc.repo.DeleteTeachersByID(ids...) }
func (svc service) UpsertGrade(g Grade) (Grade, error)   { return svc.repo.UpsertGrade(g) }
func (svc service) QueryGrades(sID, term, seq int) ([]Grade, error) {
	return svc.repo.QueryGrades(sID, term, seq)
}
func (svc service) DeleteGradesByID(ids ...int) error { return svc.repo.DeleteGradesByID(ids...) }
func (svc service) UpsertAttendance(a Attendance) (Attendance, error) {
	return svc.repo.UpsertAttendance(a)
}
func (svc service) QueryAttendance(sID int, from, to time.Time) ([]Attendance, error) {
	return svc.repo.QueryAttendance(sID, from, to)
}
func (svc service) DeleteAttendanceByID(ids ...int) error {
	return svc.repo.DeleteAttendanceByID(ids...)
}
func (svc service) CreatePayment(p Payment) (Payment, error) { return svc.repo.CreatePayment(p) }
func (svc service) QueryPayments(sID int, status string) ([]Payment, error) {
	return svc.repo.QueryPayments(sID, status)
}
func (svc service) QueryPaymentsByParent(pID int, status string) ([]Payment, error) {
	return svc.repo.QueryPaymentsByParent(pID, status)
}
func (svc service) GetPaymentByID(id int) (Payment, error) { return svc.repo.GetPaymentByID(id) }
func (svc service) UpdatePayment(p Payment) error          { return svc.repo.UpdatePayment(p) }

// Enroll registers a student, creating the parent account in the same
// transaction when NewParent is provided. The parent's credentials mail only
// goes out once both rows are in.
func (svc service) Enroll(ns NewStudent) (Student, error) {
	now := core.Now()
	st := Student{
		FirstName: ns.FirstName,
		LastName:  ns.LastName,
		Sex:       ns.Sex,
		BirthDate: ns.BirthDate,
		ClassID:   ns.ClassID,
		ParentID:  ns.ParentID,
	}
	st.Touch(now)

	var parent *user.User
	if ns.NewParent != nil {
		usr, err := svc.usrSvc.Prepare(*ns.NewParent)
		if err != nil {
			return Student{}, err
		}
		parent = &usr
	} else if _, err := svc.usrSvc.GetByID(ns.ParentID); err != nil {
		return Student{}, err
	}

	st, createdParent, err := svc.repo.EnrollStudent(st, parent)
	if err != nil {
		return Student{}, err
	}
	if parent != nil {
		svc.usrSvc.NotifyCredentials(createdParent, ns.NewParent.Password)
	}
	return st, nil
}

func (svc service) Update(id int, us UpdateStudent) (Student, error) {
	st, err := svc.repo.GetStudentByID(id)
	if err != nil {
		return Student{}, err
	}
	if us.FirstName != "" {
		st.FirstName = us.FirstName
	}
	if us.LastName != "" {
		st.LastName = us.LastName
	}
	if us.BirthDate.Valid {
		st.BirthDate = us.BirthDate
	}
	if us.ClassID > 0 {
		st.ClassID = us.ClassID
	}
	st.Touch(core.Now())
	if err = svc.repo.UpdateStudent(st); err != nil {
		return Student{}, err
	}
	return st, nil
}

func (svc service) ChildrenOf(parentID int) ([]Student, error) {
	return svc.repo.QueryStudentsByParent(parentID)
}

func (svc service) AssignTeacher(nt NewTeacher) (Teacher, error) {
	usr, err := svc.usrSvc.GetByID(nt.UserID)
	if err != nil {
		return Teacher{}, err
	}
	if !usr.IsTeacher() {
		return Teacher{}, core.NewValidationError(nil,
			core.FieldError{Field: "user_id", Error: "user does not have the teacher role"})
	}

	t := Teacher{UserID: nt.UserID, Salary: nt.Salary}
	if nt.ClassID > 0 {
		t.ClassID = null.IntFrom(nt.ClassID)
	}
	t.Touch(core.Now())
	return svc.repo.CreateTeacher(t)
}

func (svc service) RecordGrade(ng NewGrade) (Grade, error) {
	if _, err := svc.repo.GetStudentByID(ng.StudentID); err != nil {
		return Grade{}, err
	}
	g := Grade{
		StudentID: ng.StudentID,
		SubjectID: ng.SubjectID,
		Term:      ng.Term,
		Sequence:  ng.Sequence,
		Score:     ng.Score,
	}
	if ng.TeacherID > 0 {
		if _, err := svc.usrSvc.GetByID(ng.TeacherID); err != nil {
			return Grade{}, err
		}
		if _, err := svc.repo.GetTeacherByUserID(ng.TeacherID); err != nil {
			return Grade{}, err
		}
		g.TeacherID = null.IntFrom(ng.TeacherID)
	}
	g.Touch(core.Now())
	return svc.repo.UpsertGrade(g)
}

// TermAverage is the arithmetic mean of every active score the student has in
// the term, rounded to 2 decimals. No grades means 0, not an error.
func (svc service) TermAverage(studentID, term int) (float64, error) {
	grades, err := svc.repo.QueryGrades(studentID, term, 0)
	if err != nil {
		return 0, err
	}
	return mean(grades), nil
}

func (svc service) SequenceAverage(studentID, term, sequence int) (float64, error) {
	grades, err := svc.repo.QueryGrades(studentID, term, sequence)
	if err != nil {
		return 0, err
	}
	return mean(grades), nil
}

func mean(grades []Grade) float64 {
	if len(grades) == 0 {
		return 0
	}
	var sum float64
	for _, g := range grades {
		sum += g.Score
	}
	return core.Round2(sum / float64(len(grades)))
}

func (svc service) RecordAttendance(na NewAttendance) (Attendance, error) {
	if _, err := svc.repo.GetStudentByID(na.StudentID); err != nil {
		return Attendance{}, err
	}
	a := Attendance{
		StudentID: na.StudentID,
		Date:      na.Date,
		Present:   na.Present,
		Remark:    na.Remark,
	}
	a.Touch(core.Now())
	return svc.repo.UpsertAttendance(a)
}

func (svc service) RegisterPayment(np NewPayment) (Payment, error) {
	if _, err := svc.repo.GetStudentByID(np.StudentID); err != nil {
		return Payment{}, err
	}
	p := Payment{
		StudentID: np.StudentID,
		Amount:    np.Amount,
		Reason:    np.Reason,
		Status:    PaymentUnpaid,
		Method:    np.Method,
	}
	p.Touch(core.Now())
	return svc.repo.CreatePayment(p)
}

func (svc service) SettlePayment(id int, sp SettlePayment) (Payment, error) {
	p, err := svc.repo.GetPaymentByID(id)
	if err != nil {
		return Payment{}, err
	}
	if p.IsPaid() {
		return Payment{}, alreadyPaidErr
	}
	now := core.Now()
	p.Status = PaymentPaid
	p.Method = sp.Method
	p.PaidAt = null.TimeFrom(now)
	p.Touch(now)
	if err = svc.repo.UpdatePayment(p); err != nil {
		return Payment{}, err
	}
	return p, nil
}

func (svc service) PendingPayments(parentID int) ([]Payment, error) {
	return svc.repo.QueryPaymentsByParent(parentID, PaymentUnpaid)
}
