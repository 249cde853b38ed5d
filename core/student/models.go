package student

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/copalsoft/copalschool/core"
	"github.com/copalsoft/copalschool/core/user"
)

// Payment statuses and methods
const (
	PaymentPaid   = "paid"
	PaymentUnpaid = "unpaid"

	MethodCash        = "cash"
	MethodMobileMoney = "mobile_money"
)

// Grading bounds: scores on a 0-20 scale, terms 1-3, sequences 1-6.
const (
	MaxScore    = 20
	MaxTerm     = 3
	MaxSequence = 6
)

type Student struct {
	core.Lifecycle
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	Sex       string    `db:"sex" json:"sex"`
	BirthDate null.Time `db:"birth_date" json:"birth_date"`
	ClassID   int       `db:"class_id" json:"class_id"`
	ParentID  int       `db:"parent_id" json:"parent_id"` // user with the parent role
}

func (s Student) FullName() string { return s.FirstName + " " + s.LastName }

// Age in full years as of now; -1 when the birth date is unknown.
func (s Student) Age() int {
	if !s.BirthDate.Valid {
		return -1
	}
	now := core.Now()
	age := now.Year() - s.BirthDate.Time.Year()
	if now.YearDay() < s.BirthDate.Time.YearDay() {
		age--
	}
	return age
}

// Teacher is the staff profile attached to a user with the teacher role.
// A teacher leads at most one class.
type Teacher struct {
	core.Lifecycle
	UserID  int      `db:"user_id" json:"user_id"`
	ClassID null.Int `db:"class_id" json:"class_id"`
	Salary  float64  `db:"salary" json:"salary"`
}

// Grade is one score a student earned in a subject, keyed by term and
// sequence. (student, subject, term, sequence) is unique among active rows;
// recording again overwrites.
type Grade struct {
	core.Lifecycle
	StudentID int      `db:"student_id" json:"student_id"`
	SubjectID int      `db:"subject_id" json:"subject_id"`
	Term      int      `db:"term" json:"term"`
	Sequence  int      `db:"sequence" json:"sequence"`
	Score     float64  `db:"score" json:"score"`
	TeacherID null.Int `db:"teacher_id" json:"teacher_id"` // recording teacher, when known
}

// Attendance records one student's presence for one day.
type Attendance struct {
	core.Lifecycle
	StudentID int       `db:"student_id" json:"student_id"`
	Date      time.Time `db:"date" json:"date"` // midnight UTC
	Present   bool      `db:"present" json:"present"`
	Remark    string    `db:"remark" json:"remark"`
}

type Payment struct {
	core.Lifecycle
	StudentID int       `db:"student_id" json:"student_id"`
	Amount    float64   `db:"amount" json:"amount"`
	Reason    string    `db:"reason" json:"reason"`
	Status    string    `db:"status" json:"status"`
	Method    string    `db:"method" json:"method"`
	PaidAt    null.Time `db:"paid_at" json:"paid_at"`
}

func (p Payment) IsPaid() bool { return p.Status == PaymentPaid }

// NewStudent enrolls a student. The parent is referenced by ID when the
// account already exists, or created in the same operation via NewParent.
type NewStudent struct {
	FirstName string        `json:"first_name" validate:"required"`
	LastName  string        `json:"last_name" validate:"required"`
	Sex       string        `json:"sex" validate:"required,oneof=boy girl"`
	BirthDate null.Time     `json:"birth_date"`
	ClassID   int           `json:"class_id" validate:"required"`
	ParentID  int           `json:"parent_id" validate:"required_without=NewParent"`
	NewParent *user.NewUser `json:"new_parent"`
}

func (ns *NewStudent) Validate(usrSvc user.Service) error {
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.LastName = core.CleanString(ns.LastName)
	ns.Sex = core.CleanString(ns.Sex, true /* lower */)
	if err := core.Validate.Struct(ns); err != nil {
		return err
	}
	if ns.NewParent != nil {
		ns.NewParent.Role = user.RoleParent
		return ns.NewParent.Validate(usrSvc)
	}
	return nil
}

type UpdateStudent struct {
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	BirthDate null.Time `json:"birth_date"`
	ClassID   int       `json:"class_id"`
}

func (us *UpdateStudent) Validate() error {
	us.FirstName = core.CleanString(us.FirstName)
	us.LastName = core.CleanString(us.LastName)
	return core.Validate.Struct(us)
}

type NewTeacher struct {
	UserID  int     `json:"user_id" validate:"required"`
	ClassID int     `json:"class_id"`
	Salary  float64 `json:"salary" validate:"omitempty,min=0"`
}

func (nt *NewTeacher) Validate() error {
	return core.Validate.Struct(nt)
}

type NewGrade struct {
	StudentID int     `json:"student_id" validate:"required"`
	SubjectID int     `json:"subject_id" validate:"required"`
	Term      int     `json:"term" validate:"required,min=1,max=3"`
	Sequence  int     `json:"sequence" validate:"required,min=1,max=6"`
	Score     float64 `json:"score" validate:"min=0,max=20"`
	TeacherID int     `json:"teacher_id"`
}

func (ng *NewGrade) Validate() error {
	return core.Validate.Struct(ng)
}

type NewAttendance struct {
	StudentID int       `json:"student_id" validate:"required"`
	Date      time.Time `json:"date" validate:"required"`
	Present   bool      `json:"present"`
	Remark    string    `json:"remark"`
}

func (na *NewAttendance) Validate() error {
	na.Remark = core.CleanString(na.Remark)
	na.Date = na.Date.UTC().Truncate(24 * time.Hour)
	return core.Validate.Struct(na)
}

type NewPayment struct {
	StudentID int     `json:"student_id" validate:"required"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Reason    string  `json:"reason" validate:"required"`
	Method    string  `json:"method" validate:"omitempty,oneof=cash mobile_money"`
}

func (np *NewPayment) Validate() error {
	np.Reason = core.CleanString(np.Reason)
	np.Method = core.CleanString(np.Method, true /* lower */)
	return core.Validate.Struct(np)
}

// SettlePayment marks a pending payment as paid with the method used.
type SettlePayment struct {
	Method string `json:"method" validate:"required,oneof=cash mobile_money"`
}

func (sp *SettlePayment) Validate() error {
	sp.Method = core.CleanString(sp.Method, true /* lower */)
	return core.Validate.Struct(sp)
}
