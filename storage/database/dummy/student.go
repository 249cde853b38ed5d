package dummydb

import (
	"sort"
	"time"

	"github.com/copalsoft/copalschool/core"
	"github.com/copalsoft/copalschool/core/student"
	"github.com/copalsoft/copalschool/core/user"
)

type studentRepository struct {
	students    *table
	teachers    *table
	grades      *table
	attendances *table
	payments    *table
	users       *table

	// EnrollFailure, when set, aborts EnrollStudent after the parent insert.
	// Tests use it to check that a failed enrollment leaves nothing behind.
	EnrollFailure error
}

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{
		students:    db.student,
		teachers:    db.teacher,
		grades:      db.grade,
		attendances: db.attendance,
		payments:    db.payment,
		users:       db.user,
	}
}

func (repo *studentRepository) CreateStudent(st student.Student) (student.Student, error) {
	repo.students.Lock()
	defer repo.students.Unlock()

	st.ID = repo.students.nextPK()
	repo.students.rows[st.ID] = &st
	return st, nil
}

func (repo *studentRepository) EnrollStudent(st student.Student, parent *user.User) (student.Student, user.User, error) {
	repo.students.Lock()
	defer repo.students.Unlock()

	var createdParent user.User
	if parent != nil {
		repo.users.Lock()
		parent.ID = repo.users.nextPK()
		repo.users.rows[parent.ID] = parent
		repo.users.Unlock()
		createdParent = *parent
		st.ParentID = parent.ID
	}

	if repo.EnrollFailure != nil {
		// roll the parent insert back, like the SQL transaction would
		if parent != nil {
			repo.users.Lock()
			delete(repo.users.rows, parent.ID)
			repo.users.Unlock()
		}
		return student.Student{}, user.User{}, repo.EnrollFailure
	}

	st.ID = repo.students.nextPK()
	repo.students.rows[st.ID] = &st
	return st, createdParent, nil
}

func (repo *studentRepository) QueryStudents(classID int) ([]student.Student, error) {
	repo.students.RLock()
	defer repo.students.RUnlock()

	students := make([]student.Student, 0)
	for _, row := range repo.students.rows {
		st := row.(*student.Student)
		if !st.IsActive() {
			continue
		}
		if classID > 0 && st.ClassID != classID {
			continue
		}
		students = append(students, *st)
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })
	return students, nil
}

func (repo *studentRepository) QueryStudentsByParent(parentID int) ([]student.Student, error) {
	repo.students.RLock()
	defer repo.students.RUnlock()

	students := make([]student.Student, 0)
	for _, row := range repo.students.rows {
		if st := row.(*student.Student); st.IsActive() && st.ParentID == parentID {
			students = append(students, *st)
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })
	return students, nil
}

func (repo *studentRepository) GetStudentByID(id int) (student.Student, error) {
	repo.students.RLock()
	defer repo.students.RUnlock()

	if row, ok := repo.students.rows[id]; ok {
		if st := row.(*student.Student); st.IsActive() {
			return *st, nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) UpdateStudent(st student.Student) error {
	repo.students.Lock()
	defer repo.students.Unlock()

	row, ok := repo.students.rows[st.ID]
	if !ok || !row.(*student.Student).IsActive() {
		return student.ErrNotFound
	}
	repo.students.rows[st.ID] = &st
	return nil
}

func (repo *studentRepository) DeleteStudentsByID(ids ...int) error {
	repo.students.Lock()
	defer repo.students.Unlock()

	now := core.Now()
	for _, id := range ids {
		if row, ok := repo.students.rows[id]; ok {
			row.(*student.Student).Delete(now)
		}
	}
	return nil
}

func (repo *studentRepository) CreateTeacher(t student.Teacher) (student.Teacher, error) {
	repo.teachers.Lock()
	defer repo.teachers.Unlock()

	t.ID = repo.teachers.nextPK()
	repo.teachers.rows[t.ID] = &t
	return t, nil
}

func (repo *studentRepository) QueryTeachers() ([]student.Teacher, error) {
	repo.teachers.RLock()
	defer repo.teachers.RUnlock()

	teachers := make([]student.Teacher, 0)
	for _, row := range repo.teachers.rows {
		if t := row.(*student.Teacher); t.IsActive() {
			teachers = append(teachers, *t)
		}
	}
	sort.Slice(teachers, func(i, j int) bool { return teachers[i].ID < teachers[j].ID })
	return teachers, nil
}

func (repo *studentRepository) GetTeacherByUserID(userID int) (student.Teacher, error) {
	repo.teachers.RLock()
	defer repo.teachers.RUnlock()

	for _, row := range repo.teachers.rows {
		if t := row.(*student.Teacher); t.IsActive() && t.UserID == userID {
			return *t, nil
		}
	}
	return student.Teacher{}, student.ErrTeacherNotFound
}

func (repo *studentRepository) GetTeacherByClassID(classID int) (student.Teacher, error) {
	repo.teachers.RLock()
	defer repo.teachers.RUnlock()

	for _, row := range repo.teachers.rows {
		if t := row.(*student.Teacher); t.IsActive() && t.ClassID.Valid && t.ClassID.Int == classID {
			return *t, nil
		}
	}
	return student.Teacher{}, student.ErrTeacherNotFound
}

func (repo *studentRepository) UpdateTeacher(t student.Teacher) error {
	repo.teachers.Lock()
	defer repo.teachers.Unlock()

	row, ok := repo.teachers.rows[t.ID]
	if !ok || !row.(*student.Teacher).IsActive() {
		return student.ErrTeacherNotFound
	}
	repo.teachers.rows[t.ID] = &t
	return nil
}

func (repo *studentRepository) DeleteTeachersByID(ids ...int) error {
	repo.teachers.Lock()
	defer repo.teachers.Unlock()

	now := core.Now()
	for _, id := range ids {
		if row, ok := repo.teachers.rows[id]; ok {
			row.(*student.Teacher).Delete(now)
		}
	}
	return nil
}

func (repo *studentRepository) UpsertGrade(g student.Grade) (student.Grade, error) {
	repo.grades.Lock()
	defer repo.grades.Unlock()

	for _, row := range repo.grades.rows {
		prev := row.(*student.Grade)
		if prev.IsActive() && prev.StudentID == g.StudentID && prev.SubjectID == g.SubjectID &&
			prev.Term == g.Term && prev.Sequence == g.Sequence {
			prev.Delete(g.UpdatedAt)
		}
	}

	g.ID = repo.grades.nextPK()
	repo.grades.rows[g.ID] = &g
	return g, nil
}

func (repo *studentRepository) QueryGrades(studentID, term, sequence int) ([]student.Grade, error) {
	repo.grades.RLock()
	defer repo.grades.RUnlock()

	grades := make([]student.Grade, 0)
	for _, row := range repo.grades.rows {
		g := row.(*student.Grade)
		if !g.IsActive() || g.StudentID != studentID {
			continue
		}
		if term > 0 && g.Term != term {
			continue
		}
		if sequence > 0 && g.Sequence != sequence {
			continue
		}
		grades = append(grades, *g)
	}
	sort.Slice(grades, func(i, j int) bool { return grades[i].ID < grades[j].ID })
	return grades, nil
}

func (repo *studentRepository) DeleteGradesByID(ids ...int) error {
	repo.grades.Lock()
	defer repo.grades.Unlock()

	now := core.Now()
	for _, id := range ids {
		if row, ok := repo.grades.rows[id]; ok {
			row.(*student.Grade).Delete(now)
		}
	}
	return nil
}

func (repo *studentRepository) UpsertAttendance(a student.Attendance) (student.Attendance, error) {
	repo.attendances.Lock()
	defer repo.attendances.Unlock()

	for _, row := range repo.attendances.rows {
		prev := row.(*student.Attendance)
		if prev.IsActive() && prev.StudentID == a.StudentID && prev.Date.Equal(a.Date) {
			prev.Delete(a.UpdatedAt)
		}
	}

	a.ID = repo.attendances.nextPK()
	repo.attendances.rows[a.ID] = &a
	return a, nil
}

func (repo *studentRepository) QueryAttendance(studentID int, from, to time.Time) ([]student.Attendance, error) {
	repo.attendances.RLock()
	defer repo.attendances.RUnlock()

	records := make([]student.Attendance, 0)
	for _, row := range repo.attendances.rows {
		a := row.(*student.Attendance)
		if !a.IsActive() || a.StudentID != studentID {
			continue
		}
		if !from.IsZero() && a.Date.Before(from.UTC()) {
			continue
		}
		if !to.IsZero() && a.Date.After(to.UTC()) {
			continue
		}
		records = append(records, *a)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date.After(records[j].Date) })
	return records, nil
}

func (repo *studentRepository) DeleteAttendanceByID(ids ...int) error {
	repo.attendances.Lock()
	defer repo.attendances.Unlock()

	now := core.Now()
	for _, id := range ids {
		if row, ok := repo.attendances.rows[id]; ok {
			row.(*student.Attendance).Delete(now)
		}
	}
	return nil
}

func (repo *studentRepository) CreatePayment(p student.Payment) (student.Payment, error) {
	repo.payments.Lock()
	defer repo.payments.Unlock()

	p.ID = repo.payments.nextPK()
	repo.payments.rows[p.ID] = &p
	return p, nil
}

func (repo *studentRepository) QueryPayments(studentID int, status string) ([]student.Payment, error) {
	repo.payments.RLock()
	defer repo.payments.RUnlock()

	payments := make([]student.Payment, 0)
	for _, row := range repo.payments.rows {
		p := row.(*student.Payment)
		if !p.IsActive() {
			continue
		}
		if studentID > 0 && p.StudentID != studentID {
			continue
		}
		if status != "" && p.Status != status {
			continue
		}
		payments = append(payments, *p)
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].ID < payments[j].ID })
	return payments, nil
}

func (repo *studentRepository) QueryPaymentsByParent(parentID int, status string) ([]student.Payment, error) {
	children, err := repo.QueryStudentsByParent(parentID)
	if err != nil {
		return nil, err
	}

	payments := make([]student.Payment, 0)
	for _, child := range children {
		childPayments, err := repo.QueryPayments(child.ID, status)
		if err != nil {
			return nil, err
		}
		payments = append(payments, childPayments...)
	}
	return payments, nil
}

func (repo *studentRepository) GetPaymentByID(id int) (student.Payment, error) {
	repo.payments.RLock()
	defer repo.payments.RUnlock()

	if row, ok := repo.payments.rows[id]; ok {
		if p := row.(*student.Payment); p.IsActive() {
			return *p, nil
		}
	}
	return student.Payment{}, student.ErrPaymentNotFound
}

func (repo *studentRepository) UpdatePayment(p student.Payment) error {
	repo.payments.Lock()
	defer repo.payments.Unlock()

	row, ok := repo.payments.rows[p.ID]
	if !ok || !row.(*student.Payment).IsActive() {
		return student.ErrPaymentNotFound
	}
	repo.payments.rows[p.ID] = &p
	return nil
}
