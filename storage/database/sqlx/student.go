package sqlxrepos

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/copalsoft/copalschool/core/student"
	"github.com/copalsoft/copalschool/core/user"
)

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) *studentRepository {
	return &studentRepository{db: db}
}

const insertStudentQuery = `
	INSERT INTO student (first_name, last_name, sex, birth_date, class_id, parent_id, created_at, updated_at)
	VALUES (:first_name, :last_name, :sex, :birth_date, :class_id, :parent_id, :created_at, :updated_at)
	RETURNING id`

func (repo *studentRepository) CreateStudent(st student.Student) (student.Student, error) {
	return st, namedInsert(repo.db, insertStudentQuery, &st, &st.ID, "creating student")
}

// EnrollStudent writes the student and the optional new parent account in one
// transaction. A failure on either insert rolls both back.
func (repo *studentRepository) EnrollStudent(st student.Student, parent *user.User) (student.Student, user.User, error) {
	tx, err := repo.db.Beginx()
	if err != nil {
		return student.Student{}, user.User{}, errors.Wrap(err, "starting enrollment")
	}
	defer func() { _ = tx.Rollback() }()

	var createdParent user.User
	if parent != nil {
		const q = `
			INSERT INTO "user" (name, username, email, phone, role, password_hash, last_login, created_at, updated_at)
			VALUES (:name, :username, :email, :phone, :role, :password_hash, :last_login, :created_at, :updated_at)
			RETURNING id`
		rows, err := tx.NamedQuery(q, parent)
		if err != nil {
			return student.Student{}, user.User{}, errors.Wrap(err, "creating parent account")
		}
		if rows.Next() {
			if err = rows.Scan(&parent.ID); err != nil {
				_ = rows.Close()
				return student.Student{}, user.User{}, errors.Wrap(err, "creating parent account")
			}
		}
		_ = rows.Close()
		createdParent = *parent
		st.ParentID = parent.ID
	}

	rows, err := tx.NamedQuery(insertStudentQuery, st)
	if err != nil {
		return student.Student{}, user.User{}, errors.Wrap(err, "creating student")
	}
	if rows.Next() {
		if err = rows.Scan(&st.ID); err != nil {
			_ = rows.Close()
			return student.Student{}, user.User{}, errors.Wrap(err, "creating student")
		}
	}
	_ = rows.Close()

	if err = tx.Commit(); err != nil {
		return student.Student{}, user.User{}, errors.Wrap(err, "committing enrollment")
	}
	return st, createdParent, nil
}

func (repo *studentRepository) QueryStudents(classID int) ([]student.Student, error) {
	students := make([]student.Student, 0)
	var err error
	if classID > 0 {
		err = repo.db.Select(&students,
			`SELECT * FROM student WHERE class_id = $1 AND `+notDeleted+` ORDER BY last_name, first_name`, classID)
	} else {
		err = repo.db.Select(&students,
			`SELECT * FROM student WHERE `+notDeleted+` ORDER BY last_name, first_name`)
	}
	return students, errors.Wrap(err, "querying students")
}

func (repo *studentRepository) QueryStudentsByParent(parentID int) ([]student.Student, error) {
	students := make([]student.Student, 0)
	err := repo.db.Select(&students,
		`SELECT * FROM student WHERE parent_id = $1 AND `+notDeleted+` ORDER BY last_name, first_name`, parentID)
	return students, errors.Wrap(err, "querying students")
}

func (repo *studentRepository) GetStudentByID(id int) (student.Student, error) {
	var st student.Student
	err := repo.db.Get(&st, `SELECT * FROM student WHERE id = $1 AND `+notDeleted, id)
	if isNoRows(err) {
		return student.Student{}, student.ErrNotFound
	}
	return st, errors.Wrap(err, "getting student")
}

func (repo *studentRepository) UpdateStudent(st student.Student) error {
	const q = `
		UPDATE student
		SET first_name = :first_name, last_name = :last_name, sex = :sex, birth_date = :birth_date,
		    class_id = :class_id, updated_at = :updated_at
		WHERE id = :id AND ` + notDeleted
	res, err := repo.db.NamedExec(q, st)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return student.ErrNotFound
	}
	return nil
}

func (repo *studentRepository) DeleteStudentsByID(ids ...int) error {
	return softDelete(repo.db, "student", ids, "deleting students")
}

// Teacher profiles

func (repo *studentRepository) CreateTeacher(t student.Teacher) (student.Teacher, error) {
	const q = `
		INSERT INTO teacher (user_id, class_id, salary, created_at, updated_at)
		VALUES (:user_id, :class_id, :salary, :created_at, :updated_at)
		RETURNING id`
	return t, namedInsert(repo.db, q, &t, &t.ID, "creating teacher")
}

func (repo *studentRepository) QueryTeachers() ([]student.Teacher, error) {
	teachers := make([]student.Teacher, 0)
	err := repo.db.Select(&teachers, `SELECT * FROM teacher WHERE `+notDeleted+` ORDER BY id`)
	return teachers, errors.Wrap(err, "querying teachers")
}

func (repo *studentRepository) GetTeacherByUserID(userID int) (student.Teacher, error) {
	var t student.Teacher
	err := repo.db.Get(&t, `SELECT * FROM teacher WHERE user_id = $1 AND `+notDeleted, userID)
	if isNoRows(err) {
		return student.Teacher{}, student.ErrTeacherNotFound
	}
	return t, errors.Wrap(err, "getting teacher")
}

func (repo *studentRepository) GetTeacherByClassID(classID int) (student.Teacher, error) {
	var t student.Teacher
	err := repo.db.Get(&t, `SELECT * FROM teacher WHERE class_id = $1 AND `+notDeleted, classID)
	if isNoRows(err) {
		return student.Teacher{}, student.ErrTeacherNotFound
	}
	return t, errors.Wrap(err, "getting teacher")
}

func (repo *studentRepository) UpdateTeacher(t student.Teacher) error {
	const q = `
		UPDATE teacher
		SET class_id = :class_id, salary = :salary, updated_at = :updated_at
		WHERE id = :id AND ` + notDeleted
	res, err := repo.db.NamedExec(q, t)
	if err != nil {
		return errors.Wrap(err, "updating teacher")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return student.ErrTeacherNotFound
	}
	return nil
}

func (repo *studentRepository) DeleteTeachersByID(ids ...int) error {
	return softDelete(repo.db, "teacher", ids, "deleting teachers")
}

// Grades

func (repo *studentRepository) UpsertGrade(g student.Grade) (student.Grade, error) {
	// the unique key only covers active rows; retire the previous score first
	tx, err := repo.db.Beginx()
	if err != nil {
		return student.Grade{}, errors.Wrap(err, "recording grade")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(
		`UPDATE grade SET deleted_at = $1, updated_at = $1
		 WHERE student_id = $2 AND subject_id = $3 AND term = $4 AND sequence = $5 AND `+notDeleted,
		g.UpdatedAt, g.StudentID, g.SubjectID, g.Term, g.Sequence)
	if err != nil {
		return student.Grade{}, errors.Wrap(err, "recording grade")
	}

	const q = `
		INSERT INTO grade (student_id, subject_id, term, sequence, score, teacher_id, created_at, updated_at)
		VALUES (:student_id, :subject_id, :term, :sequence, :score, :teacher_id, :created_at, :updated_at)
		RETURNING id`
	rows, err := tx.NamedQuery(q, g)
	if err != nil {
		return student.Grade{}, errors.Wrap(err, "recording grade")
	}
	if rows.Next() {
		if err = rows.Scan(&g.ID); err != nil {
			_ = rows.Close()
			return student.Grade{}, errors.Wrap(err, "recording grade")
		}
	}
	_ = rows.Close()

	if err = tx.Commit(); err != nil {
		return student.Grade{}, errors.Wrap(err, "recording grade")
	}
	return g, nil
}

func (repo *studentRepository) QueryGrades(studentID, term, sequence int) ([]student.Grade, error) {
	query := `SELECT * FROM grade WHERE student_id = $1 AND ` + notDeleted
	args := []interface{}{studentID}
	if term > 0 {
		args = append(args, term)
		query += ` AND term = $2`
	}
	if sequence > 0 {
		args = append(args, sequence)
		if term > 0 {
			query += ` AND sequence = $3`
		} else {
			query += ` AND sequence = $2`
		}
	}
	query += ` ORDER BY term, sequence, subject_id`

	grades := make([]student.Grade, 0)
	err := repo.db.Select(&grades, query, args...)
	return grades, errors.Wrap(err, "querying grades")
}

func (repo *studentRepository) DeleteGradesByID(ids ...int) error {
	return softDelete(repo.db, "grade", ids, "deleting grades")
}

// Attendance

func (repo *studentRepository) UpsertAttendance(a student.Attendance) (student.Attendance, error) {
	tx, err := repo.db.Beginx()
	if err != nil {
		return student.Attendance{}, errors.Wrap(err, "recording attendance")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(
		`UPDATE attendance SET deleted_at = $1, updated_at = $1
		 WHERE student_id = $2 AND date = $3 AND `+notDeleted,
		a.UpdatedAt, a.StudentID, a.Date)
	if err != nil {
		return student.Attendance{}, errors.Wrap(err, "recording attendance")
	}

	const q = `
		INSERT INTO attendance (student_id, date, present, remark, created_at, updated_at)
		VALUES (:student_id, :date, :present, :remark, :created_at, :updated_at)
		RETURNING id`
	rows, err := tx.NamedQuery(q, a)
	if err != nil {
		return student.Attendance{}, errors.Wrap(err, "recording attendance")
	}
	if rows.Next() {
		if err = rows.Scan(&a.ID); err != nil {
			_ = rows.Close()
			return student.Attendance{}, errors.Wrap(err, "recording attendance")
		}
	}
	_ = rows.Close()

	if err = tx.Commit(); err != nil {
		return student.Attendance{}, errors.Wrap(err, "recording attendance")
	}
	return a, nil
}

func (repo *studentRepository) QueryAttendance(studentID int, from, to time.Time) ([]student.Attendance, error) {
	query := `SELECT * FROM attendance WHERE student_id = $1 AND ` + notDeleted
	args := []interface{}{studentID}
	if !from.IsZero() {
		args = append(args, from.UTC())
		query += ` AND date >= $2`
	}
	if !to.IsZero() {
		args = append(args, to.UTC())
		if from.IsZero() {
			query += ` AND date <= $2`
		} else {
			query += ` AND date <= $3`
		}
	}
	query += ` ORDER BY date DESC`

	records := make([]student.Attendance, 0)
	err := repo.db.Select(&records, query, args...)
	return records, errors.Wrap(err, "querying attendance")
}

func (repo *studentRepository) DeleteAttendanceByID(ids ...int) error {
	return softDelete(repo.db, "attendance", ids, "deleting attendance")
}

// Payments

func (repo *studentRepository) CreatePayment(p student.Payment) (student.Payment, error) {
	const q = `
		INSERT INTO payment (student_id, amount, reason, status, method, paid_at, created_at, updated_at)
		VALUES (:student_id, :amount, :reason, :status, :method, :paid_at, :created_at, :updated_at)
		RETURNING id`
	return p, namedInsert(repo.db, q, &p, &p.ID, "creating payment")
}

func (repo *studentRepository) QueryPayments(studentID int, status string) ([]student.Payment, error) {
	query := `SELECT * FROM payment WHERE ` + notDeleted
	args := make([]interface{}, 0, 2)
	if studentID > 0 {
		args = append(args, studentID)
		query += ` AND student_id = $1`
	}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	query += ` ORDER BY created_at DESC`

	payments := make([]student.Payment, 0)
	err := repo.db.Select(&payments, query, args...)
	return payments, errors.Wrap(err, "querying payments")
}

func (repo *studentRepository) QueryPaymentsByParent(parentID int, status string) ([]student.Payment, error) {
	query := `
		SELECT p.* FROM payment p
		JOIN student s ON s.id = p.student_id AND s.deleted_at IS NULL
		WHERE s.parent_id = $1 AND p.deleted_at IS NULL`
	args := []interface{}{parentID}
	if status != "" {
		args = append(args, status)
		query += ` AND p.status = $2`
	}
	query += ` ORDER BY p.created_at DESC`

	payments := make([]student.Payment, 0)
	err := repo.db.Select(&payments, query, args...)
	return payments, errors.Wrap(err, "querying payments")
}

func (repo *studentRepository) GetPaymentByID(id int) (student.Payment, error) {
	var p student.Payment
	err := repo.db.Get(&p, `SELECT * FROM payment WHERE id = $1 AND `+notDeleted, id)
	if isNoRows(err) {
		return student.Payment{}, student.ErrPaymentNotFound
	}
	return p, errors.Wrap(err, "getting payment")
}

func (repo *studentRepository) UpdatePayment(p student.Payment) error {
	const q = `
		UPDATE payment
		SET amount = :amount, reason = :reason, status = :status, method = :method,
		    paid_at = :paid_at, updated_at = :updated_at
		WHERE id = :id AND ` + notDeleted
	res, err := repo.db.NamedExec(q, p)
	if err != nil {
		return errors.Wrap(err, "updating payment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return student.ErrPaymentNotFound
	}
	return nil
}
