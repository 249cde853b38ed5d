package sqlxrepos

import (
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/copalsoft/copalschool/core"
	"github.com/copalsoft/copalschool/core/school"
)

var errDuplicate = errors.New("duplicate row")

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *sqlx.DB) *schoolRepository {
	return &schoolRepository{db: db}
}

func (repo *schoolRepository) CreateSchool(s school.School) (school.School, error) {
	const q = `
		INSERT INTO school (name, address, kind, class_count, created_at, updated_at)
		VALUES (:name, :address, :kind, :class_count, :created_at, :updated_at)
		RETURNING id`
	return s, namedInsert(repo.db, q, &s, &s.ID, "creating school")
}

func (repo *schoolRepository) QuerySchools() ([]school.School, error) {
	schools := make([]school.School, 0)
	err := repo.db.Select(&schools, `SELECT * FROM school WHERE `+notDeleted+` ORDER BY name`)
	return schools, errors.Wrap(err, "querying schools")
}

func (repo *schoolRepository) GetSchoolByID(id int) (school.School, error) {
	var s school.School
	err := repo.db.Get(&s, `SELECT * FROM school WHERE id = $1 AND `+notDeleted, id)
	if isNoRows(err) {
		return school.School{}, school.ErrNotFound
	}
	return s, errors.Wrap(err, "getting school")
}

func (repo *schoolRepository) UpdateSchool(s school.School) error {
	const q = `
		UPDATE school
		SET name = :name, address = :address, kind = :kind, class_count = :class_count, updated_at = :updated_at
		WHERE id = :id AND ` + notDeleted
	res, err := repo.db.NamedExec(q, s)
	if err != nil {
		return errors.Wrap(err, "updating school")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return school.ErrNotFound
	}
	return nil
}

func (repo *schoolRepository) DeleteSchoolsByID(ids ...int) error {
	return softDelete(repo.db, "school", ids, "deleting schools")
}

func (repo *schoolRepository) CreateClass(c school.Class) (school.Class, error) {
	const q = `
		INSERT INTO class (school_id, level, section, capacity, created_at, updated_at)
		VALUES (:school_id, :level, :section, :capacity, :created_at, :updated_at)
		RETURNING id`
	return c, namedInsert(repo.db, q, &c, &c.ID, "creating class")
}

func (repo *schoolRepository) QueryClasses(schoolID int) ([]school.Class, error) {
	classes := make([]school.Class, 0)
	var err error
	if schoolID > 0 {
		err = repo.db.Select(&classes,
			`SELECT * FROM class WHERE school_id = $1 AND `+notDeleted+` ORDER BY level, section`, schoolID)
	} else {
		err = repo.db.Select(&classes, `SELECT * FROM class WHERE `+notDeleted+` ORDER BY level, section`)
	}
	return classes, errors.Wrap(err, "querying classes")
}

func (repo *schoolRepository) GetClassByID(id int) (school.Class, error) {
	var c school.Class
	err := repo.db.Get(&c, `SELECT * FROM class WHERE id = $1 AND `+notDeleted, id)
	if isNoRows(err) {
		return school.Class{}, school.ErrClassNotFound
	}
	return c, errors.Wrap(err, "getting class")
}

func (repo *schoolRepository) UpdateClass(c school.Class) error {
	const q = `
		UPDATE class
		SET level = :level, section = :section, capacity = :capacity, updated_at = :updated_at
		WHERE id = :id AND ` + notDeleted
	res, err := repo.db.NamedExec(q, c)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return school.ErrClassNotFound
	}
	return nil
}

func (repo *schoolRepository) DeleteClassesByID(ids ...int) error {
	return softDelete(repo.db, "class", ids, "deleting classes")
}

func (repo *schoolRepository) CheckClassUniqueness(schoolID int, level, section string, excluded ...school.Class) error {
	exclIDs := make([]int, 0, len(excluded))
	for _, c := range excluded {
		exclIDs = append(exclIDs, c.ID)
	}
	if len(exclIDs) == 0 {
		exclIDs = append(exclIDs, 0)
	}
	query, args, err := sqlx.In(
		`SELECT COUNT(*) FROM class
		 WHERE school_id = ? AND level = ? AND section = ? AND `+notDeleted+` AND id NOT IN (?)`,
		schoolID, level, section, exclIDs,
	)
	if err != nil {
		return errors.Wrap(err, "building uniqueness query")
	}
	var count int
	if err = repo.db.Get(&count, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking class uniqueness")
	}
	if count > 0 {
		return errDuplicate
	}
	return nil
}

func (repo *schoolRepository) CreateSubject(s school.Subject) (school.Subject, error) {
	const q = `
		INSERT INTO subject (class_id, name, description, created_at, updated_at)
		VALUES (:class_id, :name, :description, :created_at, :updated_at)
		RETURNING id`
	return s, namedInsert(repo.db, q, &s, &s.ID, "creating subject")
}

func (repo *schoolRepository) QuerySubjects(classID int) ([]school.Subject, error) {
	subjects := make([]school.Subject, 0)
	err := repo.db.Select(&subjects,
		`SELECT * FROM subject WHERE class_id = $1 AND `+notDeleted+` ORDER BY name`, classID)
	return subjects, errors.Wrap(err, "querying subjects")
}

func (repo *schoolRepository) GetSubjectByID(id int) (school.Subject, error) {
	var s school.Subject
	err := repo.db.Get(&s, `SELECT * FROM subject WHERE id = $1 AND `+notDeleted, id)
	if isNoRows(err) {
		return school.Subject{}, school.ErrNotFound
	}
	return s, errors.Wrap(err, "getting subject")
}

func (repo *schoolRepository) UpdateSubject(s school.Subject) error {
	const q = `
		UPDATE subject
		SET name = :name, description = :description, updated_at = :updated_at
		WHERE id = :id AND ` + notDeleted
	res, err := repo.db.NamedExec(q, s)
	if err != nil {
		return errors.Wrap(err, "updating subject")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return school.ErrNotFound
	}
	return nil
}

func (repo *schoolRepository) DeleteSubjectsByID(ids ...int) error {
	return softDelete(repo.db, "subject", ids, "deleting subjects")
}

func (repo *schoolRepository) CheckSubjectUniqueness(classID int, name string, excluded ...school.Subject) error {
	exclIDs := make([]int, 0, len(excluded))
	for _, s := range excluded {
		exclIDs = append(exclIDs, s.ID)
	}
	if len(exclIDs) == 0 {
		exclIDs = append(exclIDs, 0)
	}
	query, args, err := sqlx.In(
		`SELECT COUNT(*) FROM subject
		 WHERE class_id = ? AND LOWER(name) = LOWER(?) AND `+notDeleted+` AND id NOT IN (?)`,
		classID, name, exclIDs,
	)
	if err != nil {
		return errors.Wrap(err, "building uniqueness query")
	}
	var count int
	if err = repo.db.Get(&count, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking subject uniqueness")
	}
	if count > 0 {
		return errDuplicate
	}
	return nil
}

func (repo *schoolRepository) CreateSlot(s school.ScheduleSlot) (school.ScheduleSlot, error) {
	const q = `
		INSERT INTO schedule_slot (class_id, weekday, hour, room, created_at, updated_at)
		VALUES (:class_id, :weekday, :hour, :room, :created_at, :updated_at)
		RETURNING id`
	return s, namedInsert(repo.db, q, &s, &s.ID, "creating schedule slot")
}

func (repo *schoolRepository) QuerySlots(classID int) ([]school.ScheduleSlot, error) {
	slots := make([]school.ScheduleSlot, 0)
	err := repo.db.Select(&slots,
		`SELECT * FROM schedule_slot WHERE class_id = $1 AND `+notDeleted+`
		 ORDER BY array_position(ARRAY['monday','tuesday','wednesday','thursday','friday','saturday'], weekday), hour`,
		classID)
	return slots, errors.Wrap(err, "querying schedule slots")
}

func (repo *schoolRepository) GetSlotByID(id int) (school.ScheduleSlot, error) {
	var s school.ScheduleSlot
	err := repo.db.Get(&s, `SELECT * FROM schedule_slot WHERE id = $1 AND `+notDeleted, id)
	if isNoRows(err) {
		return school.ScheduleSlot{}, school.ErrNotFound
	}
	return s, errors.Wrap(err, "getting schedule slot")
}

func (repo *schoolRepository) DeleteSlotsByID(ids ...int) error {
	return softDelete(repo.db, "schedule_slot", ids, "deleting schedule slots")
}

// namedInsert runs an INSERT ... RETURNING id and stores the new key in dest.
func namedInsert(db *sqlx.DB, query string, arg interface{}, dest *int, msg string) error {
	rows, err := db.NamedQuery(query, arg)
	if err != nil {
		return errors.Wrap(err, msg)
	}
	defer func() { _ = rows.Close() }()
	if rows.Next() {
		if err = rows.Scan(dest); err != nil {
			return errors.Wrap(err, msg)
		}
	}
	return rows.Err()
}

func softDelete(db *sqlx.DB, table string, ids []int, msg string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(
		`UPDATE `+table+` SET deleted_at = ?, updated_at = ? WHERE id IN (?)`,
		core.Now(), core.Now(), ids,
	)
	if err != nil {
		return errors.Wrap(err, msg)
	}
	_, err = db.Exec(db.Rebind(query), args...)
	return errors.Wrap(err, msg)
}
