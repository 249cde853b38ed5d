package dummydb

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/copalsoft/copalschool/core"
	"github.com/copalsoft/copalschool/core/school"
)

var errDuplicate = errors.New("duplicate row")

type schoolRepository struct {
	schools  *table
	classes  *table
	subjects *table
	slots    *table
}

func NewSchoolRepository(db *DB) *schoolRepository {
	return &schoolRepository{
		schools:  db.school,
		classes:  db.class,
		subjects: db.subject,
		slots:    db.slot,
	}
}

func (repo *schoolRepository) CreateSchool(s school.School) (school.School, error) {
	repo.schools.Lock()
	defer repo.schools.Unlock()

	s.ID = repo.schools.nextPK()
	repo.schools.rows[s.ID] = &s
	return s, nil
}

func (repo *schoolRepository) QuerySchools() ([]school.School, error) {
	repo.schools.RLock()
	defer repo.schools.RUnlock()

	schools := make([]school.School, 0, len(repo.schools.rows))
	for _, row := range repo.schools.rows {
		if s := row.(*school.School); s.IsActive() {
			schools = append(schools, *s)
		}
	}
	sort.Slice(schools, func(i, j int) bool { return schools[i].Name < schools[j].Name })
	return schools, nil
}

func (repo *schoolRepository) GetSchoolByID(id int) (school.School, error) {
	repo.schools.RLock()
	defer repo.schools.RUnlock()

	if row, ok := repo.schools.rows[id]; ok {
		if s := row.(*school.School); s.IsActive() {
			return *s, nil
		}
	}
	return school.School{}, school.ErrNotFound
}

func (repo *schoolRepository) UpdateSchool(s school.School) error {
	repo.schools.Lock()
	defer repo.schools.Unlock()

	row, ok := repo.schools.rows[s.ID]
	if !ok || !row.(*school.School).IsActive() {
		return school.ErrNotFound
	}
	repo.schools.rows[s.ID] = &s
	return nil
}

func (repo *schoolRepository) DeleteSchoolsByID(ids ...int) error {
	repo.schools.Lock()
	defer repo.schools.Unlock()

	now := core.Now()
	for _, id := range ids {
		if row, ok := repo.schools.rows[id]; ok {
			row.(*school.School).Delete(now)
		}
	}
	return nil
}

func (repo *schoolRepository) CreateClass(c school.Class) (school.Class, error) {
	repo.classes.Lock()
	defer repo.classes.Unlock()

	c.ID = repo.classes.nextPK()
	repo.classes.rows[c.ID] = &c
	return c, nil
}

func (repo *schoolRepository) QueryClasses(schoolID int) ([]school.Class, error) {
	repo.classes.RLock()
	defer repo.classes.RUnlock()

	classes := make([]school.Class, 0)
	for _, row := range repo.classes.rows {
		c := row.(*school.Class)
		if !c.IsActive() {
			continue
		}
		if schoolID > 0 && c.SchoolID != schoolID {
			continue
		}
		classes = append(classes, *c)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].ID < classes[j].ID })
	return classes, nil
}

func (repo *schoolRepository) GetClassByID(id int) (school.Class, error) {
	repo.classes.RLock()
	defer repo.classes.RUnlock()

	if row, ok := repo.classes.rows[id]; ok {
		if c := row.(*school.Class); c.IsActive() {
			return *c, nil
		}
	}
	return school.Class{}, school.ErrClassNotFound
}

func (repo *schoolRepository) UpdateClass(c school.Class) error {
	repo.classes.Lock()
	defer repo.classes.Unlock()

	row, ok := repo.classes.rows[c.ID]
	if !ok || !row.(*school.Class).IsActive() {
		return school.ErrClassNotFound
	}
	repo.classes.rows[c.ID] = &c
	return nil
}

func (repo *schoolRepository) DeleteClassesByID(ids ...int) error {
	repo.classes.Lock()
	defer repo.classes.Unlock()

	now := core.Now()
	for _, id := range ids {
		if row, ok := repo.classes.rows[id]; ok {
			row.(*school.Class).Delete(now)
		}
	}
	return nil
}

func (repo *schoolRepository) CheckClassUniqueness(schoolID int, level, section string, excluded ...school.Class) error {
	repo.classes.RLock()
	defer repo.classes.RUnlock()

	exclIDs := make(map[int]bool, len(excluded))
	for _, c := range excluded {
		exclIDs[c.ID] = true
	}

	for _, row := range repo.classes.rows {
		c := row.(*school.Class)
		if !c.IsActive() || exclIDs[c.ID] {
			continue
		}
		if c.SchoolID == schoolID && c.Level == level && c.Section == section {
			return errDuplicate
		}
	}
	return nil
}

func (repo *schoolRepository) CreateSubject(s school.Subject) (school.Subject, error) {
	repo.subjects.Lock()
	defer repo.subjects.Unlock()

	s.ID = repo.subjects.nextPK()
	repo.subjects.rows[s.ID] = &s
	return s, nil
}

func (repo *schoolRepository) QuerySubjects(classID int) ([]school.Subject, error) {
	repo.subjects.RLock()
	defer repo.subjects.RUnlock()

	subjects := make([]school.Subject, 0)
	for _, row := range repo.subjects.rows {
		if s := row.(*school.Subject); s.IsActive() && s.ClassID == classID {
			subjects = append(subjects, *s)
		}
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Name < subjects[j].Name })
	return subjects, nil
}

func (repo *schoolRepository) GetSubjectByID(id int) (school.Subject, error) {
	repo.subjects.RLock()
	defer repo.subjects.RUnlock()

	if row, ok := repo.subjects.rows[id]; ok {
		if s := row.(*school.Subject); s.IsActive() {
			return *s, nil
		}
	}
	return school.Subject{}, school.ErrNotFound
}

func (repo *schoolRepository) UpdateSubject(s school.Subject) error {
	repo.subjects.Lock()
	defer repo.subjects.Unlock()

	row, ok := repo.subjects.rows[s.ID]
	if !ok || !row.(*school.Subject).IsActive() {
		return school.ErrNotFound
	}
	repo.subjects.rows[s.ID] = &s
	return nil
}

func (repo *schoolRepository) DeleteSubjectsByID(ids ...int) error {
	repo.subjects.Lock()
	defer repo.subjects.Unlock()

	now := core.Now()
	for _, id := range ids {
		if row, ok := repo.subjects.rows[id]; ok {
			row.(*school.Subject).Delete(now)
		}
	}
	return nil
}

func (repo *schoolRepository) CheckSubjectUniqueness(classID int, name string, excluded ...school.Subject) error {
	repo.subjects.RLock()
	defer repo.subjects.RUnlock()

	exclIDs := make(map[int]bool, len(excluded))
	for _, s := range excluded {
		exclIDs[s.ID] = true
	}

	for _, row := range repo.subjects.rows {
		s := row.(*school.Subject)
		if !s.IsActive() || exclIDs[s.ID] {
			continue
		}
		if s.ClassID == classID && strings.EqualFold(s.Name, name) {
			return errDuplicate
		}
	}
	return nil
}

func (repo *schoolRepository) CreateSlot(s school.ScheduleSlot) (school.ScheduleSlot, error) {
	repo.slots.Lock()
	defer repo.slots.Unlock()

	s.ID = repo.slots.nextPK()
	repo.slots.rows[s.ID] = &s
	return s, nil
}

func (repo *schoolRepository) QuerySlots(classID int) ([]school.ScheduleSlot, error) {
	repo.slots.RLock()
	defer repo.slots.RUnlock()

	slots := make([]school.ScheduleSlot, 0)
	for _, row := range repo.slots.rows {
		if s := row.(*school.ScheduleSlot); s.IsActive() && s.ClassID == classID {
			slots = append(slots, *s)
		}
	}
	sort.Slice(slots, func(i, j int) bool {
		if d := weekdayIndex(slots[i].Weekday) - weekdayIndex(slots[j].Weekday); d != 0 {
			return d < 0
		}
		return slots[i].Hour < slots[j].Hour
	})
	return slots, nil
}

func (repo *schoolRepository) GetSlotByID(id int) (school.ScheduleSlot, error) {
	repo.slots.RLock()
	defer repo.slots.RUnlock()

	if row, ok := repo.slots.rows[id]; ok {
		if s := row.(*school.ScheduleSlot); s.IsActive() {
			return *s, nil
		}
	}
	return school.ScheduleSlot{}, school.ErrNotFound
}

func (repo *schoolRepository) DeleteSlotsByID(ids ...int) error {
	repo.slots.Lock()
	defer repo.slots.Unlock()

	now := core.Now()
	for _, id := range ids {
		if row, ok := repo.slots.rows[id]; ok {
			row.(*school.ScheduleSlot).Delete(now)
		}
	}
	return nil
}

func weekdayIndex(day string) int {
	for i, d := range school.Weekdays {
		if d == day {
			return i
		}
	}
	return len(school.Weekdays)
}
