package school

import (
	"github.com/pkg/errors"

	"github.com/copalsoft/copalschool/core"
)

var (
	ErrNotFound      = errors.New("school not found")
	ErrClassNotFound = errors.New("class not found")

	classExistsErr   = core.NewValidationError(nil, core.FieldError{Field: "level", Error: "a class with this level and section already exists in this school"})
	subjectExistsErr = core.NewValidationError(nil, core.FieldError{Field: "name", Error: "a subject with this name already exists in this class"})
)

type (
	Repository interface {
		CreateSchool(s School) (School, error)
		QuerySchools() ([]School, error)
		GetSchoolByID(id int) (School, error)
		UpdateSchool(s School) error
		DeleteSchoolsByID(ids ...int) error

		CreateClass(c Class) (Class, error)
		QueryClasses(schoolID int) ([]Class, error) // schoolID <= 0 lists all
		GetClassByID(id int) (Class, error)
		UpdateClass(c Class) error
		DeleteClassesByID(ids ...int) error
		CheckClassUniqueness(schoolID int, level, section string, excluded ...Class) error

		CreateSubject(s Subject) (Subject, error)
		QuerySubjects(classID int) ([]Subject, error)
		GetSubjectByID(id int) (Subject, error)
		UpdateSubject(s Subject) error
		DeleteSubjectsByID(ids ...int) error
		CheckSubjectUniqueness(classID int, name string, excluded ...Subject) error

		CreateSlot(s ScheduleSlot) (ScheduleSlot, error)
		QuerySlots(classID int) ([]ScheduleSlot, error)
		GetSlotByID(id int) (ScheduleSlot, error)
		DeleteSlotsByID(ids ...int) error
	}

	Service interface {
		Repository
		Create(ns NewSchool) (School, error)
		Update(id int, us UpdateSchool) (School, error)
		NewClass(nc NewClass) (Class, error)
		EditClass(id int, uc UpdateClass) (Class, error)
		NewSubject(ns NewSubject) (Subject, error)
		EditSubject(id int, us UpdateSubject) (Subject, error)
		NewSlot(ns NewScheduleSlot) (ScheduleSlot, error)
	}

	service struct {
		repo Repository
		log  core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, log core.Logger) *service {
	return &service{repo: repo, log: log}
}

func (svc service) CreateSchool(s School) (School, error)  { return svc.repo.CreateSchool(s) }
func (svc service) QuerySchools() ([]School, error)        { return svc.repo.QuerySchools() }
func (svc service) GetSchoolByID(id int) (School, error)   { return svc.repo.GetSchoolByID(id) }
func (svc service) UpdateSchool(s School) error            { return svc.repo.UpdateSchool(s) }
func (svc service) DeleteSchoolsByID(ids ...int) error     { return svc.repo.DeleteSchoolsByID(ids...) }
func (svc service) CreateClass(c Class) (Class, error)     { return svc.repo.CreateClass(c) }
func (svc service) QueryClasses(sID int) ([]Class, error)  { return svc.repo.QueryClasses(sID) }
func (svc service) GetClassByID(id int) (Class, error)     { return svc.repo.GetClassByID(id) }
func (svc service) UpdateClass(c Class) error              { return svc.repo.UpdateClass(c) }
func (svc service) DeleteClassesByID(ids ...int) error     { return svc.repo.DeleteClassesByID(ids...) }
func (svc service) CreateSubject(s Subject) (Subject, error) {
	return svc.repo.CreateSubject(s)
}
func (svc service) QuerySubjects(cID int) ([]Subject, error) { return svc.repo.QuerySubjects(cID) }
func (svc service) GetSubjectByID(id int) (Subject, error)   { return svc.repo.GetSubjectByID(id) }
func (svc service) UpdateSubject(s Subject) error            { return svc.repo.UpdateSubject(s) }
func (svc service) DeleteSubjectsByID(ids ...int) error      { return svc.repo.DeleteSubjectsByID(ids...) }
func (svc service) CreateSlot(s ScheduleSlot) (ScheduleSlot, error) {
	return svc.repo.CreateSlot(s)
}
func (svc service) QuerySlots(cID int) ([]ScheduleSlot, error) { return svc.repo.QuerySlots(cID) }
func (svc service) GetSlotByID(id int) (ScheduleSlot, error)   { return svc.repo.GetSlotByID(id) }
func (svc service) DeleteSlotsByID(ids ...int) error           { return svc.repo.DeleteSlotsByID(ids...) }

func (svc service) CheckClassUniqueness(schoolID int, level, section string, excluded ...Class) error {
	err := svc.repo.CheckClassUniqueness(schoolID, level, section, excluded...)
	if err != nil {
		return classExistsErr
	}
	return nil
}

func (svc service) CheckSubjectUniqueness(classID int, name string, excluded ...Subject) error {
	err := svc.repo.CheckSubjectUniqueness(classID, name, excluded...)
	if err != nil {
		return subjectExistsErr
	}
	return nil
}

func (svc service) Create(ns NewSchool) (School, error) {
	s := School{
		Name:       ns.Name,
		Address:    ns.Address,
		Kind:       ns.Kind,
		ClassCount: ns.ClassCount,
	}
	s.Touch(core.Now())
	return svc.repo.CreateSchool(s)
}

func (svc service) Update(id int, us UpdateSchool) (School, error) {
	s, err := svc.repo.GetSchoolByID(id)
	if err != nil {
		return School{}, err
	}
	if us.Name != "" {
		s.Name = us.Name
	}
	if us.Address != "" {
		s.Address = us.Address
	}
	if us.Kind != "" {
		s.Kind = us.Kind
	}
	if us.ClassCount > 0 {
		s.ClassCount = us.ClassCount
	}
	s.Touch(core.Now())
	if err = svc.repo.UpdateSchool(s); err != nil {
		return School{}, err
	}
	return s, nil
}

func (svc service) NewClass(nc NewClass) (Class, error) {
	if _, err := svc.repo.GetSchoolByID(nc.SchoolID); err != nil {
		return Class{}, err
	}
	c := Class{
		SchoolID: nc.SchoolID,
		Level:    nc.Level,
		Section:  nc.Section,
		Capacity: nc.Capacity,
	}
	c.Touch(core.Now())
	return svc.repo.CreateClass(c)
}

func (svc service) EditClass(id int, uc UpdateClass) (Class, error) {
	c, err := svc.repo.GetClassByID(id)
	if err != nil {
		return Class{}, err
	}
	if uc.Level != "" {
		c.Level = uc.Level
	}
	if uc.Section != "" {
		c.Section = uc.Section
	}
	if uc.Capacity > 0 {
		c.Capacity = uc.Capacity
	}
	c.Touch(core.Now())
	if err = svc.repo.UpdateClass(c); err != nil {
		return Class{}, err
	}
	return c, nil
}

func (svc service) NewSubject(ns NewSubject) (Subject, error) {
	if _, err := svc.repo.GetClassByID(ns.ClassID); err != nil {
		return Subject{}, err
	}
	s := Subject{
		ClassID:     ns.ClassID,
		Name:        ns.Name,
		Description: ns.Description,
	}
	s.Touch(core.Now())
	return svc.repo.CreateSubject(s)
}

func (svc service) EditSubject(id int, us UpdateSubject) (Subject, error) {
	s, err := svc.repo.GetSubjectByID(id)
	if err != nil {
		return Subject{}, err
	}
	if us.Name != "" {
		s.Name = us.Name
	}
	if us.Description != "" {
		s.Description = us.Description
	}
	s.Touch(core.Now())
	if err = svc.repo.UpdateSubject(s); err != nil {
		return Subject{}, err
	}
	return s, nil
}

func (svc service) NewSlot(ns NewScheduleSlot) (ScheduleSlot, error) {
	if _, err := svc.repo.GetClassByID(ns.ClassID); err != nil {
		return ScheduleSlot{}, err
	}
	s := ScheduleSlot{
		ClassID: ns.ClassID,
		Weekday: ns.Weekday,
		Hour:    ns.Hour,
		Room:    ns.Room,
	}
	s.Touch(core.Now())
	return svc.repo.CreateSlot(s)
}
