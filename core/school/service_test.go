package school_test

import (
	"log"
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copalsoft/copalschool/core"
	"github.com/copalsoft/copalschool/core/school"
	logsvc "github.com/copalsoft/copalschool/services/logger"
	dummydb "github.com/copalsoft/copalschool/storage/database/dummy"
)

func setup(t *testing.T) school.Service {
	db, err := dummydb.Open()
	require.NoError(t, err)
	logger := logsvc.NewStdLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags))
	return school.NewService(dummydb.NewSchoolRepository(db), logger)
}

func createSchool(t *testing.T, svc school.Service, name string) school.School {
	sch, err := svc.Create(school.NewSchool{
		Name:       name,
		Address:    "Rue 1.234, Yaounde",
		Kind:       school.KindPrivate,
		ClassCount: 6,
	})
	require.NoError(t, err)
	return sch
}

func createClass(t *testing.T, svc school.Service, schoolID int, level, section string) school.Class {
	nc := school.NewClass{SchoolID: schoolID, Level: level, Section: section, Capacity: 40}
	require.NoError(t, nc.Validate(svc))
	cls, err := svc.NewClass(nc)
	require.NoError(t, err)
	return cls
}

func Test_service_SchoolLifecycle(t *testing.T) {
	svc := setup(t)

	sch := createSchool(t, svc, "Les Pigeons")
	assert.True(t, sch.ID > 0)

	sch, err := svc.Update(sch.ID, school.UpdateSchool{Name: "Les Pigeons Bleus"})
	require.NoError(t, err)
	assert.Equal(t, "Les Pigeons Bleus", sch.Name)

	require.NoError(t, svc.DeleteSchoolsByID(sch.ID))
	_, err = svc.GetSchoolByID(sch.ID)
	assert.Equal(t, school.ErrNotFound, err)

	schools, err := svc.QuerySchools()
	require.NoError(t, err)
	assert.Empty(t, schools)
}

func Test_service_ClassUniqueness(t *testing.T) {
	svc := setup(t)

	sch := createSchool(t, svc, "Les Pigeons")
	cls := createClass(t, svc, sch.ID, "CM2", "A")
	assert.Equal(t, "CM2 A", cls.Label())

	// same level+section in the same school is rejected by validation
	dup := school.NewClass{SchoolID: sch.ID, Level: "CM2", Section: "A"}
	err := dup.Validate(svc)
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr))

	// a different section is fine
	createClass(t, svc, sch.ID, "CM2", "B")

	// so is the same class in another school
	other := createSchool(t, svc, "Saint Joseph")
	createClass(t, svc, other.ID, "CM2", "A")

	// updating onto an occupied slot is rejected
	cm2b, err := svc.QueryClasses(sch.ID)
	require.NoError(t, err)
	require.Len(t, cm2b, 2)
	uc := school.UpdateClass{Section: "A"}
	err = uc.Validate(cm2b[1], svc)
	require.True(t, errors.As(err, &vErr))

	// an update that keeps its own slot passes
	uc = school.UpdateClass{Capacity: 50}
	require.NoError(t, uc.Validate(cm2b[1], svc))

	// a deleted class frees its slot
	require.NoError(t, svc.DeleteClassesByID(cls.ID))
	createClass(t, svc, sch.ID, "CM2", "A")
}

func Test_service_NewClass_unknownSchool(t *testing.T) {
	svc := setup(t)

	_, err := svc.NewClass(school.NewClass{SchoolID: 999, Level: "CP"})
	assert.Equal(t, school.ErrNotFound, err)
}

func Test_service_Subjects(t *testing.T) {
	svc := setup(t)

	sch := createSchool(t, svc, "Les Pigeons")
	cls := createClass(t, svc, sch.ID, "CE1", "")

	ns := school.NewSubject{ClassID: cls.ID, Name: "Mathematics"}
	require.NoError(t, ns.Validate(svc))
	sub, err := svc.NewSubject(ns)
	require.NoError(t, err)

	// duplicate name in the same class
	dup := school.NewSubject{ClassID: cls.ID, Name: "Mathematics"}
	err = dup.Validate(svc)
	var vErr *core.ValidationError
	assert.True(t, errors.As(err, &vErr))

	sub, err = svc.EditSubject(sub.ID, school.UpdateSubject{Description: "numbers and shapes"})
	require.NoError(t, err)
	assert.Equal(t, "numbers and shapes", sub.Description)

	subjects, err := svc.QuerySubjects(cls.ID)
	require.NoError(t, err)
	assert.Len(t, subjects, 1)
}

func Test_service_Schedule(t *testing.T) {
	svc := setup(t)

	sch := createSchool(t, svc, "Les Pigeons")
	cls := createClass(t, svc, sch.ID, "CE1", "")

	mk := func(weekday, hour string) school.ScheduleSlot {
		ns := school.NewScheduleSlot{ClassID: cls.ID, Weekday: weekday, Hour: hour, Room: "B12"}
		require.NoError(t, ns.Validate())
		slot, err := svc.NewSlot(ns)
		require.NoError(t, err)
		return slot
	}

	mk("wednesday", "08:00")
	mk("monday", "10:30")
	mk("monday", "08:00")

	// the timetable comes back in week order
	slots, err := svc.QuerySlots(cls.ID)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, "monday", slots[0].Weekday)
	assert.Equal(t, "08:00", slots[0].Hour)
	assert.Equal(t, "monday", slots[1].Weekday)
	assert.Equal(t, "10:30", slots[1].Hour)
	assert.Equal(t, "wednesday", slots[2].Weekday)

	// Hour format is enforced
	bad := school.NewScheduleSlot{ClassID: cls.ID, Weekday: "monday", Hour: "8am", Room: "B12"}
	assert.Error(t, bad.Validate())

	_, err = svc.NewSlot(school.NewScheduleSlot{ClassID: 999, Weekday: "monday", Hour: "08:00", Room: "B12"})
	assert.Equal(t, school.ErrClassNotFound, err)
}
