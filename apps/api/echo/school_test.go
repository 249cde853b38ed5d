package echoapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copalsoft/copalschool/core/school"
)

func (app *testApp) createSchool(t *testing.T, name string) school.School {
	sch, err := app.schSvc.Create(school.NewSchool{
		Name:       name,
		Address:    "Rue 1.234, Yaounde",
		Kind:       school.KindPublic,
		ClassCount: 6,
	})
	require.NoError(t, err)
	return sch
}

func (app *testApp) createClass(t *testing.T, schoolID int, level, section string) school.Class {
	cls, err := app.schSvc.NewClass(school.NewClass{SchoolID: schoolID, Level: level, Section: section, Capacity: 40})
	require.NoError(t, err)
	return cls
}

func Test_schoolApi_crud(t *testing.T) {
	app := setupAPI(t)
	admin, _, teacher, parent := app.createAllRoles(t)

	newSchool := marchallObj(t, school.NewSchool{Name: "Les Pigeons", Address: "Yaounde", Kind: school.KindPrivate, ClassCount: 6})

	tests := []httpTest{
		{name: "create: anon", method: http.MethodPost, path: "/v1/schools", body: newSchool, wantCode: http.StatusUnauthorized},
		{name: "create: teacher", method: http.MethodPost, path: "/v1/schools", token: app.getToken(t, teacher), body: newSchool, wantCode: http.StatusForbidden},
		{name: "create: admin", method: http.MethodPost, path: "/v1/schools", token: app.getToken(t, admin), body: newSchool, wantCode: http.StatusCreated},
		{name: "create: bad kind", method: http.MethodPost, path: "/v1/schools", token: app.getToken(t, admin),
			body: marchallObj(t, school.NewSchool{Name: "X", Address: "Y", Kind: "charter"}), wantCode: http.StatusBadRequest},
		{name: "query: teacher can read", method: http.MethodGet, path: "/v1/schools", token: app.getToken(t, teacher), wantCode: http.StatusOK},
		{name: "query: parent cannot", method: http.MethodGet, path: "/v1/schools", token: app.getToken(t, parent), wantCode: http.StatusForbidden},
		{name: "retrieve: unknown is 404", method: http.MethodGet, path: "/v1/schools/999", token: app.getToken(t, admin), wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt))
		})
	}

	schools, err := app.schSvc.QuerySchools()
	require.NoError(t, err)
	require.Len(t, schools, 1)
	sch := schools[0]

	// update
	tt := httpTest{method: http.MethodPut, path: "/v1/schools/" + strconv.Itoa(sch.ID), token: app.getToken(t, admin),
		body: marchallObj(t, school.UpdateSchool{Name: "Les Pigeons Bleus"}), wantCode: http.StatusOK}
	rec := app.do(tt)
	checkCodeAndData(t, tt, rec)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sch))
	assert.Equal(t, "Les Pigeons Bleus", sch.Name)

	// delete then 404
	tt = httpTest{method: http.MethodDelete, path: "/v1/schools/" + strconv.Itoa(sch.ID), token: app.getToken(t, admin), wantCode: http.StatusNoContent}
	checkCodeAndData(t, tt, app.do(tt))
	tt = httpTest{method: http.MethodGet, path: "/v1/schools/" + strconv.Itoa(sch.ID), token: app.getToken(t, admin), wantCode: http.StatusNotFound}
	checkCodeAndData(t, tt, app.do(tt))
}

func Test_schoolApi_classes(t *testing.T) {
	app := setupAPI(t)
	admin, _, _, _ := app.createAllRoles(t)
	sch := app.createSchool(t, "Les Pigeons")

	newClass := func(level, section string) []byte {
		return marchallObj(t, school.NewClass{SchoolID: sch.ID, Level: level, Section: section, Capacity: 40})
	}

	tests := []httpTest{
		{name: "create", method: http.MethodPost, path: "/v1/classes", token: app.getToken(t, admin), body: newClass("CM2", "A"), wantCode: http.StatusCreated},
		{name: "duplicate level+section", method: http.MethodPost, path: "/v1/classes", token: app.getToken(t, admin), body: newClass("CM2", "A"), wantCode: http.StatusBadRequest},
		{name: "another section", method: http.MethodPost, path: "/v1/classes", token: app.getToken(t, admin), body: newClass("CM2", "B"), wantCode: http.StatusCreated},
		{name: "bad level", method: http.MethodPost, path: "/v1/classes", token: app.getToken(t, admin), body: newClass("6eme", ""), wantCode: http.StatusBadRequest},
		{name: "unknown school", method: http.MethodPost, path: "/v1/classes", token: app.getToken(t, admin),
			body: marchallObj(t, school.NewClass{SchoolID: 999, Level: "CP"}), wantCode: http.StatusNotFound},
		{name: "list by school", method: http.MethodGet, path: "/v1/schools/" + strconv.Itoa(sch.ID) + "/classes", token: app.getToken(t, admin), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt))
		})
	}

	classes, err := app.schSvc.QueryClasses(sch.ID)
	require.NoError(t, err)
	assert.Len(t, classes, 2)
}

func Test_schoolApi_subjectsAndSchedule(t *testing.T) {
	app := setupAPI(t)
	admin, _, teacher, _ := app.createAllRoles(t)
	sch := app.createSchool(t, "Les Pigeons")
	cls := app.createClass(t, sch.ID, "CE1", "")
	clsPath := "/v1/classes/" + strconv.Itoa(cls.ID)

	tests := []httpTest{
		{name: "subject: create", method: http.MethodPost, path: "/v1/subjects", token: app.getToken(t, admin),
			body: marchallObj(t, school.NewSubject{ClassID: cls.ID, Name: "Mathematics"}), wantCode: http.StatusCreated},
		{name: "subject: duplicate name", method: http.MethodPost, path: "/v1/subjects", token: app.getToken(t, admin),
			body: marchallObj(t, school.NewSubject{ClassID: cls.ID, Name: "Mathematics"}), wantCode: http.StatusBadRequest},
		{name: "subject: teacher cannot create", method: http.MethodPost, path: "/v1/subjects", token: app.getToken(t, teacher),
			body: marchallObj(t, school.NewSubject{ClassID: cls.ID, Name: "French"}), wantCode: http.StatusForbidden},
		{name: "subject: list", method: http.MethodGet, path: clsPath + "/subjects", token: app.getToken(t, teacher), wantCode: http.StatusOK},
		{name: "slot: create", method: http.MethodPost, path: "/v1/schedule", token: app.getToken(t, admin),
			body: marchallObj(t, school.NewScheduleSlot{ClassID: cls.ID, Weekday: "monday", Hour: "08:00", Room: "B12"}), wantCode: http.StatusCreated},
		{name: "slot: bad hour", method: http.MethodPost, path: "/v1/schedule", token: app.getToken(t, admin),
			body: marchallObj(t, school.NewScheduleSlot{ClassID: cls.ID, Weekday: "monday", Hour: "8am", Room: "B12"}), wantCode: http.StatusBadRequest},
		{name: "slot: bad weekday", method: http.MethodPost, path: "/v1/schedule", token: app.getToken(t, admin),
			body: marchallObj(t, school.NewScheduleSlot{ClassID: cls.ID, Weekday: "sunday", Hour: "08:00", Room: "B12"}), wantCode: http.StatusBadRequest},
		{name: "schedule: list", method: http.MethodGet, path: clsPath + "/schedule", token: app.getToken(t, teacher), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt))
		})
	}
}
