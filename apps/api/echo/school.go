package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/copalsoft/copalschool/core/school"
	"github.com/copalsoft/copalschool/core/user"
)

type schoolApi struct {
	svc school.Service
}

func registerSchoolAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc school.Service, usrSvc user.Service) {
	api := schoolApi{svc: svc}

	admin := adminMiddleware(usrSvc)
	staff := roleMiddleware(usrSvc, user.RoleAdmin, user.RoleDirector, user.RoleTeacher)

	sg := g.Group("/schools", jwt)
	sg.POST("", api.create, admin)
	sg.GET("", api.query, staff)
	sg.GET("/:id", api.retrieve, staff)
	sg.PUT("/:id", api.update, admin)
	sg.DELETE("/:id", api.destroy, admin)
	sg.GET("/:id/classes", api.queryClasses, staff)

	cg := g.Group("/classes", jwt)
	cg.POST("", api.createClass, admin)
	cg.GET("", api.queryAllClasses, staff)
	cg.GET("/:id", api.retrieveClass, staff)
	cg.PUT("/:id", api.updateClass, admin)
	cg.DELETE("/:id", api.destroyClass, admin)
	cg.GET("/:id/subjects", api.querySubjects, staff)
	cg.GET("/:id/schedule", api.querySlots, staff)

	subg := g.Group("/subjects", jwt)
	subg.POST("", api.createSubject, admin)
	subg.GET("/:id", api.retrieveSubject, staff)
	subg.PUT("/:id", api.updateSubject, admin)
	subg.DELETE("/:id", api.destroySubject, admin)

	slg := g.Group("/schedule", jwt)
	slg.POST("", api.createSlot, admin)
	slg.DELETE("/:id", api.destroySlot, admin)
}

// School handlers

func (api *schoolApi) create(ctx echo.Context) error {
	var data school.NewSchool
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchool")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	sch, err := api.svc.Create(data)
	if err != nil {
		return errors.Wrap(err, "creating school")
	}
	return ctx.JSON(http.StatusCreated, sch)
}

func (api *schoolApi) query(ctx echo.Context) error {
	schools, err := api.svc.QuerySchools()
	if err != nil {
		return errors.Wrap(err, "querying schools")
	}
	if schools == nil {
		schools = []school.School{}
	}
	return ctx.JSON(http.StatusOK, schools)
}

func (api *schoolApi) retrieve(ctx echo.Context) error {
	sch, err := api.svc.GetSchoolByID(intParam(ctx, "id"))
	if err != nil {
		return errors.Wrap(err, "finding school by ID")
	}
	return ctx.JSON(http.StatusOK, sch)
}

func (api *schoolApi) update(ctx echo.Context) error {
	var data school.UpdateSchool
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSchool")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	sch, err := api.svc.Update(intParam(ctx, "id"), data)
	if err != nil {
		return errors.Wrap(err, "updating school")
	}
	return ctx.JSON(http.StatusOK, sch)
}

func (api *schoolApi) destroy(ctx echo.Context) error {
	if err := api.svc.DeleteSchoolsByID(intParam(ctx, "id")); err != nil {
		return errors.Wrap(err, "deleting school")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Class handlers

func (api *schoolApi) createClass(ctx echo.Context) error {
	var data school.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(api.svc); err != nil {
		return err
	}

	cls, err := api.svc.NewClass(data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *schoolApi) queryClasses(ctx echo.Context) error {
	if _, err := api.svc.GetSchoolByID(intParam(ctx, "id")); err != nil {
		return errors.Wrap(err, "finding school by ID")
	}
	return api.respondClasses(ctx, intParam(ctx, "id"))
}

func (api *schoolApi) queryAllClasses(ctx echo.Context) error {
	return api.respondClasses(ctx, intQuery(ctx, "school"))
}

func (api *schoolApi) respondClasses(ctx echo.Context, schoolID int) error {
	classes, err := api.svc.QueryClasses(schoolID)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []school.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *schoolApi) retrieveClass(ctx echo.Context) error {
	cls, err := api.svc.GetClassByID(intParam(ctx, "id"))
	if err != nil {
		return errors.Wrap(err, "finding class by ID")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *schoolApi) updateClass(ctx echo.Context) error {
	cls, err := api.svc.GetClassByID(intParam(ctx, "id"))
	if err != nil {
		return errors.Wrap(err, "finding class by ID")
	}

	var data school.UpdateClass
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClass")
	}
	if err = data.Validate(cls, api.svc); err != nil {
		return err
	}

	cls, err = api.svc.EditClass(cls.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *schoolApi) destroyClass(ctx echo.Context) error {
	if err := api.svc.DeleteClassesByID(intParam(ctx, "id")); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Subject handlers

func (api *schoolApi) createSubject(ctx echo.Context) error {
	var data school.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.svc); err != nil {
		return err
	}

	sub, err := api.svc.NewSubject(data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *schoolApi) querySubjects(ctx echo.Context) error {
	if _, err := api.svc.GetClassByID(intParam(ctx, "id")); err != nil {
		return errors.Wrap(err, "finding class by ID")
	}
	subjects, err := api.svc.QuerySubjects(intParam(ctx, "id"))
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	if subjects == nil {
		subjects = []school.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *schoolApi) retrieveSubject(ctx echo.Context) error {
	sub, err := api.svc.GetSubjectByID(intParam(ctx, "id"))
	if err != nil {
		return errors.Wrap(err, "finding subject by ID")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *schoolApi) updateSubject(ctx echo.Context) error {
	sub, err := api.svc.GetSubjectByID(intParam(ctx, "id"))
	if err != nil {
		return errors.Wrap(err, "finding subject by ID")
	}

	var data school.UpdateSubject
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSubject")
	}
	if err = data.Validate(sub, api.svc); err != nil {
		return err
	}

	sub, err = api.svc.EditSubject(sub.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating subject")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *schoolApi) destroySubject(ctx echo.Context) error {
	if err := api.svc.DeleteSubjectsByID(intParam(ctx, "id")); err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Schedule handlers

func (api *schoolApi) createSlot(ctx echo.Context) error {
	var data school.NewScheduleSlot
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewScheduleSlot")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	slot, err := api.svc.NewSlot(data)
	if err != nil {
		return errors.Wrap(err, "creating schedule slot")
	}
	return ctx.JSON(http.StatusCreated, slot)
}

func (api *schoolApi) querySlots(ctx echo.Context) error {
	if _, err := api.svc.GetClassByID(intParam(ctx, "id")); err != nil {
		return errors.Wrap(err, "finding class by ID")
	}
	slots, err := api.svc.QuerySlots(intParam(ctx, "id"))
	if err != nil {
		return errors.Wrap(err, "querying schedule slots")
	}
	if slots == nil {
		slots = []school.ScheduleSlot{}
	}
	return ctx.JSON(http.StatusOK, slots)
}

func (api *schoolApi) destroySlot(ctx echo.Context) error {
	if err := api.svc.DeleteSlotsByID(intParam(ctx, "id")); err != nil {
		return errors.Wrap(err, "deleting schedule slot")
	}
	return ctx.NoContent(http.StatusNoContent)
}
