package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/copalsoft/copalschool/core/student"
	"github.com/copalsoft/copalschool/core/user"
)

type studentApi struct {
	svc    student.Service
	usrSvc user.Service
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc student.Service, usrSvc user.Service) {
	api := studentApi{svc: svc, usrSvc: usrSvc}

	admin := adminMiddleware(usrSvc)
	staff := roleMiddleware(usrSvc, user.RoleAdmin, user.RoleDirector, user.RoleTeacher)
	grader := roleMiddleware(usrSvc, user.RoleAdmin, user.RoleTeacher)
	parent := roleMiddleware(usrSvc, user.RoleParent)

	sg := g.Group("/students", jwt)
	sg.POST("", api.enroll, admin)
	sg.GET("", api.query, staff)
	sg.GET("/children", api.queryChildren, parent)
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id", api.update, admin)
	sg.DELETE("/:id", api.destroy, admin)
	sg.GET("/:id/grades", api.queryGrades)
	sg.GET("/:id/averages", api.retrieveAverage)
	sg.GET("/:id/attendance", api.queryAttendance)
	sg.GET("/:id/payments", api.queryPayments)

	tg := g.Group("/teachers", jwt)
	tg.POST("", api.assignTeacher, admin)
	tg.GET("", api.queryTeachers, staff)

	gg := g.Group("/grades", jwt)
	gg.POST("", api.recordGrade, grader)
	gg.DELETE("/:id", api.destroyGrade, admin)

	ag := g.Group("/attendance", jwt)
	ag.POST("", api.recordAttendance, grader)

	pg := g.Group("/payments", jwt)
	pg.POST("", api.registerPayment, admin)
	pg.GET("", api.queryAllPayments, staff)
	pg.GET("/pending", api.queryPendingPayments, parent)
	pg.PUT("/:id/settle", api.settlePayment, admin)
}

// Student handlers

func (api *studentApi) enroll(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.usrSvc); err != nil {
		return err
	}

	st, err := api.svc.Enroll(data)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, st)
}

func (api *studentApi) query(ctx echo.Context) error {
	students, err := api.svc.QueryStudents(intQuery(ctx, "class"))
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) queryChildren(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	children, err := api.svc.ChildrenOf(ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "querying children")
	}
	if children == nil {
		children = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, children)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	st, err := api.loadVisibleStudent(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *studentApi) update(ctx echo.Context) error {
	st, err := api.svc.GetStudentByID(intParam(ctx, "id"))
	if err != nil {
		return errors.Wrap(err, "finding student by ID")
	}

	var data student.UpdateStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	st, err = api.svc.Update(st.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	if err := api.svc.DeleteStudentsByID(intParam(ctx, "id")); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Teacher handlers

func (api *studentApi) assignTeacher(ctx echo.Context) error {
	var data student.NewTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeacher")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	t, err := api.svc.AssignTeacher(data)
	if err != nil {
		return errors.Wrap(err, "assigning teacher")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *studentApi) queryTeachers(ctx echo.Context) error {
	teachers, err := api.svc.QueryTeachers()
	if err != nil {
		return errors.Wrap(err, "querying teachers")
	}
	if teachers == nil {
		teachers = []student.Teacher{}
	}
	return ctx.JSON(http.StatusOK, teachers)
}

// Grade handlers

func (api *studentApi) recordGrade(ctx echo.Context) error {
	var data student.NewGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if ctxUsr.IsTeacher() {
		data.TeacherID = ctxUsr.ID
	}

	grade, err := api.svc.RecordGrade(data)
	if err != nil {
		return errors.Wrap(err, "recording grade")
	}
	return ctx.JSON(http.StatusCreated, grade)
}

func (api *studentApi) queryGrades(ctx echo.Context) error {
	st, err := api.loadVisibleStudent(ctx)
	if err != nil {
		return err
	}

	grades, err := api.svc.QueryGrades(st.ID, intQuery(ctx, "term"), intQuery(ctx, "sequence"))
	if err != nil {
		return errors.Wrap(err, "querying grades")
	}
	if grades == nil {
		grades = []student.Grade{}
	}
	return ctx.JSON(http.StatusOK, grades)
}

func (api *studentApi) retrieveAverage(ctx echo.Context) error {
	st, err := api.loadVisibleStudent(ctx)
	if err != nil {
		return err
	}

	term := intQuery(ctx, "term")
	sequence := intQuery(ctx, "sequence")

	var avg float64
	if sequence > 0 {
		avg, err = api.svc.SequenceAverage(st.ID, term, sequence)
	} else {
		avg, err = api.svc.TermAverage(st.ID, term)
	}
	if err != nil {
		return errors.Wrap(err, "computing average")
	}
	return ctx.JSON(http.StatusOK, AverageResponse{
		StudentID: st.ID,
		Term:      term,
		Sequence:  sequence,
		Average:   avg,
	})
}

func (api *studentApi) destroyGrade(ctx echo.Context) error {
	if err := api.svc.DeleteGradesByID(intParam(ctx, "id")); err != nil {
		return errors.Wrap(err, "deleting grade")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Attendance handlers

func (api *studentApi) recordAttendance(ctx echo.Context) error {
	var data student.NewAttendance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAttendance")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	att, err := api.svc.RecordAttendance(data)
	if err != nil {
		return errors.Wrap(err, "recording attendance")
	}
	return ctx.JSON(http.StatusCreated, att)
}

func (api *studentApi) queryAttendance(ctx echo.Context) error {
	st, err := api.loadVisibleStudent(ctx)
	if err != nil {
		return err
	}

	attendance, err := api.svc.QueryAttendance(st.ID, dateQuery(ctx, "from"), dateQuery(ctx, "to"))
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	if attendance == nil {
		attendance = []student.Attendance{}
	}
	return ctx.JSON(http.StatusOK, attendance)
}

// Payment handlers

func (api *studentApi) registerPayment(ctx echo.Context) error {
	var data student.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	p, err := api.svc.RegisterPayment(data)
	if err != nil {
		return errors.Wrap(err, "registering payment")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *studentApi) queryAllPayments(ctx echo.Context) error {
	payments, err := api.svc.QueryPayments(intQuery(ctx, "student"), ctx.QueryParam("status"))
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	if payments == nil {
		payments = []student.Payment{}
	}
	return ctx.JSON(http.StatusOK, payments)
}

func (api *studentApi) queryPayments(ctx echo.Context) error {
	st, err := api.loadVisibleStudent(ctx)
	if err != nil {
		return err
	}

	payments, err := api.svc.QueryPayments(st.ID, ctx.QueryParam("status"))
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	if payments == nil {
		payments = []student.Payment{}
	}
	return ctx.JSON(http.StatusOK, payments)
}

func (api *studentApi) queryPendingPayments(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	payments, err := api.svc.PendingPayments(ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "querying pending payments")
	}
	if payments == nil {
		payments = []student.Payment{}
	}
	return ctx.JSON(http.StatusOK, payments)
}

func (api *studentApi) settlePayment(ctx echo.Context) error {
	var data student.SettlePayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SettlePayment")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	p, err := api.svc.SettlePayment(intParam(ctx, "id"), data)
	if err != nil {
		return errors.Wrap(err, "settling payment")
	}
	return ctx.JSON(http.StatusOK, p)
}

// loadVisibleStudent fetches the student targeted by the `id` param and
// enforces visibility: staff see every student, a parent sees only their
// own children (anyone else gets a 404).
func (api *studentApi) loadVisibleStudent(ctx echo.Context) (student.Student, error) {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "getting context user")
	}

	st, err := api.svc.GetStudentByID(intParam(ctx, "id"))
	if err != nil {
		return student.Student{}, errors.Wrap(err, "finding student by ID")
	}

	if ctxUsr.IsParent() && st.ParentID != ctxUsr.ID {
		return student.Student{}, errHTTPNotFound
	}
	return st, nil
}

type AverageResponse struct {
	StudentID int     `json:"student_id"`
	Term      int     `json:"term"`
	Sequence  int     `json:"sequence"`
	Average   float64 `json:"average"`
}

func dateQuery(ctx echo.Context, name string) time.Time {
	t, err := time.Parse("2006-01-02", ctx.QueryParam(name))
	if err != nil {
		return time.Time{}
	}
	return t
}
