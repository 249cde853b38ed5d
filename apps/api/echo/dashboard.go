package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/copalsoft/copalschool/core/notification"
	"github.com/copalsoft/copalschool/core/school"
	"github.com/copalsoft/copalschool/core/student"
	"github.com/copalsoft/copalschool/core/user"
)

const recentNotificationCount = 5

type dashboardServices struct {
	userSvc user.Service
	schSvc  school.Service
	stdSvc  student.Service
	notSvc  notification.Service
}

type dashboardApi struct {
	svcs *dashboardServices
}

// registerDashboardAPI mounts one landing endpoint per portal. Each is
// gated to exactly its role so a teacher cannot peek at the director
// numbers and vice versa.
func registerDashboardAPI(g *echo.Group, jwt echo.MiddlewareFunc, svcs *dashboardServices) {
	api := dashboardApi{svcs: svcs}

	dg := g.Group("/dashboard", jwt)
	dg.GET("/admin", api.admin, roleMiddleware(svcs.userSvc, user.RoleAdmin))
	dg.GET("/director", api.director, roleMiddleware(svcs.userSvc, user.RoleDirector))
	dg.GET("/teacher", api.teacher, roleMiddleware(svcs.userSvc, user.RoleTeacher))
	dg.GET("/parent", api.parent, roleMiddleware(svcs.userSvc, user.RoleParent))
}

type (
	StaffDashboard struct {
		Schools             int                         `json:"schools"`
		Classes             int                         `json:"classes"`
		Students            int                         `json:"students"`
		Teachers            int                         `json:"teachers"`
		Parents             int                         `json:"parents"`
		PendingPayments     int                         `json:"pending_payments"`
		RecentNotifications []notification.Notification `json:"recent_notifications"`
	}

	RosterEntry struct {
		Student student.Student `json:"student"`
		// index 0 holds term 1
		TermAverages [3]float64 `json:"term_averages"`
	}

	TeacherDashboard struct {
		Class    school.Class     `json:"class"`
		Subjects []school.Subject `json:"subjects"`
		Roster   []RosterEntry    `json:"roster"`
	}

	ParentChild struct {
		Student student.Student `json:"student"`
		Grades  []student.Grade `json:"grades"`
	}

	ParentDashboard struct {
		Children        []ParentChild     `json:"children"`
		PendingPayments []student.Payment `json:"pending_payments"`
	}
)

func (api *dashboardApi) admin(ctx echo.Context) error {
	return api.staffBoard(ctx)
}

func (api *dashboardApi) director(ctx echo.Context) error {
	return api.staffBoard(ctx)
}

// staffBoard assembles the counters shown on the admin and director
// landing pages. The school runs at a scale where counting in memory
// beats maintaining dedicated aggregate queries.
func (api *dashboardApi) staffBoard(ctx echo.Context) error {
	var board StaffDashboard

	schools, err := api.svcs.schSvc.QuerySchools()
	if err != nil {
		return errors.Wrap(err, "querying schools")
	}
	board.Schools = len(schools)

	classes, err := api.svcs.schSvc.QueryClasses(0)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	board.Classes = len(classes)

	students, err := api.svcs.stdSvc.QueryStudents(0)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	board.Students = len(students)

	teachers, err := api.svcs.userSvc.Filter(user.QueryFilter{Role: user.RoleTeacher})
	if err != nil {
		return errors.Wrap(err, "querying teachers")
	}
	board.Teachers = len(teachers)

	parents, err := api.svcs.userSvc.Filter(user.QueryFilter{Role: user.RoleParent})
	if err != nil {
		return errors.Wrap(err, "querying parents")
	}
	board.Parents = len(parents)

	pending, err := api.svcs.stdSvc.QueryPayments(0, student.PaymentUnpaid)
	if err != nil {
		return errors.Wrap(err, "querying pending payments")
	}
	board.PendingPayments = len(pending)

	board.RecentNotifications, err = api.svcs.notSvc.QueryRecentNotifications(recentNotificationCount)
	if err != nil {
		return errors.Wrap(err, "querying recent notifications")
	}
	if board.RecentNotifications == nil {
		board.RecentNotifications = []notification.Notification{}
	}

	return ctx.JSON(http.StatusOK, board)
}

func (api *dashboardApi) teacher(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.svcs.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	t, err := api.svcs.stdSvc.GetTeacherByUserID(ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "finding teacher record")
	}

	var board TeacherDashboard
	if !t.ClassID.Valid {
		// not assigned to a class yet
		board.Subjects = []school.Subject{}
		board.Roster = []RosterEntry{}
		return ctx.JSON(http.StatusOK, board)
	}

	classID := int(t.ClassID.Int)
	board.Class, err = api.svcs.schSvc.GetClassByID(classID)
	if err != nil {
		return errors.Wrap(err, "finding class by ID")
	}
	board.Subjects, err = api.svcs.schSvc.QuerySubjects(classID)
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	if board.Subjects == nil {
		board.Subjects = []school.Subject{}
	}
	roster, err := api.svcs.stdSvc.QueryStudents(classID)
	if err != nil {
		return errors.Wrap(err, "querying roster")
	}
	board.Roster = make([]RosterEntry, 0, len(roster))
	for _, st := range roster {
		entry := RosterEntry{Student: st}
		for term := 1; term <= 3; term++ {
			avg, err := api.svcs.stdSvc.TermAverage(st.ID, term)
			if err != nil {
				return errors.Wrap(err, "computing term average")
			}
			entry.TermAverages[term-1] = avg
		}
		board.Roster = append(board.Roster, entry)
	}

	return ctx.JSON(http.StatusOK, board)
}

func (api *dashboardApi) parent(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.svcs.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	children, err := api.svcs.stdSvc.ChildrenOf(ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "querying children")
	}

	board := ParentDashboard{Children: make([]ParentChild, 0, len(children))}
	for _, child := range children {
		grades, err := api.svcs.stdSvc.QueryGrades(child.ID, 0, 0)
		if err != nil {
			return errors.Wrap(err, "querying grades")
		}
		if grades == nil {
			grades = []student.Grade{}
		}
		board.Children = append(board.Children, ParentChild{Student: child, Grades: grades})
	}

	board.PendingPayments, err = api.svcs.stdSvc.PendingPayments(ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "querying pending payments")
	}
	if board.PendingPayments == nil {
		board.PendingPayments = []student.Payment{}
	}

	return ctx.JSON(http.StatusOK, board)
}
