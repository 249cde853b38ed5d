package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/copalsoft/copalschool/core"
	"github.com/copalsoft/copalschool/core/notification"
	"github.com/copalsoft/copalschool/core/school"
	"github.com/copalsoft/copalschool/core/student"
	"github.com/copalsoft/copalschool/core/user"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool

		Logger  core.Logger
		UserSvc user.Service
		SchSvc  school.Service
		StdSvc  student.Service
		NotSvc  notification.Service
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
		// Shutdown signals a fatal internal error; main selects on it.
		Shutdown() <-chan struct{}
	}

	server struct {
		opts     *Options
		app      *echo.Echo
		shutdown chan struct{}
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts:     opts,
		app:      echo.New(),
		shutdown: make(chan struct{}, 1),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerUserAPI(v1, jwt, s.opts.UserSvc)
	registerSchoolAPI(v1, jwt, s.opts.SchSvc, s.opts.UserSvc)
	registerStudentAPI(v1, jwt, s.opts.StdSvc, s.opts.UserSvc)
	registerNotificationAPI(v1, jwt, s.opts.NotSvc, s.opts.UserSvc)
	registerDashboardAPI(v1, jwt, &dashboardServices{
		userSvc: s.opts.UserSvc,
		schSvc:  s.opts.SchSvc,
		stdSvc:  s.opts.StdSvc,
		notSvc:  s.opts.NotSvc,
	})
}

func (s *server) Start() {
	s.app.Logger.Fatal(s.app.Start(s.opts.Address))
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Shutdown() <-chan struct{} { return s.shutdown }

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- struct{}{}:
	default:
	}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to CopalSchool API!")
}
