package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/copalsoft/copalschool/apps/api/echo"
	"github.com/copalsoft/copalschool/core"
	"github.com/copalsoft/copalschool/core/notification"
	"github.com/copalsoft/copalschool/core/school"
	"github.com/copalsoft/copalschool/core/student"
	"github.com/copalsoft/copalschool/core/user"
	emailsvc "github.com/copalsoft/copalschool/services/email"
	logsvc "github.com/copalsoft/copalschool/services/logger"
	smssvc "github.com/copalsoft/copalschool/services/sms"
	"github.com/copalsoft/copalschool/storage/database"
	sqlxrepos "github.com/copalsoft/copalschool/storage/database/sqlx"
)

func main() {
	conf := core.LoadConfig(core.Getwd())

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	user.Configure(conf)
	echoapi.Configure(conf)

	db, err := setUpDB(conf)
	if err != nil {
		logger.Error("setting up database", err)
		os.Exit(1)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	smsSvc := smssvc.NewConsoleSender(conf.TestMode)

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc, logger)
	schSvc := school.NewService(sqlxrepos.NewSchoolRepository(db), logger)
	stdSvc := student.NewService(sqlxrepos.NewStudentRepository(db), usrSvc, logger)
	notSvc := notification.NewService(sqlxrepos.NewNotificationRepository(db), usrSvc, mailSvc, smsSvc, logger)

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	server := echoapi.NewServer(&echoapi.Options{
		Address: net.JoinHostPort(conf.Server.Host, conf.Server.Port),
		Logger:  logger,
		UserSvc: usrSvc,
		SchSvc:  schSvc,
		StdSvc:  stdSvc,
		NotSvc:  notSvc,
	})

	go server.Start()

	// block until a fatal internal error asks for shutdown
	<-server.Shutdown()
	logger.Info("Start shutdown...")

	// give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()

	if err = server.Stop(ctx); err != nil {
		logger.Error("could not stop server gracefully", err)
		os.Exit(1)
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
