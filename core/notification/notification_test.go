package notification_test

import (
	"log"
	"net/mail"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copalsoft/copalschool/core"
	"github.com/copalsoft/copalschool/core/notification"
	"github.com/copalsoft/copalschool/core/user"
	emailsvc "github.com/copalsoft/copalschool/services/email"
	logsvc "github.com/copalsoft/copalschool/services/logger"
	smssvc "github.com/copalsoft/copalschool/services/sms"
	dummydb "github.com/copalsoft/copalschool/storage/database/dummy"
)

func setup(t *testing.T) (notification.Service, user.Service) {
	conf := &core.Config{
		Debug:                    true,
		TestMode:                 true,
		AppName:                  "CopalSchool",
		WorkDir:                  core.Getwd(),
		SecretKey:                []byte("secret"),
		DefaultFromEmail:         mail.Address{Name: "CopalSchool", Address: "noreply@localhost"},
		PasswordResetCodeTimeout: time.Hour,
	}
	user.Configure(conf)
	emailsvc.ClearSentMessages()
	smssvc.ClearSentSMS()

	db, err := dummydb.Open()
	require.NoError(t, err)

	logger := logsvc.NewStdLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags))
	mailSvc := emailsvc.NewConsoleService(conf)
	usrSvc := user.NewService(dummydb.NewUserRepository(db), mailSvc, logger)
	svc := notification.NewService(dummydb.NewNotificationRepository(db), usrSvc, mailSvc, smssvc.NewConsoleSender(true), logger)
	return svc, usrSvc
}

func createUser(t *testing.T, usrSvc user.Service, uname, phone string) user.User {
	usr, err := usrSvc.Create(user.NewUser{
		Name:            "U " + uname,
		Username:        uname,
		Email:           uname + "@test.cm",
		Phone:           phone,
		Role:            user.RoleParent,
		Password:        "v3rys3cr3t",
		PasswordConfirm: "v3rys3cr3t",
	})
	require.NoError(t, err)
	return usr
}

func Test_service_Notify_email(t *testing.T) {
	svc, usrSvc := setup(t)

	usr := createUser(t, usrSvc, "jdad", "")
	emailsvc.ClearSentMessages()

	n, err := svc.Notify(notification.NewNotification{
		UserID:  usr.ID,
		Kind:    notification.KindEmail,
		Subject: "PTA meeting",
		Body:    "The parent-teacher meeting moves to Friday 15:00.",
	})
	require.NoError(t, err)
	assert.True(t, n.Sent)
	assert.True(t, n.SentAt.Valid)

	require.Len(t, emailsvc.SentMessages, 1)
	assert.Equal(t, usr.Email, emailsvc.SentMessages[0].To[0].Address)

	// the record is queryable per user
	notifs, err := svc.QueryNotifications(usr.ID)
	require.NoError(t, err)
	require.Len(t, notifs, 1)
	assert.Equal(t, n.ID, notifs[0].ID)
}

func Test_service_Notify_sms(t *testing.T) {
	svc, usrSvc := setup(t)

	usr := createUser(t, usrSvc, "jdad", "+237 612345678")

	n, err := svc.Notify(notification.NewNotification{
		UserID: usr.ID,
		Kind:   notification.KindSMS,
		Body:   "School reopens Monday.",
	})
	require.NoError(t, err)
	assert.True(t, n.Sent)
	require.Len(t, smssvc.SentSMS[usr.Phone], 1)
	assert.Equal(t, "School reopens Monday.", smssvc.SentSMS[usr.Phone][0])
}

func Test_service_Notify_smsWithoutPhone(t *testing.T) {
	svc, usrSvc := setup(t)

	usr := createUser(t, usrSvc, "jdad", "")

	// delivery fails but the record survives with Sent false
	n, err := svc.Notify(notification.NewNotification{
		UserID: usr.ID,
		Kind:   notification.KindSMS,
		Body:   "School reopens Monday.",
	})
	require.NoError(t, err)
	assert.False(t, n.Sent)
	assert.False(t, n.SentAt.Valid)

	saved, err := svc.GetNotificationByID(n.ID)
	require.NoError(t, err)
	assert.False(t, saved.Sent)
}

func Test_service_Notify_unknownUser(t *testing.T) {
	svc, _ := setup(t)

	_, err := svc.Notify(notification.NewNotification{
		UserID: 999,
		Kind:   notification.KindSMS,
		Body:   "hi",
	})
	assert.Equal(t, user.ErrNotFound, err)
}

func Test_service_QueryRecentNotifications(t *testing.T) {
	svc, usrSvc := setup(t)

	usr := createUser(t, usrSvc, "jdad", "+237 612345678")
	for i := 0; i < 7; i++ {
		_, err := svc.Notify(notification.NewNotification{
			UserID: usr.ID,
			Kind:   notification.KindSMS,
			Body:   "ping",
		})
		require.NoError(t, err)
	}

	recent, err := svc.QueryRecentNotifications(5)
	require.NoError(t, err)
	assert.Len(t, recent, 5)
}
