package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copalsoft/copalschool/core/notification"
	emailsvc "github.com/copalsoft/copalschool/services/email"
)

func Test_notificationApi(t *testing.T) {
	app := setupAPI(t)
	admin, director, teacher, parent := app.createAllRoles(t)
	emailsvc.ClearSentMessages()

	newNotif := marchallObj(t, notification.NewNotification{
		UserID:  parent.ID,
		Kind:    notification.KindEmail,
		Subject: "PTA meeting",
		Body:    "The parent-teacher meeting moves to Friday 15:00.",
	})

	tests := []httpTest{
		{name: "create: anon", method: http.MethodPost, path: "/v1/notifications", body: newNotif, wantCode: http.StatusUnauthorized},
		{name: "create: teacher cannot", method: http.MethodPost, path: "/v1/notifications", token: app.getToken(t, teacher), body: newNotif, wantCode: http.StatusForbidden},
		{name: "create: director", method: http.MethodPost, path: "/v1/notifications", token: app.getToken(t, director), body: newNotif, wantCode: http.StatusCreated},
		{name: "create: bad kind", method: http.MethodPost, path: "/v1/notifications", token: app.getToken(t, admin),
			body: marchallObj(t, notification.NewNotification{UserID: parent.ID, Kind: "pigeon", Body: "x"}), wantCode: http.StatusBadRequest},
		{name: "create: unknown user", method: http.MethodPost, path: "/v1/notifications", token: app.getToken(t, admin),
			body: marchallObj(t, notification.NewNotification{UserID: 999, Kind: notification.KindEmail, Subject: "x", Body: "x"}), wantCode: http.StatusNotFound},
		{name: "list: staff", method: http.MethodGet, path: "/v1/notifications", token: app.getToken(t, admin), wantCode: http.StatusOK},
		{name: "list: parent cannot", method: http.MethodGet, path: "/v1/notifications", token: app.getToken(t, parent), wantCode: http.StatusForbidden},
		{name: "mine: any role", method: http.MethodGet, path: "/v1/notifications/mine", token: app.getToken(t, parent), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt))
		})
	}

	// the director's notification was delivered to the parent's inbox
	require.Len(t, emailsvc.SentMessages, 1)
	assert.Equal(t, parent.Email, emailsvc.SentMessages[0].To[0].Address)

	notifs, err := app.notSvc.QueryNotifications(parent.ID)
	require.NoError(t, err)
	require.Len(t, notifs, 1)
	assert.True(t, notifs[0].Sent)
}
