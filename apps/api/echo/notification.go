package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/copalsoft/copalschool/core/notification"
	"github.com/copalsoft/copalschool/core/user"
)

type notificationApi struct {
	svc    notification.Service
	usrSvc user.Service
}

func registerNotificationAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc notification.Service, usrSvc user.Service) {
	api := notificationApi{svc: svc, usrSvc: usrSvc}

	staff := roleMiddleware(usrSvc, user.RoleAdmin, user.RoleDirector)

	ng := g.Group("/notifications", jwt)
	ng.POST("", api.create, staff)
	ng.GET("", api.query, staff)
	ng.GET("/mine", api.queryMine)
	ng.GET("/:id", api.retrieve, staff)
	ng.DELETE("/:id", api.destroy, staff)
}

func (api *notificationApi) create(ctx echo.Context) error {
	var data notification.NewNotification
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewNotification")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	n, err := api.svc.Notify(data)
	if err != nil {
		return errors.Wrap(err, "sending notification")
	}
	return ctx.JSON(http.StatusCreated, n)
}

func (api *notificationApi) query(ctx echo.Context) error {
	notifs, err := api.svc.QueryNotifications(intQuery(ctx, "user"))
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	if notifs == nil {
		notifs = []notification.Notification{}
	}
	return ctx.JSON(http.StatusOK, notifs)
}

func (api *notificationApi) queryMine(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	notifs, err := api.svc.QueryNotifications(ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	if notifs == nil {
		notifs = []notification.Notification{}
	}
	return ctx.JSON(http.StatusOK, notifs)
}

func (api *notificationApi) retrieve(ctx echo.Context) error {
	n, err := api.svc.GetNotificationByID(intParam(ctx, "id"))
	if err != nil {
		return errors.Wrap(err, "finding notification by ID")
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *notificationApi) destroy(ctx echo.Context) error {
	if err := api.svc.DeleteNotificationsByID(intParam(ctx, "id")); err != nil {
		return errors.Wrap(err, "deleting notification")
	}
	return ctx.NoContent(http.StatusNoContent)
}
