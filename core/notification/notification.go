package notification

import (
	"net/mail"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/copalsoft/copalschool/core"
	"github.com/copalsoft/copalschool/core/user"
)

// Notification kinds
const (
	KindEmail = "email"
	KindSMS   = "sms"
)

var ErrNotFound = errors.New("notification not found")

// Notification is a message recorded for a user. The row is written before
// delivery is attempted; Sent tracks whether delivery worked.
type Notification struct {
	core.Lifecycle
	UserID  int       `db:"user_id" json:"user_id"`
	Kind    string    `db:"kind" json:"kind"`
	Subject string    `db:"subject" json:"subject"`
	Body    string    `db:"body" json:"body"`
	Sent    bool      `db:"sent" json:"sent"`
	SentAt  null.Time `db:"sent_at" json:"sent_at"`
}

type NewNotification struct {
	UserID  int    `json:"user_id" validate:"required"`
	Kind    string `json:"kind" validate:"required,oneof=email sms"`
	Subject string `json:"subject" validate:"required_if=Kind email"`
	Body    string `json:"body" validate:"required"`
}

func (nn *NewNotification) Validate() error {
	nn.Kind = core.CleanString(nn.Kind, true /* lower */)
	nn.Subject = core.CleanString(nn.Subject)
	return core.Validate.Struct(nn)
}

type (
	// SMSSender delivers a text message to a phone number.
	SMSSender interface {
		SendSMS(phone, body string) error
	}

	Repository interface {
		CreateNotification(n Notification) (Notification, error)
		QueryNotifications(userID int) ([]Notification, error) // userID <= 0 lists all
		QueryRecentNotifications(limit int) ([]Notification, error)
		GetNotificationByID(id int) (Notification, error)
		UpdateNotification(n Notification) error
		DeleteNotificationsByID(ids ...int) error
	}

	Service interface {
		Repository
		// Notify records the notification then attempts delivery. Delivery
		// failure is logged, not returned; the record stays with Sent false.
		Notify(nn NewNotification) (Notification, error)
	}

	service struct {
		repo    Repository
		usrSvc  user.Service
		mailSvc core.EmailService
		smsSvc  SMSSender
		log     core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, usrSvc user.Service, mailSvc core.EmailService, smsSvc SMSSender, log core.Logger) *service {
	return &service{
		repo:    repo,
		usrSvc:  usrSvc,
		mailSvc: mailSvc,
		smsSvc:  smsSvc,
		log:     log,
	}
}

func (svc service) CreateNotification(n Notification) (Notification, error) {
	return svc.repo.CreateNotification(n)
}
func (svc service) QueryNotifications(userID int) ([]Notification, error) {
	return svc.repo.QueryNotifications(userID)
}
func (svc service) QueryRecentNotifications(limit int) ([]Notification, error) {
	return svc.repo.QueryRecentNotifications(limit)
}
func (svc service) GetNotificationByID(id int) (Notification, error) {
	return svc.repo.GetNotificationByID(id)
}
func (svc service) UpdateNotification(n Notification) error {
	return svc.repo.UpdateNotification(n)
}
func (svc service) DeleteNotificationsByID(ids ...int) error {
	return svc.repo.DeleteNotificationsByID(ids...)
}

func (svc service) Notify(nn NewNotification) (Notification, error) {
	usr, err := svc.usrSvc.GetByID(nn.UserID)
	if err != nil {
		return Notification{}, err
	}

	n := Notification{
		UserID:  nn.UserID,
		Kind:    nn.Kind,
		Subject: nn.Subject,
		Body:    nn.Body,
	}
	n.Touch(core.Now())
	n, err = svc.repo.CreateNotification(n)
	if err != nil {
		return Notification{}, err
	}

	if err = svc.deliver(usr, n); err != nil {
		svc.log.Warn("notification delivery failed", "id", n.ID, "kind", n.Kind, "err", err)
		return n, nil
	}

	n.Sent = true
	n.SentAt = null.TimeFrom(core.Now())
	if err = svc.repo.UpdateNotification(n); err != nil {
		return Notification{}, err
	}
	return n, nil
}

func (svc service) deliver(usr user.User, n Notification) error {
	switch n.Kind {
	case KindSMS:
		if usr.Phone == "" {
			return errors.New("user has no phone number")
		}
		return svc.smsSvc.SendSMS(usr.Phone, n.Body)
	default:
		msg := &core.EmailMessage{
			To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
			Subject: n.Subject,
			BodyStr: n.Body,
		}
		svc.mailSvc.SendMessages(msg)
		return nil
	}
}
