package sqlxrepos

import (
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/copalsoft/copalschool/core/notification"
)

type notificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *sqlx.DB) *notificationRepository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotification(n notification.Notification) (notification.Notification, error) {
	const q = `
		INSERT INTO notification (user_id, kind, subject, body, sent, sent_at, created_at, updated_at)
		VALUES (:user_id, :kind, :subject, :body, :sent, :sent_at, :created_at, :updated_at)
		RETURNING id`
	return n, namedInsert(repo.db, q, &n, &n.ID, "creating notification")
}

func (repo *notificationRepository) QueryNotifications(userID int) ([]notification.Notification, error) {
	items := make([]notification.Notification, 0)
	var err error
	if userID > 0 {
		err = repo.db.Select(&items,
			`SELECT * FROM notification WHERE user_id = $1 AND `+notDeleted+` ORDER BY created_at DESC`, userID)
	} else {
		err = repo.db.Select(&items,
			`SELECT * FROM notification WHERE `+notDeleted+` ORDER BY created_at DESC`)
	}
	return items, errors.Wrap(err, "querying notifications")
}

func (repo *notificationRepository) QueryRecentNotifications(limit int) ([]notification.Notification, error) {
	items := make([]notification.Notification, 0)
	err := repo.db.Select(&items,
		`SELECT * FROM notification WHERE `+notDeleted+` ORDER BY created_at DESC LIMIT $1`, limit)
	return items, errors.Wrap(err, "querying notifications")
}

func (repo *notificationRepository) GetNotificationByID(id int) (notification.Notification, error) {
	var n notification.Notification
	err := repo.db.Get(&n, `SELECT * FROM notification WHERE id = $1 AND `+notDeleted, id)
	if isNoRows(err) {
		return notification.Notification{}, notification.ErrNotFound
	}
	return n, errors.Wrap(err, "getting notification")
}

func (repo *notificationRepository) UpdateNotification(n notification.Notification) error {
	const q = `
		UPDATE notification
		SET sent = :sent, sent_at = :sent_at, updated_at = :updated_at
		WHERE id = :id AND ` + notDeleted
	res, err := repo.db.NamedExec(q, n)
	if err != nil {
		return errors.Wrap(err, "updating notification")
	}
	if count, _ := res.RowsAffected(); count == 0 {
		return notification.ErrNotFound
	}
	return nil
}

func (repo *notificationRepository) DeleteNotificationsByID(ids ...int) error {
	return softDelete(repo.db, "notification", ids, "deleting notifications")
}
