package dummydb

import (
	"sort"

	"github.com/copalsoft/copalschool/core"
	"github.com/copalsoft/copalschool/core/notification"
)

type notificationRepository struct {
	notifications *table
}

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{notifications: db.notification}
}

func (repo *notificationRepository) query(userID int) []notification.Notification {
	items := make([]notification.Notification, 0)
	for _, row := range repo.notifications.rows {
		n := row.(*notification.Notification)
		if !n.IsActive() {
			continue
		}
		if userID > 0 && n.UserID != userID {
			continue
		}
		items = append(items, *n)
	}
	// newest first
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items
}

func (repo *notificationRepository) CreateNotification(n notification.Notification) (notification.Notification, error) {
	repo.notifications.Lock()
	defer repo.notifications.Unlock()

	n.ID = repo.notifications.nextPK()
	repo.notifications.rows[n.ID] = &n
	return n, nil
}

func (repo *notificationRepository) QueryNotifications(userID int) ([]notification.Notification, error) {
	repo.notifications.RLock()
	defer repo.notifications.RUnlock()
	return repo.query(userID), nil
}

func (repo *notificationRepository) QueryRecentNotifications(limit int) ([]notification.Notification, error) {
	repo.notifications.RLock()
	defer repo.notifications.RUnlock()

	items := repo.query(0)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (repo *notificationRepository) GetNotificationByID(id int) (notification.Notification, error) {
	repo.notifications.RLock()
	defer repo.notifications.RUnlock()

	if row, ok := repo.notifications.rows[id]; ok {
		if n := row.(*notification.Notification); n.IsActive() {
			return *n, nil
		}
	}
	return notification.Notification{}, notification.ErrNotFound
}

func (repo *notificationRepository) UpdateNotification(n notification.Notification) error {
	repo.notifications.Lock()
	defer repo.notifications.Unlock()

	row, ok := repo.notifications.rows[n.ID]
	if !ok || !row.(*notification.Notification).IsActive() {
		return notification.ErrNotFound
	}
	repo.notifications.rows[n.ID] = &n
	return nil
}

func (repo *notificationRepository) DeleteNotificationsByID(ids ...int) error {
	repo.notifications.Lock()
	defer repo.notifications.Unlock()

	now := core.Now()
	for _, id := range ids {
		if row, ok := repo.notifications.rows[id]; ok {
			row.(*notification.Notification).Delete(now)
		}
	}
	return nil
}
