package dummydb

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/copalsoft/copalschool/core"
	"github.com/copalsoft/copalschool/core/user"
)

type userRepository struct {
	users *table
	codes *table
}

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{users: db.user, codes: db.resetCode}
}

// query returns the active users. Callers hold the table lock.
func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.users.rows))
	for _, row := range repo.users.rows {
		if usr := row.(*user.User); usr.IsActive() {
			users = append(users, *usr)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

func (repo *userRepository) CheckUniqueness(username, email string, excludedUsers ...user.User) error {
	repo.users.RLock()
	defer repo.users.RUnlock()

	excluded := make(map[int]bool, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded[usr.ID] = true
	}

	for _, usr := range repo.query() {
		if excluded[usr.ID] {
			continue
		}
		if strings.EqualFold(usr.Username, username) {
			return user.ErrUsernameExists
		}
		if strings.EqualFold(usr.Email, email) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(usr user.User) (user.User, error) {
	repo.users.Lock()
	defer repo.users.Unlock()

	usr.ID = repo.users.nextPK()
	repo.users.rows[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) QueryAllUsers() ([]user.User, error) {
	repo.users.RLock()
	defer repo.users.RUnlock()
	return repo.query(), nil
}

func (repo *userRepository) GetUserByID(id int) (user.User, error) {
	repo.users.RLock()
	defer repo.users.RUnlock()

	if row, ok := repo.users.rows[id]; ok {
		if usr := row.(*user.User); usr.IsActive() {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetAnyUserByID(id int) (user.User, error) {
	repo.users.RLock()
	defer repo.users.RUnlock()

	if row, ok := repo.users.rows[id]; ok {
		return *row.(*user.User), nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByUsername(username string) (user.User, error) {
	repo.users.RLock()
	defer repo.users.RUnlock()

	for _, usr := range repo.query() {
		if strings.EqualFold(usr.Username, username) {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(email string) (user.User, error) {
	repo.users.RLock()
	defer repo.users.RUnlock()

	for _, usr := range repo.query() {
		if strings.EqualFold(usr.Email, email) {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByUsernameOrEmail(username string) (user.User, error) {
	repo.users.RLock()
	defer repo.users.RUnlock()

	for _, usr := range repo.query() {
		if strings.EqualFold(usr.Username, username) || strings.EqualFold(usr.Email, username) {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) FilterUsers(filter user.QueryFilter, ordering ...core.DBOrdering) ([]user.User, error) {
	repo.users.RLock()
	defer repo.users.RUnlock()

	var users []user.User
	if filter.IsActive != nil && !*filter.IsActive {
		for _, row := range repo.users.rows {
			if usr := row.(*user.User); !usr.IsActive() {
				users = append(users, *usr)
			}
		}
	} else {
		users = repo.query()
	}

	if filter.Search != "" {
		var filtered []user.User
		needle := strings.ToLower(filter.Search)
		for _, u := range users {
			if strings.Contains(strings.ToLower(u.Username), needle) ||
				strings.Contains(strings.ToLower(u.Email), needle) ||
				strings.Contains(strings.ToLower(u.Name), needle) {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}
	if filter.Role != "" {
		var filtered []user.User
		for _, u := range users {
			if u.Role == filter.Role {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}
	if !filter.CreatedFrom.IsZero() {
		var filtered []user.User
		from := filter.CreatedFrom.UTC()
		for _, u := range users {
			if !u.CreatedAt.Before(from) {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}
	if !filter.CreatedTo.IsZero() {
		var filtered []user.User
		to := filter.CreatedTo.UTC()
		for _, u := range users {
			if !u.CreatedAt.After(to) {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}

	if users == nil {
		users = make([]user.User, 0)
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(usr user.User) (user.User, error) {
	repo.users.Lock()
	defer repo.users.Unlock()

	row, ok := repo.users.rows[usr.ID]
	if !ok || !row.(*user.User).IsActive() {
		return user.User{}, user.ErrNotFound
	}
	repo.users.rows[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(ids ...int) error {
	repo.users.Lock()
	defer repo.users.Unlock()

	now := core.Now()
	for _, id := range ids {
		if row, ok := repo.users.rows[id]; ok {
			row.(*user.User).Delete(now)
		}
	}
	return nil
}

func (repo *userRepository) CreateResetCode(rc user.ResetCode) (user.ResetCode, error) {
	repo.codes.Lock()
	defer repo.codes.Unlock()

	rc.ID = repo.codes.nextPK()
	repo.codes.rows[rc.ID] = &rc
	return rc, nil
}

func (repo *userRepository) GetResetCode(userID int, code uuid.UUID) (user.ResetCode, error) {
	repo.codes.RLock()
	defer repo.codes.RUnlock()

	for _, row := range repo.codes.rows {
		rc := row.(*user.ResetCode)
		if rc.UserID == userID && rc.Code == code && rc.IsActive() {
			return *rc, nil
		}
	}
	return user.ResetCode{}, user.ErrNotFound
}

func (repo *userRepository) ConsumeResetCodes(userID int) error {
	repo.codes.Lock()
	defer repo.codes.Unlock()

	now := core.Now()
	for _, row := range repo.codes.rows {
		if rc := row.(*user.ResetCode); rc.UserID == userID && rc.IsActive() {
			rc.Delete(now)
		}
	}
	return nil
}
