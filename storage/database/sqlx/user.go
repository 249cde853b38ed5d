package sqlxrepos

import (
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/copalsoft/copalschool/core"
	"github.com/copalsoft/copalschool/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUniqueness(username, email string, excludedUsers ...user.User) error {
	exclIDs := make([]int, 0, len(excludedUsers))
	for _, usr := range excludedUsers {
		exclIDs = append(exclIDs, usr.ID)
	}
	if len(exclIDs) == 0 {
		exclIDs = append(exclIDs, 0)
	}

	check := func(field, value string, onDup error) error {
		query, args, err := sqlx.In(
			`SELECT COUNT(*) FROM "user" WHERE LOWER(`+field+`) = LOWER(?) AND `+notDeleted+` AND id NOT IN (?)`,
			value, exclIDs,
		)
		if err != nil {
			return errors.Wrap(err, "building uniqueness query")
		}
		var count int
		if err = repo.db.Get(&count, repo.db.Rebind(query), args...); err != nil {
			return errors.Wrap(err, "checking uniqueness")
		}
		if count > 0 {
			return onDup
		}
		return nil
	}

	if err := check("username", username, user.ErrUsernameExists); err != nil {
		return err
	}
	return check("email", email, user.ErrEmailExists)
}

func (repo *userRepository) CreateUser(usr user.User) (user.User, error) {
	const q = `
		INSERT INTO "user" (name, username, email, phone, role, password_hash, last_login, created_at, updated_at)
		VALUES (:name, :username, :email, :phone, :role, :password_hash, :last_login, :created_at, :updated_at)
		RETURNING id`
	rows, err := repo.db.NamedQuery(q, usr)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrUsernameExists
		}
		return user.User{}, errors.Wrap(err, "creating user")
	}
	defer func() { _ = rows.Close() }()
	if rows.Next() {
		if err = rows.Scan(&usr.ID); err != nil {
			return user.User{}, errors.Wrap(err, "creating user")
		}
	}
	return usr, rows.Err()
}

func (repo *userRepository) QueryAllUsers() ([]user.User, error) {
	users := make([]user.User, 0)
	err := repo.db.Select(&users, `SELECT * FROM "user" WHERE `+notDeleted+` ORDER BY created_at DESC`)
	return users, errors.Wrap(err, "querying users")
}

func (repo *userRepository) GetUserByID(id int) (user.User, error) {
	var usr user.User
	err := repo.db.Get(&usr, `SELECT * FROM "user" WHERE id = $1 AND `+notDeleted, id)
	if isNoRows(err) {
		return user.User{}, user.ErrNotFound
	}
	return usr, errors.Wrap(err, "getting user")
}

func (repo *userRepository) GetAnyUserByID(id int) (user.User, error) {
	var usr user.User
	err := repo.db.Get(&usr, `SELECT * FROM "user" WHERE id = $1`, id)
	if isNoRows(err) {
		return user.User{}, user.ErrNotFound
	}
	return usr, errors.Wrap(err, "getting user")
}

func (repo *userRepository) GetUserByUsername(username string) (user.User, error) {
	var usr user.User
	err := repo.db.Get(&usr, `SELECT * FROM "user" WHERE LOWER(username) = LOWER($1) AND `+notDeleted, username)
	if isNoRows(err) {
		return user.User{}, user.ErrNotFound
	}
	return usr, errors.Wrap(err, "getting user")
}

func (repo *userRepository) GetUserByEmail(email string) (user.User, error) {
	var usr user.User
	err := repo.db.Get(&usr, `SELECT * FROM "user" WHERE LOWER(email) = LOWER($1) AND `+notDeleted, email)
	if isNoRows(err) {
		return user.User{}, user.ErrNotFound
	}
	return usr, errors.Wrap(err, "getting user")
}

func (repo *userRepository) GetUserByUsernameOrEmail(username string) (user.User, error) {
	var usr user.User
	err := repo.db.Get(&usr,
		`SELECT * FROM "user" WHERE (LOWER(username) = LOWER($1) OR LOWER(email) = LOWER($1)) AND `+notDeleted,
		username)
	if isNoRows(err) {
		return user.User{}, user.ErrNotFound
	}
	return usr, errors.Wrap(err, "getting user")
}

func (repo *userRepository) FilterUsers(filter user.QueryFilter, ordering ...core.DBOrdering) ([]user.User, error) {
	where := []string{notDeleted}
	args := make(map[string]interface{})

	if filter.Search != "" {
		where = append(where, `(name ILIKE :search OR username ILIKE :search OR email ILIKE :search)`)
		args["search"] = "%" + filter.Search + "%"
	}
	if filter.Role != "" {
		where = append(where, `role = :role`)
		args["role"] = filter.Role
	}
	if filter.IsActive != nil && !*filter.IsActive {
		// caller explicitly wants the deleted rows
		where[0] = "deleted_at IS NOT NULL"
	}
	if !filter.CreatedFrom.IsZero() {
		where = append(where, `created_at >= :created_from`)
		args["created_from"] = filter.CreatedFrom.UTC()
	}
	if !filter.CreatedTo.IsZero() {
		where = append(where, `created_at <= :created_to`)
		args["created_to"] = filter.CreatedTo.UTC()
	}

	orderBy := "created_at DESC"
	if len(ordering) > 0 {
		clauses := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			clauses = append(clauses, ord.String())
		}
		orderBy = strings.Join(clauses, ", ")
	}

	query := `SELECT * FROM "user" WHERE ` + strings.Join(where, " AND ") + ` ORDER BY ` + orderBy
	rows, err := repo.db.NamedQuery(query, args)
	if err != nil {
		return nil, errors.Wrap(err, "filtering users")
	}
	defer func() { _ = rows.Close() }()

	users := make([]user.User, 0)
	for rows.Next() {
		var usr user.User
		if err = rows.StructScan(&usr); err != nil {
			return nil, errors.Wrap(err, "filtering users")
		}
		users = append(users, usr)
	}
	return users, rows.Err()
}

func (repo *userRepository) UpdateUser(usr user.User) (user.User, error) {
	const q = `
		UPDATE "user"
		SET name = :name, username = :username, email = :email, phone = :phone, role = :role,
		    password_hash = :password_hash, last_login = :last_login, updated_at = :updated_at
		WHERE id = :id AND ` + notDeleted
	res, err := repo.db.NamedExec(q, usr)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrUsernameExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(ids ...int) error {
	return softDelete(repo.db, `"user"`, ids, "deleting users")
}

// Password reset codes

func (repo *userRepository) CreateResetCode(rc user.ResetCode) (user.ResetCode, error) {
	const q = `
		INSERT INTO password_reset_code (user_id, code, expires_at, created_at, updated_at)
		VALUES (:user_id, :code, :expires_at, :created_at, :updated_at)
		RETURNING id`
	rows, err := repo.db.NamedQuery(q, rc)
	if err != nil {
		return user.ResetCode{}, errors.Wrap(err, "creating reset code")
	}
	defer func() { _ = rows.Close() }()
	if rows.Next() {
		if err = rows.Scan(&rc.ID); err != nil {
			return user.ResetCode{}, errors.Wrap(err, "creating reset code")
		}
	}
	return rc, rows.Err()
}

func (repo *userRepository) GetResetCode(userID int, code uuid.UUID) (user.ResetCode, error) {
	var rc user.ResetCode
	err := repo.db.Get(&rc,
		`SELECT * FROM password_reset_code WHERE user_id = $1 AND code = $2 AND `+notDeleted,
		userID, code)
	if isNoRows(err) {
		return user.ResetCode{}, user.ErrNotFound
	}
	return rc, errors.Wrap(err, "getting reset code")
}

func (repo *userRepository) ConsumeResetCodes(userID int) error {
	_, err := repo.db.Exec(
		`UPDATE password_reset_code SET deleted_at = $1, updated_at = $1 WHERE user_id = $2 AND `+notDeleted,
		core.Now(), userID)
	return errors.Wrap(err, "consuming reset codes")
}
