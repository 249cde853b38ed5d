package user

import (
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/copalsoft/copalschool/core"
)

var (
	// errors
	ErrNotFound         = errors.New("user not found")
	ErrEmailExists      = errors.New("a user with this email already exists")
	ErrUsernameExists   = errors.New("a user with this username already exists")
	ErrResetCodeInvalid = errors.New("verification code is invalid or has expired")
)

type (
	Repository interface {
		CheckUniqueness(username, email string, excludedUsers ...User) error
		CreateUser(usr User) (User, error)
		QueryAllUsers() ([]User, error)
		// GetUserByID only finds active users.
		GetUserByID(id int) (User, error)
		// GetAnyUserByID bypasses the active filter; for audit lookups.
		GetAnyUserByID(id int) (User, error)
		GetUserByUsername(username string) (User, error)
		GetUserByEmail(email string) (User, error)
		GetUserByUsernameOrEmail(username string) (User, error)
		// FilterUsers applies AND operation on available QueryFilter fields.
		FilterUsers(filter QueryFilter, ordering ...core.DBOrdering) ([]User, error)
		UpdateUser(usr User) (User, error)
		// DeleteUsersByID soft-deletes; deleting an already-deleted user re-stamps.
		DeleteUsersByID(ids ...int) error

		CreateResetCode(rc ResetCode) (ResetCode, error)
		// GetResetCode only finds active (unconsumed) codes; expiry is the caller's business.
		GetResetCode(userID int, code uuid.UUID) (ResetCode, error)
		// ConsumeResetCodes soft-deletes all outstanding codes for a user.
		ConsumeResetCodes(userID int) error
	}

	Service interface {
		CheckUniqueness(uname, email string, exclUsers ...User) error
		Create(nu NewUser) (User, error)
		// Prepare builds a ready-to-store User (password hashed, timestamps
		// stamped) without persisting it. Callers that create the row inside
		// their own transaction pair it with NotifyCredentials.
		Prepare(nu NewUser) (User, error)
		NotifyCredentials(usr User, rawPwd string)
		QueryAll() ([]User, error)
		GetByID(id int) (User, error)
		GetByUsername(uname string) (User, error)
		GetByEmail(email string) (User, error)
		GetByUsernameOrEmail(uname string) (User, error)
		Filter(filter QueryFilter, ordering ...core.DBOrdering) ([]User, error)
		Update(id int, uu UpdateUser) (User, error)
		Delete(ids ...int) error
		SetLastLogin(usr User) (User, error)

		RequestPasswordReset(email string) error
		VerifyResetCode(data VerifyResetCode) (ResetToken, error)
		ResetPassword(data ResetUserPassword) error
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		log     core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, log core.Logger) Service {
	return &service{
		repo:    repo,
		mailSvc: mailSvc,
		log:     log,
	}
}

func (svc *service) CheckUniqueness(uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUniqueness(uname, email, exclUsers...); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *service) Prepare(nu NewUser) (User, error) {
	usr := User{
		Name:     nu.Name,
		Username: nu.Username,
		Email:    nu.Email,
		Phone:    nu.Phone,
		Role:     nu.Role,
	}
	usr.Touch(nowFunc().UTC())
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return usr, nil
}

func (svc *service) NotifyCredentials(usr User, rawPwd string) {
	if usr.Role != RoleAdmin {
		svc.sendCredentialsMail(usr, rawPwd)
	}
}

func (svc *service) Create(nu NewUser) (User, error) {
	usr, err := svc.Prepare(nu)
	if err != nil {
		return User{}, err
	}

	usr, err = svc.repo.CreateUser(usr)
	if err != nil {
		return User{}, err
	}

	// Post-creation hook: mail credentials to everybody but admins.
	// Delivery is best-effort; the created user is kept either way.
	svc.NotifyCredentials(usr, nu.Password)
	return usr, nil
}

func (svc *service) QueryAll() ([]User, error) {
	return svc.repo.QueryAllUsers()
}

func (svc *service) GetByID(id int) (User, error) {
	return svc.repo.GetUserByID(id)
}

func (svc *service) GetByUsername(uname string) (User, error) {
	return svc.repo.GetUserByUsername(core.CleanString(uname, true /* lower */))
}

func (svc *service) GetByEmail(email string) (User, error) {
	return svc.repo.GetUserByEmail(core.CleanString(email, true /* lower */))
}

func (svc *service) GetByUsernameOrEmail(uname string) (User, error) {
	return svc.repo.GetUserByUsernameOrEmail(core.CleanString(uname, true /* lower */))
}

func (svc *service) Filter(filter QueryFilter, ordering ...core.DBOrdering) ([]User, error) {
	return svc.repo.FilterUsers(filter, ordering...)
}

func (svc *service) Update(id int, uu UpdateUser) (User, error) {
	usr, err := svc.repo.GetUserByID(id)
	if err != nil {
		return User{}, err
	}

	if uu.Name != "" {
		usr.Name = uu.Name
	}
	if uu.Username != "" {
		usr.Username = uu.Username
	}
	if uu.Email != "" {
		usr.Email = uu.Email
	}
	if uu.Phone != "" {
		usr.Phone = uu.Phone
	}
	if uu.Role != "" {
		usr.Role = uu.Role
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	usr.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateUser(usr)
}

func (svc *service) Delete(ids ...int) error {
	return svc.repo.DeleteUsersByID(ids...)
}

func (svc *service) SetLastLogin(usr User) (User, error) {
	usr.LastLogin.SetValid(nowFunc().UTC())
	return svc.repo.UpdateUser(usr)
}

// Password-reset protocol.
//
// RequestPasswordReset -> VerifyResetCode -> ResetPassword. An unknown
// email must look exactly like a known one from the caller's side: the
// handler swallows ErrNotFound and answers with the same success message.

func (svc *service) RequestPasswordReset(email string) error {
	usr, err := svc.GetByEmail(email)
	if err != nil {
		return err
	}

	now := nowFunc().UTC()
	rc := ResetCode{
		UserID:    usr.ID,
		Code:      uuid.New(),
		ExpiresAt: now.Add(resetCodeTimeout),
	}
	rc.Touch(now)
	rc, err = svc.repo.CreateResetCode(rc)
	if err != nil {
		return errors.Wrap(err, "creating reset code")
	}

	svc.sendResetCodeMail(usr, rc)
	return nil
}

func (svc *service) VerifyResetCode(data VerifyResetCode) (ResetToken, error) {
	usr, err := svc.GetByEmail(data.Email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return ResetToken{}, ErrResetCodeInvalid
		}
		return ResetToken{}, err
	}

	code, err := uuid.Parse(data.Code)
	if err != nil {
		return ResetToken{}, ErrResetCodeInvalid
	}

	rc, err := svc.repo.GetResetCode(usr.ID, code)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return ResetToken{}, ErrResetCodeInvalid
		}
		return ResetToken{}, err
	}
	// failure consumes nothing: the code stays usable until it expires
	if !rc.Usable(nowFunc().UTC()) {
		return ResetToken{}, ErrResetCodeInvalid
	}

	return ResetToken{UID: EncodeUID(usr), Token: makeToken(usr)}, nil
}

func (svc *service) ResetPassword(data ResetUserPassword) error {
	id, err := decodeUID(data.UID)
	if err != nil {
		return ErrResetCodeInvalid
	}
	usr, err := svc.repo.GetUserByID(id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return ErrResetCodeInvalid
		}
		return err
	}

	// a replayed token fails here: the signature covers the password hash
	if err := verifyToken(usr, data.Token); err != nil {
		return ErrResetCodeInvalid
	}

	if err := usr.SetPassword(data.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = nowFunc().UTC()
	if _, err := svc.repo.UpdateUser(usr); err != nil {
		return err
	}

	// single-use: all outstanding codes die with the password change
	return svc.repo.ConsumeResetCodes(usr.ID)
}

// Mail side effects

func (svc *service) sendCredentialsMail(usr User, rawPwd string) {
	body := fmt.Sprintf(
		"Hello %s,\n\n"+
			"Your account has been created by the administration.\n"+
			"Username: %s\n"+
			"Password: %s\n\n"+
			"-- The CopalSchool team\n",
		usr.Name, usr.Username, rawPwd,
	)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: "Welcome to CopalSchool - Your Login Credentials",
		BodyStr: body,
	})
}

func (svc *service) sendResetCodeMail(usr User, rc ResetCode) {
	body := fmt.Sprintf(
		"Hello %s,\n\n"+
			"Your password reset code is: %s\n"+
			"It expires at %s.\n\n"+
			"If you did not request a reset, you can ignore this message.\n\n"+
			"-- The CopalSchool team\n",
		usr.Name, rc.Code, rc.ExpiresAt.Format(time.RFC1123),
	)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: "Password Reset Code",
		BodyStr: body,
	})
}
