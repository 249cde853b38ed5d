package user

import (
	"time"

	"github.com/google/uuid"

	"github.com/copalsoft/copalschool/core"
)

// ResetCode is a single-use verification code proving control of the
// account email during password reset. It expires resetCodeTimeout after
// issuance and is soft-deleted once consumed.
type ResetCode struct {
	core.Lifecycle
	UserID    int       `db:"user_id" json:"user_id"`
	Code      uuid.UUID `db:"code" json:"code"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"` // UTC
}

// Usable reports whether the code may still be verified: not consumed
// (soft-deleted) and not expired.
func (rc ResetCode) Usable(now time.Time) bool {
	return rc.IsActive() && now.Before(rc.ExpiresAt)
}

// ResetToken binds a verified reset session to a specific user so the
// flow cannot be swapped to another account between steps.
type ResetToken struct {
	UID   string `json:"uid"`
	Token string `json:"token"`
}

// VerifyResetCode carries the code submitted against an issued ResetCode.
type VerifyResetCode struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
}

func (v *VerifyResetCode) Validate() error {
	v.Email = core.CleanString(v.Email, true /* lower */)
	v.Code = core.CleanString(v.Code, true /* lower */)
	return core.Validate.Struct(v)
}

// ResetUserPassword carries the final step of the reset flow: the flow
// token from code verification plus the new password.
type ResetUserPassword struct {
	UID             string `json:"uid" validate:"required"`
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (r *ResetUserPassword) Validate() error {
	return core.Validate.Struct(r)
}
