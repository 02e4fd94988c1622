package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type SecurityAction string

const (
	LoginSuccess     SecurityAction = "login_success"
	LoginFailed      SecurityAction = "login_failed"
	Logout           SecurityAction = "logout"
	PasswordChanged  SecurityAction = "password_changed"
	SessionRevoked   SecurityAction = "session_revoked"
	AccountCreated   SecurityAction = "account_created"
	AccountDisabled  SecurityAction = "account_deactivated"
	AccountEnabled   SecurityAction = "account_activated"
	AccountDeleted   SecurityAction = "account_deleted"
	PrivilegeChanged SecurityAction = "privilege_changed"
	EmailVerified    SecurityAction = "email_verified"
	PhoneVerified    SecurityAction = "phone_verified"
)

type SecurityLog struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`

	UserID *uuid.UUID `gorm:"type:uuid;index"`
	User   *User      `gorm:"constraint:OnDelete:SET NULL"`

	IPAddress *string        `gorm:"type:varchar(45)"`
	Action    SecurityAction `gorm:"type:varchar(32);not null"`

	Metadata datatypes.JSON

	CreatedAt time.Time
}
