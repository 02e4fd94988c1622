package entity

import (
	"time"

	"github.com/google/uuid"
)

type VerificationType string

const (
	EmailVerify   VerificationType = "email_verify"
	PhoneVerify   VerificationType = "phone_verify"
	PasswordReset VerificationType = "password_reset"
)

// VerificationToken stores either a hashed link token or, for phone codes,
// the one-time-code secret the code was derived from.
type VerificationToken struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index"`
	User   User      `gorm:"constraint:OnDelete:CASCADE"`

	TokenHash string           `gorm:"type:text;not null;index"`
	Type      VerificationType `gorm:"type:varchar(32);not null"`
	Secret    *string          `gorm:"type:text"`
	Target    string           `gorm:"type:varchar(255);not null"`

	ExpiresAt time.Time
	UsedAt    *time.Time

	CreatedAt time.Time
}
