package entity

import (
	"time"

	"github.com/google/uuid"
)

// Session is one refresh-token login on a device.
type Session struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index"`
	User   User      `gorm:"constraint:OnDelete:CASCADE"`

	TokenHash string `gorm:"type:text;not null;uniqueIndex"`

	DeviceName string  `gorm:"type:varchar(100)"`
	DeviceID   string  `gorm:"type:varchar(255);not null"`
	IPAddress  *string `gorm:"type:varchar(45)"`
	UserAgent  *string `gorm:"type:text"`

	ExpiresAt  time.Time
	RevokedAt  *time.Time
	RotatedAt  *time.Time
	LastUsedAt *time.Time

	CreatedAt time.Time
}

func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
