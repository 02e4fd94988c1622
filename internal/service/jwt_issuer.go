package service

import (
	"time"

	"github.com/amaravindhan/backend-pet/internal/entity"
	"github.com/amaravindhan/backend-pet/internal/utils"

	"github.com/google/uuid"
)

type JWTAccessIssuer struct {
	Manager *utils.JWTManager
}

func (j JWTAccessIssuer) IssueAccessToken(user entity.User, sessionID uuid.UUID) (string, time.Duration, error) {
	if j.Manager == nil {
		return "", 0, ErrNotConfigured
	}
	return j.Manager.IssueAccessToken(utils.AccessSubject{
		UserID:      user.ID.String(),
		PhoneNumber: user.PhoneNumber,
		UserType:    string(user.UserType),
		IsStaff:     user.IsStaff,
		IsSuperuser: user.IsSuperuser,
		SessionID:   sessionID.String(),
	})
}
