package service

import (
	"time"

	"github.com/amaravindhan/backend-pet/internal/entity"
)

// UserFields carries everything CreateUser accepts besides email and
// password. Zero values fall back to the column defaults.
type UserFields struct {
	PhoneNumber     string
	Username        *string
	FullName        string
	UserType        entity.UserType
	IsPhoneVerified bool
	IsEmailVerified bool
	IsActive        *bool
	IsStaff         bool
	IsSuperuser     bool
	DateJoined      time.Time
}

type RegisterInput struct {
	PhoneNumber string
	Email       string
	Password    string
	FullName    string
	Username    *string
	UserType    entity.UserType
}

type LoginInput struct {
	PhoneNumber string
	Password    string
	DeviceID    string
	DeviceName  string
	IPAddress   *string
	UserAgent   *string
}

type LoginResult struct {
	AccessToken      string
	ExpiresIn        int64
	RefreshToken     string
	RefreshExpiresIn int64
	User             *entity.User
}

// ProfileUpdate lists the self-service profile fields. Nil fields are left
// unchanged.
type ProfileUpdate struct {
	FullName *string
	Username *string
	Email    *string
	UserType *entity.UserType
}
