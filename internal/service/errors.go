package service

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrEmailRequired      = errors.New("users must have an email address")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveUser       = errors.New("user account is disabled")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidCode        = errors.New("invalid or expired verification code")
	ErrAlreadyVerified    = errors.New("already verified")
	ErrNotConfigured      = errors.New("not configured")
	ErrUserNotFound       = errors.New("user not found")
	ErrPermissionNotFound = errors.New("permission not found")
	ErrGroupNotFound      = errors.New("group not found")
)
