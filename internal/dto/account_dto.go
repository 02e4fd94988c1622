package dto

import (
	"encoding/json"
	"time"

	"github.com/amaravindhan/backend-pet/internal/entity"
)

type RegisterRequest struct {
	PhoneNumber string  `json:"phone_number" validate:"required,max=13,phone"`
	Email       string  `json:"email" validate:"required,email,max=255"`
	Password    string  `json:"password" validate:"required,min=8"`
	FullName    string  `json:"full_name" validate:"required,max=50"`
	Username    *string `json:"username" validate:"omitempty,max=50"`
	UserType    string  `json:"user_type" validate:"omitempty,oneof=pet_owner care_taker vet_doctor store_owner store_staff"`
}

// CreateUserRequest is the admin form for staff and superusers. A missing
// password leaves the account without a usable one.
type CreateUserRequest struct {
	PhoneNumber string  `json:"phone_number" validate:"required,max=13,phone"`
	Email       string  `json:"email" validate:"required,email,max=255"`
	Password    string  `json:"password" validate:"omitempty,min=8"`
	FullName    string  `json:"full_name" validate:"required,max=50"`
	Username    *string `json:"username" validate:"omitempty,max=50"`
	UserType    string  `json:"user_type" validate:"omitempty,oneof=pet_owner care_taker vet_doctor store_owner store_staff"`
}

type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

type VerifyPhoneRequest struct {
	Code string `json:"code" validate:"required,numeric,len=6"`
}

type LoginRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,max=13"`
	Password    string `json:"password" validate:"required"`
	DeviceID    string `json:"device_id" validate:"required"`
	DeviceName  string `json:"device_name" validate:"omitempty,max=100"`
}

type LoginResponse struct {
	AccessToken      string        `json:"access_token,omitempty"`
	ExpiresIn        int64         `json:"expires_in,omitempty"`
	RefreshToken     string        `json:"refresh_token,omitempty"`
	RefreshExpiresIn int64         `json:"refresh_expires_in,omitempty"`
	User             *UserResponse `json:"user,omitempty"`
}

type PasswordForgotRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type PasswordResetRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

type UpdateProfileRequest struct {
	FullName *string `json:"full_name" validate:"omitempty,min=1,max=50"`
	Username *string `json:"username" validate:"omitempty,max=50"`
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	UserType *string `json:"user_type" validate:"omitempty,oneof=pet_owner care_taker vet_doctor store_owner store_staff"`
}

type SetStaffRequest struct {
	IsStaff *bool `json:"is_staff" validate:"required"`
}

type GrantPermissionRequest struct {
	Permission string `json:"permission" validate:"required,max=200"`
}

type AddGroupRequest struct {
	Group string `json:"group" validate:"required,max=150"`
}

type GroupPermissionRequest struct {
	Permission string `json:"permission" validate:"required,max=200"`
}

type PermissionsResponse struct {
	Permissions []string `json:"permissions"`
}

type UserResponse struct {
	ID              string     `json:"id"`
	PhoneNumber     string     `json:"phone_number"`
	Email           *string    `json:"email"`
	Username        *string    `json:"username"`
	FullName        string     `json:"full_name"`
	ShortName       *string    `json:"short_name"`
	UserType        string     `json:"user_type"`
	UserTypeLabel   string     `json:"user_type_label"`
	IsPhoneVerified bool       `json:"is_phone_verified"`
	IsEmailVerified bool       `json:"is_email_verified"`
	IsStaff         bool       `json:"is_staff"`
	IsActive        bool       `json:"is_active"`
	IsSuperuser     bool       `json:"is_superuser"`
	DateJoined      time.Time  `json:"date_joined"`
	LastLogin       *time.Time `json:"last_login,omitempty"`
}

type UserListResponse struct {
	Users  []UserResponse `json:"users"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

func UserResponseFromEntity(user *entity.User) UserResponse {
	return UserResponse{
		ID:              user.ID.String(),
		PhoneNumber:     user.PhoneNumber,
		Email:           user.Email,
		Username:        user.Username,
		FullName:        user.GetFullName(),
		ShortName:       user.GetShortName(),
		UserType:        string(user.UserType),
		UserTypeLabel:   user.UserType.Label(),
		IsPhoneVerified: user.IsPhoneVerified,
		IsEmailVerified: user.IsEmailVerified,
		IsStaff:         user.IsStaff,
		IsActive:        user.IsActive,
		IsSuperuser:     user.IsSuperuser,
		DateJoined:      user.DateJoined,
		LastLogin:       user.LastLogin,
	}
}

func UserResponsesFromEntities(users []entity.User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, UserResponseFromEntity(&users[i]))
	}
	return responses
}

type SecurityLogResponse struct {
	ID        string          `json:"id"`
	Action    string          `json:"action"`
	IPAddress *string         `json:"ip_address"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type SecurityLogListResponse struct {
	Logs []SecurityLogResponse `json:"logs"`
}

func SecurityLogResponsesFromEntities(logs []entity.SecurityLog) []SecurityLogResponse {
	responses := make([]SecurityLogResponse, 0, len(logs))
	for _, log := range logs {
		responses = append(responses, SecurityLogResponse{
			ID:        log.ID.String(),
			Action:    string(log.Action),
			IPAddress: log.IPAddress,
			Metadata:  json.RawMessage(log.Metadata),
			CreatedAt: log.CreatedAt,
		})
	}
	return responses
}
