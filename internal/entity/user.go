package entity

import (
	"strings"
	"time"

	"github.com/amaravindhan/backend-pet/internal/validation"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserType string

const (
	PetOwner   UserType = "pet_owner"
	CareTaker  UserType = "care_taker"
	VetDoctor  UserType = "vet_doctor"
	StoreOwner UserType = "store_owner"
	StoreStaff UserType = "store_staff"
)

var userTypeLabels = map[UserType]string{
	PetOwner:   "Pet Owner",
	CareTaker:  "Care Taker",
	VetDoctor:  "Doctor",
	StoreOwner: "Store Owner",
	StoreStaff: "Store Staff",
}

// UserTypes lists the account roles in display order.
func UserTypes() []UserType {
	return []UserType{PetOwner, CareTaker, VetDoctor, StoreOwner, StoreStaff}
}

func ParseUserType(value string) (UserType, bool) {
	t := UserType(strings.TrimSpace(value))
	return t, t.Valid()
}

func (t UserType) Valid() bool {
	_, ok := userTypeLabels[t]
	return ok
}

func (t UserType) Label() string {
	return userTypeLabels[t]
}

// UnusablePasswordPrefix marks a password hash that never verifies.
const UnusablePasswordPrefix = "!"

// User is an account identified by its phone number.
type User struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PhoneNumber string    `gorm:"type:varchar(13);uniqueIndex;not null" json:"phone_number" validate:"required,max=13,phone"`
	Email       *string   `gorm:"type:varchar(255);uniqueIndex" json:"email" validate:"omitempty,email,max=255"`
	Username    *string   `gorm:"type:varchar(50);uniqueIndex" json:"username" validate:"omitempty,max=50"`
	FullName    string    `gorm:"type:varchar(50);not null" json:"full_name" validate:"required,max=50"`
	UserType    UserType  `gorm:"type:varchar(50);default:'pet_owner';not null" json:"user_type" validate:"oneof=pet_owner care_taker vet_doctor store_owner store_staff"`

	PasswordHash *string `gorm:"type:varchar(128)" json:"password_hash"`

	IsPhoneVerified bool `gorm:"not null;default:false" json:"is_phone_verified"`
	IsEmailVerified bool `gorm:"not null;default:false" json:"is_email_verified"`

	IsStaff     bool `gorm:"not null;default:false" json:"is_staff"`
	IsActive    bool `gorm:"not null" json:"is_active"`
	IsSuperuser bool `gorm:"not null;default:false" json:"is_superuser"`

	DateJoined time.Time  `gorm:"not null" json:"date_joined"`
	LastLogin  *time.Time `json:"last_login"`

	Groups          []Group      `gorm:"many2many:user_groups;" json:"groups,omitempty"`
	UserPermissions []Permission `gorm:"many2many:user_user_permissions;" json:"user_permissions,omitempty"`

	Sessions []Session `json:"-"`
}

// BeforeSave fills the column defaults and validates every write.
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.ApplyDefaults(time.Now())
	return u.Validate()
}

func (u *User) ApplyDefaults(now time.Time) {
	if u.DateJoined.IsZero() {
		u.DateJoined = now
	}
	if u.UserType == "" {
		u.UserType = PetOwner
	}
}

// Validate applies the field rules enforced on every save.
func (u *User) Validate() error {
	return validation.Struct(u)
}

func (u *User) GetFullName() string {
	return u.FullName
}

// GetShortName returns the username, which may be nil.
func (u *User) GetShortName() *string {
	return u.Username
}

// GetUsername returns the login identifier.
func (u *User) GetUsername() string {
	return u.PhoneNumber
}

func (u *User) NaturalKey() []string {
	return []string{u.PhoneNumber}
}

func (u *User) String() string {
	return u.PhoneNumber
}

func (u *User) HasUsablePassword() bool {
	return u.PasswordHash != nil && !strings.HasPrefix(*u.PasswordHash, UnusablePasswordPrefix)
}

// EmailAddress returns the email or "" when unset.
func (u *User) EmailAddress() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}
