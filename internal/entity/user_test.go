package entity

import (
	"errors"
	"testing"
	"time"

	"github.com/amaravindhan/backend-pet/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(v string) *string { return &v }

func validUser() *User {
	return &User{
		PhoneNumber: "+15551234567",
		Email:       strPtr("owner@example.com"),
		FullName:    "Priya Raman",
		UserType:    PetOwner,
		IsActive:    true,
	}
}

func TestUserAccessors(t *testing.T) {
	u := validUser()
	assert.Equal(t, "Priya Raman", u.GetFullName())
	assert.Equal(t, "+15551234567", u.String())
	assert.Equal(t, "+15551234567", u.GetUsername())
	assert.Equal(t, []string{"+15551234567"}, u.NaturalKey())

	t.Run("short name is nil without username", func(t *testing.T) {
		assert.Nil(t, u.GetShortName())
	})

	t.Run("short name returns username", func(t *testing.T) {
		u.Username = strPtr("priya")
		require.NotNil(t, u.GetShortName())
		assert.Equal(t, "priya", *u.GetShortName())
	})
}

func TestUserValidate(t *testing.T) {
	t.Run("valid user", func(t *testing.T) {
		assert.NoError(t, validUser().Validate())
	})

	tests := []struct {
		name   string
		mutate func(*User)
		field  string
	}{
		{name: "short phone", mutate: func(u *User) { u.PhoneNumber = "12345" }, field: "phone_number"},
		{name: "phone too long for column", mutate: func(u *User) { u.PhoneNumber = "+12345678901234" }, field: "phone_number"},
		{name: "missing full name", mutate: func(u *User) { u.FullName = "" }, field: "full_name"},
		{name: "bad email", mutate: func(u *User) { u.Email = strPtr("nope") }, field: "email"},
		{name: "unknown user type", mutate: func(u *User) { u.UserType = "groomer" }, field: "user_type"},
		{name: "long username", mutate: func(u *User) {
			u.Username = strPtr("abcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwxyz")
		}, field: "username"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := validUser()
			tt.mutate(u)
			err := u.Validate()
			require.Error(t, err)

			var fields validation.FieldErrors
			require.True(t, errors.As(err, &fields))
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	u := &User{PhoneNumber: "5551234567", FullName: "Sam"}
	u.ApplyDefaults(now)
	assert.Equal(t, PetOwner, u.UserType)
	assert.Equal(t, now, u.DateJoined)

	joined := now.Add(-time.Hour)
	u = &User{UserType: VetDoctor, DateJoined: joined}
	u.ApplyDefaults(now)
	assert.Equal(t, VetDoctor, u.UserType)
	assert.Equal(t, joined, u.DateJoined)
}

func TestHasUsablePassword(t *testing.T) {
	u := validUser()
	assert.False(t, u.HasUsablePassword())

	u.PasswordHash = strPtr(UnusablePasswordPrefix + "abc")
	assert.False(t, u.HasUsablePassword())

	u.PasswordHash = strPtr("$2a$10$hash")
	assert.True(t, u.HasUsablePassword())
}

func TestUserTypes(t *testing.T) {
	assert.Len(t, UserTypes(), 5)
	assert.Equal(t, "Doctor", VetDoctor.Label())

	parsed, ok := ParseUserType(" store_staff ")
	assert.True(t, ok)
	assert.Equal(t, StoreStaff, parsed)

	_, ok = ParseUserType("admin")
	assert.False(t, ok)
}

func TestPermissions(t *testing.T) {
	view := Permission{AppLabel: "accounts", Codename: "view_user"}
	change := Permission{AppLabel: "accounts", Codename: "change_user"}
	book := Permission{AppLabel: "clinic", Codename: "add_appointment"}

	u := validUser()
	u.UserPermissions = []Permission{view}
	u.Groups = []Group{{Name: "vets", Permissions: []Permission{book}}}

	assert.True(t, u.HasPerm("accounts.view_user"))
	assert.True(t, u.HasPerm("clinic.add_appointment"))
	assert.False(t, u.HasPerm("accounts.change_user"))
	assert.True(t, u.HasPerms("accounts.view_user", "clinic.add_appointment"))
	assert.False(t, u.HasPerms("accounts.view_user", change.Key()))
	assert.True(t, u.HasModulePerms("clinic"))
	assert.False(t, u.HasModulePerms("store"))
	assert.Len(t, u.GetAllPermissions(), 2)

	t.Run("superuser holds everything", func(t *testing.T) {
		su := validUser()
		su.IsSuperuser = true
		assert.True(t, su.HasPerm("anything.at_all"))
		assert.True(t, su.HasModulePerms("store"))
	})

	t.Run("inactive users hold nothing", func(t *testing.T) {
		u.IsActive = false
		assert.False(t, u.HasPerm("accounts.view_user"))
		assert.Empty(t, u.GetAllPermissions())

		u.IsSuperuser = true
		assert.False(t, u.HasPerm("accounts.view_user"))
		assert.False(t, u.HasModulePerms("accounts"))
	})
}

func TestSessionActive(t *testing.T) {
	now := time.Now()
	s := &Session{ExpiresAt: now.Add(time.Hour)}
	assert.True(t, s.Active(now))

	s.RevokedAt = &now
	assert.False(t, s.Active(now))

	s = &Session{ExpiresAt: now.Add(-time.Second)}
	assert.False(t, s.Active(now))
}
