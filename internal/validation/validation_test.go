package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhone(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		valid bool
	}{
		{name: "five digits", phone: "12345", valid: false},
		{name: "plus one prefix", phone: "+15551234567", valid: true},
		{name: "ten digits", phone: "9876543210", valid: true},
		{name: "thirteen digits", phone: "1234567890123", valid: true},
		{name: "fourteen digits after prefix", phone: "+12345678901234", valid: true},
		{name: "letters", phone: "98765abc10", valid: false},
		{name: "empty", phone: "", valid: false},
		{name: "nine digits", phone: "987654321", valid: false},
		{name: "dashes", phone: "555-123-4567", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Phone(tt.phone)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))
			assert.Contains(t, err.Error(), PhoneMessage)
		})
	}
}

type sample struct {
	Phone    string  `json:"phone_number" validate:"required,max=13,phone"`
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	FullName string  `json:"full_name" validate:"required,max=50"`
}

func TestStruct(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		email := "owner@example.com"
		assert.NoError(t, Struct(sample{Phone: "+15551234567", Email: &email, FullName: "Ada"}))
	})

	t.Run("nil email is skipped", func(t *testing.T) {
		assert.NoError(t, Struct(sample{Phone: "5551234567", FullName: "Ada"}))
	})

	t.Run("collects field messages by json name", func(t *testing.T) {
		email := "not-an-email"
		err := Struct(sample{Phone: "12345", Email: &email})
		require.Error(t, err)

		var fields FieldErrors
		require.True(t, errors.As(err, &fields))
		assert.Equal(t, PhoneMessage, fields["phone_number"])
		assert.Equal(t, "must be a valid email address", fields["email"])
		assert.Equal(t, "this field is required", fields["full_name"])
		assert.ErrorIs(t, err, ErrInvalid)
	})
}

func TestTranslatePassesThroughOtherErrors(t *testing.T) {
	other := errors.New("boom")
	assert.Same(t, other, Translate(other))
	assert.NoError(t, Translate(nil))
}
