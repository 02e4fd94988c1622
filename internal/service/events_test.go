package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/amaravindhan/backend-pet/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserEvent(t *testing.T) {
	user := &entity.User{
		ID:          uuid.New(),
		PhoneNumber: "+15551234567",
		UserType:    entity.StoreOwner,
		IsStaff:     true,
		IsActive:    true,
	}
	at := time.Date(2026, 4, 2, 8, 30, 0, 0, time.UTC)

	data, err := json.Marshal(NewUserEvent(EventUserActivated, user, at))
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, "user.activated", payload["type"])
	assert.Equal(t, user.ID.String(), payload["user_id"])
	assert.Equal(t, "store_owner", payload["user_type"])
	assert.Equal(t, true, payload["is_staff"])
	assert.Equal(t, false, payload["is_superuser"])
	assert.Equal(t, "2026-04-02T08:30:00Z", payload["occurred_at"])
	assert.NotContains(t, payload, "password_hash")
}

func TestNoopEventPublisher(t *testing.T) {
	assert.NoError(t, NoopEventPublisher{}.Publish(context.Background(), UserEvent{Type: EventUserCreated}))
}
