package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/amaravindhan/backend-pet/internal/entity"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const (
	EventUserCreated     = "user.created"
	EventUserUpdated     = "user.updated"
	EventUserDeactivated = "user.deactivated"
	EventUserActivated   = "user.activated"
	EventUserDeleted     = "user.deleted"
	EventUserVerified    = "user.verified"
)

// UserEvent is the account change notification other services consume.
type UserEvent struct {
	Type            string    `json:"type"`
	UserID          string    `json:"user_id"`
	PhoneNumber     string    `json:"phone_number"`
	UserType        string    `json:"user_type"`
	IsStaff         bool      `json:"is_staff"`
	IsSuperuser     bool      `json:"is_superuser"`
	IsActive        bool      `json:"is_active"`
	IsPhoneVerified bool      `json:"is_phone_verified"`
	IsEmailVerified bool      `json:"is_email_verified"`
	OccurredAt      time.Time `json:"occurred_at"`
}

func NewUserEvent(eventType string, user *entity.User, at time.Time) UserEvent {
	return UserEvent{
		Type:            eventType,
		UserID:          user.ID.String(),
		PhoneNumber:     user.PhoneNumber,
		UserType:        string(user.UserType),
		IsStaff:         user.IsStaff,
		IsSuperuser:     user.IsSuperuser,
		IsActive:        user.IsActive,
		IsPhoneVerified: user.IsPhoneVerified,
		IsEmailVerified: user.IsEmailVerified,
		OccurredAt:      at,
	}
}

type EventPublisher interface {
	Publish(ctx context.Context, event UserEvent) error
}

type NoopEventPublisher struct{}

func (NoopEventPublisher) Publish(context.Context, UserEvent) error {
	return nil
}

type KafkaEventPublisher struct {
	writer *kafka.Writer
}

func NewKafkaEventPublisher(brokers []string, topic string, logger logrus.FieldLogger) *KafkaEventPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  3,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		Logger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Debugf(msg, args...)
		}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Errorf(msg, args...)
		}),
	}
	return &KafkaEventPublisher{writer: writer}
}

// Publish keys messages by user id so one user's events stay ordered.
func (p *KafkaEventPublisher) Publish(ctx context.Context, event UserEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.UserID),
		Value: data,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	})
}

func (p *KafkaEventPublisher) Close() error {
	return p.writer.Close()
}
