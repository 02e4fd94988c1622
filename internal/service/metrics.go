package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	accountsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_users_created_total",
			Help: "Users created, by user type and privilege tier",
		},
		[]string{"user_type", "tier"},
	)

	loginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_login_attempts_total",
			Help: "Authentication attempts by result",
		},
		[]string{"result"},
	)

	verificationsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_verifications_completed_total",
			Help: "Completed email and phone verifications",
		},
		[]string{"channel"},
	)

	eventPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "accounts_event_publish_errors_total",
			Help: "User events that could not be published",
		},
	)
)
