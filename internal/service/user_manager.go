package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amaravindhan/backend-pet/internal/entity"
	"github.com/amaravindhan/backend-pet/internal/repository"
	"github.com/amaravindhan/backend-pet/internal/utils"

	"github.com/sirupsen/logrus"
)

const unusablePasswordSuffixLength = 40

const (
	tierUser      = "user"
	tierStaff     = "staff"
	tierSuperuser = "superuser"
)

// UserManager creates users with normalized input and default flags, and
// persists them through one database alias.
type UserManager struct {
	users  repository.UserRouter
	alias  string
	hasher PasswordHasher
	events EventPublisher
	clock  Clock
	logger logrus.FieldLogger
}

func NewUserManager(
	users repository.UserRouter,
	hasher PasswordHasher,
	events EventPublisher,
	clock Clock,
	logger logrus.FieldLogger,
) *UserManager {
	if events == nil {
		events = NoopEventPublisher{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &UserManager{
		users:  users,
		alias:  repository.DefaultAlias,
		hasher: hasher,
		events: events,
		clock:  clock,
		logger: logger,
	}
}

// Using returns a copy of the manager bound to alias.
func (m *UserManager) Using(alias string) (*UserManager, error) {
	if _, err := m.users.Users(alias); err != nil {
		return nil, err
	}
	clone := *m
	clone.alias = alias
	return &clone, nil
}

// DB is the alias every save of this manager goes through.
func (m *UserManager) DB() string {
	if m.alias == "" {
		return repository.DefaultAlias
	}
	return m.alias
}

func (m *UserManager) NormalizeEmail(email string) string {
	return utils.NormalizeEmail(email)
}

func (m *UserManager) MakeRandomPassword(length int) (string, error) {
	return utils.MakeRandomPassword(length)
}

func (m *UserManager) GetByNaturalKey(ctx context.Context, phone string) (*entity.User, error) {
	repo, err := m.repo()
	if err != nil {
		return nil, err
	}
	user, err := repo.FindByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// CreateUser builds, hashes and saves a regular user. An empty password
// stores an unusable one.
func (m *UserManager) CreateUser(ctx context.Context, email string, password string, fields UserFields) (*entity.User, error) {
	user, err := m.createUser(ctx, email, password, fields)
	if err != nil {
		return nil, err
	}
	m.created(ctx, user, tierUser)
	return user, nil
}

func (m *UserManager) CreateStaffUser(ctx context.Context, email string, password string, fields UserFields) (*entity.User, error) {
	user, err := m.createUser(ctx, email, password, fields)
	if err != nil {
		return nil, err
	}
	user.IsStaff = true
	if err := m.save(ctx, user); err != nil {
		return nil, err
	}
	m.created(ctx, user, tierStaff)
	return user, nil
}

func (m *UserManager) CreateSuperuser(ctx context.Context, email string, password string, fields UserFields) (*entity.User, error) {
	user, err := m.createUser(ctx, email, password, fields)
	if err != nil {
		return nil, err
	}
	user.IsStaff = true
	user.IsSuperuser = true
	if err := m.save(ctx, user); err != nil {
		return nil, err
	}
	m.created(ctx, user, tierSuperuser)
	return user, nil
}

func (m *UserManager) createUser(ctx context.Context, email string, password string, fields UserFields) (*entity.User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, ErrEmailRequired
	}
	repo, err := m.repo()
	if err != nil {
		return nil, err
	}

	user := m.build(m.NormalizeEmail(email), fields)
	if err := setPassword(m.hasher, user, password); err != nil {
		return nil, err
	}
	if err := repo.Create(ctx, user); err != nil {
		return nil, translateWriteError(err)
	}
	return user, nil
}

func (m *UserManager) build(email string, fields UserFields) *entity.User {
	isActive := true
	if fields.IsActive != nil {
		isActive = *fields.IsActive
	}
	user := &entity.User{
		PhoneNumber:     fields.PhoneNumber,
		Email:           &email,
		Username:        normalizeUsername(fields.Username),
		FullName:        fields.FullName,
		UserType:        fields.UserType,
		IsPhoneVerified: fields.IsPhoneVerified,
		IsEmailVerified: fields.IsEmailVerified,
		IsActive:        isActive,
		IsStaff:         fields.IsStaff,
		IsSuperuser:     fields.IsSuperuser,
		DateJoined:      fields.DateJoined,
	}
	user.ApplyDefaults(m.now())
	return user
}

func (m *UserManager) save(ctx context.Context, user *entity.User) error {
	repo, err := m.repo()
	if err != nil {
		return err
	}
	return translateWriteError(repo.Save(ctx, user))
}

func (m *UserManager) repo() (repository.UserRepository, error) {
	return m.users.Users(m.DB())
}

func (m *UserManager) created(ctx context.Context, user *entity.User, tier string) {
	accountsCreated.WithLabelValues(string(user.UserType), tier).Inc()
	m.logger.WithFields(logrus.Fields{
		"user_id":   user.ID.String(),
		"user_type": user.UserType,
		"tier":      tier,
		"database":  m.DB(),
	}).Info("user created")
	publish(ctx, m.events, m.logger, NewUserEvent(EventUserCreated, user, m.now()))
}

func (m *UserManager) now() time.Time {
	if m.clock == nil {
		return time.Now()
	}
	return m.clock.Now()
}

// normalizeUsername trims the username and maps a blank one to nil so the
// unique index only sees real names.
func normalizeUsername(username *string) *string {
	if username == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*username)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// setPassword stores the hash of raw, or an unusable marker when raw is
// empty.
func setPassword(hasher PasswordHasher, user *entity.User, raw string) error {
	if raw == "" {
		return setUnusablePassword(user)
	}
	hash, err := hasher.Hash(raw)
	if err != nil {
		return err
	}
	user.PasswordHash = &hash
	return nil
}

func setUnusablePassword(user *entity.User) error {
	suffix, err := utils.MakeRandomPassword(unusablePasswordSuffixLength)
	if err != nil {
		return err
	}
	marker := entity.UnusablePasswordPrefix + suffix
	user.PasswordHash = &marker
	return nil
}

func checkPassword(hasher PasswordHasher, user *entity.User, raw string) bool {
	if !user.HasUsablePassword() || raw == "" {
		return false
	}
	return hasher.Verify(*user.PasswordHash, raw)
}

func translateWriteError(err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return fmt.Errorf("%w: %v", ErrUserAlreadyExists, err)
	}
	return err
}

func publish(ctx context.Context, events EventPublisher, logger logrus.FieldLogger, event UserEvent) {
	if events == nil {
		return
	}
	if err := events.Publish(ctx, event); err != nil {
		eventPublishErrors.Inc()
		logger.WithError(err).WithField("event", event.Type).Warn("publish user event")
	}
}
