package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/amaravindhan/backend-pet/internal/entity"
	"github.com/amaravindhan/backend-pet/internal/repository"
	"github.com/amaravindhan/backend-pet/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

type AccountService struct {
	manager       *UserManager
	users         repository.UserRepository
	sessions      repository.SessionRepository
	verifications repository.VerificationTokenRepository
	securityLogs  repository.SecurityLogRepository
	permissions   repository.PermissionRepository

	emailSender  EmailSender
	smsSender    SMSSender
	passwordHash PasswordHasher
	dummyHash    string
	accessTokens AccessTokenIssuer
	phoneCodes   PhoneCodeProvider
	events       EventPublisher
	clock        Clock
	config       AccountConfig
	logger       logrus.FieldLogger
}

func NewAccountService(
	manager *UserManager,
	users repository.UserRepository,
	sessions repository.SessionRepository,
	verifications repository.VerificationTokenRepository,
	securityLogs repository.SecurityLogRepository,
	permissions repository.PermissionRepository,
	emailSender EmailSender,
	smsSender SMSSender,
	passwordHash PasswordHasher,
	accessTokens AccessTokenIssuer,
	phoneCodes PhoneCodeProvider,
	events EventPublisher,
	clock Clock,
	config AccountConfig,
	logger logrus.FieldLogger,
) *AccountService {
	if events == nil {
		events = NoopEventPublisher{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	dummyHash, err := passwordHash.Hash(uuid.NewString())
	if err != nil {
		logger.WithError(err).Warn("build dummy password hash")
	}
	return &AccountService{
		manager:       manager,
		users:         users,
		sessions:      sessions,
		verifications: verifications,
		securityLogs:  securityLogs,
		permissions:   permissions,
		emailSender:   emailSender,
		smsSender:     smsSender,
		passwordHash:  passwordHash,
		dummyHash:     dummyHash,
		accessTokens:  accessTokens,
		phoneCodes:    phoneCodes,
		events:        events,
		clock:         clock,
		config:        config,
		logger:        logger,
	}
}

func (s *AccountService) Manager() *UserManager {
	return s.manager
}

// Register creates a regular account and starts email verification when a
// sender is configured.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*entity.User, error) {
	if strings.TrimSpace(input.PhoneNumber) == "" || strings.TrimSpace(input.FullName) == "" {
		return nil, ErrInvalidInput
	}
	user, err := s.manager.CreateUser(ctx, input.Email, input.Password, UserFields{
		PhoneNumber: strings.TrimSpace(input.PhoneNumber),
		Username:    input.Username,
		FullName:    strings.TrimSpace(input.FullName),
		UserType:    input.UserType,
	})
	if err != nil {
		return nil, err
	}
	_ = s.logSecurity(ctx, &user.ID, nil, entity.AccountCreated, nil)

	if s.emailSender != nil {
		if err := s.sendEmailVerification(ctx, user); err != nil {
			s.logger.WithError(err).WithField("user_id", user.ID.String()).Warn("send verification email")
		}
	}
	return user, nil
}

// CreateStaffUser creates an account with admin-site access through the
// named database alias. An empty alias means the default database.
func (s *AccountService) CreateStaffUser(ctx context.Context, database string, input RegisterInput) (*entity.User, error) {
	return s.createPrivileged(ctx, database, input, (*UserManager).CreateStaffUser)
}

func (s *AccountService) CreateSuperuser(ctx context.Context, database string, input RegisterInput) (*entity.User, error) {
	return s.createPrivileged(ctx, database, input, (*UserManager).CreateSuperuser)
}

func (s *AccountService) createPrivileged(
	ctx context.Context,
	database string,
	input RegisterInput,
	create func(*UserManager, context.Context, string, string, UserFields) (*entity.User, error),
) (*entity.User, error) {
	if strings.TrimSpace(input.PhoneNumber) == "" || strings.TrimSpace(input.FullName) == "" {
		return nil, ErrInvalidInput
	}
	manager := s.manager
	if database != "" {
		var err error
		if manager, err = s.manager.Using(database); err != nil {
			return nil, err
		}
	}
	user, err := create(manager, ctx, input.Email, input.Password, UserFields{
		PhoneNumber: strings.TrimSpace(input.PhoneNumber),
		Username:    input.Username,
		FullName:    strings.TrimSpace(input.FullName),
		UserType:    input.UserType,
	})
	if err != nil {
		return nil, err
	}
	_ = s.logSecurity(ctx, &user.ID, nil, entity.AccountCreated, map[string]any{
		"is_staff":     user.IsStaff,
		"is_superuser": user.IsSuperuser,
		"database":     manager.DB(),
	})
	return user, nil
}

// Authenticate checks a phone number and password. Unknown numbers still pay
// for one hash comparison.
func (s *AccountService) Authenticate(ctx context.Context, phone string, password string) (*entity.User, error) {
	user, err := s.users.FindByPhone(ctx, strings.TrimSpace(phone))
	if err != nil {
		return nil, err
	}
	if user == nil {
		_ = s.passwordHash.Verify(s.dummyHash, password)
		return nil, ErrInvalidCredentials
	}
	if !checkPassword(s.passwordHash, user, password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	return user, nil
}

func (s *AccountService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if strings.TrimSpace(input.PhoneNumber) == "" || strings.TrimSpace(input.Password) == "" || strings.TrimSpace(input.DeviceID) == "" {
		return nil, ErrInvalidInput
	}

	user, err := s.Authenticate(ctx, input.PhoneNumber, input.Password)
	if err != nil {
		loginAttempts.WithLabelValues("failed").Inc()
		_ = s.logSecurity(ctx, nil, input.IPAddress, entity.LoginFailed, map[string]any{"phone": maskPhone(input.PhoneNumber)})
		return nil, err
	}

	now := s.now()
	user.LastLogin = &now
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}

	result, err := s.createSessionAndTokens(ctx, user, input.DeviceID, input.DeviceName, input.IPAddress, input.UserAgent)
	if err != nil {
		return nil, err
	}
	loginAttempts.WithLabelValues("success").Inc()
	_ = s.logSecurity(ctx, &user.ID, input.IPAddress, entity.LoginSuccess, map[string]any{"device_id": input.DeviceID})
	return result, nil
}

func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, ErrInvalidInput
	}

	session, err := s.sessions.FindByTokenHash(ctx, utils.HashToken(refreshToken))
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrInvalidToken
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if !user.IsActive {
		_ = s.sessions.Revoke(ctx, session.ID)
		return nil, ErrInactiveUser
	}

	newRefreshToken, newRefreshHash, newRefreshExpiry, err := s.buildRefreshToken()
	if err != nil {
		return nil, err
	}
	if err := s.sessions.RotateToken(ctx, session.ID, newRefreshHash, newRefreshExpiry); err != nil {
		return nil, err
	}

	accessToken, expiresIn, err := s.accessTokens.IssueAccessToken(*user, session.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:      accessToken,
		ExpiresIn:        int64(expiresIn.Seconds()),
		RefreshToken:     newRefreshToken,
		RefreshExpiresIn: int64(newRefreshExpiry.Sub(s.now()).Seconds()),
		User:             user,
	}, nil
}

func (s *AccountService) Logout(ctx context.Context, sessionID uuid.UUID, userID *uuid.UUID, ipAddress *string) error {
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return err
	}
	_ = s.logSecurity(ctx, userID, ipAddress, entity.Logout, nil)
	return nil
}

func (s *AccountService) LogoutAll(ctx context.Context, userID uuid.UUID, ipAddress *string) error {
	if err := s.sessions.RevokeAllByUser(ctx, userID); err != nil {
		return err
	}
	_ = s.logSecurity(ctx, &userID, ipAddress, entity.SessionRevoked, map[string]any{"scope": "all"})
	return nil
}

func (s *AccountService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword string, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return ErrInvalidInput
	}
	user, err := s.requireUser(ctx, userID)
	if err != nil {
		return err
	}
	if !checkPassword(s.passwordHash, user, oldPassword) {
		return ErrInvalidCredentials
	}
	return s.replacePassword(ctx, user, newPassword, "change")
}

// SetUnusablePassword locks password login for the user until a reset.
func (s *AccountService) SetUnusablePassword(ctx context.Context, userID uuid.UUID) error {
	user, err := s.requireUser(ctx, userID)
	if err != nil {
		return err
	}
	return s.replacePassword(ctx, user, "", "unusable")
}

func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return ErrInvalidInput
	}

	user, err := s.users.FindByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		return err
	}
	if user == nil || !user.IsActive || s.emailSender == nil {
		return nil
	}

	token, err := s.createVerificationToken(ctx, user.ID, entity.PasswordReset, user.EmailAddress(), s.resetTokenTTL())
	if err != nil {
		return err
	}
	return s.emailSender.SendPasswordResetEmail(ctx, user.EmailAddress(), token)
}

func (s *AccountService) ResetPassword(ctx context.Context, token string, newPassword string) error {
	if strings.TrimSpace(token) == "" || strings.TrimSpace(newPassword) == "" {
		return ErrInvalidInput
	}

	verification, err := s.verifications.FindValid(ctx, utils.HashToken(token), entity.PasswordReset)
	if err != nil {
		return err
	}
	if verification == nil {
		return ErrInvalidToken
	}

	user, err := s.requireUser(ctx, verification.UserID)
	if err != nil {
		return err
	}
	if err := s.replacePassword(ctx, user, newPassword, "reset"); err != nil {
		return err
	}
	return s.verifications.MarkUsed(ctx, verification.ID)
}

func (s *AccountService) RequestEmailVerification(ctx context.Context, userID uuid.UUID) error {
	if s.emailSender == nil {
		return ErrNotConfigured
	}
	user, err := s.requireUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.Email == nil {
		return ErrInvalidInput
	}
	if user.IsEmailVerified {
		return ErrAlreadyVerified
	}
	return s.sendEmailVerification(ctx, user)
}

func (s *AccountService) VerifyEmail(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return ErrInvalidInput
	}
	verification, err := s.verifications.FindValid(ctx, utils.HashToken(token), entity.EmailVerify)
	if err != nil {
		return err
	}
	if verification == nil {
		return ErrInvalidToken
	}

	user, err := s.requireUser(ctx, verification.UserID)
	if err != nil {
		return err
	}
	// the address changed after the link was sent
	if user.EmailAddress() != verification.Target {
		return ErrInvalidToken
	}

	user.IsEmailVerified = true
	if err := s.users.Save(ctx, user); err != nil {
		return err
	}
	if err := s.verifications.MarkUsed(ctx, verification.ID); err != nil {
		return err
	}
	s.verified(ctx, user, "email", entity.EmailVerified)
	return nil
}

func (s *AccountService) RequestPhoneVerification(ctx context.Context, userID uuid.UUID) error {
	if s.smsSender == nil || s.phoneCodes == nil {
		return ErrNotConfigured
	}
	user, err := s.requireUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsPhoneVerified {
		return ErrAlreadyVerified
	}

	if err := s.verifications.InvalidateForUser(ctx, user.ID, entity.PhoneVerify); err != nil {
		return err
	}
	secret, err := s.phoneCodes.GenerateSecret(user.PhoneNumber)
	if err != nil {
		return err
	}
	now := s.now()
	code, err := s.phoneCodes.Code(secret, now)
	if err != nil {
		return err
	}

	verification := &entity.VerificationToken{
		UserID:    user.ID,
		TokenHash: utils.HashToken(secret),
		Type:      entity.PhoneVerify,
		Secret:    &secret,
		Target:    user.PhoneNumber,
		ExpiresAt: now.Add(s.phoneCodeTTL()),
	}
	if err := s.verifications.Create(ctx, verification); err != nil {
		return err
	}
	return s.smsSender.SendVerificationCode(ctx, user.PhoneNumber, code)
}

func (s *AccountService) VerifyPhone(ctx context.Context, userID uuid.UUID, code string) error {
	if s.phoneCodes == nil {
		return ErrNotConfigured
	}
	if strings.TrimSpace(code) == "" {
		return ErrInvalidInput
	}
	user, err := s.requireUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsPhoneVerified {
		return ErrAlreadyVerified
	}

	verification, err := s.verifications.FindLatestForUser(ctx, user.ID, entity.PhoneVerify)
	if err != nil {
		return err
	}
	if verification == nil || verification.Secret == nil || verification.Target != user.PhoneNumber {
		return ErrInvalidCode
	}
	if !s.phoneCodes.Validate(*verification.Secret, code, s.now()) {
		return ErrInvalidCode
	}

	user.IsPhoneVerified = true
	if err := s.users.Save(ctx, user); err != nil {
		return err
	}
	if err := s.verifications.MarkUsed(ctx, verification.ID); err != nil {
		return err
	}
	s.verified(ctx, user, "phone", entity.PhoneVerified)
	return nil
}

// UpdateProfile applies the non-nil fields. A new email clears the email
// verification flag.
func (s *AccountService) UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*entity.User, error) {
	user, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.FullName != nil {
		user.FullName = strings.TrimSpace(*update.FullName)
	}
	if update.Username != nil {
		user.Username = normalizeUsername(update.Username)
	}
	if update.Email != nil {
		email := s.manager.NormalizeEmail(*update.Email)
		if email == "" {
			return nil, ErrEmailRequired
		}
		if email != user.EmailAddress() {
			user.Email = &email
			user.IsEmailVerified = false
		}
	}
	if update.UserType != nil {
		if !update.UserType.Valid() {
			return nil, ErrInvalidInput
		}
		user.UserType = *update.UserType
	}

	if err := s.users.Save(ctx, user); err != nil {
		return nil, translateWriteError(err)
	}
	publish(ctx, s.events, s.logger, NewUserEvent(EventUserUpdated, user, s.now()))
	return user, nil
}

// Deactivate is the soft delete: the account stays but cannot log in, and its
// sessions are revoked.
func (s *AccountService) Deactivate(ctx context.Context, userID uuid.UUID, ipAddress *string) (*entity.User, error) {
	user, err := s.setActive(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.RevokeAllByUser(ctx, user.ID); err != nil {
		return nil, err
	}
	_ = s.logSecurity(ctx, &user.ID, ipAddress, entity.AccountDisabled, nil)
	publish(ctx, s.events, s.logger, NewUserEvent(EventUserDeactivated, user, s.now()))
	return user, nil
}

func (s *AccountService) Activate(ctx context.Context, userID uuid.UUID, ipAddress *string) (*entity.User, error) {
	user, err := s.setActive(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	_ = s.logSecurity(ctx, &user.ID, ipAddress, entity.AccountEnabled, nil)
	publish(ctx, s.events, s.logger, NewUserEvent(EventUserActivated, user, s.now()))
	return user, nil
}

func (s *AccountService) setActive(ctx context.Context, userID uuid.UUID, active bool) (*entity.User, error) {
	user, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsActive == active {
		return user, nil
	}
	user.IsActive = active
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetStaff grants or removes admin-site access. Superusers keep staff.
func (s *AccountService) SetStaff(ctx context.Context, userID uuid.UUID, staff bool, ipAddress *string) (*entity.User, error) {
	user, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !staff && user.IsSuperuser {
		return nil, ErrInvalidInput
	}
	user.IsStaff = staff
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	_ = s.logSecurity(ctx, &user.ID, ipAddress, entity.PrivilegeChanged, map[string]any{"is_staff": staff})
	publish(ctx, s.events, s.logger, NewUserEvent(EventUserUpdated, user, s.now()))
	return user, nil
}

// Delete removes the account for good. Deactivate is preferred.
func (s *AccountService) Delete(ctx context.Context, userID uuid.UUID, ipAddress *string) error {
	user, err := s.requireUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		return err
	}
	_ = s.logSecurity(ctx, nil, ipAddress, entity.AccountDeleted, map[string]any{"user_id": user.ID.String()})
	publish(ctx, s.events, s.logger, NewUserEvent(EventUserDeleted, user, s.now()))
	return nil
}

func (s *AccountService) GetUser(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	return s.requireUser(ctx, userID)
}

func (s *AccountService) ListUsers(ctx context.Context, filter repository.UserFilter) ([]entity.User, int64, error) {
	return s.users.List(ctx, filter)
}

// UserPermissions returns the sorted permission keys the user holds.
// Superusers report "*".
func (s *AccountService) UserPermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	user, err := s.users.FindWithPermissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.IsActive && user.IsSuperuser {
		return []string{"*"}, nil
	}
	perms := user.GetAllPermissions()
	keys := make([]string, 0, len(perms))
	for key := range perms {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *AccountService) HasPerm(ctx context.Context, userID uuid.UUID, perm string) (bool, error) {
	user, err := s.users.FindWithPermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, ErrUserNotFound
	}
	return user.HasPerm(perm), nil
}

// SeedPermissions makes sure the accounts.user model permissions exist.
func (s *AccountService) SeedPermissions(ctx context.Context) error {
	if s.permissions == nil {
		return ErrNotConfigured
	}
	for _, perm := range entity.UserModelPermissions() {
		if err := s.permissions.EnsurePermission(ctx, &perm); err != nil {
			return err
		}
	}
	return nil
}

// GrantPermission gives the user a permission named "<app_label>.<codename>".
func (s *AccountService) GrantPermission(ctx context.Context, userID uuid.UUID, perm string) error {
	found, err := s.userPermission(ctx, userID, perm)
	if err != nil {
		return err
	}
	if err := s.permissions.GrantToUser(ctx, userID, *found); err != nil {
		return err
	}
	_ = s.logSecurity(ctx, &userID, nil, entity.PrivilegeChanged, map[string]any{"permission": perm})
	return nil
}

func (s *AccountService) RevokePermission(ctx context.Context, userID uuid.UUID, perm string) error {
	found, err := s.userPermission(ctx, userID, perm)
	if err != nil {
		return err
	}
	if err := s.permissions.RevokeFromUser(ctx, userID, *found); err != nil {
		return err
	}
	_ = s.logSecurity(ctx, &userID, nil, entity.PrivilegeChanged, map[string]any{"revoked_permission": perm})
	return nil
}

func (s *AccountService) userPermission(ctx context.Context, userID uuid.UUID, perm string) (*entity.Permission, error) {
	if s.permissions == nil {
		return nil, ErrNotConfigured
	}
	appLabel, codename, ok := strings.Cut(perm, ".")
	if !ok || appLabel == "" || codename == "" {
		return nil, ErrInvalidInput
	}
	if _, err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	found, err := s.permissions.FindPermission(ctx, appLabel, codename)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrPermissionNotFound
	}
	return found, nil
}

func (s *AccountService) AddToGroup(ctx context.Context, userID uuid.UUID, groupName string) error {
	if s.permissions == nil {
		return ErrNotConfigured
	}
	if strings.TrimSpace(groupName) == "" {
		return ErrInvalidInput
	}
	if _, err := s.requireUser(ctx, userID); err != nil {
		return err
	}
	group, err := s.permissions.EnsureGroup(ctx, strings.TrimSpace(groupName))
	if err != nil {
		return err
	}
	if err := s.permissions.AddUserToGroup(ctx, userID, group.ID); err != nil {
		return err
	}
	_ = s.logSecurity(ctx, &userID, nil, entity.PrivilegeChanged, map[string]any{"group": group.Name})
	return nil
}

func (s *AccountService) RemoveFromGroup(ctx context.Context, userID uuid.UUID, groupName string) error {
	if s.permissions == nil {
		return ErrNotConfigured
	}
	if strings.TrimSpace(groupName) == "" {
		return ErrInvalidInput
	}
	if _, err := s.requireUser(ctx, userID); err != nil {
		return err
	}
	group, err := s.permissions.FindGroup(ctx, strings.TrimSpace(groupName))
	if err != nil {
		return err
	}
	if group == nil {
		return ErrGroupNotFound
	}
	if err := s.permissions.RemoveUserFromGroup(ctx, userID, group.ID); err != nil {
		return err
	}
	_ = s.logSecurity(ctx, &userID, nil, entity.PrivilegeChanged, map[string]any{"removed_group": group.Name})
	return nil
}

// GrantGroupPermission gives every member of the group perm. The group is
// created when missing.
func (s *AccountService) GrantGroupPermission(ctx context.Context, groupName string, perm string) error {
	if s.permissions == nil {
		return ErrNotConfigured
	}
	groupName = strings.TrimSpace(groupName)
	appLabel, codename, ok := strings.Cut(perm, ".")
	if groupName == "" || !ok || appLabel == "" || codename == "" {
		return ErrInvalidInput
	}
	found, err := s.permissions.FindPermission(ctx, appLabel, codename)
	if err != nil {
		return err
	}
	if found == nil {
		return ErrPermissionNotFound
	}
	group, err := s.permissions.EnsureGroup(ctx, groupName)
	if err != nil {
		return err
	}
	return s.permissions.GrantToGroup(ctx, group.ID, *found)
}

// SecurityLogs returns the newest audit entries for the user.
func (s *AccountService) SecurityLogs(ctx context.Context, userID uuid.UUID, limit int) ([]entity.SecurityLog, error) {
	if s.securityLogs == nil {
		return nil, ErrNotConfigured
	}
	if _, err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.securityLogs.ListByUser(ctx, userID, limit)
}

func (s *AccountService) requireUser(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *AccountService) replacePassword(ctx context.Context, user *entity.User, raw string, source string) error {
	if err := setPassword(s.passwordHash, user, raw); err != nil {
		return err
	}
	if err := s.users.Save(ctx, user); err != nil {
		return err
	}
	_ = s.sessions.RevokeAllByUser(ctx, user.ID)
	_ = s.logSecurity(ctx, &user.ID, nil, entity.PasswordChanged, map[string]any{"source": source})
	return nil
}

func (s *AccountService) verified(ctx context.Context, user *entity.User, channel string, action entity.SecurityAction) {
	verificationsCompleted.WithLabelValues(channel).Inc()
	_ = s.logSecurity(ctx, &user.ID, nil, action, nil)
	publish(ctx, s.events, s.logger, NewUserEvent(EventUserVerified, user, s.now()))
}

func (s *AccountService) createSessionAndTokens(
	ctx context.Context,
	user *entity.User,
	deviceID string,
	deviceName string,
	ipAddress *string,
	userAgent *string,
) (*LoginResult, error) {
	refreshToken, refreshHash, refreshExpiry, err := s.buildRefreshToken()
	if err != nil {
		return nil, err
	}

	session := &entity.Session{
		UserID:     user.ID,
		TokenHash:  refreshHash,
		DeviceID:   deviceID,
		DeviceName: deviceName,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		ExpiresAt:  refreshExpiry,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	accessToken, expiresIn, err := s.accessTokens.IssueAccessToken(*user, session.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:      accessToken,
		ExpiresIn:        int64(expiresIn.Seconds()),
		RefreshToken:     refreshToken,
		RefreshExpiresIn: int64(refreshExpiry.Sub(s.now()).Seconds()),
		User:             user,
	}, nil
}

func (s *AccountService) sendEmailVerification(ctx context.Context, user *entity.User) error {
	if s.emailSender == nil || user.Email == nil {
		return nil
	}
	if err := s.verifications.InvalidateForUser(ctx, user.ID, entity.EmailVerify); err != nil {
		return err
	}
	token, err := s.createVerificationToken(ctx, user.ID, entity.EmailVerify, user.EmailAddress(), s.verificationTokenTTL())
	if err != nil {
		return err
	}
	return s.emailSender.SendVerificationEmail(ctx, user.EmailAddress(), token)
}

func (s *AccountService) createVerificationToken(
	ctx context.Context,
	userID uuid.UUID,
	typeValue entity.VerificationType,
	target string,
	ttl time.Duration,
) (string, error) {
	rawToken, err := utils.GenerateRandomToken(32)
	if err != nil {
		return "", err
	}

	verification := &entity.VerificationToken{
		UserID:    userID,
		TokenHash: utils.HashToken(rawToken),
		Type:      typeValue,
		Target:    target,
		ExpiresAt: s.now().Add(ttl),
	}
	if err := s.verifications.Create(ctx, verification); err != nil {
		return "", err
	}
	return rawToken, nil
}

func (s *AccountService) buildRefreshToken() (string, string, time.Time, error) {
	rawToken, err := utils.GenerateRandomToken(48)
	if err != nil {
		return "", "", time.Time{}, err
	}
	expiresAt := s.now().Add(s.refreshTokenTTL())
	return rawToken, utils.HashToken(rawToken), expiresAt, nil
}

func (s *AccountService) logSecurity(
	ctx context.Context,
	userID *uuid.UUID,
	ipAddress *string,
	action entity.SecurityAction,
	metadata map[string]any,
) error {
	if s.securityLogs == nil {
		return nil
	}
	var payload datatypes.JSON
	if metadata != nil {
		bytes, err := json.Marshal(metadata)
		if err != nil {
			return err
		}
		payload = datatypes.JSON(bytes)
	}

	log := &entity.SecurityLog{
		UserID:    userID,
		IPAddress: ipAddress,
		Action:    action,
		Metadata:  payload,
	}
	if err := s.securityLogs.Log(ctx, log); err != nil {
		s.logger.WithError(err).WithField("action", action).Warn("write security log")
		return err
	}
	return nil
}

func (s *AccountService) now() time.Time {
	if s.clock == nil {
		return time.Now()
	}
	return s.clock.Now()
}

func (s *AccountService) verificationTokenTTL() time.Duration {
	if s.config.VerificationTokenTTL > 0 {
		return s.config.VerificationTokenTTL
	}
	return 24 * time.Hour
}

func (s *AccountService) resetTokenTTL() time.Duration {
	if s.config.ResetTokenTTL > 0 {
		return s.config.ResetTokenTTL
	}
	return 30 * time.Minute
}

func (s *AccountService) refreshTokenTTL() time.Duration {
	if s.config.RefreshTokenTTL > 0 {
		return s.config.RefreshTokenTTL
	}
	return 30 * 24 * time.Hour
}

func (s *AccountService) phoneCodeTTL() time.Duration {
	if s.config.PhoneCodeTTL > 0 {
		return s.config.PhoneCodeTTL
	}
	return 10 * time.Minute
}
