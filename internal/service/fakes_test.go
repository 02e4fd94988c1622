package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/amaravindhan/backend-pet/internal/entity"
	"github.com/amaravindhan/backend-pet/internal/repository"

	"github.com/google/uuid"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func (c *fixedClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// memoryUsers mimics the users table: validation on save and unique
// phone, email and username.
type memoryUsers struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]entity.User
	links   *memoryPermissions
	creates int
	saves   int
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{rows: map[uuid.UUID]entity.User{}}
}

func (r *memoryUsers) Create(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(user); err != nil {
		return err
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.rows[user.ID] = *user
	r.creates++
	return nil
}

func (r *memoryUsers) Save(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(user); err != nil {
		return err
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.rows[user.ID] = *user
	r.saves++
	return nil
}

func (r *memoryUsers) check(user *entity.User) error {
	user.ApplyDefaults(time.Now())
	if err := user.Validate(); err != nil {
		return err
	}
	for id, row := range r.rows {
		if id == user.ID {
			continue
		}
		if row.PhoneNumber == user.PhoneNumber {
			return fmt.Errorf("%w: phone_number", repository.ErrDuplicate)
		}
		if row.Email != nil && user.Email != nil && *row.Email == *user.Email {
			return fmt.Errorf("%w: email", repository.ErrDuplicate)
		}
		if row.Username != nil && user.Username != nil && *row.Username == *user.Username {
			return fmt.Errorf("%w: username", repository.ErrDuplicate)
		}
	}
	return nil
}

func (r *memoryUsers) find(match func(entity.User) bool) *entity.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if match(row) {
			found := row
			return &found
		}
	}
	return nil
}

func (r *memoryUsers) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return u.ID == id }), nil
}

func (r *memoryUsers) FindByPhone(_ context.Context, phone string) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return u.PhoneNumber == phone }), nil
}

func (r *memoryUsers) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return u.Email != nil && *u.Email == email }), nil
}

func (r *memoryUsers) FindWithPermissions(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	user, err := r.FindByID(ctx, id)
	if user != nil && r.links != nil {
		r.links.attach(user)
	}
	return user, err
}

func (r *memoryUsers) List(_ context.Context, filter repository.UserFilter) ([]entity.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var users []entity.User
	for _, row := range r.rows {
		if filter.UserType != nil && row.UserType != *filter.UserType {
			continue
		}
		if filter.IsActive != nil && row.IsActive != *filter.IsActive {
			continue
		}
		if filter.IsStaff != nil && row.IsStaff != *filter.IsStaff {
			continue
		}
		users = append(users, row)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].PhoneNumber < users[j].PhoneNumber })
	return users, int64(len(users)), nil
}

func (r *memoryUsers) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
	return nil
}

func (r *memoryUsers) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

type memoryRouter struct {
	repos map[string]*memoryUsers
}

func newMemoryRouter(aliases ...string) *memoryRouter {
	router := &memoryRouter{repos: map[string]*memoryUsers{repository.DefaultAlias: newMemoryUsers()}}
	for _, alias := range aliases {
		router.repos[alias] = newMemoryUsers()
	}
	return router
}

func (r *memoryRouter) Users(alias string) (repository.UserRepository, error) {
	if alias == "" {
		alias = repository.DefaultAlias
	}
	repo, ok := r.repos[alias]
	if !ok {
		return nil, fmt.Errorf("%w: %q", repository.ErrUnknownDatabase, alias)
	}
	return repo, nil
}

type memorySessions struct {
	rows map[uuid.UUID]*entity.Session
}

func newMemorySessions() *memorySessions {
	return &memorySessions{rows: map[uuid.UUID]*entity.Session{}}
}

func (r *memorySessions) Create(_ context.Context, s *entity.Session) error {
	s.ID = uuid.New()
	copied := *s
	r.rows[s.ID] = &copied
	return nil
}

func (r *memorySessions) FindByTokenHash(_ context.Context, hash string) (*entity.Session, error) {
	for _, s := range r.rows {
		if s.TokenHash == hash && s.RevokedAt == nil {
			copied := *s
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memorySessions) RotateToken(_ context.Context, id uuid.UUID, hash string, expiresAt time.Time) error {
	if s, ok := r.rows[id]; ok {
		s.TokenHash = hash
		s.ExpiresAt = expiresAt
	}
	return nil
}

func (r *memorySessions) Revoke(_ context.Context, id uuid.UUID) error {
	if s, ok := r.rows[id]; ok {
		now := time.Now()
		s.RevokedAt = &now
	}
	return nil
}

func (r *memorySessions) RevokeAllByUser(_ context.Context, userID uuid.UUID) error {
	now := time.Now()
	for _, s := range r.rows {
		if s.UserID == userID && s.RevokedAt == nil {
			s.RevokedAt = &now
		}
	}
	return nil
}

func (r *memorySessions) CleanupExpired(context.Context) (int64, error) {
	return 0, nil
}

func (r *memorySessions) activeFor(userID uuid.UUID) int {
	n := 0
	for _, s := range r.rows {
		if s.UserID == userID && s.RevokedAt == nil {
			n++
		}
	}
	return n
}

type memoryVerifications struct {
	clock *fixedClock
	rows  []*entity.VerificationToken
}

func (r *memoryVerifications) Create(_ context.Context, t *entity.VerificationToken) error {
	t.ID = uuid.New()
	t.CreatedAt = r.clock.Now()
	copied := *t
	r.rows = append(r.rows, &copied)
	return nil
}

func (r *memoryVerifications) valid(t *entity.VerificationToken) bool {
	return t.UsedAt == nil && r.clock.Now().Before(t.ExpiresAt)
}

func (r *memoryVerifications) FindValid(_ context.Context, hash string, typ entity.VerificationType) (*entity.VerificationToken, error) {
	for _, t := range r.rows {
		if t.TokenHash == hash && t.Type == typ && r.valid(t) {
			copied := *t
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memoryVerifications) FindLatestForUser(_ context.Context, userID uuid.UUID, typ entity.VerificationType) (*entity.VerificationToken, error) {
	for i := len(r.rows) - 1; i >= 0; i-- {
		t := r.rows[i]
		if t.UserID == userID && t.Type == typ && r.valid(t) {
			copied := *t
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memoryVerifications) MarkUsed(_ context.Context, id uuid.UUID) error {
	now := r.clock.Now()
	for _, t := range r.rows {
		if t.ID == id {
			t.UsedAt = &now
		}
	}
	return nil
}

func (r *memoryVerifications) InvalidateForUser(_ context.Context, userID uuid.UUID, typ entity.VerificationType) error {
	now := r.clock.Now()
	for _, t := range r.rows {
		if t.UserID == userID && t.Type == typ && t.UsedAt == nil {
			t.UsedAt = &now
		}
	}
	return nil
}

type memorySecurityLogs struct {
	entries []entity.SecurityLog
}

func (r *memorySecurityLogs) Log(_ context.Context, log *entity.SecurityLog) error {
	r.entries = append(r.entries, *log)
	return nil
}

func (r *memorySecurityLogs) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]entity.SecurityLog, error) {
	var logs []entity.SecurityLog
	for i := len(r.entries) - 1; i >= 0 && len(logs) < limit; i-- {
		if e := r.entries[i]; e.UserID != nil && *e.UserID == userID {
			logs = append(logs, e)
		}
	}
	return logs, nil
}

func (r *memorySecurityLogs) actions() []entity.SecurityAction {
	actions := make([]entity.SecurityAction, 0, len(r.entries))
	for _, e := range r.entries {
		actions = append(actions, e.Action)
	}
	return actions
}

type recordingPublisher struct {
	events []UserEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event UserEvent) error {
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []string {
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

type capturingEmailSender struct {
	verifications map[string]string
	resets        map[string]string
}

func newCapturingEmailSender() *capturingEmailSender {
	return &capturingEmailSender{verifications: map[string]string{}, resets: map[string]string{}}
}

func (s *capturingEmailSender) SendVerificationEmail(_ context.Context, email string, token string) error {
	s.verifications[email] = token
	return nil
}

func (s *capturingEmailSender) SendPasswordResetEmail(_ context.Context, email string, token string) error {
	s.resets[email] = token
	return nil
}

type capturingSMSSender struct {
	codes map[string]string
}

func (s *capturingSMSSender) SendVerificationCode(_ context.Context, phone string, code string) error {
	s.codes[phone] = code
	return nil
}

// memoryPermissions keeps permission, group and link rows and attaches them
// to users loaded through memoryUsers.FindWithPermissions.
type memoryPermissions struct {
	perms      []entity.Permission
	groups     []*entity.Group
	userPerms  map[uuid.UUID]map[uint]bool
	userGroups map[uuid.UUID]map[uint]bool
}

func newMemoryPermissions(users *memoryUsers) *memoryPermissions {
	p := &memoryPermissions{
		userPerms:  map[uuid.UUID]map[uint]bool{},
		userGroups: map[uuid.UUID]map[uint]bool{},
	}
	users.links = p
	return p
}

func (p *memoryPermissions) EnsurePermission(_ context.Context, perm *entity.Permission) error {
	for _, existing := range p.perms {
		if existing.AppLabel == perm.AppLabel && existing.Codename == perm.Codename {
			*perm = existing
			return nil
		}
	}
	perm.ID = uint(len(p.perms) + 1)
	p.perms = append(p.perms, *perm)
	return nil
}

func (p *memoryPermissions) EnsureGroup(ctx context.Context, name string) (*entity.Group, error) {
	if group, _ := p.FindGroup(ctx, name); group != nil {
		return group, nil
	}
	group := &entity.Group{ID: uint(len(p.groups) + 1), Name: name}
	p.groups = append(p.groups, group)
	return group, nil
}

func (p *memoryPermissions) FindGroup(_ context.Context, name string) (*entity.Group, error) {
	for _, group := range p.groups {
		if group.Name == name {
			return group, nil
		}
	}
	return nil, nil
}

func (p *memoryPermissions) FindPermission(_ context.Context, appLabel, codename string) (*entity.Permission, error) {
	for _, perm := range p.perms {
		if perm.AppLabel == appLabel && perm.Codename == codename {
			found := perm
			return &found, nil
		}
	}
	return nil, nil
}

func (p *memoryPermissions) GrantToGroup(_ context.Context, groupID uint, perms ...entity.Permission) error {
	for _, group := range p.groups {
		if group.ID == groupID {
			group.Permissions = append(group.Permissions, perms...)
		}
	}
	return nil
}

func (p *memoryPermissions) GrantToUser(_ context.Context, userID uuid.UUID, perms ...entity.Permission) error {
	linkIDs(p.userPerms, userID, perms, true)
	return nil
}

func (p *memoryPermissions) RevokeFromUser(_ context.Context, userID uuid.UUID, perms ...entity.Permission) error {
	linkIDs(p.userPerms, userID, perms, false)
	return nil
}

func (p *memoryPermissions) AddUserToGroup(_ context.Context, userID uuid.UUID, groupID uint) error {
	if p.userGroups[userID] == nil {
		p.userGroups[userID] = map[uint]bool{}
	}
	p.userGroups[userID][groupID] = true
	return nil
}

func (p *memoryPermissions) RemoveUserFromGroup(_ context.Context, userID uuid.UUID, groupID uint) error {
	delete(p.userGroups[userID], groupID)
	return nil
}

func (p *memoryPermissions) attach(user *entity.User) {
	for _, perm := range p.perms {
		if p.userPerms[user.ID][perm.ID] {
			user.UserPermissions = append(user.UserPermissions, perm)
		}
	}
	for _, group := range p.groups {
		if p.userGroups[user.ID][group.ID] {
			user.Groups = append(user.Groups, *group)
		}
	}
}

func linkIDs(links map[uuid.UUID]map[uint]bool, userID uuid.UUID, perms []entity.Permission, granted bool) {
	if links[userID] == nil {
		links[userID] = map[uint]bool{}
	}
	for _, perm := range perms {
		if granted {
			links[userID][perm.ID] = true
		} else {
			delete(links[userID], perm.ID)
		}
	}
}
