package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/amaravindhan/backend-pet/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type MockUserRepository struct {
	mock.Mock
	UserRepository
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*entity.User)
	return user, args.Error(1)
}

func (m *MockUserRepository) FindByPhone(ctx context.Context, phone string) (*entity.User, error) {
	args := m.Called(ctx, phone)
	user, _ := args.Get(0).(*entity.User)
	return user, args.Error(1)
}

func (m *MockUserRepository) Save(ctx context.Context, user *entity.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type memoryCache struct {
	items   map[string]entity.User
	deleted []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string]entity.User{}}
}

func (c *memoryCache) Get(_ context.Context, key string) (*entity.User, error) {
	user, ok := c.items[key]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (c *memoryCache) Set(_ context.Context, key string, user *entity.User) error {
	c.items[key] = *user
	return nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(c.items, key)
		c.deleted = append(c.deleted, key)
	}
	return nil
}

func TestCachedUserRepository_ReadThrough(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	user := &entity.User{ID: id, PhoneNumber: "+15551234567", FullName: "Ada"}

	inner := new(MockUserRepository)
	inner.On("FindByID", ctx, id).Return(user, nil).Once()

	cache := newMemoryCache()
	repo := NewCachedUserRepository(inner, cache, "")

	first, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Ada", first.FullName)

	second, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Ada", second.FullName)

	assert.Contains(t, cache.items, "user:default:id:"+id.String())
	inner.AssertExpectations(t)
}

func TestCachedUserRepository_MissIsNotCached(t *testing.T) {
	ctx := context.Background()
	inner := new(MockUserRepository)
	inner.On("FindByPhone", ctx, "5550000000").Return(nil, nil).Twice()

	cache := newMemoryCache()
	repo := NewCachedUserRepository(inner, cache, "replica")

	for i := 0; i < 2; i++ {
		user, err := repo.FindByPhone(ctx, "5550000000")
		require.NoError(t, err)
		assert.Nil(t, user)
	}
	assert.Empty(t, cache.items)
	inner.AssertExpectations(t)
}

func TestCachedUserRepository_SaveInvalidates(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	cache := newMemoryCache()
	cache.items["user:default:id:"+id.String()] = entity.User{ID: id, PhoneNumber: "5551112222"}
	cache.items["user:default:phone:5551112222"] = entity.User{ID: id, PhoneNumber: "5551112222"}

	renumbered := &entity.User{ID: id, PhoneNumber: "5553334444"}
	inner := new(MockUserRepository)
	inner.On("Save", ctx, renumbered).Return(nil)

	repo := NewCachedUserRepository(inner, cache, DefaultAlias)
	require.NoError(t, repo.Save(ctx, renumbered))

	assert.Empty(t, cache.items)
	assert.Contains(t, cache.deleted, "user:default:phone:5553334444")
	assert.Contains(t, cache.deleted, "user:default:phone:5551112222")
}

func TestCachedUserRepository_FailedWriteKeepsCache(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	cache := newMemoryCache()
	cache.items["user:default:id:"+id.String()] = entity.User{ID: id}

	inner := new(MockUserRepository)
	inner.On("Delete", ctx, id).Return(errors.New("db down"))

	repo := NewCachedUserRepository(inner, cache, DefaultAlias)
	assert.Error(t, repo.Delete(ctx, id))
	assert.Len(t, cache.items, 1)
}

func TestDatabases(t *testing.T) {
	primary := &gorm.DB{}
	dbs := NewDatabases(primary)

	db, err := dbs.Get("")
	require.NoError(t, err)
	assert.Same(t, primary, db)

	_, err = dbs.Get("analytics")
	assert.ErrorIs(t, err, ErrUnknownDatabase)

	replica := &gorm.DB{}
	dbs.Register("replica", replica)
	db, err = dbs.Get("replica")
	require.NoError(t, err)
	assert.Same(t, replica, db)
	assert.Equal(t, []string{"default", "replica"}, dbs.Aliases())
}

func TestUserRouterRejectsUnknownAlias(t *testing.T) {
	router := NewUserRouter(NewDatabases(&gorm.DB{}), nil)

	repo, err := router.Users("")
	require.NoError(t, err)
	again, err := router.Users(DefaultAlias)
	require.NoError(t, err)
	assert.Same(t, repo, again)

	_, err = router.Users("missing")
	assert.ErrorIs(t, err, ErrUnknownDatabase)
}

func TestTranslate(t *testing.T) {
	err := translate(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey))
	assert.ErrorIs(t, err, ErrDuplicate)

	other := errors.New("timeout")
	assert.Equal(t, other, translate(other))
	assert.NoError(t, translate(nil))
}
