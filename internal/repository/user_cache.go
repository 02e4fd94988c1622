package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/amaravindhan/backend-pet/internal/entity"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type UserCache interface {
	Get(ctx context.Context, key string) (*entity.User, error)
	Set(ctx context.Context, key string, user *entity.User) error
	Delete(ctx context.Context, keys ...string) error
}

type redisUserCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisUserCache(client *redis.Client, ttl time.Duration) UserCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &redisUserCache{client: client, ttl: ttl}
}

func (c *redisUserCache) Get(ctx context.Context, key string) (*entity.User, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var user entity.User
	if err := json.Unmarshal(val, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *redisUserCache) Set(ctx context.Context, key string, user *entity.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

func (c *redisUserCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// cachedUserRepository reads users through the cache and drops the cached
// copies on every write. Cache failures fall back to the database.
type cachedUserRepository struct {
	UserRepository
	cache  UserCache
	prefix string
}

func NewCachedUserRepository(inner UserRepository, cache UserCache, alias string) UserRepository {
	if alias == "" {
		alias = DefaultAlias
	}
	return &cachedUserRepository{UserRepository: inner, cache: cache, prefix: "user:" + alias + ":"}
}

func (r *cachedUserRepository) idKey(id uuid.UUID) string {
	return r.prefix + "id:" + id.String()
}

func (r *cachedUserRepository) phoneKey(phone string) string {
	return r.prefix + "phone:" + phone
}

func (r *cachedUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return r.readThrough(ctx, r.idKey(id), func() (*entity.User, error) {
		return r.UserRepository.FindByID(ctx, id)
	})
}

func (r *cachedUserRepository) FindByPhone(ctx context.Context, phone string) (*entity.User, error) {
	return r.readThrough(ctx, r.phoneKey(phone), func() (*entity.User, error) {
		return r.UserRepository.FindByPhone(ctx, phone)
	})
}

func (r *cachedUserRepository) readThrough(ctx context.Context, key string, load func() (*entity.User, error)) (*entity.User, error) {
	if cached, err := r.cache.Get(ctx, key); err == nil && cached != nil {
		return cached, nil
	}
	user, err := load()
	if err != nil || user == nil {
		return user, err
	}
	_ = r.cache.Set(ctx, key, user)
	return user, nil
}

func (r *cachedUserRepository) Create(ctx context.Context, user *entity.User) error {
	if err := r.UserRepository.Create(ctx, user); err != nil {
		return err
	}
	r.invalidate(ctx, user.ID, user.PhoneNumber)
	return nil
}

func (r *cachedUserRepository) Save(ctx context.Context, user *entity.User) error {
	if err := r.UserRepository.Save(ctx, user); err != nil {
		return err
	}
	r.invalidate(ctx, user.ID, user.PhoneNumber)
	return nil
}

func (r *cachedUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.UserRepository.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, id, "")
	return nil
}

func (r *cachedUserRepository) invalidate(ctx context.Context, id uuid.UUID, phone string) {
	keys := []string{r.idKey(id)}
	if phone != "" {
		keys = append(keys, r.phoneKey(phone))
	}
	// the phone key of a renumbered user is only known from the cached copy
	if cached, err := r.cache.Get(ctx, r.idKey(id)); err == nil && cached != nil && cached.PhoneNumber != phone {
		keys = append(keys, r.phoneKey(cached.PhoneNumber))
	}
	_ = r.cache.Delete(ctx, keys...)
}
