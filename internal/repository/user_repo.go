package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/amaravindhan/backend-pet/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	Save(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByPhone(ctx context.Context, phone string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindWithPermissions(ctx context.Context, id uuid.UUID) (*entity.User, error)
	List(ctx context.Context, filter UserFilter) ([]entity.User, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type UserFilter struct {
	UserType *entity.UserType
	IsActive *bool
	IsStaff  *bool
	Limit    int
	Offset   int
}

// UserRouter hands out a user repository bound to a database alias.
type UserRouter interface {
	Users(alias string) (UserRepository, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(user).Error)
}

func (r *userRepository) Save(ctx context.Context, user *entity.User) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Save(user).Error)
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *userRepository) FindByPhone(ctx context.Context, phone string) (*entity.User, error) {
	return r.first(r.db.WithContext(ctx).Where("phone_number = ?", phone))
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.first(r.db.WithContext(ctx).Where("email = ?", email))
}

func (r *userRepository) FindWithPermissions(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	query := r.db.WithContext(ctx).
		Preload("UserPermissions").
		Preload("Groups.Permissions").
		Where("id = ?", id)
	return r.first(query)
}

func (r *userRepository) first(query *gorm.DB) (*entity.User, error) {
	var user entity.User
	err := query.First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]entity.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.User{})
	if filter.UserType != nil {
		query = query.Where("user_type = ?", *filter.UserType)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.IsStaff != nil {
		query = query.Where("is_staff = ?", *filter.IsStaff)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("date_joined DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	var users []entity.User
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Select(clause.Associations).
		Delete(&entity.User{ID: id}).
		Error
}

type userRouter struct {
	dbs   *Databases
	cache UserCache

	mu    sync.Mutex
	repos map[string]UserRepository
}

// NewUserRouter routes user repositories over dbs. A nil cache disables
// caching.
func NewUserRouter(dbs *Databases, cache UserCache) UserRouter {
	return &userRouter{dbs: dbs, cache: cache, repos: map[string]UserRepository{}}
}

func (r *userRouter) Users(alias string) (UserRepository, error) {
	if alias == "" {
		alias = DefaultAlias
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if repo, ok := r.repos[alias]; ok {
		return repo, nil
	}
	db, err := r.dbs.Get(alias)
	if err != nil {
		return nil, err
	}
	repo := NewUserRepository(db)
	if r.cache != nil {
		repo = NewCachedUserRepository(repo, r.cache, alias)
	}
	r.repos[alias] = repo
	return repo, nil
}
