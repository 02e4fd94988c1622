package repository

import (
	"context"
	"errors"

	"github.com/amaravindhan/backend-pet/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PermissionRepository interface {
	EnsurePermission(ctx context.Context, perm *entity.Permission) error
	EnsureGroup(ctx context.Context, name string) (*entity.Group, error)
	FindGroup(ctx context.Context, name string) (*entity.Group, error)
	FindPermission(ctx context.Context, appLabel, codename string) (*entity.Permission, error)
	GrantToGroup(ctx context.Context, groupID uint, perms ...entity.Permission) error
	GrantToUser(ctx context.Context, userID uuid.UUID, perms ...entity.Permission) error
	RevokeFromUser(ctx context.Context, userID uuid.UUID, perms ...entity.Permission) error
	AddUserToGroup(ctx context.Context, userID uuid.UUID, groupID uint) error
	RemoveUserFromGroup(ctx context.Context, userID uuid.UUID, groupID uint) error
}

type permissionRepository struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) PermissionRepository {
	return &permissionRepository{db: db}
}

func (r *permissionRepository) EnsurePermission(ctx context.Context, perm *entity.Permission) error {
	return r.db.WithContext(ctx).
		Where(entity.Permission{AppLabel: perm.AppLabel, Codename: perm.Codename}).
		Attrs(entity.Permission{Name: perm.Name}).
		FirstOrCreate(perm).Error
}

func (r *permissionRepository) EnsureGroup(ctx context.Context, name string) (*entity.Group, error) {
	group := entity.Group{Name: name}
	err := r.db.WithContext(ctx).
		Where(entity.Group{Name: name}).
		FirstOrCreate(&group).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *permissionRepository) FindGroup(ctx context.Context, name string) (*entity.Group, error) {
	var group entity.Group
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *permissionRepository) FindPermission(ctx context.Context, appLabel, codename string) (*entity.Permission, error) {
	var perm entity.Permission
	err := r.db.WithContext(ctx).
		Where("app_label = ? AND codename = ?", appLabel, codename).
		First(&perm).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &perm, nil
}

// Join rows are written directly so the owning user's save hooks and
// validation do not run for a link change.

func (r *permissionRepository) GrantToGroup(ctx context.Context, groupID uint, perms ...entity.Permission) error {
	return r.link(ctx, "group_permissions", "group_id", groupID, perms)
}

func (r *permissionRepository) GrantToUser(ctx context.Context, userID uuid.UUID, perms ...entity.Permission) error {
	return r.link(ctx, "user_user_permissions", "user_id", userID, perms)
}

func (r *permissionRepository) RevokeFromUser(ctx context.Context, userID uuid.UUID, perms ...entity.Permission) error {
	if len(perms) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(perms))
	for _, p := range perms {
		ids = append(ids, p.ID)
	}
	return r.db.WithContext(ctx).
		Exec("DELETE FROM user_user_permissions WHERE user_id = ? AND permission_id IN ?", userID, ids).
		Error
}

func (r *permissionRepository) AddUserToGroup(ctx context.Context, userID uuid.UUID, groupID uint) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Table("user_groups").
		Create(map[string]any{"user_id": userID, "group_id": groupID}).
		Error
}

func (r *permissionRepository) RemoveUserFromGroup(ctx context.Context, userID uuid.UUID, groupID uint) error {
	return r.db.WithContext(ctx).
		Exec("DELETE FROM user_groups WHERE user_id = ? AND group_id = ?", userID, groupID).
		Error
}

func (r *permissionRepository) link(ctx context.Context, table, ownerColumn string, ownerID any, perms []entity.Permission) error {
	if len(perms) == 0 {
		return nil
	}
	rows := make([]map[string]any, 0, len(perms))
	for _, p := range perms {
		rows = append(rows, map[string]any{ownerColumn: ownerID, "permission_id": p.ID})
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Table(table).
		Create(rows).
		Error
}
