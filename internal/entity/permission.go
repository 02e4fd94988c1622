package entity

import (
	"strings"
	"time"
)

// Permission is a capability named "<app_label>.<codename>".
type Permission struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"type:varchar(255);not null" json:"name"`
	AppLabel string `gorm:"type:varchar(100);not null;uniqueIndex:ux_permission_app_codename" json:"app_label"`
	Codename string `gorm:"type:varchar(100);not null;uniqueIndex:ux_permission_app_codename" json:"codename"`
}

func (p Permission) Key() string {
	return p.AppLabel + "." + p.Codename
}

// UserModelPermissions are the add, change, delete and view permissions of
// the accounts.user model.
func UserModelPermissions() []Permission {
	actions := []string{"add", "change", "delete", "view"}
	perms := make([]Permission, 0, len(actions))
	for _, action := range actions {
		perms = append(perms, Permission{
			Name:     "Can " + action + " user",
			AppLabel: "accounts",
			Codename: action + "_user",
		})
	}
	return perms
}

type Group struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"type:varchar(150);uniqueIndex;not null" json:"name"`
	Permissions []Permission `gorm:"many2many:group_permissions;" json:"permissions,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// The permission queries below read the loaded Groups and UserPermissions;
// callers preload them first.

func (u *User) GetUserPermissions() map[string]struct{} {
	if !u.IsActive {
		return map[string]struct{}{}
	}
	perms := make(map[string]struct{}, len(u.UserPermissions))
	for _, p := range u.UserPermissions {
		perms[p.Key()] = struct{}{}
	}
	return perms
}

func (u *User) GetGroupPermissions() map[string]struct{} {
	perms := map[string]struct{}{}
	if !u.IsActive {
		return perms
	}
	for _, g := range u.Groups {
		for _, p := range g.Permissions {
			perms[p.Key()] = struct{}{}
		}
	}
	return perms
}

func (u *User) GetAllPermissions() map[string]struct{} {
	perms := u.GetUserPermissions()
	for key := range u.GetGroupPermissions() {
		perms[key] = struct{}{}
	}
	return perms
}

// HasPerm reports whether the user holds perm. Active superusers hold every
// permission and inactive users hold none.
func (u *User) HasPerm(perm string) bool {
	if !u.IsActive {
		return false
	}
	if u.IsSuperuser {
		return true
	}
	_, ok := u.GetAllPermissions()[perm]
	return ok
}

func (u *User) HasPerms(perms ...string) bool {
	for _, perm := range perms {
		if !u.HasPerm(perm) {
			return false
		}
	}
	return true
}

// HasModulePerms reports whether the user holds any permission in appLabel.
func (u *User) HasModulePerms(appLabel string) bool {
	if !u.IsActive {
		return false
	}
	if u.IsSuperuser {
		return true
	}
	prefix := appLabel + "."
	for key := range u.GetAllPermissions() {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}
