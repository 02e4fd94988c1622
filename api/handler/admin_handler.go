package handler

import (
	"context"
	"net/http"

	"github.com/amaravindhan/backend-pet/api/middleware"
	"github.com/amaravindhan/backend-pet/internal/dto"
	"github.com/amaravindhan/backend-pet/internal/entity"
	"github.com/amaravindhan/backend-pet/internal/repository"
	"github.com/amaravindhan/backend-pet/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Admin is the staff-facing part of service.AccountService.
type Admin interface {
	CreateStaffUser(ctx context.Context, database string, input service.RegisterInput) (*entity.User, error)
	CreateSuperuser(ctx context.Context, database string, input service.RegisterInput) (*entity.User, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*entity.User, error)
	ListUsers(ctx context.Context, filter repository.UserFilter) ([]entity.User, int64, error)
	Deactivate(ctx context.Context, userID uuid.UUID, ipAddress *string) (*entity.User, error)
	Activate(ctx context.Context, userID uuid.UUID, ipAddress *string) (*entity.User, error)
	Delete(ctx context.Context, userID uuid.UUID, ipAddress *string) error
	SetStaff(ctx context.Context, userID uuid.UUID, staff bool, ipAddress *string) (*entity.User, error)
	UserPermissions(ctx context.Context, userID uuid.UUID) ([]string, error)
	GrantPermission(ctx context.Context, userID uuid.UUID, perm string) error
	RevokePermission(ctx context.Context, userID uuid.UUID, perm string) error
	AddToGroup(ctx context.Context, userID uuid.UUID, groupName string) error
	RemoveFromGroup(ctx context.Context, userID uuid.UUID, groupName string) error
	GrantGroupPermission(ctx context.Context, groupName string, perm string) error
	SecurityLogs(ctx context.Context, userID uuid.UUID, limit int) ([]entity.SecurityLog, error)
}

type AdminHandler struct {
	Service  Admin
	Validate *validator.Validate
}

func NewAdminHandler(svc Admin, validate *validator.Validate) *AdminHandler {
	return &AdminHandler{Service: svc, Validate: validate}
}

func (h *AdminHandler) ListUsers(c echo.Context) error {
	limit, offset := parseLimitOffset(c)
	filter := repository.UserFilter{Limit: limit, Offset: offset}

	if raw := c.QueryParam("user_type"); raw != "" {
		userType, ok := entity.ParseUserType(raw)
		if !ok {
			return writeError(c, http.StatusBadRequest, service.ErrInvalidInput)
		}
		filter.UserType = &userType
	}
	var err error
	if filter.IsActive, err = parseBool(c, "is_active"); err != nil {
		return writeError(c, http.StatusBadRequest, service.ErrInvalidInput)
	}
	if filter.IsStaff, err = parseBool(c, "is_staff"); err != nil {
		return writeError(c, http.StatusBadRequest, service.ErrInvalidInput)
	}

	users, total, err := h.Service.ListUsers(c.Request().Context(), filter)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.UserListResponse{
		Users:  dto.UserResponsesFromEntities(users),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

func (h *AdminHandler) GetUser(c echo.Context) error {
	userID, err := pathUserID(c)
	if err != nil {
		return writeError(c, http.StatusBadRequest, errInvalidUserID)
	}
	user, err := h.Service.GetUser(c.Request().Context(), userID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.UserResponseFromEntity(user))
}

func (h *AdminHandler) CreateStaffUser(c echo.Context) error {
	return h.create(c, h.Service.CreateStaffUser)
}

func (h *AdminHandler) CreateSuperuser(c echo.Context) error {
	return h.create(c, h.Service.CreateSuperuser)
}

func (h *AdminHandler) create(c echo.Context, create func(context.Context, string, service.RegisterInput) (*entity.User, error)) error {
	var req dto.CreateUserRequest
	if ok, err := bind(c, h.Validate, &req); !ok {
		return err
	}
	user, err := create(c.Request().Context(), c.QueryParam("database"), service.RegisterInput{
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
		Password:    req.Password,
		FullName:    req.FullName,
		Username:    req.Username,
		UserType:    entity.UserType(req.UserType),
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, dto.UserResponseFromEntity(user))
}

func (h *AdminHandler) Deactivate(c echo.Context) error {
	return h.toggle(c, h.Service.Deactivate)
}

func (h *AdminHandler) Activate(c echo.Context) error {
	return h.toggle(c, h.Service.Activate)
}

func (h *AdminHandler) toggle(c echo.Context, apply func(context.Context, uuid.UUID, *string) (*entity.User, error)) error {
	userID, err := pathUserID(c)
	if err != nil {
		return writeError(c, http.StatusBadRequest, errInvalidUserID)
	}
	if self, ok := middleware.UserIDFromContext(c); ok && self == userID {
		return writeError(c, http.StatusBadRequest, service.ErrInvalidInput)
	}
	user, err := apply(c.Request().Context(), userID, stringPtr(c.RealIP()))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.UserResponseFromEntity(user))
}

func (h *AdminHandler) Delete(c echo.Context) error {
	userID, err := pathUserID(c)
	if err != nil {
		return writeError(c, http.StatusBadRequest, errInvalidUserID)
	}
	if self, ok := middleware.UserIDFromContext(c); ok && self == userID {
		return writeError(c, http.StatusBadRequest, service.ErrInvalidInput)
	}
	if err := h.Service.Delete(c.Request().Context(), userID, stringPtr(c.RealIP())); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandler) SetStaff(c echo.Context) error {
	userID, err := pathUserID(c)
	if err != nil {
		return writeError(c, http.StatusBadRequest, errInvalidUserID)
	}
	var req dto.SetStaffRequest
	if ok, err := bind(c, h.Validate, &req); !ok {
		return err
	}
	user, err := h.Service.SetStaff(c.Request().Context(), userID, *req.IsStaff, stringPtr(c.RealIP()))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.UserResponseFromEntity(user))
}

func (h *AdminHandler) Permissions(c echo.Context) error {
	userID, err := pathUserID(c)
	if err != nil {
		return writeError(c, http.StatusBadRequest, errInvalidUserID)
	}
	perms, err := h.Service.UserPermissions(c.Request().Context(), userID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.PermissionsResponse{Permissions: perms})
}

func (h *AdminHandler) GrantPermission(c echo.Context) error {
	userID, err := pathUserID(c)
	if err != nil {
		return writeError(c, http.StatusBadRequest, errInvalidUserID)
	}
	var req dto.GrantPermissionRequest
	if ok, err := bind(c, h.Validate, &req); !ok {
		return err
	}
	if err := h.Service.GrantPermission(c.Request().Context(), userID, req.Permission); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandler) AddToGroup(c echo.Context) error {
	userID, err := pathUserID(c)
	if err != nil {
		return writeError(c, http.StatusBadRequest, errInvalidUserID)
	}
	var req dto.AddGroupRequest
	if ok, err := bind(c, h.Validate, &req); !ok {
		return err
	}
	if err := h.Service.AddToGroup(c.Request().Context(), userID, req.Group); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandler) RevokePermission(c echo.Context) error {
	userID, err := pathUserID(c)
	if err != nil {
		return writeError(c, http.StatusBadRequest, errInvalidUserID)
	}
	if err := h.Service.RevokePermission(c.Request().Context(), userID, c.Param("perm")); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandler) RemoveFromGroup(c echo.Context) error {
	userID, err := pathUserID(c)
	if err != nil {
		return writeError(c, http.StatusBadRequest, errInvalidUserID)
	}
	if err := h.Service.RemoveFromGroup(c.Request().Context(), userID, c.Param("group")); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandler) GrantGroupPermission(c echo.Context) error {
	var req dto.GroupPermissionRequest
	if ok, err := bind(c, h.Validate, &req); !ok {
		return err
	}
	if err := h.Service.GrantGroupPermission(c.Request().Context(), c.Param("name"), req.Permission); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandler) SecurityLogs(c echo.Context) error {
	userID, err := pathUserID(c)
	if err != nil {
		return writeError(c, http.StatusBadRequest, errInvalidUserID)
	}
	limit, _ := parseLimitOffset(c)
	logs, err := h.Service.SecurityLogs(c.Request().Context(), userID, limit)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.SecurityLogListResponse{Logs: dto.SecurityLogResponsesFromEntities(logs)})
}
