package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/amaravindhan/backend-pet/api/middleware"
	"github.com/amaravindhan/backend-pet/internal/dto"
	"github.com/amaravindhan/backend-pet/internal/entity"
	"github.com/amaravindhan/backend-pet/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Accounts is the self-service part of service.AccountService.
type Accounts interface {
	Register(ctx context.Context, input service.RegisterInput) (*entity.User, error)
	Login(ctx context.Context, input service.LoginInput) (*service.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*service.LoginResult, error)
	Logout(ctx context.Context, sessionID uuid.UUID, userID *uuid.UUID, ipAddress *string) error
	LogoutAll(ctx context.Context, userID uuid.UUID, ipAddress *string) error
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword string, newPassword string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token string, newPassword string) error
	RequestEmailVerification(ctx context.Context, userID uuid.UUID) error
	VerifyEmail(ctx context.Context, token string) error
	RequestPhoneVerification(ctx context.Context, userID uuid.UUID) error
	VerifyPhone(ctx context.Context, userID uuid.UUID, code string) error
	UpdateProfile(ctx context.Context, userID uuid.UUID, update service.ProfileUpdate) (*entity.User, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*entity.User, error)
	UserPermissions(ctx context.Context, userID uuid.UUID) ([]string, error)
}

type AccountHandler struct {
	Service           Accounts
	Validate          *validator.Validate
	RefreshCookieName string
	CookieDomain      string
	SecureCookies     bool
	SameSite          http.SameSite
}

func NewAccountHandler(svc Accounts, validate *validator.Validate) *AccountHandler {
	return &AccountHandler{
		Service:           svc,
		Validate:          validate,
		RefreshCookieName: "refresh_token",
		SecureCookies:     true,
		SameSite:          http.SameSiteStrictMode,
	}
}

func (h *AccountHandler) Register(c echo.Context) error {
	var req dto.RegisterRequest
	if ok, err := bind(c, h.Validate, &req); !ok {
		return err
	}
	user, err := h.Service.Register(c.Request().Context(), service.RegisterInput{
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

func (h *AccountHandler) Login(c echo.Context) error {
	var req dto.LoginRequest
	if ok, err := bind(c, h.Validate, &req); !ok {
		return err
	}
	result, err := h.Service.Login(c.Request().Context(), service.LoginInput{
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
		DeviceID:    req.DeviceID,
		DeviceName:  req.DeviceName,
		IPAddress:   stringPtr(c.RealIP()),
		UserAgent:   stringPtr(c.Request().UserAgent()),
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return h.writeLogin(c, result)
}

func (h *AccountHandler) Refresh(c echo.Context) error {
	refreshToken := h.readRefreshCookie(c)
	if refreshToken == "" {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	result, err := h.Service.Refresh(c.Request().Context(), refreshToken)
	if err != nil {
		return writeServiceError(c, err)
	}
	return h.writeLogin(c, result)
}

func (h *AccountHandler) Logout(c echo.Context) error {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	if err := h.Service.Logout(c.Request().Context(), principal.SessionID, &principal.UserID, stringPtr(c.RealIP())); err != nil {
		return writeServiceError(c, err)
	}
	h.clearRefreshCookie(c)
	return c.NoContent(http.StatusNoContent)
}

func (h *AccountHandler) LogoutAll(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	if err := h.Service.LogoutAll(c.Request().Context(), userID, stringPtr(c.RealIP())); err != nil {
		return writeServiceError(c, err)
	}
	h.clearRefreshCookie(c)
	return c.NoContent(http.StatusNoContent)
}

func (h *AccountHandler) PasswordForgot(c echo.Context) error {
	var req dto.PasswordForgotRequest
	if ok, err := bind(c, h.Validate, &req); !ok {
		return err
	}
	if err := h.Service.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusAccepted)
}

func (h *AccountHandler) PasswordReset(c echo.Context) error {
	var req dto.PasswordResetRequest
	if ok, err := bind(c, h.Validate, &req); !ok {
		return err
	}
	if err := h.Service.ResetPassword(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AccountHandler) VerifyEmail(c echo.Context) error {
	var req dto.VerifyEmailRequest
	if ok, err := bind(c, h.Validate, &req); !ok {
		return err
	}
	if err := h.Service.VerifyEmail(c.Request().Context(), req.Token); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AccountHandler) Me(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	user, err := h.Service.GetUser(c.Request().Context(), userID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.UserResponseFromEntity(user))
}

func (h *AccountHandler) UpdateMe(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	var req dto.UpdateProfileRequest
	if ok, err := bind(c, h.Validate, &req); !ok {
		return err
	}
	update := service.ProfileUpdate{FullName: req.FullName, Username: req.Username, Email: req.Email}
	if req.UserType != nil {
		userType := entity.UserType(*req.UserType)
		update.UserType = &userType
	}
	user, err := h.Service.UpdateProfile(c.Request().Context(), userID, update)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.UserResponseFromEntity(user))
}

func (h *AccountHandler) ChangePassword(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	var req dto.ChangePasswordRequest
	if ok, err := bind(c, h.Validate, &req); !ok {
		return err
	}
	if err := h.Service.ChangePassword(c.Request().Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		return writeServiceError(c, err)
	}
	h.clearRefreshCookie(c)
	return c.NoContent(http.StatusNoContent)
}

func (h *AccountHandler) RequestEmailVerification(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	if err := h.Service.RequestEmailVerification(c.Request().Context(), userID); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusAccepted)
}

func (h *AccountHandler) RequestPhoneVerification(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	if err := h.Service.RequestPhoneVerification(c.Request().Context(), userID); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusAccepted)
}

func (h *AccountHandler) VerifyPhone(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	var req dto.VerifyPhoneRequest
	if ok, err := bind(c, h.Validate, &req); !ok {
		return err
	}
	if err := h.Service.VerifyPhone(c.Request().Context(), userID, req.Code); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AccountHandler) MyPermissions(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errUnauthorized)
	}
	perms, err := h.Service.UserPermissions(c.Request().Context(), userID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.PermissionsResponse{Permissions: perms})
}

// writeLogin moves the refresh token into an HTTP-only cookie.
func (h *AccountHandler) writeLogin(c echo.Context, result *service.LoginResult) error {
	h.setRefreshCookie(c, result.RefreshToken, result.RefreshExpiresIn)
	response := dto.LoginResponse{
		AccessToken: result.AccessToken,
		ExpiresIn:   result.ExpiresIn,
	}
	if result.User != nil {
		user := dto.UserResponseFromEntity(result.User)
		response.User = &user
	}
	return c.JSON(http.StatusOK, response)
}

func (h *AccountHandler) setRefreshCookie(c echo.Context, token string, expiresIn int64) {
	if token == "" {
		return
	}
	maxAge := int(expiresIn)
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetCookie(&http.Cookie{
		Name:     h.RefreshCookieName,
		Value:    token,
		Path:     "/auth",
		Domain:   h.CookieDomain,
		MaxAge:   maxAge,
		Expires:  time.Now().Add(time.Duration(expiresIn) * time.Second),
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: h.SameSite,
	})
}

func (h *AccountHandler) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     h.RefreshCookieName,
		Value:    "",
		Path:     "/auth",
		Domain:   h.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: h.SameSite,
	})
}

func (h *AccountHandler) readRefreshCookie(c echo.Context) string {
	cookie, err := c.Cookie(h.RefreshCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
