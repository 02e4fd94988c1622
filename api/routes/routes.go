package routes

import (
	"net/http"
	"time"

	"github.com/amaravindhan/backend-pet/api/handler"
	"github.com/amaravindhan/backend-pet/api/middleware"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

type Router struct {
	Echo           *echo.Echo
	Accounts       *handler.AccountHandler
	Admin          *handler.AdminHandler
	AuthMiddleware middleware.AuthMiddleware
	AuthRate       *middleware.RateLimiter
	LoginRate      *middleware.RateLimiter
	Health         echo.HandlerFunc
}

func NewRouter(e *echo.Echo, accounts *handler.AccountHandler, admin *handler.AdminHandler, authMiddleware middleware.AuthMiddleware) *Router {
	return &Router{
		Echo:           e,
		Accounts:       accounts,
		Admin:          admin,
		AuthMiddleware: authMiddleware,
		AuthRate:       middleware.NewRateLimiter(rate.Limit(5), 10, 5*time.Minute),
		LoginRate:      middleware.NewRateLimiter(rate.Limit(2), 4, 10*time.Minute),
		Health: func(c echo.Context) error {
			return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
		},
	}
}

func (r *Router) RegisterRoutes() {
	e := r.Echo
	requireAuth := r.AuthMiddleware.RequireAuth

	e.GET("/healthz", r.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.POST("/accounts/register", r.Accounts.Register, r.AuthRate.Middleware())

	auth := e.Group("/auth")
	auth.POST("/login", r.Accounts.Login, r.LoginRate.Middleware())
	auth.POST("/refresh", r.Accounts.Refresh, r.AuthRate.Middleware())
	auth.POST("/logout", r.Accounts.Logout, requireAuth)
	auth.POST("/logout-all", r.Accounts.LogoutAll, requireAuth)
	auth.POST("/verify-email", r.Accounts.VerifyEmail, r.AuthRate.Middleware())
	auth.POST("/password/forgot", r.Accounts.PasswordForgot, r.LoginRate.Middleware())
	auth.POST("/password/reset", r.Accounts.PasswordReset, r.AuthRate.Middleware())

	me := e.Group("/me", requireAuth)
	me.GET("", r.Accounts.Me)
	me.PATCH("", r.Accounts.UpdateMe)
	me.GET("/permissions", r.Accounts.MyPermissions)
	me.POST("/password", r.Accounts.ChangePassword)
	me.POST("/verify/email/request", r.Accounts.RequestEmailVerification, r.AuthRate.Middleware())
	me.POST("/verify/phone/request", r.Accounts.RequestPhoneVerification, r.LoginRate.Middleware())
	me.POST("/verify/phone", r.Accounts.VerifyPhone, r.LoginRate.Middleware())

	admin := e.Group("/admin", requireAuth, middleware.RequireStaff)
	admin.GET("/users", r.Admin.ListUsers)
	admin.GET("/users/:id", r.Admin.GetUser)
	admin.POST("/users/:id/deactivate", r.Admin.Deactivate)
	admin.POST("/users/:id/activate", r.Admin.Activate)
	admin.DELETE("/users/:id", r.Admin.Delete)
	admin.GET("/users/:id/permissions", r.Admin.Permissions)
	admin.GET("/users/:id/security-logs", r.Admin.SecurityLogs)

	superuser := middleware.RequireSuperuser
	admin.POST("/staff", r.Admin.CreateStaffUser, superuser)
	admin.POST("/superusers", r.Admin.CreateSuperuser, superuser)
	admin.POST("/users/:id/staff", r.Admin.SetStaff, superuser)
	admin.POST("/users/:id/permissions", r.Admin.GrantPermission, superuser)
	admin.DELETE("/users/:id/permissions/:perm", r.Admin.RevokePermission, superuser)
	admin.POST("/users/:id/groups", r.Admin.AddToGroup, superuser)
	admin.DELETE("/users/:id/groups/:group", r.Admin.RemoveFromGroup, superuser)
	admin.POST("/groups/:name/permissions", r.Admin.GrantGroupPermission, superuser)
}
