package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amaravindhan/backend-pet/api/handler"
	apiMiddleware "github.com/amaravindhan/backend-pet/api/middleware"
	"github.com/amaravindhan/backend-pet/api/routes"
	"github.com/amaravindhan/backend-pet/config"
	"github.com/amaravindhan/backend-pet/internal/repository"
	"github.com/amaravindhan/backend-pet/internal/service"
	"github.com/amaravindhan/backend-pet/internal/utils"
	"github.com/amaravindhan/backend-pet/internal/validation"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("load config")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbs, err := config.ConnectDatabases(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("connect databases")
	}
	defer dbs.Close()

	var userCache repository.UserCache
	redisClient, err := config.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.WithError(err).Warn("user cache disabled")
	} else if redisClient != nil {
		defer redisClient.Close()
		userCache = repository.NewRedisUserCache(redisClient, cfg.UserCacheTTL)
	}

	var events service.EventPublisher = service.NoopEventPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := service.NewKafkaEventPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer publisher.Close()
		events = publisher
	}

	var emailSender service.EmailSender
	if sender := service.NewResendEmailSender(cfg.ResendAPIKey, cfg.EmailFrom, cfg.AppBaseURL); sender != nil {
		emailSender = sender
	} else {
		logger.Warn("email delivery disabled")
	}

	accessManager := utils.JWTManager{
		Secret:         []byte(cfg.JWTSecret),
		Issuer:         cfg.JWTIssuer,
		AccessTokenTTL: cfg.AccessTokenTTL,
	}

	users := repository.NewUserRouter(dbs, userCache)
	defaultUsers, err := users.Users(repository.DefaultAlias)
	if err != nil {
		logger.WithError(err).Fatal("user repository")
	}
	db := dbs.Default()
	sessionRepo := repository.NewSessionRepository(db)

	passwordHasher := service.BcryptPasswordHasher{Cost: cfg.BcryptCost}
	manager := service.NewUserManager(users, passwordHasher, events, service.RealClock{}, logger)

	accountService := service.NewAccountService(
		manager,
		defaultUsers,
		sessionRepo,
		repository.NewVerificationTokenRepository(db),
		repository.NewSecurityLogRepository(db),
		repository.NewPermissionRepository(db),
		emailSender,
		service.LogSMSSender{Logger: logger},
		passwordHasher,
		service.JWTAccessIssuer{Manager: &accessManager},
		service.NewTOTPCodeProvider(cfg.OTPIssuer, cfg.PhoneCodeTTL),
		events,
		service.RealClock{},
		service.AccountConfig{
			AccessTokenTTL:       cfg.AccessTokenTTL,
			RefreshTokenTTL:      cfg.RefreshTokenTTL,
			VerificationTokenTTL: cfg.VerificationTokenTTL,
			ResetTokenTTL:        cfg.ResetTokenTTL,
			PhoneCodeTTL:         cfg.PhoneCodeTTL,
		},
		logger,
	)

	if err := accountService.SeedPermissions(ctx); err != nil {
		logger.WithError(err).Warn("seed permissions")
	}

	validate := validation.New()
	accountHandler := handler.NewAccountHandler(accountService, validate)
	accountHandler.CookieDomain = cfg.CookieDomain
	accountHandler.SecureCookies = cfg.CookieSecure
	adminHandler := handler.NewAdminHandler(accountService, validate)

	app := echo.New()
	app.HideBanner = true
	app.HidePort = true
	app.Use(echoMiddleware.Recover())
	app.Use(echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogStatus:   true,
		LogMethod:   true,
		LogURI:      true,
		LogRemoteIP: true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			entry := logger.WithFields(logrus.Fields{
				"status":  v.Status,
				"method":  v.Method,
				"uri":     v.URI,
				"ip":      v.RemoteIP,
				"latency": v.Latency.String(),
			})
			if v.Error != nil {
				entry.WithError(v.Error).Error("request")
				return nil
			}
			entry.Info("request")
			return nil
		},
	}))

	authMiddleware := apiMiddleware.AuthMiddleware{JWT: &accessManager}
	router := routes.NewRouter(app, accountHandler, adminHandler, authMiddleware)
	router.RegisterRoutes()

	go cleanupSessions(ctx, sessionRepo, logger)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("shutdown")
		}
	}()

	logger.WithField("addr", cfg.HTTPAddr).Info("server started")
	if err := app.StartServer(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("server stopped")
	}
}

func cleanupSessions(ctx context.Context, sessions repository.SessionRepository, logger logrus.FieldLogger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := sessions.CleanupExpired(ctx)
			if err != nil {
				logger.WithError(err).Warn("cleanup expired sessions")
				continue
			}
			if removed > 0 {
				logger.WithField("removed", removed).Info("expired sessions removed")
			}
		}
	}
}
