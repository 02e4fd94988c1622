// Command createsuperuser creates an account with every permission.
//
//	createsuperuser -phone +15551234567 -email root@example.com -name "Site Admin" [-database replica]
//
// Flags fall back to ACCOUNTS_SUPERUSER_* environment variables. An empty
// password leaves the account without a usable one.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/amaravindhan/backend-pet/config"
	"github.com/amaravindhan/backend-pet/internal/entity"
	"github.com/amaravindhan/backend-pet/internal/repository"
	"github.com/amaravindhan/backend-pet/internal/service"
	"github.com/amaravindhan/backend-pet/internal/validation"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

type options struct {
	Phone    string `envconfig:"PHONE"`
	Email    string `envconfig:"EMAIL"`
	FullName string `envconfig:"FULL_NAME"`
	Username string `envconfig:"USERNAME"`
	Password string `envconfig:"PASSWORD"`
	Database string `envconfig:"DATABASE" default:"default"`
}

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	os.Exit(run(context.Background(), os.Args[1:], os.Stderr, logger))
}

// run returns the process exit code.
func run(ctx context.Context, args []string, stderr io.Writer, logger logrus.FieldLogger) int {
	opts, err := parseOptions(args, stderr)
	if err != nil {
		logger.WithError(err).Error("invalid arguments")
		return exitUsage
	}
	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Error("load config")
		return exitError
	}

	dbs, err := config.ConnectDatabases(cfg, logger)
	if err != nil {
		logger.WithError(err).Error("connect databases")
		return exitError
	}
	defer dbs.Close()

	var userCache repository.UserCache
	if client, err := config.NewRedisClient(ctx, cfg); err == nil && client != nil {
		defer client.Close()
		userCache = repository.NewRedisUserCache(client, cfg.UserCacheTTL)
	}

	var events service.EventPublisher = service.NoopEventPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := service.NewKafkaEventPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer publisher.Close()
		events = publisher
	}

	manager := service.NewUserManager(
		repository.NewUserRouter(dbs, userCache),
		service.BcryptPasswordHasher{Cost: cfg.BcryptCost},
		events,
		service.RealClock{},
		logger,
	)

	user, err := createSuperuser(ctx, manager, opts)
	switch {
	case errors.Is(err, service.ErrUserAlreadyExists):
		logger.WithField("phone_number", opts.Phone).Info("superuser already exists")
	case err != nil:
		logger.WithError(err).Error("create superuser")
		return exitError
	default:
		logger.WithFields(logrus.Fields{
			"user_id":  user.ID.String(),
			"database": opts.Database,
		}).Info("superuser created")
	}
	return exitOK
}

// parseOptions reads ACCOUNTS_SUPERUSER_* first so flags can override it.
func parseOptions(args []string, output io.Writer) (options, error) {
	var opts options
	if err := envconfig.Process("accounts_superuser", &opts); err != nil {
		return options{}, err
	}

	fs := flag.NewFlagSet("createsuperuser", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&opts.Phone, "phone", opts.Phone, "phone number used to log in")
	fs.StringVar(&opts.Email, "email", opts.Email, "email address")
	fs.StringVar(&opts.FullName, "name", opts.FullName, "full name")
	fs.StringVar(&opts.Username, "username", opts.Username, "optional username")
	fs.StringVar(&opts.Password, "password", opts.Password, "password; empty sets an unusable one")
	fs.StringVar(&opts.Database, "database", opts.Database, "database alias")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if opts.Phone == "" || opts.FullName == "" {
		return options{}, fmt.Errorf("phone and name are required")
	}
	if err := validation.Phone(opts.Phone); err != nil {
		return options{}, err
	}
	return opts, nil
}

func createSuperuser(ctx context.Context, manager *service.UserManager, opts options) (*entity.User, error) {
	manager, err := manager.Using(opts.Database)
	if err != nil {
		return nil, err
	}
	fields := service.UserFields{PhoneNumber: opts.Phone, FullName: opts.FullName}
	if opts.Username != "" {
		fields.Username = &opts.Username
	}
	return manager.CreateSuperuser(ctx, opts.Email, opts.Password, fields)
}
