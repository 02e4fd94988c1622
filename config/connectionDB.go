package config

import (
	"fmt"

	"github.com/amaravindhan/backend-pet/internal/entity"
	"github.com/amaravindhan/backend-pet/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func OpenDatabase(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true, // Disable prepared statements completely
	}), &gorm.Config{
		PrepareStmt:    false,
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
}

// ConnectDatabases opens the default database and every configured alias.
// Schemas are migrated on each of them when AutoMigrate is set.
func ConnectDatabases(cfg Config, log logrus.FieldLogger) (*repository.Databases, error) {
	aliases, err := cfg.AliasDSNs()
	if err != nil {
		return nil, err
	}

	defaultDB, err := OpenDatabase(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect %s database: %w", repository.DefaultAlias, err)
	}
	dbs := repository.NewDatabases(defaultDB)
	for alias, dsn := range aliases {
		db, err := OpenDatabase(dsn)
		if err != nil {
			_ = dbs.Close()
			return nil, fmt.Errorf("connect %s database: %w", alias, err)
		}
		dbs.Register(alias, db)
	}

	for _, alias := range dbs.Aliases() {
		if cfg.AutoMigrate {
			db, _ := dbs.Get(alias)
			if err := Migrate(db); err != nil {
				_ = dbs.Close()
				return nil, fmt.Errorf("migrate %s database: %w", alias, err)
			}
		}
		log.WithField("database", alias).Info("database connected")
	}
	return dbs, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// Models lists every table the service owns, parents first.
func Models() []any {
	return []any{
		&entity.Permission{},
		&entity.Group{},
		&entity.User{},
		&entity.Session{},
		&entity.VerificationToken{},
		&entity.SecurityLog{},
	}
}
