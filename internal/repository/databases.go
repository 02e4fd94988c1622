package repository

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"gorm.io/gorm"
)

const DefaultAlias = "default"

var (
	ErrUnknownDatabase = errors.New("unknown database alias")
	ErrDuplicate       = errors.New("duplicate record")
)

// Databases holds one connection per alias. The default alias is always
// present.
type Databases struct {
	mu  sync.RWMutex
	dbs map[string]*gorm.DB
}

func NewDatabases(defaultDB *gorm.DB) *Databases {
	return &Databases{dbs: map[string]*gorm.DB{DefaultAlias: defaultDB}}
}

func (d *Databases) Register(alias string, db *gorm.DB) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dbs[alias] = db
}

func (d *Databases) Get(alias string) (*gorm.DB, error) {
	if alias == "" {
		alias = DefaultAlias
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	db, ok := d.dbs[alias]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDatabase, alias)
	}
	return db, nil
}

func (d *Databases) Default() *gorm.DB {
	db, _ := d.Get(DefaultAlias)
	return db
}

func (d *Databases) Aliases() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	aliases := make([]string, 0, len(d.dbs))
	for alias := range d.dbs {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}

func (d *Databases) Close() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var errs []error
	for alias, db := range d.dbs {
		if db == nil {
			continue
		}
		sqlDB, err := db.DB()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", alias, err))
			continue
		}
		if err := sqlDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", alias, err))
		}
	}
	return errors.Join(errs...)
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}
