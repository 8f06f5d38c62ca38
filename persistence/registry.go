package persistence

import (
	"fmt"
	"strings"
	"sync"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DialectorOpener is an alias for a function that returns a gorm.Dialector for a given DSN.
type DialectorOpener = func(string) gorm.Dialector

var (
	registryMu sync.RWMutex
	openers    = make(map[string]DialectorOpener)
)

func init() {
	Register("sqlite", openSQLite)
	Register("postgres", postgres.Open)
	Register("mysql", mysql.Open)
}

// openSQLite forces case-sensitive LIKE on every pooled connection.
// SQLite compares ASCII case-insensitively by default, which would make
// substring filters behave differently from the other dialects.
func openSQLite(dsn string) gorm.Dialector {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return sqlite.Open(dsn + sep + "_pragma=case_sensitive_like(1)")
}

// Register adds a database provider to the registry.
func Register(name string, opener DialectorOpener) {
	registryMu.Lock()
	defer registryMu.Unlock()
	openers[name] = opener
}

// NewStore opens a database by registered provider name and returns a
// repository backed by it, migrating the resource and relationship
// tables unless skipMigrate is set.
func NewStore(name, dsn string, skipMigrate bool) (*Repository, error) {
	registryMu.RLock()
	opener, ok := openers[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("persistence: unknown database provider %q", name)
	}

	db, err := gorm.Open(opener(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	repo := NewRepository(db)
	if !skipMigrate {
		if err := repo.AutoMigrate(); err != nil {
			return nil, err
		}
	}
	return repo, nil
}
