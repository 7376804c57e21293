// Package storage selects a stats and users store by driver name.
package storage

import (
	"fmt"
	"strings"

	"github.com/xtding233/giftdraw/internal/stats"
	bboltstore "github.com/xtding233/giftdraw/internal/storage/bbolt"
	"github.com/xtding233/giftdraw/internal/storage/memory"
	sqlitestore "github.com/xtding233/giftdraw/internal/storage/sqlite"
	"github.com/xtding233/giftdraw/internal/users"
)

// Store is what every driver provides.
type Store interface {
	stats.Store
	users.Store
	Close() error
}

// Drivers lists the accepted driver names.
var Drivers = []string{"bbolt", "sqlite", "memory"}

// Open opens the store for driver at path. path is ignored for "memory".
func Open(driver, path string) (Store, error) {
	switch strings.TrimSpace(driver) {
	case "bbolt":
		return bboltstore.Open(path)
	case "sqlite":
		return sqlitestore.Open(path)
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q (want one of %s)", driver, strings.Join(Drivers, ", "))
	}
}
