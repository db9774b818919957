// Package storage provides the key-value stores behind game persistence.
//
// Four backends implement Store:
//
//	memory           process-local map, lost on exit
//	file:<dir>       one JSON document per key
//	badger:<dir>     embedded BadgerDB
//	sqlite:<path>    single-table SQLite database (pure Go driver)
//
// Keys are plain strings. Session-scoped data uses the "<sessionID>:" prefix
// so Keys can enumerate everything belonging to one player.
package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("storage: key not found")

// Store is a string-keyed byte store. Implementations are safe for
// concurrent use.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	// Keys lists the stored keys starting with prefix in ascending order.
	Keys(prefix string) ([]string, error)

	// Close releases the backend.
	Close() error
}

// Open creates a store from a location string such as "memory",
// "file:sessions", "badger:data/badger" or "sqlite:~/.co2grid/game.db".
func Open(location string, logger *log.Logger) (Store, error) {
	kind, target, _ := strings.Cut(location, ":")

	switch kind {
	case "", "memory", "mem":
		return NewMemoryStore(), nil
	case "file":
		if target == "" {
			target = "sessions"
		}
		return NewFileStore(target)
	case "badger":
		cfg := DefaultBadgerConfig()
		cfg.Logger = logger
		if target == "" || target == "memory" {
			cfg = InMemoryBadgerConfig()
		} else {
			cfg.Path = target
		}
		return OpenBadger(cfg)
	case "sqlite":
		if target == "" {
			return nil, fmt.Errorf("storage: sqlite location needs a path")
		}
		return OpenSQLite(target)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", kind)
	}
}
