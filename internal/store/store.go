// Package store persists dashcam alerts for the feed server.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/lanify/monitor/internal/alert"
	"github.com/lanify/monitor/internal/config"
)

// ErrNotFound is returned when no alert has the requested ID.
var ErrNotFound = errors.New("alert not found")

// Filter narrows List. Empty fields match everything.
type Filter struct {
	// VehicleID matches case-insensitively anywhere in the vehicle ID.
	VehicleID string
}

// Store is implemented by the memory and SQLite backends. Returned records
// are copies and safe to retain.
type Store interface {
	Init(ctx context.Context) error
	Save(ctx context.Context, rec *alert.Record) error
	Get(ctx context.Context, id string) (*alert.Record, error)
	List(ctx context.Context, f Filter) ([]*alert.Record, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Open returns the backend selected by cfg.Driver, initialised.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "", "memory":
		s = NewMemory()
	case "sqlite":
		s, err = NewSQLite(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Init(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("init %s store: %w", cfg.Driver, err)
	}
	return s, nil
}
