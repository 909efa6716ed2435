// Package store provides VariableStore backends: an in-memory map, a SQLite
// file and a Redis server shared between hosts.
package store

import (
	"fmt"
	"time"

	"github.com/kilianp07/smartcharge/core/factory"
	"github.com/kilianp07/smartcharge/core/state"
)

// Backend is a VariableStore holding resources.
type Backend interface {
	state.VariableStore
	Close() error
}

// Backends holds the registered backend factories.
var Backends = factory.NewRegistry[Backend]()

func init() {
	Backends.MustRegister("memory", func(map[string]any) (Backend, error) {
		return NewMemoryStore(), nil
	})
	Backends.MustRegister("sqlite", func(conf map[string]any) (Backend, error) {
		var c struct {
			Path string `json:"path"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Path == "" {
			return nil, fmt.Errorf("sqlite store: path is required")
		}
		return NewSQLiteStore(c.Path)
	})
	Backends.MustRegister("redis", func(conf map[string]any) (Backend, error) {
		c := DefaultRedisConfig()
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewRedisStore(c)
	})
}

// New creates the configured backend. An empty type selects memory.
func New(cfg factory.ModuleConfig) (Backend, error) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
	b, err := Backends.Create(cfg)
	if err != nil {
		return nil, fmt.Errorf("variable store: %w", err)
	}
	return b, nil
}

const opTimeout = 2 * time.Second
