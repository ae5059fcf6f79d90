package config

import (
	"sync/atomic"
)

// Store holds the process-wide default configuration.
// Readers take a snapshot with Current and must treat it as read-only;
// Set and Update publish a new value without affecting existing snapshots.
type Store struct {
	current atomic.Pointer[Config]
}

// NewStore creates a store seeded with cfg, or Default() when cfg is nil
func NewStore(cfg *Config) *Store {
	if cfg == nil {
		cfg = Default()
	}
	s := &Store{}
	s.current.Store(cfg)
	return s
}

// Current returns the active configuration snapshot
func (s *Store) Current() *Config {
	return s.current.Load()
}

// Set validates and publishes cfg
func (s *Store) Set(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.current.Store(cfg)
	return nil
}

// Update applies fn to a copy of the current configuration and publishes it
func (s *Store) Update(fn func(*Config)) error {
	for {
		old := s.current.Load()
		next := old.Clone()
		fn(next)
		if err := next.Validate(); err != nil {
			return err
		}
		if s.current.CompareAndSwap(old, next) {
			return nil
		}
	}
}

var defaultStore = NewStore(nil)

// Defaults returns the process-wide store
func Defaults() *Store {
	return defaultStore
}
