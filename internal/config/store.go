package config

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanun0323/logs"

	"trader/pkg/exception"
)

// Loader reads and resolves settings from path.
type Loader func(path string) (Settings, error)

// ReloadError is returned when the backing file cannot be used. The Store
// keeps serving the previous snapshot.
type ReloadError struct {
	Path string
	Err  error
}

func (e *ReloadError) Error() string {
	return fmt.Sprintf("reload config %s: %v", e.Path, e.Err)
}

func (e *ReloadError) Unwrap() error {
	return e.Err
}

func (e *ReloadError) Is(target error) bool {
	return target == exception.ErrConfigReload
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLoader replaces the file loader, mostly for tests.
func WithLoader(l Loader) StoreOption {
	return func(s *Store) { s.loader = l }
}

// Store is the process wide settings holder. Every read returns one whole
// snapshot; Reload swaps snapshots atomically so readers never observe a
// mix of old and new fields.
type Store struct {
	path   string
	loader Loader

	v        atomic.Value // Settings
	mu       sync.Mutex   // serializes reloads
	version  atomic.Uint64
	reloads  atomic.Uint64
	failures atomic.Uint64
}

// Open loads path and returns a Store holding the result.
func Open(path string, opts ...StoreOption) (*Store, error) {
	s := newStore(path, opts...)
	loaded, err := s.loader(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	s.publish(loaded)
	return s, nil
}

// NewStore wraps already resolved settings. Reload reads from path.
func NewStore(path string, initial Settings, opts ...StoreOption) *Store {
	s := newStore(path, opts...)
	s.publish(initial)
	return s
}

func newStore(path string, opts ...StoreOption) *Store {
	s := &Store{
		path:   path,
		loader: Load,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the current snapshot.
func (s *Store) Load() Settings {
	return s.v.Load().(Settings)
}

// Version returns the version of the current snapshot.
func (s *Store) Version() uint64 {
	return s.Load().Version
}

// Reload re-reads the backing file. On failure the previous snapshot stays
// in place and a *ReloadError is returned.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	loaded, err := s.loader(s.path)
	if err != nil {
		s.failures.Add(1)
		return &ReloadError{Path: s.path, Err: err}
	}
	prev := s.Load()
	next := s.publish(loaded)
	s.reloads.Add(1)
	if prev.Connector != next.Connector || prev.Broker != next.Broker || prev.Reporter != next.Reporter {
		logs.Infof("config: capability selection changed in %s, restart required to apply (connector=%s broker=%s reporter=%s)",
			s.path, next.Connector, next.Broker, next.Reporter)
	}
	return nil
}

// Update publishes settings directly.
func (s *Store) Update(settings Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publish(settings)
}

// Reloads returns the number of successful reloads.
func (s *Store) Reloads() uint64 {
	return s.reloads.Load()
}

// Failures returns the number of failed reloads.
func (s *Store) Failures() uint64 {
	return s.failures.Load()
}

func (s *Store) publish(settings Settings) Settings {
	settings.Version = s.version.Add(1)
	if settings.LoadedAt.IsZero() {
		settings.LoadedAt = time.Now().UTC()
	}
	s.v.Store(settings)
	return settings
}
