// Package settings holds a client's display preferences and persists them
// in the client's local storage.
//
// A Store follows an explicit lifecycle: construct, Load, read or mutate, Save.
// Load and Save only reach storage when the injected Environment reports a
// client execution context; otherwise they return immediately.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/blubywaff/ftag/internal/constants"
	"github.com/blubywaff/ftag/internal/models"
)

// Store is the single source of truth for one client's settings.
// All methods are safe for concurrent use.
type Store struct {
	storage  Storage
	env      Environment
	key      string
	defaults func() models.Settings

	mu          sync.RWMutex
	current     models.Settings
	nextID      int
	subscribers map[int]func(models.Settings)
}

// Option configures a Store.
type Option func(*Store)

// WithDefaults overrides the settings a fresh or reset store holds.
// Defaults with an unknown tag view are ignored.
func WithDefaults(defaults models.Settings) Option {
	return func(s *Store) {
		s.defaults = func() models.Settings { return defaults }
	}
}

// New creates a store holding the default settings.
//
// Parameters:
//   - storage: The client's local storage; may be nil when env never reports a client
//   - env: The execution-context flag consulted by Load and Save
//   - opts: Optional overrides
//
// Returns:
//   - A store initialized with a copy of the defaults
func New(storage Storage, env Environment, opts ...Option) *Store {
	s := &Store{
		storage:     storage,
		env:         env,
		key:         constants.SettingsStorageKey,
		defaults:    models.DefaultSettings,
		subscribers: make(map[int]func(models.Settings)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.env == nil {
		s.env = Server
	}
	if defaults := s.defaults(); !defaults.Valid() {
		log.Warn().
			Str("default_tag_view", defaults.DefaultTagView.String()).
			Msg("Invalid default settings, using built-in defaults")
		s.defaults = models.DefaultSettings
	}
	s.current = s.defaults()
	return s
}

// IsClient reports whether the store runs in a client execution context.
func (s *Store) IsClient() bool {
	return s.env.IsClient()
}

// Load replaces the in-memory settings with the stored snapshot.
// A missing snapshot yields the defaults. A corrupt snapshot also yields the
// defaults, and the returned error wraps ErrCorruptSettings.
func (s *Store) Load(ctx context.Context) error {
	if !s.env.IsClient() {
		return nil
	}

	raw, ok, err := s.storage.GetItem(ctx, s.key)
	if err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}

	next := s.defaults()
	var loadErr error
	if ok {
		decoded, err := decode(raw, next)
		if err != nil {
			log.Warn().
				Err(err).
				Str("category", constants.LogCategorySettings).
				Str("event", constants.LogEventSettingsCorrupt).
				Str("key", s.key).
				Msg("Stored settings are corrupt, falling back to defaults")
			loadErr = fmt.Errorf("%w: %v", ErrCorruptSettings, err)
		} else {
			next = decoded
		}
	}

	s.replace(next)
	return loadErr
}

// Save writes the in-memory settings to storage, overwriting the prior value.
func (s *Store) Save(ctx context.Context) error {
	if !s.env.IsClient() {
		return nil
	}

	data, err := json.Marshal(s.Settings())
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	if err := s.storage.SetItem(ctx, s.key, string(data)); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}

	log.Debug().
		Str("category", constants.LogCategorySettings).
		Str("event", constants.LogEventSettingsSave).
		Str("key", s.key).
		Msg("Settings saved")
	return nil
}

// Settings returns a snapshot of the current settings.
func (s *Store) Settings() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// ShowTags reports whether tags are displayed.
func (s *Store) ShowTags() bool {
	return s.Settings().ShowTags()
}

// ShowTagEdit reports whether tag editing controls are displayed.
func (s *Store) ShowTagEdit() bool {
	return s.Settings().ShowTagEdit()
}

// Set replaces the current settings.
func (s *Store) Set(next models.Settings) error {
	if !next.DefaultTagView.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTagView, next.DefaultTagView)
	}
	s.replace(next)
	return nil
}

// Apply partially updates the current settings.
func (s *Store) Apply(update *models.SettingsUpdate) error {
	s.mu.Lock()
	next := s.current.Apply(update)
	if !next.DefaultTagView.Valid() {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrInvalidTagView, next.DefaultTagView)
	}
	s.current = next
	subs := s.snapshotSubscribers()
	s.mu.Unlock()

	notify(subs, next)
	return nil
}

// Reset restores the defaults in memory. Call Save to persist them.
func (s *Store) Reset() {
	s.replace(s.defaults())
}

// Subscribe registers fn to be called with a snapshot after every change.
// The returned function removes the subscription.
func (s *Store) Subscribe(fn func(models.Settings)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) replace(next models.Settings) {
	s.mu.Lock()
	s.current = next
	subs := s.snapshotSubscribers()
	s.mu.Unlock()

	notify(subs, next)
}

// snapshotSubscribers must be called with mu held.
func (s *Store) snapshotSubscribers() []func(models.Settings) {
	subs := make([]func(models.Settings), 0, len(s.subscribers))
	for i := 0; i < s.nextID; i++ {
		if fn, ok := s.subscribers[i]; ok {
			subs = append(subs, fn)
		}
	}
	return subs
}

func notify(subs []func(models.Settings), snapshot models.Settings) {
	for _, fn := range subs {
		fn(snapshot)
	}
}

// decode parses raw over base, so fields absent from raw keep their base value.
func decode(raw string, base models.Settings) (models.Settings, error) {
	decoded := base
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return models.Settings{}, err
	}
	if !decoded.DefaultTagView.Valid() {
		return models.Settings{}, fmt.Errorf("%w: %q", ErrInvalidTagView, decoded.DefaultTagView)
	}
	return decoded, nil
}
