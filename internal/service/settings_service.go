// Package service provides business logic implementations for the ftag application.
// It contains services that orchestrate operations across repositories and storage
// backends and implement the core application functionality.
//
// This file implements the settings service, which serves each client's display
// preferences from that client's local storage.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/blubywaff/ftag/internal/constants"
	"github.com/blubywaff/ftag/internal/models"
	"github.com/blubywaff/ftag/internal/settings"
	"github.com/blubywaff/ftag/internal/utils"
)

// StorageProvider hands out the local storage of a single client.
type StorageProvider interface {
	ForClient(clientID string) settings.Storage
}

// StorageProviderFunc adapts a function to a StorageProvider.
type StorageProviderFunc func(clientID string) settings.Storage

// ForClient calls f.
func (f StorageProviderFunc) ForClient(clientID string) settings.Storage {
	return f(clientID)
}

// ClientRemover is implemented by providers that can drop a client's whole
// local storage at once.
type ClientRemover interface {
	RemoveClient(ctx context.Context, clientID string) error
}

// SettingsService handles settings operations for the application.
// Each call builds a fresh settings store bound to the calling client's storage.
// Calls without a client identity run in a server context: nothing is read or
// written and the defaults are returned.
type SettingsService struct {
	storage StorageProvider
	opts    []settings.Option
}

// NewSettingsService creates a new SettingsService.
//
// Parameters:
//   - storage: Provider of per-client local storage
//   - opts: Options applied to every settings store, such as server-wide defaults
//
// Returns:
//   - A new SettingsService instance
func NewSettingsService(storage StorageProvider, opts ...settings.Option) *SettingsService {
	return &SettingsService{
		storage: storage,
		opts:    opts,
	}
}

// newStore builds the store for clientID and reports whether it persists.
func (s *SettingsService) newStore(clientID string) (*settings.Store, bool) {
	if clientID == "" {
		return settings.New(nil, settings.Server, s.opts...), false
	}
	return settings.New(s.storage.ForClient(clientID), settings.Client, s.opts...), true
}

// load builds and loads the store for clientID.
func (s *SettingsService) load(ctx context.Context, clientID string) (*settings.Store, bool, error) {
	store, persisted := s.newStore(clientID)

	// The store has already fallen back to the defaults and logged a corrupt snapshot
	if err := store.Load(ctx); err != nil && !errors.Is(err, settings.ErrCorruptSettings) {
		return nil, false, fmt.Errorf("failed to load settings: %w", err)
	}

	return store, persisted, nil
}

// GetSettings retrieves the settings of a client.
//
// Parameters:
//   - ctx: Context for the operation
//   - clientID: The calling client, empty for a server context
//
// Returns:
//   - The client's settings with their derived flags
//   - An error if the client's storage cannot be read
func (s *SettingsService) GetSettings(ctx context.Context, clientID string) (*models.SettingsView, error) {
	store, persisted, err := s.load(ctx, clientID)
	if err != nil {
		return nil, err
	}

	return models.NewSettingsView(store.Settings(), persisted), nil
}

// UpdateSettings applies a partial update to a client's settings and saves them.
// DefaultExcludes is stored in its canonical sorted form; entries that are not
// valid tags reject the whole update.
//
// Parameters:
//   - ctx: Context for the operation
//   - clientID: The calling client, empty for a server context
//   - update: The fields to change
//
// Returns:
//   - The updated settings with their derived flags
//   - A validation error for an unknown tag view or invalid exclude tags
func (s *SettingsService) UpdateSettings(ctx context.Context, clientID string, update *models.SettingsUpdate) (*models.SettingsView, error) {
	if update != nil && update.DefaultExcludes != nil {
		var excludes models.TagSet
		if rejected := excludes.FillFromString(*update.DefaultExcludes); len(rejected) > 0 {
			return nil, utils.NewInvalidTagsError("defaultExcludes", rejected)
		}
		canonical := excludes.String()
		normalized := *update
		normalized.DefaultExcludes = &canonical
		update = &normalized
	}

	store, persisted, err := s.load(ctx, clientID)
	if err != nil {
		return nil, err
	}

	if err := store.Apply(update); err != nil {
		return nil, fmt.Errorf("failed to apply settings update: %w", err)
	}

	if err := store.Save(ctx); err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}

	current := store.Settings()
	log.Info().
		Str("category", constants.LogCategorySettings).
		Str("event", constants.LogEventSettingsSave).
		Str(constants.ClientIDContextKey, clientID).
		Str("default_tag_view", current.DefaultTagView.String()).
		Bool("persisted", persisted).
		Msg("Settings updated")

	return models.NewSettingsView(current, persisted), nil
}

// ResetSettings restores a client's settings to the defaults and saves them.
func (s *SettingsService) ResetSettings(ctx context.Context, clientID string) (*models.SettingsView, error) {
	store, persisted := s.newStore(clientID)
	store.Reset()

	if err := store.Save(ctx); err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}

	log.Info().
		Str("category", constants.LogCategorySettings).
		Str("event", constants.LogEventSettingsSave).
		Str(constants.ClientIDContextKey, clientID).
		Bool("persisted", persisted).
		Msg("Settings reset to defaults")

	return models.NewSettingsView(store.Settings(), persisted), nil
}

// ForgetClient drops everything kept in a client's local storage. Providers
// that cannot drop a whole client have the settings document removed instead.
// A server context has no storage and nothing to forget.
func (s *SettingsService) ForgetClient(ctx context.Context, clientID string) error {
	if clientID == "" {
		return nil
	}

	var err error
	if remover, ok := s.storage.(ClientRemover); ok {
		err = remover.RemoveClient(ctx, clientID)
	} else {
		err = s.storage.ForClient(clientID).RemoveItem(ctx, constants.SettingsStorageKey)
	}
	if err != nil {
		return fmt.Errorf("failed to forget client storage: %w", err)
	}

	log.Info().
		Str("category", constants.LogCategorySettings).
		Str(constants.ClientIDContextKey, clientID).
		Msg("Client local storage dropped")

	return nil
}

// DefaultExcludes returns the tags a client excludes from queries by default.
func (s *SettingsService) DefaultExcludes(ctx context.Context, clientID string) (models.TagSet, error) {
	store, _, err := s.load(ctx, clientID)
	if err != nil {
		return models.TagSet{}, err
	}
	return store.Settings().ExcludeTags(), nil
}

// GetOptions returns the accepted values of each setting.
func (s *SettingsService) GetOptions() *models.SettingsOptions {
	return models.NewSettingsOptions()
}
