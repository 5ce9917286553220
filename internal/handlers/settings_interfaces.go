// Package handlers provides HTTP request handlers for the ftag API.
package handlers

import (
	"context"

	"github.com/blubywaff/ftag/internal/models"
)

// SettingsServiceInterface defines methods required from the settings service.
// An empty clientID selects a server execution context, in which settings
// are neither loaded nor saved.
type SettingsServiceInterface interface {
	// GetSettings loads the settings of a client.
	//
	// Parameters:
	//   - ctx: Context for the operation
	//   - clientID: The calling client, empty for a server context
	//
	// Returns:
	//   - The client's settings with derived flags
	//   - An error if the storage cannot be read
	GetSettings(ctx context.Context, clientID string) (*models.SettingsView, error)

	// UpdateSettings applies a partial update and saves the result.
	//
	// Parameters:
	//   - ctx: Context for the operation
	//   - clientID: The calling client, empty for a server context
	//   - update: The settings values to update
	//
	// Returns:
	//   - The updated settings
	//   - An error if the update is invalid or cannot be saved
	UpdateSettings(ctx context.Context, clientID string, update *models.SettingsUpdate) (*models.SettingsView, error)

	// ResetSettings restores the defaults and saves them.
	ResetSettings(ctx context.Context, clientID string) (*models.SettingsView, error)

	// GetOptions returns the accepted values of each setting.
	GetOptions() *models.SettingsOptions
}

// ClientStorageRemover drops what a client keeps in local storage.
type ClientStorageRemover interface {
	ForgetClient(ctx context.Context, clientID string) error
}
