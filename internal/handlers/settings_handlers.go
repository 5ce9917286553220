package handlers

import (
	"net/http"

	"github.com/blubywaff/ftag/internal/auth"
	"github.com/blubywaff/ftag/internal/constants"
	"github.com/blubywaff/ftag/internal/models"
	"github.com/blubywaff/ftag/internal/utils"
)

// SettingsHandler handles settings-related routes
type SettingsHandler struct {
	settingsService SettingsServiceInterface
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(settingsService SettingsServiceInterface) *SettingsHandler {
	return &SettingsHandler{
		settingsService: settingsService,
	}
}

// GetSettings returns the calling client's settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	clientID := auth.ClientIDFromContext(r.Context())

	settings, err := h.settingsService.GetSettings(r.Context(), clientID)
	if err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	utils.JSON(w, constants.StatusOK, settings)
}

// UpdateSettings updates the calling client's settings
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	clientID := auth.ClientIDFromContext(r.Context())

	var update models.SettingsUpdate
	if err := utils.DecodeAndValidate(r, &update); err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	settings, err := h.settingsService.UpdateSettings(r.Context(), clientID, &update)
	if err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	utils.JSON(w, constants.StatusOK, settings)
}

// ResetSettings restores the calling client's settings to the defaults
func (h *SettingsHandler) ResetSettings(w http.ResponseWriter, r *http.Request) {
	clientID := auth.ClientIDFromContext(r.Context())

	settings, err := h.settingsService.ResetSettings(r.Context(), clientID)
	if err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	utils.JSON(w, constants.StatusOK, settings)
}

// GetOptions returns the accepted values of each setting
func (h *SettingsHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	utils.JSON(w, constants.StatusOK, h.settingsService.GetOptions())
}
