package handlers

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/blubywaff/ftag/internal/auth"
	"github.com/blubywaff/ftag/internal/constants"
	"github.com/blubywaff/ftag/internal/utils"
)

// ClientHandler hands out client identities.
// A client identity turns later requests into a client execution context,
// in which settings are persisted to that client's local storage.
type ClientHandler struct {
	tokens  auth.TokenIssuer
	storage ClientStorageRemover
}

// ClientInfo describes the identity of the caller
type ClientInfo struct {
	ClientID string `json:"clientId,omitempty"`
	Client   bool   `json:"client"`
}

// NewClientHandler creates a new ClientHandler
func NewClientHandler(tokens auth.TokenIssuer, storage ClientStorageRemover) *ClientHandler {
	return &ClientHandler{tokens: tokens, storage: storage}
}

// IssueClient issues a client token, sets it as a cookie and returns it.
// A caller that already has a client identity gets a renewed token for it.
func (h *ClientHandler) IssueClient(w http.ResponseWriter, r *http.Request) {
	var (
		issued *auth.ClientToken
		err    error
	)
	if clientID, ok := auth.GetClientID(r); ok {
		issued, err = h.tokens.IssueTokenFor(clientID)
	} else {
		issued, err = h.tokens.IssueToken()
	}
	if err != nil {
		utils.ErrorFromAppError(w, utils.NewInternalServerError(err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.tokens.GetConfig().Cookie,
		Value:    issued.Token,
		Path:     "/",
		Expires:  issued.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	log.Info().Str("client_id", issued.ClientID).Msg("Client token issued")

	utils.JSON(w, constants.StatusCreated, issued)
}

// GetClient reports whether the request runs in a client execution context
func (h *ClientHandler) GetClient(w http.ResponseWriter, r *http.Request) {
	clientID, ok := auth.GetClientID(r)
	utils.JSON(w, constants.StatusOK, ClientInfo{ClientID: clientID, Client: ok})
}

// ForgetClient drops the caller's local storage and clears the client cookie.
// Later requests without a token run in a server context. The cookie is kept
// when the storage cannot be dropped.
func (h *ClientHandler) ForgetClient(w http.ResponseWriter, r *http.Request) {
	clientID, ok := auth.GetClientID(r)
	if !ok {
		utils.Unauthorized(w, constants.MsgClientRequired)
		return
	}

	if err := h.storage.ForgetClient(r.Context(), clientID); err != nil {
		utils.ErrorFromAppError(w, utils.ParseError(err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.tokens.GetConfig().Cookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	log.Info().Str("client_id", clientID).Msg("Client forgotten")

	utils.NoContent(w)
}
