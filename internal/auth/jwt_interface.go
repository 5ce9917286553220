package auth

import (
	"github.com/blubywaff/ftag/internal/config"
)

// TokenValidator defines the interface for client token validation
type TokenValidator interface {
	// ValidateToken validates a token and returns its claims if valid
	ValidateToken(tokenString string) (*ClientClaims, error)

	// GetConfig returns the client token settings
	GetConfig() *config.ClientTokenSettings
}

// TokenIssuer defines the interface for issuing client tokens
type TokenIssuer interface {
	// IssueToken creates a token for a new client id
	IssueToken() (*ClientToken, error)

	// IssueTokenFor creates a token for an existing client id
	IssueTokenFor(clientID string) (*ClientToken, error)

	// GetConfig returns the client token settings
	GetConfig() *config.ClientTokenSettings
}
