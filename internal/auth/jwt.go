package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/blubywaff/ftag/internal/config"
	"github.com/blubywaff/ftag/internal/constants"
	"github.com/blubywaff/ftag/internal/utils"
)

// Token errors
var (
	ErrInvalidSigningMethod = errors.New("invalid signing method")
	ErrInvalidTokenClaims   = errors.New("invalid token claims")
)

// ClientClaims represents the claims in a client identity token.
// The subject is the client id that scopes the client's local storage.
type ClientClaims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// ClientToken is a freshly issued client identity token
type ClientToken struct {
	Token     string    `json:"token"`
	ClientID  string    `json:"clientId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ClientTokenService issues and validates client identity tokens
type ClientTokenService struct {
	Config *config.ClientTokenSettings
	now    func() time.Time
}

// NewClientTokenService creates a new ClientTokenService instance
func NewClientTokenService(cfg *config.ClientTokenSettings) *ClientTokenService {
	return &ClientTokenService{
		Config: cfg,
		now:    time.Now,
	}
}

// GetConfig returns the token settings, falling back to defaults when unset
func (s *ClientTokenService) GetConfig() *config.ClientTokenSettings {
	if s.Config == nil {
		return &config.ClientTokenSettings{
			Expiry: constants.DefaultClientTokenExpiry,
			Issuer: constants.DefaultClientTokenIssuer,
			Cookie: constants.DefaultClientTokenCookie,
		}
	}
	return s.Config
}

// IssueToken creates a token for a new client id
func (s *ClientTokenService) IssueToken() (*ClientToken, error) {
	return s.IssueTokenFor(uuid.New().String())
}

// IssueTokenFor creates a token for an existing client id, e.g. to extend its expiry
func (s *ClientTokenService) IssueTokenFor(clientID string) (*ClientToken, error) {
	if _, err := uuid.Parse(clientID); err != nil {
		return nil, fmt.Errorf("invalid client id %q: %w", clientID, err)
	}

	cfg := s.GetConfig()
	now := s.clock()
	expiresAt := now.Add(cfg.Expiry)

	claims := ClientClaims{
		TokenType: constants.TokenTypeClient,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   clientID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &ClientToken{
		Token:     tokenString,
		ClientID:  clientID,
		ExpiresAt: expiresAt.UTC().Truncate(time.Second),
	}, nil
}

// ValidateToken validates a client identity token and returns its claims if valid
func (s *ClientTokenService) ValidateToken(tokenString string) (*ClientClaims, error) {
	cfg := s.GetConfig()

	token, err := jwt.ParseWithClaims(tokenString, &ClientClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSigningMethod
		}
		return []byte(cfg.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, utils.NewExpiredTokenError()
		}
		return nil, utils.NewInvalidTokenError()
	}

	claims, ok := token.Claims.(*ClientClaims)
	if !ok || !token.Valid {
		return nil, utils.NewInvalidTokenError()
	}

	if claims.TokenType != constants.TokenTypeClient || claims.Issuer != cfg.Issuer {
		return nil, utils.NewInvalidTokenError()
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, utils.NewInvalidTokenError()
	}

	return claims, nil
}

func (s *ClientTokenService) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}
