package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/thatonemovie/thatonemovie/internal/config"
)

const (
	DefaultAudience = "authenticated"
	DefaultTokenTTL = time.Hour
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token has expired")
	ErrMissingSubject = errors.New("token has no subject")
	ErrNoSecret       = errors.New("jwt secret is not configured")
)

// Claims mirrors the access tokens minted by the backend's auth server.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Service verifies backend-issued access tokens.
type Service struct {
	jwtSecret []byte
	audience  string
	ephemeral bool
	logger    zerolog.Logger
}

// NewService creates an auth service. When no secret is configured a random
// one is generated, which means only locally issued tokens will verify.
func NewService(cfg config.AuthConfig, logger zerolog.Logger) (*Service, error) {
	s := &Service{
		jwtSecret: []byte(cfg.JWTSecret),
		audience:  cfg.Audience,
		logger:    logger.With().Str("component", "auth").Logger(),
	}
	if s.audience == "" {
		s.audience = DefaultAudience
	}

	if len(s.jwtSecret) == 0 {
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		s.jwtSecret = secret
		s.ephemeral = true
		s.logger.Warn().Msg("No JWT secret configured, backend tokens will be rejected")
	}

	return s, nil
}

// Ephemeral reports whether the signing secret was generated at startup.
func (s *Service) Ephemeral() bool {
	return s.ephemeral
}

// ValidateToken verifies signature, expiry and audience and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithAudience(s.audience), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}

	return claims, nil
}

// IssueToken mints a token the backend would accept, for local development
// against the SQLite store and for tests.
func (s *Service) IssueToken(userID, email string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", ErrMissingSubject
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	now := time.Now()
	claims := &Claims{
		Email: email,
		Role:  DefaultAudience,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Audience:  jwt.ClaimStrings{s.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
