package auth

import (
	"time"

	"chainreact/internal/config"
	"chainreact/pkg/errors"
	"chainreact/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

// Token types carried in the token_type claim.
const (
	AccessToken  = "access"
	RefreshToken = "refresh"
)

// Claims is the JWT claim set. TeamID scopes the caller to a tenant; an
// empty TeamID means the caller only sees resources they own.
type Claims struct {
	UserID    string   `json:"user_id"`
	Email     string   `json:"email,omitempty"`
	Role      string   `json:"role,omitempty"`
	TeamID    string   `json:"team_id,omitempty"`
	Scopes    []string `json:"scopes,omitempty"`
	TokenType string   `json:"token_type"`
	jwt.RegisteredClaims
}

// HasScope reports whether the claim set carries the named scope.
func (c *Claims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// TokenPair is an access and refresh token issued together.
type TokenPair struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
}

// Service issues and validates HS256-signed tokens.
type Service struct {
	config *config.AuthConfig
	logger logger.Logger
	now    func() time.Time
}

// NewService creates the token service. The signing secret is mandatory;
// callers that run without authentication should not construct one.
func NewService(cfg *config.AuthConfig) (*Service, error) {
	if cfg == nil {
		return nil, errors.ValidationError(errors.CodeMissingField, "auth config is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.ValidationError(errors.CodeMissingField, "JWT secret is required")
	}

	return &Service{
		config: cfg,
		logger: logger.New("auth"),
		now:    time.Now,
	}, nil
}

// WithClock overrides the timestamp source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// GenerateTokenPair issues an access and refresh token for the principal.
func (s *Service) GenerateTokenPair(userID, email, role, teamID string, scopes []string) (*TokenPair, error) {
	if userID == "" {
		return nil, errors.ValidationError(errors.CodeMissingField, "user id is required")
	}

	now := s.now()
	accessExpiry := now.Add(s.config.JWTExpiration)
	refreshExpiry := now.Add(s.config.RefreshTokenExpiration)

	accessToken, err := s.sign(userID, email, role, teamID, scopes, AccessToken, now, accessExpiry)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.sign(userID, email, role, teamID, scopes, RefreshToken, now, refreshExpiry)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		AccessTokenExpiresAt:  accessExpiry,
		RefreshTokenExpiresAt: refreshExpiry,
		TokenType:             "Bearer",
	}, nil
}

// Refresh validates a refresh token and issues a fresh pair with the same
// identity and scopes.
func (s *Service) Refresh(refreshToken string) (*TokenPair, error) {
	claims, err := s.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}
	return s.GenerateTokenPair(claims.UserID, claims.Email, claims.Role, claims.TeamID, claims.Scopes)
}

func (s *Service) sign(userID, email, role, teamID string, scopes []string, tokenType string, now, expiresAt time.Time) (string, error) {
	claims := &Claims{
		UserID:    userID,
		Email:     email,
		Role:      role,
		TeamID:    teamID,
		Scopes:    scopes,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.config.Issuer,
			Subject:   userID,
			Audience:  []string{s.config.Audience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeInternal, errors.CodeInternal, "failed to sign token")
	}
	return signed, nil
}

// ValidateToken parses and verifies a token of either type.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.NewUnauthorizedError("unexpected token signing method")
		}
		return []byte(s.config.JWTSecret), nil
	},
		jwt.WithIssuer(s.config.Issuer),
		jwt.WithAudience(s.config.Audience),
	)
	if err != nil {
		return nil, errors.NewUnauthorizedError("invalid or expired token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, errors.NewUnauthorizedError("invalid token claims")
	}
	return claims, nil
}

// ValidateAccessToken verifies a token and requires the access type.
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != AccessToken {
		return nil, errors.NewUnauthorizedError("token is not an access token")
	}
	return claims, nil
}

// ValidateRefreshToken verifies a token and requires the refresh type.
func (s *Service) ValidateRefreshToken(tokenString string) (*Claims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != RefreshToken {
		return nil, errors.NewUnauthorizedError("token is not a refresh token")
	}
	return claims, nil
}
