package middleware

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Context keys set by the middleware chain.
const (
	ContextPrivyID   = "privy_id"
	ContextProfile   = "profile"
	ContextWorkspace = "workspace"
)

// AuthConfig describes which access tokens are accepted.
type AuthConfig struct {
	// VerificationKey is the PEM encoded ES256 public key of the auth provider.
	VerificationKey string
	// HMACSecret enables HS256 tokens, for local development.
	HMACSecret string
	Issuer     string
	// Audience is the provider app id; empty skips the check.
	Audience string
}

// TokenVerifier checks bearer tokens and returns the subject.
type TokenVerifier struct {
	ecKey  *ecdsa.PublicKey
	secret []byte
	parser *jwt.Parser
}

func NewTokenVerifier(cfg AuthConfig) (*TokenVerifier, error) {
	v := &TokenVerifier{}
	var methods []string
	if cfg.VerificationKey != "" {
		key, err := jwt.ParseECPublicKeyFromPEM([]byte(cfg.VerificationKey))
		if err != nil {
			return nil, fmt.Errorf("auth: verification key: %w", err)
		}
		v.ecKey = key
		methods = append(methods, jwt.SigningMethodES256.Alg())
	}
	if cfg.HMACSecret != "" {
		v.secret = []byte(cfg.HMACSecret)
		methods = append(methods, jwt.SigningMethodHS256.Alg())
	}
	if len(methods) == 0 {
		return nil, errors.New("auth: no verification key configured")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods(methods), jwt.WithExpirationRequired()}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	v.parser = jwt.NewParser(opts...)
	return v, nil
}

// Verify returns the subject of a valid token.
func (v *TokenVerifier) Verify(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	tkn, err := v.parser.ParseWithClaims(raw, claims, v.key)
	if err != nil {
		return "", err
	}
	if !tkn.Valid || claims.Subject == "" {
		return "", jwt.ErrTokenInvalidClaims
	}
	return claims.Subject, nil
}

func (v *TokenVerifier) key(token *jwt.Token) (interface{}, error) {
	switch token.Method.Alg() {
	case jwt.SigningMethodES256.Alg():
		if v.ecKey != nil {
			return v.ecKey, nil
		}
	case jwt.SigningMethodHS256.Alg():
		if v.secret != nil {
			return v.secret, nil
		}
	}
	return nil, jwt.ErrTokenSignatureInvalid
}

// Auth validates the bearer token and injects the identity into context.
func Auth(v *TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			subject, err := v.Verify(parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(ContextPrivyID, subject)
			return next(c)
		}
	}
}
