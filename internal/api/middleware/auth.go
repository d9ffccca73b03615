package middleware

import (
	"crypto/rsa"
	"crypto/subtle"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	apierrors "github.com/feral-file/ff-affiliate-migrator/internal/api/shared/errors"
	"github.com/feral-file/ff-affiliate-migrator/internal/logger"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const OPERATOR_KEY contextKey = "migration_operator"

// Migration operator scopes carried in the JWT "scope" claim, space separated
const (
	// ScopeMigrationsRead lists sources and reads their statistics
	ScopeMigrationsRead = "migrations:read"
	// ScopeMigrationsWrite starts, resets and advances migrations. It implies read.
	ScopeMigrationsWrite = "migrations:write"
)

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTPublicKey string // RSA public key in PEM format
	APIKeys      []string
	// Disabled lets every request through, for local runs against a private network only
	Disabled bool
}

// Operator is the authenticated caller of the migration routes
type Operator struct {
	Method  string // "jwt" or "apikey"
	Subject string
	Scopes  []string
}

// Can reports whether the operator holds the scope
func (o *Operator) Can(scope string) bool {
	if o == nil {
		return false
	}
	if slices.Contains(o.Scopes, scope) {
		return true
	}
	return scope == ScopeMigrationsRead && slices.Contains(o.Scopes, ScopeMigrationsWrite)
}

// operatorClaims are the registered claims plus the operator scope list
type operatorClaims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope,omitempty"`
}

// Authenticator resolves the Authorization header into an operator.
// The public key is parsed once, not per request.
type Authenticator struct {
	publicKey *rsa.PublicKey
	keyErr    error
	apiKeys   [][]byte
}

// NewAuthenticator prepares the credentials of cfg
func NewAuthenticator(cfg AuthConfig) *Authenticator {
	a := &Authenticator{}
	for _, key := range cfg.APIKeys {
		if key != "" {
			a.apiKeys = append(a.apiKeys, []byte(key))
		}
	}

	if cfg.JWTPublicKey == "" {
		a.keyErr = errors.New("JWT public key not configured")
	} else if a.publicKey, a.keyErr = parseRSAPublicKey(cfg.JWTPublicKey); a.keyErr != nil {
		a.keyErr = fmt.Errorf("failed to parse RSA public key: %w", a.keyErr)
	}

	return a
}

// Authenticate validates the Authorization header. API keys belong to the
// site owner and carry every scope, JWTs carry only the scopes they list.
func (a *Authenticator) Authenticate(authHeader string) (*Operator, error) {
	if authHeader == "" {
		return nil, errors.New("missing Authorization header")
	}

	scheme, credentials, ok := strings.Cut(authHeader, " ")
	if !ok || credentials == "" {
		return nil, errors.New("invalid Authorization header format")
	}

	switch strings.ToLower(scheme) {
	case "bearer":
		claims, err := a.validateJWT(credentials)
		if err != nil {
			return nil, err
		}
		return &Operator{
			Method:  "jwt",
			Subject: claims.Subject,
			Scopes:  strings.Fields(claims.Scope),
		}, nil

	case "apikey":
		if err := a.validateAPIKey(credentials); err != nil {
			return nil, err
		}
		return &Operator{
			Method: "apikey",
			Scopes: []string{ScopeMigrationsRead, ScopeMigrationsWrite},
		}, nil

	default:
		return nil, fmt.Errorf("unsupported authorization type: %s", scheme)
	}
}

// Auth returns a gin middleware that authenticates the migration operator.
// It supports both JWT (Bearer token) and API Key authentication.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	authenticator := NewAuthenticator(cfg)

	return func(c *gin.Context) {
		if cfg.Disabled {
			c.Next()
			return
		}

		operator, err := authenticator.Authenticate(c.GetHeader("Authorization"))
		if err != nil {
			logger.WarnCtx(c.Request.Context(), "Authentication failed",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			apiErr := apierrors.NewUnauthorizedError("Authentication failed", err.Error())
			c.AbortWithStatusJSON(apiErr.HTTPStatus(), apiErr)
			return
		}

		logger.Debug("Migration operator authenticated",
			zap.String("method", operator.Method),
			zap.String("subject", operator.Subject),
			zap.Strings("scopes", operator.Scopes),
			zap.String("path", c.Request.URL.Path),
		)
		c.Set(OPERATOR_KEY, operator)
		c.Next()
	}
}

// RequireScope rejects operators without the scope. It must run after Auth.
func RequireScope(cfg AuthConfig, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.Disabled {
			c.Next()
			return
		}

		operator := OperatorFrom(c)
		if !operator.Can(scope) {
			subject := ""
			if operator != nil {
				subject = operator.Subject
			}
			logger.WarnCtx(c.Request.Context(), "Migration operator lacks scope",
				zap.String("scope", scope),
				zap.String("subject", subject),
				zap.String("path", c.Request.URL.Path),
			)
			apiErr := apierrors.NewForbiddenError("Insufficient scope", "requires "+scope)
			c.AbortWithStatusJSON(apiErr.HTTPStatus(), apiErr)
			return
		}

		c.Next()
	}
}

// OperatorFrom returns the operator stored by Auth, nil when auth is disabled
func OperatorFrom(c *gin.Context) *Operator {
	v, ok := c.Get(OPERATOR_KEY)
	if !ok {
		return nil
	}
	operator, _ := v.(*Operator)
	return operator
}

// validateJWT validates an RS256 operator token. Expiry and not-before are
// enforced by the parser.
func (a *Authenticator) validateJWT(tokenString string) (*operatorClaims, error) {
	if a.keyErr != nil {
		return nil, a.keyErr
	}

	claims := &operatorClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// parseRSAPublicKey parses an RSA public key from PEM format
func parseRSAPublicKey(publicKeyPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, errors.New("failed to parse PEM block containing public key")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return x509.ParsePKCS1PublicKey(block.Bytes)
	}

	rsaKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not an RSA key")
	}

	return rsaKey, nil
}

func (a *Authenticator) validateAPIKey(apiKey string) error {
	if len(a.apiKeys) == 0 {
		return errors.New("no API keys configured")
	}

	given := []byte(apiKey)
	for _, key := range a.apiKeys {
		if subtle.ConstantTimeCompare(given, key) == 1 {
			return nil
		}
	}

	return errors.New("invalid API key")
}
