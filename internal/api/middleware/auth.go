package middleware

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/feral-file/castindex/internal/api/apierror"
	"github.com/feral-file/castindex/internal/config"
	"github.com/feral-file/castindex/internal/logger"
)

const (
	AUTH_TYPE_KEY    = "auth_type"
	AUTH_SUBJECT_KEY = "auth_subject"

	AUTH_TYPE_JWT    = "jwt"
	AUTH_TYPE_APIKEY = "apikey"
)

// Authenticator checks the Authorization header of query requests
type Authenticator struct {
	publicKey *rsa.PublicKey
	apiKeys   map[string]bool
}

// NewAuthenticator parses the configured public key. A zero config gives an authenticator that lets every request through.
func NewAuthenticator(cfg config.AuthConfig) (*Authenticator, error) {
	a := &Authenticator{apiKeys: make(map[string]bool)}
	for _, key := range cfg.APIKeys {
		if key = strings.TrimSpace(key); key != "" {
			a.apiKeys[key] = true
		}
	}
	if cfg.JWTPublicKey != "" {
		publicKey, err := parseRSAPublicKey(cfg.JWTPublicKey)
		if err != nil {
			return nil, fmt.Errorf("failed to parse RSA public key: %w", err)
		}
		a.publicKey = publicKey
	}
	return a, nil
}

// Enabled reports whether any credential is configured
func (a *Authenticator) Enabled() bool {
	return a.publicKey != nil || len(a.apiKeys) > 0
}

// Authenticate validates an Authorization header of the form "Bearer <jwt>" or "ApiKey <key>".
// It returns the auth type and the subject, if any.
func (a *Authenticator) Authenticate(authHeader string) (string, string, error) {
	if authHeader == "" {
		return "", "", errors.New("missing Authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return "", "", errors.New("invalid Authorization header format")
	}

	credentials := strings.TrimSpace(parts[1])
	switch strings.ToLower(parts[0]) {
	case "bearer":
		claims, err := a.validateJWT(credentials)
		if err != nil {
			return "", "", err
		}
		return AUTH_TYPE_JWT, claims.Subject, nil
	case "apikey":
		if len(a.apiKeys) == 0 {
			return "", "", errors.New("no API keys configured")
		}
		if !a.apiKeys[credentials] {
			return "", "", errors.New("invalid API key")
		}
		return AUTH_TYPE_APIKEY, "", nil
	default:
		return "", "", fmt.Errorf("unsupported authorization type: %s", parts[0])
	}
}

// Auth returns a gin middleware that rejects unauthenticated requests when credentials are configured
func Auth(a *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.Enabled() {
			c.Next()
			return
		}

		authType, subject, err := a.Authenticate(c.GetHeader("Authorization"))
		if err != nil {
			logger.WarnCtx(c.Request.Context(), "Authentication failed",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.NewUnauthorizedError("Authentication failed", err.Error()))
			return
		}

		c.Set(AUTH_TYPE_KEY, authType)
		if subject != "" {
			c.Set(AUTH_SUBJECT_KEY, subject)
		}
		logger.DebugCtx(c.Request.Context(), "Authentication successful",
			zap.String("auth_type", authType),
			zap.String("subject", subject),
		)

		c.Next()
	}
}

func (a *Authenticator) validateJWT(tokenString string) (*jwt.RegisteredClaims, error) {
	if a.publicKey == nil {
		return nil, errors.New("JWT public key not configured")
	}

	// ParseWithClaims checks exp and nbf
	claims := &jwt.RegisteredClaims{}
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

// parseRSAPublicKey parses an RSA public key in PKIX or PKCS1 PEM format
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
