package auth

import (
	"crypto/rsa"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/radio-control/rigcore/internal/config"
)

// VerifierConfig holds the key material for token verification.
type VerifierConfig struct {
	Algorithm    string // "HS256" or "RS256"
	SecretKey    []byte
	PublicKeyPEM []byte
}

// Verifier checks token signatures and extracts claims.
type Verifier struct {
	algorithm string
	key       any
}

// NewVerifier creates a verifier for cfg.Algorithm.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	v := &Verifier{algorithm: cfg.Algorithm}
	switch cfg.Algorithm {
	case "HS256":
		if len(cfg.SecretKey) == 0 {
			return nil, fmt.Errorf("HS256 requires secret key")
		}
		v.key = cfg.SecretKey
	case "RS256":
		key, err := parsePublicKey(cfg.PublicKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("failed to load public key from PEM: %w", err)
		}
		v.key = key
	default:
		return nil, fmt.Errorf("unsupported algorithm: %s", cfg.Algorithm)
	}
	return v, nil
}

// LoadVerifier reads the key file named in cfg and creates a verifier.
func LoadVerifier(cfg config.AuthConfig) (*Verifier, error) {
	vc := VerifierConfig{Algorithm: cfg.Algorithm}
	switch cfg.Algorithm {
	case "HS256":
		secret, err := os.ReadFile(cfg.SecretFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read secret: %w", err)
		}
		vc.SecretKey = []byte(strings.TrimSpace(string(secret)))
	case "RS256":
		pem, err := os.ReadFile(cfg.PublicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read public key: %w", err)
		}
		vc.PublicKeyPEM = pem
	}
	return NewVerifier(vc)
}

func parsePublicKey(data []byte) (*rsa.PublicKey, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("no public key")
	}
	return jwt.ParseRSAPublicKeyFromPEM(data)
}

// VerifyToken verifies a token and returns its claims.
func (v *Verifier) VerifyToken(tokenString string) (*Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, fmt.Errorf("token cannot be empty")
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	}, jwt.WithValidMethods([]string{v.algorithm}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return extractClaims(claims)
}

func extractClaims(claims jwt.MapClaims) (*Claims, error) {
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("missing or invalid 'sub' claim")
	}

	scopes, err := extractStringSlice(claims, "scopes")
	if err != nil {
		return nil, fmt.Errorf("missing or invalid 'scopes' claim: %w", err)
	}
	if !validateScopes(scopes) {
		return nil, fmt.Errorf("invalid scopes: %v", scopes)
	}

	return &Claims{Subject: sub, Scopes: scopes}, nil
}

func extractStringSlice(claims jwt.MapClaims, key string) ([]string, error) {
	value, ok := claims[key]
	if !ok {
		return nil, fmt.Errorf("missing claim: %s", key)
	}

	switch val := value.(type) {
	case []string:
		return val, nil
	case []any:
		result := make([]string, len(val))
		for i, item := range val {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("invalid %s claim: not a string", key)
			}
			result[i] = str
		}
		return result, nil
	case string:
		// Space separated, as in OAuth 2.0 "scope".
		return strings.Fields(val), nil
	default:
		return nil, fmt.Errorf("invalid %s claim: not a string array", key)
	}
}

func validateScopes(scopes []string) bool {
	for _, scope := range scopes {
		switch scope {
		case ScopeRead, ScopeControl, ScopeTelemetry:
		default:
			return false
		}
	}
	return len(scopes) > 0
}
