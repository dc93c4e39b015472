package security

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/patrickmn/go-cache"
)

const jwtCacheKey = "token"

// JWTConfig configures self-issued HS256 bearer tokens.
type JWTConfig struct {
	Secret   []byte
	Issuer   string
	Subject  string
	Audience []string

	// TTL is the token lifetime. Defaults to 15 minutes.
	TTL time.Duration
}

// JWT signs requests with a bearer token it mints itself. A token is reused
// until a tenth of its lifetime remains.
type JWT struct {
	cfg   JWTConfig
	cache *cache.Cache
	now   func() time.Time
}

// NewJWT validates cfg and returns a provider.
func NewJWT(cfg JWTConfig) (*JWT, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("HS256 requires secret key")
	}
	if cfg.TTL < 0 {
		return nil, fmt.Errorf("ttl cannot be negative")
	}
	if cfg.TTL == 0 {
		cfg.TTL = 15 * time.Minute
	}
	return &JWT{
		cfg:   cfg,
		cache: cache.New(cache.NoExpiration, 0),
		now:   time.Now,
	}, nil
}

// Token returns the current bearer token, minting a new one when needed.
func (j *JWT) Token() (string, error) {
	if cached, ok := j.cache.Get(jwtCacheKey); ok {
		return cached.(string), nil
	}

	now := j.now()
	claims := jwt.RegisteredClaims{
		Issuer:    j.cfg.Issuer,
		Subject:   j.cfg.Subject,
		Audience:  j.cfg.Audience,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(j.cfg.TTL)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	j.cache.Set(jwtCacheKey, signed, j.cfg.TTL-j.cfg.TTL/10)
	return signed, nil
}

// Sign sets "Authorization: Bearer <token>".
func (j *JWT) Sign(req *http.Request) error {
	token, err := j.Token()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}
