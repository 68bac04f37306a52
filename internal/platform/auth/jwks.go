package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultJWKSCacheTTL = 5 * time.Minute
	// minJWKSRefresh spaces out refetches triggered by unknown kids.
	minJWKSRefresh = 10 * time.Second
)

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKSCache keeps the RSA keys published by the identity provider and
// refetches them when the TTL expires or an unknown kid shows up, at most
// once per minInterval.
type JWKSCache struct {
	url         string
	ttl         time.Duration
	minInterval time.Duration
	client      *http.Client
	now         func() time.Time

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time

	refreshMu   sync.Mutex
	lastAttempt time.Time
}

func NewJWKSCache(url string, ttl time.Duration) *JWKSCache {
	if ttl <= 0 {
		ttl = defaultJWKSCacheTTL
	}
	return &JWKSCache{
		url:         url,
		ttl:         ttl,
		minInterval: minJWKSRefresh,
		client:      &http.Client{Timeout: 10 * time.Second},
		now:         time.Now,
		keys:        make(map[string]*rsa.PublicKey),
	}
}

// Key returns the public key with the given kid. A stale key is still
// served while refetching is throttled.
func (c *JWKSCache) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if key, ok, fresh := c.lookup(kid); ok && fresh {
		return key, nil
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	// Another caller may have refreshed while we waited.
	key, ok, fresh := c.lookup(kid)
	if ok && fresh {
		return key, nil
	}
	now := c.now()
	if now.Sub(c.lastAttempt) < c.minInterval {
		if ok {
			return key, nil
		}
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}
	c.lastAttempt = now

	if err := c.refresh(ctx); err != nil {
		return nil, err
	}
	if key, ok, _ = c.lookup(kid); !ok {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}
	return key, nil
}

func (c *JWKSCache) lookup(kid string) (key *rsa.PublicKey, ok, fresh bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key, ok = c.keys[kid]
	return key, ok, c.now().Sub(c.fetchedAt) < c.ttl
}

func (c *JWKSCache) refresh(ctx context.Context) error {
	var set struct {
		Keys []jwk `json:"keys"`
	}
	if err := getJSON(ctx, c.client, c.url, &set); err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := k.rsaKey()
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}

	c.mu.Lock()
	c.keys = keys
	c.fetchedAt = c.now()
	c.mu.Unlock()
	return nil
}

func (k jwk) rsaKey() (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}
	e, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("exponent: %w", err)
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(new(big.Int).SetBytes(e).Int64())}, nil
}

// Keyfunc adapts the cache to jwt.Keyfunc.
func (c *JWKSCache) Keyfunc(ctx context.Context) jwt.Keyfunc {
	return func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token has no kid header")
		}
		return c.Key(ctx, kid)
	}
}

// DiscoverJWKSURL reads jwks_uri from the issuer's OpenID configuration.
func DiscoverJWKSURL(ctx context.Context, issuer string) (string, error) {
	var doc struct {
		JWKSURI string `json:"jwks_uri"`
	}
	url := strings.TrimRight(issuer, "/") + "/.well-known/openid-configuration"
	client := &http.Client{Timeout: 10 * time.Second}
	if err := getJSON(ctx, client, url, &doc); err != nil {
		return "", fmt.Errorf("openid discovery: %w", err)
	}
	if doc.JWKSURI == "" {
		return "", errors.New("openid discovery: missing jwks_uri")
	}
	return doc.JWKSURI, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
