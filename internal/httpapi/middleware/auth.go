package middleware

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/titan-aas/titan-aas/internal/apierrors"
	"github.com/titan-aas/titan-aas/internal/logging"
	"github.com/titan-aas/titan-aas/internal/tenancy"
	"github.com/titan-aas/titan-aas/pkg/version"
)

// AuthConfig configures OIDC bearer-token authentication. A zero
// Issuer means authentication is disabled and every request is
// treated as anonymous, matching config.Config's documented
// "unset means anonymous full access" contract.
type AuthConfig struct {
	Issuer     string
	Audience   string
	RolesClaim string
	Logger     *logging.Logger
}

// roleContextKey is the context key under which the caller's roles
// (extracted from RolesClaim) are stored.
type roleContextKey struct{}

// RolesFromContext returns the roles carried by ctx, or nil if none.
func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(roleContextKey{}).([]string)
	return roles
}

// Auth validates a Bearer JWT issued by cfg.Issuer and propagates the
// subject as the request's tenant id and its roles claim into the
// context. When cfg.Issuer is empty the middleware is a no-op,
// preserving anonymous full access.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	if cfg.Issuer == "" {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.RolesClaim == "" {
		cfg.RolesClaim = "roles"
	}
	keys := newJWKSCache(cfg.Issuer)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(header, prefix) {
				WriteError(w, r, apierrors.Unauthorized("missing bearer token"))
				return
			}
			raw := strings.TrimPrefix(header, prefix)

			claims := jwt.MapClaims{}
			_, err := jwt.ParseWithClaims(raw, claims, keys.keyFunc, jwt.WithIssuer(cfg.Issuer), jwt.WithAudience(cfg.Audience), jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}))
			if err != nil {
				if cfg.Logger != nil {
					cfg.Logger.WithContext(r.Context()).WithError(err).Warn("bearer token rejected")
				}
				WriteError(w, r, apierrors.Unauthorized("invalid or expired bearer token"))
				return
			}

			subject, _ := claims["sub"].(string)
			ctx := r.Context()
			if subject != "" {
				ctx = tenancy.WithTenant(ctx, subject)
			}
			ctx = context.WithValue(ctx, roleContextKey{}, extractRoles(claims, cfg.RolesClaim))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractRoles(claims jwt.MapClaims, rolesClaim string) []string {
	raw, ok := claims[rolesClaim]
	if !ok {
		return nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	roles := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			roles = append(roles, s)
		}
	}
	return roles
}

// jwksCache fetches and caches an issuer's signing keys from its
// OIDC discovery document, refreshing them once the cache entry ages
// past jwksTTL.
type jwksCache struct {
	issuer string

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

const jwksTTL = 10 * time.Minute

func newJWKSCache(issuer string) *jwksCache {
	return &jwksCache{issuer: strings.TrimSuffix(issuer, "/")}
}

func (c *jwksCache) keyFunc(token *jwt.Token) (interface{}, error) {
	kid, _ := token.Header["kid"].(string)
	key, err := c.lookup(kid)
	if err != nil {
		return nil, err
	}
	return key, nil
}

func (c *jwksCache) lookup(kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	if key, ok := c.keys[kid]; ok && time.Since(c.fetchedAt) < jwksTTL {
		c.mu.RUnlock()
		return key, nil
	}
	c.mu.RUnlock()

	if err := c.refresh(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	key, ok := c.keys[kid]
	if !ok {
		return nil, jwt.ErrTokenUnverifiable
	}
	return key, nil
}

type oidcDiscovery struct {
	JWKSURI string `json:"jwks_uri"`
}

type jwkSet struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (c *jwksCache) refresh() error {
	httpClient := &http.Client{Timeout: 5 * time.Second}

	discoveryResp, err := c.get(httpClient, c.issuer+"/.well-known/openid-configuration")
	if err != nil {
		return err
	}
	defer discoveryResp.Body.Close()
	var discovery oidcDiscovery
	if err := json.NewDecoder(discoveryResp.Body).Decode(&discovery); err != nil {
		return err
	}

	jwksResp, err := c.get(httpClient, discovery.JWKSURI)
	if err != nil {
		return err
	}
	defer jwksResp.Body.Close()
	var set jwkSet
	if err := json.NewDecoder(jwksResp.Body).Decode(&set); err != nil {
		return err
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := parseRSAPublicKey(k.N, k.E)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}

	c.mu.Lock()
	c.keys = keys
	c.fetchedAt = time.Now()
	c.mu.Unlock()
	return nil
}

// get issues a GET request identifying this service to the issuer's
// discovery/JWKS endpoints by its build version.
func (c *jwksCache) get(client *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", version.UserAgent())
	return client.Do(req)
}

func parseRSAPublicKey(nEncoded, eEncoded string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(nEncoded)
	if err != nil {
		return nil, err
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(eEncoded)
	if err != nil {
		return nil, err
	}
	n := new(big.Int).SetBytes(nBytes)
	e := new(big.Int).SetBytes(eBytes)
	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}
