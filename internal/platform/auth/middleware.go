package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type contextKey string

const (
	SubjectKey   contextKey = "subject"
	PrincipalKey contextKey = "principal"
)

// Claims are the token claims the server relies on. The subject is the
// user id; username is informational.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"preferred_username,omitempty"`
}

type JWTConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string
	// SigningKey enables HS256 tokens issued by `clinic-server token issue`.
	SigningKey []byte
	Skipper    middleware.Skipper
}

// JWTMiddleware verifies the bearer token and stores its subject in the
// request context. HS256 is accepted when a signing key is configured,
// RS256 when a JWKS URL is configured or discoverable from the issuer.
func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	if cfg.Skipper == nil {
		cfg.Skipper = middleware.DefaultSkipper
	}

	jwksURL := cfg.JWKSURL
	if jwksURL == "" && cfg.Issuer != "" && len(cfg.SigningKey) == 0 {
		if discovered, err := DiscoverJWKSURL(context.Background(), cfg.Issuer); err == nil {
			jwksURL = discovered
		}
	}
	var jwks *JWKSCache
	if jwksURL != "" {
		jwks = NewJWKSCache(jwksURL, defaultJWKSCacheTTL)
	}

	var methods []string
	if len(cfg.SigningKey) > 0 {
		methods = append(methods, jwt.SigningMethodHS256.Alg())
	}
	if jwks != nil {
		methods = append(methods, jwt.SigningMethodRS256.Alg())
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods(methods), jwt.WithExpirationRequired()}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper(c) {
				return next(c)
			}

			raw, ok := bearerToken(c.Request())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentification requise")
			}

			ctx := c.Request().Context()
			claims := &Claims{}
			_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
				if t.Method.Alg() == jwt.SigningMethodHS256.Alg() {
					if len(cfg.SigningKey) == 0 {
						return nil, jwt.ErrTokenUnverifiable
					}
					return cfg.SigningKey, nil
				}
				if jwks == nil {
					return nil, jwt.ErrTokenUnverifiable
				}
				return jwks.Keyfunc(ctx)(t)
			}, opts...)
			if err != nil || claims.Subject == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "jeton invalide ou expiré")
			}

			c.SetRequest(c.Request().WithContext(context.WithValue(ctx, SubjectKey, claims.Subject)))
			return next(c)
		}
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// SubjectFromContext returns the verified token subject, or "".
func SubjectFromContext(ctx context.Context) string {
	sub, _ := ctx.Value(SubjectKey).(string)
	return sub
}
