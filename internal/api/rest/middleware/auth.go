package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/meridianerp/policyflow/internal/models"
	"github.com/meridianerp/policyflow/pkg/auth"
	"github.com/meridianerp/policyflow/pkg/logger"
	"go.uber.org/zap"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// JWTAuth validates the bearer token and places the caller's claims on the
// request context. Identity resolution happens upstream; the token carries
// the already-resolved user and roles.
func JWTAuth(tokens *auth.TokenManager, log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				respondError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				respondError(w, http.StatusUnauthorized, "Invalid authorization header format")
				return
			}

			claims, err := tokens.Validate(parts[1])
			if err != nil {
				log.Warn("Token validation failed", zap.Error(err))
				respondError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClaims extracts the validated claims from the request context.
func GetClaims(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsContextKey).(*auth.Claims)
	return claims
}

// GetRequester builds the requester identity the engine consumes from the
// validated claims. Returns a zero requester when the request is unauthenticated.
func GetRequester(ctx context.Context) models.Requester {
	claims := GetClaims(ctx)
	if claims == nil {
		return models.Requester{}
	}
	return models.Requester{
		User:  claims.User,
		Roles: claims.Roles,
	}
}

// RequireRole rejects requests whose token carries none of the given roles.
func RequireRole(log *logger.Logger, roles ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r.Context())
			if claims == nil {
				respondError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			for _, have := range claims.Roles {
				for _, want := range roles {
					if have == want {
						next.ServeHTTP(w, r)
						return
					}
				}
			}

			log.Warn("Role check failed",
				zap.String("user", claims.User),
				zap.Strings("required_roles", roles),
			)
			respondError(w, http.StatusForbidden, "Insufficient permissions")
		})
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
