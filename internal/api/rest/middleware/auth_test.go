package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/meridianerp/policyflow/internal/models"
	"github.com/meridianerp/policyflow/pkg/auth"
	"github.com/meridianerp/policyflow/pkg/logger"
)

func TestJWTAuth(t *testing.T) {
	log := logger.NewForTesting()
	tokens := auth.NewTokenManager("test-secret")

	var captured models.Requester
	protected := JWTAuth(tokens, log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequester(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("valid token passes claims through", func(t *testing.T) {
		token, err := tokens.Generate("alice", []string{"sales-manager", "auditor"})
		if err != nil {
			t.Fatalf("failed to generate token: %v", err)
		}

		req := httptest.NewRequest("GET", "/api/v1/documents", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		protected.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if captured.User != "alice" {
			t.Errorf("requester user = %q, want alice", captured.User)
		}
		if len(captured.Roles) != 2 || captured.Roles[0] != "sales-manager" {
			t.Errorf("requester roles = %v", captured.Roles)
		}
	})

	t.Run("missing header is rejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/documents", nil)
		w := httptest.NewRecorder()

		protected.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("malformed header is rejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/documents", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		w := httptest.NewRecorder()

		protected.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("token signed with another secret is rejected", func(t *testing.T) {
		other := auth.NewTokenManager("other-secret")
		token, err := other.Generate("mallory", []string{"policy-admin"})
		if err != nil {
			t.Fatalf("failed to generate token: %v", err)
		}

		req := httptest.NewRequest("GET", "/api/v1/documents", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		protected.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})
}

func TestRequireRole(t *testing.T) {
	log := logger.NewForTesting()
	tokens := auth.NewTokenManager("test-secret")

	handler := func(roles ...string) http.Handler {
		return JWTAuth(tokens, log)(RequireRole(log, roles...)(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}),
		))
	}

	t.Run("matching role passes", func(t *testing.T) {
		token, _ := tokens.Generate("admin", []string{"policy-admin"})
		req := httptest.NewRequest("PUT", "/api/v1/rules", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		handler("policy-admin").ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
	})

	t.Run("any of several roles passes", func(t *testing.T) {
		token, _ := tokens.Generate("carol", []string{"auditor"})
		req := httptest.NewRequest("GET", "/api/v1/audit-entries", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		handler("auditor", "policy-admin").ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
	})

	t.Run("missing role is forbidden", func(t *testing.T) {
		token, _ := tokens.Generate("bob", []string{"sales-clerk"})
		req := httptest.NewRequest("PUT", "/api/v1/rules", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		handler("policy-admin").ServeHTTP(w, req)
		if w.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", w.Code)
		}
	})

	t.Run("unauthenticated request is rejected before role check", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("PUT", "/api/v1/rules", nil)

		RequireRole(log, "policy-admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be reached")
		})).ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})
}
