package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIssueVerify_RoundTrip(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)

	signed, err := tokens.Issue("user-123")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	got, err := tokens.Verify(signed)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got != "user-123" {
		t.Fatalf("subject=%s, want user-123", got)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	signed, _ := NewTokens("secret-a", time.Hour).Issue("user-123")
	if _, err := NewTokens("secret-b", time.Hour).Verify(signed); err == nil {
		t.Fatal("token signed with another secret must not verify")
	}
}

func TestVerify_Expired(t *testing.T) {
	signed, _ := NewTokens("test-secret", -time.Minute).Issue("user-123")
	if _, err := NewTokens("test-secret", time.Hour).Verify(signed); err == nil {
		t.Fatal("expired token must not verify")
	}
}

func TestVerify_Garbage(t *testing.T) {
	if _, err := NewTokens("test-secret", time.Hour).Verify("not.a.token"); err == nil {
		t.Fatal("garbage token must not verify")
	}
}

func identityEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := CallerID(r.Context()); ok {
			_, _ = w.Write([]byte(id))
			return
		}
		_, _ = w.Write([]byte("anonymous"))
	})
}

func TestMiddleware_ValidToken(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)
	signed, _ := tokens.Issue("user-123")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	w := httptest.NewRecorder()

	tokens.Middleware(identityEcho()).ServeHTTP(w, req)
	if w.Body.String() != "user-123" {
		t.Fatalf("body=%s", w.Body.String())
	}
}

func TestMiddleware_InvalidTokenIsAnonymous(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)

	for _, header := range []string{"", "Bearer garbage", "Basic abc", "Bearer"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		tokens.Middleware(identityEcho()).ServeHTTP(w, req)
		if w.Body.String() != "anonymous" {
			t.Errorf("header=%q: body=%s, want anonymous", header, w.Body.String())
		}
	}
}

func TestRequire(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)
	signed, _ := tokens.Issue("user-123")
	h := tokens.Middleware(Require(identityEcho()))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "user-123" {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}
