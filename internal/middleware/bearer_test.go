package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/authgate/internal/auth"
	"github.com/hitoshi/authgate/internal/model"
)

type mockVerifier struct {
	verifyFn func(tokenString string) (string, error)
}

func (m *mockVerifier) VerifySubject(tokenString string) (string, error) {
	return m.verifyFn(tokenString)
}

func okVerifier(userID string) *mockVerifier {
	return &mockVerifier{verifyFn: func(string) (string, error) {
		return userID, nil
	}}
}

func failVerifier() *mockVerifier {
	return &mockVerifier{verifyFn: func(string) (string, error) {
		return "", fmt.Errorf("signature is invalid")
	}}
}

// nextHandler はコンテキストから取り出したユーザーIDを記録するハンドラー。
func nextHandler(t *testing.T, gotUserID *string, called *bool) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		userID, err := UserIDFromContext(r.Context())
		if err != nil {
			t.Errorf("UserIDFromContext failed inside handler: %v", err)
		}
		*gotUserID = userID
		w.WriteHeader(http.StatusOK)
	})
}

func TestBearerAuth_ValidToken_InjectsUserID(t *testing.T) {
	var gotUserID string
	var called bool
	mw := NewBearerAuthMiddleware(okVerifier("user-42"))
	handler := mw(nextHandler(t, &gotUserID, &called))

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer sometoken")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if !called {
		t.Fatal("next handler should be called for a valid token")
	}
	if gotUserID != "user-42" {
		t.Errorf("user id = %q, want user-42", gotUserID)
	}
}

func TestBearerAuth_MissingHeader_Returns401(t *testing.T) {
	verifierCalled := false
	mw := NewBearerAuthMiddleware(&mockVerifier{verifyFn: func(string) (string, error) {
		verifierCalled = true
		return "", nil
	}})
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	if resp.Header.Get("WWW-Authenticate") != "Bearer" {
		t.Error("WWW-Authenticate header should be set")
	}
	if verifierCalled {
		t.Error("verifier should not be called without a header")
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Code != model.ErrCodeUnauthorized {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeUnauthorized)
	}
	if body.Message != "Could not validate credentials" {
		t.Errorf("message = %q, want 'Could not validate credentials'", body.Message)
	}
}

func TestBearerAuth_WrongScheme_Returns401(t *testing.T) {
	mw := NewBearerAuthMiddleware(okVerifier("user-42"))
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Result().StatusCode)
	}
}

func TestBearerAuth_CaseInsensitiveScheme(t *testing.T) {
	var gotUserID string
	var called bool
	mw := NewBearerAuthMiddleware(okVerifier("user-42"))
	handler := mw(nextHandler(t, &gotUserID, &called))

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "bearer sometoken")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if !called {
		t.Error("scheme matching should be case-insensitive")
	}
}

func TestBearerAuth_InvalidToken_Returns401(t *testing.T) {
	mw := NewBearerAuthMiddleware(failVerifier())
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer tampered")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Result().StatusCode)
	}
}

func TestBearerAuth_EmptyToken_Returns401(t *testing.T) {
	mw := NewBearerAuthMiddleware(okVerifier("user-42"))
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer ")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Result().StatusCode)
	}
}

// TestBearerAuth_WithRealTokenService は実際のトークンサービスと組み合わせて
// 発行から検証までの経路を検証する。
func TestBearerAuth_WithRealTokenService(t *testing.T) {
	tokens, err := auth.NewTokenService("test-secret-32bytes-long!!!!!!!!", "HS256", 30*time.Minute)
	if err != nil {
		t.Fatalf("NewTokenService failed: %v", err)
	}

	token, err := tokens.Issue("a81bc81b-dead-4e5d-abff-90865d1e13b1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	var gotUserID string
	var called bool
	mw := NewBearerAuthMiddleware(tokens)
	handler := mw(nextHandler(t, &gotUserID, &called))

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if !called {
		t.Fatal("next handler should be called")
	}
	if gotUserID != "a81bc81b-dead-4e5d-abff-90865d1e13b1" {
		t.Errorf("user id = %q, want the token subject", gotUserID)
	}
}

func TestUserIDFromContext_Missing_ReturnsError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	if _, err := UserIDFromContext(req.Context()); err == nil {
		t.Error("expected error for missing user id")
	}
}
