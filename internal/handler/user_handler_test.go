package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/authgate/internal/middleware"
	"github.com/hitoshi/authgate/internal/model"
)

type mockUserService struct {
	getProfileFn func(ctx context.Context, userID string) (*model.User, error)
}

func (m *mockUserService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	if m.getProfileFn != nil {
		return m.getProfileFn(ctx, userID)
	}
	return nil, nil
}

func authedGet(target, userID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return req.WithContext(middleware.ContextWithUserID(req.Context(), userID))
}

func TestMe_Success_ReturnsProfile(t *testing.T) {
	service := &mockUserService{
		getProfileFn: func(ctx context.Context, userID string) (*model.User, error) {
			return &model.User{
				ID:    userID,
				Email: "a@x.com",
				Name:  "A",
				Role:  "user",
			}, nil
		},
	}
	h := NewUserHandler(service)

	w := httptest.NewRecorder()
	h.Me(w, authedGet("/api/v1/users/me", "a81bc81b-dead-4e5d-abff-90865d1e13b1"))

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body userResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.ID != "a81bc81b-dead-4e5d-abff-90865d1e13b1" {
		t.Errorf("id = %q, want the context user id", body.ID)
	}
	if body.Role != "user" {
		t.Errorf("role = %q, want user", body.Role)
	}
}

func TestMe_NoMirrorRow_Returns404(t *testing.T) {
	service := &mockUserService{
		getProfileFn: func(ctx context.Context, userID string) (*model.User, error) {
			return nil, model.NewUserNotFoundError()
		},
	}
	h := NewUserHandler(service)

	w := httptest.NewRecorder()
	h.Me(w, authedGet("/api/v1/users/me", "missing-user"))

	if w.Result().StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Result().StatusCode)
	}

	code, message, _ := decodeError(t, w)
	if code != model.ErrCodeNotFound {
		t.Errorf("code = %q, want %q", code, model.ErrCodeNotFound)
	}
	if message != "Usuário não encontrado." {
		t.Errorf("message = %q, want %q", message, "Usuário não encontrado.")
	}
}

func TestMe_NoUserIDInContext_Returns401(t *testing.T) {
	serviceCalled := false
	service := &mockUserService{
		getProfileFn: func(ctx context.Context, userID string) (*model.User, error) {
			serviceCalled = true
			return nil, nil
		},
	}
	h := NewUserHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	w := httptest.NewRecorder()
	h.Me(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Result().StatusCode)
	}
	if serviceCalled {
		t.Error("service should not be called without an authenticated user")
	}
}
