package middleware

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/authgate/internal/model"
)

func TestWriteErrorResponse_WritesUnifiedFormat(t *testing.T) {
	w := httptest.NewRecorder()

	WriteErrorResponse(w, 404, model.NewUserNotFoundError())

	resp := w.Result()
	if resp.StatusCode != 404 {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Code != model.ErrCodeNotFound {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeNotFound)
	}
	if body.Message != "Usuário não encontrado." {
		t.Errorf("message = %q, want %q", body.Message, "Usuário não encontrado.")
	}
	if body.Details != nil {
		t.Errorf("details = %v, want nil", body.Details)
	}
}

func TestWriteErrorResponse_DetailsAreNullWhenAbsent(t *testing.T) {
	w := httptest.NewRecorder()

	WriteErrorResponse(w, 401, model.NewUnauthorizedError())

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(w.Result().Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}

	details, ok := raw["details"]
	if !ok {
		t.Fatal("details key should always be present")
	}
	if string(details) != "null" {
		t.Errorf("details = %s, want null", details)
	}
}

func TestWriteErrorResponse_IncludesFieldDetails(t *testing.T) {
	w := httptest.NewRecorder()

	apiErr := model.NewInvalidRequestError("validation failed", []model.ErrorDetail{
		{Field: "email", Reason: "invalid email format"},
		{Field: "password", Reason: "must not be empty"},
	})
	WriteErrorResponse(w, 422, apiErr)

	var body ErrorResponseBody
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}

	if len(body.Details) != 2 {
		t.Fatalf("len(details) = %d, want 2", len(body.Details))
	}
	if body.Details[0].Field != "email" {
		t.Errorf("details[0].field = %q, want email", body.Details[0].Field)
	}
	if body.Details[1].Reason != "must not be empty" {
		t.Errorf("details[1].reason = %q, want 'must not be empty'", body.Details[1].Reason)
	}
}

func TestWriteInternalServerError_ReturnsServerErrorCode(t *testing.T) {
	w := httptest.NewRecorder()

	WriteInternalServerError(w, "boom")

	resp := w.Result()
	if resp.StatusCode != 500 {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Code != model.ErrCodeServerError {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeServerError)
	}
}
