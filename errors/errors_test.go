package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNew_RetryableDetection(t *testing.T) {
	if New(ErrCodeNotFound, "x", http.StatusNotFound).Retryable {
		t.Error("NOT_FOUND should not be retryable")
	}
	if !New(ErrCodeTimeout, "x", http.StatusGatewayTimeout).Retryable {
		t.Error("TIMEOUT should be retryable")
	}
}

func TestConstructors_Table(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   ErrorCode
		status int
	}{
		{"NotFound", NotFound("route"), ErrCodeNotFound, http.StatusNotFound},
		{"MethodNotAllowed", MethodNotAllowed("PUT"), ErrCodeMethodNotAllowed, http.StatusMethodNotAllowed},
		{"Conflict", Conflict("dup"), ErrCodeConflict, http.StatusConflict},
		{"PayloadTooLarge", PayloadTooLarge(10), ErrCodePayloadTooLarge, http.StatusRequestEntityTooLarge},
		{"RateLimited", RateLimited(), ErrCodeRateLimited, http.StatusTooManyRequests},
		{"InvalidInput", InvalidInput("name", "bad"), ErrCodeInvalidInput, http.StatusBadRequest},
		{"Validation", Validation("bad"), ErrCodeInvalidInput, http.StatusBadRequest},
		{"Unauthorized", Unauthorized(""), ErrCodeUnauthorized, http.StatusUnauthorized},
		{"Forbidden", Forbidden(""), ErrCodeForbidden, http.StatusForbidden},
		{"TokenExpired", TokenExpired(), ErrCodeTokenExpired, http.StatusUnauthorized},
		{"InvalidToken", InvalidToken(), ErrCodeInvalidToken, http.StatusUnauthorized},
		{"ServiceUnavailable", ServiceUnavailable("docs"), ErrCodeServiceUnavailable, http.StatusServiceUnavailable},
		{"Internal", Internal(nil), ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err.Code != tc.code {
				t.Errorf("expected code %s, got %s", tc.code, tc.err.Code)
			}
			if tc.err.HTTPStatus != tc.status {
				t.Errorf("expected status %d, got %d", tc.status, tc.err.HTTPStatus)
			}
			if tc.err.Message == "" {
				t.Error("expected a message")
			}
		})
	}
}

func TestUnauthorizedAndForbidden_CustomReason(t *testing.T) {
	if got := Unauthorized("token required").Message; got != "token required" {
		t.Errorf("unexpected message %q", got)
	}
	if got := Forbidden("admins only").Message; got != "admins only" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestWithCauseAndUnwrap(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Internal(nil).WithCause(cause)
	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Errorf("expected cause in message, got %q", err.Error())
	}
}

func TestWithDetail(t *testing.T) {
	err := Validation("bad").WithDetail("field", "name")
	if err.Details["field"] != "name" {
		t.Errorf("expected detail, got %v", err.Details)
	}
}

func TestFrom(t *testing.T) {
	if From(nil) != nil {
		t.Error("expected nil for nil error")
	}

	app := Forbidden("")
	wrapped := fmt.Errorf("handler: %w", app)
	if From(wrapped) != app {
		t.Error("expected wrapped AppError to be returned as-is")
	}

	plain := From(stderrors.New("boom"))
	if plain.Code != ErrCodeInternal {
		t.Errorf("expected INTERNAL_ERROR, got %s", plain.Code)
	}
}

func TestToResponse_HidesCause(t *testing.T) {
	err := Internal(stderrors.New("secret detail"))
	b, _ := json.Marshal(err.ToResponse())
	if strings.Contains(string(b), "secret detail") {
		t.Errorf("cause leaked into response: %s", b)
	}
	if !strings.Contains(string(b), `"code":"INTERNAL_ERROR"`) {
		t.Errorf("unexpected body: %s", b)
	}
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteJSON(rr, RateLimited())

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("unexpected content type %q", ct)
	}

	var body ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Error.Code != ErrCodeRateLimited || !body.Error.Retryable {
		t.Errorf("unexpected body: %+v", body)
	}
}
