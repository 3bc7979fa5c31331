package httpapi

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	sonic "github.com/bytedance/sonic"

	"github.com/matchtrack/matchtrack/internal/domain/ingest"
	"github.com/matchtrack/matchtrack/internal/domain/invite"
	"github.com/matchtrack/matchtrack/internal/domain/user"
	"github.com/matchtrack/matchtrack/internal/platform/tracectx"
	"github.com/matchtrack/matchtrack/internal/usecase"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var envelope responseEnvelope
	if err := sonic.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (body %q)", err, rec.Body.String())
	}
	return envelope
}

func TestWriteSuccess_Envelope(t *testing.T) {
	t.Parallel()

	tr := tracectx.Trace{SessionID: "mt-sess-11111111", RequestID: "mt-req-22222222"}
	ctx := tracectx.With(t.Context(), tr)

	rec := httptest.NewRecorder()
	writeSuccess(ctx, rec, http.StatusCreated, map[string]string{"name": "Harbor United"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("content type: got %q", got)
	}

	envelope := decodeEnvelope(t, rec)
	if envelope.Error != nil {
		t.Fatalf("success envelope carries an error: %+v", envelope.Error)
	}
	if envelope.RequestID != "mt-req-22222222" {
		t.Fatalf("request id not echoed: %q", envelope.RequestID)
	}
	data, ok := envelope.Data.(map[string]any)
	if !ok || data["name"] != "Harbor United" {
		t.Fatalf("data not round-tripped: %+v", envelope.Data)
	}
}

func TestWriteError_MapsDomainErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err        error
		wantCode   int
		wantStatus string
	}{
		{fmt.Errorf("%w: code INV-1", invite.ErrExpired), http.StatusGone, "INVITE_EXPIRED"},
		{fmt.Errorf("%w: code INV-1", invite.ErrExhausted), http.StatusGone, "INVITE_EXHAUSTED"},
		{fmt.Errorf("%w: code INV-1", invite.ErrCancelled), http.StatusGone, "INVITE_CANCELLED"},
		{fmt.Errorf("consume invite: %w", invite.ErrUnavailable), http.StatusConflict, "INVITE_UNAVAILABLE"},
		{fmt.Errorf("%w: team %q", ingest.ErrUnknownEntity, "Phantom FC"), http.StatusUnprocessableEntity, "UNKNOWN_ENTITY"},
		{fmt.Errorf("login: %w", user.ErrInvalidCredentials), http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		// The identity service wraps both sentinels; the specific code must
		// win over the generic 401.
		{fmt.Errorf("%w: %w", usecase.ErrUnauthenticated, user.ErrInvalidCredentials), http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{fmt.Errorf("%w: username too short", usecase.ErrInvalidInput), http.StatusBadRequest, "INVALID_INPUT"},
		{fmt.Errorf("%w: token expired", usecase.ErrUnauthenticated), http.StatusUnauthorized, "UNAUTHENTICATED"},
		{fmt.Errorf("%w: out of scope", usecase.ErrForbidden), http.StatusForbidden, "FORBIDDEN"},
		{fmt.Errorf("%w: match", usecase.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{fmt.Errorf("%w: username taken", usecase.ErrConflict), http.StatusConflict, "CONFLICT"},
		{fmt.Errorf("%w: slow down", usecase.ErrRateLimited), http.StatusTooManyRequests, "RATE_LIMITED"},
		{fmt.Errorf("%w: enqueue", usecase.ErrTransient), http.StatusServiceUnavailable, "UNAVAILABLE"},
		{fmt.Errorf("disk on fire"), http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeError(t.Context(), rec, tc.err)

		if rec.Code != tc.wantCode {
			t.Errorf("%v: status %d, want %d", tc.err, rec.Code, tc.wantCode)
			continue
		}
		envelope := decodeEnvelope(t, rec)
		if envelope.Error == nil || envelope.Error.Code != tc.wantStatus {
			t.Errorf("%v: envelope %+v, want code %s", tc.err, envelope.Error, tc.wantStatus)
		}
	}
}

func TestWriteRateLimited_SetsRetryAfter(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeRateLimited(t.Context(), rec, 42, fmt.Errorf("%w: login", usecase.ErrRateLimited))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status: got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "42" {
		t.Fatalf("Retry-After: got %q", got)
	}
}

func TestWriteInternalError_MasksDetail(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeInternalError(t.Context(), rec)

	envelope := decodeEnvelope(t, rec)
	if envelope.Error == nil || envelope.Error.Message != "internal server error" {
		t.Fatalf("internal errors must be masked: %+v", envelope.Error)
	}
}
