package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	sonic "github.com/bytedance/sonic"

	"github.com/matchtrack/matchtrack/internal/domain/ingest"
	"github.com/matchtrack/matchtrack/internal/domain/invite"
	"github.com/matchtrack/matchtrack/internal/domain/user"
	"github.com/matchtrack/matchtrack/internal/platform/tracectx"
	"github.com/matchtrack/matchtrack/internal/usecase"
)

type responseEnvelope struct {
	Data      any        `json:"data,omitempty"`
	Error     *errorBody `json:"error,omitempty"`
	RequestID string     `json:"request_id,omitempty"`
}

// errorBody carries the stable machine-readable code ("NOT_FOUND",
// "INVITE_EXPIRED", ...) alongside the human message.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type mappedError struct {
	HTTPStatus int
	Code       string
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = sonic.ConfigDefault.NewEncoder(w).Encode(payload)
}

func requestID(ctx context.Context) string {
	tr, _ := tracectx.From(ctx)
	return tr.RequestID
}

func writeSuccess(ctx context.Context, w http.ResponseWriter, status int, data any) {
	writeJSON(ctx, w, status, responseEnvelope{
		Data:      data,
		RequestID: requestID(ctx),
	})
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	mapped := mapError(err)
	writeJSON(ctx, w, mapped.HTTPStatus, responseEnvelope{
		RequestID: requestID(ctx),
		Error: &errorBody{
			Code:    mapped.Code,
			Message: err.Error(),
		},
	})
}

func writeRateLimited(ctx context.Context, w http.ResponseWriter, retryAfterSeconds int64, err error) {
	if retryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt(retryAfterSeconds, 10))
	}
	writeError(ctx, w, err)
}

func writeInternalError(ctx context.Context, w http.ResponseWriter) {
	const msg = "internal server error"

	writeJSON(ctx, w, http.StatusInternalServerError, responseEnvelope{
		RequestID: requestID(ctx),
		Error: &errorBody{
			Code:    "INTERNAL",
			Message: msg,
		},
	})
}

func mapError(err error) mappedError {
	switch {
	case errors.Is(err, invite.ErrExpired):
		return mappedError{HTTPStatus: http.StatusGone, Code: "INVITE_EXPIRED"}
	case errors.Is(err, invite.ErrExhausted):
		return mappedError{HTTPStatus: http.StatusGone, Code: "INVITE_EXHAUSTED"}
	case errors.Is(err, invite.ErrCancelled):
		return mappedError{HTTPStatus: http.StatusGone, Code: "INVITE_CANCELLED"}
	case errors.Is(err, invite.ErrUnavailable):
		return mappedError{HTTPStatus: http.StatusConflict, Code: "INVITE_UNAVAILABLE"}
	case errors.Is(err, ingest.ErrUnknownEntity):
		return mappedError{HTTPStatus: http.StatusUnprocessableEntity, Code: "UNKNOWN_ENTITY"}
	case errors.Is(err, user.ErrInvalidCredentials):
		return mappedError{HTTPStatus: http.StatusUnauthorized, Code: "INVALID_CREDENTIALS"}
	case errors.Is(err, usecase.ErrInvalidInput):
		return mappedError{HTTPStatus: http.StatusBadRequest, Code: "INVALID_INPUT"}
	case errors.Is(err, usecase.ErrUnauthenticated):
		return mappedError{HTTPStatus: http.StatusUnauthorized, Code: "UNAUTHENTICATED"}
	case errors.Is(err, usecase.ErrForbidden):
		return mappedError{HTTPStatus: http.StatusForbidden, Code: "FORBIDDEN"}
	case errors.Is(err, usecase.ErrNotFound):
		return mappedError{HTTPStatus: http.StatusNotFound, Code: "NOT_FOUND"}
	case errors.Is(err, usecase.ErrConflict):
		return mappedError{HTTPStatus: http.StatusConflict, Code: "CONFLICT"}
	case errors.Is(err, usecase.ErrRateLimited):
		return mappedError{HTTPStatus: http.StatusTooManyRequests, Code: "RATE_LIMITED"}
	case errors.Is(err, usecase.ErrInvariant):
		return mappedError{HTTPStatus: http.StatusUnprocessableEntity, Code: "INVARIANT_VIOLATION"}
	case errors.Is(err, usecase.ErrTransient):
		return mappedError{HTTPStatus: http.StatusServiceUnavailable, Code: "UNAVAILABLE"}
	default:
		return mappedError{HTTPStatus: http.StatusInternalServerError, Code: "INTERNAL"}
	}
}
