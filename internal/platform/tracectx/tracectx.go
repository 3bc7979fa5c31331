package tracectx

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"regexp"
)

// Headers carrying the client-supplied trace pair.
const (
	SessionHeader = "X-Session-ID"
	RequestHeader = "X-Request-ID"
)

// Trace is the session/request id pair that rides every request, queue
// message and log line.
type Trace struct {
	SessionID string `json:"session_id"`
	RequestID string `json:"request_id"`
}

var (
	sessionPattern = regexp.MustCompile(`^mt-sess-[0-9a-f]{8}$`)
	requestPattern = regexp.MustCompile(`^mt-req-[0-9a-f]{8}$`)
)

func NewSessionID() string {
	return "mt-sess-" + randomHex8()
}

func NewRequestID() string {
	return "mt-req-" + randomHex8()
}

// NormalizeSession returns id when it has the session-id shape, otherwise
// the fallback. Malformed or cross-kind client ids are replaced, never
// trusted.
func NormalizeSession(id string, fallback func() string) string {
	if sessionPattern.MatchString(id) {
		return id
	}
	return fallback()
}

// NormalizeRequest is NormalizeSession for request ids.
func NormalizeRequest(id string, fallback func() string) string {
	if requestPattern.MatchString(id) {
		return id
	}
	return fallback()
}

func randomHex8() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "00000000"
	}
	return hex.EncodeToString(buf)
}

type contextKey struct{}

func With(ctx context.Context, tr Trace) context.Context {
	return context.WithValue(ctx, contextKey{}, tr)
}

func From(ctx context.Context) (Trace, bool) {
	tr, ok := ctx.Value(contextKey{}).(Trace)
	return tr, ok
}
