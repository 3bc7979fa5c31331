package tracectx

import (
	"context"
	"regexp"
	"testing"
)

func TestNewIDs_MatchExpectedShape(t *testing.T) {
	t.Parallel()

	sessPattern := regexp.MustCompile(`^mt-sess-[0-9a-f]{8}$`)
	reqPattern := regexp.MustCompile(`^mt-req-[0-9a-f]{8}$`)

	if id := NewSessionID(); !sessPattern.MatchString(id) {
		t.Fatalf("malformed session id: %s", id)
	}
	if id := NewRequestID(); !reqPattern.MatchString(id) {
		t.Fatalf("malformed request id: %s", id)
	}
}

func TestNormalizeRequest(t *testing.T) {
	t.Parallel()

	fallback := func() string { return "mt-req-00000000" }

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "valid id kept", in: "mt-req-deadbeef", want: "mt-req-deadbeef"},
		{name: "empty replaced", in: "", want: "mt-req-00000000"},
		{name: "wrong prefix replaced", in: "req-deadbeef", want: "mt-req-00000000"},
		{name: "session id replaced", in: "mt-sess-deadbeef", want: "mt-req-00000000"},
		{name: "uppercase hex replaced", in: "mt-req-DEADBEEF", want: "mt-req-00000000"},
		{name: "too long replaced", in: "mt-req-deadbeef00", want: "mt-req-00000000"},
		{name: "injection replaced", in: "mt-req-deadbeef\r\nx", want: "mt-req-00000000"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeRequest(tc.in, fallback); got != tc.want {
				t.Fatalf("NormalizeRequest(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

// Each header kind only accepts its own prefix; a request id in the session
// header gets replaced instead of adopted.
func TestNormalizeSession_RejectsCrossKind(t *testing.T) {
	t.Parallel()

	fallback := func() string { return "mt-sess-00000000" }

	if got := NormalizeSession("mt-sess-deadbeef", fallback); got != "mt-sess-deadbeef" {
		t.Fatalf("valid session id replaced: %q", got)
	}
	if got := NormalizeSession("mt-req-deadbeef", fallback); got != "mt-sess-00000000" {
		t.Fatalf("request id accepted as session id: %q", got)
	}
}

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()

	if _, ok := From(context.Background()); ok {
		t.Fatalf("empty context must not carry a trace")
	}

	tr := Trace{SessionID: "mt-sess-deadbeef", RequestID: "mt-req-deadbeef"}
	ctx := With(context.Background(), tr)

	got, ok := From(ctx)
	if !ok {
		t.Fatalf("expected trace in context")
	}
	if got != tr {
		t.Fatalf("unexpected trace: %+v", got)
	}
}
