package httpapi

import (
	"net/http"
	"time"

	"github.com/matchtrack/matchtrack/internal/platform/logging"
	"github.com/matchtrack/matchtrack/internal/platform/ratelimit"
)

// RateLimits carries the per-class request budgets. A zero limit disables
// that class.
type RateLimits struct {
	Login  ratelimit.Rule
	Signup ratelimit.Rule
	Public ratelimit.Rule
	Read   ratelimit.Rule
	Write  ratelimit.Rule
}

func DefaultRateLimits() RateLimits {
	window := time.Minute
	return RateLimits{
		Login:  ratelimit.Rule{Limit: 10, Window: window},
		Signup: ratelimit.Rule{Limit: 20, Window: window},
		Public: ratelimit.Rule{Limit: 20, Window: window},
		Read:   ratelimit.Rule{Limit: 120, Window: window},
		Write:  ratelimit.Rule{Limit: 60, Window: window},
	}
}

func NewRouter(
	handler *Handler,
	verifier TokenVerifier,
	limiter *ratelimit.Limiter,
	limits RateLimits,
	logger *logging.Logger,
	corsAllowedOrigins []string,
) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}

	mux := http.NewServeMux()
	registerSystemRoutes(mux, handler)
	registerAuthRoutes(mux, handler, verifier, limiter, limits)
	registerPublicRoutes(mux, handler, limiter, limits)
	registerAuthorizedRoutes(mux, handler, verifier, limiter, limits)

	return RequestTracing(RequestLogging(logger, TraceHeaders(CORS(corsAllowedOrigins, recoverPanic(logger, mux)))))
}

func recoverPanic(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(ctx, "panic recovered", "panic", rec, "path", r.URL.Path)
				writeInternalError(ctx, w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
