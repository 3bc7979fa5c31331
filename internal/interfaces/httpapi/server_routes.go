package httpapi

import (
	"net/http"

	"github.com/matchtrack/matchtrack/internal/platform/ratelimit"
)

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	mux.HandleFunc("GET /health", handler.Healthz)
	mux.HandleFunc("GET /health/full", handler.HealthFull)
}

func registerAuthRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier, limiter *ratelimit.Limiter, limits RateLimits) {
	mux.Handle("POST /api/auth/signup", RateLimit(limiter, "signup", limits.Signup, http.HandlerFunc(handler.Signup)))
	mux.Handle("POST /api/auth/login", RateLimit(limiter, "login", limits.Login, http.HandlerFunc(handler.Login)))
	mux.Handle("POST /api/auth/refresh", RateLimit(limiter, "login", limits.Login, http.HandlerFunc(handler.Refresh)))
	mux.Handle("POST /api/auth/logout", RateLimit(limiter, "write", limits.Write, http.HandlerFunc(handler.Logout)))
	mux.Handle("GET /api/auth/profile", RequireAuth(verifier, http.HandlerFunc(handler.GetProfile)))
	mux.Handle("PUT /api/auth/profile", RequireAuth(verifier, http.HandlerFunc(handler.UpdateProfile)))
}

func registerPublicRoutes(mux *http.ServeMux, handler *Handler, limiter *ratelimit.Limiter, limits RateLimits) {
	// Invite validation and the standings table are reachable without a
	// session; both sit behind the public budget.
	mux.Handle("GET /api/invites/validate/{code}", RateLimit(limiter, "public", limits.Public, http.HandlerFunc(handler.ValidateInvite)))
	mux.Handle("GET /api/table", RateLimit(limiter, "public", limits.Public, http.HandlerFunc(handler.GetTable)))
	mux.Handle("GET /api/match-types", RateLimit(limiter, "public", limits.Public, http.HandlerFunc(handler.ListMatchTypes)))
}

func registerAuthorizedRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier, limiter *ratelimit.Limiter, limits RateLimits) {
	read := func(h http.HandlerFunc) http.Handler {
		return RateLimit(limiter, "read", limits.Read, RequireAuth(verifier, h))
	}
	write := func(h http.HandlerFunc) http.Handler {
		return RateLimit(limiter, "write", limits.Write, RequireAuth(verifier, h))
	}

	mux.Handle("POST /api/invites", write(handler.CreateInvite))
	mux.Handle("POST /api/invites/{issuerRole}/{targetRole}", write(handler.CreateInviteForRole))
	mux.Handle("GET /api/invites", read(handler.ListInvites))
	mux.Handle("DELETE /api/invites/{inviteID}", write(handler.CancelInvite))

	mux.Handle("POST /api/matches", write(handler.CreateMatch))
	mux.Handle("GET /api/matches", read(handler.ListMatches))
	mux.Handle("GET /api/matches/{matchID}", read(handler.GetMatch))
	mux.Handle("PATCH /api/matches/{matchID}", write(handler.UpdateMatch))
	mux.Handle("DELETE /api/matches/{matchID}", write(handler.DeleteMatch))

	mux.Handle("POST /api/teams", write(handler.CreateTeam))
	mux.Handle("GET /api/teams", read(handler.ListTeams))
	mux.Handle("GET /api/teams/{teamID}", read(handler.GetTeam))
	mux.Handle("PATCH /api/teams/{teamID}", write(handler.UpdateTeam))
	mux.Handle("DELETE /api/teams/{teamID}", write(handler.DeleteTeam))

	mux.Handle("POST /api/clubs", write(handler.CreateClub))
	mux.Handle("GET /api/clubs", read(handler.ListClubs))
	mux.Handle("GET /api/clubs/{clubID}", read(handler.GetClub))
	mux.Handle("PATCH /api/clubs/{clubID}", write(handler.UpdateClub))
	mux.Handle("DELETE /api/clubs/{clubID}", write(handler.DeactivateClub))

	mux.Handle("POST /api/matches/submit", write(handler.SubmitMatch))
	mux.Handle("GET /api/matches/task/{taskID}", read(handler.GetTaskStatus))
}
