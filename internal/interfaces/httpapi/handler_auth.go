package httpapi

import (
	"fmt"
	"net/http"

	"github.com/matchtrack/matchtrack/internal/domain/user"
	"github.com/matchtrack/matchtrack/internal/usecase"
)

type signupRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=50"`
	Password    string `json:"password" validate:"required,min=8,max=128"`
	Email       string `json:"email" validate:"omitempty,email"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,max=32"`
	DisplayName string `json:"display_name" validate:"omitempty,max=100"`
	InviteCode  string `json:"invite_code" validate:"omitempty,max=64"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type updateProfileRequest struct {
	DisplayName  *string  `json:"display_name" validate:"omitempty,max=100"`
	Email        *string  `json:"email" validate:"omitempty,email"`
	PhoneNumber  *string  `json:"phone_number" validate:"omitempty,max=32"`
	PlayerNumber *int     `json:"player_number" validate:"omitempty,min=0,max=99"`
	Positions    []string `json:"positions" validate:"omitempty,max=5,dive,max=20"`
}

type tokenPairDTO struct {
	AccessToken      string `json:"access_token"`
	AccessExpiresAt  string `json:"access_expires_at"`
	RefreshToken     string `json:"refresh_token"`
	RefreshExpiresAt string `json:"refresh_expires_at"`
}

type authResponseDTO struct {
	Tokens  tokenPairDTO `json:"tokens"`
	Profile profileDTO   `json:"profile"`
}

type profileDTO struct {
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	Email        string   `json:"email,omitempty"`
	PhoneNumber  string   `json:"phone_number,omitempty"`
	Role         string   `json:"role"`
	TeamID       *int64   `json:"team_id,omitempty"`
	ClubID       *int64   `json:"club_id,omitempty"`
	DisplayName  string   `json:"display_name,omitempty"`
	PlayerNumber *int     `json:"player_number,omitempty"`
	Positions    []string `json:"positions,omitempty"`
	CreatedAt    string   `json:"created_at"`
}

func tokenPairToDTO(pair usecase.TokenPair) tokenPairDTO {
	return tokenPairDTO{
		AccessToken:      pair.AccessToken,
		AccessExpiresAt:  formatTime(pair.AccessExpiresAt),
		RefreshToken:     pair.RefreshToken,
		RefreshExpiresAt: formatTime(pair.RefreshExpiresAt),
	}
}

func profileToDTO(p user.Profile) profileDTO {
	return profileDTO{
		ID:           p.ID,
		Username:     p.Username,
		Email:        p.Email,
		PhoneNumber:  p.PhoneNumber,
		Role:         p.Role.String(),
		TeamID:       p.TeamID,
		ClubID:       p.ClubID,
		DisplayName:  p.DisplayName,
		PlayerNumber: p.PlayerNumber,
		Positions:    append([]string(nil), p.Positions...),
		CreatedAt:    formatTime(p.CreatedAt),
	}
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Signup")
	defer span.End()

	var req signupRequest
	if err := h.decode(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	pair, profile, err := h.identityService.Signup(ctx, usecase.SignupInput{
		Username:    req.Username,
		Password:    req.Password,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		DisplayName: req.DisplayName,
		InviteCode:  req.InviteCode,
		IP:          clientIP(r),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "signup failed", "username", req.Username, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, authResponseDTO{
		Tokens:  tokenPairToDTO(pair),
		Profile: profileToDTO(profile),
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Login")
	defer span.End()

	var req loginRequest
	if err := h.decode(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	pair, profile, err := h.identityService.Login(ctx, usecase.LoginInput{
		Username: req.Username,
		Password: req.Password,
		IP:       clientIP(r),
	})
	if err != nil {
		h.logger.InfoContext(ctx, "login failed", "username", req.Username, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, authResponseDTO{
		Tokens:  tokenPairToDTO(pair),
		Profile: profileToDTO(profile),
	})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Refresh")
	defer span.End()

	var req refreshRequest
	if err := h.decode(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	pair, profile, err := h.identityService.Refresh(ctx, req.RefreshToken)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, authResponseDTO{
		Tokens:  tokenPairToDTO(pair),
		Profile: profileToDTO(profile),
	})
}

// Logout takes the access token from the Authorization header and revokes
// its session family. A refresh token in the body still works for clients
// that lost the access token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Logout")
	defer span.End()

	if access := bearerToken(r); access != "" {
		if err := h.identityService.LogoutAccess(ctx, access); err != nil {
			writeError(ctx, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var req refreshRequest
	if err := h.decode(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.identityService.Logout(ctx, req.RefreshToken); err != nil {
		writeError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetProfile")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthenticated))
		return
	}

	profile, err := h.identityService.GetProfile(ctx, principal.UserID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, profileToDTO(profile))
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpdateProfile")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthenticated))
		return
	}

	var req updateProfileRequest
	if err := h.decode(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	profile, err := h.identityService.UpdateProfile(ctx, principal.UserID, usecase.UpdateProfileInput{
		DisplayName:  req.DisplayName,
		Email:        req.Email,
		PhoneNumber:  req.PhoneNumber,
		PlayerNumber: req.PlayerNumber,
		Positions:    req.Positions,
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, profileToDTO(profile))
}
