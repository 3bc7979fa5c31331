package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/matchtrack/matchtrack/internal/domain/invite"
	"github.com/matchtrack/matchtrack/internal/usecase"
)

type createInviteRequest struct {
	InviteType string `json:"invite_type" validate:"required"`
	TeamID     *int64 `json:"team_id" validate:"omitempty,min=1"`
	ClubID     *int64 `json:"club_id" validate:"omitempty,min=1"`
	AgeGroupID *int64 `json:"age_group_id" validate:"omitempty,min=1"`
	MaxUses    int    `json:"max_uses" validate:"omitempty,min=1,max=1000"`
	TTLHours   int    `json:"ttl_hours" validate:"omitempty,min=1,max=720"`
}

type invitationDTO struct {
	ID            int64  `json:"id"`
	Code          string `json:"code"`
	InviteType    string `json:"invite_type"`
	TeamID        *int64 `json:"team_id,omitempty"`
	ClubID        *int64 `json:"club_id,omitempty"`
	AgeGroupID    *int64 `json:"age_group_id,omitempty"`
	MaxUses       int    `json:"max_uses"`
	CurrentUses   int    `json:"current_uses"`
	RemainingUses int    `json:"remaining_uses"`
	Status        string `json:"status"`
	ExpiresAt     string `json:"expires_at"`
	CreatedAt     string `json:"created_at"`
}

type inviteInfoDTO struct {
	Code          string `json:"code"`
	InviteType    string `json:"invite_type"`
	Status        string `json:"status"`
	TeamID        *int64 `json:"team_id,omitempty"`
	ClubID        *int64 `json:"club_id,omitempty"`
	AgeGroupID    *int64 `json:"age_group_id,omitempty"`
	RemainingUses int    `json:"remaining_uses"`
	ExpiresAt     string `json:"expires_at"`
}

func invitationToDTO(v invite.Invitation, now time.Time) invitationDTO {
	return invitationDTO{
		ID:            v.ID,
		Code:          v.Code,
		InviteType:    string(v.InviteType),
		TeamID:        v.TeamID,
		ClubID:        v.ClubID,
		AgeGroupID:    v.AgeGroupID,
		MaxUses:       v.MaxUses,
		CurrentUses:   v.CurrentUses,
		RemainingUses: v.RemainingUses(),
		Status:        string(v.EffectiveStatus(now)),
		ExpiresAt:     formatTime(v.ExpiresAt),
		CreatedAt:     formatTime(v.CreatedAt),
	}
}

func (h *Handler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreateInvite")
	defer span.End()

	h.createInvite(ctx, w, r, "")
}

// CreateInviteForRole is the path-addressed form of invite creation: the
// target role rides in the URL and the issuer segment is informational.
// Delegation is enforced in the service either way.
func (h *Handler) CreateInviteForRole(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreateInviteForRole")
	defer span.End()

	h.createInvite(ctx, w, r, strings.TrimSpace(r.PathValue("targetRole")))
}

func (h *Handler) createInvite(ctx context.Context, w http.ResponseWriter, r *http.Request, inviteType string) {
	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthenticated))
		return
	}

	var req createInviteRequest
	if err := h.decode(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if inviteType != "" {
		req.InviteType = inviteType
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	invitation, err := h.inviteService.Create(ctx, principal, usecase.CreateInviteInput{
		Type:       req.InviteType,
		TeamID:     req.TeamID,
		ClubID:     req.ClubID,
		AgeGroupID: req.AgeGroupID,
		MaxUses:    req.MaxUses,
		TTL:        time.Duration(req.TTLHours) * time.Hour,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create invite failed",
			"issuer", principal.UserID, "invite_type", req.InviteType, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, invitationToDTO(invitation, time.Now()))
}

func (h *Handler) ValidateInvite(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ValidateInvite")
	defer span.End()

	code := strings.TrimSpace(r.PathValue("code"))
	if code == "" {
		writeError(ctx, w, fmt.Errorf("%w: invite code is required", usecase.ErrInvalidInput))
		return
	}

	info, err := h.inviteService.Validate(ctx, code)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, inviteInfoDTO{
		Code:          info.Code,
		InviteType:    string(info.InviteType),
		Status:        string(info.Status),
		TeamID:        info.TeamID,
		ClubID:        info.ClubID,
		AgeGroupID:    info.AgeGroupID,
		RemainingUses: info.RemainingUses,
		ExpiresAt:     formatTime(info.ExpiresAt),
	})
}

func (h *Handler) ListInvites(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListInvites")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthenticated))
		return
	}

	limit, err := queryIntDefault(r, "limit", 50)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	offset, err := queryIntDefault(r, "offset", 0)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	invites, err := h.inviteService.List(ctx, principal, invite.ListFilter{
		CreatedBy: strings.TrimSpace(r.URL.Query().Get("created_by")),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	now := time.Now()
	items := make([]invitationDTO, 0, len(invites))
	for _, v := range invites {
		items = append(items, invitationToDTO(v, now))
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) CancelInvite(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CancelInvite")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthenticated))
		return
	}

	inviteID, err := pathID(r, "inviteID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.inviteService.Cancel(ctx, principal, inviteID); err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "cancelled"})
}
