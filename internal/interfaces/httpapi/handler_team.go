package httpapi

import (
	"fmt"
	"net/http"

	"github.com/matchtrack/matchtrack/internal/domain/team"
	"github.com/matchtrack/matchtrack/internal/usecase"
)

type createTeamRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	City        string  `json:"city" validate:"omitempty,max=100"`
	ClubID      *int64  `json:"club_id" validate:"omitempty,min=1"`
	LeagueID    int64   `json:"league_id" validate:"required,min=1"`
	AcademyTeam bool    `json:"academy_team"`
	AgeGroupIDs []int64 `json:"age_group_ids" validate:"omitempty,max=10,dive,min=1"`
}

type updateTeamRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=100"`
	City        *string `json:"city" validate:"omitempty,max=100"`
	AcademyTeam *bool   `json:"academy_team"`
}

type teamDTO struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	City        string `json:"city,omitempty"`
	ClubID      *int64 `json:"club_id,omitempty"`
	LeagueID    int64  `json:"league_id"`
	AcademyTeam bool   `json:"academy_team"`
	CreatedAt   string `json:"created_at"`
}

type teamDetailDTO struct {
	teamDTO
	ClubName   string `json:"club_name,omitempty"`
	LeagueName string `json:"league_name"`
}

func teamToDTO(t team.Team) teamDTO {
	return teamDTO{
		ID:          t.ID,
		Name:        t.Name,
		City:        t.City,
		ClubID:      t.ClubID,
		LeagueID:    t.LeagueID,
		AcademyTeam: t.AcademyTeam,
		CreatedAt:   formatTime(t.CreatedAt),
	}
}

func (h *Handler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreateTeam")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthenticated))
		return
	}

	var req createTeamRequest
	if err := h.decode(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	created, err := h.teamService.Create(ctx, principal, usecase.CreateTeamInput{
		Name:        req.Name,
		City:        req.City,
		ClubID:      req.ClubID,
		LeagueID:    req.LeagueID,
		AcademyTeam: req.AcademyTeam,
		AgeGroupIDs: req.AgeGroupIDs,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create team failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, teamToDTO(created))
}

func (h *Handler) GetTeam(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetTeam")
	defer span.End()

	id, err := pathID(r, "teamID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	detail, err := h.teamService.Get(ctx, id)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, teamDetailDTO{
		teamDTO:    teamToDTO(detail.Team),
		ClubName:   detail.ClubName,
		LeagueName: detail.LeagueName,
	})
}

func (h *Handler) ListTeams(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListTeams")
	defer span.End()

	var filter team.ListFilter
	var err error

	if filter.ClubID, err = queryInt64(r, "club_id"); err != nil {
		writeError(ctx, w, err)
		return
	}
	if filter.LeagueID, err = queryInt64(r, "league_id"); err != nil {
		writeError(ctx, w, err)
		return
	}
	if filter.Limit, err = queryIntDefault(r, "limit", 0); err != nil {
		writeError(ctx, w, err)
		return
	}
	if filter.Offset, err = queryIntDefault(r, "offset", 0); err != nil {
		writeError(ctx, w, err)
		return
	}

	teams, err := h.teamService.List(ctx, filter)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	items := make([]teamDTO, 0, len(teams))
	for _, t := range teams {
		items = append(items, teamToDTO(t))
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) UpdateTeam(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpdateTeam")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthenticated))
		return
	}

	id, err := pathID(r, "teamID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req updateTeamRequest
	if err := h.decode(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	updated, err := h.teamService.Update(ctx, principal, id, usecase.UpdateTeamInput{
		Name:        req.Name,
		City:        req.City,
		AcademyTeam: req.AcademyTeam,
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, teamToDTO(updated))
}

func (h *Handler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DeleteTeam")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthenticated))
		return
	}

	id, err := pathID(r, "teamID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.teamService.Delete(ctx, principal, id); err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "deleted"})
}
