package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/matchtrack/matchtrack/internal/domain/match"
	"github.com/matchtrack/matchtrack/internal/usecase"
)

type createMatchRequest struct {
	HomeTeamID  int64  `json:"home_team_id" validate:"required,min=1"`
	AwayTeamID  int64  `json:"away_team_id" validate:"required,min=1"`
	HomeScore   *int   `json:"home_score" validate:"omitempty,min=0,max=99"`
	AwayScore   *int   `json:"away_score" validate:"omitempty,min=0,max=99"`
	MatchDate   string `json:"match_date" validate:"required"`
	MatchTime   string `json:"match_time" validate:"omitempty,max=16"`
	Location    string `json:"location" validate:"omitempty,max=200"`
	SeasonID    int64  `json:"season_id" validate:"required,min=1"`
	AgeGroupID  int64  `json:"age_group_id" validate:"required,min=1"`
	MatchTypeID int64  `json:"match_type_id" validate:"required,min=1"`
	DivisionID  int64  `json:"division_id" validate:"required,min=1"`
	Status      string `json:"status" validate:"required"`
}

type updateMatchRequest struct {
	HomeScore       *int    `json:"home_score" validate:"omitempty,min=0,max=99"`
	AwayScore       *int    `json:"away_score" validate:"omitempty,min=0,max=99"`
	ClearScores     bool    `json:"clear_scores"`
	MatchDate       *string `json:"match_date"`
	MatchTime       *string `json:"match_time" validate:"omitempty,max=16"`
	Location        *string `json:"location" validate:"omitempty,max=200"`
	Status          *string `json:"status"`
	ScoreLocked     *bool   `json:"score_locked"`
	ExpectedVersion int64   `json:"expected_version" validate:"omitempty,min=1"`
}

type matchDTO struct {
	ID              int64  `json:"id"`
	HomeTeamID      int64  `json:"home_team_id"`
	AwayTeamID      int64  `json:"away_team_id"`
	HomeScore       *int   `json:"home_score,omitempty"`
	AwayScore       *int   `json:"away_score,omitempty"`
	MatchDate       string `json:"match_date"`
	MatchTime       string `json:"match_time,omitempty"`
	Location        string `json:"location,omitempty"`
	SeasonID        int64  `json:"season_id"`
	AgeGroupID      int64  `json:"age_group_id"`
	MatchTypeID     int64  `json:"match_type_id"`
	DivisionID      int64  `json:"division_id"`
	Status          string `json:"status"`
	ExternalMatchID string `json:"external_match_id,omitempty"`
	Source          string `json:"source"`
	ScoreLocked     bool   `json:"score_locked"`
	Version         int64  `json:"version"`
	UpdatedAt       string `json:"updated_at"`
}

type matchDetailDTO struct {
	matchDTO
	HomeTeamName  string `json:"home_team_name"`
	AwayTeamName  string `json:"away_team_name"`
	SeasonName    string `json:"season_name"`
	AgeGroupName  string `json:"age_group_name"`
	DivisionName  string `json:"division_name"`
	MatchTypeName string `json:"match_type_name"`
}

type matchTypeDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func matchToDTO(m match.Match) matchDTO {
	return matchDTO{
		ID:              m.ID,
		HomeTeamID:      m.HomeTeamID,
		AwayTeamID:      m.AwayTeamID,
		HomeScore:       m.HomeScore,
		AwayScore:       m.AwayScore,
		MatchDate:       m.MatchDate.UTC().Format("2006-01-02"),
		MatchTime:       m.MatchTime,
		Location:        m.Location,
		SeasonID:        m.SeasonID,
		AgeGroupID:      m.AgeGroupID,
		MatchTypeID:     m.MatchTypeID,
		DivisionID:      m.DivisionID,
		Status:          string(m.Status),
		ExternalMatchID: m.ExternalMatchID,
		Source:          string(m.Source),
		ScoreLocked:     m.ScoreLocked,
		Version:         m.Version,
		UpdatedAt:       formatTime(m.UpdatedAt),
	}
}

func matchDetailToDTO(d match.Detail) matchDetailDTO {
	return matchDetailDTO{
		matchDTO:      matchToDTO(d.Match),
		HomeTeamName:  d.HomeTeamName,
		AwayTeamName:  d.AwayTeamName,
		SeasonName:    d.SeasonName,
		AgeGroupName:  d.AgeGroupName,
		DivisionName:  d.DivisionName,
		MatchTypeName: d.MatchTypeName,
	}
}

func (h *Handler) CreateMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreateMatch")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthenticated))
		return
	}

	var req createMatchRequest
	if err := h.decode(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	matchDate, err := parseDate(req.MatchDate)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	created, err := h.matchService.Create(ctx, principal, usecase.CreateMatchInput{
		HomeTeamID:  req.HomeTeamID,
		AwayTeamID:  req.AwayTeamID,
		HomeScore:   req.HomeScore,
		AwayScore:   req.AwayScore,
		MatchDate:   matchDate,
		MatchTime:   req.MatchTime,
		Location:    req.Location,
		SeasonID:    req.SeasonID,
		AgeGroupID:  req.AgeGroupID,
		MatchTypeID: req.MatchTypeID,
		DivisionID:  req.DivisionID,
		Status:      req.Status,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create match failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, matchToDTO(created))
}

func (h *Handler) GetMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMatch")
	defer span.End()

	id, err := pathID(r, "matchID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	detail, err := h.matchService.Get(ctx, id)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, matchDetailToDTO(detail))
}

func (h *Handler) ListMatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMatches")
	defer span.End()

	filter, err := matchFilterFromQuery(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	matches, err := h.matchService.List(ctx, filter)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	items := make([]matchDetailDTO, 0, len(matches))
	for _, m := range matches {
		items = append(items, matchDetailToDTO(m))
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

func matchFilterFromQuery(r *http.Request) (match.Filter, error) {
	var filter match.Filter
	var err error

	if filter.SeasonID, err = queryInt64(r, "season_id"); err != nil {
		return match.Filter{}, err
	}
	if filter.AgeGroupID, err = queryInt64(r, "age_group_id"); err != nil {
		return match.Filter{}, err
	}
	if filter.DivisionID, err = queryInt64(r, "division_id"); err != nil {
		return match.Filter{}, err
	}
	if filter.LeagueID, err = queryInt64(r, "league_id"); err != nil {
		return match.Filter{}, err
	}
	if filter.TeamID, err = queryInt64(r, "team_id"); err != nil {
		return match.Filter{}, err
	}
	if filter.DateFrom, err = queryTime(r, "date_from"); err != nil {
		return match.Filter{}, err
	}
	if filter.DateTo, err = queryTime(r, "date_to"); err != nil {
		return match.Filter{}, err
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := match.ParseStatus(raw)
		if err != nil {
			return match.Filter{}, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err)
		}
		filter.Status = &status
	}
	if filter.Limit, err = queryIntDefault(r, "limit", 0); err != nil {
		return match.Filter{}, err
	}
	if filter.Offset, err = queryIntDefault(r, "offset", 0); err != nil {
		return match.Filter{}, err
	}
	return filter, nil
}

func (h *Handler) UpdateMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpdateMatch")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthenticated))
		return
	}

	id, err := pathID(r, "matchID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req updateMatchRequest
	if err := h.decode(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	input := usecase.UpdateMatchInput{
		HomeScore:       req.HomeScore,
		AwayScore:       req.AwayScore,
		ClearScores:     req.ClearScores,
		MatchTime:       req.MatchTime,
		Location:        req.Location,
		Status:          req.Status,
		ScoreLocked:     req.ScoreLocked,
		ExpectedVersion: req.ExpectedVersion,
	}
	if req.MatchDate != nil {
		matchDate, err := parseDate(*req.MatchDate)
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		input.MatchDate = &matchDate
	}

	updated, err := h.matchService.Update(ctx, principal, id, input)
	if err != nil {
		h.logger.WarnContext(ctx, "update match failed",
			"match_id", id, "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, matchToDTO(updated))
}

func (h *Handler) DeleteMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DeleteMatch")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthenticated))
		return
	}

	id, err := pathID(r, "matchID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.matchService.Delete(ctx, principal, id); err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) ListMatchTypes(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMatchTypes")
	defer span.End()

	types, err := h.matchService.ListTypes(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	items := make([]matchTypeDTO, 0, len(types))
	for _, t := range types {
		items = append(items, matchTypeDTO{ID: t.ID, Name: t.Name})
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: date %q is not RFC3339 or YYYY-MM-DD", usecase.ErrInvalidInput, raw)
}
