package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/matchtrack/matchtrack/internal/domain/ingest"
	"github.com/matchtrack/matchtrack/internal/usecase"
)

type submitMatchRequest struct {
	HomeTeam        string `json:"home_team" validate:"required,max=100"`
	AwayTeam        string `json:"away_team" validate:"required,max=100"`
	HomeScore       *int   `json:"home_score" validate:"omitempty,min=0,max=99"`
	AwayScore       *int   `json:"away_score" validate:"omitempty,min=0,max=99"`
	MatchDate       string `json:"match_date" validate:"required"`
	MatchTime       string `json:"match_time" validate:"omitempty,max=16"`
	Location        string `json:"location" validate:"omitempty,max=200"`
	League          string `json:"league" validate:"required,max=100"`
	Season          string `json:"season" validate:"required,max=50"`
	AgeGroup        string `json:"age_group" validate:"required,max=50"`
	Division        string `json:"division" validate:"required,max=100"`
	MatchType       string `json:"match_type" validate:"required,max=50"`
	Status          string `json:"status" validate:"required"`
	ExternalMatchID string `json:"external_match_id" validate:"omitempty,max=128"`
}

type taskResultDTO struct {
	TaskID    string `json:"task_id"`
	State     string `json:"state"`
	Ready     bool   `json:"ready"`
	MatchID   int64  `json:"match_id,omitempty"`
	Action    string `json:"action,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
	Error     string `json:"error,omitempty"`
	UpdatedAt string `json:"updated_at"`
}

func (h *Handler) SubmitMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SubmitMatch")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthenticated))
		return
	}

	var req submitMatchRequest
	if err := h.decode(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	taskID, err := h.ingestionService.Submit(ctx, principal, ingest.Submission{
		HomeTeam:        req.HomeTeam,
		AwayTeam:        req.AwayTeam,
		HomeScore:       req.HomeScore,
		AwayScore:       req.AwayScore,
		MatchDate:       req.MatchDate,
		MatchTime:       req.MatchTime,
		Location:        req.Location,
		League:          req.League,
		Season:          req.Season,
		AgeGroup:        req.AgeGroup,
		Division:        req.Division,
		MatchType:       req.MatchType,
		Status:          req.Status,
		ExternalMatchID: req.ExternalMatchID,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "submit match failed", "producer", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusAccepted, map[string]string{
		"task_id":    taskID,
		"state":      string(ingest.StatePending),
		"status_url": "/api/matches/task/" + taskID,
	})
}

func (h *Handler) GetTaskStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetTaskStatus")
	defer span.End()

	taskID := strings.TrimSpace(r.PathValue("taskID"))
	result, err := h.ingestionService.TaskStatus(ctx, taskID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, taskResultDTO{
		TaskID:    result.TaskID,
		State:     string(result.State),
		Ready:     result.Ready(),
		MatchID:   result.MatchID,
		Action:    string(result.Action),
		ErrorCode: result.ErrorCode,
		Error:     result.Error,
		UpdatedAt: formatTime(result.UpdatedAt),
	})
}
