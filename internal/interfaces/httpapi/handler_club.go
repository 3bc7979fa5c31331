package httpapi

import (
	"fmt"
	"net/http"

	"github.com/matchtrack/matchtrack/internal/domain/club"
	"github.com/matchtrack/matchtrack/internal/usecase"
)

type createClubRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	City        string `json:"city" validate:"omitempty,max=100"`
	Website     string `json:"website" validate:"omitempty,url,max=200"`
	Description string `json:"description" validate:"omitempty,max=1000"`
	ProAcademy  bool   `json:"pro_academy"`
}

type updateClubRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=100"`
	City        *string `json:"city" validate:"omitempty,max=100"`
	Website     *string `json:"website" validate:"omitempty,url,max=200"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	ProAcademy  *bool   `json:"pro_academy"`
}

type clubDTO struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	City        string `json:"city,omitempty"`
	Website     string `json:"website,omitempty"`
	Description string `json:"description,omitempty"`
	ProAcademy  bool   `json:"pro_academy"`
	IsActive    bool   `json:"is_active"`
	CreatedAt   string `json:"created_at"`
}

func clubToDTO(c club.Club) clubDTO {
	return clubDTO{
		ID:          c.ID,
		Name:        c.Name,
		City:        c.City,
		Website:     c.Website,
		Description: c.Description,
		ProAcademy:  c.ProAcademy,
		IsActive:    c.IsActive,
		CreatedAt:   formatTime(c.CreatedAt),
	}
}

func (h *Handler) CreateClub(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreateClub")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthenticated))
		return
	}

	var req createClubRequest
	if err := h.decode(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	created, err := h.clubService.Create(ctx, principal, usecase.CreateClubInput{
		Name:        req.Name,
		City:        req.City,
		Website:     req.Website,
		Description: req.Description,
		ProAcademy:  req.ProAcademy,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create club failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, clubToDTO(created))
}

func (h *Handler) GetClub(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetClub")
	defer span.End()

	id, err := pathID(r, "clubID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	c, err := h.clubService.Get(ctx, id)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, clubToDTO(c))
}

func (h *Handler) ListClubs(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListClubs")
	defer span.End()

	var filter club.ListFilter
	var err error

	if filter.Limit, err = queryIntDefault(r, "limit", 0); err != nil {
		writeError(ctx, w, err)
		return
	}
	if filter.Offset, err = queryIntDefault(r, "offset", 0); err != nil {
		writeError(ctx, w, err)
		return
	}

	clubs, err := h.clubService.List(ctx, filter)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	items := make([]clubDTO, 0, len(clubs))
	for _, c := range clubs {
		items = append(items, clubToDTO(c))
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) UpdateClub(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpdateClub")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthenticated))
		return
	}

	id, err := pathID(r, "clubID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req updateClubRequest
	if err := h.decode(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	updated, err := h.clubService.Update(ctx, principal, id, usecase.UpdateClubInput{
		Name:        req.Name,
		City:        req.City,
		Website:     req.Website,
		Description: req.Description,
		ProAcademy:  req.ProAcademy,
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, clubToDTO(updated))
}

func (h *Handler) DeactivateClub(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DeactivateClub")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthenticated))
		return
	}

	id, err := pathID(r, "clubID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.clubService.Deactivate(ctx, principal, id); err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "deactivated"})
}
