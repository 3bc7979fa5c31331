package httpapi

import (
	"fmt"
	"net/http"

	"github.com/matchtrack/matchtrack/internal/domain/match"
	"github.com/matchtrack/matchtrack/internal/usecase"
)

// GetTable serves the public standings for one (league, division, season,
// age group) scope. All four ids are required; rows come from the
// read-through cache.
func (h *Handler) GetTable(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetTable")
	defer span.End()

	var scope match.Scope
	for name, dst := range map[string]*int64{
		"league_id":    &scope.LeagueID,
		"division_id":  &scope.DivisionID,
		"season_id":    &scope.SeasonID,
		"age_group_id": &scope.AgeGroupID,
	} {
		v, err := queryInt64(r, name)
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		if v == nil {
			writeError(ctx, w, fmt.Errorf("%w: %s is required", usecase.ErrInvalidInput, name))
			return
		}
		*dst = *v
	}

	rows, err := h.standingsService.GetTable(ctx, scope)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, rows)
}
