package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/scorecast/scorecast/internal/usecase"
)

type gameweekDTO struct {
	Matchday     int          `json:"matchday"`
	Season       int          `json:"season"`
	FirstKickoff string       `json:"firstKickoff"`
	Fixtures     []fixtureDTO `json:"fixtures"`
}

func (h *Handler) GetCurrentGameweek(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetCurrentGameweek")
	defer span.End()

	gw, err := h.gameweekService.Current(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "resolve current gameweek failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, gameweekDTO{
		Matchday:     gw.Matchday,
		Season:       gw.Season,
		FirstKickoff: gw.FirstKickoff().UTC().Format(time.RFC3339),
		Fixtures:     fixturesToDTO(gw.Fixtures),
	})
}

func (h *Handler) ListFixtures(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListFixtures")
	defer span.End()

	from, err := parseDateParam(r, "dateFrom")
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	to, err := parseDateParam(r, "dateTo")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	fixtures, err := h.gameweekService.FixturesInRange(ctx, from, to)
	if err != nil {
		h.logger.WarnContext(ctx, "list fixtures failed", "date_from", from, "date_to", to, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, fixturesToDTO(fixtures))
}

func parseDateParam(r *http.Request, name string) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: %s is required", usecase.ErrInvalidInput, name)
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", usecase.ErrInvalidInput, name)
	}
	return parsed.UTC(), nil
}
