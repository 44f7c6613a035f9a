package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/scorecast/scorecast/external/footballdata"
	"github.com/scorecast/scorecast/internal/domain/fixture"
	"github.com/scorecast/scorecast/internal/domain/prediction"
	"github.com/scorecast/scorecast/internal/usecase"
)

type upstreamGateway interface {
	Do(ctx context.Context, path string, query url.Values) (footballdata.Response, error)
}

type Handler struct {
	gameweekService    *usecase.GameweekService
	leaderboardService *usecase.LeaderboardService
	predictionService  *usecase.PredictionService
	refreshService     *usecase.RefreshService
	gateway            upstreamGateway
	logger             *slog.Logger
}

func NewHandler(
	gameweekService *usecase.GameweekService,
	leaderboardService *usecase.LeaderboardService,
	predictionService *usecase.PredictionService,
	refreshService *usecase.RefreshService,
	gateway upstreamGateway,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		gameweekService:    gameweekService,
		leaderboardService: leaderboardService,
		predictionService:  predictionService,
		refreshService:     refreshService,
		gateway:            gateway,
		logger:             logger,
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeJSONBody(r *http.Request, target any) error {
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

type teamDTO struct {
	Name  string `json:"name"`
	Short string `json:"short"`
	Crest string `json:"crest,omitempty"`
}

type fixtureDTO struct {
	ID          int64   `json:"id"`
	Kickoff     string  `json:"kickoff"`
	Status      string  `json:"status"`
	StatusShort string  `json:"statusShort"`
	Round       string  `json:"round,omitempty"`
	Matchday    *int    `json:"matchday,omitempty"`
	Season      int     `json:"season,omitempty"`
	HomeTeam    teamDTO `json:"homeTeam"`
	AwayTeam    teamDTO `json:"awayTeam"`
	HomeGoals   *int    `json:"homeGoals"`
	AwayGoals   *int    `json:"awayGoals"`
}

func fixtureToDTO(fx fixture.Fixture) fixtureDTO {
	return fixtureDTO{
		ID:          fx.ID,
		Kickoff:     fx.Kickoff.UTC().Format(time.RFC3339),
		Status:      fx.Status,
		StatusShort: fixture.ShortStatus(fx.Status),
		Round:       fx.Round,
		Matchday:    fx.Matchday,
		Season:      fx.Season,
		HomeTeam:    teamDTO{Name: fx.HomeTeam.Name, Short: fx.HomeTeam.Short, Crest: fx.HomeTeam.Crest},
		AwayTeam:    teamDTO{Name: fx.AwayTeam.Name, Short: fx.AwayTeam.Short, Crest: fx.AwayTeam.Crest},
		HomeGoals:   fx.HomeGoals,
		AwayGoals:   fx.AwayGoals,
	}
}

func fixturesToDTO(items []fixture.Fixture) []fixtureDTO {
	out := make([]fixtureDTO, 0, len(items))
	for _, fx := range items {
		out = append(out, fixtureToDTO(fx))
	}
	return out
}

type predictionDTO struct {
	UserID    string `json:"userId"`
	FixtureID int64  `json:"fixtureId"`
	Home      *int   `json:"home"`
	Away      *int   `json:"away"`
	Locked    bool   `json:"locked"`
	State     string `json:"state,omitempty"`
	Round     string `json:"round,omitempty"`
	Kickoff   string `json:"kickoff,omitempty"`
}

func predictionToDTO(pred prediction.Prediction, state prediction.LockState) predictionDTO {
	dto := predictionDTO{
		UserID:    pred.UserID,
		FixtureID: pred.FixtureID,
		Home:      pred.Home,
		Away:      pred.Away,
		Locked:    pred.Locked,
		State:     string(state),
		Round:     pred.Round,
	}
	if !pred.Kickoff.IsZero() {
		dto.Kickoff = pred.Kickoff.UTC().Format(time.RFC3339)
	}
	return dto
}
