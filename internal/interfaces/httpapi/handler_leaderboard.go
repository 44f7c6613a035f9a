package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/scorecast/scorecast/internal/usecase"
)

type leaderboardRowDTO struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	HasPaid     bool   `json:"hasPaid"`
	Points      int    `json:"points"`
	Exact       int    `json:"exact"`
	Results     int    `json:"results"`
	Wrong       int    `json:"wrong"`
	Settled     int    `json:"settled"`
}

type leaderboardDTO struct {
	Season    int                 `json:"season"`
	PaidCount int                 `json:"paidCount"`
	PrizePot  int                 `json:"prizePot"`
	Rows      []leaderboardRowDTO `json:"rows"`
}

type roundStatsDTO struct {
	Matchday   int                 `json:"matchday"`
	IsComplete bool                `json:"isComplete"`
	Rows       []leaderboardRowDTO `json:"rows"`
}

type weeklyBoardDTO struct {
	Season int             `json:"season"`
	Rounds []roundStatsDTO `json:"rounds"`
}

type userRoundPointsDTO struct {
	Matchday int `json:"matchday"`
	Points   int `json:"points"`
}

type userStatsDTO struct {
	UserID      string               `json:"userId"`
	DisplayName string               `json:"displayName"`
	TotalPoints int                  `json:"totalPoints"`
	Exact       int                  `json:"exact"`
	Results     int                  `json:"results"`
	Wrong       int                  `json:"wrong"`
	Settled     int                  `json:"settled"`
	Rounds      []userRoundPointsDTO `json:"rounds"`
}

func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetLeaderboard")
	defer span.End()

	board, err := h.leaderboardService.Leaderboard(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "build leaderboard failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, leaderboardDTO{
		Season:    board.Season,
		PaidCount: board.PaidCount,
		PrizePot:  board.PrizePot,
		Rows:      rowsToDTO(board.Rows),
	})
}

func (h *Handler) GetWeeklyBoard(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetWeeklyBoard")
	defer span.End()

	board, err := h.leaderboardService.Weekly(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "build weekly board failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	rounds := make([]roundStatsDTO, 0, len(board.Rounds))
	for _, round := range board.Rounds {
		rounds = append(rounds, roundStatsDTO{
			Matchday:   round.Matchday,
			IsComplete: round.IsComplete,
			Rows:       rowsToDTO(round.Rows),
		})
	}

	writeSuccess(ctx, w, http.StatusOK, weeklyBoardDTO{Season: board.Season, Rounds: rounds})
}

func (h *Handler) GetUserStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetUserStats")
	defer span.End()

	userID := strings.TrimSpace(r.PathValue("userID"))
	if userID == "" {
		writeError(ctx, w, fmt.Errorf("%w: user id is required", usecase.ErrInvalidInput))
		return
	}

	stats, err := h.leaderboardService.Stats(ctx, userID)
	if err != nil {
		h.logger.WarnContext(ctx, "build user stats failed", "user_id", userID, "error", err)
		writeError(ctx, w, err)
		return
	}

	rounds := make([]userRoundPointsDTO, 0, len(stats.Rounds))
	for _, round := range stats.Rounds {
		rounds = append(rounds, userRoundPointsDTO(round))
	}

	writeSuccess(ctx, w, http.StatusOK, userStatsDTO{
		UserID:      stats.UserID,
		DisplayName: stats.DisplayName,
		TotalPoints: stats.TotalPoints,
		Exact:       stats.Exact,
		Results:     stats.Results,
		Wrong:       stats.Wrong,
		Settled:     stats.Settled,
		Rounds:      rounds,
	})
}

func rowsToDTO(rows []usecase.LeaderboardRow) []leaderboardRowDTO {
	out := make([]leaderboardRowDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, leaderboardRowDTO(row))
	}
	return out
}
