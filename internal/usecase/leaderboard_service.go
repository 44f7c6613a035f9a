package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/scorecast/scorecast/internal/domain/fixture"
	"github.com/scorecast/scorecast/internal/domain/prediction"
	"github.com/scorecast/scorecast/internal/domain/rawdata"
	"github.com/scorecast/scorecast/internal/domain/scoring"
	"github.com/scorecast/scorecast/internal/domain/user"
	"github.com/scorecast/scorecast/internal/platform/logging"
)

// EntryFeePounds is collected once per paid player and forms the pot.
const EntryFeePounds = 5

type LeaderboardRow struct {
	UserID      string
	DisplayName string
	HasPaid     bool
	Points      int
	Exact       int
	Results     int
	Wrong       int
	Settled     int
}

type Leaderboard struct {
	Season    int
	Rows      []LeaderboardRow
	PaidCount int
	PrizePot  int
}

type RoundStats struct {
	Matchday   int
	IsComplete bool
	Rows       []LeaderboardRow
}

type WeeklyBoard struct {
	Season int
	Rounds []RoundStats
}

type UserRoundPoints struct {
	Matchday int
	Points   int
}

type UserStats struct {
	UserID      string
	DisplayName string
	TotalPoints int
	Exact       int
	Results     int
	Wrong       int
	Settled     int
	Rounds      []UserRoundPoints
}

type LeaderboardService struct {
	provider MatchProvider
	users    user.Repository
	preds    prediction.Repository
	archive  rawdata.Repository
	logger   *logging.Logger
	now      func() time.Time
}

func NewLeaderboardService(
	provider MatchProvider,
	users user.Repository,
	preds prediction.Repository,
	archive rawdata.Repository,
	logger *logging.Logger,
) *LeaderboardService {
	if logger == nil {
		logger = logging.Default()
	}
	return &LeaderboardService{
		provider: provider,
		users:    users,
		preds:    preds,
		archive:  archive,
		logger:   logger,
		now:      time.Now,
	}
}

// Leaderboard builds the season table. Every registered player gets a
// row, even with zero predictions. Only finished fixtures score.
func (s *LeaderboardService) Leaderboard(ctx context.Context) (Leaderboard, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeaderboardService.Leaderboard")
	defer span.End()

	season := DefaultSeason(s.now())
	fixtures, profiles, predictions, err := s.loadSeason(ctx, season)
	if err != nil {
		return Leaderboard{}, err
	}

	fxByID := indexFixtures(fixtures)
	rows := make(map[string]*LeaderboardRow, len(profiles))
	paid := 0
	for _, profile := range profiles {
		rows[profile.ID] = &LeaderboardRow{
			UserID:      profile.ID,
			DisplayName: profile.DisplayName,
			HasPaid:     profile.HasPaid,
		}
		if profile.HasPaid {
			paid++
		}
	}

	for _, pred := range predictions {
		row, ok := rows[pred.UserID]
		if !ok {
			// Predictions outlive roster changes; keep their points
			// visible instead of dropping them.
			row = &LeaderboardRow{UserID: pred.UserID, DisplayName: "Unknown"}
			rows[pred.UserID] = row
		}
		applyResult(row, resultFor(pred, fxByID))
	}

	out := Leaderboard{
		Season:    season,
		Rows:      collectRows(rows),
		PaidCount: paid,
		PrizePot:  paid * EntryFeePounds,
	}
	return out, nil
}

// Weekly builds the per-matchday score matrix. A round is complete
// once every one of its fixtures has settled.
func (s *LeaderboardService) Weekly(ctx context.Context) (WeeklyBoard, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeaderboardService.Weekly")
	defer span.End()

	season := DefaultSeason(s.now())
	fixtures, profiles, predictions, err := s.loadSeason(ctx, season)
	if err != nil {
		return WeeklyBoard{}, err
	}

	fxByID := indexFixtures(fixtures)
	byMatchday := groupByMatchday(fixtures)

	matchdays := make([]int, 0, len(byMatchday))
	for matchday := range byMatchday {
		matchdays = append(matchdays, matchday)
	}
	sort.Ints(matchdays)

	board := WeeklyBoard{Season: season, Rounds: make([]RoundStats, 0, len(matchdays))}
	for _, matchday := range matchdays {
		roundFixtureIDs := make(map[int64]struct{}, len(byMatchday[matchday]))
		complete := true
		for _, fx := range byMatchday[matchday] {
			roundFixtureIDs[fx.ID] = struct{}{}
			if !fx.Settled() {
				complete = false
			}
		}

		rows := make(map[string]*LeaderboardRow, len(profiles))
		for _, profile := range profiles {
			rows[profile.ID] = &LeaderboardRow{
				UserID:      profile.ID,
				DisplayName: profile.DisplayName,
				HasPaid:     profile.HasPaid,
			}
		}
		for _, pred := range predictions {
			if _, inRound := roundFixtureIDs[pred.FixtureID]; !inRound {
				continue
			}
			row, ok := rows[pred.UserID]
			if !ok {
				continue
			}
			applyResult(row, resultFor(pred, fxByID))
		}

		board.Rounds = append(board.Rounds, RoundStats{
			Matchday:   matchday,
			IsComplete: complete,
			Rows:       collectRows(rows),
		})
	}

	return board, nil
}

// Stats summarizes a single player's season. The per-round breakdown
// covers completed rounds only, newest first; rounds still in play
// belong to the weekly view.
func (s *LeaderboardService) Stats(ctx context.Context, userID string) (UserStats, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeaderboardService.Stats")
	defer span.End()

	profile, exists, err := s.users.Get(ctx, userID)
	if err != nil {
		return UserStats{}, fmt.Errorf("get user: %w", err)
	}
	if !exists {
		return UserStats{}, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}

	season := DefaultSeason(s.now())
	fixtures, _, err := s.seasonFixtures(ctx, season)
	if err != nil {
		return UserStats{}, err
	}
	predictions, err := s.preds.ListByUser(ctx, userID)
	if err != nil {
		return UserStats{}, fmt.Errorf("list predictions: %w", err)
	}

	fxByID := indexFixtures(fixtures)
	roundComplete := make(map[int]bool)
	for matchday, roundFixtures := range groupByMatchday(fixtures) {
		complete := true
		for _, fx := range roundFixtures {
			if !fx.Settled() {
				complete = false
				break
			}
		}
		roundComplete[matchday] = complete
	}

	stats := UserStats{UserID: profile.ID, DisplayName: profile.DisplayName}
	pointsByRound := make(map[int]int)
	for _, pred := range predictions {
		fx, ok := fxByID[pred.FixtureID]
		if !ok {
			continue
		}
		result := resultFor(pred, fxByID)
		if result.Points == nil {
			continue
		}
		stats.TotalPoints += *result.Points
		stats.Settled++
		switch result.Status {
		case scoring.StatusExact:
			stats.Exact++
		case scoring.StatusResult:
			stats.Results++
		case scoring.StatusWrong:
			stats.Wrong++
		}
		if fx.Matchday != nil && roundComplete[*fx.Matchday] {
			pointsByRound[*fx.Matchday] += *result.Points
		}
	}

	matchdays := make([]int, 0, len(pointsByRound))
	for matchday := range pointsByRound {
		matchdays = append(matchdays, matchday)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(matchdays)))
	for _, matchday := range matchdays {
		stats.Rounds = append(stats.Rounds, UserRoundPoints{
			Matchday: matchday,
			Points:   pointsByRound[matchday],
		})
	}

	return stats, nil
}

func (s *LeaderboardService) loadSeason(ctx context.Context, season int) ([]fixture.Fixture, []user.Profile, []prediction.Prediction, error) {
	fixtures, _, err := s.seasonFixtures(ctx, season)
	if err != nil {
		return nil, nil, nil, err
	}
	profiles, err := s.users.List(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("list users: %w", err)
	}
	predictions, err := s.preds.ListAll(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("list predictions: %w", err)
	}
	return fixtures, profiles, predictions, nil
}

func (s *LeaderboardService) seasonFixtures(ctx context.Context, season int) ([]fixture.Fixture, rawdata.Payload, error) {
	fixtures, payload, err := s.provider.MatchesBySeason(ctx, season)
	if err != nil {
		return nil, rawdata.Payload{}, fmt.Errorf("fetch season fixtures: %w", err)
	}
	if s.archive != nil && payload.EntityKey != "" {
		if archiveErr := s.archive.UpsertMany(ctx, []rawdata.Payload{payload}); archiveErr != nil {
			s.logger.WarnContext(ctx, "archive season payload failed", "entity_key", payload.EntityKey, "error", archiveErr)
		}
	}
	return fixtures, payload, nil
}

// resultFor scores a prediction against its fixture. A live scoreline
// scores as soon as both goal counts arrive; standings move while a
// round is in play and settle when it finishes.
func resultFor(pred prediction.Prediction, fxByID map[int64]fixture.Fixture) scoring.Result {
	fx, ok := fxByID[pred.FixtureID]
	if !ok || !fx.HasResult() {
		return scoring.Result{Status: scoring.StatusPending}
	}
	return scoring.Score(pred.Home, pred.Away, fx.HomeGoals, fx.AwayGoals)
}

func applyResult(row *LeaderboardRow, result scoring.Result) {
	if result.Points == nil {
		return
	}
	row.Points += *result.Points
	row.Settled++
	switch result.Status {
	case scoring.StatusExact:
		row.Exact++
	case scoring.StatusResult:
		row.Results++
	case scoring.StatusWrong:
		row.Wrong++
	}
}

func indexFixtures(fixtures []fixture.Fixture) map[int64]fixture.Fixture {
	out := make(map[int64]fixture.Fixture, len(fixtures))
	for _, fx := range fixtures {
		out[fx.ID] = fx
	}
	return out
}

func groupByMatchday(fixtures []fixture.Fixture) map[int][]fixture.Fixture {
	out := make(map[int][]fixture.Fixture)
	for _, fx := range fixtures {
		if fx.Matchday == nil {
			continue
		}
		out[*fx.Matchday] = append(out[*fx.Matchday], fx)
	}
	return out
}

// collectRows flattens and orders rows: points first, then display
// name without case sensitivity, then user ID so ordering is total.
func collectRows(rows map[string]*LeaderboardRow) []LeaderboardRow {
	out := make([]LeaderboardRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		left := strings.ToLower(strings.TrimSpace(out[i].DisplayName))
		right := strings.ToLower(strings.TrimSpace(out[j].DisplayName))
		if left != right {
			return left < right
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}
