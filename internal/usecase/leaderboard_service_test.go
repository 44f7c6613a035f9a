package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/scorecast/scorecast/internal/domain/fixture"
	"github.com/scorecast/scorecast/internal/domain/prediction"
	"github.com/scorecast/scorecast/internal/domain/rawdata"
	"github.com/scorecast/scorecast/internal/domain/user"
	"github.com/scorecast/scorecast/internal/infrastructure/repository/memory"
)

func seasonStub(fixtures []fixture.Fixture) *stubMatchProvider {
	return &stubMatchProvider{
		bySeason: func(int) ([]fixture.Fixture, rawdata.Payload, error) {
			return fixtures, rawdata.Payload{EntityKey: "/matches?season=2025"}, nil
		},
	}
}

func leaderboardFixtures(now time.Time) []fixture.Fixture {
	finished := testFixture(1, fixture.StatusFinished, 13, now.Add(-24*time.Hour))
	finished.HomeGoals = intp(3)
	finished.AwayGoals = intp(1)

	draw := testFixture(2, fixture.StatusFinished, 13, now.Add(-22*time.Hour))
	draw.HomeGoals = intp(1)
	draw.AwayGoals = intp(1)

	pending := testFixture(3, fixture.StatusTimed, 13, now.Add(4*time.Hour))
	return []fixture.Fixture{finished, draw, pending}
}

func seedPrediction(t *testing.T, repo *memory.PredictionRepository, userID string, fixtureID int64, home, away int) {
	t.Helper()
	err := repo.Upsert(context.Background(), prediction.Prediction{
		UserID:    userID,
		FixtureID: fixtureID,
		Home:      intp(home),
		Away:      intp(away),
	})
	if err != nil {
		t.Fatalf("seed prediction: %v", err)
	}
}

func TestLeaderboardService_Leaderboard(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 11, 29, 12, 0, 0, 0, time.UTC)
	users := memory.NewUserRepository(
		user.Profile{ID: "u-alice", DisplayName: "Alice", HasPaid: true},
		user.Profile{ID: "u-bob", DisplayName: "bob", HasPaid: true},
		user.Profile{ID: "u-carol", DisplayName: "Carol", HasPaid: false},
	)
	preds := memory.NewPredictionRepository()
	seedPrediction(t, preds, "u-alice", 1, 3, 1) // exact, 20
	seedPrediction(t, preds, "u-bob", 1, 2, 0)   // right result, 6
	seedPrediction(t, preds, "u-carol", 1, 0, 1) // wrong, 0
	seedPrediction(t, preds, "u-carol", 3, 2, 2) // unstarted fixture, pending

	svc := NewLeaderboardService(seasonStub(leaderboardFixtures(now)), users, preds, nil, nil)
	svc.now = func() time.Time { return now }

	board, err := svc.Leaderboard(context.Background())
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}

	if board.Season != 2025 {
		t.Fatalf("season=%d, want 2025", board.Season)
	}
	if board.PaidCount != 2 || board.PrizePot != 2*EntryFeePounds {
		t.Fatalf("paid=%d pot=%d", board.PaidCount, board.PrizePot)
	}
	if len(board.Rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(board.Rows))
	}

	if board.Rows[0].UserID != "u-alice" || board.Rows[0].Points != 20 || board.Rows[0].Exact != 1 {
		t.Fatalf("unexpected leader: %+v", board.Rows[0])
	}
	if board.Rows[1].UserID != "u-bob" || board.Rows[1].Points != 6 {
		t.Fatalf("unexpected runner-up: %+v", board.Rows[1])
	}
	carol := board.Rows[2]
	if carol.Points != 0 || carol.Wrong != 1 || carol.Settled != 1 {
		t.Fatalf("pending prediction leaked into totals: %+v", carol)
	}
}

func TestLeaderboardService_TieBreakIsNameThenID(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 11, 29, 12, 0, 0, 0, time.UTC)
	users := memory.NewUserRepository(
		user.Profile{ID: "u-2", DisplayName: "zoe"},
		user.Profile{ID: "u-1", DisplayName: "Zoe"},
		user.Profile{ID: "u-3", DisplayName: "Adam"},
	)

	svc := NewLeaderboardService(seasonStub(nil), users, memory.NewPredictionRepository(), nil, nil)
	svc.now = func() time.Time { return now }

	board, err := svc.Leaderboard(context.Background())
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}

	// All on zero points: Adam first, then the Zoes by user ID.
	wantOrder := []string{"u-3", "u-1", "u-2"}
	for i, want := range wantOrder {
		if board.Rows[i].UserID != want {
			t.Fatalf("row %d user=%s, want %s", i, board.Rows[i].UserID, want)
		}
	}
}

func TestLeaderboardService_Weekly(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 11, 29, 12, 0, 0, 0, time.UTC)

	md12 := testFixture(10, fixture.StatusFinished, 12, now.Add(-8*24*time.Hour))
	md12.HomeGoals = intp(0)
	md12.AwayGoals = intp(0)
	fixtures := append([]fixture.Fixture{md12}, leaderboardFixtures(now)...)

	users := memory.NewUserRepository(user.Profile{ID: "u-alice", DisplayName: "Alice", HasPaid: true})
	preds := memory.NewPredictionRepository()
	seedPrediction(t, preds, "u-alice", 10, 0, 0) // exact in matchday 12
	seedPrediction(t, preds, "u-alice", 1, 3, 1)  // exact in matchday 13

	svc := NewLeaderboardService(seasonStub(fixtures), users, preds, nil, nil)
	svc.now = func() time.Time { return now }

	board, err := svc.Weekly(context.Background())
	if err != nil {
		t.Fatalf("Weekly: %v", err)
	}

	if len(board.Rounds) != 2 {
		t.Fatalf("got %d rounds, want 2", len(board.Rounds))
	}
	if board.Rounds[0].Matchday != 12 || !board.Rounds[0].IsComplete {
		t.Fatalf("matchday 12 should be complete: %+v", board.Rounds[0])
	}
	if board.Rounds[1].Matchday != 13 || board.Rounds[1].IsComplete {
		t.Fatalf("matchday 13 still has an unplayed fixture: %+v", board.Rounds[1])
	}
	if board.Rounds[0].Rows[0].Points != 20 || board.Rounds[1].Rows[0].Points != 20 {
		t.Fatalf("per-round points wrong: %+v", board.Rounds)
	}
}

func TestLeaderboardService_Stats(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 11, 29, 12, 0, 0, 0, time.UTC)

	md11 := testFixture(20, fixture.StatusFinished, 11, now.Add(-15*24*time.Hour))
	md11.HomeGoals = intp(2)
	md11.AwayGoals = intp(0)
	md12 := testFixture(10, fixture.StatusFinished, 12, now.Add(-8*24*time.Hour))
	md12.HomeGoals = intp(0)
	md12.AwayGoals = intp(0)
	fixtures := append([]fixture.Fixture{md11, md12}, leaderboardFixtures(now)...)

	users := memory.NewUserRepository(user.Profile{ID: "u-alice", DisplayName: "Alice"})
	preds := memory.NewPredictionRepository()
	seedPrediction(t, preds, "u-alice", 20, 1, 0) // right result in matchday 11
	seedPrediction(t, preds, "u-alice", 10, 0, 0) // exact in matchday 12
	seedPrediction(t, preds, "u-alice", 1, 3, 1)  // exact in matchday 13, round unfinished
	seedPrediction(t, preds, "u-alice", 3, 1, 0)  // pending

	svc := NewLeaderboardService(seasonStub(fixtures), users, preds, nil, nil)
	svc.now = func() time.Time { return now }

	stats, err := svc.Stats(context.Background(), "u-alice")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}

	if stats.TotalPoints != 46 || stats.Exact != 2 || stats.Results != 1 || stats.Settled != 3 {
		t.Fatalf("unexpected totals: %+v", stats)
	}

	// Matchday 13 is still in play, so the breakdown holds the complete
	// rounds only, newest first.
	if len(stats.Rounds) != 2 {
		t.Fatalf("got %d rounds, want 2: %+v", len(stats.Rounds), stats.Rounds)
	}
	if stats.Rounds[0].Matchday != 12 || stats.Rounds[0].Points != 20 {
		t.Fatalf("unexpected first round: %+v", stats.Rounds[0])
	}
	if stats.Rounds[1].Matchday != 11 || stats.Rounds[1].Points != 6 {
		t.Fatalf("unexpected second round: %+v", stats.Rounds[1])
	}

	if _, err := svc.Stats(context.Background(), "u-ghost"); err == nil {
		t.Fatal("expected unknown user to error")
	}
}

func TestLeaderboardService_LiveFixturesScore(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 11, 29, 16, 30, 0, 0, time.UTC)
	live := testFixture(5, fixture.StatusInPlay, 13, now.Add(-time.Hour))
	live.HomeGoals = intp(2)
	live.AwayGoals = intp(1)

	users := memory.NewUserRepository(
		user.Profile{ID: "u-alice", DisplayName: "Alice"},
		user.Profile{ID: "u-bob", DisplayName: "Bob"},
	)
	preds := memory.NewPredictionRepository()
	seedPrediction(t, preds, "u-alice", 5, 2, 1) // exact on the live score
	seedPrediction(t, preds, "u-bob", 5, 1, 0)   // right result so far

	svc := NewLeaderboardService(seasonStub([]fixture.Fixture{live}), users, preds, nil, nil)
	svc.now = func() time.Time { return now }

	board, err := svc.Leaderboard(context.Background())
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}

	// An in-play scoreline moves the standings as it changes.
	if board.Rows[0].UserID != "u-alice" || board.Rows[0].Points != 20 {
		t.Fatalf("live exact prediction did not score: %+v", board.Rows[0])
	}
	if board.Rows[1].UserID != "u-bob" || board.Rows[1].Points != 6 {
		t.Fatalf("live result prediction did not score: %+v", board.Rows[1])
	}
}

func TestLeaderboardService_RoundSettlesOnGoalCounts(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 11, 29, 16, 30, 0, 0, time.UTC)

	// Both goal counts present, status not yet flipped to FINISHED.
	stalled := testFixture(6, fixture.StatusInPlay, 12, now.Add(-3*time.Hour))
	stalled.HomeGoals = intp(1)
	stalled.AwayGoals = intp(1)

	users := memory.NewUserRepository(user.Profile{ID: "u-alice", DisplayName: "Alice"})
	preds := memory.NewPredictionRepository()
	seedPrediction(t, preds, "u-alice", 6, 1, 1)

	svc := NewLeaderboardService(seasonStub([]fixture.Fixture{stalled}), users, preds, nil, nil)
	svc.now = func() time.Time { return now }

	board, err := svc.Weekly(context.Background())
	if err != nil {
		t.Fatalf("Weekly: %v", err)
	}
	if len(board.Rounds) != 1 || !board.Rounds[0].IsComplete {
		t.Fatalf("round with full goal counts should be complete: %+v", board.Rounds)
	}

	stats, err := svc.Stats(context.Background(), "u-alice")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(stats.Rounds) != 1 || stats.Rounds[0].Matchday != 12 || stats.Rounds[0].Points != 20 {
		t.Fatalf("settled round missing from breakdown: %+v", stats.Rounds)
	}
}

func TestLeaderboardService_PredictionsOutliveRosterRemoval(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 11, 29, 12, 0, 0, 0, time.UTC)
	users := memory.NewUserRepository(user.Profile{ID: "u-alice", DisplayName: "Alice"})
	preds := memory.NewPredictionRepository()
	seedPrediction(t, preds, "u-gone", 1, 3, 1) // exact, but user left the roster

	svc := NewLeaderboardService(seasonStub(leaderboardFixtures(now)), users, preds, nil, nil)
	svc.now = func() time.Time { return now }

	board, err := svc.Leaderboard(context.Background())
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}

	if len(board.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(board.Rows))
	}
	if board.Rows[0].UserID != "u-gone" || board.Rows[0].DisplayName != "Unknown" || board.Rows[0].Points != 20 {
		t.Fatalf("orphaned prediction dropped from board: %+v", board.Rows[0])
	}
}
