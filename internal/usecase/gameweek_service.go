package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/scorecast/scorecast/internal/domain/fixture"
	"github.com/scorecast/scorecast/internal/domain/rawdata"
	"github.com/scorecast/scorecast/internal/platform/logging"
)

const detectionWindow = 14 * 24 * time.Hour

// MatchProvider is the slice of the football-data client the
// gameweek and leaderboard services consume.
type MatchProvider interface {
	MatchesInRange(ctx context.Context, dateFrom, dateTo time.Time) ([]fixture.Fixture, rawdata.Payload, error)
	MatchesByMatchday(ctx context.Context, matchday, season int) ([]fixture.Fixture, rawdata.Payload, error)
	MatchesBySeason(ctx context.Context, season int) ([]fixture.Fixture, rawdata.Payload, error)
}

type Gameweek struct {
	Matchday int
	Season   int
	Fixtures []fixture.Fixture
}

// FirstKickoff returns the earliest kickoff of the round, the moment
// the whole round freezes for predictions.
func (g Gameweek) FirstKickoff() time.Time {
	return fixture.EarliestKickoff(g.Fixtures)
}

type GameweekService struct {
	provider MatchProvider
	snapshot fixture.Repository
	archive  rawdata.Repository
	logger   *logging.Logger
	now      func() time.Time
}

func NewGameweekService(provider MatchProvider, snapshot fixture.Repository, archive rawdata.Repository, logger *logging.Logger) *GameweekService {
	if logger == nil {
		logger = logging.Default()
	}
	return &GameweekService{
		provider: provider,
		snapshot: snapshot,
		archive:  archive,
		logger:   logger,
		now:      time.Now,
	}
}

// Current resolves the active gameweek in two phases: first detect
// the lowest matchday with an unfinished fixture inside the next two
// weeks, then fetch that full round so early kickoffs that already
// happened are included.
func (s *GameweekService) Current(ctx context.Context) (Gameweek, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GameweekService.Current")
	defer span.End()

	now := s.now().UTC()
	upcoming, payload, err := s.provider.MatchesInRange(ctx, now, now.Add(detectionWindow))
	if err != nil {
		return Gameweek{}, fmt.Errorf("fetch upcoming fixtures: %w", err)
	}
	s.archivePayload(ctx, payload)

	matchday, season, found := detectActiveMatchday(upcoming)
	if !found {
		return Gameweek{}, fmt.Errorf("%w: no active matchday within %s", ErrNoUpcomingFixtures, detectionWindow)
	}
	if season <= 0 {
		season = DefaultSeason(now)
	}

	round, payload, err := s.provider.MatchesByMatchday(ctx, matchday, season)
	if err != nil {
		return Gameweek{}, fmt.Errorf("fetch matchday %d: %w", matchday, err)
	}
	if len(round) == 0 {
		return Gameweek{}, fmt.Errorf("%w: matchday %d season %d", ErrEmptyRound, matchday, season)
	}
	s.archivePayload(ctx, payload)

	return Gameweek{Matchday: matchday, Season: season, Fixtures: round}, nil
}

// FixturesInRange returns fixtures for an arbitrary window, capped to
// keep a single request within the provider's limits. The poller's
// snapshot answers first when it covers the window; the provider is
// the fallback, and its reply refills the snapshot.
func (s *GameweekService) FixturesInRange(ctx context.Context, from, to time.Time) ([]fixture.Fixture, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GameweekService.FixturesInRange")
	defer span.End()

	from = from.UTC()
	to = to.UTC()
	if to.Before(from) {
		return nil, fmt.Errorf("%w: dateTo before dateFrom", ErrInvalidInput)
	}
	if to.Sub(from) > 31*24*time.Hour {
		return nil, fmt.Errorf("%w: window exceeds 31 days", ErrInvalidInput)
	}

	if s.snapshot != nil {
		cached, err := s.snapshot.ListRange(ctx, from, to)
		if err != nil {
			s.logger.WarnContext(ctx, "fixture snapshot read failed", "error", err)
		} else if len(cached) > 0 {
			return cached, nil
		}
	}

	fixtures, payload, err := s.provider.MatchesInRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch fixtures in range: %w", err)
	}
	s.archivePayload(ctx, payload)

	if s.snapshot != nil && len(fixtures) > 0 {
		if err := s.snapshot.UpsertMany(ctx, fixtures); err != nil {
			s.logger.WarnContext(ctx, "fixture snapshot refill failed", "error", err)
		}
	}
	return fixtures, nil
}

func (s *GameweekService) archivePayload(ctx context.Context, payload rawdata.Payload) {
	if s.archive == nil || payload.EntityKey == "" {
		return
	}
	if err := s.archive.UpsertMany(ctx, []rawdata.Payload{payload}); err != nil {
		s.logger.WarnContext(ctx, "archive provider payload failed", "entity_key", payload.EntityKey, "error", err)
	}
}

func detectActiveMatchday(fixtures []fixture.Fixture) (matchday, season int, found bool) {
	for _, fx := range fixtures {
		if fx.Matchday == nil {
			continue
		}
		if !fixture.IsNotStarted(fx.Status) && !fixture.IsLiveStatus(fx.Status) {
			continue
		}
		if !found || *fx.Matchday < matchday {
			matchday = *fx.Matchday
			season = fx.Season
			found = true
		}
	}
	return matchday, season, found
}

// DefaultSeason maps a moment to the season label used by the
// provider: seasons start in August and keep the starting year.
func DefaultSeason(now time.Time) int {
	year := now.UTC().Year()
	if now.UTC().Month() < time.August {
		return year - 1
	}
	return year
}
