package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/scorecast/scorecast/internal/domain/fixture"
	"github.com/scorecast/scorecast/internal/domain/rawdata"
	"github.com/scorecast/scorecast/internal/platform/logging"
)

const (
	defaultRefreshInterval = 120 * time.Second
	refreshWindowBehind    = 2 * 24 * time.Hour
	refreshWindowAhead     = 10 * 24 * time.Hour

	resyncStatusSuccess = "success"
	resyncStatusFailed  = "failed"
)

type jobPublisher interface {
	Enqueue(ctx context.Context, path string, payload any, delay time.Duration, deduplicationID string) error
}

type RefreshResult struct {
	FixtureCount int       `json:"fixture_count"`
	LiveCount    int       `json:"live_count"`
	WindowFrom   time.Time `json:"window_from"`
	WindowTo     time.Time `json:"window_to"`
}

type ResyncInput struct {
	Season     int   `json:"season"`
	Matchdays  []int `json:"matchdays"`
	MaxWorkers int   `json:"max_workers"`
}

type ResyncResult struct {
	TaskCount    int                `json:"task_count"`
	SuccessCount int                `json:"success_count"`
	FailedCount  int                `json:"failed_count"`
	WorkerCount  int                `json:"worker_count"`
	Tasks        []ResyncTaskResult `json:"tasks"`
}

type ResyncTaskResult struct {
	Matchday   int    `json:"matchday"`
	Status     string `json:"status"`
	Records    int    `json:"records"`
	DurationMs int64  `json:"duration_ms"`
	Message    string `json:"message,omitempty"`
}

// RefreshService keeps the local fixture snapshot in step with the
// provider. It polls a sliding window around today and can resync
// whole matchdays on demand through a bounded worker pool.
type RefreshService struct {
	provider  MatchProvider
	snapshot  fixture.Repository
	archive   rawdata.Repository
	publisher jobPublisher
	logger    *logging.Logger
	interval  time.Duration
	now       func() time.Time
}

func NewRefreshService(
	provider MatchProvider,
	snapshot fixture.Repository,
	archive rawdata.Repository,
	publisher jobPublisher,
	interval time.Duration,
	logger *logging.Logger,
) *RefreshService {
	if logger == nil {
		logger = logging.Default()
	}
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	return &RefreshService{
		provider:  provider,
		snapshot:  snapshot,
		archive:   archive,
		publisher: publisher,
		logger:    logger,
		interval:  interval,
		now:       time.Now,
	}
}

// Refresh pulls the provider window and replaces the snapshot. When
// fixtures are live it schedules a follow-up job so scores stay
// current even if the in-process poller is not running.
func (s *RefreshService) Refresh(ctx context.Context) (RefreshResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RefreshService.Refresh")
	defer span.End()

	now := s.now().UTC()
	from := now.Add(-refreshWindowBehind)
	to := now.Add(refreshWindowAhead)

	fixtures, payload, err := s.provider.MatchesInRange(ctx, from, to)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("fetch refresh window: %w", err)
	}
	s.archivePayloads(ctx, payload)

	if s.snapshot != nil {
		if err := s.snapshot.ReplaceAll(ctx, fixtures); err != nil {
			return RefreshResult{}, fmt.Errorf("replace fixture snapshot: %w", err)
		}
	}

	live := 0
	for _, fx := range fixtures {
		if fixture.IsLiveStatus(fx.Status) {
			live++
		}
	}

	result := RefreshResult{
		FixtureCount: len(fixtures),
		LiveCount:    live,
		WindowFrom:   from,
		WindowTo:     to,
	}

	if live > 0 && s.publisher != nil {
		dedupID := fmt.Sprintf("fixture-refresh-%d", now.Truncate(s.interval).Unix())
		if err := s.publisher.Enqueue(ctx, "/v1/internal/jobs/refresh", nil, s.interval, dedupID); err != nil {
			s.logger.WarnContext(ctx, "schedule follow-up refresh failed", "error", err)
		}
	}

	s.logger.InfoContext(ctx, "fixture snapshot refreshed",
		"fixture_count", result.FixtureCount,
		"live_count", result.LiveCount,
	)
	return result, nil
}

// Run polls until the context is cancelled. Errors are logged and the
// loop keeps going; a flaky provider must not kill the poller.
func (s *RefreshService) Run(ctx context.Context) error {
	if _, err := s.Refresh(ctx); err != nil {
		s.logger.WarnContext(ctx, "initial fixture refresh failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("fixture refresh poller stopped")
			return nil
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.WarnContext(ctx, "fixture refresh failed", "error", err)
			}
		}
	}
}

// Resync re-fetches whole matchdays concurrently and merges them into
// the snapshot. Used after provider corrections or a cold start.
func (s *RefreshService) Resync(ctx context.Context, input ResyncInput) (ResyncResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RefreshService.Resync")
	defer span.End()

	if len(input.Matchdays) == 0 {
		return ResyncResult{}, fmt.Errorf("%w: at least one matchday is required", ErrInvalidInput)
	}
	season := input.Season
	if season <= 0 {
		season = DefaultSeason(s.now())
	}
	workerCount := input.MaxWorkers
	if workerCount < 1 {
		workerCount = 4
	}
	if workerCount > len(input.Matchdays) {
		workerCount = len(input.Matchdays)
	}

	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return ResyncResult{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	results := make(chan ResyncTaskResult, len(input.Matchdays))
	var successCount atomic.Int32
	var failedCount atomic.Int32

	var workers sync.WaitGroup
	for _, matchday := range input.Matchdays {
		matchday := matchday
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			start := time.Now()
			row := ResyncTaskResult{Matchday: matchday}

			records, taskErr := s.resyncMatchday(ctx, matchday, season)
			row.Records = records
			row.DurationMs = time.Since(start).Milliseconds()
			if taskErr != nil {
				row.Status = resyncStatusFailed
				row.Message = taskErr.Error()
				failedCount.Add(1)
			} else {
				row.Status = resyncStatusSuccess
				successCount.Add(1)
			}

			results <- row
		}); err != nil {
			workers.Done()
			return ResyncResult{}, fmt.Errorf("submit task to worker pool: %w", err)
		}
	}

	workers.Wait()
	close(results)

	result := ResyncResult{
		TaskCount:   len(input.Matchdays),
		WorkerCount: workerCount,
	}
	for row := range results {
		result.Tasks = append(result.Tasks, row)
	}
	sort.SliceStable(result.Tasks, func(i, j int) bool {
		return result.Tasks[i].Matchday < result.Tasks[j].Matchday
	})
	result.SuccessCount = int(successCount.Load())
	result.FailedCount = int(failedCount.Load())
	return result, nil
}

func (s *RefreshService) resyncMatchday(ctx context.Context, matchday, season int) (int, error) {
	fixtures, payload, err := s.provider.MatchesByMatchday(ctx, matchday, season)
	if err != nil {
		return 0, err
	}
	s.archivePayloads(ctx, payload)

	if s.snapshot != nil {
		if err := s.snapshot.UpsertMany(ctx, fixtures); err != nil {
			return 0, fmt.Errorf("merge fixtures into snapshot: %w", err)
		}
	}
	return len(fixtures), nil
}

func (s *RefreshService) archivePayloads(ctx context.Context, payloads ...rawdata.Payload) {
	if s.archive == nil {
		return
	}
	items := make([]rawdata.Payload, 0, len(payloads))
	for _, payload := range payloads {
		if payload.EntityKey != "" {
			items = append(items, payload)
		}
	}
	if len(items) == 0 {
		return
	}
	if err := s.archive.UpsertMany(ctx, items); err != nil {
		s.logger.WarnContext(ctx, "archive provider payloads failed", "count", len(items), "error", err)
	}
}
