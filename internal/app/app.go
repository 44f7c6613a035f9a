package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/scorecast/scorecast/external/footballdata"
	"github.com/scorecast/scorecast/external/jobqueue"
	"github.com/scorecast/scorecast/internal/config"
	"github.com/scorecast/scorecast/internal/infrastructure/repository/memory"
	mongostore "github.com/scorecast/scorecast/internal/infrastructure/repository/mongo"
	"github.com/scorecast/scorecast/internal/infrastructure/repository/postgres"
	"github.com/scorecast/scorecast/internal/interfaces/httpapi"
	"github.com/scorecast/scorecast/internal/platform/cache"
	"github.com/scorecast/scorecast/internal/platform/logging"
	"github.com/scorecast/scorecast/internal/platform/resilience"
	"github.com/scorecast/scorecast/internal/usecase"
)

// App bundles the HTTP server with the background refresh poller and
// the resources that need closing on shutdown.
type App struct {
	Server         *http.Server
	Refresh        *usecase.RefreshService
	RefreshEnabled bool

	closers []func(context.Context) error
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger, zlog *logging.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if zlog == nil {
		zlog = logging.Default()
	}

	a := &App{RefreshEnabled: cfg.RefreshPollerEnabled}

	mongoDB, mongoClose, err := mongostore.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, mongoClose)

	userRepo := mongostore.NewUserRepository(mongoDB)
	predictionRepo := mongostore.NewPredictionRepository(mongoDB)
	if err := predictionRepo.EnsureIndexes(ctx); err != nil {
		a.closeAll(ctx)
		return nil, err
	}

	db, err := otelsqlx.ConnectContext(ctx, "postgres",
		normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary),
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
	)
	if err != nil {
		a.closeAll(ctx)
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return db.Close() })

	rawRepo := postgres.NewRawDataRepository(db)
	fixtureRepo := memory.NewFixtureRepository()

	client := footballdata.NewClient(footballdata.ClientConfig{
		BaseURL:     cfg.FootballDataBaseURL,
		Token:       cfg.FootballDataToken,
		Competition: cfg.FootballDataCompetition,
		Timeout:     cfg.FootballDataTimeout,
		Logger:      zlog,
		Cache:       cache.NewStore(cfg.FootballDataCacheTTL),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.FootballDataCircuitEnabled,
			FailureThreshold: cfg.FootballDataCircuitFailureCount,
			OpenTimeout:      cfg.FootballDataCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.FootballDataCircuitHalfOpenMaxReq,
		},
	})

	gameweekSvc := usecase.NewGameweekService(client, fixtureRepo, rawRepo, zlog)
	leaderboardSvc := usecase.NewLeaderboardService(client, userRepo, predictionRepo, rawRepo, zlog)
	predictionSvc := usecase.NewPredictionService(gameweekSvc, predictionRepo, userRepo, zlog)

	if cfg.QStashEnabled {
		publisher := jobqueue.NewQStashPublisher(jobqueue.QStashPublisherConfig{
			BaseURL:          cfg.QStashBaseURL,
			Token:            cfg.QStashToken,
			TargetBaseURL:    cfg.QStashTargetBaseURL,
			Retries:          cfg.QStashRetries,
			InternalJobToken: cfg.InternalJobToken,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.QStashCircuitEnabled,
				FailureThreshold: cfg.QStashCircuitFailureCount,
				OpenTimeout:      cfg.QStashCircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.QStashCircuitHalfOpenMaxReq,
			},
		}, logger)
		a.Refresh = usecase.NewRefreshService(client, fixtureRepo, rawRepo, publisher, cfg.RefreshInterval, zlog)
	} else {
		a.Refresh = usecase.NewRefreshService(client, fixtureRepo, rawRepo, nil, cfg.RefreshInterval, zlog)
	}

	handler := httpapi.NewHandler(gameweekSvc, leaderboardSvc, predictionSvc, a.Refresh, client, logger)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	a.Server = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	if a.Server.Addr == "" {
		a.closeAll(ctx)
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return a, nil
}

// Close releases database connections. The HTTP server is shut down
// separately so in-flight requests can drain first.
func (a *App) Close(ctx context.Context) error {
	return a.closeAll(ctx)
}

func (a *App) closeAll(ctx context.Context) error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}
