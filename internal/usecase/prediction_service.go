package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/scorecast/scorecast/internal/domain/fixture"
	"github.com/scorecast/scorecast/internal/domain/prediction"
	"github.com/scorecast/scorecast/internal/domain/user"
	"github.com/scorecast/scorecast/internal/platform/logging"
)

type gameweekResolver interface {
	Current(ctx context.Context) (Gameweek, error)
}

type SavePredictionInput struct {
	UserID    string `validate:"required"`
	FixtureID int64  `validate:"required,gt=0"`
	Home      *int   `validate:"required,min=0,max=30"`
	Away      *int   `validate:"required,min=0,max=30"`
}

// PredictionView pairs a stored prediction with its current lock
// state so clients can render the right controls.
type PredictionView struct {
	Prediction prediction.Prediction
	State      prediction.LockState
}

type PredictionService struct {
	resolver gameweekResolver
	preds    prediction.Repository
	users    user.Repository
	validate *validator.Validate
	logger   *logging.Logger
	now      func() time.Time
}

func NewPredictionService(
	resolver gameweekResolver,
	preds prediction.Repository,
	users user.Repository,
	logger *logging.Logger,
) *PredictionService {
	if logger == nil {
		logger = logging.Default()
	}
	return &PredictionService{
		resolver: resolver,
		preds:    preds,
		users:    users,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// Save stores a scoreline for a fixture in the current round. Saving
// locks the prediction; an explicit unlock is needed to edit it again
// while the fixture is still open.
func (s *PredictionService) Save(ctx context.Context, input SavePredictionInput) (prediction.Prediction, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PredictionService.Save")
	defer span.End()

	if err := s.validate.Struct(input); err != nil {
		return prediction.Prediction{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	gw, err := s.resolver.Current(ctx)
	if err != nil {
		return prediction.Prediction{}, fmt.Errorf("resolve current gameweek: %w", err)
	}

	fx, ok := findFixture(gw.Fixtures, input.FixtureID)
	if !ok {
		return prediction.Prediction{}, fmt.Errorf("%w: fixture %d is not in the current round", ErrNotFound, input.FixtureID)
	}

	existing, exists, err := s.preds.Get(ctx, input.UserID, input.FixtureID)
	if err != nil {
		return prediction.Prediction{}, fmt.Errorf("get prediction: %w", err)
	}

	locked := exists && existing.Locked
	state := prediction.EvaluateLock(fx, gw.FirstKickoff(), locked, s.now().UTC())
	if state.Frozen() {
		return prediction.Prediction{}, fmt.Errorf("%w: fixture %d", ErrPredictionFrozen, input.FixtureID)
	}
	if state == prediction.StateLocked {
		return prediction.Prediction{}, fmt.Errorf("%w: prediction is locked, unlock it to edit again", ErrPredictionFrozen)
	}

	saved := prediction.Prediction{
		UserID:    input.UserID,
		FixtureID: input.FixtureID,
		Home:      input.Home,
		Away:      input.Away,
		Locked:    true,
		Round:     fx.Round,
		Kickoff:   fx.Kickoff,
	}
	if err := s.preds.Upsert(ctx, saved); err != nil {
		return prediction.Prediction{}, fmt.Errorf("save prediction: %w", err)
	}

	s.logger.InfoContext(ctx, "prediction saved",
		"user_id", input.UserID,
		"fixture_id", input.FixtureID,
		"round", fx.Round,
	)
	return saved, nil
}

// Unlock reopens a saved prediction for editing. Players unlock their
// own predictions; admins may unlock anyone's. A frozen prediction can
// never be reopened.
func (s *PredictionService) Unlock(ctx context.Context, callerID, userID string, fixtureID int64) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.PredictionService.Unlock")
	defer span.End()

	if callerID != userID {
		caller, exists, err := s.users.Get(ctx, callerID)
		if err != nil {
			return fmt.Errorf("get caller: %w", err)
		}
		if !exists || !caller.IsAdmin {
			return fmt.Errorf("%w: unlocking another player's prediction requires an admin", ErrUnauthorized)
		}
	}

	pred, exists, err := s.preds.Get(ctx, userID, fixtureID)
	if err != nil {
		return fmt.Errorf("get prediction: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: prediction for user %s fixture %d", ErrNotFound, userID, fixtureID)
	}

	gw, err := s.resolver.Current(ctx)
	if err != nil {
		return fmt.Errorf("resolve current gameweek: %w", err)
	}
	fx, ok := findFixture(gw.Fixtures, fixtureID)
	if !ok {
		return fmt.Errorf("%w: fixture %d is no longer in the current round", ErrPredictionFrozen, fixtureID)
	}
	if prediction.EvaluateLock(fx, gw.FirstKickoff(), pred.Locked, s.now().UTC()).Frozen() {
		return fmt.Errorf("%w: fixture %d", ErrPredictionFrozen, fixtureID)
	}

	pred.Locked = false
	if err := s.preds.Upsert(ctx, pred); err != nil {
		return fmt.Errorf("unlock prediction: %w", err)
	}

	s.logger.InfoContext(ctx, "prediction unlocked", "caller_id", callerID, "user_id", userID, "fixture_id", fixtureID)
	return nil
}

// ListForUser returns a player's predictions with their lock states.
func (s *PredictionService) ListForUser(ctx context.Context, userID string) ([]PredictionView, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PredictionService.ListForUser")
	defer span.End()

	predictions, err := s.preds.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}

	gw, gwErr := s.resolver.Current(ctx)
	if gwErr != nil {
		s.logger.WarnContext(ctx, "resolve gameweek for prediction states failed", "error", gwErr)
	}

	now := s.now().UTC()
	out := make([]PredictionView, 0, len(predictions))
	for _, pred := range predictions {
		out = append(out, PredictionView{
			Prediction: pred,
			State:      s.stateFor(pred, gw, gwErr == nil, now),
		})
	}
	return out, nil
}

func (s *PredictionService) stateFor(pred prediction.Prediction, gw Gameweek, haveRound bool, now time.Time) prediction.LockState {
	if haveRound {
		if fx, ok := findFixture(gw.Fixtures, pred.FixtureID); ok {
			return prediction.EvaluateLock(fx, gw.FirstKickoff(), pred.Locked, now)
		}
	}
	// Outside the current round the stored kickoff decides.
	if !pred.Kickoff.IsZero() && !now.Before(pred.Kickoff) {
		return prediction.StateFrozen
	}
	if pred.Locked {
		return prediction.StateLocked
	}
	return prediction.StateEditable
}

func findFixture(fixtures []fixture.Fixture, id int64) (fixture.Fixture, bool) {
	for _, fx := range fixtures {
		if fx.ID == id {
			return fx, true
		}
	}
	return fixture.Fixture{}, false
}
