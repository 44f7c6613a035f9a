package scoring

// Status classifies one prediction against one result.
type Status string

const (
	StatusPending Status = "pending"
	StatusExact   Status = "exact"
	StatusResult  Status = "result"
	StatusWrong   Status = "wrong"
)

// Points awarded per status.
const (
	PointsExact  = 20
	PointsResult = 6
)

// Result is the outcome of scoring one prediction.
// Points is nil while the prediction is pending.
type Result struct {
	Points *int
	Status Status
}

// Score maps a predicted scoreline against an actual one.
//
//   - any absent input -> pending, nil points: a fixture with no result
//     yet, or a user who never predicted, is never "wrong"
//   - exact scoreline -> 20 points
//   - same outcome class (home win / draw / away win) -> 6 points
//   - otherwise -> 0 points
//
// The function is total and pure; it never looks at anything beyond its
// four arguments.
func Score(predHome, predAway, actualHome, actualAway *int) Result {
	if predHome == nil || predAway == nil || actualHome == nil || actualAway == nil {
		return Result{Status: StatusPending}
	}

	if *predHome == *actualHome && *predAway == *actualAway {
		points := PointsExact
		return Result{Points: &points, Status: StatusExact}
	}

	if outcome(*predHome, *predAway) == outcome(*actualHome, *actualAway) {
		points := PointsResult
		return Result{Points: &points, Status: StatusResult}
	}

	points := 0
	return Result{Points: &points, Status: StatusWrong}
}

func outcome(home, away int) int {
	switch {
	case home > away:
		return 1
	case home < away:
		return -1
	default:
		return 0
	}
}
