package prediction

import "time"

// Prediction is one user's guessed scoreline for one fixture. Round and
// Kickoff are denormalized from the fixture at save time so grouping
// keeps working even if the provider later reshapes its fixture data.
type Prediction struct {
	UserID    string
	FixtureID int64
	Home      *int
	Away      *int
	Locked    bool
	Round     string
	Kickoff   time.Time
}

// HasScoreline reports whether both predicted goal counts are present.
func (p Prediction) HasScoreline() bool {
	return p.Home != nil && p.Away != nil
}
