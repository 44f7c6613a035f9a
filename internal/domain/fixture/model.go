package fixture

import (
	"sort"
	"strings"
	"time"
)

// Upstream statuses as reported by the football-data provider.
const (
	StatusScheduled = "SCHEDULED"
	StatusTimed     = "TIMED"
	StatusInPlay    = "IN_PLAY"
	StatusPaused    = "PAUSED"
	StatusFinished  = "FINISHED"
	StatusSuspended = "SUSPENDED"
	StatusPostponed = "POSTPONED"
	StatusCancelled = "CANCELLED"
)

// Team carries the display identity of one side of a fixture.
type Team struct {
	Name  string
	Short string
	Crest string
}

// Fixture represents one scheduled match mirrored from the provider.
// Fixtures are immutable facts: a refetch supersedes the previous copy,
// nothing is merged locally.
type Fixture struct {
	ID        int64
	Kickoff   time.Time
	Status    string
	Round     string
	Matchday  *int
	Season    int
	HomeTeam  Team
	AwayTeam  Team
	HomeGoals *int
	AwayGoals *int
}

func NormalizeStatus(value string) string {
	status := strings.ToUpper(strings.TrimSpace(value))
	if status == "" {
		return StatusScheduled
	}
	return status
}

// IsNotStarted reports whether a fixture has not left its pre-kickoff state.
func IsNotStarted(status string) bool {
	switch NormalizeStatus(status) {
	case StatusScheduled, StatusTimed:
		return true
	default:
		return false
	}
}

func IsLiveStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusInPlay, StatusPaused:
		return true
	default:
		return false
	}
}

func IsFinishedStatus(status string) bool {
	return NormalizeStatus(status) == StatusFinished
}

// ShortStatus maps a provider status to the badge code clients render.
func ShortStatus(status string) string {
	switch NormalizeStatus(status) {
	case StatusScheduled, StatusTimed:
		return "NS"
	case StatusInPlay:
		return "LIVE"
	case StatusPaused:
		return "HT"
	case StatusFinished:
		return "FT"
	case StatusPostponed:
		return "PP"
	case StatusSuspended:
		return "SUSP"
	case StatusCancelled:
		return "CANC"
	default:
		return NormalizeStatus(status)
	}
}

// HasResult reports whether both goal counts are present. A fixture can
// carry a result before its status flips to FINISHED while the provider
// settles the final state.
func (f Fixture) HasResult() bool {
	return f.HomeGoals != nil && f.AwayGoals != nil
}

// Settled reports whether the fixture should count toward round
// completeness: finished, or carrying both goal counts.
func (f Fixture) Settled() bool {
	return IsFinishedStatus(f.Status) || f.HasResult()
}

// SortByKickoff orders fixtures by kickoff time, falling back to ID so
// the order is stable for simultaneous kickoffs.
func SortByKickoff(items []Fixture) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Kickoff.Equal(items[j].Kickoff) {
			return items[i].Kickoff.Before(items[j].Kickoff)
		}
		return items[i].ID < items[j].ID
	})
}

// EarliestKickoff returns the earliest kickoff among the given fixtures,
// or the zero time when the slice is empty.
func EarliestKickoff(items []Fixture) time.Time {
	var earliest time.Time
	for _, item := range items {
		if item.Kickoff.IsZero() {
			continue
		}
		if earliest.IsZero() || item.Kickoff.Before(earliest) {
			earliest = item.Kickoff
		}
	}
	return earliest
}
