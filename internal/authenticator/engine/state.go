package engine

import (
	"time"

	"github.com/shandysiswandi/otpkeep/internal/authenticator/entity"
)

// State is a snapshot of the engine. Code is empty while no code is known
// for the current account.
type State struct {
	Phase        entity.Phase
	SecretRef    string
	AccountIndex int
	Counter      uint64
	Code         string
	PeriodMS     int64
	// CounterStart is when the current counter value began.
	CounterStart time.Time
	// TimeRemainingMS is the time spent in the current period, as the
	// progress indicator counts it.
	TimeRemainingMS int64
	// ValidForMS is how long the current code stays valid.
	ValidForMS int64
	Progress   float64
	UpdatedAt  time.Time
}

func idleState(now time.Time) *State {
	return &State{Phase: entity.PhaseIdle, AccountIndex: entity.NoSelection, UpdatedAt: now}
}

// ProgressAt extrapolates progress through the period to now. The value keeps
// growing past 1.0 when the engine has not yet woken after a rollover;
// callers treat anything at or above 1.0 as about to roll.
func (s State) ProgressAt(now time.Time) float64 {
	if s.Phase != entity.PhaseTicking || s.PeriodMS <= 0 {
		return 0
	}

	elapsed := now.Sub(s.CounterStart).Milliseconds()
	if elapsed < 0 {
		return 0
	}
	return float64(elapsed) / float64(s.PeriodMS)
}
