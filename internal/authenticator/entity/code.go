package entity

// Phase is the engine state.
type Phase string

const (
	// PhaseIdle means no account is selected and no code is produced.
	PhaseIdle Phase = "idle"
	// PhaseTicking means the engine tracks the selected account.
	PhaseTicking Phase = "ticking"
)
