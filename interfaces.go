package raffle

import "context"

// Drawer defines the draw operations of a raffle session
type Drawer interface {
	// Configure replaces the roster and prize list and clears history
	Configure(people, prizes []string)

	// StartDraw begins a draw, or rolls the round over when the participant pool is empty
	StartDraw() Outcome

	// StopDraw finishes the running draw and pairs one participant with one prize
	StopDraw() Outcome

	// Reset restores both pools to the configured lists and clears history
	Reset()

	// Snapshot returns a copy of the current engine state
	Snapshot() Snapshot
}

// ConfigStore persists the configured participant and prize lists
type ConfigStore interface {
	// Load returns the stored configuration, or the built-in defaults when none is stored
	Load(ctx context.Context) (*RaffleConfig, error)

	// Save validates and stores the configuration
	Save(ctx context.Context, cfg *RaffleConfig) error
}

// ChangeSource publishes configurations changed outside the current session
type ChangeSource interface {
	Changes(ctx context.Context) (<-chan RaffleConfig, error)
}

// Logger defines the interface for logging operations
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}
