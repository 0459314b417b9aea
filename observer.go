package raffle

// Observer receives state-change notifications from a DrawEngine.
// Callbacks run outside the engine lock, so they may call back into the engine.
// The engine waits for an in-flight highlight before reporting a stop, so
// OnHighlight must not call StopDraw, Tick, Configure, Reset or Close itself.
type Observer interface {
	// OnStateChange is called after every pool or history mutation
	OnStateChange(state Snapshot)

	// OnHighlight is called at the animation cadence while a draw is running; purely cosmetic
	OnHighlight(participant string)

	// OnOutcome is called when a draw completes or reaches a round boundary or terminal state
	OnOutcome(outcome Outcome)
}

// NopObserver ignores every notification
type NopObserver struct{}

func (NopObserver) OnStateChange(Snapshot) {}
func (NopObserver) OnHighlight(string) {}
func (NopObserver) OnOutcome(Outcome) {}

// ObserverFuncs adapts plain functions to Observer; nil fields are skipped
type ObserverFuncs struct {
	StateChange func(Snapshot)
	Highlight   func(string)
	Outcome     func(Outcome)
}

func (o ObserverFuncs) OnStateChange(state Snapshot) {
	if o.StateChange != nil {
		o.StateChange(state)
	}
}

func (o ObserverFuncs) OnHighlight(participant string) {
	if o.Highlight != nil {
		o.Highlight(participant)
	}
}

func (o ObserverFuncs) OnOutcome(outcome Outcome) {
	if o.Outcome != nil {
		o.Outcome(outcome)
	}
}
