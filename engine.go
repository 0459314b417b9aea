package raffle

import (
	"context"
	"sync"
	"time"
)

var _ Drawer = (*DrawEngine)(nil)

// DrawEngine pairs participants with prizes across rounds.
//
// Participants recycle: when the pool empties while prizes remain, it is refilled
// from the roster and a new round begins. Prizes never recycle, so exhausting them
// is terminal until Configure or Reset.
//
// The engine is safe to call from multiple goroutines, but calls are serialized:
// it behaves as a single actor. Observer callbacks run outside the lock.
type DrawEngine struct {
	mu sync.Mutex

	roster         []string // Immutable snapshot of configured participants
	originalPrizes []string // Immutable snapshot of configured prizes
	participants   []string // Remaining participants in the current round
	prizes         []string // Remaining prizes
	history        []HistoryRecord
	round          int

	running         bool
	pendingRollover bool
	generation      uint64 // Bumped by Configure/Reset to invalidate pending timers
	anim            *animator
	rolloverTimer   *time.Timer

	animationInterval time.Duration
	rolloverDelay     time.Duration

	generator RandomGenerator
	observer  Observer
	logger    Logger
	now       func() time.Time

	performanceMonitor *PerformanceMonitor
}

// NewDrawEngine creates a draw engine with default timings and an empty configuration
func NewDrawEngine() *DrawEngine {
	return NewDrawEngineWithConfig(DefaultDrawConfig(), &DefaultLogger{})
}

// NewDrawEngineWithConfig creates a draw engine with custom timings and logger
func NewDrawEngineWithConfig(cfg *DrawConfig, logger Logger) *DrawEngine {
	if cfg == nil {
		cfg = DefaultDrawConfig()
	}
	if logger == nil {
		logger = &DefaultLogger{}
	}

	return &DrawEngine{
		roster:            []string{},
		originalPrizes:    []string{},
		participants:      []string{},
		prizes:            []string{},
		round:             1,
		animationInterval: cfg.AnimationInterval,
		rolloverDelay:     cfg.RolloverDelay,
		generator:         NewSecureRandomGenerator(),
		observer:          NopObserver{},
		logger:            logger,
		now:               time.Now,

		performanceMonitor: NewPerformanceMonitor(),
	}
}

// SetLogger updates the logger at runtime
func (e *DrawEngine) SetLogger(logger Logger) {
	if logger == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logger = logger
}

// SetObserver registers the presentation layer; nil detaches it
func (e *DrawEngine) SetObserver(observer Observer) {
	if observer == nil {
		observer = NopObserver{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observer = observer
}

// SetRandomGenerator injects the random source used for pairings
func (e *DrawEngine) SetRandomGenerator(generator RandomGenerator) {
	if generator == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.generator = generator
}

// SetClock overrides the time source used to stamp history records
func (e *DrawEngine) SetClock(now func() time.Time) {
	if now == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

// SetTimings updates the highlight cadence and the round-boundary pause.
// The new values apply to the next draw.
func (e *DrawEngine) SetTimings(animationInterval, rolloverDelay time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if animationInterval < MinAnimationInterval {
		e.logger.Error("SetTimings failed: animation interval %v below %v", animationInterval, MinAnimationInterval)
		return ErrInvalidParameters.WithDetails("animation interval too small")
	}
	if rolloverDelay < 0 || rolloverDelay > MaxRolloverDelay {
		e.logger.Error("SetTimings failed: rollover delay %v outside [0, %v]", rolloverDelay, MaxRolloverDelay)
		return ErrInvalidParameters.WithDetails("rollover delay out of range")
	}

	e.animationInterval = animationInterval
	e.rolloverDelay = rolloverDelay
	e.logger.Info("Draw timings updated: animation=%v, rollover=%v", animationInterval, rolloverDelay)
	return nil
}

// PerformanceMetrics returns a copy of the engine metrics
func (e *DrawEngine) PerformanceMetrics() PerformanceMetrics {
	return e.performanceMonitor.GetMetrics()
}

// Monitor returns the engine's performance monitor so stores can share it
func (e *DrawEngine) Monitor() *PerformanceMonitor { return e.performanceMonitor }

// Configure replaces the roster and prize list, clears history and cancels any
// in-flight draw or pending rollover. Empty lists are legal.
func (e *DrawEngine) Configure(people, prizes []string) {
	e.mu.Lock()

	stopped := e.cancelTimersLocked()
	e.roster = copyStrings(people)
	e.originalPrizes = copyStrings(prizes)
	e.restoreLocked()

	e.logger.Info("Configured raffle: people=%d, prizes=%d", len(e.roster), len(e.originalPrizes))
	e.performanceMonitor.RecordConfigure()

	observer, state := e.observer, e.snapshotLocked()
	e.mu.Unlock()

	stopped.wait()
	observer.OnStateChange(state)
}

// ApplyConfig configures the engine from a RaffleConfig
func (e *DrawEngine) ApplyConfig(cfg *RaffleConfig) {
	if cfg == nil {
		cfg = &RaffleConfig{}
	}
	e.Configure(cfg.People, cfg.Prizes)
}

// Reset restores both pools to the configured lists, clears history and cancels
// any in-flight draw. The roster itself is unchanged.
func (e *DrawEngine) Reset() {
	e.mu.Lock()

	stopped := e.cancelTimersLocked()
	e.restoreLocked()

	e.logger.Info("Raffle reset: people=%d, prizes=%d", len(e.participants), len(e.prizes))
	e.performanceMonitor.RecordReset()

	observer, state := e.observer, e.snapshotLocked()
	e.mu.Unlock()

	stopped.wait()
	observer.OnStateChange(state)
}

// StartDraw begins a draw.
//
// With no prizes left it reports exhaustion. With an empty participant pool it
// refills the pool from the roster, announces the round boundary and enters the
// running state after the rollover delay. Otherwise it starts the cosmetic
// highlight and returns OutcomeStarted. Calls while running or during a rollover
// pause are ignored.
func (e *DrawEngine) StartDraw() Outcome {
	e.mu.Lock()
	e.logger.Debug("StartDraw called: running=%v, pending=%v, people=%d, prizes=%d",
		e.running, e.pendingRollover, len(e.participants), len(e.prizes))

	var n notifications
	var outcome Outcome

	switch {
	case e.running || e.pendingRollover:
		outcome = e.outcomeLocked(OutcomeIgnored)

	case len(e.prizes) == 0:
		outcome = e.outcomeLocked(OutcomePrizesExhausted)
		n.outcomes = append(n.outcomes, outcome)

	case len(e.roster) == 0:
		outcome = e.outcomeLocked(OutcomeNoParticipants)
		n.outcomes = append(n.outcomes, outcome)

	case len(e.participants) == 0:
		outcome = e.rolloverLocked(true, &n)

	default:
		outcome = e.beginRunningLocked(&n)
	}

	e.performanceMonitor.RecordOutcome(outcome)
	observer := e.observer
	e.mu.Unlock()

	n.dispatch(observer)
	return outcome
}

// StopDraw ends the running draw and performs the actual pairing.
//
// A participant and a prize are chosen uniformly at random from the remaining
// pools, removed together and recorded together. When the participant pool is
// empty but prizes remain, the call rolls the round over instead of drawing;
// the next StartDraw then draws from the refilled pool. StopDraw on an idle
// engine with both pools non-empty draws as well. Calls during a rollover pause
// are ignored.
func (e *DrawEngine) StopDraw() Outcome {
	e.mu.Lock()
	e.logger.Debug("StopDraw called: running=%v, pending=%v, people=%d, prizes=%d",
		e.running, e.pendingRollover, len(e.participants), len(e.prizes))

	var n notifications
	var outcome Outcome

	if e.pendingRollover {
		outcome = e.outcomeLocked(OutcomeIgnored)
		e.performanceMonitor.RecordOutcome(outcome)
		e.mu.Unlock()
		return outcome
	}

	n.stopped = e.stopAnimationLocked()
	wasRunning := e.running
	e.running = false

	switch {
	case len(e.prizes) == 0:
		outcome = e.outcomeLocked(OutcomePrizesExhausted)
		n.outcomes = append(n.outcomes, outcome)
		if wasRunning {
			n.states = append(n.states, e.snapshotLocked())
		}

	case len(e.roster) == 0:
		outcome = e.outcomeLocked(OutcomeNoParticipants)
		n.outcomes = append(n.outcomes, outcome)

	case len(e.participants) == 0:
		outcome = e.rolloverLocked(false, &n)

	default:
		outcome = e.pairLocked(&n)
	}

	e.performanceMonitor.RecordOutcome(outcome)
	observer := e.observer
	e.mu.Unlock()

	n.dispatch(observer)
	return outcome
}

// Tick is the automatic stop signal; it behaves exactly like StopDraw
func (e *DrawEngine) Tick() Outcome { return e.StopDraw() }

// Snapshot returns a copy of the current state
func (e *DrawEngine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// IsRunning reports whether a draw is in progress
func (e *DrawEngine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Subscribe applies every configuration published by source as a hard reset.
// It returns once the subscription is established; delivery stops when ctx is done
// or the source closes its channel.
func (e *DrawEngine) Subscribe(ctx context.Context, source ChangeSource) error {
	changes, err := source.Changes(ctx)
	if err != nil {
		e.logger.Error("Subscribe failed: %v", err)
		return err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case cfg, ok := <-changes:
				if !ok {
					e.logger.Debug("Change source closed")
					return
				}
				e.logger.Info("External configuration change received: people=%d, prizes=%d",
					len(cfg.People), len(cfg.Prizes))
				e.Configure(cfg.People, cfg.Prizes)
			}
		}
	}()

	return nil
}

// LoadFrom configures the engine from a store. On error the engine state is left untouched.
func (e *DrawEngine) LoadFrom(ctx context.Context, store ConfigStore) error {
	cfg, err := store.Load(ctx)
	if err != nil {
		e.logger.Error("LoadFrom failed, keeping current configuration: %v", err)
		return err
	}
	e.ApplyConfig(cfg)
	return nil
}

// Close cancels any running animation or pending rollover
func (e *DrawEngine) Close() {
	e.mu.Lock()
	stopped := e.cancelTimersLocked()
	e.running = false
	e.mu.Unlock()

	stopped.wait()
}

// ================================================================================
// Internal state transitions; callers hold e.mu.

func (e *DrawEngine) restoreLocked() {
	e.participants = copyStrings(e.roster)
	e.prizes = copyStrings(e.originalPrizes)
	e.history = []HistoryRecord{}
	e.round = 1
	e.running = false
}

func (e *DrawEngine) beginRunningLocked(n *notifications) Outcome {
	e.running = true
	observer := e.observer
	e.anim = startAnimator(e.animationInterval, e.participants, observer.OnHighlight)

	outcome := e.outcomeLocked(OutcomeStarted)
	n.outcomes = append(n.outcomes, outcome)
	n.states = append(n.states, e.snapshotLocked())
	return outcome
}

// rolloverLocked refills the participant pool and starts the round-boundary pause.
// When startAfter is set the engine enters the running state once the pause ends.
func (e *DrawEngine) rolloverLocked(startAfter bool, n *notifications) Outcome {
	e.participants = copyStrings(e.roster)
	e.round++
	e.logger.Info("Round %d complete, refilled %d participants for round %d", e.round-1, len(e.participants), e.round)

	outcome := e.outcomeLocked(OutcomeRoundRollover)
	n.outcomes = append(n.outcomes, outcome)
	n.states = append(n.states, e.snapshotLocked())

	if e.rolloverDelay <= 0 {
		if startAfter {
			e.beginRunningLocked(n)
		}
		return outcome
	}

	e.pendingRollover = true
	generation := e.generation
	e.rolloverTimer = time.AfterFunc(e.rolloverDelay, func() {
		e.finishRollover(generation, startAfter)
	})
	return outcome
}

func (e *DrawEngine) finishRollover(generation uint64, startAfter bool) {
	e.mu.Lock()
	if generation != e.generation || !e.pendingRollover {
		e.mu.Unlock()
		return
	}

	e.pendingRollover = false
	e.rolloverTimer = nil

	var n notifications
	if startAfter && len(e.prizes) > 0 && len(e.participants) > 0 {
		e.beginRunningLocked(&n)
	}
	observer := e.observer
	e.mu.Unlock()

	n.dispatch(observer)
}

func (e *DrawEngine) pairLocked(n *notifications) Outcome {
	participantIdx := pickIndex(e.generator, len(e.participants), e.logger)
	var participant string
	e.participants, participant = removeAt(e.participants, participantIdx)

	prizeIdx := pickIndex(e.generator, len(e.prizes), e.logger)
	var prize string
	e.prizes, prize = removeAt(e.prizes, prizeIdx)

	record := HistoryRecord{
		Participant: participant,
		Prize:       prize,
		DrawnAt:     e.now(),
		Round:       e.round,
	}
	e.history = append([]HistoryRecord{record}, e.history...)

	outcome := e.outcomeLocked(OutcomeWinner)
	outcome.Record = &record
	outcome.Final = len(e.prizes) == 0

	e.logger.Info("Draw complete: participant=%s, prize=%s, round=%d, remaining people=%d, prizes=%d",
		participant, prize, e.round, len(e.participants), len(e.prizes))
	if outcome.Final {
		e.logger.Info("All prizes have been drawn")
	}

	n.states = append(n.states, e.snapshotLocked())
	n.outcomes = append(n.outcomes, outcome)
	return outcome
}

func (e *DrawEngine) outcomeLocked(kind OutcomeKind) Outcome {
	return Outcome{Kind: kind, Round: e.round}
}

// stopAnimationLocked cancels the highlight task and returns it so the caller
// can wait for its last frame after releasing the lock
func (e *DrawEngine) stopAnimationLocked() *animator {
	stopped := e.anim
	stopped.stop()
	e.anim = nil
	return stopped
}

func (e *DrawEngine) cancelTimersLocked() *animator {
	stopped := e.stopAnimationLocked()
	if e.rolloverTimer != nil {
		e.rolloverTimer.Stop()
		e.rolloverTimer = nil
	}
	e.pendingRollover = false
	e.generation++
	return stopped
}

func (e *DrawEngine) snapshotLocked() Snapshot {
	return Snapshot{
		RemainingParticipants: copyStrings(e.participants),
		RemainingPrizes:       copyStrings(e.prizes),
		ParticipantCount:      len(e.participants),
		PrizeCount:            len(e.prizes),
		History:               copyHistory(e.history),
		Running:               e.running,
		Exhausted:             len(e.prizes) == 0,
		Round:                 e.round,
	}
}

// notifications collected under the lock and delivered after it is released
type notifications struct {
	stopped  *animator // Highlight task whose last frame must land first
	states   []Snapshot
	outcomes []Outcome
}

func (n notifications) dispatch(observer Observer) {
	n.stopped.wait()
	for _, state := range n.states {
		observer.OnStateChange(state)
	}
	for _, outcome := range n.outcomes {
		observer.OnOutcome(outcome)
	}
}
