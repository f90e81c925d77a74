package assess

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// DefinitionStore is the read port for assessment definitions.
// Implementations return ErrDefinitionNotFound for unknown subjects.
type DefinitionStore interface {
	Definition(ctx context.Context, collection, subjectID string) (*TestDefinition, error)
}

// AttemptStore is the result-store port: list existing graded attempts for
// a (user, collection, subject) scope and append exactly one record per
// submission. Records are never mutated.
type AttemptStore interface {
	ListAttempts(ctx context.Context, userID, collection, subjectID string) ([]AttemptRecord, error)
	PutAttempt(ctx context.Context, rec *AttemptRecord) error
}

// SubmitTrigger records what caused a submission.
type SubmitTrigger string

const (
	TriggerManual SubmitTrigger = "manual" // explicit submit action
	TriggerExpiry SubmitTrigger = "expiry" // deadline reached zero
	TriggerExit   SubmitTrigger = "exit"   // navigation-guard confirmed exit
)

// Config carries the identifying scope of a session plus the injectable
// sources the engine's behavior depends on. Rand and Now default to real
// randomness and the wall clock; tests pin both.
type Config struct {
	Collection string
	SubjectID  string
	UserID     string

	Rand *rand.Rand
	Now  func() time.Time
}

// TickEvent is what one clock tick produced.
type TickEvent struct {
	// MemorizeDone is set on the tick whose memorization sub-clock expiry
	// auto-advanced the session into the in-progress phase.
	MemorizeDone bool
	// Expired is set on the tick whose deadline expiry forced a submission.
	Expired bool
	// Result and Err report the outcome of an expiry-forced submission.
	Result *Result
	Err    error
}

// Engine is the session state machine. It owns the SessionState exclusively
// (the only other writer is persistence restoring it at load time),
// orchestrates the question set builder, deadline clocks, attempt ledger,
// and snapshot persistence, and computes the final score.
//
// The engine is single-threaded by contract: it is driven from one event
// loop and never locks.
type Engine struct {
	cfg      Config
	defs     DefinitionStore
	attempts AttemptStore
	persist  *Persistence
	ledger   *Ledger
	rng      *rand.Rand
	now      func() time.Time

	def   *TestDefinition
	state *SessionState

	clock    *Countdown
	memClock *Countdown

	// submitting is the idempotent already-submitting flag: expiry sets it
	// before the manual path can proceed, so an expiry-triggered submission
	// always wins a race against a concurrent manual one.
	submitting  bool
	lastTrigger SubmitTrigger
	dirty       bool

	result        *Result
	attemptNumber int
	refusal       error
	resumed       bool
}

// NewEngine wires a session engine over the given stores and cache.
func NewEngine(defs DefinitionStore, attempts AttemptStore, cache KV, cfg Config) *Engine {
	if cfg.UserID == "" {
		cfg.UserID = GuestUser
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{
		cfg:      cfg,
		defs:     defs,
		attempts: attempts,
		persist:  NewPersistence(cache),
		ledger:   NewLedger(attempts, cfg.UserID),
		rng:      cfg.Rand,
		now:      cfg.Now,
	}
}

// Phase returns the current lifecycle phase.
func (e *Engine) Phase() Phase {
	if e.state == nil {
		if e.refusal != nil {
			return PhaseRefused
		}
		return PhaseLoading
	}
	return e.state.Phase
}

// Definition returns the loaded definition, nil before Start.
func (e *Engine) Definition() *TestDefinition { return e.def }

// State returns the session state, nil before Start. Callers must treat it
// as read-only; all mutation goes through the engine.
func (e *Engine) State() *SessionState { return e.state }

// Result returns the graded outcome once the session completed.
func (e *Engine) Result() *Result { return e.result }

// AttemptNumber returns the attempt number written at completion (1 or 2).
func (e *Engine) AttemptNumber() int { return e.attemptNumber }

// Resumed reports whether Start restored a prior snapshot.
func (e *Engine) Resumed() bool { return e.resumed }

// Refusal returns the error that moved the session to Refused, nil otherwise.
func (e *Engine) Refusal() error { return e.refusal }

// Start drives Loading to its successor phase: refuse (attempt ceiling,
// missing definition, empty pool), resume from a snapshot, or begin fresh.
// Start performs no result-store writes; no attempt is consumed here.
func (e *Engine) Start(ctx context.Context) (Phase, error) {
	def, err := e.defs.Definition(ctx, e.cfg.Collection, e.cfg.SubjectID)
	if err != nil {
		e.refusal = ErrDefinitionNotFound
		return PhaseRefused, ErrDefinitionNotFound
	}
	if len(def.Questions) == 0 {
		e.refusal = ErrEmptyQuestionPool
		return PhaseRefused, ErrEmptyQuestionPool
	}
	e.def = def

	// A ledger read failure leaves eligibility unknown; refuse rather than
	// risk a third attempt. No attempt is consumed.
	ok, err := e.ledger.CanStart(ctx, e.cfg.Collection, e.cfg.SubjectID)
	if err != nil {
		e.refusal = ErrAttemptsUnavailable
		return PhaseRefused, ErrAttemptsUnavailable
	}
	if !ok {
		e.refusal = ErrAttemptLimitReached
		return PhaseRefused, ErrAttemptLimitReached
	}

	key := SnapshotKey(e.cfg.Collection, e.cfg.UserID, e.cfg.SubjectID)
	if st, found := e.persist.Load(key); found && st.Collection == e.cfg.Collection && st.SubjectID == e.cfg.SubjectID {
		e.resume(st)
		return e.state.Phase, nil
	}
	return e.fresh()
}

// resume restores a snapshot. The frozen question set, answer map, cursor,
// and start timestamp come back verbatim; remaining time is recomputed from
// the wall clock on the next tick. A snapshot saved before the in-progress
// phase began re-enters in-progress with a full clock (the passage is not
// re-shown). A snapshot whose deadline already passed is restored expired:
// the first tick forces its submission.
func (e *Engine) resume(st *SessionState) {
	e.resumed = true
	e.state = st
	if st.Phase != PhaseInProgress || st.StartedAt == 0 {
		e.enterInProgress(e.now())
		e.save()
		return
	}
	st.Phase = PhaseInProgress
	e.clock = NewCountdown(time.Unix(st.StartedAt, 0), st.Duration(), nil)
}

// fresh builds a new session: question set snapshot first, then the initial
// cache write, so the set is frozen before the first key is pressed.
func (e *Engine) fresh() (Phase, error) {
	qs, err := BuildQuestionSet(e.def.Questions, SampleSizeFor(e.def), e.rng)
	if err != nil {
		e.refusal = err
		return PhaseRefused, err
	}

	e.state = &SessionState{
		SessionID:    uuid.New().String(),
		Collection:   e.cfg.Collection,
		SubjectID:    e.cfg.SubjectID,
		UserID:       e.cfg.UserID,
		Questions:    qs,
		Answers:      make(map[string]string),
		DurationSecs: e.def.DurationSecs,
	}

	if e.def.Passage != "" {
		e.state.Phase = PhaseIntro
		e.state.MemorizeRemaining = e.def.PassageSecs
	} else {
		e.enterInProgress(e.now())
	}
	e.save()
	return e.state.Phase, nil
}

// Acknowledge is the explicit user confirmation on the intro view. It moves
// the session into memorization (or straight to in-progress when the
// definition carries no passage timer).
func (e *Engine) Acknowledge() {
	if e.Phase() != PhaseIntro {
		return
	}
	now := e.now()
	if e.def.PassageSecs > 0 {
		e.state.Phase = PhaseMemorize
		e.memClock = NewCountdown(now, time.Duration(e.def.PassageSecs)*time.Second, nil)
	} else {
		e.enterInProgress(now)
	}
	e.save()
}

// Ready is the manual "I'm ready" exit from memorization, available on the
// technical variant only; academic sessions wait out the passage timer.
func (e *Engine) Ready() {
	if e.Phase() != PhaseMemorize || e.def.Variant != VariantTechnical {
		return
	}
	e.memClock.Stop()
	e.enterInProgress(e.now())
	e.save()
}

// enterInProgress stamps the deadline base and arms the main clock. The
// timestamp is what gets persisted; remaining time never is.
func (e *Engine) enterInProgress(now time.Time) {
	e.state.Phase = PhaseInProgress
	e.state.StartedAt = now.Unix()
	e.state.MemorizeRemaining = 0
	e.clock = NewCountdown(time.Unix(e.state.StartedAt, 0), e.state.Duration(), nil)
}

// Remaining returns the main deadline's remaining time, zero before the
// in-progress phase.
func (e *Engine) Remaining() time.Duration {
	if e.clock == nil {
		return 0
	}
	return e.clock.Remaining(e.now())
}

// MemorizeRemaining returns the memorization sub-clock's remaining time.
func (e *Engine) MemorizeRemaining() time.Duration {
	if e.memClock == nil {
		return 0
	}
	return e.memClock.Remaining(e.now())
}

// Tick advances both clocks and flushes a dirty snapshot. It is the single
// 1-second heartbeat: the memorization auto-advance and the deadline-forced
// submission each fire from here exactly once.
func (e *Engine) Tick(ctx context.Context) TickEvent {
	var ev TickEvent
	now := e.now()

	switch e.Phase() {
	case PhaseMemorize:
		e.state.MemorizeRemaining = int(e.memClock.Remaining(now).Seconds())
		if e.memClock.Tick(now) {
			ev.MemorizeDone = true
			e.enterInProgress(now)
			e.save()
		}
	case PhaseInProgress:
		if e.clock.Tick(now) {
			ev.Expired = true
			ev.Result, ev.Err = e.finish(ctx, TriggerExpiry)
			return ev
		}
		if e.dirty {
			e.save()
		}
	}
	return ev
}

// Select records the answer for the current question (upsert). The snapshot
// write is debounced to the next tick, so a crash loses at most one
// selection.
func (e *Engine) Select(optionID string) {
	if e.Phase() != PhaseInProgress {
		return
	}
	q := e.state.Current()
	if q == nil || q.Option(optionID) == nil {
		return
	}
	e.state.Answers[q.ID] = optionID
	e.dirty = true
}

// Next advances the cursor. Academic sessions gate forward movement on the
// current question being answered; technical sessions navigate freely.
func (e *Engine) Next() bool {
	if e.Phase() != PhaseInProgress {
		return false
	}
	st := e.state
	if st.Index >= len(st.Questions)-1 {
		return false
	}
	if e.def.Variant == VariantAcademic && !st.Answered(st.Current().ID) {
		return false
	}
	st.Index++
	e.dirty = true
	return true
}

// Prev moves the cursor back.
func (e *Engine) Prev() bool {
	if e.Phase() != PhaseInProgress || e.state.Index == 0 {
		return false
	}
	e.state.Index--
	e.dirty = true
	return true
}

// CanSubmit reports whether the explicit submit action is available:
// academic requires standing on the last question with an answer present,
// technical requires the full set answered.
func (e *Engine) CanSubmit() bool {
	if e.Phase() != PhaseInProgress {
		return false
	}
	st := e.state
	if e.def.Variant == VariantTechnical {
		return st.AllAnswered()
	}
	return st.Index == len(st.Questions)-1 && st.Answered(st.Current().ID)
}

// Submit is the manual submission path. It is a no-op returning the settled
// result when a forced submission already owns the session.
func (e *Engine) Submit(ctx context.Context) (*Result, error) {
	if e.submitting || e.Phase().Terminal() {
		return e.result, nil
	}
	if !e.CanSubmit() {
		return nil, ErrSubmitNotReady
	}
	return e.finish(ctx, TriggerManual)
}

// ForceSubmit submits regardless of completion gates: the deadline and the
// navigation guard both route through here. Unanswered questions score as
// incorrect.
func (e *Engine) ForceSubmit(ctx context.Context, trigger SubmitTrigger) (*Result, error) {
	if e.Phase().Terminal() {
		return e.result, nil
	}
	return e.finish(ctx, trigger)
}

// RetrySubmit retries a submission that failed with a retryable write
// error. Valid only while the session sits in the submitting phase.
func (e *Engine) RetrySubmit(ctx context.Context) (*Result, error) {
	if e.Phase() != PhaseSubmitting {
		return e.result, nil
	}
	return e.finish(ctx, e.lastTrigger)
}

// finish runs Submitting: re-read the ledger, allocate the next attempt
// number, score, write the record, clear the snapshot. The ledger re-check
// is a best-effort race guard, not a lock: losing it moves the session to
// Refused without a write. A failed write leaves the session in Submitting
// for retry; it is never silently marked completed.
func (e *Engine) finish(ctx context.Context, trigger SubmitTrigger) (*Result, error) {
	e.submitting = true
	e.lastTrigger = trigger
	e.state.Phase = PhaseSubmitting

	n, err := e.ledger.Count(ctx, e.cfg.Collection, e.cfg.SubjectID)
	if err != nil {
		return nil, &WriteError{Err: err}
	}
	if n >= MaxAttempts {
		e.state.Phase = PhaseRefused
		e.refusal = ErrAttemptLimitReached
		e.persist.Clear(e.snapshotKey())
		return nil, ErrAttemptLimitReached
	}
	attempt := n + 1

	res := ScoreSession(e.def, e.state.Questions, e.state.Answers)
	rec := &AttemptRecord{
		ID:          fmt.Sprintf("%s_%s_%d", e.cfg.Collection, e.cfg.SubjectID, attempt),
		SessionID:   e.state.SessionID,
		UserID:      e.cfg.UserID,
		Collection:  e.cfg.Collection,
		SubjectID:   e.cfg.SubjectID,
		Attempt:     attempt,
		Score:       res.Score,
		Label:       res.Label,
		Correct:     res.Correct,
		Total:       res.Total,
		Answers:     e.state.Answers,
		SubmittedAt: e.now(),
	}
	if err := e.attempts.PutAttempt(ctx, rec); err != nil {
		return nil, &WriteError{Err: err}
	}

	e.result = &res
	e.attemptNumber = attempt
	e.state.Phase = PhaseCompleted
	e.persist.Clear(e.snapshotKey())
	return e.result, nil
}

// save flushes the snapshot. Cache write failures are swallowed: losing a
// snapshot degrades resume, it must not break the live session.
func (e *Engine) save() {
	e.dirty = false
	if e.state == nil || e.state.Phase.Terminal() {
		return
	}
	_ = e.persist.Save(e.state)
}

func (e *Engine) snapshotKey() string {
	return SnapshotKey(e.cfg.Collection, e.cfg.UserID, e.cfg.SubjectID)
}
