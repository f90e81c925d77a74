package assess

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDefs serves a single definition.
type fakeDefs struct {
	def *TestDefinition
}

func (f *fakeDefs) Definition(_ context.Context, collection, subjectID string) (*TestDefinition, error) {
	if f.def == nil || f.def.Collection != collection || f.def.SubjectID != subjectID {
		return nil, ErrDefinitionNotFound
	}
	return f.def, nil
}

// fakeAttempts is an in-memory result store.
type fakeAttempts struct {
	recs    []AttemptRecord
	listErr error
	putErr  error
	puts    int
}

func (f *fakeAttempts) ListAttempts(_ context.Context, userID, collection, subjectID string) ([]AttemptRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []AttemptRecord
	for _, r := range f.recs {
		if r.UserID == userID && r.Collection == collection && r.SubjectID == subjectID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeAttempts) PutAttempt(_ context.Context, rec *AttemptRecord) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.puts++
	f.recs = append(f.recs, *rec)
	return nil
}

// testClock is a controllable wall clock.
type testClock struct {
	t time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func academicDef() *TestDefinition {
	pool := make([]Question, 0, 12)
	for i := 0; i < 12; i++ {
		pool = append(pool, Question{
			ID:     fmt.Sprintf("q%d", i),
			Prompt: fmt.Sprintf("Question %d", i),
			Options: []Option{
				{ID: "o1", Label: "right", Correct: true},
				{ID: "o2", Label: "wrong a"},
				{ID: "o3", Label: "wrong b"},
				{ID: "o4", Label: "wrong c"},
			},
		})
	}
	return &TestDefinition{
		Collection:   "academic",
		SubjectID:    "algebra",
		Title:        "Algebra Fundamentals",
		Variant:      VariantAcademic,
		ScoringMode:  ScorePercentage,
		DurationSecs: 900,
		Questions:    pool,
	}
}

func technicalDef() *TestDefinition {
	def := academicDef()
	def.Collection = "technical"
	def.SubjectID = "memory-recall"
	def.Variant = VariantTechnical
	def.Passage = "Remember: the cache invalidation order is L1, L2, disk."
	def.PassageSecs = 5
	def.Questions = def.Questions[:6]
	return def
}

type engineFixture struct {
	engine   *Engine
	attempts *fakeAttempts
	kv       *memKV
	clock    *testClock
}

func newFixture(def *TestDefinition, seed int64) *engineFixture {
	return newFixtureWith(def, seed, &fakeAttempts{}, newMemKV())
}

func newFixtureWith(def *TestDefinition, seed int64, attempts *fakeAttempts, kv *memKV) *engineFixture {
	clock := newTestClock()
	e := NewEngine(&fakeDefs{def: def}, attempts, kv, Config{
		Collection: def.Collection,
		SubjectID:  def.SubjectID,
		UserID:     "u-1",
		Rand:       rand.New(rand.NewSource(seed)),
		Now:        clock.Now,
	})
	return &engineFixture{engine: e, attempts: attempts, kv: kv, clock: clock}
}

// answerAll walks an academic session to the end, answering every question.
func answerAll(t *testing.T, f *engineFixture, correct int) {
	t.Helper()
	st := f.engine.State()
	for i := 0; i < len(st.Questions); i++ {
		q := st.Current()
		choice := q.Options[0].ID
		if i < correct {
			for _, o := range q.Options {
				if o.Correct {
					choice = o.ID
					break
				}
			}
		} else {
			for _, o := range q.Options {
				if !o.Correct {
					choice = o.ID
					break
				}
			}
		}
		f.engine.Select(choice)
		if i < len(st.Questions)-1 {
			require.True(t, f.engine.Next(), "Next at question %d", i)
		}
	}
}

func TestEngine_FreshStartAcademic(t *testing.T) {
	f := newFixture(academicDef(), 1)

	phase, err := f.engine.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseInProgress, phase)

	st := f.engine.State()
	require.NotNil(t, st)
	assert.Len(t, st.Questions, AcademicSampleSize)
	assert.NotEmpty(t, st.SessionID)
	assert.False(t, f.engine.Resumed())

	// The initial snapshot is persisted immediately, freezing the set.
	_, ok := NewPersistence(f.kv).Load(SnapshotKey("academic", "u-1", "algebra"))
	assert.True(t, ok, "initial snapshot should exist")
}

func TestEngine_RefusedAtAttemptCeiling(t *testing.T) {
	attempts := &fakeAttempts{recs: []AttemptRecord{
		{ID: "academic_algebra_1", UserID: "u-1", Collection: "academic", SubjectID: "algebra", Attempt: 1},
		{ID: "academic_algebra_2", UserID: "u-1", Collection: "academic", SubjectID: "algebra", Attempt: 2},
	}}
	f := newFixtureWith(academicDef(), 1, attempts, newMemKV())

	phase, err := f.engine.Start(context.Background())
	assert.ErrorIs(t, err, ErrAttemptLimitReached)
	assert.Equal(t, PhaseRefused, phase)
	assert.Equal(t, 0, attempts.puts, "a refused start must perform no writes")
	assert.Empty(t, f.kv.m, "a refused start must not persist a snapshot")
}

func TestEngine_RefusedOnEmptyPool(t *testing.T) {
	def := academicDef()
	def.Questions = nil
	f := newFixture(def, 1)

	_, err := f.engine.Start(context.Background())
	assert.ErrorIs(t, err, ErrEmptyQuestionPool)
}

func TestEngine_DefinitionNotFound(t *testing.T) {
	clock := newTestClock()
	e := NewEngine(&fakeDefs{}, &fakeAttempts{}, newMemKV(), Config{
		Collection: "academic",
		SubjectID:  "missing",
		Now:        clock.Now,
	})

	phase, err := e.Start(context.Background())
	assert.ErrorIs(t, err, ErrDefinitionNotFound)
	assert.Equal(t, PhaseRefused, phase)
}

func TestEngine_RefusedWhenLedgerUnreadable(t *testing.T) {
	attempts := &fakeAttempts{listErr: errors.New("store down")}
	f := newFixtureWith(academicDef(), 1, attempts, newMemKV())

	phase, err := f.engine.Start(context.Background())
	assert.ErrorIs(t, err, ErrAttemptsUnavailable)
	assert.NotErrorIs(t, err, ErrDefinitionNotFound,
		"a ledger outage must not read as a missing definition")
	assert.Equal(t, PhaseRefused, phase)
	assert.Equal(t, 0, attempts.puts, "a refused start must perform no writes")
}

func TestSessionStateDuration(t *testing.T) {
	st := &SessionState{DurationSecs: 900}
	assert.Equal(t, 15*time.Minute, st.Duration())
}

func TestEngine_ResumeFidelity(t *testing.T) {
	// A snapshot idle for 300 of its 900 seconds must come back with
	// ~600s on the clock, no matter how long the cache entry sat there.
	f := newFixture(academicDef(), 1)
	kvState := snapshotFixture()
	kvState.StartedAt = f.clock.Now().Add(-300 * time.Second).Unix()
	kvState.DurationSecs = 900
	require.NoError(t, NewPersistence(f.kv).Save(kvState))

	phase, err := f.engine.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseInProgress, phase)
	assert.True(t, f.engine.Resumed())

	rem := f.engine.Remaining()
	assert.InDelta(t, 600, rem.Seconds(), 1.0)
}

func TestEngine_FrozenSetAcrossResume(t *testing.T) {
	kv := newMemKV()
	attempts := &fakeAttempts{}

	first := newFixtureWith(academicDef(), 7, attempts, kv)
	_, err := first.engine.Start(context.Background())
	require.NoError(t, err)
	firstSet := first.engine.State().Questions

	// Same device, new process: the set and option order come back verbatim.
	second := newFixtureWith(academicDef(), 99, attempts, kv)
	_, err = second.engine.Start(context.Background())
	require.NoError(t, err)
	require.True(t, second.engine.Resumed())

	secondSet := second.engine.State().Questions
	require.Equal(t, len(firstSet), len(secondSet))
	for i := range firstSet {
		assert.Equal(t, firstSet[i].ID, secondSet[i].ID, "question order at %d", i)
		for j := range firstSet[i].Options {
			assert.Equal(t, firstSet[i].Options[j].ID, secondSet[i].Options[j].ID,
				"option order of %s at %d", firstSet[i].ID, j)
		}
	}
}

func TestEngine_AcademicForwardGate(t *testing.T) {
	f := newFixture(academicDef(), 1)
	_, err := f.engine.Start(context.Background())
	require.NoError(t, err)

	assert.False(t, f.engine.Next(), "Next must be gated on the current answer")

	q := f.engine.State().Current()
	f.engine.Select(q.Options[0].ID)
	assert.True(t, f.engine.Next())
	assert.True(t, f.engine.Prev())
	assert.Equal(t, 0, f.engine.State().Index)
}

func TestEngine_TechnicalFreeNavGatedSubmit(t *testing.T) {
	def := technicalDef()
	def.Passage = ""
	def.PassageSecs = 0
	f := newFixture(def, 1)
	_, err := f.engine.Start(context.Background())
	require.NoError(t, err)

	// Free forward navigation without answers.
	assert.True(t, f.engine.Next())
	assert.False(t, f.engine.CanSubmit(), "submit gated until all answered")

	require.True(t, f.engine.Prev())
	st := f.engine.State()
	for i := 0; i < len(st.Questions); i++ {
		f.engine.Select(st.Current().Options[0].ID)
		if i < len(st.Questions)-1 {
			f.engine.Next()
		}
	}
	assert.True(t, f.engine.CanSubmit())
}

func TestEngine_DebouncedSnapshotFlush(t *testing.T) {
	f := newFixture(academicDef(), 1)
	_, err := f.engine.Start(context.Background())
	require.NoError(t, err)

	q := f.engine.State().Current()
	f.engine.Select(q.Options[0].ID)

	p := NewPersistence(f.kv)
	key := SnapshotKey("academic", "u-1", "algebra")
	stored, ok := p.Load(key)
	require.True(t, ok)
	assert.Empty(t, stored.Answers, "selection should not be flushed before the tick")

	f.clock.Advance(time.Second)
	f.engine.Tick(context.Background())

	stored, ok = p.Load(key)
	require.True(t, ok)
	assert.Equal(t, q.Options[0].ID, stored.Answers[q.ID], "tick must flush the latest mutation")
}

func TestEngine_ManualSubmit(t *testing.T) {
	f := newFixture(academicDef(), 1)
	_, err := f.engine.Start(context.Background())
	require.NoError(t, err)

	answerAll(t, f, 7)
	require.True(t, f.engine.CanSubmit())

	res, err := f.engine.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseCompleted, f.engine.Phase())
	assert.Equal(t, float64(70), res.Score)
	assert.Equal(t, 1, f.engine.AttemptNumber())

	require.Equal(t, 1, f.attempts.puts)
	rec := f.attempts.recs[0]
	assert.Equal(t, "academic_algebra_1", rec.ID)
	assert.Equal(t, 10, rec.Total)

	// Snapshot cleared on completion.
	_, ok := NewPersistence(f.kv).Load(SnapshotKey("academic", "u-1", "algebra"))
	assert.False(t, ok)
}

func TestEngine_ExpiryForcesSubmissionOnce(t *testing.T) {
	f := newFixture(academicDef(), 1)
	_, err := f.engine.Start(context.Background())
	require.NoError(t, err)

	q := f.engine.State().Current()
	f.engine.Select(q.Options[0].ID)

	f.clock.Advance(901 * time.Second)
	ev := f.engine.Tick(context.Background())
	assert.True(t, ev.Expired)
	require.NoError(t, ev.Err)
	require.NotNil(t, ev.Result)
	assert.Equal(t, PhaseCompleted, f.engine.Phase())
	assert.Equal(t, 1, f.attempts.puts)

	// The clock keeps ticking; expiry must not fire again.
	for i := 0; i < 3; i++ {
		f.clock.Advance(time.Second)
		ev = f.engine.Tick(context.Background())
		assert.False(t, ev.Expired)
	}
	assert.Equal(t, 1, f.attempts.puts)

	// A manual submit after expiry settles on the existing result.
	res, err := f.engine.Submit(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Equal(t, 1, f.attempts.puts, "expiry wins the race; manual path must not double-write")
}

func TestEngine_ExpiredSnapshotSubmitsOnFirstTick(t *testing.T) {
	f := newFixture(academicDef(), 1)
	stale := snapshotFixture()
	stale.StartedAt = f.clock.Now().Add(-2 * time.Hour).Unix()
	require.NoError(t, NewPersistence(f.kv).Save(stale))

	_, err := f.engine.Start(context.Background())
	require.NoError(t, err)
	require.True(t, f.engine.Resumed())

	f.clock.Advance(time.Second)
	ev := f.engine.Tick(context.Background())
	assert.True(t, ev.Expired)
	assert.Equal(t, PhaseCompleted, f.engine.Phase())
	assert.Equal(t, 1, f.attempts.puts)
}

func TestEngine_ForcedExitCountsAsAttempt(t *testing.T) {
	f := newFixture(academicDef(), 1)
	_, err := f.engine.Start(context.Background())
	require.NoError(t, err)

	// Answer 3 of 10 correctly, then confirm an exit through the guard.
	st := f.engine.State()
	for i := 0; i < 3; i++ {
		q := st.Current()
		for _, o := range q.Options {
			if o.Correct {
				f.engine.Select(o.ID)
			}
		}
		f.engine.Next()
	}

	guard := NewNavigationGuard(f.engine)
	require.True(t, guard.Intercept(), "active session must intercept the exit")
	require.True(t, guard.Confirming())

	res, err := guard.ConfirmExit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, float64(30), res.Score, "partial answers scored against all 10")
	assert.Equal(t, 10, res.Total)
	require.Equal(t, 1, f.attempts.puts)
	assert.Equal(t, 1, f.attempts.recs[0].Attempt)

	// Inert once terminal.
	assert.False(t, guard.Intercept())
	assert.False(t, guard.Confirming())
}

func TestEngine_GuardStay(t *testing.T) {
	f := newFixture(academicDef(), 1)
	_, err := f.engine.Start(context.Background())
	require.NoError(t, err)

	guard := NewNavigationGuard(f.engine)
	require.True(t, guard.Intercept())
	guard.Stay()
	assert.False(t, guard.Confirming())
	assert.Equal(t, PhaseInProgress, f.engine.Phase())
	assert.Equal(t, 0, f.attempts.puts)
}

func TestEngine_MemorizationAutoAdvance(t *testing.T) {
	f := newFixture(technicalDef(), 1)
	phase, err := f.engine.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseIntro, phase)

	f.engine.Acknowledge()
	assert.Equal(t, PhaseMemorize, f.engine.Phase())

	// The passage clock runs 5s; the crossing tick advances exactly once.
	advanced := 0
	for i := 0; i < 8; i++ {
		f.clock.Advance(time.Second)
		if f.engine.Tick(context.Background()).MemorizeDone {
			advanced++
		}
	}
	assert.Equal(t, 1, advanced)
	assert.Equal(t, PhaseInProgress, f.engine.Phase())

	// The deadline clock starts from the phase transition, not from intro.
	assert.InDelta(t, 900, f.engine.Remaining().Seconds(), 4.0)
}

func TestEngine_MemorizationManualReady(t *testing.T) {
	f := newFixture(technicalDef(), 1)
	_, err := f.engine.Start(context.Background())
	require.NoError(t, err)

	f.engine.Acknowledge()
	f.clock.Advance(2 * time.Second)
	f.engine.Ready()
	assert.Equal(t, PhaseInProgress, f.engine.Phase())

	// The abandoned passage clock never fires.
	f.clock.Advance(10 * time.Second)
	ev := f.engine.Tick(context.Background())
	assert.False(t, ev.MemorizeDone)
}

func TestEngine_ReadyIgnoredOnAcademic(t *testing.T) {
	def := academicDef()
	def.Passage = "Read this passage carefully."
	def.PassageSecs = 30
	f := newFixture(def, 1)
	_, err := f.engine.Start(context.Background())
	require.NoError(t, err)

	f.engine.Acknowledge()
	f.engine.Ready()
	assert.Equal(t, PhaseMemorize, f.engine.Phase(), "academic sessions wait out the passage timer")
}

func TestEngine_WriteFailureIsRetryable(t *testing.T) {
	f := newFixture(academicDef(), 1)
	_, err := f.engine.Start(context.Background())
	require.NoError(t, err)
	answerAll(t, f, 10)

	f.attempts.putErr = errors.New("store unavailable")
	_, err = f.engine.Submit(context.Background())
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, PhaseSubmitting, f.engine.Phase(), "session must not be marked completed on a failed write")

	f.attempts.putErr = nil
	res, err := f.engine.RetrySubmit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseCompleted, f.engine.Phase())
	assert.Equal(t, float64(100), res.Score)
	assert.Equal(t, 1, f.attempts.puts)
}

func TestEngine_SubmitRaceLostMovesToRefused(t *testing.T) {
	f := newFixture(academicDef(), 1)
	_, err := f.engine.Start(context.Background())
	require.NoError(t, err)
	answerAll(t, f, 10)

	// Another client filled the ledger between start and submit.
	f.attempts.recs = append(f.attempts.recs,
		AttemptRecord{ID: "academic_algebra_1", UserID: "u-1", Collection: "academic", SubjectID: "algebra", Attempt: 1},
		AttemptRecord{ID: "academic_algebra_2", UserID: "u-1", Collection: "academic", SubjectID: "algebra", Attempt: 2},
	)

	_, err = f.engine.Submit(context.Background())
	assert.ErrorIs(t, err, ErrAttemptLimitReached)
	assert.Equal(t, PhaseRefused, f.engine.Phase())
	assert.Equal(t, 0, f.attempts.puts)
}

func TestEngine_SecondAttemptNumbering(t *testing.T) {
	attempts := &fakeAttempts{recs: []AttemptRecord{
		{ID: "academic_algebra_1", UserID: "u-1", Collection: "academic", SubjectID: "algebra", Attempt: 1},
	}}
	f := newFixtureWith(academicDef(), 1, attempts, newMemKV())
	_, err := f.engine.Start(context.Background())
	require.NoError(t, err)
	answerAll(t, f, 5)

	_, err = f.engine.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, f.engine.AttemptNumber())
	assert.Equal(t, "academic_algebra_2", attempts.recs[len(attempts.recs)-1].ID)
}

func TestEngine_SubmitNotReady(t *testing.T) {
	f := newFixture(academicDef(), 1)
	_, err := f.engine.Start(context.Background())
	require.NoError(t, err)

	_, err = f.engine.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmitNotReady)
	assert.Equal(t, PhaseInProgress, f.engine.Phase())
}
