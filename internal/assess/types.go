package assess

import (
	"time"
)

// ScoringMode selects how a submitted answer map is graded.
type ScoringMode string

const (
	// ScorePercentage grades as round(100 * correct / total).
	ScorePercentage ScoringMode = "percentageCorrect"
	// ScoreScale1to9 grades onto a 1-9 scale, either from option ratings
	// (rated definitions) or from the correctness percentage.
	ScoreScale1to9 ScoringMode = "numericScale1to9"
	// ScoreTiered grades as a percentage bucketed into a tier label.
	ScoreTiered ScoringMode = "tieredLabel"
)

// Tier is the label produced by ScoreTiered grading.
type Tier string

const (
	TierPoor      Tier = "poor"      // < 60%
	TierMedium    Tier = "medium"    // 60-79%
	TierExcellent Tier = "excellent" // >= 80%
)

// Variant distinguishes the two session flows.
//
// Academic sessions sample 10 questions from the pool and gate forward
// navigation on the current question being answered. Technical sessions use
// the full fixed list, allow free navigation, and instead gate the submit
// action on every question being answered. Only technical sessions allow a
// manual "I'm ready" exit from the memorization phase.
type Variant string

const (
	VariantAcademic  Variant = "academic"
	VariantTechnical Variant = "technical"
)

// Option is a single answer choice. For correctness-graded definitions the
// Correct marker identifies the answer key; for rated definitions Points
// carries the 1-5 rating value the choice contributes.
type Option struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Correct bool   `json:"correct,omitempty"`
	Points  int    `json:"points,omitempty"`
}

// Question is one item of an assessment. Option display order is randomized
// per session by the question set builder, independent of storage order.
type Question struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Image   string   `json:"image,omitempty"`
	Options []Option `json:"options"`
}

// Option returns the option with the given id, or nil.
func (q *Question) Option(id string) *Option {
	for i := range q.Options {
		if q.Options[i].ID == id {
			return &q.Options[i]
		}
	}
	return nil
}

// IsCorrect reports whether the option with the given id carries the
// correct-answer marker. Unknown ids are incorrect.
func (q *Question) IsCorrect(optionID string) bool {
	o := q.Option(optionID)
	return o != nil && o.Correct
}

// TestDefinition is the immutable description of one assessment, read from
// the record store. It never changes during a session.
type TestDefinition struct {
	Collection  string  `json:"collection"`
	SubjectID   string  `json:"subject_id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Variant     Variant `json:"variant"`

	// Passage, when non-empty, enables the intro + memorization phases.
	// PassageSecs is how long the passage stays visible.
	Passage     string `json:"passage,omitempty"`
	PassageSecs int    `json:"passage_secs,omitempty"`

	ScoringMode ScoringMode `json:"scoring_mode"`
	// Rated marks definitions whose options carry 1-5 ratings rather than
	// discrete correctness (self-assessment style). Only meaningful with
	// ScoreScale1to9.
	Rated bool `json:"rated,omitempty"`

	DurationSecs int `json:"duration_secs"`
	// SampleSize is the number of questions drawn from the pool.
	// Zero means the full list is used in shuffled order.
	SampleSize int `json:"sample_size,omitempty"`

	Questions []Question `json:"questions"`
}

// Duration returns the session deadline as a time.Duration.
func (d *TestDefinition) Duration() time.Duration {
	return time.Duration(d.DurationSecs) * time.Second
}

// Phase is the lifecycle phase of a session.
type Phase string

const (
	PhaseLoading    Phase = "loading"
	PhaseIntro      Phase = "intro"
	PhaseMemorize   Phase = "memorize"
	PhaseInProgress Phase = "in_progress"
	PhaseSubmitting Phase = "submitting"
	PhaseCompleted  Phase = "completed"
	PhaseRefused    Phase = "refused"
)

// Terminal reports whether the phase is a terminal one. A terminal session
// holds no work worth guarding and must not be guarded or persisted.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseRefused
}

// SessionState is the mutable, persistable state of one session. It is the
// exact shape written to the durable cache; the snapshot deliberately stores
// the start timestamp rather than a remaining-time value so the countdown
// can be recomputed from the wall clock after a reload.
type SessionState struct {
	SessionID  string `json:"session_id"`
	Collection string `json:"collection"`
	SubjectID  string `json:"subject_id"`
	UserID     string `json:"user_id"`

	// Questions is the frozen, session-scoped question set: order and
	// membership never change for the lifetime of the session, including
	// across a resume.
	Questions []Question `json:"questions"`

	// Answers maps question id to the selected option id.
	Answers map[string]string `json:"answers"`

	// Index is the current question cursor, 0 <= Index < len(Questions).
	Index int `json:"index"`

	// StartedAt is the epoch second the in-progress phase began.
	// Zero until the session leaves the intro/memorization phases.
	StartedAt    int64 `json:"started_at"`
	DurationSecs int   `json:"duration_secs"`

	Phase Phase `json:"phase"`

	// MemorizeRemaining is the memorization sub-clock's remaining seconds
	// at the last snapshot, present only while that phase is active.
	MemorizeRemaining int `json:"memorize_remaining,omitempty"`
}

// Duration returns the session deadline as a time.Duration.
func (s *SessionState) Duration() time.Duration {
	return time.Duration(s.DurationSecs) * time.Second
}

// Current returns the question under the cursor, or nil for an empty set.
func (s *SessionState) Current() *Question {
	if s.Index < 0 || s.Index >= len(s.Questions) {
		return nil
	}
	return &s.Questions[s.Index]
}

// Answered reports whether the question with the given id has an answer.
func (s *SessionState) Answered(questionID string) bool {
	_, ok := s.Answers[questionID]
	return ok
}

// AllAnswered reports whether every question in the frozen set has an answer.
func (s *SessionState) AllAnswered() bool {
	for i := range s.Questions {
		if !s.Answered(s.Questions[i].ID) {
			return false
		}
	}
	return true
}

// Result is the graded outcome of a submitted session.
type Result struct {
	Mode    ScoringMode `json:"mode"`
	Score   float64     `json:"score"`
	Label   Tier        `json:"label,omitempty"`
	Correct int         `json:"correct"`
	Total   int         `json:"total"`
}

// AttemptRecord is one graded submission, written once and never mutated.
// At most two records may exist per (user, subject, collection).
type AttemptRecord struct {
	// ID is "{collection}_{subjectID}_{attempt}".
	ID          string            `json:"id"`
	SessionID   string            `json:"session_id"`
	UserID      string            `json:"user_id"`
	Collection  string            `json:"collection"`
	SubjectID   string            `json:"subject_id"`
	Attempt     int               `json:"attempt"`
	Score       float64           `json:"score"`
	Label       Tier              `json:"label,omitempty"`
	Correct     int               `json:"correct"`
	Total       int               `json:"total"`
	Answers     map[string]string `json:"answers"`
	SubmittedAt time.Time         `json:"submitted_at"`
}
