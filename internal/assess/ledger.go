package assess

import (
	"context"
)

// MaxAttempts is the ceiling of graded attempts per (user, subject,
// collection). A third session is refused at start and at submit.
const MaxAttempts = 2

// Ledger counts prior graded attempts from the result store and enforces
// the attempt ceiling. The count is read without locking; the submit-time
// re-check makes the ceiling best-effort consistent under concurrent
// clients, not linearizable.
type Ledger struct {
	attempts AttemptStore
	userID   string
}

// NewLedger builds a ledger scoped to one user. An empty user id resolves
// to the guest sentinel.
func NewLedger(attempts AttemptStore, userID string) *Ledger {
	if userID == "" {
		userID = GuestUser
	}
	return &Ledger{attempts: attempts, userID: userID}
}

// Count returns the number of graded attempts recorded for the subject.
func (l *Ledger) Count(ctx context.Context, collection, subjectID string) (int, error) {
	recs, err := l.attempts.ListAttempts(ctx, l.userID, collection, subjectID)
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}

// CanStart reports whether a new session may begin.
func (l *Ledger) CanStart(ctx context.Context, collection, subjectID string) (bool, error) {
	n, err := l.Count(ctx, collection, subjectID)
	if err != nil {
		return false, err
	}
	return n < MaxAttempts, nil
}
