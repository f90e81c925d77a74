package assess

import (
	"encoding/json"
)

// GuestUser is the identity sentinel used when no stable user id exists.
const GuestUser = "guest"

// KV is the durable cache port behind session persistence: a synchronous
// key to JSON-bytes store scoped to the device. Get returns (nil, nil) for
// an absent key. The production implementation is the store package's
// session cache; tests substitute an in-memory map.
type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// SnapshotKey builds the composite cache key for a session:
// collection, user (or guest), subject.
func SnapshotKey(collection, userID, subjectID string) string {
	if userID == "" {
		userID = GuestUser
	}
	return collection + ":" + userID + ":" + subjectID
}

// Persistence saves and restores in-progress session snapshots. A loaded
// snapshot never carries trustworthy remaining time; callers recompute it
// from the stored start timestamp, which is what makes the deadline
// reload-safe.
type Persistence struct {
	kv KV
}

// NewPersistence wraps the given cache port.
func NewPersistence(kv KV) *Persistence {
	return &Persistence{kv: kv}
}

// Save writes a snapshot under the state's composite key.
func (p *Persistence) Save(st *SessionState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return p.kv.Set(SnapshotKey(st.Collection, st.UserID, st.SubjectID), data)
}

// Load restores a snapshot by key. Absent, malformed, or internally
// inconsistent entries all report ok=false: corrupt local state means a
// fresh session, never a failure.
func (p *Persistence) Load(key string) (*SessionState, bool) {
	data, err := p.kv.Get(key)
	if err != nil || len(data) == 0 {
		return nil, false
	}
	var st SessionState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, false
	}
	if !validSnapshot(&st) {
		return nil, false
	}
	return &st, true
}

// Clear removes the snapshot under key. Failures are ignored; a stale
// entry is re-cleared on the next terminal transition.
func (p *Persistence) Clear(key string) {
	_ = p.kv.Delete(key)
}

// validSnapshot checks the structural invariants a restored session must
// satisfy: a non-empty frozen set, an in-bounds cursor, and an answer map
// keyed only by questions in the set.
func validSnapshot(st *SessionState) bool {
	if len(st.Questions) == 0 {
		return false
	}
	if st.Index < 0 || st.Index >= len(st.Questions) {
		return false
	}
	if st.DurationSecs <= 0 {
		return false
	}
	ids := make(map[string]bool, len(st.Questions))
	for i := range st.Questions {
		ids[st.Questions[i].ID] = true
	}
	for qid := range st.Answers {
		if !ids[qid] {
			return false
		}
	}
	return true
}
