package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/phantom040901/devpath-cli/internal/assess"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testDefinition() *assess.TestDefinition {
	return &assess.TestDefinition{
		Collection:   "academic",
		SubjectID:    "algebra",
		Title:        "Algebra Fundamentals",
		Variant:      assess.VariantAcademic,
		ScoringMode:  assess.ScorePercentage,
		DurationSecs: 900,
		Questions: []assess.Question{
			{
				ID:     "q1",
				Prompt: "2 + 2 = ?",
				Options: []assess.Option{
					{ID: "a", Label: "3"},
					{ID: "b", Label: "4", Correct: true},
				},
			},
		},
	}
}

func TestOpenClose(t *testing.T) {
	s := openTestStore(t)
	if s.DB() == nil {
		t.Fatal("expected non-nil db handle")
	}
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases,
		// so journal_mode is not asserted here.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestDefinitionRoundtrip(t *testing.T) {
	s := openTestStore(t)
	repo := s.Definitions()
	ctx := context.Background()

	want := testDefinition()
	if err := repo.Put(ctx, want); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := repo.Definition(ctx, "academic", "algebra")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != want.Title || got.Variant != want.Variant {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if len(got.Questions) != 1 || got.Questions[0].ID != "q1" {
		t.Fatalf("questions not preserved: %+v", got.Questions)
	}
	if !got.Questions[0].Options[1].Correct {
		t.Fatal("correct marker not preserved")
	}
}

func TestDefinitionNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Definitions().Definition(context.Background(), "academic", "missing")
	if !errors.Is(err, assess.ErrDefinitionNotFound) {
		t.Fatalf("got %v, want ErrDefinitionNotFound", err)
	}
}

func TestDefinitionList(t *testing.T) {
	s := openTestStore(t)
	repo := s.Definitions()
	ctx := context.Background()

	defs := []*assess.TestDefinition{
		testDefinition(),
		{
			Collection: "technical", SubjectID: "go-basics", Title: "Go Basics",
			Variant: assess.VariantTechnical, ScoringMode: assess.ScoreTiered,
			DurationSecs: 600,
			Questions:    testDefinition().Questions,
		},
	}
	for _, d := range defs {
		if err := repo.Put(ctx, d); err != nil {
			t.Fatalf("put %s: %v", d.SubjectID, err)
		}
	}

	all, err := repo.List(ctx, "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d definitions, want 2", len(all))
	}

	tech, err := repo.List(ctx, "technical")
	if err != nil {
		t.Fatalf("list technical: %v", err)
	}
	if len(tech) != 1 || tech[0].SubjectID != "go-basics" {
		t.Fatalf("got %+v, want the technical definition", tech)
	}
}

func TestAttemptRoundtrip(t *testing.T) {
	s := openTestStore(t)
	repo := s.Attempts()
	ctx := context.Background()

	rec := &assess.AttemptRecord{
		ID: "academic_algebra_1", SessionID: "sess-1", UserID: "u1",
		Collection: "academic", SubjectID: "algebra", Attempt: 1,
		Score: 70, Correct: 7, Total: 10,
		Answers:     map[string]string{"q1": "b"},
		SubmittedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := repo.PutAttempt(ctx, rec); err != nil {
		t.Fatalf("put: %v", err)
	}

	recs, err := repo.ListAttempts(ctx, "u1", "academic", "algebra")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if recs[0].Score != 70 || recs[0].Answers["q1"] != "b" {
		t.Fatalf("record not preserved: %+v", recs[0])
	}
}

func TestAttemptDuplicateIDRejected(t *testing.T) {
	s := openTestStore(t)
	repo := s.Attempts()
	ctx := context.Background()

	rec := &assess.AttemptRecord{
		ID: "academic_algebra_1", SessionID: "sess-1", UserID: "u1",
		Collection: "academic", SubjectID: "algebra", Attempt: 1,
		Answers: map[string]string{}, SubmittedAt: time.Now().UTC(),
	}
	if err := repo.PutAttempt(ctx, rec); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if err := repo.PutAttempt(ctx, rec); err == nil {
		t.Fatal("expected duplicate id to fail")
	}
}

func TestAttemptScopeIsolation(t *testing.T) {
	s := openTestStore(t)
	repo := s.Attempts()
	ctx := context.Background()

	recs := []*assess.AttemptRecord{
		{ID: "academic_algebra_1", UserID: "u1", Collection: "academic", SubjectID: "algebra", Attempt: 1, Answers: map[string]string{}, SubmittedAt: time.Now().UTC()},
		{ID: "academic_algebra_2", UserID: "u1", Collection: "academic", SubjectID: "algebra", Attempt: 2, Answers: map[string]string{}, SubmittedAt: time.Now().UTC()},
		{ID: "academic_geometry_1", UserID: "u1", Collection: "academic", SubjectID: "geometry", Attempt: 1, Answers: map[string]string{}, SubmittedAt: time.Now().UTC()},
	}
	for _, r := range recs {
		if err := repo.PutAttempt(ctx, r); err != nil {
			t.Fatalf("put %s: %v", r.ID, err)
		}
	}

	scoped, err := repo.ListAttempts(ctx, "u1", "academic", "algebra")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(scoped) != 2 {
		t.Fatalf("got %d records in scope, want 2", len(scoped))
	}
	if scoped[0].Attempt != 1 || scoped[1].Attempt != 2 {
		t.Fatalf("records not ordered by attempt: %+v", scoped)
	}

	other, err := repo.ListAttempts(ctx, "u2", "academic", "algebra")
	if err != nil {
		t.Fatalf("list other user: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("got %d records for other user, want 0", len(other))
	}
}

func TestCacheGetAbsent(t *testing.T) {
	s := openTestStore(t)

	v, err := s.SessionCache().Get("academic:guest:algebra")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v != nil {
		t.Fatalf("got %q, want nil for absent key", v)
	}
}

func TestCacheSetGetDelete(t *testing.T) {
	s := openTestStore(t)
	cache := s.SessionCache()
	key := "academic:guest:algebra"

	if err := cache.Set(key, []byte(`{"phase":"in_progress"}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, err := cache.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(v) != `{"phase":"in_progress"}` {
		t.Fatalf("got %q", v)
	}

	// Upsert replaces.
	if err := cache.Set(key, []byte(`{"phase":"completed"}`)); err != nil {
		t.Fatalf("second set: %v", err)
	}
	v, _ = cache.Get(key)
	if string(v) != `{"phase":"completed"}` {
		t.Fatalf("got %q after upsert", v)
	}

	if err := cache.Delete(key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	v, _ = cache.Get(key)
	if v != nil {
		t.Fatal("key still present after delete")
	}
}

func TestCacheClear(t *testing.T) {
	s := openTestStore(t)
	cache := s.SessionCache()

	cache.Set("a", []byte("1"))
	cache.Set("b", []byte("2"))
	if err := cache.Clear(context.Background()); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if v, _ := cache.Get("a"); v != nil {
		t.Fatal("cache not cleared")
	}
}

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "defs.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}
	return path
}

const validSeed = `{
	"collection": "academic",
	"subject_id": "algebra",
	"title": "Algebra Fundamentals",
	"variant": "academic",
	"scoring_mode": "percentageCorrect",
	"duration_secs": 900,
	"questions": [
		{
			"id": "q1",
			"prompt": "2 + 2 = ?",
			"options": [
				{"id": "a", "label": "3"},
				{"id": "b", "label": "4", "correct": true}
			]
		}
	]
}`

func TestImportSingleDefinition(t *testing.T) {
	s := openTestStore(t)
	path := writeSeedFile(t, validSeed)

	n, err := s.Definitions().ImportDefinitions(context.Background(), path)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 1 {
		t.Fatalf("imported %d, want 1", n)
	}

	def, err := s.Definitions().Definition(context.Background(), "academic", "algebra")
	if err != nil {
		t.Fatalf("get imported: %v", err)
	}
	if def.Title != "Algebra Fundamentals" {
		t.Fatalf("got title %q", def.Title)
	}
}

func TestImportArray(t *testing.T) {
	s := openTestStore(t)
	path := writeSeedFile(t, "["+validSeed+"]")

	n, err := s.Definitions().ImportDefinitions(context.Background(), path)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 1 {
		t.Fatalf("imported %d, want 1", n)
	}
}

func TestImportRejectsInvalid(t *testing.T) {
	s := openTestStore(t)

	cases := map[string]string{
		"missing duration": `{
			"collection": "academic", "subject_id": "x", "title": "X",
			"variant": "academic", "scoring_mode": "percentageCorrect",
			"questions": [{"id": "q1", "prompt": "p", "options": [{"id":"a","label":"A"},{"id":"b","label":"B"}]}]
		}`,
		"bad variant": `{
			"collection": "academic", "subject_id": "x", "title": "X",
			"variant": "quiz", "scoring_mode": "percentageCorrect", "duration_secs": 60,
			"questions": [{"id": "q1", "prompt": "p", "options": [{"id":"a","label":"A"},{"id":"b","label":"B"}]}]
		}`,
		"single option": `{
			"collection": "academic", "subject_id": "x", "title": "X",
			"variant": "academic", "scoring_mode": "percentageCorrect", "duration_secs": 60,
			"questions": [{"id": "q1", "prompt": "p", "options": [{"id":"a","label":"A"}]}]
		}`,
		"not json": `{nope}`,
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeSeedFile(t, content)
			if _, err := s.Definitions().ImportDefinitions(context.Background(), path); err == nil {
				t.Fatal("expected import to fail")
			}
		})
	}
}
