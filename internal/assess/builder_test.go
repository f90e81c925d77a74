package assess

import (
	"errors"
	"math/rand"
	"testing"
)

func testPool(n int) []Question {
	pool := make([]Question, 0, n)
	for i := 0; i < n; i++ {
		id := string(rune('a' + i))
		pool = append(pool, Question{
			ID:     "q-" + id,
			Prompt: "Question " + id,
			Options: []Option{
				{ID: "o1", Label: "first", Correct: true},
				{ID: "o2", Label: "second"},
				{ID: "o3", Label: "third"},
				{ID: "o4", Label: "fourth"},
			},
		})
	}
	return pool
}

func TestBuildQuestionSet_EmptyPool(t *testing.T) {
	_, err := BuildQuestionSet(nil, 10, rand.New(rand.NewSource(1)))
	if !errors.Is(err, ErrEmptyQuestionPool) {
		t.Fatalf("err = %v, want ErrEmptyQuestionPool", err)
	}
}

func TestBuildQuestionSet_SampleSize(t *testing.T) {
	pool := testPool(20)

	set, err := BuildQuestionSet(pool, 10, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(set) != 10 {
		t.Errorf("len(set) = %d, want 10", len(set))
	}

	// No duplicates: sampling is without replacement.
	seen := make(map[string]bool)
	for _, q := range set {
		if seen[q.ID] {
			t.Errorf("question %s sampled twice", q.ID)
		}
		seen[q.ID] = true
	}
}

func TestBuildQuestionSet_TargetExceedsPool(t *testing.T) {
	pool := testPool(4)
	set, err := BuildQuestionSet(pool, 10, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(set) != 4 {
		t.Errorf("len(set) = %d, want 4 (min of target and pool)", len(set))
	}
}

func TestBuildQuestionSet_FullListWhenSizeZero(t *testing.T) {
	pool := testPool(7)
	set, err := BuildQuestionSet(pool, 0, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(set) != 7 {
		t.Errorf("len(set) = %d, want full pool of 7", len(set))
	}
}

func TestBuildQuestionSet_DoesNotMutatePool(t *testing.T) {
	pool := testPool(5)
	firstID := pool[0].ID
	firstOpt := pool[0].Options[0].ID

	_, err := BuildQuestionSet(pool, 5, rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if pool[0].ID != firstID || pool[0].Options[0].ID != firstOpt {
		t.Error("builder mutated the input pool")
	}
}

func TestBuildQuestionSet_OptionOrderShuffledPerQuestion(t *testing.T) {
	pool := testPool(10)

	set, err := BuildQuestionSet(pool, 10, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	// With 10 questions of 4 options each, at least one question must come
	// out with a non-storage option order.
	shuffled := false
	for _, q := range set {
		if q.Options[0].ID != "o1" || q.Options[1].ID != "o2" {
			shuffled = true
			break
		}
	}
	if !shuffled {
		t.Error("no question had a shuffled option order")
	}

	// Membership per question is intact regardless of order.
	for _, q := range set {
		if len(q.Options) != 4 {
			t.Fatalf("question %s has %d options, want 4", q.ID, len(q.Options))
		}
	}
}

func TestBuildQuestionSet_DifferentSeedsDifferentArrangement(t *testing.T) {
	pool := testPool(20)

	a, _ := BuildQuestionSet(pool, 10, rand.New(rand.NewSource(1)))
	b, _ := BuildQuestionSet(pool, 10, rand.New(rand.NewSource(2)))

	same := true
	for i := range a {
		if a[i].ID != b[i].ID {
			same = false
			break
		}
	}
	if same {
		t.Error("two independent builds produced identical question order")
	}
}
