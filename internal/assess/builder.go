package assess

import (
	"math/rand"
)

// AcademicSampleSize is the question count drawn for academic assessments.
// Technical assessments use their full fixed list.
const AcademicSampleSize = 10

// BuildQuestionSet produces the session-scoped question set: a sample of
// size min(size, len(pool)) drawn without replacement in shuffled order,
// with each question's option order independently shuffled. size <= 0 means
// the full pool.
//
// The builder is pure: the pool and its option slices are never mutated.
// The randomization source is injected so tests can pin the arrangement;
// production passes an unseeded-equivalent source, so re-invocation on a
// retry intentionally yields a different arrangement.
func BuildQuestionSet(pool []Question, size int, rng *rand.Rand) ([]Question, error) {
	if len(pool) == 0 {
		return nil, ErrEmptyQuestionPool
	}
	if size <= 0 || size > len(pool) {
		size = len(pool)
	}

	order := rng.Perm(len(pool))
	set := make([]Question, 0, size)
	for _, idx := range order[:size] {
		q := pool[idx]
		opts := make([]Option, len(q.Options))
		copy(opts, q.Options)
		rng.Shuffle(len(opts), func(i, j int) {
			opts[i], opts[j] = opts[j], opts[i]
		})
		q.Options = opts
		set = append(set, q)
	}
	return set, nil
}

// SampleSizeFor resolves the effective sample size for a definition:
// an explicit SampleSize wins, academic defaults to AcademicSampleSize,
// technical defaults to the full list.
func SampleSizeFor(def *TestDefinition) int {
	if def.SampleSize > 0 {
		return def.SampleSize
	}
	if def.Variant == VariantAcademic {
		return AcademicSampleSize
	}
	return 0
}
