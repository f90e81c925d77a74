package assess

import (
	"math"
)

// ScoreSession grades an answer map against the session's frozen question
// set under the definition's scoring mode. Unanswered questions count as
// incorrect (or as the minimum rating for rated scales), so a forced or
// partial submission is scored against the full set.
func ScoreSession(def *TestDefinition, questions []Question, answers map[string]string) Result {
	total := len(questions)
	correct := 0
	for i := range questions {
		if questions[i].IsCorrect(answers[questions[i].ID]) {
			correct++
		}
	}
	pct := percentage(correct, total)

	res := Result{
		Mode:    def.ScoringMode,
		Correct: correct,
		Total:   total,
	}

	switch def.ScoringMode {
	case ScoreScale1to9:
		if def.Rated {
			res.Score = clampScale(2*averageRating(questions, answers) - 1)
		} else {
			res.Score = clampScale(math.Round(1 + 8*pct/100))
		}
	case ScoreTiered:
		res.Score = math.Round(pct)
		res.Label = TierFor(pct)
	default:
		res.Score = math.Round(pct)
	}
	return res
}

// TierFor buckets a correctness percentage into its tier label.
func TierFor(pct float64) Tier {
	switch {
	case pct >= 80:
		return TierExcellent
	case pct >= 60:
		return TierMedium
	default:
		return TierPoor
	}
}

func percentage(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(correct) / float64(total)
}

// averageRating averages the 1-5 rating points of the selected options.
// Unanswered questions contribute the minimum rating of 1.
func averageRating(questions []Question, answers map[string]string) float64 {
	if len(questions) == 0 {
		return 1
	}
	sum := 0.0
	for i := range questions {
		points := 1
		if o := questions[i].Option(answers[questions[i].ID]); o != nil && o.Points > 0 {
			points = o.Points
		}
		sum += float64(points)
	}
	return sum / float64(len(questions))
}

func clampScale(v float64) float64 {
	if v < 1 {
		return 1
	}
	if v > 9 {
		return 9
	}
	return math.Round(v)
}
