package services

import (
	"quizrave/models"
)

// ScoringEngine decides correctness of single responses and totals an
// attempt. It never reads the store; callers hand it the records.
type ScoringEngine struct{}

// Correctness is the value frozen onto a response when it is written. Choice
// questions copy the selected answer's flag; short answers stay nil until
// someone grades them.
func (ScoringEngine) Correctness(sub *ValidSubmission) *bool {
	if sub.Answer == nil || !sub.Question.Type.Choice() {
		return nil
	}
	correct := sub.Answer.IsCorrect
	return &correct
}

// Aggregate sums the points of every question into total and the points of
// questions whose response is marked correct into score. Unanswered and
// ungraded questions earn nothing.
func (ScoringEngine) Aggregate(questions []models.Question, responses []models.Response) (score, total int) {
	byQuestion := make(map[uint]*models.Response, len(responses))
	for i := range responses {
		byQuestion[responses[i].QuestionID] = &responses[i]
	}
	for _, q := range questions {
		total += q.Points
		r, ok := byQuestion[q.ID]
		if ok && r.IsCorrect != nil && *r.IsCorrect {
			score += q.Points
		}
	}
	return score, total
}

// Result is the outcome of a completed attempt.
type Result struct {
	Score       int     `json:"score"`
	TotalPoints int     `json:"total_points"`
	Percentage  float64 `json:"percentage"`
}

func NewResult(score, total int) Result {
	return Result{
		Score:       score,
		TotalPoints: total,
		Percentage:  models.Percentage(score, total),
	}
}
