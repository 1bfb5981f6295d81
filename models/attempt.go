package models

import (
	"math"
	"time"
)

type AttemptState string

const (
	AttemptInProgress AttemptState = "in_progress"
	AttemptCompleted  AttemptState = "completed"
)

// Attempt is one user's run through a quiz. At most one attempt per
// (user, quiz) may be open; the partial unique index enforces it.
type Attempt struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	UserID      uint       `json:"user_id" gorm:"not null;index;uniqueIndex:idx_attempt_open,where:completed_at IS NULL"`
	QuizID      uint       `json:"quiz_id" gorm:"not null;index;uniqueIndex:idx_attempt_open,where:completed_at IS NULL"`
	StartedAt   time.Time  `json:"started_at" gorm:"not null"`
	CompletedAt *time.Time `json:"completed_at"`
	Score       *int       `json:"score"`
	TotalPoints *int       `json:"total_points"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Relationships
	Responses []Response `json:"responses,omitempty" gorm:"foreignKey:AttemptID"`
}

func (a *Attempt) State() AttemptState {
	if a.CompletedAt != nil {
		return AttemptCompleted
	}
	return AttemptInProgress
}

func (a *Attempt) Completed() bool {
	return a.CompletedAt != nil
}

// Percentage is derived from Score and TotalPoints on every call and rounded
// to two decimals. It is zero for open attempts and empty quizzes.
func (a *Attempt) Percentage() float64 {
	if a.Score == nil || a.TotalPoints == nil {
		return 0
	}
	return Percentage(*a.Score, *a.TotalPoints)
}

func Percentage(score, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(score)/float64(total)*100*100) / 100
}
