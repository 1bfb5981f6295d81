package models

import (
	"time"

	"gorm.io/gorm"
)

type Quiz struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Title       string         `json:"title" gorm:"not null"`
	Description string         `json:"description"`
	CreatorID   uint           `json:"creator_id" gorm:"not null;index"`
	IsActive    bool           `json:"is_active" gorm:"not null"`
	TimeLimit   *int           `json:"time_limit"` // minutes, nil means untimed
	MaxAttempts int            `json:"max_attempts" gorm:"not null"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:QuizID"`
	Attempts  []Attempt  `json:"-" gorm:"foreignKey:QuizID"`
}

// TimeLimitDuration reports the quiz time limit and whether one is set.
func (q *Quiz) TimeLimitDuration() (time.Duration, bool) {
	if q.TimeLimit == nil {
		return 0, false
	}
	return time.Duration(*q.TimeLimit) * time.Minute, true
}
