package models

import (
	"time"

	"gorm.io/gorm"
)

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "MC"
	QuestionTrueFalse      QuestionType = "TF"
	QuestionShortAnswer    QuestionType = "SA"
)

// Choice reports whether answers to this type are picked from the
// question's Answer rows.
func (t QuestionType) Choice() bool {
	return t == QuestionMultipleChoice || t == QuestionTrueFalse
}

func (t QuestionType) Valid() bool {
	return t.Choice() || t == QuestionShortAnswer
}

type Question struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	QuizID    uint           `json:"quiz_id" gorm:"not null;uniqueIndex:idx_question_quiz_order,where:deleted_at IS NULL"`
	Text      string         `json:"text" gorm:"not null"`
	Type      QuestionType   `json:"type" gorm:"type:varchar(2);not null"`
	Points    int            `json:"points" gorm:"not null"`
	Order     int            `json:"order" gorm:"column:sort_order;not null;uniqueIndex:idx_question_quiz_order,where:deleted_at IS NULL"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Answers []Answer `json:"answers,omitempty" gorm:"foreignKey:QuestionID"`
}
