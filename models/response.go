package models

import "time"

type Response struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	AttemptID        uint      `json:"attempt_id" gorm:"not null;uniqueIndex:idx_response_attempt_question"`
	QuestionID       uint      `json:"question_id" gorm:"not null;uniqueIndex:idx_response_attempt_question"`
	SelectedAnswerID *uint     `json:"selected_answer_id"`
	TextAnswer       string    `json:"text_answer"`
	IsCorrect        *bool     `json:"is_correct"` // nil while ungraded
	AnsweredAt       time.Time `json:"answered_at" gorm:"not null"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (r *Response) Graded() bool {
	return r.IsCorrect != nil
}
