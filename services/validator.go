package services

import (
	"context"
	"strings"

	"quizrave/models"
	"quizrave/store"

	"github.com/pkg/errors"
)

// Submission is what a quiz taker sends for one question. Which field is
// read depends on the question type.
type Submission struct {
	QuestionID uint
	AnswerID   *uint
	TextAnswer string
}

// ValidSubmission is a Submission that passed validation, carrying the
// records it refers to. Answer is nil for short answer questions; Text is
// empty for choice questions.
type ValidSubmission struct {
	Question *models.Question
	Answer   *models.Answer
	Text     string
}

type AnswerValidator struct {
	store store.Store
}

func NewAnswerValidator(s store.Store) *AnswerValidator {
	return &AnswerValidator{store: s}
}

// Validate checks sub against the question it targets, which must belong to
// quizID.
func (v *AnswerValidator) Validate(ctx context.Context, quizID uint, sub Submission) (*ValidSubmission, error) {
	question, err := v.store.GetQuestion(ctx, sub.QuestionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, err
	}
	if question.QuizID != quizID {
		return nil, ErrQuestionNotInQuiz
	}

	switch {
	case question.Type.Choice():
		return v.validateChoice(ctx, question, sub)
	case question.Type == models.QuestionShortAnswer:
		text := strings.TrimSpace(sub.TextAnswer)
		if text == "" {
			return nil, ErrTextAnswerRequired
		}
		return &ValidSubmission{Question: question, Text: text}, nil
	default:
		return nil, ErrUnsupportedQuestionType
	}
}

func (v *AnswerValidator) validateChoice(ctx context.Context, question *models.Question, sub Submission) (*ValidSubmission, error) {
	if sub.AnswerID == nil || *sub.AnswerID == 0 {
		return nil, ErrAnswerRequired
	}
	answer, err := v.store.GetAnswer(ctx, *sub.AnswerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAnswerNotFound
		}
		return nil, err
	}
	if answer.QuestionID != question.ID {
		return nil, ErrAnswerQuestionMismatch
	}
	return &ValidSubmission{Question: question, Answer: answer}, nil
}
