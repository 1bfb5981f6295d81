package services

import (
	"context"
	"fmt"
	"time"

	"quizrave/logger"
	"quizrave/models"
	"quizrave/store"

	"github.com/pkg/errors"
)

type QuizService struct {
	store store.Store
	log   *logger.Logger
}

func NewQuizService(s store.Store, log *logger.Logger) *QuizService {
	return &QuizService{store: s, log: log.With("service", "quizzes")}
}

type CreateQuizRequest struct {
	Title       string                  `json:"title" binding:"required"`
	Description string                  `json:"description"`
	TimeLimit   *int                    `json:"time_limit" binding:"omitempty,min=1"`
	MaxAttempts *int                    `json:"max_attempts" binding:"omitempty,min=1"`
	IsActive    *bool                   `json:"is_active"`
	Questions   []CreateQuestionRequest `json:"questions" binding:"dive"`
}

type CreateQuestionRequest struct {
	Text    string                `json:"text" binding:"required"`
	Type    models.QuestionType   `json:"type" binding:"required"`
	Points  *int                  `json:"points" binding:"omitempty,min=0"`
	Order   int                   `json:"order" binding:"required,min=1"`
	Answers []CreateAnswerRequest `json:"answers" binding:"dive"`
}

type CreateAnswerRequest struct {
	Text      string `json:"text" binding:"required"`
	IsCorrect bool   `json:"is_correct"`
	Order     int    `json:"order"`
}

// CreateQuiz stores a quiz with its questions and answers in one go. The
// full record, correctness flags included, goes back to the creator.
func (s *QuizService) CreateQuiz(ctx context.Context, creatorID uint, req *CreateQuizRequest) (*models.Quiz, error) {
	quiz := models.Quiz{
		Title:       req.Title,
		Description: req.Description,
		CreatorID:   creatorID,
		IsActive:    true,
		TimeLimit:   req.TimeLimit,
		MaxAttempts: 1,
	}
	if req.IsActive != nil {
		quiz.IsActive = *req.IsActive
	}
	if req.MaxAttempts != nil {
		quiz.MaxAttempts = *req.MaxAttempts
	}
	if quiz.MaxAttempts < 1 {
		return nil, Invalid("max_attempts must be at least 1")
	}
	if quiz.TimeLimit != nil && *quiz.TimeLimit < 1 {
		return nil, Invalid("time limit must be at least 1 minute")
	}

	seenOrder := make(map[int]bool, len(req.Questions))
	for i, qReq := range req.Questions {
		if seenOrder[qReq.Order] {
			return nil, Invalid(fmt.Sprintf("question order %d is used twice", qReq.Order))
		}
		seenOrder[qReq.Order] = true

		question, err := buildQuestion(qReq)
		if err != nil {
			return nil, errors.Wrapf(err, "question %d", i+1)
		}
		quiz.Questions = append(quiz.Questions, question)
	}

	if err := s.store.CreateQuiz(ctx, &quiz); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, Invalid("question order must be unique within a quiz")
		}
		return nil, err
	}
	s.log.Info("quiz created", "quiz_id", quiz.ID, "creator_id", creatorID, "questions", len(quiz.Questions))
	return &quiz, nil
}

func buildQuestion(req CreateQuestionRequest) (models.Question, error) {
	question := models.Question{
		Text:   req.Text,
		Type:   req.Type,
		Points: 1,
		Order:  req.Order,
	}
	if req.Points != nil {
		question.Points = *req.Points
	}
	if question.Points < 0 {
		return question, Invalid("points cannot be negative")
	}

	switch {
	case req.Type.Choice():
		if len(req.Answers) < 2 {
			return question, Invalid("choice questions need at least 2 answers")
		}
		correctCount := 0
		for _, aReq := range req.Answers {
			if aReq.IsCorrect {
				correctCount++
			}
		}
		if correctCount != 1 {
			return question, Invalid("each question must have exactly one correct answer")
		}
	case req.Type == models.QuestionShortAnswer:
		if len(req.Answers) > 0 {
			return question, Invalid("short answer questions take no answer options")
		}
	default:
		return question, ErrUnsupportedQuestionType
	}

	for i, aReq := range req.Answers {
		order := aReq.Order
		if order == 0 {
			order = i + 1
		}
		question.Answers = append(question.Answers, models.Answer{
			Text:      aReq.Text,
			IsCorrect: aReq.IsCorrect,
			Order:     order,
		})
	}
	return question, nil
}

// GetQuiz returns the quiz as a taker sees it.
func (s *QuizService) GetQuiz(ctx context.Context, quizID uint) (*QuizView, error) {
	quiz, err := s.store.GetQuizWithQuestions(ctx, quizID)
	if err != nil {
		return nil, notFoundAs(err, ErrQuizNotFound)
	}
	view := NewQuizView(quiz)
	return &view, nil
}

func (s *QuizService) ListActiveQuizzes(ctx context.Context) ([]QuizSummary, error) {
	quizzes, err := s.store.ListActiveQuizzes(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]QuizSummary, len(quizzes))
	for i := range quizzes {
		summaries[i] = newQuizSummary(&quizzes[i])
	}
	return summaries, nil
}

type QuizSummary struct {
	ID             uint      `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	CreatorID      uint      `json:"creator_id"`
	TotalQuestions int       `json:"total_questions"`
	TotalPoints    int       `json:"total_points"`
	TimeLimit      *int      `json:"time_limit"`
	MaxAttempts    int       `json:"max_attempts"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

func newQuizSummary(q *models.Quiz) QuizSummary {
	total := 0
	for _, question := range q.Questions {
		total += question.Points
	}
	return QuizSummary{
		ID:             q.ID,
		Title:          q.Title,
		Description:    q.Description,
		CreatorID:      q.CreatorID,
		TotalQuestions: len(q.Questions),
		TotalPoints:    total,
		TimeLimit:      q.TimeLimit,
		MaxAttempts:    q.MaxAttempts,
		IsActive:       q.IsActive,
		CreatedAt:      q.CreatedAt,
	}
}

// QuizView is a quiz with its questions, without answer correctness.
type QuizView struct {
	QuizSummary
	Questions []QuestionView `json:"questions"`
}

type QuestionView struct {
	ID      uint                `json:"id"`
	Text    string              `json:"text"`
	Type    models.QuestionType `json:"type"`
	Points  int                 `json:"points"`
	Order   int                 `json:"order"`
	Answers []AnswerView        `json:"answers,omitempty"`
}

type AnswerView struct {
	ID    uint   `json:"id"`
	Text  string `json:"text"`
	Order int    `json:"order"`
}

func NewQuizView(q *models.Quiz) QuizView {
	view := QuizView{
		QuizSummary: newQuizSummary(q),
		Questions:   make([]QuestionView, 0, len(q.Questions)),
	}
	for _, question := range q.Questions {
		qv := QuestionView{
			ID:     question.ID,
			Text:   question.Text,
			Type:   question.Type,
			Points: question.Points,
			Order:  question.Order,
		}
		for _, answer := range question.Answers {
			qv.Answers = append(qv.Answers, AnswerView{ID: answer.ID, Text: answer.Text, Order: answer.Order})
		}
		view.Questions = append(view.Questions, qv)
	}
	return view
}
