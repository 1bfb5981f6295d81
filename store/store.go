// Package store persists quizzes, attempts and responses. It holds no
// scoring or lifecycle rules; callers decide what a valid transition is.
package store

import (
	"context"
	"time"

	"quizrave/models"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned (wrapped) when a looked-up record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned (wrapped) when a write loses against a
	// uniqueness constraint or a conditional update guard.
	ErrConflict = errors.New("record conflict")
)

type Store interface {
	// Transaction runs fn against a Store bound to a single database
	// transaction. Returning an error rolls it back.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	CreateQuiz(ctx context.Context, quiz *models.Quiz) error
	GetQuiz(ctx context.Context, id uint) (*models.Quiz, error)
	GetQuizWithQuestions(ctx context.Context, id uint) (*models.Quiz, error)
	ListActiveQuizzes(ctx context.Context) ([]models.Quiz, error)

	GetQuestion(ctx context.Context, id uint) (*models.Question, error)
	ListQuestions(ctx context.Context, quizID uint) ([]models.Question, error)
	GetAnswer(ctx context.Context, id uint) (*models.Answer, error)

	// GetOpenAttempt returns nil, nil when the user has no open attempt.
	GetOpenAttempt(ctx context.Context, userID, quizID uint) (*models.Attempt, error)
	CountCompletedAttempts(ctx context.Context, userID, quizID uint) (int64, error)
	CreateAttempt(ctx context.Context, userID, quizID uint, startedAt time.Time) (*models.Attempt, error)
	GetAttempt(ctx context.Context, id uint) (*models.Attempt, error)
	// LockAttempt reads the attempt and holds a row lock until the
	// surrounding transaction ends where the database supports it.
	LockAttempt(ctx context.Context, id uint) (*models.Attempt, error)
	ListAttempts(ctx context.Context, userID uint) ([]models.Attempt, error)
	// UpdateAttemptCompletion only succeeds on an open attempt; a completed
	// one yields ErrConflict.
	UpdateAttemptCompletion(ctx context.Context, attemptID uint, score, totalPoints int, completedAt time.Time) (*models.Attempt, error)

	GetResponse(ctx context.Context, attemptID, questionID uint) (*models.Response, error)
	ListResponses(ctx context.Context, attemptID uint) ([]models.Response, error)
	// UpsertResponse inserts or overwrites the response keyed by
	// (AttemptID, QuestionID).
	UpsertResponse(ctx context.Context, r *models.Response) (*models.Response, error)
	SetResponseCorrectness(ctx context.Context, attemptID, questionID uint, correct bool) (*models.Response, error)
}
