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

// Notifier receives attempt events after they are committed.
type Notifier interface {
	Publish(attemptID uint, eventType string, payload interface{})
}

type nopNotifier struct{}

func (nopNotifier) Publish(uint, string, interface{}) {}

const (
	EventResponseRecorded = "response_recorded"
	EventResponseGraded   = "response_graded"
	EventAttemptCompleted = "attempt_completed"
)

// AttemptService owns the attempt lifecycle: start, record responses,
// complete. An attempt is in progress until it is completed and never
// changes afterwards.
type AttemptService struct {
	store     store.Store
	validator *AnswerValidator
	scoring   ScoringEngine
	locker    Locker
	notifier  Notifier
	log       *logger.Logger
	now       func() time.Time
	lockWait  time.Duration
}

type AttemptOption func(*AttemptService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) AttemptOption {
	return func(s *AttemptService) { s.now = now }
}

func WithLocker(l Locker) AttemptOption {
	return func(s *AttemptService) { s.locker = l }
}

// WithLockWait bounds how long Start waits for the per-user quiz lock.
func WithLockWait(d time.Duration) AttemptOption {
	return func(s *AttemptService) { s.lockWait = d }
}

func NewAttemptService(s store.Store, log *logger.Logger, opts ...AttemptOption) *AttemptService {
	svc := &AttemptService{
		store:     s,
		validator: NewAnswerValidator(s),
		locker:    NewLocalLocker(),
		notifier:  nopNotifier{},
		log:       log.With("service", "attempts"),
		now:       time.Now,
		lockWait:  5 * time.Second,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// UseNotifier wires the event sink once it exists; the hub needs the
// service first.
func (s *AttemptService) UseNotifier(n Notifier) {
	if n == nil {
		n = nopNotifier{}
	}
	s.notifier = n
}

type StartResult struct {
	Attempt  *models.Attempt `json:"attempt"`
	Quiz     QuizView        `json:"quiz"`
	Deadline *time.Time      `json:"deadline,omitempty"`
}

// Start opens a new attempt for userID on quizID.
func (s *AttemptService) Start(ctx context.Context, userID, quizID uint) (*StartResult, error) {
	quiz, err := s.store.GetQuizWithQuestions(ctx, quizID)
	if err != nil {
		return nil, notFoundAs(err, ErrQuizNotFound)
	}
	if !quiz.IsActive {
		return nil, ErrQuizInactive
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()
	unlock, err := s.locker.Lock(lockCtx, fmt.Sprintf("attempt:%d:%d", userID, quizID))
	if err != nil {
		return nil, errors.Wrap(err, "start attempt")
	}
	defer unlock()

	var attempt *models.Attempt
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		open, err := tx.GetOpenAttempt(ctx, userID, quizID)
		if err != nil {
			return err
		}
		if open != nil {
			return ErrAttemptAlreadyOpen
		}
		completed, err := tx.CountCompletedAttempts(ctx, userID, quizID)
		if err != nil {
			return err
		}
		if completed >= int64(quiz.MaxAttempts) {
			return ErrAttemptLimitExceeded
		}
		attempt, err = tx.CreateAttempt(ctx, userID, quizID, s.now())
		if errors.Is(err, store.ErrConflict) {
			return ErrAttemptAlreadyOpen
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("attempt started", "attempt_id", attempt.ID, "quiz_id", quizID, "user_id", userID)
	return &StartResult{
		Attempt:  attempt,
		Quiz:     NewQuizView(quiz),
		Deadline: deadline(quiz, attempt),
	}, nil
}

// RecordResponse validates sub and stores it as the attempt's response to
// sub.QuestionID, replacing any earlier one.
func (s *AttemptService) RecordResponse(ctx context.Context, attemptID, userID uint, sub Submission) (*models.Response, error) {
	attempt, err := s.ownedAttempt(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}
	if attempt.Completed() {
		return nil, ErrAttemptAlreadyCompleted
	}
	quiz, err := s.store.GetQuiz(ctx, attempt.QuizID)
	if err != nil {
		return nil, notFoundAs(err, ErrQuizNotFound)
	}
	now := s.now()
	if limit, ok := quiz.TimeLimitDuration(); ok && now.Sub(attempt.StartedAt) > limit {
		return nil, ErrTimeLimitExceeded
	}

	valid, err := s.validator.Validate(ctx, attempt.QuizID, sub)
	if err != nil {
		return nil, err
	}
	row := &models.Response{
		AttemptID:  attempt.ID,
		QuestionID: valid.Question.ID,
		IsCorrect:  s.scoring.Correctness(valid),
		AnsweredAt: now,
	}
	if valid.Answer != nil {
		answerID := valid.Answer.ID
		row.SelectedAnswerID = &answerID
	} else {
		row.TextAnswer = valid.Text
	}

	var saved *models.Response
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		locked, err := tx.LockAttempt(ctx, attempt.ID)
		if err != nil {
			return notFoundAs(err, ErrAttemptNotFound)
		}
		if locked.Completed() {
			return ErrAttemptAlreadyCompleted
		}
		saved, err = tx.UpsertResponse(ctx, row)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("response recorded", "attempt_id", attempt.ID, "question_id", saved.QuestionID)
	s.notifier.Publish(attempt.ID, EventResponseRecorded, map[string]interface{}{
		"question_id": saved.QuestionID,
		"answered_at": saved.AnsweredAt,
	})
	return saved, nil
}

type CompletionResult struct {
	Attempt *models.Attempt `json:"attempt"`
	Result
	CompletedAt time.Time `json:"completed_at"`
}

// Complete scores the attempt and closes it. Only one caller can complete
// a given attempt; everyone else gets ErrAttemptAlreadyCompleted.
func (s *AttemptService) Complete(ctx context.Context, attemptID, userID uint) (*CompletionResult, error) {
	attempt, err := s.ownedAttempt(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}
	if attempt.Completed() {
		return nil, ErrAttemptAlreadyCompleted
	}

	var (
		done         *models.Attempt
		score, total int
	)
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		locked, err := tx.LockAttempt(ctx, attempt.ID)
		if err != nil {
			return notFoundAs(err, ErrAttemptNotFound)
		}
		if locked.Completed() {
			return ErrAttemptAlreadyCompleted
		}
		questions, err := tx.ListQuestions(ctx, locked.QuizID)
		if err != nil {
			return err
		}
		responses, err := tx.ListResponses(ctx, locked.ID)
		if err != nil {
			return err
		}
		score, total = s.scoring.Aggregate(questions, responses)
		done, err = tx.UpdateAttemptCompletion(ctx, locked.ID, score, total, s.now())
		if errors.Is(err, store.ErrConflict) {
			return ErrAttemptAlreadyCompleted
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	result := &CompletionResult{
		Attempt:     done,
		Result:      NewResult(score, total),
		CompletedAt: *done.CompletedAt,
	}
	s.log.Info("attempt completed",
		"attempt_id", done.ID,
		"quiz_id", done.QuizID,
		"score", score,
		"total_points", total,
	)
	s.notifier.Publish(done.ID, EventAttemptCompleted, result.Result)
	return result, nil
}

// GradeResponse records an external verdict on a short answer response.
// Only the quiz creator may grade, and only while the attempt is open.
func (s *AttemptService) GradeResponse(ctx context.Context, attemptID, questionID, graderID uint, correct bool) (*models.Response, error) {
	attempt, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, notFoundAs(err, ErrAttemptNotFound)
	}
	quiz, err := s.store.GetQuiz(ctx, attempt.QuizID)
	if err != nil {
		return nil, notFoundAs(err, ErrQuizNotFound)
	}
	if quiz.CreatorID != graderID {
		return nil, ErrNotQuizCreator
	}
	if attempt.Completed() {
		return nil, ErrAttemptAlreadyCompleted
	}
	question, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, notFoundAs(err, ErrQuestionNotFound)
	}
	if question.QuizID != quiz.ID {
		return nil, ErrQuestionNotInQuiz
	}
	if question.Type != models.QuestionShortAnswer {
		return nil, ErrNotGradable
	}

	var graded *models.Response
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		locked, err := tx.LockAttempt(ctx, attempt.ID)
		if err != nil {
			return notFoundAs(err, ErrAttemptNotFound)
		}
		if locked.Completed() {
			return ErrAttemptAlreadyCompleted
		}
		graded, err = tx.SetResponseCorrectness(ctx, attempt.ID, questionID, correct)
		return notFoundAs(err, ErrResponseNotFound)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("response graded", "attempt_id", attempt.ID, "question_id", questionID, "correct", correct)
	s.notifier.Publish(attempt.ID, EventResponseGraded, map[string]interface{}{
		"question_id": questionID,
	})
	return graded, nil
}

// AttemptView is an attempt as shown to its owner, with the percentage
// derived from the stored score.
type AttemptView struct {
	*models.Attempt
	Status     models.AttemptState `json:"status"`
	Percentage float64             `json:"percentage"`
}

func NewAttemptView(a *models.Attempt) AttemptView {
	return AttemptView{Attempt: a, Status: a.State(), Percentage: a.Percentage()}
}

func (s *AttemptService) GetAttempt(ctx context.Context, attemptID, userID uint) (*AttemptView, error) {
	attempt, err := s.ownedAttempt(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}
	responses, err := s.store.ListResponses(ctx, attempt.ID)
	if err != nil {
		return nil, err
	}
	attempt.Responses = responses
	view := NewAttemptView(attempt)
	return &view, nil
}

func (s *AttemptService) ListAttempts(ctx context.Context, userID uint) ([]AttemptView, error) {
	attempts, err := s.store.ListAttempts(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]AttemptView, len(attempts))
	for i := range attempts {
		views[i] = NewAttemptView(&attempts[i])
	}
	return views, nil
}

// AttemptState is the snapshot pushed to live clients.
type AttemptState struct {
	AttemptID      uint                `json:"attempt_id"`
	QuizID         uint                `json:"quiz_id"`
	UserID         uint                `json:"-"`
	Status         models.AttemptState `json:"status"`
	StartedAt      time.Time           `json:"started_at"`
	Deadline       *time.Time          `json:"deadline,omitempty"`
	TimeLeft       *int                `json:"time_left,omitempty"` // seconds
	Answered       int                 `json:"answered"`
	TotalQuestions int                 `json:"total_questions"`
	Result         *Result             `json:"result,omitempty"`
}

func (s *AttemptService) AttemptState(ctx context.Context, attemptID, userID uint) (*AttemptState, error) {
	attempt, err := s.ownedAttempt(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}
	quiz, err := s.store.GetQuiz(ctx, attempt.QuizID)
	if err != nil {
		return nil, notFoundAs(err, ErrQuizNotFound)
	}
	questions, err := s.store.ListQuestions(ctx, attempt.QuizID)
	if err != nil {
		return nil, err
	}
	responses, err := s.store.ListResponses(ctx, attempt.ID)
	if err != nil {
		return nil, err
	}

	state := &AttemptState{
		AttemptID:      attempt.ID,
		QuizID:         attempt.QuizID,
		UserID:         attempt.UserID,
		Status:         attempt.State(),
		StartedAt:      attempt.StartedAt,
		Answered:       len(responses),
		TotalQuestions: len(questions),
	}
	if attempt.Completed() {
		result := NewResult(*attempt.Score, *attempt.TotalPoints)
		state.Result = &result
		return state, nil
	}
	if d := deadline(quiz, attempt); d != nil {
		state.Deadline = d
		left := secondsLeft(*d, s.now())
		state.TimeLeft = &left
	}
	return state, nil
}

func (s *AttemptService) ownedAttempt(ctx context.Context, attemptID, userID uint) (*models.Attempt, error) {
	attempt, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, notFoundAs(err, ErrAttemptNotFound)
	}
	if attempt.UserID != userID {
		return nil, ErrAttemptNotOwned
	}
	return attempt, nil
}

func deadline(quiz *models.Quiz, attempt *models.Attempt) *time.Time {
	limit, ok := quiz.TimeLimitDuration()
	if !ok {
		return nil
	}
	d := attempt.StartedAt.Add(limit)
	return &d
}

func secondsLeft(deadline, now time.Time) int {
	left := int(deadline.Sub(now) / time.Second)
	if left < 0 {
		return 0
	}
	return left
}

// notFoundAs replaces a store not-found error with the given domain error
// and passes everything else through.
func notFoundAs(err error, domain *Error) error {
	if err != nil && errors.Is(err, store.ErrNotFound) {
		return domain
	}
	return err
}
