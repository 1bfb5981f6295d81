package store

import (
	"context"
	"time"

	"quizrave/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the tables and indexes for every model.
func Migrate(db *gorm.DB) error {
	return errors.Wrap(db.AutoMigrate(models.All()...), "auto-migrate")
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) CreateQuiz(ctx context.Context, quiz *models.Quiz) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(quiz).Error; err != nil {
			return err
		}
		for i := range quiz.Questions {
			question := &quiz.Questions[i]
			question.QuizID = quiz.ID
			if err := tx.Omit(clause.Associations).Create(question).Error; err != nil {
				return err
			}
			for j := range question.Answers {
				answer := &question.Answers[j]
				answer.QuestionID = question.ID
				if err := tx.Create(answer).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	return translate(err, "create quiz")
}

func (s *GormStore) GetQuiz(ctx context.Context, id uint) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := s.db.WithContext(ctx).First(&quiz, id).Error; err != nil {
		return nil, translate(err, "get quiz %d", id)
	}
	return &quiz, nil
}

func (s *GormStore) GetQuizWithQuestions(ctx context.Context, id uint) (*models.Quiz, error) {
	var quiz models.Quiz
	err := s.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order")
		}).
		Preload("Questions.Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order")
		}).
		First(&quiz, id).Error
	if err != nil {
		return nil, translate(err, "get quiz %d", id)
	}
	return &quiz, nil
}

func (s *GormStore) ListActiveQuizzes(ctx context.Context) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	err := s.db.WithContext(ctx).
		Preload("Questions").
		Where("is_active = ?", true).
		Order("created_at DESC").
		Order("id DESC").
		Find(&quizzes).Error
	return quizzes, translate(err, "list active quizzes")
}

func (s *GormStore) GetQuestion(ctx context.Context, id uint) (*models.Question, error) {
	var question models.Question
	if err := s.db.WithContext(ctx).First(&question, id).Error; err != nil {
		return nil, translate(err, "get question %d", id)
	}
	return &question, nil
}

func (s *GormStore) ListQuestions(ctx context.Context, quizID uint) ([]models.Question, error) {
	var questions []models.Question
	err := s.db.WithContext(ctx).
		Where("quiz_id = ?", quizID).
		Order("sort_order").
		Find(&questions).Error
	return questions, translate(err, "list questions of quiz %d", quizID)
}

func (s *GormStore) GetAnswer(ctx context.Context, id uint) (*models.Answer, error) {
	var answer models.Answer
	if err := s.db.WithContext(ctx).First(&answer, id).Error; err != nil {
		return nil, translate(err, "get answer %d", id)
	}
	return &answer, nil
}

func (s *GormStore) GetOpenAttempt(ctx context.Context, userID, quizID uint) (*models.Attempt, error) {
	var attempts []models.Attempt
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND quiz_id = ? AND completed_at IS NULL", userID, quizID).
		Limit(1).
		Find(&attempts).Error
	if err != nil {
		return nil, translate(err, "get open attempt user=%d quiz=%d", userID, quizID)
	}
	if len(attempts) == 0 {
		return nil, nil
	}
	return &attempts[0], nil
}

func (s *GormStore) CountCompletedAttempts(ctx context.Context, userID, quizID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("user_id = ? AND quiz_id = ? AND completed_at IS NOT NULL", userID, quizID).
		Count(&count).Error
	return count, translate(err, "count completed attempts user=%d quiz=%d", userID, quizID)
}

func (s *GormStore) CreateAttempt(ctx context.Context, userID, quizID uint, startedAt time.Time) (*models.Attempt, error) {
	attempt := models.Attempt{
		UserID:    userID,
		QuizID:    quizID,
		StartedAt: startedAt,
	}
	if err := s.db.WithContext(ctx).Create(&attempt).Error; err != nil {
		return nil, translate(err, "create attempt user=%d quiz=%d", userID, quizID)
	}
	return &attempt, nil
}

func (s *GormStore) GetAttempt(ctx context.Context, id uint) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := s.db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, translate(err, "get attempt %d", id)
	}
	return &attempt, nil
}

func (s *GormStore) LockAttempt(ctx context.Context, id uint) (*models.Attempt, error) {
	q := s.db.WithContext(ctx)
	// sqlite has no row locks; its single writer already serializes the
	// transaction.
	if s.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var attempt models.Attempt
	if err := q.First(&attempt, id).Error; err != nil {
		return nil, translate(err, "lock attempt %d", id)
	}
	return &attempt, nil
}

func (s *GormStore) ListAttempts(ctx context.Context, userID uint) ([]models.Attempt, error) {
	var attempts []models.Attempt
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at DESC").
		Order("id DESC").
		Find(&attempts).Error
	return attempts, translate(err, "list attempts of user %d", userID)
}

func (s *GormStore) UpdateAttemptCompletion(ctx context.Context, attemptID uint, score, totalPoints int, completedAt time.Time) (*models.Attempt, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("id = ? AND completed_at IS NULL", attemptID).
		Updates(map[string]interface{}{
			"completed_at": completedAt,
			"score":        score,
			"total_points": totalPoints,
		})
	if res.Error != nil {
		return nil, translate(res.Error, "complete attempt %d", attemptID)
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetAttempt(ctx, attemptID); err != nil {
			return nil, err
		}
		return nil, errors.Wrapf(ErrConflict, "attempt %d already completed", attemptID)
	}
	return s.GetAttempt(ctx, attemptID)
}

func (s *GormStore) GetResponse(ctx context.Context, attemptID, questionID uint) (*models.Response, error) {
	var response models.Response
	err := s.db.WithContext(ctx).
		Where("attempt_id = ? AND question_id = ?", attemptID, questionID).
		First(&response).Error
	if err != nil {
		return nil, translate(err, "get response attempt=%d question=%d", attemptID, questionID)
	}
	return &response, nil
}

func (s *GormStore) ListResponses(ctx context.Context, attemptID uint) ([]models.Response, error) {
	var responses []models.Response
	err := s.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("question_id").
		Find(&responses).Error
	return responses, translate(err, "list responses of attempt %d", attemptID)
}

func (s *GormStore) UpsertResponse(ctx context.Context, r *models.Response) (*models.Response, error) {
	row := models.Response{
		AttemptID:        r.AttemptID,
		QuestionID:       r.QuestionID,
		SelectedAnswerID: r.SelectedAnswerID,
		TextAnswer:       r.TextAnswer,
		IsCorrect:        r.IsCorrect,
		AnsweredAt:       r.AnsweredAt,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"selected_answer_id",
				"text_answer",
				"is_correct",
				"answered_at",
				"updated_at",
			}),
		}).
		Create(&row).Error
	if err != nil {
		return nil, translate(err, "upsert response attempt=%d question=%d", r.AttemptID, r.QuestionID)
	}
	return s.GetResponse(ctx, r.AttemptID, r.QuestionID)
}

func (s *GormStore) SetResponseCorrectness(ctx context.Context, attemptID, questionID uint, correct bool) (*models.Response, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Response{}).
		Where("attempt_id = ? AND question_id = ?", attemptID, questionID).
		Update("is_correct", correct)
	if res.Error != nil {
		return nil, translate(res.Error, "grade response attempt=%d question=%d", attemptID, questionID)
	}
	if res.RowsAffected == 0 {
		return nil, errors.Wrapf(ErrNotFound, "response attempt=%d question=%d", attemptID, questionID)
	}
	return s.GetResponse(ctx, attemptID, questionID)
}

// translate maps gorm sentinel errors onto the store's own and attaches
// context to everything else.
func translate(err error, format string, args ...interface{}) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errors.Wrapf(ErrNotFound, format, args...)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errors.Wrapf(ErrConflict, format, args...)
	default:
		return errors.Wrapf(err, format, args...)
	}
}
