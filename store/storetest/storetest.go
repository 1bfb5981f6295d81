// Package storetest opens throwaway sqlite databases for tests.
package storetest

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"quizrave/models"
	"quizrave/store"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var dbSeq int64

// DB returns a migrated in-memory sqlite database private to the test.
// A single connection keeps every transaction serialized, which mirrors the
// row locks taken on postgres.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	name := fmt.Sprintf("file:quizrave_%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	db, err := gorm.Open(sqlite.Open(name), &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := store.Migrate(db); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return db
}

// Store wraps DB in a GormStore.
func Store(tb testing.TB) *store.GormStore {
	tb.Helper()
	return store.NewGormStore(DB(tb))
}

func IntPtr(v int) *int { return &v }

// SeedQuiz persists quiz together with its questions and answers.
func SeedQuiz(tb testing.TB, s store.Store, quiz *models.Quiz) *models.Quiz {
	tb.Helper()
	if quiz.MaxAttempts == 0 {
		quiz.MaxAttempts = 1
	}
	if err := s.CreateQuiz(context.Background(), quiz); err != nil {
		tb.Fatalf("seed quiz: %v", err)
	}
	return quiz
}

// ChoiceQuestion builds a single-answer question whose answer at index
// correct is the right one.
func ChoiceQuestion(order, points int, correct int, texts ...string) models.Question {
	q := models.Question{
		Text:   fmt.Sprintf("Question %d", order),
		Type:   models.QuestionMultipleChoice,
		Points: points,
		Order:  order,
	}
	for i, text := range texts {
		q.Answers = append(q.Answers, models.Answer{
			Text:      text,
			IsCorrect: i == correct,
			Order:     i + 1,
		})
	}
	return q
}

// ShortAnswerQuestion builds a free-text question.
func ShortAnswerQuestion(order, points int) models.Question {
	return models.Question{
		Text:   fmt.Sprintf("Question %d", order),
		Type:   models.QuestionShortAnswer,
		Points: points,
		Order:  order,
	}
}
