package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"quizrave/models"
	"quizrave/store"
	"quizrave/store/storetest"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, s store.Store) *models.Quiz {
	t.Helper()
	return storetest.SeedQuiz(t, s, &models.Quiz{
		Title:       "Capitals",
		CreatorID:   7,
		IsActive:    true,
		MaxAttempts: 2,
		Questions: []models.Question{
			storetest.ChoiceQuestion(2, 30, 0, "Paris", "Lyon"),
			storetest.ChoiceQuestion(1, 20, 1, "Bonn", "Berlin"),
		},
	})
}

func TestGetQuizWithQuestionsOrdersByOrder(t *testing.T) {
	s := storetest.Store(t)
	ctx := context.Background()
	quiz := seed(t, s)

	got, err := s.GetQuizWithQuestions(ctx, quiz.ID)
	require.NoError(t, err)
	require.Len(t, got.Questions, 2)
	assert.Equal(t, 1, got.Questions[0].Order)
	assert.Equal(t, 2, got.Questions[1].Order)
	require.Len(t, got.Questions[0].Answers, 2)
	assert.Equal(t, "Bonn", got.Questions[0].Answers[0].Text)

	questions, err := s.ListQuestions(ctx, quiz.ID)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, 20, questions[0].Points)
}

func TestNotFoundIsTranslated(t *testing.T) {
	s := storetest.Store(t)
	ctx := context.Background()

	_, err := s.GetQuiz(ctx, 404)
	assert.True(t, errors.Is(err, store.ErrNotFound))
	_, err = s.GetQuestion(ctx, 404)
	assert.True(t, errors.Is(err, store.ErrNotFound))
	_, err = s.GetAnswer(ctx, 404)
	assert.True(t, errors.Is(err, store.ErrNotFound))
	_, err = s.GetAttempt(ctx, 404)
	assert.True(t, errors.Is(err, store.ErrNotFound))
	_, err = s.GetResponse(ctx, 404, 1)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestQuestionOrderUniquePerQuiz(t *testing.T) {
	s := storetest.Store(t)
	err := s.CreateQuiz(context.Background(), &models.Quiz{
		Title:       "dupes",
		CreatorID:   1,
		IsActive:    true,
		MaxAttempts: 1,
		Questions: []models.Question{
			storetest.ShortAnswerQuestion(1, 1),
			storetest.ShortAnswerQuestion(1, 1),
		},
	})
	assert.True(t, errors.Is(err, store.ErrConflict), "got %v", err)
}

func TestOpenAttemptUniqueness(t *testing.T) {
	s := storetest.Store(t)
	ctx := context.Background()
	quiz := seed(t, s)

	open, err := s.GetOpenAttempt(ctx, 1, quiz.ID)
	require.NoError(t, err)
	assert.Nil(t, open)

	first, err := s.CreateAttempt(ctx, 1, quiz.ID, time.Now())
	require.NoError(t, err)

	_, err = s.CreateAttempt(ctx, 1, quiz.ID, time.Now())
	assert.True(t, errors.Is(err, store.ErrConflict), "got %v", err)

	open, err = s.GetOpenAttempt(ctx, 1, quiz.ID)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, first.ID, open.ID)

	// another user is unaffected
	_, err = s.CreateAttempt(ctx, 2, quiz.ID, time.Now())
	require.NoError(t, err)

	// once completed, a new open attempt is allowed
	_, err = s.UpdateAttemptCompletion(ctx, first.ID, 0, 50, time.Now())
	require.NoError(t, err)
	_, err = s.CreateAttempt(ctx, 1, quiz.ID, time.Now())
	require.NoError(t, err)

	count, err := s.CountCompletedAttempts(ctx, 1, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUpdateAttemptCompletionOnlyOnce(t *testing.T) {
	s := storetest.Store(t)
	ctx := context.Background()
	quiz := seed(t, s)

	attempt, err := s.CreateAttempt(ctx, 1, quiz.ID, time.Now())
	require.NoError(t, err)

	done, err := s.UpdateAttemptCompletion(ctx, attempt.ID, 20, 50, time.Now())
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, 20, *done.Score)
	assert.Equal(t, 50, *done.TotalPoints)

	_, err = s.UpdateAttemptCompletion(ctx, attempt.ID, 50, 50, time.Now())
	assert.True(t, errors.Is(err, store.ErrConflict), "got %v", err)

	again, err := s.GetAttempt(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, *again.Score)

	_, err = s.UpdateAttemptCompletion(ctx, 999, 0, 0, time.Now())
	assert.True(t, errors.Is(err, store.ErrNotFound), "got %v", err)
}

func TestUpsertResponseOverwrites(t *testing.T) {
	s := storetest.Store(t)
	ctx := context.Background()
	quiz := seed(t, s)
	attempt, err := s.CreateAttempt(ctx, 1, quiz.ID, time.Now())
	require.NoError(t, err)

	q := quiz.Questions[0]
	wrong, right := q.Answers[1].ID, q.Answers[0].ID
	no, yes := false, true

	first, err := s.UpsertResponse(ctx, &models.Response{
		AttemptID: attempt.ID, QuestionID: q.ID, SelectedAnswerID: &wrong, IsCorrect: &no, AnsweredAt: time.Now(),
	})
	require.NoError(t, err)

	second, err := s.UpsertResponse(ctx, &models.Response{
		AttemptID: attempt.ID, QuestionID: q.ID, SelectedAnswerID: &right, IsCorrect: &yes, AnsweredAt: time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, right, *second.SelectedAnswerID)
	assert.True(t, *second.IsCorrect)

	responses, err := s.ListResponses(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Len(t, responses, 1)
}

func TestUpsertResponseConcurrent(t *testing.T) {
	s := storetest.Store(t)
	ctx := context.Background()
	quiz := seed(t, s)
	attempt, err := s.CreateAttempt(ctx, 1, quiz.ID, time.Now())
	require.NoError(t, err)
	q := quiz.Questions[0]

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			answerID := q.Answers[i%2].ID
			_, err := s.UpsertResponse(ctx, &models.Response{
				AttemptID: attempt.ID, QuestionID: q.ID, SelectedAnswerID: &answerID, AnsweredAt: time.Now(),
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	responses, err := s.ListResponses(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Len(t, responses, 1)
}

func TestSetResponseCorrectness(t *testing.T) {
	s := storetest.Store(t)
	ctx := context.Background()
	quiz := storetest.SeedQuiz(t, s, &models.Quiz{
		Title: "essay", CreatorID: 1, IsActive: true, MaxAttempts: 1,
		Questions: []models.Question{storetest.ShortAnswerQuestion(1, 5)},
	})
	attempt, err := s.CreateAttempt(ctx, 1, quiz.ID, time.Now())
	require.NoError(t, err)
	q := quiz.Questions[0]

	_, err = s.SetResponseCorrectness(ctx, attempt.ID, q.ID, true)
	assert.True(t, errors.Is(err, store.ErrNotFound), "got %v", err)

	r, err := s.UpsertResponse(ctx, &models.Response{
		AttemptID: attempt.ID, QuestionID: q.ID, TextAnswer: "mitochondria", AnsweredAt: time.Now(),
	})
	require.NoError(t, err)
	assert.Nil(t, r.IsCorrect)

	r, err = s.SetResponseCorrectness(ctx, attempt.ID, q.ID, true)
	require.NoError(t, err)
	require.NotNil(t, r.IsCorrect)
	assert.True(t, *r.IsCorrect)
}

func TestTransactionRollsBack(t *testing.T) {
	s := storetest.Store(t)
	ctx := context.Background()
	quiz := seed(t, s)

	boom := errors.New("boom")
	err := s.Transaction(ctx, func(tx store.Store) error {
		if _, err := tx.CreateAttempt(ctx, 1, quiz.ID, time.Now()); err != nil {
			return err
		}
		return boom
	})
	assert.True(t, errors.Is(err, boom))

	open, err := s.GetOpenAttempt(ctx, 1, quiz.ID)
	require.NoError(t, err)
	assert.Nil(t, open)
}

func TestListAttemptsAndActiveQuizzes(t *testing.T) {
	s := storetest.Store(t)
	ctx := context.Background()
	quiz := seed(t, s)
	storetest.SeedQuiz(t, s, &models.Quiz{Title: "hidden", CreatorID: 7, IsActive: false, MaxAttempts: 1})

	active, err := s.ListActiveQuizzes(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, quiz.ID, active[0].ID)

	older, err := s.CreateAttempt(ctx, 1, quiz.ID, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	_, err = s.UpdateAttemptCompletion(ctx, older.ID, 0, 50, time.Now())
	require.NoError(t, err)
	newer, err := s.CreateAttempt(ctx, 1, quiz.ID, time.Now())
	require.NoError(t, err)

	attempts, err := s.ListAttempts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, newer.ID, attempts[0].ID)

	none, err := s.ListAttempts(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, none)
}
