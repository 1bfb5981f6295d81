package services

import (
	"sync"
	"testing"
	"time"

	"quizrave/logger"
	"quizrave/models"
	"quizrave/store"
	"quizrave/store/storetest"

	"gorm.io/gorm"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type event struct {
	attemptID uint
	eventType string
	payload   interface{}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []event
}

func (n *recordingNotifier) Publish(attemptID uint, eventType string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event{attemptID, eventType, payload})
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	for i, e := range n.events {
		out[i] = e.eventType
	}
	return out
}

type fixture struct {
	db       *gorm.DB
	store    *store.GormStore
	svc      *AttemptService
	clock    *fakeClock
	notifier *recordingNotifier
}

const (
	creatorID uint = 100
	aliceID   uint = 1
	bobID     uint = 2
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := storetest.DB(t)
	s := store.NewGormStore(db)
	clock := newFakeClock()
	svc := NewAttemptService(s, logger.Nop(), WithClock(clock.Now))
	n := &recordingNotifier{}
	svc.UseNotifier(n)
	return &fixture{db: db, store: s, svc: svc, clock: clock, notifier: n}
}

func (f *fixture) seed(t *testing.T, quiz *models.Quiz) *models.Quiz {
	t.Helper()
	if quiz.CreatorID == 0 {
		quiz.CreatorID = creatorID
	}
	if quiz.Title == "" {
		quiz.Title = "Quiz"
	}
	quiz.IsActive = true
	return storetest.SeedQuiz(t, f.store, quiz)
}

// twoQuestionQuiz is worth 20 + 30 points; the first answer of Q1 and the
// second answer of Q2 are correct.
func (f *fixture) twoQuestionQuiz(t *testing.T, maxAttempts int) *models.Quiz {
	t.Helper()
	return f.seed(t, &models.Quiz{
		MaxAttempts: maxAttempts,
		Questions: []models.Question{
			storetest.ChoiceQuestion(1, 20, 0, "right", "wrong"),
			storetest.ChoiceQuestion(2, 30, 1, "wrong", "right"),
		},
	})
}

func choose(q models.Question, idx int) Submission {
	id := q.Answers[idx].ID
	return Submission{QuestionID: q.ID, AnswerID: &id}
}

func uintPtr(v uint) *uint { return &v }
