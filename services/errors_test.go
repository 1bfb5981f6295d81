package services

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(ErrQuizNotFound))
	assert.Equal(t, KindConflict, KindOf(errors.Wrap(ErrAttemptAlreadyOpen, "start")))
	assert.Equal(t, KindLimitExceeded, KindOf(ErrTimeLimitExceeded))
	assert.Equal(t, KindInternal, KindOf(errors.New("disk on fire")))
	assert.Equal(t, KindInternal, KindOf(nil))
}

func TestInvalidMatchesSentinel(t *testing.T) {
	err := Invalid("max_attempts must be at least 1")
	assert.True(t, errors.Is(err, ErrInvalidQuiz))
	assert.False(t, errors.Is(err, ErrAnswerRequired))
	assert.Equal(t, "validation_failed", KindOf(err).String())
}
