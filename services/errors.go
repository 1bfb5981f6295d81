package services

import (
	"github.com/pkg/errors"
)

// Kind groups domain failures by how a caller should react to them.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindConflict
	KindLimitExceeded
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindLimitExceeded:
		return "limit_exceeded"
	case KindValidation:
		return "validation_failed"
	default:
		return "internal"
	}
}

// Error is a typed domain failure. Sentinels below are compared with
// errors.Is.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	ErrQuizNotFound     = newError(KindNotFound, "quiz_not_found", "quiz not found")
	ErrQuestionNotFound = newError(KindNotFound, "question_not_found", "question not found")
	ErrAnswerNotFound   = newError(KindNotFound, "answer_not_found", "answer not found")
	ErrAttemptNotFound  = newError(KindNotFound, "attempt_not_found", "attempt not found")
	ErrResponseNotFound = newError(KindNotFound, "response_not_found", "no response recorded for this question")

	ErrAttemptNotOwned = newError(KindForbidden, "attempt_not_owned", "attempt belongs to another user")
	ErrNotQuizCreator  = newError(KindForbidden, "not_quiz_creator", "only the quiz creator can grade responses")

	ErrAttemptAlreadyOpen      = newError(KindConflict, "attempt_already_open", "you have an incomplete attempt for this quiz")
	ErrAttemptAlreadyCompleted = newError(KindConflict, "attempt_already_completed", "this quiz attempt is already completed")
	ErrQuizInactive            = newError(KindConflict, "quiz_inactive", "quiz is not active")

	ErrAttemptLimitExceeded = newError(KindLimitExceeded, "attempt_limit_exceeded", "maximum attempts for this quiz reached")
	ErrTimeLimitExceeded    = newError(KindLimitExceeded, "time_limit_exceeded", "time limit for this attempt has passed")

	ErrAnswerRequired          = newError(KindValidation, "answer_required", "answer_id is required for this question type")
	ErrTextAnswerRequired      = newError(KindValidation, "text_answer_required", "text_answer is required for short answer questions")
	ErrAnswerQuestionMismatch  = newError(KindValidation, "answer_question_mismatch", "answer does not belong to this question")
	ErrQuestionNotInQuiz       = newError(KindValidation, "question_not_in_quiz", "question does not belong to this quiz")
	ErrUnsupportedQuestionType = newError(KindValidation, "unsupported_question_type", "unsupported question type")
	ErrNotGradable             = newError(KindValidation, "not_gradable", "only short answer responses can be graded")
	ErrInvalidQuiz             = newError(KindValidation, "invalid_quiz", "invalid quiz")
)

// Invalid returns a validation error with a specific message under the
// invalid_quiz code.
func Invalid(message string) *Error {
	return newError(KindValidation, ErrInvalidQuiz.Code, message)
}

// Is lets errors.Is match an ad-hoc error against the sentinel with the
// same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// KindOf reports the Kind of the first domain error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
