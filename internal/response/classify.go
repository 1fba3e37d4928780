package response

import (
	"errors"
	"net/http"

	"github.com/prepaconcours/prepa-backend/internal/answer"
	"github.com/prepaconcours/prepa-backend/internal/repository"
	"github.com/prepaconcours/prepa-backend/internal/service"
	"github.com/prepaconcours/prepa-backend/internal/session"
)

// Classify maps a domain error to an HTTP status and error code.
func Classify(err error) (int, ErrCode) {
	switch {
	case errors.Is(err, service.ErrTokenExpired):
		return http.StatusUnauthorized, ErrTokenExpired
	case errors.Is(err, service.ErrTokenInvalid):
		return http.StatusUnauthorized, ErrTokenInvalid
	case errors.Is(err, repository.ErrAttemptNotFound):
		return http.StatusNotFound, ErrAttemptNotFound
	case errors.Is(err, service.ErrDraftNotFound):
		return http.StatusNotFound, ErrDraftNotFound
	case errors.Is(err, session.ErrEmptyQuestionSet):
		return http.StatusNotFound, ErrNoQuestions
	case errors.Is(err, service.ErrQuestionLoad):
		return http.StatusServiceUnavailable, ErrQuestionLoadFailed
	case errors.Is(err, session.ErrInvalidTransition):
		return http.StatusConflict, ErrInvalidTransition
	case errors.Is(err, session.ErrIndexOutOfRange):
		return http.StatusBadRequest, ErrQuestionOutOfRange
	case errors.Is(err, answer.ErrParse):
		return http.StatusBadRequest, ErrInvalidAnswer
	case errors.Is(err, service.ErrPersistenceUnavailable):
		return http.StatusServiceUnavailable, ErrPersistenceDown
	default:
		return http.StatusInternalServerError, ErrInternal
	}
}
