package response

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/prepaconcours/prepa-backend/internal/answer"
	"github.com/prepaconcours/prepa-backend/internal/repository"
	"github.com/prepaconcours/prepa-backend/internal/service"
	"github.com/prepaconcours/prepa-backend/internal/session"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   ErrCode
	}{
		{repository.ErrAttemptNotFound, http.StatusNotFound, ErrAttemptNotFound},
		{fmt.Errorf("start session: %w", session.ErrEmptyQuestionSet), http.StatusNotFound, ErrNoQuestions},
		{fmt.Errorf("%w: timeout", service.ErrQuestionLoad), http.StatusServiceUnavailable, ErrQuestionLoadFailed},
		{session.ErrInvalidTransition, http.StatusConflict, ErrInvalidTransition},
		{answer.ErrParse, http.StatusBadRequest, ErrInvalidAnswer},
		{fmt.Errorf("%w: load attempt: %w", service.ErrPersistenceUnavailable, errors.New("conn refused")), http.StatusServiceUnavailable, ErrPersistenceDown},
		{errors.New("boom"), http.StatusInternalServerError, ErrInternal},
	}
	for _, tt := range tests {
		status, code := Classify(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.code, code, tt.err.Error())
	}
}

func TestGetMessage_IsFrench(t *testing.T) {
	assert.Equal(t, "Cet examen ne contient aucune question.", GetMessage(ErrNoQuestions))
	assert.Equal(t, "Une erreur inattendue est survenue.", GetMessage("UNKNOWN"))
}
