package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"ms-attractions/internal/apperr"

	"github.com/stretchr/testify/assert"
)

var errSoldOut = apperr.New(apperr.KindConflict, "sold_out", "tickets are sold out")

func TestKindOfWrappedSentinel(t *testing.T) {
	err := fmt.Errorf("reserve A/2030-01-01: %w", errSoldOut)

	assert.True(t, errors.Is(err, errSoldOut))
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, "sold_out", apperr.CodeOf(err))
	assert.Equal(t, "tickets are sold out", apperr.MessageOf(err))
}

func TestUnclassifiedErrorIsInternal(t *testing.T) {
	err := errors.New("connection reset by peer")

	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Equal(t, "internal", apperr.CodeOf(err))
	assert.Equal(t, "internal server error", apperr.MessageOf(err))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := apperr.Internal("failed to store reservation", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Nil(t, apperr.Wrap(apperr.KindConflict, "x", "y", nil))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.KindValidation: http.StatusBadRequest,
		apperr.KindAuth:       http.StatusUnauthorized,
		apperr.KindForbidden:  http.StatusForbidden,
		apperr.KindNotFound:   http.StatusNotFound,
		apperr.KindConflict:   http.StatusConflict,
		apperr.KindInternal:   http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, kind.HTTPStatus(), kind.String())
	}
}

func TestValidationFormatsMessage(t *testing.T) {
	err := apperr.Validation("capacity must be positive, got %d", -3)

	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, "capacity must be positive, got -3", err.Message)
}
