package cerr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeFromHTTPStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Code
	}{
		{http.StatusOK, OK},
		{http.StatusCreated, OK},
		{http.StatusBadRequest, InvalidArgument},
		{http.StatusUnauthorized, Unauthenticated},
		{http.StatusForbidden, PermissionDenied},
		{http.StatusNotFound, NotFound},
		{http.StatusConflict, AlreadyExists},
		{http.StatusTooManyRequests, ResourceExhausted},
		{http.StatusBadGateway, Unavailable},
		{http.StatusServiceUnavailable, Unavailable},
		{http.StatusGatewayTimeout, DeadlineExceeded},
		{http.StatusInternalServerError, Internal},
		{http.StatusTeapot, Unknown},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, CodeFromHTTPStatus(tt.status))
		})
	}
}

func TestHTTPCodeRoundTrip(t *testing.T) {
	for _, c := range []Code{InvalidArgument, NotFound, Unauthenticated, PermissionDenied, Unavailable} {
		assert.Equal(t, c, CodeFromHTTPStatus(c.HTTPCode()), c.String())
	}
}

type codedErr struct{}

func (codedErr) Error() string { return "coded" }
func (codedErr) Code() Code    { return Unavailable }

func TestCodeOf(t *testing.T) {
	assert.Equal(t, OK, CodeOf(nil))
	assert.Equal(t, NotFound, CodeOf(fmt.Errorf("wrap: %w", NewError(NotFound, "task not found", nil))))
	assert.Equal(t, Unavailable, CodeOf(fmt.Errorf("wrap: %w", codedErr{})))
	assert.Equal(t, Unknown, CodeOf(errors.New("plain")))
}

func TestClassifiers(t *testing.T) {
	assert.True(t, IsValidation(Validation("bad input")))
	assert.False(t, IsValidation(NewError(NotFound, "x", nil)))
	assert.True(t, IsState(NewError(NotFound, "task not found", nil)))
	assert.True(t, IsState(NewError(FailedPrecondition, "no board loaded", nil)))
	assert.False(t, IsState(Validation("bad")))
}

func TestErrorMessage(t *testing.T) {
	err := NewError(InvalidArgument, "bad file", errors.New("too large"))
	assert.Equal(t, "[invalid_argument] bad file: too large", err.Error())
	assert.Empty(t, err.Stack)
	assert.NotEmpty(t, NewError(Internal, "boom", nil).Stack)
}
