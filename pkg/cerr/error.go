package cerr

import (
	"errors"
	"fmt"
	"runtime"
)

type Error struct {
	Code  Code
	Msg   string // message safe to show next to the code
	Err   error  // underlying cause, logged only
	Stack string
}

func NewError(code Code, msg string, underlying error) *Error {
	err := &Error{
		Code: code,
		Msg:  msg,
		Err:  underlying,
	}
	if code == Internal || code == Unknown || code == DataLoss {
		stackTrace := make([]byte, 2048)
		n := runtime.Stack(stackTrace, false)
		err.Stack = string(stackTrace[0:n])
	}
	return err
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%s] %s", e.Code.String(), e.Msg)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code.String(), e.Msg, e.Err.Error())
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Coder is implemented by errors that carry a Code without being an *Error.
type Coder interface {
	Code() Code
}

// CodeOf returns the first Code found in the error chain, or Unknown.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Code
	}
	var coder Coder
	if errors.As(err, &coder) {
		return coder.Code()
	}
	return Unknown
}

func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// IsValidation reports whether err was raised by local input validation
// and therefore never reached the network.
func IsValidation(err error) bool {
	var cerr *Error
	return errors.As(err, &cerr) && cerr.Code == InvalidArgument
}

// IsState reports whether err refers to an entity missing from local state.
func IsState(err error) bool {
	var cerr *Error
	return errors.As(err, &cerr) && (cerr.Code == NotFound || cerr.Code == FailedPrecondition)
}

func Validation(msg string) *Error {
	return NewError(InvalidArgument, msg, nil)
}

func Validationf(format string, args ...any) *Error {
	return NewError(InvalidArgument, fmt.Sprintf(format, args...), nil)
}
