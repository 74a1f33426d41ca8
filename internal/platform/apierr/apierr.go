package apierr

import (
	"errors"
	"net/http"
)

// Error is an error already classified for the HTTP surface: a status plus a
// stable code that clients switch on.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Err != nil:
		return e.Err.Error()
	case e.Code != "":
		return e.Code
	default:
		return http.StatusText(e.Status)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return &Error{Status: status, Code: code, Err: err}
}

func BadRequest(code string, err error) *Error { return New(http.StatusBadRequest, code, err) }
func NotFound(code string, err error) *Error   { return New(http.StatusNotFound, code, err) }
func Conflict(code string, err error) *Error   { return New(http.StatusConflict, code, err) }
func BadGateway(code string, err error) *Error { return New(http.StatusBadGateway, code, err) }
func Internal(code string, err error) *Error   { return New(http.StatusInternalServerError, code, err) }

// From returns the *Error in err's chain, if any.
func From(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) && ae != nil {
		return ae, true
	}
	return nil, false
}
