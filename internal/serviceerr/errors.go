package serviceerr

import (
	"errors"
	"net/http"
)

type Code string

const (
	// Remote API errors
	CodeInvalidRequest         Code = "invalid_request"
	CodeUnauthorized           Code = "unauthorized"
	CodeAccessDenied           Code = "access_denied"
	CodeServerError            Code = "server_error"
	CodeTemporarilyUnavailable Code = "temporarily_unavailable"

	// Session errors
	CodeUnknown            Code = "unknown"
	CodeConflict           Code = "conflict"
	CodeNotFound           Code = "not_found"
	CodeNoRefreshToken     Code = "no_refresh_token"
	CodeRefreshRejected    Code = "refresh_rejected"
	CodeRefreshUnavailable Code = "refresh_unavailable"
	CodeLoginRequired      Code = "login_required"
)

// Error is a coded error. Two errors are considered equal by errors.Is when
// their codes match, so a wrapped description does not hide the code.
type Error struct {
	Err         Code
	Description string
}

func (e *Error) Error() string {
	if e.Description == "" {
		return string(e.Err)
	}

	return string(e.Err) + ": " + e.Description
}

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}

	return t.Err == e.Err
}

// HTTPStatus maps the error code onto the closest HTTP status.
func (e *Error) HTTPStatus() int {
	switch e.Err {
	case CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeNoRefreshToken, CodeRefreshRejected, CodeLoginRequired:
		return http.StatusUnauthorized
	case CodeAccessDenied:
		return http.StatusForbidden
	case CodeConflict:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeTemporarilyUnavailable, CodeRefreshUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// FromHTTPStatus builds an error for a non-successful response of the remote API.
func FromHTTPStatus(status int, description string) *Error {
	var code Code
	switch {
	case status == http.StatusBadRequest:
		code = CodeInvalidRequest
	case status == http.StatusUnauthorized:
		code = CodeUnauthorized
	case status == http.StatusForbidden:
		code = CodeAccessDenied
	case status == http.StatusNotFound:
		code = CodeNotFound
	case status == http.StatusConflict:
		code = CodeConflict
	case status == http.StatusServiceUnavailable, status == http.StatusBadGateway, status == http.StatusGatewayTimeout:
		code = CodeTemporarilyUnavailable
	case status >= http.StatusInternalServerError:
		code = CodeServerError
	default:
		code = CodeUnknown
	}

	return &Error{Err: code, Description: description}
}

var (
	ErrInvalidRequest         = &Error{Err: CodeInvalidRequest}
	ErrUnauthorized           = &Error{Err: CodeUnauthorized}
	ErrAccessDenied           = &Error{Err: CodeAccessDenied}
	ErrServerError            = &Error{Err: CodeServerError}
	ErrTemporarilyUnavailable = &Error{Err: CodeTemporarilyUnavailable}

	ErrUnknown            = &Error{Err: CodeUnknown, Description: "unknown error"}
	ErrConflict           = &Error{Err: CodeConflict, Description: "already exists"}
	ErrNotFound           = &Error{Err: CodeNotFound, Description: "not found"}
	ErrNoRefreshToken     = &Error{Err: CodeNoRefreshToken, Description: "session has no refresh token"}
	ErrRefreshRejected    = &Error{Err: CodeRefreshRejected, Description: "refresh token rejected"}
	ErrRefreshUnavailable = &Error{Err: CodeRefreshUnavailable, Description: "refresh endpoint unavailable"}
	ErrLoginRequired      = &Error{Err: CodeLoginRequired, Description: "login required"}
)
