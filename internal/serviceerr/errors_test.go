package serviceerr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tourista/session-coordinator/internal/serviceerr"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name        string
		err         *serviceerr.Error
		expectedMsg string
	}{
		{
			name:        "Error with description",
			err:         &serviceerr.Error{Err: serviceerr.CodeNotFound, Description: "cookie not found"},
			expectedMsg: "not_found: cookie not found",
		},
		{
			name:        "Error without description",
			err:         &serviceerr.Error{Err: serviceerr.CodeInvalidRequest},
			expectedMsg: "invalid_request",
		},
		{
			name:        "Predefined error - ErrRefreshRejected",
			err:         serviceerr.ErrRefreshRejected,
			expectedMsg: "refresh_rejected: refresh token rejected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedMsg, tt.err.Error())
		})
	}
}

func TestError_Is(t *testing.T) {
	described := &serviceerr.Error{Err: serviceerr.CodeRefreshRejected, Description: "status 401"}
	wrapped := fmt.Errorf("refreshing session: %w", described)

	assert.ErrorIs(t, wrapped, serviceerr.ErrRefreshRejected)
	assert.NotErrorIs(t, wrapped, serviceerr.ErrRefreshUnavailable)
	assert.NotErrorIs(t, wrapped, errors.New("refresh_rejected"))
}

func TestError_HTTPStatus(t *testing.T) {
	tests := []struct {
		name               string
		code               serviceerr.Code
		expectedHTTPStatus int
	}{
		{name: "CodeInvalidRequest returns BadRequest", code: serviceerr.CodeInvalidRequest, expectedHTTPStatus: http.StatusBadRequest},
		{name: "CodeUnauthorized returns Unauthorized", code: serviceerr.CodeUnauthorized, expectedHTTPStatus: http.StatusUnauthorized},
		{name: "CodeAccessDenied returns Forbidden", code: serviceerr.CodeAccessDenied, expectedHTTPStatus: http.StatusForbidden},
		{name: "CodeRefreshRejected returns Unauthorized", code: serviceerr.CodeRefreshRejected, expectedHTTPStatus: http.StatusUnauthorized},
		{name: "CodeLoginRequired returns Unauthorized", code: serviceerr.CodeLoginRequired, expectedHTTPStatus: http.StatusUnauthorized},
		{name: "CodeRefreshUnavailable returns ServiceUnavailable", code: serviceerr.CodeRefreshUnavailable, expectedHTTPStatus: http.StatusServiceUnavailable},
		{name: "CodeNotFound returns NotFound", code: serviceerr.CodeNotFound, expectedHTTPStatus: http.StatusNotFound},
		{name: "CodeConflict returns Conflict", code: serviceerr.CodeConflict, expectedHTTPStatus: http.StatusConflict},
		{name: "Unknown code returns InternalServerError", code: serviceerr.Code("unknown_code"), expectedHTTPStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := serviceerr.Error{Err: tt.code}
			assert.Equal(t, tt.expectedHTTPStatus, err.HTTPStatus())
		})
	}
}

func TestFromHTTPStatus(t *testing.T) {
	tests := []struct {
		status   int
		expected serviceerr.Code
	}{
		{status: http.StatusBadRequest, expected: serviceerr.CodeInvalidRequest},
		{status: http.StatusUnauthorized, expected: serviceerr.CodeUnauthorized},
		{status: http.StatusForbidden, expected: serviceerr.CodeAccessDenied},
		{status: http.StatusNotFound, expected: serviceerr.CodeNotFound},
		{status: http.StatusConflict, expected: serviceerr.CodeConflict},
		{status: http.StatusBadGateway, expected: serviceerr.CodeTemporarilyUnavailable},
		{status: http.StatusInternalServerError, expected: serviceerr.CodeServerError},
		{status: http.StatusTeapot, expected: serviceerr.CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := serviceerr.FromHTTPStatus(tt.status, "body")
			assert.Equal(t, tt.expected, err.Err)
			assert.Equal(t, "body", err.Description)
		})
	}
}
