package errcodes

import (
	"fmt"
	"net/http"
	"strings"
)

type Error struct {
	HTTPCode int
	Message  string
	Code     string
}

func (err *Error) Error() string {
	return err.Message
}

func (err *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return te.HTTPCode == err.HTTPCode &&
		te.Message == err.Message &&
		te.Code == err.Code
}

// HasCode reports whether err is an *Error carrying the given code.
func HasCode(err error, code string) bool {
	e, ok := As(err)
	return ok && e.Code == code
}

// Stable error codes exposed to API clients.
const (
	CodeNotFound         = "not_found"
	CodeValidationError  = "validation_error"
	CodeInvalidState     = "invalid_state"
	CodeUploadFailed     = "upload_failed"
	CodeConflict         = "conflict"
	CodeUnauthorized     = "unauthorized"
	CodeForbidden        = "forbidden"
	CodeMalformedPayload = "malformed_payload"
	CodeRateLimited      = "rate_limited"
)

// Forbidden returns a 403 error with a message indicating the action is
// forbidden.
func Forbidden(action string) error {
	return &Error{
		http.StatusForbidden,
		action + " is not allowed.",
		CodeForbidden,
	}
}

// NotFound returns a 404 error with a message indicating the given resource.
func NotFound(resource string) error {
	return &Error{
		http.StatusNotFound,
		resource + " not found.",
		CodeNotFound,
	}
}

func Unauthorized(msg string) error {
	return &Error{
		http.StatusUnauthorized,
		msg,
		CodeUnauthorized,
	}
}

func UnsupportedMediaType() error {
	return &Error{
		http.StatusUnsupportedMediaType,
		"Unsupported Media Type",
		"unsupported_media_type",
	}
}

func UnknownParameter(param string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		fmt.Sprintf("Unknown Parameter %q", param),
		"unknown_parameter",
	}
}

func ValidationTypeError(msg string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		msg,
		"validation_type_error",
	}
}

func ValidationError(msg string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		msg,
		CodeValidationError,
	}
}

// MissingReferences returns a validation error naming every id that could not
// be resolved, e.g. "Categories not found: 3, 7".
func MissingReferences(resource string, ids []int) error {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprint(id))
	}
	return ValidationError(fmt.Sprintf("%s not found: %s", resource, strings.Join(parts, ", ")))
}

// InvalidState is returned when an entity is asked to make a transition its
// current state does not allow.
func InvalidState(msg string) error {
	return &Error{
		http.StatusConflict,
		msg,
		CodeInvalidState,
	}
}

// UploadFailed is returned when a required blob upload fails. The operation
// that triggered it has not persisted anything.
func UploadFailed(msg string) error {
	return &Error{
		http.StatusBadGateway,
		msg,
		CodeUploadFailed,
	}
}

func Conflict(msg string) error {
	return &Error{
		http.StatusConflict,
		msg,
		CodeConflict,
	}
}

func RateLimited() error {
	return &Error{
		http.StatusTooManyRequests,
		"Too many requests. Please slow down.",
		CodeRateLimited,
	}
}

func MalformedPayload() error {
	return &Error{
		http.StatusBadRequest,
		"Malformed Payload",
		CodeMalformedPayload,
	}
}

func EmptyRequestBody() error {
	return &Error{
		http.StatusBadRequest,
		"Request body can't be empty.",
		"empty_request_body",
	}
}
