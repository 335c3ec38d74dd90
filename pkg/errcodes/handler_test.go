package errcodes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errorBody struct {
	Error struct {
		Code       string `json:"code"`
		Message    string `json:"message"`
		StatusCode int    `json:"status_code"`
	} `json:"error"`
}

func handle(t *testing.T, err error) (int, errorBody) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	NewHandler().Handle(err, c)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHandle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		httpCode int
		code     string
		message  string
	}{
		{"not found", NotFound("Book"), http.StatusNotFound, CodeNotFound, "Book not found."},
		{"wrapped invalid state", errors.Wrap(InvalidState("Request is already APPROVED."), "approve"), http.StatusConflict, CodeInvalidState, "Request is already APPROVED."},
		{"upload failed", UploadFailed("Failed to upload cover.jpg."), http.StatusBadGateway, CodeUploadFailed, "Failed to upload cover.jpg."},
		{"missing references", MissingReferences("Categories", []int{3, 7}), http.StatusUnprocessableEntity, CodeValidationError, "Categories not found: 3, 7"},
		{"echo error", echo.NewHTTPError(http.StatusMethodNotAllowed, "Method Not Allowed"), http.StatusMethodNotAllowed, "method_not_allowed", "Method Not Allowed"},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError, "internal_server_error", "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			status, body := handle(t, tt.err)
			assert.Equal(t, tt.httpCode, status)
			assert.Equal(t, tt.code, body.Error.Code)
			assert.Equal(t, tt.message, body.Error.Message)
			assert.Equal(t, tt.httpCode, body.Error.StatusCode)
		})
	}
}

func TestHasCode(t *testing.T) {
	t.Parallel()

	err := errors.WithStack(ValidationError("bad"))
	assert.True(t, HasCode(err, CodeValidationError))
	assert.False(t, HasCode(err, CodeNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeValidationError))
}
