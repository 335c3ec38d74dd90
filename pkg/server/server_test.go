package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shishobooks/bookhub/pkg/config"
	"github.com/shishobooks/bookhub/pkg/models"
	"github.com/shishobooks/bookhub/pkg/storage"
	"github.com/shishobooks/bookhub/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	e     *echo.Echo
	blobs *storage.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := config.NewForTest()
	cfg.BlobStoreDir = t.TempDir()
	db := testutils.NewDB(t)
	blobs := storage.NewMemoryStore()

	e, err := newEcho(cfg, db, storage.NewStore(blobs, storage.PolicyFromConfig(cfg)))
	require.NoError(t, err)
	return &testServer{e: e, blobs: blobs}
}

func (s *testServer) do(t *testing.T, req *http.Request, token string) *httptest.ResponseRecorder {
	t.Helper()
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.e.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) doJSON(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return s.do(t, req, token)
}

func (s *testServer) register(t *testing.T, email, username string) string {
	t.Helper()
	rr := s.doJSON(t, http.MethodPost, "/auth/register", `{"email":"`+email+`","username":"`+username+`","password":"correct horse battery"}`, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestContributionLifecycle(t *testing.T) {
	s := newTestServer(t)
	admin := s.register(t, "admin@example.com", "admin")
	reader := s.register(t, "reader@example.com", "reader")

	rr := s.doJSON(t, http.MethodPost, "/categories", `{"name":"Fiction"}`, admin)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	fiction := decode[models.Category](t, rr)

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	require.NoError(t, w.WriteField("title", "Parable of the Sower"))
	require.NoError(t, w.WriteField("author", "Octavia E. Butler"))
	require.NoError(t, w.WriteField("category_ids", strconv.Itoa(fiction.ID)))
	part, err := w.CreateFormFile("cover_image", "cover.png")
	require.NoError(t, err)
	_, err = part.Write(testutils.PNG(t))
	require.NoError(t, err)
	part, err = w.CreateFormFile("book_files", "sower.epub")
	require.NoError(t, err)
	_, err = part.Write([]byte("epub bytes"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/requests/contributions", body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rr = s.do(t, req, reader)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	pending := decode[models.Request](t, rr)
	assert.Equal(t, models.RequestStatusPending, pending.Status)
	assert.Equal(t, 2, s.blobs.Len())

	path := "/requests/" + strconv.Itoa(pending.ID)

	rr = s.doJSON(t, http.MethodPost, path+"/approve", `{}`, reader)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = s.doJSON(t, http.MethodPost, path+"/approve", `{}`, admin)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	approved := decode[models.Request](t, rr)
	require.NotNil(t, approved.CreatedBookID)

	rr = s.doJSON(t, http.MethodPost, path+"/reject", `{"reason":"Too late"}`, admin)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "invalid_state", decode[errorBody](t, rr).Error.Code)

	rr = s.do(t, httptest.NewRequest(http.MethodGet, "/categories/"+strconv.Itoa(fiction.ID), nil), reader)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, decode[models.Category](t, rr).BookCount)

	bookPath := "/books/" + strconv.Itoa(*approved.CreatedBookID)
	rr = s.do(t, httptest.NewRequest(http.MethodGet, bookPath, nil), reader)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Parable of the Sower", decode[models.Book](t, rr).Title)

	rr = s.do(t, httptest.NewRequest(http.MethodDelete, bookPath, nil), admin)
	require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())
	assert.Equal(t, 0, s.blobs.Len())

	rr = s.do(t, httptest.NewRequest(http.MethodGet, "/categories/"+strconv.Itoa(fiction.ID), nil), reader)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0, decode[models.Category](t, rr).BookCount)
}

func TestRoutesRequireAuthentication(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/books", "/categories", "/requests/mine", "/activity/history", "/config/upload-policy"} {
		rr := s.do(t, httptest.NewRequest(http.MethodGet, path, nil), "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}
}

func TestModerationRoutesRequireAdmin(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "admin@example.com", "admin")
	reader := s.register(t, "reader@example.com", "reader")

	rr := s.do(t, httptest.NewRequest(http.MethodGet, "/requests", nil), reader)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = s.doJSON(t, http.MethodPost, "/categories", `{"name":"Fiction"}`, reader)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, httptest.NewRequest(http.MethodGet, "/nope", nil), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", decode[errorBody](t, rr).Error.Code)
	assert.NotEmpty(t, rr.Header().Get(echo.HeaderXRequestID))
}
