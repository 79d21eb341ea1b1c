package documents

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coverletter-backend/internal/shared/server/middleware"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Identity())
	NewHandler(newTestService(t)).RegisterRoutes(r.Group("/api"))
	return r
}

func doJSON(r http.Handler, method, path, owner string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if owner != "" {
		req.Header.Set("X-User-Id", owner)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestCreateAndGetDocument(t *testing.T) {
	r := newTestRouter(t)

	resp := doJSON(r, http.MethodPost, "/api/documents", "user-1", map[string]any{
		"content":  "Go engineer who shipped payments APIs",
		"doc_type": "resume",
		"metadata": map[string]string{"source": "paste"},
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var created DocumentResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.Equal(t, "user-1", created.OwnerID)
	assert.NotEmpty(t, created.ChunkIDs)

	resp = doJSON(r, http.MethodGet, "/api/documents/"+created.ID, "user-1", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var got DocumentResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	assert.Equal(t, created.Content, got.Content)
	assert.Equal(t, map[string]string{"source": "paste"}, got.Metadata)

	resp = doJSON(r, http.MethodGet, "/api/documents/"+created.ID, "user-2", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestCreateDocumentValidation(t *testing.T) {
	r := newTestRouter(t)

	resp := doJSON(r, http.MethodPost, "/api/documents", "user-1", map[string]any{"content": "x", "doc_type": "memo"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), `"validation_error"`)

	req := httptest.NewRequest(http.MethodPost, "/api/documents", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadDocument(t *testing.T) {
	r := newTestRouter(t)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("doc_type", "job_description"))
	part, err := w.CreateFormFile("file", "role.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("Backend Engineer. Requires Go and PostgreSQL."))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("X-Guest-Id", "g1")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var created DocumentResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.Equal(t, "guest:g1", created.OwnerID)
	assert.Equal(t, "job_description", created.DocType)
	assert.Equal(t, "Backend Engineer. Requires Go and PostgreSQL.", created.Content)

	list := doJSON(r, http.MethodGet, "/api/documents?doc_type=job_description", "", nil)
	require.Equal(t, http.StatusOK, list.Code)

	fileReq := httptest.NewRequest(http.MethodGet, "/api/documents/"+created.ID+"/file", nil)
	fileReq.Header.Set("X-Guest-Id", "g1")
	file := httptest.NewRecorder()
	r.ServeHTTP(file, fileReq)
	require.Equal(t, http.StatusOK, file.Code, file.Body.String())
	assert.Equal(t, "Backend Engineer. Requires Go and PostgreSQL.", file.Body.String())
	assert.Equal(t, `attachment; filename=role.txt`, file.Header().Get("Content-Disposition"))
	assert.Contains(t, file.Header().Get("Content-Type"), "text/plain")

	other := doJSON(r, http.MethodGet, "/api/documents/"+created.ID+"/file", "user-2", nil)
	assert.Equal(t, http.StatusNotFound, other.Code)
}

func TestUploadRequiresFile(t *testing.T) {
	r := newTestRouter(t)

	resp := doJSON(r, http.MethodPost, "/api/documents/upload", "user-1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
