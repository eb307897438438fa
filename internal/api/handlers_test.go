package api

import (
	"bytes"
	"context"
	"encoding/json"
	"hash/fnv"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyforge.io/quiz-service/internal/core"
	"studyforge.io/quiz-service/internal/pipeline"
	"studyforge.io/quiz-service/internal/safety"
	"studyforge.io/quiz-service/internal/store"
	"studyforge.io/quiz-service/internal/vectorstore"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 16)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%16]++
	}
	return vec, nil
}

type stubGenerator struct {
	mu       sync.Mutex
	response string
}

func (g *stubGenerator) Complete(_ context.Context, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.response, nil
}

type testServer struct {
	handler http.Handler
	store   *store.MemoryStore
	vectors *vectorstore.Memory
}

func newTestServer(t *testing.T, generatorResponse string) *testServer {
	t.Helper()

	st := store.NewMemoryStore()
	vectors := vectorstore.NewMemory(stubEmbedder{})
	gen := &stubGenerator{response: generatorResponse}

	filter, err := safety.New(safety.ModeRedact, "", nil)
	require.NoError(t, err)

	docs := core.NewDocumentService(st, t.TempDir())
	generation := core.NewGenerationService(st, vectors, gen, 5*time.Second)
	queries := core.NewQueryService(vectors, gen, pipeline.NewEmbeddingScorer(stubEmbedder{}), filter)

	handler := NewRouter(NewAPIHandler(docs, generation, queries))
	return &testServer{handler: handler, store: st, vectors: vectors}
}

func (s *testServer) do(t *testing.T, method, path string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) postJSON(t *testing.T, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return s.do(t, http.MethodPost, path, bytes.NewReader(body), map[string]string{"Content-Type": "application/json"})
}

func multipartFile(t *testing.T, filename, content string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func (s *testServer) uploadDocument(t *testing.T, filename, content, sessionID string) string {
	t.Helper()
	body, contentType := multipartFile(t, filename, content)
	headers := map[string]string{"Content-Type": contentType}
	if sessionID != "" {
		headers["session_id"] = sessionID
	}
	rec := s.do(t, http.MethodPost, "/documents", body, headers)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.DocID)
	return resp.DocID
}

// markProcessed short-circuits ingestion: the status endpoints under test
// only need a PROCESSED record with indexed chunks.
func (s *testServer) markProcessed(t *testing.T, docID string, texts ...string) {
	t.Helper()
	require.NoError(t, s.store.UpdateDocumentStatus(docID, store.DocStatusProcessed))
	for i, text := range texts {
		metadata := map[string]string{"doc_id": docID, "source": "notes.txt"}
		require.NoError(t, s.vectors.Upsert(context.Background(), text, metadata, core.ChunkID(docID, i)))
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, "")
	rec := srv.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestUploadDocument(t *testing.T) {
	srv := newTestServer(t, "")

	body, contentType := multipartFile(t, "notes.txt", "hello")
	rec := srv.do(t, http.MethodPost, "/documents", body, map[string]string{"Content-Type": contentType})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, store.DocStatusUploaded, resp.Status)
}

func TestUploadDocumentRejectsUnsupportedType(t *testing.T) {
	srv := newTestServer(t, "")

	body, contentType := multipartFile(t, "malware.exe", "MZ")
	rec := srv.do(t, http.MethodPost, "/documents", body, map[string]string{"Content-Type": contentType})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadDocumentRequiresFileField(t *testing.T) {
	srv := newTestServer(t, "")

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("name", "notes"))
	require.NoError(t, writer.Close())

	rec := srv.do(t, http.MethodPost, "/documents", &buf, map[string]string{"Content-Type": writer.FormDataContentType()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListDocuments(t *testing.T) {
	srv := newTestServer(t, "")
	docID := srv.uploadDocument(t, "notes.txt", "hello", "session-1")
	srv.uploadDocument(t, "other.txt", "bye", "session-2")

	rec := srv.do(t, http.MethodGet, "/documents", nil, map[string]string{"session_id": "session-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp DocumentListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Documents, 1)
	assert.Equal(t, docID, resp.Documents[0].ID)
}

func TestGetDocument(t *testing.T) {
	srv := newTestServer(t, "")
	docID := srv.uploadDocument(t, "notes.txt", "hello", "")

	rec := srv.do(t, http.MethodGet, "/documents/"+docID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp DocumentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, docID, resp.DocID)
	assert.Equal(t, "notes.txt", resp.Filename)
	assert.Equal(t, store.DocStatusUploaded, resp.Status)

	rec = srv.do(t, http.MethodGet, "/documents/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListDocumentsRequiresSession(t *testing.T) {
	srv := newTestServer(t, "")
	rec := srv.do(t, http.MethodGet, "/documents", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocumentFeedback(t *testing.T) {
	srv := newTestServer(t, "")
	docID := srv.uploadDocument(t, "notes.txt", "hello", "")

	rec := srv.postJSON(t, "/documents/"+docID+"/feedback", map[string]int{"rating": 1})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = srv.postJSON(t, "/documents/"+docID+"/feedback", map[string]int{"rating": 5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.postJSON(t, "/documents/missing/feedback", map[string]int{"rating": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateQuizLifecycle(t *testing.T) {
	srv := newTestServer(t, `{"quiz": [{"question": "q1"}]}`)
	docID := srv.uploadDocument(t, "notes.txt", "Ants eat leaves.", "")
	srv.markProcessed(t, docID, "Ants eat leaves.")

	rec := srv.postJSON(t, "/documents/"+docID+"/quiz", map[string]any{"difficulty": "easy", "question_count": 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var created QuizCreateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, store.JobStatusGenerating, created.Status)

	var status QuizStatusResponse
	require.Eventually(t, func() bool {
		rec := srv.do(t, http.MethodGet, "/quiz/"+created.QuizID+"/status", nil, nil)
		if rec.Code != http.StatusOK {
			return false
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
			return false
		}
		return status.Status == store.JobStatusReady
	}, 5*time.Second, 10*time.Millisecond)

	require.Len(t, status.Questions, 1)
	assert.JSONEq(t, `{"question": "q1"}`, string(status.Questions[0]))

	// Resubmitting the same request returns the same id.
	rec = srv.postJSON(t, "/documents/"+docID+"/quiz", map[string]any{"difficulty": "easy", "question_count": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	var resubmitted QuizCreateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resubmitted))
	assert.Equal(t, created.QuizID, resubmitted.QuizID)
}

func TestCreateQuizErrors(t *testing.T) {
	srv := newTestServer(t, "")

	rec := srv.postJSON(t, "/documents/missing/quiz", map[string]any{})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	docID := srv.uploadDocument(t, "notes.txt", "hello", "")
	// Still UPLOADED, not PROCESSED.
	rec = srv.postJSON(t, "/documents/"+docID+"/quiz", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	srv.markProcessed(t, docID, "hello")
	rec = srv.postJSON(t, "/documents/"+docID+"/quiz", map[string]any{"question_count": 99})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuizStatusNotFound(t *testing.T) {
	srv := newTestServer(t, "")
	rec := srv.do(t, http.MethodGet, "/quiz/unknown/status", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateFlashcardsLifecycle(t *testing.T) {
	srv := newTestServer(t, `[{"front": "f", "back": "b"}]`)
	docID := srv.uploadDocument(t, "notes.txt", "A term means a definition.", "")
	srv.markProcessed(t, docID, "A term means a definition.")

	rec := srv.postJSON(t, "/documents/"+docID+"/flashcards", map[string]any{"count": 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var created FlashcardCreateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	var status FlashcardStatusResponse
	require.Eventually(t, func() bool {
		rec := srv.do(t, http.MethodGet, "/flashcards/"+created.FlashcardsID+"/status", nil, nil)
		if rec.Code != http.StatusOK {
			return false
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
			return false
		}
		return status.Status == store.JobStatusReady
	}, 5*time.Second, 10*time.Millisecond)

	require.Len(t, status.Flashcards, 1)

	// A flashcards id is invisible through the quiz endpoint.
	rec = srv.do(t, http.MethodGet, "/quiz/"+created.FlashcardsID+"/status", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQueryEndpoint(t *testing.T) {
	srv := newTestServer(t, "Ants eat leaves.")
	docID := srv.uploadDocument(t, "notes.txt", "Ants eat leaves and seeds.", "")
	srv.markProcessed(t, docID, "Ants eat leaves and seeds.")

	rec := srv.postJSON(t, "/query", QueryRequest{Question: "what do ants eat?"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var answer core.Answer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &answer))
	assert.Equal(t, "Ants eat leaves.", answer.Answer)
	assert.Equal(t, []string{"notes.txt"}, answer.Sources)
}

func TestQueryEndpointRejectsShortQuestion(t *testing.T) {
	srv := newTestServer(t, "")
	rec := srv.postJSON(t, "/query", QueryRequest{Question: "hi"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryEndpointRejectsInvalidBody(t *testing.T) {
	srv := newTestServer(t, "")
	rec := srv.do(t, http.MethodPost, "/query", strings.NewReader("not json"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
