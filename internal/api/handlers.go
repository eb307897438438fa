package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"studyforge.io/quiz-service/internal/core"
	"studyforge.io/quiz-service/internal/ingest"
	"studyforge.io/quiz-service/internal/safety"
	"studyforge.io/quiz-service/internal/store"
)

// maxUploadBytes caps the multipart memory buffer for document uploads.
const maxUploadBytes = 32 << 20

type APIHandler struct {
	documents  *core.DocumentService
	generation *core.GenerationService
	queries    *core.QueryService
}

func NewAPIHandler(docs *core.DocumentService, gen *core.GenerationService, queries *core.QueryService) *APIHandler {
	return &APIHandler{
		documents:  docs,
		generation: gen,
		queries:    queries,
	}
}

type UploadResponse struct {
	DocID  string               `json:"doc_id"`
	Status store.DocumentStatus `json:"status"`
}

func (h *APIHandler) UploadDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "Invalid multipart request: "+err.Error(), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "A 'file' form field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	sessionID := r.Header.Get("session_id")

	doc, err := h.documents.Upload(header.Filename, sessionID, file)
	if err != nil {
		if errors.Is(err, ingest.ErrUnsupportedFormat) {
			http.Error(w, "Invalid file type", http.StatusBadRequest)
			return
		}
		log.Printf("Error uploading document %s: %v", header.Filename, err)
		http.Error(w, "Failed to store upload", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(UploadResponse{DocID: doc.ID, Status: doc.Status})
}

type DocumentResponse struct {
	DocID        string               `json:"doc_id"`
	Filename     string               `json:"filename"`
	Status       store.DocumentStatus `json:"status"`
	QualityScore int                  `json:"quality_score"`
}

func (h *APIHandler) GetDocumentHandler(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")

	doc, err := h.documents.Get(docID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			http.Error(w, "Document not found", http.StatusNotFound)
			return
		}
		log.Printf("Error getting document %s: %v", docID, err)
		http.Error(w, "Failed to get document", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(DocumentResponse{
		DocID:        doc.ID,
		Filename:     doc.Filename,
		Status:       doc.Status,
		QualityScore: doc.QualityScore,
	})
}

type DocumentListResponse struct {
	Documents []store.Document `json:"documents"`
}

func (h *APIHandler) ListDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get("session_id")
	if sessionID == "" {
		http.Error(w, "session_id header is required", http.StatusBadRequest)
		return
	}

	docs, err := h.documents.List(sessionID)
	if err != nil {
		log.Printf("Error listing documents for session %s: %v", sessionID, err)
		http.Error(w, "Failed to list documents", http.StatusInternalServerError)
		return
	}
	if docs == nil {
		docs = []store.Document{}
	}
	json.NewEncoder(w).Encode(DocumentListResponse{Documents: docs})
}

type FeedbackRequest struct {
	Rating int `json:"rating"`
}

func (h *APIHandler) DocumentFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")

	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	err := h.documents.AddFeedback(docID, req.Rating)
	switch {
	case errors.Is(err, core.ErrInvalidRating):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, core.ErrNotFound):
		http.Error(w, "Document not found", http.StatusNotFound)
	case err != nil:
		log.Printf("Error recording feedback for document %s: %v", docID, err)
		http.Error(w, "Failed to record feedback", http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

type QuizCreateResponse struct {
	QuizID string          `json:"quiz_id"`
	Status store.JobStatus `json:"status"`
}

func (h *APIHandler) CreateQuizHandler(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")

	var req core.QuizRequest
	if r.Body != http.NoBody {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	job, err := h.generation.CreateQuizJob(docID, req)
	if err != nil {
		h.writeJobCreateError(w, docID, err)
		return
	}
	json.NewEncoder(w).Encode(QuizCreateResponse{QuizID: job.ID, Status: job.Status})
}

type QuizStatusResponse struct {
	QuizID    string            `json:"quiz_id"`
	Status    store.JobStatus   `json:"status"`
	Questions []json.RawMessage `json:"questions"`
}

func (h *APIHandler) QuizStatusHandler(w http.ResponseWriter, r *http.Request) {
	quizID := chi.URLParam(r, "quizID")

	job, err := h.generation.GetJob(quizID, store.JobKindQuiz)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			http.Error(w, "Quiz not found", http.StatusNotFound)
			return
		}
		log.Printf("Error getting quiz %s: %v", quizID, err)
		http.Error(w, "Failed to get quiz status", http.StatusInternalServerError)
		return
	}

	resp := QuizStatusResponse{QuizID: job.ID, Status: job.Status}
	if job.Status == store.JobStatusReady {
		resp.Questions = job.Items
	}
	json.NewEncoder(w).Encode(resp)
}

type FlashcardCreateResponse struct {
	FlashcardsID string          `json:"flashcards_id"`
	Status       store.JobStatus `json:"status"`
}

func (h *APIHandler) CreateFlashcardsHandler(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")

	var req core.FlashcardRequest
	if r.Body != http.NoBody {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	job, err := h.generation.CreateFlashcardJob(docID, req)
	if err != nil {
		h.writeJobCreateError(w, docID, err)
		return
	}
	json.NewEncoder(w).Encode(FlashcardCreateResponse{FlashcardsID: job.ID, Status: job.Status})
}

type FlashcardStatusResponse struct {
	FlashcardsID string            `json:"flashcards_id"`
	Status       store.JobStatus   `json:"status"`
	Flashcards   []json.RawMessage `json:"flashcards"`
}

func (h *APIHandler) FlashcardStatusHandler(w http.ResponseWriter, r *http.Request) {
	flashcardsID := chi.URLParam(r, "flashcardsID")

	job, err := h.generation.GetJob(flashcardsID, store.JobKindFlashcards)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			http.Error(w, "Flashcards not found", http.StatusNotFound)
			return
		}
		log.Printf("Error getting flashcards %s: %v", flashcardsID, err)
		http.Error(w, "Failed to get flashcards status", http.StatusInternalServerError)
		return
	}

	resp := FlashcardStatusResponse{FlashcardsID: job.ID, Status: job.Status}
	if job.Status == store.JobStatusReady {
		resp.Flashcards = job.Items
	}
	json.NewEncoder(w).Encode(resp)
}

func (h *APIHandler) writeJobCreateError(w http.ResponseWriter, docID string, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		http.Error(w, "Document not found", http.StatusNotFound)
	case errors.Is(err, core.ErrDocumentNotReady), errors.Is(err, core.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Printf("Error creating generation job for document %s: %v", docID, err)
		http.Error(w, "Failed to create generation job", http.StatusInternalServerError)
	}
}

type QueryRequest struct {
	Question string `json:"question"`
	DocID    string `json:"doc_id,omitempty"`
	TopK     int    `json:"top_k,omitempty"`
}

func (h *APIHandler) QueryHandler(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	answer, err := h.queries.Ask(r.Context(), req.Question, req.DocID, req.TopK)
	if err != nil {
		var unsafeErr *safety.UnsafeContentError
		switch {
		case errors.Is(err, core.ErrQueryTooShort):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.As(err, &unsafeErr):
			http.Error(w, unsafeErr.Error(), http.StatusBadRequest)
		default:
			log.Printf("Error answering query: %v", err)
			http.Error(w, "Failed to answer query", http.StatusInternalServerError)
		}
		return
	}
	json.NewEncoder(w).Encode(answer)
}
