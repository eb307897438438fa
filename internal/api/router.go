package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Document routes
	r.Post("/documents", apiHandler.UploadDocumentHandler)
	r.Get("/documents", apiHandler.ListDocumentsHandler)
	r.Get("/documents/{docID}", apiHandler.GetDocumentHandler)
	r.Post("/documents/{docID}/feedback", apiHandler.DocumentFeedbackHandler)

	// Generation job routes
	r.Post("/documents/{docID}/quiz", apiHandler.CreateQuizHandler)
	r.Get("/quiz/{quizID}/status", apiHandler.QuizStatusHandler)
	r.Post("/documents/{docID}/flashcards", apiHandler.CreateFlashcardsHandler)
	r.Get("/flashcards/{flashcardsID}/status", apiHandler.FlashcardStatusHandler)

	// Query route
	r.Post("/query", apiHandler.QueryHandler)

	return r
}
