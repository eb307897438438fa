package core

import (
	"fmt"
	"io"
	"log"

	"github.com/google/uuid"
	"studyforge.io/quiz-service/internal/ingest"
	"studyforge.io/quiz-service/internal/store"
)

// DocumentService handles uploads, listings, and feedback. Processing itself
// is the Orchestrator's job; upload only persists the raw file and creates
// the UPLOADED record the polling scan discovers.
type DocumentService struct {
	store     store.Store
	uploadDir string
}

func NewDocumentService(st store.Store, uploadDir string) *DocumentService {
	return &DocumentService{store: st, uploadDir: uploadDir}
}

func (s *DocumentService) Upload(filename, sessionID string, r io.Reader) (*store.Document, error) {
	if err := ingest.ValidateFilename(filename); err != nil {
		return nil, err
	}

	docID := uuid.NewString()
	path, err := ingest.SaveRawFile(s.uploadDir, docID, filename, r)
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	doc := &store.Document{
		ID:        docID,
		Filename:  filename,
		FilePath:  path,
		SessionID: sessionID,
		Status:    store.DocStatusUploaded,
	}
	if err := s.store.CreateDocument(doc); err != nil {
		return nil, fmt.Errorf("failed to create document record: %w", err)
	}

	log.Printf("Document %s uploaded. Worker will pick it up for processing.", docID)
	return doc, nil
}

func (s *DocumentService) List(sessionID string) ([]store.Document, error) {
	return s.store.ListDocumentsBySession(sessionID)
}

func (s *DocumentService) Get(docID string) (*store.Document, error) {
	doc, err := s.store.GetDocument(docID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrNotFound
	}
	return doc, nil
}

// AddFeedback folds one bounded rating into the document's quality score.
// The running total itself is unbounded.
func (s *DocumentService) AddFeedback(docID string, rating int) error {
	if rating < -1 || rating > 1 {
		return ErrInvalidRating
	}
	doc, err := s.store.GetDocument(docID)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrNotFound
	}
	return s.store.AddFeedback(docID, rating)
}
