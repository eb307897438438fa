package store

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store implementation guarded by a single
// RWMutex. It is the default for tests and selectable via STORE_BACKEND.
type MemoryStore struct {
	mu        sync.RWMutex
	documents map[string]*Document
	chunks    map[string][]Chunk
	jobs      map[string]*GenerationJob
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents: make(map[string]*Document),
		chunks:    make(map[string][]Chunk),
		jobs:      make(map[string]*GenerationJob),
	}
}

func (s *MemoryStore) CreateDocument(doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.documents[doc.ID]; exists {
		log.Printf("Warning: document %s already exists, overwriting", doc.ID)
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	cp := *doc
	s.documents[doc.ID] = &cp
	return nil
}

func (s *MemoryStore) GetDocument(docID string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[docID]
	if !ok {
		return nil, nil
	}
	cp := *doc
	return &cp, nil
}

func (s *MemoryStore) ListDocumentsByStatus(status DocumentStatus) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []Document
	for _, doc := range s.documents {
		if doc.Status == status {
			docs = append(docs, *doc)
		}
	}
	return docs, nil
}

func (s *MemoryStore) ListDocumentsBySession(sessionID string) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []Document
	for _, doc := range s.documents {
		if doc.SessionID == sessionID {
			docs = append(docs, *doc)
		}
	}
	return docs, nil
}

func (s *MemoryStore) UpdateDocumentStatus(docID string, status DocumentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[docID]
	if !ok {
		log.Printf("Warning: document %s not found for status update to %s", docID, status)
		return nil
	}
	doc.Status = status
	return nil
}

func (s *MemoryStore) ClaimDocument(docID string, from, to DocumentStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[docID]
	if !ok || doc.Status != from {
		return false, nil
	}
	doc.Status = to
	return true, nil
}

func (s *MemoryStore) AddFeedback(docID string, rating int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[docID]
	if !ok {
		log.Printf("Warning: document %s not found for feedback", docID)
		return nil
	}
	doc.QualityScore += rating
	return nil
}

func (s *MemoryStore) AddChunks(docID string, chunks []Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chunks[docID] = append([]Chunk(nil), chunks...)
	return nil
}

func (s *MemoryStore) GetChunks(docID string) ([]Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]Chunk(nil), s.chunks[docID]...), nil
}

func (s *MemoryStore) CreateJobIfAbsent(job *GenerationJob) (*GenerationJob, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.jobs[job.ID]; ok {
		cp := *existing
		return &cp, false, nil
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	cp := *job
	s.jobs[job.ID] = &cp
	out := cp
	return &out, true, nil
}

func (s *MemoryStore) GetJob(jobID string) (*GenerationJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, nil
	}
	cp := *job
	return &cp, nil
}

func (s *MemoryStore) UpdateJobStatus(jobID string, status JobStatus, items []json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		log.Printf("Warning: job %s not found for status update to %s", jobID, status)
		return nil
	}
	job.Status = status
	if items != nil {
		job.Items = append([]json.RawMessage(nil), items...)
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }
