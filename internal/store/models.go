package store

import (
	"encoding/json"
	"time"
)

// DocumentStatus tracks a document through the ingestion lifecycle.
// Transitions only move forward: UPLOADED -> PROCESSING -> PROCESSED | FAILED.
type DocumentStatus string

const (
	DocStatusUploaded   DocumentStatus = "UPLOADED"
	DocStatusProcessing DocumentStatus = "PROCESSING"
	DocStatusProcessed  DocumentStatus = "PROCESSED"
	DocStatusFailed     DocumentStatus = "FAILED"
)

// JobStatus tracks a generation job. READY and FAILED are terminal.
type JobStatus string

const (
	JobStatusGenerating JobStatus = "GENERATING"
	JobStatusReady      JobStatus = "READY"
	JobStatusFailed     JobStatus = "FAILED"
)

// JobKind distinguishes the quiz and flashcard job namespaces. The kind is
// part of the derived job identifier.
type JobKind string

const (
	JobKindQuiz       JobKind = "quiz"
	JobKindFlashcards JobKind = "flashcards"
)

type Document struct {
	ID           string         `json:"doc_id"`
	Filename     string         `json:"filename"`
	FilePath     string         `json:"-"` // Local storage location, not exposed
	SessionID    string         `json:"-"`
	Status       DocumentStatus `json:"status"`
	QualityScore int            `json:"quality_score"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Chunk is one retrievable span of a document's text. Chunks are produced
// once during processing and immutable afterwards. The similarity index
// refers to them via the composite id "{doc_id}_{ordinal}".
type Chunk struct {
	DocID       string `json:"doc_id"`
	Ordinal     int    `json:"paragraph_id"`
	Text        string `json:"text"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
}

// GenerationJob is a quiz or flashcard generation request, in flight or
// completed. Its ID is a pure function of (kind, doc id, request params),
// which is what makes resubmission of an identical request idempotent.
type GenerationJob struct {
	ID          string            `json:"id"`
	DocID       string            `json:"doc_id"`
	Kind        JobKind           `json:"kind"`
	Status      JobStatus         `json:"status"`
	RequestJSON string            `json:"-"` // Canonical serialized request params
	Items       []json.RawMessage `json:"items,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}
