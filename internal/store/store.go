package store

import "encoding/json"

// Store holds document lifecycle records, their chunks, and generation jobs.
// Get methods return (nil, nil) for unknown identifiers; status updates on
// unknown identifiers are logged warnings, not errors, so a worker that
// raced a reset never crashes.
//
// Every single-record status transition is atomic with respect to concurrent
// readers and other transitions on the same record. Cross-record operations
// need no coordination.
type Store interface {
	// CreateDocument inserts a document record. A colliding identifier
	// overwrites the existing record and logs the collision; legitimate
	// collisions are prevented by uuid document ids.
	CreateDocument(doc *Document) error
	GetDocument(docID string) (*Document, error)
	ListDocumentsByStatus(status DocumentStatus) ([]Document, error)
	ListDocumentsBySession(sessionID string) ([]Document, error)
	UpdateDocumentStatus(docID string, status DocumentStatus) error

	// ClaimDocument atomically flips a document from one status to another.
	// It reports false when the document is missing or no longer in the
	// expected status, which is how the polling scan guarantees at-most-once
	// dispatch per document.
	ClaimDocument(docID string, from, to DocumentStatus) (bool, error)

	// AddFeedback folds a rating into the document's running quality score.
	AddFeedback(docID string, rating int) error

	AddChunks(docID string, chunks []Chunk) error
	GetChunks(docID string) ([]Chunk, error)

	// CreateJobIfAbsent inserts the job unless a record with the same id
	// already exists. It returns the record now in the store and whether
	// this call created it. Concurrent duplicate submissions therefore
	// observe exactly one creator.
	CreateJobIfAbsent(job *GenerationJob) (*GenerationJob, bool, error)
	GetJob(jobID string) (*GenerationJob, error)

	// UpdateJobStatus sets a job's status and, when items is non-nil,
	// replaces its result payload.
	UpdateJobStatus(jobID string, status JobStatus, items []json.RawMessage) error

	Close() error
}
