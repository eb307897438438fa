package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore backs the Store interface with a SQLite database. The schema
// is bootstrapped on open so a fresh database file works out of the box.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS documents (
        id TEXT PRIMARY KEY, -- UUID
        filename TEXT NOT NULL,
        file_path TEXT NOT NULL,
        session_id TEXT,
        status TEXT NOT NULL CHECK (status IN ('UPLOADED', 'PROCESSING', 'PROCESSED', 'FAILED')),
        quality_score INTEGER NOT NULL DEFAULT 0,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS chunks (
        doc_id TEXT NOT NULL,
        ordinal INTEGER NOT NULL,
        content TEXT NOT NULL,
        start_offset INTEGER NOT NULL,
        end_offset INTEGER NOT NULL,
        PRIMARY KEY (doc_id, ordinal),
        FOREIGN KEY (doc_id) REFERENCES documents (id)
    );

    CREATE TABLE IF NOT EXISTS generation_jobs (
        id TEXT PRIMARY KEY, -- derived idempotency key
        doc_id TEXT NOT NULL,
        kind TEXT NOT NULL CHECK (kind IN ('quiz', 'flashcards')),
        status TEXT NOT NULL CHECK (status IN ('GENERATING', 'READY', 'FAILED')),
        request_json TEXT NOT NULL,
        items_json TEXT,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (doc_id) REFERENCES documents (id)
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// Document methods

func (s *SQLiteStore) CreateDocument(doc *Document) error {
	existing, err := s.GetDocument(doc.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		log.Printf("Warning: document %s already exists, overwriting", doc.ID)
	}

	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	stmt, err := s.db.Prepare("INSERT OR REPLACE INTO documents (id, filename, file_path, session_id, status, quality_score, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare document insert: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(doc.ID, doc.Filename, doc.FilePath, nullable(doc.SessionID), string(doc.Status), doc.QualityScore, doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to execute document insert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetDocument(docID string) (*Document, error) {
	row := s.db.QueryRow("SELECT id, filename, file_path, session_id, status, quality_score, created_at FROM documents WHERE id = ?", docID)
	doc, err := scanDocument(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	return doc, nil
}

func (s *SQLiteStore) ListDocumentsByStatus(status DocumentStatus) ([]Document, error) {
	return s.listDocuments("SELECT id, filename, file_path, session_id, status, quality_score, created_at FROM documents WHERE status = ? ORDER BY created_at ASC", string(status))
}

func (s *SQLiteStore) ListDocumentsBySession(sessionID string) ([]Document, error) {
	return s.listDocuments("SELECT id, filename, file_path, session_id, status, quality_score, created_at FROM documents WHERE session_id = ? ORDER BY created_at ASC", sessionID)
}

func (s *SQLiteStore) listDocuments(query string, arg any) ([]Document, error) {
	rows, err := s.db.Query(query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(r rowScanner) (*Document, error) {
	var doc Document
	var sessionID sql.NullString
	var status string
	if err := r.Scan(&doc.ID, &doc.Filename, &doc.FilePath, &sessionID, &status, &doc.QualityScore, &doc.CreatedAt); err != nil {
		return nil, err
	}
	if sessionID.Valid {
		doc.SessionID = sessionID.String
	}
	doc.Status = DocumentStatus(status)
	return &doc, nil
}

func (s *SQLiteStore) UpdateDocumentStatus(docID string, status DocumentStatus) error {
	res, err := s.db.Exec("UPDATE documents SET status = ? WHERE id = ?", string(status), docID)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		log.Printf("Warning: document %s not found for status update to %s", docID, status)
	}
	return nil
}

// ClaimDocument relies on the UPDATE being a single atomic statement, so
// two concurrent scans can never both claim the same document.
func (s *SQLiteStore) ClaimDocument(docID string, from, to DocumentStatus) (bool, error) {
	res, err := s.db.Exec("UPDATE documents SET status = ? WHERE id = ? AND status = ?", string(to), docID, string(from))
	if err != nil {
		return false, fmt.Errorf("failed to claim document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read claim result: %w", err)
	}
	return affected == 1, nil
}

func (s *SQLiteStore) AddFeedback(docID string, rating int) error {
	res, err := s.db.Exec("UPDATE documents SET quality_score = quality_score + ? WHERE id = ?", rating, docID)
	if err != nil {
		return fmt.Errorf("failed to update quality score: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		log.Printf("Warning: document %s not found for feedback", docID)
	}
	return nil
}

// Chunk methods

func (s *SQLiteStore) AddChunks(docID string, chunks []Chunk) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin chunk transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO chunks (doc_id, ordinal, content, start_offset, end_offset) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		if _, err := stmt.Exec(docID, chunk.Ordinal, chunk.Text, chunk.StartOffset, chunk.EndOffset); err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", chunk.Ordinal, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetChunks(docID string) ([]Chunk, error) {
	rows, err := s.db.Query("SELECT doc_id, ordinal, content, start_offset, end_offset FROM chunks WHERE doc_id = ? ORDER BY ordinal ASC", docID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var chunk Chunk
		if err := rows.Scan(&chunk.DocID, &chunk.Ordinal, &chunk.Text, &chunk.StartOffset, &chunk.EndOffset); err != nil {
			return nil, fmt.Errorf("failed to scan chunk row: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// Generation job methods

func (s *SQLiteStore) CreateJobIfAbsent(job *GenerationJob) (*GenerationJob, bool, error) {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	// INSERT OR IGNORE is atomic, so two racing submissions with the same
	// derived id observe exactly one successful insert.
	res, err := s.db.Exec("INSERT OR IGNORE INTO generation_jobs (id, doc_id, kind, status, request_json, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		job.ID, job.DocID, string(job.Kind), string(job.Status), job.RequestJSON, job.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read job insert result: %w", err)
	}

	stored, err := s.GetJob(job.ID)
	if err != nil {
		return nil, false, err
	}
	if stored == nil {
		return nil, false, fmt.Errorf("job %s missing immediately after insert", job.ID)
	}
	return stored, affected == 1, nil
}

func (s *SQLiteStore) GetJob(jobID string) (*GenerationJob, error) {
	var job GenerationJob
	var kind, status string
	var itemsJSON sql.NullString
	err := s.db.QueryRow("SELECT id, doc_id, kind, status, request_json, items_json, created_at FROM generation_jobs WHERE id = ?", jobID).
		Scan(&job.ID, &job.DocID, &kind, &status, &job.RequestJSON, &itemsJSON, &job.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to query job: %w", err)
	}
	job.Kind = JobKind(kind)
	job.Status = JobStatus(status)

	if itemsJSON.Valid && itemsJSON.String != "" {
		if err := json.Unmarshal([]byte(itemsJSON.String), &job.Items); err != nil {
			log.Printf("Warning: failed to unmarshal items for job %s: %v. Payload will be empty.", job.ID, err)
			job.Items = nil
		}
	}
	return &job, nil
}

func (s *SQLiteStore) UpdateJobStatus(jobID string, status JobStatus, items []json.RawMessage) error {
	var res sql.Result
	var err error
	if items != nil {
		itemsBytes, merr := json.Marshal(items)
		if merr != nil {
			return fmt.Errorf("failed to marshal job items: %w", merr)
		}
		res, err = s.db.Exec("UPDATE generation_jobs SET status = ?, items_json = ? WHERE id = ?", string(status), string(itemsBytes), jobID)
	} else {
		res, err = s.db.Exec("UPDATE generation_jobs SET status = ? WHERE id = ?", string(status), jobID)
	}
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		log.Printf("Warning: job %s not found for status update to %s", jobID, status)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
