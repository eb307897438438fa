package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"studyforge.io/quiz-service/internal/pipeline"
	"studyforge.io/quiz-service/internal/store"
	"studyforge.io/quiz-service/internal/vectorstore"
)

// broadTopK is how many chunks a generation job pulls from the document on
// the query-less path.
const broadTopK = 10

// GenerationService creates quiz and flashcard jobs idempotently and runs
// their background workers. A created job is dispatched fire-and-forget;
// resubmission of an identical request returns the existing record without a
// second execution, even when it has FAILED.
type GenerationService struct {
	store      store.Store
	vectors    vectorstore.Store
	generator  pipeline.Generator
	jobTimeout time.Duration
}

func NewGenerationService(st store.Store, vectors vectorstore.Store, generator pipeline.Generator, jobTimeout time.Duration) *GenerationService {
	if jobTimeout <= 0 {
		jobTimeout = 2 * time.Minute
	}
	return &GenerationService{
		store:      st,
		vectors:    vectors,
		generator:  generator,
		jobTimeout: jobTimeout,
	}
}

func (s *GenerationService) CreateQuizJob(docID string, req QuizRequest) (*store.GenerationJob, error) {
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.createJob(docID, store.JobKindQuiz, req.params())
}

func (s *GenerationService) CreateFlashcardJob(docID string, req FlashcardRequest) (*store.GenerationJob, error) {
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.createJob(docID, store.JobKindFlashcards, req.params())
}

func (s *GenerationService) createJob(docID string, kind store.JobKind, params map[string]any) (*store.GenerationJob, error) {
	doc, err := s.store.GetDocument(docID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrNotFound
	}
	if doc.Status != store.DocStatusProcessed {
		return nil, fmt.Errorf("%w: status is %s", ErrDocumentNotReady, doc.Status)
	}

	jobID, err := DeriveJobID(kind, docID, params)
	if err != nil {
		return nil, err
	}
	requestJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize request params: %w", err)
	}

	job, created, err := s.store.CreateJobIfAbsent(&store.GenerationJob{
		ID:          jobID,
		DocID:       docID,
		Kind:        kind,
		Status:      store.JobStatusGenerating,
		RequestJSON: string(requestJSON),
	})
	if err != nil {
		return nil, err
	}
	if !created {
		// Idempotent resubmission: report the current status, no redispatch.
		log.Printf("Job %s already exists with status %s, returning existing record", jobID, job.Status)
		return job, nil
	}

	go s.Run(jobID)
	return job, nil
}

// GetJob returns a job for the status endpoints. Kind narrows the lookup so
// a quiz id cannot be read through the flashcards endpoint.
func (s *GenerationService) GetJob(jobID string, kind store.JobKind) (*store.GenerationJob, error) {
	job, err := s.store.GetJob(jobID)
	if err != nil {
		return nil, err
	}
	if job == nil || job.Kind != kind {
		return nil, ErrNotFound
	}
	return job, nil
}

// Run executes one generation job to a terminal state. Every failure path,
// panics included, is caught here and recorded as FAILED; nothing propagates
// out of the worker.
func (s *GenerationService) Run(jobID string) {
	tag := "[GenerationWorker]"

	defer func() {
		if r := recover(); r != nil {
			log.Printf("%s Panic while generating %s: %v", tag, jobID, r)
			s.fail(jobID)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	job, err := s.store.GetJob(jobID)
	if err != nil || job == nil {
		// A job id must never be dispatched without a backing record.
		log.Printf("%s Job %s not found: %v", tag, jobID, err)
		return
	}
	log.Printf("%s Starting %s generation for job %s on doc %s", tag, job.Kind, jobID, job.DocID)

	// Broad retrieval across the whole document: generation summarizes the
	// source, it does not answer a topical query.
	results, err := s.vectors.Query(ctx, "", broadTopK, map[string]string{"doc_id": job.DocID})
	if err != nil {
		log.Printf("%s Retrieval failed for job %s: %v", tag, jobID, err)
		s.fail(jobID)
		return
	}
	if len(results) == 0 {
		log.Printf("%s No results retrieved for job %s. Aborting.", tag, jobID)
		s.fail(jobID)
		return
	}

	chunks := make([]pipeline.ScoredChunk, 0, len(results))
	for _, r := range results {
		chunks = append(chunks, pipeline.ScoredChunk{ID: r.ID, Text: r.Text, Metadata: r.Metadata, Score: r.Score})
	}
	contextBlock := pipeline.JoinContext(pipeline.Assemble(chunks))

	instruction, err := s.instructionFor(job)
	if err != nil {
		log.Printf("%s Bad request params for job %s: %v", tag, jobID, err)
		s.fail(jobID)
		return
	}
	prompt := pipeline.Compose(contextBlock, instruction)

	response, err := s.generator.Complete(ctx, prompt)
	if err != nil {
		log.Printf("%s Generator call failed for job %s: %v", tag, jobID, err)
		s.fail(jobID)
		return
	}

	items, err := pipeline.ExtractItems(response, payloadKey(job.Kind))
	if err != nil {
		log.Printf("%s Failed to parse or validate response for job %s: %v", tag, jobID, err)
		s.fail(jobID)
		return
	}

	if err := s.store.UpdateJobStatus(jobID, store.JobStatusReady, items); err != nil {
		log.Printf("%s Failed to store result for job %s: %v", tag, jobID, err)
		return
	}
	log.Printf("%s Successfully generated job %s (%d items)", tag, jobID, len(items))
}

func (s *GenerationService) instructionFor(job *store.GenerationJob) (string, error) {
	switch job.Kind {
	case store.JobKindQuiz:
		var req QuizRequest
		if err := json.Unmarshal([]byte(job.RequestJSON), &req); err != nil {
			return "", fmt.Errorf("failed to decode quiz params: %w", err)
		}
		return fmt.Sprintf("Generate a %s quiz with %d questions in JSON format.", req.Difficulty, req.QuestionCount), nil
	case store.JobKindFlashcards:
		var req FlashcardRequest
		if err := json.Unmarshal([]byte(job.RequestJSON), &req); err != nil {
			return "", fmt.Errorf("failed to decode flashcard params: %w", err)
		}
		return fmt.Sprintf("Generate %d flashcards in JSON format. Each flashcard should have a 'front' and a 'back'.", req.Count), nil
	default:
		return "", fmt.Errorf("unknown job kind %q", job.Kind)
	}
}

func payloadKey(kind store.JobKind) string {
	if kind == store.JobKindFlashcards {
		return "flashcards"
	}
	return "quiz"
}

func (s *GenerationService) fail(jobID string) {
	if err := s.store.UpdateJobStatus(jobID, store.JobStatusFailed, nil); err != nil {
		log.Printf("[GenerationWorker] Failed to mark job %s as FAILED: %v", jobID, err)
	}
}
