package core

import (
	"context"
	"log"
	"strconv"
	"time"

	"studyforge.io/quiz-service/internal/ingest"
	"studyforge.io/quiz-service/internal/pipeline"
	"studyforge.io/quiz-service/internal/store"
	"studyforge.io/quiz-service/internal/vectorstore"
)

// Orchestrator discovers newly uploaded documents on a fixed polling
// interval and processes them on a bounded worker pool. A document is
// claimed with an atomic status flip before dispatch, so two concurrent
// scans can never hand the same document to two workers.
type Orchestrator struct {
	store     store.Store
	vectors   vectorstore.Store
	extractor ingest.Extractor
	interval  time.Duration
	slots     chan struct{}
}

func NewOrchestrator(st store.Store, vectors vectorstore.Store, extractor ingest.Extractor, interval time.Duration, workers int) *Orchestrator {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		store:     st,
		vectors:   vectors,
		extractor: extractor,
		interval:  interval,
		slots:     make(chan struct{}, workers),
	}
}

// Start runs the polling loop until ctx is cancelled. Dispatch never blocks
// the scan: workers wait on the pool slot in their own goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(o.interval)
		defer ticker.Stop()

		log.Printf("[PollingWorker] Scanning for uploaded documents every %s", o.interval)
		for {
			select {
			case <-ctx.Done():
				log.Println("[PollingWorker] Stopping")
				return
			case <-ticker.C:
				o.ScanOnce(ctx)
			}
		}
	}()
}

// ScanOnce claims every currently UPLOADED document and dispatches it.
func (o *Orchestrator) ScanOnce(ctx context.Context) {
	docs, err := o.store.ListDocumentsByStatus(store.DocStatusUploaded)
	if err != nil {
		log.Printf("[PollingWorker] Error polling for documents: %v", err)
		return
	}
	if len(docs) == 0 {
		return
	}

	log.Printf("[PollingWorker] Found %d documents to process", len(docs))
	for _, doc := range docs {
		claimed, err := o.store.ClaimDocument(doc.ID, store.DocStatusUploaded, store.DocStatusProcessing)
		if err != nil {
			log.Printf("[PollingWorker] Failed to claim document %s: %v", doc.ID, err)
			continue
		}
		if !claimed {
			// Another scan got there first.
			continue
		}
		o.dispatch(ctx, doc)
	}
}

func (o *Orchestrator) dispatch(ctx context.Context, doc store.Document) {
	go func() {
		select {
		case o.slots <- struct{}{}:
		case <-ctx.Done():
			return
		}
		defer func() { <-o.slots }()

		defer func() {
			if r := recover(); r != nil {
				log.Printf("[Worker] Panic while processing document %s: %v", doc.ID, r)
				o.failDocument(doc.ID)
			}
		}()

		o.process(ctx, doc)
	}()
}

// process runs the ingestion work for one claimed document: extract and
// chunk, embed and index every chunk, persist the chunk list, then mark
// PROCESSED. Any error marks FAILED and aborts the remaining steps; already
// indexed chunks from a partial failure are not rolled back.
func (o *Orchestrator) process(ctx context.Context, doc store.Document) {
	log.Printf("[Worker] Starting processing for document: %s", doc.ID)

	segments, err := o.extractor.Extract(doc.FilePath, doc.Filename)
	if err != nil {
		log.Printf("[Worker] Failed to extract chunks from %s: %v", doc.ID, err)
		o.failDocument(doc.ID)
		return
	}
	if len(segments) == 0 {
		// An unreadable document is a failure, not a success with no chunks.
		log.Printf("[Worker] Document %s produced no chunks. Marking FAILED.", doc.ID)
		o.failDocument(doc.ID)
		return
	}

	chunks := make([]store.Chunk, 0, len(segments))
	for _, seg := range segments {
		chunkID := ChunkID(doc.ID, seg.Ordinal)
		metadata := map[string]string{
			"doc_id":       doc.ID,
			"paragraph_id": strconv.Itoa(seg.Ordinal),
		}
		metadata[pipeline.SourceMetadataKey] = doc.Filename
		if err := o.vectors.Upsert(ctx, seg.Text, metadata, chunkID); err != nil {
			log.Printf("[Worker] Failed to index chunk %s: %v", chunkID, err)
			o.failDocument(doc.ID)
			return
		}
		chunks = append(chunks, store.Chunk{
			DocID:       doc.ID,
			Ordinal:     seg.Ordinal,
			Text:        seg.Text,
			StartOffset: seg.StartOffset,
			EndOffset:   seg.EndOffset,
		})
	}

	if err := o.store.AddChunks(doc.ID, chunks); err != nil {
		log.Printf("[Worker] Failed to persist chunks for %s: %v", doc.ID, err)
		o.failDocument(doc.ID)
		return
	}

	if err := o.store.UpdateDocumentStatus(doc.ID, store.DocStatusProcessed); err != nil {
		log.Printf("[Worker] Failed to mark document %s as PROCESSED: %v", doc.ID, err)
		return
	}
	log.Printf("[Worker] Successfully processed document: %s (%d chunks)", doc.ID, len(chunks))
}

func (o *Orchestrator) failDocument(docID string) {
	if err := o.store.UpdateDocumentStatus(docID, store.DocStatusFailed); err != nil {
		log.Printf("[Worker] Failed to mark document %s as FAILED: %v", docID, err)
	}
}

// ChunkID is the composite identifier the similarity index uses for one
// chunk of one document.
func ChunkID(docID string, ordinal int) string {
	return docID + "_" + strconv.Itoa(ordinal)
}
