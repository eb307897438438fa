package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studyforge.io/quiz-service/internal/api"
	"studyforge.io/quiz-service/internal/config"
	"studyforge.io/quiz-service/internal/core"
	"studyforge.io/quiz-service/internal/ingest"
	"studyforge.io/quiz-service/internal/llm"
	"studyforge.io/quiz-service/internal/pipeline"
	"studyforge.io/quiz-service/internal/safety"
	"studyforge.io/quiz-service/internal/store"
	"studyforge.io/quiz-service/internal/vectorstore"
)

func main() {
	// Load configuration
	config.LoadConfig()

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if config.AppConfig.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	// Initialize job/content store
	dataStore, err := newStore()
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer dataStore.Close()

	// Initialize LLM service (generator + embedder)
	ctx := context.Background()
	llmService, err := llm.NewService(ctx, config.AppConfig.GeminiAPIKey)
	if err != nil {
		log.Fatalf("Failed to initialize LLM service: %v", err)
	}
	defer llmService.Close()

	// Similarity search over the LLM embedder
	vectors := vectorstore.NewMemory(llmService)

	// Safety filter for the query path
	ruleFile, err := safety.LoadRuleFile(config.AppConfig.SafetyRulesFile)
	if err != nil {
		log.Fatalf("Failed to load safety rules: %v", err)
	}
	safetyFilter, err := safety.New(safety.Mode(config.AppConfig.SafetyMode), ruleFile.Placeholder, ruleFile.Rules)
	if err != nil {
		log.Fatalf("Failed to initialize safety filter: %v", err)
	}

	// Core services
	documentService := core.NewDocumentService(dataStore, config.AppConfig.UploadDir)
	generationService := core.NewGenerationService(dataStore, vectors, llmService, config.AppConfig.JobTimeout)
	queryService := core.NewQueryService(vectors, llmService, pipeline.NewEmbeddingScorer(llmService), safetyFilter)

	// Ingestion orchestrator: polling scan + bounded worker pool
	orchestrator := core.NewOrchestrator(dataStore, vectors, ingest.NewTextExtractor(), config.AppConfig.PollInterval, config.AppConfig.WorkerCount)
	schedulerCtx, stopScheduler := context.WithCancel(ctx)
	defer stopScheduler()
	orchestrator.Start(schedulerCtx)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(documentService, generationService, queryService)
	router := api.NewRouter(apiHandler)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // LLM-backed query path can take time
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Stop discovering new work, then give active connections time to finish.
	stopScheduler()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting gracefully")
}

func newStore() (store.Store, error) {
	switch config.AppConfig.StoreBackend {
	case "memory":
		return store.NewMemoryStore(), nil
	case "sqlite", "":
		return store.NewSQLiteStore(config.AppConfig.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown store backend %q", config.AppConfig.StoreBackend)
	}
}
