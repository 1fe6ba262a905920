// Package main provides the shopping assistant HTTP server.
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

	"github.com/joho/godotenv"

	"github.com/omnicart/assistant/internal/assistant"
	"github.com/omnicart/assistant/internal/blob"
	"github.com/omnicart/assistant/internal/catalog"
	"github.com/omnicart/assistant/internal/corpus"
	"github.com/omnicart/assistant/internal/embedding"
	"github.com/omnicart/assistant/internal/httpapi"
	"github.com/omnicart/assistant/internal/indexer"
	"github.com/omnicart/assistant/internal/knowledge"
	"github.com/omnicart/assistant/internal/retrieval"
)

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	// Configuration from environment
	mongoURI := getEnv("MONGODB_URI", "mongodb://localhost:27017")
	mongoDB := getEnv("MONGODB_DB", "omnicart")
	dataDir := getEnv("DATA_DIR", "data")
	port := getEnv("PORT", "8080")

	// Catalog store
	connectCtx, connectCancel := context.WithTimeout(ctx, 10*time.Second)
	store, err := catalog.NewMongoStore(connectCtx, mongoURI, mongoDB)
	connectCancel()
	if err != nil {
		log.Fatalf("failed to connect to catalog store: %v", err)
	}
	defer store.Close(context.Background())

	// Durable document store
	blobs, err := blob.NewStore(dataDir)
	if err != nil {
		log.Fatalf("failed to open data directory: %v", err)
	}

	// Embedding provider
	embeddingClient, err := embedding.NewClient()
	if err != nil {
		log.Fatalf("failed to create embedding client: %v", err)
	}
	embedder := embedding.NewEmbedder(embeddingClient)

	// Core components
	builder := corpus.NewBuilder(store, corpus.DefaultConfig(), nil)
	refresher := knowledge.NewRefresher(blobs, embedder, nil)
	retriever := retrieval.NewRetriever(embedder, retrieval.DefaultConfig())

	assistantCfg := assistant.DefaultConfig()
	if model := os.Getenv("GROQ_MODEL"); model != "" {
		assistantCfg.PrimaryModel = model
	}
	// A typed nil must not reach the interface, or the service would treat
	// the completer as configured.
	var completer assistant.Completer
	if groq := assistant.NewGroqCompleter(); groq != nil {
		completer = groq
	} else {
		log.Println("GROQ_API_KEY not set; chat requests will return the configuration-error reply")
	}
	service := assistant.NewService(completer, refresher, retriever, assistantCfg, nil)

	// Refresh corpora + index at startup without blocking readiness
	pipeline := indexer.NewPipeline(builder, blobs, refresher, nil)
	dispatcher := indexer.NewDispatcher(pipeline, 0, nil)
	defer dispatcher.Close()
	dispatcher.Dispatch()

	// HTTP surface
	mux := http.NewServeMux()
	handler := httpapi.NewHandler(service, parseTimeout(getEnv("CHAT_TIMEOUT", "")), nil)
	handler.Register(mux)

	server := &http.Server{Addr: "0.0.0.0:" + port, Handler: mux}
	go func() {
		log.Printf("Starting HTTP server on %s (chat at /chat, health at /chat/health)", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func parseTimeout(v string) time.Duration {
	if v == "" {
		return 0
	}
	var seconds int
	if _, err := fmt.Sscanf(v, "%d", &seconds); err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
