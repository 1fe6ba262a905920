// Package main provides the sync CLI for the shopping assistant knowledge base.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/omnicart/assistant/internal/blob"
	"github.com/omnicart/assistant/internal/catalog"
	"github.com/omnicart/assistant/internal/corpus"
	"github.com/omnicart/assistant/internal/embedding"
	"github.com/omnicart/assistant/internal/indexer"
	"github.com/omnicart/assistant/internal/knowledge"
)

var rootCmd = &cobra.Command{
	Use:   "omnicart-sync",
	Short: "OmniCart shopping assistant knowledge base tool",
	Long:  "CLI tool for rebuilding and inspecting the assistant's corpus snapshots and embedding index",
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Rebuild corpus snapshots and refresh the embedding index",
	Long: `Rebuilds the denormalized product and shop corpora from the catalog and
refreshes the knowledge index, reusing embeddings for unchanged entries.

This command:
1. Connects to MongoDB and reads all products with their owning shop
2. Builds the product corpus with similarity cross-references
3. Builds the shop corpus from the product corpus
4. Flattens both into knowledge entries and embeds changed entries only
5. Replaces the persisted JSON documents atomically

Environment variables:
  MONGODB_URI    MongoDB connection string (default: mongodb://localhost:27017)
  MONGODB_DB     Database name (default: omnicart)
  DATA_DIR       Directory for persisted JSON documents (default: data)
  OPENAI_API_KEY OpenAI API key for embeddings (required)`,
	RunE: runSync,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print corpus and index statistics",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	mongoURI := getEnv("MONGODB_URI", "mongodb://localhost:27017")
	mongoDB := getEnv("MONGODB_DB", "omnicart")
	dataDir := getEnv("DATA_DIR", "data")

	fmt.Println("Starting sync...")
	fmt.Println()

	fmt.Printf("Connecting to MongoDB at %s...\n", mongoURI)
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	store, err := catalog.NewMongoStore(connectCtx, mongoURI, mongoDB)
	cancel()
	if err != nil {
		return fmt.Errorf("connect to catalog store: %w", err)
	}
	defer store.Close(context.Background())

	blobs, err := blob.NewStore(dataDir)
	if err != nil {
		return fmt.Errorf("open data directory: %w", err)
	}

	embeddingClient, err := embedding.NewClient()
	if err != nil {
		return fmt.Errorf("create embedding client: %w", err)
	}
	embedder := embedding.NewEmbedder(embeddingClient)

	builder := corpus.NewBuilder(store, corpus.DefaultConfig(), nil)
	refresher := knowledge.NewRefresher(blobs, embedder, nil)
	pipeline := indexer.NewPipeline(builder, blobs, refresher, nil)

	result, err := pipeline.Run(ctx)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Println()
	fmt.Printf("Sync complete in %s\n", result.Duration.Round(time.Millisecond))
	fmt.Printf("  Products: %d\n", result.Products)
	fmt.Printf("  Shops:    %d\n", result.Shops)
	fmt.Printf("  Entries:  %d\n", result.Entries)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	dataDir := getEnv("DATA_DIR", "data")

	blobs, err := blob.NewStore(dataDir)
	if err != nil {
		return fmt.Errorf("open data directory: %w", err)
	}

	var products corpus.ProductCorpus
	if err := blobs.Read(blob.ProductCorpusDoc, &products); err != nil {
		fmt.Println("Product corpus: not built")
	} else {
		fmt.Printf("Product corpus: %d products, generated %s\n",
			len(products.Products), products.GeneratedAt.Format(time.RFC3339))
	}

	var shops corpus.ShopCorpus
	if err := blobs.Read(blob.ShopCorpusDoc, &shops); err != nil {
		fmt.Println("Shop corpus:    not built")
	} else {
		fmt.Printf("Shop corpus:    %d shops, generated %s\n",
			len(shops.Shops), shops.GeneratedAt.Format(time.RFC3339))
	}

	var idx knowledge.Index
	if err := blobs.Read(blob.KnowledgeIndexDoc, &idx); err != nil {
		fmt.Println("Knowledge index: not built")
	} else {
		embedded := 0
		for _, rec := range idx.Entries {
			if len(rec.Embedding) > 0 {
				embedded++
			}
		}
		fmt.Printf("Knowledge index: %d entries (%d embedded, model %s), generated %s\n",
			len(idx.Entries), embedded, idx.EmbeddingModel, idx.GeneratedAt.Format(time.RFC3339))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
