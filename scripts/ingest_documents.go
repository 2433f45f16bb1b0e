package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"

	"ai-interviewer/internal/config"
	"ai-interviewer/internal/services"
)

// Bulk-ingests a directory of knowledge-base files (PDF, txt, markdown).
// Usage: go run ./scripts <directory>
func main() {
	log.Println("🚀 Starting knowledge-base ingestion...")

	dir := "./reference_docs"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	// Load configuration
	cfg := config.Load()

	// Initialize services
	geminiService, err := services.NewGeminiService(cfg.Gemini.APIKey)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Gemini: %v", err)
	}

	qdrantService, err := services.NewQdrantService(
		cfg.Qdrant.URL,
		cfg.Qdrant.APIKey,
		cfg.Qdrant.Collection,
	)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Qdrant: %v", err)
	}

	if err := qdrantService.InitCollection(); err != nil {
		log.Fatalf("❌ Failed to initialize collection: %v", err)
	}

	knowledgeService := services.NewKnowledgeService(
		services.NewDocumentParser(),
		services.NewTextChunker(),
		geminiService,
		qdrantService,
		nil, // no database record keeping in script mode
		cfg.Interview,
	)

	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Fatalf("❌ Failed to read directory %s: %v", dir, err)
	}

	ctx := context.Background()
	successCount := 0
	failCount := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		log.Printf("\n📄 Processing: %s", entry.Name())

		chunks, err := knowledgeService.AddDocument(ctx, path, entry.Name())
		if err != nil {
			log.Printf("   ❌ Ingestion failed: %v", err)
			failCount++
			continue
		}

		if chunks == 0 {
			log.Printf("   ⚠️  No usable text, skipped")
			failCount++
			continue
		}

		log.Printf("   ✅ Stored %d chunks", chunks)
		successCount++
	}

	// Summary
	log.Println("\n" + strings.Repeat("=", 60))
	log.Printf("📊 Ingestion Summary:")
	log.Printf("   ✅ Successful: %d documents", successCount)
	log.Printf("   ❌ Failed: %d documents", failCount)
	log.Println(strings.Repeat("=", 60))

	if failCount > 0 {
		log.Println("⚠️  Some documents failed to ingest. Please check the logs above.")
		os.Exit(1)
	}

	log.Println("✅ All documents ingested successfully!")
}
