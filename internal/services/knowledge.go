package services

import (
	"context"
	"fmt"
	"log"
	"sort"

	"ai-interviewer/internal/config"
	"ai-interviewer/internal/models"
	"ai-interviewer/internal/repositories"
)

// RetrievedPassage is one ranked knowledge-base hit. Produced per query and
// never persisted.
type RetrievedPassage struct {
	Text     string
	Source   string
	Distance float32
}

// KnowledgeService is the retrieval index: ingestion of source documents and
// similarity queries over their chunks.
type KnowledgeService interface {
	AddDocument(ctx context.Context, filePath string, sourceLabel string) (int, error)
	Query(ctx context.Context, text string, topK int) ([]RetrievedPassage, error)
	ListSources(ctx context.Context) ([]models.KnowledgeSource, error)
}

type knowledgeService struct {
	parser        DocumentParser
	chunker       TextChunker
	geminiService GeminiService
	qdrantService QdrantService
	knowledgeRepo repositories.KnowledgeRepository
	chunkSize     int
	chunkOverlap  int
}

func NewKnowledgeService(
	parser DocumentParser,
	chunker TextChunker,
	geminiService GeminiService,
	qdrantService QdrantService,
	knowledgeRepo repositories.KnowledgeRepository,
	cfg config.InterviewConfig,
) KnowledgeService {
	return &knowledgeService{
		parser:        parser,
		chunker:       chunker,
		geminiService: geminiService,
		qdrantService: qdrantService,
		knowledgeRepo: knowledgeRepo,
		chunkSize:     cfg.ChunkSize,
		chunkOverlap:  cfg.ChunkOverlap,
	}
}

// AddDocument ingests one file under the given source label and returns the
// number of chunks stored. Unreadable or unsupported files report 0 chunks
// without an error; the caller decides whether that is a failure.
func (k *knowledgeService) AddDocument(ctx context.Context, filePath string, sourceLabel string) (int, error) {
	text, err := k.parser.ExtractText(filePath)
	if err != nil {
		log.Printf("⚠️  Failed to parse %s: %v\n", filePath, err)
		return 0, nil
	}

	text = CleanText(text)
	if len(text) < 10 {
		log.Printf("⚠️  Document %s has no usable text\n", filePath)
		return 0, nil
	}

	chunks := k.chunker.ChunkText(text, k.chunkSize, k.chunkOverlap)
	if len(chunks) == 0 {
		return 0, nil
	}

	for i, chunk := range chunks {
		embedding, err := k.geminiService.GenerateEmbedding(ctx, chunk)
		if err != nil {
			return 0, fmt.Errorf("failed to embed chunk %d: %w", i, err)
		}

		if err := k.qdrantService.UpsertChunk(ctx, sourceLabel, i, chunk, embedding); err != nil {
			return 0, fmt.Errorf("failed to store chunk %d: %w", i, err)
		}
	}

	if k.knowledgeRepo != nil {
		doc := &models.KnowledgeDocument{
			SourceLabel:      sourceLabel,
			OriginalFileName: sourceLabel,
			FilePath:         filePath,
			ChunkCount:       len(chunks),
		}
		if err := k.knowledgeRepo.Upsert(doc); err != nil {
			log.Printf("⚠️  Failed to record knowledge document: %v\n", err)
		}
	}

	log.Printf("✅ Ingested %s (%d chunks)\n", sourceLabel, len(chunks))
	return len(chunks), nil
}

// Query returns up to topK passages ordered ascending by relevance distance.
func (k *knowledgeService) Query(ctx context.Context, text string, topK int) ([]RetrievedPassage, error) {
	embedding, err := k.geminiService.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := k.qdrantService.SearchSimilar(ctx, embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search knowledge base: %w", err)
	}

	passages := make([]RetrievedPassage, 0, len(results))
	for _, r := range results {
		passages = append(passages, RetrievedPassage{
			Text:     r.Text,
			Source:   r.Source,
			Distance: r.Distance,
		})
	}

	sort.SliceStable(passages, func(i, j int) bool {
		return passages[i].Distance < passages[j].Distance
	})

	return passages, nil
}

// ListSources implements KnowledgeService.
func (k *knowledgeService) ListSources(ctx context.Context) ([]models.KnowledgeSource, error) {
	counts, err := k.qdrantService.CountBySource(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}

	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	sources := make([]models.KnowledgeSource, 0, len(labels))
	for _, label := range labels {
		sources = append(sources, models.KnowledgeSource{
			SourceLabel: label,
			ChunkCount:  counts[label],
		})
	}

	return sources, nil
}
