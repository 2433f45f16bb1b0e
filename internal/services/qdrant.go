package services

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

type QdrantService interface {
	InitCollection() error
	UpsertChunk(ctx context.Context, sourceLabel string, chunkIndex int, text string, embedding []float32) error
	SearchSimilar(ctx context.Context, queryEmbedding []float32, limit int) ([]SearchResult, error)
	CountBySource(ctx context.Context) (map[string]int, error)
}

// SearchResult carries one ranked hit. Distance is on a normalized scale
// where smaller means more similar (1 - cosine score).
type SearchResult struct {
	ID       string
	Distance float32
	Text     string
	Source   string
}

type qdrantService struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     uint64
}

func NewQdrantService(urlStr, apiKey, collectionName string) (QdrantService, error) {
	// Parse URL to extract host, port, and TLS usage
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	useTLS := parsed.Scheme == "https"

	// For gRPC client, use port 6334 by default (gRPC port)
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &qdrantService{
		client:         client,
		collectionName: collectionName,
		vectorSize:     768, // text-embedding-004 size
	}, nil
}

// InitCollection implements QdrantService.
func (q *qdrantService) InitCollection() error {
	ctx := context.Background()

	exists, err := q.client.CollectionExists(ctx, q.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if exists {
		log.Println("✅ Collection already exists")
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})

	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	log.Printf("✅ Qdrant collection '%s' created successfully\n", q.collectionName)
	return nil
}

// ChunkPointID derives a stable point id for a chunk of a source. The same
// source label and index always map to the same id, so re-ingesting a
// document overwrites its chunks instead of duplicating them.
func ChunkPointID(sourceLabel string, chunkIndex int) string {
	name := fmt.Sprintf("%s#%d", sourceLabel, chunkIndex)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// UpsertChunk implements QdrantService.
func (q *qdrantService) UpsertChunk(ctx context.Context, sourceLabel string, chunkIndex int, text string, embedding []float32) error {
	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(ChunkPointID(sourceLabel, chunkIndex)),
		Vectors: qdrant.NewVectors(embedding...),
		Payload: qdrant.NewValueMap(map[string]interface{}{
			"source":      sourceLabel,
			"chunk_index": chunkIndex,
			"text":        text,
		}),
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}

	return nil
}

// SearchSimilar implements QdrantService.
func (q *qdrantService) SearchSimilar(ctx context.Context, queryEmbedding []float32, limit int) ([]SearchResult, error) {
	searchResult, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collectionName,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})

	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	var results []SearchResult
	for _, point := range searchResult {
		payload := point.Payload

		result := SearchResult{
			// Cosine score is a similarity; the engine filters on distance
			Distance: 1 - point.Score,
		}

		if id := point.Id.GetUuid(); id != "" {
			result.ID = id
		}

		if text, ok := payload["text"]; ok {
			if val, ok := text.GetKind().(*qdrant.Value_StringValue); ok {
				result.Text = val.StringValue
			}
		}

		if source, ok := payload["source"]; ok {
			if val, ok := source.GetKind().(*qdrant.Value_StringValue); ok {
				result.Source = val.StringValue
			}
		}

		results = append(results, result)
	}

	return results, nil
}

// CountBySource aggregates stored chunk counts per source label.
func (q *qdrantService) CountBySource(ctx context.Context) (map[string]int, error) {
	points, err := q.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: q.collectionName,
		Limit:          qdrant.PtrOf(uint32(10000)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scroll points: %w", err)
	}

	counts := make(map[string]int)
	for _, point := range points {
		if source, ok := point.Payload["source"]; ok {
			if val, ok := source.GetKind().(*qdrant.Value_StringValue); ok {
				counts[val.StringValue]++
			}
		}
	}

	return counts, nil
}
