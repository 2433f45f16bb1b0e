package services

import (
	"context"
	"fmt"
	"log"

	"google.golang.org/genai"
)

// StreamChunk is one fragment of a streaming generation. A non-nil Err ends
// the stream; no further chunks follow it.
type StreamChunk struct {
	Text string
	Err  error
}

type GenerationOptions struct {
	SystemInstruction string
	DeepThinking      bool
	Temperature       float32
}

type GeminiService interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateText(ctx context.Context, prompt string, temperature float32) (string, error)
	GenerateJSON(ctx context.Context, prompt string, temperature float32) (string, error)
	GenerateJSONWithRetry(ctx context.Context, prompt string, temperature float32, maxRetries int) (string, error)
	StreamChat(ctx context.Context, contents []*genai.Content, opts GenerationOptions) (<-chan StreamChunk, error)
	UploadFile(ctx context.Context, filePath string, mimeType string) (string, error)
}

type geminiService struct {
	client     *genai.Client
	flashModel string
	proModel   string
	embedModel string
}

func NewGeminiService(apiKey string) (GeminiService, error) {
	ctx := context.Background()

	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &geminiService{
		client:     client,
		flashModel: "gemini-2.5-flash",
		proModel:   "gemini-2.5-pro",
		embedModel: "text-embedding-004",
	}, nil
}

// GenerateEmbedding implements GeminiService.
func (g *geminiService) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	// Truncate text if too long (max ~10000 tokens for embedding)
	if len(text) > 40000 {
		text = text[:40000]
	}

	result, err := g.client.Models.EmbedContent(ctx, g.embedModel, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	if result == nil || len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}

	return result.Embeddings[0].Values, nil
}

// GenerateText implements GeminiService.
func (g *geminiService) GenerateText(ctx context.Context, prompt string, temperature float32) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: 8192,
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.flashModel, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if resp == nil {
		return "", fmt.Errorf("no response generated (nil response)")
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("no text content in response")
	}

	return text, nil
}

// GenerateJSON generates with JSON response mode using the pro model. Used by
// report scoring where structure matters more than latency.
func (g *geminiService) GenerateJSON(ctx context.Context, prompt string, temperature float32) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		MaxOutputTokens:  8192,
		ResponseMIMEType: "application/json",
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.proModel, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("failed to generate json: %w", err)
	}

	if resp == nil {
		return "", fmt.Errorf("no response generated (nil response)")
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("no text content in response")
	}

	return text, nil
}

// GenerateJSONWithRetry implements GeminiService.
func (g *geminiService) GenerateJSONWithRetry(ctx context.Context, prompt string, temperature float32, maxRetries int) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		result, err := g.GenerateJSON(ctx, prompt, temperature)
		if err == nil {
			return result, nil
		}

		lastErr = err

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if attempt < maxRetries {
			log.Printf("⚠️ Attempt %d failed: %v. Retrying...\n", attempt, err)
		}
	}

	return "", fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}

// StreamChat drives a streaming generation over the assembled contents. The
// returned channel delivers fragments in order and is closed once the stream
// is exhausted, errors out, or the context is cancelled.
func (g *geminiService) StreamChat(ctx context.Context, contents []*genai.Content, opts GenerationOptions) (<-chan StreamChunk, error) {
	model := g.flashModel
	if opts.DeepThinking {
		model = g.proModel
	}

	temperature := opts.Temperature
	if temperature == 0 {
		temperature = 0.7
	}

	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: 8192,
	}
	if opts.SystemInstruction != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: opts.SystemInstruction}},
		}
	}

	chunks := make(chan StreamChunk, 8)

	go func() {
		defer close(chunks)

		for resp, err := range g.client.Models.GenerateContentStream(ctx, model, contents, config) {
			if err != nil {
				select {
				case chunks <- StreamChunk{Err: fmt.Errorf("generation stream failed: %w", err)}:
				case <-ctx.Done():
				}
				return
			}

			text := resp.Text()
			if text == "" {
				continue
			}

			select {
			case chunks <- StreamChunk{Text: text}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return chunks, nil
}

// UploadFile pushes a local file to the Gemini Files API and returns its URI
// for use as a file part in later turns.
func (g *geminiService) UploadFile(ctx context.Context, filePath string, mimeType string) (string, error) {
	config := &genai.UploadFileConfig{}
	if mimeType != "" {
		config.MIMEType = mimeType
	}

	file, err := g.client.Files.UploadFromPath(ctx, filePath, config)
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	if file == nil || file.URI == "" {
		return "", fmt.Errorf("file upload returned empty uri")
	}

	return file.URI, nil
}
