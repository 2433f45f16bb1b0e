package services

import (
	"strings"
	"unicode/utf8"
)

type TextChunker interface {
	ChunkText(text string, maxChunkSize int, overlap int) []string
}

type textChunker struct{}

func NewTextChunker() TextChunker {
	return &textChunker{}
}

// ChunkText splits text into overlapping chunks of at most maxChunkSize runes.
// Chunking is a pure function of the input, so the same document always
// produces the same chunk set and re-ingestion lands on the same point ids.
func (tc *textChunker) ChunkText(text string, maxChunkSize int, overlap int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = 600
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxChunkSize {
		overlap = maxChunkSize / 4
	}

	// Split by paragraphs first
	paragraphs := strings.Split(text, "\n\n")

	var chunks []string
	var currentChunk strings.Builder
	currentLen := 0 // runes, not bytes

	// flush closes the current chunk and seeds the next one with overlap
	// from its tail.
	flush := func(separator string) {
		chunks = append(chunks, currentChunk.String())
		currentChunk.Reset()
		currentLen = 0

		if overlap > 0 {
			overlapText := getLastNRunes(chunks[len(chunks)-1], overlap)
			currentChunk.WriteString(overlapText)
			currentLen = utf8.RuneCountInString(overlapText)
			if overlapText != "" {
				currentChunk.WriteString(separator)
				currentLen += utf8.RuneCountInString(separator)
			}
		}
	}

	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		// If paragraph itself is too long, split by sentences
		if utf8.RuneCountInString(para) > maxChunkSize {
			for _, sentence := range splitIntoSentences(para) {
				sentenceLen := utf8.RuneCountInString(sentence)

				if currentLen > 0 && currentLen+sentenceLen+1 > maxChunkSize {
					flush(" ")
				}

				if currentLen > 0 {
					currentChunk.WriteString(" ")
					currentLen++
				}
				currentChunk.WriteString(sentence)
				currentLen += sentenceLen
			}
		} else {
			paraLen := utf8.RuneCountInString(para)

			if currentLen > 0 && currentLen+paraLen+2 > maxChunkSize {
				flush("\n\n")
			}

			if currentLen > 0 {
				currentChunk.WriteString("\n\n")
				currentLen += 2
			}
			currentChunk.WriteString(para)
			currentLen += paraLen
		}
	}

	// Add remaining chunk
	if currentLen > 0 {
		chunks = append(chunks, currentChunk.String())
	}

	return chunks
}

// splitIntoSentences splits on terminal punctuation, keeping the terminator
// with its sentence so stored passages read as written.
func splitIntoSentences(text string) []string {
	var result []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(current.String()); s != "" {
				result = append(result, s)
			}
			current.Reset()
		}
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		result = append(result, s)
	}

	return result
}

func getLastNRunes(text string, n int) string {
	if n <= 0 {
		return ""
	}

	runes := []rune(text)
	if len(runes) <= n {
		return text
	}

	return string(runes[len(runes)-n:])
}
