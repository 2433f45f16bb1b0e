package services

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
)

func TestChunkTextEmptyInput(t *testing.T) {
	chunker := NewTextChunker()

	if chunks := chunker.ChunkText("", 600, 100); len(chunks) != 0 {
		t.Fatalf("expected no chunks for empty text, got %d", len(chunks))
	}
	if chunks := chunker.ChunkText("\n\n  \n\n", 600, 100); len(chunks) != 0 {
		t.Fatalf("expected no chunks for whitespace text, got %d", len(chunks))
	}
}

func TestChunkTextShortInputSingleChunk(t *testing.T) {
	chunker := NewTextChunker()

	chunks := chunker.ChunkText("A short paragraph.", 600, 100)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "A short paragraph." {
		t.Fatalf("chunk content altered: %q", chunks[0])
	}
}

func TestChunkTextIsDeterministic(t *testing.T) {
	chunker := NewTextChunker()

	text := strings.Repeat("Paragraph about goroutine scheduling and channel semantics.\n\n", 30)

	first := chunker.ChunkText(text, 200, 50)
	second := chunker.ChunkText(text, 200, 50)

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("chunk %d differs between runs", i)
		}
	}
	if len(first) < 2 {
		t.Fatalf("expected the long text to split into multiple chunks, got %d", len(first))
	}
}

func TestChunkTextOverlapSeedsNextChunk(t *testing.T) {
	chunker := NewTextChunker()

	text := strings.Repeat("Interview preparation notes on distributed systems design.\n\n", 20)
	chunks := chunker.ChunkText(text, 200, 50)
	if len(chunks) < 2 {
		t.Fatalf("need at least 2 chunks to check overlap, got %d", len(chunks))
	}

	tail := getLastNRunes(chunks[0], 50)
	if !strings.HasPrefix(chunks[1], tail) {
		t.Errorf("second chunk does not start with the 50-rune tail of the first")
	}
}

func TestChunkTextSplitsOversizedParagraph(t *testing.T) {
	chunker := NewTextChunker()

	var para strings.Builder
	for i := 0; i < 40; i++ {
		para.WriteString("This sentence pads out one very long paragraph about indexing. ")
	}

	chunks := chunker.ChunkText(para.String(), 300, 0)
	if len(chunks) < 2 {
		t.Fatalf("oversized paragraph should split by sentence, got %d chunks", len(chunks))
	}
	for i, chunk := range chunks {
		if !strings.Contains(chunk, ".") {
			t.Errorf("chunk %d lost its sentence punctuation: %q", i, chunk)
		}
	}
}

func TestChunkTextCountsRunesNotBytes(t *testing.T) {
	chunker := NewTextChunker()

	sentence := "Это предложение про горутины и каналы в языке Го."
	para := strings.TrimSpace(strings.Repeat(sentence+" ", 12))

	chunks := chunker.ChunkText(para, 120, 0)
	if len(chunks) < 2 {
		t.Fatalf("expected the paragraph to split, got %d chunks", len(chunks))
	}

	byteOverflowSeen := false
	for i, chunk := range chunks {
		if n := utf8.RuneCountInString(chunk); n > 120 {
			t.Errorf("chunk %d is %d runes, over the 120-rune limit", i, n)
		}
		if len(chunk) > 120 {
			byteOverflowSeen = true
		}
	}
	if !byteOverflowSeen {
		t.Error("expected at least one chunk over 120 bytes; the size limit is in runes")
	}
}

func TestCleanTextPreservesParagraphBreaks(t *testing.T) {
	raw := "First paragraph line one.\nLine two.\n\n\n   \nSecond paragraph.\n"

	got := CleanText(raw)
	want := "First paragraph line one.\nLine two.\n\nSecond paragraph."
	if got != want {
		t.Fatalf("CleanText(%q) = %q, want %q", raw, got, want)
	}
}

func TestIngestionChunkingKeepsParagraphsAndPunctuation(t *testing.T) {
	chunker := NewTextChunker()

	var doc strings.Builder
	for i := 0; i < 20; i++ {
		doc.WriteString("First sentence about goroutines. Second sentence about channels!\n\n")
	}

	chunks := chunker.ChunkText(CleanText(doc.String()), 200, 50)
	if len(chunks) < 2 {
		t.Fatalf("expected the cleaned document to split into multiple chunks, got %d", len(chunks))
	}

	for i, chunk := range chunks {
		if !strings.Contains(chunk, "goroutines. Second sentence about channels!") {
			t.Errorf("chunk %d lost punctuation: %q", i, chunk)
		}
	}

	if !strings.Contains(chunks[0], "\n\n") {
		t.Error("cleaned text should still split on paragraph boundaries")
	}
}

func TestChunkPointIDIsStable(t *testing.T) {
	a := ChunkPointID("notes.pdf", 0)
	b := ChunkPointID("notes.pdf", 0)
	if a != b {
		t.Fatalf("same source and index produced different ids: %s vs %s", a, b)
	}

	if _, err := uuid.Parse(a); err != nil {
		t.Fatalf("point id is not a valid uuid: %v", err)
	}
}

func TestChunkPointIDDistinguishesInputs(t *testing.T) {
	ids := map[string]string{
		"notes.pdf#0": ChunkPointID("notes.pdf", 0),
		"notes.pdf#1": ChunkPointID("notes.pdf", 1),
		"other.pdf#0": ChunkPointID("other.pdf", 0),
	}

	seen := make(map[string]string)
	for key, id := range ids {
		if prev, ok := seen[id]; ok {
			t.Fatalf("id collision between %s and %s", prev, key)
		}
		seen[id] = key
	}
}
