package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DocumentParser extracts plain text from knowledge-base files. PDF and
// plain-text/markdown sources are supported.
type DocumentParser interface {
	ExtractText(filePath string) (string, error)
}

type documentParser struct{}

func NewDocumentParser() DocumentParser {
	return &documentParser{}
}

// ExtractText implements DocumentParser.
func (p *documentParser) ExtractText(filePath string) (string, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return "", fmt.Errorf("file does not exist: %s", filePath)
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".pdf":
		return extractPDFText(filePath)
	case ".txt", ".md", ".markdown", "":
		return extractPlainText(filePath)
	default:
		return "", fmt.Errorf("unsupported file type: %s", ext)
	}
}

func extractPDFText(filePath string) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var textBuilder strings.Builder
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Log error but continue with other pages
			continue
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n\n")
	}

	text := textBuilder.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no text content found in PDF")
	}

	return text, nil
}

func extractPlainText(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	text := string(data)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no text content found in file")
	}

	return text, nil
}

// CleanText removes excessive whitespace from extracted text. Runs of blank
// lines collapse to exactly one, so paragraph boundaries survive for the
// chunker to split on.
func CleanText(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")

	var cleanedLines []string
	pendingBreak := false

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			pendingBreak = true
			continue
		}
		if pendingBreak && len(cleanedLines) > 0 {
			cleanedLines = append(cleanedLines, "")
		}
		pendingBreak = false
		cleanedLines = append(cleanedLines, line)
	}

	return strings.Join(cleanedLines, "\n")
}
