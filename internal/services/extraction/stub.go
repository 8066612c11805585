package extraction

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ternarybob/probo/internal/interfaces"
)

// StubProvider is an offline OCR provider for development and tests. It
// treats the document bytes as plain UTF-8 text and yields one block per
// line with a fixed confidence.
type StubProvider struct {
	Confidence float64
}

func NewStubProvider() *StubProvider {
	return &StubProvider{Confidence: 99}
}

func (p *StubProvider) DetectBlocks(_ context.Context, data []byte) ([]interfaces.OCRBlock, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("stub provider only reads plain text")
	}

	lines := strings.Split(string(data), "\n")
	blocks := make([]interfaces.OCRBlock, 0, len(lines))
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		blocks = append(blocks, interfaces.OCRBlock{
			Text:       line,
			Confidence: p.Confidence,
			Page:       1,
			Top:        float64(i),
		})
	}
	return blocks, nil
}
