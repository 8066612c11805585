package interfaces

import (
	"context"
	"errors"
)

// ErrUnsupportedFormat signals the OCR provider cannot read the document
// directly; the extraction stage falls back to per-page image conversion.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// OCRBlock is one detected text block with its confidence and position.
type OCRBlock struct {
	Text       string
	Confidence float64 // [0,100]
	Page       int
	Top        float64
	Left       float64
	Width      float64
	Height     float64
}

// OCRProvider detects text blocks in a document or page image.
type OCRProvider interface {
	DetectBlocks(ctx context.Context, data []byte) ([]OCRBlock, error)
}
