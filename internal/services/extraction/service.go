// Package extraction turns uploaded documents into ordered text via OCR.
package extraction

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/interfaces"
)

const defaultPageConcurrency = 4

// Result is the assembled OCR output for a document.
type Result struct {
	Text       string
	Confidence float64
	Pages      int
	Blocks     int
}

// Service orchestrates the OCR provider, including the per-page fallback
// for documents the provider cannot read whole.
type Service struct {
	provider        interfaces.OCRProvider
	pageConcurrency int
	scratchDir      string
	logger          arbor.ILogger
}

func NewService(provider interfaces.OCRProvider, pageConcurrency int, scratchDir string, logger arbor.ILogger) *Service {
	if pageConcurrency <= 0 {
		pageConcurrency = defaultPageConcurrency
	}
	if scratchDir == "" {
		scratchDir = os.TempDir()
	}
	return &Service{
		provider:        provider,
		pageConcurrency: pageConcurrency,
		scratchDir:      scratchDir,
		logger:          logger,
	}
}

// Extract runs OCR over the document and assembles blocks into reading
// order: by page, then top to bottom, then left to right. Pages are joined
// with a blank line. Confidence is the mean across all blocks.
func (s *Service) Extract(ctx context.Context, data []byte, contentType string) (*Result, error) {
	blocks, err := s.provider.DetectBlocks(ctx, data)
	if err == interfaces.ErrUnsupportedFormat && isPDF(data, contentType) {
		s.logger.Debug().
			Str("content_type", contentType).
			Msg("Provider cannot read document directly, converting pages")
		blocks, err = s.extractPerPage(ctx, data)
	}
	if err != nil {
		return nil, fmt.Errorf("text detection failed: %w", err)
	}
	if len(blocks) == 0 {
		return &Result{}, nil
	}

	return assemble(blocks), nil
}

// extractPerPage pulls page images out of the PDF and OCRs them with bounded
// concurrency, stamping each block with its page number.
func (s *Service) extractPerPage(ctx context.Context, data []byte) ([]interfaces.OCRBlock, error) {
	pages, err := s.pageImages(data)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no page images in document")
	}

	type pageResult struct {
		page   int
		blocks []interfaces.OCRBlock
		err    error
	}

	sem := make(chan struct{}, s.pageConcurrency)
	results := make([]pageResult, len(pages))
	var wg sync.WaitGroup

	for i, img := range pages {
		wg.Add(1)
		go func(i int, img []byte) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			blocks, err := s.provider.DetectBlocks(ctx, img)
			results[i] = pageResult{page: i + 1, blocks: blocks, err: err}
		}(i, img)
	}
	wg.Wait()

	var all []interfaces.OCRBlock
	for _, res := range results {
		if res.err != nil {
			return nil, fmt.Errorf("page %d detection failed: %w", res.page, res.err)
		}
		for _, b := range res.blocks {
			b.Page = res.page
			all = append(all, b)
		}
	}
	return all, nil
}

// pageImages extracts the embedded image of every page, in page order.
func (s *Service) pageImages(data []byte) ([][]byte, error) {
	tempFile := filepath.Join(s.scratchDir, fmt.Sprintf("extract_%d.pdf", os.Getpid()))
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write temp PDF file: %w", err)
	}
	defer os.Remove(tempFile)

	pdfCtx, err := api.ReadContextFile(tempFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}

	outDir, err := os.MkdirTemp(s.scratchDir, "extract_pages_")
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	if err := api.ExtractImagesFile(tempFile, outDir, nil, nil); err != nil {
		return nil, fmt.Errorf("failed to extract page images: %w", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list extracted images: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	// pdfcpu names extracted files by page number, so lexical order with a
	// numeric-aware tiebreak matches page order for typical page counts.
	sort.Strings(names)

	images := make([][]byte, 0, pdfCtx.PageCount)
	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(outDir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read extracted image: %w", err)
		}
		images = append(images, content)
	}
	return images, nil
}

func assemble(blocks []interfaces.OCRBlock) *Result {
	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].Page != blocks[j].Page {
			return blocks[i].Page < blocks[j].Page
		}
		if blocks[i].Top != blocks[j].Top {
			return blocks[i].Top < blocks[j].Top
		}
		return blocks[i].Left < blocks[j].Left
	})

	var text bytes.Buffer
	var confSum float64
	lastPage := blocks[0].Page
	pages := 1

	for i, b := range blocks {
		if b.Page != lastPage {
			// Blank line between pages.
			text.WriteString("\n\n")
			lastPage = b.Page
			pages++
		} else if i > 0 {
			text.WriteString("\n")
		}
		text.WriteString(b.Text)
		confSum += b.Confidence
	}

	return &Result{
		Text:       strings.TrimSpace(text.String()),
		Confidence: confSum / float64(len(blocks)),
		Pages:      pages,
		Blocks:     len(blocks),
	}
}

func isPDF(data []byte, contentType string) bool {
	return strings.Contains(contentType, "pdf") || bytes.HasPrefix(data, []byte("%PDF"))
}
