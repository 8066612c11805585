package forensic

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/models"
)

const maxPenalty = 15.0

// Service runs the document forensics battery and produces a report with a
// bounded pipeline penalty.
type Service struct {
	logger     arbor.ILogger
	scratchDir string
	now        func() time.Time
}

func NewService(scratchDir string, logger arbor.ILogger) *Service {
	if scratchDir == "" {
		scratchDir = os.TempDir()
	}
	return &Service{
		logger:     logger,
		scratchDir: scratchDir,
		now:        time.Now,
	}
}

// Analyze inspects the raw document bytes and returns the forensic report.
// Individual checks degrade to neutral scores on failure; only a document
// that cannot be decoded at all takes the full penalty.
func (s *Service) Analyze(ctx context.Context, data []byte, contentType string) (*models.ForensicReport, error) {
	report := &models.ForensicReport{
		FileSize: int64(len(data)),
		MD5:      fmt.Sprintf("%x", md5.Sum(data)),
		SHA256:   fmt.Sprintf("%x", sha256.Sum256(data)),
	}

	isPDF := strings.Contains(contentType, "pdf")

	var img image.Image
	var decodeErr error
	if isPDF {
		img, decodeErr = s.firstPageImage(data)
	} else {
		img, decodeErr = loadImage(data)
	}

	var penalty float64

	if isPDF {
		meta := pdfMetadataScore(data, s.scratchDir, s.now())
		report.PDFMetadataScore = meta.Score
		for _, flag := range meta.Flags {
			report.AddDetail("pdf metadata: " + flag)
		}
		penalty += pdfMetaPenalty(len(meta.Flags))
	} else {
		report.PDFMetadataScore = 100
		report.EXIF = extractEXIF(data)
	}

	if decodeErr != nil || img == nil {
		// Nothing to inspect pixel-wise. An undecodable upload is itself
		// suspicious, so the penalty saturates.
		s.logger.Warn().
			Str("content_type", contentType).
			Err(decodeErr).
			Msg("Document image could not be decoded for forensics")
		report.AddDetail("image content could not be decoded")
		report.ELAScore = 0
		report.JPEGQuality = 75
		report.ResolutionScore = 100
		report.HistogramScore = 100
		report.NoiseScore = 100
		report.Penalty = maxPenalty
		report.ForensicScore = 0
		return report, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report.ELAScore = elaScore(img)
	if report.ELAScore > 50 {
		report.AddDetail(fmt.Sprintf("high error level analysis score %.1f", report.ELAScore))
		penalty += 5
	}

	if isPDF {
		report.JPEGQuality = 75
	} else {
		report.JPEGQuality = jpegQualityScore(img)
		if report.JPEGQuality < 30 {
			report.AddDetail(fmt.Sprintf("low compression quality estimate %.1f", report.JPEGQuality))
			penalty += 3
		}
	}

	cm := detectCopyMove(img)
	report.CopyMove = cm
	if cm.Detected {
		report.AddDetail(fmt.Sprintf("copy-move regions detected, confidence %.1f", cm.Confidence))
		penalty += copyMovePenalty(cm)
	}

	res := resolutionScore(img)
	report.ResolutionScore = res.Score
	report.EstimatedDPI = res.EstimatedDPI
	if res.Inconsistent {
		report.AddDetail("resolution inconsistency across regions")
	}
	if res.Upscaled {
		report.AddDetail("low high-frequency energy, possible upscaling")
	}
	if res.Score < 70 {
		penalty += 2
	}

	hist := histogramScore(img)
	report.HistogramScore = hist.Score
	if hist.Spikes > 0 {
		report.AddDetail("histogram spike anomaly")
	}
	if hist.Gaps > 0 {
		report.AddDetail(fmt.Sprintf("histogram comb pattern, %d gaps", hist.Gaps))
	}
	if hist.Score < 50 {
		penalty += 1.5
	}

	noise := noiseScore(img)
	report.NoiseScore = noise.Score
	if noise.Inconsistent {
		report.AddDetail("noise floor inconsistency across blocks")
	}
	if noise.Outliers {
		report.AddDetail("noise outlier blocks beyond two sigma")
	}
	if noise.Score < 70 {
		penalty += 2
	}

	report.Penalty = min(maxPenalty, penalty)
	report.ForensicScore = 100 - report.Penalty/maxPenalty*100

	s.logger.Debug().
		Str("penalty", fmt.Sprintf("%.1f", report.Penalty)).
		Str("forensic_score", fmt.Sprintf("%.1f", report.ForensicScore)).
		Str("md5", report.MD5).
		Msg("Forensic analysis complete")

	return report, nil
}

// firstPageImage rasterizes nothing; it pulls the first embedded image out
// of the PDF, which for scanned certificates is the page scan itself.
func (s *Service) firstPageImage(data []byte) (image.Image, error) {
	tempFile := filepath.Join(s.scratchDir, fmt.Sprintf("forensic_%d.pdf", os.Getpid()))
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write temp PDF file: %w", err)
	}
	defer os.Remove(tempFile)

	outDir, err := os.MkdirTemp(s.scratchDir, "forensic_pages_")
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	if err := api.ExtractImagesFile(tempFile, outDir, []string{"1"}, nil); err != nil {
		return nil, fmt.Errorf("failed to extract page images: %w", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil || len(entries) == 0 {
		return nil, fmt.Errorf("no embedded images on first page")
	}
	content, err := os.ReadFile(filepath.Join(outDir, entries[0].Name()))
	if err != nil {
		return nil, fmt.Errorf("failed to read extracted image: %w", err)
	}
	return loadImage(content)
}
