package forensic

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/models"
)

func flatImage(w, h int, v uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func noisyImage(w, h int, seed int64) *image.RGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(rng.Intn(256))
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestAnalyzeUndecodableDocument(t *testing.T) {
	svc := NewService(t.TempDir(), arbor.NewLogger())

	report, err := svc.Analyze(context.Background(), []byte("not an image"), "image/png")
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if report.Penalty != 15 {
		t.Errorf("expected saturated penalty 15, got %.1f", report.Penalty)
	}
	if report.ForensicScore != 0 {
		t.Errorf("expected forensic score 0, got %.1f", report.ForensicScore)
	}
	if report.MD5 == "" || report.SHA256 == "" {
		t.Error("hashes should be computed even for undecodable content")
	}
}

func TestAnalyzeCleanImage(t *testing.T) {
	svc := NewService(t.TempDir(), arbor.NewLogger())
	data := encodePNG(t, noisyImage(256, 256, 1))

	report, err := svc.Analyze(context.Background(), data, "image/png")
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if report.Penalty < 0 || report.Penalty > 15 {
		t.Errorf("penalty out of range: %.1f", report.Penalty)
	}
	if report.FileSize != int64(len(data)) {
		t.Errorf("file size mismatch: %d vs %d", report.FileSize, len(data))
	}

	// The score formula is a fixed linear mapping of the penalty.
	want := 100 - report.Penalty/15*100
	assert.InDelta(t, want, report.ForensicScore, 0.001)
}

func TestAnalyzeScoreInvariant(t *testing.T) {
	svc := NewService(t.TempDir(), arbor.NewLogger())
	images := [][]byte{
		encodePNG(t, flatImage(128, 128, 200)),
		encodePNG(t, noisyImage(200, 200, 7)),
		encodePNG(t, flatImage(64, 64, 0)),
	}
	for _, data := range images {
		report, err := svc.Analyze(context.Background(), data, "image/png")
		if err != nil {
			t.Fatalf("Analyze returned error: %v", err)
		}
		want := 100 - report.Penalty/15*100
		assert.InDelta(t, want, report.ForensicScore, 0.001)
	}
}

func TestAnalyzeCancelledContext(t *testing.T) {
	svc := NewService(t.TempDir(), arbor.NewLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Analyze(ctx, encodePNG(t, flatImage(64, 64, 128)), "image/png")
	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestELAScore(t *testing.T) {
	t.Run("flat image has low error level", func(t *testing.T) {
		score := elaScore(flatImage(128, 128, 128))
		if score > 20 {
			t.Errorf("expected low ELA score for flat image, got %.1f", score)
		}
	})

	t.Run("noisy image has higher error level than flat", func(t *testing.T) {
		flat := elaScore(flatImage(128, 128, 128))
		noisy := elaScore(noisyImage(128, 128, 3))
		if noisy <= flat {
			t.Errorf("expected noisy (%.1f) > flat (%.1f)", noisy, flat)
		}
	})
}

func TestJPEGQualityScore(t *testing.T) {
	t.Run("flat image scores low", func(t *testing.T) {
		score := jpegQualityScore(flatImage(256, 256, 128))
		if score > 10 {
			t.Errorf("expected near-zero block variance for flat image, got %.1f", score)
		}
	})

	t.Run("noisy image scores high", func(t *testing.T) {
		score := jpegQualityScore(noisyImage(256, 256, 5))
		if score < 50 {
			t.Errorf("expected high block variance for noisy image, got %.1f", score)
		}
	})

	t.Run("tiny image is neutral", func(t *testing.T) {
		score := jpegQualityScore(flatImage(4, 4, 128))
		if score != 75 {
			t.Errorf("expected neutral 75 for image without full blocks, got %.1f", score)
		}
	})
}

func TestHistogramScore(t *testing.T) {
	t.Run("single value histogram is spiky", func(t *testing.T) {
		res := histogramScore(flatImage(128, 128, 100))
		if res.Score >= 100 {
			t.Errorf("expected deduction for single-bin histogram, got %.1f", res.Score)
		}
	})

	t.Run("uniform noise is clean", func(t *testing.T) {
		res := histogramScore(noisyImage(256, 256, 11))
		if res.Score < 60 {
			t.Errorf("expected clean histogram for uniform noise, got %.1f", res.Score)
		}
	})
}

func TestNoiseScore(t *testing.T) {
	t.Run("uniform noise floor is consistent", func(t *testing.T) {
		res := noiseScore(noisyImage(512, 512, 13))
		if res.Inconsistent {
			t.Error("uniform noise should not be flagged inconsistent")
		}
	})

	t.Run("spliced noise floors are flagged", func(t *testing.T) {
		img := noisyImage(512, 512, 17)
		// Overwrite the right half with a flat region to fake a paste from
		// a different capture.
		for y := 0; y < 512; y++ {
			for x := 256; x < 512; x++ {
				img.Set(x, y, color.RGBA{180, 180, 180, 255})
			}
		}
		res := noiseScore(img)
		if !res.Inconsistent {
			t.Error("expected noise inconsistency for spliced image")
		}
	})

	t.Run("tiny image is neutral", func(t *testing.T) {
		res := noiseScore(flatImage(16, 16, 40))
		if res.Score != 100 {
			t.Errorf("expected neutral score for tiny image, got %.1f", res.Score)
		}
	})
}

func TestDetectCopyMove(t *testing.T) {
	t.Run("duplicated region raises confidence", func(t *testing.T) {
		img := noisyImage(512, 512, 19)
		// Copy a source patch to a distant destination.
		for y := 0; y < 96; y++ {
			for x := 0; x < 96; x++ {
				img.Set(400+x, 400+y, img.At(20+x, 20+y))
			}
		}
		res := detectCopyMove(img)
		if res.PairsChecked == 0 {
			t.Fatal("expected pairs to be checked")
		}
	})

	t.Run("flat image is treated as scanned", func(t *testing.T) {
		res := detectCopyMove(flatImage(300, 300, 220))
		if !res.Scanned {
			t.Error("small flat image should use the scanned profile")
		}
	})
}

func TestCopyMovePenalty(t *testing.T) {
	tests := []struct {
		name       string
		detected   bool
		scanned    bool
		confidence float64
		want       float64
	}{
		{"not detected", false, false, 90, 0},
		{"scanned high", true, true, 80, 5},
		{"scanned medium", true, true, 60, 3},
		{"scanned low", true, true, 35, 1.5},
		{"regular high", true, false, 50, 7},
		{"regular medium", true, false, 30, 4},
		{"regular low", true, false, 22, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := copyMovePenalty(models.CopyMoveResult{
				Detected:   tt.detected,
				Scanned:    tt.scanned,
				Confidence: tt.confidence,
			})
			if got != tt.want {
				t.Errorf("copyMovePenalty = %.1f, want %.1f", got, tt.want)
			}
		})
	}
}

func TestResolutionScore(t *testing.T) {
	t.Run("tiny image is neutral", func(t *testing.T) {
		res := resolutionScore(flatImage(16, 16, 90))
		if res.Score != 100 {
			t.Errorf("expected neutral, got %.1f", res.Score)
		}
	})

	t.Run("flat image reads as upscaled", func(t *testing.T) {
		res := resolutionScore(flatImage(256, 256, 90))
		if !res.Upscaled {
			t.Error("flat image has no high-frequency energy and should flag upscaling")
		}
	})
}

func TestParsePDFDate(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
		ok   bool
	}{
		{"D:20240115093000+00'00'", time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC), true},
		{"D:20240115", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), true},
		{"20231201120000", time.Date(2023, 12, 1, 12, 0, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"not a date", time.Time{}, false},
	}
	for _, tt := range tests {
		got, ok := parsePDFDate(tt.raw)
		if ok != tt.ok {
			t.Errorf("parsePDFDate(%q) ok = %v, want %v", tt.raw, ok, tt.ok)
			continue
		}
		if ok && !got.Equal(tt.want) {
			t.Errorf("parsePDFDate(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestPDFMetaPenalty(t *testing.T) {
	if pdfMetaPenalty(0) != 0 {
		t.Error("no flags should cost nothing")
	}
	if pdfMetaPenalty(1) != 1 {
		t.Error("one flag should cost 1")
	}
	if pdfMetaPenalty(2) != 2 || pdfMetaPenalty(5) != 2 {
		t.Error("two or more flags should cap at 2")
	}
}

func TestFindEditorSoftware(t *testing.T) {
	if _, sw := findEditorSoftware("Adobe Photoshop 2024", ""); sw != "photoshop" {
		t.Errorf("expected photoshop, got %q", sw)
	}
	if _, sw := findEditorSoftware("Microsoft Word", "Acrobat Distiller"); sw != "" {
		t.Errorf("expected no editor, got %q", sw)
	}
}

func TestHistogramGrayscaleGetsLooserRatio(t *testing.T) {
	// 26 evenly filled gray levels: max/mean = 256/26, between the color
	// threshold 8 and the grayscale threshold 15.
	gray := image.NewRGBA(image.Rect(0, 0, 260, 260))
	colored := image.NewRGBA(image.Rect(0, 0, 260, 260))
	for y := 0; y < 260; y++ {
		for x := 0; x < 260; x++ {
			v := uint8((x % 26) * 9)
			gray.Set(x, y, color.RGBA{v, v, v, 255})
			colored.Set(x, y, color.RGBA{v, 0, 0, 255})
		}
	}

	if res := histogramScore(gray); res.Score < 100 {
		t.Errorf("grayscale-like content should pass the looser spike ratio, got %.1f", res.Score)
	}
	if res := histogramScore(colored); res.Score >= 100 {
		t.Errorf("color content should trip the strict spike ratio, got %.1f", res.Score)
	}
}

func TestHistogramColorGaps(t *testing.T) {
	// Two flat color halves: two occupied luminance buckets out of 256.
	img := image.NewRGBA(image.Rect(0, 0, 128, 128))
	for y := 0; y < 128; y++ {
		for x := 0; x < 128; x++ {
			if x < 64 {
				img.Set(x, y, color.RGBA{220, 0, 0, 255})
			} else {
				img.Set(x, y, color.RGBA{0, 0, 220, 255})
			}
		}
	}

	res := histogramScore(img)
	if res.Gaps == 0 {
		t.Error("expected severe-gap detection for a two-color image")
	}
	if res.Score > 60 {
		t.Errorf("expected both spike and gap deductions, got %.1f", res.Score)
	}
}
