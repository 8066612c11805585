package extraction

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/interfaces"
)

type fakeProvider struct {
	blocks []interfaces.OCRBlock
	err    error
	calls  int
}

func (f *fakeProvider) DetectBlocks(_ context.Context, _ []byte) ([]interfaces.OCRBlock, error) {
	f.calls++
	return f.blocks, f.err
}

func TestExtractOrdersBlocks(t *testing.T) {
	provider := &fakeProvider{blocks: []interfaces.OCRBlock{
		{Text: "third", Confidence: 90, Page: 1, Top: 0.8, Left: 0.1},
		{Text: "first", Confidence: 95, Page: 1, Top: 0.1, Left: 0.1},
		{Text: "second", Confidence: 85, Page: 1, Top: 0.1, Left: 0.6},
		{Text: "next page", Confidence: 90, Page: 2, Top: 0.1, Left: 0.1},
	}}
	svc := NewService(provider, 0, t.TempDir(), arbor.NewLogger())

	result, err := svc.Extract(context.Background(), []byte("data"), "image/png")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	want := "first\nsecond\nthird\n\nnext page"
	if result.Text != want {
		t.Errorf("Text = %q, want %q", result.Text, want)
	}
	assert.InDelta(t, 90.0, result.Confidence, 0.001)
	if result.Pages != 2 {
		t.Errorf("Pages = %d", result.Pages)
	}
	if result.Blocks != 4 {
		t.Errorf("Blocks = %d", result.Blocks)
	}
}

func TestExtractEmptyDocument(t *testing.T) {
	svc := NewService(&fakeProvider{}, 0, t.TempDir(), arbor.NewLogger())

	result, err := svc.Extract(context.Background(), []byte("data"), "image/png")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if result.Text != "" || result.Confidence != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}

func TestExtractUnsupportedNonPDF(t *testing.T) {
	provider := &fakeProvider{err: interfaces.ErrUnsupportedFormat}
	svc := NewService(provider, 0, t.TempDir(), arbor.NewLogger())

	_, err := svc.Extract(context.Background(), []byte("data"), "image/webp")
	if err == nil {
		t.Fatal("expected error when provider rejects a non-PDF document")
	}
}

func TestStubProvider(t *testing.T) {
	provider := NewStubProvider()

	t.Run("reads plain text", func(t *testing.T) {
		blocks, err := provider.DetectBlocks(context.Background(), []byte("line one\n\nline two"))
		if err != nil {
			t.Fatalf("DetectBlocks returned error: %v", err)
		}
		if len(blocks) != 2 {
			t.Fatalf("expected 2 blocks, got %d", len(blocks))
		}
		if blocks[0].Text != "line one" || blocks[1].Text != "line two" {
			t.Errorf("unexpected blocks: %+v", blocks)
		}
	})

	t.Run("rejects binary", func(t *testing.T) {
		if _, err := provider.DetectBlocks(context.Background(), []byte{0xff, 0xfe, 0x00, 0x81}); err == nil {
			t.Error("expected error for non-UTF8 input")
		}
	})
}

func TestStubThroughService(t *testing.T) {
	svc := NewService(NewStubProvider(), 0, t.TempDir(), arbor.NewLogger())

	text := "CERTIFICATE OF INCORPORATION\nCompany No. 03035678"
	result, err := svc.Extract(context.Background(), []byte(text), "text/plain")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if !strings.Contains(result.Text, "03035678") {
		t.Errorf("Text = %q", result.Text)
	}
	assert.InDelta(t, 99.0, result.Confidence, 0.001)
}
