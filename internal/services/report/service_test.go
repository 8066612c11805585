package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/models"
)

func sampleJob() *models.Job {
	processed := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	job := &models.Job{
		ID:          "7b0c9a2e",
		Filename:    "certificate.pdf",
		Variant:     models.VariantCorpIncorporation,
		Status:      models.JobStatusPassed,
		Decision:    models.DecisionPass,
		Payload:     models.NewVariantPayload(models.VariantCorpIncorporation),
		SubmittedAt: processed.Add(-2 * time.Minute),
		ProcessedAt: &processed,
		Flags:       []string{"registry_not_found"},
	}
	job.Payload.Company.Merchant = models.CompanyFields{
		CompanyName:   "Acme Widgets Limited",
		CompanyNumber: "03035678",
	}
	job.Payload.Company.Extracted = models.CompanyFields{
		CompanyName:   "ACME WIDGETS LIMITED",
		CompanyNumber: "03035678",
		Address:       "12 Long Lane, London EC1A 1BB",
	}
	job.Payload.Company.Registry = models.CompanyFields{
		CompanyName:   "ACME WIDGETS LIMITED",
		CompanyNumber: "03035678",
	}
	job.Payload.Company.Officers = []models.Officer{
		{Name: "SMITH, Jane", Role: "director", AppointedOn: "2016-02-01"},
	}
	job.Payload.Company.Scores = models.ComponentScores{
		OCRScore:      28.5,
		RegistryScore: 40,
		ProvidedScore: 27.2,
		FinalScore:    92.3,
	}
	job.Forensic = &models.ForensicReport{
		ForensicScore:    86.7,
		Penalty:          2,
		ELAScore:         18,
		JPEGQuality:      75,
		PDFMetadataScore: 85,
		ResolutionScore:  100,
		HistogramScore:   100,
		NoiseScore:       100,
		SHA256:           "deadbeef",
		FileSize:         10240,
		Details:          []string{"pdf metadata: editor software (photoshop)"},
	}
	return job
}

func TestBuildMarkdown(t *testing.T) {
	md := BuildMarkdown(sampleJob())

	for _, want := range []string{
		"# Verification Report",
		"Certificate of Incorporation",
		"| Decision | PASS |",
		"| Final Score | 92.3 / 100 |",
		"| Company number | 03035678 | 03035678 | 03035678 |",
		"## Registered Officers",
		"| SMITH, Jane | director | 2016-02-01 |",
		"## Forensic Analysis",
		"editor software (photoshop)",
		"- registry_not_found",
		"`deadbeef`",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestBuildMarkdownVATVariant(t *testing.T) {
	valid := false
	job := &models.Job{
		ID:      "v1",
		Variant: models.VariantVATRegistration,
		Status:  models.JobStatusFailed,
		Payload: models.NewVariantPayload(models.VariantVATRegistration),
	}
	job.Payload.VAT.Extracted.VATNumber = "123456789"
	job.Payload.VAT.RegistryValid = &valid

	md := BuildMarkdown(job)
	if !strings.Contains(md, "**not** registered") {
		t.Error("expected invalid VAT statement")
	}
	if !strings.Contains(md, "| VAT number | - | 123456789 | - |") {
		t.Error("expected VAT field row with dashes for missing values")
	}
}

func TestBuildMarkdownDirectorVariant(t *testing.T) {
	job := &models.Job{
		ID:      "d1",
		Variant: models.VariantDirectorVerification,
		Status:  models.JobStatusReview,
		Payload: models.NewVariantPayload(models.VariantDirectorVerification),
	}
	job.Payload.Director.Verified = true
	job.Payload.Director.MatchedOfficer = &models.Officer{Name: "SMITH, Jane", DateOfBirth: "April 1980"}

	md := BuildMarkdown(job)
	if !strings.Contains(md, "officer register") {
		t.Error("expected verification statement")
	}
	if !strings.Contains(md, "SMITH, Jane") {
		t.Error("expected matched officer in field table")
	}
}

func TestHTML(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	out, err := svc.HTML(sampleJob())
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}
	page := string(out)
	for _, want := range []string{
		"<!DOCTYPE html>",
		"<h1", "<table>", "ACME WIDGETS LIMITED",
		"</html>",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("HTML missing %q", want)
		}
	}
}

func TestPDF(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	out, err := svc.PDF(sampleJob())
	if err != nil {
		t.Fatalf("PDF: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Errorf("output does not start with a PDF header")
	}
	if len(out) < 1000 {
		t.Errorf("suspiciously small PDF: %d bytes", len(out))
	}
}

func TestMarkdownStableAcrossRenders(t *testing.T) {
	job := sampleJob()
	svc := NewService(arbor.NewLogger())
	if svc.Markdown(job) != svc.Markdown(job) {
		t.Error("markdown should be deterministic")
	}
}
