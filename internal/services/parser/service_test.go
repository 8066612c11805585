package parser

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/models"
)

const sampleCertificate = `CERTIFICATE OF INCORPORATION
OF A PRIVATE LIMITED COMPANY

Company No. 03035678

The Registrar of Companies for England and Wales does hereby certify that
ACME WIDGETS LIMITED

is this day incorporated under the Companies Act 2006 as a private company.

Given at Companies House, Cardiff, on 5th March 2015.

Registered office: 1 Long Lane, London, EC1A 1BB`

type stubExtractor struct {
	values map[string]string
	err    error
	prompt string
}

func (s *stubExtractor) Extract(_ context.Context, prompt string, _ []string) (map[string]string, error) {
	s.prompt = prompt
	return s.values, s.err
}

func TestTruncate(t *testing.T) {
	t.Run("short text unchanged", func(t *testing.T) {
		if got := Truncate("hello"); got != "hello" {
			t.Errorf("Truncate changed short text: %q", got)
		}
	})

	t.Run("long text keeps head and tail", func(t *testing.T) {
		raw := strings.Repeat("a", 2500) + strings.Repeat("z", 1500)
		got := Truncate(raw)
		if !strings.Contains(got, truncationMark) {
			t.Fatal("expected truncation marker")
		}
		if !strings.HasPrefix(got, strings.Repeat("a", 2000)) {
			t.Error("expected first 2000 chars preserved")
		}
		if !strings.HasSuffix(got, strings.Repeat("z", 1000)) {
			t.Error("expected last 1000 chars preserved")
		}
	})

	t.Run("boundary length untouched", func(t *testing.T) {
		raw := strings.Repeat("b", maxHeaderLength+maxFooterLength)
		if got := Truncate(raw); got != raw {
			t.Error("text at the boundary should not be truncated")
		}
	})
}

func TestNormalizeValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"null", ""},
		{"NULL", ""},
		{"None", ""},
		{"n/a", ""},
		{"not found", ""},
		{"  Acme Widgets Limited  ", "Acme Widgets Limited"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeValue(tt.in); got != tt.want {
			t.Errorf("normalizeValue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseModelJSON(t *testing.T) {
	fields := []string{"company_name", "company_number", "address"}

	t.Run("plain JSON", func(t *testing.T) {
		values, err := parseModelJSON(`{"company_name": "Acme Limited", "company_number": "01234567", "address": null}`, fields)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if values["company_name"] != "Acme Limited" {
			t.Errorf("company_name = %q", values["company_name"])
		}
		if _, ok := values["address"]; ok {
			t.Error("null value should be omitted")
		}
	})

	t.Run("fenced JSON", func(t *testing.T) {
		resp := "```json\n{\"company_number\": \"SC123456\"}\n```"
		values, err := parseModelJSON(resp, fields)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if values["company_number"] != "SC123456" {
			t.Errorf("company_number = %q", values["company_number"])
		}
	})

	t.Run("JSON with surrounding prose", func(t *testing.T) {
		resp := `Here is the extraction: {"company_name": "Foo PLC"} as requested.`
		values, err := parseModelJSON(resp, fields)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if values["company_name"] != "Foo PLC" {
			t.Errorf("company_name = %q", values["company_name"])
		}
	})

	t.Run("no JSON at all", func(t *testing.T) {
		if _, err := parseModelJSON("I cannot help with that", fields); err == nil {
			t.Error("expected error for response without JSON")
		}
	})
}

func TestFallbackCompany(t *testing.T) {
	values := fallbackCompany(sampleCertificate)

	if values["company_number"] != "03035678" {
		t.Errorf("company_number = %q", values["company_number"])
	}
	if !strings.Contains(values["company_name"], "ACME WIDGETS LIMITED") {
		t.Errorf("company_name = %q", values["company_name"])
	}
	if !strings.Contains(values["address"], "EC1A 1BB") {
		t.Errorf("address = %q", values["address"])
	}
}

func TestFallbackVAT(t *testing.T) {
	raw := `CERTIFICATE OF REGISTRATION FOR VALUE ADDED TAX
VAT Registration No: GB 123 4567 89
Registered name: Acme Widgets Limited
Principal place of business: 1 Long Lane, London, EC1A 1BB`

	values := fallbackVAT(raw)
	if values["vat_number"] != "GB123456789" {
		t.Errorf("vat_number = %q", values["vat_number"])
	}
	if !strings.Contains(values["address"], "EC1A 1BB") {
		t.Errorf("address = %q", values["address"])
	}
}

func TestFallbackDirector(t *testing.T) {
	raw := `APPOINTMENT OF DIRECTOR
Director: Jane Smith
Date of Birth: 12/04/1980
Company No. 03035678`

	values := fallbackDirector(raw)
	if values["director_name"] != "JANE SMITH" {
		t.Errorf("director_name = %q", values["director_name"])
	}
	if values["date_of_birth"] != "12/04/1980" {
		t.Errorf("date_of_birth = %q", values["date_of_birth"])
	}
	if values["company_number"] != "03035678" {
		t.Errorf("company_number = %q", values["company_number"])
	}
}

func TestParseUsesModelValues(t *testing.T) {
	extractor := &stubExtractor{values: map[string]string{
		"company_name":   "Acme Widgets Limited",
		"company_number": "03035678",
		"address":        "1 Long Lane, London, EC1A 1BB",
		"date":           "null",
	}}
	svc := NewService(extractor, arbor.NewLogger())

	payload := models.NewVariantPayload(models.VariantCorpIncorporation)
	payload.SetExtractionResult(sampleCertificate, 92)

	if err := svc.Parse(context.Background(), models.VariantCorpIncorporation, &payload); err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if payload.Company.Extracted.CompanyName != "Acme Widgets Limited" {
		t.Errorf("CompanyName = %q", payload.Company.Extracted.CompanyName)
	}
	if payload.Company.Extracted.Date != "" {
		t.Errorf("null date should normalize to empty, got %q", payload.Company.Extracted.Date)
	}
	if !strings.Contains(extractor.prompt, "Companies House") {
		t.Error("prompt should describe the document type")
	}
}

func TestParseFallsBackOnModelError(t *testing.T) {
	extractor := &stubExtractor{err: fmt.Errorf("model offline")}
	svc := NewService(extractor, arbor.NewLogger())

	payload := models.NewVariantPayload(models.VariantCompanyRegistration)
	payload.SetExtractionResult(sampleCertificate, 92)

	if err := svc.Parse(context.Background(), models.VariantCompanyRegistration, &payload); err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if payload.Company.Extracted.CompanyNumber != "03035678" {
		t.Errorf("fallback should find company number, got %q", payload.Company.Extracted.CompanyNumber)
	}
}

func TestParseWithoutExtractor(t *testing.T) {
	svc := NewService(nil, arbor.NewLogger())

	payload := models.NewVariantPayload(models.VariantCorpIncorporation)
	payload.SetExtractionResult(sampleCertificate, 92)

	if err := svc.Parse(context.Background(), models.VariantCorpIncorporation, &payload); err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if payload.Company.Extracted.CompanyNumber != "03035678" {
		t.Errorf("CompanyNumber = %q", payload.Company.Extracted.CompanyNumber)
	}
}

func TestParseIdempotent(t *testing.T) {
	svc := NewService(nil, arbor.NewLogger())

	payload := models.NewVariantPayload(models.VariantCorpIncorporation)
	payload.SetExtractionResult(sampleCertificate, 92)

	if err := svc.Parse(context.Background(), models.VariantCorpIncorporation, &payload); err != nil {
		t.Fatalf("first Parse: %v", err)
	}
	first := payload.Company.Extracted

	if err := svc.Parse(context.Background(), models.VariantCorpIncorporation, &payload); err != nil {
		t.Fatalf("second Parse: %v", err)
	}
	if payload.Company.Extracted != first {
		t.Error("repeated parse of the same text should yield identical fields")
	}
}

func TestParseEmptyText(t *testing.T) {
	svc := NewService(nil, arbor.NewLogger())
	payload := models.NewVariantPayload(models.VariantCorpIncorporation)

	if err := svc.Parse(context.Background(), models.VariantCorpIncorporation, &payload); err == nil {
		t.Error("expected error for empty text")
	}
}

func TestParseFallsBackOnAllNullModel(t *testing.T) {
	extractor := &stubExtractor{values: map[string]string{
		"company_name":   "null",
		"company_number": "null",
		"address":        "null",
		"date":           "null",
	}}
	svc := NewService(extractor, arbor.NewLogger())

	payload := models.NewVariantPayload(models.VariantCorpIncorporation)
	payload.SetExtractionResult(sampleCertificate, 92)

	if err := svc.Parse(context.Background(), models.VariantCorpIncorporation, &payload); err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if payload.Company.Extracted.CompanyNumber != "03035678" {
		t.Errorf("all-null model response should fall back to regex, got number %q", payload.Company.Extracted.CompanyNumber)
	}
	if !strings.Contains(payload.Company.Extracted.CompanyName, "ACME WIDGETS LIMITED") {
		t.Errorf("all-null model response should fall back to regex, got name %q", payload.Company.Extracted.CompanyName)
	}
}

func TestPostcodePattern(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Registered office: 1 Long Lane, London, EC1A 1BB", "EC1A 1BB"},
		{"10 Downing Street, London SW1A 2AA", "SW1A 2AA"},
		{"Piccadilly, Manchester M1 1AE", "M1 1AE"},
		{"1 Trinity Street, Cambridge CB2 1TQ", "CB2 1TQ"},
		{"no postcode here", ""},
	}
	for _, tt := range tests {
		m := postcodePattern.FindStringSubmatch(strings.ToUpper(tt.in))
		got := ""
		if len(m) > 1 {
			got = m[1]
		}
		if got != tt.want {
			t.Errorf("postcode in %q = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCompanyNameFromLines(t *testing.T) {
	t.Run("early suffix line wins", func(t *testing.T) {
		raw := `CERTIFICATE OF INCORPORATION
OF A PRIVATE LIMITED COMPANY

Blue Ocean Trading Limited

Incorporated on 5 March 2015`
		values := fallbackCompany(raw)
		if values["company_name"] != "BLUE OCEAN TRADING LIMITED" {
			t.Errorf("company_name = %q", values["company_name"])
		}
	})

	t.Run("boilerplate lines are skipped", func(t *testing.T) {
		raw := `CERTIFICATE OF INCORPORATION OF A LIMITED COMPANY
THE COMPANIES ACT 2006 LIMITED LIABILITY
Given at Companies House`
		values := fallbackCompany(raw)
		if values["company_name"] != "" {
			t.Errorf("expected no name from boilerplate, got %q", values["company_name"])
		}
	})

	t.Run("phrase patterns keep priority", func(t *testing.T) {
		values := fallbackCompany(sampleCertificate)
		if !strings.Contains(values["company_name"], "ACME WIDGETS LIMITED") {
			t.Errorf("company_name = %q", values["company_name"])
		}
	})
}
