package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/interfaces"
	"github.com/ternarybob/probo/internal/models"
)

// Text beyond this is truncated before prompting. Certificates carry the
// identifying details in the header and the address near the end, so the
// middle is the safe part to drop.
const (
	maxHeaderLength = 2000
	maxFooterLength = 1000
	truncationMark  = "[... document truncated ...]"
)

// Service turns raw OCR text into structured fields. A language model does
// the heavy lifting when one is configured; deterministic regex parsing
// covers the rest.
type Service struct {
	extractor interfaces.FieldExtractor
	logger    arbor.ILogger
}

// NewService creates the field parser. The extractor may be nil, in which
// case every document goes through regex fallback.
func NewService(extractor interfaces.FieldExtractor, logger arbor.ILogger) *Service {
	return &Service{
		extractor: extractor,
		logger:    logger,
	}
}

// Parse fills the payload's Extracted fields from its raw text. Parsing is
// idempotent: calling it again with the same text yields the same fields.
func (s *Service) Parse(ctx context.Context, variant models.Variant, payload *models.VariantPayload) error {
	raw := payload.RawText()
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("no text to parse")
	}

	fields := fieldNames(variant)
	values := s.extractViaModel(ctx, variant, raw, fields)
	for k, v := range values {
		values[k] = normalizeValue(v)
	}
	// A model response of all nulls is as useless as no response.
	if countNonEmpty(values) == 0 {
		s.logger.Debug().
			Str("variant", string(variant)).
			Msg("Using regex fallback for field extraction")
		values = fallbackExtract(variant, raw)
		for k, v := range values {
			values[k] = normalizeValue(v)
		}
	}
	assignFields(variant, payload, values)

	s.logger.Info().
		Str("variant", string(variant)).
		Int("fields_found", countNonEmpty(values)).
		Msg("Field extraction complete")
	return nil
}

func (s *Service) extractViaModel(ctx context.Context, variant models.Variant, raw string, fields []string) map[string]string {
	if s.extractor == nil {
		return nil
	}
	prompt := buildPrompt(variant, Truncate(raw))
	values, err := s.extractor.Extract(ctx, prompt, fields)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("variant", string(variant)).
			Msg("Model extraction failed, falling back to regex")
		return nil
	}
	return values
}

// Truncate keeps the head and tail of long documents with a marker between.
func Truncate(raw string) string {
	if len(raw) <= maxHeaderLength+maxFooterLength {
		return raw
	}
	header := raw[:maxHeaderLength]
	footer := raw[len(raw)-maxFooterLength:]
	return header + "\n\n" + truncationMark + "\n\n" + footer
}

func buildPrompt(variant models.Variant, text string) string {
	var b strings.Builder
	switch variant {
	case models.VariantVATRegistration:
		b.WriteString("Extract VAT registration info from a UK HMRC certificate. Return JSON with keys: vat_number, business_name, address, registration_date.\n\n")
		b.WriteString("Rules:\n")
		b.WriteString("- vat_number: 9 digit VAT registration number, may have GB prefix\n")
		b.WriteString("- business_name: Registered business name\n")
		b.WriteString("- address: Principal place of business\n")
		b.WriteString("- registration_date: Effective date of registration\n")
	case models.VariantDirectorVerification:
		b.WriteString("Extract director info from a UK company document. Return JSON with keys: director_name, date_of_birth, address, company_name, company_number, appointment_date.\n\n")
		b.WriteString("Rules:\n")
		b.WriteString("- director_name: Full name of the director\n")
		b.WriteString("- date_of_birth: Director's date of birth if shown\n")
		b.WriteString("- company_number: Company number (6-8 digits, may have letters like SC)\n")
	default:
		b.WriteString("Extract company info from UK Companies House document. Return JSON with keys: company_name, company_number, address, date.\n\n")
		b.WriteString("Rules:\n")
		b.WriteString("- company_name: Full company name ending in LIMITED/PLC/LLC\n")
		b.WriteString("- company_number: Company number (6-8 digits, may have letters like SC)\n")
		b.WriteString("- address: Registered office address\n")
		b.WriteString("- date: Date of incorporation or registration\n")
	}
	b.WriteString("\nUse null if not found.\n\nText:\n")
	b.WriteString(text)
	b.WriteString("\n\nJSON only:")
	return b.String()
}

func fieldNames(variant models.Variant) []string {
	switch variant {
	case models.VariantVATRegistration:
		return []string{"vat_number", "business_name", "address", "registration_date"}
	case models.VariantDirectorVerification:
		return []string{"director_name", "date_of_birth", "address", "company_name", "company_number", "appointment_date"}
	default:
		return []string{"company_name", "company_number", "address", "date"}
	}
}

func assignFields(variant models.Variant, payload *models.VariantPayload, values map[string]string) {
	switch variant {
	case models.VariantVATRegistration:
		if payload.VAT == nil {
			return
		}
		payload.VAT.Extracted = models.VATFields{
			VATNumber:        values["vat_number"],
			BusinessName:     values["business_name"],
			Address:          values["address"],
			RegistrationDate: values["registration_date"],
		}
	case models.VariantDirectorVerification:
		if payload.Director == nil {
			return
		}
		payload.Director.Extracted = models.DirectorFields{
			DirectorName:    values["director_name"],
			DateOfBirth:     values["date_of_birth"],
			Address:         values["address"],
			CompanyName:     values["company_name"],
			CompanyNumber:   values["company_number"],
			AppointmentDate: values["appointment_date"],
		}
	default:
		if payload.Company == nil {
			return
		}
		payload.Company.Extracted = models.CompanyFields{
			CompanyName:   values["company_name"],
			CompanyNumber: values["company_number"],
			Address:       values["address"],
			Date:          values["date"],
		}
	}
}

// normalizeValue maps model null-markers to the empty string.
func normalizeValue(v string) string {
	trimmed := strings.TrimSpace(v)
	switch strings.ToLower(trimmed) {
	case "null", "none", "n/a", "not found", "unknown":
		return ""
	}
	return trimmed
}

func countNonEmpty(values map[string]string) int {
	n := 0
	for _, v := range values {
		if v != "" {
			n++
		}
	}
	return n
}

// parseModelJSON pulls a flat string map out of a model response that may be
// wrapped in code fences or surrounding prose.
func parseModelJSON(response string, fields []string) (map[string]string, error) {
	text := strings.TrimSpace(response)
	if idx := strings.Index(text, "```"); idx >= 0 {
		text = text[idx+3:]
		text = strings.TrimPrefix(text, "json")
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in model response")
	}
	text = text[start : end+1]

	var raw map[string]any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode model response: %w", err)
	}

	values := make(map[string]string, len(fields))
	for _, field := range fields {
		if v, ok := raw[field]; ok && v != nil {
			values[field] = fmt.Sprintf("%v", v)
		}
	}
	return values, nil
}
