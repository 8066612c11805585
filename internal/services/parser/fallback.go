package parser

import (
	"regexp"
	"strings"

	"github.com/ternarybob/probo/internal/models"
)

var (
	companyNumberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?im)Company\s+No\.?[\s:]*([A-Z]{2}\d{6,8}|\d{6,8})\b`),
		regexp.MustCompile(`(?im)(?:^|\s)No\.?[\s:]*([A-Z]{2}\d{6,8}|\d{6,8})\b`),
		regexp.MustCompile(`\b([A-Z]{2}\d{6})\b`),
		regexp.MustCompile(`\b(\d{8})\b`),
		regexp.MustCompile(`\b(\d{7})\b`),
	}

	companyNamePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)certify\s+that\s+([A-Z][A-Za-z0-9\s&.,\-()]{3,}?(?:\s+LIMITED|\s+PLC|\s+LLC|\s+INC\.?))`),
		regexp.MustCompile(`(?i)Company\s+name[\s:]+([A-Z][A-Za-z0-9\s&.,\-()]{3,}?(?:\s+LIMITED|\s+PLC|\s+LLC|\s+INC\.?))`),
	}

	companySuffixPattern = regexp.MustCompile(`(?i)\b(?:LIMITED|PLC|LLC|INC\.?)\b`)

	// Boilerplate phrases that disqualify a line as the company name.
	nameHeaderKeywords = []string{
		"CERTIFICATE", "INCORPORATION", "COMPANIES ACT", "REGISTRAR",
		"FILE COPY", "PRIVATE LIMITED", "COMPANY NO", "NUMBER",
		"HEREBY CERTIFIES", "THIS DAY",
	}

	// Covers district letters as in "EC1A 1BB".
	postcodePattern = regexp.MustCompile(`\b([A-Z]{1,2}\d{1,2}[A-Z]?\s?\d[A-Z]{2})\b`)

	vatNumberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)VAT\s+(?:Registration\s+)?(?:No|Number)\.?[\s:]*((?:GB\s?)?\d{3}\s?\d{4}\s?\d{2})\b`),
		regexp.MustCompile(`\b(GB\s?\d{3}\s?\d{4}\s?\d{2})\b`),
		regexp.MustCompile(`\b(\d{9})\b`),
	}

	businessNamePattern = regexp.MustCompile(`(?i)(?:business|trading|registered)\s+name[ \t:]+([A-Z][A-Za-z0-9 \t&.,\-()]{3,60})`)

	directorNamePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)director[ \t:]+([A-Z][A-Za-z\-']+(?:[ \t]+[A-Z][A-Za-z\-']+){1,3})`),
		regexp.MustCompile(`(?i)name[ \t:]+([A-Z][A-Za-z\-']+(?:[ \t]+[A-Z][A-Za-z\-']+){1,3})`),
	}

	dobPattern = regexp.MustCompile(`(?i)(?:date\s+of\s+birth|born|DOB)[\s:]*(\d{1,2}[\s/.\-](?:\d{1,2}|[A-Za-z]+)[\s/.\-]\d{2,4}|[A-Za-z]+\s+\d{4})`)

	datePattern = regexp.MustCompile(`\b(\d{1,2}(?:st|nd|rd|th)?\s+[A-Za-z]+\s+\d{4}|\d{1,2}[/.\-]\d{1,2}[/.\-]\d{2,4})\b`)
)

// fallbackExtract applies deterministic patterns when no model is available.
func fallbackExtract(variant models.Variant, raw string) map[string]string {
	switch variant {
	case models.VariantVATRegistration:
		return fallbackVAT(raw)
	case models.VariantDirectorVerification:
		return fallbackDirector(raw)
	default:
		return fallbackCompany(raw)
	}
}

func fallbackCompany(raw string) map[string]string {
	values := map[string]string{}
	values["company_number"] = firstMatch(companyNumberPatterns, raw)
	values["company_name"] = companyName(raw)
	values["address"] = addressBeforePostcode(raw)
	values["date"] = singleMatch(datePattern, raw)
	return values
}

func fallbackVAT(raw string) map[string]string {
	values := map[string]string{}
	values["vat_number"] = strings.ToUpper(strings.ReplaceAll(firstMatch(vatNumberPatterns, raw), " ", ""))
	values["business_name"] = singleMatch(businessNamePattern, raw)
	values["address"] = addressBeforePostcode(raw)
	values["registration_date"] = singleMatch(datePattern, raw)
	return values
}

func fallbackDirector(raw string) map[string]string {
	values := map[string]string{}
	values["director_name"] = firstMatch(directorNamePatterns, raw)
	values["date_of_birth"] = singleMatch(dobPattern, raw)
	values["address"] = addressBeforePostcode(raw)
	values["company_number"] = firstMatch(companyNumberPatterns, raw)
	values["company_name"] = companyName(raw)
	return values
}

// companyName tries the phrase patterns first, then falls back to the first
// early line that carries a company suffix without certificate boilerplate.
func companyName(raw string) string {
	if name := firstMatch(companyNamePatterns, raw); name != "" {
		return name
	}
	return companyNameFromLines(raw)
}

func companyNameFromLines(raw string) string {
	lines := strings.Split(raw, "\n")
	if len(lines) > 15 {
		lines = lines[:15]
	}
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || !companySuffixPattern.MatchString(trimmed) {
			continue
		}
		upper := strings.ToUpper(trimmed)
		boilerplate := false
		for _, kw := range nameHeaderKeywords {
			if strings.Contains(upper, kw) {
				boilerplate = true
				break
			}
		}
		if boilerplate {
			continue
		}
		return upper
	}
	return ""
}

func firstMatch(patterns []*regexp.Regexp, raw string) string {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(raw); len(m) > 1 {
			return strings.ToUpper(strings.TrimSpace(m[1]))
		}
	}
	return ""
}

func singleMatch(p *regexp.Regexp, raw string) string {
	if m := p.FindStringSubmatch(raw); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// addressBeforePostcode takes up to 100 characters preceding the first UK
// postcode, which usually covers the full registered address line.
func addressBeforePostcode(raw string) string {
	upper := strings.ToUpper(raw)
	m := postcodePattern.FindStringIndex(upper)
	if m == nil {
		return ""
	}
	start := m[0] - 100
	if start < 0 {
		start = 0
	}
	candidate := strings.TrimSpace(raw[start:m[1]])
	if len(candidate) <= 10 {
		return ""
	}
	return candidate
}
