package models

// VariantPayload holds the per-variant evidence and scores for a job. Exactly
// one of Company, VAT, or Director is populated, matching the job's variant
// (the two company-certificate variants share the Company shape).
type VariantPayload struct {
	Company  *CompanyPayload  `json:"company,omitempty"`
	VAT      *VATPayload      `json:"vat,omitempty"`
	Director *DirectorPayload `json:"director,omitempty"`
}

// NewVariantPayload constructs the payload shape for a variant.
func NewVariantPayload(variant Variant) VariantPayload {
	switch variant {
	case VariantVATRegistration:
		return VariantPayload{VAT: &VATPayload{}}
	case VariantDirectorVerification:
		return VariantPayload{Director: &DirectorPayload{}}
	default:
		return VariantPayload{Company: &CompanyPayload{}}
	}
}

// CompanyFields are the structured fields of a company certificate.
type CompanyFields struct {
	CompanyName   string `json:"company_name,omitempty"`
	CompanyNumber string `json:"company_number,omitempty"`
	Address       string `json:"address,omitempty"`
	Date          string `json:"date,omitempty"`
}

// CompanyPayload carries evidence for incorporation and registration certificates.
type CompanyPayload struct {
	Merchant  CompanyFields `json:"merchant"`
	Extracted CompanyFields `json:"extracted"`
	Registry  CompanyFields `json:"registry"`

	// Extraction metadata.
	OCRConfidence float64 `json:"ocr_confidence"`
	RawText       string  `json:"raw_text,omitempty"`

	// Registry extras.
	Officers    []Officer      `json:"officers,omitempty"`
	RegistryRaw map[string]any `json:"registry_raw,omitempty"`

	Scores ComponentScores `json:"scores"`
}

// VATFields are the structured fields of a VAT registration certificate.
type VATFields struct {
	VATNumber        string `json:"vat_number,omitempty"`
	BusinessName     string `json:"business_name,omitempty"`
	Address          string `json:"address,omitempty"`
	RegistrationDate string `json:"registration_date,omitempty"`
}

// VATPayload carries evidence for VAT registration certificates.
type VATPayload struct {
	Merchant  VATFields `json:"merchant"`
	Extracted VATFields `json:"extracted"`
	Registry  VATFields `json:"registry"`

	OCRConfidence float64 `json:"ocr_confidence"`
	RawText       string  `json:"raw_text,omitempty"`

	// RegistryValid is set when the tax registry answered; nil means the
	// lookup was skipped or failed.
	RegistryValid *bool `json:"registry_valid,omitempty"`

	Scores ComponentScores `json:"scores"`
}

// DirectorFields are the structured fields of a director appointment attestation.
type DirectorFields struct {
	DirectorName    string `json:"director_name,omitempty"`
	DateOfBirth     string `json:"date_of_birth,omitempty"`
	Address         string `json:"address,omitempty"`
	CompanyName     string `json:"company_name,omitempty"`
	CompanyNumber   string `json:"company_number,omitempty"`
	AppointmentDate string `json:"appointment_date,omitempty"`
}

// DirectorPayload carries evidence for director verification.
type DirectorPayload struct {
	Merchant  DirectorFields `json:"merchant"`
	Extracted DirectorFields `json:"extracted"`

	OCRConfidence float64 `json:"ocr_confidence"`
	RawText       string  `json:"raw_text,omitempty"`

	// Registry outcome.
	Verified       bool     `json:"verified"`
	VerifyReason   string   `json:"verify_reason,omitempty"`
	MatchedOfficer *Officer `json:"matched_officer,omitempty"`

	Scores ComponentScores `json:"scores"`
}

// ComponentScores are the per-variant scoring components.
type ComponentScores struct {
	OCRScore           float64 `json:"ocr_score"`
	RegistryScore      float64 `json:"registry_score"`
	ProvidedScore      float64 `json:"provided_score"`
	OCRComparisonScore float64 `json:"ocr_comparison_score"`
	DataMatchScore     float64 `json:"data_match_score"`
	FinalScore         float64 `json:"final_score"`

	// ComparisonDetails holds the individual similarity ratios that fed
	// the composite, for display and audit.
	ComparisonDetails map[string]float64 `json:"comparison_details,omitempty"`
}

// RawText returns the extracted document text regardless of variant.
func (p *VariantPayload) RawText() string {
	switch {
	case p.Company != nil:
		return p.Company.RawText
	case p.VAT != nil:
		return p.VAT.RawText
	case p.Director != nil:
		return p.Director.RawText
	}
	return ""
}

// Confidence returns the OCR confidence regardless of variant.
func (p *VariantPayload) Confidence() float64 {
	switch {
	case p.Company != nil:
		return p.Company.OCRConfidence
	case p.VAT != nil:
		return p.VAT.OCRConfidence
	case p.Director != nil:
		return p.Director.OCRConfidence
	}
	return 0
}

// Scores returns a pointer to the active payload's scores, or nil when the
// payload is empty.
func (p *VariantPayload) Scores() *ComponentScores {
	switch {
	case p.Company != nil:
		return &p.Company.Scores
	case p.VAT != nil:
		return &p.VAT.Scores
	case p.Director != nil:
		return &p.Director.Scores
	}
	return nil
}

// SetExtractionResult records the OCR output on the active payload.
func (p *VariantPayload) SetExtractionResult(rawText string, confidence float64) {
	switch {
	case p.Company != nil:
		p.Company.RawText = rawText
		p.Company.OCRConfidence = confidence
	case p.VAT != nil:
		p.VAT.RawText = rawText
		p.VAT.OCRConfidence = confidence
	case p.Director != nil:
		p.Director.RawText = rawText
		p.Director.OCRConfidence = confidence
	}
}
