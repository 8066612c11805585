package models

// ForensicReport summarizes the tampering checks run against a document blob.
type ForensicReport struct {
	// ForensicScore = 100 - Penalty/15*100.
	ForensicScore float64 `json:"forensic_score"`
	// Penalty is the capped deduction applied to the composite score, [0,15].
	Penalty float64 `json:"forensic_penalty"`

	ELAScore         float64 `json:"ela_score"`
	JPEGQuality      float64 `json:"jpeg_quality"`
	CopyMove         CopyMoveResult `json:"copy_move"`
	PDFMetadataScore float64 `json:"pdf_metadata_score"`
	ResolutionScore  float64 `json:"resolution_score"`
	HistogramScore   float64 `json:"histogram_score"`
	NoiseScore       float64 `json:"noise_score"`

	EXIF map[string]string `json:"exif,omitempty"`

	FileSize  int64  `json:"file_size"`
	MD5       string `json:"md5"`
	SHA256    string `json:"sha256"`
	EstimatedDPI int `json:"estimated_dpi,omitempty"`

	// Details is a human-readable list of findings, one entry per flag.
	Details []string `json:"details,omitempty"`
}

// CopyMoveResult is the outcome of intra-image duplication detection.
type CopyMoveResult struct {
	Detected     bool    `json:"detected"`
	Confidence   float64 `json:"confidence"`
	Scanned      bool    `json:"scanned"`
	PairsChecked int     `json:"pairs_checked"`
	PairsSimilar int     `json:"pairs_similar"`
}

// AddDetail appends a finding to the report.
func (r *ForensicReport) AddDetail(detail string) {
	r.Details = append(r.Details, detail)
}
