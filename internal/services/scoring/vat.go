package scoring

import (
	"github.com/ternarybob/probo/internal/models"
)

// ScoreVAT computes component scores, final score and decision for a VAT
// registration payload. There is no OCR-vs-registry comparison component;
// the composite is ocr + registry + provided minus the forensic penalty.
func (s *Service) ScoreVAT(p *models.VATPayload, forensicPenalty float64) models.Decision {
	sc := &p.Scores
	sc.ComparisonDetails = make(map[string]float64)

	sc.OCRScore = min(30, p.OCRConfidence/100*30)

	nameSim := Similarity(p.Extracted.BusinessName, p.Registry.BusinessName)
	sc.ComparisonDetails["name_similarity"] = nameSim

	// Registry component: the tax registry either validated the number or
	// it did not; a validated number scores the full 40.
	if p.RegistryValid != nil && *p.RegistryValid {
		a := normalizeVAT(p.Extracted.VATNumber)
		b := normalizeVAT(p.Registry.VATNumber)
		if a != "" && b != "" && a != b {
			sc.RegistryScore = Similarity(a, b) * 40
		} else {
			sc.RegistryScore = 40
		}
	}

	provName := Similarity(p.Merchant.BusinessName, p.Registry.BusinessName)
	provNumber := Similarity(normalizeVAT(p.Merchant.VATNumber), normalizeVAT(p.Registry.VATNumber))
	provAddress := Similarity(p.Merchant.Address, p.Registry.Address)
	sc.ProvidedScore = (provName*0.4 + provNumber*0.4 + provAddress*0.2) * 30
	sc.ComparisonDetails["provided_name_similarity"] = provName
	sc.ComparisonDetails["provided_number_similarity"] = provNumber
	sc.ComparisonDetails["provided_address_similarity"] = provAddress

	sc.DataMatchScore = dataMatchScore([]pair{
		{normalizeVAT(p.Extracted.VATNumber), normalizeVAT(p.Registry.VATNumber), false},
		{p.Extracted.BusinessName, p.Registry.BusinessName, false},
		{p.Extracted.Address, p.Registry.Address, false},
		{normalizeVAT(p.Merchant.VATNumber), normalizeVAT(p.Registry.VATNumber), false},
		{p.Merchant.BusinessName, p.Registry.BusinessName, false},
		{p.Merchant.Address, p.Registry.Address, false},
	})

	sc.FinalScore = clamp(sc.OCRScore+sc.RegistryScore+sc.ProvidedScore-forensicPenalty, 0, 100)

	bothNames := p.Extracted.BusinessName != "" && p.Registry.BusinessName != ""
	return decide(sc.FinalScore, nameSim, bothNames)
}

// normalizeVAT strips separators and an optional GB prefix so that
// "GB 123 4567 89" and "123456789" compare equal.
func normalizeVAT(n string) string {
	n = normalizeSeparators(n)
	if len(n) == 11 && n[0] == 'G' && n[1] == 'B' {
		return n[2:]
	}
	return n
}
