package scoring

import (
	"github.com/ternarybob/probo/internal/models"
)

// Component weights for the OCR-vs-registry comparison.
const (
	nameWeight    = 0.5
	numberWeight  = 0.3
	addressWeight = 0.2
)

// ScoreCompany computes the component scores, final score and decision for a
// company certificate payload. The payload's Scores field is filled in place.
func (s *Service) ScoreCompany(p *models.CompanyPayload, forensicPenalty float64) models.Decision {
	sc := &p.Scores
	sc.ComparisonDetails = make(map[string]float64)

	// OCR confidence component, 0-30.
	sc.OCRScore = min(30, p.OCRConfidence/100*30)

	nameSim := Similarity(p.Extracted.CompanyName, p.Registry.CompanyName)
	numberSim := Similarity(normalizeNumber(p.Extracted.CompanyNumber), normalizeNumber(p.Registry.CompanyNumber))
	addressSim := Similarity(p.Extracted.Address, p.Registry.Address)
	sc.ComparisonDetails["name_similarity"] = nameSim
	sc.ComparisonDetails["number_similarity"] = numberSim
	sc.ComparisonDetails["address_similarity"] = addressSim

	// Registry number match component, 0-40.
	sc.RegistryScore = registryNumberScore(p.Extracted.CompanyNumber, p.Registry.CompanyNumber)

	// OCR-vs-registry comparison component, 0-30, with a strict name
	// penalty and a lenient address penalty.
	sc.OCRComparisonScore = ocrComparisonScore(nameSim, numberSim, addressSim)

	// Merchant-declared component, 0-30, weighted name 0.4 / number 0.4 /
	// address 0.2 against registry data.
	provName := Similarity(p.Merchant.CompanyName, p.Registry.CompanyName)
	provNumber := Similarity(normalizeNumber(p.Merchant.CompanyNumber), normalizeNumber(p.Registry.CompanyNumber))
	provAddress := Similarity(p.Merchant.Address, p.Registry.Address)
	sc.ProvidedScore = (provName*0.4 + provNumber*0.4 + provAddress*0.2) * 30
	sc.ComparisonDetails["provided_name_similarity"] = provName
	sc.ComparisonDetails["provided_number_similarity"] = provNumber
	sc.ComparisonDetails["provided_address_similarity"] = provAddress

	sc.DataMatchScore = dataMatchScore([]pair{
		{p.Extracted.CompanyName, p.Registry.CompanyName, false},
		{p.Extracted.CompanyNumber, p.Registry.CompanyNumber, true},
		{p.Extracted.Address, p.Registry.Address, false},
		{p.Merchant.CompanyName, p.Registry.CompanyName, false},
		{p.Merchant.CompanyNumber, p.Registry.CompanyNumber, true},
		{p.Merchant.Address, p.Registry.Address, false},
	})

	sc.FinalScore = clamp(sc.OCRScore+sc.RegistryScore+sc.ProvidedScore+sc.OCRComparisonScore-forensicPenalty, 0, 100)

	bothNames := p.Extracted.CompanyName != "" && p.Registry.CompanyName != ""
	return decide(sc.FinalScore, nameSim, bothNames)
}

// registryNumberScore scores the extracted company number against the
// registry's canonical number: 40 on exact match after normalization,
// sim*40 otherwise, 0 when either side is missing.
func registryNumberScore(extracted, registry string) float64 {
	if extracted == "" || registry == "" {
		return 0
	}
	a := normalizeNumber(extracted)
	b := normalizeNumber(registry)
	if a == b {
		return 40
	}
	return Similarity(a, b) * 40
}

func ocrComparisonScore(nameSim, numberSim, addressSim float64) float64 {
	nameComponent := nameSim * nameWeight * 30
	if nameSim < 0.98 {
		var factor float64
		if nameSim >= 0.90 {
			factor = (nameSim - 0.90) / 0.08
		} else {
			factor = (nameSim - 0.70) / 0.20
			if factor < 0 {
				factor = 0
			}
		}
		nameComponent *= factor
	}

	addressMultiplier := 1.0
	switch {
	case addressSim < 0.3:
		addressMultiplier = 0.7
	case addressSim < 0.5:
		addressMultiplier = 0.9
	}

	total := nameComponent +
		numberSim*numberWeight*30 +
		addressSim*addressWeight*30*addressMultiplier

	// Hard caps keyed on the name similarity band.
	switch {
	case nameSim < 0.90:
		total = min(total, 20)
	case nameSim < 0.95:
		total = min(total, 25)
	}
	return total
}

// pair is one comparable field pairing for the data-match mean.
type pair struct {
	a, b     string
	isNumber bool
}

// dataMatchScore is the mean similarity across all pairs where both sides
// are populated, scaled to 0-100. No populated pairs yields 0.
func dataMatchScore(pairs []pair) float64 {
	var sum float64
	var n int
	for _, p := range pairs {
		if p.a == "" || p.b == "" {
			continue
		}
		a, b := p.a, p.b
		if p.isNumber {
			a = normalizeNumber(a)
			b = normalizeNumber(b)
		}
		sum += Similarity(a, b)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n) * 100
}
