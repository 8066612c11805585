package scoring

import (
	"github.com/ternarybob/probo/internal/models"
)

// ScoreDirector computes component scores, final score and decision for a
// director verification payload. The registry component is binary: a
// verified appointment scores the full 40.
func (s *Service) ScoreDirector(p *models.DirectorPayload, forensicPenalty float64) models.Decision {
	sc := &p.Scores
	sc.ComparisonDetails = make(map[string]float64)

	sc.OCRScore = min(30, p.OCRConfidence/100*30)

	if p.Verified {
		sc.RegistryScore = 40
	}

	var officerName, officerDOB string
	if p.MatchedOfficer != nil {
		officerName = p.MatchedOfficer.Name
		officerDOB = p.MatchedOfficer.DateOfBirth
	}

	nameSim := Similarity(p.Extracted.DirectorName, officerName)
	sc.ComparisonDetails["name_similarity"] = nameSim

	// Merchant-declared component: name 0.5, date of birth 0.3, company
	// number 0.2 against the matched officer record.
	provName := Similarity(p.Merchant.DirectorName, officerName)
	provDOB := Similarity(p.Merchant.DateOfBirth, officerDOB)
	provNumber := Similarity(normalizeNumber(p.Merchant.CompanyNumber), normalizeNumber(p.Extracted.CompanyNumber))
	sc.ProvidedScore = (provName*0.5 + provDOB*0.3 + provNumber*0.2) * 30
	sc.ComparisonDetails["provided_name_similarity"] = provName
	sc.ComparisonDetails["provided_dob_similarity"] = provDOB
	sc.ComparisonDetails["provided_number_similarity"] = provNumber

	sc.DataMatchScore = dataMatchScore([]pair{
		{p.Extracted.DirectorName, officerName, false},
		{p.Extracted.DateOfBirth, officerDOB, false},
		{p.Merchant.DirectorName, officerName, false},
		{p.Merchant.DateOfBirth, officerDOB, false},
		{p.Merchant.CompanyNumber, p.Extracted.CompanyNumber, true},
	})

	sc.FinalScore = clamp(sc.OCRScore+sc.RegistryScore+sc.ProvidedScore-forensicPenalty, 0, 100)

	bothNames := p.Extracted.DirectorName != "" && officerName != ""
	return decide(sc.FinalScore, nameSim, bothNames)
}
