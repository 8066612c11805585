// Package scoring composites the evidence streams into component scores, a
// final score and a PASS / REVIEW / FAIL decision.
package scoring

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/models"
)

// Service scores verification payloads.
type Service struct {
	logger arbor.ILogger
}

// NewService creates a scoring service.
func NewService(logger arbor.ILogger) *Service {
	return &Service{logger: logger}
}

// Score dispatches on the payload variant, fills the payload's component
// scores in place and returns the decision. Null inputs contribute zero to
// their components; scoring always completes.
func (s *Service) Score(payload *models.VariantPayload, forensicPenalty float64) models.Decision {
	var decision models.Decision
	switch {
	case payload.Company != nil:
		decision = s.ScoreCompany(payload.Company, forensicPenalty)
	case payload.VAT != nil:
		decision = s.ScoreVAT(payload.VAT, forensicPenalty)
	case payload.Director != nil:
		decision = s.ScoreDirector(payload.Director, forensicPenalty)
	default:
		decision = models.DecisionFail
	}

	if sc := payload.Scores(); sc != nil && s.logger != nil {
		s.logger.Debug().
			Str("ocr_score", fmt.Sprintf("%.1f", sc.OCRScore)).
			Str("registry_score", fmt.Sprintf("%.1f", sc.RegistryScore)).
			Str("provided_score", fmt.Sprintf("%.1f", sc.ProvidedScore)).
			Str("final_score", fmt.Sprintf("%.1f", sc.FinalScore)).
			Str("decision", string(decision)).
			Msg("Scoring complete")
	}
	return decision
}
