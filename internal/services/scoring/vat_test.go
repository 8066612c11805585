package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/probo/internal/models"
)

func happyVATPayload() *models.VATPayload {
	valid := true
	fields := models.VATFields{
		VATNumber:    "123456789",
		BusinessName: "Acme Widgets Limited",
		Address:      "1 Long Lane, London, EC1A 1BB",
	}
	registry := fields
	registry.VATNumber = "GB123456789"
	return &models.VATPayload{
		Merchant:      fields,
		Extracted:     fields,
		Registry:      registry,
		OCRConfidence: 92.0,
		RegistryValid: &valid,
	}
}

func TestScoreVAT(t *testing.T) {
	svc := NewService(nil)

	t.Run("valid registry answer scores 40", func(t *testing.T) {
		p := happyVATPayload()
		decision := svc.ScoreVAT(p, 0)

		assert.InDelta(t, 27.6, p.Scores.OCRScore, 1e-9)
		assert.InDelta(t, 40.0, p.Scores.RegistryScore, 1e-9)
		assert.InDelta(t, 30.0, p.Scores.ProvidedScore, 1e-9)
		// 27.6 + 40 + 30 = 97.6, no comparison component for VAT.
		assert.InDelta(t, 97.6, p.Scores.FinalScore, 1e-9)
		assert.Equal(t, models.DecisionPass, decision)
	})

	t.Run("invalid registry answer scores zero", func(t *testing.T) {
		p := happyVATPayload()
		invalid := false
		p.RegistryValid = &invalid
		svc.ScoreVAT(p, 0)
		assert.Zero(t, p.Scores.RegistryScore)
	})

	t.Run("skipped lookup scores zero", func(t *testing.T) {
		p := happyVATPayload()
		p.RegistryValid = nil
		p.Registry = models.VATFields{}
		decision := svc.ScoreVAT(p, 0)
		assert.Zero(t, p.Scores.RegistryScore)
		assert.Zero(t, p.Scores.ProvidedScore)
		assert.NotEqual(t, models.DecisionPass, decision)
	})

	t.Run("forensic penalty applies", func(t *testing.T) {
		p := happyVATPayload()
		svc.ScoreVAT(p, 15)
		assert.InDelta(t, 82.6, p.Scores.FinalScore, 1e-9)
	})
}

func TestScoreDirector(t *testing.T) {
	svc := NewService(nil)

	officer := &models.Officer{Name: "Jane Roe", Role: "director", DateOfBirth: "1980-05"}

	t.Run("verified appointment scores 40", func(t *testing.T) {
		p := &models.DirectorPayload{
			Merchant: models.DirectorFields{
				DirectorName:  "Jane Roe",
				DateOfBirth:   "1980-05",
				CompanyNumber: "09876543",
			},
			Extracted: models.DirectorFields{
				DirectorName:  "Jane Roe",
				CompanyNumber: "09876543",
			},
			OCRConfidence:  92.0,
			Verified:       true,
			MatchedOfficer: officer,
		}
		decision := svc.ScoreDirector(p, 0)

		assert.InDelta(t, 40.0, p.Scores.RegistryScore, 1e-9)
		assert.InDelta(t, 30.0, p.Scores.ProvidedScore, 1e-9)
		// 27.6 + 40 + 30 = 97.6.
		assert.InDelta(t, 97.6, p.Scores.FinalScore, 1e-9)
		assert.Equal(t, models.DecisionPass, decision)
	})

	t.Run("director not found fails", func(t *testing.T) {
		p := &models.DirectorPayload{
			Merchant: models.DirectorFields{
				DirectorName:  "Jane Roe",
				CompanyNumber: "09876543",
			},
			Extracted: models.DirectorFields{
				DirectorName:  "Jane Roe",
				CompanyNumber: "09876543",
			},
			OCRConfidence: 92.0,
			Verified:      false,
			VerifyReason:  "Director not found",
		}
		decision := svc.ScoreDirector(p, 0)

		assert.Zero(t, p.Scores.RegistryScore)
		// 27.6 + 0 + number-only provided component (0.2*30 = 6) = 33.6.
		assert.InDelta(t, 33.6, p.Scores.FinalScore, 1e-9)
		assert.Equal(t, models.DecisionFail, decision)
	})
}
