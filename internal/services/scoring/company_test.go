package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/probo/internal/models"
)

func happyCompanyPayload() *models.CompanyPayload {
	fields := models.CompanyFields{
		CompanyName:   "Acme Widgets Limited",
		CompanyNumber: "03035678",
		Address:       "1 Long Lane, London, EC1A 1BB",
	}
	return &models.CompanyPayload{
		Merchant:      fields,
		Extracted:     fields,
		Registry:      fields,
		OCRConfidence: 92.0,
	}
}

func TestScoreCompany(t *testing.T) {
	svc := NewService(nil)

	t.Run("happy path scores full marks", func(t *testing.T) {
		p := happyCompanyPayload()
		decision := svc.ScoreCompany(p, 0)

		assert.InDelta(t, 27.6, p.Scores.OCRScore, 1e-9)
		assert.InDelta(t, 40.0, p.Scores.RegistryScore, 1e-9)
		assert.InDelta(t, 30.0, p.Scores.OCRComparisonScore, 1e-9)
		assert.InDelta(t, 30.0, p.Scores.ProvidedScore, 1e-9)
		assert.InDelta(t, 100.0, p.Scores.DataMatchScore, 1e-9)
		// 27.6+40+30+30 = 127.6, clamped.
		assert.InDelta(t, 100.0, p.Scores.FinalScore, 1e-9)
		assert.Equal(t, models.DecisionPass, decision)
	})

	t.Run("confidence bounds", func(t *testing.T) {
		p := happyCompanyPayload()
		p.OCRConfidence = 0
		svc.ScoreCompany(p, 0)
		assert.Zero(t, p.Scores.OCRScore)

		p = happyCompanyPayload()
		p.OCRConfidence = 100
		svc.ScoreCompany(p, 0)
		assert.InDelta(t, 30.0, p.Scores.OCRScore, 1e-9)
	})

	t.Run("registry match on padded number", func(t *testing.T) {
		p := happyCompanyPayload()
		p.Extracted.CompanyNumber = "3035678"
		svc.ScoreCompany(p, 0)
		assert.InDelta(t, 40.0, p.Scores.RegistryScore, 1e-9)
	})

	t.Run("missing registry zeroes dependent components", func(t *testing.T) {
		p := happyCompanyPayload()
		p.Registry = models.CompanyFields{}
		decision := svc.ScoreCompany(p, 0)

		assert.Zero(t, p.Scores.RegistryScore)
		assert.Zero(t, p.Scores.OCRComparisonScore)
		assert.Zero(t, p.Scores.ProvidedScore)
		assert.Zero(t, p.Scores.DataMatchScore)
		// Only the OCR confidence component survives.
		assert.InDelta(t, 27.6, p.Scores.FinalScore, 1e-9)
		assert.Equal(t, models.DecisionFail, decision)
	})

	t.Run("missing merchant fields zero provided score only", func(t *testing.T) {
		p := happyCompanyPayload()
		p.Merchant = models.CompanyFields{}
		svc.ScoreCompany(p, 0)

		assert.Zero(t, p.Scores.ProvidedScore)
		assert.InDelta(t, 40.0, p.Scores.RegistryScore, 1e-9)
		assert.InDelta(t, 30.0, p.Scores.OCRComparisonScore, 1e-9)
	})

	t.Run("forensic penalty reduces final score", func(t *testing.T) {
		p := happyCompanyPayload()
		p.OCRConfidence = 50 // keep the composite below the clamp
		p.Merchant = models.CompanyFields{}
		svc.ScoreCompany(p, 14)
		// 15 + 40 + 0 + 30 - 14 = 71.
		assert.InDelta(t, 71.0, p.Scores.FinalScore, 1e-9)
	})

	t.Run("final score stays in range", func(t *testing.T) {
		p := &models.CompanyPayload{}
		svc.ScoreCompany(p, 15)
		assert.GreaterOrEqual(t, p.Scores.FinalScore, 0.0)
		assert.LessOrEqual(t, p.Scores.FinalScore, 100.0)
	})
}

func TestOCRComparisonScore(t *testing.T) {
	t.Run("perfect sims score 30", func(t *testing.T) {
		assert.InDelta(t, 30.0, ocrComparisonScore(1, 1, 1), 1e-9)
	})

	t.Run("name band caps", func(t *testing.T) {
		// Name similarity below 0.90 caps the whole component at 20.
		got := ocrComparisonScore(0.89, 1, 1)
		assert.LessOrEqual(t, got, 20.0)

		// Name similarity in [0.90, 0.95) caps at 25.
		got = ocrComparisonScore(0.92, 1, 1)
		assert.LessOrEqual(t, got, 25.0)
	})

	t.Run("name penalty zero at 0.70", func(t *testing.T) {
		got := ocrComparisonScore(0.70, 0, 0)
		assert.InDelta(t, 0.0, got, 1e-9)
	})

	t.Run("lenient address multiplier", func(t *testing.T) {
		low := ocrComparisonScore(1, 1, 0.2)
		// name 15 + number 9 + address 0.2*6*0.7.
		assert.InDelta(t, 15+9+0.2*6*0.7, low, 1e-9)

		mid := ocrComparisonScore(1, 1, 0.4)
		assert.InDelta(t, 15+9+0.4*6*0.9, mid, 1e-9)
	})
}

func TestDecide(t *testing.T) {
	t.Run("threshold bands", func(t *testing.T) {
		assert.Equal(t, models.DecisionPass, decide(75, 1, true))
		assert.Equal(t, models.DecisionReview, decide(74.9, 1, true))
		assert.Equal(t, models.DecisionReview, decide(50, 1, true))
		assert.Equal(t, models.DecisionFail, decide(49.9, 1, true))
	})

	t.Run("name mismatch overrides pass", func(t *testing.T) {
		assert.Equal(t, models.DecisionFail, decide(90, 0.84, true))
		assert.Equal(t, models.DecisionReview, decide(90, 0.87, true))
	})

	t.Run("override skipped when names unavailable", func(t *testing.T) {
		assert.Equal(t, models.DecisionReview, decide(60, 0, false))
		assert.Equal(t, models.DecisionFail, decide(40, 0, false))
	})
}
