package scoring

import (
	"github.com/ternarybob/probo/internal/models"
)

// Decision thresholds for the composite score.
const (
	passThreshold   = 75
	reviewThreshold = 50
)

// Name-similarity override bands. A clear name mismatch fails the job
// regardless of the composite score; a borderline mismatch forces review.
const (
	nameFailBand   = 0.85
	nameReviewBand = 0.90
)

// decide maps a final score to a decision, then applies the name-similarity
// override when both names were available for comparison.
func decide(finalScore, nameSim float64, namesCompared bool) models.Decision {
	decision := models.DecisionFail
	switch {
	case finalScore >= passThreshold:
		decision = models.DecisionPass
	case finalScore >= reviewThreshold:
		decision = models.DecisionReview
	}

	if namesCompared {
		if nameSim < nameFailBand {
			return models.DecisionFail
		}
		if nameSim < nameReviewBand {
			return models.DecisionReview
		}
	}
	return decision
}
