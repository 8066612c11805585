package interfaces

import (
	"context"

	"github.com/ternarybob/probo/internal/models"
)

// CompanyRegistry is the authoritative company data source.
type CompanyRegistry interface {
	// GetProfile fetches the company profile with its composed address and
	// top officers. Returns (nil, nil) on a miss.
	GetProfile(ctx context.Context, companyNumber string) (*models.CompanyProfile, error)
	GetOfficers(ctx context.Context, companyNumber string) ([]models.Officer, error)
	Search(ctx context.Context, query string) ([]models.CompanyProfile, error)
}

// TaxRegistry validates VAT registrations.
type TaxRegistry interface {
	// CheckVAT validates a VAT number. Returns (nil, nil) when the lookup
	// could not be performed (auth failure, network error).
	CheckVAT(ctx context.Context, vatNumber string) (*models.VATRecord, error)
}
