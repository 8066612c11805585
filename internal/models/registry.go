package models

// Officer is one company officer as reported by the company registry.
type Officer struct {
	Name        string `json:"name"`
	Role        string `json:"officer_role,omitempty"`
	AppointedOn string `json:"appointed_on,omitempty"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
}

// CompanyProfile is the company registry's view of a company.
type CompanyProfile struct {
	CompanyName   string         `json:"company_name"`
	CompanyNumber string         `json:"company_number"`
	Address       string         `json:"address"`
	CreatedDate   string         `json:"date_of_creation,omitempty"`
	Officers      []Officer      `json:"officers,omitempty"`
	Raw           map[string]any `json:"raw,omitempty"`
}

// VATRecord is the tax registry's answer for a VAT number.
type VATRecord struct {
	VATNumber        string `json:"vat_number"`
	BusinessName     string `json:"business_name,omitempty"`
	AddressLine1     string `json:"address_line1,omitempty"`
	RegistrationDate string `json:"registration_date,omitempty"`
	Valid            bool   `json:"valid"`
}

// DirectorMatch is the outcome of matching a director against company officers.
type DirectorMatch struct {
	Verified bool     `json:"verified"`
	Reason   string   `json:"reason,omitempty"`
	Officer  *Officer `json:"officer,omitempty"`
}
