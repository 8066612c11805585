// Package registry provides clients for the UK company and tax registries.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/probo/internal/models"
)

const (
	// DefaultCompaniesHouseURL is the base URL for the Companies House API.
	DefaultCompaniesHouseURL = "https://api.company-information.service.gov.uk"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 15 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 5

	// maxOfficers bounds the officer list carried on a profile.
	maxOfficers = 10
)

// CompaniesHouseClient talks to the Companies House public data API.
type CompaniesHouseClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

// ClientOption configures the CompaniesHouseClient.
type ClientOption func(*CompaniesHouseClient)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *CompaniesHouseClient) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *CompaniesHouseClient) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *CompaniesHouseClient) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *CompaniesHouseClient) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// NewCompaniesHouseClient creates a new Companies House API client. The API
// key is sent as HTTP Basic username with an empty password.
func NewCompaniesHouseClient(apiKey string, opts ...ClientOption) *CompaniesHouseClient {
	c := &CompaniesHouseClient{
		baseURL: DefaultCompaniesHouseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an error from a registry API.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("registry API error: %s (status %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a GET request to the API. A 404 is reported as (false, nil)
// so callers can distinguish a registry miss from a failure.
func (c *CompaniesHouseClient) get(ctx context.Context, path string, params url.Values, result interface{}) (bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("rate limit exceeded: %w", err)
	}

	reqURL := fmt.Sprintf("%s%s", c.baseURL, path)
	if len(params) > 0 {
		reqURL = fmt.Sprintf("%s?%s", reqURL, params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	req.SetBasicAuth(c.apiKey, "")
	req.Header.Set("Accept", "application/json")

	if c.logger != nil {
		c.logger.Debug().
			Str("url", c.baseURL+path).
			Msg("Companies House API request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return false, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}
	return true, nil
}

type chProfile struct {
	CompanyName    string    `json:"company_name"`
	CompanyNumber  string    `json:"company_number"`
	DateOfCreation string    `json:"date_of_creation"`
	CompanyStatus  string    `json:"company_status"`
	Office         chAddress `json:"registered_office_address"`
}

type chAddress struct {
	AddressLine1 string `json:"address_line_1"`
	AddressLine2 string `json:"address_line_2"`
	Locality     string `json:"locality"`
	Region       string `json:"region"`
	PostalCode   string `json:"postal_code"`
}

type chOfficerList struct {
	Items []chOfficer `json:"items"`
}

type chOfficer struct {
	Name        string `json:"name"`
	OfficerRole string `json:"officer_role"`
	AppointedOn string `json:"appointed_on"`
	DateOfBirth struct {
		Month int `json:"month"`
		Year  int `json:"year"`
	} `json:"date_of_birth"`
}

type chSearchResult struct {
	Items []struct {
		Title          string `json:"title"`
		CompanyNumber  string `json:"company_number"`
		AddressSnippet string `json:"address_snippet"`
		DateOfCreation string `json:"date_of_creation"`
	} `json:"items"`
}

// GetProfile fetches the company profile and its top officers. A miss
// returns (nil, nil).
func (c *CompaniesHouseClient) GetProfile(ctx context.Context, companyNumber string) (*models.CompanyProfile, error) {
	number := NormalizeCompanyNumber(companyNumber)

	var raw chProfile
	found, err := c.get(ctx, fmt.Sprintf("/company/%s", url.PathEscape(number)), nil, &raw)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch company %s: %w", number, err)
	}
	if !found {
		if c.logger != nil {
			c.logger.Debug().
				Str("company_number", number).
				Msg("Company not found in registry")
		}
		return nil, nil
	}

	profile := &models.CompanyProfile{
		CompanyName:   raw.CompanyName,
		CompanyNumber: raw.CompanyNumber,
		Address:       joinAddress(raw.Office),
		CreatedDate:   raw.DateOfCreation,
		Raw: map[string]any{
			"company_status": raw.CompanyStatus,
		},
	}

	officers, err := c.GetOfficers(ctx, number)
	if err != nil {
		// The profile is still useful without the officer list.
		if c.logger != nil {
			c.logger.Warn().
				Err(err).
				Str("company_number", number).
				Msg("Failed to fetch officers")
		}
	} else {
		profile.Officers = officers
	}

	return profile, nil
}

// GetOfficers returns up to ten officers for a company.
func (c *CompaniesHouseClient) GetOfficers(ctx context.Context, companyNumber string) ([]models.Officer, error) {
	number := NormalizeCompanyNumber(companyNumber)

	var raw chOfficerList
	found, err := c.get(ctx, fmt.Sprintf("/company/%s/officers", url.PathEscape(number)), nil, &raw)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch officers for %s: %w", number, err)
	}
	if !found {
		return nil, nil
	}

	officers := make([]models.Officer, 0, maxOfficers)
	for _, item := range raw.Items {
		if len(officers) >= maxOfficers {
			break
		}
		officer := models.Officer{
			Name:        item.Name,
			Role:        item.OfficerRole,
			AppointedOn: item.AppointedOn,
		}
		if item.DateOfBirth.Year > 0 {
			if item.DateOfBirth.Month > 0 {
				officer.DateOfBirth = fmt.Sprintf("%s %d", time.Month(item.DateOfBirth.Month), item.DateOfBirth.Year)
			} else {
				officer.DateOfBirth = fmt.Sprintf("%d", item.DateOfBirth.Year)
			}
		}
		officers = append(officers, officer)
	}
	return officers, nil
}

// Search finds companies by name.
func (c *CompaniesHouseClient) Search(ctx context.Context, query string) ([]models.CompanyProfile, error) {
	params := url.Values{}
	params.Set("q", query)

	var raw chSearchResult
	found, err := c.get(ctx, "/search/companies", params, &raw)
	if err != nil {
		return nil, fmt.Errorf("failed to search companies: %w", err)
	}
	if !found {
		return nil, nil
	}

	profiles := make([]models.CompanyProfile, 0, len(raw.Items))
	for _, item := range raw.Items {
		profiles = append(profiles, models.CompanyProfile{
			CompanyName:   item.Title,
			CompanyNumber: item.CompanyNumber,
			Address:       item.AddressSnippet,
			CreatedDate:   item.DateOfCreation,
		})
	}
	return profiles, nil
}

// joinAddress composes the registry address fields into a single line.
func joinAddress(a chAddress) string {
	parts := []string{a.AddressLine1, a.AddressLine2, a.Locality, a.Region, a.PostalCode}
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			nonEmpty = append(nonEmpty, strings.TrimSpace(p))
		}
	}
	return strings.Join(nonEmpty, ", ")
}

var validCompanyNumber = regexp.MustCompile(`^([A-Z]{2}\d{6}|\d{8})$`)

// NormalizeCompanyNumber uppercases, strips separators and left-pads short
// all-digit numbers to eight digits. Unrecognizable input is returned
// untouched so the registry can reject it.
func NormalizeCompanyNumber(number string) string {
	cleaned := strings.ToUpper(strings.TrimSpace(number))
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	cleaned = strings.ReplaceAll(cleaned, "-", "")

	if validCompanyNumber.MatchString(cleaned) {
		return cleaned
	}

	allDigits := cleaned != ""
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			allDigits = false
			break
		}
	}
	if allDigits && len(cleaned) < 8 {
		return strings.Repeat("0", 8-len(cleaned)) + cleaned
	}
	return cleaned
}
