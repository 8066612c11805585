package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/ternarybob/probo/internal/common"
	"github.com/ternarybob/probo/internal/models"
)

const hmrcAcceptHeader = "application/vnd.hmrc.1.0+json"

// HMRCClient checks VAT registrations against the HMRC check-vat-number API.
type HMRCClient struct {
	baseURL     string
	serverToken string
	httpClient  *http.Client
	logger      arbor.ILogger
}

// NewHMRCClient builds the client. With OAuth enabled the HTTP client
// transparently obtains and refreshes client-credentials tokens; otherwise
// the static server token is sent as a bearer token.
func NewHMRCClient(cfg common.HMRCConfig, logger arbor.ILogger) *HMRCClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := &HMRCClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		serverToken: cfg.ServerToken,
		logger:      logger,
	}

	if cfg.UseOAuth && cfg.ClientID != "" {
		tokenURL := cfg.TokenURL
		if tokenURL == "" {
			tokenURL = client.baseURL + "/oauth/token"
		}
		creds := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
		}
		// Tokens are reused until five minutes before expiry.
		source := oauth2.ReuseTokenSourceWithExpiry(nil, creds.TokenSource(context.Background()), 5*time.Minute)
		client.httpClient = oauth2.NewClient(context.Background(), source)
		client.httpClient.Timeout = timeout
		client.serverToken = ""
	} else {
		client.httpClient = &http.Client{Timeout: timeout}
	}

	return client
}

type hmrcVATResponse struct {
	Target struct {
		Name    string `json:"name"`
		VRN     string `json:"vatNumber"`
		Address struct {
			Line1    string `json:"line1"`
			Postcode string `json:"postcode"`
		} `json:"address"`
	} `json:"target"`
	ProcessingDate string `json:"processingDate"`
}

// CheckVAT validates a VAT number. A definitive registry miss yields a
// record with Valid false; (nil, nil) means the answer is unknown and the
// lookup should be treated as skipped.
func (c *HMRCClient) CheckVAT(ctx context.Context, vatNumber string) (*models.VATRecord, error) {
	number, ok := normalizeVATNumber(vatNumber)
	if !ok {
		return &models.VATRecord{VATNumber: vatNumber, Valid: false}, nil
	}

	reqURL := fmt.Sprintf("%s/organisations/vat/check-vat-number/lookup/%s", c.baseURL, number)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", hmrcAcceptHeader)
	if c.serverToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.serverToken)
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("vat_number", number).
			Msg("HMRC VAT lookup")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network failure is not evidence either way.
		if c.logger != nil {
			c.logger.Warn().Err(err).Msg("HMRC VAT lookup failed")
		}
		return nil, nil
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var raw hmrcVATResponse
		if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to decode HMRC response: %w", err)
		}
		return &models.VATRecord{
			VATNumber:        number,
			BusinessName:     raw.Target.Name,
			AddressLine1:     raw.Target.Address.Line1,
			RegistrationDate: raw.ProcessingDate,
			Valid:            true,
		}, nil
	case http.StatusNotFound:
		return &models.VATRecord{VATNumber: number, Valid: false}, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		if c.logger != nil {
			c.logger.Warn().
				Int("status", resp.StatusCode).
				Msg("HMRC VAT lookup unauthorized, treating as unavailable")
		}
		return nil, nil
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   "/organisations/vat/check-vat-number",
		}
	}
}

var vatDigits = regexp.MustCompile(`^\d{9}$`)

// normalizeVATNumber strips the GB prefix and separators, leaving the nine
// digit registration number HMRC expects.
func normalizeVATNumber(vat string) (string, bool) {
	cleaned := strings.ToUpper(strings.TrimSpace(vat))
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	cleaned = strings.ReplaceAll(cleaned, "-", "")
	cleaned = strings.TrimPrefix(cleaned, "GB")
	if !vatDigits.MatchString(cleaned) {
		return "", false
	}
	return cleaned, true
}
