package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/oauth2"

	"github.com/ternarybob/probo/internal/common"
	"github.com/ternarybob/probo/internal/models"
)

func newVATClient(t *testing.T, handler http.Handler) *HMRCClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewHMRCClient(common.HMRCConfig{
		BaseURL:     server.URL,
		ServerToken: "server-token",
	}, nil)
}

func TestCheckVAT(t *testing.T) {
	t.Run("valid registration", func(t *testing.T) {
		client := newVATClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/organisations/vat/check-vat-number/lookup/123456789" {
				t.Errorf("unexpected path %q", r.URL.Path)
			}
			if got := r.Header.Get("Accept"); got != hmrcAcceptHeader {
				t.Errorf("Accept = %q", got)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer server-token" {
				t.Errorf("Authorization = %q", got)
			}
			w.Write([]byte(`{"target": {"name": "ACME WIDGETS LIMITED", "vatNumber": "123456789", "address": {"line1": "1 Long Lane", "postcode": "EC1A 1BB"}}, "processingDate": "2024-01-15"}`))
		}))

		record, err := client.CheckVAT(context.Background(), "GB 123 4567 89")
		if err != nil {
			t.Fatalf("CheckVAT returned error: %v", err)
		}
		if record == nil || !record.Valid {
			t.Fatalf("expected valid record, got %+v", record)
		}
		if record.BusinessName != "ACME WIDGETS LIMITED" {
			t.Errorf("BusinessName = %q", record.BusinessName)
		}
	})

	t.Run("unknown number is invalid", func(t *testing.T) {
		client := newVATClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))

		record, err := client.CheckVAT(context.Background(), "GB999999999")
		if err != nil {
			t.Fatalf("CheckVAT returned error: %v", err)
		}
		if record == nil || record.Valid {
			t.Errorf("expected invalid record, got %+v", record)
		}
	})

	t.Run("unauthorized means unknown", func(t *testing.T) {
		client := newVATClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
		}))

		record, err := client.CheckVAT(context.Background(), "GB123456789")
		if err != nil {
			t.Fatalf("auth failure should not be an error: %v", err)
		}
		if record != nil {
			t.Errorf("expected nil record when the answer is unknown, got %+v", record)
		}
	})

	t.Run("malformed number is invalid without a lookup", func(t *testing.T) {
		client := newVATClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected for malformed number")
		}))

		record, err := client.CheckVAT(context.Background(), "not-a-vat")
		if err != nil {
			t.Fatalf("CheckVAT returned error: %v", err)
		}
		if record == nil || record.Valid {
			t.Errorf("expected invalid record, got %+v", record)
		}
	})
}

func TestNormalizeVATNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"GB123456789", "123456789", true},
		{"gb 123 4567 89", "123456789", true},
		{"123456789", "123456789", true},
		{"123-456-789", "123456789", true},
		{"12345678", "", false},
		{"GBABC456789", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := normalizeVATNumber(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("normalizeVATNumber(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestMatchDirector(t *testing.T) {
	officers := []models.Officer{
		{Name: "SMITH, Jane", Role: "director", DateOfBirth: "April 1980"},
		{Name: "JONES, Robert", Role: "secretary", DateOfBirth: "June 1975"},
	}

	t.Run("name and DOB match", func(t *testing.T) {
		match := MatchDirector("Jane Smith", "April 1980", officers)
		if !match.Verified {
			t.Fatalf("expected verified, got %+v", match)
		}
		if match.Officer == nil || match.Officer.Name != "SMITH, Jane" {
			t.Errorf("wrong officer: %+v", match.Officer)
		}
	})

	t.Run("registry ordering matches natural ordering", func(t *testing.T) {
		if !MatchDirector("Robert Jones", "", officers).Verified {
			t.Error("expected surname-first registry entry to match")
		}
	})

	t.Run("DOB year overlap is enough", func(t *testing.T) {
		if !MatchDirector("Jane Smith", "12/04/1980", officers).Verified {
			t.Error("expected shared year to satisfy the DOB check")
		}
	})

	t.Run("DOB mismatch", func(t *testing.T) {
		match := MatchDirector("Jane Smith", "March 1979", officers)
		if match.Verified {
			t.Fatal("expected DOB mismatch")
		}
		if match.Reason != "DOB mismatch" {
			t.Errorf("Reason = %q", match.Reason)
		}
	})

	t.Run("director not found", func(t *testing.T) {
		match := MatchDirector("Alice Brown", "", officers)
		if match.Verified || match.Reason != "Director not found" {
			t.Errorf("unexpected match: %+v", match)
		}
	})

	t.Run("no officers", func(t *testing.T) {
		match := MatchDirector("Jane Smith", "", nil)
		if match.Verified || match.Reason != "Director not found" {
			t.Errorf("unexpected match: %+v", match)
		}
	})

	t.Run("empty name", func(t *testing.T) {
		if MatchDirector("", "", officers).Verified {
			t.Error("empty name must not verify")
		}
	})
}

func TestNewHMRCClientOAuth(t *testing.T) {
	client := NewHMRCClient(common.HMRCConfig{
		BaseURL:      "https://api.example.test",
		ServerToken:  "server-token",
		UseOAuth:     true,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	}, nil)

	if client.serverToken != "" {
		t.Errorf("server token should be dropped when OAuth is enabled, got %q", client.serverToken)
	}
	if _, ok := client.httpClient.Transport.(*oauth2.Transport); !ok {
		t.Errorf("transport = %T, want *oauth2.Transport", client.httpClient.Transport)
	}
	if client.httpClient.Timeout != DefaultTimeout {
		t.Errorf("timeout = %s, want %s", client.httpClient.Timeout, DefaultTimeout)
	}
}
