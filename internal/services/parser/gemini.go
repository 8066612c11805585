package parser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/ternarybob/probo/internal/common"
)

// GeminiExtractor implements field extraction via the Gemini API.
type GeminiExtractor struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  arbor.ILogger
}

// NewGeminiExtractor initializes the genai client from configuration.
func NewGeminiExtractor(ctx context.Context, cfg common.LLMConfig, logger arbor.ILogger) (*GeminiExtractor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Google API key is required (set via PROBO_LLM_API_KEY or llm.api_key in config)")
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	logger.Debug().
		Str("model", model).
		Dur("timeout", timeout).
		Msg("Gemini field extractor initialized")

	return &GeminiExtractor{
		client:  client,
		model:   model,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Extract prompts the model and decodes the JSON it returns.
func (e *GeminiExtractor) Extract(ctx context.Context, prompt string, fields []string) (map[string]string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0.1)),
	}
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	resp, err := e.client.Models.GenerateContent(timeoutCtx, e.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("Gemini API call failed: %w", err)
	}

	var response strings.Builder
	if resp != nil && len(resp.Candidates) > 0 {
		for _, candidate := range resp.Candidates {
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					response.WriteString(part.Text)
				}
			}
			if response.Len() > 0 {
				break
			}
		}
	}
	if response.Len() == 0 {
		return nil, fmt.Errorf("no response generated from Gemini API")
	}

	values, err := parseModelJSON(response.String(), fields)
	if err != nil {
		return nil, err
	}

	e.logger.Debug().
		Int("fields_found", countNonEmpty(values)).
		Msg("Gemini field extraction completed")
	return values, nil
}
