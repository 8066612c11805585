package parser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/common"
)

// ClaudeExtractor implements field extraction via the Anthropic API.
type ClaudeExtractor struct {
	client  *anthropic.Client
	model   string
	timeout time.Duration
	logger  arbor.ILogger
}

// NewClaudeExtractor initializes the Anthropic client from configuration.
func NewClaudeExtractor(cfg common.LLMConfig, logger arbor.ILogger) (*ClaudeExtractor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required (set via ANTHROPIC_API_KEY, PROBO_LLM_API_KEY, or llm.api_key in config)")
	}

	model := cfg.Model
	if model == "" {
		model = "claude-haiku-3-5-20241022"
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	client := anthropic.NewClient(
		option.WithAPIKey(cfg.APIKey),
	)

	logger.Debug().
		Str("model", model).
		Dur("timeout", timeout).
		Msg("Claude field extractor initialized")

	return &ClaudeExtractor{
		client:  &client,
		model:   model,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Extract prompts the model and decodes the JSON it returns. A model failure
// is reported as an error so the caller can fall back to regex parsing.
func (e *ClaudeExtractor) Extract(ctx context.Context, prompt string, fields []string) (map[string]string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	startTime := time.Now()
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(e.model),
		MaxTokens:   1024,
		Temperature: anthropic.Float(0.1),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	resp, err := e.client.Messages.New(timeoutCtx, params)
	if err != nil {
		return nil, fmt.Errorf("Claude API call failed: %w", err)
	}

	var response strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			response.WriteString(block.Text)
		}
	}
	if response.Len() == 0 {
		return nil, fmt.Errorf("no response generated from Claude API")
	}

	values, err := parseModelJSON(response.String(), fields)
	if err != nil {
		return nil, err
	}

	e.logger.Debug().
		Int("fields_found", countNonEmpty(values)).
		Dur("duration", time.Since(startTime)).
		Msg("Claude field extraction completed")
	return values, nil
}
