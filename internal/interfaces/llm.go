package interfaces

import (
	"context"
)

// FieldExtractor extracts structured fields from raw document text using a
// language model. Extract returns a map of field name to value with nulls
// omitted; it returns nil (not an error) when the model is unavailable or
// produced nothing usable, and the caller falls back to deterministic parsing.
type FieldExtractor interface {
	Extract(ctx context.Context, prompt string, fields []string) (map[string]string, error)
}
