package forensic

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// pdfMetaResult summarises anomalies in a PDF's document information
// dictionary.
type pdfMetaResult struct {
	Score    float64
	Flags    []string
	Creator  string
	Producer string
}

// editorSoftware contains lowercase substrings of desktop editing tools that
// would be unusual producers of an official registry certificate.
var editorSoftware = []string{
	"photoshop", "gimp", "paint.net", "paint", "coreldraw",
	"illustrator", "inkscape", "canva", "figma", "sketch",
}

// pdfMetadataScore inspects the info dictionary for signs the document was
// reworked after issue. Each flag costs between 5 and 20 points.
func pdfMetadataScore(data []byte, tempDir string, now time.Time) pdfMetaResult {
	res := pdfMetaResult{Score: 100}

	tempFile := filepath.Join(tempDir, fmt.Sprintf("meta_%d.pdf", os.Getpid()))
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return res
	}
	defer os.Remove(tempFile)

	pdfCtx, err := api.ReadContextFile(tempFile)
	if err != nil {
		return res
	}

	var creator, producer, creationRaw, modRaw string
	if pdfCtx.Info != nil {
		if dict, err := pdfCtx.DereferenceDict(*pdfCtx.Info); err == nil && dict != nil {
			creator = infoString(dict, "Creator")
			producer = infoString(dict, "Producer")
			creationRaw = infoString(dict, "CreationDate")
			modRaw = infoString(dict, "ModDate")
		}
	}
	res.Creator = creator
	res.Producer = producer

	created, createdOK := parsePDFDate(creationRaw)
	modified, modifiedOK := parsePDFDate(modRaw)

	if createdOK && modifiedOK && created.After(modified) {
		res.Flags = append(res.Flags, "creation date after modification date")
		res.Score -= 20
	}
	if field, sw := findEditorSoftware(creator, producer); sw != "" {
		res.Flags = append(res.Flags, fmt.Sprintf("editing software in metadata: %s", field))
		res.Score -= 15
	}
	if creator == "" && producer == "" {
		res.Flags = append(res.Flags, "creator and producer both missing")
		res.Score -= 5
	}
	if modifiedOK && createdOK && modified.After(created) && now.Sub(modified) < 365*24*time.Hour {
		res.Flags = append(res.Flags, "modified within the last year")
		res.Score -= 10
	}

	if res.Score < 0 {
		res.Score = 0
	}
	return res
}

func findEditorSoftware(fields ...string) (string, string) {
	for _, field := range fields {
		lower := strings.ToLower(field)
		for _, sw := range editorSoftware {
			if strings.Contains(lower, sw) {
				return field, sw
			}
		}
	}
	return "", ""
}

func infoString(dict types.Dict, key string) string {
	obj, found := dict.Find(key)
	if !found || obj == nil {
		return ""
	}
	switch v := obj.(type) {
	case types.StringLiteral:
		s, err := types.StringLiteralToString(v)
		if err != nil {
			return v.Value()
		}
		return s
	case types.HexLiteral:
		s, err := types.HexLiteralToString(v)
		if err != nil {
			return v.Value()
		}
		return s
	default:
		return ""
	}
}

// parsePDFDate handles the D:YYYYMMDDHHmmSS prefix of PDF date strings,
// ignoring the timezone suffix.
func parsePDFDate(raw string) (time.Time, bool) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "D:")
	digits := raw
	for i, r := range raw {
		if r < '0' || r > '9' {
			digits = raw[:i]
			break
		}
	}
	layouts := []string{"20060102150405", "200601021504", "2006010215", "20060102", "200601", "2006"}
	for _, layout := range layouts {
		if len(digits) == len(layout) {
			t, err := time.Parse(layout, digits)
			if err != nil {
				return time.Time{}, false
			}
			return t, true
		}
	}
	return time.Time{}, false
}

// pdfMetaPenalty converts flags into the pipeline penalty contribution.
func pdfMetaPenalty(flags int) float64 {
	switch {
	case flags >= 2:
		return 2
	case flags == 1:
		return 1
	default:
		return 0
	}
}
