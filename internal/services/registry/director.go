package registry

import (
	"strings"

	"github.com/ternarybob/probo/internal/models"
)

// MatchDirector looks for the named director among company officers. Names
// match on case-insensitive containment in either direction, since registry
// entries use "SURNAME, Forename" ordering while documents use natural
// ordering. A date of birth, when both sides carry one, must overlap.
func MatchDirector(name, dateOfBirth string, officers []models.Officer) models.DirectorMatch {
	if strings.TrimSpace(name) == "" {
		return models.DirectorMatch{Reason: "No director name to match"}
	}
	if len(officers) == 0 {
		return models.DirectorMatch{Reason: "Director not found"}
	}

	for i := range officers {
		officer := &officers[i]
		if !namesMatch(name, officer.Name) {
			continue
		}
		if dateOfBirth != "" && officer.DateOfBirth != "" && !dobOverlap(dateOfBirth, officer.DateOfBirth) {
			return models.DirectorMatch{
				Reason:  "DOB mismatch",
				Officer: officer,
			}
		}
		return models.DirectorMatch{
			Verified: true,
			Officer:  officer,
		}
	}
	return models.DirectorMatch{Reason: "Director not found"}
}

// namesMatch compares names word-wise so "SMITH, Jane" matches "Jane Smith".
func namesMatch(a, b string) bool {
	wordsA := nameWords(a)
	wordsB := nameWords(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return false
	}
	return containsAll(wordsB, wordsA) || containsAll(wordsA, wordsB)
}

func nameWords(name string) []string {
	cleaned := strings.ToUpper(name)
	cleaned = strings.ReplaceAll(cleaned, ",", " ")
	cleaned = strings.ReplaceAll(cleaned, ".", " ")
	return strings.Fields(cleaned)
}

func containsAll(haystack, needles []string) bool {
	set := make(map[string]struct{}, len(haystack))
	for _, w := range haystack {
		set[w] = struct{}{}
	}
	for _, w := range needles {
		if _, ok := set[w]; !ok {
			return false
		}
	}
	return true
}

// dobOverlap accepts when either representation contains the other. The
// registry only exposes month and year, so "April 1980" must satisfy a
// document's "12/04/1980" and vice versa.
func dobOverlap(a, b string) bool {
	na := strings.ToUpper(strings.TrimSpace(a))
	nb := strings.ToUpper(strings.TrimSpace(b))
	if na == "" || nb == "" {
		return true
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return true
	}
	// Fall back to shared year.
	return sharedYear(na, nb)
}

func sharedYear(a, b string) bool {
	for _, ya := range yearsIn(a) {
		for _, yb := range yearsIn(b) {
			if ya == yb {
				return true
			}
		}
	}
	return false
}

func yearsIn(s string) []string {
	var years []string
	runs := splitDigitRuns(s)
	for _, run := range runs {
		if len(run) == 4 && (strings.HasPrefix(run, "19") || strings.HasPrefix(run, "20")) {
			years = append(years, run)
		}
	}
	return years
}

func splitDigitRuns(s string) []string {
	var runs []string
	var current strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			current.WriteRune(r)
			continue
		}
		if current.Len() > 0 {
			runs = append(runs, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		runs = append(runs, current.String())
	}
	return runs
}
