package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity(t *testing.T) {
	t.Run("empty inputs score zero", func(t *testing.T) {
		if got := Similarity("", "ACME LIMITED"); got != 0 {
			t.Errorf("Expected 0 for empty input, got %f", got)
		}
		if got := Similarity("", ""); got != 0 {
			t.Errorf("Expected 0 for both empty, got %f", got)
		}
	})

	t.Run("identity is 1", func(t *testing.T) {
		for _, s := range []string{"ACME LIMITED", "  acme limited ", "GB123456789"} {
			if got := Similarity(s, s); got != 1 {
				t.Errorf("Similarity(%q, %q) = %f, want 1", s, s, got)
			}
		}
	})

	t.Run("case and whitespace insensitive", func(t *testing.T) {
		if got := Similarity("Acme Widgets Limited", "  ACME WIDGETS LIMITED "); got != 1 {
			t.Errorf("Expected 1 after normalization, got %f", got)
		}
	})

	t.Run("symmetric", func(t *testing.T) {
		pairs := [][2]string{
			{"ACME WIDGETS LIMITED", "ACME WIDGET LTD"},
			{"03035678", "3035678"},
			{"JOHN DOE", "JANE ROE"},
		}
		for _, p := range pairs {
			ab := Similarity(p[0], p[1])
			ba := Similarity(p[1], p[0])
			assert.InDelta(t, ab, ba, 1e-9, "Similarity(%q,%q) != Similarity(%q,%q)", p[0], p[1], p[1], p[0])
		}
	})

	t.Run("matching blocks ratio", func(t *testing.T) {
		// "ABCD" vs "ABXD": blocks AB and D, 2*3/8.
		assert.InDelta(t, 0.75, Similarity("ABCD", "ABXD"), 1e-9)
	})

	t.Run("disjoint strings score low", func(t *testing.T) {
		if got := Similarity("AAAA", "ZZZZ"); got != 0 {
			t.Errorf("Expected 0 for disjoint strings, got %f", got)
		}
	})
}

func TestNormalizeNumber(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"3035678", "03035678"},
		{"035678", "00035678"},
		{"03035678", "03035678"},
		{"SC123456", "SC123456"},
		{"03 03-5678", "03035678"},
		{"", ""},
	}
	for _, c := range cases {
		if got := normalizeNumber(c.in); got != c.want {
			t.Errorf("normalizeNumber(%q) = %q, want %q", c.in, got, c.want)
		}
	}

	t.Run("idempotent", func(t *testing.T) {
		for _, in := range []string{"3035678", "SC123456", "03035678"} {
			once := normalizeNumber(in)
			if twice := normalizeNumber(once); twice != once {
				t.Errorf("normalizeNumber not idempotent: %q -> %q -> %q", in, once, twice)
			}
		}
	})

	t.Run("padded forms compare equal iff zero padding matches", func(t *testing.T) {
		if normalizeNumber("3035678") != normalizeNumber("03035678") {
			t.Error("7-digit form should pad to the 8-digit registry form")
		}
		if normalizeNumber("35678") == normalizeNumber("03035678") {
			t.Error("Unrelated numbers must not collide after padding")
		}
	})
}

func TestNormalizeVAT(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"GB123456789", "123456789"},
		{"gb 123 456 789", "123456789"},
		{"123456789", "123456789"},
		{"", ""},
	}
	for _, c := range cases {
		if got := normalizeVAT(c.in); got != c.want {
			t.Errorf("normalizeVAT(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
