package scoring

import (
	"strings"
)

// Similarity returns a ratio in [0,1] between two strings: 0 when either is
// empty, 1 on an exact match after trim+uppercase, otherwise the
// Ratcliff/Obershelp matching-blocks ratio.
func Similarity(a, b string) float64 {
	a = strings.ToUpper(strings.TrimSpace(a))
	b = strings.ToUpper(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	matched := matchingBlocks(a, b)
	return 2.0 * float64(matched) / float64(len(a)+len(b))
}

// matchingBlocks sums the lengths of recursively matched longest common
// substrings, the Ratcliff/Obershelp formulation.
func matchingBlocks(a, b string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	ai, bi, size := longestMatch(a, b)
	if size == 0 {
		return 0
	}
	return size +
		matchingBlocks(a[:ai], b[:bi]) +
		matchingBlocks(a[ai+size:], b[bi+size:])
}

func longestMatch(a, b string) (int, int, int) {
	bestA, bestB, bestSize := 0, 0, 0
	// prev[j] holds the match length ending at a[i-1], b[j-1].
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > bestSize {
					bestSize = cur[j]
					bestA = i - bestSize
					bestB = j - bestSize
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return bestA, bestB, bestSize
}

// normalizeSeparators uppercases and strips spaces and dashes.
func normalizeSeparators(n string) string {
	n = strings.ToUpper(strings.TrimSpace(n))
	n = strings.ReplaceAll(n, " ", "")
	return strings.ReplaceAll(n, "-", "")
}

// normalizeNumber strips spaces and dashes and left-pads all-digit values to
// 8 characters for comparison.
func normalizeNumber(n string) string {
	n = normalizeSeparators(n)
	if n == "" {
		return ""
	}
	allDigits := true
	for _, r := range n {
		if r < '0' || r > '9' {
			allDigits = false
			break
		}
	}
	if allDigits && len(n) < 8 {
		n = strings.Repeat("0", 8-len(n)) + n
	}
	return n
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
