// Package fuzzy scores approximate string similarity on a 0–100 scale.
package fuzzy

import (
	"math"
	"strings"
)

// Ratio returns the case-insensitive Levenshtein ratio of a and b: the
// insert/delete edit distance normalised by the combined length, scaled to
// 0..100 and rounded. Two empty strings are identical (100).
func Ratio(a, b string) int {
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))

	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}

	dist := total - 2*lcs(ra, rb)
	return int(math.Round(float64(total-dist) * 100 / float64(total)))
}

// BestOf returns the candidate with the highest Ratio to query, its index and
// score. Ties keep the first candidate seen. With no candidates it returns
// index -1 and score 0.
func BestOf(query string, candidates []string) (string, int, int) {
	best, bestIdx, bestScore := "", -1, -1
	for i, c := range candidates {
		if score := Ratio(query, c); score > bestScore {
			best, bestIdx, bestScore = c, i, score
		}
	}
	if bestIdx < 0 {
		return "", -1, 0
	}
	return best, bestIdx, bestScore
}

// lcs returns the length of the longest common subsequence of a and b.
// The indel distance of a and b is len(a)+len(b)-2*lcs(a, b).
func lcs(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) > len(b) {
		a, b = b, a
	}

	prev := make([]int, len(a)+1)
	curr := make([]int, len(a)+1)

	for j := 1; j <= len(b); j++ {
		for i := 1; i <= len(a); i++ {
			if a[i-1] == b[j-1] {
				curr[i] = prev[i-1] + 1
			} else {
				curr[i] = max(prev[i], curr[i-1])
			}
		}
		prev, curr = curr, prev
	}

	return prev[len(a)]
}
