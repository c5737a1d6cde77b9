package fuzzy

import (
	"strings"
)

// LevenshteinDistance calculates the edit distance between two strings
// This measures how many single-character edits (insertions, deletions, or substitutions)
// are required to change one string into another
func LevenshteinDistance(s1, s2 string) int {
	s1 = NormalizeString(s1)
	s2 = NormalizeString(s2)

	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	r1 := []rune(s1)
	r2 := []rune(s2)
	m := len(r1)
	n := len(r2)

	d := make([][]int, m+1)
	for i := range d {
		d[i] = make([]int, n+1)
	}

	for i := 0; i <= m; i++ {
		d[i][0] = i
	}
	for j := 0; j <= n; j++ {
		d[0][j] = j
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			d[i][j] = min3(
				d[i-1][j]+1,      // deletion
				d[i][j-1]+1,      // insertion
				d[i-1][j-1]+cost, // substitution
			)
		}
	}

	return d[m][n]
}

// SimilarityRatio returns a 0..1 similarity between two strings based on
// edit distance: (maxLen - distance) / maxLen. Inputs are normalized first.
func SimilarityRatio(s1, s2 string) float64 {
	s1 = NormalizeString(s1)
	s2 = NormalizeString(s2)

	maxLen := len([]rune(s1))
	if l := len([]rune(s2)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1.0
	}

	distance := LevenshteinDistance(s1, s2)
	return float64(maxLen-distance) / float64(maxLen)
}

// NameSimilarity scores how likely two display names refer to the same person.
// Returns 1.0 for equal normalized names, 0.8 when one contains the other,
// otherwise the fraction of word-level overlaps over the larger token count.
func NameSimilarity(name1, name2 string) float64 {
	n1 := NormalizeString(name1)
	n2 := NormalizeString(name2)

	if n1 == "" || n2 == "" {
		return 0
	}
	if n1 == n2 {
		return 1.0
	}
	if strings.Contains(n1, n2) || strings.Contains(n2, n1) {
		return 0.8
	}

	t1 := Tokens(n1)
	t2 := Tokens(n2)
	larger := len(t1)
	if len(t2) > larger {
		larger = len(t2)
	}
	if larger == 0 {
		return 0
	}

	matches := TokenOverlap(t1, t2)
	return float64(matches) / float64(larger)
}

// TokenOverlap counts tokens of t1 that match a token of t2, where a match is
// a substring in either direction. Tokens of length <= 1 are ignored.
func TokenOverlap(t1, t2 []string) int {
	matches := 0
	for _, a := range t1 {
		if len(a) <= 1 {
			continue
		}
		for _, b := range t2 {
			if len(b) <= 1 {
				continue
			}
			if strings.Contains(a, b) || strings.Contains(b, a) {
				matches++
				break
			}
		}
	}
	return matches
}

// Tokens splits a name into normalized lowercase words
func Tokens(s string) []string {
	return strings.Fields(NormalizeString(s))
}

// NormalizeString converts to lowercase and collapses whitespace
func NormalizeString(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), " ")
}

func min3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}
