// Package fuzzy offers "did you mean" hints over campground names the user
// has seen before, for when the backend returns no suggestions.
package fuzzy

import (
	"sort"
	"strings"

	"github.com/fiam/gounidecode/unidecode"
	"github.com/schollz/closestmatch"
	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// MinSimilarity is the lowest score a hint may have.
const MinSimilarity = 0.5

// Normalize folds accents and case and trims space.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(unidecode.Unidecode(s)))
}

// Similarity returns 1 - edit distance / longer length, in [0, 1].
func Similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 1.0
	}
	distance := levenshtein.DistanceForStrings(ra, rb, levenshtein.DefaultOptions)
	sim := 1.0 - float64(distance)/float64(maxLen)
	if sim < 0 {
		return 0
	}
	return sim
}

// Matcher ranks known names against a query.
type Matcher struct {
	cm       *closestmatch.ClosestMatch
	original map[string]string // normalized -> display name
}

// NewMatcher indexes names. Names that normalize to the same text keep the
// first spelling.
func NewMatcher(names []string) *Matcher {
	m := &Matcher{original: make(map[string]string)}
	var keys []string
	for _, n := range names {
		k := Normalize(n)
		if k == "" {
			continue
		}
		if _, ok := m.original[k]; ok {
			continue
		}
		m.original[k] = strings.TrimSpace(n)
		keys = append(keys, k)
	}
	if len(keys) > 0 {
		m.cm = closestmatch.New(keys, []int{2, 3})
	}
	return m
}

// Len returns the number of indexed names.
func (m *Matcher) Len() int { return len(m.original) }

// Hint is one ranked name.
type Hint struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Suggest returns up to max names close to query, best first.
func (m *Matcher) Suggest(query string, max int) []Hint {
	q := Normalize(query)
	if q == "" || m.cm == nil || max <= 0 {
		return nil
	}

	var hints []Hint
	seen := make(map[string]bool)
	consider := func(k string) {
		if k == "" || seen[k] {
			return
		}
		seen[k] = true
		score := Similarity(q, k)
		if strings.Contains(k, q) && score < MinSimilarity {
			score = MinSimilarity
		}
		if score >= MinSimilarity {
			hints = append(hints, Hint{Name: m.original[k], Score: score})
		}
	}
	for _, k := range m.cm.ClosestN(q, max*3) {
		consider(k)
	}

	sort.SliceStable(hints, func(i, j int) bool {
		if hints[i].Score != hints[j].Score {
			return hints[i].Score > hints[j].Score
		}
		return hints[i].Name < hints[j].Name
	})
	if len(hints) > max {
		hints = hints[:max]
	}
	return hints
}

// Names returns only the names of Suggest's hints.
func (m *Matcher) Names(query string, max int) []string {
	hints := m.Suggest(query, max)
	out := make([]string, len(hints))
	for i, h := range hints {
		out[i] = h.Name
	}
	return out
}
