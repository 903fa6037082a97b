package textutil

import (
	"regexp"
	"slices"
	"strings"

	"github.com/antzucaro/matchr"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName lowercases name and removes all whitespace, underscores
// are turned into dashes so "inst_tops" and "Inst-Tops" compare equal.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	name = strings.ReplaceAll(name, "_", "-")
	return name
}

func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

// SuggestThreshold is the lowest jaro-winkler similarity still worth
// suggesting.
const SuggestThreshold = 0.8

type suggestion struct {
	name       string
	similarity float64
}

// Suggest returns the candidates most similar to name, best first.
func Suggest(name string, candidates []string, limit int) []string {
	name = NormalizeName(name)

	var found []suggestion
	for _, candidate := range candidates {
		similarity := matchr.JaroWinkler(name, NormalizeName(candidate), false)
		if similarity < SuggestThreshold {
			continue
		}
		found = append(found, suggestion{name: candidate, similarity: similarity})
	}
	slices.SortStableFunc(found, func(a, b suggestion) int {
		switch {
		case a.similarity > b.similarity:
			return -1
		case a.similarity < b.similarity:
			return 1
		}
		return 0
	})

	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	names := make([]string, len(found))
	for i, s := range found {
		names[i] = s.name
	}
	return names
}
