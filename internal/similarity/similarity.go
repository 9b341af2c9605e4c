// Package similarity scores how alike two strings are on a 0..1 scale.
package similarity

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
	"golang.org/x/text/unicode/norm"
)

// Algorithm names a similarity measure.
type Algorithm string

// Supported algorithms.
const (
	JaroWinkler        Algorithm = "jaro-winkler"
	Jaro               Algorithm = "jaro"
	Levenshtein        Algorithm = "levenshtein"
	DamerauLevenshtein Algorithm = "damerau-levenshtein"
	DefaultAlgorithm             = JaroWinkler
)

// ErrUnknownAlgorithm is returned for an unsupported algorithm name.
var ErrUnknownAlgorithm = errors.New("unknown similarity algorithm")

// Algorithms lists the supported algorithms.
func Algorithms() []Algorithm {
	return []Algorithm{JaroWinkler, Jaro, Levenshtein, DamerauLevenshtein}
}

// ParseAlgorithm converts a name to an Algorithm. An empty name selects
// DefaultAlgorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	if name == "" {
		return DefaultAlgorithm, nil
	}
	for _, a := range Algorithms() {
		if string(a) == name {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
}

// Ratio returns the similarity of a and b, where 1 means identical.
// Both strings are normalized to NFC first. Edit distances are scaled by
// the longer string's length in runes.
func Ratio(a, b string, alg Algorithm) (float64, error) {
	a, b = norm.NFC.String(a), norm.NFC.String(b)
	if a == b {
		return 1, nil
	}

	switch alg {
	case JaroWinkler, "":
		return matchr.JaroWinkler(a, b, false), nil
	case Jaro:
		return matchr.Jaro(a, b), nil
	case Levenshtein:
		return scale(matchr.Levenshtein(a, b), a, b), nil
	case DamerauLevenshtein:
		return scale(matchr.DamerauLevenshtein(a, b), a, b), nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, alg)
	}
}

func scale(distance int, a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(distance)/float64(longest)
}
