package matcher

import (
	"strings"

	"github.com/samber/lo"
)

var (
	// Variants are the pluralization endings appended to a root word.
	Variants = []string{"", "e", "en", "es", "s"}
	// Prefixes open a surface form, approximating a word boundary.
	Prefixes = []string{"(", "[", `"`, "'", " "}
	// Suffixes close a surface form.
	Suffixes = []string{")", "]", ";", ",", ".", ":", "-", "–", `"`, "'", " "}
)

// Compile expands a case-sensitive root word into its surface forms.
func Compile(root string) []string {
	forms := make([]string, 0, len(Variants)*len(Prefixes)*len(Suffixes))
	for _, v := range Variants {
		word := root + v
		for _, p := range Prefixes {
			for _, s := range Suffixes {
				forms = append(forms, p+word+s)
			}
		}
	}
	return forms
}

// CompileAll returns the de-duplicated union of the surface forms of roots.
func CompileAll(roots []string) []string {
	var forms []string
	for _, root := range roots {
		forms = append(forms, Compile(root)...)
	}
	return lo.Uniq(forms)
}

// Matchwords holds the keyword lists used by the evaluator.
type Matchwords struct {
	CaseInsensitive []string
	CaseSensitive   []string
	BlockWords      []string
}

// NewMatchwords expands case-sensitive roots and lower-cases the
// case-insensitive and block lists once.
func NewMatchwords(caseInsensitive, caseSensitiveRoots, blockWords []string) Matchwords {
	return Matchwords{
		CaseInsensitive: lowerAll(caseInsensitive),
		CaseSensitive:   CompileAll(clean(caseSensitiveRoots)),
		BlockWords:      lowerAll(blockWords),
	}
}

// Empty reports whether there is nothing to match against.
func (m Matchwords) Empty() bool {
	return len(m.CaseInsensitive) == 0 && len(m.CaseSensitive) == 0
}

func lowerAll(words []string) []string {
	return lo.Map(clean(words), func(w string, _ int) string {
		return strings.ToLower(w)
	})
}

func clean(words []string) []string {
	return lo.Uniq(lo.Filter(words, func(w string, _ int) bool {
		return w != ""
	}))
}
