package workspace

import (
	"regexp"
)

const (
	// MaxMatches caps the number of symbol matches returned.
	MaxMatches = 10
	// SnippetRunes is the length of the file prefix attached to a match.
	SnippetRunes = 100
)

// SymbolMatch is a file that appears to define an imported symbol.
type SymbolMatch struct {
	Path    string `json:"path"`
	Symbol  string `json:"symbol"`
	Snippet string `json:"snippet"`
}

// definitionPattern matches `function NAME` or `const NAME =`. Like the
// import scan it is textual, so `function NAMEsuffix` also matches.
func definitionPattern(name string) *regexp.Regexp {
	q := regexp.QuoteMeta(name)
	return regexp.MustCompile(`function\s+` + q + `|const\s+` + q + `\s*=`)
}

// FindSymbolDefinitions returns, in traversal order, the entries of tree that
// define one of names. Names are tried in order and the first one that
// matches a file is reported for it. At most MaxMatches are returned.
func FindSymbolDefinitions(tree *Tree, names []string) []SymbolMatch {
	if len(names) == 0 {
		return nil
	}
	patterns := make([]*regexp.Regexp, len(names))
	for i, n := range names {
		patterns[i] = definitionPattern(n)
	}

	var matches []SymbolMatch
	tree.Walk(func(n Node) bool {
		if n.Kind != KindEntry {
			return true
		}
		for i, re := range patterns {
			if re.MatchString(n.Content) {
				matches = append(matches, SymbolMatch{
					Path:    n.Path,
					Symbol:  names[i],
					Snippet: snippet(n.Content),
				})
				break
			}
		}
		return len(matches) < MaxMatches
	})
	return matches
}

func snippet(content string) string {
	runes := 0
	for i := range content {
		if runes == SnippetRunes {
			return content[:i]
		}
		runes++
	}
	return content
}
