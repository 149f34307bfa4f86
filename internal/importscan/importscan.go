// Package importscan extracts the symbols a source file imports and the
// modules they come from.
//
// Extraction is approximate by design of the pattern extractor: it may match
// inside comments or strings and misses import styles it does not know. The
// syntax extractor parses JavaScript properly and can be substituted through
// the Extractor interface.
package importscan

import (
	"fmt"
	"regexp"
	"strings"
)

// Reference is one import or require statement.
type Reference struct {
	Names  []string `json:"names"`
	Module string   `json:"module"`
}

// Extractor extracts import references from source text.
type Extractor interface {
	Extract(text string) []Reference
}

const (
	KindPattern = "pattern"
	KindSyntax  = "syntax"
)

// New returns the extractor registered under kind. An empty kind selects the
// pattern extractor.
func New(kind string) (Extractor, error) {
	switch kind {
	case "", KindPattern:
		return PatternExtractor{}, nil
	case KindSyntax:
		return NewSyntaxExtractor(), nil
	default:
		return nil, fmt.Errorf("unknown import extractor %q (supported: %s, %s)", kind, KindPattern, KindSyntax)
	}
}

// importPattern matches
//
//	import {a, b} from "m"
//	import x from "m"
//	const {a, b} = require("m")
//
// Group 1 holds ES import names, group 2 require names, group 3 the module.
var importPattern = regexp.MustCompile(
	`(?:import\s+(?:\{?\s*([\w\s,]+)\s*\}?\s*from\s+['"]|(?:[\w\s,]+)\s+from\s+['"])` +
		`|const\s+\{?\s*([\w\s,]+)\s*\}?\s*=\s*require\(['"])(.+?)['"]`)

// PatternExtractor scans text with a single regular expression.
type PatternExtractor struct{}

// Extract returns references in order of appearance.
func (PatternExtractor) Extract(text string) []Reference {
	var refs []Reference
	for _, m := range importPattern.FindAllStringSubmatch(text, -1) {
		list := m[1]
		if list == "" {
			list = m[2]
		}
		refs = append(refs, Reference{Names: splitNames(list), Module: m[3]})
	}
	return refs
}

// splitNames splits a comma separated list, trims each name, drops empties
// and duplicates, keeping first-occurrence order.
func splitNames(list string) []string {
	names := []string{}
	seen := make(map[string]bool)
	for _, part := range strings.Split(list, ",") {
		name := strings.TrimSpace(part)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// Names flattens the names of refs in order, without duplicates.
func Names(refs []Reference) []string {
	var names []string
	seen := make(map[string]bool)
	for _, r := range refs {
		for _, n := range r.Names {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	return names
}
