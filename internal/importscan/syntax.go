package importscan

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

// SyntaxExtractor parses the text as JavaScript with tree-sitter and reads
// import statements and require() declarations from the syntax tree, so
// comments and string literals never produce references. When the text cannot
// be parsed it falls back to the pattern extractor.
//
// SyntaxExtractor is safe for concurrent use; each call builds its own parser.
type SyntaxExtractor struct {
	fallback PatternExtractor
}

// NewSyntaxExtractor returns a tree-sitter backed extractor.
func NewSyntaxExtractor() *SyntaxExtractor {
	return &SyntaxExtractor{}
}

func (s *SyntaxExtractor) Extract(text string) []Reference {
	src := []byte(text)
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(javascript.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil || tree == nil {
		return s.fallback.Extract(text)
	}
	defer tree.Close()

	var refs []Reference
	walk(tree.RootNode(), src, &refs)
	return refs
}

func walk(n *sitter.Node, src []byte, refs *[]Reference) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "import_statement":
		if ref, ok := importStatement(n, src); ok {
			*refs = append(*refs, ref)
		}
		return
	case "variable_declarator":
		if ref, ok := requireDeclarator(n, src); ok {
			*refs = append(*refs, ref)
			return
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walk(n.NamedChild(i), src, refs)
	}
}

// importStatement handles `import x, {a, b as c} from "m"`.
func importStatement(n *sitter.Node, src []byte) (Reference, bool) {
	source := n.ChildByFieldName("source")
	if source == nil {
		return Reference{}, false
	}
	var names []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		clause := n.NamedChild(i)
		if clause.Type() != "import_clause" {
			continue
		}
		for j := 0; j < int(clause.NamedChildCount()); j++ {
			part := clause.NamedChild(j)
			switch part.Type() {
			case "identifier":
				names = append(names, part.Content(src))
			case "named_imports":
				for k := 0; k < int(part.NamedChildCount()); k++ {
					spec := part.NamedChild(k)
					if spec.Type() != "import_specifier" {
						continue
					}
					if name := spec.ChildByFieldName("name"); name != nil {
						names = append(names, name.Content(src))
					}
				}
			}
		}
	}
	return Reference{
		Names:  splitNames(strings.Join(names, ",")),
		Module: unquote(source.Content(src)),
	}, true
}

// requireDeclarator handles `x = require("m")` and `{a, b} = require("m")`
// inside const, let and var declarations.
func requireDeclarator(n *sitter.Node, src []byte) (Reference, bool) {
	value := n.ChildByFieldName("value")
	if value == nil || value.Type() != "call_expression" {
		return Reference{}, false
	}
	fn := value.ChildByFieldName("function")
	if fn == nil || fn.Type() != "identifier" || fn.Content(src) != "require" {
		return Reference{}, false
	}
	args := value.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return Reference{}, false
	}
	arg := args.NamedChild(0)
	if arg.Type() != "string" {
		return Reference{}, false
	}

	var names []string
	if target := n.ChildByFieldName("name"); target != nil {
		switch target.Type() {
		case "identifier":
			names = append(names, target.Content(src))
		case "object_pattern":
			for i := 0; i < int(target.NamedChildCount()); i++ {
				prop := target.NamedChild(i)
				switch prop.Type() {
				case "shorthand_property_identifier_pattern":
					names = append(names, prop.Content(src))
				case "pair_pattern":
					if key := prop.ChildByFieldName("key"); key != nil {
						names = append(names, key.Content(src))
					}
				}
			}
		}
	}
	return Reference{
		Names:  splitNames(strings.Join(names, ",")),
		Module: unquote(arg.Content(src)),
	}, true
}

func unquote(s string) string {
	return strings.Trim(s, "'\"`")
}
