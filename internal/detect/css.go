package detect

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// atRuleNodes are the tree-sitter-css node types that represent an at-rule.
var atRuleNodes = map[string]bool{
	"at_rule":             true,
	"media_statement":     true,
	"supports_statement":  true,
	"keyframes_statement": true,
	"import_statement":    true,
	"charset_statement":   true,
	"namespace_statement": true,
	"scope_statement":     true,
}

// descriptorContainers hold descriptors rather than properties. Nothing
// declared inside them becomes a css.properties token.
var descriptorContainers = map[string]bool{
	"font-face":           true,
	"counter-style":       true,
	"page":                true,
	"property":            true,
	"font-palette-values": true,
	"font-feature-values": true,
}

// marginBoxes are the @page margin contexts. They are descriptor containers
// and are not reported as at-rules of their own.
var marginBoxes = map[string]bool{
	"top-left-corner":     true,
	"top-left":            true,
	"top-center":          true,
	"top-right":           true,
	"top-right-corner":    true,
	"bottom-left-corner":  true,
	"bottom-left":         true,
	"bottom-center":       true,
	"bottom-right":        true,
	"bottom-right-corner": true,
	"left-top":            true,
	"left-middle":         true,
	"left-bottom":         true,
	"right-top":           true,
	"right-middle":        true,
	"right-bottom":        true,
}

// declarationWrapper opens a synthetic block around the source for the
// declaration-list pass. It contains no newline so rows are unchanged.
const declarationWrapper = "x{"

// DetectCSS emits selector, at-rule, property and property-value tokens.
//
// The source is parsed as a stylesheet, then a second time as a bare
// declaration list so inline-style fragments without a selector are covered.
// The second pass keeps only declarations directly in the synthetic block.
// Results are merged and deduplicated by (line, key).
func DetectCSS(ctx context.Context, src []byte) ([]Token, error) {
	set := newTokenSet()

	tree, err := parse(ctx, FamilyCSS, src)
	if err != nil {
		return nil, err
	}
	walkCSS(tree.RootNode(), src, set, false)
	tree.Close()

	wrapped := make([]byte, 0, len(declarationWrapper)+len(src)+2)
	wrapped = append(wrapped, declarationWrapper...)
	wrapped = append(wrapped, src...)
	wrapped = append(wrapped, "\n}"...)

	loose, err := parse(ctx, FamilyCSS, wrapped)
	if err != nil {
		return nil, err
	}
	defer loose.Close()
	if block := wrapperBlock(loose.RootNode()); block != nil {
		for i := 0; i < int(block.NamedChildCount()); i++ {
			c := block.NamedChild(i)
			if c.Type() == "declaration" {
				declarationTokens(c, wrapped, set)
			}
		}
	}

	return set.tokens, nil
}

// walkCSS visits n and its descendants. Inside a descriptor container,
// declarations are skipped.
func walkCSS(n *sitter.Node, src []byte, set *tokenSet, descriptors bool) {
	t := n.Type()
	switch {
	case atRuleNodes[t]:
		name := atRuleName(n, src)
		if name != "" {
			if !marginBoxes[name] {
				set.add(lineOf(n), KindAtRule, join(AtRulePrefix, name), "")
			}
			if descriptorContainers[name] || marginBoxes[name] {
				descriptors = true
			}
		}
	case t == "rule_set":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if c := n.NamedChild(i); c.Type() == "selectors" {
				selectorTokens(c, src, lineOf(n), set)
			}
		}
	case t == "declaration":
		if !descriptors {
			declarationTokens(n, src, set)
		}
		return
	case t == "selectors":
		return
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		walkCSS(n.NamedChild(i), src, set, descriptors)
	}
}

// atRuleName returns the lower-cased at-keyword of an at-rule node without
// the leading '@'.
func atRuleName(n *sitter.Node, src []byte) string {
	if n.ChildCount() == 0 {
		return ""
	}
	kw := text(n.Child(0), src)
	if !strings.HasPrefix(kw, "@") {
		return ""
	}
	name := strings.TrimPrefix(kw, "@")
	if !isIdent(name) {
		return ""
	}
	return name
}

// selectorTokens scans a selector subtree for one or more colon tokens
// followed by a name. Pseudo-classes and pseudo-elements share a key shape;
// functional pseudo-classes use the function name.
func selectorTokens(n *sitter.Node, src []byte, line int, set *tokenSet) {
	pending := false
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		t := c.Type()
		if t == ":" || t == "::" {
			pending = true
			continue
		}
		if pending && c.IsNamed() {
			if name := text(c, src); isIdent(name) {
				set.add(line, KindSelector, join(SelectorPrefix, name), "")
			}
		}
		pending = false
		if c.ChildCount() > 0 {
			selectorTokens(c, src, line, set)
		}
	}
}

// declarationTokens emits the property token and one value token for every
// top-level identifier or function name in the value.
func declarationTokens(n *sitter.Node, src []byte, set *tokenSet) {
	line := lineOf(n)
	var name string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "property_name" {
			name = text(c, src)
			if !isIdent(name) {
				return
			}
			set.add(line, KindProperty, join(PropertyPrefix, name), "")
			continue
		}
		if name == "" {
			continue
		}
		valueKeywords(c, src, func(kw string) {
			set.add(line, KindValue, join(PropertyPrefix, name, kw), name+": "+kw)
		})
	}
}

func valueKeywords(n *sitter.Node, src []byte, emit func(string)) {
	switch n.Type() {
	case "plain_value":
		if kw := text(n, src); isIdent(kw) {
			emit(kw)
		}
	case "call_expression":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if c := n.NamedChild(i); c.Type() == "function_name" {
				if kw := text(c, src); isIdent(kw) {
					emit(kw)
				}
				return
			}
		}
	case "binary_expression":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			valueKeywords(n.NamedChild(i), src, emit)
		}
	}
}

// wrapperBlock finds the block of the synthetic rule opened by
// declarationWrapper.
func wrapperBlock(root *sitter.Node) *sitter.Node {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		c := root.NamedChild(i)
		if c.Type() != "rule_set" {
			continue
		}
		for j := 0; j < int(c.NamedChildCount()); j++ {
			if b := c.NamedChild(j); b.Type() == "block" {
				return b
			}
		}
		return nil
	}
	return nil
}
