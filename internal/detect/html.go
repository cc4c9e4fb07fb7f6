package detect

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// ignoredAttributePrefixes are attribute families that carry no compatibility
// signal: custom data, framework directives, event handlers and ARIA.
var ignoredAttributePrefixes = []string{"data-", "x-", "on", "aria-"}

// ignoredAttributes are global attributes present on nearly every element.
var ignoredAttributes = map[string]bool{
	"id":        true,
	"class":     true,
	"style":     true,
	"title":     true,
	"lang":      true,
	"dir":       true,
	"role":      true,
	"tabindex":  true,
	"accesskey": true,
	"translate": true,
	"xmlns":     true,
}

// IgnoredAttribute reports whether an attribute name is excluded from
// attribute-level tokens. name must be lower-cased.
func IgnoredAttribute(name string) bool {
	if ignoredAttributes[name] {
		return true
	}
	for _, p := range ignoredAttributePrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// DetectHTML emits html.elements.<tag> for every start or self-closing tag and
// html.elements.<tag>.<attr> for each of its attributes that is not ignored.
// Attribute tokens carry the line of their tag.
func DetectHTML(ctx context.Context, src []byte) ([]Token, error) {
	tree, err := parse(ctx, FamilyHTML, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	set := newTokenSet()
	walkHTML(tree.RootNode(), src, set)
	return set.tokens, nil
}

func walkHTML(n *sitter.Node, src []byte, set *tokenSet) {
	switch n.Type() {
	case "start_tag", "self_closing_tag":
		htmlTag(n, src, set)
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walkHTML(n.NamedChild(i), src, set)
	}
}

func htmlTag(n *sitter.Node, src []byte, set *tokenSet) {
	line := lineOf(n)
	var tag string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "tag_name":
			tag = text(c, src)
			if !isIdent(tag) {
				tag = ""
				continue
			}
			set.add(line, KindElement, join(ElementPrefix, tag), "")
		case "attribute":
			if tag == "" {
				continue
			}
			name := attributeName(c, src)
			if !isIdent(name) || IgnoredAttribute(name) {
				continue
			}
			set.add(line, KindAttribute, join(ElementPrefix, tag, name), "<"+tag+" "+name+">")
		}
	}
}

func attributeName(n *sitter.Node, src []byte) string {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "attribute_name" {
			return text(c, src)
		}
	}
	return ""
}
