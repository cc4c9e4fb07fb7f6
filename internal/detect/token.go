// Package detect turns HTML and CSS source text into compatibility-key tokens.
//
// Both detectors parse with tree-sitter, whose error recovery keeps malformed
// input from failing a scan: broken markup yields a partial token set.
package detect

import (
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Key namespaces.
const (
	ElementPrefix  = "html.elements"
	PropertyPrefix = "css.properties"
	SelectorPrefix = "css.selectors"
	AtRulePrefix   = "css.at-rules"
)

// Kind tags which syntactic construct produced a token.
type Kind string

const (
	KindElement   Kind = "element"
	KindAttribute Kind = "attribute"
	KindAtRule    Kind = "at-rule"
	KindSelector  Kind = "selector"
	KindProperty  Kind = "property"
	KindValue     Kind = "value"
)

// Token is one detected compatibility key at a source location.
// Path is root-relative with forward slashes; Line is 1-based.
type Token struct {
	Path   string
	Line   int
	Key    string
	Kind   Kind
	Detail string
}

type lineKey struct {
	line int
	key  string
}

// tokenSet collects tokens in emission order, dropping repeats of the same
// (line, key) pair.
type tokenSet struct {
	seen   map[lineKey]struct{}
	tokens []Token
}

func newTokenSet() *tokenSet {
	return &tokenSet{seen: make(map[lineKey]struct{})}
}

func (s *tokenSet) add(line int, kind Kind, key, detail string) {
	k := lineKey{line: line, key: key}
	if _, ok := s.seen[k]; ok {
		return
	}
	s.seen[k] = struct{}{}
	s.tokens = append(s.tokens, Token{Line: line, Key: key, Kind: kind, Detail: detail})
}

// Dedupe returns tokens with repeated (line, key) pairs removed, keeping the
// first occurrence.
func Dedupe(tokens []Token) []Token {
	set := newTokenSet()
	for _, t := range tokens {
		set.add(t.Line, t.Kind, t.Key, t.Detail)
	}
	return set.tokens
}

var identPattern = regexp.MustCompile(`^-*[a-z_][a-z0-9_-]*$`)

// isIdent reports whether a lower-cased name can be used as a key segment.
func isIdent(s string) bool {
	return identPattern.MatchString(s)
}

func lineOf(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

func text(n *sitter.Node, src []byte) string {
	return strings.ToLower(strings.TrimSpace(n.Content(src)))
}

func join(parts ...string) string {
	return strings.Join(parts, ".")
}
