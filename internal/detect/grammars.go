package detect

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/css"
	"github.com/smacker/go-tree-sitter/html"
)

// Family names a detector and the file extensions routed to it.
type Family string

const (
	FamilyHTML Family = "html"
	FamilyCSS  Family = "css"
)

// Families lists detector families in scan order.
var Families = []Family{FamilyHTML, FamilyCSS}

// extToFamily maps file extensions to detector families.
var extToFamily = map[string]Family{
	".html":   FamilyHTML,
	".htm":    FamilyHTML,
	".jinja":  FamilyHTML,
	".jinja2": FamilyHTML,
	".j2":     FamilyHTML,
	".tmpl":   FamilyHTML,
	".gohtml": FamilyHTML,
	".css":    FamilyCSS,
}

// familyToGrammar maps families to tree-sitter Language objects.
// Lazily initialized on first call via sync.Once.
var (
	familyToGrammar map[Family]*sitter.Language
	grammarsOnce    sync.Once
)

func initGrammars() {
	grammarsOnce.Do(func() {
		familyToGrammar = map[Family]*sitter.Language{
			FamilyHTML: html.GetLanguage(),
			FamilyCSS:  css.GetLanguage(),
		}
	})
}

// FamilyForFile returns the detector family for a file path based on its
// extension. Returns ("", false) if the extension is not recognized.
func FamilyForFile(path string) (Family, bool) {
	f, ok := extToFamily[strings.ToLower(filepath.Ext(path))]
	return f, ok
}

// Extensions returns the sorted extension set routed to family.
func Extensions(family Family) []string {
	var exts []string
	for ext, f := range extToFamily {
		if f == family {
			exts = append(exts, ext)
		}
	}
	sort.Strings(exts)
	return exts
}

// GrammarForFamily returns the tree-sitter Language for a family.
func GrammarForFamily(family Family) (*sitter.Language, bool) {
	initGrammars()
	l, ok := familyToGrammar[family]
	return l, ok
}

// Detect runs the detector for family over src.
func Detect(ctx context.Context, family Family, src []byte) ([]Token, error) {
	switch family {
	case FamilyHTML:
		return DetectHTML(ctx, src)
	case FamilyCSS:
		return DetectCSS(ctx, src)
	}
	return nil, fmt.Errorf("detect: unsupported family %q", family)
}

// parse builds a tree for src. Each call uses its own parser, so concurrent
// calls are safe.
func parse(ctx context.Context, family Family, src []byte) (*sitter.Tree, error) {
	lang, ok := GrammarForFamily(family)
	if !ok {
		return nil, fmt.Errorf("detect: no grammar for %q", family)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("detect: tree-sitter parse failed: %w", err)
	}
	return tree, nil
}
