package detect

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func detectCSS(t *testing.T, src string) []Token {
	t.Helper()
	tokens, err := DetectCSS(context.Background(), []byte(src))
	require.NoError(t, err)
	return tokens
}

func TestDetectCSS_PropertiesValuesAndSelectors(t *testing.T) {
	t.Parallel()
	src := `@container (min-width: 400px) {
  .card { display: grid; }
}
button:focus-visible { position: sticky; }
.menu:has(a[download]) { color: red; }`

	keys := keySet(detectCSS(t, src))

	assert.True(t, keys["css.at-rules.container"])
	assert.True(t, keys["css.properties.display"])
	assert.True(t, keys["css.properties.display.grid"])
	assert.True(t, keys["css.selectors.focus-visible"])
	assert.True(t, keys["css.selectors.has"])
	assert.True(t, keys["css.properties.position"])
	assert.True(t, keys["css.properties.position.sticky"])
	assert.True(t, keys["css.properties.color"])
	assert.True(t, keys["css.properties.color.red"])
}

func TestDetectCSS_TopLevelDeclarations(t *testing.T) {
	t.Parallel()
	keys := keySet(detectCSS(t, "margin: auto;"))

	assert.True(t, keys["css.properties.margin"])
	assert.True(t, keys["css.properties.margin.auto"])
}

func TestDetectCSS_DeclarationWithoutSemicolon(t *testing.T) {
	t.Parallel()
	keys := keySet(detectCSS(t, "color: red"))

	assert.True(t, keys["css.properties.color"])
	assert.True(t, keys["css.properties.color.red"])
}

func TestDetectCSS_FragmentWithBraceInString(t *testing.T) {
	t.Parallel()
	keys := keySet(detectCSS(t, `content: "{"; display: grid`))

	assert.True(t, keys["css.properties.content"])
	assert.True(t, keys["css.properties.display"])
	assert.True(t, keys["css.properties.display.grid"])
}

func TestDetectCSS_StylesheetWithTopLevelDeclaration(t *testing.T) {
	t.Parallel()
	tokens := detectCSS(t, "gap: 1rem;\na:hover { color: red; }")
	keys := keySet(tokens)

	assert.True(t, keys["css.properties.gap"])
	assert.True(t, keys["css.selectors.hover"])
	assert.True(t, keys["css.properties.color.red"])
	assert.False(t, keys["css.properties.a"])

	seen := map[string]int{}
	for _, tok := range tokens {
		seen[tok.Key]++
	}
	assert.Equal(t, 1, seen["css.properties.gap"])
}

func TestDetectCSS_FontFaceDescriptorsIgnored(t *testing.T) {
	t.Parallel()
	src := `
@font-face {
  font-family: 'Test';
  src: url(test.woff2) format('woff2'), local('Test');
  size-adjust: 105%;
}`
	keys := keySet(detectCSS(t, src))

	assert.True(t, keys["css.at-rules.font-face"])
	for k := range keys {
		assert.False(t, strings.HasPrefix(k, "css.properties.src"), k)
		assert.False(t, strings.HasPrefix(k, "css.properties.font-family"), k)
	}
	assert.False(t, keys["css.properties.size-adjust"])
}

func TestDetectCSS_CounterStyleDescriptorsIgnored(t *testing.T) {
	t.Parallel()
	src := `
@counter-style bullets {
  system: cyclic;
  symbols: '*';
  suffix: ' ';
}`
	keys := keySet(detectCSS(t, src))

	assert.True(t, keys["css.at-rules.counter-style"])
	assert.False(t, keys["css.properties.system"])
	assert.False(t, keys["css.properties.symbols"])
	assert.False(t, keys["css.properties.suffix"])
}

func TestDetectCSS_PageDescriptorsAndMarginBoxes(t *testing.T) {
	t.Parallel()
	src := `
@page {
  size: A4 landscape;
}
@top-left { content: 'x'; }
@bottom-right { content: 'y'; }`
	keys := keySet(detectCSS(t, src))

	assert.True(t, keys["css.at-rules.page"])
	for k := range keys {
		assert.False(t, strings.HasPrefix(k, "css.properties.size"), k)
		assert.False(t, strings.HasPrefix(k, "css.properties.content"), k)
	}
	assert.False(t, keys["css.at-rules.top-left"])
	assert.False(t, keys["css.at-rules.bottom-right"])
}

func TestDetectCSS_MediaRecursesIntoRules(t *testing.T) {
	t.Parallel()
	src := `@media (min-width: 600px) {
  a:hover { text-decoration: underline; }
}`
	tokens := detectCSS(t, src)
	keys := keySet(tokens)

	assert.True(t, keys["css.at-rules.media"])
	assert.True(t, keys["css.selectors.hover"])
	assert.True(t, keys["css.properties.text-decoration.underline"])

	for _, tok := range tokens {
		if tok.Key == "css.properties.text-decoration" {
			assert.Equal(t, 2, tok.Line)
		}
		if tok.Key == "css.at-rules.media" {
			assert.Equal(t, 1, tok.Line)
			assert.Equal(t, KindAtRule, tok.Kind)
		}
	}
}

func TestDetectCSS_PseudoElements(t *testing.T) {
	t.Parallel()
	keys := keySet(detectCSS(t, `p::first-line, li::marker { color: blue; }`))

	assert.True(t, keys["css.selectors.first-line"])
	assert.True(t, keys["css.selectors.marker"])
}

func TestDetectCSS_FunctionValues(t *testing.T) {
	t.Parallel()
	keys := keySet(detectCSS(t, `h1 { font-size: clamp(1rem, 2vw, 3rem); }`))

	assert.True(t, keys["css.properties.font-size"])
	assert.True(t, keys["css.properties.font-size.clamp"])
	for k := range keys {
		assert.False(t, strings.HasPrefix(k, "css.properties.font-size.1"), k)
	}
}

func TestDetectCSS_NonIdentifierValuesIgnored(t *testing.T) {
	t.Parallel()
	tokens := detectCSS(t, `a { color: #fff; width: 10px; content: "x"; }`)

	for _, tok := range tokens {
		assert.NotEqual(t, KindValue, tok.Kind, tok.Key)
	}
	keys := keySet(tokens)
	assert.True(t, keys["css.properties.color"])
	assert.True(t, keys["css.properties.width"])
	assert.True(t, keys["css.properties.content"])
}

func TestDetectCSS_CaseInsensitive(t *testing.T) {
	t.Parallel()
	keys := keySet(detectCSS(t, `DIV:HOVER { DISPLAY: GRID; }`))

	assert.True(t, keys["css.selectors.hover"])
	assert.True(t, keys["css.properties.display"])
	assert.True(t, keys["css.properties.display.grid"])
}

func TestDetectCSS_LineNumbers(t *testing.T) {
	t.Parallel()
	src := "a:hover {\n  color: red;\n\n  gap: 1rem;\n}"

	lines := map[string]int{}
	for _, tok := range detectCSS(t, src) {
		lines[tok.Key] = tok.Line
	}

	assert.Equal(t, 1, lines["css.selectors.hover"])
	assert.Equal(t, 2, lines["css.properties.color"])
	assert.Equal(t, 2, lines["css.properties.color.red"])
	assert.Equal(t, 4, lines["css.properties.gap"])
}

func TestDetectCSS_NoDuplicateTokensAcrossPasses(t *testing.T) {
	t.Parallel()
	tokens := detectCSS(t, "margin: auto;")

	seen := map[string]int{}
	for _, tok := range tokens {
		seen[tok.Key]++
	}
	for k, n := range seen {
		assert.Equal(t, 1, n, k)
	}
}

func TestDetectCSS_MalformedStylesheetDoesNotFail(t *testing.T) {
	t.Parallel()
	_, err := DetectCSS(context.Background(), []byte(`a { color: red; b {{ } :: ;; @media {`))
	require.NoError(t, err)
}

func TestDetectCSS_Idempotent(t *testing.T) {
	t.Parallel()
	src := `button:focus-visible { position: sticky; }`
	assert.Equal(t, detectCSS(t, src), detectCSS(t, src))
}

func TestDetectCSS_SelectorsAreNotDeclarations(t *testing.T) {
	t.Parallel()
	keys := keySet(detectCSS(t, "a:hover { color: red; }"))

	assert.True(t, keys["css.selectors.hover"])
	assert.False(t, keys["css.properties.a"])
	assert.False(t, keys["css.properties.a.hover"])
}
