package detect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFamilyForFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want Family
		ok   bool
	}{
		{"index.html", FamilyHTML, true},
		{"page.htm", FamilyHTML, true},
		{"templates/base.jinja2", FamilyHTML, true},
		{"layout.gohtml", FamilyHTML, true},
		{"static/main.css", FamilyCSS, true},
		{"static/MAIN.CSS", FamilyCSS, true},
		{"app.js", "", false},
		{"Makefile", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			got, ok := FamilyForFile(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtensions(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{".css"}, Extensions(FamilyCSS))
	assert.Contains(t, Extensions(FamilyHTML), ".html")
	assert.Contains(t, Extensions(FamilyHTML), ".jinja")
	assert.NotContains(t, Extensions(FamilyHTML), ".css")
}

func TestGrammarForFamily(t *testing.T) {
	t.Parallel()
	for _, f := range Families {
		l, ok := GrammarForFamily(f)
		assert.True(t, ok, f)
		assert.NotNil(t, l, f)
	}
	_, ok := GrammarForFamily("javascript")
	assert.False(t, ok)
}

func TestDetect_DispatchesByFamily(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	html, err := Detect(ctx, FamilyHTML, []byte(`<dialog></dialog>`))
	require.NoError(t, err)
	assert.True(t, keySet(html)["html.elements.dialog"])

	css, err := Detect(ctx, FamilyCSS, []byte(`a { gap: 0; }`))
	require.NoError(t, err)
	assert.True(t, keySet(css)["css.properties.gap"])

	_, err = Detect(ctx, "markdown", nil)
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	t.Parallel()

	out, replaced := Decode([]byte("a { color: red; }"))
	assert.False(t, replaced)
	assert.Equal(t, "a { color: red; }", string(out))

	out, replaced = Decode([]byte("\xEF\xBB\xBF<p>ok</p>"))
	assert.False(t, replaced)
	assert.Equal(t, "<p>ok</p>", string(out))

	out, replaced = Decode([]byte("<p>\xff\xfe</p>"))
	assert.True(t, replaced)
	assert.Contains(t, string(out), "\uFFFD")
	assert.Contains(t, string(out), "<p>")
}

func TestDecode_InvalidBytesStillDetected(t *testing.T) {
	t.Parallel()
	src, _ := Decode([]byte("<dialog open>\xff</dialog>"))
	tokens, err := DetectHTML(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, keySet(tokens)["html.elements.dialog.open"])
}

func TestDedupe(t *testing.T) {
	t.Parallel()
	in := []Token{
		{Line: 1, Key: "a"},
		{Line: 1, Key: "a"},
		{Line: 2, Key: "a"},
		{Line: 1, Key: "b"},
	}
	assert.Equal(t, []Token{{Line: 1, Key: "a"}, {Line: 2, Key: "a"}, {Line: 1, Key: "b"}}, Dedupe(in))
}
