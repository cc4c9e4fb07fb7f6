package files

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, paths ...string) {
	t.Helper()
	for _, p := range paths {
		full := filepath.Join(root, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("x"), 0o644))
	}
}

func TestSelect_IncludeIgnoreAndExtensions(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root,
		"templates/index.html",
		"templates/partials/nav.html",
		"templates/readme.md",
		"static/app.css",
		"static/app.min.css",
		"node_modules/lib/x.css",
	)

	got, err := Select(root,
		[]string{"templates/**", "static/**", "node_modules/**"},
		[]string{"node_modules/**", "**/*.min.*"},
		[]string{".html", ".css"},
	)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"templates/index.html",
		"templates/partials/nav.html",
		"static/app.css",
	}, got)
}

func TestSelect_DedupesAcrossPatterns(t *testing.T) {
	t.Parallel()
	fsys := fstest.MapFS{
		"static/a.css":            {Data: []byte("a{}")},
		"app/static/b.css":        {Data: []byte("b{}")},
		"app/static/nested/c.css": {Data: []byte("c{}")},
	}

	got, err := SelectFS(fsys, []string{"**/static/**", "static/**", "app/**"}, nil, []string{".css"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"app/static/b.css",
		"app/static/nested/c.css",
		"static/a.css",
	}, got)
}

func TestSelect_PatternOrderIsPreserved(t *testing.T) {
	t.Parallel()
	fsys := fstest.MapFS{
		"a/one.css": {Data: []byte("")},
		"b/two.css": {Data: []byte("")},
	}

	got, err := SelectFS(fsys, []string{"b/*.css", "a/*.css"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"b/two.css", "a/one.css"}, got)
}

func TestSelect_ExtensionIsCaseInsensitive(t *testing.T) {
	t.Parallel()
	fsys := fstest.MapFS{
		"site/INDEX.HTML": {Data: []byte("")},
		"site/logo.svg":   {Data: []byte("")},
	}

	got, err := SelectFS(fsys, []string{"site/*"}, nil, []string{".html"})
	require.NoError(t, err)
	assert.Equal(t, []string{"site/INDEX.HTML"}, got)
}

func TestSelect_SkipsDirectoriesMatchingPattern(t *testing.T) {
	t.Parallel()
	fsys := fstest.MapFS{
		"static/theme.css/inner.css": {Data: []byte("")},
	}

	got, err := SelectFS(fsys, []string{"static/*"}, nil, []string{".css"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSelect_LeadingDotSlashIsStripped(t *testing.T) {
	t.Parallel()
	fsys := fstest.MapFS{
		"src/a.css": {Data: []byte("")},
	}

	got, err := SelectFS(fsys, []string{"./src/**"}, []string{"  "}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.css"}, got)
}

func TestSelect_NoMatchesIsEmpty(t *testing.T) {
	t.Parallel()
	got, err := Select(t.TempDir(), []string{"templates/**"}, nil, []string{".html"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSelect_BadPattern(t *testing.T) {
	t.Parallel()
	fsys := fstest.MapFS{"a.css": {Data: []byte("")}}

	_, err := SelectFS(fsys, []string{"[a-"}, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, doublestar.ErrBadPattern))

	_, err = SelectFS(fsys, []string{"*.css"}, []string{"{a,b"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, doublestar.ErrBadPattern))
}

func TestIgnored(t *testing.T) {
	t.Parallel()
	patterns := []string{"node_modules/**", "**/*.min.*", "dist/**"}

	tests := []struct {
		path string
		want bool
	}{
		{"node_modules/x/y.css", true},
		{"app.min.css", true},
		{"static/vendor/app.min.js", true},
		{"dist/index.html", true},
		{"static/app.css", false},
		{"src/dist/index.html", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Ignored(tt.path, patterns), tt.path)
	}
}
