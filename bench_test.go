package warden

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/jward/baseline-warden/internal/lock"
	"github.com/jward/baseline-warden/internal/policy"
	"github.com/jward/baseline-warden/internal/store"
)

// benchTemplate is a realistic page template with modern elements and
// attributes.
const benchTemplate = `{% extends "base.html" %}
{% block content %}
<main>
  <search>
    <form action="/q" method="get">
      <input type="search" name="q" enterkeyhint="search" autocomplete="off">
      <button popovertarget="filters">Filters</button>
    </form>
  </search>
  <div id="filters" popover>
    <fieldset>
      <label><input type="checkbox" name="open"> Open</label>
    </fieldset>
  </div>
  <dialog closedby="any">
    <form method="dialog"><button>Close</button></form>
  </dialog>
  <details name="faq" open><summary>Question</summary><p>Answer</p></details>
  <img src="/a.avif" loading="lazy" decoding="async" fetchpriority="low" alt="">
  <template shadowrootmode="open"><slot></slot></template>
</main>
{% endblock %}
`

// benchStylesheet exercises nesting, container queries and selector
// functions.
const benchStylesheet = `@layer base, components;
@container card (min-width: 30rem) {
  .card { display: grid; grid-template-columns: subgrid; }
}
:root { color-scheme: light dark; accent-color: oklch(70% 0.1 200); }
.menu:has(> a:focus-visible) { outline: 2px solid; }
.toast { position: sticky; inset: auto 1rem 1rem auto; translate: 0 0; }
@supports (text-wrap: balance) { h1 { text-wrap: balance; } }
@media (prefers-reduced-motion: reduce) { * { animation: none; } }
p::first-line { font-variant: small-caps; }
li::marker { content: counter(item); }
`

func setupBenchRoot(b *testing.B, n int) string {
	b.Helper()
	root := b.TempDir()
	for i := range n {
		for rel, src := range map[string]string{
			fmt.Sprintf("templates/page%d.html", i): benchTemplate,
			fmt.Sprintf("static/page%d.css", i):     benchStylesheet,
		} {
			full := filepath.Join(root, filepath.FromSlash(rel))
			if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
				b.Fatal(err)
			}
			if err := os.WriteFile(full, []byte(src), 0o644); err != nil {
				b.Fatal(err)
			}
		}
	}
	return root
}

func benchSnapshot() *lock.Snapshot {
	newly, widely := lock.StatusNewly, lock.StatusWidely
	return lock.New([]lock.FeatureRecord{
		{ID: "dialog", Status: &widely, CompatKeys: []string{"html.elements.dialog"}},
		{ID: "popover", Status: &newly, CompatKeys: []string{"html.elements.div.popover", "html.elements.button.popovertarget"}},
		{ID: "grid", Status: &widely, CompatKeys: []string{"css.properties.display.grid"}},
		{ID: "has", Status: &newly, CompatKeys: []string{"css.selectors.has"}},
	})
}

func benchmarkScan(b *testing.B, opts ...Option) {
	root := setupBenchRoot(b, 40)
	e := New(benchSnapshot(), policy.Default(), opts...)
	ctx := context.Background()
	sel := Selection{Include: []string{"templates/**", "static/**"}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Scan(ctx, root, sel); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkScan_Serial measures a full scan of 80 files on one goroutine.
func BenchmarkScan_Serial(b *testing.B) {
	benchmarkScan(b, WithParallel(false))
}

// BenchmarkScan_Parallel measures the same scan on the worker pool.
func BenchmarkScan_Parallel(b *testing.B) {
	benchmarkScan(b, WithParallel(true))
}

// BenchmarkScan_WarmCache measures a scan where every file is a cache hit.
func BenchmarkScan_WarmCache(b *testing.B) {
	s, err := store.Open(filepath.Join(b.TempDir(), "bench.db"))
	if err != nil {
		b.Fatal(err)
	}
	defer s.Close()

	root := setupBenchRoot(b, 40)
	e := New(benchSnapshot(), policy.Default(), WithCache(s))
	ctx := context.Background()
	sel := Selection{Include: []string{"templates/**", "static/**"}}

	// Warm the cache once as setup.
	if _, err := e.Scan(ctx, root, sel); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Scan(ctx, root, sel); err != nil {
			b.Fatal(err)
		}
	}
}
