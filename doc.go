// Package warden is a Baseline compatibility gate for web projects. It finds
// the HTML and CSS features a project's templates and stylesheets use, looks
// each one up in a pinned Baseline lock snapshot, and applies a policy that
// decides which features pass, warn or fail.
//
// # Pipeline
//
// A scan runs in two phases:
//
//  1. Detect: select files under a root with include and ignore globs, parse
//     each with tree-sitter and emit compatibility-key tokens such as
//     "html.elements.dialog" or "css.properties.display.grid".
//
//  2. Evaluate: resolve every token against the lock snapshot (falling back
//     to a shorter key for element attributes and property values) and turn
//     it into a finding with an outcome, severity and message.
//
// # Usage
//
//	snap, err := lock.Load("baseline.lock.json")
//	if err != nil { ... }
//
//	e := warden.New(snap, policy.Default())
//	res, err := e.Scan(ctx, ".", warden.Selection{Include: []string{"templates/**"}})
//	if res.Summary.HasBlockingFailures() { ... }
//
// # Caching
//
// [WithCache] attaches a detection cache. Files whose content hash and
// detector family match a cached entry reuse the cached tokens; the rest are
// detected and written back after the detection phase. The cache never
// changes results, only how much parsing a scan does.
//
// # Determinism
//
// Tokens and findings are ordered by file selection order, then by position
// within each file. Parallel detection produces exactly the serial order.
package warden
