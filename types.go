package warden

import (
	"github.com/jward/baseline-warden/internal/detect"
	"github.com/jward/baseline-warden/internal/policy"
	"github.com/jward/baseline-warden/internal/store"
)

// Public type aliases for internal types used in the Engine API.
// These are Go type aliases (=) and need no conversion.

type Token = detect.Token
type Finding = policy.Finding
type Summary = policy.Summary
type Policy = policy.Policy
type Run = store.Run
type RunFinding = store.RunFinding

// TokenCache is the detection cache consulted by the Engine. *store.Store
// satisfies it.
type TokenCache = store.DataStore
