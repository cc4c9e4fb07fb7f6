package store

import "time"

// Cache domain types

// File is a cached source file. Hash is the hex SHA-256 of its raw bytes.
type File struct {
	ID        int64
	Path      string
	Family    string
	Hash      string
	ScannedAt time.Time
}

// Token is a detected compatibility key as stored in the cache.
type Token struct {
	Line   int
	Key    string
	Kind   string
	Detail string
}

// CacheEntry is one file's detection result awaiting a write.
type CacheEntry struct {
	Path   string
	Family string
	Hash   string
	Tokens []Token
}

// History domain types

// Run is one recorded scan.
type Run struct {
	ID              int64
	StartedAt       time.Time
	Root            string
	LockGeneratedAt *time.Time
	FileCount       int
	Total           int
	Passed          int
	Warned          int
	Failed          int
	Blocking        bool
}

// RunFinding is one finding of a recorded scan.
type RunFinding struct {
	ID          int64
	RunID       int64
	File        string
	Line        int
	Key         string
	Status      string
	Outcome     string
	Severity    string
	FeatureID   *string
	Message     string
	Allowlisted bool
}
