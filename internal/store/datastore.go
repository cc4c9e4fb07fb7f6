package store

// DataStore is the interface for detection-cache access. Both Store (direct
// SQLite) and BatchedStore (in-memory buffering for parallel detection)
// implement this interface.
type DataStore interface {
	// CachedTokens returns the tokens stored for path when the stored family
	// and hash both match. ok is false on a miss.
	CachedTokens(path, family, hash string) (tokens []Token, ok bool, err error)
	// PutTokens replaces the cache entry for path.
	PutTokens(path, family, hash string, tokens []Token) error
}

// Compile-time checks.
var (
	_ DataStore = (*Store)(nil)
	_ DataStore = (*BatchedStore)(nil)
)
