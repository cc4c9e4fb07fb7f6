package warden

// Version is reported by the CLI and sent as the sync user agent.
const Version = "0.4.0"

// Selection is the include and ignore glob configuration for a scan.
// Patterns are relative to the scan root and use doublestar syntax.
type Selection struct {
	Include []string
	Ignore  []string
}
