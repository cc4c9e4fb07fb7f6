package store

import "strings"

// placeholderList returns "?,?,?" for n placeholders.
func placeholderList(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

// stringsToArgs converts []string to []any for use with database/sql.
func stringsToArgs(items []string) []any {
	args := make([]any, len(items))
	for i, s := range items {
		args[i] = s
	}
	return args
}

// maxVariables keeps IN lists under SQLite's bound-parameter limit.
const maxVariables = 500

// chunks splits items into slices of at most size elements.
func chunks(items []string, size int) [][]string {
	var out [][]string
	for len(items) > size {
		out = append(out, items[:size])
		items = items[size:]
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}
