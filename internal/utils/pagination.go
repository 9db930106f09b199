// Package utils holds small helpers shared by the HTTP and service layers.
package utils

import "strconv"

// Page limits applied to every list endpoint.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// AtoiDefault parses s as an int, returning def when s is empty or invalid.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ParsePage reads raw page and page_size values and clamps them to
// [1, ∞) and [1, MaxPageSize].
func ParsePage(pageRaw, sizeRaw string) (page, pageSize int) {
	page = max(AtoiDefault(pageRaw, DefaultPage), 1)
	pageSize = min(max(AtoiDefault(sizeRaw, DefaultPageSize), 1), MaxPageSize)
	return page, pageSize
}

// Bounds converts a 1-based page into an SQL offset and limit. Non-positive
// inputs fall back to the first page and the default size.
func Bounds(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return (page - 1) * pageSize, pageSize
}
