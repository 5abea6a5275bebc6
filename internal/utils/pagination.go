// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import "strconv"

// AtoiDefault converts s to an int, returning def when s is empty or not a
// valid integer.
//
//	n := utils.AtoiDefault("42", 0) // 42
//	n = utils.AtoiDefault("x", 5)   // 5
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// Page describes one slice of a larger result set.
type Page struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
}

// Paginate returns the items on page (1-based) of size pageSize together
// with the page metadata. Out-of-range pages yield an empty, non-nil slice.
// Callers are expected to clamp page and pageSize to positive values.
func Paginate[T any](items []T, page, pageSize int) ([]T, Page) {
	page = max(page, 1)
	pageSize = max(pageSize, 1)
	total := len(items)
	meta := Page{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: (total + pageSize - 1) / pageSize,
	}
	meta.HasNext = page < meta.TotalPages

	start := (page - 1) * pageSize
	if start >= total {
		return []T{}, meta
	}
	end := min(start+pageSize, total)
	return items[start:end], meta
}
