// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import "strconv"

// AtoiDefault converts a string to an int using strconv.Atoi.
// If the string is empty or cannot be parsed as an integer,
// it returns the provided default value instead.
//
// Example:
//
//	n := utils.AtoiDefault("42", 0) // returns 42
//	n = utils.AtoiDefault("", 10)   // returns 10
//	n = utils.AtoiDefault("x", 5)   // returns 5
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// PageBounds returns the [start, end) slice bounds of a 1-indexed page of
// size limit over total items. Pages past the end, and non-positive page
// or limit, yield an empty range at total.
//
// Example:
//
//	start, end := utils.PageBounds(12, 3, 5) // 10, 12
func PageBounds(total, page, limit int) (start, end int) {
	if limit < 1 || page < 1 || page-1 > total/limit {
		return total, total
	}
	start = (page - 1) * limit
	end = start + limit
	if end > total {
		end = total
	}
	return start, end
}
