package utils

import "strconv"

// ParsePage reads a 1-based page number, defaulting to 1.
func ParsePage(raw string) int {
	if p, err := strconv.Atoi(raw); err == nil && p > 0 {
		return p
	}
	return 1
}
