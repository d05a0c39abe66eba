// Package util provides shared utility functions used across the codebase.
package util

import (
	"fmt"
	"strconv"
	"strings"
)

// SplitCSV splits a comma-separated string into a slice, trimming whitespace.
// Returns nil for empty strings.
func SplitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}

// ParseSeasons parses a comma-separated list of season years, e.g. "2023,2024".
func ParseSeasons(s string) ([]int, error) {
	parts := SplitCSV(s)
	if len(parts) == 0 {
		return nil, nil
	}
	seasons := make([]int, 0, len(parts))
	for _, p := range parts {
		year, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid season %q: %w", p, err)
		}
		seasons = append(seasons, year)
	}
	return seasons, nil
}
