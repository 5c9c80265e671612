package services

import (
	"context"
	"strings"
)

// Page sizes. A non-positive limit gets the default; a larger one than the
// max is clamped to the max.
const (
	DefaultProjectPage = 50
	MaxProjectPage     = 100
	DefaultMessagePage = 100
	MaxMessagePage     = 100
	DefaultInboxPage   = 25
	MaxInboxPage       = 100
)

func pageSize(limit, fallback, max int) int {
	switch {
	case limit <= 0:
		return fallback
	case limit > max:
		return max
	}
	return limit
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func normaliseIDs(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func normaliseSkills(values []string) []string {
	skills := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			skills = append(skills, value)
		}
	}
	return skills
}

func defaultIfEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
