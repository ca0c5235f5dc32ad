// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vfs

package vfs

import (
	"fmt"
	"strings"

	"github.com/woozymasta/pathrules"
)

// filterEntriesByPrefix keeps entries under prefix (or exact match if it points to a file).
func filterEntriesByPrefix(entries []Entry, prefix string) []Entry {
	prefix = NormalizePath(prefix)
	if prefix == "" {
		return entries
	}

	normalizedPrefix := prefix + "/"
	out := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		entryPath := NormalizePath(entry.Path)
		if entryPath == prefix || strings.HasPrefix(entryPath, normalizedPrefix) {
			out = append(out, entry)
		}
	}

	return out
}

// IncludeRules builds include rules from raw patterns.
func IncludeRules(patterns ...string) []pathrules.Rule {
	rules := make([]pathrules.Rule, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		rules = append(rules, pathrules.Rule{
			Action:  pathrules.ActionInclude,
			Pattern: pattern,
		})
	}

	return rules
}

// decodeMatcher holds compiled selection rules for entry decoding.
type decodeMatcher struct {
	matcher *pathrules.Matcher
}

// newDecodeMatcher compiles decode selection rules. No rules select every entry.
func newDecodeMatcher(rules []pathrules.Rule, opts pathrules.MatcherOptions) (*decodeMatcher, error) {
	rules = normalizeDecodeRules(rules)
	if len(rules) == 0 {
		return nil, nil
	}

	matcher, err := pathrules.NewMatcher(rules, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: compile rules: %w", ErrInvalidDecodeRule, err)
	}

	return &decodeMatcher{matcher: matcher}, nil
}

// normalizeDecodeRules normalizes rule patterns and drops empty patterns.
func normalizeDecodeRules(rules []pathrules.Rule) []pathrules.Rule {
	normalized := make([]pathrules.Rule, 0, len(rules))
	for _, rule := range rules {
		pattern := normalizePathForMatching(rule.Pattern)
		if pattern == "" {
			continue
		}

		normalized = append(normalized, pathrules.Rule{
			Action:  rule.Action,
			Pattern: pattern,
		})
	}

	return normalized
}

// Match reports whether path is selected for decoding.
func (m *decodeMatcher) Match(path string) bool {
	if m == nil || m.matcher == nil {
		return true
	}

	candidate := NormalizePath(path)
	if candidate == "" {
		return false
	}

	return m.matcher.Included(candidate, false)
}
