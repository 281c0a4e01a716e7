package app

import (
	"regexp"
	"strings"
)

var uuidTokenPattern = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func isUUIDToken(token string) bool {
	return uuidTokenPattern.MatchString(token)
}

// categoryIDs returns the distinct UUID-shaped tokens across every list, in first-seen order.
func categoryIDs(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, tokens := range lists {
		for _, t := range tokens {
			if !isUUIDToken(t) {
				continue
			}
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			ids = append(ids, t)
		}
	}
	return ids
}

// normalizeCategoryTokens resolves UUID tokens through names, keeps plain names as they are,
// drops unresolved UUIDs and blanks, and de-duplicates preserving first occurrence.
func normalizeCategoryTokens(tokens []string, names map[string]string) []string {
	out := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		value := t
		if isUUIDToken(t) {
			name, ok := lookupCategory(names, t)
			if !ok {
				continue
			}
			value = name
		}
		if value == "" {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

// lookupCategory matches ids case-insensitively since the database renders uuids in lower case.
func lookupCategory(names map[string]string, id string) (string, bool) {
	if name, ok := names[id]; ok && name != "" {
		return name, true
	}
	name, ok := names[strings.ToLower(id)]
	return name, ok && name != ""
}
