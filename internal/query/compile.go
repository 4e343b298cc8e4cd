package query

import (
	"strings"
)

const (
	orSeparator  = "|"
	andSeparator = "&"
)

// Compile turns a search expression into a predicate over the active fields.
//
// The expression is split on "|" into OR-groups and each group on "&" into
// AND-terms. A term matches when any active field contains it, ignoring
// case. Empty terms and groups left by stray delimiters are dropped. If no
// term survives, or no active field is usable, the result matches
// everything.
//
// active is intersected with candidates; an empty active set searches every
// candidate.
func Compile(search string, candidates, active []string) Predicate {
	fields := resolveFields(candidates, active)
	if len(fields) == 0 {
		return True()
	}

	var groups []Predicate
	for _, rawGroup := range strings.Split(search, orSeparator) {
		var terms []Predicate
		for _, rawTerm := range strings.Split(rawGroup, andSeparator) {
			term := strings.TrimSpace(rawTerm)
			if term == "" {
				continue
			}
			terms = append(terms, anyField(fields, term))
		}
		if len(terms) == 0 {
			continue
		}
		groups = append(groups, And(terms...))
	}

	if len(groups) == 0 {
		return True()
	}
	if len(groups) == 1 {
		return groups[0]
	}
	return Or(groups...)
}

func anyField(fields []string, term string) Predicate {
	if len(fields) == 1 {
		return Contains(fields[0], term)
	}
	alternatives := make([]Predicate, 0, len(fields))
	for _, field := range fields {
		alternatives = append(alternatives, Contains(field, term))
	}
	return Or(alternatives...)
}

func resolveFields(candidates, active []string) []string {
	if len(active) == 0 {
		return candidates
	}
	allowed := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		allowed[c] = true
	}
	var fields []string
	seen := make(map[string]bool, len(active))
	for _, f := range active {
		if allowed[f] && !seen[f] {
			seen[f] = true
			fields = append(fields, f)
		}
	}
	return fields
}

// ParseList splits a comma-separated query parameter, trimming blanks.
func ParseList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
