package domain

import "strings"

// DefaultVariableKeywords lists the substrings that mark a reflectivity field.
func DefaultVariableKeywords() []string {
	return []string{"unknown", "refc", "reflectivity"}
}

// SelectVariable returns the index of the first name, in declaration order,
// that contains any keyword (case-insensitive). With no match it falls back to
// the first name. It returns -1 for an empty list.
func SelectVariable(names, keywords []string) int {
	if len(names) == 0 {
		return -1
	}
	for i, name := range names {
		lower := strings.ToLower(name)
		for _, kw := range keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return i
			}
		}
	}
	return 0
}
