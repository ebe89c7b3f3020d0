// Package filter selects messages worth delivering by matching their
// subjects against include and exclude keyword lists.
package filter

import (
	"strings"
)

// Subject matches message subjects against keyword lists.  Keywords
// are matched case-insensitively as substrings.  A non-empty include
// list requires at least one match; any exclude match rejects the
// subject regardless of the include list.
type Subject struct {
	include []string
	exclude []string
}

// New returns a filter for the given keyword lists.  Blank keywords
// are ignored.
func New(include, exclude []string) *Subject {
	return &Subject{
		include: normalize(include),
		exclude: normalize(exclude),
	}
}

func normalize(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}

// Match reports whether subject passes the filter.
func (f *Subject) Match(subject string) bool {
	subject = strings.ToLower(subject)
	for _, k := range f.exclude {
		if strings.Contains(subject, k) {
			return false
		}
	}
	if len(f.include) == 0 {
		return true
	}
	for _, k := range f.include {
		if strings.Contains(subject, k) {
			return true
		}
	}
	return false
}

// Query returns a mailbox search clause that narrows listings to
// subjects the include list could match, like subject:(invoice OR
// receipt), or "" when no include keywords are set.  Exclude keywords
// are never pushed down; Match re-checks both lists on the fetched
// subject, so the clause only reduces how much is listed.
func (f *Subject) Query() string {
	if len(f.include) == 0 {
		return ""
	}
	terms := make([]string, len(f.include))
	for i, k := range f.include {
		if strings.ContainsAny(k, " \t") {
			k = `"` + k + `"`
		}
		terms[i] = k
	}
	return "subject:(" + strings.Join(terms, " OR ") + ")"
}
