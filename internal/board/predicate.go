package board

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"scrumboard/internal/models"
)

// Predicate decides whether an issue passes the active filters and search.
// The search text is folded once when the predicate is built.
type Predicate struct {
	filters models.FilterState
	needle  string
	fold    cases.Caser
}

// NewPredicate builds a predicate. The search text is trimmed; an empty
// search matches every issue.
func NewPredicate(filters models.FilterState, search string) *Predicate {
	fold := cases.Fold()
	return &Predicate{
		filters: filters,
		needle:  fold.String(strings.TrimSpace(search)),
		fold:    fold,
	}
}

// Matches reports whether issue passes filters and search.
func Matches(issue models.Issue, filters models.FilterState, search string) bool {
	return NewPredicate(filters, search).Match(issue)
}

// Match ANDs every constrained dimension with the search. Labels match
// when the issue carries any of the wanted labels.
func (p *Predicate) Match(issue models.Issue) bool {
	f := p.filters
	if len(f.Assignees) > 0 && !slices.Contains(f.Assignees, issue.Assignee) {
		return false
	}
	if len(f.WorkTypes) > 0 && !slices.Contains(f.WorkTypes, issue.Type) {
		return false
	}
	if len(f.Priorities) > 0 && !slices.Contains(f.Priorities, issue.Priority) {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, issue.Status) {
		return false
	}
	if len(f.Labels) > 0 && !slices.ContainsFunc(issue.Labels, func(l string) bool {
		return slices.Contains(f.Labels, l)
	}) {
		return false
	}
	return p.matchSearch(issue)
}

func (p *Predicate) matchSearch(issue models.Issue) bool {
	if p.needle == "" {
		return true
	}
	for _, field := range []string{issue.Title, issue.Description, issue.ID} {
		if strings.Contains(p.fold.String(field), p.needle) {
			return true
		}
	}
	return false
}
