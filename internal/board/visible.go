package board

import (
	"cmp"
	"slices"

	"scrumboard/internal/models"
)

// ComputeVisible derives the issues a board shows: team scoping, sprint
// scoping (team boards only), filters and search, then a deterministic
// sort. It allocates a new slice and never modifies its inputs.
//
// The sort keys are status ordinal, createdAt and updatedAt, with the id
// as a final tiebreak. Title and description never take part, so editing
// a card's text does not move it.
func ComputeVisible(
	issues []models.Issue,
	b *models.Board,
	sprints []models.Sprint,
	sprintSelection string,
	filters models.FilterState,
	search string,
) []models.Issue {
	out := make([]models.Issue, 0, len(issues))

	scoped := b != nil && b.ScopesByTeam()
	var owned map[string]struct{}
	if scoped {
		owned = teamSprintIDs(sprints, b.TeamID)
	}

	pred := NewPredicate(filters, search)
	for _, issue := range issues {
		if scoped {
			if !inTeam(issue, b.TeamID, owned) {
				continue
			}
			if sprintSelection != "" && issue.SprintID != sprintSelection {
				continue
			}
		}
		if !pred.Match(issue) {
			continue
		}
		out = append(out, issue)
	}

	slices.SortStableFunc(out, compareVisible)
	return out
}

func inTeam(issue models.Issue, team models.TeamID, ownedSprints map[string]struct{}) bool {
	if models.SameTeam(issue.TeamID, team) {
		return true
	}
	if issue.TeamID.IsZero() && issue.SprintID != "" {
		_, ok := ownedSprints[issue.SprintID]
		return ok
	}
	return false
}

func compareVisible(a, b models.Issue) int {
	return cmp.Or(
		cmp.Compare(a.Status.Ordinal(), b.Status.Ordinal()),
		a.CreatedAt.Compare(b.CreatedAt),
		a.UpdatedAt.Compare(b.UpdatedAt),
		cmp.Compare(a.ID, b.ID),
	)
}
