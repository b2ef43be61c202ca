// Package board holds the view-state engine for a single project board:
// the canonical issue, sprint and column state of one board session and
// every slice derived from it.
package board

import (
	"fmt"
	"strings"

	"scrumboard/internal/models"
)

// SelectionPolicy decides what happens to an existing sprint selection
// when the board or the sprint list changes.
type SelectionPolicy int

const (
	// PolicyPreserve keeps the current selection while it still names a
	// sprint of the board's team, so reloading sprints does not make the
	// selection jump back to the active sprint.
	PolicyPreserve SelectionPolicy = iota
	// PolicyReresolve always picks the team's active sprint again.
	PolicyReresolve
)

// ParseSelectionPolicy maps a config value onto a policy.
func ParseSelectionPolicy(raw string) (SelectionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "preserve":
		return PolicyPreserve, nil
	case "reresolve", "re-resolve":
		return PolicyReresolve, nil
	default:
		return PolicyPreserve, fmt.Errorf("unknown sprint policy %q", raw)
	}
}

func (p SelectionPolicy) String() string {
	if p == PolicyReresolve {
		return "reresolve"
	}
	return "preserve"
}

// ResolveSprintSelection picks the sprint a board shows. An empty result
// means no sprint narrowing. Boards without a team never select a sprint.
// Otherwise the team's ACTIVE sprint wins, then the team's first sprint in
// list order. The function is pure: the same inputs always give the same
// answer, whichever trigger calls it.
func ResolveSprintSelection(b *models.Board, sprints []models.Sprint, current string, policy SelectionPolicy) string {
	if b == nil || !b.ScopesByTeam() {
		return ""
	}

	teamSprints := SprintsForTeam(sprints, b.TeamID)
	if len(teamSprints) == 0 {
		return ""
	}

	if policy == PolicyPreserve && current != "" {
		for _, sp := range teamSprints {
			if sp.ID == current {
				return current
			}
		}
	}

	for _, sp := range teamSprints {
		if sp.Status == models.SprintActive {
			return sp.ID
		}
	}
	return teamSprints[0].ID
}

// SprintsForTeam returns the sprints owned by team, in list order.
func SprintsForTeam(sprints []models.Sprint, team models.TeamID) []models.Sprint {
	var out []models.Sprint
	for _, sp := range sprints {
		if models.SameTeam(sp.TeamID, team) {
			out = append(out, sp)
		}
	}
	return out
}

// teamSprintIDs indexes the ids of the sprints owned by team.
func teamSprintIDs(sprints []models.Sprint, team models.TeamID) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, sp := range SprintsForTeam(sprints, team) {
		ids[sp.ID] = struct{}{}
	}
	return ids
}
