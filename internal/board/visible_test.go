package board

import (
	"encoding/json"
	"slices"
	"testing"

	"scrumboard/internal/models"
)

func fixtureIssues() ([]models.Issue, []models.Sprint, map[int64]models.Board) {
	f := newFakeTransport()
	seedFixture(f)
	return f.issues[1], f.sprints[1], f.boards
}

func TestComputeVisibleTeamScoping(t *testing.T) {
	issues, sprints, boards := fixtureIssues()
	teamBoard := boards[10]

	got := ComputeVisible(issues, &teamBoard, sprints, "", models.FilterState{}, "")
	if want := []string{"a", "c", "b"}; !slices.Equal(ids(got), want) {
		t.Fatalf("visible = %v, want %v", ids(got), want)
	}
	for _, issue := range got {
		if issue.TeamID.IsZero() {
			if issue.SprintID != "s1" && issue.SprintID != "s2" {
				t.Errorf("team-less issue %s in foreign sprint %s", issue.ID, issue.SprintID)
			}
			continue
		}
		if !models.SameTeam(issue.TeamID, teamBoard.TeamID) {
			t.Errorf("issue %s of team %s leaked onto team %s board", issue.ID, issue.TeamID, teamBoard.TeamID)
		}
	}
}

func TestComputeVisibleNumericTeamID(t *testing.T) {
	var b models.Board
	if err := json.Unmarshal([]byte(`{"type":"TEAM","team_id":5}`), &b); err != nil {
		t.Fatalf("decode board: %v", err)
	}
	sprints := []models.Sprint{{ID: "s1", TeamID: "05"}}
	issues := []models.Issue{
		{ID: "x", Status: models.StatusTodo, TeamID: " 5", CreatedAt: at(1)},
		{ID: "y", Status: models.StatusTodo, SprintID: "s1", CreatedAt: at(2)},
		{ID: "z", Status: models.StatusTodo, CreatedAt: at(3)},
	}

	got := ComputeVisible(issues, &b, sprints, "", models.FilterState{}, "")
	if want := []string{"x", "y"}; !slices.Equal(ids(got), want) {
		t.Fatalf("visible = %v, want %v", ids(got), want)
	}
	got = ComputeVisible(issues, &b, sprints, "s1", models.FilterState{}, "")
	if want := []string{"y"}; !slices.Equal(ids(got), want) {
		t.Errorf("visible in s1 = %v, want %v", ids(got), want)
	}
}

func TestComputeVisibleSprintScoping(t *testing.T) {
	issues, sprints, boards := fixtureIssues()
	teamBoard := boards[10]

	got := ComputeVisible(issues, &teamBoard, sprints, "s1", models.FilterState{}, "")
	if want := []string{"a", "b"}; !slices.Equal(ids(got), want) {
		t.Fatalf("visible = %v, want %v", ids(got), want)
	}
}

func TestComputeVisibleProjectBoardIgnoresSprint(t *testing.T) {
	issues, sprints, boards := fixtureIssues()
	projectBoard := boards[11]

	got := ComputeVisible(issues, &projectBoard, sprints, "s1", models.FilterState{}, "")
	if len(got) != len(issues) {
		t.Fatalf("project board shows %v, want all %d issues", ids(got), len(issues))
	}
}

func TestComputeVisibleNilBoard(t *testing.T) {
	issues, sprints, _ := fixtureIssues()
	if got := ComputeVisible(issues, nil, sprints, "s1", models.FilterState{}, ""); len(got) != len(issues) {
		t.Fatalf("nil board shows %d issues, want %d", len(got), len(issues))
	}
}

func TestComputeVisiblePriorityFilter(t *testing.T) {
	issues := []models.Issue{
		{ID: "1", Priority: models.PriorityHigh, CreatedAt: at(1)},
		{ID: "2", Priority: models.PriorityLow, CreatedAt: at(2)},
		{ID: "3", Priority: models.PriorityHigh, CreatedAt: at(3)},
	}
	filters := models.FilterState{Priorities: []models.Priority{models.PriorityHigh}}

	got := ComputeVisible(issues, &models.Board{Type: models.BoardProject}, nil, "", filters, "")
	if want := []string{"1", "3"}; !slices.Equal(ids(got), want) {
		t.Fatalf("visible = %v, want %v", ids(got), want)
	}
}

func TestComputeVisibleSortOrder(t *testing.T) {
	issues := []models.Issue{
		{ID: "done-old", Status: models.StatusDone, CreatedAt: at(1)},
		{ID: "todo-new", Status: models.StatusTodo, CreatedAt: at(5)},
		{ID: "review", Status: models.StatusInReview, CreatedAt: at(2)},
		{ID: "todo-old", Status: models.StatusTodo, CreatedAt: at(3)},
		{ID: "todo-tie-b", Status: models.StatusTodo, CreatedAt: at(3), UpdatedAt: at(9)},
		{ID: "todo-tie-a", Status: models.StatusTodo, CreatedAt: at(3), UpdatedAt: at(9)},
		{ID: "odd", Status: "ARCHIVED", CreatedAt: at(0)},
	}

	got := ComputeVisible(issues, nil, nil, "", models.FilterState{}, "")
	want := []string{"todo-old", "todo-tie-a", "todo-tie-b", "todo-new", "review", "done-old", "odd"}
	if !slices.Equal(ids(got), want) {
		t.Fatalf("order = %v, want %v", ids(got), want)
	}
}

func TestComputeVisibleTitleEditKeepsOrder(t *testing.T) {
	issues, sprints, boards := fixtureIssues()
	b := boards[11]
	before := ids(ComputeVisible(issues, &b, sprints, "", models.FilterState{}, ""))

	edited := cloneIssues(issues)
	edited[0].Title = "zzz renamed"
	edited[0].Description = "aaa"
	after := ids(ComputeVisible(edited, &b, sprints, "", models.FilterState{}, ""))

	if !slices.Equal(before, after) {
		t.Fatalf("title edit reordered board: %v -> %v", before, after)
	}
}

func TestComputeVisibleIsIdempotentAndPure(t *testing.T) {
	issues, sprints, boards := fixtureIssues()
	b := boards[10]
	snapshot := cloneIssues(issues)

	first := ComputeVisible(issues, &b, sprints, "s1", models.FilterState{}, "log")
	second := ComputeVisible(issues, &b, sprints, "s1", models.FilterState{}, "log")
	if !slices.Equal(ids(first), ids(second)) {
		t.Fatalf("recompute differs: %v vs %v", ids(first), ids(second))
	}
	if !slices.EqualFunc(issues, snapshot, func(a, b models.Issue) bool { return a.ID == b.ID && a.Title == b.Title }) {
		t.Fatal("input issues were reordered or modified")
	}
}
