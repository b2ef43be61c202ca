package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Project groups boards, sprints and issues.
type Project struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IssueType classifies an issue.
type IssueType string

const (
	TypeStory IssueType = "STORY"
	TypeTask  IssueType = "TASK"
	TypeBug   IssueType = "BUG"
	TypeEpic  IssueType = "EPIC"
)

// Priority of an issue. Higher Rank means more urgent.
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// Rank orders priorities; unknown values rank below LOW.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// IssueStatus is the named workflow state of an issue.
type IssueStatus string

const (
	StatusTodo       IssueStatus = "TODO"
	StatusInProgress IssueStatus = "IN_PROGRESS"
	StatusInReview   IssueStatus = "IN_REVIEW"
	StatusDone       IssueStatus = "DONE"
	StatusBlocked    IssueStatus = "BLOCKED"
)

// Ordinal is the board sort rank of a status. BLOCKED sits between
// IN_PROGRESS and IN_REVIEW; unknown statuses sort last.
func (s IssueStatus) Ordinal() int {
	switch s {
	case StatusTodo:
		return 0
	case StatusInProgress:
		return 1
	case StatusBlocked:
		return 2
	case StatusInReview:
		return 3
	case StatusDone:
		return 4
	default:
		return 5
	}
}

// SprintStatus is the lifecycle state of a sprint.
type SprintStatus string

const (
	SprintPlanned   SprintStatus = "PLANNED"
	SprintActive    SprintStatus = "ACTIVE"
	SprintCompleted SprintStatus = "COMPLETED"
)

// BoardType distinguishes team boards from project-wide boards.
type BoardType string

const (
	BoardTeam    BoardType = "TEAM"
	BoardProject BoardType = "PROJECT"
)

// GroupBy arranges issues inside a column. It never changes visibility.
type GroupBy string

const (
	GroupNone     GroupBy = "NONE"
	GroupAssignee GroupBy = "ASSIGNEE"
	GroupEpic     GroupBy = "EPIC"
	GroupSubtask  GroupBy = "SUBTASK"
)

// ParseGroupBy accepts any casing; an empty value means NONE.
func ParseGroupBy(raw string) (GroupBy, error) {
	switch g := GroupBy(strings.ToUpper(strings.TrimSpace(raw))); g {
	case "", GroupNone:
		return GroupNone, nil
	case GroupAssignee, GroupEpic, GroupSubtask:
		return g, nil
	default:
		return GroupNone, fmt.Errorf("unknown group by %q", raw)
	}
}

// TeamID identifies a team. Upstream payloads carry it either as a JSON
// number or a JSON string, so decoding accepts both and comparisons go
// through Normalize.
type TeamID string

// UnmarshalJSON accepts 5, "5" and null.
func (t *TeamID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = TeamID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("team id: %w", err)
	}
	*t = TeamID(n.String())
	return nil
}

// Normalize returns the canonical form: trimmed, and integers rendered
// without sign or leading zeros so that "05", " 5" and 5 compare equal.
func (t TeamID) Normalize() string {
	s := strings.TrimSpace(string(t))
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return s
}

// IsZero reports whether the id is unset.
func (t TeamID) IsZero() bool {
	return t.Normalize() == ""
}

// SameTeam compares two team ids after normalization. Empty ids never match.
func SameTeam(a, b TeamID) bool {
	na := a.Normalize()
	return na != "" && na == b.Normalize()
}

// Issue is a single card on a board. Issues are values: every mutation
// produces a new Issue rather than editing one shared with readers.
type Issue struct {
	ID          string      `json:"id"`
	ProjectID   int64       `json:"project_id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Type        IssueType   `json:"type"`
	Priority    Priority    `json:"priority"`
	Status      IssueStatus `json:"status"`
	StatusID    *int64      `json:"status_id,omitempty"`
	Assignee    string      `json:"assignee,omitempty"`
	Labels      []string    `json:"labels"`
	SprintID    string      `json:"sprint_id,omitempty"`
	TeamID      TeamID      `json:"team_id,omitempty"`
	EpicID      string      `json:"epic_id,omitempty"`
	ParentID    string      `json:"parent_id,omitempty"`
	StoryPoints *float64    `json:"story_points,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	DueDate     *time.Time  `json:"due_date,omitempty"`
	StartDate   *time.Time  `json:"start_date,omitempty"`
}

// Clone returns a deep copy that shares no mutable memory with i.
func (i Issue) Clone() Issue {
	out := i
	out.Labels = slices.Clone(i.Labels)
	out.StatusID = clonePtr(i.StatusID)
	out.StoryPoints = clonePtr(i.StoryPoints)
	out.DueDate = clonePtr(i.DueDate)
	out.StartDate = clonePtr(i.StartDate)
	return out
}

// HasStatusID reports whether the issue is mapped to statusID.
func (i Issue) HasStatusID(statusID int64) bool {
	return i.StatusID != nil && *i.StatusID == statusID
}

// IssuePatch is a partial update. Nil fields are left untouched.
type IssuePatch struct {
	Title       *string      `json:"title,omitempty"`
	Description *string      `json:"description,omitempty"`
	Type        *IssueType   `json:"type,omitempty"`
	Priority    *Priority    `json:"priority,omitempty"`
	Status      *IssueStatus `json:"status,omitempty"`
	StatusID    *int64       `json:"status_id,omitempty"`
	Assignee    *string      `json:"assignee,omitempty"`
	Labels      *[]string    `json:"labels,omitempty"`
	SprintID    *string      `json:"sprint_id,omitempty"`
	TeamID      *TeamID      `json:"team_id,omitempty"`
	EpicID      *string      `json:"epic_id,omitempty"`
	ParentID    *string      `json:"parent_id,omitempty"`
	StoryPoints *float64     `json:"story_points,omitempty"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	StartDate   *time.Time   `json:"start_date,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p IssuePatch) IsEmpty() bool {
	return p == IssuePatch{}
}

// Apply returns a copy of issue with the patch applied. The input is not modified.
func (p IssuePatch) Apply(issue Issue) Issue {
	out := issue.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Type != nil {
		out.Type = *p.Type
	}
	if p.Priority != nil {
		out.Priority = *p.Priority
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.StatusID != nil {
		out.StatusID = clonePtr(p.StatusID)
	}
	if p.Assignee != nil {
		out.Assignee = *p.Assignee
	}
	if p.Labels != nil {
		out.Labels = slices.Clone(*p.Labels)
		if out.Labels == nil {
			out.Labels = []string{}
		}
	}
	if p.SprintID != nil {
		out.SprintID = *p.SprintID
	}
	if p.TeamID != nil {
		out.TeamID = *p.TeamID
	}
	if p.EpicID != nil {
		out.EpicID = *p.EpicID
	}
	if p.ParentID != nil {
		out.ParentID = *p.ParentID
	}
	if p.StoryPoints != nil {
		out.StoryPoints = clonePtr(p.StoryPoints)
	}
	if p.DueDate != nil {
		out.DueDate = clonePtr(p.DueDate)
	}
	if p.StartDate != nil {
		out.StartDate = clonePtr(p.StartDate)
	}
	return out
}

// Sprint is a time-boxed unit of work owned by a team.
type Sprint struct {
	ID        string       `json:"id"`
	ProjectID int64        `json:"project_id"`
	Name      string       `json:"name"`
	StartDate time.Time    `json:"start_date"`
	EndDate   time.Time    `json:"end_date"`
	Status    SprintStatus `json:"status"`
	TeamID    TeamID       `json:"team_id,omitempty"`
	// Issues embedded by some backends. Only used to seed the issue store
	// before the issue list itself has loaded.
	Issues []Issue `json:"issues,omitempty"`
}

// Palette holds the colours given to projects and columns created
// without one.
var Palette = []string{
	"#2563eb", // blue-600
	"#7c3aed", // violet-600
	"#dc2626", // red-600
	"#059669", // green-600
	"#ea580c", // orange-600
	"#d97706", // amber-600
	"#0ea5e9", // sky-500
}

// PaletteColor returns the n-th palette colour, wrapping around.
func PaletteColor(n int) string {
	return Palette[n%len(Palette)]
}

// BoardColumn maps one backend status onto a position on the board.
// StatusID is the only field used to match issues; ID and Status are
// kept for older clients.
type BoardColumn struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	Color    string      `json:"color"`
	Position int         `json:"position"`
	Status   IssueStatus `json:"status,omitempty"`
	StatusID *int64      `json:"status_id,omitempty"`
}

// Board is an ordered set of columns scoping a project's or team's issues.
type Board struct {
	ID             int64         `json:"id"`
	ProjectID      int64         `json:"project_id"`
	Name           string        `json:"name"`
	Type           BoardType     `json:"type"`
	TeamID         TeamID        `json:"team_id,omitempty"`
	Columns        []BoardColumn `json:"columns"`
	IncludeBacklog bool          `json:"include_backlog"`
	IncludeDone    bool          `json:"include_done"`
	IsDefault      bool          `json:"is_default"`
}

// ScopesByTeam reports whether the board narrows issues to a team.
// PROJECT boards never do, even if a team id leaked into the record.
func (b Board) ScopesByTeam() bool {
	return b.Type != BoardProject && !b.TeamID.IsZero()
}

// FilterState holds five independent inclusion lists. An empty list
// places no constraint on its dimension.
type FilterState struct {
	Assignees  []string      `json:"assignees"`
	WorkTypes  []IssueType   `json:"work_types"`
	Labels     []string      `json:"labels"`
	Statuses   []IssueStatus `json:"statuses"`
	Priorities []Priority    `json:"priorities"`
}

// IsEmpty reports whether no dimension is constrained.
func (f FilterState) IsEmpty() bool {
	return len(f.Assignees) == 0 && len(f.WorkTypes) == 0 && len(f.Labels) == 0 &&
		len(f.Statuses) == 0 && len(f.Priorities) == 0
}

// Merge overlays every dimension present in other onto f. A nil list
// leaves the dimension alone; an empty non-nil list clears it.
func (f FilterState) Merge(other FilterState) FilterState {
	out := f.Clone()
	if other.Assignees != nil {
		out.Assignees = slices.Clone(other.Assignees)
	}
	if other.WorkTypes != nil {
		out.WorkTypes = slices.Clone(other.WorkTypes)
	}
	if other.Labels != nil {
		out.Labels = slices.Clone(other.Labels)
	}
	if other.Statuses != nil {
		out.Statuses = slices.Clone(other.Statuses)
	}
	if other.Priorities != nil {
		out.Priorities = slices.Clone(other.Priorities)
	}
	return out
}

// Clone deep-copies the filter lists.
func (f FilterState) Clone() FilterState {
	return FilterState{
		Assignees:  slices.Clone(f.Assignees),
		WorkTypes:  slices.Clone(f.WorkTypes),
		Labels:     slices.Clone(f.Labels),
		Statuses:   slices.Clone(f.Statuses),
		Priorities: slices.Clone(f.Priorities),
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
