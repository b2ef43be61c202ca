package board

import (
	"cmp"
	"slices"

	"golang.org/x/text/cases"

	"scrumboard/internal/models"
)

// Sentinel sub-group keys for issues without a grouping value.
const (
	NoAssignee = "Unassigned"
	NoEpic     = "No Epic"
	NoParent   = "No Parent"
)

// Group is one sub-group inside a bucket. Start and End index Bucket.Items.
type Group struct {
	Key   string `json:"key"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Bucket is the issues shown in one column.
type Bucket struct {
	Column    models.BoardColumn `json:"column"`
	Items     []models.Issue     `json:"items"`
	GroupedBy models.GroupBy     `json:"grouped_by,omitempty"`
	Groups    []Group            `json:"groups,omitempty"`
}

// ComputeBuckets partitions visible issues into one bucket per column, in
// column position order. Issues match a column only through StatusID;
// an issue whose StatusID matches no column appears in no bucket.
func ComputeBuckets(visible []models.Issue, columns []models.BoardColumn, groupBy models.GroupBy) []Bucket {
	ordered := slices.Clone(columns)
	slices.SortStableFunc(ordered, func(a, b models.BoardColumn) int {
		return cmp.Compare(a.Position, b.Position)
	})

	byStatus := make(map[int64][]models.Issue)
	for _, issue := range visible {
		if issue.StatusID != nil {
			byStatus[*issue.StatusID] = append(byStatus[*issue.StatusID], issue)
		}
	}

	buckets := make([]Bucket, 0, len(ordered))
	for _, col := range ordered {
		var items []models.Issue
		if col.StatusID != nil {
			items = slices.Clone(byStatus[*col.StatusID])
		}
		buckets = append(buckets, arrange(col, items, groupBy))
	}
	return buckets
}

func arrange(col models.BoardColumn, items []models.Issue, groupBy models.GroupBy) Bucket {
	if items == nil {
		items = []models.Issue{}
	}
	keyOf := groupKey(groupBy)
	if keyOf == nil {
		slices.SortStableFunc(items, compareByPriority)
		return Bucket{Column: col, Items: items}
	}

	groups := make(map[string][]models.Issue)
	for _, issue := range items {
		k := keyOf(issue)
		groups[k] = append(groups[k], issue)
	}
	fold := cases.Fold()
	folded := make(map[string]string, len(groups))
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
		folded[k] = fold.String(k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		return cmp.Or(cmp.Compare(folded[a], folded[b]), cmp.Compare(a, b))
	})

	out := Bucket{Column: col, Items: make([]models.Issue, 0, len(items)), GroupedBy: groupBy}
	for _, k := range keys {
		members := groups[k]
		slices.SortStableFunc(members, compareByPriority)
		start := len(out.Items)
		out.Items = append(out.Items, members...)
		out.Groups = append(out.Groups, Group{Key: k, Start: start, End: len(out.Items)})
	}
	return out
}

func groupKey(groupBy models.GroupBy) func(models.Issue) string {
	switch groupBy {
	case models.GroupAssignee:
		return func(i models.Issue) string { return orSentinel(i.Assignee, NoAssignee) }
	case models.GroupEpic:
		return func(i models.Issue) string { return orSentinel(i.EpicID, NoEpic) }
	case models.GroupSubtask:
		return func(i models.Issue) string { return orSentinel(i.ParentID, NoParent) }
	default:
		return nil
	}
}

func orSentinel(v, sentinel string) string {
	if v == "" {
		return sentinel
	}
	return v
}

// compareByPriority puts CRITICAL first, then older issues first.
func compareByPriority(a, b models.Issue) int {
	return cmp.Or(
		cmp.Compare(b.Priority.Rank(), a.Priority.Rank()),
		a.CreatedAt.Compare(b.CreatedAt),
	)
}
