package board

import (
	"reflect"
	"slices"
	"testing"

	"scrumboard/internal/models"
)

func TestComputeBucketsMatchesByStatusID(t *testing.T) {
	columns := []models.BoardColumn{col("todo", 1, 1), col("doing", 2, 2), col("done", 3, 3)}
	visible := []models.Issue{
		{ID: "A", StatusID: i64(1)},
		{ID: "B", StatusID: i64(1)},
		{ID: "C", StatusID: i64(1)},
		{ID: "D", StatusID: i64(9)},
		{ID: "E"},
	}

	buckets := ComputeBuckets(visible, columns, models.GroupNone)
	if len(buckets) != 3 {
		t.Fatalf("len(buckets) = %d, want 3", len(buckets))
	}
	if got := ids(buckets[0].Items); !slices.Equal(got, []string{"A", "B", "C"}) {
		t.Errorf("todo bucket = %v", got)
	}
	for _, b := range buckets[1:] {
		if len(b.Items) != 0 {
			t.Errorf("bucket %s = %v, want empty", b.Column.ID, ids(b.Items))
		}
		if b.Items == nil {
			t.Errorf("bucket %s has nil items", b.Column.ID)
		}
	}
	for _, b := range buckets {
		for _, issue := range b.Items {
			if issue.ID == "D" || issue.ID == "E" {
				t.Errorf("unmapped issue %s placed in %s", issue.ID, b.Column.ID)
			}
		}
	}
}

func TestComputeBucketsColumnOrderAndPartition(t *testing.T) {
	columns := []models.BoardColumn{col("done", 3, 3), col("todo", 1, 1), col("doing", 2, 2)}
	visible := []models.Issue{
		{ID: "1", StatusID: i64(2)},
		{ID: "2", StatusID: i64(3)},
		{ID: "3", StatusID: i64(1)},
		{ID: "4", StatusID: i64(2)},
	}

	buckets := ComputeBuckets(visible, columns, models.GroupNone)
	var order []string
	seen := make(map[string]int)
	for _, b := range buckets {
		order = append(order, b.Column.ID)
		for _, issue := range b.Items {
			seen[issue.ID]++
		}
	}
	if want := []string{"todo", "doing", "done"}; !slices.Equal(order, want) {
		t.Errorf("column order = %v, want %v", order, want)
	}
	for _, issue := range visible {
		if seen[issue.ID] != 1 {
			t.Errorf("issue %s appears %d times", issue.ID, seen[issue.ID])
		}
	}
}

func TestComputeBucketsPriorityOrder(t *testing.T) {
	columns := []models.BoardColumn{col("todo", 1, 1)}
	visible := []models.Issue{
		{ID: "low", StatusID: i64(1), Priority: models.PriorityLow, CreatedAt: at(1)},
		{ID: "crit", StatusID: i64(1), Priority: models.PriorityCritical, CreatedAt: at(5)},
		{ID: "high-new", StatusID: i64(1), Priority: models.PriorityHigh, CreatedAt: at(4)},
		{ID: "high-old", StatusID: i64(1), Priority: models.PriorityHigh, CreatedAt: at(2)},
		{ID: "none", StatusID: i64(1), CreatedAt: at(0)},
	}

	got := ids(ComputeBuckets(visible, columns, models.GroupNone)[0].Items)
	if want := []string{"crit", "high-old", "high-new", "low", "none"}; !slices.Equal(got, want) {
		t.Fatalf("bucket order = %v, want %v", got, want)
	}
}

func TestComputeBucketsGrouping(t *testing.T) {
	columns := []models.BoardColumn{col("todo", 1, 1)}
	visible := []models.Issue{
		{ID: "1", StatusID: i64(1), Assignee: "zoe", EpicID: "E2", ParentID: "P1"},
		{ID: "5", StatusID: i64(1), Assignee: "Zed", EpicID: "e3", ParentID: "p2"},
		{ID: "2", StatusID: i64(1), Assignee: "", EpicID: "", ParentID: ""},
		{ID: "3", StatusID: i64(1), Assignee: "ann", EpicID: "E1", ParentID: "P1", Priority: models.PriorityHigh},
		{ID: "4", StatusID: i64(1), Assignee: "ann", EpicID: "E1", Priority: models.PriorityLow},
	}

	tests := []struct {
		groupBy  models.GroupBy
		wantKeys []string
		wantIDs  []string
	}{
		{models.GroupAssignee, []string{"ann", NoAssignee, "Zed", "zoe"}, []string{"3", "4", "2", "5", "1"}},
		{models.GroupEpic, []string{"E1", "E2", "e3", NoEpic}, []string{"3", "4", "1", "5", "2"}},
		{models.GroupSubtask, []string{NoParent, "P1", "p2"}, []string{"4", "2", "3", "1", "5"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.groupBy), func(t *testing.T) {
			b := ComputeBuckets(visible, columns, tt.groupBy)[0]
			if b.GroupedBy != tt.groupBy {
				t.Errorf("GroupedBy = %q", b.GroupedBy)
			}
			var keys []string
			for _, g := range b.Groups {
				keys = append(keys, g.Key)
			}
			if !slices.Equal(keys, tt.wantKeys) {
				t.Errorf("keys = %v, want %v", keys, tt.wantKeys)
			}
			if got := ids(b.Items); !slices.Equal(got, tt.wantIDs) {
				t.Errorf("items = %v, want %v", got, tt.wantIDs)
			}
			last := b.Groups[len(b.Groups)-1]
			if b.Groups[0].Start != 0 || last.End != len(b.Items) {
				t.Errorf("groups do not span items: %+v", b.Groups)
			}
		})
	}
}

func TestComputeBucketsColumnWithoutStatus(t *testing.T) {
	columns := []models.BoardColumn{{ID: "ideas", Position: 1}}
	visible := []models.Issue{{ID: "1", StatusID: i64(1)}}

	b := ComputeBuckets(visible, columns, models.GroupNone)
	if len(b) != 1 || len(b[0].Items) != 0 {
		t.Fatalf("unmapped column got items: %+v", b)
	}
}

func TestComputeBucketsOnePerColumn(t *testing.T) {
	columns := []models.BoardColumn{col("a", 1, 1), col("b", 2, 2), col("c", 4, 3)}
	visible := []models.Issue{
		{ID: "A", StatusID: i64(1)},
		{ID: "B", StatusID: i64(2)},
		{ID: "C", StatusID: i64(4)},
		{ID: "D", StatusID: i64(9)},
	}

	first := ComputeBuckets(visible, columns, models.GroupNone)
	var sizes []int
	for _, b := range first {
		sizes = append(sizes, len(b.Items))
	}
	if !slices.Equal(sizes, []int{1, 1, 1}) {
		t.Fatalf("bucket sizes = %v, want [1 1 1]", sizes)
	}

	second := ComputeBuckets(visible, columns, models.GroupNone)
	if !reflect.DeepEqual(first, second) {
		t.Error("recomputing buckets gave a different result")
	}
}
