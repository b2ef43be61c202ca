package board

import (
	"math/rand/v2"
	"slices"
	"strconv"
	"testing"

	"scrumboard/internal/models"
)

func columnIDs(cols []models.BoardColumn) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.ID
	}
	return out
}

func contiguous(cols []models.BoardColumn) bool {
	for i, c := range cols {
		if c.Position != i+1 {
			return false
		}
	}
	return true
}

func TestInsertColumn(t *testing.T) {
	base := []models.BoardColumn{col("a", 1, 1), col("b", 2, 2), col("c", 3, 3)}

	tests := []struct {
		name     string
		position int
		wantIDs  []string
		wantPos  int
	}{
		{"middle", 2, []string{"a", "new", "b", "c"}, 2},
		{"front", 1, []string{"new", "a", "b", "c"}, 1},
		{"end", 4, []string{"a", "b", "c", "new"}, 4},
		{"past the end clamps", 99, []string{"a", "b", "c", "new"}, 4},
		{"zero clamps to front", 0, []string{"new", "a", "b", "c"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InsertColumn(base, models.BoardColumn{ID: "new", Position: tt.position})
			if !slices.Equal(columnIDs(got), tt.wantIDs) {
				t.Errorf("ids = %v, want %v", columnIDs(got), tt.wantIDs)
			}
			if !slices.Equal(positions(got), []int{1, 2, 3, 4}) {
				t.Errorf("positions = %v", positions(got))
			}
			if c, _ := FindColumn(got, "new"); c.Position != tt.wantPos {
				t.Errorf("new column at %d, want %d", c.Position, tt.wantPos)
			}
		})
	}

	if !slices.Equal(positions(base), []int{1, 2, 3}) {
		t.Error("InsertColumn modified its input")
	}
}

func TestRemoveColumn(t *testing.T) {
	base := []models.BoardColumn{col("a", 1, 1), col("b", 2, 2), col("c", 3, 3)}

	got, ok := RemoveColumn(base, "b")
	if !ok {
		t.Fatal("RemoveColumn reported unknown id")
	}
	if !slices.Equal(columnIDs(got), []string{"a", "c"}) || !contiguous(got) {
		t.Fatalf("got %v at %v", columnIDs(got), positions(got))
	}

	if _, ok := RemoveColumn(base, "zzz"); ok {
		t.Error("RemoveColumn accepted an unknown id")
	}
}

func TestRepositionColumn(t *testing.T) {
	base := []models.BoardColumn{col("a", 1, 1), col("b", 2, 2), col("c", 3, 3), col("d", 4, 4)}

	tests := []struct {
		id       string
		position int
		want     []string
	}{
		{"a", 3, []string{"b", "c", "a", "d"}},
		{"d", 1, []string{"d", "a", "b", "c"}},
		{"b", 2, []string{"a", "b", "c", "d"}},
		{"b", 42, []string{"a", "c", "d", "b"}},
		{"c", -1, []string{"c", "a", "b", "d"}},
	}
	for _, tt := range tests {
		got, ok := RepositionColumn(base, tt.id, tt.position)
		if !ok {
			t.Fatalf("RepositionColumn(%s) reported unknown id", tt.id)
		}
		if !slices.Equal(columnIDs(got), tt.want) || !contiguous(got) {
			t.Errorf("RepositionColumn(%s, %d) = %v at %v, want %v", tt.id, tt.position, columnIDs(got), positions(got), tt.want)
		}
	}

	if _, ok := RepositionColumn(base, "missing", 1); ok {
		t.Error("RepositionColumn accepted an unknown id")
	}
}

func TestRenumberNormalizesGaps(t *testing.T) {
	got := Renumber([]models.BoardColumn{col("c", 3, 30), col("a", 1, 5), col("b", 2, 5)})
	if !slices.Equal(columnIDs(got), []string{"a", "b", "c"}) || !contiguous(got) {
		t.Fatalf("got %v at %v", columnIDs(got), positions(got))
	}
}

func TestColumnPositionsStayContiguous(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	cols := []models.BoardColumn{col("c0", 1, 1)}
	next := 1

	for step := 0; step < 500; step++ {
		switch rng.IntN(3) {
		case 0:
			id := "c" + strconv.Itoa(next)
			next++
			cols = InsertColumn(cols, models.BoardColumn{ID: id, Position: rng.IntN(len(cols)+3) - 1})
		case 1:
			if len(cols) > 1 {
				cols, _ = RemoveColumn(cols, cols[rng.IntN(len(cols))].ID)
			}
		case 2:
			cols, _ = RepositionColumn(cols, cols[rng.IntN(len(cols))].ID, rng.IntN(len(cols)+3)-1)
		}
		if !contiguous(cols) {
			t.Fatalf("step %d: positions %v not contiguous", step, positions(cols))
		}
	}
}

func TestMoveWithin(t *testing.T) {
	items := []string{"a", "b", "c", "d"}

	tests := []struct {
		from, to int
		want     []string
	}{
		{0, 2, []string{"b", "c", "a", "d"}},
		{3, 0, []string{"d", "a", "b", "c"}},
		{1, 1, []string{"a", "b", "c", "d"}},
		{0, 99, []string{"b", "c", "d", "a"}},
	}
	for _, tt := range tests {
		if got := MoveWithin(items, tt.from, tt.to); !slices.Equal(got, tt.want) {
			t.Errorf("MoveWithin(%d, %d) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
	if !slices.Equal(items, []string{"a", "b", "c", "d"}) {
		t.Error("MoveWithin modified its input")
	}
	if got := MoveWithin([]string(nil), 0, 1); len(got) != 0 {
		t.Errorf("MoveWithin on empty = %v", got)
	}
}
