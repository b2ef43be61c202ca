package board

import (
	"cmp"
	"slices"

	"scrumboard/internal/models"
)

// InsertColumn adds def at def.Position, clamped to 1..N+1. Every column
// at or after that position shifts down by one, so positions stay 1..N.
func InsertColumn(columns []models.BoardColumn, def models.BoardColumn) []models.BoardColumn {
	out := Renumber(columns)
	def.Position = clamp(def.Position, 1, len(out)+1)
	for i := range out {
		if out[i].Position >= def.Position {
			out[i].Position++
		}
	}
	out = append(out, def)
	sortByPosition(out)
	return out
}

// RemoveColumn drops the column with id and closes the gap it leaves.
// It reports false, returning the columns unchanged, when id is unknown.
func RemoveColumn(columns []models.BoardColumn, id string) ([]models.BoardColumn, bool) {
	out := Renumber(columns)
	idx := slices.IndexFunc(out, func(c models.BoardColumn) bool { return c.ID == id })
	if idx < 0 {
		return out, false
	}
	removed := out[idx].Position
	out = slices.Delete(out, idx, idx+1)
	for i := range out {
		if out[i].Position > removed {
			out[i].Position--
		}
	}
	return out, true
}

// RepositionColumn moves the column with id to position, clamped to 1..N.
func RepositionColumn(columns []models.BoardColumn, id string, position int) ([]models.BoardColumn, bool) {
	rest, ok := RemoveColumn(columns, id)
	if !ok {
		return rest, false
	}
	col, _ := FindColumn(columns, id)
	col.Position = clamp(position, 1, len(rest)+1)
	return InsertColumn(rest, col), true
}

// Renumber returns a copy sorted by position with positions rewritten to
// 1..N. Upstream data with gaps or duplicates is normalized this way.
func Renumber(columns []models.BoardColumn) []models.BoardColumn {
	out := slices.Clone(columns)
	sortByPosition(out)
	for i := range out {
		out[i].Position = i + 1
	}
	return out
}

// FindColumn looks a column up by id.
func FindColumn(columns []models.BoardColumn, id string) (models.BoardColumn, bool) {
	for _, c := range columns {
		if c.ID == id {
			return c, true
		}
	}
	return models.BoardColumn{}, false
}

// MoveWithin moves the item at from to index to and returns a new slice.
// Out of range indexes are clamped; the input is not modified.
func MoveWithin[T any](items []T, from, to int) []T {
	out := slices.Clone(items)
	if len(out) == 0 {
		return out
	}
	from = clamp(from, 0, len(out)-1)
	to = clamp(to, 0, len(out)-1)
	if from == to {
		return out
	}
	item := out[from]
	out = slices.Delete(out, from, from+1)
	return slices.Insert(out, to, item)
}

func sortByPosition(columns []models.BoardColumn) {
	slices.SortStableFunc(columns, func(a, b models.BoardColumn) int {
		return cmp.Compare(a.Position, b.Position)
	})
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
