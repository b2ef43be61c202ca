package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strings"

	"scrumboard/internal/models"
)

// Mutation records an optimistic issue change so the caller can undo it
// with Rollback when persistence fails.
type Mutation struct {
	IssueID  string       `json:"issue_id"`
	Previous models.Issue `json:"previous"`
	Applied  models.Issue `json:"applied"`
	gen      uint64
}

// UpdateIssueField patches an issue locally. It reports false and changes
// nothing when id is unknown.
func (s *Session) UpdateIssueField(id string, patch models.IssuePatch) (models.Issue, bool) {
	var (
		out models.Issue
		ok  bool
	)
	s.update(func() bool {
		idx := s.indexLocked(id)
		if idx < 0 {
			s.logger.Warn("update for unknown issue", slog.String("issue", id))
			return false
		}
		out = s.replaceLocked(idx, patch.Apply(s.issues[idx]))
		ok = true
		return true
	})
	return out, ok
}

// UpdateIssue patches an issue locally and persists the patch. A failed
// persist is returned; the local patch stays applied.
func (s *Session) UpdateIssue(ctx context.Context, id string, patch models.IssuePatch) (models.Issue, error) {
	s.mu.Lock()
	projectID := s.projectID
	s.mu.Unlock()

	updated, ok := s.UpdateIssueField(id, patch)
	if !ok {
		return models.Issue{}, fmt.Errorf("%w: %s", ErrUnknownIssue, id)
	}

	gen := s.beginMutation()
	err := s.transport.PersistIssueUpdate(ctx, id, projectID, patch)
	s.endMutation(gen)
	if err != nil {
		return updated, fmt.Errorf("persist issue %s: %w", id, err)
	}
	s.cache.Invalidate(projectID)
	return updated, nil
}

// UpdateIssueStatusOptimistic moves an issue to statusID locally, then
// persists the change. On failure the local change is left in place and
// the returned Mutation can be handed to Rollback.
func (s *Session) UpdateIssueStatusOptimistic(ctx context.Context, id string, statusID int64) (Mutation, error) {
	m, projectID, err := s.applyStatus(id, statusID)
	if err != nil {
		return Mutation{}, err
	}

	perr := s.transport.PersistIssueStatusChange(ctx, id, statusID, projectID)
	s.endMutation(m.gen)
	if perr != nil {
		s.logger.Warn("issue status change failed",
			slog.String("issue", id),
			slog.Int64("status_id", statusID),
			slog.String("error", perr.Error()))
		return m, fmt.Errorf("persist status of issue %s: %w", id, perr)
	}
	s.cache.Invalidate(projectID)
	return m, nil
}

// Rollback restores the record a Mutation replaced. It only applies while
// the issue still holds the mutated value; a newer write wins.
func (s *Session) Rollback(m Mutation) bool {
	reverted := false
	s.update(func() bool {
		if m.gen != s.gen {
			return false
		}
		idx := s.indexLocked(m.IssueID)
		if idx < 0 || !reflect.DeepEqual(s.issues[idx], m.Applied) {
			s.logger.Debug("rollback skipped", slog.String("issue", m.IssueID))
			return false
		}
		s.replaceLocked(idx, m.Previous)
		s.state = StateErrorReverted
		reverted = true
		return true
	})
	return reverted
}

// MoveIssue handles a drag across columns. The status change is applied
// and persisted; if persisting fails the move is rolled back and the
// error returned together with the issue as the session now holds it.
// The error wraps ErrReverted only when the rollback took effect; a
// newer write to the issue keeps precedence.
func (s *Session) MoveIssue(ctx context.Context, id, toColumnID string) (models.Issue, error) {
	s.mu.Lock()
	col, ok := FindColumn(s.columns, toColumnID)
	s.mu.Unlock()
	if !ok {
		s.logger.Warn("move to unknown column", slog.String("issue", id), slog.String("column", toColumnID))
		return models.Issue{}, fmt.Errorf("%w: %s", ErrUnknownColumn, toColumnID)
	}
	if col.StatusID == nil {
		return models.Issue{}, fmt.Errorf("%w: %s", ErrUnmappedColumn, toColumnID)
	}

	if current, ok := s.Issue(id); ok && current.HasStatusID(*col.StatusID) {
		return current, nil
	}

	m, err := s.UpdateIssueStatusOptimistic(ctx, id, *col.StatusID)
	if err != nil {
		if errors.Is(err, ErrUnknownIssue) {
			return models.Issue{}, err
		}
		if s.Rollback(m) {
			err = fmt.Errorf("%w: %w", ErrReverted, err)
		}
		current, _ := s.Issue(id)
		return current, err
	}
	return m.Applied, nil
}

// ReorderWithinColumn moves a card inside one column. Only the bucket's
// order changes; the issue records are untouched, and the order lasts
// until the column is next recomputed. In a grouped bucket both
// positions must fall in the same group.
func (s *Session) ReorderWithinColumn(columnID string, from, to int) bool {
	ok := false
	s.update(func() bool {
		s.deriveLocked()
		idx := slices.IndexFunc(s.buckets, func(b Bucket) bool { return b.Column.ID == columnID })
		if idx < 0 {
			s.logger.Warn("reorder in unknown column", slog.String("column", columnID))
			return false
		}
		items := s.buckets[idx].Items
		if from < 0 || from >= len(items) || to < 0 || to >= len(items) {
			s.logger.Warn("reorder out of range",
				slog.String("column", columnID),
				slog.Int("from", from),
				slog.Int("to", to))
			return false
		}
		if g := s.buckets[idx].Groups; groupIndex(g, from) != groupIndex(g, to) {
			s.logger.Warn("reorder across groups",
				slog.String("column", columnID),
				slog.Int("from", from),
				slog.Int("to", to))
			return false
		}
		buckets := slices.Clone(s.buckets)
		buckets[idx].Items = MoveWithin(items, from, to)
		s.buckets = buckets
		ok = true
		return true
	})
	return ok
}

// groupIndex returns the group holding item i, or -1 when the bucket is
// not grouped.
func groupIndex(groups []Group, i int) int {
	return slices.IndexFunc(groups, func(g Group) bool { return i >= g.Start && i < g.End })
}

// CreateIssue adds a new issue with a fresh id and persists it. Unset
// fields default to TODO, TASK, MEDIUM and no labels; the sprint defaults
// to the current selection and the team to the board's team. A failed
// persist is returned with the local record kept.
func (s *Session) CreateIssue(ctx context.Context, draft models.Issue) (models.Issue, error) {
	var (
		created models.Issue
		gen     uint64
		err     error
	)
	s.update(func() bool {
		if s.board == nil {
			err = ErrNoBoard
			return false
		}
		created = s.draftLocked(draft)
		s.issues = append(slices.Clip(s.issues), created)
		s.markVisibleLocked()
		s.pending++
		s.state = StateMutating
		gen = s.gen
		return true
	})
	if err != nil {
		return models.Issue{}, err
	}

	perr := s.transport.PersistIssueCreate(ctx, created)
	s.endMutation(gen)
	if perr != nil {
		return created, fmt.Errorf("persist new issue %s: %w", created.ID, perr)
	}
	s.cache.Invalidate(created.ProjectID)
	return created, nil
}

func (s *Session) draftLocked(draft models.Issue) models.Issue {
	now := s.now()
	issue := draft.Clone()
	issue.ID = NewIssueID(now)
	issue.ProjectID = s.projectID
	issue.Title = strings.TrimSpace(issue.Title)
	if issue.Status == "" {
		issue.Status = models.StatusTodo
	}
	if issue.Type == "" {
		issue.Type = models.TypeTask
	}
	if issue.Priority == "" {
		issue.Priority = models.PriorityMedium
	}
	if issue.Labels == nil {
		issue.Labels = []string{}
	}
	if issue.SprintID == "" {
		issue.SprintID = s.selection
	}
	if issue.TeamID.IsZero() && s.board.ScopesByTeam() {
		issue.TeamID = s.board.TeamID
	}
	if issue.StatusID == nil {
		for _, col := range s.columns {
			if col.Status == issue.Status && col.StatusID != nil {
				id := *col.StatusID
				issue.StatusID = &id
				break
			}
		}
	}
	issue.CreatedAt = now
	issue.UpdatedAt = now
	return issue
}

// AddColumn inserts a column at def.Position and persists the new column
// together with every column it shifted.
func (s *Session) AddColumn(ctx context.Context, def models.BoardColumn) (models.BoardColumn, error) {
	var (
		boardID int64
		created models.BoardColumn
		changed []models.BoardColumn
		err     error
	)
	s.update(func() bool {
		if s.board == nil {
			err = ErrNoBoard
			return false
		}
		if def.ID == "" {
			def.ID = columnID(def)
		}
		if def.ID == "" {
			err = errors.New("column needs a status or a title")
			return false
		}
		if _, exists := FindColumn(s.columns, def.ID); exists {
			err = fmt.Errorf("column %q already exists", def.ID)
			return false
		}
		if def.Color == "" {
			def.Color = models.PaletteColor(len(s.columns))
		}
		before := s.columns
		s.setColumnsLocked(InsertColumn(before, def))
		created, _ = FindColumn(s.columns, def.ID)
		changed = shifted(before, s.columns)
		boardID = s.board.ID
		return true
	})
	if err != nil {
		return models.BoardColumn{}, err
	}

	gen := s.beginMutation()
	defer s.endMutation(gen)
	if err := s.transport.PersistColumnCreate(ctx, boardID, created); err != nil {
		return created, fmt.Errorf("persist column %s: %w", created.ID, err)
	}
	return created, s.persistColumnUpdates(ctx, boardID, changed)
}

// RemoveColumn deletes a column and closes the position gap. Unknown ids
// change nothing and return ErrUnknownColumn.
func (s *Session) RemoveColumn(ctx context.Context, id string) error {
	var (
		boardID int64
		changed []models.BoardColumn
		err     error
	)
	s.update(func() bool {
		if s.board == nil {
			err = ErrNoBoard
			return false
		}
		before := s.columns
		after, ok := RemoveColumn(before, id)
		if !ok {
			s.logger.Warn("remove unknown column", slog.String("column", id))
			err = fmt.Errorf("%w: %s", ErrUnknownColumn, id)
			return false
		}
		s.setColumnsLocked(after)
		changed = shifted(before, after)
		boardID = s.board.ID
		return true
	})
	if err != nil {
		return err
	}

	gen := s.beginMutation()
	defer s.endMutation(gen)
	if err := s.transport.PersistColumnDelete(ctx, boardID, id); err != nil {
		return fmt.Errorf("persist column delete %s: %w", id, err)
	}
	return s.persistColumnUpdates(ctx, boardID, changed)
}

// RepositionColumn moves a column to a new position, shifting the others.
func (s *Session) RepositionColumn(ctx context.Context, id string, position int) error {
	var (
		boardID int64
		changed []models.BoardColumn
		err     error
	)
	s.update(func() bool {
		if s.board == nil {
			err = ErrNoBoard
			return false
		}
		before := s.columns
		after, ok := RepositionColumn(before, id, position)
		if !ok {
			s.logger.Warn("reposition unknown column", slog.String("column", id))
			err = fmt.Errorf("%w: %s", ErrUnknownColumn, id)
			return false
		}
		s.setColumnsLocked(after)
		changed = shifted(before, after)
		boardID = s.board.ID
		return true
	})
	if err != nil {
		return err
	}

	gen := s.beginMutation()
	defer s.endMutation(gen)
	return s.persistColumnUpdates(ctx, boardID, changed)
}

func (s *Session) persistColumnUpdates(ctx context.Context, boardID int64, cols []models.BoardColumn) error {
	var errs []error
	for _, col := range cols {
		if err := s.transport.PersistColumnUpdate(ctx, boardID, col); err != nil {
			errs = append(errs, fmt.Errorf("persist column %s: %w", col.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Session) setColumnsLocked(cols []models.BoardColumn) {
	b := *s.board
	b.Columns = cols
	s.board = &b
	s.columns = cols
	s.bucketsDirty = true
}

// applyStatus applies a status change locally and marks the session as mutating.
func (s *Session) applyStatus(id string, statusID int64) (Mutation, int64, error) {
	var (
		m         Mutation
		projectID int64
		err       error
	)
	s.update(func() bool {
		idx := s.indexLocked(id)
		if idx < 0 {
			s.logger.Warn("status change for unknown issue", slog.String("issue", id))
			err = fmt.Errorf("%w: %s", ErrUnknownIssue, id)
			return false
		}
		patch := models.IssuePatch{StatusID: &statusID}
		for _, col := range s.columns {
			if col.StatusID != nil && *col.StatusID == statusID && col.Status != "" {
				status := col.Status
				patch.Status = &status
				break
			}
		}
		prev := s.issues[idx]
		applied := s.replaceLocked(idx, patch.Apply(prev))
		s.pending++
		s.state = StateMutating
		m = Mutation{IssueID: id, Previous: prev, Applied: applied, gen: s.gen}
		projectID = s.projectID
		return true
	})
	return m, projectID, err
}

func (s *Session) beginMutation() uint64 {
	var gen uint64
	s.update(func() bool {
		gen = s.gen
		s.pending++
		s.state = StateMutating
		return true
	})
	return gen
}

func (s *Session) endMutation(gen uint64) {
	s.update(func() bool {
		if s.gen != gen {
			return false
		}
		if s.pending > 0 {
			s.pending--
		}
		if s.pending == 0 && s.state == StateMutating {
			s.state = StateReady
			s.settleLocked()
		}
		return true
	})
}

// replaceLocked swaps in a new issue slice with next at idx. updatedAt
// never moves backwards.
func (s *Session) replaceLocked(idx int, next models.Issue) models.Issue {
	now := s.now()
	if now.Before(s.issues[idx].UpdatedAt) {
		now = s.issues[idx].UpdatedAt
	}
	next.UpdatedAt = now
	issues := slices.Clone(s.issues)
	issues[idx] = next
	s.issues = issues
	s.markVisibleLocked()
	return next
}

// shifted returns the columns of after whose position differs from before.
func shifted(before, after []models.BoardColumn) []models.BoardColumn {
	prev := make(map[string]int, len(before))
	for _, c := range before {
		prev[c.ID] = c.Position
	}
	var out []models.BoardColumn
	for _, c := range after {
		if p, ok := prev[c.ID]; ok && p != c.Position {
			out = append(out, c)
		}
	}
	return out
}

// columnID derives a column id from its status name, falling back to the title.
func columnID(def models.BoardColumn) string {
	name := string(def.Status)
	if name == "" {
		name = def.Title
	}
	return strings.ToLower(strings.Join(strings.Fields(name), "_"))
}
