package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"scrumboard/internal/models"
)

const boardColumns = `id, project_id, name, type, team_id, include_backlog, include_done, is_default`

// CreateBoard inserts a board and its columns. Making a board the default
// clears the flag on the project's other boards.
func (s *Store) CreateBoard(ctx context.Context, b models.Board) (models.Board, error) {
	if strings.TrimSpace(b.Name) == "" {
		return models.Board{}, fmt.Errorf("board name must not be empty")
	}
	if b.Type == "" {
		b.Type = models.BoardProject
	}
	if b.Type == models.BoardTeam && b.TeamID.IsZero() {
		return models.Board{}, fmt.Errorf("team board needs a team id")
	}
	if b.Type == models.BoardProject {
		b.TeamID = ""
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Board{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if b.IsDefault {
		if _, err := tx.ExecContext(ctx, `UPDATE boards SET is_default = 0 WHERE project_id = ?`, b.ProjectID); err != nil {
			return models.Board{}, fmt.Errorf("clear default board: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO boards(project_id, name, type, team_id, include_backlog, include_done, is_default)
        VALUES(?, ?, ?, ?, ?, ?, ?)`,
		b.ProjectID, strings.TrimSpace(b.Name), b.Type, b.TeamID.Normalize(),
		boolInt(b.IncludeBacklog), boolInt(b.IncludeDone), boolInt(b.IsDefault))
	if err != nil {
		return models.Board{}, fmt.Errorf("insert board: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Board{}, fmt.Errorf("board id: %w", err)
	}

	for i, col := range b.Columns {
		if col.Position == 0 {
			col.Position = i + 1
		}
		if err := insertColumn(ctx, tx, id, col); err != nil {
			return models.Board{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Board{}, fmt.Errorf("commit board: %w", err)
	}
	return s.FetchBoardByID(ctx, id)
}

// FetchBoardsByProject lists a project's boards with their columns.
func (s *Store) FetchBoardsByProject(ctx context.Context, projectID int64) ([]models.Board, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+boardColumns+` FROM boards WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()

	boards := []models.Board{}
	for rows.Next() {
		b, err := scanBoard(rows)
		if err != nil {
			return nil, err
		}
		boards = append(boards, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range boards {
		cols, err := s.listColumns(ctx, boards[i].ID)
		if err != nil {
			return nil, err
		}
		boards[i].Columns = cols
	}
	return boards, nil
}

// FetchBoardByID fetches one board with its columns.
func (s *Store) FetchBoardByID(ctx context.Context, id int64) (models.Board, error) {
	b, err := scanBoard(s.db.QueryRowContext(ctx, `SELECT `+boardColumns+` FROM boards WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Board{}, fmt.Errorf("board %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Board{}, err
	}
	cols, err := s.listColumns(ctx, id)
	if err != nil {
		return models.Board{}, err
	}
	b.Columns = cols
	return b, nil
}

// PersistColumnCreate stores a new column.
func (s *Store) PersistColumnCreate(ctx context.Context, boardID int64, col models.BoardColumn) error {
	return insertColumn(ctx, s.db, boardID, col)
}

// PersistColumnUpdate rewrites a column's title, color, position and status mapping.
func (s *Store) PersistColumnUpdate(ctx context.Context, boardID int64, col models.BoardColumn) error {
	res, err := s.db.ExecContext(ctx, `UPDATE board_columns SET title = ?, color = ?, position = ?, status = ?, status_id = ?
        WHERE board_id = ? AND id = ?`,
		col.Title, col.Color, col.Position, col.Status, nullInt64(col.StatusID), boardID, col.ID)
	if err != nil {
		return fmt.Errorf("update column: %w", err)
	}
	return expectRow(res, "column "+col.ID)
}

// PersistColumnDelete removes a column.
func (s *Store) PersistColumnDelete(ctx context.Context, boardID int64, columnID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM board_columns WHERE board_id = ? AND id = ?`, boardID, columnID)
	if err != nil {
		return fmt.Errorf("delete column: %w", err)
	}
	return expectRow(res, "column "+columnID)
}

func (s *Store) listColumns(ctx context.Context, boardID int64) ([]models.BoardColumn, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, color, position, status, status_id
        FROM board_columns WHERE board_id = ? ORDER BY position, id`, boardID)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	defer rows.Close()

	cols := []models.BoardColumn{}
	for rows.Next() {
		var (
			c        models.BoardColumn
			status   string
			statusID sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.Title, &c.Color, &c.Position, &status, &statusID); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		c.Status = models.IssueStatus(status)
		c.StatusID = int64Ptr(statusID)
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertColumn(ctx context.Context, db execer, boardID int64, col models.BoardColumn) error {
	if col.ID == "" {
		return fmt.Errorf("column id must not be empty")
	}
	if col.Color == "" {
		col.Color = randomPaletteColor()
	}
	_, err := db.ExecContext(ctx, `INSERT INTO board_columns(board_id, id, title, color, position, status, status_id)
        VALUES(?, ?, ?, ?, ?, ?, ?)`,
		boardID, col.ID, col.Title, col.Color, col.Position, col.Status, nullInt64(col.StatusID))
	if err != nil {
		return fmt.Errorf("insert column %s: %w", col.ID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBoard(row rowScanner) (models.Board, error) {
	var (
		b         models.Board
		typ, team string
		backlog   int
		done      int
		def       int
	)
	if err := row.Scan(&b.ID, &b.ProjectID, &b.Name, &typ, &team, &backlog, &done, &def); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Board{}, err
		}
		return models.Board{}, fmt.Errorf("scan board: %w", err)
	}
	b.Type = models.BoardType(typ)
	b.TeamID = models.TeamID(team)
	b.IncludeBacklog = backlog == 1
	b.IncludeDone = done == 1
	b.IsDefault = def == 1
	return b, nil
}

func expectRow(res sql.Result, what string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
