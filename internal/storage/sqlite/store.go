package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"scrumboard/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps access to the SQLite database. It is the backend the board
// sessions fetch from and persist to.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open initializes a new SQLite store and runs the required migrations.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
	}

	if logger == nil {
		logger = slog.Default()
	}

	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=ON", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{db: conn, logger: logger}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS projects (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL UNIQUE,
            color TEXT NOT NULL DEFAULT '#2563eb',
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS boards (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            project_id INTEGER NOT NULL,
            name TEXT NOT NULL,
            type TEXT NOT NULL DEFAULT 'PROJECT',
            team_id TEXT NOT NULL DEFAULT '',
            include_backlog INTEGER NOT NULL DEFAULT 0,
            include_done INTEGER NOT NULL DEFAULT 1,
            is_default INTEGER NOT NULL DEFAULT 0,
            FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE
        );`,
		`CREATE TABLE IF NOT EXISTS board_columns (
            board_id INTEGER NOT NULL,
            id TEXT NOT NULL,
            title TEXT NOT NULL,
            color TEXT NOT NULL DEFAULT '',
            position INTEGER NOT NULL,
            status TEXT NOT NULL DEFAULT '',
            status_id INTEGER,
            PRIMARY KEY(board_id, id),
            FOREIGN KEY(board_id) REFERENCES boards(id) ON DELETE CASCADE
        );`,
		`CREATE TABLE IF NOT EXISTS sprints (
            id TEXT PRIMARY KEY,
            project_id INTEGER NOT NULL,
            name TEXT NOT NULL,
            start_date DATETIME NOT NULL,
            end_date DATETIME NOT NULL,
            status TEXT NOT NULL DEFAULT 'PLANNED',
            team_id TEXT NOT NULL DEFAULT '',
            position INTEGER NOT NULL DEFAULT 0,
            FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE
        );`,
		`CREATE TABLE IF NOT EXISTS issues (
            id TEXT PRIMARY KEY,
            project_id INTEGER NOT NULL,
            title TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            type TEXT NOT NULL DEFAULT 'TASK',
            priority TEXT NOT NULL DEFAULT 'MEDIUM',
            status TEXT NOT NULL DEFAULT 'TODO',
            status_id INTEGER,
            assignee TEXT NOT NULL DEFAULT '',
            labels TEXT NOT NULL DEFAULT '[]',
            sprint_id TEXT NOT NULL DEFAULT '',
            team_id TEXT NOT NULL DEFAULT '',
            epic_id TEXT NOT NULL DEFAULT '',
            parent_id TEXT NOT NULL DEFAULT '',
            story_points REAL,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL,
            due_date DATETIME,
            start_date DATETIME,
            FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE
        );`,
		`CREATE INDEX IF NOT EXISTS idx_boards_project ON boards(project_id);`,
		`CREATE INDEX IF NOT EXISTS idx_sprints_project ON sprints(project_id);`,
		`CREATE INDEX IF NOT EXISTS idx_issues_project ON issues(project_id);`,
		`CREATE INDEX IF NOT EXISTS idx_issues_project_status ON issues(project_id, status_id);`,
		`CREATE TRIGGER IF NOT EXISTS trg_projects_updated
            AFTER UPDATE ON projects
            FOR EACH ROW BEGIN
                UPDATE projects SET updated_at = CURRENT_TIMESTAMP WHERE id = OLD.id;
            END;`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// ListProjects retrieves all projects ordered by creation date.
func (s *Store) ListProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, color, created_at, updated_at FROM projects ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Color, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// CreateProject persists a new project with optional color.
func (s *Store) CreateProject(ctx context.Context, name, color string) (models.Project, error) {
	if strings.TrimSpace(name) == "" {
		return models.Project{}, fmt.Errorf("project name must not be empty")
	}
	if color == "" {
		color = randomPaletteColor()
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO projects(name, color) VALUES(?, ?)`, strings.TrimSpace(name), color)
	if err != nil {
		return models.Project{}, fmt.Errorf("insert project: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Project{}, fmt.Errorf("project id: %w", err)
	}
	return s.GetProject(ctx, id)
}

// GetProject fetches a single project by id.
func (s *Store) GetProject(ctx context.Context, id int64) (models.Project, error) {
	var p models.Project
	err := s.db.QueryRowContext(ctx, `SELECT id, name, color, created_at, updated_at FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Color, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// UpdateProject renames a project and optionally changes its color.
func (s *Store) UpdateProject(ctx context.Context, id int64, name, color string) (models.Project, error) {
	if strings.TrimSpace(name) == "" {
		return models.Project{}, fmt.Errorf("project name must not be empty")
	}
	if color == "" {
		color = randomPaletteColor()
	}

	res, err := s.db.ExecContext(ctx, `UPDATE projects SET name = ?, color = ? WHERE id = ?`, strings.TrimSpace(name), color, id)
	if err != nil {
		return models.Project{}, fmt.Errorf("update project: %w", err)
	}
	if err := expectRow(res, fmt.Sprintf("project %d", id)); err != nil {
		return models.Project{}, err
	}
	return s.GetProject(ctx, id)
}

// DeleteProject removes a project along with its boards, sprints and issues.
func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return expectRow(res, fmt.Sprintf("project %d", id))
}

func randomPaletteColor() string {
	return models.PaletteColor(rand.Intn(len(models.Palette)))
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
