package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"scrumboard/internal/models"
)

const issueColumns = `id, project_id, title, description, type, priority, status, status_id, assignee, labels,
        sprint_id, team_id, epic_id, parent_id, story_points, created_at, updated_at, due_date, start_date`

// FetchIssuesByProject lists every issue of a project.
func (s *Store) FetchIssuesByProject(ctx context.Context, projectID int64) ([]models.Issue, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+issueColumns+` FROM issues WHERE project_id = ? ORDER BY created_at, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	defer rows.Close()

	issues := []models.Issue{}
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}

// GetIssue fetches a single issue by id.
func (s *Store) GetIssue(ctx context.Context, id string) (models.Issue, error) {
	issue, err := scanIssue(s.db.QueryRowContext(ctx, `SELECT `+issueColumns+` FROM issues WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Issue{}, fmt.Errorf("issue %s: %w", id, ErrNotFound)
	}
	return issue, err
}

// PersistIssueCreate inserts an issue built by a board session.
func (s *Store) PersistIssueCreate(ctx context.Context, issue models.Issue) error {
	if strings.TrimSpace(issue.ID) == "" {
		return fmt.Errorf("issue id must not be empty")
	}
	if strings.TrimSpace(issue.Title) == "" {
		return fmt.Errorf("issue title must not be empty")
	}
	labels, err := encodeLabels(issue.Labels)
	if err != nil {
		return err
	}
	if issue.CreatedAt.IsZero() {
		issue.CreatedAt = time.Now()
	}
	if issue.UpdatedAt.IsZero() {
		issue.UpdatedAt = issue.CreatedAt
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO issues(`+issueColumns+`)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		issue.ID, issue.ProjectID, strings.TrimSpace(issue.Title), issue.Description,
		issue.Type, issue.Priority, issue.Status, nullInt64(issue.StatusID), issue.Assignee, labels,
		issue.SprintID, issue.TeamID.Normalize(), issue.EpicID, issue.ParentID,
		nullFloat(issue.StoryPoints), issue.CreatedAt, issue.UpdatedAt,
		nullTime(issue.DueDate), nullTime(issue.StartDate))
	if err != nil {
		return fmt.Errorf("insert issue: %w", err)
	}
	return nil
}

// PersistIssueUpdate applies patch to the stored issue of projectID.
func (s *Store) PersistIssueUpdate(ctx context.Context, issueID string, projectID int64, patch models.IssuePatch) error {
	current, err := s.GetIssue(ctx, issueID)
	if err != nil {
		return err
	}
	if current.ProjectID != projectID {
		return fmt.Errorf("issue %s in project %d: %w", issueID, projectID, ErrNotFound)
	}

	next := patch.Apply(current)
	next.UpdatedAt = time.Now()
	labels, err := encodeLabels(next.Labels)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `UPDATE issues SET title = ?, description = ?, type = ?, priority = ?, status = ?,
        status_id = ?, assignee = ?, labels = ?, sprint_id = ?, team_id = ?, epic_id = ?, parent_id = ?,
        story_points = ?, updated_at = ?, due_date = ?, start_date = ? WHERE id = ?`,
		next.Title, next.Description, next.Type, next.Priority, next.Status,
		nullInt64(next.StatusID), next.Assignee, labels, next.SprintID, next.TeamID.Normalize(), next.EpicID, next.ParentID,
		nullFloat(next.StoryPoints), next.UpdatedAt, nullTime(next.DueDate), nullTime(next.StartDate), issueID)
	if err != nil {
		return fmt.Errorf("update issue: %w", err)
	}
	return nil
}

// PersistIssueStatusChange moves an issue to another column status. The
// status name follows when a column of the project's boards maps statusID.
func (s *Store) PersistIssueStatusChange(ctx context.Context, issueID string, statusID int64, projectID int64) error {
	var status sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT c.status FROM board_columns c JOIN boards b ON b.id = c.board_id
        WHERE b.project_id = ? AND c.status_id = ? AND c.status <> '' LIMIT 1`, projectID, statusID).Scan(&status)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("lookup status %d: %w", statusID, err)
	}

	res, err := s.db.ExecContext(ctx, `UPDATE issues SET status_id = ?, status = COALESCE(NULLIF(?, ''), status), updated_at = ?
        WHERE id = ? AND project_id = ?`, statusID, status.String, time.Now(), issueID, projectID)
	if err != nil {
		return fmt.Errorf("update issue status: %w", err)
	}
	return expectRow(res, "issue "+issueID)
}

func scanIssue(row rowScanner) (models.Issue, error) {
	var (
		issue    models.Issue
		typ      string
		priority string
		status   string
		labels   string
		team     string
		statusID sql.NullInt64
		points   sql.NullFloat64
		due      sql.NullTime
		start    sql.NullTime
	)
	err := row.Scan(&issue.ID, &issue.ProjectID, &issue.Title, &issue.Description, &typ, &priority, &status,
		&statusID, &issue.Assignee, &labels, &issue.SprintID, &team, &issue.EpicID, &issue.ParentID,
		&points, &issue.CreatedAt, &issue.UpdatedAt, &due, &start)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Issue{}, err
		}
		return models.Issue{}, fmt.Errorf("scan issue: %w", err)
	}

	issue.Type = models.IssueType(typ)
	issue.Priority = models.Priority(priority)
	issue.Status = models.IssueStatus(status)
	issue.StatusID = int64Ptr(statusID)
	issue.TeamID = models.TeamID(team)
	if points.Valid {
		v := points.Float64
		issue.StoryPoints = &v
	}
	if due.Valid {
		v := due.Time
		issue.DueDate = &v
	}
	if start.Valid {
		v := start.Time
		issue.StartDate = &v
	}
	if err := json.Unmarshal([]byte(labels), &issue.Labels); err != nil {
		return models.Issue{}, fmt.Errorf("decode labels of %s: %w", issue.ID, err)
	}
	if issue.Labels == nil {
		issue.Labels = []string{}
	}
	return issue, nil
}

func encodeLabels(labels []string) (string, error) {
	if labels == nil {
		labels = []string{}
	}
	raw, err := json.Marshal(labels)
	if err != nil {
		return "", fmt.Errorf("encode labels: %w", err)
	}
	return string(raw), nil
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func nullTime(p *time.Time) sql.NullTime {
	if p == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *p, Valid: true}
}
