package sqlite

import (
	"context"
	"fmt"
	"strings"

	"scrumboard/internal/models"
)

// CreateSprint stores a sprint. Sprints keep the order they were created in.
func (s *Store) CreateSprint(ctx context.Context, sp models.Sprint) (models.Sprint, error) {
	if strings.TrimSpace(sp.ID) == "" {
		return models.Sprint{}, fmt.Errorf("sprint id must not be empty")
	}
	if strings.TrimSpace(sp.Name) == "" {
		return models.Sprint{}, fmt.Errorf("sprint name must not be empty")
	}
	if sp.Status == "" {
		sp.Status = models.SprintPlanned
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO sprints(id, project_id, name, start_date, end_date, status, team_id, position)
        VALUES(?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM sprints WHERE project_id = ?))`,
		sp.ID, sp.ProjectID, strings.TrimSpace(sp.Name), sp.StartDate, sp.EndDate, sp.Status, sp.TeamID.Normalize(), sp.ProjectID)
	if err != nil {
		return models.Sprint{}, fmt.Errorf("insert sprint: %w", err)
	}
	sp.Issues = nil
	sp.TeamID = models.TeamID(sp.TeamID.Normalize())
	return sp, nil
}

// FetchSprintsByProject lists a project's sprints in creation order.
func (s *Store) FetchSprintsByProject(ctx context.Context, projectID int64) ([]models.Sprint, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, project_id, name, start_date, end_date, status, team_id
        FROM sprints WHERE project_id = ? ORDER BY position, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list sprints: %w", err)
	}
	defer rows.Close()

	sprints := []models.Sprint{}
	for rows.Next() {
		var (
			sp           models.Sprint
			status, team string
		)
		if err := rows.Scan(&sp.ID, &sp.ProjectID, &sp.Name, &sp.StartDate, &sp.EndDate, &status, &team); err != nil {
			return nil, fmt.Errorf("scan sprint: %w", err)
		}
		sp.Status = models.SprintStatus(status)
		sp.TeamID = models.TeamID(team)
		sprints = append(sprints, sp)
	}
	return sprints, rows.Err()
}
