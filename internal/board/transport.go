package board

import (
	"context"
	"errors"

	"scrumboard/internal/models"
)

var (
	// ErrNoBoard is returned by commands that need an opened board.
	ErrNoBoard = errors.New("no board opened")
	// ErrUnknownIssue is returned when a command names an issue the session does not hold.
	ErrUnknownIssue = errors.New("unknown issue")
	// ErrUnknownColumn is returned when a command names a column the board does not have.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrUnmappedColumn is returned when a column has no status to move issues into.
	ErrUnmappedColumn = errors.New("column has no status mapping")
	// ErrStale is returned when a navigation superseded the command's board.
	ErrStale = errors.New("board session superseded")
	// ErrReverted wraps a persist failure whose optimistic change was rolled back.
	ErrReverted = errors.New("change reverted")
)

// Backend fetches board data for a project.
type Backend interface {
	FetchIssuesByProject(ctx context.Context, projectID int64) ([]models.Issue, error)
	FetchSprintsByProject(ctx context.Context, projectID int64) ([]models.Sprint, error)
	FetchBoardsByProject(ctx context.Context, projectID int64) ([]models.Board, error)
	FetchBoardByID(ctx context.Context, id int64) (models.Board, error)
}

// Persister writes mutations back to the backend.
type Persister interface {
	PersistIssueStatusChange(ctx context.Context, issueID string, statusID int64, projectID int64) error
	PersistIssueUpdate(ctx context.Context, issueID string, projectID int64, patch models.IssuePatch) error
	PersistIssueCreate(ctx context.Context, issue models.Issue) error
	PersistColumnCreate(ctx context.Context, boardID int64, col models.BoardColumn) error
	PersistColumnUpdate(ctx context.Context, boardID int64, col models.BoardColumn) error
	PersistColumnDelete(ctx context.Context, boardID int64, columnID string) error
}

// Transport is the full backend contract a session needs.
type Transport interface {
	Backend
	Persister
}
