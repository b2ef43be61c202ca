package board

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"scrumboard/internal/models"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func i64(v int64) *int64 { return &v }

func at(minutes int) time.Time { return t0.Add(time.Duration(minutes) * time.Minute) }

func col(id string, statusID int64, pos int) models.BoardColumn {
	return models.BoardColumn{ID: id, Title: id, Position: pos, StatusID: i64(statusID)}
}

func ids(issues []models.Issue) []string {
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = issue.ID
	}
	return out
}

func positions(cols []models.BoardColumn) []int {
	out := make([]int, len(cols))
	for i, c := range cols {
		out[i] = c.Position
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// clock hands out strictly increasing times.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type statusCall struct {
	issueID   string
	statusID  int64
	projectID int64
}

var errBackend = errors.New("backend unavailable")

// fakeTransport is an in-memory Backend and Persister. Fetch errors and
// blocking can be configured per project.
type fakeTransport struct {
	mu sync.Mutex

	boards  map[int64]models.Board
	issues  map[int64][]models.Issue
	sprints map[int64][]models.Sprint

	issueErr  map[int64]error
	sprintErr map[int64]error
	issueGate map[int64]chan struct{}
	started   chan int64

	statusErr error
	updateErr error
	createErr error
	columnErr error

	// duringStatus runs while a status change is being persisted.
	duringStatus func()

	issueFetches  int
	sprintFetches int
	statusCalls   []statusCall
	updates       []string
	created       []models.Issue
	columnOps     []string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		boards:    make(map[int64]models.Board),
		issues:    make(map[int64][]models.Issue),
		sprints:   make(map[int64][]models.Sprint),
		issueErr:  make(map[int64]error),
		sprintErr: make(map[int64]error),
		issueGate: make(map[int64]chan struct{}),
	}
}

func (f *fakeTransport) FetchIssuesByProject(ctx context.Context, projectID int64) ([]models.Issue, error) {
	f.mu.Lock()
	f.issueFetches++
	gate := f.issueGate[projectID]
	started := f.started
	f.mu.Unlock()

	if gate != nil {
		if started != nil {
			started <- projectID
		}
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.issueErr[projectID]; err != nil {
		return nil, err
	}
	return slices.Clone(f.issues[projectID]), nil
}

func (f *fakeTransport) FetchSprintsByProject(ctx context.Context, projectID int64) ([]models.Sprint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sprintFetches++
	if err := f.sprintErr[projectID]; err != nil {
		return nil, err
	}
	return slices.Clone(f.sprints[projectID]), nil
}

func (f *fakeTransport) FetchBoardsByProject(ctx context.Context, projectID int64) ([]models.Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Board
	for id := int64(1); id <= 100; id++ {
		if b, ok := f.boards[id]; ok && b.ProjectID == projectID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeTransport) FetchBoardByID(ctx context.Context, id int64) (models.Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.boards[id]
	if !ok {
		return models.Board{}, errors.New("board not found")
	}
	b.Columns = slices.Clone(b.Columns)
	return b, nil
}

func (f *fakeTransport) PersistIssueStatusChange(ctx context.Context, issueID string, statusID int64, projectID int64) error {
	if f.duringStatus != nil {
		f.duringStatus()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = append(f.statusCalls, statusCall{issueID, statusID, projectID})
	return f.statusErr
}

func (f *fakeTransport) PersistIssueUpdate(ctx context.Context, issueID string, projectID int64, patch models.IssuePatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, issueID)
	return f.updateErr
}

func (f *fakeTransport) PersistIssueCreate(ctx context.Context, issue models.Issue) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, issue)
	if f.createErr != nil {
		return f.createErr
	}
	f.issues[issue.ProjectID] = append(f.issues[issue.ProjectID], issue)
	return nil
}

func (f *fakeTransport) PersistColumnCreate(ctx context.Context, boardID int64, c models.BoardColumn) error {
	return f.columnOp("create " + c.ID)
}

func (f *fakeTransport) PersistColumnUpdate(ctx context.Context, boardID int64, c models.BoardColumn) error {
	return f.columnOp("update " + c.ID)
}

func (f *fakeTransport) PersistColumnDelete(ctx context.Context, boardID int64, columnID string) error {
	return f.columnOp("delete " + columnID)
}

func (f *fakeTransport) columnOp(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.columnOps = append(f.columnOps, op)
	return f.columnErr
}

// seedFixture loads two projects. Project 1 has a team board (10) for
// team 5, whose id is stored as a number-like string, and a default
// project board (11). Project 2 has a single board (20).
func seedFixture(f *fakeTransport) {
	columns := []models.BoardColumn{
		{ID: "todo", Title: "To Do", Position: 1, Status: models.StatusTodo, StatusID: i64(1)},
		{ID: "in_progress", Title: "In Progress", Position: 2, Status: models.StatusInProgress, StatusID: i64(2)},
		{ID: "done", Title: "Done", Position: 3, Status: models.StatusDone, StatusID: i64(4)},
	}
	f.boards[10] = models.Board{ID: 10, ProjectID: 1, Name: "Team 5", Type: models.BoardTeam, TeamID: "5", Columns: columns}
	f.boards[11] = models.Board{ID: 11, ProjectID: 1, Name: "All", Type: models.BoardProject, Columns: columns, IsDefault: true}
	f.boards[20] = models.Board{ID: 20, ProjectID: 2, Name: "Other", Type: models.BoardProject, Columns: columns}

	f.sprints[1] = []models.Sprint{
		{ID: "s1", ProjectID: 1, Name: "Sprint 1", Status: models.SprintActive, TeamID: "5"},
		{ID: "s2", ProjectID: 1, Name: "Sprint 2", Status: models.SprintPlanned, TeamID: "5"},
		{ID: "s3", ProjectID: 1, Name: "Other team", Status: models.SprintActive, TeamID: "7"},
	}
	f.issues[1] = []models.Issue{
		{ID: "a", ProjectID: 1, Title: "Login form", Status: models.StatusTodo, StatusID: i64(1), TeamID: "5", SprintID: "s1", Priority: models.PriorityLow, CreatedAt: at(1), UpdatedAt: at(1)},
		{ID: "b", ProjectID: 1, Title: "Session cookie", Status: models.StatusInProgress, StatusID: i64(2), SprintID: "s1", Priority: models.PriorityHigh, CreatedAt: at(2), UpdatedAt: at(2)},
		{ID: "c", ProjectID: 1, Title: "Logout", Status: models.StatusTodo, StatusID: i64(1), TeamID: "5", SprintID: "s2", Priority: models.PriorityMedium, CreatedAt: at(3), UpdatedAt: at(3)},
		{ID: "d", ProjectID: 1, Title: "Billing", Status: models.StatusDone, StatusID: i64(4), TeamID: "7", SprintID: "s3", CreatedAt: at(4), UpdatedAt: at(4)},
	}
	f.issues[2] = []models.Issue{
		{ID: "p2-a", ProjectID: 2, Title: "Elsewhere", Status: models.StatusTodo, StatusID: i64(1), CreatedAt: at(1), UpdatedAt: at(1)},
	}
}

func newTestSession(t *testing.T, f *fakeTransport, policy SelectionPolicy) *Session {
	t.Helper()
	c := &clock{now: at(100)}
	return NewSession(f, Options{Logger: quietLogger(), Policy: policy, Now: c.Now})
}

func openBoard(t *testing.T, s *Session, projectID, boardID int64) {
	t.Helper()
	if err := s.Open(context.Background(), projectID, boardID); err != nil {
		t.Fatalf("Open(%d, %d): %v", projectID, boardID, err)
	}
}
