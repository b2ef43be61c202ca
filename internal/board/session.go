package board

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"scrumboard/internal/models"
)

// State is the lifecycle of one board session.
type State string

const (
	StateUninitialized State = "UNINITIALIZED"
	StateLoading       State = "LOADING"
	StateReady         State = "READY"
	StateMutating      State = "MUTATING"
	StateErrorReverted State = "ERROR_REVERTED"
)

// Options configures a Session. Zero values are usable.
type Options struct {
	Logger *slog.Logger
	Policy SelectionPolicy
	Cache  *LoadCache
	Now    func() time.Time
}

// Snapshot is a consistent read of a session. Slices are shared with the
// session's copy-on-write state and must be treated as read-only.
type Snapshot struct {
	State           State                `json:"state"`
	ProjectID       int64                `json:"project_id"`
	Board           *models.Board        `json:"board"`
	Columns         []models.BoardColumn `json:"columns"`
	Sprints         []models.Sprint      `json:"sprints"`
	SprintSelection string               `json:"sprint_selection"`
	Filters         models.FilterState   `json:"filters"`
	Search          string               `json:"search"`
	GroupBy         models.GroupBy       `json:"group_by"`
	Issues          []models.Issue       `json:"-"`
	Visible         []models.Issue       `json:"visible"`
	Buckets         []Bucket             `json:"buckets"`
	LoadingIssues   bool                 `json:"loading_issues"`
	LoadingSprints  bool                 `json:"loading_sprints"`
}

// Session owns the canonical issue, sprint and column state of one board
// and derives the visible list and column buckets from it. It is the only
// writer of that state; every write replaces whole slices so a reader
// never sees a half-applied change.
type Session struct {
	transport Transport
	logger    *slog.Logger
	policy    SelectionPolicy
	cache     *LoadCache
	now       func() time.Time

	mu             sync.Mutex
	gen            uint64
	state          State
	projectID      int64
	board          *models.Board
	columns        []models.BoardColumn
	issues         []models.Issue
	issuesLoaded   bool
	issuesEpoch    uint64
	sprints        []models.Sprint
	sprintsEpoch   uint64
	selection      string
	filters        models.FilterState
	search         string
	groupBy        models.GroupBy
	loadingIssues  bool
	loadingSprints bool
	pending        int

	visible      []models.Issue
	buckets      []Bucket
	visibleDirty bool
	bucketsDirty bool

	subs    map[int]func(Snapshot)
	nextSub int
}

// NewSession creates an uninitialized session backed by transport.
func NewSession(transport Transport, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Cache == nil {
		opts.Cache = NewLoadCache(0)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Session{
		transport:    transport,
		logger:       opts.Logger,
		policy:       opts.Policy,
		cache:        opts.Cache,
		now:          opts.Now,
		state:        StateUninitialized,
		groupBy:      models.GroupNone,
		issues:       []models.Issue{},
		sprints:      []models.Sprint{},
		visibleDirty: true,
		bucketsDirty: true,
		subs:         make(map[int]func(Snapshot)),
	}
}

// Subscribe registers fn to receive a snapshot after every state change.
// Callbacks run outside the session lock, in the goroutine that made the
// change. The returned func removes the subscription.
func (s *Session) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Snapshot returns the current state with derived views brought up to date.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Issue returns the canonical record for id.
func (s *Session) Issue(id string) (models.Issue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexLocked(id); idx >= 0 {
		return s.issues[idx], true
	}
	return models.Issue{}, false
}

// Open navigates the session to a board. A boardID of 0 opens the
// project's default board. The previous board's state is discarded;
// issues and sprints are kept only when the project stays the same and
// the cache still considers them loaded. Issues and sprints load
// concurrently and fetch failures leave their slice empty.
func (s *Session) Open(ctx context.Context, projectID, boardID int64) error {
	gen := s.reset(projectID)

	b, err := s.fetchBoard(ctx, projectID, boardID)
	if err != nil {
		s.update(func() bool {
			if s.gen != gen {
				return false
			}
			s.state = StateReady
			return true
		})
		s.logger.Error("board load failed",
			slog.Int64("project", projectID),
			slog.Int64("board", boardID),
			slog.String("error", err.Error()))
		return err
	}

	applied := false
	s.update(func() bool {
		if s.gen != gen {
			return false
		}
		s.applyBoardLocked(b)
		s.state = StateLoading
		applied = true
		return true
	})
	if !applied {
		return ErrStale
	}

	s.loadAll(ctx, gen, projectID, false)
	return nil
}

// OpenBoard navigates to boardID within whichever project owns it.
func (s *Session) OpenBoard(ctx context.Context, boardID int64) error {
	b, err := s.transport.FetchBoardByID(ctx, boardID)
	if err != nil {
		return fmt.Errorf("fetch board %d: %w", boardID, err)
	}
	return s.Open(ctx, b.ProjectID, boardID)
}

// Reload refetches issues and sprints for the current board, ignoring the cache.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	if s.board == nil {
		s.mu.Unlock()
		return ErrNoBoard
	}
	gen, projectID := s.gen, s.projectID
	s.mu.Unlock()

	s.cache.Invalidate(projectID)
	s.loadAll(ctx, gen, projectID, true)
	return nil
}

// Refresh loads issues and sprints for the current board, fetching only
// the slices the cache no longer vouches for. Sessions sharing a cache
// pick up each other's writes this way.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.board == nil {
		s.mu.Unlock()
		return ErrNoBoard
	}
	gen, projectID := s.gen, s.projectID
	s.mu.Unlock()

	s.loadAll(ctx, gen, projectID, false)
	return nil
}

// LoadIssues fetches the project's issues unless they are already loaded.
func (s *Session) LoadIssues(ctx context.Context) {
	s.mu.Lock()
	gen, projectID := s.gen, s.projectID
	s.mu.Unlock()
	s.loadIssues(ctx, gen, projectID, false)
}

// LoadSprints fetches the project's sprints unless they are already loaded.
func (s *Session) LoadSprints(ctx context.Context) {
	s.mu.Lock()
	gen, projectID := s.gen, s.projectID
	s.mu.Unlock()
	s.loadSprints(ctx, gen, projectID, false)
}

func (s *Session) reset(projectID int64) uint64 {
	var gen uint64
	s.update(func() bool {
		s.gen++
		gen = s.gen
		if projectID != s.projectID {
			s.issues = []models.Issue{}
			s.issuesLoaded = false
			s.sprints = []models.Sprint{}
			s.filters = models.FilterState{}
			s.search = ""
			s.groupBy = models.GroupNone
		}
		s.projectID = projectID
		s.board = nil
		s.columns = nil
		s.selection = ""
		s.loadingIssues = false
		s.loadingSprints = false
		s.pending = 0
		s.state = StateUninitialized
		s.markVisibleLocked()
		return true
	})
	return gen
}

func (s *Session) fetchBoard(ctx context.Context, projectID, boardID int64) (models.Board, error) {
	if boardID != 0 {
		b, err := s.transport.FetchBoardByID(ctx, boardID)
		if err != nil {
			return models.Board{}, fmt.Errorf("fetch board %d: %w", boardID, err)
		}
		if b.ProjectID != 0 && b.ProjectID != projectID {
			return models.Board{}, fmt.Errorf("board %d belongs to project %d, not %d", boardID, b.ProjectID, projectID)
		}
		return b, nil
	}

	boards, err := s.transport.FetchBoardsByProject(ctx, projectID)
	if err != nil {
		return models.Board{}, fmt.Errorf("fetch boards for project %d: %w", projectID, err)
	}
	if len(boards) == 0 {
		return models.Board{}, fmt.Errorf("project %d: %w", projectID, ErrNoBoard)
	}
	for _, b := range boards {
		if b.IsDefault {
			return b, nil
		}
	}
	return boards[0], nil
}

func (s *Session) applyBoardLocked(b models.Board) {
	b.Columns = Renumber(b.Columns)
	s.board = &b
	s.columns = b.Columns
	s.resolveSelectionLocked()
	s.markVisibleLocked()
}

func (s *Session) loadAll(ctx context.Context, gen uint64, projectID int64, force bool) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.loadIssues(ctx, gen, projectID, force)
	}()
	go func() {
		defer wg.Done()
		s.loadSprints(ctx, gen, projectID, force)
	}()
	wg.Wait()
}

func (s *Session) loadIssues(ctx context.Context, gen uint64, projectID int64, force bool) {
	skip := false
	epoch := s.cache.Epoch(projectID)
	s.update(func() bool {
		if s.gen != gen {
			skip = true
			return false
		}
		if !force && s.issuesLoaded && len(s.issues) > 0 && s.issuesEpoch == epoch && s.cache.Fresh(projectID, SliceIssues) {
			skip = true
			s.settleLocked()
			return true
		}
		s.loadingIssues = true
		s.settleLocked()
		return true
	})
	if skip {
		return
	}

	issues, err := s.transport.FetchIssuesByProject(ctx, projectID)
	s.cache.Record(projectID, SliceIssues, len(issues), err)
	if err != nil {
		s.logger.Error("issue load failed", slog.Int64("project", projectID), slog.String("error", err.Error()))
		issues = nil
	}

	s.update(func() bool {
		if s.gen != gen || s.projectID != projectID {
			s.logger.Debug("discarding stale issue load", slog.Int64("project", projectID))
			return false
		}
		s.issues = cloneIssues(issues)
		s.issuesLoaded = true
		s.issuesEpoch = epoch
		s.loadingIssues = false
		s.settleLocked()
		s.markVisibleLocked()
		return true
	})
}

func (s *Session) loadSprints(ctx context.Context, gen uint64, projectID int64, force bool) {
	skip := false
	epoch := s.cache.Epoch(projectID)
	s.update(func() bool {
		if s.gen != gen {
			skip = true
			return false
		}
		if !force && len(s.sprints) > 0 && s.sprintsEpoch == epoch && s.cache.Fresh(projectID, SliceSprints) {
			skip = true
			s.settleLocked()
			return true
		}
		s.loadingSprints = true
		s.settleLocked()
		return true
	})
	if skip {
		return
	}

	sprints, err := s.transport.FetchSprintsByProject(ctx, projectID)
	s.cache.Record(projectID, SliceSprints, len(sprints), err)
	if err != nil {
		s.logger.Error("sprint load failed", slog.Int64("project", projectID), slog.String("error", err.Error()))
		sprints = nil
	}

	s.update(func() bool {
		if s.gen != gen || s.projectID != projectID {
			s.logger.Debug("discarding stale sprint load", slog.Int64("project", projectID))
			return false
		}
		s.sprints = slices.Clone(sprints)
		if s.sprints == nil {
			s.sprints = []models.Sprint{}
		}
		s.sprintsEpoch = epoch
		if !s.issuesLoaded {
			s.seedFromSprintsLocked()
		}
		s.loadingSprints = false
		s.resolveSelectionLocked()
		s.settleLocked()
		s.markVisibleLocked()
		return true
	})
}

// seedFromSprintsLocked fills the issue store from issues embedded in
// sprints. The issue load replaces them once it lands.
func (s *Session) seedFromSprintsLocked() {
	seen := make(map[string]struct{}, len(s.issues))
	out := slices.Clone(s.issues)
	for _, issue := range out {
		seen[issue.ID] = struct{}{}
	}
	for _, sp := range s.sprints {
		for _, issue := range sp.Issues {
			if _, ok := seen[issue.ID]; ok {
				continue
			}
			seen[issue.ID] = struct{}{}
			issue = issue.Clone()
			if issue.SprintID == "" {
				issue.SprintID = sp.ID
			}
			out = append(out, issue)
		}
	}
	s.issues = out
}

// resolveSelectionLocked runs on both board and sprint list changes.
func (s *Session) resolveSelectionLocked() {
	next := ResolveSprintSelection(s.board, s.sprints, s.selection, s.policy)
	if next != s.selection {
		s.logger.Debug("sprint selection resolved",
			slog.String("from", s.selection),
			slog.String("to", next))
		s.selection = next
		s.markVisibleLocked()
	}
}

// SelectSprint narrows a team board to one sprint. An empty id clears the
// narrowing. Unknown ids are ignored and reported as false.
func (s *Session) SelectSprint(id string) bool {
	ok := false
	s.update(func() bool {
		if id != "" && !slices.ContainsFunc(s.sprints, func(sp models.Sprint) bool { return sp.ID == id }) {
			s.logger.Warn("select unknown sprint", slog.String("sprint", id))
			return false
		}
		ok = true
		if s.selection == id {
			return false
		}
		s.selection = id
		s.markVisibleLocked()
		return true
	})
	return ok
}

// SetSearch replaces the search text.
func (s *Session) SetSearch(text string) {
	s.update(func() bool {
		if s.search == text {
			return false
		}
		s.search = text
		s.markVisibleLocked()
		return true
	})
}

// SetFilters replaces every filter dimension.
func (s *Session) SetFilters(f models.FilterState) {
	s.update(func() bool {
		s.filters = f.Clone()
		s.markVisibleLocked()
		return true
	})
}

// MergeFilters overlays the dimensions present in f.
func (s *Session) MergeFilters(f models.FilterState) {
	s.update(func() bool {
		s.filters = s.filters.Merge(f)
		s.markVisibleLocked()
		return true
	})
}

// ClearFilters removes every filter constraint.
func (s *Session) ClearFilters() {
	s.SetFilters(models.FilterState{})
}

// SetGroupBy changes how issues are arranged inside columns.
func (s *Session) SetGroupBy(g models.GroupBy) {
	s.update(func() bool {
		if s.groupBy == g {
			return false
		}
		s.groupBy = g
		s.bucketsDirty = true
		return true
	})
}

// update runs fn under the lock and, when fn reports a change, notifies
// subscribers after the lock is released.
func (s *Session) update(fn func() bool) {
	s.mu.Lock()
	changed := fn()
	var (
		snap Snapshot
		subs []func(Snapshot)
	)
	if changed && len(s.subs) > 0 {
		snap = s.snapshotLocked()
		for _, sub := range s.subs {
			subs = append(subs, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(snap)
	}
}

func (s *Session) snapshotLocked() Snapshot {
	s.deriveLocked()
	var b *models.Board
	if s.board != nil {
		cp := *s.board
		b = &cp
	}
	return Snapshot{
		State:           s.state,
		ProjectID:       s.projectID,
		Board:           b,
		Columns:         s.columns,
		Sprints:         s.sprints,
		SprintSelection: s.selection,
		Filters:         s.filters,
		Search:          s.search,
		GroupBy:         s.groupBy,
		Issues:          s.issues,
		Visible:         s.visible,
		Buckets:         s.buckets,
		LoadingIssues:   s.loadingIssues,
		LoadingSprints:  s.loadingSprints,
	}
}

// deriveLocked recomputes only the views whose inputs changed.
func (s *Session) deriveLocked() {
	if s.visibleDirty {
		s.visible = ComputeVisible(s.issues, s.board, s.sprints, s.selection, s.filters, s.search)
		s.visibleDirty = false
		s.bucketsDirty = true
	}
	if s.bucketsDirty {
		s.buckets = ComputeBuckets(s.visible, s.columns, s.groupBy)
		s.bucketsDirty = false
	}
}

func (s *Session) markVisibleLocked() {
	s.visibleDirty = true
	s.bucketsDirty = true
}

// settleLocked moves the session to LOADING or READY once nothing is
// pending. ERROR_REVERTED is kept until the next mutation or navigation.
func (s *Session) settleLocked() {
	if s.board == nil || s.pending > 0 {
		return
	}
	switch {
	case s.loadingIssues || s.loadingSprints:
		s.state = StateLoading
	case s.state != StateErrorReverted:
		s.state = StateReady
	}
}

func (s *Session) indexLocked(id string) int {
	return slices.IndexFunc(s.issues, func(i models.Issue) bool { return i.ID == id })
}

func cloneIssues(in []models.Issue) []models.Issue {
	out := make([]models.Issue, len(in))
	for i, issue := range in {
		out[i] = issue.Clone()
		if out[i].Labels == nil {
			out[i].Labels = []string{}
		}
	}
	return out
}
