package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"scrumboard/internal/board"
	"scrumboard/internal/storage/sqlite"
)

// Server provides HTTP handlers for the Scrum board backend.
type Server struct {
	engine *gin.Engine
	store  *sqlite.Store
	boards *board.Registry
	logger *slog.Logger
}

// New constructs the HTTP server with routes and middleware configured.
func New(store *sqlite.Store, boards *board.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api/healthz"))

	srv := &Server{
		engine: router,
		store:  store,
		boards: boards,
		logger: logger,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)

		projects := api.Group("/projects")
		{
			projects.GET("", s.handleListProjects)
			projects.POST("", s.handleCreateProject)
			projects.PUT(":id", s.handleUpdateProject)
			projects.DELETE(":id", s.handleDeleteProject)
			projects.GET(":id/boards", s.handleListBoards)
			projects.POST(":id/boards", s.handleCreateBoard)
			projects.POST(":id/sprints", s.handleCreateSprint)
		}

		boards := api.Group("/boards/:id")
		{
			boards.GET("", s.handleSnapshot)
			boards.POST("/reload", s.handleReload)

			boards.PUT("/filters", s.handleSetFilters)
			boards.PATCH("/filters", s.handleMergeFilters)
			boards.DELETE("/filters", s.handleClearFilters)
			boards.PUT("/search", s.handleSetSearch)
			boards.PUT("/group-by", s.handleSetGroupBy)
			boards.PUT("/sprint", s.handleSelectSprint)

			boards.POST("/columns", s.handleAddColumn)
			boards.PUT("/columns/:columnId/position", s.handleRepositionColumn)
			boards.DELETE("/columns/:columnId", s.handleRemoveColumn)
			boards.POST("/columns/:columnId/reorder", s.handleReorderColumn)

			boards.POST("/issues", s.handleCreateIssue)
			boards.PATCH("/issues/:issueId", s.handleUpdateIssue)
			boards.PUT("/issues/:issueId/status", s.handleSetIssueStatus)
			boards.POST("/issues/:issueId/move", s.handleMoveIssue)
		}
	}

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseID converts a path parameter to int64 with error handling.
func parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identifier"})
		return 0, false
	}
	return id, true
}

// session resolves the board session named by the :id path parameter.
func (s *Server) session(c *gin.Context) (*board.Session, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return nil, false
	}
	sess, err := s.boards.Session(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, statusFor(err), err)
		return nil, false
	}
	return sess, true
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, sqlite.ErrNotFound),
		errors.Is(err, board.ErrUnknownIssue),
		errors.Is(err, board.ErrUnknownColumn),
		errors.Is(err, board.ErrNoBoard):
		return http.StatusNotFound
	case errors.Is(err, board.ErrStale):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// respondError logs the error and returns a JSON payload.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	if err != nil {
		s.logger.Error("request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// respondSuccess wraps a payload in a JSON envelope for consistency.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
