package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"scrumboard/internal/models"
)

type projectRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type boardRequest struct {
	Name           string               `json:"name"`
	Type           models.BoardType     `json:"type"`
	TeamID         models.TeamID        `json:"team_id"`
	Columns        []models.BoardColumn `json:"columns"`
	IncludeBacklog bool                 `json:"include_backlog"`
	IncludeDone    bool                 `json:"include_done"`
	IsDefault      bool                 `json:"is_default"`
}

type sprintRequest struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	StartDate time.Time           `json:"start_date"`
	EndDate   time.Time           `json:"end_date"`
	Status    models.SprintStatus `json:"status"`
	TeamID    models.TeamID       `json:"team_id"`
}

// handleListProjects returns all available projects.
func (s *Server) handleListProjects(c *gin.Context) {
	projects, err := s.store.ListProjects(c.Request.Context())
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"projects": projects})
}

// handleCreateProject creates a new project entity.
func (s *Server) handleCreateProject(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	project, err := s.store.CreateProject(c.Request.Context(), req.Name, req.Color)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"project": project})
}

// handleUpdateProject renames or recolors a project.
func (s *Server) handleUpdateProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	project, err := s.store.UpdateProject(c.Request.Context(), id, req.Name, req.Color)
	if err != nil {
		s.respondError(c, statusFor(err), err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

// handleDeleteProject removes a project with its boards, sprints and
// issues, and drops any open sessions on its boards.
func (s *Server) handleDeleteProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	boards, err := s.store.FetchBoardsByProject(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	if err := s.store.DeleteProject(c.Request.Context(), id); err != nil {
		s.respondError(c, statusFor(err), err)
		return
	}
	for _, b := range boards {
		s.boards.Forget(b.ID)
	}
	s.boards.Cache().Invalidate(id)
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleListBoards returns the boards of a project.
func (s *Server) handleListBoards(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	boards, err := s.store.FetchBoardsByProject(c.Request.Context(), projectID)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"boards": boards})
}

// handleCreateBoard creates a board with its initial columns.
func (s *Server) handleCreateBoard(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req boardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if _, err := s.store.GetProject(c.Request.Context(), projectID); err != nil {
		s.respondError(c, statusFor(err), err)
		return
	}

	created, err := s.store.CreateBoard(c.Request.Context(), models.Board{
		ProjectID:      projectID,
		Name:           req.Name,
		Type:           req.Type,
		TeamID:         req.TeamID,
		Columns:        req.Columns,
		IncludeBacklog: req.IncludeBacklog,
		IncludeDone:    req.IncludeDone,
		IsDefault:      req.IsDefault,
	})
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"board": created})
}

// handleCreateSprint adds a sprint to a project. Open board sessions of
// the project refetch their sprints on their next request.
func (s *Server) handleCreateSprint(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req sprintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	sprint, err := s.store.CreateSprint(c.Request.Context(), models.Sprint{
		ID:        req.ID,
		ProjectID: projectID,
		Name:      req.Name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Status:    req.Status,
		TeamID:    req.TeamID,
	})
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	s.boards.Cache().Invalidate(projectID)
	respondSuccess(c, http.StatusCreated, gin.H{"sprint": sprint})
}
