package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"scrumboard/internal/board"
	"scrumboard/internal/models"
)

type searchRequest struct {
	Search string `json:"search"`
}

type groupByRequest struct {
	GroupBy string `json:"group_by"`
}

type sprintSelectionRequest struct {
	SprintID string `json:"sprint_id"`
}

// handleSnapshot returns the board's current view state.
func (s *Server) handleSnapshot(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	respondSuccess(c, http.StatusOK, sess.Snapshot())
}

// handleReload refetches issues and sprints for the board.
func (s *Server) handleReload(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	if err := sess.Reload(c.Request.Context()); err != nil {
		s.respondError(c, statusFor(err), err)
		return
	}
	respondSuccess(c, http.StatusOK, sess.Snapshot())
}

// handleSetFilters replaces every filter dimension.
func (s *Server) handleSetFilters(c *gin.Context) {
	s.withFilters(c, (*board.Session).SetFilters)
}

// handleMergeFilters overlays the dimensions present in the body.
func (s *Server) handleMergeFilters(c *gin.Context) {
	s.withFilters(c, (*board.Session).MergeFilters)
}

func (s *Server) withFilters(c *gin.Context, apply func(*board.Session, models.FilterState)) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req models.FilterState
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	apply(sess, req)
	respondSuccess(c, http.StatusOK, sess.Snapshot())
}

// handleClearFilters drops every filter constraint.
func (s *Server) handleClearFilters(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	sess.ClearFilters()
	respondSuccess(c, http.StatusOK, sess.Snapshot())
}

// handleSetSearch replaces the search text.
func (s *Server) handleSetSearch(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	sess.SetSearch(req.Search)
	respondSuccess(c, http.StatusOK, sess.Snapshot())
}

// handleSetGroupBy changes how issues are arranged in columns.
func (s *Server) handleSetGroupBy(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req groupByRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	g, err := models.ParseGroupBy(req.GroupBy)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	sess.SetGroupBy(g)
	respondSuccess(c, http.StatusOK, sess.Snapshot())
}

// handleSelectSprint narrows a team board to one sprint.
func (s *Server) handleSelectSprint(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req sprintSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if !sess.SelectSprint(req.SprintID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "sprint not found"})
		return
	}
	respondSuccess(c, http.StatusOK, sess.Snapshot())
}
