package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"scrumboard/internal/board"
	"scrumboard/internal/models"
)

type statusRequest struct {
	StatusID *int64 `json:"status_id"`
}

type moveRequest struct {
	ToColumnID string `json:"to_column_id"`
}

// handleCreateIssue creates an issue on the board.
func (s *Server) handleCreateIssue(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req models.Issue
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("title is required"))
		return
	}

	issue, err := sess.CreateIssue(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, persistStatus(err), err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"issue": issue})
}

// handleUpdateIssue patches issue fields locally and in the backend.
func (s *Server) handleUpdateIssue(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req models.IssuePatch
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("title must not be empty"))
		return
	}

	issue, err := sess.UpdateIssue(c.Request.Context(), c.Param("issueId"), req)
	if err != nil {
		s.respondError(c, persistStatus(err), err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"issue": issue})
}

// handleSetIssueStatus applies an optimistic status change. When the
// backend rejects it the local change stays and the mutation is returned
// so the client can decide whether to roll back.
func (s *Server) handleSetIssueStatus(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if req.StatusID == nil {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("status_id is required"))
		return
	}

	m, err := sess.UpdateIssueStatusOptimistic(c.Request.Context(), c.Param("issueId"), *req.StatusID)
	if err != nil {
		s.logger.Warn("status change not persisted",
			slog.String("issue", c.Param("issueId")),
			slog.String("error", err.Error()))
		c.JSON(persistStatus(err), gin.H{"error": err.Error(), "mutation": m})
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"issue": m.Applied, "mutation": m})
}

// handleMoveIssue handles a card dropped onto another column. A failed
// persist rolls the move back unless the issue changed again meanwhile;
// the response reports which happened.
func (s *Server) handleMoveIssue(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	issue, err := sess.MoveIssue(c.Request.Context(), c.Param("issueId"), req.ToColumnID)
	if err != nil {
		c.JSON(persistStatus(err), gin.H{"error": err.Error(), "issue": issue, "reverted": errors.Is(err, board.ErrReverted)})
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"issue": issue})
}

// persistStatus distinguishes bad references from backend failures.
func persistStatus(err error) int {
	switch {
	case errors.Is(err, board.ErrUnknownIssue),
		errors.Is(err, board.ErrUnknownColumn),
		errors.Is(err, board.ErrNoBoard):
		return http.StatusNotFound
	case errors.Is(err, board.ErrUnmappedColumn):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}
