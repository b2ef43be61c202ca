package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"scrumboard/internal/models"
)

type positionRequest struct {
	Position int `json:"position"`
}

type reorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// handleAddColumn inserts a column and shifts the ones after it.
func (s *Server) handleAddColumn(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req models.BoardColumn
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	col, err := sess.AddColumn(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, statusFor(err), err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"column": col, "columns": sess.Snapshot().Columns})
}

// handleRepositionColumn moves a column to another position.
func (s *Server) handleRepositionColumn(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req positionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if err := sess.RepositionColumn(c.Request.Context(), c.Param("columnId"), req.Position); err != nil {
		s.respondError(c, statusFor(err), err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"columns": sess.Snapshot().Columns})
}

// handleRemoveColumn deletes a column and closes the gap.
func (s *Server) handleRemoveColumn(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	if err := sess.RemoveColumn(c.Request.Context(), c.Param("columnId")); err != nil {
		s.respondError(c, statusFor(err), err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"columns": sess.Snapshot().Columns})
}

// handleReorderColumn moves a card within one column.
func (s *Server) handleReorderColumn(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if !sess.ReorderWithinColumn(c.Param("columnId"), req.From, req.To) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot reorder column"})
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"buckets": sess.Snapshot().Buckets})
}
