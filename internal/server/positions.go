package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type nameRequest struct {
	Name string `json:"name"`
}

// handleListPositions returns all positions with their worker counts.
func (s *Server) handleListPositions(c *gin.Context) {
	positions, err := s.store.ListPositions(c.Request.Context())
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"positions": positions})
}

// handleCreatePosition adds a new position.
func (s *Server) handleCreatePosition(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	position, err := s.store.CreatePosition(c.Request.Context(), req.Name)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"position": position})
}

// handleUpdatePosition renames an existing position.
func (s *Server) handleUpdatePosition(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	position, err := s.store.UpdatePosition(c.Request.Context(), id, req.Name)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"position": position})
}

// handleDeletePosition removes a position unless workers still hold it.
func (s *Server) handleDeletePosition(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeletePosition(c.Request.Context(), id); err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}
