package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleListTaskTypes returns all task types.
func (s *Server) handleListTaskTypes(c *gin.Context) {
	types, err := s.store.ListTaskTypes(c.Request.Context())
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task_types": types})
}

// handleCreateTaskType adds a new task type.
func (s *Server) handleCreateTaskType(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	taskType, err := s.store.CreateTaskType(c.Request.Context(), req.Name)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"task_type": taskType})
}

// handleUpdateTaskType renames an existing task type.
func (s *Server) handleUpdateTaskType(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	taskType, err := s.store.UpdateTaskType(c.Request.Context(), id, req.Name)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task_type": taskType})
}

// handleDeleteTaskType removes a task type; its tasks fall back to the
// default type.
func (s *Server) handleDeleteTaskType(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteTaskType(c.Request.Context(), id); err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}
