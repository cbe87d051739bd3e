package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"crewboard/internal/storage"
)

type workerCreateRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	PositionID *uint  `json:"position_id"`
}

type workerUpdateRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// handleListWorkers returns the worker directory, active workers only
// unless include_inactive is set.
func (s *Server) handleListWorkers(c *gin.Context) {
	includeInactive := c.Query("include_inactive") == "true"
	workers, err := s.store.ListWorkers(c.Request.Context(), includeInactive)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"workers": workers})
}

// handleWorkerDetail returns a worker together with the open tasks the
// caller delegated to them and whether the record can be deleted.
func (s *Server) handleWorkerDetail(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	worker, err := s.store.GetWorker(c.Request.Context(), id)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}

	caller := currentWorker(c)
	commonTasks, err := s.store.CommonOpenTasks(c.Request.Context(), caller.ID, worker.ID)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	canDelete, err := s.store.CanDeleteWorker(c.Request.Context(), worker.ID)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"worker":                   worker,
		"full_name":                worker.FullName(),
		"common_tasks_in_progress": commonTasks,
		"can_be_deleted":           canDelete,
	})
}

// handleCreateWorker registers a new worker account.
func (s *Server) handleCreateWorker(c *gin.Context) {
	var req workerCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if req.Password == "" {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("password is required"))
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}

	worker, err := s.store.CreateWorker(c.Request.Context(), storage.WorkerInput{
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: hash,
		PositionID:   req.PositionID,
	})
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"worker": worker})
}

// handleUpdateWorker edits the profile fields. The password stays as
// it is.
func (s *Server) handleUpdateWorker(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req workerUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	worker, err := s.store.UpdateWorkerProfile(c.Request.Context(), id, req.FirstName, req.LastName, req.Email)
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"worker": worker})
}

// handleDeleteWorker removes a worker unless projects or tasks still
// reference them.
func (s *Server) handleDeleteWorker(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteWorker(c.Request.Context(), id); err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleToggleWorkerActive flips the active flag and sends the caller
// back to the detail page.
func (s *Server) handleToggleWorkerActive(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if _, err := s.store.ToggleWorkerActive(c.Request.Context(), id); err != nil {
		s.respondStoreError(c, err)
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/workers/%d/", id))
}
