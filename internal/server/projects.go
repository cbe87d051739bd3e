package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"crewboard/internal/models"
	"crewboard/internal/storage"
)

type projectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	AssigneeIDs []uint `json:"assignee_ids"`
}

// visibleProject loads a project the caller is assigned to. Projects
// the caller has no part in are reported as not found.
func (s *Server) visibleProject(c *gin.Context, id uint) (*models.Project, bool) {
	project, err := s.store.GetProject(c.Request.Context(), id)
	if err != nil {
		s.respondStoreError(c, err)
		return nil, false
	}
	caller := currentWorker(c)
	ok, err := s.store.IsAssignee(c.Request.Context(), project.ID, caller.ID)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return nil, false
	}
	if !ok {
		s.respondError(c, http.StatusNotFound, fmt.Errorf("project: %w", storage.ErrNotFound))
		return nil, false
	}
	return project, true
}

// handleListProjects returns the caller's projects with progress
// annotations, optionally filtered by the active flag.
func (s *Server) handleListProjects(c *gin.Context) {
	caller := currentWorker(c)
	active := parseTernaryBool(c, "is_active")

	projects, err := s.store.ListProjects(c.Request.Context(), caller.ID, active)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"projects": projects})
}

// handleProjectDetail returns a project with the caller's tasks in it
// and whether the project can be deleted.
func (s *Server) handleProjectDetail(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	project, ok := s.visibleProject(c, id)
	if !ok {
		return
	}

	caller := currentWorker(c)
	tasks, err := s.store.ProjectTasks(c.Request.Context(), project.ID, caller.ID)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	canDelete, err := s.store.CanDeleteProject(c.Request.Context(), project.ID)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}

	var completed int64
	for _, t := range tasks {
		if t.IsCompleted {
			completed++
		}
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"project":        project,
		"tasks":          tasks,
		"progress":       models.Progress(completed, int64(len(tasks))),
		"can_be_deleted": canDelete,
	})
}

// handleCreateProject creates a project authored by the caller. The
// caller joins the assignees automatically.
func (s *Server) handleCreateProject(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	caller := currentWorker(c)
	project, err := s.store.CreateProject(c.Request.Context(), caller.ID, storage.ProjectInput{
		Name:        req.Name,
		Description: req.Description,
		AssigneeIDs: req.AssigneeIDs,
	})
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"project": project})
}

// handleUpdateProject edits a project and replaces its assignee set.
func (s *Server) handleUpdateProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if _, ok := s.visibleProject(c, id); !ok {
		return
	}

	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	project, err := s.store.UpdateProject(c.Request.Context(), id, storage.ProjectInput{
		Name:        req.Name,
		Description: req.Description,
		AssigneeIDs: req.AssigneeIDs,
	})
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

// handleDeleteProject removes a project once it has no tasks left.
func (s *Server) handleDeleteProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if _, ok := s.visibleProject(c, id); !ok {
		return
	}
	if err := s.store.DeleteProject(c.Request.Context(), id); err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleToggleProjectActive flips the active flag and sends the caller
// back to the detail page.
func (s *Server) handleToggleProjectActive(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if _, ok := s.visibleProject(c, id); !ok {
		return
	}
	if _, err := s.store.ToggleProjectActive(c.Request.Context(), id); err != nil {
		s.respondStoreError(c, err)
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/projects/%d/", id))
}
