package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"crewboard/internal/models"
	"crewboard/internal/storage"
)

type taskRequest struct {
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Deadline      time.Time `json:"deadline"`
	TaskTypeID    uint      `json:"task_type_id"`
	ResponsibleID uint      `json:"responsible_id"`
	FollowerIDs   []uint    `json:"follower_ids"`
}

func (r taskRequest) toInput() storage.TaskInput {
	return storage.TaskInput{
		Name:          r.Name,
		Description:   r.Description,
		Deadline:      r.Deadline,
		TaskTypeID:    r.TaskTypeID,
		ResponsibleID: r.ResponsibleID,
		FollowerIDs:   r.FollowerIDs,
	}
}

// visibleTask loads a task the caller follows. Tasks the caller has no
// part in are reported as not found.
func (s *Server) visibleTask(c *gin.Context, id uint) (*models.Task, bool) {
	task, err := s.store.GetTask(c.Request.Context(), id)
	if err != nil {
		s.respondStoreError(c, err)
		return nil, false
	}
	caller := currentWorker(c)
	ok, err := s.store.IsFollower(c.Request.Context(), task.ID, caller.ID)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return nil, false
	}
	if !ok {
		s.respondError(c, http.StatusNotFound, fmt.Errorf("task: %w", storage.ErrNotFound))
		return nil, false
	}
	return task, true
}

// taskFilterFromQuery builds the list filter from query parameters.
// Unknown values are treated as unset.
func taskFilterFromQuery(c *gin.Context) storage.TaskFilter {
	filter := storage.TaskFilter{
		Completed: parseTernaryBool(c, "is_completed"),
		TypeNames: c.QueryArray("task_type"),
	}
	switch role := c.Query("role"); role {
	case storage.RoleAuthor, storage.RoleResponsible:
		filter.Role = role
	}
	return filter
}

// handleListTasks returns the tasks the caller follows, narrowed by
// the completion, type and role filters, together with the caller's
// type filter choices.
func (s *Server) handleListTasks(c *gin.Context) {
	caller := currentWorker(c)

	tasks, err := s.store.ListTasks(c.Request.Context(), caller.ID, taskFilterFromQuery(c))
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	choices, err := s.store.TaskTypeChoices(c.Request.Context(), caller.ID)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"tasks":             tasks,
		"task_type_choices": choices,
	})
}

// handleTaskDetail returns a task with the caller's reactivation
// permission.
func (s *Server) handleTaskDetail(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	task, ok := s.visibleTask(c, id)
	if !ok {
		return
	}

	caller := currentWorker(c)
	respondSuccess(c, http.StatusOK, gin.H{
		"task":                task,
		"user_can_reactivate": task.CanReactivate(caller.ID),
	})
}

// handleNewTaskForm returns the candidate lists for the task creation
// form: the project's assignees (for responsible and followers) and
// the known task types.
func (s *Server) handleNewTaskForm(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	project, ok := s.visibleProject(c, id)
	if !ok {
		return
	}

	types, err := s.store.ListTaskTypes(c.Request.Context())
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"project":    project,
		"assignees":  project.Assignees,
		"task_types": types,
	})
}

// handleCreateTask creates a task in the project, authored by the
// caller. The author and responsible join the followers automatically.
func (s *Server) handleCreateTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if _, ok := s.visibleProject(c, id); !ok {
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	caller := currentWorker(c)
	task, err := s.store.CreateTask(c.Request.Context(), id, caller.ID, req.toInput())
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"task": task})
}

// handleUpdateTask edits a task and replaces its follower set.
func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if _, ok := s.visibleTask(c, id); !ok {
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	task, err := s.store.UpdateTask(c.Request.Context(), id, req.toInput())
	if err != nil {
		s.respondStoreError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleTaskStatusToggle sets the task status from the path, derives
// the completion flag and sends the caller back to the detail page.
func (s *Server) handleTaskStatusToggle(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	status := models.TaskStatus(c.Param("new_status"))
	if !status.Valid() {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("unknown task status %q", status))
		return
	}
	if _, ok := s.visibleTask(c, id); !ok {
		return
	}

	if _, err := s.store.SetTaskStatus(c.Request.Context(), id, status); err != nil {
		s.respondStoreError(c, err)
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/tasks/%d/", id))
}
