package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"crewboard/internal/storage"
)

// Server provides the HTTP handlers for the crewboard backend.
type Server struct {
	engine     *gin.Engine
	store      *storage.Store
	logger     *slog.Logger
	staticDir  string
	sessionTTL time.Duration
}

// New constructs the HTTP server with routes and middleware configured.
func New(store *storage.Store, logger *slog.Logger, staticDir string, sessionTTL time.Duration) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if sessionTTL <= 0 {
		sessionTTL = 14 * 24 * time.Hour
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	srv := &Server{
		engine:     router,
		store:      store,
		logger:     logger,
		staticDir:  staticDir,
		sessionTTL: sessionTTL,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires the account, entity and static handlers.
func (s *Server) registerRoutes() {
	s.engine.GET(loginPath, s.handleLoginPage)
	s.engine.POST(loginPath, s.handleLogin)

	auth := s.engine.Group("/", s.requireAuth())
	{
		auth.GET("/", s.handleDashboard)
		auth.POST("/accounts/logout/", s.handleLogout)

		auth.GET("/workers/", s.handleListWorkers)
		auth.GET("/workers/:id/", s.handleWorkerDetail)
		auth.POST("/workers/create/", s.handleCreateWorker)
		auth.POST("/workers/:id/update/", s.handleUpdateWorker)
		auth.POST("/workers/:id/delete/", s.handleDeleteWorker)
		auth.POST("/workers/:id/toggle-is-active/", s.handleToggleWorkerActive)

		auth.GET("/positions/", s.handleListPositions)
		auth.POST("/positions/create/", s.handleCreatePosition)
		auth.POST("/positions/:id/update/", s.handleUpdatePosition)
		auth.POST("/positions/:id/delete/", s.handleDeletePosition)

		auth.GET("/task_types/", s.handleListTaskTypes)
		auth.POST("/task_types/create/", s.handleCreateTaskType)
		auth.POST("/task_types/:id/update/", s.handleUpdateTaskType)
		auth.POST("/task_types/:id/delete/", s.handleDeleteTaskType)

		auth.GET("/projects/", s.handleListProjects)
		auth.GET("/projects/:id/", s.handleProjectDetail)
		auth.POST("/projects/create/", s.handleCreateProject)
		auth.POST("/projects/:id/update/", s.handleUpdateProject)
		auth.POST("/projects/:id/delete/", s.handleDeleteProject)
		auth.POST("/projects/:id/toggle-is-active/", s.handleToggleProjectActive)
		auth.GET("/projects/:id/new_task/", s.handleNewTaskForm)
		auth.POST("/projects/:id/new_task/", s.handleCreateTask)

		auth.GET("/tasks/", s.handleListTasks)
		auth.GET("/tasks/:id/", s.handleTaskDetail)
		auth.POST("/tasks/:id/update/", s.handleUpdateTask)
		auth.POST("/tasks/:id/status-toggle/:new_status/", s.handleTaskStatusToggle)
	}

	s.mountStatic()
}

// parseID converts a path parameter to an entity id with error handling.
func parseID(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identifier"})
		return 0, false
	}
	return uint(id), true
}

// respondError logs the error and returns a JSON payload.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	if err != nil {
		s.logger.Error("request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// respondStoreError maps storage sentinels onto HTTP statuses.
// Everything else from a mutation is treated as a validation failure.
func (s *Server) respondStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.respondError(c, http.StatusNotFound, err)
	case errors.Is(err, storage.ErrProtected):
		s.respondError(c, http.StatusConflict, err)
	default:
		s.respondError(c, http.StatusBadRequest, err)
	}
}

// respondSuccess wraps a payload in a JSON envelope for consistency.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}

// parseTernaryBool reads an optional boolean query parameter. Unset or
// unparsable values mean "no filter".
func parseTernaryBool(c *gin.Context, name string) *bool {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}
