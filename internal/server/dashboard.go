package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// handleDashboard splits today's-deadline tasks into the ones the
// caller must do and the ones the caller created.
func (s *Server) handleDashboard(c *gin.Context) {
	caller := currentWorker(c)

	todo, created, err := s.store.DashboardTasks(c.Request.Context(), caller.ID, time.Now())
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"worker":        caller,
		"tasks_to_do":   todo,
		"tasks_created": created,
	})
}
