package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"crewboard/internal/models"
	"crewboard/internal/storage"
)

const (
	loginPath     = "/accounts/login/"
	sessionCookie = "crewboard_session"
	workerCtxKey  = "currentWorker"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// hashPassword derives the stored bcrypt hash for a plain password.
func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// requireAuth resolves the session cookie to a worker and aborts with
// a redirect to the login page when there is none.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(sessionCookie)
		if err != nil || token == "" {
			c.Redirect(http.StatusFound, loginPath)
			c.Abort()
			return
		}
		session, err := s.store.GetSession(c.Request.Context(), token)
		if err != nil {
			c.Redirect(http.StatusFound, loginPath)
			c.Abort()
			return
		}
		// Deactivation revokes access immediately, not at session expiry.
		if !session.Worker.IsActive {
			_ = s.store.DeleteSession(c.Request.Context(), token)
			c.Redirect(http.StatusFound, loginPath)
			c.Abort()
			return
		}
		c.Set(workerCtxKey, session.Worker)
		c.Next()
	}
}

// currentWorker returns the worker resolved by requireAuth.
func currentWorker(c *gin.Context) models.Worker {
	return c.MustGet(workerCtxKey).(models.Worker)
}

// handleLoginPage is the target of the unauthenticated redirect.
func (s *Server) handleLoginPage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"detail": "authentication required"})
}

// handleLogin checks credentials and opens a session.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	worker, err := s.store.GetWorkerByUsername(c.Request.Context(), req.Username)
	if err != nil || !worker.IsActive {
		s.respondError(c, http.StatusUnauthorized, storage.ErrInvalidCredentials)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(worker.PasswordHash), []byte(req.Password)) != nil {
		s.respondError(c, http.StatusUnauthorized, storage.ErrInvalidCredentials)
		return
	}

	session, err := s.store.CreateSession(c.Request.Context(), worker.ID, s.sessionTTL)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}

	c.SetCookie(sessionCookie, session.Token, int(s.sessionTTL.Seconds()), "/", "", false, true)
	respondSuccess(c, http.StatusOK, gin.H{"worker": worker})
}

// handleLogout ends the current session and clears the cookie.
func (s *Server) handleLogout(c *gin.Context) {
	if token, err := c.Cookie(sessionCookie); err == nil && token != "" {
		if err := s.store.DeleteSession(c.Request.Context(), token); err != nil {
			s.respondError(c, http.StatusInternalServerError, err)
			return
		}
	}
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	respondSuccess(c, http.StatusOK, gin.H{"detail": "logged out"})
}
