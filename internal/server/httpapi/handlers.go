package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dkazakov/seqtrack/internal/common"
	"github.com/dkazakov/seqtrack/internal/server/auth"
	"github.com/dkazakov/seqtrack/internal/server/models"
)

const minPasswordLen = 8

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

type userResponse struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	EmailVerified bool      `json:"emailVerified"`
	Role          string    `json:"role"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type sessionResponse struct {
	ID             string    `json:"id"`
	LastVerifiedAt time.Time `json:"lastVerifiedAt"`
	Fresh          bool      `json:"fresh"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		EmailVerified: u.EmailVerified,
		Role:          string(u.Role),
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !strings.Contains(req.Email, "@") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email"})
		return
	}
	if len(req.Password) < minPasswordLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password too short"})
		return
	}

	res, err := s.users.Register(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		s.log.Error(c.Request.Context(), "registration failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
		return
	}

	s.setSessionCookies(c, res.Token, res.JWT)
	c.JSON(http.StatusCreated, gin.H{"user": toUserResponse(res.User)})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	res, err := s.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.log.Error(c.Request.Context(), "login failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
		return
	}
	if res == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	s.setSessionCookies(c, res.Token, res.JWT)
	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(res.User)})
}

// handleLogout deletes the server-side session record and expires both
// cookies. Always succeeds from the client's point of view.
func (s *Server) handleLogout(c *gin.Context) {
	if session := currentSession(c); session != nil {
		if err := s.sessions.InvalidateSession(c.Request.Context(), session.ID); err != nil {
			s.log.Error(c.Request.Context(), "logout failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
			return
		}
	}
	s.clearSessionCookies(c)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleLogoutAll revokes every session of the authenticated user.
func (s *Server) handleLogoutAll(c *gin.Context) {
	user := currentUser(c)
	if err := s.sessions.InvalidateUserSessions(c.Request.Context(), user.ID); err != nil {
		s.log.Error(c.Request.Context(), "logout-all failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
		return
	}
	s.clearSessionCookies(c)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleMe(c *gin.Context) {
	user := currentUser(c)
	session := currentSession(c)
	c.JSON(http.StatusOK, gin.H{
		"user": toUserResponse(user),
		"session": sessionResponse{
			ID:             session.ID,
			LastVerifiedAt: session.LastVerifiedAt,
			Fresh:          session.Fresh,
		},
	})
}

// handleChangePassword swaps the password, which revokes every session, then
// logs the user straight back in so the client keeps a working credential.
func (s *Server) handleChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if len(req.NewPassword) < minPasswordLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password too short"})
		return
	}

	user := currentUser(c)
	if err := s.users.ChangePassword(c.Request.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			c.JSON(http.StatusForbidden, gin.H{"error": "current password incorrect"})
			return
		}
		s.log.Error(c.Request.Context(), "password change failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
		return
	}

	res, err := s.users.Login(c.Request.Context(), user.Email, req.NewPassword)
	if err != nil || res == nil {
		// The password did change; the client just has to log in manually.
		s.clearSessionCookies(c)
		c.JSON(http.StatusOK, gin.H{"status": "password changed"})
		return
	}

	s.setSessionCookies(c, res.Token, res.JWT)
	c.JSON(http.StatusOK, gin.H{"status": "password changed", "user": toUserResponse(res.User)})
}

// handleGetUser returns a user profile. Owners see themselves; lab managers
// and admins see anyone.
func (s *Server) handleGetUser(c *gin.Context) {
	id := c.Param("id")
	if !auth.CanAccessResource(currentUser(c), id) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
		return
	}

	user, err := s.users.GetUser(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		s.log.Error(c.Request.Context(), "user lookup failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}

// handleSessionCleanup runs the inactive-session sweep on demand instead of
// waiting for the probabilistic trigger.
func (s *Server) handleSessionCleanup(c *gin.Context) {
	n, err := s.sessions.CleanupInactiveSessions(c.Request.Context())
	if err != nil {
		s.log.Error(c.Request.Context(), "session cleanup failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": n})
}

func (s *Server) handleHealthz(c *gin.Context) {
	if err := s.db.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
