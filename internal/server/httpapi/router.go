package httpapi

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/dkazakov/seqtrack/internal/server/models"
)

// Router assembles the gin engine: recovery, CORS with a credentialed origin
// allowlist, session resolution on every request, and the auth routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	allowed := map[string]bool{}
	for _, origin := range strings.Split(s.cfg.AllowedOrigins, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			allowed[origin] = true
		}
	}
	r.Use(cors.New(cors.Config{
		AllowOriginFunc:  func(origin string) bool { return allowed[origin] },
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", s.handleHealthz)

	authGroup := r.Group("/auth")
	authGroup.Use(s.SessionAuth())
	{
		authGroup.POST("/register", s.handleRegister)
		authGroup.POST("/login", s.handleLogin)
		authGroup.POST("/logout", s.handleLogout)

		authed := authGroup.Group("")
		authed.Use(s.RequireUser())
		{
			authed.GET("/me", s.handleMe)
			authed.POST("/logout-all", s.handleLogoutAll)
			authed.POST("/password", s.handleChangePassword)
		}
	}

	usersGroup := r.Group("/users")
	usersGroup.Use(s.SessionAuth(), s.RequireUser())
	{
		usersGroup.GET("/:id", s.handleGetUser)
	}

	adminGroup := r.Group("/admin")
	adminGroup.Use(s.SessionAuth(), s.RequireUser(), s.RequireRole(models.RoleAdmin))
	{
		adminGroup.POST("/sessions/cleanup", s.handleSessionCleanup)
	}

	return r
}
