// Package httpapi exposes the session and account operations over HTTP.
// Credentials travel in two cookies: the opaque session token and the
// short-lived signed token that lets most requests skip the store.
package httpapi

import (
	"database/sql"

	"github.com/dkazakov/seqtrack/internal/logging"
	"github.com/dkazakov/seqtrack/internal/server/config"
	"github.com/dkazakov/seqtrack/internal/server/services"
)

// Server wires the HTTP handlers to the service layer.
type Server struct {
	cfg      *config.Config
	db       *sql.DB
	users    *services.UserService
	sessions *services.SessionManager
	log      logging.Logger
}

func NewServer(cfg *config.Config, db *sql.DB, users *services.UserService, sessions *services.SessionManager, log logging.Logger) *Server {
	return &Server{
		cfg:      cfg,
		db:       db,
		users:    users,
		sessions: sessions,
		log:      log,
	}
}
