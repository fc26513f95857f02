package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"github.com/dkazakov/seqtrack/internal/common"
	"github.com/dkazakov/seqtrack/internal/dbx"
	"github.com/dkazakov/seqtrack/internal/logging"
	"github.com/dkazakov/seqtrack/internal/server/auth"
	"github.com/dkazakov/seqtrack/internal/server/config"
	"github.com/dkazakov/seqtrack/internal/server/models"
	"github.com/dkazakov/seqtrack/internal/server/repositories/sessions"
	"github.com/dkazakov/seqtrack/internal/server/repositories/users"
	"github.com/dkazakov/seqtrack/internal/server/services"
)

// In-memory stores, just enough behavior for handler-level tests.

type stubStore struct {
	mu       sync.Mutex
	users    map[string]*models.UserWithPassword
	sessions map[string]*models.Session
	failAll  error
}

func newStubStore() *stubStore {
	return &stubStore{
		users:    make(map[string]*models.UserWithPassword),
		sessions: make(map[string]*models.Session),
	}
}

type stubUsersRepo struct{ st *stubStore }

func (r stubUsersRepo) Create(ctx context.Context, user *models.User, passwordHash string) (*models.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if r.st.failAll != nil {
		return nil, r.st.failAll
	}
	for _, u := range r.st.users {
		if u.Email == user.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.st.users[user.ID] = &models.UserWithPassword{User: *user, PasswordHash: passwordHash}
	return user, nil
}

func (r stubUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if r.st.failAll != nil {
		return nil, r.st.failAll
	}
	u, ok := r.st.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := u.User
	return &cp, nil
}

func (r stubUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if r.st.failAll != nil {
		return nil, r.st.failAll
	}
	for _, u := range r.st.users {
		if u.Email == email {
			cp := u.User
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r stubUsersRepo) GetByEmailWithPassword(ctx context.Context, email string) (*models.UserWithPassword, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if r.st.failAll != nil {
		return nil, r.st.failAll
	}
	for _, u := range r.st.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r stubUsersRepo) UpdatePasswordHash(ctx context.Context, id string, passwordHash string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if u, ok := r.st.users[id]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

func (r stubUsersRepo) Delete(ctx context.Context, id string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	delete(r.st.users, id)
	return nil
}

type stubSessionsRepo struct{ st *stubStore }

func (r stubSessionsRepo) Create(ctx context.Context, session *models.Session) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if r.st.failAll != nil {
		return r.st.failAll
	}
	cp := *session
	r.st.sessions[session.ID] = &cp
	return nil
}

func (r stubSessionsRepo) GetByID(ctx context.Context, id string) (*models.Session, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if r.st.failAll != nil {
		return nil, r.st.failAll
	}
	s, ok := r.st.sessions[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *s
	cp.Fresh = false
	return &cp, nil
}

func (r stubSessionsRepo) UpdateLastVerified(ctx context.Context, id string, lastVerifiedAt time.Time) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if s, ok := r.st.sessions[id]; ok {
		s.LastVerifiedAt = lastVerifiedAt
	}
	return nil
}

func (r stubSessionsRepo) Delete(ctx context.Context, id string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if r.st.failAll != nil {
		return r.st.failAll
	}
	delete(r.st.sessions, id)
	return nil
}

func (r stubSessionsRepo) DeleteByUser(ctx context.Context, userID string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if r.st.failAll != nil {
		return r.st.failAll
	}
	for id, s := range r.st.sessions {
		if s.UserID == userID {
			delete(r.st.sessions, id)
		}
	}
	return nil
}

func (r stubSessionsRepo) DeleteInactive(ctx context.Context, cutoff time.Time) (int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var n int64
	for id, s := range r.st.sessions {
		if s.LastVerifiedAt.Before(cutoff) {
			delete(r.st.sessions, id)
			n++
		}
	}
	return n, nil
}

type stubRepoManager struct{ st *stubStore }

func (m stubRepoManager) Users(dbx.DBTX) users.Repository             { return stubUsersRepo{st: m.st} }
func (m stubRepoManager) Sessions(dbx.DBTX) sessions.Repository       { return stubSessionsRepo{st: m.st} }
func (m stubRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }

// apiEnv is a Server with its router and backing fakes, ready for httptest.
type apiEnv struct {
	store   *stubStore
	mock    sqlmock.Sqlmock
	cfg     *config.Config
	server  *Server
	router  *gin.Engine
	manager *services.SessionManager
	service *services.UserService
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.PasswordMemoryKiB = 8 * 1024
	cfg.PasswordTime = 1

	store := newStubStore()
	rm := stubRepoManager{st: store}

	jwtMgr, err := auth.NewSessionJWT([]byte("test-key"), cfg.SessionJWTTTL, cfg.SessionJWTIssuer, cfg.SessionJWTAudience, logging.NopLogger{})
	if err != nil {
		t.Fatalf("NewSessionJWT error: %v", err)
	}

	manager := services.NewSessionManager(db, rm, jwtMgr, cfg, logging.NopLogger{})
	hasher := auth.NewPasswordHasher(auth.PasswordParams{
		MemoryKiB: cfg.PasswordMemoryKiB, Time: cfg.PasswordTime, Parallelism: cfg.PasswordParallelism,
	})
	service, err := services.NewUserService(db, rm, hasher, manager, logging.NopLogger{})
	if err != nil {
		t.Fatalf("NewUserService error: %v", err)
	}

	server := NewServer(cfg, db, service, manager, logging.NopLogger{})

	return &apiEnv{
		store:   store,
		mock:    mock,
		cfg:     cfg,
		server:  server,
		router:  server.Router(),
		manager: manager,
		service: service,
	}
}

// do runs one request through the router.
func (e *apiEnv) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// cookieByName digs a named cookie out of a response, nil when absent.
func cookieByName(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range w.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

// register creates an account through the API and returns both credential
// cookies.
func (e *apiEnv) register(t *testing.T, email string) (*http.Cookie, *http.Cookie) {
	t.Helper()
	w := e.do(http.MethodPost, "/auth/register",
		`{"email":"`+email+`","password":"Abcdef1!","name":"Test User"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", w.Code, w.Body.String())
	}
	opaque := cookieByName(w, e.cfg.SessionCookieName)
	signed := cookieByName(w, e.cfg.SessionJWTCookieName)
	if opaque == nil || signed == nil {
		t.Fatalf("register did not set both session cookies")
	}
	return opaque, signed
}
