package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dkazakov/seqtrack/internal/common"
	"github.com/dkazakov/seqtrack/internal/dbx"
	"github.com/dkazakov/seqtrack/internal/logging"
	"github.com/dkazakov/seqtrack/internal/server/auth"
	"github.com/dkazakov/seqtrack/internal/server/config"
	"github.com/dkazakov/seqtrack/internal/server/models"
	"github.com/dkazakov/seqtrack/internal/server/repositories/sessions"
	"github.com/dkazakov/seqtrack/internal/server/repositories/users"
)

// --- in-memory fakes shared by the service tests ---

type memUsersRepo struct {
	mu     sync.Mutex
	byID   map[string]*models.UserWithPassword
	failAll error
}

func newMemUsersRepo() *memUsersRepo {
	return &memUsersRepo{byID: make(map[string]*models.UserWithPassword)}
}

func (f *memUsersRepo) Create(ctx context.Context, user *models.User, passwordHash string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	for _, u := range f.byID {
		if u.Email == user.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	f.byID[user.ID] = &models.UserWithPassword{User: *user, PasswordHash: passwordHash}
	return user, nil
}

func (f *memUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := u.User
	return &cp, nil
}

func (f *memUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	for _, u := range f.byID {
		if u.Email == email {
			cp := u.User
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *memUsersRepo) GetByEmailWithPassword(ctx context.Context, email string) (*models.UserWithPassword, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *memUsersRepo) UpdatePasswordHash(ctx context.Context, id string, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	if u, ok := f.byID[id]; ok {
		u.PasswordHash = passwordHash
		u.UpdatedAt = time.Now()
	}
	return nil
}

func (f *memUsersRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
	return nil
}

func (f *memUsersRepo) hash(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		return u.PasswordHash
	}
	return ""
}

type memSessionsRepo struct {
	mu        sync.Mutex
	byID      map[string]*models.Session
	failAll   error
	failSweep error
}

func newMemSessionsRepo() *memSessionsRepo {
	return &memSessionsRepo{byID: make(map[string]*models.Session)}
}

func (f *memSessionsRepo) Create(ctx context.Context, session *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	cp := *session
	f.byID[session.ID] = &cp
	return nil
}

func (f *memSessionsRepo) GetByID(ctx context.Context, id string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	s, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *s
	// The store never persists freshness; a fetched row is never fresh.
	cp.Fresh = false
	return &cp, nil
}

func (f *memSessionsRepo) UpdateLastVerified(ctx context.Context, id string, lastVerifiedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	if s, ok := f.byID[id]; ok {
		s.LastVerifiedAt = lastVerifiedAt
	}
	return nil
}

func (f *memSessionsRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	delete(f.byID, id)
	return nil
}

func (f *memSessionsRepo) DeleteByUser(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	for id, s := range f.byID {
		if s.UserID == userID {
			delete(f.byID, id)
		}
	}
	return nil
}

func (f *memSessionsRepo) DeleteInactive(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return 0, f.failAll
	}
	if f.failSweep != nil {
		return 0, f.failSweep
	}
	var n int64
	for id, s := range f.byID {
		if s.LastVerifiedAt.Before(cutoff) {
			delete(f.byID, id)
			n++
		}
	}
	return n, nil
}

func (f *memSessionsRepo) has(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byID[id]
	return ok
}

func (f *memSessionsRepo) setLastVerified(id string, t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.byID[id]; ok {
		s.LastVerifiedAt = t
	}
}

func (f *memSessionsRepo) lastVerified(id string) time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.byID[id]; ok {
		return s.LastVerifiedAt
	}
	return time.Time{}
}

type fakeRepoManager struct {
	users    users.Repository
	sessions sessions.Repository
}

func (f *fakeRepoManager) Users(dbx.DBTX) users.Repository       { return f.users }
func (f *fakeRepoManager) Sessions(dbx.DBTX) sessions.Repository { return f.sessions }
func (f *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

// newWeakHash hashes password with parameters below what the test env uses,
// so the service sees it as due for an upgrade.
func newWeakHash(t *testing.T, password string) string {
	t.Helper()
	weak := auth.NewPasswordHasher(auth.PasswordParams{MemoryKiB: 4 * 1024, Time: 1, Parallelism: 1})
	hash, err := weak.Hash(password)
	if err != nil {
		t.Fatalf("weak hash error: %v", err)
	}
	return hash
}

// --- construction helpers ---

// testEnv bundles everything the service tests need.
type testEnv struct {
	db       *sql.DB
	mock     sqlmock.Sqlmock
	users    *memUsersRepo
	sessions *memSessionsRepo
	cfg      *config.Config
	manager  *SessionManager
	service  *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{}
	cfg.LoadDefaults()
	// Cheap argon2 parameters keep the tests fast.
	cfg.PasswordMemoryKiB = 8 * 1024
	cfg.PasswordTime = 1

	usersRepo := newMemUsersRepo()
	sessionsRepo := newMemSessionsRepo()
	rm := &fakeRepoManager{users: usersRepo, sessions: sessionsRepo}

	jwtMgr, err := auth.NewSessionJWT([]byte("test-key"), cfg.SessionJWTTTL, cfg.SessionJWTIssuer, cfg.SessionJWTAudience, logging.NopLogger{})
	if err != nil {
		t.Fatalf("NewSessionJWT error: %v", err)
	}

	manager := NewSessionManager(db, rm, jwtMgr, cfg, logging.NopLogger{})
	// Background sweeps fire only when a test opts in.
	manager.randFloat = func() float64 { return 1 }

	hasher := auth.NewPasswordHasher(auth.PasswordParams{
		MemoryKiB: cfg.PasswordMemoryKiB, Time: cfg.PasswordTime, Parallelism: cfg.PasswordParallelism,
	})
	service, err := NewUserService(db, rm, hasher, manager, logging.NopLogger{})
	if err != nil {
		t.Fatalf("NewUserService error: %v", err)
	}

	return &testEnv{
		db:       db,
		mock:     mock,
		users:    usersRepo,
		sessions: sessionsRepo,
		cfg:      cfg,
		manager:  manager,
		service:  service,
	}
}
