package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mrlokans/library/internal/audit"
	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database"
	auditrepo "github.com/mrlokans/library/internal/database/audit"
	"github.com/mrlokans/library/internal/database/books"
	"github.com/mrlokans/library/internal/database/dbtest"
	"github.com/mrlokans/library/internal/database/lendings"
	notificationrepo "github.com/mrlokans/library/internal/database/notifications"
	"github.com/mrlokans/library/internal/database/readers"
	"github.com/mrlokans/library/internal/database/users"
	"github.com/mrlokans/library/internal/entities"
	"github.com/mrlokans/library/internal/lending"
	"github.com/mrlokans/library/internal/notifications"
	"github.com/mrlokans/library/internal/scheduler"
	"github.com/mrlokans/library/internal/tasks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testOrigin = "http://localhost:5173"

type fakeReminders struct {
	result notifications.BatchResult
	err    error
	calls  int
}

func (f *fakeReminders) Run(ctx context.Context) (notifications.BatchResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeScheduler struct {
	paused bool
}

func (f *fakeScheduler) Status() scheduler.Status {
	return scheduler.Status{Running: true, Paused: f.paused, Schedule: "0 * * * *"}
}

func (f *fakeScheduler) Pause()  { f.paused = true }
func (f *fakeScheduler) Resume() { f.paused = false }

type fakeQueue struct {
	enqueued []backlite.Task
}

func (f *fakeQueue) Enqueue(ts ...backlite.Task) ([]string, error) {
	f.enqueued = append(f.enqueued, ts...)
	return []string{"task-1"}, nil
}

func (f *fakeQueue) Status(ctx context.Context, taskID string) (backlite.TaskStatus, error) {
	return backlite.TaskStatusPending, nil
}

type testEnv struct {
	db             *database.Database
	router         *gin.Engine
	audit          *audit.Service
	books          *books.Repository
	readers        *readers.Repository
	notifications  *notificationrepo.Repository
	reminders      *fakeReminders
	scheduler      *fakeScheduler
	queue          *fakeQueue
	adminToken     string
	librarianToken string
}

func testAuthConfig() config.Auth {
	return config.Auth{
		AccessTokenSecret:  "access-secret-access-secret-0123456789",
		RefreshTokenSecret: "refresh-secret-refresh-secret-0123456789",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    time.Hour,
		BcryptCost:         bcrypt.MinCost,
		MaxLoginAttempts:   5,
		RateLimitWindow:    15 * time.Minute,
		LockoutDuration:    30 * time.Minute,
	}
}

// newTestEnv wires the full router against a migrated temporary database.
func newTestEnv(t *testing.T, mutate ...func(*RouterConfig)) *testEnv {
	t.Helper()

	db := dbtest.New(t)
	auditService := audit.NewService(auditrepo.NewRepository(db.DB), zap.NewNop())
	t.Cleanup(auditService.Wait)

	bookRepo := books.NewRepository(db.DB)
	readerRepo := readers.NewRepository(db.DB)
	lendingService := lending.NewService(bookRepo, readerRepo, lendings.NewRepository(db.DB), auditService, zap.NewNop(), lending.Options{})

	authCfg := testAuthConfig()
	authService := auth.NewService(users.NewRepository(db.DB), auth.NewTokenIssuer(authCfg), authCfg, auditService)
	authController := auth.NewAuthController(authService, authCfg)
	t.Cleanup(authController.Stop)

	env := &testEnv{
		db:            db,
		audit:         auditService,
		books:         bookRepo,
		readers:       readerRepo,
		notifications: notificationrepo.NewRepository(db.DB),
		reminders:     &fakeReminders{},
		scheduler:     &fakeScheduler{},
		queue:         &fakeQueue{},
	}

	cfg := RouterConfig{
		Database:       db,
		Books:          bookRepo,
		Readers:        readerRepo,
		Lending:        lendingService,
		Auditor:        auditService,
		AuditLog:       auditService,
		AuthController: authController,
		AuthMiddleware: auth.NewMiddleware(authService.Tokens()),
		Reminders:      env.reminders,
		Notifications:  env.notifications,
		Scheduler:      env.scheduler,
		TaskQueue:      env.queue,
		TaskRegistry:   tasks.NewRegistry(tasks.RegistryOptions{
			Reminders:                 true,
			NotificationRetentionDays: 180,
			NotificationCooldown:      7 * 24 * time.Hour,
			AuditRetentionDays:        30,
		}),
		ClientOrigin:   testOrigin,
		Version:        "test",
	}
	for _, m := range mutate {
		m(&cfg)
	}
	env.router = NewRouter(cfg)

	env.adminToken = env.createUser(t, authService, "admin@example.com", entities.UserRoleAdmin)
	env.librarianToken = env.createUser(t, authService, "librarian@example.com", entities.UserRoleLibrarian)
	return env
}

func (e *testEnv) createUser(t *testing.T, svc *auth.Service, email string, role entities.UserRole) string {
	t.Helper()
	user, err := svc.CreateUser(context.Background(), "Staff", email, "correct-horse-battery", role)
	require.NoError(t, err)
	token, err := svc.Tokens().IssueAccess(user)
	require.NoError(t, err)
	return token
}

// do sends a JSON request. An empty token sends no Authorization header.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) seedBook(t *testing.T, code string, quantity int) *entities.Book {
	t.Helper()
	book := &entities.Book{Code: code, Title: "Dune", Author: "Frank Herbert", Genre: "SF", Language: "en", Quantity: quantity, Available: true}
	require.NoError(t, e.books.Create(context.Background(), book))
	return book
}

func (e *testEnv) seedReader(t *testing.T, code string) *entities.Reader {
	t.Helper()
	reader := &entities.Reader{Code: code, Name: "Paul Atreides", Email: code + "@example.com", Phone: "555", Address: "Arrakis"}
	require.NoError(t, e.readers.Create(context.Background(), reader))
	return reader
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func messageOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[ErrorResponse](t, w).Message
}
