package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/task-realtime-api/internal/auth"
	"github.com/yukikurage/task-realtime-api/internal/constants"
	"github.com/yukikurage/task-realtime-api/internal/models"
	"github.com/yukikurage/task-realtime-api/internal/realtime"
	"github.com/yukikurage/task-realtime-api/internal/repository"
	"github.com/yukikurage/task-realtime-api/internal/services"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type targetedEvent struct {
	userID string
	event  realtime.Event
}

// recordingPublisher captures events instead of pushing them to sockets.
type recordingPublisher struct {
	mu         sync.Mutex
	broadcasts []realtime.Event
	targeted   []targetedEvent
}

func (p *recordingPublisher) Broadcast(event realtime.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.broadcasts = append(p.broadcasts, event)
}

func (p *recordingPublisher) EmitToUser(userID string, event realtime.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.targeted = append(p.targeted, targetedEvent{userID: userID, event: event})
}

type testEnv struct {
	db        *gorm.DB
	router    *gin.Engine
	tokens    *auth.TokenManager
	publisher *recordingPublisher
	registry  *realtime.Registry
	repos     *repository.Repositories
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})
	require.NoError(t, db.AutoMigrate(models.All()...))

	repos := repository.NewRepositories(db)
	tokens := auth.NewTokenManager("handler-secret", time.Hour)
	publisher := &recordingPublisher{}
	registry := realtime.NewRegistry()

	notificationService := services.NewNotificationService(repos.Notifications)
	taskService := services.NewTaskService(repos, notificationService)
	authService := services.NewAuthService(repos.Users, tokens, bcrypt.MinCost)

	router := gin.New()
	router.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte("secret"))))
	RegisterRoutes(router, Handlers{
		Auth:          NewAuthHandler(authService, registry),
		Tasks:         NewTaskHandler(taskService, publisher),
		Notifications: NewNotificationHandler(notificationService),
		Health:        NewHealthHandler(db),
	}, tokens)

	return &testEnv{
		db:        db,
		router:    router,
		tokens:    tokens,
		publisher: publisher,
		registry:  registry,
		repos:     repos,
	}
}

func (e *testEnv) createUser(t *testing.T, id, name string) string {
	t.Helper()
	user := &models.User{ID: id, Email: id + "@example.com", Name: name, PasswordHash: "hashed"}
	require.NoError(t, e.db.Create(user).Error)

	token, err := e.tokens.Generate(user.ID, user.Email, user.Name)
	require.NoError(t, err)
	return token
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}, token string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var req *http.Request
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var response map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	}
	return w, response
}

func dataOf(t *testing.T, response map[string]interface{}) map[string]interface{} {
	t.Helper()
	data, ok := response["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %v", response)
	return data
}
