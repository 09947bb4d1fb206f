package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jimdaga/studymate/internal/auth"
	"github.com/jimdaga/studymate/internal/catalog"
	"github.com/jimdaga/studymate/internal/chat"
	"github.com/jimdaga/studymate/internal/completion"
	"github.com/jimdaga/studymate/internal/config"
	"github.com/jimdaga/studymate/internal/dashboard"
	"github.com/jimdaga/studymate/internal/database/dbtest"
	"github.com/jimdaga/studymate/internal/logging"
	"github.com/jimdaga/studymate/internal/materials"
	"github.com/jimdaga/studymate/internal/profiles"
	"github.com/jimdaga/studymate/internal/prompts"
	"github.com/jimdaga/studymate/internal/storage"
	"github.com/jimdaga/studymate/internal/validation"
)

const testOrigin = "http://localhost:5173"

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) (*gin.Engine, *storage.Local) {
	t.Helper()
	logger := logging.Discard()
	db := dbtest.Open(t)

	cfg := &config.Config{
		Env:            "development",
		SessionSecret:  "test-session-secret-with-enough-bytes",
		SessionTTL:     time.Hour,
		FrontendURL:    testOrigin,
		AllowedOrigins: []string{testOrigin},
		StorageBucket:  "learning-materials",
		MaxUploadBytes: 5 * 1024 * 1024,
	}

	store, err := storage.NewLocal(t.TempDir(), cfg.StorageBucket, "http://api.test", logger)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	validate := validation.New()
	events := auth.NewEvents()
	authSvc := auth.NewService(db, events, validate, "test-token-secret", time.Hour, logger)
	cfgPrompts := prompts.Default()
	gateway := completion.NewGateway(completion.NewClient("http://127.0.0.1:0", "", "gemini-1.5-flash", true), cfgPrompts, logger)
	history := chat.NewHistory(db, logger)

	r := NewRouter(Deps{
		Config:    cfg,
		DB:        db,
		Logger:    logger,
		Store:     store,
		Auth:      authSvc,
		Materials: materials.NewService(db, store, validate, materials.Options{Bucket: cfg.StorageBucket, MaxUploadBytes: cfg.MaxUploadBytes}, logger),
		History:   history,
		Chat:      chat.NewConversation(history, gateway, logger),
		Gateway:   gateway,
		Prompts:   cfgPrompts,
		Dashboard: dashboard.NewService(db, logger),
		Profiles:  profiles.NewService(db, events, cfgPrompts, validate, logger),
		Catalog:   catalog.NewService(db, logger),
	})
	return r, store
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthRoutes(t *testing.T) {
	r, _ := newTestRouter(t)

	for _, path := range []string{"/health", "/ready"} {
		w := serve(r, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, w.Code)
		}
	}
}

func TestCORS(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/materials", nil)
	req.Header.Set("Origin", testOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := serve(r, req)
	if w.Code >= 300 {
		t.Errorf("api preflight: expected success, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != testOrigin {
		t.Errorf("api preflight: unexpected origin %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/materials", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	if w := serve(r, req); w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("unknown origins must not be allowed on the API")
	}

	req = httptest.NewRequest(http.MethodOptions, "/functions/v1/chat-with-gemini", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w = serve(r, req)
	if w.Code >= 300 || w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("function preflight: got %d with origin %q", w.Code, w.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestCookieSessionFlow(t *testing.T) {
	r, _ := newTestRouter(t)

	body := strings.NewReader(`{"email":"flow@example.com","password":"secret1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", body)
	req.Header.Set("Content-Type", "application/json")
	w := serve(r, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected session cookie")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w = serve(r, req)
	if w.Code != http.StatusOK {
		t.Fatalf("profile with cookie: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	if w := serve(r, httptest.NewRequest(http.MethodGet, "/api/profile", nil)); w.Code != http.StatusUnauthorized {
		t.Errorf("profile without cookie: expected 401, got %d", w.Code)
	}
}

func TestChatThroughStubGateway(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader(`{"email":"chat@example.com","password":"secret1"}`))
	req.Header.Set("Content-Type", "application/json")
	w := serve(r, req)
	var session struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &session); err != nil || session.AccessToken == "" {
		t.Fatalf("signup: %d %s", w.Code, w.Body.String())
	}

	payload, _ := json.Marshal(map[string]string{"message": "What is a derivative?", "language": "fr"})
	req = httptest.NewRequest(http.MethodPost, "/api/chat/messages", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)
	w = serve(r, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("send: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Please respond in French.") {
		t.Errorf("expected the stub to echo the French instruction, got %s", w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/dashboard/stats", nil)
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)
	w = serve(r, req)
	if !strings.Contains(w.Body.String(), `"question_count":1`) {
		t.Errorf("unexpected stats %s", w.Body.String())
	}
}

func TestLocalStorageIsServed(t *testing.T) {
	r, store := newTestRouter(t)

	content := "lecture notes"
	if err := store.Upload(context.Background(), "u1/notes.txt", strings.NewReader(content), int64(len(content)), "text/plain"); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	w := serve(r, httptest.NewRequest(http.MethodGet, storage.PublicPathPrefix+"/learning-materials/u1/notes.txt", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	got, _ := io.ReadAll(w.Body)
	if string(got) != content {
		t.Errorf("unexpected body %q", got)
	}
}
