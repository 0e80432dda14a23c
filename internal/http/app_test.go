package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"tiendaza/internal/catalog"
	"tiendaza/internal/config"
	"tiendaza/internal/domain"
	"tiendaza/internal/http/handlers"
	"tiendaza/internal/repos"
	"tiendaza/internal/session"
)

func testConfig() config.Config {
	return config.Config{
		TemplatesDir:   "../../web/templates",
		SessionTTL:     time.Minute,
		MaxUploadBytes: 1 << 20,
		RateLimit:      1000,
	}
}

func localRepo(t *testing.T) *repos.LocalRepo {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return repos.NewLocalRepo(db)
}

func newTestApp(t *testing.T, cfg config.Config, repo repos.Repository) *fiber.App {
	t.Helper()
	store := session.NewStore(context.Background(), repo, cfg.SessionTTL)
	return handlers.NewApp(cfg, handlers.NewDeps(store, cfg))
}

// client keeps the session cookie between requests.
type client struct {
	t   *testing.T
	app *fiber.App
	sid string
}

func (cl *client) do(method, path string, body io.Reader, contentType string) *http.Response {
	cl.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cl.sid != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: cl.sid})
	}
	resp, err := cl.app.Test(req, 5000)
	if err != nil {
		cl.t.Fatalf("%s %s: %v", method, path, err)
	}
	for _, c := range resp.Cookies() {
		if c.Name == "sid" {
			cl.sid = c.Value
		}
	}
	return resp
}

func (cl *client) json(method, path string, in any, out any) int {
	cl.t.Helper()
	var body io.Reader
	ct := ""
	if in != nil {
		b, _ := json.Marshal(in)
		body, ct = bytes.NewReader(b), fiber.MIMEApplicationJSON
	}
	resp := cl.do(method, path, body, ct)
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			cl.t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

// settledState polls the session catalog until the eager load finishes.
func (cl *client) settledState() catalog.State {
	cl.t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		var st catalog.State
		cl.json("GET", "/api/v1/catalog", nil, &st)
		if st.Status != catalog.StatusLoading || time.Now().After(deadline) {
			return st
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// flakyRepo fails FetchAll until healed.
type flakyRepo struct {
	repos.Repository
	mu     sync.Mutex
	broken bool
}

func (f *flakyRepo) FetchAll(ctx context.Context) ([]domain.Listing, error) {
	f.mu.Lock()
	broken := f.broken
	f.mu.Unlock()
	if broken {
		return nil, &repos.NetworkError{Op: "fetch_all", Message: "Network error"}
	}
	return f.Repository.FetchAll(ctx)
}

func (f *flakyRepo) heal() {
	f.mu.Lock()
	f.broken = false
	f.mu.Unlock()
}
