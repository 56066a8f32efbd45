package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"clipforge/internal/history"
	"clipforge/internal/render"
	"clipforge/internal/startup"
	"clipforge/internal/timeline"
)

func newTestServer(t *testing.T) (*Server, *mux.Router) {
	t.Helper()
	dir := t.TempDir()

	store, err := history.Open(context.Background(), filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	cfg := &startup.Config{
		DataDir:         dir,
		ExportDir:       filepath.Join(dir, "exports"),
		PosterDir:       filepath.Join(dir, "posters"),
		ProjectDir:      filepath.Join(dir, "projects"),
		FFmpegPath:      "ffmpeg",
		DefaultSettings: render.DefaultSettings(),
	}
	if err := os.MkdirAll(cfg.ProjectDir, 0o755); err != nil {
		t.Fatalf("creating project dir: %v", err)
	}

	s := NewServer(cfg, store)
	r := mux.NewRouter()
	s.RegisterRoutes(r)
	return s, r
}

func doJSON(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestStartRenderValidation(t *testing.T) {
	_, r := newTestServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed body", "{not json", http.StatusBadRequest},
		{"missing output", `{"clips":[{"source":"/a.mp4","out_point":5}]}`, http.StatusBadRequest},
		{"no clips", `{"output":"final.mp4","clips":[]}`, http.StatusBadRequest},
		{
			"inverted trim window",
			`{"output":"final.mp4","clips":[{"source":"/a.mp4","in_point":5,"out_point":2}]}`,
			http.StatusBadRequest,
		},
		{
			"bad settings",
			`{"output":"final.mp4","clips":[{"source":"/a.mp4","out_point":5}],"settings":{"fps":-1}}`,
			http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, r, http.MethodPost, "/api/render", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestStartRenderConflict(t *testing.T) {
	s, r := newTestServer(t)

	// Simulate an in-flight render: a freshly built session is non-terminal.
	tl := &timeline.Timeline{Clips: []timeline.Clip{{Source: "/a.mp4", Out: 5}}}
	s.current = &job{
		id:      1,
		session: render.NewSession(tl, render.DefaultSettings(), "/tmp/x.mp4", render.Options{}),
	}

	body := `{"output":"final.mp4","clips":[{"source":"/a.mp4","out_point":5}]}`
	rec := doJSON(t, r, http.MethodPost, "/api/render", body)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409: %s", rec.Code, rec.Body.String())
	}
}

func TestResolveDest(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name    string
		output  string
		want    string // base name of resolved path
		wantErr bool
	}{
		{"plain name", "final.mp4", "final.mp4", false},
		{"extension added", "final", "final.mp4", false},
		{"traversal stripped", "../../etc/passwd.mp4", "passwd.mp4", false},
		{"nested path flattened", "subdir/out.mov", "out.mov", false},
		{"empty", "", "", true},
		{"dot", ".", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.resolveDest(tt.output)
			if tt.wantErr {
				if err == nil {
					t.Errorf("resolveDest(%q) succeeded with %q", tt.output, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveDest(%q): %v", tt.output, err)
			}
			if filepath.Base(got) != tt.want {
				t.Errorf("resolveDest(%q) = %q, want base %q", tt.output, got, tt.want)
			}
			if filepath.Dir(got) != s.cfg.ExportDir {
				t.Errorf("resolveDest(%q) escaped export dir: %q", tt.output, got)
			}
		})
	}
}

func TestRenderStatusIdle(t *testing.T) {
	_, r := newTestServer(t)

	rec := doJSON(t, r, http.MethodGet, "/api/render/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["active"] != false {
		t.Errorf("active = %v, want false", resp["active"])
	}
}

func TestCancelWithoutRender(t *testing.T) {
	_, r := newTestServer(t)

	rec := doJSON(t, r, http.MethodPost, "/api/render/cancel", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestListJobsEmpty(t *testing.T) {
	_, r := newTestServer(t)

	rec := doJSON(t, r, http.MethodGet, "/api/jobs", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("body = %q, want empty array", got)
	}
}

func TestGetJobLifecycle(t *testing.T) {
	s, r := newTestServer(t)

	rec := doJSON(t, r, http.MethodGet, "/api/jobs/99", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing job: status = %d, want 404", rec.Code)
	}

	id, err := s.store.Insert(context.Background(), &history.Job{
		Dest:  "/exports/final.mp4",
		State: "done",
	})
	if err != nil {
		t.Fatal(err)
	}

	rec = doJSON(t, r, http.MethodGet, "/api/jobs/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var j history.Job
	if err := json.Unmarshal(rec.Body.Bytes(), &j); err != nil {
		t.Fatal(err)
	}
	if j.ID != id || j.Dest != "/exports/final.mp4" {
		t.Errorf("job = %+v", j)
	}
}

func TestHealthEndpoints(t *testing.T) {
	_, r := newTestServer(t)

	for _, path := range []string{"/health", "/healthz", "/livez", "/readyz", "/api/version"} {
		rec := doJSON(t, r, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d", path, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("%s: content type = %q", path, ct)
		}
	}
}

func TestHealthReportsRendering(t *testing.T) {
	s, r := newTestServer(t)

	tl := &timeline.Timeline{Clips: []timeline.Clip{{Source: "/a.mp4", Out: 5}}}
	s.current = &job{session: render.NewSession(tl, render.DefaultSettings(), "/tmp/x.mp4", render.Options{})}

	rec := doJSON(t, r, http.MethodGet, "/health", "")
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Rendering || resp.Status != statusRendering {
		t.Errorf("health = %+v, want rendering", resp)
	}
}
