package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/elderly-care-backend/internal/config"
	"github.com/tbourn/elderly-care-backend/internal/domain"
	"github.com/tbourn/elderly-care-backend/internal/http/middleware"
	"github.com/tbourn/elderly-care-backend/internal/live"
	"github.com/tbourn/elderly-care-backend/internal/reminder"
	"github.com/tbourn/elderly-care-backend/internal/repo"
)

type testEnv struct {
	r      *gin.Engine
	db     *gorm.DB
	jobsDB *gorm.DB
}

func testConfig() config.Config {
	return config.Config{
		APIBasePath:    "/api/v1",
		RateRPS:        100,
		RateBurst:      50,
		Security:       config.SecurityConfig{NoStore: true},
		IdempotencyTTL: time.Hour,
		OTEL:           config.OTELConfig{ServiceName: "test-svc"},
	}
}

// newEnv wires the full router over real SQLite stores under t.TempDir().
func newEnv(t *testing.T, cfg config.Config) testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	ctx := context.Background()

	tracker := live.NewTracker()
	acc := repo.NewAccessor(filepath.Join(dir, "app.db"), repo.NewMigrator(zerolog.Nop()), zerolog.Nop(), tracker)
	db, err := acc.Get(ctx)
	if err != nil {
		t.Fatalf("open app store: %v", err)
	}
	jobsDB, err := repo.OpenSQLite(filepath.Join(dir, "jobs.db"))
	if err != nil {
		t.Fatalf("open jobs store: %v", err)
	}
	if err := repo.AutoMigrateJobs(jobsDB); err != nil {
		t.Fatalf("migrate jobs: %v", err)
	}

	app := NewApp(db, tracker, reminder.NewScheduler(jobsDB, zerolog.Nop()), zerolog.Nop())
	t.Cleanup(func() {
		app.Close()
		_ = acc.Close()
		_ = repo.Close(jobsDB)
	})

	r := gin.New()
	RegisterRoutes(r, db, app, cfg)
	return testEnv{r: r, db: db, jobsDB: jobsDB}
}

func (e testEnv) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func TestRegisterRoutes_HealthMetricsFallbacks(t *testing.T) {
	env := newEnv(t, testConfig())

	w := env.do(http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow-all CORS expected '*', got %q", got)
	}
	if w.Header().Get("X-Request-ID") == "" || w.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("headers = %v", w.Header())
	}

	w = env.do(http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Fatalf("GET /metrics = %d", w.Code)
	}

	if w := env.do(http.MethodGet, "/nope", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope = %d", w.Code)
	}
	if w := env.do(http.MethodPost, "/health", "", nil); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health = %d", w.Code)
	}
	if w := env.do(http.MethodGet, "/swagger/doc.json", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("swagger should be off by default, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins(t *testing.T) {
	cfg := testConfig()
	cfg.CORS.AllowedOrigins = []string{"http://care.example"}
	env := newEnv(t, cfg)

	w := env.do(http.MethodGet, "/health", "", map[string]string{"Origin": "http://care.example"})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://care.example" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}
}

func TestRegisterRoutes_Swagger(t *testing.T) {
	cfg := testConfig()
	cfg.SwaggerEnabled = true
	env := newEnv(t, cfg)

	w := env.do(http.MethodGet, "/swagger/doc.json", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "/medications/{job_id}") {
		t.Fatalf("GET /swagger/doc.json = %d", w.Code)
	}
}

func TestRegisterRoutes_NotesLifecycle(t *testing.T) {
	env := newEnv(t, testConfig())

	w := env.do(http.MethodPost, "/api/v1/notes", `{"note_text":"Checkup","date":"2025-05-06","time":"14:30"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", w.Code, w.Body)
	}
	var note domain.Note
	if err := json.Unmarshal(w.Body.Bytes(), &note); err != nil {
		t.Fatal(err)
	}
	if note.ID < 1 || note.NoteText != "Checkup" {
		t.Fatalf("note = %+v", note)
	}

	w = env.do(http.MethodPost, "/api/v1/notes", `{"note_text":"x","date":"06/05/2025","time":"14:30"}`, nil)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "invalid_input") {
		t.Fatalf("bad date = %d %s", w.Code, w.Body)
	}

	w = env.do(http.MethodGet, "/api/v1/notes", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"note_text":"Checkup"`) {
		t.Fatalf("list = %d %s", w.Code, w.Body)
	}

	path := "/api/v1/notes/" + strconv.FormatInt(note.ID, 10)
	if w := env.do(http.MethodDelete, path, "", nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	if w := env.do(http.MethodDelete, path, "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("second delete = %d", w.Code)
	}
}

func TestRegisterRoutes_PatientInfoLifecycle(t *testing.T) {
	env := newEnv(t, testConfig())

	w := env.do(http.MethodPost, "/api/v1/patient-info", `{"weight":"72","height":"168"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", w.Code, w.Body)
	}
	if w := env.do(http.MethodPost, "/api/v1/patient-info", `{"weight":" ","height":"168"}`, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("blank weight = %d", w.Code)
	}
	w = env.do(http.MethodGet, "/api/v1/patient-info", "", nil)
	if !strings.Contains(w.Body.String(), `"weight":"72"`) || !strings.Contains(w.Body.String(), `"total":1`) {
		t.Fatalf("list = %s", w.Body)
	}
}

func TestRegisterRoutes_MedicationIdempotentReplay(t *testing.T) {
	env := newEnv(t, testConfig())
	hdr := map[string]string{middleware.HeaderIdempotencyKey: "med-key-1", "X-User-ID": "u1"}
	body := `{"name":"Aspirin","time":"08:00"}`

	first := env.do(http.MethodPost, "/api/v1/medications", body, hdr)
	if first.Code != http.StatusCreated {
		t.Fatalf("first = %d %s", first.Code, first.Body)
	}
	second := env.do(http.MethodPost, "/api/v1/medications", body, hdr)
	if second.Code != http.StatusCreated || second.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("replay = %d %v", second.Code, second.Header())
	}
	if !bytes.Equal(first.Body.Bytes(), second.Body.Bytes()) {
		t.Fatalf("replayed body differs: %s vs %s", first.Body, second.Body)
	}

	n, err := repo.CountJobs(context.Background(), env.jobsDB, domain.JobPending)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("pending jobs = %d, want 1", n)
	}

	var m domain.MedSchedule
	if err := json.Unmarshal(first.Body.Bytes(), &m); err != nil {
		t.Fatal(err)
	}
	if w := env.do(http.MethodDelete, "/api/v1/medications/"+m.JobID, "", nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	n, _ = repo.CountJobs(context.Background(), env.jobsDB, domain.JobCancelled)
	if n != 1 {
		t.Fatalf("cancelled jobs = %d, want 1", n)
	}
	if w := env.do(http.MethodPost, "/api/v1/medications", body, hdr); w.Code != http.StatusConflict {
		t.Fatalf("reused key after delete = %d", w.Code)
	}
}

func TestRegisterRoutes_CompressionSkipsStreams(t *testing.T) {
	env := newEnv(t, testConfig())
	gz := map[string]string{"Accept-Encoding": "gzip"}

	if w := env.do(http.MethodGet, "/api/v1/notes", "", gz); w.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("list not compressed: %v", w.Header())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notes/stream", nil).WithContext(ctx)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	env.r.ServeHTTP(w, req)

	if w.Header().Get("Content-Encoding") != "" {
		t.Fatalf("stream compressed: %v", w.Header())
	}
	if !strings.Contains(w.Body.String(), "event:notes") {
		t.Fatalf("stream body = %q", w.Body.String())
	}
}

func Test_routeScope(t *testing.T) {
	cases := []struct{ base, route, want string }{
		{"/api/v1", "/api/v1/medications", "medications"},
		{"/", "/medications", "medications"},
		{"/api/v1", "", ""},
	}
	for _, tc := range cases {
		if got := routeScope(tc.base, tc.route); got != tc.want {
			t.Errorf("routeScope(%q, %q) = %q, want %q", tc.base, tc.route, got, tc.want)
		}
	}
}

func Test_limitBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("0123456789AB")))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	groupWithPrefix(r, "/").GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	groupWithPrefix(r, "").GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })
	groupWithPrefix(r, "/api").GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK || w.Body.String() != want {
			t.Fatalf("GET %s = %d %q", path, w.Code, w.Body.String())
		}
	}
}
