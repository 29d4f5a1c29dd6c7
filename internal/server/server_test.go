package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go-jobscout/internal/logging"
	"go-jobscout/internal/models"
	"go-jobscout/internal/notify"
	"go-jobscout/internal/store"
	"go-jobscout/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSearcher struct {
	mu    sync.Mutex
	jobs  []models.JobRecord
	block chan struct{}
	reqs  []models.SearchRequest
}

func (f *fakeSearcher) Name() string { return "LinkedIn" }

func (f *fakeSearcher) Search(ctx context.Context, req models.SearchRequest) []models.JobRecord {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
		}
	}
	return f.jobs
}

func (f *fakeSearcher) Close() {}

type harness struct {
	searcher *fakeSearcher
	runner   *worker.Runner
	store    *store.Store
	hub      *notify.Hub
	router   *gin.Engine
}

func newHarness(t *testing.T, searcher *fakeSearcher) *harness {
	t.Helper()
	st := store.New()
	hub := notify.NewHub(16)
	runner := worker.New(searcher, hub, worker.WithStore(st), worker.WithLogger(logging.Discard()))
	t.Cleanup(runner.Cleanup)
	srv := New(context.Background(), runner, st, hub, logging.Discard(), WithTelegramChat(42))
	return &harness{searcher: searcher, runner: runner, store: st, hub: hub, router: srv.Router()}
}

func (h *harness) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func seed(st *store.Store) {
	st.Add(
		models.JobRecord{ID: "1", Title: "Go Engineer", Organization: "Acme", Location: "Berlin", JobCategory: "Full-time", Description: "kubernetes"},
		models.JobRecord{ID: "2", Title: "Senior Java Developer", Organization: "Globex", Location: "Remote", JobCategory: "Contract"},
		models.JobRecord{ID: "3", Title: "Backend Engineer", Organization: "Initech", Location: "Berlin", JobCategory: "Full-time", Status: models.StatusApplied},
	)
}

func TestHealth(t *testing.T) {
	h := newHarness(t, &fakeSearcher{})

	w := h.do(http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, false, body["running"])

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/", "").Code)
}

func TestStartSearch(t *testing.T) {
	searcher := &fakeSearcher{jobs: []models.JobRecord{
		{ID: "9", Title: "Go Engineer", Organization: "Acme", Status: models.StatusNotReviewed},
	}}
	h := newHarness(t, searcher)

	w := h.do(http.MethodPost, "/api/search", `{"title":" golang ","location":"Berlin"}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	body := decode(t, w)
	assert.NotEmpty(t, body["run_id"])

	h.runner.Wait()
	assert.Equal(t, 1, h.store.Len())
	require.Len(t, searcher.reqs, 1)
	assert.Equal(t, "golang", searcher.reqs[0].Title)
	assert.Equal(t, models.DefaultMaxPages, searcher.reqs[0].MaxPages)
}

func TestStartSearch_BusyAndCancel(t *testing.T) {
	searcher := &fakeSearcher{block: make(chan struct{})}
	h := newHarness(t, searcher)

	require.Equal(t, http.StatusAccepted, h.do(http.MethodPost, "/api/search", `{}`).Code)
	assert.Equal(t, http.StatusConflict, h.do(http.MethodPost, "/api/search", `{}`).Code)

	state := decode(t, h.do(http.MethodGet, "/api/search", ""))
	assert.Equal(t, true, state["running"])

	w := h.do(http.MethodPost, "/api/search/cancel", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["cancelled"])
	h.runner.Wait()
	assert.False(t, h.runner.Running())
}

func TestStartSearch_RejectsBadBody(t *testing.T) {
	h := newHarness(t, &fakeSearcher{})

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/api/search", `{"max_pages":500}`).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/api/search", `not json`).Code)
	assert.False(t, h.runner.Running())
}

func TestListJobs(t *testing.T) {
	h := newHarness(t, &fakeSearcher{})
	seed(h.store)

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"all", "", 3},
		{"location", "?location=berlin", 2},
		{"category", "?category=Full-time", 2},
		{"status compact form", "?status=not_reviewed", 2},
		{"status all", "?status=All", 3},
		{"exclude", "?exclude=senior&exclude=backend", 1},
		{"text search", "?q=kubernetes", 1},
		{"text and filter", "?q=engineer&location=berlin", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := h.do(http.MethodGet, "/api/jobs"+tt.query, "")
			require.Equal(t, http.StatusOK, w.Code)
			assert.EqualValues(t, tt.want, decode(t, w)["count"])
		})
	}

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/jobs?status=maybe", "").Code)
}

func TestJobLifecycle(t *testing.T) {
	h := newHarness(t, &fakeSearcher{})

	w := h.do(http.MethodPost, "/api/jobs", `{"title":"Go Engineer","company":"Acme","url":"https://x/1"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode(t, w)["id"].(string)

	w = h.do(http.MethodGet, "/api/jobs/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	job := decode(t, w)
	assert.Equal(t, "Acme", job["organization"])
	assert.Equal(t, string(models.StatusNotReviewed), job["status"])

	w = h.do(http.MethodPatch, "/api/jobs/"+id+"/status", `{"status":"interested"}`)
	require.Equal(t, http.StatusOK, w.Code)
	job = decode(t, w)
	assert.Equal(t, string(models.StatusInterested), job["status"])
	assert.NotNil(t, job["status_changed_at"])

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPatch, "/api/jobs/"+id+"/status", `{"status":"bogus"}`).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPatch, "/api/jobs/"+id+"/status", `{}`).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPatch, "/api/jobs/missing/status", `{"status":"Applied"}`).Code)

	counts := decode(t, h.do(http.MethodGet, "/api/jobs/counts", ""))
	assert.EqualValues(t, 1, counts["total"])
	assert.EqualValues(t, 1, counts["counts"].(map[string]any)["Interested"])

	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/api/jobs/"+id, "").Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, "/api/jobs/"+id, "").Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/jobs/"+id, "").Code)
}

func TestAddJob_RejectsInvalidStatus(t *testing.T) {
	h := newHarness(t, &fakeSearcher{})
	w := h.do(http.MethodPost, "/api/jobs", `{"title":"x","organization":"y","status":"Maybe"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, h.store.Len())
}

func TestClearAndExport(t *testing.T) {
	h := newHarness(t, &fakeSearcher{})
	seed(h.store)

	w := h.do(http.MethodGet, "/api/jobs/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "jobs.csv")
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "id,title,organization"))

	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/api/jobs", "").Code)
	assert.Equal(t, 0, h.store.Len())
}

func TestEvents_StreamsUntilFinished(t *testing.T) {
	h := newHarness(t, &fakeSearcher{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/events?until=finished", nil)
	done := make(chan struct{})
	go func() {
		h.router.ServeHTTP(w, req)
		close(done)
	}()

	require.Eventually(t, func() bool { return h.hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	h.hub.StartRun("run-42")
	h.hub.StatusMessage("Scraping page 1 of 2...")
	h.hub.Finished(true, "Successfully found 0 jobs")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end after the finished event")
	}

	body := w.Body.String()
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Contains(t, body, "event:status")
	assert.Contains(t, body, "Scraping page 1 of 2...")
	assert.Contains(t, body, "event:finished")
	assert.Contains(t, body, `"run_id":"run-42"`)
	assert.Equal(t, 0, h.hub.Subscribers(), "unsubscribed on exit")
}

func TestParseSearchCommand(t *testing.T) {
	req := parseSearchCommand(" golang developer in Berlin ")
	assert.Equal(t, "golang developer", req.Title)
	assert.Equal(t, "Berlin", req.Location)

	req = parseSearchCommand("rust")
	assert.Equal(t, "rust", req.Title)
	assert.Empty(t, req.Location)
	assert.Equal(t, models.FilterAll, req.Category)
}

func telegramUpdate(text string) string {
	return telegramUpdateFrom(42, text)
}

func telegramUpdateFrom(chatID int64, text string) string {
	cmdLen := len(strings.Fields(text)[0])
	update := map[string]any{
		"update_id": 1,
		"message": map[string]any{
			"message_id": 7,
			"date":       0,
			"chat":       map[string]any{"id": chatID, "type": "private"},
			"text":       text,
			"entities":   []map[string]any{{"type": "bot_command", "offset": 0, "length": cmdLen}},
		},
	}
	data, _ := json.Marshal(update)
	return string(data)
}

func TestTelegramWebhook(t *testing.T) {
	searcher := &fakeSearcher{block: make(chan struct{})}
	h := newHarness(t, searcher)

	w := h.do(http.MethodPost, "/webhook/telegram", telegramUpdate("/search go engineer in Remote"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "started", decode(t, w)["status"])

	w = h.do(http.MethodPost, "/webhook/telegram", telegramUpdate("/search again"))
	assert.Equal(t, "busy", decode(t, w)["status"])

	w = h.do(http.MethodPost, "/webhook/telegram", telegramUpdate("/cancel"))
	assert.Equal(t, true, decode(t, w)["cancelled"])
	h.runner.Wait()

	require.Len(t, searcher.reqs, 1)
	assert.Equal(t, "go engineer", searcher.reqs[0].Title)
	assert.Equal(t, "Remote", searcher.reqs[0].Location)

	w = h.do(http.MethodPost, "/webhook/telegram", `{"update_id":2}`)
	assert.Equal(t, "ignored", decode(t, w)["status"])
}

func TestTelegramWebhook_IgnoresOtherChats(t *testing.T) {
	searcher := &fakeSearcher{block: make(chan struct{})}
	h := newHarness(t, searcher)

	w := h.do(http.MethodPost, "/webhook/telegram", telegramUpdateFrom(1337, "/search go engineer"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", decode(t, w)["status"])

	w = h.do(http.MethodPost, "/webhook/telegram", telegramUpdateFrom(1337, "/cancel"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	assert.False(t, h.runner.Running())
	assert.Empty(t, searcher.reqs)
}

func TestTelegramWebhook_NoChatConfigured(t *testing.T) {
	st := store.New()
	hub := notify.NewHub(4)
	runner := worker.New(&fakeSearcher{}, hub, worker.WithStore(st), worker.WithLogger(logging.Discard()))
	t.Cleanup(runner.Cleanup)
	router := New(context.Background(), runner, st, hub, logging.Discard()).Router()

	req := httptest.NewRequest(http.MethodPost, "/webhook/telegram", strings.NewReader(telegramUpdate("/search go")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, runner.Running())
}
