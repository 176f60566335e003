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

	"go.uber.org/zap"

	"skillglide/services/jobboard/internal/config"
	"skillglide/services/jobboard/internal/dashboard"
	"skillglide/services/jobboard/internal/errors"
	"skillglide/services/jobboard/internal/filter"
	"skillglide/services/jobboard/internal/listing"
	"skillglide/services/jobboard/internal/metrics"
	"skillglide/services/jobboard/internal/models"
)

type stubFetcher struct {
	mu    sync.Mutex
	jobs  []models.JobPosting
	err   error
	calls int
}

func (s *stubFetcher) FetchJobs(context.Context, *models.FilterSpecification) ([]models.JobPosting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return []models.JobPosting{}, s.err
	}
	return s.jobs, nil
}

type stubGateway struct {
	deleted   []string
	deleteErr error
	updated   map[string]models.ApplicationStatus
}

func (g *stubGateway) GetJob(_ context.Context, id string) (*models.JobPosting, error) {
	if id != "1" {
		return nil, errors.NotFound("job not found", nil)
	}
	return &models.JobPosting{ID: "1", Title: "Go Engineer"}, nil
}

func (g *stubGateway) DeleteJob(_ context.Context, id string) error {
	if g.deleteErr != nil {
		return g.deleteErr
	}
	g.deleted = append(g.deleted, id)
	return nil
}

func (g *stubGateway) ListJobApplications(context.Context, string) ([]models.Application, error) {
	return []models.Application{{ID: "a1", Status: models.StatusPending}}, nil
}

func (g *stubGateway) UpdateApplicationStatus(_ context.Context, id string, status models.ApplicationStatus) error {
	if !status.Valid() {
		return errors.InvalidInput("unknown application status", nil)
	}
	if g.updated == nil {
		g.updated = map[string]models.ApplicationStatus{}
	}
	g.updated[id] = status
	return nil
}

type stubDashboards struct {
	prefs *dashboard.Preferences
}

func (d *stubDashboards) Employer(_ context.Context, employerID string) (*dashboard.EmployerDashboard, error) {
	if employerID == "" {
		return nil, errors.InvalidInput("employer id is required", nil)
	}
	return &dashboard.EmployerDashboard{Stats: dashboard.EmployerStats{EmployerID: employerID, TotalJobs: 2}}, nil
}

func (d *stubDashboards) Seeker(_ context.Context, prefs *dashboard.Preferences) (*dashboard.SeekerDashboard, error) {
	d.prefs = prefs
	return &dashboard.SeekerDashboard{}, nil
}

type recordingPublisher struct {
	ids []string
}

func (p *recordingPublisher) PublishJobDeleted(_ context.Context, id string) error {
	p.ids = append(p.ids, id)
	return nil
}

type fixture struct {
	handler   http.Handler
	fetcher   *stubFetcher
	gateway   *stubGateway
	dashes    *stubDashboards
	publisher *recordingPublisher
	listing   *listing.Listing
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := filter.NewStore(zap.NewNop(), 0, nil)
	fetcher := &stubFetcher{jobs: []models.JobPosting{
		{ID: "1", Title: "Go Engineer", WorkMode: models.WorkModeRemote},
		{ID: "2", Title: "Designer", WorkMode: models.WorkModeOnsite},
	}}
	l := listing.New(fetcher, store, zap.NewNop())
	t.Cleanup(func() {
		l.Close()
		store.Close()
	})

	f := &fixture{
		fetcher:   fetcher,
		gateway:   &stubGateway{},
		dashes:    &stubDashboards{},
		publisher: &recordingPublisher{},
		listing:   l,
	}
	srv := New(&config.Config{HTTPAddr: ":0", APITimeout: time.Second}, zap.NewNop(), Deps{
		Listing:    l,
		Store:      store,
		Gateway:    f.gateway,
		Dashboards: f.dashes,
		Publisher:  f.publisher,
		Metrics:    metrics.New("jobboard_test"),
	})
	f.handler = srv.Handler()
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return v
}

type filtersResponse struct {
	Filters       models.FilterSpecification `json:"filters"`
	ActiveFilters int                        `json:"active_filters"`
}

func TestHealthzAndMetrics(t *testing.T) {
	f := newFixture(t)

	if rec := f.do(t, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}
	rec := f.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "jobboard_test_") {
		t.Fatalf("metrics = %d", rec.Code)
	}
}

func TestRefreshAndFilter(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/jobs/refresh", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh = %d", rec.Code)
	}
	if view := decodeBody[listing.View](t, rec); view.State != listing.StateLoaded || view.Visible != 2 {
		t.Fatalf("view = %+v", view)
	}

	rec = f.do(t, http.MethodPost, "/api/v1/filters/toggle", `{"field":"workMode","value":"remote"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle = %d %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[filtersResponse](t, rec); got.ActiveFilters != 1 {
		t.Fatalf("filters = %+v", got)
	}

	view := decodeBody[listing.View](t, f.do(t, http.MethodGet, "/api/v1/jobs", ""))
	if view.Total != 2 || view.Visible != 1 || view.Jobs[0].ID != "1" {
		t.Fatalf("filtered view = %+v", view)
	}

	rec = f.do(t, http.MethodDelete, "/api/v1/filters", "")
	if got := decodeBody[filtersResponse](t, rec); got.ActiveFilters != 0 {
		t.Fatalf("after clear = %+v", got)
	}
	if view := decodeBody[listing.View](t, f.do(t, http.MethodGet, "/api/v1/jobs", "")); view.Visible != 2 {
		t.Fatalf("after clear visible = %d", view.Visible)
	}
}

func TestRefreshFailureReportsView(t *testing.T) {
	f := newFixture(t)
	f.fetcher.err = errors.Unavailable("backend unreachable", nil)

	rec := f.do(t, http.MethodPost, "/api/v1/jobs/refresh", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}
	view := decodeBody[listing.View](t, rec)
	if view.State != listing.StateFailed || view.Empty || !view.Retryable || view.Error == "" {
		t.Fatalf("view = %+v", view)
	}
}

func TestUpdateAndSearchFilters(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPatch, "/api/v1/filters", `{"location":"Berlin","postedWithin":7}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch = %d %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[filtersResponse](t, rec)
	if got.Filters.Location != "Berlin" || got.ActiveFilters != 2 {
		t.Fatalf("filters = %+v", got)
	}

	rec = f.do(t, http.MethodPost, "/api/v1/filters/search", `{"text":"go"}`)
	if got := decodeBody[filtersResponse](t, rec); got.Filters.Search != "go" || got.ActiveFilters != 3 {
		t.Fatalf("after search = %+v", got)
	}

	if got := decodeBody[filtersResponse](t, f.do(t, http.MethodGet, "/api/v1/filters", "")); got.Filters.Search != "go" {
		t.Fatalf("current = %+v", got)
	}
}

func TestBadRequests(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"malformed", http.MethodPatch, "/api/v1/filters", `{`, http.StatusBadRequest},
		{"unknown field", http.MethodPatch, "/api/v1/filters", `{"colour":"red"}`, http.StatusBadRequest},
		{"toggle missing value", http.MethodPost, "/api/v1/filters/toggle", `{"field":"jobType"}`, http.StatusBadRequest},
		{"toggle scalar", http.MethodPost, "/api/v1/filters/toggle", `{"field":"location","value":"x"}`, http.StatusBadRequest},
		{"bad status", http.MethodPut, "/api/v1/applications/a1/status", `{"status":"hired"}`, http.StatusBadRequest},
		{"missing job", http.MethodGet, "/api/v1/jobs/404", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, tc.method, tc.path, tc.body)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.status, rec.Body.String())
			}
			if body := decodeBody[map[string]string](t, rec); body["error"] == "" || body["type"] == "" {
				t.Fatalf("error body = %v", body)
			}
		})
	}
}

func TestDeleteJobPublishesAndRefetches(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodDelete, "/api/v1/employer/jobs/1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d %s", rec.Code, rec.Body.String())
	}
	if len(f.gateway.deleted) != 1 || f.gateway.deleted[0] != "1" {
		t.Fatalf("deleted = %v", f.gateway.deleted)
	}
	if len(f.publisher.ids) != 1 || f.publisher.ids[0] != "1" {
		t.Fatalf("published = %v", f.publisher.ids)
	}
	if f.fetcher.calls != 1 || f.listing.View().State != listing.StateLoaded {
		t.Fatalf("listing not refetched: calls=%d", f.fetcher.calls)
	}
}

func TestDeleteJobFailureSkipsAnnouncement(t *testing.T) {
	f := newFixture(t)
	f.gateway.deleteErr = errors.Unauthorized("session expired, please sign in again", nil)

	rec := f.do(t, http.MethodDelete, "/api/v1/employer/jobs/1", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeBody[map[string]string](t, rec); body["error"] != "session expired, please sign in again" {
		t.Fatalf("error = %q", body["error"])
	}
	if len(f.publisher.ids) != 0 || f.fetcher.calls != 0 {
		t.Fatalf("published=%v calls=%d", f.publisher.ids, f.fetcher.calls)
	}
}

func TestApplicationsAndDashboards(t *testing.T) {
	f := newFixture(t)

	if rec := f.do(t, http.MethodPut, "/api/v1/applications/a1/status", `{"status":"shortlisted"}`); rec.Code != http.StatusNoContent {
		t.Fatalf("update status = %d", rec.Code)
	}
	if f.gateway.updated["a1"] != models.StatusShortlisted {
		t.Fatalf("updated = %v", f.gateway.updated)
	}

	rec := f.do(t, http.MethodGet, "/api/v1/jobs/1/applications", "")
	if apps := decodeBody[map[string][]models.Application](t, rec); len(apps["items"]) != 1 {
		t.Fatalf("applications = %v", apps)
	}

	rec = f.do(t, http.MethodGet, "/api/v1/dashboard/employer/emp-1", "")
	if dash := decodeBody[dashboard.EmployerDashboard](t, rec); dash.Stats.EmployerID != "emp-1" || dash.Stats.TotalJobs != 2 {
		t.Fatalf("employer dashboard = %+v", dash)
	}

	if rec := f.do(t, http.MethodGet, "/api/v1/dashboard/employer", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("employer dashboard without id = %d", rec.Code)
	}

	f.do(t, http.MethodGet, "/api/v1/dashboard/seeker", "")
	if f.dashes.prefs != nil {
		t.Fatalf("prefs without query = %+v", f.dashes.prefs)
	}
	f.do(t, http.MethodGet, "/api/v1/dashboard/seeker?work_mode=remote", "")
	if f.dashes.prefs == nil || f.dashes.prefs.WorkMode != models.WorkModeRemote {
		t.Fatalf("prefs = %+v", f.dashes.prefs)
	}
}
