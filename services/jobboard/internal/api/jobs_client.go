package api

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"skillglide/common/telemetry"
	"skillglide/services/jobboard/internal/auth"
	"skillglide/services/jobboard/internal/config"
	"skillglide/services/jobboard/internal/errors"
	"skillglide/services/jobboard/internal/metrics"
	"skillglide/services/jobboard/internal/models"
	"skillglide/services/jobboard/internal/parser"
)

var tracer = telemetry.GetTracer("skillglide/jobboard/api")

const (
	maxBodyBytes  = 8 << 20
	pageLimit     = 100
	refreshLeeway = 30 * time.Second
)

type JobsClient interface {
	// FetchJobs never returns a nil slice. On failure the slice is empty and
	// err describes what went wrong; callers decide whether to surface it.
	FetchJobs(ctx context.Context, filters *models.FilterSpecification) ([]models.JobPosting, error)
	GetJob(ctx context.Context, id string) (*models.JobPosting, error)
	ListEmployerJobs(ctx context.Context, employerID string) ([]models.JobPosting, error)
	DeleteJob(ctx context.Context, id string) error
	ListMyApplications(ctx context.Context) ([]models.Application, error)
	ListJobApplications(ctx context.Context, jobID string) ([]models.Application, error)
	UpdateApplicationStatus(ctx context.Context, applicationID string, status models.ApplicationStatus) error
}

type jobsClient struct {
	client  *http.Client
	timeout time.Duration
	baseURL string
	logger  *zap.Logger
	parser  *parser.Parser
	tokens  auth.TokenStore
	metrics *metrics.Metrics

	refreshMu sync.Mutex
}

func NewJobsClient(cfg *config.Config, logger *zap.Logger, p *parser.Parser, tokens auth.TokenStore, m *metrics.Metrics) JobsClient {
	return &jobsClient{
		client: &http.Client{
			Timeout: cfg.APITimeout,
		},
		timeout: cfg.APITimeout,
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		logger:  logger,
		parser:  p,
		tokens:  tokens,
		metrics: m,
	}
}

func (c *jobsClient) FetchJobs(ctx context.Context, filters *models.FilterSpecification) (jobs []models.JobPosting, err error) {
	ctx, span := tracer.Start(ctx, "FetchJobs")
	defer span.End()

	started := time.Now()
	defer func() {
		c.metrics.ObserveRequest("fetch_jobs", started, err)
		if err != nil {
			span.RecordError(err)
			c.logger.Error("failed to fetch jobs", zap.Error(err))
			jobs = []models.JobPosting{}
		}
	}()

	query := filterQuery(filters)
	span.SetAttributes(telemetry.Int("filters.params", len(query)))

	body, err := c.do(ctx, http.MethodGet, "/jobs", query, nil)
	if err != nil {
		return nil, err
	}

	jobs, err = c.parser.ParseJobs(body)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(telemetry.Int("jobs.count", len(jobs)))
	c.logger.Debug("successfully fetched jobs", zap.Int("count", len(jobs)))
	return jobs, nil
}

func (c *jobsClient) GetJob(ctx context.Context, id string) (job *models.JobPosting, err error) {
	ctx, span := tracer.Start(ctx, "GetJob")
	defer span.End()
	span.SetAttributes(telemetry.String("job.id", id))

	started := time.Now()
	defer func() { c.metrics.ObserveRequest("get_job", started, err) }()

	body, err := c.do(ctx, http.MethodGet, "/jobs/"+url.PathEscape(id), nil, nil)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return c.parser.ParseJob(body)
}

func (c *jobsClient) ListEmployerJobs(ctx context.Context, employerID string) (jobs []models.JobPosting, err error) {
	ctx, span := tracer.Start(ctx, "ListEmployerJobs")
	defer span.End()
	span.SetAttributes(telemetry.String("employer.id", employerID))

	started := time.Now()
	defer func() { c.metrics.ObserveRequest("list_employer_jobs", started, err) }()

	query := url.Values{}
	query.Set("employer_id", employerID)
	query.Set("limit", strconv.Itoa(pageLimit))

	body, err := c.do(ctx, http.MethodGet, "/jobs", query, nil)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	all, err := c.parser.ParseJobs(body)
	if err != nil {
		return nil, err
	}

	// The backend may ignore employer_id; never show another employer's jobs.
	jobs = all[:0]
	for _, job := range all {
		if job.EmployerID == "" || job.EmployerID == employerID {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

func (c *jobsClient) DeleteJob(ctx context.Context, id string) (err error) {
	ctx, span := tracer.Start(ctx, "DeleteJob")
	defer span.End()
	span.SetAttributes(telemetry.String("job.id", id))

	started := time.Now()
	defer func() { c.metrics.ObserveRequest("delete_job", started, err) }()

	if _, err = c.do(ctx, http.MethodDelete, "/jobs/"+url.PathEscape(id), nil, nil); err != nil {
		span.RecordError(err)
		return err
	}
	c.logger.Info("deleted job", zap.String("job_id", id))
	return nil
}

func (c *jobsClient) ListMyApplications(ctx context.Context) (apps []models.Application, err error) {
	ctx, span := tracer.Start(ctx, "ListMyApplications")
	defer span.End()

	started := time.Now()
	defer func() { c.metrics.ObserveRequest("list_my_applications", started, err) }()

	body, err := c.do(ctx, http.MethodGet, "/jobs/applications/me", nil, nil)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return c.parser.ParseApplications(body)
}

func (c *jobsClient) ListJobApplications(ctx context.Context, jobID string) (apps []models.Application, err error) {
	ctx, span := tracer.Start(ctx, "ListJobApplications")
	defer span.End()
	span.SetAttributes(telemetry.String("job.id", jobID))

	started := time.Now()
	defer func() { c.metrics.ObserveRequest("list_job_applications", started, err) }()

	body, err := c.do(ctx, http.MethodGet, "/jobs/"+url.PathEscape(jobID)+"/applications", nil, nil)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return c.parser.ParseApplications(body)
}

func (c *jobsClient) UpdateApplicationStatus(ctx context.Context, applicationID string, status models.ApplicationStatus) (err error) {
	ctx, span := tracer.Start(ctx, "UpdateApplicationStatus")
	defer span.End()
	span.SetAttributes(
		telemetry.String("application.id", applicationID),
		telemetry.String("application.status", string(status)),
	)

	started := time.Now()
	defer func() { c.metrics.ObserveRequest("update_application_status", started, err) }()

	if !status.Valid() {
		return errors.InvalidInput(fmt.Sprintf("unknown application status %q", status), nil)
	}

	path := "/jobs/applications/" + url.PathEscape(applicationID) + "/status"
	if _, err = c.do(ctx, http.MethodPut, path, nil, map[string]string{"status": string(status)}); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// filterQuery pushes down only the dimensions whose backend semantics match
// client-side evaluation exactly. Search, salary, skills and languages are
// matched differently by the backend and are left to the evaluator.
func filterQuery(f *models.FilterSpecification) url.Values {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(pageLimit))
	if f == nil {
		return query
	}
	if f.Location != "" {
		query.Set("location", f.Location)
	}
	for _, v := range f.JobType {
		query.Add("job_type", string(v))
	}
	for _, v := range f.WorkMode {
		query.Add("work_mode", string(v))
	}
	for _, v := range f.Experience {
		query.Add("experience_level", string(v))
	}
	if f.PostedWithin != nil && *f.PostedWithin > 0 {
		query.Set("posted_within_days", strconv.Itoa(*f.PostedWithin))
	}
	return query
}

// do performs one backend call. A 401 triggers a single token refresh and
// replay; there is no other retry. The timeout covers the whole exchange,
// refreshes and replay included.
func (c *jobsClient) do(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	tokens, err := c.tokens.Load(ctx)
	if err != nil {
		c.logger.Warn("failed to load tokens, continuing unauthenticated", zap.Error(err))
	}

	if tokens.RefreshToken != "" && auth.NeedsRefresh(tokens.AccessToken, refreshLeeway, time.Now()) {
		if refreshed, rerr := c.refresh(ctx, tokens); rerr == nil {
			tokens = refreshed
		}
	}

	status, body, err := c.send(ctx, method, path, query, payload, tokens.AccessToken)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized && tokens.RefreshToken != "" {
		refreshed, rerr := c.refresh(ctx, tokens)
		if rerr != nil {
			return nil, rerr
		}
		status, body, err = c.send(ctx, method, path, query, payload, refreshed.AccessToken)
		if err != nil {
			return nil, err
		}
	}

	if status < 200 || status > 299 {
		return nil, statusError(status, body)
	}
	return body, nil
}

func (c *jobsClient) send(ctx context.Context, method, path string, query url.Values, payload any, accessToken string) (int, []byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, errors.Internal("encoding request", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return 0, nil, errors.Internal("creating request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	c.logger.Debug("calling backend", zap.String("method", method), zap.String("url", target))

	resp, err := c.client.Do(req)
	if err != nil {
		if stderrors.Is(err, context.Canceled) {
			return 0, nil, errors.Unavailable("request canceled", err)
		}
		return 0, nil, errors.Unavailable("backend unreachable", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("failed to close response body", zap.Error(cerr))
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, errors.Unavailable("reading response", err)
	}
	return resp.StatusCode, body, nil
}

// refresh exchanges the refresh token for a new pair. Concurrent callers
// that lost the race reuse the winner's tokens.
func (c *jobsClient) refresh(ctx context.Context, stale auth.Tokens) (auth.Tokens, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if current, err := c.tokens.Load(ctx); err == nil && current.AccessToken != "" && current.AccessToken != stale.AccessToken {
		return current, nil
	}

	status, body, err := c.send(ctx, http.MethodPost, "/auth/refresh", nil,
		map[string]string{"refresh_token": stale.RefreshToken}, "")
	if err == nil && (status < 200 || status > 299) {
		err = statusError(status, body)
	}
	if err == nil {
		access := gjson.GetBytes(body, "access_token").String()
		if access == "" {
			err = errors.Internal("refresh response missing access token", nil)
		} else {
			fresh := auth.Tokens{AccessToken: access, RefreshToken: gjson.GetBytes(body, "refresh_token").String()}
			if fresh.RefreshToken == "" {
				fresh.RefreshToken = stale.RefreshToken
			}
			if serr := c.tokens.Save(ctx, fresh); serr != nil {
				c.logger.Warn("failed to persist refreshed tokens", zap.Error(serr))
			}
			c.logger.Info("refreshed access token")
			return fresh, nil
		}
	}

	if ctx.Err() != nil {
		return auth.Tokens{}, errors.Unavailable("request timed out", err)
	}

	c.logger.Warn("token refresh failed, clearing session", zap.Error(err))
	if cerr := c.tokens.Clear(ctx); cerr != nil {
		c.logger.Warn("failed to clear tokens", zap.Error(cerr))
	}
	return auth.Tokens{}, errors.Unauthorized("session expired, please sign in again", err)
}

func statusError(status int, body []byte) error {
	detail := gjson.GetBytes(body, "detail")
	msg := detail.String()
	if !detail.Exists() || detail.IsArray() || detail.IsObject() || msg == "" {
		msg = http.StatusText(status)
	}
	cause := fmt.Errorf("unexpected status code: %d", status)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errors.Unauthorized(msg, cause)
	case status == http.StatusNotFound:
		return errors.NotFound(msg, cause)
	case status == http.StatusTooManyRequests:
		return errors.RateLimit(msg, cause)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return errors.InvalidInput(msg, cause)
	case status >= 500:
		return errors.Unavailable(msg, cause)
	default:
		return errors.Internal(msg, cause)
	}
}
