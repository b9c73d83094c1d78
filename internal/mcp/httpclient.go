package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/claude/fitlog/internal/models"
	"github.com/claude/fitlog/internal/session"
	"github.com/claude/fitlog/internal/storage"
	"github.com/google/uuid"
)

// HTTPClient implements DataSource by calling the fitlog REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server. The token decides the user, so the
// userID arguments are ignored.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL with a bearer token.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, v any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func timeParams(start, end time.Time) url.Values {
	v := url.Values{}
	v.Set("start", start.Format(time.RFC3339))
	v.Set("end", end.Format(time.RFC3339))
	return v
}

func (c *HTTPClient) Today(ctx context.Context, _ uuid.UUID, now time.Time) (*session.TodayView, error) {
	params := url.Values{}
	params.Set("tz", now.Location().String())
	var view session.TodayView
	if err := c.get(ctx, "/api/v1/today", params, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *HTTPClient) GetSchedule(ctx context.Context, _ uuid.UUID) ([]models.DaySchedule, error) {
	var resp struct {
		Days []models.DaySchedule `json:"days"`
	}
	if err := c.get(ctx, "/api/v1/schedule", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Days, nil
}

func (c *HTTPClient) ListTemplates(ctx context.Context, _ uuid.UUID) ([]models.WorkoutTemplate, error) {
	var templates []models.WorkoutTemplate
	if err := c.get(ctx, "/api/v1/templates", nil, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

func (c *HTTPClient) QuerySessions(ctx context.Context, _ uuid.UUID, q storage.SessionQuery) ([]models.WorkoutSessionRecord, error) {
	params := timeParams(q.Start, q.End)
	if q.Type != "" {
		params.Set("type", string(q.Type))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	var sessions []models.WorkoutSessionRecord
	if err := c.get(ctx, "/api/v1/sessions", params, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (c *HTTPClient) GetTrainingSummary(ctx context.Context, _ uuid.UUID, start, end time.Time, bucket string) ([]storage.TrainingSummaryPeriod, error) {
	params := timeParams(start, end)
	params.Set("bucket", bucket)
	var periods []storage.TrainingSummaryPeriod
	if err := c.get(ctx, "/api/v1/reports/training", params, &periods); err != nil {
		return nil, err
	}
	return periods, nil
}

func (c *HTTPClient) GetTrainingIntensity(ctx context.Context, _ uuid.UUID, start, end time.Time) (*storage.TrainingIntensityResult, error) {
	var result storage.TrainingIntensityResult
	if err := c.get(ctx, "/api/v1/reports/intensity", timeParams(start, end), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) QueryMeasurements(ctx context.Context, _ uuid.UUID, start, end time.Time, limit int) ([]models.BodyMeasurement, error) {
	params := timeParams(start, end)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var list []models.BodyMeasurement
	if err := c.get(ctx, "/api/v1/measurements", params, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *HTTPClient) GetDataStats(ctx context.Context, _ uuid.UUID) (*storage.DataStats, error) {
	var stats storage.DataStats
	if err := c.get(ctx, "/api/v1/reports/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
