package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/models"
)

const maxBodyBytes = 4 << 20

// Client talks to the habit tracker REST backend
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout of the underlying http.Client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// New creates a client for the backend rooted at baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: constants.DefaultTimeout},
		userAgent:  constants.AppName + "/" + constants.Version,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend root the client was created with
func (c *Client) BaseURL() string {
	return c.baseURL
}

type request struct {
	method string
	path   string
	token  string
	query  url.Values
	form   url.Values
	body   any
}

// do sends req and returns the status and body of a 2xx response. Non-2xx
// responses become *Error, everything else wraps ErrTransport.
func (c *Client) do(ctx context.Context, req request) (int, []byte, error) {
	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case req.form != nil:
		body = strings.NewReader(req.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case req.body != nil:
		payload, err := json.Marshal(req.body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set(constants.HeaderRequestID, requestID)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		logger.Debug("request failed", "method", req.method, "path", req.path, "request_id", requestID, "error", err)
		return 0, nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: failed to read response: %w", ErrTransport, err)
	}

	logger.Debug("request",
		"method", req.method,
		"path", req.path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, nil, newError(resp.StatusCode, data)
	}
	return resp.StatusCode, data, nil
}

func decode(path string, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: malformed response from %s: %w", ErrTransport, path, err)
	}
	return nil
}

// Health checks that the backend is up
func (c *Client) Health(ctx context.Context) error {
	_, data, err := c.do(ctx, request{method: http.MethodGet, path: constants.PathHealth})
	if err != nil {
		return err
	}

	var resp struct {
		Status string `json:"status"`
	}
	if err := decode(constants.PathHealth, data, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("unexpected health status %q", resp.Status)
	}
	return nil
}

// Token exchanges credentials for an access token
func (c *Client) Token(ctx context.Context, username, password string) (string, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	_, data, err := c.do(ctx, request{method: http.MethodPost, path: constants.PathToken, form: form})
	if err != nil {
		return "", err
	}

	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := decode(constants.PathToken, data, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", ErrNoAccessToken
	}
	return resp.AccessToken, nil
}

// Register creates an account. Only 201 Created counts as success.
func (c *Client) Register(ctx context.Context, username, password string) error {
	payload := map[string]string{"username": username, "password": password}
	status, _, err := c.do(ctx, request{method: http.MethodPost, path: constants.PathRegister, body: payload})
	if err != nil {
		return err
	}
	if status != http.StatusCreated {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, status)
	}
	return nil
}

// Me returns the profile of the token's owner
func (c *Client) Me(ctx context.Context, token string) (models.UserProfile, error) {
	var profile models.UserProfile
	_, data, err := c.do(ctx, request{method: http.MethodGet, path: constants.PathMe, token: token})
	if err != nil {
		return profile, err
	}
	err = decode(constants.PathMe, data, &profile)
	return profile, err
}

// ListHabits returns the user's habits in backend order
func (c *Client) ListHabits(ctx context.Context, token string) ([]models.Habit, error) {
	_, data, err := c.do(ctx, request{method: http.MethodGet, path: constants.PathHabits, token: token})
	if err != nil {
		return nil, err
	}

	habits := []models.Habit{}
	if err := decode(constants.PathHabits, data, &habits); err != nil {
		return nil, err
	}
	if habits == nil {
		habits = []models.Habit{}
	}
	return habits, nil
}

// CreateHabit creates a habit and returns it with its backend-assigned id
func (c *Client) CreateHabit(ctx context.Context, token string, habit models.HabitCreate) (models.Habit, error) {
	var created models.Habit
	_, data, err := c.do(ctx, request{method: http.MethodPost, path: constants.PathHabits, token: token, body: habit})
	if err != nil {
		return created, err
	}
	err = decode(constants.PathHabits, data, &created)
	return created, err
}

// DeleteHabit removes a habit
func (c *Client) DeleteHabit(ctx context.Context, token string, habitID int) error {
	_, _, err := c.do(ctx, request{
		method: http.MethodDelete,
		path:   fmt.Sprintf(constants.PathHabitFmt, habitID),
		token:  token,
	})
	return err
}

// DatesWithStatus returns the per-slot log of a habit for every logged day in [start, end]
func (c *Client) DatesWithStatus(ctx context.Context, token string, habitID int, start, end string) (models.SlotLog, error) {
	path := fmt.Sprintf(constants.PathDatesWithStatus, habitID)
	query := url.Values{}
	query.Set("start_date", start)
	query.Set("end_date", end)

	_, data, err := c.do(ctx, request{method: http.MethodGet, path: path, token: token, query: query})
	if err != nil {
		return nil, err
	}

	logs := models.SlotLog{}
	if err := decode(path, data, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// LogHabit marks a habit done or not done for a day
func (c *Client) LogHabit(ctx context.Context, token string, entry models.HabitLogEntry) error {
	_, _, err := c.do(ctx, request{method: http.MethodPost, path: constants.PathHabitLog, token: token, body: entry})
	return err
}
