package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/arnavshah/timesheet-grid-go/pkg/auth"
	"github.com/arnavshah/timesheet-grid-go/pkg/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// maxErrorBody caps how much of a failed response is kept in StatusError
const maxErrorBody = 4 << 10

// StatusError is returned for any non-2xx response
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// HasStatus reports whether err carries one of the given HTTP status codes
func HasStatus(err error, codes ...int) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	for _, c := range codes {
		if se.StatusCode == c {
			return true
		}
	}
	return false
}

// Export is a downloaded spreadsheet artifact
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Client talks to the timesheet backend
type Client struct {
	baseURL  string
	http     *http.Client
	username string
	password string
	log      logrus.FieldLogger
	now      func() time.Time

	mu    sync.Mutex
	token string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http client
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithCredentials enables logging in on demand
func WithCredentials(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithToken sets a pre-issued bearer token
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithLogger sets the request logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a client for the API rooted at baseURL, e.g. http://host/api
func New(baseURL string, opts ...Option) *Client {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     discard,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the bearer token currently in use
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Login exchanges the configured credentials for a bearer token
func (c *Client) Login(ctx context.Context) error {
	form := url.Values{}
	form.Set("username", c.username)
	form.Set("password", c.password)

	req, err := c.newRequest(ctx, http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var tok models.TokenResponse
	if err := c.doJSON(req, "login", &tok); err != nil {
		return err
	}
	if tok.AccessToken == "" {
		return errors.New("login: empty access token")
	}

	c.mu.Lock()
	c.token = tok.AccessToken
	c.mu.Unlock()
	c.log.WithField("username", c.username).Debug("api.Login")
	return nil
}

// Timesheet fetches the roster and assignment matrix of a department month
func (c *Client) Timesheet(ctx context.Context, deptID int, month string) (*models.TimesheetResponse, error) {
	var out models.TimesheetResponse
	path := fmt.Sprintf("/timesheet/%d/%s", deptID, url.PathEscape(month))
	if err := c.getJSON(ctx, "timesheet", path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WorkCodes fetches the work code catalog
func (c *Client) WorkCodes(ctx context.Context) ([]models.WorkCode, error) {
	var out []models.WorkCode
	if err := c.getJSON(ctx, "work codes", "/work-codes", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Departments fetches the department list
func (c *Client) Departments(ctx context.Context) ([]models.Department, error) {
	var out []models.Department
	if err := c.getJSON(ctx, "departments", "/departments", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateTimesheet sends a batch of changes. The batch succeeds or fails as a whole.
func (c *Client) UpdateTimesheet(ctx context.Context, updates []models.PendingChange) (*models.UpdateResponse, error) {
	if updates == nil {
		updates = []models.PendingChange{}
	}
	body, err := json.Marshal(models.UpdateRequest{Updates: updates})
	if err != nil {
		return nil, errors.Wrap(err, "encode updates")
	}
	req, err := c.authorizedRequest(ctx, http.MethodPost, "/timesheet/update", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out models.UpdateResponse
	if err := c.doJSON(req, "update timesheet", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Export downloads the T-13 spreadsheet of a department month. Filename is
// empty when the response carries no Content-Disposition name.
func (c *Client) Export(ctx context.Context, deptID int, month string) (*Export, error) {
	path := fmt.Sprintf("/export/t13/%d/%s", deptID, url.PathEscape(month))
	req, err := c.authorizedRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req, "export")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "export: read body")
	}
	return &Export{
		Filename:    FilenameFromDisposition(resp.Header.Get("Content-Disposition")),
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// FilenameFromDisposition extracts the file name of a Content-Disposition
// header. RFC 2231 filename* values are decoded and take precedence.
func FilenameFromDisposition(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}

func (c *Client) getJSON(ctx context.Context, op, path string, out interface{}) error {
	req, err := c.authorizedRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, op, out)
}

func (c *Client) authorizedRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	if err := c.ensureToken(ctx); err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return req, nil
}

// ensureToken logs in when credentials are configured and the cached token
// is missing or past its exp claim.
func (c *Client) ensureToken(ctx context.Context) error {
	if c.username == "" {
		return nil
	}
	tok := c.Token()
	if tok != "" {
		exp, ok := auth.ExpiresAt(tok)
		if !ok || c.now().Before(exp) {
			return nil
		}
	}
	return c.Login(ctx)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrapf(err, "build %s %s", method, path)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, op string) (*http.Response, error) {
	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	c.log.WithFields(logrus.Fields{
		"method":  req.Method,
		"path":    req.URL.Path,
		"status":  resp.StatusCode,
		"elapsed": c.now().Sub(start),
	}).Debug("api.Request")

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		c.mu.Lock()
		c.token = ""
		c.mu.Unlock()
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

func (c *Client) doJSON(req *http.Request, op string, out interface{}) error {
	resp, err := c.do(req, op)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "%s: decode response", op)
	}
	return nil
}
