// Package client is a typed HTTP client for the registry REST API.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/registry/pkg/pagination"
)

const (
	apiPrefix       = "/api"
	requestIDHeader = "X-Request-ID"
	maxBodyBytes    = 4 << 20
	DefaultTimeout  = 10 * time.Second
)

// Client calls the registry API. Failed requests are never retried.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger zerolog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the underlying client, e.g. one built by
// httptest.Server.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.http
		hc.Timeout = d
		c.http = &hc
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a client for the server at baseURL, e.g. http://localhost:3000.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		base:   u,
		http:   &http.Client{Timeout: DefaultTimeout},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type Patient struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	MRN       string    `json:"mrn"`
	Gender    string    `json:"gender"`
	BirthDate time.Time `json:"birth_date"`
	CreatedAt time.Time `json:"created_at"`
}

// Genders are the choices a registration form offers. The server accepts
// any non-empty value.
var Genders = []string{"Male", "Female", "Other"}

// NewPatient is the registration payload. BirthDate is YYYY-MM-DD.
type NewPatient struct {
	Name      string `json:"name"`
	MRN       string `json:"mrn"`
	Gender    string `json:"gender"`
	BirthDate string `json:"birth_date"`
}

type Order struct {
	ID        int64     `json:"id"`
	PatientID int64     `json:"patient_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Edited reports whether the order's message was changed after creation.
func (o Order) Edited() bool {
	return !o.UpdatedAt.Equal(o.CreatedAt)
}

func (c *Client) ListPatients(ctx context.Context, p pagination.Params) (*pagination.Page[Patient], error) {
	var page pagination.Page[Patient]
	if err := c.do(ctx, http.MethodGet, "/patients", pageQuery(p), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) CountPatients(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, "/patients/count", nil, nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

func (c *Client) CreatePatient(ctx context.Context, in NewPatient) (*Patient, error) {
	var p Patient
	if err := c.do(ctx, http.MethodPost, "/patients", nil, in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) ListOrders(ctx context.Context, patientID int64, p pagination.Params) (*pagination.Page[Order], error) {
	return c.listOrders(ctx, strconv.FormatInt(patientID, 10), p)
}

func (c *Client) listOrders(ctx context.Context, patientID string, p pagination.Params) (*pagination.Page[Order], error) {
	var page pagination.Page[Order]
	path := "/patients/" + url.PathEscape(patientID) + "/orders"
	if err := c.do(ctx, http.MethodGet, path, pageQuery(p), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) CreateOrder(ctx context.Context, patientID int64, message string) (*Order, error) {
	in := struct {
		PatientID int64  `json:"patient_id"`
		Message   string `json:"message"`
	}{patientID, message}

	var o Order
	if err := c.do(ctx, http.MethodPost, "/orders", nil, in, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) UpdateOrder(ctx context.Context, id int64, message string) (*Order, error) {
	in := struct {
		Message string `json:"message"`
	}{message}

	var o Order
	path := "/orders/" + strconv.FormatInt(id, 10)
	if err := c.do(ctx, http.MethodPut, path, nil, in, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func pageQuery(p pagination.Params) url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	return q
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := *c.base
	u.Path = c.base.Path + apiPrefix + path
	u.RawQuery = query.Encode()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("request_id", requestID).Str("method", method).Str("path", u.Path).Msg("request failed")
		return fmt.Errorf("%s %s: %w", method, u.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", u.Path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("api call")

	if resp.StatusCode >= http.StatusBadRequest {
		return newAPIError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, u.Path, err)
	}
	return nil
}
