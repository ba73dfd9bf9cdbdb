// Package supabase talks to a hosted Supabase project: PostgREST for the
// profiles, listings and orders tables and GoTrue for email/password auth.
package supabase

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

	"github.com/tidwall/gjson"
)

// Client is a minimal Supabase REST client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	HTTPClient *http.Client
}

func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("APIKey is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}, nil
}

// From starts a PostgREST query on table.
func (c *Client) From(table string) *Query {
	return &Query{client: c, table: table}
}

// Query builds one PostgREST request.
type Query struct {
	client  *Client
	table   string
	columns string
	filters url.Values
	orders  []string
}

func (q *Query) Select(columns string) *Query {
	q.columns = columns
	return q
}

// Eq adds an equality filter.
func (q *Query) Eq(column string, value any) *Query {
	if q.filters == nil {
		q.filters = url.Values{}
	}
	q.filters.Add(column, fmt.Sprintf("eq.%v", value))
	return q
}

func (q *Query) Order(column string, ascending bool) *Query {
	dir := "asc"
	if !ascending {
		dir = "desc"
	}
	q.orders = append(q.orders, column+"."+dir)
	return q
}

func (q *Query) url(withSelect bool) string {
	params := url.Values{}
	for k, vs := range q.filters {
		for _, v := range vs {
			params.Add(k, v)
		}
	}
	if withSelect {
		cols := q.columns
		if cols == "" {
			cols = "*"
		}
		params.Set("select", cols)
		if len(q.orders) > 0 {
			params.Set("order", strings.Join(q.orders, ","))
		}
	}
	u := fmt.Sprintf("%s/rest/v1/%s", q.client.baseURL, q.table)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// Execute runs a SELECT and decodes the row array into out.
func (q *Query) Execute(ctx context.Context, out any) error {
	resp, err := q.client.send(ctx, http.MethodGet, q.url(true), nil, nil)
	if err != nil {
		return err
	}
	return resp.JSON(out)
}

// Insert posts rows and decodes the created representation into out.
func (q *Query) Insert(ctx context.Context, rows any, out any) error {
	resp, err := q.client.send(ctx, http.MethodPost, q.url(false), rows, map[string]string{"Prefer": "return=representation"})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return resp.JSON(out)
}

// Update patches every row matching the filters and decodes the updated rows into out.
func (q *Query) Update(ctx context.Context, patch any, out any) error {
	resp, err := q.client.send(ctx, http.MethodPatch, q.url(false), patch, map[string]string{"Prefer": "return=representation"})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return resp.JSON(out)
}

// Delete removes every row matching the filters.
func (q *Query) Delete(ctx context.Context) error {
	_, err := q.client.send(ctx, http.MethodDelete, q.url(false), nil, nil)
	return err
}

// AuthResponse covers both GoTrue shapes: a session with a nested user,
// or (with email confirmation on) the bare user object.
type AuthResponse struct {
	AccessToken string
	UserID      string
	Email       string
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*AuthResponse, error) {
	return c.auth(ctx, c.baseURL+"/auth/v1/signup", email, password)
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*AuthResponse, error) {
	return c.auth(ctx, c.baseURL+"/auth/v1/token?grant_type=password", email, password)
}

func (c *Client) auth(ctx context.Context, endpoint, email, password string) (*AuthResponse, error) {
	resp, err := c.send(ctx, http.MethodPost, endpoint, map[string]string{"email": email, "password": password}, nil)
	if err != nil {
		return nil, err
	}
	body := gjson.ParseBytes(resp.Body)
	out := &AuthResponse{
		AccessToken: body.Get("access_token").String(),
		UserID:      body.Get("user.id").String(),
		Email:       body.Get("user.email").String(),
	}
	if out.UserID == "" {
		out.UserID = body.Get("id").String()
		out.Email = body.Get("email").String()
	}
	return out, nil
}

// Response is a raw API response.
type Response struct {
	StatusCode int
	Body       []byte
}

func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// APIError is a non-2xx answer from PostgREST or GoTrue.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supabase error (%d): %s", e.StatusCode, e.Message)
}

// Error returns an *APIError if the response indicates failure.
func (r *Response) Error() error {
	if r.StatusCode < 400 {
		return nil
	}
	body := gjson.ParseBytes(r.Body)
	e := &APIError{StatusCode: r.StatusCode, Code: body.Get("error_code").String()}
	if e.Code == "" {
		e.Code = body.Get("code").String()
	}
	for _, key := range []string{"message", "msg", "error_description", "error"} {
		if v := body.Get(key); v.Exists() && v.String() != "" {
			e.Message = v.String()
			break
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(r.StatusCode)
	}
	return e
}

func (c *Client) send(ctx context.Context, method, endpoint string, payload any, headers map[string]string) (*Response, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal data: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	out := &Response{StatusCode: resp.StatusCode, Body: raw}
	if err := out.Error(); err != nil {
		return nil, err
	}
	return out, nil
}
