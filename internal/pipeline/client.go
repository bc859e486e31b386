// Package pipeline contains the single HTTP client every backend call goes through.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sipwell/sipwell-client/internal/config"
)

// Handler sends a request and returns the response. Non 2xx statuses are responses, only
// failures to get a response at all are errors.
type Handler func(ctx context.Context, req *Request) (*Response, error)

type Middleware func(next Handler) Handler

type Client struct {
	baseURL     *url.URL
	timeout     time.Duration
	userAgent   string
	httpClient  *http.Client
	middlewares []Middleware
	handler     Handler
}

type ClientOption func(*Client) error

func WithConfig(clientConfig config.ClientConfig) ClientOption {
	return func(c *Client) error {
		c.baseURL = clientConfig.BaseURL
		c.timeout = clientConfig.Timeout
		c.userAgent = clientConfig.UserAgent
		return nil
	}
}

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) error {
		parsed, err := url.Parse(baseURL)
		if err != nil {
			return err
		}
		c.baseURL = parsed
		return nil
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) error {
		c.timeout = timeout
		return nil
	}
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) error {
		c.httpClient = httpClient
		return nil
	}
}

// WithMiddlewares appends middlewares, the first one given is the outermost.
func WithMiddlewares(middlewares ...Middleware) ClientOption {
	return func(c *Client) error {
		c.middlewares = append(c.middlewares, middlewares...)
		return nil
	}
}

func NewClient(options ...ClientOption) (*Client, error) {
	c := Client{timeout: 10 * time.Second, userAgent: "sipwell-client"}
	for _, opt := range options {
		err := opt(&c)
		if err != nil {
			return &Client{}, err
		}
	}
	if c.baseURL == nil {
		return &Client{}, fmt.Errorf("base URL is not initialized")
	}
	if c.timeout <= 0 {
		return &Client{}, fmt.Errorf("invalid request timeout %s", c.timeout)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	handler := c.send
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		handler = c.middlewares[i](handler)
	}
	c.handler = handler
	return &c, nil
}

// Do passes the request through the middlewares and sends it. The request is not modified,
// the middlewares work on a copy.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	return c.handler(ctx, req.Clone())
}

func (c *Client) BaseURL() *url.URL {
	return c.baseURL
}

// URL resolves the path and query of req against the base URL.
func (c *Client) URL(req *Request) (*url.URL, error) {
	var target *url.URL
	if strings.HasPrefix(req.Path, "http://") || strings.HasPrefix(req.Path, "https://") {
		parsed, err := url.Parse(req.Path)
		if err != nil {
			return nil, err
		}
		target = parsed
	} else {
		target = c.baseURL.JoinPath(req.Path)
	}
	if len(req.Query) > 0 {
		target.RawQuery = req.Query.Encode()
	}
	return target, nil
}

// send is the innermost handler, every call gets its own timeout.
func (c *Client) send(ctx context.Context, req *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	target, err := c.URL(req)
	if err != nil {
		return nil, err
	}
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return nil, err
	}
	for k, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	if httpReq.Header.Get("User-Agent") == "" && c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	res, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: res.StatusCode, Header: res.Header, Body: resBody, Request: req}, nil
}
