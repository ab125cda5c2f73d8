/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package apiclient is the request layer between the takip core and the remote API.
// It resolves paths against a runtime-configurable base address, attaches the armed bearer
// token, and turns every transport or status failure into an *apperr.Error.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"time"

	"takip/internal/apperr"
	applog "takip/internal/log"
)

// DefaultTimeout is the ceiling for every call.
const DefaultTimeout = 30 * time.Second

// maxErrorBody bounds how much of a failed response is read to find the error field.
const maxErrorBody = 1 << 20

// Client issues JSON requests against the remote API.
type Client struct {
	mu      sync.RWMutex
	baseURL string
	bearer  *Bearer
	http    *http.Client
	log     *slog.Logger
}

// Option customises a Client at construction.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its Timeout is forced to DefaultTimeout
// when unset.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a client for baseURL that reads its token from bearer.
// A nil bearer yields a client that never authenticates.
func New(baseURL string, bearer *Bearer, opts ...Option) *Client {
	c := &Client{
		baseURL: NormalizeBase(baseURL),
		bearer:  bearer,
		http:    &http.Client{Timeout: DefaultTimeout},
		log:     applog.WithComponent("apiclient"),
	}
	for _, o := range opts {
		o(c)
	}
	if c.http.Timeout <= 0 {
		c.http.Timeout = DefaultTimeout
	}
	return c
}

// BaseURL returns the normalised API base.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// SetBaseURL switches the API base for subsequent calls.
func (c *Client) SetBaseURL(u string) {
	c.mu.Lock()
	c.baseURL = NormalizeBase(u)
	c.mu.Unlock()
}

// ResolveURL resolves a storage path against the current base. See ResolveURL.
func (c *Client) ResolveURL(storagePath string) string {
	return ResolveURL(c.BaseURL(), storagePath)
}

type callOptions struct {
	noAuth bool
	query  url.Values
}

// CallOption adjusts a single call.
type CallOption func(*callOptions)

// WithoutAuth suppresses the bearer header regardless of the armed token.
func WithoutAuth() CallOption { return func(o *callOptions) { o.noAuth = true } }

// WithQuery appends query parameters to the request URL.
func WithQuery(q url.Values) CallOption { return func(o *callOptions) { o.query = q } }

// Get reads path into dest.
func (c *Client) Get(ctx context.Context, path string, dest any, opts ...CallOption) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, dest, opts)
}

// Post creates at path; a nil body is sent as {}.
func (c *Client) Post(ctx context.Context, path string, body, dest any, opts ...CallOption) error {
	return c.doJSON(ctx, http.MethodPost, path, orEmpty(body), dest, opts)
}

// Put replaces the resource at path; a nil body is sent as {}.
func (c *Client) Put(ctx context.Context, path string, body, dest any, opts ...CallOption) error {
	return c.doJSON(ctx, http.MethodPut, path, orEmpty(body), dest, opts)
}

// Delete removes the resource at path.
func (c *Client) Delete(ctx context.Context, path string, dest any, opts ...CallOption) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, dest, opts)
}

func orEmpty(body any) any {
	if body == nil {
		return struct{}{}
	}
	return body
}

// FormField is a plain multipart field.
type FormField struct {
	Name  string
	Value string
}

// FormFile is a file part. Open is called once while the body is assembled.
type FormFile struct {
	Field       string
	FileName    string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// PostMultipart sends fields followed by files as one multipart/form-data body.
// A failure to open a file is returned unwrapped so callers can classify it.
func (c *Client) PostMultipart(ctx context.Context, path string, fields []FormField, files []FormFile, dest any, opts ...CallOption) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range fields {
		if err := mw.WriteField(f.Name, f.Value); err != nil {
			return fmt.Errorf("write field %s: %w", f.Name, err)
		}
	}
	for _, f := range files {
		if err := writeFilePart(mw, f); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, mw.FormDataContentType(), &buf, dest, opts)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeFilePart(mw *multipart.Writer, f FormFile) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", f.FileName, err)
	}
	defer rc.Close()
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(f.Field), quoteEscaper.Replace(f.FileName)))
	ct := f.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create part %s: %w", f.FileName, err)
	}
	if _, err := io.Copy(part, rc); err != nil {
		return fmt.Errorf("read %s: %w", f.FileName, err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, dest any, opts []CallOption) error {
	var r io.Reader
	ct := ""
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", method, path, err)
		}
		r = bytes.NewReader(b)
		ct = "application/json"
	}
	return c.do(ctx, method, path, ct, r, dest, opts)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, dest any, opts []CallOption) error {
	var co callOptions
	for _, o := range opts {
		o(&co)
	}
	op := method + " " + path
	u, err := url.Parse(c.BaseURL() + path)
	if err != nil {
		return apperr.Transport(op, err)
	}
	if len(co.query) > 0 {
		q := u.Query()
		for k, vs := range co.query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return apperr.Transport(op, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if !co.noAuth {
		if tok := c.bearer.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("request failed", slog.String("method", method), slog.String("path", path), slog.Any("err", err))
		return apperr.Transport(op, transportCause(err, c.http.Timeout))
	}
	defer resp.Body.Close()
	c.log.Debug("request done",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("took", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return apperr.Server(op, resp.StatusCode, serverMessage(b, resp.StatusCode))
	}
	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Transport(op, transportCause(err, c.http.Timeout))
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return &apperr.Error{Kind: apperr.KindServer, Op: op, Status: resp.StatusCode, Msg: "malformed response: " + err.Error(), Err: err}
	}
	return nil
}

// serverMessage prefers the server's "error" field, then a status message.
func serverMessage(body []byte, status int) string {
	var env struct {
		Error   any    `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &env) == nil {
		switch v := env.Error.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return v
			}
		case map[string]any:
			if m, ok := v["message"].(string); ok && m != "" {
				return m
			}
		}
		if strings.TrimSpace(env.Message) != "" {
			return env.Message
		}
	}
	if status > 0 {
		return fmt.Sprintf("request failed with status code %d", status)
	}
	return apperr.FallbackMessage
}

type timeoutError struct{ after time.Duration }

func (e timeoutError) Error() string { return fmt.Sprintf("timeout of %s exceeded", e.after) }
func (e timeoutError) Timeout() bool { return true }

// transportCause strips the url.Error envelope and names timeouts uniformly.
func transportCause(err error, timeout time.Duration) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return timeoutError{after: timeout}
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		return ue.Err
	}
	return err
}
