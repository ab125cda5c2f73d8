/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package telemetry provides a tiny, privacy‑respecting, opt‑in event sender
// for anonymous usage metrics and optional crash uploads.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	applog "takip/internal/log"
	"takip/internal/version"
)

// Config holds runtime configuration for telemetry and crash uploads.
// All telemetry is strictly opt‑in and disabled by default.
//
// Environment variables (read by FromEnv):
// - TAKIP_TELEMETRY_OPT_IN: "1", "true", "yes" to enable metrics
// - TAKIP_TELEMETRY_URL: URL to POST JSON events to
// - TAKIP_CRASH_UPLOAD_URL: URL to POST crash reports to
// - TAKIP_TELEMETRY_TIMEOUT_MS: optional request timeout, default 1500ms
// - TAKIP_TELEMETRY_DEBUG: if set, logs event send attempts
//
// If no URLs are set, events are dropped (no‑ops), even if opt‑in is true.
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

func FromEnv() Config {
	cfg := Config{
		OptIn:        parseBool(os.Getenv("TAKIP_TELEMETRY_OPT_IN")),
		EventsURL:    strings.TrimSpace(os.Getenv("TAKIP_TELEMETRY_URL")),
		CrashURL:     strings.TrimSpace(os.Getenv("TAKIP_CRASH_UPLOAD_URL")),
		Timeout:      1500 * time.Millisecond,
		DebugLogging: os.Getenv("TAKIP_TELEMETRY_DEBUG") != "",
	}
	if ms := strings.TrimSpace(os.Getenv("TAKIP_TELEMETRY_TIMEOUT_MS")); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil {
			cfg.Timeout = v
		}
	}
	return cfg
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// Event names emitted by the client core.
const (
	EventSignedIn        = "session.signed_in"
	EventSignedOut       = "session.signed_out"
	EventCollectionSaved = "lineitems.saved"
	EventAssetsUploaded  = "gallery.uploaded"
	EventAssetRemoved    = "gallery.removed"
)

// Stats counts what happened to queued events.
type Stats struct {
	Sent    int64
	Failed  int64
	Dropped int64
}

// Client is a minimal async sender; it drops events silently on errors.
// It never blocks the caller; the queue is bounded.
type Client struct {
	cfg    Config
	log    *slog.Logger
	cli    *http.Client
	q      chan map[string]any
	once   sync.Once
	closed chan struct{}

	sent, failed, dropped atomic.Int64
}

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// InitDefault initializes the package‑level default client from env when first used.
func InitDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		defaultClient = New(FromEnv())
	}
}

// NewDefault replaces the default client with one built from cfg.
func NewDefault(cfg Config) {
	c := New(cfg)
	defaultMu.Lock()
	old := defaultClient
	defaultClient = c
	defaultMu.Unlock()
	if old != nil {
		old.Close()
	}
}

func getDefault() *Client {
	InitDefault()
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultClient
}

// New constructs a client.
func New(cfg Config) *Client {
	c := &Client{
		cfg:    cfg,
		log:    applog.WithComponent("telemetry"),
		cli:    &http.Client{Timeout: cfg.Timeout},
		q:      make(chan map[string]any, 64),
		closed: make(chan struct{}),
	}
	go c.loop()
	return c
}

// Enabled reports whether anonymous telemetry is enabled and an endpoint is configured.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Enabled reports whether anonymous telemetry is enabled using the default client.
func Enabled() bool { return getDefault().Enabled() }

// Event queues a small JSON event if enabled. Properties whose key looks like a credential
// are dropped before queueing. Safe to call from anywhere.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	payload := map[string]any{
		"name":    name,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"version": version.String(),
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
	}
	for k, v := range props {
		if applog.IsSensitive(k) {
			continue
		}
		if _, reserved := payload[k]; reserved {
			continue
		}
		payload[k] = v
	}
	select {
	case c.q <- payload:
	default:
		c.dropped.Add(1)
	}
}

// Event using default client.
func Event(name string, props map[string]any) { getDefault().Event(name, props) }

// Stats returns the send counters.
func (c *Client) Stats() Stats {
	return Stats{Sent: c.sent.Load(), Failed: c.failed.Load(), Dropped: c.dropped.Load()}
}

// Flush waits briefly for the queue to drain.
func (c *Client) Flush(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	deadline := time.Now().Add(500 * time.Millisecond)
	for {
		if len(c.q) == 0 || time.Now().After(deadline) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(25 * time.Millisecond):
		}
	}
}

// Flush using default client.
func Flush(ctx context.Context) { getDefault().Flush(ctx) }

// Close stops the background goroutine. Queued events are discarded.
func (c *Client) Close() { c.once.Do(func() { close(c.closed) }) }

func (c *Client) loop() {
	for {
		select {
		case <-c.closed:
			return
		case item := <-c.q:
			c.send(item)
		}
	}
}

func (c *Client) send(item map[string]any) {
	buf, err := json.Marshal(item)
	if err != nil {
		c.failed.Add(1)
		return
	}
	if err := c.post(c.cfg.EventsURL, "application/json", buf); err != nil {
		c.failed.Add(1)
		if c.cfg.DebugLogging {
			c.log.Debug("telemetry send failed", slog.Any("err", err))
		}
		return
	}
	c.sent.Add(1)
	if c.cfg.DebugLogging {
		c.log.Debug("telemetry event sent", slog.Any("name", item["name"]))
	}
}

func (c *Client) post(url, contentType string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.cli.Do(req)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// UploadCrash posts an already‑serialized crash report to the configured crash URL if opt‑in.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	go func(b []byte) {
		if err := c.post(c.cfg.CrashURL, "text/plain; charset=utf-8", b); err != nil {
			if c.cfg.DebugLogging {
				c.log.Debug("crash upload failed", slog.Any("err", err))
			}
			return
		}
		if c.cfg.DebugLogging {
			c.log.Debug("crash report uploaded")
		}
	}(append([]byte(nil), report...))
}

// UploadCrash using default client.
func UploadCrash(report []byte) { getDefault().UploadCrash(report) }
