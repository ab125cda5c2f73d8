/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"takip/internal/apperr"
	"takip/internal/config"
	"takip/internal/credstore"
	"takip/internal/devserver"
	"takip/internal/domain"
)

type cliEnv struct {
	cfg   config.AppConfig
	store *devserver.Store
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvConfigPath, filepath.Join(dir, "config.yaml"))
	ctx := context.Background()
	db, err := devserver.OpenDB(ctx, "file:"+filepath.Join(dir, "dev.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	srv, err := devserver.New(devserver.Config{UploadDir: filepath.Join(dir, "uploads"), AuthSecret: "cli-test"}, db)
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)
	if _, err := srv.Store().CreateUser(ctx, "admin", "pw", domain.RoleAdmin); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	cfg := config.Defaults()
	cfg.API.BaseURL = hs.URL + "/api"
	cfg.Credentials = config.CredentialsConfig{Backend: credstore.BackendFile, File: filepath.Join(dir, "credentials.json")}
	return &cliEnv{cfg: cfg, store: srv.Store()}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), e.cfg, args, &out)
	return out.String(), err
}

func (e *cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("takip %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestUsageErrors(t *testing.T) {
	e := newCLIEnv(t)
	if _, err := e.run(t); !errors.Is(err, errUsage) {
		t.Fatalf("no args: want usage error, got %v", err)
	}
	e.mustRun(t, "login", "-u", "admin", "-p", "pw")
	if _, err := e.run(t, "bogus"); !errors.Is(err, errUsage) {
		t.Fatalf("unknown command: want usage error, got %v", err)
	}
	if _, err := e.run(t, "items", "widgets", "1"); !errors.Is(err, errUsage) {
		t.Fatalf("bad catalog: want usage error, got %v", err)
	}
}

func TestSessionSurvivesInvocations(t *testing.T) {
	e := newCLIEnv(t)
	if _, err := e.run(t, "projects"); !apperr.IsKind(err, apperr.KindState) {
		t.Fatalf("signed out: want state error, got %v", err)
	}
	if _, err := e.run(t, "login", "-u", "admin", "-p", "wrong"); err == nil {
		t.Fatalf("wrong password accepted")
	}
	if out := e.mustRun(t, "login", "--user", "admin", "--password", "pw"); !strings.Contains(out, "Signed in as admin (admin)") {
		t.Fatalf("login output: %q", out)
	}
	if out := e.mustRun(t, "whoami"); !strings.Contains(out, "admin (id ") {
		t.Fatalf("whoami output: %q", out)
	}
	if out := e.mustRun(t, "ping"); !strings.Contains(out, "ok, server time") {
		t.Fatalf("ping output: %q", out)
	}
	e.mustRun(t, "logout")
	if out := e.mustRun(t, "whoami"); !strings.Contains(out, "Not signed in") {
		t.Fatalf("after logout: %q", out)
	}
	// Logging out twice is harmless.
	e.mustRun(t, "logout")
}

func TestItemsAndImages(t *testing.T) {
	e := newCLIEnv(t)
	ctx := context.Background()
	p, err := e.store.CreateProject(ctx, domain.Project{
		ProjectNo: "P-7", ProjectDate: "2025-05-05", CompanyName: "Acme", ProjectName: "Depot", Status: domain.DefaultProjectStatus,
	})
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	pid := strconv.FormatInt(p.ID, 10)
	e.mustRun(t, "login", "-u", "admin", "-p", "pw")

	if out := e.mustRun(t, "projects", "-q", "depot"); !strings.Contains(out, "P-7") || !strings.Contains(out, "1 of 1") {
		t.Fatalf("projects output: %q", out)
	}
	if _, err := e.run(t, "items", "panels", pid, "add"); !apperr.IsKind(err, apperr.KindState) {
		t.Fatalf("empty catalog: want state error, got %v", err)
	}
	e.mustRun(t, "definitions", "panels", "add", "Wall")
	if out := e.mustRun(t, "definitions", "panels"); !strings.Contains(out, "Wall") {
		t.Fatalf("definitions output: %q", out)
	}

	e.mustRun(t, "items", "panels", pid, "add", "qty=2", "width_cm=1.5")
	e.mustRun(t, "items", "panels", pid, "set", "1", "sqm=0.75")
	out := e.mustRun(t, "items", "panels", pid)
	if !strings.Contains(out, "Wall") || !strings.Contains(out, "1.5") || !strings.Contains(out, "0.75") {
		t.Fatalf("items output: %q", out)
	}
	if _, err := e.run(t, "items", "panels", pid, "set", "1", "colour=3"); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("unknown field: want validation error, got %v", err)
	}
	e.mustRun(t, "items", "panels", pid, "remove", "1")
	if out := e.mustRun(t, "items", "panels", pid, "list"); strings.Contains(out, "Wall") {
		t.Fatalf("row not removed: %q", out)
	}

	img := filepath.Join(t.TempDir(), "label.jpg")
	if err := os.WriteFile(img, []byte("jpeg"), 0o600); err != nil {
		t.Fatal(err)
	}
	out = e.mustRun(t, "images", "project", pid, "upload", "-c", "label", img)
	if !strings.Contains(out, "label.jpg") || !strings.Contains(out, "/uploads/projects/"+pid+"/") {
		t.Fatalf("upload output: %q", out)
	}
	if out := e.mustRun(t, "images", "project", pid, "list"); strings.Contains(out, "label.jpg") {
		t.Fatalf("default category should not show label images: %q", out)
	}
	if _, err := e.run(t, "images", "project", pid, "upload", "-c", "label", filepath.Join(t.TempDir(), "missing.jpg")); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("missing file: want validation error, got %v", err)
	}
	if _, err := e.run(t, "images", "project", pid, "list", "-c", "sample_labels"); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("foreign category: want validation error, got %v", err)
	}
}

func TestConfigSetAPI(t *testing.T) {
	e := newCLIEnv(t)
	if _, err := e.run(t, "config", "set-api", "not a url"); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
	e.mustRun(t, "config", "set-api", "https://example.test/api/")
	path, _ := config.ConfigPath()
	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if cfg.APIBase() != "https://example.test/api" {
		t.Fatalf("api base = %q", cfg.APIBase())
	}
}

func TestDescribe(t *testing.T) {
	if got := describe(apperr.Server("GET /x", 500, "boom")); got != "boom" {
		t.Fatalf("server error: %q", got)
	}
	if got := describe(errors.New("plain")); got != "plain" {
		t.Fatalf("plain error: %q", got)
	}
}
