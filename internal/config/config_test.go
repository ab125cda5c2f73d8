/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"

	"takip/internal/apperr"
	"takip/internal/credstore"
)

func isolate(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfigPath, p)
	for _, k := range []string{EnvAPIBase, EnvCredBackend, EnvCredFile, EnvTelemetryOptIn, EnvDevAddr, EnvDevDSN, EnvLogLevel, EnvLogFormat, EnvLogSource, EnvLogFile} {
		t.Setenv(k, "")
	}
	return p
}

func TestDefaultsWithoutFile(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got, want := cfg.APIBase(), DefaultAPIBase; got != want {
		t.Fatalf("APIBase() = %q, want %q", got, want)
	}
	if cfg.Credentials.Backend != credstore.BackendKeyring {
		t.Fatalf("Credentials.Backend = %q", cfg.Credentials.Backend)
	}
}

func TestEnvOverridesAPIBase(t *testing.T) {
	isolate(t)
	t.Setenv(EnvAPIBase, "https://example.test:8443/app/api///")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got, want := cfg.APIBase(), "https://example.test:8443/app/api"; got != want {
		t.Fatalf("APIBase() = %q, want %q", got, want)
	}
	if env, ok := EnvOverrideFor("api.base_url"); !ok || env != EnvAPIBase {
		t.Fatalf("EnvOverrideFor(api.base_url) = %q, %v", env, ok)
	}
}

func TestPlaceholderIgnored(t *testing.T) {
	isolate(t)
	t.Setenv(EnvAPIBase, "${EXPO_PUBLIC_API_BASE}")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.APIBase() != DefaultAPIBase {
		t.Fatalf("placeholder leaked into APIBase(): %q", cfg.APIBase())
	}
}

func TestEnvOverridesTelemetry(t *testing.T) {
	isolate(t)
	t.Setenv(EnvTelemetryOptIn, "true")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.General.TelemetryOptIn {
		t.Fatalf("General.TelemetryOptIn expected true from env override")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	p := isolate(t)
	cfg := Defaults()
	if err := cfg.SetAPIBase(" http://10.0.2.2:8787/api/ "); err != nil {
		t.Fatalf("SetAPIBase: %v", err)
	}
	cfg.Credentials.Backend = credstore.BackendFile
	cfg.DevServer.AuthSecret = "s3cret"
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(p); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	got, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.API.BaseURL != "http://10.0.2.2:8787/api" || got.Credentials.Backend != "file" || got.DevServer.AuthSecret != "s3cret" {
		t.Fatalf("round trip = %#v", got)
	}
	if got.CredentialFile() != filepath.Join(filepath.Dir(p), "credentials.json") {
		t.Fatalf("CredentialFile() = %q", got.CredentialFile())
	}
	st, err := got.OpenCredentials()
	if err != nil {
		t.Fatalf("OpenCredentials: %v", err)
	}
	if _, ok := st.(*credstore.File); !ok {
		t.Fatalf("OpenCredentials() = %T, want *credstore.File", st)
	}
}

func TestSetAPIBaseRejectsBlank(t *testing.T) {
	cfg := Defaults()
	for _, v := range []string{"", "  ", "///", "not a url"} {
		if err := cfg.SetAPIBase(v); !apperr.IsKind(err, apperr.KindValidation) {
			t.Fatalf("SetAPIBase(%q) err = %v", v, err)
		}
	}
	if cfg.API.BaseURL != DefaultAPIBase {
		t.Fatalf("rejected value changed BaseURL to %q", cfg.API.BaseURL)
	}
}

func TestMalformedFile(t *testing.T) {
	p := isolate(t)
	if err := os.WriteFile(p, []byte("api: [unclosed"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load()
	if err == nil {
		t.Fatalf("Load() accepted malformed yaml")
	}
	if cfg.APIBase() != DefaultAPIBase {
		t.Fatalf("defaults not returned alongside error: %#v", cfg)
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "DEBUG"
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "/tmp/takip.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "/tmp/takip.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
	o := dst.LogOptions()
	if o.Level != "debug" || o.Format != "json" || !o.AddSource || o.File != "/tmp/takip.log" {
		t.Fatalf("LogOptions() = %#v", o)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	isolate(t)
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "X:/takip.log")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "X:/takip.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}
