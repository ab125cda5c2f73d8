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
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"takip/internal/apiclient"
	"takip/internal/apperr"
	"takip/internal/credstore"
	applog "takip/internal/log"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// The session token is never part of this file; it lives in the credential store.

type APIConfig struct {
	BaseURL string `yaml:"base_url"`
}

type CredentialsConfig struct {
	Backend string `yaml:"backend"` // "keyring" | "file"
	File    string `yaml:"file"`
}

type GeneralConfig struct {
	TelemetryOptIn bool `yaml:"telemetry_opt_in"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type DevServerConfig struct {
	Addr       string `yaml:"addr"`
	DSN        string `yaml:"dsn"`
	UploadDir  string `yaml:"upload_dir"`
	AuthSecret string `yaml:"auth_secret"`
}

type AppConfig struct {
	ConfigVersion int               `yaml:"config_version"`
	General       GeneralConfig     `yaml:"general"`
	API           APIConfig         `yaml:"api"`
	Credentials   CredentialsConfig `yaml:"credentials"`
	Logging       LoggingConfig     `yaml:"logging"`
	DevServer     DevServerConfig   `yaml:"devserver"`
}

// DefaultAPIBase is the production API used when nothing else is configured.
const DefaultAPIBase = "https://wolinux.com.tr/takip/api"

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false},
		API:           APIConfig{BaseURL: DefaultAPIBase},
		Credentials:   CredentialsConfig{Backend: credstore.BackendKeyring},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
		DevServer:     DevServerConfig{Addr: "127.0.0.1:8787", DSN: "file:takip-dev.db", UploadDir: "uploads"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath     = "TAKIP_CONFIG"
	EnvAPIBase        = "TAKIP_API_BASE"
	EnvCredBackend    = "TAKIP_CRED_BACKEND"
	EnvCredFile       = "TAKIP_CRED_FILE"
	EnvTelemetryOptIn = "TAKIP_TELEMETRY_OPT_IN"
	EnvDevAddr        = "TAKIP_DEV_ADDR"
	EnvDevDSN         = "TAKIP_DEV_DSN"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "TAKIP_LOG_LEVEL"
	EnvLogFormat = "TAKIP_LOG_FORMAT"
	EnvLogSource = "TAKIP_LOG_SOURCE"
	EnvLogFile   = "TAKIP_LOG_FILE"
)

// configDir returns the per-user directory holding config.yaml and the credential file.
func configDir() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "Takip")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "Takip")
	default: // linux and others
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			base = filepath.Join(x, "takip")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "takip")
		}
	}
	if base == "" || base == "Takip" || base == "takip" {
		return "", errors.New("cannot resolve config directory")
	}
	return base, nil
}

// ConfigPath returns the per-user config file path. TAKIP_CONFIG replaces it entirely.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
func Load() (AppConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Defaults()
		applyEnvOverrides(&cfg)
		return cfg, err
	}
	return LoadFrom(path)
}

// LoadFrom is Load for an explicit path. A missing file is not an error; a malformed one is.
func LoadFrom(path string) (AppConfig, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			applyEnvOverrides(&cfg)
			return cfg, err
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		applyEnvOverrides(&cfg)
		return cfg, err
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg)
}

// SaveTo writes cfg to path, creating parent directories.
func SaveTo(path string, cfg AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// SetAPIBase validates and stores a new API base address, normalised without trailing slashes.
func (c *AppConfig) SetAPIBase(v string) error {
	n := apiclient.NormalizeBase(v)
	if n == "" {
		return apperr.Validation("config.set_api_base", "api base address is required")
	}
	if !apiclient.IsAbsoluteURL(n) {
		return apperr.Validation("config.set_api_base", "api base address must be an absolute http(s) URL")
	}
	c.API.BaseURL = n
	return nil
}

// APIBase returns the effective, normalised API base.
func (c AppConfig) APIBase() string {
	if b := apiclient.NormalizeBase(c.API.BaseURL); b != "" && !isPlaceholder(b) {
		return b
	}
	return DefaultAPIBase
}

// LogOptions maps the logging section onto logger options.
func (c AppConfig) LogOptions() applog.Options {
	return applog.Options{
		Level:     c.Logging.Level,
		Format:    c.Logging.Format,
		AddSource: c.Logging.Source,
		File:      c.Logging.File,
	}
}

// CredentialFile returns the configured credential file or the default next to config.yaml.
func (c AppConfig) CredentialFile() string {
	if f := strings.TrimSpace(c.Credentials.File); f != "" {
		return f
	}
	if p, err := ConfigPath(); err == nil {
		return filepath.Join(filepath.Dir(p), "credentials.json")
	}
	return "takip-credentials.json"
}

// OpenCredentials opens the configured credential store backend.
func (c AppConfig) OpenCredentials() (credstore.Store, error) {
	return credstore.Open(strings.ToLower(strings.TrimSpace(c.Credentials.Backend)), c.CredentialFile())
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if v := apiclient.NormalizeBase(src.API.BaseURL); v != "" && !isPlaceholder(v) {
		dst.API.BaseURL = v
	}
	if v := strings.TrimSpace(src.Credentials.Backend); v != "" {
		dst.Credentials.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(src.Credentials.File); v != "" {
		dst.Credentials.File = v
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
	// devserver
	if v := strings.TrimSpace(src.DevServer.Addr); v != "" {
		dst.DevServer.Addr = v
	}
	if v := strings.TrimSpace(src.DevServer.DSN); v != "" {
		dst.DevServer.DSN = v
	}
	if v := strings.TrimSpace(src.DevServer.UploadDir); v != "" {
		dst.DevServer.UploadDir = v
	}
	if v := strings.TrimSpace(src.DevServer.AuthSecret); v != "" {
		dst.DevServer.AuthSecret = v
	}
}

// isPlaceholder spots unexpanded build-time interpolation such as "${TAKIP_API_BASE}".
func isPlaceholder(v string) bool {
	return strings.Contains(v, "${") || strings.Contains(v, "EXPO_PUBLIC_")
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvAPIBase)); v != "" && !isPlaceholder(v) {
		cfg.API.BaseURL = apiclient.NormalizeBase(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvCredBackend)); v != "" {
		cfg.Credentials.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvCredFile)); v != "" {
		cfg.Credentials.File = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvDevAddr)); v != "" {
		cfg.DevServer.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDevDSN)); v != "" {
		cfg.DevServer.DSN = v
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var envKeys = map[string]string{
	"api.base_url":             EnvAPIBase,
	"credentials.backend":      EnvCredBackend,
	"credentials.file":         EnvCredFile,
	"general.telemetry_opt_in": EnvTelemetryOptIn,
	"devserver.addr":           EnvDevAddr,
	"devserver.dsn":            EnvDevDSN,
	"logging.level":            EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":             EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := envKeys[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}
