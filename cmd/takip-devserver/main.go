/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Command takip-devserver runs a local production-tracking API for development.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"takip/internal/config"
	"takip/internal/crash"
	"takip/internal/devserver"
	applog "takip/internal/log"
	"takip/internal/version"
)

func main() {
	cfg, cfgErr := config.Load()
	applog.Init(cfg.LogOptions())
	l := applog.WithComponent("devserver")
	if cfgErr != nil {
		l.Warn("config not loaded; using defaults", slog.Any("err", cfgErr))
	}
	defer crash.Recover(&crash.Context{Command: "takip-devserver", Args: os.Args[1:]})

	dc := cfg.DevServer
	fs := pflag.NewFlagSet("takip-devserver", pflag.ContinueOnError)
	fs.StringVar(&dc.Addr, "addr", dc.Addr, "listen address")
	fs.StringVar(&dc.DSN, "dsn", dc.DSN, "sqlite path/file: URI or postgres:// URL")
	fs.StringVar(&dc.UploadDir, "upload-dir", dc.UploadDir, "directory for uploaded images")
	ttl := fs.Duration("token-ttl", 30*24*time.Hour, "lifetime of issued tokens")
	seedUser := fs.String("seed-user", "", "create or reset an admin user with this name")
	seedPass := fs.String("seed-password", os.Getenv("TAKIP_SEED_PASSWORD"), "password for --seed-user (default $TAKIP_SEED_PASSWORD)")
	showVersion := fs.BoolP("version", "v", false, "print version and exit")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if *seedUser != "" && *seedPass == "" {
		_, _ = fmt.Fprintln(os.Stderr, "Error: --seed-user requires --seed-password or TAKIP_SEED_PASSWORD")
		os.Exit(2)
	}
	if s := os.Getenv("TAKIP_DEV_AUTH_SECRET"); s != "" {
		dc.AuthSecret = s
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err := devserver.Start(ctx, devserver.Config{
		Addr:       dc.Addr,
		DSN:        dc.DSN,
		UploadDir:  dc.UploadDir,
		AuthSecret: dc.AuthSecret,
		TokenTTL:   *ttl,
	}, *seedUser, *seedPass)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("devserver stopped", slog.Any("err", err))
		os.Exit(1)
	}
}
