/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Command takip is a terminal client for the production-tracking API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"takip/internal/apperr"
	"takip/internal/config"
	"takip/internal/crash"
	applog "takip/internal/log"
	"takip/internal/telemetry"
	"takip/internal/version"
)

func usage(w io.Writer) {
	_, _ = fmt.Fprintf(w, `takip %s

Usage:
  takip version                                         Show version
  takip login --user <name> [--password <pw>]           Sign in (password also from TAKIP_PASSWORD)
  takip logout                                          Sign out and forget the stored token
  takip whoami                                          Show the signed-in user
  takip ping                                            Check the API
  takip config show | set-api <url>                     Show or change configuration
  takip definitions <panels|consumables> list|add|rename|delete ...
  takip projects [--q text] [--limit n] [--all]         List projects
  takip samples [--q text] [--limit n] [--all]          List samples
  takip items <panels|consumables> <project-id> [list|add|set|remove] ...
  takip images <project|sample> <id> list|upload|remove ...
`, version.String())
}

func main() {
	cfg, cfgErr := config.Load()
	applog.Init(cfg.LogOptions())
	l := applog.WithComponent("cli")
	if cfgErr != nil {
		l.Warn("config not loaded; using defaults", slog.Any("err", cfgErr))
	}

	tc := telemetry.FromEnv()
	tc.OptIn = tc.OptIn || cfg.General.TelemetryOptIn
	telemetry.NewDefault(tc)

	var cmd string
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	defer crash.Recover(&crash.Context{Command: cmd, Args: os.Args[1:]})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, cfg, os.Args[1:], os.Stdout)
	stop()
	telemetry.Flush(context.Background())

	if err != nil {
		l.Debug("command failed", slog.String("command", cmd), slog.Any("err", err))
		_, _ = fmt.Fprintln(os.Stderr, "Error:", describe(err))
		if errors.Is(err, errUsage) {
			usage(os.Stderr)
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// describe renders an error for the terminal without operation prefixes.
func describe(err error) string {
	switch apperr.KindOf(err) {
	case apperr.KindTransport:
		return "cannot reach the server: " + apperr.Message(err)
	case apperr.KindPermission:
		return "permission denied: " + apperr.Message(err)
	case apperr.KindUnknown:
		return err.Error()
	default:
		return apperr.Message(err)
	}
}
