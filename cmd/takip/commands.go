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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"takip/internal/apiclient"
	"takip/internal/apperr"
	"takip/internal/config"
	"takip/internal/domain"
	applog "takip/internal/log"
	"takip/internal/session"
	"takip/internal/telemetry"
	"takip/internal/version"
)

var errUsage = errors.New("invalid usage")

func usageErr(format string, a ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, a...), errUsage)
}

// app is the wired client core for one invocation.
type app struct {
	cfg    config.AppConfig
	client *apiclient.Client
	sess   *session.Manager
	out    io.Writer
	log    *slog.Logger
}

func newApp(ctx context.Context, cfg config.AppConfig, out io.Writer) (*app, error) {
	store, err := cfg.OpenCredentials()
	if err != nil {
		return nil, err
	}
	bearer := apiclient.NewBearer()
	a := &app{
		cfg:    cfg,
		client: apiclient.New(cfg.APIBase(), bearer),
		sess:   session.New(store, bearer),
		out:    out,
		log:    applog.WithComponent("cli"),
	}
	a.sess.Bootstrap(ctx)
	return a, nil
}

func (a *app) requireSession() error {
	if !a.sess.Authenticated() {
		return apperr.State("cli", "not signed in; run 'takip login' first")
	}
	return nil
}

func (a *app) printf(format string, args ...any) { _, _ = fmt.Fprintf(a.out, format, args...) }

func run(ctx context.Context, cfg config.AppConfig, args []string, out io.Writer) error {
	if len(args) == 0 {
		return usageErr("command required")
	}
	switch args[0] {
	case "version", "--version", "-v":
		_, _ = fmt.Fprintln(out, version.String())
		return nil
	case "help", "--help", "-h":
		usage(out)
		return nil
	case "config":
		return runConfig(cfg, args[1:], out)
	}

	a, err := newApp(ctx, cfg, out)
	if err != nil {
		return err
	}
	rest := args[1:]
	switch args[0] {
	case "login":
		return a.login(ctx, rest)
	case "logout":
		return a.logout()
	case "whoami":
		return a.whoami()
	case "ping":
		return a.ping(ctx)
	}
	if err := a.requireSession(); err != nil {
		return err
	}
	switch args[0] {
	case "definitions":
		return a.definitions(ctx, rest)
	case "projects":
		return a.projects(ctx, rest)
	case "samples":
		return a.samples(ctx, rest)
	case "items":
		return a.items(ctx, rest)
	case "images":
		return a.images(ctx, rest)
	}
	return usageErr("unknown command %q", args[0])
}

func runConfig(cfg config.AppConfig, args []string, out io.Writer) error {
	if len(args) == 0 || args[0] == "show" {
		_, _ = fmt.Fprintf(out, "api base:     %s\ncredentials:  %s\nlog level:    %s\ntelemetry:    %t\n",
			cfg.APIBase(), cfg.Credentials.Backend, cfg.Logging.Level, cfg.General.TelemetryOptIn)
		return nil
	}
	if args[0] != "set-api" || len(args) != 2 {
		return usageErr("config show | config set-api <url>")
	}
	if err := cfg.SetAPIBase(args[1]); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	_, _ = fmt.Fprintln(out, "API base set to", cfg.APIBase())
	return nil
}

func newFlags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return usageErr("%s: %v", fs.Name(), err)
	}
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := newFlags("login")
	user := fs.StringP("user", "u", "", "username")
	pass := fs.StringP("password", "p", "", "password (default $TAKIP_PASSWORD)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *pass == "" {
		*pass = os.Getenv("TAKIP_PASSWORD")
	}
	if err := a.sess.Login(ctx, a.client, *user, *pass); err != nil {
		return err
	}
	u, _ := a.sess.Identity()
	telemetry.Event(telemetry.EventSignedIn, map[string]any{"role": string(u.Role)})
	a.printf("Signed in as %s (%s)\n", u.Username, u.Role)
	return nil
}

func (a *app) logout() error {
	was := a.sess.Authenticated()
	if err := a.sess.Logout(); err != nil {
		return err
	}
	if was {
		telemetry.Event(telemetry.EventSignedOut, nil)
		a.printf("Signed out\n")
	}
	return nil
}

func (a *app) whoami() error {
	u, ok := a.sess.Identity()
	if !ok {
		a.printf("Not signed in\n")
		return nil
	}
	a.printf("%s (id %d, role %s)\n", u.Username, u.ID, u.Role)
	return nil
}

func (a *app) ping(ctx context.Context) error {
	ts, err := a.client.Ping(ctx)
	if err != nil {
		return err
	}
	a.printf("%s ok, server time %s\n", a.client.BaseURL(), ts)
	return nil
}

func parseCatalog(s string) (domain.DefinitionKind, error) {
	k := domain.DefinitionKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", usageErr("catalog must be panels or consumables, got %q", s)
	}
	return k, nil
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, usageErr("invalid %s %q", what, s)
	}
	return id, nil
}

func (a *app) definitions(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return usageErr("definitions <panels|consumables> list|add|rename|delete")
	}
	kind, err := parseCatalog(args[0])
	if err != nil {
		return err
	}
	action := "list"
	if len(args) > 1 {
		action = args[1]
	}
	switch {
	case action == "list":
		defs, err := a.client.ListDefinitions(ctx, kind)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "ID\tNAME")
		for _, d := range defs {
			_, _ = fmt.Fprintf(tw, "%d\t%s\n", d.ID, d.Name)
		}
		return tw.Flush()
	case action == "add" && len(args) == 3:
		d, err := a.client.CreateDefinition(ctx, kind, args[2])
		if err != nil {
			return err
		}
		a.printf("Created %s #%d %s\n", kind, d.ID, d.Name)
		return nil
	case action == "rename" && len(args) == 4:
		id, err := parseID(args[2], "id")
		if err != nil {
			return err
		}
		return a.client.RenameDefinition(ctx, kind, id, args[3])
	case action == "delete" && len(args) == 3:
		id, err := parseID(args[2], "id")
		if err != nil {
			return err
		}
		return a.client.DeleteDefinition(ctx, kind, id)
	}
	return usageErr("definitions %s list | add <name> | rename <id> <name> | delete <id>", kind)
}

func listFlags(name string, args []string) (string, int, bool, error) {
	fs := newFlags(name)
	q := fs.StringP("q", "q", "", "search text")
	limit := fs.IntP("limit", "n", apiclient.DefaultPageSize, "page size")
	all := fs.Bool("all", false, "load every page")
	if err := parseFlags(fs, args); err != nil {
		return "", 0, false, err
	}
	return *q, *limit, *all, nil
}

// loadPages fills p with the first page, or with every page when all is set.
func loadPages[T any](ctx context.Context, p *apiclient.Pager[T], q string, all bool) error {
	if err := p.Reset(ctx, q); err != nil {
		return err
	}
	for all && p.HasMore() {
		if err := p.Next(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) projects(ctx context.Context, args []string) error {
	q, limit, all, err := listFlags("projects", args)
	if err != nil {
		return err
	}
	p := apiclient.NewPager[domain.Project](a.client.ListProjects, limit)
	if err := loadPages(ctx, p, q, all); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tNO\tDATE\tCOMPANY\tNAME\tSTATUS")
	for _, pr := range p.Items() {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", pr.ID, pr.ProjectNo, pr.ProjectDate, pr.CompanyName, pr.ProjectName, pr.Status)
	}
	_ = tw.Flush()
	a.printf("%d of %d\n", len(p.Items()), p.Total())
	return nil
}

func (a *app) samples(ctx context.Context, args []string) error {
	q, limit, all, err := listFlags("samples", args)
	if err != nil {
		return err
	}
	p := apiclient.NewPager[domain.Sample](a.client.ListSamples, limit)
	if err := loadPages(ctx, p, q, all); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tNO\tDATE\tNAME\tSTATUS")
	for _, s := range p.Items() {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", s.ID, s.SampleNo, s.SampleDate, s.SampleName, s.Status)
	}
	_ = tw.Flush()
	a.printf("%d of %d\n", len(p.Items()), p.Total())
	return nil
}
