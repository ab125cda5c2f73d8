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
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"takip/internal/domain"
	"takip/internal/gallery"
	"takip/internal/lineitems"
	"takip/internal/telemetry"
)

// items edits one project collection per invocation: open, apply one change, save.
func (a *app) items(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usageErr("items <panels|consumables> <project-id> [list|add|set|remove] ...")
	}
	kind, err := parseCatalog(args[0])
	if err != nil {
		return err
	}
	projectID, err := parseID(args[1], "project id")
	if err != nil {
		return err
	}
	if kind == domain.DefinitionPanels {
		return editCollection(ctx, a, lineitems.NewPanelEditor(a.client, projectID), args[2:], func(p domain.PanelItem) string {
			return fmt.Sprintf("%g\t%g\t%g\t%g\t%g", p.Qty, p.WidthCm, p.HeightCm, p.Sqm, p.WeightKg)
		}, "QTY\tWIDTH_CM\tHEIGHT_CM\tSQM\tWEIGHT_KG")
	}
	return editCollection(ctx, a, lineitems.NewConsumableEditor(a.client, projectID), args[2:], func(c domain.ConsumableItem) string {
		return fmt.Sprintf("%g", c.Qty)
	}, "QTY")
}

func editCollection[T any](ctx context.Context, a *app, ed *lineitems.Editor[T], args []string, row func(T) string, header string) error {
	if err := ed.Open(ctx); err != nil {
		return err
	}
	action := "list"
	if len(args) > 0 {
		action = args[0]
	}
	switch action {
	case "list":
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "ROW\tDEFINITION\t"+header)
		for i, r := range ed.Rows() {
			_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, ed.RowDefinitionName(i), row(r))
		}
		return tw.Flush()
	case "add":
		if err := ed.AddRow(); err != nil {
			return err
		}
		if err := applyAssignments(ed, ed.Len()-1, args[1:]); err != nil {
			return err
		}
	case "set":
		if len(args) < 3 {
			return usageErr("items ... set <row> field=value ...")
		}
		idx, err := rowIndex(args[1])
		if err != nil {
			return err
		}
		if err := applyAssignments(ed, idx, args[2:]); err != nil {
			return err
		}
	case "remove":
		if len(args) != 2 {
			return usageErr("items ... remove <row>")
		}
		idx, err := rowIndex(args[1])
		if err != nil {
			return err
		}
		if idx >= ed.Len() {
			return usageErr("row %s does not exist", args[1])
		}
		ed.RemoveRow(idx)
	default:
		return usageErr("unknown items action %q", action)
	}
	if err := ed.Save(ctx); err != nil {
		return err
	}
	telemetry.Event(telemetry.EventCollectionSaved, map[string]any{"rows": ed.Len()})
	a.printf("Saved %d row(s)\n", ed.Len())
	return nil
}

// rowIndex converts a 1-based row number to an index.
func rowIndex(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, usageErr("invalid row %q", s)
	}
	return n - 1, nil
}

// applyAssignments applies field=value pairs; the reference field takes a definition id.
func applyAssignments[T any](ed *lineitems.Editor[T], idx int, pairs []string) error {
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return usageErr("expected field=value, got %q (fields: %s)", p, fieldList(ed.Fields()))
		}
		if err := ed.EditField(idx, lineitems.Field(strings.TrimSpace(k)), v); err != nil {
			return err
		}
	}
	return nil
}

func fieldList(fs []lineitems.Field) string {
	s := make([]string, len(fs))
	for i, f := range fs {
		s[i] = string(f)
	}
	return strings.Join(s, ", ")
}

func parseOwner(s string) (domain.OwnerKind, error) {
	k := domain.OwnerKind(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s"))
	if !k.Valid() {
		return "", usageErr("owner must be project or sample, got %q", s)
	}
	return k, nil
}

func (a *app) images(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return usageErr("images <project|sample> <id> list|upload|remove ...")
	}
	kind, err := parseOwner(args[0])
	if err != nil {
		return err
	}
	ownerID, err := parseID(args[1], "id")
	if err != nil {
		return err
	}
	g, err := gallery.New(a.client, kind, ownerID)
	if err != nil {
		return err
	}

	fs := newFlags("images " + args[2])
	category := fs.StringP("category", "c", string(kind.DefaultCategory()), "gallery category ("+categoryList(kind)+")")
	if err := parseFlags(fs, args[3:]); err != nil {
		return err
	}
	cat := domain.Category(*category)
	rest := fs.Args()

	switch args[2] {
	case "list":
		if err := g.SwitchCategory(ctx, cat); err != nil {
			return err
		}
		a.printAssets(g)
		return nil
	case "upload":
		if err := g.SwitchCategory(ctx, cat); err != nil {
			return err
		}
		if err := g.UploadPicked(ctx, gallery.PathPicker(rest), cat); err != nil {
			return err
		}
		if len(rest) == 0 {
			a.printf("No files given; nothing uploaded\n")
			return nil
		}
		telemetry.Event(telemetry.EventAssetsUploaded, map[string]any{"files": len(rest), "category": string(cat)})
		a.printAssets(g)
		return nil
	case "remove":
		if len(rest) != 1 {
			return usageErr("images ... remove <image-id> [--category c]")
		}
		id, err := parseID(rest[0], "image id")
		if err != nil {
			return err
		}
		if err := g.SwitchCategory(ctx, cat); err != nil {
			return err
		}
		if err := g.Remove(ctx, id); err != nil {
			return err
		}
		telemetry.Event(telemetry.EventAssetRemoved, nil)
		a.printf("Removed image %d\n", id)
		return nil
	}
	return usageErr("unknown images action %q", args[2])
}

func (a *app) printAssets(g *gallery.Gallery) {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "ID\tCATEGORY\tNAME\tCREATED\tURL\n")
	for _, as := range g.Assets() {
		name := as.OriginalName
		if name == "" {
			name = filepath.Base(as.StoragePath)
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", as.ID, as.Category, name, as.CreatedAt, g.ResolveURL(as.StoragePath))
	}
	_ = tw.Flush()
}

func categoryList(kind domain.OwnerKind) string {
	cs := kind.Categories()
	s := make([]string, len(cs))
	for i, c := range cs {
		s[i] = string(c)
	}
	return strings.Join(s, ", ")
}
