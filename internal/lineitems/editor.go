/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package lineitems edits a project's child collection of line items (panels or consumables)
// against the catalog of definitions those items reference.
//
// The remote store only supports replacing a whole collection, so an Editor loads the
// collection once, applies edits in memory, and commits everything with a single PUT.
// Concurrent saves for the same parent from different editors are last-write-wins.
package lineitems

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"golang.org/x/sync/errgroup"

	"takip/internal/apiclient"
	"takip/internal/apperr"
	"takip/internal/domain"
	applog "takip/internal/log"
)

// Remote is the subset of the request layer an Editor needs.
type Remote interface {
	ListDefinitions(ctx context.Context, kind domain.DefinitionKind) ([]domain.Definition, error)
	Get(ctx context.Context, path string, dest any, opts ...apiclient.CallOption) error
	Put(ctx context.Context, path string, body, dest any, opts ...apiclient.CallOption) error
}

// Field names an editable numeric column, using its wire name.
type Field string

// Binding describes one kind of line item: where it lives, how it is decoded from the
// server's loosely typed rows, and how it is edited and encoded.
type Binding[T any] struct {
	// Name is the collection segment under /projects/{id}/.
	Name    string
	Catalog domain.DefinitionKind
	// Fields lists the editable columns; RefField is the one holding the definition id.
	Fields   []Field
	RefField Field
	// Decode normalises a raw row; ok=false rejects it.
	Decode func(raw json.RawMessage) (row T, ok bool)
	New    func(def domain.Definition) T
	Set    func(row *T, f Field, v float64)
	Ref    func(row T) int64
	Encode func(row T) any
}

func (b Binding[T]) path(parentID int64) string {
	return "/projects/" + strconv.FormatInt(parentID, 10) + "/" + b.Name
}

// Editor is one editing session for one parent's collection. It is not safe for
// concurrent use; callers issue one operation at a time.
type Editor[T any] struct {
	remote   Remote
	b        Binding[T]
	parentID int64
	log      *slog.Logger

	defs   []domain.Definition
	rows   []T
	opened bool
	done   bool
}

// NewEditor creates an editor for parentID. Call Open before anything else.
func NewEditor[T any](remote Remote, b Binding[T], parentID int64) *Editor[T] {
	return &Editor[T]{
		remote:   remote,
		b:        b,
		parentID: parentID,
		log:      applog.WithComponent("lineitems").With(slog.String("collection", b.Name), slog.Int64("parent", parentID)),
	}
}

// Open fetches the definition catalog and the current collection concurrently. State is
// replaced only when both succeed.
func (e *Editor[T]) Open(ctx context.Context) error {
	l := applog.WithOperation(e.log, "open")
	var (
		defs []domain.Definition
		raw  struct {
			Items []json.RawMessage `json:"items"`
		}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := e.remote.ListDefinitions(gctx, e.b.Catalog)
		if err != nil {
			return err
		}
		defs = d
		return nil
	})
	g.Go(func() error {
		return e.remote.Get(gctx, e.b.path(e.parentID), &raw)
	})
	if err := g.Wait(); err != nil {
		l.Warn("load failed", slog.Any("err", err))
		return err
	}

	rows := make([]T, 0, len(raw.Items))
	for i, r := range raw.Items {
		row, ok := e.b.Decode(r)
		if !ok {
			l.Warn("dropping malformed row", slog.Int("index", i))
			continue
		}
		rows = append(rows, row)
	}
	e.defs = defs
	e.rows = rows
	e.opened = true
	e.done = false
	l.Debug("opened", slog.Int("definitions", len(defs)), slog.Int("rows", len(rows)))
	return nil
}

// AddRow appends a row referencing the first definition with quantity 1 and zero measurements.
func (e *Editor[T]) AddRow() error {
	if len(e.defs) == 0 {
		return apperr.State("lineitems.add_row", fmt.Sprintf("no %s definitions exist yet; create one first", e.b.Catalog))
	}
	e.rows = append(e.rows, e.b.New(e.defs[0]))
	return nil
}

// RemoveRow deletes the row at index; out-of-range indexes are ignored.
func (e *Editor[T]) RemoveRow(index int) {
	if index < 0 || index >= len(e.rows) {
		return
	}
	e.rows = slices.Delete(e.rows, index, index+1)
}

// EditField coerces raw to a number and stores it in one row. Unparsable input becomes 0.
func (e *Editor[T]) EditField(index int, f Field, raw any) error {
	if !slices.Contains(e.b.Fields, f) {
		return apperr.Validation("lineitems.edit_field", fmt.Sprintf("unknown field %q", f))
	}
	if index < 0 || index >= len(e.rows) {
		return apperr.State("lineitems.edit_field", fmt.Sprintf("row %d does not exist", index))
	}
	e.b.Set(&e.rows[index], f, domain.ToNumeric(raw))
	return nil
}

// Save replaces the remote collection with the in-memory one. On success the editing
// session ends; on failure nothing changes and the caller may retry.
func (e *Editor[T]) Save(ctx context.Context) error {
	if !e.opened {
		return apperr.State("lineitems.save", "collection has not been loaded")
	}
	if e.done {
		return apperr.State("lineitems.save", "editing session already ended")
	}
	items := make([]any, len(e.rows))
	for i, r := range e.rows {
		items[i] = e.b.Encode(r)
	}
	body := map[string]any{"items": items}
	if err := e.remote.Put(ctx, e.b.path(e.parentID), body, nil); err != nil {
		applog.WithOperation(e.log, "save").Warn("save failed", slog.Any("err", err))
		return err
	}
	e.done = true
	e.log.Info("collection replaced", slog.Int("rows", len(items)))
	return nil
}

// Rows returns a copy of the current collection.
func (e *Editor[T]) Rows() []T { return slices.Clone(e.rows) }

// Len is the number of rows.
func (e *Editor[T]) Len() int { return len(e.rows) }

// Definitions returns a copy of the loaded catalog.
func (e *Editor[T]) Definitions() []domain.Definition { return slices.Clone(e.defs) }

// Done reports whether a save has ended the session.
func (e *Editor[T]) Done() bool { return e.done }

// Fields lists the editable columns.
func (e *Editor[T]) Fields() []Field { return slices.Clone(e.b.Fields) }

// DefinitionName returns the catalog name for id, or "#id" when it is not in the catalog.
func (e *Editor[T]) DefinitionName(id int64) string {
	for _, d := range e.defs {
		if d.ID == id {
			return d.Name
		}
	}
	return "#" + strconv.FormatInt(id, 10)
}

// RowDefinitionName resolves the definition referenced by the row at index.
func (e *Editor[T]) RowDefinitionName(index int) string {
	if index < 0 || index >= len(e.rows) {
		return ""
	}
	return e.DefinitionName(e.b.Ref(e.rows[index]))
}
