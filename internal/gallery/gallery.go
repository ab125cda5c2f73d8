/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package gallery manages the images attached to one project or sample. A Gallery shows
// one category at a time and refreshes wholesale after every change.
package gallery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"takip/internal/apiclient"
	"takip/internal/apperr"
	"takip/internal/domain"
	applog "takip/internal/log"
)

// API is the subset of the request layer a Gallery needs.
type API interface {
	Get(ctx context.Context, path string, dest any, opts ...apiclient.CallOption) error
	Delete(ctx context.Context, path string, dest any, opts ...apiclient.CallOption) error
	PostMultipart(ctx context.Context, path string, fields []apiclient.FormField, files []apiclient.FormFile, dest any, opts ...apiclient.CallOption) error
	ResolveURL(storagePath string) string
}

// ErrNoFiles is wrapped by the validation error Upload returns for an empty file list.
var ErrNoFiles = errors.New("no files selected")

// Gallery holds the visible assets of one owner.
type Gallery struct {
	api     API
	kind    domain.OwnerKind
	ownerID int64
	log     *slog.Logger

	mu     sync.Mutex
	active domain.Category
	gen    uint64
	assets []domain.Asset
}

// New returns a gallery for the given owner, opened on the kind's default category.
// Nothing is fetched until Refresh or SwitchCategory.
func New(api API, kind domain.OwnerKind, ownerID int64) (*Gallery, error) {
	if !kind.Valid() {
		return nil, apperr.Validation("gallery.new", fmt.Sprintf("unknown owner kind %q", kind))
	}
	return &Gallery{
		api:     api,
		kind:    kind,
		ownerID: ownerID,
		active:  kind.DefaultCategory(),
		log:     applog.WithComponent("gallery").With(slog.String("owner", string(kind)), slog.Int64("owner_id", ownerID)),
	}, nil
}

// Active returns the active category.
func (g *Gallery) Active() domain.Category {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// Assets returns a copy of the visible set.
func (g *Gallery) Assets() []domain.Asset {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.assets)
}

// Categories lists the categories the owner kind allows.
func (g *Gallery) Categories() []domain.Category { return g.kind.Categories() }

func (g *Gallery) imagesPath() string {
	return "/" + g.kind.Collection() + "/" + strconv.FormatInt(g.ownerID, 10) + "/images"
}

func (g *Gallery) checkCategory(op string, c domain.Category) error {
	if !g.kind.Allows(c) {
		return apperr.Validation(op, fmt.Sprintf("category %q is not valid for a %s", c, g.kind))
	}
	return nil
}

// List fetches the assets of one category. The visible set is replaced only when category
// was active when the fetch was issued, is still active, and no newer fetch of the active
// category has been issued since. Other results are returned but not shown.
func (g *Gallery) List(ctx context.Context, category domain.Category) ([]domain.Asset, error) {
	if err := g.checkCategory("gallery.list", category); err != nil {
		return nil, err
	}
	g.mu.Lock()
	forActive := category == g.active
	if forActive {
		g.gen++
	}
	gen := g.gen
	g.mu.Unlock()

	var res struct {
		Items []json.RawMessage `json:"items"`
	}
	path := g.imagesPath() + "?" + url.Values{"category": {string(category)}}.Encode()
	if err := g.api.Get(ctx, path, &res); err != nil {
		return nil, err
	}
	assets := make([]domain.Asset, 0, len(res.Items))
	for _, raw := range res.Items {
		a, ok := decodeAsset(raw, g.kind, g.ownerID, category)
		if !ok {
			g.log.Warn("dropping malformed asset", slog.String("category", string(category)))
			continue
		}
		assets = append(assets, a)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if !forActive || gen != g.gen || category != g.active {
		g.log.Debug("discarding stale listing", slog.String("category", string(category)), slog.String("active", string(g.active)))
		return assets, nil
	}
	g.assets = slices.Clone(assets)
	return assets, nil
}

// Refresh reloads the active category.
func (g *Gallery) Refresh(ctx context.Context) error {
	_, err := g.List(ctx, g.Active())
	return err
}

// SwitchCategory makes category active and loads it. When switches overlap, the last one
// issued determines what is visible.
func (g *Gallery) SwitchCategory(ctx context.Context, category domain.Category) error {
	if err := g.checkCategory("gallery.switch", category); err != nil {
		return err
	}
	g.mu.Lock()
	if g.active != category {
		g.active = category
		g.assets = nil
	}
	g.mu.Unlock()
	_, err := g.List(ctx, category)
	return err
}

// File is a local image chosen for upload. Name defaults to the path's base name.
type File struct {
	Path string
	Name string
}

// Upload posts all files under category as one multipart request, then reloads that
// category. An empty list is rejected without any request.
func (g *Gallery) Upload(ctx context.Context, category domain.Category, files []File) error {
	const op = "gallery.upload"
	if len(files) == 0 {
		return &apperr.Error{Kind: apperr.KindValidation, Op: op, Msg: "select at least one image", Err: ErrNoFiles}
	}
	if err := g.checkCategory(op, category); err != nil {
		return err
	}
	parts := make([]apiclient.FormFile, 0, len(files))
	for _, f := range files {
		name := fileName(f)
		path := f.Path
		parts = append(parts, apiclient.FormFile{
			Field:       "images[]",
			FileName:    name,
			ContentType: MediaType(name),
			Open:        func() (io.ReadCloser, error) { return os.Open(path) },
		})
	}
	fields := []apiclient.FormField{{Name: "category", Value: string(category)}}
	if err := g.api.PostMultipart(ctx, g.imagesPath(), fields, parts, nil); err != nil {
		return classifyFileErr(op, err)
	}
	g.log.Info("uploaded", slog.String("category", string(category)), slog.Int("files", len(files)))
	_, err := g.List(ctx, category)
	return err
}

// UploadPicked asks picker for files and uploads them. A cancelled pick is a no-op.
func (g *Gallery) UploadPicked(ctx context.Context, picker Picker, category domain.Category) error {
	files, err := picker.Pick(ctx)
	if err != nil {
		return classifyFileErr("gallery.pick", err)
	}
	if len(files) == 0 {
		return nil
	}
	return g.Upload(ctx, category, files)
}

// Remove deletes one asset and reloads the active category.
func (g *Gallery) Remove(ctx context.Context, assetID int64) error {
	if assetID <= 0 {
		return apperr.Validation("gallery.remove", "asset id is required")
	}
	if err := g.api.Delete(ctx, g.imagesPath()+"/"+strconv.FormatInt(assetID, 10), nil); err != nil {
		return err
	}
	g.log.Info("removed", slog.Int64("asset", assetID))
	return g.Refresh(ctx)
}

// ResolveURL turns an asset's storage path into a fetchable address.
func (g *Gallery) ResolveURL(storagePath string) string {
	return g.api.ResolveURL(storagePath)
}

// MediaType infers an image media type from the file extension.
func MediaType(name string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

var now = time.Now

func fileName(f File) string {
	if n := strings.TrimSpace(f.Name); n != "" {
		return n
	}
	if b := filepath.Base(f.Path); b != "" && b != "." && b != string(filepath.Separator) {
		return b
	}
	return "image_" + strconv.FormatInt(now().UnixMilli(), 10) + ".jpg"
}

func classifyFileErr(op string, err error) error {
	var ae *apperr.Error
	switch {
	case errors.As(err, &ae):
		return err
	case errors.Is(err, fs.ErrPermission):
		return apperr.Permission(op, "permission required to read the selected images", err)
	case errors.Is(err, fs.ErrNotExist):
		return &apperr.Error{Kind: apperr.KindValidation, Op: op, Msg: "selected image no longer exists", Err: err}
	default:
		return err
	}
}
