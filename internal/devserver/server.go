/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package devserver is a local implementation of the production-tracking API used for
// development and integration tests. It stores data in sqlite or postgres and uploaded
// images on local disk.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"takip/internal/domain"
	applog "takip/internal/log"
	"takip/internal/version"
)

// Config holds server configuration.
type Config struct {
	Addr       string // http bind address, e.g. "127.0.0.1:8787"
	DSN        string
	UploadDir  string
	AuthSecret string
	TokenTTL   time.Duration
}

const devSecret = "dev-secret-change-me"

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = "127.0.0.1:8787"
	}
	if c.UploadDir == "" {
		c.UploadDir = "uploads"
	}
	if c.AuthSecret == "" {
		c.AuthSecret = devSecret
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = 30 * 24 * time.Hour
	}
	return c
}

// Server serves the API under /api, uploaded files under /uploads and metrics at /metrics.
type Server struct {
	cfg     Config
	store   *Store
	db      *DB
	schemas validators
	metrics *metrics
	log     *slog.Logger
	router  *mux.Router
}

// New builds a server over an open database.
func New(cfg Config, db *DB) (*Server, error) {
	cfg = cfg.withDefaults()
	schemas, err := compileSchemas()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	s := &Server{
		cfg:     cfg,
		store:   NewStore(db),
		db:      db,
		schemas: schemas,
		metrics: newMetrics(),
		log:     applog.WithComponent("devserver"),
	}
	if cfg.AuthSecret == devSecret {
		s.log.Warn("auth secret not set; using insecure dev secret")
	}
	s.router = s.routes()
	return s, nil
}

// Store exposes the data layer, e.g. for seeding users.
func (s *Server) Store() *Store { return s.store }

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.metrics.middleware)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db not ready"))
			return
		}
		_, _ = w.Write([]byte("ready"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(version.String()))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.handler()).Methods(http.MethodGet)
	r.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.cfg.UploadDir))))

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/ping", s.handlePing).Methods(http.MethodGet)
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)

	const catalog = "/{catalog:panels|consumables}"
	api.HandleFunc(catalog, s.withAuth(s.handleListDefinitions)).Methods(http.MethodGet)
	api.HandleFunc(catalog, s.withEditor(s.handleCreateDefinition)).Methods(http.MethodPost)
	api.HandleFunc(catalog+"/{id:[0-9]+}", s.withEditor(s.handleRenameDefinition)).Methods(http.MethodPut)
	api.HandleFunc(catalog+"/{id:[0-9]+}", s.withEditor(s.handleDeleteDefinition)).Methods(http.MethodDelete)

	api.HandleFunc("/projects", s.withAuth(s.handleListProjects)).Methods(http.MethodGet)
	api.HandleFunc("/projects", s.withEditor(s.handleCreateProject)).Methods(http.MethodPost)
	api.HandleFunc("/projects/{id:[0-9]+}", s.withAuth(s.handleGetProject)).Methods(http.MethodGet)
	api.HandleFunc("/projects/{id:[0-9]+}", s.withEditor(s.handleUpdateProject)).Methods(http.MethodPut)
	api.HandleFunc("/projects/{id:[0-9]+}", s.withEditor(s.handleDeleteProject)).Methods(http.MethodDelete)
	api.HandleFunc("/projects/{id:[0-9]+}"+catalog, s.withAuth(s.handleGetItems)).Methods(http.MethodGet)
	api.HandleFunc("/projects/{id:[0-9]+}"+catalog, s.withEditor(s.handleReplaceItems)).Methods(http.MethodPut)

	api.HandleFunc("/samples", s.withAuth(s.handleListSamples)).Methods(http.MethodGet)
	api.HandleFunc("/samples", s.withEditor(s.handleCreateSample)).Methods(http.MethodPost)
	api.HandleFunc("/samples/{id:[0-9]+}", s.withAuth(s.handleGetSample)).Methods(http.MethodGet)
	api.HandleFunc("/samples/{id:[0-9]+}", s.withEditor(s.handleUpdateSample)).Methods(http.MethodPut)
	api.HandleFunc("/samples/{id:[0-9]+}", s.withEditor(s.handleDeleteSample)).Methods(http.MethodDelete)

	const images = "/{owner:projects|samples}/{id:[0-9]+}/images"
	api.HandleFunc(images, s.withAuth(s.handleListImages)).Methods(http.MethodGet)
	api.HandleFunc(images, s.withEditor(s.handleUploadImages)).Methods(http.MethodPost)
	api.HandleFunc(images+"/{imageId:[0-9]+}", s.withEditor(s.handleDeleteImage)).Methods(http.MethodDelete)

	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	return r
}

// Start opens the database, seeds an optional admin and serves until ctx is cancelled.
func Start(ctx context.Context, cfg Config, seedUser, seedPassword string) error {
	db, err := OpenDB(ctx, cfg.DSN)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	s, err := New(cfg, db)
	if err != nil {
		return err
	}
	if seedUser != "" {
		if _, err := s.store.EnsureUser(ctx, seedUser, seedPassword, domain.RoleAdmin); err != nil {
			return fmt.Errorf("seed user: %w", err)
		}
		s.log.Info("seeded admin user", slog.String("username", seedUser))
	}

	srv := &http.Server{Addr: s.cfg.Addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("devserver listening", slog.String("addr", s.cfg.Addr), slog.String("dialect", db.dialect.String()))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	}
}

// --- handlers ---

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "time": time.Now().Format("2006-01-02 15:04:05")})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	u, err := s.store.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(w, err)
		return
	}
	tok, err := signToken(s.cfg.AuthSecret, u, time.Now().Add(s.cfg.TokenTTL))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.log.Info("login", slog.String("username", u.Username))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "token": tok, "user": u})
}

func (s *Server) handleListDefinitions(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListDefinitions(r.Context(), catalogOf(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "items": items})
}

func (s *Server) definitionName(r *http.Request) (string, error) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &req); err != nil {
		return "", err
	}
	n := strings.TrimSpace(req.Name)
	if n == "" {
		return "", errors.New("name required")
	}
	return n, nil
}

func (s *Server) handleCreateDefinition(w http.ResponseWriter, r *http.Request) {
	name, err := s.definitionName(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	d, err := s.store.CreateDefinition(r.Context(), catalogOf(r), name)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "item": d})
}

func (s *Server) handleRenameDefinition(w http.ResponseWriter, r *http.Request) {
	name, err := s.definitionName(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.RenameDefinition(r.Context(), catalogOf(r), pathID(r, "id"), name); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleDeleteDefinition(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteDefinition(r.Context(), catalogOf(r), pathID(r, "id")); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func pageOf(r *http.Request) Page {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	return Page{Limit: limit, Offset: offset, Q: q.Get("q")}.normalized()
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	pg := pageOf(r)
	items, total, err := s.store.ListProjects(r.Context(), pg)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "items": items, "meta": domain.PageMeta{Total: total, Limit: pg.Limit, Offset: pg.Offset}})
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetProject(r.Context(), pathID(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "project": p})
}

func decodeProject(r *http.Request) (domain.Project, error) {
	var p domain.Project
	if err := decodeBody(r, &p); err != nil {
		return p, err
	}
	p = p.Normalize()
	return p, p.Validate()
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	p, err := decodeProject(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := s.store.CreateProject(r.Context(), p)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "project": created})
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	p, err := decodeProject(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := s.store.UpdateProject(r.Context(), pathID(r, "id"), p)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "project": updated})
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	paths, err := s.store.DeleteProject(r.Context(), pathID(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.removeFiles(paths)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleListSamples(w http.ResponseWriter, r *http.Request) {
	pg := pageOf(r)
	items, total, err := s.store.ListSamples(r.Context(), pg)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "items": items, "meta": domain.PageMeta{Total: total, Limit: pg.Limit, Offset: pg.Offset}})
}

func (s *Server) handleGetSample(w http.ResponseWriter, r *http.Request) {
	sm, err := s.store.GetSample(r.Context(), pathID(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "sample": sm})
}

func decodeSample(r *http.Request) (domain.Sample, error) {
	var sm domain.Sample
	if err := decodeBody(r, &sm); err != nil {
		return sm, err
	}
	sm = sm.Normalize()
	return sm, sm.Validate()
}

func (s *Server) handleCreateSample(w http.ResponseWriter, r *http.Request) {
	sm, err := decodeSample(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := s.store.CreateSample(r.Context(), sm)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "sample": created})
}

func (s *Server) handleUpdateSample(w http.ResponseWriter, r *http.Request) {
	sm, err := decodeSample(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := s.store.UpdateSample(r.Context(), pathID(r, "id"), sm)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "sample": updated})
}

func (s *Server) handleDeleteSample(w http.ResponseWriter, r *http.Request) {
	paths, err := s.store.DeleteSample(r.Context(), pathID(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.removeFiles(paths)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type panelRow struct {
	PanelID   int64   `json:"panel_id"`
	Qty       float64 `json:"qty"`
	WidthCm   float64 `json:"width_cm"`
	HeightCm  float64 `json:"height_cm"`
	Sqm       float64 `json:"sqm"`
	WeightKg  float64 `json:"weight_kg"`
	PanelName string  `json:"panel_name,omitempty"`
}

type consumableRow struct {
	ConsumableID   int64   `json:"consumable_id"`
	Qty            float64 `json:"qty"`
	ConsumableName string  `json:"consumable_name,omitempty"`
}

func (s *Server) handleGetItems(w http.ResponseWriter, r *http.Request) {
	ctx, id := r.Context(), pathID(r, "id")
	if ok, err := s.store.OwnerExists(ctx, domain.OwnerProject, id); err != nil || !ok {
		s.fail(w, errOr(err, ErrNotFound))
		return
	}
	var items any
	switch catalogOf(r) {
	case domain.DefinitionPanels:
		list, err := s.store.PanelItems(ctx, id)
		if err != nil {
			s.fail(w, err)
			return
		}
		rows := make([]panelRow, len(list))
		for i, it := range list {
			rows[i] = panelRow{it.PanelID, it.Qty, it.WidthCm, it.HeightCm, it.Sqm, it.WeightKg, it.Name}
		}
		items = rows
	default:
		list, err := s.store.ConsumableItems(ctx, id)
		if err != nil {
			s.fail(w, err)
			return
		}
		rows := make([]consumableRow, len(list))
		for i, it := range list {
			rows[i] = consumableRow{it.ConsumableID, it.Qty, it.Name}
		}
		items = rows
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "items": items})
}

func (s *Server) handleReplaceItems(w http.ResponseWriter, r *http.Request) {
	kind := catalogOf(r)
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.schemas.check(kind, body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, id := r.Context(), pathID(r, "id")
	switch kind {
	case domain.DefinitionPanels:
		var req struct {
			Items []panelRow `json:"items"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		items := make([]domain.PanelItem, len(req.Items))
		for i, it := range req.Items {
			items[i] = domain.PanelItem{PanelID: it.PanelID, Qty: it.Qty, WidthCm: it.WidthCm, HeightCm: it.HeightCm, Sqm: it.Sqm, WeightKg: it.WeightKg}
		}
		err = s.store.ReplacePanelItems(ctx, id, items)
	default:
		var req struct {
			Items []consumableRow `json:"items"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		items := make([]domain.ConsumableItem, len(req.Items))
		for i, it := range req.Items {
			items[i] = domain.ConsumableItem{ConsumableID: it.ConsumableID, Qty: it.Qty}
		}
		err = s.store.ReplaceConsumableItems(ctx, id, items)
	}
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func imageJSON(kind domain.OwnerKind, a domain.Asset) map[string]any {
	m := map[string]any{
		"id":            a.ID,
		"category":      a.Category,
		"image_path":    a.StoragePath,
		"original_name": a.OriginalName,
		"created_at":    a.CreatedAt,
	}
	m[string(kind)+"_id"] = a.OwnerID
	return m
}

func (s *Server) handleListImages(w http.ResponseWriter, r *http.Request) {
	kind, id := ownerOf(r), pathID(r, "id")
	category := domain.Category(strings.TrimSpace(r.URL.Query().Get("category")))
	if category == "" {
		category = kind.DefaultCategory()
	}
	if !kind.Allows(category) {
		writeError(w, http.StatusBadRequest, "invalid category")
		return
	}
	list, err := s.store.ListImages(r.Context(), kind, id, category)
	if err != nil {
		s.fail(w, err)
		return
	}
	items := make([]map[string]any, len(list))
	for i, a := range list {
		items[i] = imageJSON(kind, a)
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "items": items})
}

var allowedExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

func (s *Server) handleUploadImages(w http.ResponseWriter, r *http.Request) {
	ctx, kind, id := r.Context(), ownerOf(r), pathID(r, "id")
	if ok, err := s.store.OwnerExists(ctx, kind, id); err != nil || !ok {
		s.fail(w, errOr(err, ErrNotFound))
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	category := domain.Category(strings.TrimSpace(r.FormValue("category")))
	if !kind.Allows(category) {
		writeError(w, http.StatusBadRequest, "invalid category")
		return
	}
	files := r.MultipartForm.File["images[]"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no images")
		return
	}

	rel := filepath.ToSlash(filepath.Join(kind.Collection(), strconv.FormatInt(id, 10)))
	dir := filepath.Join(s.cfg.UploadDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.fail(w, err)
		return
	}
	var (
		assets  []domain.Asset
		written []string
	)
	cleanup := func() { s.removeFiles(written) }
	for _, fh := range files {
		ext := strings.ToLower(filepath.Ext(fh.Filename))
		if !allowedExt[ext] {
			ext = ".jpg"
		}
		name := uuid.NewString() + ext
		if err := saveUpload(fh, filepath.Join(dir, name)); err != nil {
			cleanup()
			s.fail(w, err)
			return
		}
		stored := "uploads/" + rel + "/" + name
		written = append(written, stored)
		s.metrics.uploads.Inc()
		assets = append(assets, domain.Asset{OwnerID: id, Category: category, StoragePath: stored, OriginalName: filepath.Base(fh.Filename)})
	}
	saved, err := s.store.AddImages(ctx, kind, assets)
	if err != nil {
		cleanup()
		s.fail(w, err)
		return
	}
	items := make([]map[string]any, len(saved))
	for i, a := range saved {
		items[i] = imageJSON(kind, a)
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "items": items})
}

func saveUpload(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func (s *Server) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	path, err := s.store.DeleteImage(r.Context(), ownerOf(r), pathID(r, "id"), pathID(r, "imageId"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.removeFiles([]string{path})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// removeFiles deletes stored uploads; paths are relative to the app root ("uploads/...").
func (s *Server) removeFiles(paths []string) {
	for _, p := range paths {
		rel := strings.TrimPrefix(p, "uploads/")
		full := filepath.Join(s.cfg.UploadDir, filepath.FromSlash(rel))
		if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("remove upload failed", slog.String("path", full), slog.Any("err", err))
		}
	}
}

// --- helpers ---

func catalogOf(r *http.Request) domain.DefinitionKind {
	return domain.DefinitionKind(mux.Vars(r)["catalog"])
}

func ownerOf(r *http.Request) domain.OwnerKind {
	return domain.OwnerKind(strings.TrimSuffix(mux.Vars(r)["owner"], "s"))
}

func pathID(r *http.Request, name string) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	return id
}

func errOr(err, fallback error) error {
	if err != nil {
		return err
	}
	return fallback
}

func decodeBody(r *http.Request, v any) error {
	b, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return errors.New("empty body")
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

// fail maps store errors onto status codes.
func (s *Server) fail(w http.ResponseWriter, err error) {
	var unknown *UnknownDefinitionError
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, ErrBadCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &unknown):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error("request failed", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": msg})
}
