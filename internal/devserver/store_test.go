/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package devserver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"takip/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := OpenDB(ctx, "file:"+filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// openPGForTest connects to TAKIP_PG_DSN and skips when postgres is unavailable.
func openPGForTest(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("TAKIP_PG_DSN")
	if dsn == "" {
		t.Skip("TAKIP_PG_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := OpenDB(ctx, dsn)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedProject(t *testing.T, s *Store, no string) domain.Project {
	t.Helper()
	p, err := s.CreateProject(context.Background(), domain.Project{
		ProjectNo: no, ProjectDate: "2025-01-02", CompanyName: "Acme", ProjectName: "Facade " + no, Status: domain.DefaultProjectStatus,
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

func TestMigrationsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "twice.db")
	for i := 0; i < 2; i++ {
		db, err := OpenDB(ctx, dsn)
		if err != nil {
			t.Fatalf("open #%d: %v", i+1, err)
		}
		var n int
		if err := db.queryRow(ctx, db.sql, `SELECT COUNT(*) FROM schema_migrations`).Scan(&n); err != nil {
			t.Fatalf("count migrations: %v", err)
		}
		if n != 1 {
			t.Fatalf("open #%d: want 1 applied migration, got %d", i+1, n)
		}
		_ = db.Close()
	}
}

func TestParseVersion(t *testing.T) {
	v, err := parseVersion("0001_init.sql")
	if err != nil || v != 1 {
		t.Fatalf("parseVersion = %d, %v", v, err)
	}
	if _, err := parseVersion("init.sql"); err == nil {
		t.Fatalf("expected error for unnumbered migration")
	}
}

func TestRebindPostgres(t *testing.T) {
	db := &DB{dialect: dialectPostgres}
	got := db.rebind(`SELECT * FROM t WHERE a = ? AND b = ?`)
	if got != `SELECT * FROM t WHERE a = $1 AND b = $2` {
		t.Fatalf("rebind: %q", got)
	}
	sq := &DB{dialect: dialectSQLite}
	if q := sq.rebind(`a = ?`); q != `a = ?` {
		t.Fatalf("sqlite rebind changed query: %q", q)
	}
}

func TestAuthenticate(t *testing.T) {
	s := NewStore(openTestDB(t))
	ctx := context.Background()
	if _, err := s.CreateUser(ctx, "ayse", "s3cret", domain.RoleAssistant); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateUser(ctx, "ayse", "other", domain.RoleMember); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate user: want ErrConflict, got %v", err)
	}
	u, err := s.Authenticate(ctx, "ayse", "s3cret")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if u.Role != domain.RoleAssistant || u.ID == 0 {
		t.Fatalf("unexpected identity: %+v", u)
	}
	if _, err := s.Authenticate(ctx, "ayse", "wrong"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("wrong password: want ErrBadCredentials, got %v", err)
	}
	if _, err := s.Authenticate(ctx, "nobody", "x"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("unknown user: want ErrBadCredentials, got %v", err)
	}

	if _, err := s.EnsureUser(ctx, "ayse", "reset", domain.RoleAdmin); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	u, err = s.Authenticate(ctx, "ayse", "reset")
	if err != nil || u.Role != domain.RoleAdmin {
		t.Fatalf("after ensure: %+v, %v", u, err)
	}
}

func TestProjectListingPagesAndSearches(t *testing.T) {
	s := NewStore(openTestDB(t))
	ctx := context.Background()
	for _, no := range []string{"P-1", "P-2", "P-3"} {
		seedProject(t, s, no)
	}
	items, total, err := s.ListProjects(ctx, Page{Limit: 2}.normalized())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(items) != 2 {
		t.Fatalf("page 1: total=%d len=%d", total, len(items))
	}
	items, total, err = s.ListProjects(ctx, Page{Q: "facade p-2"}.normalized())
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].ProjectNo != "P-2" {
		t.Fatalf("search: total=%d items=%+v", total, items)
	}
	if _, err := s.GetProject(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing project: want ErrNotFound, got %v", err)
	}
}

func TestReplaceItemsChecksReferences(t *testing.T) {
	s := NewStore(openTestDB(t))
	ctx := context.Background()
	p := seedProject(t, s, "P-9")
	d, err := s.CreateDefinition(ctx, domain.DefinitionPanels, "Wall")
	if err != nil {
		t.Fatalf("create definition: %v", err)
	}

	err = s.ReplacePanelItems(ctx, p.ID, []domain.PanelItem{{PanelID: d.ID, Qty: 1}, {PanelID: 4242, Qty: 1}})
	var unknown *UnknownDefinitionError
	if !errors.As(err, &unknown) || len(unknown.IDs) != 1 || unknown.IDs[0] != 4242 {
		t.Fatalf("want UnknownDefinitionError for 4242, got %v", err)
	}

	want := []domain.PanelItem{{PanelID: d.ID, Qty: 2, WidthCm: 120, HeightCm: 80, Sqm: 0.96, WeightKg: 12.5}}
	if err := s.ReplacePanelItems(ctx, p.ID, want); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, err := s.PanelItems(ctx, p.ID)
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(got) != 1 || got[0].Qty != 2 || got[0].Sqm != 0.96 || got[0].Name != "Wall" {
		t.Fatalf("unexpected items: %+v", got)
	}

	if err := s.ReplacePanelItems(ctx, p.ID, nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got, _ := s.PanelItems(ctx, p.ID); len(got) != 0 {
		t.Fatalf("want empty collection after full replace, got %+v", got)
	}
	if err := s.ReplaceConsumableItems(ctx, 777, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing project: want ErrNotFound, got %v", err)
	}
}

func TestDeleteProjectReturnsImagePaths(t *testing.T) {
	s := NewStore(openTestDB(t))
	ctx := context.Background()
	p := seedProject(t, s, "P-4")
	_, err := s.AddImages(ctx, domain.OwnerProject, []domain.Asset{
		{OwnerID: p.ID, Category: domain.CategoryProduction, StoragePath: "uploads/projects/1/a.jpg", OriginalName: "a.jpg"},
		{OwnerID: p.ID, Category: domain.CategoryLabel, StoragePath: "uploads/projects/1/b.jpg", OriginalName: "b.jpg"},
	})
	if err != nil {
		t.Fatalf("add images: %v", err)
	}
	prod, err := s.ListImages(ctx, domain.OwnerProject, p.ID, domain.CategoryProduction)
	if err != nil || len(prod) != 1 || prod[0].CreatedAt == "" {
		t.Fatalf("list production: %+v, %v", prod, err)
	}
	paths, err := s.DeleteProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("want 2 image paths, got %v", paths)
	}
	if ok, _ := s.OwnerExists(ctx, domain.OwnerProject, p.ID); ok {
		t.Fatalf("project still exists")
	}
}

func TestPostgresSchema(t *testing.T) {
	db := openPGForTest(t)
	s := NewStore(db)
	ctx := context.Background()
	d, err := s.CreateDefinition(ctx, domain.DefinitionConsumables, "Screw "+time.Now().Format("150405.000"))
	if err != nil {
		t.Fatalf("create definition: %v", err)
	}
	defer func() { _ = s.DeleteDefinition(ctx, domain.DefinitionConsumables, d.ID) }()
	p := seedProject(t, s, "PG-"+time.Now().Format("150405.000"))
	defer func() { _, _ = s.DeleteProject(ctx, p.ID) }()
	if err := s.ReplaceConsumableItems(ctx, p.ID, []domain.ConsumableItem{{ConsumableID: d.ID, Qty: 3}}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, err := s.ConsumableItems(ctx, p.ID)
	if err != nil || len(got) != 1 || got[0].Qty != 3 {
		t.Fatalf("items: %+v, %v", got, err)
	}
}
