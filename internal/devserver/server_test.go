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
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"takip/internal/apiclient"
	"takip/internal/apperr"
	"takip/internal/credstore"
	"takip/internal/domain"
	"takip/internal/gallery"
	"takip/internal/lineitems"
	"takip/internal/session"
)

type harness struct {
	srv   *Server
	http  *httptest.Server
	store *Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv, err := New(Config{UploadDir: t.TempDir(), AuthSecret: "test-secret"}, openTestDB(t))
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)
	return &harness{srv: srv, http: hs, store: srv.Store()}
}

// signIn creates a user with role and returns a client carrying its token.
func (h *harness) signIn(t *testing.T, name string, role domain.Role) (*apiclient.Client, *session.Manager) {
	t.Helper()
	ctx := context.Background()
	if _, err := h.store.CreateUser(ctx, name, "pw-"+name, role); err != nil {
		t.Fatalf("create user: %v", err)
	}
	bearer := apiclient.NewBearer()
	client := apiclient.New(h.http.URL+"/api", bearer)
	sess := session.New(credstore.NewMemory(), bearer)
	sess.Bootstrap(ctx)
	if err := sess.Login(ctx, client, name, "pw-"+name); err != nil {
		t.Fatalf("login: %v", err)
	}
	return client, sess
}

func status(err error) int {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}

func TestLoginFailures(t *testing.T) {
	h := newHarness(t)
	client := apiclient.New(h.http.URL+"/api", apiclient.NewBearer())
	_, _, err := client.Login(context.Background(), "ghost", "nope")
	if status(err) != http.StatusUnauthorized || apperr.Message(err) != ErrBadCredentials.Error() {
		t.Fatalf("want 401 with server message, got %v", err)
	}
	if _, _, err := client.ListProjects(context.Background(), apiclient.PageQuery{}); status(err) != http.StatusUnauthorized {
		t.Fatalf("unauthenticated listing: want 401, got %v", err)
	}
}

func TestLineItemsEndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	client, sess := h.signIn(t, "admin", domain.RoleAdmin)
	if !sess.CanEdit() {
		t.Fatalf("admin session should be able to edit")
	}

	wall, err := client.CreateDefinition(ctx, domain.DefinitionPanels, "Wall")
	if err != nil {
		t.Fatalf("create definition: %v", err)
	}
	p, err := client.CreateProject(ctx, domain.Project{
		ProjectNo: "P-100", ProjectDate: "2025-03-01", CompanyName: "Acme", ProjectName: "Hall", Status: domain.DefaultProjectStatus,
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}

	ed := lineitems.NewPanelEditor(client, p.ID)
	if err := ed.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	if ed.Len() != 0 {
		t.Fatalf("new project should have no rows")
	}
	if err := ed.AddRow(); err != nil {
		t.Fatalf("add row: %v", err)
	}
	if err := ed.EditField(0, lineitems.FieldQty, "3"); err != nil {
		t.Fatalf("edit qty: %v", err)
	}
	if err := ed.EditField(0, lineitems.FieldWidthCm, "120.5"); err != nil {
		t.Fatalf("edit width: %v", err)
	}
	if err := ed.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}

	again := lineitems.NewPanelEditor(client, p.ID)
	if err := again.Open(ctx); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	rows := again.Rows()
	if len(rows) != 1 || rows[0].PanelID != wall.ID || rows[0].Qty != 3 || rows[0].WidthCm != 120.5 {
		t.Fatalf("unexpected rows after reload: %+v", rows)
	}
	if again.RowDefinitionName(0) != "Wall" {
		t.Fatalf("row name = %q", again.RowDefinitionName(0))
	}

	// Full replace: removing the only row and saving leaves the collection empty.
	again.RemoveRow(0)
	if err := again.Save(ctx); err != nil {
		t.Fatalf("save empty: %v", err)
	}
	third := lineitems.NewPanelEditor(client, p.ID)
	if err := third.Open(ctx); err != nil || third.Len() != 0 {
		t.Fatalf("want empty collection, len=%d err=%v", third.Len(), err)
	}
}

func TestReplaceRejectsUnknownDefinition(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	client, _ := h.signIn(t, "admin", domain.RoleAdmin)
	p, err := client.CreateProject(ctx, domain.Project{
		ProjectNo: "P-1", ProjectDate: "2025-03-01", CompanyName: "Acme", ProjectName: "Hall", Status: domain.DefaultProjectStatus,
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	body := map[string]any{"items": []map[string]any{{"consumable_id": 99, "qty": 1}}}
	err = client.Put(ctx, "/projects/"+itoa(p.ID)+"/consumables", body, nil)
	if status(err) != http.StatusBadRequest || !strings.Contains(apperr.Message(err), "99") {
		t.Fatalf("want 400 naming the id, got %v", err)
	}
	err = client.Put(ctx, "/projects/"+itoa(p.ID)+"/consumables", map[string]any{"items": "nope"}, nil)
	if status(err) != http.StatusBadRequest {
		t.Fatalf("schema violation: want 400, got %v", err)
	}
}

func TestMemberCannotMutate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin, _ := h.signIn(t, "admin", domain.RoleAdmin)
	if _, err := admin.CreateDefinition(ctx, domain.DefinitionConsumables, "Screw"); err != nil {
		t.Fatalf("create definition: %v", err)
	}
	p, err := admin.CreateProject(ctx, domain.Project{
		ProjectNo: "P-2", ProjectDate: "2025-03-01", CompanyName: "Acme", ProjectName: "Hall", Status: domain.DefaultProjectStatus,
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}

	member, sess := h.signIn(t, "uye", domain.RoleMember)
	if sess.CanEdit() {
		t.Fatalf("member session should not be able to edit")
	}
	ed := lineitems.NewConsumableEditor(member, p.ID)
	if err := ed.Open(ctx); err != nil {
		t.Fatalf("member can read: %v", err)
	}
	if err := ed.AddRow(); err != nil {
		t.Fatalf("add row: %v", err)
	}
	if err := ed.Save(ctx); status(err) != http.StatusForbidden {
		t.Fatalf("want 403, got %v", err)
	}
	if ed.Done() {
		t.Fatalf("failed save must keep the session open")
	}
}

func TestGalleryEndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	client, _ := h.signIn(t, "asistan", domain.RoleAssistant)
	sm, err := client.CreateSample(ctx, domain.Sample{SampleNo: "S-1", SampleDate: "2025-04-01", SampleName: "Oak", Status: "Beklemede"})
	if err != nil {
		t.Fatalf("create sample: %v", err)
	}

	dir := t.TempDir()
	content := []byte("\x89PNG\r\n\x1a\nfake")
	path := filepath.Join(dir, "front.png")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	g, err := gallery.New(client, domain.OwnerSample, sm.ID)
	if err != nil {
		t.Fatalf("gallery: %v", err)
	}
	if err := g.SwitchCategory(ctx, domain.CategorySampleShipment); err != nil {
		t.Fatalf("switch: %v", err)
	}
	if err := g.Upload(ctx, domain.CategorySampleShipment, []gallery.File{{Path: path}}); err != nil {
		t.Fatalf("upload: %v", err)
	}
	assets := g.Assets()
	if len(assets) != 1 || assets[0].OriginalName != "front.png" || !strings.HasPrefix(assets[0].StoragePath, "uploads/samples/") {
		t.Fatalf("unexpected assets: %+v", assets)
	}

	resp, err := http.Get(g.ResolveURL(assets[0].StoragePath))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	got, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !bytes.Equal(got, content) {
		t.Fatalf("stored file mismatch: status=%d", resp.StatusCode)
	}

	if err := g.SwitchCategory(ctx, domain.CategorySample); err != nil {
		t.Fatalf("switch: %v", err)
	}
	if len(g.Assets()) != 0 {
		t.Fatalf("other category should be empty, got %+v", g.Assets())
	}
	if err := g.SwitchCategory(ctx, domain.CategorySampleShipment); err != nil {
		t.Fatalf("switch back: %v", err)
	}
	if err := g.Remove(ctx, assets[0].ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(g.Assets()) != 0 {
		t.Fatalf("remove should refresh to empty, got %+v", g.Assets())
	}
	resp, err = http.Get(g.ResolveURL(assets[0].StoragePath))
	if err != nil {
		t.Fatalf("fetch after delete: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("file should be gone, status=%d", resp.StatusCode)
	}
}

func TestUploadRejectsForeignCategory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	client, _ := h.signIn(t, "admin", domain.RoleAdmin)
	p, err := client.CreateProject(ctx, domain.Project{
		ProjectNo: "P-3", ProjectDate: "2025-03-01", CompanyName: "Acme", ProjectName: "Hall", Status: domain.DefaultProjectStatus,
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	f := apiclient.FormFile{Field: "images[]", FileName: "a.jpg", ContentType: "image/jpeg", Open: func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("jpeg")), nil
	}}
	err = client.PostMultipart(ctx, "/projects/"+itoa(p.ID)+"/images",
		[]apiclient.FormField{{Name: "category", Value: string(domain.CategorySampleLabels)}}, []apiclient.FormFile{f}, nil)
	if status(err) != http.StatusBadRequest {
		t.Fatalf("want 400 for a sample category on a project, got %v", err)
	}
}

func TestOperationalEndpoints(t *testing.T) {
	h := newHarness(t)
	client, _ := h.signIn(t, "admin", domain.RoleAdmin)
	if ts, err := client.Ping(context.Background()); err != nil || ts == "" {
		t.Fatalf("ping: %q %v", ts, err)
	}
	for _, p := range []string{"/healthz", "/readyz", "/version"} {
		resp, err := http.Get(h.http.URL + p)
		if err != nil {
			t.Fatalf("%s: %v", p, err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: status %d", p, resp.StatusCode)
		}
	}
	resp, err := http.Get(h.http.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(string(body), `takip_devserver_requests_total{code="200",method="GET",route="/api/ping"}`) {
		t.Fatalf("ping not counted by route template:\n%s", body)
	}
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
