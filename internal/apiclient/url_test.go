/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package apiclient

import (
	"context"
	"fmt"
	"testing"

	"takip/internal/domain"
)

func TestResolveURL(t *testing.T) {
	cases := []struct {
		base, path, want string
	}{
		{"https://h/app/api", "uploads/x.jpg", "https://h/app/uploads/x.jpg"},
		{"https://h/app/api/", "/uploads/x.jpg", "https://h/app/uploads/x.jpg"},
		{"https://h/app/api//", "///uploads/x.jpg", "https://h/app/uploads/x.jpg"},
		{"https://h/app/api", "https://other/y.jpg", "https://other/y.jpg"},
		{"https://h", "a.jpg", "https://h/a.jpg"},
		{"https://h/app/api", "", ""},
	}
	for _, tc := range cases {
		if got := ResolveURL(tc.base, tc.path); got != tc.want {
			t.Fatalf("ResolveURL(%q, %q) = %q, want %q", tc.base, tc.path, got, tc.want)
		}
	}
}

func TestNormalizeAndAppRoot(t *testing.T) {
	if got := NormalizeBase("  https://h/takip/api/// "); got != "https://h/takip/api" {
		t.Fatalf("NormalizeBase = %q", got)
	}
	if got := AppRoot("https://h/takip/api"); got != "https://h/takip" {
		t.Fatalf("AppRoot = %q", got)
	}
	c := New("https://a/api", nil)
	c.SetBaseURL("https://b/x/api/")
	if c.BaseURL() != "https://b/x/api" || c.ResolveURL("u.png") != "https://b/x/u.png" {
		t.Fatalf("SetBaseURL not applied: %q", c.BaseURL())
	}
}

func TestPagerAccumulates(t *testing.T) {
	all := make([]int, 45)
	for i := range all {
		all[i] = i
	}
	var queries []string
	fetch := func(_ context.Context, q PageQuery) ([]int, domain.PageMeta, error) {
		queries = append(queries, fmt.Sprintf("%d/%d/%s", q.Limit, q.Offset, q.Q))
		end := min(q.Offset+q.Limit, len(all))
		return all[q.Offset:end], domain.PageMeta{Total: len(all), Limit: q.Limit, Offset: q.Offset}, nil
	}
	p := NewPager[int](fetch, 0)
	ctx := context.Background()
	if err := p.Reset(ctx, "oak"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	for p.HasMore() {
		if err := p.Next(ctx); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}
	if len(p.Items()) != 45 || p.Total() != 45 {
		t.Fatalf("items = %d total = %d", len(p.Items()), p.Total())
	}
	if queries[0] != "20/0/oak" || queries[2] != "20/40/oak" || len(queries) != 3 {
		t.Fatalf("queries = %v", queries)
	}
}

func TestPagerStopsOnEmptyPage(t *testing.T) {
	fetch := func(_ context.Context, q PageQuery) ([]string, domain.PageMeta, error) {
		if q.Offset == 0 {
			return []string{"a"}, domain.PageMeta{Total: 10}, nil
		}
		return nil, domain.PageMeta{Total: 10}, nil
	}
	p := NewPager[string](fetch, 1)
	ctx := context.Background()
	_ = p.Reset(ctx, "")
	_ = p.Next(ctx)
	if p.HasMore() {
		t.Fatalf("pager should stop after an empty page")
	}
}
