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

	"takip/internal/domain"
)

// DefaultPageSize matches the page size the list screens request.
const DefaultPageSize = 20

// FetchPage loads one page of a listing.
type FetchPage[T any] func(ctx context.Context, q PageQuery) ([]T, domain.PageMeta, error)

// Pager accumulates pages of a listing for infinite-scroll style consumers.
type Pager[T any] struct {
	fetch  FetchPage[T]
	limit  int
	query  string
	items  []T
	offset int
	total  int
}

// NewPager creates a pager; limit <= 0 uses DefaultPageSize.
func NewPager[T any](fetch FetchPage[T], limit int) *Pager[T] {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return &Pager[T]{fetch: fetch, limit: limit}
}

// Reset discards loaded items and loads the first page for query.
func (p *Pager[T]) Reset(ctx context.Context, query string) error {
	items, meta, err := p.fetch(ctx, PageQuery{Limit: p.limit, Offset: 0, Q: query})
	if err != nil {
		return err
	}
	p.query = query
	p.items = append([]T(nil), items...)
	p.total = meta.Total
	p.offset = p.limit
	return nil
}

// Next appends the following page. It is a no-op when HasMore is false.
func (p *Pager[T]) Next(ctx context.Context) error {
	if !p.HasMore() {
		return nil
	}
	items, meta, err := p.fetch(ctx, PageQuery{Limit: p.limit, Offset: p.offset, Q: p.query})
	if err != nil {
		return err
	}
	p.items = append(p.items, items...)
	p.total = meta.Total
	if len(items) == 0 {
		p.total = len(p.items)
	}
	p.offset += p.limit
	return nil
}

// HasMore reports whether the server holds more items than are loaded.
func (p *Pager[T]) HasMore() bool { return len(p.items) < p.total }

// Items returns the loaded items.
func (p *Pager[T]) Items() []T { return append([]T(nil), p.items...) }

// Total is the server-side count from the last page.
func (p *Pager[T]) Total() int { return p.total }
