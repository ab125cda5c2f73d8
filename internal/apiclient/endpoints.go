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
	"net/url"
	"strconv"
	"strings"

	"takip/internal/apperr"
	"takip/internal/domain"
)

// Login exchanges credentials for a token. The call never carries the armed token.
func (c *Client) Login(ctx context.Context, username, password string) (string, domain.Identity, error) {
	var res struct {
		OK    bool            `json:"ok"`
		Token string          `json:"token"`
		User  domain.Identity `json:"user"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.Post(ctx, "/auth/login", body, &res, WithoutAuth()); err != nil {
		return "", domain.Identity{}, err
	}
	if strings.TrimSpace(res.Token) == "" {
		return "", domain.Identity{}, apperr.Server("POST /auth/login", 200, "login response carried no token")
	}
	return res.Token, res.User, nil
}

// Ping returns the server time reported by GET /ping.
func (c *Client) Ping(ctx context.Context) (string, error) {
	var res struct {
		OK   bool   `json:"ok"`
		Time string `json:"time"`
	}
	if err := c.Get(ctx, "/ping", &res); err != nil {
		return "", err
	}
	return res.Time, nil
}

type wireDefinition struct {
	ID   domain.Numeric `json:"id"`
	Name string         `json:"name"`
}

func (w wireDefinition) definition() domain.Definition {
	return domain.Definition{ID: int64(w.ID), Name: w.Name}
}

func definitionsPath(kind domain.DefinitionKind) (string, error) {
	if !kind.Valid() {
		return "", apperr.Validation("definitions", fmt.Sprintf("unknown catalog %q", kind))
	}
	return "/" + string(kind), nil
}

// ListDefinitions fetches a whole catalog. Entries without an id are dropped.
func (c *Client) ListDefinitions(ctx context.Context, kind domain.DefinitionKind) ([]domain.Definition, error) {
	p, err := definitionsPath(kind)
	if err != nil {
		return nil, err
	}
	var res struct {
		Items []wireDefinition `json:"items"`
	}
	if err := c.Get(ctx, p, &res); err != nil {
		return nil, err
	}
	out := make([]domain.Definition, 0, len(res.Items))
	for _, w := range res.Items {
		if d := w.definition(); d.ID != 0 {
			out = append(out, d)
		}
	}
	return out, nil
}

// CreateDefinition adds a catalog entry.
func (c *Client) CreateDefinition(ctx context.Context, kind domain.DefinitionKind, name string) (domain.Definition, error) {
	p, err := definitionsPath(kind)
	if err != nil {
		return domain.Definition{}, err
	}
	n, err := domain.ValidateDefinitionName(string(kind)+".create", name)
	if err != nil {
		return domain.Definition{}, err
	}
	var res struct {
		Item wireDefinition `json:"item"`
	}
	if err := c.Post(ctx, p, map[string]string{"name": n}, &res); err != nil {
		return domain.Definition{}, err
	}
	d := res.Item.definition()
	if d.Name == "" {
		d.Name = n
	}
	return d, nil
}

// RenameDefinition changes an entry's name.
func (c *Client) RenameDefinition(ctx context.Context, kind domain.DefinitionKind, id int64, name string) error {
	p, err := definitionsPath(kind)
	if err != nil {
		return err
	}
	n, err := domain.ValidateDefinitionName(string(kind)+".rename", name)
	if err != nil {
		return err
	}
	return c.Put(ctx, p+"/"+strconv.FormatInt(id, 10), map[string]string{"name": n}, nil)
}

// DeleteDefinition removes an entry.
func (c *Client) DeleteDefinition(ctx context.Context, kind domain.DefinitionKind, id int64) error {
	p, err := definitionsPath(kind)
	if err != nil {
		return err
	}
	return c.Delete(ctx, p+"/"+strconv.FormatInt(id, 10), nil)
}

// PageQuery selects one page of a listing.
type PageQuery struct {
	Limit  int
	Offset int
	Q      string
}

func (q PageQuery) values() url.Values {
	v := url.Values{}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	v.Set("offset", strconv.Itoa(q.Offset))
	v.Set("q", strings.TrimSpace(q.Q))
	return v
}

// ListProjects fetches one page of projects.
func (c *Client) ListProjects(ctx context.Context, q PageQuery) ([]domain.Project, domain.PageMeta, error) {
	var res struct {
		Items []domain.Project `json:"items"`
		Meta  domain.PageMeta  `json:"meta"`
	}
	if err := c.Get(ctx, "/projects", &res, WithQuery(q.values())); err != nil {
		return nil, domain.PageMeta{}, err
	}
	return res.Items, res.Meta, nil
}

// GetProject fetches one project.
func (c *Client) GetProject(ctx context.Context, id int64) (domain.Project, error) {
	var res struct {
		Project domain.Project `json:"project"`
	}
	err := c.Get(ctx, fmt.Sprintf("/projects/%d", id), &res)
	return res.Project, err
}

// CreateProject validates and creates a project.
func (c *Client) CreateProject(ctx context.Context, p domain.Project) (domain.Project, error) {
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return domain.Project{}, err
	}
	p.ID = 0
	var res struct {
		Project domain.Project `json:"project"`
	}
	if err := c.Post(ctx, "/projects", p, &res); err != nil {
		return domain.Project{}, err
	}
	return res.Project, nil
}

// UpdateProject validates and replaces a project's fields.
func (c *Client) UpdateProject(ctx context.Context, id int64, p domain.Project) (domain.Project, error) {
	if id == 0 {
		return domain.Project{}, apperr.Validation("project.save", "project id is required")
	}
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return domain.Project{}, err
	}
	p.ID = 0
	var res struct {
		Project domain.Project `json:"project"`
	}
	if err := c.Put(ctx, fmt.Sprintf("/projects/%d", id), p, &res); err != nil {
		return domain.Project{}, err
	}
	return res.Project, nil
}

// DeleteProject removes a project.
func (c *Client) DeleteProject(ctx context.Context, id int64) error {
	return c.Delete(ctx, fmt.Sprintf("/projects/%d", id), nil)
}

// ListSamples fetches one page of samples.
func (c *Client) ListSamples(ctx context.Context, q PageQuery) ([]domain.Sample, domain.PageMeta, error) {
	var res struct {
		Items []domain.Sample `json:"items"`
		Meta  domain.PageMeta `json:"meta"`
	}
	if err := c.Get(ctx, "/samples", &res, WithQuery(q.values())); err != nil {
		return nil, domain.PageMeta{}, err
	}
	return res.Items, res.Meta, nil
}

// GetSample fetches one sample.
func (c *Client) GetSample(ctx context.Context, id int64) (domain.Sample, error) {
	var res struct {
		Sample domain.Sample `json:"sample"`
	}
	err := c.Get(ctx, fmt.Sprintf("/samples/%d", id), &res)
	return res.Sample, err
}

// CreateSample validates and creates a sample.
func (c *Client) CreateSample(ctx context.Context, s domain.Sample) (domain.Sample, error) {
	s = s.Normalize()
	if err := s.Validate(); err != nil {
		return domain.Sample{}, err
	}
	s.ID = 0
	var res struct {
		Sample domain.Sample `json:"sample"`
	}
	if err := c.Post(ctx, "/samples", s, &res); err != nil {
		return domain.Sample{}, err
	}
	return res.Sample, nil
}

// UpdateSample validates and replaces a sample's fields.
func (c *Client) UpdateSample(ctx context.Context, id int64, s domain.Sample) (domain.Sample, error) {
	if id == 0 {
		return domain.Sample{}, apperr.Validation("sample.save", "sample id is required")
	}
	s = s.Normalize()
	if err := s.Validate(); err != nil {
		return domain.Sample{}, err
	}
	s.ID = 0
	var res struct {
		Sample domain.Sample `json:"sample"`
	}
	if err := c.Put(ctx, fmt.Sprintf("/samples/%d", id), s, &res); err != nil {
		return domain.Sample{}, err
	}
	return res.Sample, nil
}

// DeleteSample removes a sample.
func (c *Client) DeleteSample(ctx context.Context, id int64) error {
	return c.Delete(ctx, fmt.Sprintf("/samples/%d", id), nil)
}
