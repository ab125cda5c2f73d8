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
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"takip/internal/domain"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("already exists")
	ErrBadCredentials = errors.New("invalid username or password")
)

// Store holds the remote state the client core talks to.
type Store struct {
	db *DB
}

// NewStore wraps an open database.
func NewStore(db *DB) *Store { return &Store{db: db} }

// --- users ---

// CreateUser stores a user with a bcrypt password hash.
func (s *Store) CreateUser(ctx context.Context, username, password string, role domain.Role) (domain.Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.Identity{}, errors.New("username and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("hash password: %w", err)
	}
	if role == "" {
		role = domain.RoleMember
	}
	var exists int
	if err := s.db.queryRow(ctx, s.db.sql, `SELECT COUNT(*) FROM users WHERE username = ?`, username).Scan(&exists); err != nil {
		return domain.Identity{}, err
	}
	if exists > 0 {
		return domain.Identity{}, ErrConflict
	}
	id, err := s.db.insert(ctx, s.db.sql, `INSERT INTO users(username, password_hash, role) VALUES(?, ?, ?)`, username, string(hash), string(role))
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{ID: id, Username: username, Role: role}, nil
}

// EnsureUser creates the user or resets its password and role.
func (s *Store) EnsureUser(ctx context.Context, username, password string, role domain.Role) (domain.Identity, error) {
	u, err := s.CreateUser(ctx, username, password, role)
	if !errors.Is(err, ErrConflict) {
		return u, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("hash password: %w", err)
	}
	if _, err := s.db.exec(ctx, s.db.sql, `UPDATE users SET password_hash = ?, role = ? WHERE username = ?`, string(hash), string(role), strings.TrimSpace(username)); err != nil {
		return domain.Identity{}, err
	}
	return s.userByName(ctx, username)
}

func (s *Store) userByName(ctx context.Context, username string) (domain.Identity, error) {
	var (
		u    domain.Identity
		role string
	)
	err := s.db.queryRow(ctx, s.db.sql, `SELECT id, username, role FROM users WHERE username = ?`, strings.TrimSpace(username)).Scan(&u.ID, &u.Username, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Identity{}, ErrNotFound
	}
	u.Role = domain.Role(role)
	return u, err
}

// Authenticate checks a username and password.
func (s *Store) Authenticate(ctx context.Context, username, password string) (domain.Identity, error) {
	var (
		u    domain.Identity
		role string
		hash string
	)
	err := s.db.queryRow(ctx, s.db.sql, `SELECT id, username, role, password_hash FROM users WHERE username = ?`, strings.TrimSpace(username)).
		Scan(&u.ID, &u.Username, &role, &hash)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.Identity{}, ErrBadCredentials
	case err != nil:
		return domain.Identity{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return domain.Identity{}, ErrBadCredentials
	}
	u.Role = domain.Role(role)
	return u, nil
}

// --- definitions ---

// catalogTable maps a catalog to its table; the kind is validated so the name is safe to splice.
func catalogTable(kind domain.DefinitionKind) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("unknown catalog %q", kind)
	}
	return string(kind), nil
}

func (s *Store) ListDefinitions(ctx context.Context, kind domain.DefinitionKind) ([]domain.Definition, error) {
	table, err := catalogTable(kind)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.query(ctx, s.db.sql, `SELECT id, name FROM `+table+` ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := []domain.Definition{}
	for rows.Next() {
		var d domain.Definition
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) CreateDefinition(ctx context.Context, kind domain.DefinitionKind, name string) (domain.Definition, error) {
	table, err := catalogTable(kind)
	if err != nil {
		return domain.Definition{}, err
	}
	id, err := s.db.insert(ctx, s.db.sql, `INSERT INTO `+table+`(name) VALUES(?)`, name)
	if err != nil {
		return domain.Definition{}, err
	}
	return domain.Definition{ID: id, Name: name}, nil
}

func (s *Store) RenameDefinition(ctx context.Context, kind domain.DefinitionKind, id int64, name string) error {
	table, err := catalogTable(kind)
	if err != nil {
		return err
	}
	res, err := s.db.exec(ctx, s.db.sql, `UPDATE `+table+` SET name = ? WHERE id = ?`, name, id)
	return affected(res, err)
}

func (s *Store) DeleteDefinition(ctx context.Context, kind domain.DefinitionKind, id int64) error {
	table, err := catalogTable(kind)
	if err != nil {
		return err
	}
	res, err := s.db.exec(ctx, s.db.sql, `DELETE FROM `+table+` WHERE id = ?`, id)
	return affected(res, err)
}

// missingDefinitions returns the ids in ids that are not in the catalog.
func (s *Store) missingDefinitions(ctx context.Context, q queryer, kind domain.DefinitionKind, ids []int64) ([]int64, error) {
	table, err := catalogTable(kind)
	if err != nil {
		return nil, err
	}
	var missing []int64
	seen := map[int64]bool{}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		var n int
		if err := s.db.queryRow(ctx, q, `SELECT COUNT(*) FROM `+table+` WHERE id = ?`, id).Scan(&n); err != nil {
			return nil, err
		}
		if n == 0 {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func affected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- projects ---

// Page selects a slice of a listing.
type Page struct {
	Limit  int
	Offset int
	Q      string
}

func (p Page) normalized() Page {
	if p.Limit <= 0 || p.Limit > 200 {
		p.Limit = 20
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	p.Q = strings.TrimSpace(p.Q)
	return p
}

const projectCols = `id, project_no, project_date, target_shipment_date, shipment_date, company_name, project_name, status, vehicle_note, total_sqm, total_weight_kg`

type scanner interface{ Scan(dest ...any) error }

func scanProject(sc scanner) (domain.Project, error) {
	var (
		p           domain.Project
		target, end sql.NullString
		sqm, kg     float64
	)
	if err := sc.Scan(&p.ID, &p.ProjectNo, &p.ProjectDate, &target, &end, &p.CompanyName, &p.ProjectName, &p.Status, &p.VehicleNote, &sqm, &kg); err != nil {
		return domain.Project{}, err
	}
	p.TargetShipmentDate = nullable(target)
	p.ShipmentDate = nullable(end)
	p.TotalSqm = domain.Numeric(sqm)
	p.TotalWeightKg = domain.Numeric(kg)
	return p, nil
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func (s *Store) ListProjects(ctx context.Context, pg Page) ([]domain.Project, int, error) {
	pg = pg.normalized()
	where, args := "", []any{}
	if pg.Q != "" {
		like := "%" + strings.ToLower(pg.Q) + "%"
		where = ` WHERE LOWER(project_no) LIKE ? OR LOWER(company_name) LIKE ? OR LOWER(project_name) LIKE ?`
		args = append(args, like, like, like)
	}
	var total int
	if err := s.db.queryRow(ctx, s.db.sql, `SELECT COUNT(*) FROM projects`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.db.query(ctx, s.db.sql, `SELECT `+projectCols+` FROM projects`+where+` ORDER BY id DESC LIMIT ? OFFSET ?`, append(args, pg.Limit, pg.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()
	out := []domain.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (s *Store) GetProject(ctx context.Context, id int64) (domain.Project, error) {
	p, err := scanProject(s.db.queryRow(ctx, s.db.sql, `SELECT `+projectCols+` FROM projects WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Project{}, ErrNotFound
	}
	return p, err
}

func (s *Store) CreateProject(ctx context.Context, p domain.Project) (domain.Project, error) {
	id, err := s.db.insert(ctx, s.db.sql, `INSERT INTO projects(project_no, project_date, target_shipment_date, shipment_date, company_name, project_name, status, vehicle_note, total_sqm, total_weight_kg)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ProjectNo, p.ProjectDate, p.TargetShipmentDate, p.ShipmentDate, p.CompanyName, p.ProjectName, p.Status, p.VehicleNote, p.TotalSqm.Float(), p.TotalWeightKg.Float())
	if err != nil {
		return domain.Project{}, err
	}
	return s.GetProject(ctx, id)
}

func (s *Store) UpdateProject(ctx context.Context, id int64, p domain.Project) (domain.Project, error) {
	res, err := s.db.exec(ctx, s.db.sql, `UPDATE projects SET project_no = ?, project_date = ?, target_shipment_date = ?, shipment_date = ?, company_name = ?, project_name = ?, status = ?, vehicle_note = ?, total_sqm = ?, total_weight_kg = ?
		WHERE id = ?`,
		p.ProjectNo, p.ProjectDate, p.TargetShipmentDate, p.ShipmentDate, p.CompanyName, p.ProjectName, p.Status, p.VehicleNote, p.TotalSqm.Float(), p.TotalWeightKg.Float(), id)
	if err := affected(res, err); err != nil {
		return domain.Project{}, err
	}
	return s.GetProject(ctx, id)
}

// DeleteProject removes a project with its line items and image rows, returning the
// storage paths of the removed images.
func (s *Store) DeleteProject(ctx context.Context, id int64) ([]string, error) {
	return s.deleteOwner(ctx, domain.OwnerProject, id, `DELETE FROM project_panels WHERE project_id = ?`, `DELETE FROM project_consumables WHERE project_id = ?`)
}

func (s *Store) deleteOwner(ctx context.Context, kind domain.OwnerKind, id int64, children ...string) ([]string, error) {
	var paths []string
	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := s.db.query(ctx, tx, `SELECT image_path FROM images WHERE owner_kind = ? AND owner_id = ?`, string(kind), id)
		if err != nil {
			return err
		}
		for rows.Next() {
			var p string
			if err := rows.Scan(&p); err != nil {
				_ = rows.Close()
				return err
			}
			paths = append(paths, p)
		}
		if err := rows.Close(); err != nil {
			return err
		}
		for _, q := range append(children, `DELETE FROM images WHERE owner_kind = '`+string(kind)+`' AND owner_id = ?`) {
			if _, err := s.db.exec(ctx, tx, q, id); err != nil {
				return err
			}
		}
		res, err := s.db.exec(ctx, tx, `DELETE FROM `+kind.Collection()+` WHERE id = ?`, id)
		return affected(res, err)
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// --- samples ---

const sampleCols = `id, sample_no, sample_date, sample_name, status, note`

func scanSample(sc scanner) (domain.Sample, error) {
	var (
		sm   domain.Sample
		note sql.NullString
	)
	if err := sc.Scan(&sm.ID, &sm.SampleNo, &sm.SampleDate, &sm.SampleName, &sm.Status, &note); err != nil {
		return domain.Sample{}, err
	}
	sm.Note = nullable(note)
	return sm, nil
}

func (s *Store) ListSamples(ctx context.Context, pg Page) ([]domain.Sample, int, error) {
	pg = pg.normalized()
	where, args := "", []any{}
	if pg.Q != "" {
		like := "%" + strings.ToLower(pg.Q) + "%"
		where = ` WHERE LOWER(sample_no) LIKE ? OR LOWER(sample_name) LIKE ?`
		args = append(args, like, like)
	}
	var total int
	if err := s.db.queryRow(ctx, s.db.sql, `SELECT COUNT(*) FROM samples`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.db.query(ctx, s.db.sql, `SELECT `+sampleCols+` FROM samples`+where+` ORDER BY id DESC LIMIT ? OFFSET ?`, append(args, pg.Limit, pg.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()
	out := []domain.Sample{}
	for rows.Next() {
		sm, err := scanSample(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, sm)
	}
	return out, total, rows.Err()
}

func (s *Store) GetSample(ctx context.Context, id int64) (domain.Sample, error) {
	sm, err := scanSample(s.db.queryRow(ctx, s.db.sql, `SELECT `+sampleCols+` FROM samples WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Sample{}, ErrNotFound
	}
	return sm, err
}

func (s *Store) CreateSample(ctx context.Context, sm domain.Sample) (domain.Sample, error) {
	id, err := s.db.insert(ctx, s.db.sql, `INSERT INTO samples(sample_no, sample_date, sample_name, status, note) VALUES(?, ?, ?, ?, ?)`,
		sm.SampleNo, sm.SampleDate, sm.SampleName, sm.Status, sm.Note)
	if err != nil {
		return domain.Sample{}, err
	}
	return s.GetSample(ctx, id)
}

func (s *Store) UpdateSample(ctx context.Context, id int64, sm domain.Sample) (domain.Sample, error) {
	res, err := s.db.exec(ctx, s.db.sql, `UPDATE samples SET sample_no = ?, sample_date = ?, sample_name = ?, status = ?, note = ? WHERE id = ?`,
		sm.SampleNo, sm.SampleDate, sm.SampleName, sm.Status, sm.Note, id)
	if err := affected(res, err); err != nil {
		return domain.Sample{}, err
	}
	return s.GetSample(ctx, id)
}

func (s *Store) DeleteSample(ctx context.Context, id int64) ([]string, error) {
	return s.deleteOwner(ctx, domain.OwnerSample, id)
}

// OwnerExists reports whether the project or sample exists.
func (s *Store) OwnerExists(ctx context.Context, kind domain.OwnerKind, id int64) (bool, error) {
	if !kind.Valid() {
		return false, fmt.Errorf("unknown owner kind %q", kind)
	}
	var n int
	if err := s.db.queryRow(ctx, s.db.sql, `SELECT COUNT(*) FROM `+kind.Collection()+` WHERE id = ?`, id).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}
