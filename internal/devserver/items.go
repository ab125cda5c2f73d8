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
	"fmt"

	"takip/internal/domain"
)

// PanelItems returns a project's panel collection in saved order, with catalog names.
func (s *Store) PanelItems(ctx context.Context, projectID int64) ([]domain.PanelItem, error) {
	rows, err := s.db.query(ctx, s.db.sql, `SELECT pp.panel_id, pp.qty, pp.width_cm, pp.height_cm, pp.sqm, pp.weight_kg, COALESCE(p.name, '')
		FROM project_panels pp LEFT JOIN panels p ON p.id = pp.panel_id
		WHERE pp.project_id = ? ORDER BY pp.position`, projectID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := []domain.PanelItem{}
	for rows.Next() {
		var it domain.PanelItem
		if err := rows.Scan(&it.PanelID, &it.Qty, &it.WidthCm, &it.HeightCm, &it.Sqm, &it.WeightKg, &it.Name); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ConsumableItems returns a project's consumable collection in saved order.
func (s *Store) ConsumableItems(ctx context.Context, projectID int64) ([]domain.ConsumableItem, error) {
	rows, err := s.db.query(ctx, s.db.sql, `SELECT pc.consumable_id, pc.qty, COALESCE(c.name, '')
		FROM project_consumables pc LEFT JOIN consumables c ON c.id = pc.consumable_id
		WHERE pc.project_id = ? ORDER BY pc.position`, projectID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := []domain.ConsumableItem{}
	for rows.Next() {
		var it domain.ConsumableItem
		if err := rows.Scan(&it.ConsumableID, &it.Qty, &it.Name); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// UnknownDefinitionError lists references to catalog entries that do not exist.
type UnknownDefinitionError struct {
	Kind domain.DefinitionKind
	IDs  []int64
}

func (e *UnknownDefinitionError) Error() string {
	return fmt.Sprintf("unknown %s ids: %v", e.Kind, e.IDs)
}

// ReplacePanelItems overwrites a project's panel collection in one transaction.
func (s *Store) ReplacePanelItems(ctx context.Context, projectID int64, items []domain.PanelItem) error {
	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.PanelID
	}
	return s.replace(ctx, projectID, domain.DefinitionPanels, ids, `DELETE FROM project_panels WHERE project_id = ?`, func(tx *sql.Tx) error {
		for i, it := range items {
			if _, err := s.db.exec(ctx, tx, `INSERT INTO project_panels(project_id, position, panel_id, qty, width_cm, height_cm, sqm, weight_kg) VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
				projectID, i, it.PanelID, it.Qty, it.WidthCm, it.HeightCm, it.Sqm, it.WeightKg); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceConsumableItems overwrites a project's consumable collection in one transaction.
func (s *Store) ReplaceConsumableItems(ctx context.Context, projectID int64, items []domain.ConsumableItem) error {
	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ConsumableID
	}
	return s.replace(ctx, projectID, domain.DefinitionConsumables, ids, `DELETE FROM project_consumables WHERE project_id = ?`, func(tx *sql.Tx) error {
		for i, it := range items {
			if _, err := s.db.exec(ctx, tx, `INSERT INTO project_consumables(project_id, position, consumable_id, qty) VALUES(?, ?, ?, ?)`,
				projectID, i, it.ConsumableID, it.Qty); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) replace(ctx context.Context, projectID int64, kind domain.DefinitionKind, refs []int64, clear string, insert func(tx *sql.Tx) error) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := s.db.queryRow(ctx, tx, `SELECT COUNT(*) FROM projects WHERE id = ?`, projectID).Scan(&n); err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		missing, err := s.missingDefinitions(ctx, tx, kind, refs)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return &UnknownDefinitionError{Kind: kind, IDs: missing}
		}
		if _, err := s.db.exec(ctx, tx, clear, projectID); err != nil {
			return err
		}
		return insert(tx)
	})
}

// ListImages returns one category of an owner's images, newest first.
func (s *Store) ListImages(ctx context.Context, kind domain.OwnerKind, ownerID int64, category domain.Category) ([]domain.Asset, error) {
	rows, err := s.db.query(ctx, s.db.sql, `SELECT id, owner_id, category, image_path, original_name, created_at FROM images
		WHERE owner_kind = ? AND owner_id = ? AND category = ? ORDER BY id DESC`, string(kind), ownerID, string(category))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := []domain.Asset{}
	for rows.Next() {
		var (
			a   domain.Asset
			cat string
		)
		if err := rows.Scan(&a.ID, &a.OwnerID, &cat, &a.StoragePath, &a.OriginalName, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Category = domain.Category(cat)
		out = append(out, a)
	}
	return out, rows.Err()
}

// AddImages records stored uploads in one transaction.
func (s *Store) AddImages(ctx context.Context, kind domain.OwnerKind, assets []domain.Asset) ([]domain.Asset, error) {
	out := make([]domain.Asset, 0, len(assets))
	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		for _, a := range assets {
			id, err := s.db.insert(ctx, tx, `INSERT INTO images(owner_kind, owner_id, category, image_path, original_name) VALUES(?, ?, ?, ?, ?)`,
				string(kind), a.OwnerID, string(a.Category), a.StoragePath, a.OriginalName)
			if err != nil {
				return err
			}
			a.ID = id
			out = append(out, a)
		}
		return nil
	})
	return out, err
}

// DeleteImage removes one image row and returns its storage path.
func (s *Store) DeleteImage(ctx context.Context, kind domain.OwnerKind, ownerID, imageID int64) (string, error) {
	var path string
	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		err := s.db.queryRow(ctx, tx, `SELECT image_path FROM images WHERE id = ? AND owner_kind = ? AND owner_id = ?`, imageID, string(kind), ownerID).Scan(&path)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		_, err = s.db.exec(ctx, tx, `DELETE FROM images WHERE id = ?`, imageID)
		return err
	})
	return path, err
}
