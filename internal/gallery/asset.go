/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package gallery

import (
	"encoding/json"
	"strings"

	"takip/internal/domain"
)

type wireAsset struct {
	ID           domain.Numeric  `json:"id"`
	ProjectID    *domain.Numeric `json:"project_id"`
	SampleID     *domain.Numeric `json:"sample_id"`
	Category     string          `json:"category"`
	ImagePath    string          `json:"image_path"`
	Path         string          `json:"path"`
	OriginalName string          `json:"original_name"`
	CreatedAt    string          `json:"created_at"`
}

// decodeAsset normalises one listed image. Rows without an id or a storage path are rejected.
func decodeAsset(raw json.RawMessage, kind domain.OwnerKind, ownerID int64, category domain.Category) (domain.Asset, bool) {
	if !strings.HasPrefix(strings.TrimSpace(string(raw)), "{") {
		return domain.Asset{}, false
	}
	var w wireAsset
	if err := json.Unmarshal(raw, &w); err != nil {
		return domain.Asset{}, false
	}
	path := strings.TrimSpace(w.ImagePath)
	if path == "" {
		path = strings.TrimSpace(w.Path)
	}
	id := domain.ToID(w.ID)
	if id <= 0 || path == "" {
		return domain.Asset{}, false
	}
	a := domain.Asset{
		ID:           id,
		OwnerID:      ownerID,
		Category:     category,
		StoragePath:  path,
		OriginalName: w.OriginalName,
		CreatedAt:    w.CreatedAt,
	}
	owner := w.ProjectID
	if kind == domain.OwnerSample {
		owner = w.SampleID
	}
	if owner != nil && domain.ToID(*owner) > 0 {
		a.OwnerID = domain.ToID(*owner)
	}
	if c := domain.Category(strings.TrimSpace(w.Category)); kind.Allows(c) {
		a.Category = c
	}
	return a, true
}
