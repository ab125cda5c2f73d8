/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the data model shared by the session, editor and gallery layers.
// Wire shapes that arrive loosely typed from the server are normalised into these
// types at the package boundary that fetched them.

import (
	"encoding/json"
	"strings"
)

// Role is an open string; known values gate editing in collaborating UI only.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleAssistant Role = "assistant"
	RoleMember    Role = "member"
)

// Identity is the signed-in user as returned by POST /auth/login.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// CanEdit reports whether the role may mutate projects, samples and galleries.
func (i Identity) CanEdit() bool {
	return i.Role == RoleAdmin || i.Role == RoleAssistant
}

// UnmarshalJSON accepts numeric or string ids.
func (i *Identity) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID       any    `json:"id"`
		Username string `json:"username"`
		Role     string `json:"role"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	i.ID = ToID(raw.ID)
	i.Username = raw.Username
	i.Role = Role(strings.TrimSpace(raw.Role))
	return nil
}

// Definition is a catalog entry (panel or consumable) that line items reference by id.
type Definition struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// DefinitionKind names a catalog; its value is the collection route segment.
type DefinitionKind string

const (
	DefinitionPanels      DefinitionKind = "panels"
	DefinitionConsumables DefinitionKind = "consumables"
)

// Valid reports whether k is a known catalog.
func (k DefinitionKind) Valid() bool {
	return k == DefinitionPanels || k == DefinitionConsumables
}

// PanelItem is one row of a project's panel collection.
type PanelItem struct {
	PanelID  int64
	Qty      float64
	WidthCm  float64
	HeightCm float64
	Sqm      float64
	WeightKg float64
	// Name is the display name the server joined in, if any. Never sent back.
	Name string
}

// ConsumableItem is one row of a project's consumable collection.
type ConsumableItem struct {
	ConsumableID int64
	Qty          float64
	Name         string
}

// Asset is an image attached to a project or sample under one category.
type Asset struct {
	ID           int64
	OwnerID      int64
	Category     Category
	StoragePath  string
	OriginalName string
	CreatedAt    string
}

// Project is the parent resource of line item collections and a project gallery.
type Project struct {
	ID                 int64   `json:"id,omitempty"`
	ProjectNo          string  `json:"project_no"`
	ProjectDate        string  `json:"project_date"`
	TargetShipmentDate *string `json:"target_shipment_date"`
	ShipmentDate       *string `json:"shipment_date"`
	CompanyName        string  `json:"company_name"`
	ProjectName        string  `json:"project_name"`
	Status             string  `json:"status"`
	VehicleNote        string  `json:"vehicle_note"`
	TotalSqm           Numeric `json:"total_sqm"`
	TotalWeightKg      Numeric `json:"total_weight_kg"`
}

// ProjectStatuses is the closed set offered by the status picker.
var ProjectStatuses = []string{
	"Beklemede",
	"Üretim Yapılıyor",
	"Zımpara Yapılıyor",
	"Vintage/Boya Yapılıyor",
	"Paketleniyor",
	"Paketlendi",
	"Tamamlandı",
	"İptal Edildi",
}

// DefaultProjectStatus is preselected for new projects.
const DefaultProjectStatus = "Beklemede"

// Sample owns a sample gallery.
type Sample struct {
	ID         int64   `json:"id,omitempty"`
	SampleNo   string  `json:"sample_no"`
	SampleDate string  `json:"sample_date"`
	SampleName string  `json:"sample_name"`
	Status     string  `json:"status"`
	Note       *string `json:"note"`
}

// PageMeta describes one page of a paged listing.
type PageMeta struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
