/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package lineitems

import (
	"encoding/json"
	"strings"

	"takip/internal/domain"
)

// Panel item columns.
const (
	FieldPanelID  Field = "panel_id"
	FieldQty      Field = "qty"
	FieldWidthCm  Field = "width_cm"
	FieldHeightCm Field = "height_cm"
	FieldSqm      Field = "sqm"
	FieldWeightKg Field = "weight_kg"
)

// Consumable item columns.
const FieldConsumableID Field = "consumable_id"

type wirePanelItem struct {
	PanelID   domain.Numeric `json:"panel_id"`
	Qty       domain.Numeric `json:"qty"`
	WidthCm   domain.Numeric `json:"width_cm"`
	HeightCm  domain.Numeric `json:"height_cm"`
	Sqm       domain.Numeric `json:"sqm"`
	WeightKg  domain.Numeric `json:"weight_kg"`
	PanelName string         `json:"panel_name,omitempty"`
	Name      string         `json:"name,omitempty"`
}

type panelPayload struct {
	PanelID  int64   `json:"panel_id"`
	Qty      float64 `json:"qty"`
	WidthCm  float64 `json:"width_cm"`
	HeightCm float64 `json:"height_cm"`
	Sqm      float64 `json:"sqm"`
	WeightKg float64 `json:"weight_kg"`
}

// Panels binds the editor to /projects/{id}/panels and the /panels catalog.
var Panels = Binding[domain.PanelItem]{
	Name:     "panels",
	Catalog:  domain.DefinitionPanels,
	Fields:   []Field{FieldPanelID, FieldQty, FieldWidthCm, FieldHeightCm, FieldSqm, FieldWeightKg},
	RefField: FieldPanelID,
	Decode: func(raw json.RawMessage) (domain.PanelItem, bool) {
		if !isObject(raw) {
			return domain.PanelItem{}, false
		}
		var w wirePanelItem
		if err := json.Unmarshal(raw, &w); err != nil {
			return domain.PanelItem{}, false
		}
		return domain.PanelItem{
			PanelID:  domain.ToID(w.PanelID),
			Qty:      w.Qty.Float(),
			WidthCm:  w.WidthCm.Float(),
			HeightCm: w.HeightCm.Float(),
			Sqm:      w.Sqm.Float(),
			WeightKg: w.WeightKg.Float(),
			Name:     firstNonEmpty(w.PanelName, w.Name),
		}, true
	},
	New: func(def domain.Definition) domain.PanelItem {
		return domain.PanelItem{PanelID: def.ID, Qty: 1, Name: def.Name}
	},
	Set: func(row *domain.PanelItem, f Field, v float64) {
		switch f {
		case FieldPanelID:
			row.PanelID = domain.IDFromFloat(v)
			row.Name = ""
		case FieldQty:
			row.Qty = v
		case FieldWidthCm:
			row.WidthCm = v
		case FieldHeightCm:
			row.HeightCm = v
		case FieldSqm:
			row.Sqm = v
		case FieldWeightKg:
			row.WeightKg = v
		}
	},
	Ref: func(row domain.PanelItem) int64 { return row.PanelID },
	Encode: func(row domain.PanelItem) any {
		return panelPayload{
			PanelID:  domain.ToID(row.PanelID),
			Qty:      domain.ToNumeric(row.Qty),
			WidthCm:  domain.ToNumeric(row.WidthCm),
			HeightCm: domain.ToNumeric(row.HeightCm),
			Sqm:      domain.ToNumeric(row.Sqm),
			WeightKg: domain.ToNumeric(row.WeightKg),
		}
	},
}

type wireConsumableItem struct {
	ConsumableID   domain.Numeric `json:"consumable_id"`
	Qty            domain.Numeric `json:"qty"`
	ConsumableName string         `json:"consumable_name,omitempty"`
	Name           string         `json:"name,omitempty"`
}

type consumablePayload struct {
	ConsumableID int64   `json:"consumable_id"`
	Qty          float64 `json:"qty"`
}

// Consumables binds the editor to /projects/{id}/consumables and the /consumables catalog.
var Consumables = Binding[domain.ConsumableItem]{
	Name:     "consumables",
	Catalog:  domain.DefinitionConsumables,
	Fields:   []Field{FieldConsumableID, FieldQty},
	RefField: FieldConsumableID,
	Decode: func(raw json.RawMessage) (domain.ConsumableItem, bool) {
		if !isObject(raw) {
			return domain.ConsumableItem{}, false
		}
		var w wireConsumableItem
		if err := json.Unmarshal(raw, &w); err != nil {
			return domain.ConsumableItem{}, false
		}
		return domain.ConsumableItem{
			ConsumableID: domain.ToID(w.ConsumableID),
			Qty:          w.Qty.Float(),
			Name:         firstNonEmpty(w.ConsumableName, w.Name),
		}, true
	},
	New: func(def domain.Definition) domain.ConsumableItem {
		return domain.ConsumableItem{ConsumableID: def.ID, Qty: 1, Name: def.Name}
	},
	Set: func(row *domain.ConsumableItem, f Field, v float64) {
		switch f {
		case FieldConsumableID:
			row.ConsumableID = domain.IDFromFloat(v)
			row.Name = ""
		case FieldQty:
			row.Qty = v
		}
	},
	Ref: func(row domain.ConsumableItem) int64 { return row.ConsumableID },
	Encode: func(row domain.ConsumableItem) any {
		return consumablePayload{
			ConsumableID: domain.ToID(row.ConsumableID),
			Qty:          domain.ToNumeric(row.Qty),
		}
	},
}

// NewPanelEditor edits a project's panel collection.
func NewPanelEditor(remote Remote, projectID int64) *Editor[domain.PanelItem] {
	return NewEditor(remote, Panels, projectID)
}

// NewConsumableEditor edits a project's consumable collection.
func NewConsumableEditor(remote Remote, projectID int64) *Editor[domain.ConsumableItem] {
	return NewEditor(remote, Consumables, projectID)
}

func isObject(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return strings.HasPrefix(s, "{")
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
