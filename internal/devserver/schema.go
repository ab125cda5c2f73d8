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
	"fmt"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"takip/internal/domain"
)

// Replace payloads are checked against these before decoding.
const panelReplaceSchema = `{
  "type": "object",
  "required": ["items"],
  "properties": {
    "items": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["panel_id", "qty"],
        "properties": {
          "panel_id": {"type": "integer", "minimum": 1},
          "qty": {"type": "number", "minimum": 0},
          "width_cm": {"type": "number"},
          "height_cm": {"type": "number"},
          "sqm": {"type": "number"},
          "weight_kg": {"type": "number"}
        }
      }
    }
  }
}`

const consumableReplaceSchema = `{
  "type": "object",
  "required": ["items"],
  "properties": {
    "items": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["consumable_id", "qty"],
        "properties": {
          "consumable_id": {"type": "integer", "minimum": 1},
          "qty": {"type": "number", "minimum": 0}
        }
      }
    }
  }
}`

// PayloadSchemas exposes the replace schemas, keyed by catalog.
var PayloadSchemas = map[domain.DefinitionKind]string{
	domain.DefinitionPanels:      panelReplaceSchema,
	domain.DefinitionConsumables: consumableReplaceSchema,
}

type validators map[domain.DefinitionKind]*gojsonschema.Schema

func compileSchemas() (validators, error) {
	out := validators{}
	for kind, src := range PayloadSchemas {
		sc, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", kind, err)
		}
		out[kind] = sc
	}
	return out, nil
}

// check validates body and returns a readable summary of the violations.
func (v validators) check(kind domain.DefinitionKind, body []byte) error {
	sc, ok := v[kind]
	if !ok {
		return fmt.Errorf("no schema for %s", kind)
	}
	res, err := sc.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
