/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ToNumeric coerces an arbitrary input into a finite number. Anything that cannot be
// parsed, including nil, NaN and infinities, resolves to 0.
func ToNumeric(v any) float64 {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case Numeric:
		f = float64(x)
	case bool:
		if x {
			return 1
		}
		return 0
	case json.Number:
		return ToNumeric(string(x))
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0
		}
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		f = p
	case *string:
		if x == nil {
			return 0
		}
		return ToNumeric(*x)
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// ToID coerces an input to an integer id, truncating fractions.
func ToID(v any) int64 {
	return IDFromFloat(ToNumeric(v))
}

// IDFromFloat truncates f to an id. Values outside the int64 range become 0.
func IDFromFloat(f float64) int64 {
	if f >= math.MaxInt64 || f < math.MinInt64 || math.IsNaN(f) {
		return 0
	}
	return int64(f)
}

// Numeric is a float64 that decodes from JSON numbers, numeric strings or null.
type Numeric float64

// UnmarshalJSON never fails on a well-formed JSON value; unparsable input becomes 0.
func (n *Numeric) UnmarshalJSON(b []byte) error {
	var raw any
	dec := json.NewDecoder(strings.NewReader(string(b)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*n = Numeric(ToNumeric(raw))
	return nil
}

// Float returns n as float64.
func (n Numeric) Float() float64 { return float64(n) }
