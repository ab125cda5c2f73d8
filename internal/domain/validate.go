/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"fmt"
	"strings"

	"takip/internal/apperr"
)

// Normalize trims every text field and turns blank optional dates into nil.
func (p Project) Normalize() Project {
	p.ProjectNo = strings.TrimSpace(p.ProjectNo)
	p.ProjectDate = strings.TrimSpace(p.ProjectDate)
	p.TargetShipmentDate = blankToNil(p.TargetShipmentDate)
	p.ShipmentDate = blankToNil(p.ShipmentDate)
	p.CompanyName = strings.TrimSpace(p.CompanyName)
	p.ProjectName = strings.TrimSpace(p.ProjectName)
	p.Status = strings.TrimSpace(p.Status)
	p.VehicleNote = strings.TrimSpace(p.VehicleNote)
	p.TotalSqm = Numeric(ToNumeric(float64(p.TotalSqm)))
	p.TotalWeightKg = Numeric(ToNumeric(float64(p.TotalWeightKg)))
	return p
}

// Validate reports the first missing required field.
func (p Project) Validate() error {
	return requireFields("project.save", []field{
		{"project_no", p.ProjectNo},
		{"project_date", p.ProjectDate},
		{"company_name", p.CompanyName},
		{"project_name", p.ProjectName},
		{"status", p.Status},
	})
}

// Normalize trims every text field; a blank note is kept as an empty string.
func (s Sample) Normalize() Sample {
	s.SampleNo = strings.TrimSpace(s.SampleNo)
	s.SampleDate = strings.TrimSpace(s.SampleDate)
	s.SampleName = strings.TrimSpace(s.SampleName)
	s.Status = strings.TrimSpace(s.Status)
	if s.Note != nil {
		n := strings.TrimSpace(*s.Note)
		s.Note = &n
	}
	return s
}

// Validate reports the first missing required field.
func (s Sample) Validate() error {
	return requireFields("sample.save", []field{
		{"sample_no", s.SampleNo},
		{"sample_date", s.SampleDate},
		{"sample_name", s.SampleName},
		{"status", s.Status},
	})
}

// ValidateDefinitionName rejects blank catalog names.
func ValidateDefinitionName(op, name string) (string, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		return "", apperr.Validation(op, "name is required")
	}
	return n, nil
}

type field struct {
	name  string
	value string
}

func requireFields(op string, fields []field) error {
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return apperr.Validation(op, fmt.Sprintf("%s is required", f.name))
		}
	}
	return nil
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
