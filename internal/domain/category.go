/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import "slices"

// OwnerKind is the kind of resource an asset gallery hangs off.
type OwnerKind string

const (
	OwnerProject OwnerKind = "project"
	OwnerSample  OwnerKind = "sample"
)

// Category partitions an owner's gallery.
type Category string

const (
	CategoryProject        Category = "project"
	CategoryProduction     Category = "production"
	CategoryLabel          Category = "label"
	CategoryShipment       Category = "shipment"
	CategorySample         Category = "sample"
	CategorySampleShipment Category = "sample_shipment"
	CategorySampleLabels   Category = "sample_labels"
)

var ownerCategories = map[OwnerKind][]Category{
	OwnerProject: {CategoryProject, CategoryProduction, CategoryLabel, CategoryShipment, CategorySample},
	OwnerSample:  {CategorySample, CategorySampleShipment, CategorySampleLabels},
}

// Valid reports whether k is a known owner kind.
func (k OwnerKind) Valid() bool {
	_, ok := ownerCategories[k]
	return ok
}

// Collection is the route segment for the owner kind, e.g. "projects".
func (k OwnerKind) Collection() string { return string(k) + "s" }

// Categories returns the closed category set for k, in display order.
func (k OwnerKind) Categories() []Category {
	return slices.Clone(ownerCategories[k])
}

// DefaultCategory is the category a gallery opens on.
func (k OwnerKind) DefaultCategory() Category {
	cats := ownerCategories[k]
	if len(cats) == 0 {
		return ""
	}
	return cats[0]
}

// Allows reports whether c belongs to k's category set.
func (k OwnerKind) Allows(c Category) bool {
	return slices.Contains(ownerCategories[k], c)
}
