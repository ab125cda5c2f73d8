/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package apiclient

import (
	"net/url"
	"strings"
)

// APISuffix is the path segment stripped from the API base to find the application root
// that relative storage paths are served from.
const APISuffix = "/api"

// NormalizeBase trims whitespace and every trailing slash.
func NormalizeBase(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), "/")
}

// AppRoot derives the application root from an API base: https://h/app/api -> https://h/app.
func AppRoot(apiBase string) string {
	return strings.TrimRight(strings.TrimSuffix(NormalizeBase(apiBase), APISuffix), "/")
}

// IsAbsoluteURL reports whether p already carries a scheme and host.
func IsAbsoluteURL(p string) bool {
	u, err := url.Parse(strings.TrimSpace(p))
	return err == nil && u.IsAbs() && u.Host != ""
}

// ResolveURL turns a storage path into a fetchable address. Absolute addresses are returned
// unchanged; relative ones are joined to the application root with exactly one slash.
func ResolveURL(apiBase, storagePath string) string {
	p := strings.TrimSpace(storagePath)
	if p == "" {
		return ""
	}
	if IsAbsoluteURL(p) {
		return p
	}
	return AppRoot(apiBase) + "/" + strings.TrimLeft(p, "/")
}
