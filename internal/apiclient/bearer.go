/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package apiclient

import "sync"

// Bearer holds the armed token shared between the session manager and the request layer.
// Arm is the only mutation entry point; an empty token disarms.
type Bearer struct {
	mu    sync.RWMutex
	token string
}

// NewBearer returns a disarmed holder.
func NewBearer() *Bearer { return &Bearer{} }

// Arm sets the token attached to subsequent authenticated calls.
func (b *Bearer) Arm(token string) {
	b.mu.Lock()
	b.token = token
	b.mu.Unlock()
}

// Token returns the armed token or "".
func (b *Bearer) Token() string {
	if b == nil {
		return ""
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.token
}

// Armed reports whether a token is set.
func (b *Bearer) Armed() bool { return b.Token() != "" }
