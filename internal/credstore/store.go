/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package credstore persists the session credential outside ordinary application storage.
// Exactly two keys are supported: the bearer token and the serialized identity record.
package credstore

import (
	"errors"
	"fmt"
)

// Keys accepted by every Store.
const (
	KeyToken    = "takip_token"
	KeyIdentity = "takip_user"
)

var (
	// ErrUnavailable wraps failures of the underlying device facility.
	ErrUnavailable = errors.New("credential store unavailable")
	// ErrUnknownKey is returned for keys other than KeyToken and KeyIdentity.
	ErrUnknownKey = errors.New("unknown credential key")
)

// Store is a durable string key/value store.
// Load reports ok=false with a nil error when the key is absent.
type Store interface {
	Save(key, value string) error
	Load(key string) (value string, ok bool, err error)
	Clear(key string) error
}

func checkKey(key string) error {
	switch key {
	case KeyToken, KeyIdentity:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
}

// Backend names accepted by Open.
const (
	BackendKeyring = "keyring"
	BackendFile    = "file"
	BackendMemory  = "memory"
)

// Open returns the Store for a configured backend name. path is used by the file backend only.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", BackendKeyring:
		return NewKeyring(DefaultService), nil
	case BackendFile:
		if path == "" {
			return nil, errors.New("file credential backend requires a path")
		}
		return NewFile(path), nil
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown credential backend %q", backend)
	}
}
