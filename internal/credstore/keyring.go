/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package credstore

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// DefaultService is the OS keychain service name entries are filed under.
const DefaultService = "takip"

// Keyring stores credentials in the OS keychain (Keychain, Secret Service, Windows Credential Manager).
type Keyring struct {
	service string
}

// NewKeyring creates a keychain-backed store under service.
func NewKeyring(service string) *Keyring {
	if service == "" {
		service = DefaultService
	}
	return &Keyring{service: service}
}

// Save writes value under key in the system keychain.
func (k *Keyring) Save(key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := keyring.Set(k.service, key, value); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrUnavailable, key, err)
	}
	return nil
}

// Load reads key; a missing entry is reported as ok=false, not an error.
func (k *Keyring) Load(key string) (string, bool, error) {
	if err := checkKey(key); err != nil {
		return "", false, err
	}
	v, err := keyring.Get(k.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: get %s: %v", ErrUnavailable, key, err)
	}
	return v, true, nil
}

// Clear removes key. Clearing a missing entry succeeds.
func (k *Keyring) Clear(key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	err := keyring.Delete(k.service, key)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%w: delete %s: %v", ErrUnavailable, key, err)
	}
	return nil
}
