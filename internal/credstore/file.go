/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package credstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
)

// File keeps credentials in a 0600 JSON file for hosts without a keychain (CI, headless Linux).
// Every write replaces the file through a synced temp file and rename.
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile creates a file-backed store at path.
func NewFile(path string) *File { return &File{path: path} }

// Save writes value under key and rewrites the file atomically.
func (f *File) Save(key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.read()
	if err != nil {
		return err
	}
	m[key] = value
	return f.write(m)
}

// Load reads key; a missing file or entry is reported as ok=false.
func (f *File) Load(key string) (string, bool, error) {
	if err := checkKey(key); err != nil {
		return "", false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.read()
	if err != nil {
		return "", false, err
	}
	v, ok := m[key]
	return v, ok, nil
}

// Clear removes key. Clearing a missing entry succeeds.
func (f *File) Clear(key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := m[key]; !ok {
		return nil
	}
	delete(m, key)
	return f.write(m)
}

func (f *File) read() (map[string]string, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrUnavailable, f.path, err)
	}
	m := map[string]string{}
	if len(b) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrUnavailable, f.path, err)
	}
	return m, nil
}

func (f *File) write(m map[string]string) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrUnavailable, dir, err)
	}
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(f.path), os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, data); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("%w: write temp: %v", ErrUnavailable, err)
	}
	if err := os.Rename(temp, f.path); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("%w: replace %s: %v", ErrUnavailable, f.path, err)
	}
	return nil
}

func writeFileSync(path string, data []byte) (err error) {
	fh, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := fh.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := fh.Write(data); err != nil {
		return err
	}
	return fh.Sync()
}
