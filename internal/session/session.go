/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package session owns the authenticated identity across process restarts.
//
// A Manager is either Unauthenticated (no token) or Authenticated (token and identity set).
// Every transition is mirrored into a credstore.Store and arms or disarms the request
// layer through the Armer it was constructed with.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"takip/internal/apperr"
	"takip/internal/credstore"
	"takip/internal/domain"
	applog "takip/internal/log"
)

// Armer receives the token the request layer attaches to authenticated calls.
// *apiclient.Bearer implements it.
type Armer interface {
	Arm(token string)
}

// Authenticator exchanges credentials for a token; *apiclient.Client implements it.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, domain.Identity, error)
}

// Manager holds the current session.
type Manager struct {
	store credstore.Store
	armer Armer
	log   *slog.Logger

	mu       sync.RWMutex
	token    string
	identity *domain.Identity
	ready    bool
}

// New creates an unauthenticated, not-yet-ready manager.
func New(store credstore.Store, armer Armer) *Manager {
	return &Manager{
		store: store,
		armer: armer,
		log:   applog.WithComponent("session"),
	}
}

// Bootstrap restores a persisted session. It always completes with Ready() true; a token
// or identity that cannot be loaded leaves the session Unauthenticated.
func (m *Manager) Bootstrap(ctx context.Context) {
	l := applog.WithOperation(m.log, "bootstrap")
	m.mu.Lock()
	m.ready = false
	m.mu.Unlock()

	token, identity, err := m.loadPersisted(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		l.Warn("persisted session unavailable", slog.Any("err", err))
	}
	if err == nil && token != "" && identity != nil {
		m.token = token
		m.identity = identity
		m.armer.Arm(token)
		l.Info("session restored", slog.String("user", identity.Username))
	} else {
		m.token = ""
		m.identity = nil
		m.armer.Arm("")
		l.Debug("no persisted session")
	}
	m.ready = true
}

func (m *Manager) loadPersisted(ctx context.Context) (string, *domain.Identity, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	token, ok, err := m.store.Load(credstore.KeyToken)
	if err != nil || !ok || strings.TrimSpace(token) == "" {
		return "", nil, err
	}
	blob, ok, err := m.store.Load(credstore.KeyIdentity)
	if err != nil || !ok {
		return "", nil, err
	}
	var id domain.Identity
	if err := json.Unmarshal([]byte(blob), &id); err != nil {
		return "", nil, err
	}
	return token, &id, nil
}

// SignIn makes the session Authenticated. In-memory state and the armed token change first;
// a persistence failure is returned but does not roll them back, so the session stays usable
// until the process exits. Both persisted entries are cleared on such a failure.
func (m *Manager) SignIn(token string, identity domain.Identity) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apperr.Validation("session.sign_in", "token is required")
	}
	blob, err := json.Marshal(identity)
	if err != nil {
		return apperr.Validation("session.sign_in", "identity cannot be serialized: "+err.Error())
	}

	m.mu.Lock()
	m.token = token
	id := identity
	m.identity = &id
	m.armer.Arm(token)
	m.mu.Unlock()

	l := applog.WithOperation(m.log, "sign_in")
	if err := m.store.Save(credstore.KeyToken, token); err != nil {
		l.Warn("token not persisted", slog.Any("err", err))
		m.dropPersisted(l)
		return err
	}
	if err := m.store.Save(credstore.KeyIdentity, string(blob)); err != nil {
		l.Warn("identity not persisted", slog.Any("err", err))
		m.dropPersisted(l)
		return err
	}
	l.Info("signed in", slog.String("user", identity.Username), slog.String("role", string(identity.Role)))
	return nil
}

// dropPersisted clears both entries so a half-written pair never outlives the process.
func (m *Manager) dropPersisted(l *slog.Logger) {
	for _, key := range []string{credstore.KeyToken, credstore.KeyIdentity} {
		if err := m.store.Clear(key); err != nil {
			l.Warn("stale entry not cleared", slog.String("key", key), slog.Any("err", err))
		}
	}
}

// Login validates the credentials locally, authenticates without the armed token, and signs in.
func (m *Manager) Login(ctx context.Context, auth Authenticator, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return apperr.Validation("session.login", "username and password are required")
	}
	token, identity, err := auth.Login(ctx, username, password)
	if err != nil {
		return err
	}
	return m.SignIn(token, identity)
}

// Logout clears the session and both persisted entries. Calling it while Unauthenticated is a no-op.
func (m *Manager) Logout() error {
	m.mu.Lock()
	if m.token == "" {
		m.mu.Unlock()
		return nil
	}
	m.token = ""
	m.identity = nil
	m.armer.Arm("")
	m.mu.Unlock()

	errTok := m.store.Clear(credstore.KeyToken)
	errID := m.store.Clear(credstore.KeyIdentity)
	if err := errors.Join(errTok, errID); err != nil {
		applog.WithOperation(m.log, "logout").Warn("persisted session not cleared", slog.Any("err", err))
		return err
	}
	m.log.Info("signed out")
	return nil
}

// Ready is false only while Bootstrap runs (and before it first runs).
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ready
}

// Authenticated reports whether a token is held.
func (m *Manager) Authenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token != ""
}

// Token returns the current token or "".
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Identity returns the signed-in identity; ok is false when Unauthenticated.
func (m *Manager) Identity() (domain.Identity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == "" || m.identity == nil {
		return domain.Identity{}, false
	}
	return *m.identity, true
}

// CanEdit reports whether the signed-in role may mutate resources.
func (m *Manager) CanEdit() bool {
	id, ok := m.Identity()
	return ok && id.CanEdit()
}
