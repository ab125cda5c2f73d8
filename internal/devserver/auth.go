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
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"takip/internal/domain"
)

type tokenClaims struct {
	Sub      int64  `json:"sub"`
	Username string `json:"usr"`
	Role     string `json:"role"`
	Exp      int64  `json:"exp"` // unix seconds
}

func signToken(secret string, u domain.Identity, exp time.Time) (string, error) {
	claims := tokenClaims{Sub: u.ID, Username: u.Username, Role: string(u.Role), Exp: exp.Unix()}
	b, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	h := hmac.New(sha256.New, []byte(secret))
	_, _ = h.Write(b)
	payload := base64.RawURLEncoding.EncodeToString(b)
	signature := base64.RawURLEncoding.EncodeToString(h.Sum(nil))
	return payload + "." + signature, nil
}

func verifyToken(secret, token string) (domain.Identity, error) {
	payload, sig, ok := strings.Cut(token, ".")
	if !ok {
		return domain.Identity{}, fmt.Errorf("invalid token format")
	}
	payloadB, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("invalid token payload")
	}
	sigB, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("invalid token signature")
	}
	h := hmac.New(sha256.New, []byte(secret))
	_, _ = h.Write(payloadB)
	if !hmac.Equal(h.Sum(nil), sigB) {
		return domain.Identity{}, fmt.Errorf("bad signature")
	}
	var claims tokenClaims
	if err := json.Unmarshal(payloadB, &claims); err != nil {
		return domain.Identity{}, fmt.Errorf("bad claims")
	}
	if claims.Exp < time.Now().Unix() {
		return domain.Identity{}, fmt.Errorf("token expired")
	}
	return domain.Identity{ID: claims.Sub, Username: claims.Username, Role: domain.Role(claims.Role)}, nil
}

type identityKey struct{}

// IdentityFrom returns the caller attached by the auth wrapper.
func IdentityFrom(ctx context.Context) (domain.Identity, bool) {
	u, ok := ctx.Value(identityKey{}).(domain.Identity)
	return u, ok
}

// withAuth rejects requests without a valid bearer token.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		const prefix = "bearer "
		if len(auth) < len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		u, err := verifyToken(s.cfg.AuthSecret, strings.TrimSpace(auth[len(prefix):]))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, u)))
	}
}

// withEditor additionally requires a role allowed to mutate data.
func (s *Server) withEditor(next http.HandlerFunc) http.HandlerFunc {
	return s.withAuth(func(w http.ResponseWriter, r *http.Request) {
		if u, _ := IdentityFrom(r.Context()); !u.CanEdit() {
			writeError(w, http.StatusForbidden, "insufficient role")
			return
		}
		next(w, r)
	})
}
