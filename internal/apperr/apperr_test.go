/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfThroughWrapping(t *testing.T) {
	base := State("lineitems.add_row", "no definitions")
	wrapped := fmt.Errorf("editor: %w", base)
	if got := KindOf(wrapped); got != KindState {
		t.Fatalf("KindOf = %v, want %v", got, KindState)
	}
	if !errors.Is(wrapped, &Error{Kind: KindState}) {
		t.Fatalf("errors.Is by kind failed")
	}
	if errors.Is(wrapped, &Error{Kind: KindServer}) {
		t.Fatalf("errors.Is matched wrong kind")
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Fatalf("plain error should be KindUnknown")
	}
}

func TestMessagePriority(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"server message", Server("op", 400, "project_no required"), "project_no required"},
		{"transport message", Transport("op", cause), "dial tcp: connection refused"},
		{"fallback", &Error{Kind: KindServer, Status: 500}, FallbackMessage},
		{"foreign", errors.New("boom"), "boom"},
		{"nil", nil, ""},
	}
	for _, tc := range cases {
		if got := Message(tc.err); got != tc.want {
			t.Fatalf("%s: Message = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestErrorString(t *testing.T) {
	e := Validation("gallery.upload", "no files selected")
	if got, want := e.Error(), "gallery.upload: no files selected"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if KindPermission.String() != "permission" {
		t.Fatalf("Kind.String mismatch")
	}
}
