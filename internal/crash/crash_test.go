/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package crash

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteReportCreatesFileInTemp(t *testing.T) {
	path, err := writeReport(nil, "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(path) })
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "Takip Crash Report") {
		t.Fatalf("report header missing")
	}
	if !strings.Contains(s, "Panic: boom") {
		t.Fatalf("panic content missing: %s", s)
	}
}

func TestWriteReportScrubsArgs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	cc := &Context{Dir: dir, Command: "login", Args: []string{"login", "--user", "ali", "--password", "hunter2", "--token=abc"}}
	path, err := writeReport(cc, "kaboom", []byte("stack"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("report written to %s, want under %s", path, dir)
	}
	b, _ := os.ReadFile(path)
	s := string(b)
	if strings.Contains(s, "hunter2") || strings.Contains(s, "abc") {
		t.Fatalf("credentials leaked into report: %s", s)
	}
	if !strings.Contains(s, "Command: login") || !strings.Contains(s, "--user ali") {
		t.Fatalf("context missing: %s", s)
	}
}

func TestScrubArgs(t *testing.T) {
	got := ScrubArgs([]string{"-password", "x", "--api", "http://h", "--secret=y", "--token"})
	want := []string{"-password", "[REDACTED]", "--api", "http://h", "--secret=[REDACTED]", "--token"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Fatalf("ScrubArgs = %q, want %q", got, want)
	}
}
