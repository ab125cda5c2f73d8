/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package gallery

import (
	"context"
	"fmt"
	"os"
)

// Picker supplies local files for upload. A denied device permission must be reported as
// an error wrapping fs.ErrPermission; an empty result means the user cancelled.
type Picker interface {
	Pick(ctx context.Context) ([]File, error)
}

// PathPicker picks a fixed list of paths, checking that each is a readable regular file.
type PathPicker []string

// Pick implements Picker.
func (p PathPicker) Pick(ctx context.Context) ([]File, error) {
	out := make([]File, 0, len(p))
	for _, path := range p {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fi, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !fi.Mode().IsRegular() {
			return nil, fmt.Errorf("%s is not a regular file", path)
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		_ = f.Close()
		out = append(out, File{Path: path})
	}
	return out, nil
}
