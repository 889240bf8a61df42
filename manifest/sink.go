/*
 * Atomledger Test Engine - a test harness for simulated ledger components
 *
 * Copyright Atomledger Contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *   http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// A Sink receives the textual rendering of each submitted transaction.
type Sink interface {
	Write(name string, rendered string) error
}

// FileSink dumps rendered transactions to disk, one file per transaction,
// numbered in submission order.
type FileSink struct {
	mu   sync.Mutex
	dir  string
	next int
}

var _ Sink = &FileSink{}

// NewFileSink returns a sink writing into the given directory.
// The directory is created on first write.
func NewFileSink(dir string) *FileSink {
	return &FileSink{
		dir:  dir,
		next: 1,
	}
}

var unsafeNameChars = regexp.MustCompile(`[^a-z0-9_]+`)

func fileSinkName(name string) string {
	name = strings.ToLower(name)
	name = unsafeNameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	if name == "" {
		name = "transaction"
	}
	return name
}

func (s *FileSink) Write(name string, rendered string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.MkdirAll(s.dir, 0o755)
	if err != nil {
		return err
	}

	path := filepath.Join(
		s.dir,
		fmt.Sprintf("%03d_%s.rtm", s.next, fileSinkName(name)),
	)
	err = os.WriteFile(path, []byte(rendered), 0o644)
	if err != nil {
		return err
	}

	s.next++
	return nil
}
