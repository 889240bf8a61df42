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

package simulator

import (
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// A Tracer receives one trace record per executed transaction.
type Tracer interface {
	TracingEnabled() bool
	OnRecordTrace(
		operation string,
		duration time.Duration,
		attrs []attribute.KeyValue,
	)
}

// TracerFunc adapts a function to the Tracer interface.
// A nil-safe always-enabled adapter for tests.
type TracerFunc func(
	operation string,
	duration time.Duration,
	attrs []attribute.KeyValue,
)

var _ Tracer = TracerFunc(nil)

func (f TracerFunc) TracingEnabled() bool {
	return f != nil
}

func (f TracerFunc) OnRecordTrace(
	operation string,
	duration time.Duration,
	attrs []attribute.KeyValue,
) {
	f(operation, duration, attrs)
}
