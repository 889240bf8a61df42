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
	"github.com/atomledger/testengine/common"
)

// An Outcome is the terminal state of one submitted transaction:
// Success, Failure, or Fault.
type Outcome interface {
	isOutcome()
}

// Success carries the encoded return payload of the transaction's
// final call instruction.
type Success struct {
	ReturnPayload []byte
}

func (Success) isOutcome() {}

// Failure is a rejected transaction. All state changes are rolled back,
// except the fee, which is still charged.
type Failure struct {
	Message string
}

func (Failure) isOutcome() {}

// Fault is a transaction aborted by a panic in component code.
type Fault struct {
	Reason string
}

func (Fault) isOutcome() {}

// LogEntry is one log line emitted by component code during execution.
type LogEntry struct {
	Level   string
	Message string
}

// Receipt is the full record of one transaction execution.
type Receipt struct {
	Name    string
	Outcome Outcome

	// FeeCharged is deducted from the fee payer regardless of outcome.
	FeeCharged common.Decimal

	// NewComponents and NewResources list the entities created during a
	// successful execution, in creation order. Empty on failure.
	NewComponents []common.Address
	NewResources  []common.Address

	Logs []LogEntry
}

// IsSuccess reports whether the transaction committed.
func (r *Receipt) IsSuccess() bool {
	_, ok := r.Outcome.(Success)
	return ok
}

// ErrorMessage returns the failure message or fault reason,
// or the empty string for a committed transaction.
func (r *Receipt) ErrorMessage() string {
	switch outcome := r.Outcome.(type) {
	case Failure:
		return outcome.Message
	case Fault:
		return outcome.Reason
	default:
		return ""
	}
}
