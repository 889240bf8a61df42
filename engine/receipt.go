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

package engine

import (
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/logrusorgru/aurora/v4"

	"github.com/atomledger/testengine/common"
	"github.com/atomledger/testengine/errors"
	"github.com/atomledger/testengine/manifest"
	"github.com/atomledger/testengine/simulator"
)

// TestingT is the subset of testing.T the assertion helpers need.
type TestingT interface {
	Errorf(format string, args ...any)
	FailNow()
}

// Receipt wraps a transaction receipt with assertion and decoding helpers.
type Receipt struct {
	engine *TestEngine
	inner  *simulator.Receipt
}

func newReceipt(engine *TestEngine, inner *simulator.Receipt) *Receipt {
	return &Receipt{
		engine: engine,
		inner:  inner,
	}
}

// Inner returns the underlying ledger receipt.
func (r *Receipt) Inner() *simulator.Receipt {
	return r.inner
}

func (r *Receipt) IsSuccess() bool {
	return r.inner.IsSuccess()
}

// ErrorMessage returns the failure message or fault reason,
// or the empty string for a committed transaction.
func (r *Receipt) ErrorMessage() string {
	return r.inner.ErrorMessage()
}

func (r *Receipt) FeeCharged() common.Decimal {
	return r.inner.FeeCharged
}

func (r *Receipt) NewComponents() []common.Address {
	return r.inner.NewComponents
}

func (r *Receipt) NewResources() []common.Address {
	return r.inner.NewResources
}

func (r *Receipt) Logs() []simulator.LogEntry {
	return r.inner.Logs
}

// ReturnPayload returns the encoded return payload
// of a committed transaction.
func (r *Receipt) ReturnPayload() []byte {
	success, ok := r.inner.Outcome.(simulator.Success)
	if !ok {
		return nil
	}
	return success.ReturnPayload
}

// PrintLogs writes the application logs emitted during execution
// to standard output, colored by level.
func (r *Receipt) PrintLogs() *Receipt {
	for _, entry := range r.inner.Logs {
		fmt.Println(formatLogEntry(entry))
	}
	return r
}

func formatLogEntry(entry simulator.LogEntry) string {
	line := fmt.Sprintf("[%s] %s", entry.Level, entry.Message)
	switch strings.ToUpper(entry.Level) {
	case "ERROR":
		return aurora.Red(line).String()
	case "WARN", "WARNING":
		return aurora.Yellow(line).String()
	case "DEBUG":
		return aurora.Faint(line).String()
	default:
		return line
	}
}

// AssertSuccess fails the test when the transaction did not commit.
// The application logs of the failed transaction are included
// in the failure output.
func (r *Receipt) AssertSuccess(t TestingT) *Receipt {
	if !r.IsSuccess() {
		var logs strings.Builder
		for _, entry := range r.inner.Logs {
			logs.WriteByte('\n')
			logs.WriteString(formatLogEntry(entry))
		}
		t.Errorf(
			"%s%s",
			aurora.Red(fmt.Sprintf(
				"transaction %q did not succeed: %s",
				r.inner.Name,
				r.ErrorMessage(),
			)).String(),
			logs.String(),
		)
		t.FailNow()
	}
	return r
}

// AssertFailureContains fails the test when the transaction committed,
// or when it failed with a message not containing the given fragment.
func (r *Receipt) AssertFailureContains(
	t TestingT,
	fragment string,
) *Receipt {
	if r.IsSuccess() {
		t.Errorf(
			"%s",
			aurora.Red(fmt.Sprintf(
				"transaction %q succeeded, expected a failure containing %q",
				r.inner.Name,
				fragment,
			)).String(),
		)
		t.FailNow()
		return r
	}

	message := r.ErrorMessage()
	if !strings.Contains(message, fragment) {
		t.Errorf(
			"%s",
			aurora.Red(fmt.Sprintf(
				"transaction %q failed with %q, expected a failure containing %q",
				r.inner.Name,
				message,
				fragment,
			)).String(),
		)
		t.FailNow()
	}
	return r
}

// DecodeError is reported when a return value cannot be decoded
// into the requested type.
type DecodeError struct {
	Index  int
	Reason string
}

var _ errors.UserError = DecodeError{}

func (e DecodeError) Error() string {
	return fmt.Sprintf(
		"cannot decode return value %d: %s",
		e.Index,
		e.Reason,
	)
}

func (e DecodeError) IsUserError() {}

// DecodeReturn decodes the first return value of a committed transaction.
//
// Addresses, decimal amounts, and non-fungible ids decode into their
// native types. Bucket and proof returns are opaque containers and are
// rejected.
func DecodeReturn[T any](r *Receipt) (T, error) {
	return DecodeReturnAt[T](r, 0)
}

// DecodeReturnAt decodes the return value at the given position.
func DecodeReturnAt[T any](r *Receipt, index int) (T, error) {
	var zero T

	success, ok := r.inner.Outcome.(simulator.Success)
	if !ok {
		return zero, DecodeError{
			Index:  index,
			Reason: "transaction did not succeed",
		}
	}

	items, err := manifest.DecodePayload(success.ReturnPayload)
	if err != nil {
		return zero, DecodeError{
			Index:  index,
			Reason: err.Error(),
		}
	}

	if index < 0 || index >= len(items) {
		return zero, DecodeError{
			Index: index,
			Reason: fmt.Sprintf(
				"transaction returned %d values",
				len(items),
			),
		}
	}

	var decoded any
	err = manifest.CBORDecMode.Unmarshal(items[index], &decoded)
	if err != nil {
		return zero, DecodeError{
			Index:  index,
			Reason: err.Error(),
		}
	}

	if tag, ok := decoded.(cbor.Tag); ok {
		return decodeTagged[T](index, tag)
	}

	var result T
	err = manifest.CBORDecMode.Unmarshal(items[index], &result)
	if err != nil {
		return zero, DecodeError{
			Index:  index,
			Reason: err.Error(),
		}
	}
	return result, nil
}

func decodeTagged[T any](index int, tag cbor.Tag) (T, error) {
	var zero T

	switch tag.Number {
	case manifest.TagBucket, manifest.TagProof:
		return zero, DecodeError{
			Index:  index,
			Reason: "return value is an opaque container handle",
		}

	case manifest.TagAddress:
		data, ok := tag.Content.([]byte)
		if !ok {
			return zero, DecodeError{
				Index:  index,
				Reason: "malformed address payload",
			}
		}
		return convertDecoded[T](index, common.BytesToAddress(data))

	case manifest.TagDecimal:
		raw, ok := tag.Content.(uint64)
		if !ok {
			return zero, DecodeError{
				Index:  index,
				Reason: "malformed decimal payload",
			}
		}
		return convertDecoded[T](index, common.DecimalFromRaw(raw))

	case manifest.TagNonFungibleID:
		literal, ok := tag.Content.(string)
		if !ok {
			return zero, DecodeError{
				Index:  index,
				Reason: "malformed non-fungible id payload",
			}
		}
		id, err := common.ParseNonFungibleID(literal)
		if err != nil {
			return zero, DecodeError{
				Index:  index,
				Reason: err.Error(),
			}
		}
		return convertDecoded[T](index, id)

	default:
		return zero, DecodeError{
			Index: index,
			Reason: fmt.Sprintf(
				"unsupported tag %d",
				tag.Number,
			),
		}
	}
}

func convertDecoded[T any](index int, value any) (T, error) {
	result, ok := value.(T)
	if !ok {
		var zero T
		return zero, DecodeError{
			Index: index,
			Reason: fmt.Sprintf(
				"return value is a %T, not a %T",
				value,
				zero,
			),
		}
	}
	return result, nil
}
