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
	"github.com/fxamacker/cbor/v2"

	"github.com/atomledger/testengine/common"
	"github.com/atomledger/testengine/errors"
)

// CBOR tag numbers for ledger-specific value kinds.
// Payloads produced by the backend use these tags so that decoders can
// recognize addresses, amounts, ids, and container handles.
const (
	TagAddress       = 60010
	TagDecimal       = 60011
	TagNonFungibleID = 60012
	TagBucket        = 60013
	TagProof         = 60014
)

// CBOREncMode is the deterministic encoding mode
// used for call-argument and return payloads.
var CBOREncMode = func() cbor.EncMode {
	options := cbor.CoreDetEncOptions()
	encMode, err := options.EncMode()
	if err != nil {
		panic(err)
	}
	return encMode
}()

// CBORDecMode is the decoding mode used for payloads.
var CBORDecMode = func() cbor.DecMode {
	decMode, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
	return decMode
}()

// A Value is a call-argument or return value of a ledger call.
type Value interface {
	isValue()
	// payload returns the Go value that is CBOR-encoded on the wire.
	payload() any
}

// Bool

type Bool bool

func (Bool) isValue() {}

func (v Bool) payload() any {
	return bool(v)
}

// Int

type Int int64

func (Int) isValue() {}

func (v Int) payload() any {
	return int64(v)
}

// UInt

type UInt uint64

func (UInt) isValue() {}

func (v UInt) payload() any {
	return uint64(v)
}

// String

type String string

func (String) isValue() {}

func (v String) payload() any {
	return string(v)
}

// Bytes

type Bytes []byte

func (Bytes) isValue() {}

func (v Bytes) payload() any {
	return []byte(v)
}

// AddressValue

type AddressValue common.Address

func (AddressValue) isValue() {}

func (v AddressValue) payload() any {
	return cbor.Tag{
		Number:  TagAddress,
		Content: common.Address(v).Bytes(),
	}
}

// DecimalValue

type DecimalValue common.Decimal

func (DecimalValue) isValue() {}

func (v DecimalValue) payload() any {
	return cbor.Tag{
		Number:  TagDecimal,
		Content: common.Decimal(v).Raw(),
	}
}

// IDValue

type IDValue struct {
	ID common.NonFungibleID
}

func (IDValue) isValue() {}

func (v IDValue) payload() any {
	return cbor.Tag{
		Number:  TagNonFungibleID,
		Content: v.ID.String(),
	}
}

// BucketValue references a bucket created earlier in the same transaction.

type BucketValue BucketID

func (BucketValue) isValue() {}

func (v BucketValue) payload() any {
	return cbor.Tag{
		Number:  TagBucket,
		Content: uint32(v),
	}
}

// ProofValue references a proof created earlier in the same transaction.

type ProofValue ProofID

func (ProofValue) isValue() {}

func (v ProofValue) payload() any {
	return cbor.Tag{
		Number:  TagProof,
		Content: uint32(v),
	}
}

// ArrayValue

type ArrayValue []Value

func (ArrayValue) isValue() {}

func (v ArrayValue) payload() any {
	elements := make([]any, len(v))
	for i, element := range v {
		elements[i] = element.payload()
	}
	return elements
}

// SomeValue / NilValue model an optional argument.

type SomeValue struct {
	Value Value
}

func (SomeValue) isValue() {}

func (v SomeValue) payload() any {
	return v.Value.payload()
}

type NilValue struct{}

func (NilValue) isValue() {}

func (NilValue) payload() any {
	return nil
}

// RawValue is the escape hatch for arguments that are already encoded.
// The bytes must be a single valid CBOR data item; they are embedded as-is.

type RawValue []byte

func (RawValue) isValue() {}

func (v RawValue) payload() any {
	return cbor.RawMessage(v)
}

// EncodeValues encodes an ordered sequence of values
// into a single payload (a CBOR array).
func EncodeValues(values []Value) ([]byte, error) {
	payloads := make([]any, len(values))
	for i, value := range values {
		payloads[i] = value.payload()
	}
	return CBOREncMode.Marshal(payloads)
}

// DecodePayload splits a payload into its raw per-value items.
func DecodePayload(payload []byte) ([]cbor.RawMessage, error) {
	var items []cbor.RawMessage
	err := CBORDecMode.Unmarshal(payload, &items)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ToValue converts a plain Go literal into a call-argument value.
// The accepted literal forms are enumerated;
// anything else is rejected with an internal error.
func ToValue(v any) (Value, error) {
	switch v := v.(type) {
	case Value:
		return v, nil
	case bool:
		return Bool(v), nil
	case int:
		return Int(v), nil
	case int64:
		return Int(v), nil
	case uint:
		return UInt(v), nil
	case uint64:
		return UInt(v), nil
	case string:
		return String(v), nil
	case []byte:
		return Bytes(v), nil
	case common.Address:
		return AddressValue(v), nil
	case common.Decimal:
		return DecimalValue(v), nil
	case common.NonFungibleID:
		return IDValue{ID: v}, nil
	case nil:
		return NilValue{}, nil
	default:
		return nil, errors.NewUnexpectedError(
			"unsupported argument literal type %T",
			v,
		)
	}
}
