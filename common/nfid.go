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

package common

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/atomledger/testengine/errors"
)

// NonFungibleIDKind is the representation kind of a non-fungible local id.
type NonFungibleIDKind uint8

const (
	NonFungibleIDKindUnknown NonFungibleIDKind = iota
	NonFungibleIDKindInteger
	NonFungibleIDKindString
	NonFungibleIDKindBytes
	NonFungibleIDKindRUID
)

func (k NonFungibleIDKind) Name() string {
	switch k {
	case NonFungibleIDKindInteger:
		return "integer"
	case NonFungibleIDKindString:
		return "string"
	case NonFungibleIDKindBytes:
		return "bytes"
	case NonFungibleIDKindRUID:
		return "ruid"
	}

	panic(errors.NewUnreachableError())
}

// NonFungibleID is the local id of a non-fungible unit within a resource.
//
// The canonical textual encodings are `#n#` for integer ids, `<name>` for
// string ids, `[hex]` for byte ids, and `{hex}` for RUIDs.
//
// NonFungibleID is comparable and can be used as a map key.
type NonFungibleID struct {
	kind    NonFungibleIDKind
	integer uint64
	// data holds the string id, or the byte/RUID payload.
	data string
}

// MalformedIdentifierError is reported when a non-fungible id literal
// cannot be normalized.
type MalformedIdentifierError struct {
	Literal string
	Reason  string
}

var _ errors.UserError = MalformedIdentifierError{}

func (e MalformedIdentifierError) Error() string {
	return fmt.Sprintf(
		"malformed non-fungible id literal %q: %s",
		e.Literal,
		e.Reason,
	)
}

func (e MalformedIdentifierError) IsUserError() {}

const ruidLength = 32

// IntegerID returns the integer non-fungible id with the given value.
func IntegerID(v uint64) NonFungibleID {
	return NonFungibleID{
		kind:    NonFungibleIDKindInteger,
		integer: v,
	}
}

func isValidStringID(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '_':
		default:
			return false
		}
	}
	return true
}

// StringID returns the string non-fungible id with the given name.
// Names are restricted to ASCII letters, digits, and underscores.
func StringID(s string) (NonFungibleID, error) {
	if !isValidStringID(s) {
		return NonFungibleID{}, MalformedIdentifierError{
			Literal: s,
			Reason:  "string ids must be non-empty and contain only letters, digits, and underscores",
		}
	}
	return NonFungibleID{
		kind: NonFungibleIDKindString,
		data: s,
	}, nil
}

// BytesID returns the byte non-fungible id with the given payload.
func BytesID(b []byte) (NonFungibleID, error) {
	if len(b) == 0 {
		return NonFungibleID{}, MalformedIdentifierError{
			Literal: "[]",
			Reason:  "byte ids must be non-empty",
		}
	}
	return NonFungibleID{
		kind: NonFungibleIDKindBytes,
		data: string(b),
	}, nil
}

// RUIDID returns the RUID non-fungible id with the given payload.
func RUIDID(b [ruidLength]byte) NonFungibleID {
	return NonFungibleID{
		kind: NonFungibleIDKindRUID,
		data: string(b[:]),
	}
}

// ParseNonFungibleID normalizes a textual non-fungible id literal.
// The canonical delimited forms are recognized first;
// any other literal is treated as a plain string id.
func ParseNonFungibleID(s string) (NonFungibleID, error) {
	if len(s) >= 2 {
		first := s[0]
		last := s[len(s)-1]
		inner := s[1 : len(s)-1]

		switch {
		case first == '#' && last == '#':
			v, err := strconv.ParseUint(inner, 10, 64)
			if err != nil {
				return NonFungibleID{}, MalformedIdentifierError{
					Literal: s,
					Reason:  "invalid integer id",
				}
			}
			return IntegerID(v), nil

		case first == '<' && last == '>':
			id, err := StringID(inner)
			if err != nil {
				return NonFungibleID{}, MalformedIdentifierError{
					Literal: s,
					Reason:  "invalid string id",
				}
			}
			return id, nil

		case first == '[' && last == ']':
			b, err := hex.DecodeString(inner)
			if err != nil || len(b) == 0 {
				return NonFungibleID{}, MalformedIdentifierError{
					Literal: s,
					Reason:  "invalid byte id",
				}
			}
			return BytesID(b)

		case first == '{' && last == '}':
			b, err := hex.DecodeString(strings.ReplaceAll(inner, "-", ""))
			if err != nil || len(b) != ruidLength {
				return NonFungibleID{}, MalformedIdentifierError{
					Literal: s,
					Reason:  "invalid RUID id",
				}
			}
			var ruid [ruidLength]byte
			copy(ruid[:], b)
			return RUIDID(ruid), nil
		}
	}

	id, err := StringID(s)
	if err != nil {
		return NonFungibleID{}, MalformedIdentifierError{
			Literal: s,
			Reason:  "not a canonical id form or a valid string id",
		}
	}
	return id, nil
}

// ToNonFungibleID converts any accepted non-fungible id literal form:
// an existing NonFungibleID, a Go integer, a textual literal,
// a byte slice, or a 32-byte RUID.
func ToNonFungibleID(v any) (NonFungibleID, error) {
	switch v := v.(type) {
	case NonFungibleID:
		return v, nil
	case uint64:
		return IntegerID(v), nil
	case uint:
		return IntegerID(uint64(v)), nil
	case uint32:
		return IntegerID(uint64(v)), nil
	case int:
		if v < 0 {
			return NonFungibleID{}, MalformedIdentifierError{
				Literal: strconv.Itoa(v),
				Reason:  "integer ids must be non-negative",
			}
		}
		return IntegerID(uint64(v)), nil
	case int64:
		if v < 0 {
			return NonFungibleID{}, MalformedIdentifierError{
				Literal: strconv.FormatInt(v, 10),
				Reason:  "integer ids must be non-negative",
			}
		}
		return IntegerID(uint64(v)), nil
	case string:
		return ParseNonFungibleID(v)
	case []byte:
		return BytesID(v)
	case [ruidLength]byte:
		return RUIDID(v), nil
	default:
		return NonFungibleID{}, MalformedIdentifierError{
			Literal: fmt.Sprint(v),
			Reason:  fmt.Sprintf("unsupported id literal type %T", v),
		}
	}
}

func (id NonFungibleID) Kind() NonFungibleIDKind {
	return id.kind
}

// Integer returns the value of an integer id.
func (id NonFungibleID) Integer() uint64 {
	return id.integer
}

// String returns the canonical textual encoding of the id.
func (id NonFungibleID) String() string {
	switch id.kind {
	case NonFungibleIDKindInteger:
		return fmt.Sprintf("#%d#", id.integer)
	case NonFungibleIDKindString:
		return fmt.Sprintf("<%s>", id.data)
	case NonFungibleIDKindBytes:
		return fmt.Sprintf("[%x]", id.data)
	case NonFungibleIDKindRUID:
		return fmt.Sprintf("{%x}", id.data)
	}

	panic(errors.NewUnreachableError())
}
