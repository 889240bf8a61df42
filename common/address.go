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
)

// AddressLength is the size of a ledger entity address, in bytes.
// The first byte carries the entity kind tag.
const AddressLength = 30

// Address is the opaque identifier of a ledger entity
// (account, package, component, or resource).
type Address [AddressLength]byte

// ZeroAddress is the empty address, which is not a valid entity identifier.
var ZeroAddress = Address{}

// BytesToAddress returns an address from the given byte slice,
// right-aligned and zero-padded on the left.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

// HexToAddress returns an address from the given hexadecimal string.
func HexToAddress(s string) (Address, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, err
	}
	return BytesToAddress(b), nil
}

func (a Address) Bytes() []byte {
	return a[:]
}

func (a Address) Hex() string {
	return fmt.Sprintf("%x", [AddressLength]byte(a))
}

func (a Address) String() string {
	return a.Hex()
}

// Kind returns the entity kind encoded in the address tag byte.
func (a Address) Kind() EntityKind {
	return EntityKind(a[0])
}

func (a Address) IsZero() bool {
	return a == ZeroAddress
}
