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

package common_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atomledger/testengine/common"
)

func TestBytesToAddress(t *testing.T) {

	t.Parallel()

	t.Run("short input is right-aligned", func(t *testing.T) {
		t.Parallel()

		address := common.BytesToAddress([]byte{0x1, 0x2})
		assert.Equal(t, byte(0x1), address[common.AddressLength-2])
		assert.Equal(t, byte(0x2), address[common.AddressLength-1])
		assert.Equal(t, byte(0x0), address[0])
	})

	t.Run("long input keeps the suffix", func(t *testing.T) {
		t.Parallel()

		long := make([]byte, common.AddressLength+4)
		for i := range long {
			long[i] = byte(i)
		}

		address := common.BytesToAddress(long)
		assert.Equal(t, long[len(long)-common.AddressLength:], address.Bytes())
	})
}

func TestHexToAddress(t *testing.T) {

	t.Parallel()

	address, err := common.HexToAddress("0102")
	require.NoError(t, err)
	assert.Equal(t, common.BytesToAddress([]byte{0x1, 0x2}), address)

	roundTripped, err := common.HexToAddress(address.Hex())
	require.NoError(t, err)
	assert.Equal(t, address, roundTripped)

	_, err = common.HexToAddress("zz")
	require.Error(t, err)
}

func TestAddressKind(t *testing.T) {

	t.Parallel()

	var address common.Address
	address[0] = byte(common.EntityKindResource)

	assert.Equal(t, common.EntityKindResource, address.Kind())
	assert.False(t, address.IsZero())
	assert.True(t, common.ZeroAddress.IsZero())
}
