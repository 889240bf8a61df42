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

package manifest_test

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atomledger/testengine/common"
	"github.com/atomledger/testengine/errors"
	"github.com/atomledger/testengine/manifest"
)

func TestEncodeValues(t *testing.T) {

	t.Parallel()

	address := taggedAddress(common.EntityKindResource, 0x9)

	payload, err := manifest.EncodeValues([]manifest.Value{
		manifest.UInt(7),
		manifest.String("gumball"),
		manifest.AddressValue(address),
		manifest.DecimalValue(common.MustDecimal("2.5")),
	})
	require.NoError(t, err)

	items, err := manifest.DecodePayload(payload)
	require.NoError(t, err)
	require.Len(t, items, 4)

	var count uint64
	require.NoError(t, manifest.CBORDecMode.Unmarshal(items[0], &count))
	assert.Equal(t, uint64(7), count)

	var name string
	require.NoError(t, manifest.CBORDecMode.Unmarshal(items[1], &name))
	assert.Equal(t, "gumball", name)

	var addressTag cbor.Tag
	require.NoError(t, manifest.CBORDecMode.Unmarshal(items[2], &addressTag))
	assert.Equal(t, uint64(manifest.TagAddress), addressTag.Number)

	var decimalTag cbor.Tag
	require.NoError(t, manifest.CBORDecMode.Unmarshal(items[3], &decimalTag))
	assert.Equal(t, uint64(manifest.TagDecimal), decimalTag.Number)
	assert.Equal(t, uint64(250_000_000), decimalTag.Content)
}

func TestEncodeEmptyValues(t *testing.T) {

	t.Parallel()

	payload, err := manifest.EncodeValues(nil)
	require.NoError(t, err)

	items, err := manifest.DecodePayload(payload)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestContainerValuesAreTagged(t *testing.T) {

	t.Parallel()

	payload, err := manifest.EncodeValues([]manifest.Value{
		manifest.BucketValue(3),
		manifest.ProofValue(4),
	})
	require.NoError(t, err)

	items, err := manifest.DecodePayload(payload)
	require.NoError(t, err)
	require.Len(t, items, 2)

	var bucketTag cbor.Tag
	require.NoError(t, manifest.CBORDecMode.Unmarshal(items[0], &bucketTag))
	assert.Equal(t, uint64(manifest.TagBucket), bucketTag.Number)

	var proofTag cbor.Tag
	require.NoError(t, manifest.CBORDecMode.Unmarshal(items[1], &proofTag))
	assert.Equal(t, uint64(manifest.TagProof), proofTag.Number)
}

func TestToValue(t *testing.T) {

	t.Parallel()

	t.Run("literals", func(t *testing.T) {
		t.Parallel()

		for _, test := range []struct {
			literal  any
			expected manifest.Value
		}{
			{true, manifest.Bool(true)},
			{42, manifest.Int(42)},
			{int64(-7), manifest.Int(-7)},
			{uint(9), manifest.UInt(9)},
			{uint64(9), manifest.UInt(9)},
			{"hello", manifest.String("hello")},
			{[]byte{0x1}, manifest.Bytes{0x1}},
			{nil, manifest.NilValue{}},
			{
				common.MustDecimal("1"),
				manifest.DecimalValue(common.MustDecimal("1")),
			},
			{
				common.IntegerID(5),
				manifest.IDValue{ID: common.IntegerID(5)},
			},
		} {
			value, err := manifest.ToValue(test.literal)
			require.NoError(t, err)
			assert.Equal(t, test.expected, value)
		}
	})

	t.Run("value passthrough", func(t *testing.T) {
		t.Parallel()

		original := manifest.BucketValue(1)
		value, err := manifest.ToValue(original)
		require.NoError(t, err)
		assert.Equal(t, original, value)
	})

	t.Run("unsupported", func(t *testing.T) {
		t.Parallel()

		_, err := manifest.ToValue(struct{}{})
		require.Error(t, err)
		assert.True(t, errors.IsInternalError(err))
	})
}
