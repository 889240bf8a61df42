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
	"github.com/atomledger/testengine/test_utils"
)

func TestNewDecimal(t *testing.T) {

	t.Parallel()

	t.Run("integer", func(t *testing.T) {
		t.Parallel()

		d, err := common.NewDecimal("10")
		require.NoError(t, err)
		assert.Equal(t, uint64(1_000_000_000), d.Raw())
		assert.Equal(t, "10", d.String())
	})

	t.Run("fraction", func(t *testing.T) {
		t.Parallel()

		d, err := common.NewDecimal("10.5")
		require.NoError(t, err)
		assert.Equal(t, uint64(1_050_000_000), d.Raw())
		assert.Equal(t, "10.5", d.String())
	})

	t.Run("max fractional digits", func(t *testing.T) {
		t.Parallel()

		d, err := common.NewDecimal("0.00000001")
		require.NoError(t, err)
		assert.Equal(t, uint64(1), d.Raw())
		assert.Equal(t, "0.00000001", d.String())
	})

	t.Run("zero", func(t *testing.T) {
		t.Parallel()

		d, err := common.NewDecimal("0")
		require.NoError(t, err)
		assert.True(t, d.IsZero())
	})

	t.Run("negative", func(t *testing.T) {
		t.Parallel()

		_, err := common.NewDecimal("-1")
		test_utils.RequireUserError(t, err)
	})

	t.Run("too many fractional digits", func(t *testing.T) {
		t.Parallel()

		_, err := common.NewDecimal("0.000000001")
		test_utils.RequireUserError(t, err)
	})

	t.Run("missing integer part", func(t *testing.T) {
		t.Parallel()

		_, err := common.NewDecimal(".5")
		test_utils.RequireUserError(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		t.Parallel()

		_, err := common.NewDecimal("ten")
		test_utils.RequireUserError(t, err)
	})

	t.Run("out of range", func(t *testing.T) {
		t.Parallel()

		_, err := common.NewDecimal("999999999999999999999")
		test_utils.RequireUserError(t, err)
	})
}

func TestDecimalArithmetic(t *testing.T) {

	t.Parallel()

	t.Run("add", func(t *testing.T) {
		t.Parallel()

		sum, err := common.MustDecimal("1.5").Add(common.MustDecimal("2.25"))
		require.NoError(t, err)
		assert.Equal(t, common.MustDecimal("3.75"), sum)
	})

	t.Run("sub", func(t *testing.T) {
		t.Parallel()

		diff, err := common.MustDecimal("100").Sub(common.MustDecimal("10"))
		require.NoError(t, err)
		assert.Equal(t, common.MustDecimal("90"), diff)
	})

	t.Run("sub underflow", func(t *testing.T) {
		t.Parallel()

		_, err := common.MustDecimal("10").Sub(common.MustDecimal("100"))
		require.Error(t, err)
	})

	t.Run("mul", func(t *testing.T) {
		t.Parallel()

		product, err := common.MustDecimal("0.5").Mul(common.MustDecimal("10"))
		require.NoError(t, err)
		assert.Equal(t, common.MustDecimal("5"), product)
	})

	t.Run("div", func(t *testing.T) {
		t.Parallel()

		quotient, err := common.MustDecimal("10").Div(common.MustDecimal("4"))
		require.NoError(t, err)
		assert.Equal(t, common.MustDecimal("2.5"), quotient)
	})

	t.Run("comparison", func(t *testing.T) {
		t.Parallel()

		small := common.MustDecimal("1")
		large := common.MustDecimal("2")

		assert.True(t, small.Lt(large))
		assert.True(t, small.Lte(small))
		assert.True(t, large.Gt(small))
		assert.True(t, large.Gte(large))
		assert.False(t, large.Lt(small))
	})
}

func TestDecimalString(t *testing.T) {

	t.Parallel()

	for _, test := range []struct {
		literal  string
		expected string
	}{
		{"10", "10"},
		{"10.50", "10.5"},
		{"0.1", "0.1"},
		{"0", "0"},
		{"123.456", "123.456"},
		{"1.00000001", "1.00000001"},
	} {
		d, err := common.NewDecimal(test.literal)
		require.NoError(t, err)
		assert.Equal(t, test.expected, d.String())
	}
}

func TestNewDecimalFromUint(t *testing.T) {

	t.Parallel()

	d, err := common.NewDecimalFromUint(42)
	require.NoError(t, err)
	assert.Equal(t, common.MustDecimal("42"), d)

	_, err = common.NewDecimalFromUint(1 << 60)
	test_utils.RequireUserError(t, err)
}
