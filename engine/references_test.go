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
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atomledger/testengine/common"
)

func TestNormalizeName(t *testing.T) {

	t.Parallel()

	for _, test := range []struct {
		name     string
		expected string
	}{
		{"Gumball Machine", "gumballmachine"},
		{"gumball_machine", "gumballmachine"},
		{"gumballmachine", "gumballmachine"},
		{"XRD", "xrd"},
		{"  spaced  out  ", "spacedout"},
		{"", ""},
	} {
		assert.Equal(t, test.expected, NormalizeName(test.name))
	}
}

func TestNormalizeNameProperties(t *testing.T) {

	t.Parallel()

	properties := gopter.NewProperties(nil)

	properties.Property("normalization is idempotent", prop.ForAll(
		func(name string) bool {
			normalized := NormalizeName(name)
			return NormalizeName(normalized) == normalized
		},
		gen.AnyString(),
	))

	properties.Property("spacing and casing are irrelevant", prop.ForAll(
		func(name string) bool {
			variant := strings.ToUpper(
				strings.ReplaceAll(name, "_", " "),
			)
			return NormalizeName(variant) == NormalizeName(name)
		},
		gen.AlphaString(),
	))

	properties.Property("result contains no separators", prop.ForAll(
		func(name string) bool {
			normalized := NormalizeName(name)
			return !strings.ContainsAny(normalized, " _")
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func testAddress(kind common.EntityKind, suffix byte) common.Address {
	var address common.Address
	address[0] = byte(kind)
	address[common.AddressLength-1] = suffix
	return address
}

func TestRegistryExplicitBindings(t *testing.T) {

	t.Parallel()

	t.Run("register and resolve", func(t *testing.T) {
		t.Parallel()

		r := newRegistry(zerolog.Nop())
		address := testAddress(common.EntityKindComponent, 0x1)

		require.NoError(t, r.register(
			common.EntityKindComponent,
			"Gumball Machine",
			address,
		))

		for _, name := range []string{
			"Gumball Machine",
			"gumball_machine",
			"GUMBALLMACHINE",
		} {
			resolved, err := r.resolve(common.EntityKindComponent, name)
			require.NoError(t, err)
			assert.Equal(t, address, resolved)
		}
	})

	t.Run("explicit re-registration errors", func(t *testing.T) {
		t.Parallel()

		r := newRegistry(zerolog.Nop())

		require.NoError(t, r.register(
			common.EntityKindComponent,
			"machine",
			testAddress(common.EntityKindComponent, 0x1),
		))

		err := r.register(
			common.EntityKindComponent,
			"Machine",
			testAddress(common.EntityKindComponent, 0x2),
		)
		require.Error(t, err)

		var duplicateErr DuplicateReferenceError
		require.ErrorAs(t, err, &duplicateErr)
		assert.Equal(t, common.EntityKindComponent, duplicateErr.Kind)
	})

	t.Run("same name for different kinds", func(t *testing.T) {
		t.Parallel()

		r := newRegistry(zerolog.Nop())

		require.NoError(t, r.register(
			common.EntityKindComponent,
			"gumball",
			testAddress(common.EntityKindComponent, 0x1),
		))
		require.NoError(t, r.register(
			common.EntityKindResource,
			"gumball",
			testAddress(common.EntityKindResource, 0x2),
		))
	})

	t.Run("unknown name", func(t *testing.T) {
		t.Parallel()

		r := newRegistry(zerolog.Nop())

		_, err := r.resolve(common.EntityKindComponent, "missing")
		var unknownErr UnknownReferenceError
		require.ErrorAs(t, err, &unknownErr)
		assert.Equal(t, "missing", unknownErr.Name)
	})
}

func TestRegistryMetadataBindings(t *testing.T) {

	t.Parallel()

	t.Run("first metadata binding wins", func(t *testing.T) {
		t.Parallel()

		r := newRegistry(zerolog.Nop())
		first := testAddress(common.EntityKindResource, 0x1)
		second := testAddress(common.EntityKindResource, 0x2)

		r.autoRegister(common.EntityKindResource, "Gumball", first)
		r.autoRegister(common.EntityKindResource, "gumball", second)

		resolved, err := r.resolve(common.EntityKindResource, "gumball")
		require.NoError(t, err)
		assert.Equal(t, first, resolved)
	})

	t.Run("explicit replaces metadata binding", func(t *testing.T) {
		t.Parallel()

		r := newRegistry(zerolog.Nop())
		metadata := testAddress(common.EntityKindResource, 0x1)
		explicit := testAddress(common.EntityKindResource, 0x2)

		r.autoRegister(common.EntityKindResource, "gumball", metadata)
		require.NoError(t, r.register(
			common.EntityKindResource,
			"gumball",
			explicit,
		))

		resolved, err := r.resolve(common.EntityKindResource, "gumball")
		require.NoError(t, err)
		assert.Equal(t, explicit, resolved)
	})

	t.Run("metadata never replaces explicit", func(t *testing.T) {
		t.Parallel()

		r := newRegistry(zerolog.Nop())
		explicit := testAddress(common.EntityKindResource, 0x1)
		metadata := testAddress(common.EntityKindResource, 0x2)

		require.NoError(t, r.register(
			common.EntityKindResource,
			"gumball",
			explicit,
		))
		r.autoRegister(common.EntityKindResource, "gumball", metadata)

		resolved, err := r.resolve(common.EntityKindResource, "gumball")
		require.NoError(t, err)
		assert.Equal(t, explicit, resolved)
	})

	t.Run("empty metadata name is ignored", func(t *testing.T) {
		t.Parallel()

		r := newRegistry(zerolog.Nop())
		r.autoRegister(
			common.EntityKindResource,
			"  _ ",
			testAddress(common.EntityKindResource, 0x1),
		)

		_, err := r.resolveAny("")
		require.Error(t, err)
	})
}

func TestRegistryResolveAny(t *testing.T) {

	t.Parallel()

	r := newRegistry(zerolog.Nop())

	account := testAddress(common.EntityKindAccount, 0x1)
	component := testAddress(common.EntityKindComponent, 0x2)
	resource := testAddress(common.EntityKindResource, 0x3)

	require.NoError(t, r.register(common.EntityKindResource, "shared", resource))
	require.NoError(t, r.register(common.EntityKindComponent, "shared", component))
	require.NoError(t, r.register(common.EntityKindAccount, "shared", account))

	// accounts take priority over components, which take priority
	// over resources
	resolved, err := r.resolveAny("shared")
	require.NoError(t, err)
	assert.Equal(t, account, resolved)

	_, err = r.resolveAny("missing")
	var unknownErr UnknownReferenceError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, common.EntityKindUnknown, unknownErr.Kind)
}
