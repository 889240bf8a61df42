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
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atomledger/testengine/common"
	"github.com/atomledger/testengine/manifest"
)

func TestSerialize(t *testing.T) {

	t.Parallel()

	payer := taggedAddress(common.EntityKindAccount, 0x1)
	component := taggedAddress(common.EntityKindComponent, 0x2)
	resource := taggedAddress(common.EntityKindResource, 0x3)

	rendered := manifest.Serialize([]manifest.Instruction{
		&manifest.LockFee{
			Payer:  payer,
			Amount: common.MustDecimal("5000"),
		},
		&manifest.Withdraw{
			Account:  payer,
			Resource: resource,
			Amount:   common.MustDecimal("10"),
		},
		&manifest.TakeFromWorktop{
			Resource: resource,
			Amount:   common.MustDecimal("10"),
			Bucket:   0,
		},
		&manifest.CallMethod{
			Target:    component,
			Method:    "buy_gumball",
			Arguments: []manifest.Value{manifest.BucketValue(0)},
		},
		&manifest.DepositEntireWorktop{
			Account: payer,
		},
	})

	expected := fmt.Sprintf(
		"LOCK_FEE Address(%q) Decimal(\"5000\");\n"+
			"WITHDRAW Address(%q) Address(%q) Decimal(\"10\");\n"+
			"TAKE_FROM_WORKTOP Address(%q) Decimal(\"10\") Bucket(0);\n"+
			"CALL_METHOD Address(%q) \"buy_gumball\" Bucket(0);\n"+
			"DEPOSIT_ENTIRE_WORKTOP Address(%q);\n",
		payer,
		payer,
		resource,
		resource,
		component,
		payer,
	)

	assert.Equal(t, expected, rendered)
}

func TestSerializeNonFungibleInstructions(t *testing.T) {

	t.Parallel()

	account := taggedAddress(common.EntityKindAccount, 0x1)
	resource := taggedAddress(common.EntityKindResource, 0x3)

	rendered := manifest.Serialize([]manifest.Instruction{
		&manifest.WithdrawNonFungibles{
			Account:  account,
			Resource: resource,
			IDs: []common.NonFungibleID{
				common.IntegerID(1),
				common.IntegerID(2),
			},
		},
	})

	expected := fmt.Sprintf(
		"WITHDRAW_NON_FUNGIBLES Address(%q) Address(%q) "+
			"Array(NonFungibleID(\"#1#\"), NonFungibleID(\"#2#\"));\n",
		account,
		resource,
	)

	assert.Equal(t, expected, rendered)
}

func TestFileSink(t *testing.T) {

	t.Parallel()

	dir := filepath.Join(t.TempDir(), "manifests")
	sink := manifest.NewFileSink(dir)

	require.NoError(t, sink.Write("Buy Gumball!", "CALL_METHOD ...;\n"))
	require.NoError(t, sink.Write("free", "CALL_METHOD ...;\n"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "001_buy_gumball.rtm", entries[0].Name())
	assert.Equal(t, "002_free.rtm", entries[1].Name())

	content, err := os.ReadFile(filepath.Join(dir, "001_buy_gumball.rtm"))
	require.NoError(t, err)
	assert.Equal(t, "CALL_METHOD ...;\n", string(content))
}
