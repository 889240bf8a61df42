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

package engine_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atomledger/testengine/common"
	"github.com/atomledger/testengine/engine"
	"github.com/atomledger/testengine/errors"
	"github.com/atomledger/testengine/manifest"
	"github.com/atomledger/testengine/simulator"
	"github.com/atomledger/testengine/test_utils"
)

// memorySink records rendered transactions for inspection.
type memorySink struct {
	names    []string
	rendered []string
}

var _ manifest.Sink = &memorySink{}

func (s *memorySink) Write(name string, rendered string) error {
	s.names = append(s.names, name)
	s.rendered = append(s.rendered, rendered)
	return nil
}

// fakeT records assertion failures instead of failing the test.
type fakeT struct {
	failed   bool
	messages []string
}

var _ engine.TestingT = &fakeT{}

func (f *fakeT) Errorf(format string, args ...any) {
	f.messages = append(f.messages, fmt.Sprintf(format, args...))
}

func (f *fakeT) FailNow() {
	f.failed = true
}

type gumballState struct {
	Price    common.Decimal
	Resource common.Address
}

func newGumballPackage() *simulator.PackageDefinition {
	return &simulator.PackageDefinition{
		Blueprints: map[string]simulator.Blueprint{
			"GumballMachine": {
				Functions: map[string]simulator.NativeFunc{
					"instantiate": func(
						ctx *simulator.CallContext,
						args []manifest.Value,
					) ([]manifest.Value, error) {
						price, ok := args[0].(manifest.DecimalValue)
						if !ok {
							return nil, errors.NewDefaultUserError(
								"expected a decimal price",
							)
						}

						resource := ctx.NewFungibleResource(
							map[string]string{
								"name":   "Gumball",
								"symbol": "GUM",
							},
						)

						component, err := ctx.NewComponent(
							"GumballMachine",
							gumballState{
								Price:    common.Decimal(price),
								Resource: resource,
							},
							map[string]string{
								"name": "gumball machine",
							},
						)
						if err != nil {
							return nil, err
						}

						return []manifest.Value{component}, nil
					},
				},
				Methods: map[string]simulator.NativeFunc{
					"buy": func(
						ctx *simulator.CallContext,
						args []manifest.Value,
					) ([]manifest.Value, error) {
						state := ctx.State().(gumballState)

						paid, err := ctx.BucketAmount(args[0])
						if err != nil {
							return nil, err
						}
						if paid.Lt(state.Price) {
							return nil, errors.NewDefaultUserError(
								"insufficient payment: %s, price is %s",
								paid,
								state.Price,
							)
						}

						if err := ctx.DepositBucket(args[0]); err != nil {
							return nil, err
						}

						return []manifest.Value{
							mustMint(ctx, state.Resource),
						}, nil
					},
					"price": func(
						ctx *simulator.CallContext,
						_ []manifest.Value,
					) ([]manifest.Value, error) {
						state := ctx.State().(gumballState)
						return []manifest.Value{
							manifest.DecimalValue(state.Price),
						}, nil
					},
					"slogan": func(
						_ *simulator.CallContext,
						_ []manifest.Value,
					) ([]manifest.Value, error) {
						return []manifest.Value{
							manifest.String("the best gumballs"),
						}, nil
					},
				},
			},
		},
	}
}

func mustMint(
	ctx *simulator.CallContext,
	resource common.Address,
) manifest.Value {
	bucket, err := ctx.MintFungible(resource, common.MustDecimal("1"))
	if err != nil {
		panic(err)
	}
	return bucket
}

// newGumballEngine returns an engine with the gumball package published
// and a machine instantiated under the name "machine", at price 10.
func newGumballEngine(
	t *testing.T,
	options ...engine.Option,
) *engine.TestEngine {
	t.Helper()

	eng := engine.NewTestEngine(options...)

	_, err := eng.NewPackage("gumball", newGumballPackage())
	require.NoError(t, err)

	receipt, err := eng.NewComponent(
		"machine",
		"GumballMachine",
		"instantiate",
		manifest.Arg(common.MustDecimal("10")),
	)
	require.NoError(t, err)
	receipt.AssertSuccess(t)

	return eng
}

func TestNewTestEngineDefaults(t *testing.T) {

	t.Parallel()

	eng := engine.NewTestEngine()

	account, err := eng.CurrentAccount()
	require.NoError(t, err)

	registered, err := eng.GetAccount("default")
	require.NoError(t, err)
	assert.Equal(t, account, registered)

	balance, err := eng.CurrentBalance("xrd")
	require.NoError(t, err)
	assert.Equal(
		t,
		eng.Simulator().Config().InitialAccountBalance,
		balance,
	)

	// the base token resolves under both its symbol and its name
	bySymbol, err := eng.GetResource("XRD")
	require.NoError(t, err)
	byName, err := eng.GetResource("radix")
	require.NoError(t, err)
	assert.Equal(t, eng.XRD(), bySymbol)
	assert.Equal(t, eng.XRD(), byName)

	faucet, err := eng.GetComponent("faucet")
	require.NoError(t, err)
	assert.Equal(t, eng.Simulator().Faucet(), faucet)
}

func TestCallFaucet(t *testing.T) {

	t.Parallel()

	eng := engine.NewTestEngine()

	before, err := eng.CurrentBalance("xrd")
	require.NoError(t, err)

	receipt, err := eng.CallFaucet()
	require.NoError(t, err)
	receipt.AssertSuccess(t)

	after, err := eng.CurrentBalance("xrd")
	require.NoError(t, err)

	expected, err := before.Add(eng.Simulator().Config().FreeAmount)
	require.NoError(t, err)
	expected, err = expected.Sub(receipt.FeeCharged())
	require.NoError(t, err)
	assert.Equal(t, expected, after)
}

func TestNewAccountAndTransfer(t *testing.T) {

	t.Parallel()

	eng := engine.NewTestEngine()

	_, err := eng.NewAccount("recipient")
	require.NoError(t, err)

	before, err := eng.CurrentBalance("xrd")
	require.NoError(t, err)

	receipt, err := eng.Transfer("recipient", "xrd", 100)
	require.NoError(t, err)
	receipt.AssertSuccess(t)

	after, err := eng.CurrentBalance("xrd")
	require.NoError(t, err)

	expected, err := before.Sub(common.MustDecimal("100"))
	require.NoError(t, err)
	expected, err = expected.Sub(receipt.FeeCharged())
	require.NoError(t, err)
	assert.Equal(t, expected, after)

	recipientBalance, err := eng.BalanceOf("recipient", "xrd")
	require.NoError(t, err)

	expectedRecipient, err := eng.Simulator().Config().
		InitialAccountBalance.Add(common.MustDecimal("100"))
	require.NoError(t, err)
	assert.Equal(t, expectedRecipient, recipientBalance)
}

func TestSetCurrentAccount(t *testing.T) {

	t.Parallel()

	eng := engine.NewTestEngine()

	other, err := eng.NewAccount("other")
	require.NoError(t, err)

	require.NoError(t, eng.SetCurrentAccount("other"))

	current, err := eng.CurrentAccount()
	require.NoError(t, err)
	assert.Equal(t, other, current)

	err = eng.SetCurrentAccount("missing")
	test_utils.RequireUserError(t, err)
}

func TestNewToken(t *testing.T) {

	t.Parallel()

	eng := engine.NewTestEngine()

	address, err := eng.NewToken("Stable Coin", 1000)
	require.NoError(t, err)

	resolved, err := eng.GetResource("stable_coin")
	require.NoError(t, err)
	assert.Equal(t, address, resolved)

	balance, err := eng.CurrentBalance("stable coin")
	require.NoError(t, err)
	assert.Equal(t, common.MustDecimal("1000"), balance)
}

func TestNewNonFungibleToken(t *testing.T) {

	t.Parallel()

	eng := engine.NewTestEngine()

	_, err := eng.NewNonFungibleToken("Cars NFT", 3, 1, 2)
	require.NoError(t, err)

	ids, err := eng.CurrentIDsBalance("cars nft")
	require.NoError(t, err)
	assert.Equal(
		t,
		[]common.NonFungibleID{
			common.IntegerID(1),
			common.IntegerID(2),
			common.IntegerID(3),
		},
		ids,
	)
}

func TestNewComponentAutoRegistration(t *testing.T) {

	t.Parallel()

	eng := newGumballEngine(t)

	// the explicit name and the metadata name resolve
	// to the same component
	explicit, err := eng.GetComponent("machine")
	require.NoError(t, err)
	metadata, err := eng.GetComponent("gumball machine")
	require.NoError(t, err)
	assert.Equal(t, explicit, metadata)

	// the created resource auto-registers under name and symbol
	byName, err := eng.GetResource("Gumball")
	require.NoError(t, err)
	bySymbol, err := eng.GetResource("gum")
	require.NoError(t, err)
	assert.Equal(t, byName, bySymbol)

	// the first instantiated component became current
	current, err := eng.CurrentComponent()
	require.NoError(t, err)
	assert.Equal(t, explicit, current)
}

func TestBuyGumball(t *testing.T) {

	t.Parallel()

	eng := newGumballEngine(t)

	before, err := eng.CurrentBalance("xrd")
	require.NoError(t, err)

	receipt, err := eng.CallMethod(
		"buy",
		manifest.FungibleFromAccount("xrd", "10"),
	).Execute()
	require.NoError(t, err)
	receipt.AssertSuccess(t)

	gumballs, err := eng.CurrentBalance("gum")
	require.NoError(t, err)
	assert.Equal(t, common.MustDecimal("1"), gumballs)

	after, err := eng.CurrentBalance("xrd")
	require.NoError(t, err)

	expected, err := before.Sub(common.MustDecimal("10"))
	require.NoError(t, err)
	expected, err = expected.Sub(receipt.FeeCharged())
	require.NoError(t, err)
	assert.Equal(t, expected, after)

	machineBalance, err := eng.BalanceOf("gumball machine", "xrd")
	require.NoError(t, err)
	assert.Equal(t, common.MustDecimal("10"), machineBalance)
}

func TestBuyGumballUnderpaid(t *testing.T) {

	t.Parallel()

	eng := newGumballEngine(t)

	receipt, err := eng.CallMethod(
		"buy",
		manifest.FungibleFromAccount("xrd", "5"),
	).Execute()
	require.NoError(t, err)

	receipt.AssertFailureContains(t, "insufficient payment")

	gumballs, err := eng.CurrentBalance("gum")
	require.NoError(t, err)
	assert.True(t, gumballs.IsZero())
}

func TestComponentState(t *testing.T) {

	t.Parallel()

	eng := newGumballEngine(t)

	state, err := eng.CurrentComponentState()
	require.NoError(t, err)

	gumball, ok := state.(gumballState)
	require.True(t, ok)
	assert.Equal(t, common.MustDecimal("10"), gumball.Price)
}

func TestDecodeReturn(t *testing.T) {

	t.Parallel()

	t.Run("address", func(t *testing.T) {
		t.Parallel()

		eng := engine.NewTestEngine()

		_, err := eng.NewPackage("gumball", newGumballPackage())
		require.NoError(t, err)

		receipt, err := eng.NewComponent(
			"machine",
			"GumballMachine",
			"instantiate",
			manifest.Arg(common.MustDecimal("10")),
		)
		require.NoError(t, err)
		receipt.AssertSuccess(t)

		address, err := engine.DecodeReturn[common.Address](receipt)
		require.NoError(t, err)

		registered, err := eng.GetComponent("machine")
		require.NoError(t, err)
		assert.Equal(t, registered, address)
	})

	t.Run("decimal", func(t *testing.T) {
		t.Parallel()

		eng := newGumballEngine(t)

		receipt, err := eng.CallMethod("price").Execute()
		require.NoError(t, err)
		receipt.AssertSuccess(t)

		price, err := engine.DecodeReturn[common.Decimal](receipt)
		require.NoError(t, err)
		assert.Equal(t, common.MustDecimal("10"), price)
	})

	t.Run("string", func(t *testing.T) {
		t.Parallel()

		eng := newGumballEngine(t)

		receipt, err := eng.CallMethod("slogan").Execute()
		require.NoError(t, err)
		receipt.AssertSuccess(t)

		slogan, err := engine.DecodeReturn[string](receipt)
		require.NoError(t, err)
		assert.Equal(t, "the best gumballs", slogan)
	})

	t.Run("container return is rejected", func(t *testing.T) {
		t.Parallel()

		eng := newGumballEngine(t)

		receipt, err := eng.CallMethod(
			"buy",
			manifest.FungibleFromAccount("xrd", "10"),
		).Execute()
		require.NoError(t, err)
		receipt.AssertSuccess(t)

		_, err = engine.DecodeReturn[common.Decimal](receipt)
		test_utils.RequireUserError(t, err)
		assert.ErrorContains(t, err, "opaque container")
	})

	t.Run("type mismatch", func(t *testing.T) {
		t.Parallel()

		eng := newGumballEngine(t)

		receipt, err := eng.CallMethod("price").Execute()
		require.NoError(t, err)
		receipt.AssertSuccess(t)

		_, err = engine.DecodeReturn[common.Address](receipt)
		test_utils.RequireUserError(t, err)
	})

	t.Run("out of range", func(t *testing.T) {
		t.Parallel()

		eng := newGumballEngine(t)

		receipt, err := eng.CallMethod("price").Execute()
		require.NoError(t, err)
		receipt.AssertSuccess(t)

		_, err = engine.DecodeReturnAt[common.Decimal](receipt, 5)
		test_utils.RequireUserError(t, err)
	})

	t.Run("failed transaction", func(t *testing.T) {
		t.Parallel()

		eng := newGumballEngine(t)

		receipt, err := eng.CallMethod(
			"buy",
			manifest.FungibleFromAccount("xrd", "5"),
		).Execute()
		require.NoError(t, err)

		_, err = engine.DecodeReturn[common.Decimal](receipt)
		test_utils.RequireUserError(t, err)
	})
}

func TestAssertions(t *testing.T) {

	t.Parallel()

	t.Run("AssertSuccess on failure", func(t *testing.T) {
		t.Parallel()

		eng := newGumballEngine(t)

		receipt, err := eng.CallMethod(
			"buy",
			manifest.FungibleFromAccount("xrd", "5"),
		).Execute()
		require.NoError(t, err)

		ft := &fakeT{}
		receipt.AssertSuccess(ft)
		assert.True(t, ft.failed)
		require.Len(t, ft.messages, 1)
		assert.Contains(t, ft.messages[0], "did not succeed")
	})

	t.Run("AssertFailureContains on success", func(t *testing.T) {
		t.Parallel()

		eng := newGumballEngine(t)

		receipt, err := eng.CallMethod("price").Execute()
		require.NoError(t, err)

		ft := &fakeT{}
		receipt.AssertFailureContains(ft, "whatever")
		assert.True(t, ft.failed)
	})

	t.Run("AssertFailureContains with wrong fragment", func(t *testing.T) {
		t.Parallel()

		eng := newGumballEngine(t)

		receipt, err := eng.CallMethod(
			"buy",
			manifest.FungibleFromAccount("xrd", "5"),
		).Execute()
		require.NoError(t, err)

		ft := &fakeT{}
		receipt.AssertFailureContains(ft, "unrelated message")
		assert.True(t, ft.failed)
	})
}

func TestEpochHelpers(t *testing.T) {

	t.Parallel()

	eng := engine.NewTestEngine()

	assert.Equal(t, uint64(0), eng.Epoch())
	eng.AdvanceEpoch()
	assert.Equal(t, uint64(1), eng.Epoch())
	eng.SetEpoch(42)
	assert.Equal(t, uint64(42), eng.Epoch())
}
