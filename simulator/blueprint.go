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

package simulator

import (
	"time"

	"github.com/atomledger/testengine/common"
	"github.com/atomledger/testengine/errors"
	"github.com/atomledger/testengine/manifest"
)

// A NativeFunc is the implementation of one blueprint function or method.
//
// Arguments arrive fully materialized; bucket and proof values refer to
// containers live in the current transaction and are inspected and consumed
// through the CallContext. Returned bucket values are routed onto the
// worktop by the executor; their handles stay in the return payload.
type NativeFunc func(ctx *CallContext, args []manifest.Value) ([]manifest.Value, error)

// A Blueprint is a named component template inside a package.
// Functions are static (constructors); methods run against an instance.
type Blueprint struct {
	Functions map[string]NativeFunc
	Methods   map[string]NativeFunc
}

// A PackageDefinition is a published set of blueprints.
type PackageDefinition struct {
	Blueprints map[string]Blueprint
}

// CallContext is the view component code gets of the ledger
// during one call.
type CallContext struct {
	sim *Simulator
	tx  *txContext

	// Self is the component under call. Zero during function calls.
	Self common.Address

	// Package and Blueprint identify the code being executed.
	Package   common.Address
	Blueprint string
}

// EmitLog appends a log line to the transaction receipt.
func (ctx *CallContext) EmitLog(level string, message string) {
	ctx.tx.logs = append(ctx.tx.logs, LogEntry{
		Level:   level,
		Message: message,
	})
	ctx.sim.log.Debug().
		Str("level", level).
		Str("component", ctx.Self.Hex()).
		Msg(message)
}

// State returns the component's stored state.
func (ctx *CallContext) State() any {
	component, ok := ctx.sim.components[ctx.Self]
	if !ok {
		return nil
	}
	return component.state
}

// SetState replaces the component's stored state.
func (ctx *CallContext) SetState(state any) {
	component, ok := ctx.sim.components[ctx.Self]
	if !ok {
		panic(errors.NewUnexpectedError(
			"no component instance at %s",
			ctx.Self,
		))
	}
	component.state = state
}

// Epoch returns the current ledger epoch.
func (ctx *CallContext) Epoch() uint64 {
	return ctx.sim.epoch
}

// Time returns the current ledger time.
func (ctx *CallContext) Time() time.Time {
	return ctx.sim.timestamp
}

// NewComponent instantiates a blueprint of the executing package and
// returns the new component's address value.
func (ctx *CallContext) NewComponent(
	blueprint string,
	state any,
	metadata map[string]string,
) (manifest.Value, error) {
	pkg, ok := ctx.sim.packages[ctx.Package]
	if !ok {
		return nil, errors.NewUnexpectedError(
			"no package at %s",
			ctx.Package,
		)
	}
	if _, ok := pkg.Blueprints[blueprint]; !ok {
		return nil, errors.NewDefaultUserError(
			"package %s has no blueprint %q",
			ctx.Package,
			blueprint,
		)
	}

	address := ctx.sim.instantiate(ctx.Package, blueprint, state, metadata)
	ctx.tx.newComponents = append(ctx.tx.newComponents, address)

	return manifest.AddressValue(address), nil
}

// NewFungibleResource creates a fungible resource with zero supply
// and returns its address.
func (ctx *CallContext) NewFungibleResource(
	metadata map[string]string,
) common.Address {
	address := ctx.sim.newResource(true, metadata)
	ctx.tx.newResources = append(ctx.tx.newResources, address)
	return address
}

// NewNonFungibleResource creates a non-fungible resource with no units
// and returns its address.
func (ctx *CallContext) NewNonFungibleResource(
	metadata map[string]string,
) common.Address {
	address := ctx.sim.newResource(false, metadata)
	ctx.tx.newResources = append(ctx.tx.newResources, address)
	return address
}

// MintFungible mints an amount of a fungible resource into a new bucket.
func (ctx *CallContext) MintFungible(
	resource common.Address,
	amount common.Decimal,
) (manifest.Value, error) {
	state, ok := ctx.sim.resources[resource]
	if !ok || !state.fungible {
		return nil, errors.NewDefaultUserError(
			"no fungible resource at %s",
			resource,
		)
	}

	supply, err := state.supply.Add(amount)
	if err != nil {
		return nil, err
	}
	state.supply = supply

	bucket := ctx.tx.newBucket(resource)
	ctx.tx.buckets[bucket].amount = amount

	return manifest.BucketValue(bucket), nil
}

// MintNonFungible mints one unit of a non-fungible resource
// into a new bucket. The id must not exist yet.
func (ctx *CallContext) MintNonFungible(
	resource common.Address,
	id common.NonFungibleID,
) (manifest.Value, error) {
	state, ok := ctx.sim.resources[resource]
	if !ok || state.fungible {
		return nil, errors.NewDefaultUserError(
			"no non-fungible resource at %s",
			resource,
		)
	}

	if _, exists := state.minted[id]; exists {
		return nil, errors.NewDefaultUserError(
			"non-fungible id %s already minted",
			id,
		)
	}
	state.minted[id] = struct{}{}

	supply, err := state.supply.Add(common.MustDecimal("1"))
	if err != nil {
		return nil, err
	}
	state.supply = supply

	bucket := ctx.tx.newBucket(resource)
	ctx.tx.buckets[bucket].ids[id] = struct{}{}

	return manifest.BucketValue(bucket), nil
}

// Balance returns the component's own holding of a resource.
func (ctx *CallContext) Balance(resource common.Address) common.Decimal {
	return ctx.sim.BalanceOf(ctx.Self, resource)
}

// WithdrawFromSelf moves an amount from the component's own vault
// into a new bucket.
func (ctx *CallContext) WithdrawFromSelf(
	resource common.Address,
	amount common.Decimal,
) (manifest.Value, error) {
	err := ctx.sim.withdraw(ctx.Self, resource, amount)
	if err != nil {
		return nil, err
	}

	bucket := ctx.tx.newBucket(resource)
	ctx.tx.buckets[bucket].amount = amount

	return manifest.BucketValue(bucket), nil
}

// BucketResource returns the resource a bucket holds.
func (ctx *CallContext) BucketResource(
	value manifest.Value,
) (common.Address, error) {
	bucket, err := ctx.tx.bucket(value)
	if err != nil {
		return common.ZeroAddress, err
	}
	return bucket.resource, nil
}

// BucketAmount returns a bucket's fungible amount,
// or the unit count for non-fungible contents.
func (ctx *CallContext) BucketAmount(
	value manifest.Value,
) (common.Decimal, error) {
	bucket, err := ctx.tx.bucket(value)
	if err != nil {
		return common.ZeroDecimal, err
	}
	return bucket.total()
}

// DepositBucket consumes a bucket into the component's own vault.
func (ctx *CallContext) DepositBucket(value manifest.Value) error {
	id, bucket, err := ctx.tx.takeBucket(value)
	if err != nil {
		return err
	}
	_ = id
	return ctx.sim.deposit(ctx.Self, bucket)
}

// ProofResource returns the resource a proof attests to.
func (ctx *CallContext) ProofResource(
	value manifest.Value,
) (common.Address, error) {
	proof, err := ctx.tx.proof(value)
	if err != nil {
		return common.ZeroAddress, err
	}
	return proof.resource, nil
}

// ProofAmount returns the attested amount of a proof.
func (ctx *CallContext) ProofAmount(
	value manifest.Value,
) (common.Decimal, error) {
	proof, err := ctx.tx.proof(value)
	if err != nil {
		return common.ZeroDecimal, err
	}
	return proof.amount, nil
}
