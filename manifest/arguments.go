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
	"github.com/atomledger/testengine/common"
	"github.com/atomledger/testengine/errors"
)

// Resolver resolves reference names to entity addresses.
type Resolver interface {
	ResolveName(kind common.EntityKind, name string) (common.Address, error)
	ResolveAnyName(name string) (common.Address, error)
}

// Ledger provides the balance queries needed by whole-holding descriptors.
type Ledger interface {
	BalanceOf(entity, resource common.Address) common.Decimal
	NonFungibleIDsOf(entity, resource common.Address) []common.NonFungibleID
}

// Context is the environment one argument list is materialized in:
// the transaction under construction, the name registry,
// the ledger state, and the acting account.
type Context struct {
	Builder  *Builder
	Resolver Resolver
	Ledger   Ledger
	Caller   common.Address
}

// An Argument describes one desired call argument.
//
// Materialize appends any prerequisite instructions (withdrawals, takes,
// proof creations) to the transaction under construction and returns the
// final call-argument value. Descriptors are materialized left-to-right,
// and each container descriptor yields a fresh handle.
type Argument interface {
	Materialize(ctx *Context) (Value, error)
}

// MaterializeArguments expands an ordered argument list, preserving order.
// Any resolution failure aborts materialization before submission.
func MaterializeArguments(ctx *Context, args []Argument) ([]Value, error) {
	values := make([]Value, 0, len(args))
	for _, arg := range args {
		value, err := arg.Materialize(ctx)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}

// Literals

type literalArgument struct {
	value any
}

// Arg wraps a plain Go literal (or an existing Value) as an argument.
// If the literal is itself an Argument, it is passed through unchanged.
func Arg(v any) Argument {
	if arg, ok := v.(Argument); ok {
		return arg
	}
	return literalArgument{value: v}
}

func (a literalArgument) Materialize(_ *Context) (Value, error) {
	return ToValue(a.value)
}

// Args wraps a list of plain Go literals.
func Args(vs ...any) []Argument {
	args := make([]Argument, len(vs))
	for i, v := range vs {
		args[i] = Arg(v)
	}
	return args
}

// ArrayOf describes an array argument of nested arguments.
func ArrayOf(args ...Argument) Argument {
	return arrayArgument{elements: args}
}

type arrayArgument struct {
	elements []Argument
}

func (a arrayArgument) Materialize(ctx *Context) (Value, error) {
	values, err := MaterializeArguments(ctx, a.elements)
	if err != nil {
		return nil, err
	}
	return ArrayValue(values), nil
}

// Some describes an optional argument holding a nested argument.
func Some(arg Argument) Argument {
	return someArgument{element: arg}
}

type someArgument struct {
	element Argument
}

func (a someArgument) Materialize(ctx *Context) (Value, error) {
	value, err := a.element.Materialize(ctx)
	if err != nil {
		return nil, err
	}
	return SomeValue{Value: value}, nil
}

// None describes an empty optional argument.
func None() Argument {
	return Arg(nil)
}

// References

// Ref describes an entity address argument, resolved by reference name.
// A Ref with kind EntityKindUnknown is resolved across all kinds
// in priority order.
type Ref struct {
	Kind common.EntityKind
	Name string
}

func AccountRef(name string) Ref {
	return Ref{Kind: common.EntityKindAccount, Name: name}
}

func PackageRef(name string) Ref {
	return Ref{Kind: common.EntityKindPackage, Name: name}
}

func ComponentRef(name string) Ref {
	return Ref{Kind: common.EntityKindComponent, Name: name}
}

func ResourceRef(name string) Ref {
	return Ref{Kind: common.EntityKindResource, Name: name}
}

// GlobalRef describes an entity address argument that may denote
// an entity of any kind, e.g. an account or a component.
func GlobalRef(name string) Ref {
	return Ref{Kind: common.EntityKindUnknown, Name: name}
}

func (r Ref) Materialize(ctx *Context) (Value, error) {
	address, err := r.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return AddressValue(address), nil
}

func (r Ref) resolve(ctx *Context) (common.Address, error) {
	if r.Kind == common.EntityKindUnknown {
		return ctx.Resolver.ResolveAnyName(r.Name)
	}
	return ctx.Resolver.ResolveName(r.Kind, r.Name)
}

// Containers

// ContainerSource selects where a container's content comes from.
type ContainerSource uint8

const (
	// SourceAccount withdraws the content from the acting account.
	SourceAccount ContainerSource = iota
	// SourceTransaction takes the content from the shared worktop,
	// or, for proofs, from the auth zone.
	SourceTransaction
)

// FungibleBucket describes a bucket holding a fungible amount.
type FungibleBucket struct {
	Resource any
	Amount   any
	Source   ContainerSource
	// All requests the acting account's entire holding;
	// Amount is ignored.
	All bool
}

// FungibleFromAccount describes a bucket of the given amount,
// withdrawn from the acting account.
func FungibleFromAccount(resource any, amount any) FungibleBucket {
	return FungibleBucket{
		Resource: resource,
		Amount:   amount,
		Source:   SourceAccount,
	}
}

// AllFungibleFromAccount describes a bucket of the acting account's
// entire holding of the resource.
func AllFungibleFromAccount(resource any) FungibleBucket {
	return FungibleBucket{
		Resource: resource,
		Source:   SourceAccount,
		All:      true,
	}
}

// FungibleFromWorktop describes a bucket of the given amount,
// taken from the worktop.
func FungibleFromWorktop(resource any, amount any) FungibleBucket {
	return FungibleBucket{
		Resource: resource,
		Amount:   amount,
		Source:   SourceTransaction,
	}
}

// AllFungibleFromWorktop describes a bucket of the worktop's
// entire holding of the resource.
func AllFungibleFromWorktop(resource any) FungibleBucket {
	return FungibleBucket{
		Resource: resource,
		Source:   SourceTransaction,
		All:      true,
	}
}

func (d FungibleBucket) Materialize(ctx *Context) (Value, error) {
	resource, err := resolveResource(ctx, d.Resource)
	if err != nil {
		return nil, err
	}

	if d.Source == SourceTransaction && d.All {
		bucket := ctx.Builder.TakeAllFromWorktop(resource)
		return BucketValue(bucket), nil
	}

	amount, err := d.amount(ctx, resource)
	if err != nil {
		return nil, err
	}

	if d.Source == SourceAccount {
		ctx.Builder.Withdraw(ctx.Caller, resource, amount)
	}

	bucket := ctx.Builder.TakeFromWorktop(resource, amount)
	return BucketValue(bucket), nil
}

func (d FungibleBucket) amount(
	ctx *Context,
	resource common.Address,
) (common.Decimal, error) {
	if d.All {
		return ctx.Ledger.BalanceOf(ctx.Caller, resource), nil
	}
	return toDecimal(d.Amount)
}

// FungibleProof describes a proof of a fungible amount.
type FungibleProof struct {
	Resource any
	Amount   any
	Source   ContainerSource
}

// ProofOfAmount describes a proof of the given amount,
// backed by a withdrawal from the acting account.
func ProofOfAmount(resource any, amount any) FungibleProof {
	return FungibleProof{
		Resource: resource,
		Amount:   amount,
		Source:   SourceAccount,
	}
}

// ProofOfAmountFromAuthZone describes a proof of the given amount,
// derived from a proof already on the auth zone.
func ProofOfAmountFromAuthZone(resource any, amount any) FungibleProof {
	return FungibleProof{
		Resource: resource,
		Amount:   amount,
		Source:   SourceTransaction,
	}
}

func (d FungibleProof) Materialize(ctx *Context) (Value, error) {
	resource, err := resolveResource(ctx, d.Resource)
	if err != nil {
		return nil, err
	}

	amount, err := toDecimal(d.Amount)
	if err != nil {
		return nil, err
	}

	if d.Source == SourceTransaction {
		proof := ctx.Builder.CreateProofFromAuthZoneOfAmount(resource, amount)
		return ProofValue(proof), nil
	}

	ctx.Builder.Withdraw(ctx.Caller, resource, amount)
	bucket := ctx.Builder.TakeFromWorktop(resource, amount)
	proof := ctx.Builder.CreateProofFromBucket(bucket)
	ctx.Builder.Add(&ReturnToWorktop{Bucket: bucket})

	return ProofValue(proof), nil
}

// NonFungibleBucket describes a bucket holding non-fungible units.
type NonFungibleBucket struct {
	Resource any
	IDs      []any
	Source   ContainerSource
	// All requests the acting account's entire holding; IDs is ignored.
	All bool
}

// NonFungiblesFromAccount describes a bucket of the given ids,
// withdrawn from the acting account.
func NonFungiblesFromAccount(resource any, ids ...any) NonFungibleBucket {
	return NonFungibleBucket{
		Resource: resource,
		IDs:      ids,
		Source:   SourceAccount,
	}
}

// AllNonFungiblesFromAccount describes a bucket of the acting account's
// entire holding of the resource.
func AllNonFungiblesFromAccount(resource any) NonFungibleBucket {
	return NonFungibleBucket{
		Resource: resource,
		Source:   SourceAccount,
		All:      true,
	}
}

// NonFungiblesFromWorktop describes a bucket of the given ids,
// taken from the worktop.
func NonFungiblesFromWorktop(resource any, ids ...any) NonFungibleBucket {
	return NonFungibleBucket{
		Resource: resource,
		IDs:      ids,
		Source:   SourceTransaction,
	}
}

func (d NonFungibleBucket) Materialize(ctx *Context) (Value, error) {
	resource, err := resolveResource(ctx, d.Resource)
	if err != nil {
		return nil, err
	}

	ids, err := d.ids(ctx, resource)
	if err != nil {
		return nil, err
	}

	if d.Source == SourceAccount {
		ctx.Builder.WithdrawNonFungibles(ctx.Caller, resource, ids)
	}

	bucket := ctx.Builder.TakeNonFungiblesFromWorktop(resource, ids)
	return BucketValue(bucket), nil
}

func (d NonFungibleBucket) ids(
	ctx *Context,
	resource common.Address,
) ([]common.NonFungibleID, error) {
	if d.All {
		return ctx.Ledger.NonFungibleIDsOf(ctx.Caller, resource), nil
	}
	return toIDs(d.IDs)
}

// NonFungibleProof describes a proof of non-fungible units.
type NonFungibleProof struct {
	Resource any
	IDs      []any
	Source   ContainerSource
}

// ProofOfNonFungibles describes a proof of the given ids,
// backed by a withdrawal from the acting account.
func ProofOfNonFungibles(resource any, ids ...any) NonFungibleProof {
	return NonFungibleProof{
		Resource: resource,
		IDs:      ids,
		Source:   SourceAccount,
	}
}

// ProofOfNonFungiblesFromAuthZone describes a proof of the given ids,
// derived from a proof already on the auth zone.
func ProofOfNonFungiblesFromAuthZone(resource any, ids ...any) NonFungibleProof {
	return NonFungibleProof{
		Resource: resource,
		IDs:      ids,
		Source:   SourceTransaction,
	}
}

func (d NonFungibleProof) Materialize(ctx *Context) (Value, error) {
	resource, err := resolveResource(ctx, d.Resource)
	if err != nil {
		return nil, err
	}

	ids, err := toIDs(d.IDs)
	if err != nil {
		return nil, err
	}

	if d.Source == SourceTransaction {
		proof := ctx.Builder.CreateProofFromAuthZoneOfNonFungibles(resource, ids)
		return ProofValue(proof), nil
	}

	ctx.Builder.WithdrawNonFungibles(ctx.Caller, resource, ids)
	bucket := ctx.Builder.TakeNonFungiblesFromWorktop(resource, ids)
	proof := ctx.Builder.CreateProofFromBucket(bucket)
	ctx.Builder.Add(&ReturnToWorktop{Bucket: bucket})

	return ProofValue(proof), nil
}

// Conversions

func resolveResource(ctx *Context, ref any) (common.Address, error) {
	switch ref := ref.(type) {
	case common.Address:
		return ref, nil
	case string:
		return ctx.Resolver.ResolveName(common.EntityKindResource, ref)
	default:
		return common.ZeroAddress, errors.NewUnexpectedError(
			"unsupported resource reference type %T",
			ref,
		)
	}
}

func toDecimal(v any) (common.Decimal, error) {
	switch v := v.(type) {
	case common.Decimal:
		return v, nil
	case string:
		return common.NewDecimal(v)
	case int:
		if v < 0 {
			return common.ZeroDecimal, common.InvalidDecimalError{
				Literal: "-",
				Reason:  "amounts must be non-negative",
			}
		}
		return common.NewDecimalFromUint(uint64(v))
	case int64:
		if v < 0 {
			return common.ZeroDecimal, common.InvalidDecimalError{
				Literal: "-",
				Reason:  "amounts must be non-negative",
			}
		}
		return common.NewDecimalFromUint(uint64(v))
	case uint:
		return common.NewDecimalFromUint(uint64(v))
	case uint64:
		return common.NewDecimalFromUint(v)
	default:
		return common.ZeroDecimal, errors.NewUnexpectedError(
			"unsupported amount literal type %T",
			v,
		)
	}
}

func toIDs(vs []any) ([]common.NonFungibleID, error) {
	ids := make([]common.NonFungibleID, 0, len(vs))
	for _, v := range vs {
		id, err := common.ToNonFungibleID(v)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
