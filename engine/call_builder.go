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
	"github.com/atomledger/testengine/common"
	"github.com/atomledger/testengine/errors"
	"github.com/atomledger/testengine/manifest"
)

// DefaultFeeLocked is the fee budget locked when no explicit amount
// is given.
var DefaultFeeLocked = common.MustDecimal("5000")

// AlreadyExecutedError is the panic raised when a call builder
// is executed twice.
type AlreadyExecutedError struct{}

var _ errors.InternalError = &AlreadyExecutedError{}

func (*AlreadyExecutedError) IsInternalError() {}

func (*AlreadyExecutedError) Error() string {
	return "internal error: call builder already executed"
}

type badge struct {
	resource any
	amount   common.Decimal
	ids      []common.NonFungibleID
}

// CallBuilder assembles one method or function call transaction.
//
// The assembled instruction sequence always has the shape
// fee lock, badge proofs, argument instructions, target call,
// final deposit of the remaining worktop contents.
//
// A CallBuilder is single-use: Execute consumes it,
// and a second Execute panics.
type CallBuilder struct {
	engine *TestEngine

	name string

	// method call
	component string
	method    string

	// function call
	blueprint string
	function  string

	isFunction bool

	args []manifest.Argument

	feePayer  string
	feeLocked common.Decimal

	badges []badge

	depositTarget string

	sink manifest.Sink

	executed bool
}

func newMethodCallBuilder(
	engine *TestEngine,
	component string,
	method string,
	args []manifest.Argument,
) *CallBuilder {
	return &CallBuilder{
		engine:    engine,
		name:      method,
		component: component,
		method:    method,
		args:      args,
		feeLocked: DefaultFeeLocked,
	}
}

func newFunctionCallBuilder(
	engine *TestEngine,
	blueprint string,
	function string,
	args []manifest.Argument,
) *CallBuilder {
	return &CallBuilder{
		engine:     engine,
		name:       function,
		blueprint:  blueprint,
		function:   function,
		isFunction: true,
		args:       args,
		feeLocked:  DefaultFeeLocked,
	}
}

func (b *CallBuilder) withName(name string) *CallBuilder {
	b.name = name
	return b
}

// WithFeePayer locks the fee against a named account
// instead of the caller.
func (b *CallBuilder) WithFeePayer(account string) *CallBuilder {
	b.feePayer = account
	return b
}

// WithFeeLocked overrides the locked fee budget.
func (b *CallBuilder) WithFeeLocked(amount common.Decimal) *CallBuilder {
	b.feeLocked = amount
	return b
}

// WithBadge presents a proof of one unit of the given resource,
// taken from the caller, on the auth zone.
func (b *CallBuilder) WithBadge(resource any) *CallBuilder {
	b.badges = append(b.badges, badge{
		resource: resource,
		amount:   common.MustDecimal("1"),
	})
	return b
}

// WithBadgeOfAmount presents a proof of the given amount of a resource,
// taken from the caller, on the auth zone.
func (b *CallBuilder) WithBadgeOfAmount(
	resource any,
	amount common.Decimal,
) *CallBuilder {
	b.badges = append(b.badges, badge{
		resource: resource,
		amount:   amount,
	})
	return b
}

// WithNonFungibleBadge presents a proof of the given non-fungible units,
// taken from the caller, on the auth zone.
func (b *CallBuilder) WithNonFungibleBadge(
	resource any,
	ids ...any,
) *CallBuilder {
	nfids := make([]common.NonFungibleID, 0, len(ids))
	for _, id := range ids {
		nfid, err := common.ToNonFungibleID(id)
		if err != nil {
			// surfaced on Execute
			b.badges = append(b.badges, badge{resource: resource})
			return b
		}
		nfids = append(nfids, nfid)
	}
	b.badges = append(b.badges, badge{
		resource: resource,
		ids:      nfids,
	})
	return b
}

// WithDepositTarget deposits the remaining worktop contents into a named
// entity instead of the caller.
func (b *CallBuilder) WithDepositTarget(entity string) *CallBuilder {
	b.depositTarget = entity
	return b
}

// WithOutput dumps this transaction's textual rendering
// into the given directory.
func (b *CallBuilder) WithOutput(dir string) *CallBuilder {
	b.sink = manifest.NewFileSink(dir)
	return b
}

// Execute assembles and submits the transaction. Any reference that fails
// to resolve aborts the call before submission.
//
// Execute panics when called twice on the same builder.
func (b *CallBuilder) Execute() (*Receipt, error) {
	if b.executed {
		panic(&AlreadyExecutedError{})
	}
	b.executed = true

	e := b.engine

	caller, err := e.CurrentAccount()
	if err != nil {
		return nil, err
	}

	feePayer := caller
	if b.feePayer != "" {
		feePayer, err = e.GetAccount(b.feePayer)
		if err != nil {
			return nil, err
		}
	}

	depositTarget := caller
	if b.depositTarget != "" {
		depositTarget, err = e.ResolveAnyName(b.depositTarget)
		if err != nil {
			return nil, err
		}
	}

	builder := manifest.NewBuilder()

	values, err := manifest.MaterializeArguments(
		&manifest.Context{
			Builder:  builder,
			Resolver: e,
			Ledger:   e.sim,
			Caller:   caller,
		},
		b.args,
	)
	if err != nil {
		return nil, err
	}

	call, err := b.callInstruction(values)
	if err != nil {
		return nil, err
	}
	builder.Add(call)

	// Badge proofs go between the fee lock and the argument
	// instructions; prepend in reverse to keep declaration order.
	for i := len(b.badges) - 1; i >= 0; i-- {
		instruction, err := b.badgeInstruction(caller, b.badges[i])
		if err != nil {
			return nil, err
		}
		builder.Prepend(instruction)
	}

	builder.Prepend(&manifest.LockFee{
		Payer:  feePayer,
		Amount: b.feeLocked,
	})

	builder.Add(&manifest.DepositEntireWorktop{
		Account: depositTarget,
	})

	signers := []common.Address{caller}
	if feePayer != caller {
		signers = append(signers, feePayer)
	}

	if b.sink != nil {
		err = b.sink.Write(b.name, manifest.Serialize(builder.Instructions()))
		if err != nil {
			return nil, err
		}
	}

	return e.submit(b.name, builder.Instructions(), signers)
}

func (b *CallBuilder) callInstruction(
	values []manifest.Value,
) (manifest.Instruction, error) {
	e := b.engine

	if b.isFunction {
		pkg, err := e.CurrentPackage()
		if err != nil {
			return nil, err
		}
		return &manifest.CallFunction{
			Package:   pkg,
			Blueprint: b.blueprint,
			Function:  b.function,
			Arguments: values,
		}, nil
	}

	var target common.Address
	var err error
	if b.component != "" {
		target, err = e.GetComponent(b.component)
	} else {
		target, err = e.CurrentComponent()
	}
	if err != nil {
		return nil, err
	}

	return &manifest.CallMethod{
		Target:    target,
		Method:    b.method,
		Arguments: values,
	}, nil
}

func (b *CallBuilder) badgeInstruction(
	caller common.Address,
	badge badge,
) (manifest.Instruction, error) {
	resource, err := b.engine.resolveResource(badge.resource)
	if err != nil {
		return nil, err
	}

	if len(badge.ids) > 0 {
		return &manifest.CreateProofOfNonFungibles{
			Account:  caller,
			Resource: resource,
			IDs:      badge.ids,
		}, nil
	}

	if badge.amount.IsZero() {
		return nil, errors.NewDefaultUserError(
			"invalid badge for resource %v",
			badge.resource,
		)
	}

	return &manifest.CreateProofOfAmount{
		Account:  caller,
		Resource: resource,
		Amount:   badge.amount,
	}, nil
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
