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
	"time"

	"github.com/rs/zerolog"

	"github.com/atomledger/testengine/common"
	"github.com/atomledger/testengine/errors"
	"github.com/atomledger/testengine/manifest"
	"github.com/atomledger/testengine/simulator"
)

// DefaultAccountName is the reference name of the account created
// at engine construction.
const DefaultAccountName = "default"

// TestEngine drives a simulated ledger by reference names instead of raw
// addresses. It tracks a current account, package, and component, which
// serve as the defaults for calls.
//
// A TestEngine is not safe for concurrent use.
type TestEngine struct {
	log      zerolog.Logger
	sim      *simulator.Simulator
	registry *registry
	sink     manifest.Sink

	// currents hold normalized reference names.
	// The empty name means no current entity of that kind.
	currentAccount   string
	currentPackage   string
	currentComponent string
}

var _ manifest.Resolver = &TestEngine{}

// Option configures a TestEngine.
type Option func(*options)

type options struct {
	log       zerolog.Logger
	simulator []simulator.Option
	sink      manifest.Sink
}

func WithLogger(log zerolog.Logger) Option {
	return func(o *options) {
		o.log = log
		o.simulator = append(o.simulator, simulator.WithLogger(log))
	}
}

func WithConfig(config simulator.Config) Option {
	return func(o *options) {
		o.simulator = append(o.simulator, simulator.WithConfig(config))
	}
}

func WithTracer(tracer simulator.Tracer) Option {
	return func(o *options) {
		o.simulator = append(o.simulator, simulator.WithTracer(tracer))
	}
}

// WithSink dumps every submitted transaction's textual rendering
// to the given sink.
func WithSink(sink manifest.Sink) Option {
	return func(o *options) {
		o.sink = sink
	}
}

// NewTestEngine returns an engine over a fresh ledger.
// The base token is registered under "XRD" and "Radix", the genesis faucet
// under "faucet", and a funded account under "default", which starts as
// the current account.
//
// NewTestEngine panics when the genesis configuration is unusable,
// e.g. when the faucet cannot fund the default account.
func NewTestEngine(opts ...Option) *TestEngine {
	o := &options{
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}

	engine := &TestEngine{
		log:      o.log,
		sim:      simulator.NewSimulator(o.simulator...),
		registry: newRegistry(o.log),
		sink:     o.sink,
	}

	engine.bootstrap()

	return engine
}

func (e *TestEngine) bootstrap() {
	xrd := e.sim.XRD()
	e.autoRegisterMetadata(common.EntityKindResource, xrd)
	e.autoRegisterMetadata(common.EntityKindComponent, e.sim.Faucet())

	_, err := e.NewAccount(DefaultAccountName)
	if err != nil {
		panic(err)
	}
	e.currentAccount = NormalizeName(DefaultAccountName)
}

// Simulator exposes the underlying ledger.
func (e *TestEngine) Simulator() *simulator.Simulator {
	return e.sim
}

func (e *TestEngine) Logger() zerolog.Logger {
	return e.log
}

// Accounts

// NewAccount creates a funded account and registers it under the name.
// The current account is unchanged.
func (e *TestEngine) NewAccount(name string) (common.Address, error) {
	address, err := e.sim.CreateAccount()
	if err != nil {
		return common.ZeroAddress, err
	}
	err = e.registry.register(common.EntityKindAccount, name, address)
	if err != nil {
		return common.ZeroAddress, err
	}
	return address, nil
}

// GetAccount resolves an account reference name.
func (e *TestEngine) GetAccount(name string) (common.Address, error) {
	return e.registry.resolve(common.EntityKindAccount, name)
}

// RegisterAccount explicitly binds a name to an existing account.
func (e *TestEngine) RegisterAccount(
	name string,
	address common.Address,
) error {
	return e.registry.register(common.EntityKindAccount, name, address)
}

// SetCurrentAccount switches the current account.
func (e *TestEngine) SetCurrentAccount(name string) error {
	_, err := e.GetAccount(name)
	if err != nil {
		return err
	}
	e.currentAccount = NormalizeName(name)
	return nil
}

// CurrentAccount returns the current account's address.
func (e *TestEngine) CurrentAccount() (common.Address, error) {
	return e.registry.resolve(common.EntityKindAccount, e.currentAccount)
}

// Packages

// NewPackage publishes a set of blueprints and registers the package
// under the name. The first published package becomes current.
func (e *TestEngine) NewPackage(
	name string,
	def *simulator.PackageDefinition,
) (common.Address, error) {
	address := e.sim.PublishPackage(def)
	err := e.registry.register(common.EntityKindPackage, name, address)
	if err != nil {
		return common.ZeroAddress, err
	}
	if e.currentPackage == "" {
		e.currentPackage = NormalizeName(name)
	}
	return address, nil
}

// GetPackage resolves a package reference name.
func (e *TestEngine) GetPackage(name string) (common.Address, error) {
	return e.registry.resolve(common.EntityKindPackage, name)
}

// RegisterPackage explicitly binds a name to an existing package.
func (e *TestEngine) RegisterPackage(
	name string,
	address common.Address,
) error {
	return e.registry.register(common.EntityKindPackage, name, address)
}

// SetCurrentPackage switches the current package.
func (e *TestEngine) SetCurrentPackage(name string) error {
	_, err := e.GetPackage(name)
	if err != nil {
		return err
	}
	e.currentPackage = NormalizeName(name)
	return nil
}

// CurrentPackage returns the current package's address.
func (e *TestEngine) CurrentPackage() (common.Address, error) {
	if e.currentPackage == "" {
		return common.ZeroAddress, errors.NewDefaultUserError(
			"no current package: publish or register one first",
		)
	}
	return e.registry.resolve(common.EntityKindPackage, e.currentPackage)
}

// Components

// NewComponent instantiates a component by calling a function of the
// current package's blueprint, and registers the new component under the
// name. The first instantiated component becomes current.
func (e *TestEngine) NewComponent(
	name string,
	blueprint string,
	function string,
	args ...manifest.Argument,
) (*Receipt, error) {
	receipt, err := e.CallFunction(blueprint, function, args...).
		withName(name).
		Execute()
	if err != nil {
		return nil, err
	}

	if receipt.IsSuccess() {
		components := receipt.NewComponents()
		if len(components) == 0 {
			return receipt, errors.NewDefaultUserError(
				"function %q of blueprint %q created no component",
				function,
				blueprint,
			)
		}
		err = e.registry.register(
			common.EntityKindComponent,
			name,
			components[0],
		)
		if err != nil {
			return receipt, err
		}
		if e.currentComponent == "" {
			e.currentComponent = NormalizeName(name)
		}
	}

	return receipt, nil
}

// GetComponent resolves a component reference name.
func (e *TestEngine) GetComponent(name string) (common.Address, error) {
	return e.registry.resolve(common.EntityKindComponent, name)
}

// RegisterComponent explicitly binds a name to an existing component.
func (e *TestEngine) RegisterComponent(
	name string,
	address common.Address,
) error {
	return e.registry.register(common.EntityKindComponent, name, address)
}

// SetCurrentComponent switches the current component.
func (e *TestEngine) SetCurrentComponent(name string) error {
	_, err := e.GetComponent(name)
	if err != nil {
		return err
	}
	e.currentComponent = NormalizeName(name)
	return nil
}

// CurrentComponent returns the current component's address.
func (e *TestEngine) CurrentComponent() (common.Address, error) {
	if e.currentComponent == "" {
		return common.ZeroAddress, errors.NewDefaultUserError(
			"no current component: instantiate or register one first",
		)
	}
	return e.registry.resolve(common.EntityKindComponent, e.currentComponent)
}

// ComponentState returns a component's stored state by reference name.
func (e *TestEngine) ComponentState(name string) (any, error) {
	address, err := e.GetComponent(name)
	if err != nil {
		return nil, err
	}
	return e.sim.ComponentState(address)
}

// CurrentComponentState returns the current component's stored state.
func (e *TestEngine) CurrentComponentState() (any, error) {
	address, err := e.CurrentComponent()
	if err != nil {
		return nil, err
	}
	return e.sim.ComponentState(address)
}

// Resources

// NewToken creates a fungible resource, deposits the initial supply into
// the current account, and registers the resource under the name.
func (e *TestEngine) NewToken(
	name string,
	initialSupply any,
) (common.Address, error) {
	supply, err := toDecimal(initialSupply)
	if err != nil {
		return common.ZeroAddress, err
	}

	account, err := e.CurrentAccount()
	if err != nil {
		return common.ZeroAddress, err
	}

	address, err := e.sim.NewFungibleResource(
		map[string]string{"name": name},
		supply,
		account,
	)
	if err != nil {
		return common.ZeroAddress, err
	}

	err = e.registry.register(common.EntityKindResource, name, address)
	if err != nil {
		return common.ZeroAddress, err
	}
	return address, nil
}

// NewNonFungibleToken creates a non-fungible resource, mints the given
// units into the current account, and registers the resource under the
// name.
func (e *TestEngine) NewNonFungibleToken(
	name string,
	ids ...any,
) (common.Address, error) {
	nfids := make([]common.NonFungibleID, 0, len(ids))
	for _, id := range ids {
		nfid, err := common.ToNonFungibleID(id)
		if err != nil {
			return common.ZeroAddress, err
		}
		nfids = append(nfids, nfid)
	}

	account, err := e.CurrentAccount()
	if err != nil {
		return common.ZeroAddress, err
	}

	address, err := e.sim.NewNonFungibleResource(
		map[string]string{"name": name},
		nfids,
		account,
	)
	if err != nil {
		return common.ZeroAddress, err
	}

	err = e.registry.register(common.EntityKindResource, name, address)
	if err != nil {
		return common.ZeroAddress, err
	}
	return address, nil
}

// GetResource resolves a resource reference name.
func (e *TestEngine) GetResource(name string) (common.Address, error) {
	return e.registry.resolve(common.EntityKindResource, name)
}

// RegisterResource explicitly binds a name to an existing resource.
func (e *TestEngine) RegisterResource(
	name string,
	address common.Address,
) error {
	return e.registry.register(common.EntityKindResource, name, address)
}

// XRD returns the base token's address.
func (e *TestEngine) XRD() common.Address {
	return e.sim.XRD()
}

// Resolver

// ResolveName resolves a reference name of a specific entity kind.
func (e *TestEngine) ResolveName(
	kind common.EntityKind,
	name string,
) (common.Address, error) {
	return e.registry.resolve(kind, name)
}

// ResolveAnyName resolves a reference name across all entity kinds,
// in resolution priority order.
func (e *TestEngine) ResolveAnyName(name string) (common.Address, error) {
	return e.registry.resolveAny(name)
}

// Balances

// CurrentBalance returns the current account's holding of a resource.
func (e *TestEngine) CurrentBalance(resource any) (common.Decimal, error) {
	account, err := e.CurrentAccount()
	if err != nil {
		return common.ZeroDecimal, err
	}
	return e.balance(account, resource)
}

// BalanceOf returns a named entity's holding of a resource.
func (e *TestEngine) BalanceOf(
	entity string,
	resource any,
) (common.Decimal, error) {
	address, err := e.registry.resolveAny(entity)
	if err != nil {
		return common.ZeroDecimal, err
	}
	return e.balance(address, resource)
}

func (e *TestEngine) balance(
	entity common.Address,
	resource any,
) (common.Decimal, error) {
	resourceAddress, err := e.resolveResource(resource)
	if err != nil {
		return common.ZeroDecimal, err
	}
	return e.sim.BalanceOf(entity, resourceAddress), nil
}

// CurrentIDsBalance returns the current account's units
// of a non-fungible resource, sorted by canonical encoding.
func (e *TestEngine) CurrentIDsBalance(
	resource any,
) ([]common.NonFungibleID, error) {
	account, err := e.CurrentAccount()
	if err != nil {
		return nil, err
	}
	resourceAddress, err := e.resolveResource(resource)
	if err != nil {
		return nil, err
	}
	return e.sim.NonFungibleIDsOf(account, resourceAddress), nil
}

func (e *TestEngine) resolveResource(resource any) (common.Address, error) {
	switch resource := resource.(type) {
	case common.Address:
		return resource, nil
	case string:
		return e.GetResource(resource)
	default:
		return common.ZeroAddress, errors.NewUnexpectedError(
			"unsupported resource reference type %T",
			resource,
		)
	}
}

// Time

func (e *TestEngine) Epoch() uint64 {
	return e.sim.Epoch()
}

func (e *TestEngine) SetEpoch(epoch uint64) {
	e.sim.SetEpoch(epoch)
}

func (e *TestEngine) AdvanceEpoch() {
	e.sim.AdvanceEpoch()
}

// AdvanceTime moves the ledger clock forward.
func (e *TestEngine) AdvanceTime(d time.Duration) {
	e.sim.SetTime(e.sim.Time().Add(d))
}

// Calls

// CallMethod starts a call to a method of the current component.
func (e *TestEngine) CallMethod(
	method string,
	args ...manifest.Argument,
) *CallBuilder {
	return newMethodCallBuilder(e, "", method, args)
}

// CallMethodOn starts a call to a method of a named component.
func (e *TestEngine) CallMethodOn(
	component string,
	method string,
	args ...manifest.Argument,
) *CallBuilder {
	return newMethodCallBuilder(e, component, method, args)
}

// CallFunction starts a call to a function of a blueprint
// in the current package.
func (e *TestEngine) CallFunction(
	blueprint string,
	function string,
	args ...manifest.Argument,
) *CallBuilder {
	return newFunctionCallBuilder(e, blueprint, function, args)
}

// CallFaucet requests free base tokens from the faucet
// into the current account.
func (e *TestEngine) CallFaucet() (*Receipt, error) {
	return e.CallMethodOn("faucet", "free").Execute()
}

// Transfer moves a fungible amount from the current account
// to a named entity.
func (e *TestEngine) Transfer(
	to string,
	resource any,
	amount any,
) (*Receipt, error) {
	caller, err := e.CurrentAccount()
	if err != nil {
		return nil, err
	}
	recipient, err := e.registry.resolveAny(to)
	if err != nil {
		return nil, err
	}
	resourceAddress, err := e.resolveResource(resource)
	if err != nil {
		return nil, err
	}
	transferAmount, err := toDecimal(amount)
	if err != nil {
		return nil, err
	}

	builder := manifest.NewBuilder()
	builder.Add(&manifest.LockFee{
		Payer:  caller,
		Amount: DefaultFeeLocked,
	})
	builder.Withdraw(caller, resourceAddress, transferAmount)
	builder.Add(&manifest.DepositEntireWorktop{Account: recipient})

	return e.submit(
		"transfer",
		builder.Instructions(),
		[]common.Address{caller},
	)
}

// TransferNonFungibles moves non-fungible units from the current account
// to a named entity.
func (e *TestEngine) TransferNonFungibles(
	to string,
	resource any,
	ids ...any,
) (*Receipt, error) {
	caller, err := e.CurrentAccount()
	if err != nil {
		return nil, err
	}
	recipient, err := e.registry.resolveAny(to)
	if err != nil {
		return nil, err
	}
	resourceAddress, err := e.resolveResource(resource)
	if err != nil {
		return nil, err
	}
	nfids := make([]common.NonFungibleID, 0, len(ids))
	for _, id := range ids {
		nfid, err := common.ToNonFungibleID(id)
		if err != nil {
			return nil, err
		}
		nfids = append(nfids, nfid)
	}

	builder := manifest.NewBuilder()
	builder.Add(&manifest.LockFee{
		Payer:  caller,
		Amount: DefaultFeeLocked,
	})
	builder.WithdrawNonFungibles(caller, resourceAddress, nfids)
	builder.Add(&manifest.DepositEntireWorktop{Account: recipient})

	return e.submit(
		"transfer_non_fungibles",
		builder.Instructions(),
		[]common.Address{caller},
	)
}

// submit runs an instruction sequence, dumps its rendering to the sink,
// and applies metadata auto-registration from the receipt.
func (e *TestEngine) submit(
	name string,
	instructions []manifest.Instruction,
	signers []common.Address,
) (*Receipt, error) {
	if e.sink != nil {
		err := e.sink.Write(name, manifest.Serialize(instructions))
		if err != nil {
			return nil, err
		}
	}

	receipt := e.sim.Submit(simulator.Transaction{
		Name:         name,
		Instructions: instructions,
		Signers:      signers,
	})

	e.applyReceipt(receipt)

	return newReceipt(e, receipt), nil
}

// applyReceipt auto-registers created entities from their metadata:
// components under their "name", resources under both "name" and "symbol".
func (e *TestEngine) applyReceipt(receipt *simulator.Receipt) {
	for _, address := range receipt.NewComponents {
		e.autoRegisterMetadata(common.EntityKindComponent, address)
	}
	for _, address := range receipt.NewResources {
		e.autoRegisterMetadata(common.EntityKindResource, address)
	}
}

func (e *TestEngine) autoRegisterMetadata(
	kind common.EntityKind,
	address common.Address,
) {
	if name, ok := e.sim.Metadata(address, "name"); ok {
		e.registry.autoRegister(kind, name, address)
	}
	if kind == common.EntityKindResource {
		if symbol, ok := e.sim.Metadata(address, "symbol"); ok {
			e.registry.autoRegister(kind, symbol, address)
		}
	}
}
