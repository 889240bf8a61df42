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
	"encoding/binary"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/blake2b"

	"github.com/atomledger/testengine/common"
	"github.com/atomledger/testengine/errors"
	"github.com/atomledger/testengine/manifest"
)

// Simulator is an in-memory ledger. It holds accounts, packages,
// component instances, and resources, and executes transactions
// against them atomically.
//
// A Simulator is not safe for concurrent use.
type Simulator struct {
	log    zerolog.Logger
	config Config
	tracer Tracer

	epoch     uint64
	timestamp time.Time

	// counter seeds address derivation.
	counter uint64

	accounts   map[common.Address]struct{}
	packages   map[common.Address]*PackageDefinition
	components map[common.Address]*componentState
	resources  map[common.Address]*resourceState

	// vaults maps entity -> resource -> holding.
	vaults map[common.Address]map[common.Address]*vault

	xrd    common.Address
	faucet common.Address
}

type componentState struct {
	pkg       common.Address
	blueprint string
	state     any
	metadata  map[string]string
}

type resourceState struct {
	fungible bool
	metadata map[string]string
	supply   common.Decimal
	// minted tracks every non-fungible id ever minted.
	minted map[common.NonFungibleID]struct{}
}

type vault struct {
	amount common.Decimal
	ids    map[common.NonFungibleID]struct{}
}

func newVault() *vault {
	return &vault{
		ids: map[common.NonFungibleID]struct{}{},
	}
}

// FaucetBlueprintName is the blueprint of the genesis faucet component.
const FaucetBlueprintName = "Faucet"

// Option configures a Simulator.
type Option func(*Simulator)

func WithLogger(log zerolog.Logger) Option {
	return func(s *Simulator) {
		s.log = log
	}
}

func WithConfig(config Config) Option {
	return func(s *Simulator) {
		s.config = config
	}
}

func WithTracer(tracer Tracer) Option {
	return func(s *Simulator) {
		s.tracer = tracer
	}
}

// NewSimulator returns a ledger at genesis: the base token exists,
// and the faucet component holds its entire supply.
func NewSimulator(options ...Option) *Simulator {
	s := &Simulator{
		log:        zerolog.Nop(),
		config:     DefaultConfig(),
		timestamp:  time.Unix(0, 0).UTC(),
		accounts:   map[common.Address]struct{}{},
		packages:   map[common.Address]*PackageDefinition{},
		components: map[common.Address]*componentState{},
		resources:  map[common.Address]*resourceState{},
		vaults:     map[common.Address]map[common.Address]*vault{},
	}

	for _, option := range options {
		option(s)
	}

	s.genesis()

	return s
}

func (s *Simulator) genesis() {
	s.xrd = s.newResource(true, map[string]string{
		"name":   "Radix",
		"symbol": "XRD",
	})
	s.resources[s.xrd].supply = s.config.FaucetBalance

	faucetPackage := s.PublishPackage(&PackageDefinition{
		Blueprints: map[string]Blueprint{
			FaucetBlueprintName: {
				Methods: map[string]NativeFunc{
					"free": func(ctx *CallContext, _ []manifest.Value) ([]manifest.Value, error) {
						bucket, err := ctx.WithdrawFromSelf(
							ctx.sim.xrd,
							ctx.sim.config.FreeAmount,
						)
						if err != nil {
							return nil, err
						}
						return []manifest.Value{bucket}, nil
					},
				},
			},
		},
	})

	s.faucet = s.instantiate(
		faucetPackage,
		FaucetBlueprintName,
		nil,
		map[string]string{"name": "faucet"},
	)
	s.vaultOf(s.faucet, s.xrd).amount = s.config.FaucetBalance

	s.log.Debug().
		Str("xrd", s.xrd.Hex()).
		Str("faucet", s.faucet.Hex()).
		Msg("genesis complete")
}

// newAddress derives a fresh entity address: the kind tag byte followed by
// the truncated hash of a per-ledger counter.
func (s *Simulator) newAddress(kind common.EntityKind) common.Address {
	s.counter++

	var seed [9]byte
	seed[0] = byte(kind)
	binary.BigEndian.PutUint64(seed[1:], s.counter)
	hash := blake2b.Sum256(seed[:])

	var address common.Address
	address[0] = byte(kind)
	copy(address[1:], hash[:common.AddressLength-1])
	return address
}

// XRD returns the address of the base token.
func (s *Simulator) XRD() common.Address {
	return s.xrd
}

// Faucet returns the address of the genesis faucet component.
func (s *Simulator) Faucet() common.Address {
	return s.faucet
}

func (s *Simulator) Config() Config {
	return s.config
}

// CreateAccount creates an account funded from the faucet.
func (s *Simulator) CreateAccount() (common.Address, error) {
	address := s.newAddress(common.EntityKindAccount)
	s.accounts[address] = struct{}{}

	funding := s.config.InitialAccountBalance
	if !funding.IsZero() {
		err := s.withdraw(s.faucet, s.xrd, funding)
		if err != nil {
			return common.ZeroAddress, err
		}
		s.vaultOf(address, s.xrd).amount = funding
	}

	s.log.Debug().
		Str("account", address.Hex()).
		Stringer("funding", funding).
		Msg("account created")

	return address, nil
}

// IsAccount reports whether the address is an account.
func (s *Simulator) IsAccount(address common.Address) bool {
	_, ok := s.accounts[address]
	return ok
}

// PublishPackage publishes a set of blueprints and returns
// the new package address.
func (s *Simulator) PublishPackage(def *PackageDefinition) common.Address {
	address := s.newAddress(common.EntityKindPackage)
	s.packages[address] = def
	return address
}

func (s *Simulator) instantiate(
	pkg common.Address,
	blueprint string,
	state any,
	metadata map[string]string,
) common.Address {
	address := s.newAddress(common.EntityKindComponent)
	s.components[address] = &componentState{
		pkg:       pkg,
		blueprint: blueprint,
		state:     state,
		metadata:  metadata,
	}
	return address
}

func (s *Simulator) newResource(
	fungible bool,
	metadata map[string]string,
) common.Address {
	address := s.newAddress(common.EntityKindResource)
	s.resources[address] = &resourceState{
		fungible: fungible,
		metadata: metadata,
		minted:   map[common.NonFungibleID]struct{}{},
	}
	return address
}

// NewFungibleResource creates a fungible resource and deposits
// its initial supply into the recipient's vault.
func (s *Simulator) NewFungibleResource(
	metadata map[string]string,
	initialSupply common.Decimal,
	recipient common.Address,
) (common.Address, error) {
	address := s.newResource(true, metadata)
	s.resources[address].supply = initialSupply

	if !initialSupply.IsZero() {
		v := s.vaultOf(recipient, address)
		amount, err := v.amount.Add(initialSupply)
		if err != nil {
			return common.ZeroAddress, err
		}
		v.amount = amount
	}

	return address, nil
}

// NewNonFungibleResource creates a non-fungible resource and mints
// the given units into the recipient's vault.
func (s *Simulator) NewNonFungibleResource(
	metadata map[string]string,
	ids []common.NonFungibleID,
	recipient common.Address,
) (common.Address, error) {
	address := s.newResource(false, metadata)
	state := s.resources[address]

	v := s.vaultOf(recipient, address)
	for _, id := range ids {
		if _, exists := state.minted[id]; exists {
			return common.ZeroAddress, errors.NewDefaultUserError(
				"duplicate non-fungible id %s",
				id,
			)
		}
		state.minted[id] = struct{}{}
		v.ids[id] = struct{}{}
	}

	supply, err := common.NewDecimalFromUint(uint64(len(ids)))
	if err != nil {
		return common.ZeroAddress, err
	}
	state.supply = supply

	return address, nil
}

// BalanceOf returns an entity's holding of a fungible resource,
// or its unit count of a non-fungible resource.
func (s *Simulator) BalanceOf(
	entity common.Address,
	resource common.Address,
) common.Decimal {
	vaults, ok := s.vaults[entity]
	if !ok {
		return common.ZeroDecimal
	}
	v, ok := vaults[resource]
	if !ok {
		return common.ZeroDecimal
	}

	if state, ok := s.resources[resource]; ok && !state.fungible {
		count, err := common.NewDecimalFromUint(uint64(len(v.ids)))
		if err != nil {
			return common.ZeroDecimal
		}
		return count
	}

	return v.amount
}

// NonFungibleIDsOf returns an entity's units of a non-fungible resource,
// sorted by canonical encoding.
func (s *Simulator) NonFungibleIDsOf(
	entity common.Address,
	resource common.Address,
) []common.NonFungibleID {
	vaults, ok := s.vaults[entity]
	if !ok {
		return nil
	}
	v, ok := vaults[resource]
	if !ok {
		return nil
	}

	ids := make([]common.NonFungibleID, 0, len(v.ids))
	for id := range v.ids {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})
	return ids
}

// Metadata returns one metadata entry of a resource or component.
func (s *Simulator) Metadata(
	address common.Address,
	key string,
) (string, bool) {
	if resource, ok := s.resources[address]; ok {
		value, ok := resource.metadata[key]
		return value, ok
	}
	if component, ok := s.components[address]; ok {
		value, ok := component.metadata[key]
		return value, ok
	}
	return "", false
}

// ComponentState returns a component's stored state.
func (s *Simulator) ComponentState(
	address common.Address,
) (any, error) {
	component, ok := s.components[address]
	if !ok {
		return nil, errors.NewDefaultUserError(
			"no component instance at %s",
			address,
		)
	}
	return component.state, nil
}

// TotalSupply returns a resource's total minted supply.
func (s *Simulator) TotalSupply(resource common.Address) common.Decimal {
	state, ok := s.resources[resource]
	if !ok {
		return common.ZeroDecimal
	}
	return state.supply
}

func (s *Simulator) Epoch() uint64 {
	return s.epoch
}

func (s *Simulator) SetEpoch(epoch uint64) {
	s.epoch = epoch
}

func (s *Simulator) AdvanceEpoch() {
	s.epoch++
}

func (s *Simulator) Time() time.Time {
	return s.timestamp
}

func (s *Simulator) SetTime(t time.Time) {
	s.timestamp = t
}

func (s *Simulator) vaultOf(
	entity common.Address,
	resource common.Address,
) *vault {
	vaults, ok := s.vaults[entity]
	if !ok {
		vaults = map[common.Address]*vault{}
		s.vaults[entity] = vaults
	}
	v, ok := vaults[resource]
	if !ok {
		v = newVault()
		vaults[resource] = v
	}
	return v
}

func (s *Simulator) withdraw(
	entity common.Address,
	resource common.Address,
	amount common.Decimal,
) error {
	v := s.vaultOf(entity, resource)
	if v.amount.Lt(amount) {
		return errors.NewDefaultUserError(
			"insufficient balance: %s holds %s of %s, needs %s",
			entity,
			v.amount,
			resource,
			amount,
		)
	}
	remaining, err := v.amount.Sub(amount)
	if err != nil {
		return err
	}
	v.amount = remaining
	return nil
}

func (s *Simulator) withdrawIDs(
	entity common.Address,
	resource common.Address,
	ids []common.NonFungibleID,
) error {
	v := s.vaultOf(entity, resource)
	for _, id := range ids {
		if _, ok := v.ids[id]; !ok {
			return errors.NewDefaultUserError(
				"insufficient balance: %s does not hold %s of %s",
				entity,
				id,
				resource,
			)
		}
	}
	for _, id := range ids {
		delete(v.ids, id)
	}
	return nil
}

func (s *Simulator) deposit(
	entity common.Address,
	content *bucketContent,
) error {
	v := s.vaultOf(entity, content.resource)

	if !content.amount.IsZero() {
		amount, err := v.amount.Add(content.amount)
		if err != nil {
			return err
		}
		v.amount = amount
	}

	for id := range content.ids {
		v.ids[id] = struct{}{}
	}

	return nil
}

// snapshot and restore implement transaction atomicity.

// Component state is copied shallowly: blueprints must replace state
// through SetState rather than mutate it in place.
type snapshot struct {
	counter    uint64
	packages   map[common.Address]*PackageDefinition
	components map[common.Address]componentState
	resources  map[common.Address]*resourceState
	accounts   map[common.Address]struct{}
	vaults     map[common.Address]map[common.Address]vault
}

func (s *Simulator) snapshot() *snapshot {
	snap := &snapshot{
		counter:    s.counter,
		packages:   map[common.Address]*PackageDefinition{},
		components: map[common.Address]componentState{},
		resources:  map[common.Address]*resourceState{},
		accounts:   map[common.Address]struct{}{},
		vaults:     map[common.Address]map[common.Address]vault{},
	}

	for address, def := range s.packages {
		snap.packages[address] = def
	}
	for address := range s.accounts {
		snap.accounts[address] = struct{}{}
	}
	for address, component := range s.components {
		snap.components[address] = *component
	}
	for address, resource := range s.resources {
		minted := make(
			map[common.NonFungibleID]struct{},
			len(resource.minted),
		)
		for id := range resource.minted {
			minted[id] = struct{}{}
		}
		snap.resources[address] = &resourceState{
			fungible: resource.fungible,
			metadata: resource.metadata,
			supply:   resource.supply,
			minted:   minted,
		}
	}
	for entity, vaults := range s.vaults {
		copied := make(map[common.Address]vault, len(vaults))
		for resource, v := range vaults {
			ids := make(map[common.NonFungibleID]struct{}, len(v.ids))
			for id := range v.ids {
				ids[id] = struct{}{}
			}
			copied[resource] = vault{
				amount: v.amount,
				ids:    ids,
			}
		}
		snap.vaults[entity] = copied
	}

	return snap
}

func (s *Simulator) restore(snap *snapshot) {
	s.counter = snap.counter

	s.packages = snap.packages
	s.accounts = snap.accounts

	s.components = make(
		map[common.Address]*componentState,
		len(snap.components),
	)
	for address, component := range snap.components {
		restored := component
		s.components[address] = &restored
	}

	s.resources = snap.resources

	s.vaults = make(
		map[common.Address]map[common.Address]*vault,
		len(snap.vaults),
	)
	for entity, vaults := range snap.vaults {
		restored := make(map[common.Address]*vault, len(vaults))
		for resource, v := range vaults {
			copied := v
			restored[resource] = &copied
		}
		s.vaults[entity] = restored
	}
}
