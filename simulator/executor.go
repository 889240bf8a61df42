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
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/atomledger/testengine/common"
	"github.com/atomledger/testengine/errors"
	"github.com/atomledger/testengine/manifest"
)

// Transaction is one atomic instruction sequence submitted to the ledger.
type Transaction struct {
	Name         string
	Instructions []manifest.Instruction

	// Signers authorize withdrawals and proof creations
	// against the listed accounts.
	Signers []common.Address
}

// bucketContent is the live content of a bucket or of one worktop pool.
type bucketContent struct {
	resource common.Address
	amount   common.Decimal
	ids      map[common.NonFungibleID]struct{}
}

func newBucketContent(resource common.Address) *bucketContent {
	return &bucketContent{
		resource: resource,
		ids:      map[common.NonFungibleID]struct{}{},
	}
}

// total returns the fungible amount, or the unit count
// for non-fungible contents.
func (b *bucketContent) total() (common.Decimal, error) {
	if len(b.ids) > 0 {
		return common.NewDecimalFromUint(uint64(len(b.ids)))
	}
	return b.amount, nil
}

func (b *bucketContent) merge(other *bucketContent) error {
	amount, err := b.amount.Add(other.amount)
	if err != nil {
		return err
	}
	b.amount = amount
	for id := range other.ids {
		b.ids[id] = struct{}{}
	}
	return nil
}

// proofRecord is a non-owning attestation of resource possession.
type proofRecord struct {
	resource common.Address
	amount   common.Decimal
	ids      map[common.NonFungibleID]struct{}
}

// txContext is the transient state of one executing transaction.
type txContext struct {
	worktop map[common.Address]*bucketContent
	buckets map[manifest.BucketID]*bucketContent
	proofs  map[manifest.ProofID]*proofRecord

	authZone []*proofRecord

	// nextBucket and nextProof allocate handles for containers created
	// inside component code, above any handle the manifest uses.
	nextBucket manifest.BucketID
	nextProof  manifest.ProofID

	logs          []LogEntry
	newComponents []common.Address
	newResources  []common.Address

	// returns holds the values returned by the most recent call.
	returns []manifest.Value
}

func newTxContext(instructions []manifest.Instruction) *txContext {
	tx := &txContext{
		worktop: map[common.Address]*bucketContent{},
		buckets: map[manifest.BucketID]*bucketContent{},
		proofs:  map[manifest.ProofID]*proofRecord{},
	}

	for _, instruction := range instructions {
		switch instruction := instruction.(type) {
		case *manifest.TakeFromWorktop:
			tx.reserveBucket(instruction.Bucket)
		case *manifest.TakeNonFungiblesFromWorktop:
			tx.reserveBucket(instruction.Bucket)
		case *manifest.TakeAllFromWorktop:
			tx.reserveBucket(instruction.Bucket)
		case *manifest.CreateProofFromBucket:
			tx.reserveProof(instruction.Proof)
		case *manifest.CreateProofFromAuthZoneOfAmount:
			tx.reserveProof(instruction.Proof)
		case *manifest.CreateProofFromAuthZoneOfNonFungibles:
			tx.reserveProof(instruction.Proof)
		}
	}

	return tx
}

func (tx *txContext) reserveBucket(id manifest.BucketID) {
	if id >= tx.nextBucket {
		tx.nextBucket = id + 1
	}
}

func (tx *txContext) reserveProof(id manifest.ProofID) {
	if id >= tx.nextProof {
		tx.nextProof = id + 1
	}
}

func (tx *txContext) newBucket(resource common.Address) manifest.BucketID {
	id := tx.nextBucket
	tx.nextBucket++
	tx.buckets[id] = newBucketContent(resource)
	return id
}

func (tx *txContext) worktopPool(resource common.Address) *bucketContent {
	pool, ok := tx.worktop[resource]
	if !ok {
		pool = newBucketContent(resource)
		tx.worktop[resource] = pool
	}
	return pool
}

func (tx *txContext) bucket(value manifest.Value) (*bucketContent, error) {
	bv, ok := value.(manifest.BucketValue)
	if !ok {
		return nil, errors.NewDefaultUserError(
			"expected a bucket, got %T",
			value,
		)
	}
	bucket, ok := tx.buckets[manifest.BucketID(bv)]
	if !ok {
		return nil, errors.NewDefaultUserError(
			"bucket %d does not exist or was already consumed",
			bv,
		)
	}
	return bucket, nil
}

func (tx *txContext) takeBucket(
	value manifest.Value,
) (manifest.BucketID, *bucketContent, error) {
	bucket, err := tx.bucket(value)
	if err != nil {
		return 0, nil, err
	}
	id := manifest.BucketID(value.(manifest.BucketValue))
	delete(tx.buckets, id)
	return id, bucket, nil
}

func (tx *txContext) proof(value manifest.Value) (*proofRecord, error) {
	pv, ok := value.(manifest.ProofValue)
	if !ok {
		return nil, errors.NewDefaultUserError(
			"expected a proof, got %T",
			value,
		)
	}
	proof, ok := tx.proofs[manifest.ProofID(pv)]
	if !ok {
		return nil, errors.NewDefaultUserError(
			"proof %d does not exist",
			pv,
		)
	}
	return proof, nil
}

// Submit executes a transaction atomically. On failure or fault all state
// changes are rolled back; the fee is charged regardless of outcome.
func (s *Simulator) Submit(tx Transaction) *Receipt {
	start := time.Now()

	snap := s.snapshot()
	ctx := newTxContext(tx.Instructions)

	var feePayer common.Address
	var feeLocked common.Decimal

	outcome := s.run(tx, ctx, &feePayer, &feeLocked)

	_, committed := outcome.(Success)
	if !committed {
		s.restore(snap)
	}

	feeCharged := s.chargeFee(tx, feePayer, feeLocked)

	receipt := &Receipt{
		Name:       tx.Name,
		Outcome:    outcome,
		FeeCharged: feeCharged,
		Logs:       ctx.logs,
	}
	if committed {
		receipt.NewComponents = ctx.newComponents
		receipt.NewResources = ctx.newResources
	}

	s.log.Info().
		Str("transaction", tx.Name).
		Int("instructions", len(tx.Instructions)).
		Bool("success", committed).
		Stringer("fee", feeCharged).
		Msg("transaction executed")

	if s.tracer != nil && s.tracer.TracingEnabled() {
		s.tracer.OnRecordTrace(
			"submitTransaction",
			time.Since(start),
			[]attribute.KeyValue{
				attribute.String("transaction", tx.Name),
				attribute.Int("instructions", len(tx.Instructions)),
				attribute.Bool("success", committed),
			},
		)
	}

	return receipt
}

func (s *Simulator) run(
	tx Transaction,
	ctx *txContext,
	feePayer *common.Address,
	feeLocked *common.Decimal,
) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = Fault{Reason: fmt.Sprint(r)}
		}
	}()

	for i, instruction := range tx.Instructions {
		err := s.executeInstruction(
			tx,
			ctx,
			i,
			instruction,
			feePayer,
			feeLocked,
		)
		if err != nil {
			s.log.Debug().
				Str("transaction", tx.Name).
				Int("instruction", i).
				Err(err).
				Msg("instruction failed")
			return Failure{Message: err.Error()}
		}
	}

	if !feeLocked.IsZero() {
		fee, err := s.transactionFee(tx)
		if err != nil {
			return Failure{Message: err.Error()}
		}
		if feeLocked.Lt(fee) {
			return Failure{Message: fmt.Sprintf(
				"fee budget exceeded: locked %s, needs %s",
				feeLocked,
				fee,
			)}
		}
	}

	payload, err := manifest.EncodeValues(ctx.returns)
	if err != nil {
		return Failure{Message: err.Error()}
	}

	return Success{ReturnPayload: payload}
}

func (s *Simulator) transactionFee(tx Transaction) (common.Decimal, error) {
	count, err := common.NewDecimalFromUint(uint64(len(tx.Instructions)))
	if err != nil {
		return common.ZeroDecimal, err
	}
	return s.config.FeePerInstruction.Mul(count)
}

// chargeFee deducts the transaction fee from the fee payer,
// capped at the locked budget and the payer's balance.
func (s *Simulator) chargeFee(
	tx Transaction,
	feePayer common.Address,
	feeLocked common.Decimal,
) common.Decimal {
	if feeLocked.IsZero() {
		return common.ZeroDecimal
	}

	fee, err := s.transactionFee(tx)
	if err != nil {
		fee = feeLocked
	}
	if feeLocked.Lt(fee) {
		fee = feeLocked
	}

	v := s.vaultOf(feePayer, s.xrd)
	if v.amount.Lt(fee) {
		fee = v.amount
	}
	remaining, err := v.amount.Sub(fee)
	if err != nil {
		return common.ZeroDecimal
	}
	v.amount = remaining

	return fee
}

func authorized(signers []common.Address, account common.Address) bool {
	for _, signer := range signers {
		if signer == account {
			return true
		}
	}
	return false
}

func (s *Simulator) requireAuth(
	tx Transaction,
	account common.Address,
) error {
	if !s.IsAccount(account) {
		return errors.NewDefaultUserError(
			"no account at %s",
			account,
		)
	}
	if !authorized(tx.Signers, account) {
		return errors.NewDefaultUserError(
			"unauthorized: account %s is not a signer",
			account,
		)
	}
	return nil
}

func (s *Simulator) executeInstruction(
	tx Transaction,
	ctx *txContext,
	index int,
	instruction manifest.Instruction,
	feePayer *common.Address,
	feeLocked *common.Decimal,
) error {
	switch instruction := instruction.(type) {
	case *manifest.LockFee:
		if index != 0 {
			return errors.NewDefaultUserError(
				"fee must be locked by the first instruction",
			)
		}
		if err := s.requireAuth(tx, instruction.Payer); err != nil {
			return err
		}
		balance := s.BalanceOf(instruction.Payer, s.xrd)
		if balance.Lt(instruction.Amount) {
			return errors.NewDefaultUserError(
				"insufficient balance: %s holds %s of %s, needs %s to lock",
				instruction.Payer,
				balance,
				s.xrd,
				instruction.Amount,
			)
		}
		*feePayer = instruction.Payer
		*feeLocked = instruction.Amount
		return nil

	case *manifest.CallMethod:
		return s.executeCallMethod(tx, ctx, instruction)

	case *manifest.CallFunction:
		return s.executeCallFunction(ctx, instruction)

	case *manifest.Withdraw:
		if err := s.requireAuth(tx, instruction.Account); err != nil {
			return err
		}
		err := s.withdraw(
			instruction.Account,
			instruction.Resource,
			instruction.Amount,
		)
		if err != nil {
			return err
		}
		pool := ctx.worktopPool(instruction.Resource)
		amount, err := pool.amount.Add(instruction.Amount)
		if err != nil {
			return err
		}
		pool.amount = amount
		return nil

	case *manifest.WithdrawNonFungibles:
		if err := s.requireAuth(tx, instruction.Account); err != nil {
			return err
		}
		err := s.withdrawIDs(
			instruction.Account,
			instruction.Resource,
			instruction.IDs,
		)
		if err != nil {
			return err
		}
		pool := ctx.worktopPool(instruction.Resource)
		for _, id := range instruction.IDs {
			pool.ids[id] = struct{}{}
		}
		return nil

	case *manifest.TakeFromWorktop:
		pool := ctx.worktopPool(instruction.Resource)
		if pool.amount.Lt(instruction.Amount) {
			return errors.NewDefaultUserError(
				"worktop holds only %s of %s, needs %s",
				pool.amount,
				instruction.Resource,
				instruction.Amount,
			)
		}
		remaining, err := pool.amount.Sub(instruction.Amount)
		if err != nil {
			return err
		}
		pool.amount = remaining

		bucket := newBucketContent(instruction.Resource)
		bucket.amount = instruction.Amount
		ctx.buckets[instruction.Bucket] = bucket
		return nil

	case *manifest.TakeNonFungiblesFromWorktop:
		pool := ctx.worktopPool(instruction.Resource)
		bucket := newBucketContent(instruction.Resource)
		for _, id := range instruction.IDs {
			if _, ok := pool.ids[id]; !ok {
				return errors.NewDefaultUserError(
					"worktop does not hold %s of %s",
					id,
					instruction.Resource,
				)
			}
		}
		for _, id := range instruction.IDs {
			delete(pool.ids, id)
			bucket.ids[id] = struct{}{}
		}
		ctx.buckets[instruction.Bucket] = bucket
		return nil

	case *manifest.TakeAllFromWorktop:
		pool := ctx.worktopPool(instruction.Resource)
		bucket := newBucketContent(instruction.Resource)
		bucket.amount = pool.amount
		bucket.ids = pool.ids
		ctx.worktop[instruction.Resource] = newBucketContent(instruction.Resource)
		ctx.buckets[instruction.Bucket] = bucket
		return nil

	case *manifest.ReturnToWorktop:
		_, bucket, err := ctx.takeBucket(manifest.BucketValue(instruction.Bucket))
		if err != nil {
			return err
		}
		return ctx.worktopPool(bucket.resource).merge(bucket)

	case *manifest.CreateProofFromBucket:
		bucket, err := ctx.bucket(manifest.BucketValue(instruction.Bucket))
		if err != nil {
			return err
		}
		amount, err := bucket.total()
		if err != nil {
			return err
		}
		ids := make(map[common.NonFungibleID]struct{}, len(bucket.ids))
		for id := range bucket.ids {
			ids[id] = struct{}{}
		}
		ctx.proofs[instruction.Proof] = &proofRecord{
			resource: bucket.resource,
			amount:   amount,
			ids:      ids,
		}
		return nil

	case *manifest.CreateProofOfAmount:
		if err := s.requireAuth(tx, instruction.Account); err != nil {
			return err
		}
		balance := s.BalanceOf(instruction.Account, instruction.Resource)
		if balance.Lt(instruction.Amount) {
			return errors.NewDefaultUserError(
				"insufficient balance: %s holds %s of %s, cannot prove %s",
				instruction.Account,
				balance,
				instruction.Resource,
				instruction.Amount,
			)
		}
		ctx.authZone = append(ctx.authZone, &proofRecord{
			resource: instruction.Resource,
			amount:   instruction.Amount,
			ids:      map[common.NonFungibleID]struct{}{},
		})
		return nil

	case *manifest.CreateProofOfNonFungibles:
		if err := s.requireAuth(tx, instruction.Account); err != nil {
			return err
		}
		held := s.vaultOf(instruction.Account, instruction.Resource)
		ids := make(map[common.NonFungibleID]struct{}, len(instruction.IDs))
		for _, id := range instruction.IDs {
			if _, ok := held.ids[id]; !ok {
				return errors.NewDefaultUserError(
					"insufficient balance: %s does not hold %s of %s",
					instruction.Account,
					id,
					instruction.Resource,
				)
			}
			ids[id] = struct{}{}
		}
		amount, err := common.NewDecimalFromUint(uint64(len(ids)))
		if err != nil {
			return err
		}
		ctx.authZone = append(ctx.authZone, &proofRecord{
			resource: instruction.Resource,
			amount:   amount,
			ids:      ids,
		})
		return nil

	case *manifest.CreateProofFromAuthZoneOfAmount:
		for _, proof := range ctx.authZone {
			if proof.resource != instruction.Resource {
				continue
			}
			if proof.amount.Lt(instruction.Amount) {
				continue
			}
			ctx.proofs[instruction.Proof] = &proofRecord{
				resource: instruction.Resource,
				amount:   instruction.Amount,
				ids:      map[common.NonFungibleID]struct{}{},
			}
			return nil
		}
		return errors.NewDefaultUserError(
			"no proof of %s %s on the auth zone",
			instruction.Amount,
			instruction.Resource,
		)

	case *manifest.CreateProofFromAuthZoneOfNonFungibles:
		for _, proof := range ctx.authZone {
			if proof.resource != instruction.Resource {
				continue
			}
			if !containsAllIDs(proof.ids, instruction.IDs) {
				continue
			}
			ids := make(
				map[common.NonFungibleID]struct{},
				len(instruction.IDs),
			)
			for _, id := range instruction.IDs {
				ids[id] = struct{}{}
			}
			amount, err := common.NewDecimalFromUint(uint64(len(ids)))
			if err != nil {
				return err
			}
			ctx.proofs[instruction.Proof] = &proofRecord{
				resource: instruction.Resource,
				amount:   amount,
				ids:      ids,
			}
			return nil
		}
		return errors.NewDefaultUserError(
			"no matching non-fungible proof of %s on the auth zone",
			instruction.Resource,
		)

	case *manifest.DepositEntireWorktop:
		if !s.IsAccount(instruction.Account) {
			return errors.NewDefaultUserError(
				"no account at %s",
				instruction.Account,
			)
		}
		for resource, pool := range ctx.worktop {
			if pool.amount.IsZero() && len(pool.ids) == 0 {
				continue
			}
			err := s.deposit(instruction.Account, pool)
			if err != nil {
				return err
			}
			ctx.worktop[resource] = newBucketContent(resource)
		}
		return nil
	}

	panic(errors.NewUnreachableError())
}

func containsAllIDs(
	held map[common.NonFungibleID]struct{},
	wanted []common.NonFungibleID,
) bool {
	for _, id := range wanted {
		if _, ok := held[id]; !ok {
			return false
		}
	}
	return true
}

func (s *Simulator) executeCallMethod(
	tx Transaction,
	ctx *txContext,
	call *manifest.CallMethod,
) error {
	if s.IsAccount(call.Target) {
		return s.executeAccountMethod(ctx, call)
	}

	component, ok := s.components[call.Target]
	if !ok {
		return errors.NewDefaultUserError(
			"no component instance at %s",
			call.Target,
		)
	}

	pkg, ok := s.packages[component.pkg]
	if !ok {
		return errors.NewUnexpectedError(
			"no package at %s",
			component.pkg,
		)
	}

	blueprint, ok := pkg.Blueprints[component.blueprint]
	if !ok {
		return errors.NewUnexpectedError(
			"package %s has no blueprint %q",
			component.pkg,
			component.blueprint,
		)
	}

	method, ok := blueprint.Methods[call.Method]
	if !ok {
		return errors.NewDefaultUserError(
			"component %s has no method %q",
			call.Target,
			call.Method,
		)
	}

	callCtx := &CallContext{
		sim:       s,
		tx:        ctx,
		Self:      call.Target,
		Package:   component.pkg,
		Blueprint: component.blueprint,
	}
	return s.invoke(ctx, callCtx, method, call.Arguments)
}

func (s *Simulator) executeCallFunction(
	ctx *txContext,
	call *manifest.CallFunction,
) error {
	pkg, ok := s.packages[call.Package]
	if !ok {
		return errors.NewDefaultUserError(
			"no package at %s",
			call.Package,
		)
	}

	blueprint, ok := pkg.Blueprints[call.Blueprint]
	if !ok {
		return errors.NewDefaultUserError(
			"package %s has no blueprint %q",
			call.Package,
			call.Blueprint,
		)
	}

	function, ok := blueprint.Functions[call.Function]
	if !ok {
		return errors.NewDefaultUserError(
			"blueprint %q has no function %q",
			call.Blueprint,
			call.Function,
		)
	}

	callCtx := &CallContext{
		sim:       s,
		tx:        ctx,
		Package:   call.Package,
		Blueprint: call.Blueprint,
	}
	return s.invoke(ctx, callCtx, function, call.Arguments)
}

// invoke runs a native function, then routes returned buckets onto the
// worktop and returns any unconsumed argument buckets to the worktop.
func (s *Simulator) invoke(
	ctx *txContext,
	callCtx *CallContext,
	fn NativeFunc,
	arguments []manifest.Value,
) error {
	returns, err := fn(callCtx, arguments)
	if err != nil {
		return err
	}

	for _, value := range returns {
		err = ctx.routeToWorktop(value)
		if err != nil {
			return err
		}
	}

	for _, value := range arguments {
		err = ctx.routeToWorktop(value)
		if err != nil {
			return err
		}
	}

	ctx.returns = returns
	return nil
}

// routeToWorktop moves a live bucket's content onto the worktop.
// Consumed buckets and non-bucket values are left alone.
func (tx *txContext) routeToWorktop(value manifest.Value) error {
	switch value := value.(type) {
	case manifest.BucketValue:
		bucket, ok := tx.buckets[manifest.BucketID(value)]
		if !ok {
			return nil
		}
		delete(tx.buckets, manifest.BucketID(value))
		return tx.worktopPool(bucket.resource).merge(bucket)

	case manifest.ArrayValue:
		for _, element := range value {
			err := tx.routeToWorktop(element)
			if err != nil {
				return err
			}
		}
		return nil

	case manifest.SomeValue:
		return tx.routeToWorktop(value.Value)

	default:
		return nil
	}
}

func (s *Simulator) executeAccountMethod(
	ctx *txContext,
	call *manifest.CallMethod,
) error {
	switch call.Method {
	case "deposit", "try_deposit_or_abort":
		if len(call.Arguments) != 1 {
			return errors.NewDefaultUserError(
				"%q expects one bucket argument",
				call.Method,
			)
		}
		_, bucket, err := ctx.takeBucket(call.Arguments[0])
		if err != nil {
			return err
		}
		ctx.returns = nil
		return s.deposit(call.Target, bucket)

	case "deposit_batch":
		if len(call.Arguments) != 1 {
			return errors.NewDefaultUserError(
				"%q expects one array argument",
				call.Method,
			)
		}
		buckets, ok := call.Arguments[0].(manifest.ArrayValue)
		if !ok {
			return errors.NewDefaultUserError(
				"%q expects one array argument",
				call.Method,
			)
		}
		for _, value := range buckets {
			_, bucket, err := ctx.takeBucket(value)
			if err != nil {
				return err
			}
			err = s.deposit(call.Target, bucket)
			if err != nil {
				return err
			}
		}
		ctx.returns = nil
		return nil

	case "balance":
		if len(call.Arguments) != 1 {
			return errors.NewDefaultUserError(
				"%q expects one resource address argument",
				call.Method,
			)
		}
		resource, ok := call.Arguments[0].(manifest.AddressValue)
		if !ok {
			return errors.NewDefaultUserError(
				"%q expects one resource address argument",
				call.Method,
			)
		}
		balance := s.BalanceOf(call.Target, common.Address(resource))
		ctx.returns = []manifest.Value{manifest.DecimalValue(balance)}
		return nil

	default:
		return errors.NewDefaultUserError(
			"account %s has no method %q",
			call.Target,
			call.Method,
		)
	}
}
