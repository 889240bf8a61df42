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
)

// Builder accumulates the ordered instruction sequence of one transaction
// and hands out fresh bucket and proof handles.
//
// Handles are never reused within a transaction: every take or proof
// instruction gets its own.
type Builder struct {
	instructions []Instruction
	nextBucket   BucketID
	nextProof    ProofID
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Add appends an instruction.
func (b *Builder) Add(instruction Instruction) {
	b.instructions = append(b.instructions, instruction)
}

// Prepend inserts an instruction at the front of the sequence.
func (b *Builder) Prepend(instruction Instruction) {
	b.instructions = append(
		[]Instruction{instruction},
		b.instructions...,
	)
}

// NewBucket allocates a fresh bucket handle.
func (b *Builder) NewBucket() BucketID {
	id := b.nextBucket
	b.nextBucket++
	return id
}

// NewProof allocates a fresh proof handle.
func (b *Builder) NewProof() ProofID {
	id := b.nextProof
	b.nextProof++
	return id
}

// Instructions returns the accumulated sequence.
func (b *Builder) Instructions() []Instruction {
	return b.instructions
}

// Withdraw appends a fungible withdrawal from an account vault.
func (b *Builder) Withdraw(
	account common.Address,
	resource common.Address,
	amount common.Decimal,
) {
	b.Add(&Withdraw{
		Account:  account,
		Resource: resource,
		Amount:   amount,
	})
}

// WithdrawNonFungibles appends a non-fungible withdrawal
// from an account vault.
func (b *Builder) WithdrawNonFungibles(
	account common.Address,
	resource common.Address,
	ids []common.NonFungibleID,
) {
	b.Add(&WithdrawNonFungibles{
		Account:  account,
		Resource: resource,
		IDs:      ids,
	})
}

// TakeFromWorktop appends a worktop take and returns the new bucket handle.
func (b *Builder) TakeFromWorktop(
	resource common.Address,
	amount common.Decimal,
) BucketID {
	bucket := b.NewBucket()
	b.Add(&TakeFromWorktop{
		Resource: resource,
		Amount:   amount,
		Bucket:   bucket,
	})
	return bucket
}

// TakeNonFungiblesFromWorktop appends a non-fungible worktop take
// and returns the new bucket handle.
func (b *Builder) TakeNonFungiblesFromWorktop(
	resource common.Address,
	ids []common.NonFungibleID,
) BucketID {
	bucket := b.NewBucket()
	b.Add(&TakeNonFungiblesFromWorktop{
		Resource: resource,
		IDs:      ids,
		Bucket:   bucket,
	})
	return bucket
}

// TakeAllFromWorktop appends a whole-holding worktop take
// and returns the new bucket handle.
func (b *Builder) TakeAllFromWorktop(
	resource common.Address,
) BucketID {
	bucket := b.NewBucket()
	b.Add(&TakeAllFromWorktop{
		Resource: resource,
		Bucket:   bucket,
	})
	return bucket
}

// CreateProofFromBucket appends a proof creation over a bucket
// and returns the new proof handle.
func (b *Builder) CreateProofFromBucket(bucket BucketID) ProofID {
	proof := b.NewProof()
	b.Add(&CreateProofFromBucket{
		Bucket: bucket,
		Proof:  proof,
	})
	return proof
}

// CreateProofFromAuthZoneOfAmount appends a proof creation
// from the auth zone and returns the new proof handle.
func (b *Builder) CreateProofFromAuthZoneOfAmount(
	resource common.Address,
	amount common.Decimal,
) ProofID {
	proof := b.NewProof()
	b.Add(&CreateProofFromAuthZoneOfAmount{
		Resource: resource,
		Amount:   amount,
		Proof:    proof,
	})
	return proof
}

// CreateProofFromAuthZoneOfNonFungibles appends a proof creation
// from the auth zone and returns the new proof handle.
func (b *Builder) CreateProofFromAuthZoneOfNonFungibles(
	resource common.Address,
	ids []common.NonFungibleID,
) ProofID {
	proof := b.NewProof()
	b.Add(&CreateProofFromAuthZoneOfNonFungibles{
		Resource: resource,
		IDs:      ids,
		Proof:    proof,
	})
	return proof
}
