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

// BucketID is the transaction-scoped handle of a bucket.
type BucketID uint32

// ProofID is the transaction-scoped handle of a proof.
type ProofID uint32

// An Instruction is a single step of a ledger transaction.
// Instructions execute strictly in sequence;
// worktop and auth-zone state is order-dependent.
type Instruction interface {
	isInstruction()
}

// LockFee locks a fee budget against the payer's ledger vault.
// It must be the first instruction of a transaction.
type LockFee struct {
	Payer  common.Address
	Amount common.Decimal
}

func (*LockFee) isInstruction() {}

// CallMethod invokes a method on a component or account.
type CallMethod struct {
	Target    common.Address
	Method    string
	Arguments []Value
}

func (*CallMethod) isInstruction() {}

// CallFunction invokes a function of a blueprint in a package,
// typically a component constructor.
type CallFunction struct {
	Package   common.Address
	Blueprint string
	Function  string
	Arguments []Value
}

func (*CallFunction) isInstruction() {}

// Withdraw moves a fungible amount from an account vault onto the worktop.
type Withdraw struct {
	Account  common.Address
	Resource common.Address
	Amount   common.Decimal
}

func (*Withdraw) isInstruction() {}

// WithdrawNonFungibles moves non-fungible units
// from an account vault onto the worktop.
type WithdrawNonFungibles struct {
	Account  common.Address
	Resource common.Address
	IDs      []common.NonFungibleID
}

func (*WithdrawNonFungibles) isInstruction() {}

// TakeFromWorktop takes a fungible amount off the worktop into a new bucket.
type TakeFromWorktop struct {
	Resource common.Address
	Amount   common.Decimal
	Bucket   BucketID
}

func (*TakeFromWorktop) isInstruction() {}

// TakeNonFungiblesFromWorktop takes non-fungible units off the worktop
// into a new bucket.
type TakeNonFungiblesFromWorktop struct {
	Resource common.Address
	IDs      []common.NonFungibleID
	Bucket   BucketID
}

func (*TakeNonFungiblesFromWorktop) isInstruction() {}

// TakeAllFromWorktop takes the worktop's entire holding of a resource
// into a new bucket.
type TakeAllFromWorktop struct {
	Resource common.Address
	Bucket   BucketID
}

func (*TakeAllFromWorktop) isInstruction() {}

// ReturnToWorktop puts a bucket's contents back onto the worktop.
type ReturnToWorktop struct {
	Bucket BucketID
}

func (*ReturnToWorktop) isInstruction() {}

// CreateProofFromBucket creates a non-owning proof
// of a bucket's current contents.
type CreateProofFromBucket struct {
	Bucket BucketID
	Proof  ProofID
}

func (*CreateProofFromBucket) isInstruction() {}

// CreateProofOfAmount creates a proof of a fungible amount
// held by an account vault and pushes it onto the auth zone.
type CreateProofOfAmount struct {
	Account  common.Address
	Resource common.Address
	Amount   common.Decimal
}

func (*CreateProofOfAmount) isInstruction() {}

// CreateProofOfNonFungibles creates a proof of non-fungible units
// held by an account vault and pushes it onto the auth zone.
type CreateProofOfNonFungibles struct {
	Account  common.Address
	Resource common.Address
	IDs      []common.NonFungibleID
}

func (*CreateProofOfNonFungibles) isInstruction() {}

// CreateProofFromAuthZoneOfAmount creates a proof handle
// from a matching proof already on the auth zone.
type CreateProofFromAuthZoneOfAmount struct {
	Resource common.Address
	Amount   common.Decimal
	Proof    ProofID
}

func (*CreateProofFromAuthZoneOfAmount) isInstruction() {}

// CreateProofFromAuthZoneOfNonFungibles creates a proof handle
// from a matching proof already on the auth zone.
type CreateProofFromAuthZoneOfNonFungibles struct {
	Resource common.Address
	IDs      []common.NonFungibleID
	Proof    ProofID
}

func (*CreateProofFromAuthZoneOfNonFungibles) isInstruction() {}

// DepositEntireWorktop deposits all remaining worktop contents
// into an account. It is the final instruction of a transaction.
type DepositEntireWorktop struct {
	Account common.Address
}

func (*DepositEntireWorktop) isInstruction() {}
