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
	"fmt"
	"strings"

	"github.com/atomledger/testengine/common"
	"github.com/atomledger/testengine/errors"
)

// Serialize renders the instruction sequence in the textual manifest form,
// one terminated statement per instruction. The rendering is intended for
// inspection and for dumping transactions to disk.
func Serialize(instructions []Instruction) string {
	var sb strings.Builder
	for _, instruction := range instructions {
		sb.WriteString(serializeInstruction(instruction))
		sb.WriteString(";\n")
	}
	return sb.String()
}

func serializeInstruction(instruction Instruction) string {
	switch instruction := instruction.(type) {
	case *LockFee:
		return fmt.Sprintf(
			"LOCK_FEE Address(%q) Decimal(%q)",
			instruction.Payer,
			instruction.Amount,
		)

	case *CallMethod:
		return fmt.Sprintf(
			"CALL_METHOD Address(%q) %q%s",
			instruction.Target,
			instruction.Method,
			serializeArguments(instruction.Arguments),
		)

	case *CallFunction:
		return fmt.Sprintf(
			"CALL_FUNCTION Address(%q) %q %q%s",
			instruction.Package,
			instruction.Blueprint,
			instruction.Function,
			serializeArguments(instruction.Arguments),
		)

	case *Withdraw:
		return fmt.Sprintf(
			"WITHDRAW Address(%q) Address(%q) Decimal(%q)",
			instruction.Account,
			instruction.Resource,
			instruction.Amount,
		)

	case *WithdrawNonFungibles:
		return fmt.Sprintf(
			"WITHDRAW_NON_FUNGIBLES Address(%q) Address(%q) %s",
			instruction.Account,
			instruction.Resource,
			serializeIDs(instruction.IDs),
		)

	case *TakeFromWorktop:
		return fmt.Sprintf(
			"TAKE_FROM_WORKTOP Address(%q) Decimal(%q) Bucket(%d)",
			instruction.Resource,
			instruction.Amount,
			instruction.Bucket,
		)

	case *TakeNonFungiblesFromWorktop:
		return fmt.Sprintf(
			"TAKE_NON_FUNGIBLES_FROM_WORKTOP Address(%q) %s Bucket(%d)",
			instruction.Resource,
			serializeIDs(instruction.IDs),
			instruction.Bucket,
		)

	case *TakeAllFromWorktop:
		return fmt.Sprintf(
			"TAKE_ALL_FROM_WORKTOP Address(%q) Bucket(%d)",
			instruction.Resource,
			instruction.Bucket,
		)

	case *ReturnToWorktop:
		return fmt.Sprintf(
			"RETURN_TO_WORKTOP Bucket(%d)",
			instruction.Bucket,
		)

	case *CreateProofFromBucket:
		return fmt.Sprintf(
			"CREATE_PROOF_FROM_BUCKET Bucket(%d) Proof(%d)",
			instruction.Bucket,
			instruction.Proof,
		)

	case *CreateProofOfAmount:
		return fmt.Sprintf(
			"CREATE_PROOF_OF_AMOUNT Address(%q) Address(%q) Decimal(%q)",
			instruction.Account,
			instruction.Resource,
			instruction.Amount,
		)

	case *CreateProofOfNonFungibles:
		return fmt.Sprintf(
			"CREATE_PROOF_OF_NON_FUNGIBLES Address(%q) Address(%q) %s",
			instruction.Account,
			instruction.Resource,
			serializeIDs(instruction.IDs),
		)

	case *CreateProofFromAuthZoneOfAmount:
		return fmt.Sprintf(
			"CREATE_PROOF_FROM_AUTH_ZONE_OF_AMOUNT Address(%q) Decimal(%q) Proof(%d)",
			instruction.Resource,
			instruction.Amount,
			instruction.Proof,
		)

	case *CreateProofFromAuthZoneOfNonFungibles:
		return fmt.Sprintf(
			"CREATE_PROOF_FROM_AUTH_ZONE_OF_NON_FUNGIBLES Address(%q) %s Proof(%d)",
			instruction.Resource,
			serializeIDs(instruction.IDs),
			instruction.Proof,
		)

	case *DepositEntireWorktop:
		return fmt.Sprintf(
			"DEPOSIT_ENTIRE_WORKTOP Address(%q)",
			instruction.Account,
		)
	}

	panic(errors.NewUnreachableError())
}

func serializeArguments(arguments []Value) string {
	var sb strings.Builder
	for _, argument := range arguments {
		sb.WriteByte(' ')
		sb.WriteString(serializeValue(argument))
	}
	return sb.String()
}

func serializeValue(value Value) string {
	switch value := value.(type) {
	case Bool:
		return fmt.Sprintf("Bool(%t)", bool(value))
	case Int:
		return fmt.Sprintf("Int(%d)", int64(value))
	case UInt:
		return fmt.Sprintf("UInt(%d)", uint64(value))
	case String:
		return fmt.Sprintf("String(%q)", string(value))
	case Bytes:
		return fmt.Sprintf("Bytes(\"%x\")", []byte(value))
	case AddressValue:
		return fmt.Sprintf("Address(%q)", common.Address(value))
	case DecimalValue:
		return fmt.Sprintf("Decimal(%q)", common.Decimal(value))
	case IDValue:
		return fmt.Sprintf("NonFungibleID(%q)", value.ID)
	case BucketValue:
		return fmt.Sprintf("Bucket(%d)", uint32(value))
	case ProofValue:
		return fmt.Sprintf("Proof(%d)", uint32(value))
	case ArrayValue:
		elements := make([]string, len(value))
		for i, element := range value {
			elements[i] = serializeValue(element)
		}
		return fmt.Sprintf("Array(%s)", strings.Join(elements, ", "))
	case SomeValue:
		return fmt.Sprintf("Some(%s)", serializeValue(value.Value))
	case NilValue:
		return "None"
	case RawValue:
		return fmt.Sprintf("Raw(\"%x\")", []byte(value))
	}

	panic(errors.NewUnreachableError())
}

func serializeIDs(ids []common.NonFungibleID) string {
	elements := make([]string, len(ids))
	for i, id := range ids {
		elements[i] = fmt.Sprintf("NonFungibleID(%q)", id)
	}
	return fmt.Sprintf("Array(%s)", strings.Join(elements, ", "))
}
