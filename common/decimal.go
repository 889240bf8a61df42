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

package common

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	fix "github.com/onflow/fixed-point"

	"github.com/atomledger/testengine/errors"
)

// DecimalScale is the number of fractional decimal digits of a Decimal.
const DecimalScale = 8

const decimalFactor = 100_000_000

// Decimal is an unsigned fixed-point amount with DecimalScale fractional
// digits. Amounts are non-negative by construction.
type Decimal fix.UFix64

var ZeroDecimal = Decimal(fix.UFix64Zero)

// InvalidDecimalError is reported when a decimal literal cannot be parsed
// or is not representable.
type InvalidDecimalError struct {
	Literal string
	Reason  string
}

var _ errors.UserError = InvalidDecimalError{}

func (e InvalidDecimalError) Error() string {
	return fmt.Sprintf("invalid decimal literal %q: %s", e.Literal, e.Reason)
}

func (e InvalidDecimalError) IsUserError() {}

// NewDecimal parses a decimal literal, e.g. "10", "0.5", or "123.45".
// Negative literals and literals with more than DecimalScale fractional
// digits are rejected.
func NewDecimal(s string) (Decimal, error) {
	literal := s

	if strings.HasPrefix(s, "-") {
		return ZeroDecimal, InvalidDecimalError{
			Literal: literal,
			Reason:  "amounts must be non-negative",
		}
	}

	integerPart := s
	fractionalPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		integerPart = s[:i]
		fractionalPart = s[i+1:]
	}

	if integerPart == "" {
		return ZeroDecimal, InvalidDecimalError{
			Literal: literal,
			Reason:  "missing integer part",
		}
	}

	if len(fractionalPart) > DecimalScale {
		return ZeroDecimal, InvalidDecimalError{
			Literal: literal,
			Reason: fmt.Sprintf(
				"more than %d fractional digits",
				DecimalScale,
			),
		}
	}

	integer, err := strconv.ParseUint(integerPart, 10, 64)
	if err != nil {
		return ZeroDecimal, InvalidDecimalError{
			Literal: literal,
			Reason:  "invalid integer part",
		}
	}

	var fraction uint64
	if fractionalPart != "" {
		fraction, err = strconv.ParseUint(fractionalPart, 10, 64)
		if err != nil {
			return ZeroDecimal, InvalidDecimalError{
				Literal: literal,
				Reason:  "invalid fractional part",
			}
		}
		for i := len(fractionalPart); i < DecimalScale; i++ {
			fraction *= 10
		}
	}

	if integer > (math.MaxUint64-fraction)/decimalFactor {
		return ZeroDecimal, InvalidDecimalError{
			Literal: literal,
			Reason:  "out of range",
		}
	}

	return Decimal(fix.UFix64(integer*decimalFactor + fraction)), nil
}

// MustDecimal is like NewDecimal but panics on invalid literals.
// It is intended for constants in tests.
func MustDecimal(s string) Decimal {
	d, err := NewDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

// NewDecimalFromUint returns the decimal representing the given whole amount.
func NewDecimalFromUint(i uint64) (Decimal, error) {
	if i > math.MaxUint64/decimalFactor {
		return ZeroDecimal, InvalidDecimalError{
			Literal: strconv.FormatUint(i, 10),
			Reason:  "out of range",
		}
	}
	return Decimal(fix.UFix64(i * decimalFactor)), nil
}

// DecimalFromRaw returns the decimal with the given raw fixed-point
// representation, i.e. the amount raw / 10^DecimalScale.
func DecimalFromRaw(raw uint64) Decimal {
	return Decimal(fix.UFix64(raw))
}

func (d Decimal) Raw() uint64 {
	return uint64(d)
}

func (d Decimal) Add(o Decimal) (Decimal, error) {
	result, err := fix.UFix64(d).Add(fix.UFix64(o))
	if err != nil {
		return ZeroDecimal, err
	}
	return Decimal(result), nil
}

func (d Decimal) Sub(o Decimal) (Decimal, error) {
	result, err := fix.UFix64(d).Sub(fix.UFix64(o))
	if err != nil {
		return ZeroDecimal, err
	}
	return Decimal(result), nil
}

func (d Decimal) Mul(o Decimal) (Decimal, error) {
	result, err := fix.UFix64(d).Mul(fix.UFix64(o), fix.RoundTruncate)
	if err != nil {
		return ZeroDecimal, err
	}
	return Decimal(result), nil
}

func (d Decimal) Div(o Decimal) (Decimal, error) {
	result, err := fix.UFix64(d).Div(fix.UFix64(o), fix.RoundTruncate)
	if err != nil {
		return ZeroDecimal, err
	}
	return Decimal(result), nil
}

func (d Decimal) Lt(o Decimal) bool {
	return fix.UFix64(d).Lt(fix.UFix64(o))
}

func (d Decimal) Lte(o Decimal) bool {
	return fix.UFix64(d).Lte(fix.UFix64(o))
}

func (d Decimal) Gt(o Decimal) bool {
	return fix.UFix64(d).Gt(fix.UFix64(o))
}

func (d Decimal) Gte(o Decimal) bool {
	return fix.UFix64(d).Gte(fix.UFix64(o))
}

func (d Decimal) IsZero() bool {
	return uint64(d) == 0
}

func (d Decimal) String() string {
	integer := uint64(d) / decimalFactor
	fraction := uint64(d) % decimalFactor

	if fraction == 0 {
		return strconv.FormatUint(integer, 10)
	}

	fractional := fmt.Sprintf("%0*d", DecimalScale, fraction)
	fractional = strings.TrimRight(fractional, "0")

	return fmt.Sprintf("%d.%s", integer, fractional)
}
