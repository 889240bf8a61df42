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
	"github.com/atomledger/testengine/errors"
)

// EntityKind is the kind of a ledger entity.
type EntityKind uint8

const (
	EntityKindUnknown EntityKind = iota
	EntityKindAccount
	EntityKindPackage
	EntityKindComponent
	EntityKindResource
)

// AllEntityKinds lists the kinds in reference-resolution priority order:
// a bare name is tried as an account first, then as a component,
// then as a package, and finally as a resource.
var AllEntityKinds = []EntityKind{
	EntityKindAccount,
	EntityKindComponent,
	EntityKindPackage,
	EntityKindResource,
}

func (k EntityKind) Name() string {
	switch k {
	case EntityKindAccount:
		return "account"
	case EntityKindPackage:
		return "package"
	case EntityKindComponent:
		return "component"
	case EntityKindResource:
		return "resource"
	}

	panic(errors.NewUnreachableError())
}

func (k EntityKind) String() string {
	return k.Name()
}
