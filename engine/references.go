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
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/atomledger/testengine/common"
	"github.com/atomledger/testengine/errors"
)

// NormalizeName maps a reference name to its canonical key:
// lowercase, with spaces and underscores removed.
// "Gumball Machine", "gumball_machine", and "gumballmachine"
// all denote the same entity.
func NormalizeName(name string) string {
	var sb strings.Builder
	sb.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		if r == ' ' || r == '_' {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// UnknownReferenceError is reported when a name resolves to nothing.
type UnknownReferenceError struct {
	Kind common.EntityKind
	Name string
}

var _ errors.UserError = UnknownReferenceError{}

func (e UnknownReferenceError) Error() string {
	if e.Kind == common.EntityKindUnknown {
		return fmt.Sprintf("no entity registered under name %q", e.Name)
	}
	return fmt.Sprintf(
		"no %s registered under name %q",
		e.Kind.Name(),
		e.Name,
	)
}

func (e UnknownReferenceError) IsUserError() {}

// DuplicateReferenceError is reported when a name is explicitly
// registered twice for the same entity kind.
type DuplicateReferenceError struct {
	Kind common.EntityKind
	Name string
}

var _ errors.UserError = DuplicateReferenceError{}

func (e DuplicateReferenceError) Error() string {
	return fmt.Sprintf(
		"a %s is already registered under name %q",
		e.Kind.Name(),
		e.Name,
	)
}

func (e DuplicateReferenceError) IsUserError() {}

type binding struct {
	address common.Address
	// explicit bindings are made through the registration API;
	// the rest come from entity metadata.
	explicit bool
}

// registry maps normalized reference names to entity addresses,
// per entity kind.
type registry struct {
	log      zerolog.Logger
	bindings map[common.EntityKind]map[string]binding
}

func newRegistry(log zerolog.Logger) *registry {
	bindings := map[common.EntityKind]map[string]binding{}
	for _, kind := range common.AllEntityKinds {
		bindings[kind] = map[string]binding{}
	}
	return &registry{
		log:      log,
		bindings: bindings,
	}
}

// register creates an explicit binding. An explicit binding silently
// replaces a metadata binding of the same key, but clashing with another
// explicit binding is an error.
func (r *registry) register(
	kind common.EntityKind,
	name string,
	address common.Address,
) error {
	key := NormalizeName(name)
	existing, ok := r.bindings[kind][key]
	if ok && existing.explicit {
		return DuplicateReferenceError{
			Kind: kind,
			Name: name,
		}
	}
	r.bindings[kind][key] = binding{
		address:  address,
		explicit: true,
	}
	return nil
}

// autoRegister creates a metadata binding. Explicit bindings always win,
// and among metadata bindings the first one wins.
func (r *registry) autoRegister(
	kind common.EntityKind,
	name string,
	address common.Address,
) {
	key := NormalizeName(name)
	if key == "" {
		return
	}
	if _, ok := r.bindings[kind][key]; ok {
		r.log.Debug().
			Str("kind", kind.Name()).
			Str("name", name).
			Str("address", address.Hex()).
			Msg("metadata name already bound, keeping existing binding")
		return
	}
	r.bindings[kind][key] = binding{address: address}
}

func (r *registry) resolve(
	kind common.EntityKind,
	name string,
) (common.Address, error) {
	key := NormalizeName(name)
	b, ok := r.bindings[kind][key]
	if !ok {
		return common.ZeroAddress, UnknownReferenceError{
			Kind: kind,
			Name: name,
		}
	}
	return b.address, nil
}

// resolveAny looks the name up across all entity kinds,
// in resolution priority order.
func (r *registry) resolveAny(name string) (common.Address, error) {
	key := NormalizeName(name)
	for _, kind := range common.AllEntityKinds {
		if b, ok := r.bindings[kind][key]; ok {
			return b.address, nil
		}
	}
	return common.ZeroAddress, UnknownReferenceError{
		Kind: common.EntityKindUnknown,
		Name: name,
	}
}
