// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package symbol

import (
	"fmt"
	"strings"

	"fortio.org/safecast"
	"github.com/consensys/go-irlink/pkg/ir"
)

// ScopeID identifies a scope within the scope arena of a scoped table.
type ScopeID uint32

// scope is a node in the parent-linked tree of scopes.  Scopes refer to their
// parent by identifier rather than by reference.
type scope struct {
	store
	// Declaration whose body introduced this scope.
	owner ir.DeclID
	// Enclosing scope (only meaningful when hasParent holds).
	parent    ScopeID
	hasParent bool
	// Symbols allocated in this scope, in order.  These must all be bound by
	// the time the scope is left.
	allocated []*ir.Symbol
}

// ScopedTable interns the symbols of local declarations (type parameters,
// value parameters and variables), which are only visible within the body of
// the declaration introducing them.  Lookup walks outwards through enclosing
// scopes.
type ScopedTable struct {
	skeleton
	// Arena of live scopes.  Since scopes are strictly nested, the innermost
	// scope is always the last.
	scopes []scope
}

func newScopedTable(kind ir.Kind, arena *ir.Arena, policy *keyPolicy) *ScopedTable {
	return &ScopedTable{skeleton{kind, arena, policy}, nil}
}

// Kind returns the kind of declaration interned by this table.
func (p *ScopedTable) Kind() ir.Kind {
	return p.kind
}

// Depth returns the number of scopes currently entered.
func (p *ScopedTable) Depth() uint {
	return uint(len(p.scopes))
}

// EnterScope pushes a new scope for the body of a given declaration.
func (p *ScopedTable) EnterScope(owner ir.DeclID) ScopeID {
	id, err := safecast.Conv[uint32](len(p.scopes))
	if err != nil {
		panic(fmt.Errorf("scope arena overflow: %w", err))
	}
	//
	s := scope{store: newStore(), owner: owner}
	//
	if id > 0 {
		s.parent, s.hasParent = ScopeID(id-1), true
	}
	//
	p.scopes = append(p.scopes, s)
	//
	return ScopeID(id)
}

// LeaveScope pops the innermost scope, which must have been entered for the
// given owner.  Every symbol allocated within that scope must be bound by now:
// an unbound symbol means a reference escaped without ever being declared.
func (p *ScopedTable) LeaveScope(owner ir.DeclID) {
	n := len(p.scopes)
	//
	if n == 0 {
		panic(ir.Inconsistent("leaving %s scope of #%d, but no scope entered", p.kind, owner))
	} else if p.scopes[n-1].owner != owner {
		panic(ir.Inconsistent("leaving %s scope of #%d, but innermost scope belongs to #%d", p.kind, owner,
			p.scopes[n-1].owner))
	}
	//
	var leaked []string
	//
	for _, symbol := range p.scopes[n-1].allocated {
		if !symbol.IsBound() {
			leaked = append(leaked, symbol.String())
		}
	}
	//
	if len(leaked) > 0 {
		panic(ir.Inconsistent("%s scope of #%d left with unbound symbols: %s", p.kind, owner,
			strings.Join(leaked, ", ")))
	}
	//
	p.scopes = p.scopes[:n-1]
}

// DiscardScope pops every scope up to and including the innermost one entered
// for the given owner, without checking for unbound symbols.  This is for
// abandoning a body part way through, and does nothing if no such scope is
// live.
func (p *ScopedTable) DiscardScope(owner ir.DeclID) {
	for i := len(p.scopes) - 1; i >= 0; i-- {
		if p.scopes[i].owner == owner {
			p.scopes = p.scopes[:i]
			return
		}
	}
}

// Declare a local declaration in the innermost scope.  As for flat tables,
// declaring the same declaration twice yields the same owner.
func (p *ScopedTable) Declare(id ir.DeclID, create Factory, materialize Materializer) ir.DeclID {
	return p.declare(p.policy.keyOf(id), id, create, materialize)
}

// DeclareKey declares a local declaration under an explicit structural key.
func (p *ScopedTable) DeclareKey(key ir.Key, origin ir.DeclID, create Factory, materialize Materializer) ir.DeclID {
	return p.declare(structural(key), origin, create, materialize)
}

// DeclareFromExternalId declares a local declaration keyed by a signature.
// Only type parameters of exported declarations are keyed this way.
func (p *ScopedTable) DeclareFromExternalId(sig ir.Signature, origin ir.DeclID, create Factory,
	materialize Materializer) ir.DeclID {
	return p.declare(public(sig), origin, create, materialize)
}

func (p *ScopedTable) declare(k lookupKey, origin ir.DeclID, create Factory, materialize Materializer) ir.DeclID {
	current := p.current()
	// Only the innermost scope is considered, so shadowing is permitted.
	symbol, ok := current.get(k)
	//
	if !ok {
		symbol = p.allocate(k, create)
		current.put(k, symbol)
		current.allocated = append(current.allocated, symbol)
	}
	//
	p.checkOrigin(&current.store, k, symbol, origin)
	//
	return p.materialize(symbol, materialize)
}

// Reference returns the symbol for a given local declaration, searching from
// the innermost scope outwards.  If none is found, an unbound symbol is
// allocated in the innermost scope.
func (p *ScopedTable) Reference(id ir.DeclID, create Factory) *ir.Symbol {
	return p.reference(p.policy.keyOf(id), create)
}

// ReferenceKey returns the symbol for a given structural key, searching from
// the innermost scope outwards.
func (p *ScopedTable) ReferenceKey(key ir.Key, create Factory) *ir.Symbol {
	return p.reference(structural(key), create)
}

// ReferenceSignature returns the symbol for a given signature, searching from
// the innermost scope outwards.
func (p *ScopedTable) ReferenceSignature(sig ir.Signature, create Factory) *ir.Symbol {
	return p.reference(public(sig), create)
}

func (p *ScopedTable) reference(k lookupKey, create Factory) *ir.Symbol {
	if symbol, ok := p.lookup(k); ok {
		return symbol
	}
	//
	current := p.current()
	symbol := p.allocate(k, create)
	current.put(k, symbol)
	current.allocated = append(current.allocated, symbol)
	//
	return symbol
}

// Lookup returns the symbol of a given local declaration, if it is visible from
// the innermost scope.  A miss is not an error.
func (p *ScopedTable) Lookup(id ir.DeclID) (*ir.Symbol, bool) {
	return p.lookup(p.policy.keyOf(id))
}

// LookupKey returns the symbol for a given structural key, if visible.
func (p *ScopedTable) LookupKey(key ir.Key) (*ir.Symbol, bool) {
	return p.lookup(structural(key))
}

// LookupSignature returns the symbol for a given signature, if visible.
func (p *ScopedTable) LookupSignature(sig ir.Signature) (*ir.Symbol, bool) {
	return p.lookup(public(sig))
}

func (p *ScopedTable) lookup(k lookupKey) (*ir.Symbol, bool) {
	if len(p.scopes) == 0 {
		return nil, false
	}
	//
	for id := ScopeID(len(p.scopes) - 1); ; id = p.scopes[id].parent {
		if symbol, ok := p.scopes[id].get(k); ok {
			return symbol, true
		} else if !p.scopes[id].hasParent {
			return nil, false
		}
	}
}

func (p *ScopedTable) current() *scope {
	if len(p.scopes) == 0 {
		panic(ir.Inconsistent("no %s scope entered", p.kind))
	}
	//
	return &p.scopes[len(p.scopes)-1]
}
