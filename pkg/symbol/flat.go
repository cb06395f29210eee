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
	"sort"

	"github.com/consensys/go-irlink/pkg/ir"
	"github.com/consensys/go-irlink/pkg/util"
)

// FlatTable interns the symbols of one kind of module-level declaration (e.g.
// classes, or functions).  Each declaration is given exactly one symbol,
// however many times it is declared or referenced.
type FlatTable struct {
	skeleton
	store
	// Symbols referenced but not (yet) declared, in order of first reference.
	unbound *util.OrderedSet[*ir.Symbol]
}

func newFlatTable(kind ir.Kind, arena *ir.Arena, policy *keyPolicy) *FlatTable {
	return &FlatTable{skeleton{kind, arena, policy}, newStore(), util.NewOrderedSet[*ir.Symbol]()}
}

// Kind returns the kind of declaration interned by this table.
func (p *FlatTable) Kind() ir.Kind {
	return p.kind
}

// Declare a given declaration.  If a symbol already exists for its key, that
// symbol's owner is returned (materializing it first if necessary).
// Otherwise, a fresh symbol is allocated and bound to the materialized owner.
// Declaring the same declaration twice yields the same owner.
func (p *FlatTable) Declare(id ir.DeclID, create Factory, materialize Materializer) ir.DeclID {
	return p.declare(p.policy.keyOf(id), id, create, materialize)
}

// DeclareFromExternalId declares a declaration keyed by a given signature,
// rather than by the signature computed from the declaration itself.  This is
// used when reconstructing a declaration previously referenced from
// elsewhere.  The origin may be NoDecl if no in-memory declaration exists yet.
func (p *FlatTable) DeclareFromExternalId(sig ir.Signature, origin ir.DeclID, create Factory,
	materialize Materializer) ir.DeclID {
	return p.declare(public(sig), origin, create, materialize)
}

// DeclareKey declares a declaration under an explicit structural key.
func (p *FlatTable) DeclareKey(key ir.Key, origin ir.DeclID, create Factory, materialize Materializer) ir.DeclID {
	return p.declare(structural(key), origin, create, materialize)
}

func (p *FlatTable) declare(k lookupKey, origin ir.DeclID, create Factory, materialize Materializer) ir.DeclID {
	symbol, ok := p.get(k)
	//
	if !ok {
		symbol = p.allocate(k, create)
		p.put(k, symbol)
	}
	//
	p.checkOrigin(&p.store, k, symbol, origin)
	owner := p.materialize(symbol, materialize)
	p.unbound.Remove(symbol)
	//
	return owner
}

// Reference returns the symbol for a given declaration.  If none exists yet, a
// fresh unbound symbol is allocated and recorded as unbound.  This supports
// forward references, where a symbol is used before its declaration exists.
func (p *FlatTable) Reference(id ir.DeclID, create Factory) *ir.Symbol {
	return p.reference(p.policy.keyOf(id), create)
}

// ReferenceSignature returns the symbol for a given signature, allocating an
// unbound symbol if none exists.
func (p *FlatTable) ReferenceSignature(sig ir.Signature, create Factory) *ir.Symbol {
	return p.reference(public(sig), create)
}

// ReferenceKey returns the symbol for a given structural key, allocating an
// unbound symbol if none exists.
func (p *FlatTable) ReferenceKey(key ir.Key, create Factory) *ir.Symbol {
	return p.reference(structural(key), create)
}

func (p *FlatTable) reference(k lookupKey, create Factory) *ir.Symbol {
	if symbol, ok := p.get(k); ok {
		return symbol
	}
	//
	symbol := p.allocate(k, create)
	p.put(k, symbol)
	p.unbound.Insert(symbol)
	//
	return symbol
}

// Bind an existing unbound symbol of this table to a given owner.
func (p *FlatTable) Bind(symbol *ir.Symbol, owner ir.DeclID) {
	if symbol.Kind() != p.kind {
		panic(ir.Inconsistent("%s bound via %s table", symbol, p.kind))
	}
	//
	p.arena.Bind(owner, symbol)
	p.unbound.Remove(symbol)
}

// Lookup returns the symbol for a given declaration, if one exists.
func (p *FlatTable) Lookup(id ir.DeclID) (*ir.Symbol, bool) {
	return p.get(p.policy.keyOf(id))
}

// LookupSignature returns the symbol for a given signature, if one exists.
func (p *FlatTable) LookupSignature(sig ir.Signature) (*ir.Symbol, bool) {
	return p.get(public(sig))
}

// LookupKey returns the symbol for a given structural key, if one exists.
func (p *FlatTable) LookupKey(key ir.Key) (*ir.Symbol, bool) {
	return p.get(structural(key))
}

// Unbound returns the symbols of this table which have been referenced but
// remain unbound, in order of first reference.
func (p *FlatTable) Unbound() []*ir.Symbol {
	var symbols []*ir.Symbol
	//
	for _, s := range p.unbound.Items() {
		// Symbols bound directly (e.g. through the arena) are dropped lazily.
		if !s.IsBound() {
			symbols = append(symbols, s)
		}
	}
	//
	return symbols
}

// Signatures returns all signatures known to this table, in sorted order.
func (p *FlatTable) Signatures() []ir.Signature {
	sigs := make([]ir.Signature, 0, len(p.bySig))
	//
	for sig := range p.bySig {
		sigs = append(sigs, sig)
	}
	//
	sort.Slice(sigs, func(i, j int) bool { return sigs[i] < sigs[j] })
	//
	return sigs
}
