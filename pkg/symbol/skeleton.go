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
	"github.com/consensys/go-irlink/pkg/ir"
	"github.com/consensys/go-irlink/pkg/mangle"
	"github.com/consensys/go-irlink/pkg/util"
)

// Factory allocates a fresh symbol for a declaration.  The signature is
// provided when the declaration is keyed by one.  A nil factory means the
// default factory of the table in question is used.
type Factory func(sig util.Option[ir.Signature]) *ir.Symbol

// Materializer produces the owning declaration for a symbol which has not yet
// been bound.  The table binds the symbol to the returned declaration.
type Materializer func(*ir.Symbol) ir.DeclID

// Identity is a materializer for declarations which already exist and are
// simply to be bound.
func Identity(id ir.DeclID) Materializer {
	return func(*ir.Symbol) ir.DeclID { return id }
}

// lookupKey identifies a symbol in a store, either structurally or by
// signature.
type lookupKey struct {
	key ir.Key
	sig util.Option[ir.Signature]
}

func structural(key ir.Key) lookupKey {
	return lookupKey{key, util.None[ir.Signature]()}
}

func public(sig ir.Signature) lookupKey {
	return lookupKey{ir.Key{}, util.Some(sig)}
}

func (k lookupKey) String() string {
	if sig, ok := k.sig.Get(); ok {
		return string(sig)
	}
	//
	return k.key.String()
}

// store is the skeleton shared by flat tables and each scope of a scoped
// table: an index of symbols by structural key and by signature.
type store struct {
	byKey map[ir.Key]*ir.Symbol
	bySig map[ir.Signature]*ir.Symbol
	// Declaration from which each symbol was declared, used to detect two
	// distinct declarations claiming the same key.
	origins map[*ir.Symbol]ir.DeclID
}

func newStore() store {
	return store{make(map[ir.Key]*ir.Symbol), make(map[ir.Signature]*ir.Symbol), make(map[*ir.Symbol]ir.DeclID)}
}

func (p *store) get(k lookupKey) (*ir.Symbol, bool) {
	if sig, ok := k.sig.Get(); ok {
		s, ok := p.bySig[sig]
		return s, ok
	}
	//
	s, ok := p.byKey[k.key]
	//
	return s, ok
}

func (p *store) put(k lookupKey, symbol *ir.Symbol) {
	if sig, ok := k.sig.Get(); ok {
		p.bySig[sig] = symbol
	} else {
		p.byKey[k.key] = symbol
	}
}

// keyPolicy decides how declarations are keyed.  Exported declarations are
// keyed by their signature, since only they need a name which is stable
// across separate compilation.  All others are keyed structurally, which
// avoids mangling purely local declarations.
type keyPolicy struct {
	checker *mangle.ExportChecker
	mangler *mangle.Mangler
}

func (p *keyPolicy) keyOf(id ir.DeclID) lookupKey {
	if p.checker.IsExported(id) {
		return public(p.mangler.Signature(id))
	}
	//
	return structural(ir.DeclKey(id))
}

// skeleton holds what every table needs in order to allocate, key and bind
// symbols.
type skeleton struct {
	kind   ir.Kind
	arena  *ir.Arena
	policy *keyPolicy
}

func (p *skeleton) factory(create Factory) Factory {
	if create != nil {
		return create
	}
	//
	return func(sig util.Option[ir.Signature]) *ir.Symbol {
		if s, ok := sig.Get(); ok {
			return ir.NewPublicSymbol(p.kind, s)
		}
		//
		return ir.NewSymbol(p.kind)
	}
}

// allocate a fresh symbol for a given key, checking it is appropriate.
func (p *skeleton) allocate(k lookupKey, create Factory) *ir.Symbol {
	symbol := p.factory(create)(k.sig)
	//
	if symbol.Kind() != p.kind {
		panic(ir.Inconsistent("%s allocated in %s table", symbol, p.kind))
	} else if symbol.IsBound() {
		panic(ir.Inconsistent("freshly allocated %s already bound", symbol))
	}
	//
	return symbol
}

// materialize the owner of an existing or fresh symbol, binding it if needed.
func (p *skeleton) materialize(symbol *ir.Symbol, materialize Materializer) ir.DeclID {
	if owner, ok := ir.OwnerOf(symbol); ok {
		return owner
	}
	//
	owner := materialize(symbol)
	// The materializer may already have bound the symbol itself.
	if bound, ok := ir.OwnerOf(symbol); ok {
		if bound != owner {
			panic(ir.Inconsistent("%s bound to #%d but materialized as #%d", symbol, bound, owner))
		}
		//
		return owner
	}
	//
	p.arena.Bind(owner, symbol)
	//
	return owner
}

// checkOrigin ensures a symbol is only ever declared from one declaration.
func (p *skeleton) checkOrigin(s *store, k lookupKey, symbol *ir.Symbol, origin ir.DeclID) {
	if !origin.IsValid() {
		return
	} else if prev, ok := s.origins[symbol]; ok && prev != origin {
		panic(ir.Inconsistent("%s %s declared twice (by #%d and #%d)", p.kind, k, prev, origin))
	}
	//
	s.origins[symbol] = origin
}
