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
	"github.com/consensys/go-irlink/pkg/mangle"
)

// Table is the symbol table of a compilation.  It holds one flat table per
// kind of module-level declaration and one scoped table per kind of local
// declaration.  A table has a single writer at a time; read-only lookups may
// only race against other reads.
type Table struct {
	arena   *ir.Arena
	checker *mangle.ExportChecker
	mangler *mangle.Mangler
	// Flat tables
	Classes              *FlatTable
	Constructors         *FlatTable
	EnumEntries          *FlatTable
	Fields               *FlatTable
	Functions            *FlatTable
	Properties           *FlatTable
	GlobalTypeParameters *FlatTable
	// Scoped tables
	TypeParameters  *ScopedTable
	ValueParameters *ScopedTable
	Variables       *ScopedTable
}

// NewTable constructs an empty symbol table for declarations held in a given
// arena.
func NewTable(arena *ir.Arena) *Table {
	var (
		checker = mangle.NewExportChecker(arena)
		mangler = mangle.NewMangler(arena)
		policy  = &keyPolicy{checker, mangler}
	)
	//
	return &Table{
		arena:                arena,
		checker:              checker,
		mangler:              mangler,
		Classes:              newFlatTable(ir.KindClass, arena, policy),
		Constructors:         newFlatTable(ir.KindConstructor, arena, policy),
		EnumEntries:          newFlatTable(ir.KindEnumEntry, arena, policy),
		Fields:               newFlatTable(ir.KindField, arena, policy),
		Functions:            newFlatTable(ir.KindFunction, arena, policy),
		Properties:           newFlatTable(ir.KindProperty, arena, policy),
		GlobalTypeParameters: newFlatTable(ir.KindTypeParameter, arena, policy),
		TypeParameters:       newScopedTable(ir.KindTypeParameter, arena, policy),
		ValueParameters:      newScopedTable(ir.KindValueParameter, arena, policy),
		Variables:            newScopedTable(ir.KindVariable, arena, policy),
	}
}

// Arena returns the arena holding the declarations of this table.
func (p *Table) Arena() *ir.Arena {
	return p.arena
}

// Mangler returns the mangler used to key exported declarations.
func (p *Table) Mangler() *mangle.Mangler {
	return p.mangler
}

// ExportChecker returns the export checker used to decide how declarations
// are keyed.
func (p *Table) ExportChecker() *mangle.ExportChecker {
	return p.checker
}

// FlatTables returns every flat table, in a fixed order.
func (p *Table) FlatTables() []*FlatTable {
	return []*FlatTable{p.Classes, p.Constructors, p.EnumEntries, p.Fields, p.Functions, p.Properties,
		p.GlobalTypeParameters}
}

// Flat returns the flat table for a given kind of declaration.  Type
// parameters map to the table of global (i.e. class) type parameters.
func (p *Table) Flat(kind ir.Kind) (*FlatTable, bool) {
	switch kind {
	case ir.KindClass:
		return p.Classes, true
	case ir.KindConstructor:
		return p.Constructors, true
	case ir.KindEnumEntry:
		return p.EnumEntries, true
	case ir.KindField:
		return p.Fields, true
	case ir.KindFunction:
		return p.Functions, true
	case ir.KindProperty:
		return p.Properties, true
	case ir.KindTypeParameter:
		return p.GlobalTypeParameters, true
	default:
		return nil, false
	}
}

// Scoped returns the scoped table for a given kind of local declaration.
func (p *Table) Scoped(kind ir.Kind) (*ScopedTable, bool) {
	switch kind {
	case ir.KindTypeParameter:
		return p.TypeParameters, true
	case ir.KindValueParameter:
		return p.ValueParameters, true
	case ir.KindVariable:
		return p.Variables, true
	default:
		return nil, false
	}
}

// EnterScope enters the body of a given declaration in every scoped table.
func (p *Table) EnterScope(owner ir.DeclID) {
	p.TypeParameters.EnterScope(owner)
	p.ValueParameters.EnterScope(owner)
	p.Variables.EnterScope(owner)
}

// LeaveScope leaves the body of a given declaration in every scoped table.
func (p *Table) LeaveScope(owner ir.DeclID) {
	p.Variables.LeaveScope(owner)
	p.ValueParameters.LeaveScope(owner)
	p.TypeParameters.LeaveScope(owner)
}

// DiscardScope abandons the body of a given declaration in every scoped table.
func (p *Table) DiscardScope(owner ir.DeclID) {
	p.Variables.DiscardScope(owner)
	p.ValueParameters.DiscardScope(owner)
	p.TypeParameters.DiscardScope(owner)
}

// Declare binds an existing in-memory declaration to its symbol in the
// appropriate table, returning that symbol.  Type parameters of classes are
// global whilst all other type parameters are scoped.
func (p *Table) Declare(id ir.DeclID) *ir.Symbol {
	var (
		decl  = p.arena.Get(id)
		owner ir.DeclID
	)
	//
	if p.isScoped(decl) {
		scoped, _ := p.Scoped(decl.Kind)
		owner = scoped.Declare(id, nil, Identity(id))
	} else if flat, ok := p.Flat(decl.Kind); ok {
		owner = flat.Declare(id, nil, Identity(id))
	} else {
		panic(ir.Inconsistent("cannot declare %s \"%s\"", decl.Kind, decl.Name))
	}
	//
	return p.arena.Get(owner).Symbol
}

// Reference returns the symbol of an in-memory declaration from the
// appropriate table, which may be unbound.
func (p *Table) Reference(id ir.DeclID) *ir.Symbol {
	decl := p.arena.Get(id)
	//
	if p.isScoped(decl) {
		scoped, _ := p.Scoped(decl.Kind)
		return scoped.Reference(id, nil)
	} else if flat, ok := p.Flat(decl.Kind); ok {
		return flat.Reference(id, nil)
	}
	//
	panic(ir.Inconsistent("cannot reference %s \"%s\"", decl.Kind, decl.Name))
}

func (p *Table) isScoped(decl *ir.Decl) bool {
	switch decl.Kind {
	case ir.KindValueParameter, ir.KindVariable:
		return true
	case ir.KindTypeParameter:
		return p.arena.Get(decl.Parent).Kind != ir.KindClass
	default:
		return false
	}
}

// ForEachPublicSymbol visits every signature-keyed symbol of the flat tables,
// in signature order (and, for equal signatures, in table order).  These are
// exactly the symbols of the export-eligible surface.
func (p *Table) ForEachPublicSymbol(fn func(ir.Signature, *ir.Symbol)) {
	type entry struct {
		sig    ir.Signature
		symbol *ir.Symbol
	}
	//
	var entries []entry
	//
	for _, table := range p.FlatTables() {
		for _, sig := range table.Signatures() {
			entries = append(entries, entry{sig, table.bySig[sig]})
		}
	}
	// Stable sort preserves table order for equal signatures
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].sig < entries[j].sig })
	//
	for _, e := range entries {
		fn(e.sig, e.symbol)
	}
}

// UnboundClasses returns the class symbols still unbound.
func (p *Table) UnboundClasses() []*ir.Symbol { return p.Classes.Unbound() }

// UnboundConstructors returns the constructor symbols still unbound.
func (p *Table) UnboundConstructors() []*ir.Symbol { return p.Constructors.Unbound() }

// UnboundEnumEntries returns the enum entry symbols still unbound.
func (p *Table) UnboundEnumEntries() []*ir.Symbol { return p.EnumEntries.Unbound() }

// UnboundFields returns the field symbols still unbound.
func (p *Table) UnboundFields() []*ir.Symbol { return p.Fields.Unbound() }

// UnboundFunctions returns the function symbols still unbound.
func (p *Table) UnboundFunctions() []*ir.Symbol { return p.Functions.Unbound() }

// UnboundProperties returns the property symbols still unbound.
func (p *Table) UnboundProperties() []*ir.Symbol { return p.Properties.Unbound() }

// UnboundTypeParameters returns the global type parameter symbols still
// unbound.
func (p *Table) UnboundTypeParameters() []*ir.Symbol { return p.GlobalTypeParameters.Unbound() }

// Unbound returns every unbound symbol of every flat table.
func (p *Table) Unbound() []*ir.Symbol {
	var symbols []*ir.Symbol
	//
	for _, table := range p.FlatTables() {
		symbols = append(symbols, table.Unbound()...)
	}
	//
	return symbols
}
