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
package binfile

import (
	"github.com/consensys/go-irlink/pkg/ir"
)

// Record is the on-disk form of exactly one top-level declaration, along with
// everything nested within it.
type Record struct {
	// Identifier under which this record is stored.
	Id ir.UniqId
	// Module which owns this record.
	Module string
	// Name of the file containing the declaration.
	File string
	// Package of that file.
	Package string
	// The declaration itself.
	Decl Decl
}

// Key returns the linker key of this record.
func (r *Record) Key() ir.UniqIdKey {
	return ir.KeyOf(r.Id, r.Module)
}

// Decl is the serialised form of a declaration.  Nested declarations are held
// inline, so a record is a tree.
type Decl struct {
	Id           ir.UniqId
	Signature    string
	Kind         ir.Kind
	Name         string
	Visibility   ir.Visibility
	Annotations  []string
	ClassKind    ir.ClassKind
	Accessor     ir.AccessorKind
	Const        bool
	Static       bool
	Vararg       bool
	FakeOverride bool
	External     bool
	Index        uint
	Supertypes   []Type
	Bounds       []Type
	Receiver     *Type
	Return       *Type
	Overridden   []SymbolRef
	TypeParams   []Decl
	Params       []Decl
	Variables    []Decl
	Members      []Decl
	Body         []Expr
}

// Walk visits this declaration and every declaration nested within it in
// pre-order.
func (d *Decl) Walk(fn func(*Decl)) {
	fn(d)
	//
	for _, group := range [][]Decl{d.TypeParams, d.Params, d.Variables, d.Members} {
		for i := range group {
			group[i].Walk(fn)
		}
	}
}

// SymbolRef is the serialised form of a reference to a declaration, which may
// reside in this record, elsewhere in the same module or in another module.
type SymbolRef struct {
	Kind ir.Kind
	// Identifier of the referenced declaration.
	Id ir.UniqId
	// Identifier of the top-level declaration whose record holds the
	// referenced declaration.  This equals Id for top-level declarations.
	TopLevel ir.UniqId
	// Module of origin, for local identifiers.
	Module string
	// Signature of the referenced declaration, if it is public.
	Signature string
	// Descriptor is set for references made in terms of the semantic model.
	// These are resolved structurally, rather than by identifier.
	Descriptor *ir.DescriptorRef
}

// Key returns the linker key of the referenced declaration.
func (r *SymbolRef) Key() ir.UniqIdKey {
	return ir.KeyOf(r.Id, r.Module)
}

// TopLevelKey returns the linker key of the record holding the referenced
// declaration.
func (r *SymbolRef) TopLevelKey() ir.UniqIdKey {
	return ir.KeyOf(r.TopLevel, r.Module)
}

// IsDescriptor checks whether this reference must be resolved structurally.
func (r *SymbolRef) IsDescriptor() bool {
	return r.Descriptor != nil
}

// Type is the serialised form of a type.
type Type struct {
	Classifier *SymbolRef
	Args       []Type
	Nullable   bool
}

// Expr is the serialised form of a body expression.
type Expr struct {
	Op     ir.ExprOp
	Target *SymbolRef
	Type   *Type
	Args   []Expr
	Value  string
}

// ============================================================================
// Nesting
// ============================================================================

// Depth returns the nesting depth of a record, counting nested declarations,
// expressions and types.
func (r *Record) Depth() uint {
	return declDepth(&r.Decl)
}

func declDepth(d *Decl) uint {
	var depth uint
	//
	for _, group := range [][]Decl{d.TypeParams, d.Params, d.Variables, d.Members} {
		for i := range group {
			depth = max(depth, declDepth(&group[i]))
		}
	}
	//
	for i := range d.Body {
		depth = max(depth, exprDepth(&d.Body[i]))
	}
	//
	for _, t := range typesOf(d) {
		depth = max(depth, typeDepth(t))
	}
	//
	return depth + 1
}

func exprDepth(e *Expr) uint {
	var depth uint
	//
	for i := range e.Args {
		depth = max(depth, exprDepth(&e.Args[i]))
	}
	//
	if e.Type != nil {
		depth = max(depth, typeDepth(e.Type))
	}
	//
	return depth + 1
}

func typeDepth(t *Type) uint {
	var depth uint
	//
	for i := range t.Args {
		depth = max(depth, typeDepth(&t.Args[i]))
	}
	//
	return depth + 1
}

func typesOf(d *Decl) []*Type {
	var types []*Type
	//
	for i := range d.Supertypes {
		types = append(types, &d.Supertypes[i])
	}
	//
	for i := range d.Bounds {
		types = append(types, &d.Bounds[i])
	}
	//
	if d.Receiver != nil {
		types = append(types, d.Receiver)
	}
	//
	if d.Return != nil {
		types = append(types, d.Return)
	}
	//
	return types
}
