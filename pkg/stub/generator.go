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
package stub

import (
	"errors"
	"fmt"
	"strings"

	"github.com/consensys/go-irlink/pkg/ir"
	"github.com/consensys/go-irlink/pkg/mangle"
	"github.com/consensys/go-irlink/pkg/symbol"
	"github.com/consensys/go-irlink/pkg/util"
	log "github.com/sirupsen/logrus"
)

// ModuleName is the name of the synthetic module holding all generated stubs.
const ModuleName = "<dependency stubs>"

// ErrUnboundSymbols is reported when symbols remain unbound even after stubs
// have been generated.  Such a symbol was promised by some declaration, but
// neither the compilation nor any library could provide it.
var ErrUnboundSymbols = errors.New("unbound symbols remain")

// Generator binds every unbound symbol of the flat tables of a symbol table to
// a minimal external stub declaration, which has the right name, arity and
// visibility but nothing else.  Stubs are generated from the signature of a
// symbol or, failing that, its descriptor reference.  Symbols with neither
// cannot be stubbed.
type Generator struct {
	arena    *ir.Arena
	builder  *ir.Builder
	table    *symbol.Table
	module   ir.DeclID
	packages map[string]ir.DeclID
}

// NewGenerator constructs a stub generator for a given symbol table.
func NewGenerator(arena *ir.Arena, table *symbol.Table) *Generator {
	return &Generator{arena, ir.NewBuilder(arena), table, ir.NoDecl, make(map[string]ir.DeclID)}
}

// Generate stubs for all unbound symbols, returning the number generated.
// Generating one stub can give rise to further unbound symbols (e.g. for an
// enclosing class), hence this continues until nothing more can be done.
// Then, an error is reported if any symbol remains unbound.
func (g *Generator) Generate() (uint, error) {
	var count uint
	//
	for progress := true; progress; {
		progress = false
		//
		for _, table := range g.table.FlatTables() {
			for _, symbol := range table.Unbound() {
				// Stubbing an earlier symbol may have bound this one
				if !symbol.IsBound() && g.stub(table, symbol) {
					count++
					progress = true
				}
			}
		}
	}
	//
	if remaining := g.table.Unbound(); len(remaining) > 0 {
		names := make([]string, len(remaining))
		//
		for i, symbol := range remaining {
			names[i] = symbol.String()
		}
		//
		return count, fmt.Errorf("%w: %s", ErrUnboundSymbols, strings.Join(names, ", "))
	}
	//
	return count, nil
}

func (g *Generator) stub(table *symbol.FlatTable, symbol *ir.Symbol) bool {
	if sig, ok := symbol.Signature().Get(); ok {
		g.fromSignature(table, sig)
	} else if ref := symbol.Descriptor(); ref != nil {
		g.fromDescriptor(table, symbol, ref)
	} else {
		return false
	}
	//
	log.Debugf("stubbed %s", symbol)
	//
	return true
}

// fromSignature generates the stub for the declaration with a given signature,
// within the stub for its enclosing class (if any).  Type parameters belong to
// their owner instead, which need not be a class.
func (g *Generator) fromSignature(table *symbol.FlatTable, sig ir.Signature) ir.DeclID {
	var parent ir.DeclID
	//
	if container, ok := sig.Parent(); ok {
		if _, tp := sig.IsTypeParameter(); tp {
			parent = g.owner(container)
		} else {
			parent = g.class(container)
		}
	} else {
		parent = g.fragment(sig.Package())
	}
	//
	if family, arity, ok := mangle.ReservedFunctionClass(sig); ok && table.Kind() == ir.KindClass {
		return table.DeclareFromExternalId(sig, ir.NoDecl, nil, func(*ir.Symbol) ir.DeclID {
			return g.functionClass(parent, sig, family, arity)
		})
	}
	//
	return table.DeclareFromExternalId(sig, ir.NoDecl, nil, func(*ir.Symbol) ir.DeclID {
		return g.declare(table.Kind(), sig, parent)
	})
}

// class returns the declaration of the class with a given signature, stubbing
// it if necessary.
func (g *Generator) class(sig ir.Signature) ir.DeclID {
	if owner, ok := ir.OwnerOf(g.table.Classes.ReferenceSignature(sig, nil)); ok {
		return owner
	}
	//
	return g.fromSignature(g.table.Classes, sig)
}

// owner returns the declaration of the owner of a type parameter with a given
// signature, stubbing it (in the table its signature belongs to) if necessary.
func (g *Generator) owner(sig ir.Signature) ir.DeclID {
	table, _ := g.table.Flat(kindOf(sig))
	//
	if owner, ok := ir.OwnerOf(table.ReferenceSignature(sig, nil)); ok {
		return owner
	}
	//
	return g.fromSignature(table, sig)
}

// kindOf determines the kind of declaration identified by a signature which is
// not that of a type parameter.
func kindOf(sig ir.Signature) ir.Kind {
	_, _, callable := sig.Arity()
	//
	switch {
	case sig.IsField():
		return ir.KindField
	case sig.IsProperty():
		return ir.KindProperty
	case sig.Accessor() != ir.NotAccessor:
		return ir.KindFunction
	case sig.Name() == "<init>":
		return ir.KindConstructor
	case callable:
		return ir.KindFunction
	default:
		return ir.KindClass
	}
}

// declare allocates a stub declaration of a given kind from its signature.
func (g *Generator) declare(kind ir.Kind, sig ir.Signature, parent ir.DeclID) ir.DeclID {
	var (
		name, vis = splitName(sig.Name())
		decl      = ir.Decl{Kind: kind, Name: name, Parent: parent, Visibility: vis, External: true}
	)
	//
	if sig.HasReceiver() {
		decl.Receiver = util.Some(ir.Type{})
	}
	//
	switch kind {
	case ir.KindConstructor:
		decl.Name = "<init>"
	case ir.KindFunction:
		switch decl.Accessor = sig.Accessor(); decl.Accessor {
		case ir.Getter:
			decl.Name = "<get-" + name + ">"
		case ir.Setter:
			decl.Name = "<set-" + name + ">"
		}
	case ir.KindTypeParameter:
		index, _ := sig.IsTypeParameter()
		decl.Name, decl.Index, decl.Visibility = fmt.Sprintf("T%d", index), index, ir.Local
	}
	//
	id := g.arena.New(decl)
	//
	if kind == ir.KindTypeParameter {
		owner := g.arena.Get(parent)
		owner.TypeParams = append(owner.TypeParams, id)
	}
	//
	if arity, _, ok := sig.Arity(); ok {
		for i := range arity {
			g.builder.ValueParameter(id, fmt.Sprintf("p%d", i), ir.Type{})
		}
	} else if decl.Accessor == ir.Setter {
		g.builder.ValueParameter(id, "value", ir.Type{})
	}
	//
	return id
}

// functionClass allocates the stub of a built-in function type of a given
// arity.  This has one type parameter per parameter, plus one for the return
// type, and a single invoke member.
func (g *Generator) functionClass(parent ir.DeclID, sig ir.Signature, family mangle.FunctionFamily,
	arity uint) ir.DeclID {
	var (
		class = g.builder.Class(parent, fmt.Sprintf("%s%d", family.Prefix(), arity), ir.Public,
			ir.InterfaceClass)
		params []ir.Type
	)
	//
	g.arena.Get(class).External = true
	//
	for i := uint(0); i <= arity; i++ {
		name := fmt.Sprintf("P%d", i+1)
		if i == arity {
			name = "R"
		}
		//
		tp := g.builder.TypeParameter(class, name)
		tpSig := ir.Signature(fmt.Sprintf("%s:tp:%d", sig, i))
		g.table.GlobalTypeParameters.DeclareFromExternalId(tpSig, tp, nil, symbol.Identity(tp))
		params = append(params, ir.ClassType(g.arena.Get(tp).Symbol))
	}
	//
	invoke := g.builder.Function(class, "invoke", ir.Public, params[arity], params[:arity]...)
	g.arena.Get(invoke).External = true
	g.table.Declare(invoke)
	//
	return class
}

// fromDescriptor generates the stub for a symbol known only by its descriptor
// reference.
func (g *Generator) fromDescriptor(table *symbol.FlatTable, symbol *ir.Symbol, ref *ir.DescriptorRef) {
	var parent ir.DeclID
	//
	if ref.Container != "" {
		parent = g.class(ir.Signature(ref.Package + "/" + ref.Container))
		//
		if ref.Kind == ir.DescriptorEnumEntry && g.arena.ModuleName(parent) == ModuleName {
			g.arena.Get(parent).ClassKind = ir.EnumClass
		}
	} else {
		parent = g.fragment(ref.Package)
	}
	//
	name := ref.Name
	if table.Kind() == ir.KindConstructor {
		name = "<init>"
	}
	//
	id := g.arena.New(ir.Decl{Kind: table.Kind(), Name: name, Parent: parent, Visibility: ir.Public,
		Uniq: util.Some(ref.Uniq), External: true})
	//
	table.Bind(symbol, id)
}

// fragment returns the stub package fragment for a given package.
func (g *Generator) fragment(pkg string) ir.DeclID {
	if id, ok := g.packages[pkg]; ok {
		return id
	}
	//
	if !g.module.IsValid() {
		g.module = g.builder.Module(ModuleName)
		g.arena.Get(g.module).External = true
	}
	//
	id := g.builder.Package(g.module, pkg)
	g.arena.Get(id).External = true
	g.packages[pkg] = id
	//
	return id
}

// splitName splits a possibly module-qualified name, determining visibility
// from the presence of a qualifier.
func splitName(name string) (string, ir.Visibility) {
	if i := strings.IndexByte(name, '$'); i >= 0 {
		return name[:i], ir.Internal
	}
	//
	return name, ir.Public
}
