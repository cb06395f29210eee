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
package mangle

import (
	"fmt"
	"strings"

	"github.com/consensys/go-irlink/pkg/ir"
)

// UnitFqName is the fully qualified name of the Unit type, which contributes
// nothing to a signature when used as a return type.
const UnitFqName = "kotlin.Unit"

// Mangler computes stable signatures for declarations.  A signature is a pure
// function of the declaration (and those it refers to) so, for an unchanged
// declaration, repeated calls give byte-identical results.
type Mangler struct {
	arena *ir.Arena
}

// NewMangler constructs a mangler for declarations held in a given arena.
func NewMangler(arena *ir.Arena) *Mangler {
	return &Mangler{arena}
}

// Signature computes the signature of a given declaration.  Only classes,
// enum entries, constructors, functions, properties, fields and type
// parameters have signatures; asking for any other kind is a programming
// error.
func (p *Mangler) Signature(id ir.DeclID) ir.Signature {
	var builder strings.Builder
	//
	builder.WriteString(p.arena.PackageOf(id))
	builder.WriteString("/")
	p.writePath(&builder, id)
	//
	return ir.Signature(builder.String())
}

// writePath writes the dotted path from the enclosing package fragment down to
// the given declaration.
func (p *Mangler) writePath(builder *strings.Builder, id ir.DeclID) {
	decl := p.arena.Get(id)
	//
	if decl.Kind == ir.KindTypeParameter {
		p.writePath(builder, decl.Parent)
		fmt.Fprintf(builder, ":tp:%d", p.typeParameterIndex(id))
		//
		return
	}
	// Accessors and backing fields sit at the position of their property.
	container := decl.Parent
	if decl.Property.IsValid() {
		container = p.arena.Get(decl.Property).Parent
	}
	//
	if container.IsValid() && !p.arena.Get(container).Kind.IsPackageFragment() {
		p.writePath(builder, container)
		builder.WriteString(".")
	}
	//
	p.writeSegment(builder, id)
}

func (p *Mangler) writeSegment(builder *strings.Builder, id ir.DeclID) {
	decl := p.arena.Get(id)
	//
	switch decl.Kind {
	case ir.KindClass, ir.KindEnumEntry:
		builder.WriteString(p.simpleName(decl))
	case ir.KindProperty:
		// Marked, since a class of the same name may share the container.
		builder.WriteString(p.simpleName(decl))
		builder.WriteString(":prop:")
		p.writeReceiver(builder, decl)
	case ir.KindField:
		if decl.Property.IsValid() {
			builder.WriteString(p.simpleName(p.arena.Get(decl.Property)))
		} else {
			builder.WriteString(p.simpleName(decl))
		}
		//
		builder.WriteString(":field:")
	case ir.KindConstructor:
		builder.WriteString("<init>")
		p.writeParameters(builder, decl)
		p.writeTypeParameters(builder, decl)
	case ir.KindFunction:
		switch decl.Accessor {
		case ir.Getter, ir.Setter:
			prop := p.arena.Get(decl.Property)
			builder.WriteString(p.simpleName(prop))
			//
			if decl.Accessor == ir.Getter {
				builder.WriteString(":getter:")
			} else {
				builder.WriteString(":setter:")
			}
			//
			p.writeReceiver(builder, prop)
		default:
			builder.WriteString(p.simpleName(decl))
			p.writeParameters(builder, decl)
			p.writeTypeParameters(builder, decl)
			//
			if !p.isUnit(decl.Return) {
				builder.WriteString(":")
				p.writeType(builder, decl.Return)
			}
		}
	default:
		panic(ir.Inconsistent("%s \"%s\" has no signature", decl.Kind, decl.Name))
	}
}

// Declarations with internal visibility are qualified by their module, so
// that they never collide with a declaration of the same name in another
// module or with a public declaration.
func (p *Mangler) simpleName(decl *ir.Decl) string {
	if decl.Visibility == ir.Internal {
		return fmt.Sprintf("%s$%s", decl.Name, p.arena.ModuleName(decl.Parent))
	}
	//
	return decl.Name
}

func (p *Mangler) writeReceiver(builder *strings.Builder, decl *ir.Decl) {
	if receiver, ok := decl.Receiver.Get(); ok {
		builder.WriteString("@")
		p.writeType(builder, receiver)
	}
}

func (p *Mangler) writeParameters(builder *strings.Builder, decl *ir.Decl) {
	builder.WriteString("(")
	//
	first := true
	//
	if receiver, ok := decl.Receiver.Get(); ok {
		builder.WriteString("@")
		p.writeType(builder, receiver)
		//
		first = false
	}
	//
	for _, param := range decl.Params {
		if !first {
			builder.WriteString(";")
		}
		//
		first = false
		param := p.arena.Get(param)
		p.writeType(builder, param.Return)
		//
		if param.Vararg {
			builder.WriteString("...")
		}
	}
	//
	builder.WriteString(")")
}

// Type parameters are encoded by position, so renaming one never changes the
// signature.
func (p *Mangler) writeTypeParameters(builder *strings.Builder, decl *ir.Decl) {
	if len(decl.TypeParams) == 0 {
		return
	}
	//
	builder.WriteString("<")
	//
	for i, tp := range decl.TypeParams {
		if i != 0 {
			builder.WriteString(";")
		}
		//
		fmt.Fprintf(builder, "%d:", p.typeParameterIndex(tp))
		//
		for j, bound := range p.arena.Get(tp).Bounds {
			if j != 0 {
				builder.WriteString("&")
			}
			//
			p.writeType(builder, bound)
		}
	}
	//
	builder.WriteString(">")
}

// writeType writes the erased form of a type.  References to type parameters
// are replaced by a positional marker.
func (p *Mangler) writeType(builder *strings.Builder, t ir.Type) {
	switch {
	case !t.IsKnown():
		builder.WriteString("_")
	case t.Classifier.Kind() == ir.KindTypeParameter:
		owner, ok := ir.OwnerOf(t.Classifier)
		if !ok {
			panic(ir.Inconsistent("cannot mangle reference to unbound %s", t.Classifier))
		}
		//
		fmt.Fprintf(builder, "#%d", p.typeParameterIndex(owner))
	default:
		builder.WriteString(p.classifierName(t.Classifier))
	}
	//
	if len(t.Args) > 0 {
		builder.WriteString("[")
		//
		for i, arg := range t.Args {
			if i != 0 {
				builder.WriteString(",")
			}
			//
			p.writeType(builder, arg)
		}
		//
		builder.WriteString("]")
	}
	//
	if t.Nullable {
		builder.WriteString("?")
	}
}

// classifierName returns the fully qualified name of a class symbol.  This is
// obtained from its declaration when bound, or otherwise from its signature
// (or descriptor).
func (p *Mangler) classifierName(symbol *ir.Symbol) string {
	if owner, ok := ir.OwnerOf(symbol); ok {
		return p.arena.FqName(owner)
	} else if sig, ok := symbol.Signature().Get(); ok {
		return sig.FqName()
	} else if ref := symbol.Descriptor(); ref != nil {
		return ref.ContainerFqName() + "." + ref.Name
	}
	//
	panic(ir.Inconsistent("cannot mangle reference to %s", symbol))
}

func (p *Mangler) isUnit(t ir.Type) bool {
	return !t.IsKnown() || (t.Classifier.Kind() == ir.KindClass && len(t.Args) == 0 && !t.Nullable &&
		p.classifierName(t.Classifier) == UnitFqName)
}

// typeParameterIndex returns the position of a type parameter amongst those of
// all enclosing type-parameter containers, counting outermost first.
func (p *Mangler) typeParameterIndex(id ir.DeclID) uint {
	var (
		decl   = p.arena.Get(id)
		offset uint
	)
	//
	for c := p.arena.Get(decl.Parent).Parent; c.IsValid(); c = p.arena.Get(c).Parent {
		container := p.arena.Get(c)
		//
		if container.Kind.IsPackageFragment() {
			break
		}
		//
		offset += uint(len(container.TypeParams))
	}
	//
	return offset + decl.Index
}
