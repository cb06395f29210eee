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
package ir

import (
	"strconv"

	"github.com/consensys/go-irlink/pkg/util"
)

// Builder constructs well-formed declarations within an arena.  It wires up
// the relations (e.g. between a property and its accessors) which would
// otherwise have to be maintained by hand.
type Builder struct {
	arena *Arena
}

// NewBuilder constructs a builder for the given arena.
func NewBuilder(arena *Arena) *Builder {
	return &Builder{arena}
}

// Arena returns the arena into which this builder allocates.
func (b *Builder) Arena() *Arena {
	return b.arena
}

// Module allocates a module root.
func (b *Builder) Module(name string) DeclID {
	return b.arena.New(Decl{Kind: KindModule, Name: name})
}

// File allocates a source file within a module, belonging to a given package.
func (b *Builder) File(module DeclID, name string, pkg string) DeclID {
	return b.arena.New(Decl{Kind: KindFile, Name: name, Parent: module, Package: pkg})
}

// Package allocates a synthetic package fragment within a module.
func (b *Builder) Package(module DeclID, pkg string) DeclID {
	return b.arena.New(Decl{Kind: KindPackage, Name: pkg, Parent: module, Package: pkg})
}

// Class allocates a class within a package fragment or another class.
func (b *Builder) Class(parent DeclID, name string, vis Visibility, kind ClassKind, supertypes ...Type) DeclID {
	return b.arena.New(Decl{Kind: KindClass, Name: name, Parent: parent, Visibility: vis, ClassKind: kind,
		Supertypes: supertypes})
}

// EnumEntry allocates an entry within an enum class.
func (b *Builder) EnumEntry(class DeclID, name string) DeclID {
	return b.arena.New(Decl{Kind: KindEnumEntry, Name: name, Parent: class, Visibility: Public})
}

// Constructor allocates a constructor for a class with parameters of the given
// types.
func (b *Builder) Constructor(class DeclID, vis Visibility, params ...Type) DeclID {
	id := b.arena.New(Decl{Kind: KindConstructor, Name: "<init>", Parent: class, Visibility: vis})
	//
	for i, t := range params {
		b.ValueParameter(id, paramName(i), t)
	}
	//
	return id
}

// Function allocates a function with the given return type and parameters of
// the given types.  An unknown return type is treated as Unit.
func (b *Builder) Function(parent DeclID, name string, vis Visibility, ret Type, params ...Type) DeclID {
	id := b.arena.New(Decl{Kind: KindFunction, Name: name, Parent: parent, Visibility: vis, Return: ret})
	//
	for i, t := range params {
		b.ValueParameter(id, paramName(i), t)
	}
	//
	return id
}

// Property allocates a property of a given type along with its getter, a
// setter (when mutable) and a backing field.
func (b *Builder) Property(parent DeclID, name string, vis Visibility, t Type, mutable bool) DeclID {
	prop := b.arena.New(Decl{Kind: KindProperty, Name: name, Parent: parent, Visibility: vis, Return: t})
	// Accessors
	getter := b.arena.New(Decl{Kind: KindFunction, Name: "<get-" + name + ">", Parent: prop, Visibility: vis,
		Return: t, Property: prop, Accessor: Getter})
	b.arena.Get(prop).Getter = getter
	//
	if mutable {
		setter := b.arena.New(Decl{Kind: KindFunction, Name: "<set-" + name + ">", Parent: prop, Visibility: vis,
			Property: prop, Accessor: Setter})
		b.ValueParameter(setter, "value", t)
		b.arena.Get(prop).Setter = setter
	}
	// Backing field
	field := b.arena.New(Decl{Kind: KindField, Name: name, Parent: prop, Visibility: Private, Return: t,
		Property: prop})
	b.arena.Get(prop).BackingField = field
	//
	return prop
}

// Field allocates a standalone field.
func (b *Builder) Field(parent DeclID, name string, vis Visibility, t Type, static bool) DeclID {
	return b.arena.New(Decl{Kind: KindField, Name: name, Parent: parent, Visibility: vis, Return: t,
		Static: static})
}

// Extension marks a callable or property (and its accessors) as having an
// extension receiver of the given type.
func (b *Builder) Extension(id DeclID, receiver Type) {
	decl := b.arena.Get(id)
	decl.Receiver = util.Some(receiver)
	//
	for _, accessor := range []DeclID{decl.Getter, decl.Setter} {
		if accessor.IsValid() {
			b.arena.Get(accessor).Receiver = util.Some(receiver)
		}
	}
}

// TypeParameter allocates the next type parameter of a class or callable.
func (b *Builder) TypeParameter(owner DeclID, name string, bounds ...Type) DeclID {
	decl := b.arena.Get(owner)
	index := uint(len(decl.TypeParams))
	id := b.arena.New(Decl{Kind: KindTypeParameter, Name: name, Parent: owner, Visibility: Local, Index: index,
		Bounds: bounds})
	decl.TypeParams = append(decl.TypeParams, id)
	//
	return id
}

// ValueParameter allocates the next value parameter of a callable.
func (b *Builder) ValueParameter(owner DeclID, name string, t Type) DeclID {
	decl := b.arena.Get(owner)
	index := uint(len(decl.Params))
	id := b.arena.New(Decl{Kind: KindValueParameter, Name: name, Parent: owner, Visibility: Local, Index: index,
		Return: t})
	decl.Params = append(decl.Params, id)
	//
	return id
}

// Variable allocates a local variable within a callable body.
func (b *Builder) Variable(owner DeclID, name string, t Type) DeclID {
	return b.arena.New(Decl{Kind: KindVariable, Name: name, Parent: owner, Visibility: Local, Return: t})
}

// Annotate adds annotations to a declaration.
func (b *Builder) Annotate(id DeclID, annotations ...string) {
	decl := b.arena.Get(id)
	decl.Annotations = append(decl.Annotations, annotations...)
}

// Body appends statements to the body of a callable.
func (b *Builder) Body(id DeclID, stmts ...Expr) {
	decl := b.arena.Get(id)
	decl.Body = append(decl.Body, stmts...)
}

func paramName(i int) string {
	return "p" + strconv.Itoa(i)
}
