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
	"fmt"
	"slices"
	"strings"

	"fortio.org/safecast"
	"github.com/consensys/go-irlink/pkg/util"
)

// Kind identifies the variety of a declaration.  Every algorithm which
// distinguishes declarations does so by an exhaustive switch over this kind.
type Kind uint8

const (
	// KindModule is the root of a module tree.
	KindModule Kind = iota
	// KindFile is a source file, which is also a package fragment.
	KindFile
	// KindPackage is a synthetic or external package fragment.
	KindPackage
	// KindClass covers classes, interfaces, objects, enums and annotations.
	KindClass
	// KindEnumEntry is an entry of an enum class.
	KindEnumEntry
	// KindConstructor is a class constructor.
	KindConstructor
	// KindFunction is a function, including property accessors.
	KindFunction
	// KindProperty is a property (which owns accessors and a backing field).
	KindProperty
	// KindField is a field, typically the backing field of a property.
	KindField
	// KindTypeParameter is a type parameter of a class or callable.
	KindTypeParameter
	// KindValueParameter is a parameter of a callable.
	KindValueParameter
	// KindVariable is a local variable.
	KindVariable
)

func (k Kind) String() string {
	switch k {
	case KindModule:
		return "module"
	case KindFile:
		return "file"
	case KindPackage:
		return "package"
	case KindClass:
		return "class"
	case KindEnumEntry:
		return "enum entry"
	case KindConstructor:
		return "constructor"
	case KindFunction:
		return "function"
	case KindProperty:
		return "property"
	case KindField:
		return "field"
	case KindTypeParameter:
		return "type parameter"
	case KindValueParameter:
		return "value parameter"
	case KindVariable:
		return "variable"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// IsPackageFragment checks whether declarations of this kind are package
// fragments (i.e. files or synthetic packages).
func (k Kind) IsPackageFragment() bool {
	return k == KindFile || k == KindPackage
}

func (k Kind) isLocalKind() bool {
	return k == KindTypeParameter || k == KindValueParameter || k == KindVariable
}

// Visibility of a declaration.
type Visibility uint8

const (
	// Public declarations are visible everywhere.
	Public Visibility = iota
	// Internal declarations are visible within their module.
	Internal
	// Protected declarations are visible within subclasses.
	Protected
	// Private declarations are visible within their container.
	Private
	// Local declarations are visible within their enclosing body.
	Local
)

func (v Visibility) String() string {
	switch v {
	case Public:
		return "public"
	case Internal:
		return "internal"
	case Protected:
		return "protected"
	case Private:
		return "private"
	default:
		return "local"
	}
}

// ClassKind distinguishes the varieties of class declaration.
type ClassKind uint8

const (
	// OrdinaryClass is a plain class.
	OrdinaryClass ClassKind = iota
	// InterfaceClass is an interface.
	InterfaceClass
	// EnumClass is an enum.
	EnumClass
	// ObjectClass is a singleton object.
	ObjectClass
	// AnnotationClass is an annotation.
	AnnotationClass
)

// AccessorKind identifies the role of a function with respect to its
// corresponding property (if any).
type AccessorKind uint8

const (
	// NotAccessor is an ordinary function.
	NotAccessor AccessorKind = iota
	// Getter reads a property.
	Getter
	// Setter writes a property.
	Setter
)

// Decl is a single declaration.  Fields which don't apply to a given kind are
// left at their zero value.  Relations to other declarations are expressed as
// identifiers within the owning arena.
type Decl struct {
	Kind       Kind
	Name       string
	Parent     DeclID
	Visibility Visibility
	// Fully qualified annotation class names.
	Annotations []string
	// Contained declarations, in order of declaration.  For modules these are
	// files; for package fragments and classes these are declarations; for
	// properties these are accessors and the backing field.
	Members []DeclID
	// Package name, for package fragments.
	Package string
	// Classes
	ClassKind  ClassKind
	Supertypes []Type
	// Callables (constructors, functions and properties).  For properties and
	// fields, Return holds the declared type.
	TypeParams []DeclID
	Params     []DeclID
	Receiver   util.Option[Type]
	Return     Type
	Body       []Expr
	// Accessors and fields refer to their corresponding property.
	Property     DeclID
	Accessor     AccessorKind
	Getter       DeclID
	Setter       DeclID
	BackingField DeclID
	// Fields
	Const  bool
	Static bool
	// Type and value parameters
	Index  uint
	Vararg bool
	Bounds []Type
	// Overrides
	FakeOverride bool
	Overridden   []*Symbol
	// Linking
	Uniq     util.Option[UniqId]
	External bool
	// Canonical symbol (aliases may also be bound to this declaration)
	Symbol *Symbol
}

// HasAnnotation checks whether this declaration carries the given annotation.
func (d *Decl) HasAnnotation(name string) bool {
	return slices.Contains(d.Annotations, name)
}

// ============================================================================
// Arena
// ============================================================================

// Arena owns every declaration of a compilation.  Parent and containment
// relations are identifier lookups within the arena, so there is exactly one
// owner per declaration.
type Arena struct {
	// index 0 is reserved for NoDecl
	decls []*Decl
}

// NewArena constructs an empty arena.
func NewArena() *Arena {
	return &Arena{decls: []*Decl{nil}}
}

// Len returns the number of declarations in this arena.
func (a *Arena) Len() uint {
	return uint(len(a.decls) - 1)
}

// New allocates a declaration in this arena.  If the declaration has a parent,
// it is appended to that parent's members.  Parameters and variables are not
// members (they are tracked by the TypeParams and Params lists, or by the
// body, of their owner).
func (a *Arena) New(decl Decl) DeclID {
	index, err := safecast.Conv[uint32](len(a.decls))
	if err != nil {
		panic(fmt.Errorf("declaration arena overflow: %w", err))
	}
	//
	id := DeclID(index)
	a.decls = append(a.decls, &decl)
	//
	if decl.Parent.IsValid() && !decl.Kind.isLocalKind() {
		parent := a.Get(decl.Parent)
		parent.Members = append(parent.Members, id)
	}
	//
	return id
}

// Get returns the declaration with the given identifier.  This panics for an
// identifier not allocated by this arena.
func (a *Arena) Get(id DeclID) *Decl {
	if !id.IsValid() || int(id) >= len(a.decls) {
		panic(Inconsistent("invalid declaration #%d", id))
	}
	//
	return a.decls[id]
}

// Canonical returns the canonical symbol of the declaration to which a given
// symbol is bound.  Unbound symbols, and symbols of declarations not yet
// bound, are their own canonical symbol.
func (a *Arena) Canonical(symbol *Symbol) *Symbol {
	if owner, ok := OwnerOf(symbol); ok {
		if canonical := a.Get(owner).Symbol; canonical != nil {
			return canonical
		}
	}
	//
	return symbol
}

// Move reparents a declaration, removing it from its existing parent's
// members (if any) and appending it to the new parent's members.
func (a *Arena) Move(id DeclID, parent DeclID) {
	decl := a.Get(id)
	//
	if decl.Parent.IsValid() && !decl.Kind.isLocalKind() {
		old := a.Get(decl.Parent)
		old.Members = slices.DeleteFunc(old.Members, func(m DeclID) bool { return m == id })
	}
	//
	decl.Parent = parent
	//
	if !decl.Kind.isLocalKind() {
		p := a.Get(parent)
		p.Members = append(p.Members, id)
	}
}

// Bind binds a symbol to a given declaration, recording the symbol on the
// declaration as well.
func (a *Arena) Bind(id DeclID, symbol *Symbol) {
	symbol.Bind(id)
	a.Get(id).Symbol = symbol
}

// Enclosing returns the nearest strict ancestor of the given declaration with
// one of the given kinds, or NoDecl.
func (a *Arena) Enclosing(id DeclID, kinds ...Kind) DeclID {
	for p := a.Get(id).Parent; p.IsValid(); p = a.Get(p).Parent {
		if slices.Contains(kinds, a.Get(p).Kind) {
			return p
		}
	}
	//
	return NoDecl
}

// ModuleOf returns the module enclosing the given declaration, or NoDecl if it
// is not contained in any module.
func (a *Arena) ModuleOf(id DeclID) DeclID {
	if a.Get(id).Kind == KindModule {
		return id
	}
	//
	return a.Enclosing(id, KindModule)
}

// ModuleName returns the name of the module enclosing the given declaration,
// or the empty string.
func (a *Arena) ModuleName(id DeclID) string {
	if m := a.ModuleOf(id); m.IsValid() {
		return a.Get(m).Name
	}
	//
	return ""
}

// PackageOf returns the name of the package enclosing the given declaration.
func (a *Arena) PackageOf(id DeclID) string {
	if a.Get(id).Kind.IsPackageFragment() {
		return a.Get(id).Package
	} else if p := a.Enclosing(id, KindFile, KindPackage); p.IsValid() {
		return a.Get(p).Package
	}
	//
	return ""
}

// FqName returns the fully qualified name of the given declaration, formed
// from its package and the names of all enclosing declarations below that
// package.
func (a *Arena) FqName(id DeclID) string {
	var names []string
	//
	for p := id; p.IsValid(); p = a.Get(p).Parent {
		decl := a.Get(p)
		//
		if decl.Kind.IsPackageFragment() || decl.Kind == KindModule {
			break
		}
		//
		names = append(names, decl.Name)
	}
	//
	slices.Reverse(names)
	//
	if pkg := a.PackageOf(id); pkg != "" {
		names = append([]string{pkg}, names...)
	}
	//
	return strings.Join(names, ".")
}

// Children returns the members of a given declaration which have one of the
// given kinds.
func (a *Arena) Children(id DeclID, kinds ...Kind) []DeclID {
	var children []DeclID
	//
	for _, m := range a.Get(id).Members {
		if slices.Contains(kinds, a.Get(m).Kind) {
			children = append(children, m)
		}
	}
	//
	return children
}
