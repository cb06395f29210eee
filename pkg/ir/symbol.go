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

	"github.com/consensys/go-irlink/pkg/util"
)

// Binding captures the state of a symbol.  This is either Unbound or Bound
// and, by construction, an owner can only be obtained from the latter.
type Binding interface {
	isBinding()
}

// Unbound is the state of a symbol which has been allocated, but whose
// declaration has not (yet) been materialised.
type Unbound struct{}

// Bound is the state of a symbol whose declaration has been materialised.
type Bound struct {
	Owner DeclID
}

func (Unbound) isBinding() {}
func (Bound) isBinding()   {}

// Symbol is the identity of exactly one declaration.  A symbol can be held
// (e.g. as the target of a call) long before the declaration it refers to
// exists.  A symbol transitions from Unbound to Bound at most once.
//
// Every declaration has one canonical symbol, recorded in Decl.Symbol.  A
// symbol allocated for a placeholder (a forward declaration, or a descriptor
// reference) which is later resolved to a declaration with a symbol of its own
// is bound to that declaration as an alias.  Aliases are never interned under
// the declaration's own key, so two symbols denote the same declaration exactly
// when they are bound to the same owner (see Arena.Canonical).
type Symbol struct {
	kind       Kind
	state      Binding
	signature  util.Option[Signature]
	descriptor *DescriptorRef
}

// NewSymbol constructs a fresh unbound symbol of the given kind.
func NewSymbol(kind Kind) *Symbol {
	return &Symbol{kind, Unbound{}, util.None[Signature](), nil}
}

// NewPublicSymbol constructs a fresh unbound symbol of the given kind, which
// is identified by the given signature.
func NewPublicSymbol(kind Kind, signature Signature) *Symbol {
	return &Symbol{kind, Unbound{}, util.Some(signature), nil}
}

// Kind returns the kind of declaration this symbol refers to.
func (s *Symbol) Kind() Kind {
	return s.kind
}

// State returns the binding state of this symbol.
func (s *Symbol) State() Binding {
	return s.state
}

// IsBound checks whether this symbol has been bound to its declaration.
func (s *Symbol) IsBound() bool {
	_, ok := s.state.(Bound)
	return ok
}

// Signature returns the stable signature of this symbol, when it has one.
func (s *Symbol) Signature() util.Option[Signature] {
	return s.signature
}

// IsPublic determines whether this symbol is identified by a stable signature.
func (s *Symbol) IsPublic() bool {
	return s.signature.HasValue()
}

// Descriptor returns the semantic-model reference attached to this symbol, or
// nil if there is none.
func (s *Symbol) Descriptor() *DescriptorRef {
	return s.descriptor
}

// SetDescriptor attaches a semantic-model reference to this symbol.
func (s *Symbol) SetDescriptor(ref *DescriptorRef) {
	s.descriptor = ref
}

// Bind this symbol to its owning declaration.  Binding an already bound symbol
// is an internal consistency violation.
func (s *Symbol) Bind(owner DeclID) {
	if b, ok := s.state.(Bound); ok {
		panic(Inconsistent("symbol %s already bound to #%d (rebinding to #%d)", s, b.Owner, owner))
	} else if !owner.IsValid() {
		panic(Inconsistent("symbol %s bound to invalid declaration", s))
	}
	//
	s.state = Bound{owner}
}

// OwnerOf returns the owner of a given symbol, or false if it is unbound.
func OwnerOf(s *Symbol) (DeclID, bool) {
	if b, ok := s.state.(Bound); ok {
		return b.Owner, true
	}
	//
	return NoDecl, false
}

func (s *Symbol) String() string {
	var state = "unbound"
	//
	if b, ok := s.state.(Bound); ok {
		state = fmt.Sprintf("#%d", b.Owner)
	}
	//
	if sig, ok := s.signature.Get(); ok {
		return fmt.Sprintf("%s %s (%s)", s.kind, sig, state)
	} else if s.descriptor != nil {
		return fmt.Sprintf("%s %s (%s)", s.kind, s.descriptor, state)
	}
	//
	return fmt.Sprintf("%s <local> (%s)", s.kind, state)
}

// ============================================================================
// Descriptor references
// ============================================================================

// DescriptorKind identifies how a member is located within its container when
// resolving a descriptor reference.
type DescriptorKind uint8

const (
	// DescriptorMember is an ordinary member, matched by its stable id.
	DescriptorMember DescriptorKind = iota
	// DescriptorEnumEntry is an enum entry, matched by simple name.
	DescriptorEnumEntry
	// DescriptorEnumHelper is a synthetic enum static helper (values,
	// valueOf, entries), matched by simple name.
	DescriptorEnumHelper
	// DescriptorFakeOverride is an overridden member with no declaration of
	// its own.  The real overridden members are matched instead.
	DescriptorFakeOverride
)

// DescriptorRef is a reference into another module expressed in terms of the
// semantic model, rather than a linker signature.  It names the containing
// class (or package) and the member sought within it.
type DescriptorRef struct {
	// Package containing the declaration.
	Package string
	// Dotted path of the containing class relative to the package, or empty
	// for a package-level member.
	Container string
	// Simple name of the member.
	Name string
	// Protocol used to match the member.
	Kind DescriptorKind
	// Stable id of the member, as recorded by the semantic model.
	Uniq UniqId
}

// ContainerFqName returns the fully qualified name of the containing class or
// package.
func (d *DescriptorRef) ContainerFqName() string {
	switch {
	case d.Container == "":
		return d.Package
	case d.Package == "":
		return d.Container
	default:
		return d.Package + "." + d.Container
	}
}

func (d *DescriptorRef) String() string {
	return fmt.Sprintf("%s::%s", d.ContainerFqName(), d.Name)
}

// ============================================================================
// Consistency errors
// ============================================================================

// ConsistencyError signals a violated internal invariant, such as binding an
// already bound symbol or leaving a scope with undeclared locals.  These
// indicate either corrupted input libraries or a bug upstream in declaration
// construction, and are never retried.  They are raised with panic.
type ConsistencyError struct {
	Message string
}

// Inconsistent constructs a consistency error from a format string.
func Inconsistent(format string, args ...any) *ConsistencyError {
	return &ConsistencyError{fmt.Sprintf(format, args...)}
}

func (e *ConsistencyError) Error() string {
	return "internal consistency violation: " + e.Message
}
