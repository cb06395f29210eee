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
	"strings"

	"github.com/consensys/go-irlink/pkg/ir"
)

// AlwaysExported is the annotation marking a declaration as part of the
// externally visible surface regardless of its visibility.
const AlwaysExported = "kotlin.PublishedApi"

// ExportChecker determines which declarations belong to the externally visible
// surface of a module, and are therefore identified by stable signatures.  All
// other declarations are purely module-internal and keyed structurally.
type ExportChecker struct {
	arena *ir.Arena
}

// NewExportChecker constructs an export checker for declarations held in a
// given arena.
func NewExportChecker(arena *ir.Arena) *ExportChecker {
	return &ExportChecker{arena}
}

// IsExported determines whether a given declaration is part of the externally
// visible surface.  Package fragments and modules are always exported.
// Otherwise, a declaration is exported if it is marked as always exported, or
// if it has public or internal visibility and its container is exported.
func (p *ExportChecker) IsExported(id ir.DeclID) bool {
	decl := p.arena.Get(id)
	//
	switch decl.Kind {
	case ir.KindModule, ir.KindFile, ir.KindPackage:
		return true
	case ir.KindValueParameter, ir.KindVariable:
		return false
	case ir.KindTypeParameter:
		return p.IsExported(decl.Parent)
	case ir.KindFunction:
		// Accessors follow their property
		if decl.Accessor != ir.NotAccessor && decl.Property.IsValid() {
			return p.IsExported(decl.Property)
		}
	case ir.KindField:
		// Backing fields follow their property, unless they are constants.
		if decl.Property.IsValid() && !decl.Const {
			return p.IsExported(decl.Property)
		}
	case ir.KindClass, ir.KindEnumEntry, ir.KindConstructor, ir.KindProperty:
		// fall through to the general case
	default:
		return false
	}
	//
	if !hasUsableName(decl) {
		return false
	} else if decl.HasAnnotation(AlwaysExported) {
		return true
	} else if decl.Visibility != ir.Public && decl.Visibility != ir.Internal {
		return false
	} else if !decl.Parent.IsValid() {
		// Detached from any module
		return false
	}
	// Declarations within bodies are local, whatever their visibility.
	switch p.arena.Get(decl.Parent).Kind {
	case ir.KindFunction, ir.KindConstructor:
		return false
	}
	//
	return p.IsExported(decl.Parent)
}

// Synthetic and anonymous declarations have no usable name.  Constructors are
// the only exception to the rule that special names are not usable.
func hasUsableName(decl *ir.Decl) bool {
	if decl.Kind == ir.KindConstructor {
		return true
	}
	//
	return decl.Name != "" && !strings.HasPrefix(decl.Name, "<")
}
