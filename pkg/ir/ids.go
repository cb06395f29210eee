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
	"strconv"
	"strings"
)

// DeclID identifies a declaration held in an Arena.  Identifiers are only
// meaningful with respect to the arena which allocated them.
type DeclID uint32

// NoDecl is the sentinel identifier which never refers to a declaration.
const NoDecl DeclID = 0

// IsValid returns true if this identifier could refer to a declaration.
func (id DeclID) IsValid() bool {
	return id != NoDecl
}

// UniqId is the linker-level identity of a declaration.  A non-local identifier
// is derived from the stable signature hash of the declaration and, hence, can
// be compared directly across modules.  By contrast, a local identifier only
// disambiguates declarations within a single module and must be paired with
// that module (see UniqIdKey) to be globally unique.
type UniqId struct {
	Index   uint64
	IsLocal bool
}

// GlobalId constructs a non-local identifier.
func GlobalId(index uint64) UniqId {
	return UniqId{index, false}
}

// LocalId constructs a module-local identifier.
func LocalId(index uint64) UniqId {
	return UniqId{index, true}
}

// RecordName returns the name of the on-disk record holding the declaration
// with this identifier, using the given extension (without leading dot).
func (u UniqId) RecordName(ext string) string {
	return fmt.Sprintf("%s.%s", u.String(), ext)
}

func (u UniqId) String() string {
	if u.IsLocal {
		return fmt.Sprintf("%dL", u.Index)
	}
	//
	return fmt.Sprintf("%dG", u.Index)
}

// ParseUniqId parses an identifier in the form produced by String (e.g. "7G"
// or "12L").
func ParseUniqId(s string) (UniqId, error) {
	var local bool
	//
	switch {
	case strings.HasSuffix(s, "L"):
		local = true
	case strings.HasSuffix(s, "G"):
		local = false
	default:
		return UniqId{}, fmt.Errorf("malformed identifier \"%s\"", s)
	}
	//
	index, err := strconv.ParseUint(s[:len(s)-1], 10, 64)
	if err != nil {
		return UniqId{}, fmt.Errorf("malformed identifier \"%s\": %w", s, err)
	}
	//
	return UniqId{index, local}, nil
}

// UniqIdKey is a globally unique key for a declaration.  The module component
// is present only for local identifiers.
type UniqIdKey struct {
	Id     UniqId
	Module string
}

// KeyOf constructs the key for a given identifier originating from a given
// module.  The module is dropped for non-local identifiers.
func KeyOf(id UniqId, module string) UniqIdKey {
	if id.IsLocal {
		return UniqIdKey{id, module}
	}
	//
	return UniqIdKey{id, ""}
}

func (k UniqIdKey) String() string {
	if k.Id.IsLocal {
		return fmt.Sprintf("%s@%s", k.Id.String(), k.Module)
	}
	//
	return k.Id.String()
}

// Key is a structural key identifying a declaration within the current
// compilation only.  It is either the arena identifier of an in-memory
// declaration, or the linker key of a declaration which has been (or will be)
// read from a library.
type Key struct {
	decl DeclID
	uniq UniqIdKey
	// Distinguishes the two forms, since the zero UniqIdKey is a valid key.
	linked bool
}

// DeclKey returns the structural key for an in-memory declaration.
func DeclKey(id DeclID) Key {
	return Key{decl: id}
}

// LinkKey returns the structural key for a declaration known to the linker.
func LinkKey(key UniqIdKey) Key {
	return Key{uniq: key, linked: true}
}

// Decl returns the declaration identified by this key, if it is one.
func (k Key) Decl() (DeclID, bool) {
	return k.decl, !k.linked
}

// Link returns the linker key identified by this key, if it is one.
func (k Key) Link() (UniqIdKey, bool) {
	return k.uniq, k.linked
}

func (k Key) String() string {
	if k.linked {
		return k.uniq.String()
	}
	//
	return fmt.Sprintf("#%d", k.decl)
}
