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
	"strings"
)

// Signature is the stable, cross-compilation identity of an externally visible
// declaration.  It has the form "package/path", where path is the dotted
// sequence of enclosing declaration segments ending with the declaration
// itself (see the mangle package for the grammar of segments).
type Signature string

// Package returns the package component of this signature.
func (s Signature) Package() string {
	if i := strings.IndexByte(string(s), '/'); i >= 0 {
		return string(s[:i])
	}
	//
	return ""
}

// Declaration returns the path component of this signature.
func (s Signature) Declaration() string {
	if i := strings.IndexByte(string(s), '/'); i >= 0 {
		return string(s[i+1:])
	}
	//
	return string(s)
}

// FqName returns the fully qualified name described by this signature, with
// any parameter list or segment suffix in the final segment removed.  For
// classes this is exactly the qualified class name.
func (s Signature) FqName() string {
	var (
		pkg  = s.Package()
		path = strings.Join(s.Segments(), ".")
	)
	//
	if pkg == "" {
		return path
	}
	//
	return pkg + "." + path
}

// Segments splits the path component of this signature into the simple names
// of its segments.  Parameter lists, type arguments and accessor suffixes are
// removed.  Only the final segment of a signature can carry a suffix, hence
// splitting stops at the first one encountered.
func (s Signature) Segments() []string {
	var (
		segments []string
		decl     = s.Declaration()
		start    int
	)
	//
	for i := 0; i < len(decl); i++ {
		switch decl[i] {
		case '(', ':', '@', '<':
			// <init> is a name, not a type parameter list.
			if !strings.HasPrefix(decl[i:], "<init>") {
				return append(segments, simpleName(decl[start:]))
			}
		case '.':
			segments = append(segments, simpleName(decl[start:i]))
			start = i + 1
		}
	}
	//
	return append(segments, simpleName(decl[start:]))
}

// simpleName strips everything following the name itself in a segment.
func simpleName(segment string) string {
	if strings.HasPrefix(segment, "<init>") {
		return "<init>"
	}
	//
	if i := strings.IndexAny(segment, "($:@<"); i >= 0 {
		return segment[:i]
	}
	//
	return segment
}

// IsTypeParameter checks whether this is the signature of a type parameter,
// returning its positional index when it is.
func (s Signature) IsTypeParameter() (uint, bool) {
	_, index, ok := splitTypeParameter(s.Declaration())
	return index, ok
}

// Parent returns the signature of the declaration enclosing this one.  For a
// type parameter this is its owner, otherwise it is the enclosing class.
// Top-level declarations have no parent.
func (s Signature) Parent() (Signature, bool) {
	var decl = s.Declaration()
	//
	if owner, _, ok := splitTypeParameter(decl); ok {
		return Signature(s.Package() + "/" + owner), true
	}
	//
	head := decl[:suffixStart(decl)]
	//
	if i := strings.LastIndexByte(head, '.'); i >= 0 {
		return Signature(s.Package() + "/" + head[:i]), true
	}
	//
	return "", false
}

// Name returns the name of the final segment, including any module qualifier
// (e.g. "f$core" for an internal function f of module core).  Type parameters
// have no name.
func (s Signature) Name() string {
	var decl = s.Declaration()
	//
	if _, _, ok := splitTypeParameter(decl); ok {
		return ""
	}
	//
	head := decl[:suffixStart(decl)]
	//
	if i := strings.LastIndexByte(head, '.'); i >= 0 {
		return head[i+1:]
	}
	//
	return head
}

// Arity returns the number of value parameters encoded in the parameter list
// of this signature, and whether an extension receiver precedes them.  This
// fails for signatures without a parameter list.
func (s Signature) Arity() (arity uint, receiver bool, ok bool) {
	var (
		decl  = s.Declaration()
		start = suffixStart(decl)
	)
	//
	if _, _, tp := splitTypeParameter(decl); tp || start == len(decl) || decl[start] != '(' {
		return 0, false, false
	}
	//
	end := strings.IndexByte(decl[start:], ')')
	if end < 0 {
		return 0, false, false
	}
	//
	params := decl[start+1 : start+end]
	//
	if params == "" {
		return 0, false, true
	}
	//
	for i, param := range splitTopLevel(params, ';') {
		if i == 0 && strings.HasPrefix(param, "@") {
			receiver = true
		} else {
			arity++
		}
	}
	//
	return arity, receiver, true
}

// Accessor returns the accessor kind encoded by this signature, which is
// NotAccessor for everything other than property getters and setters.
func (s Signature) Accessor() AccessorKind {
	var (
		decl   = s.Declaration()
		suffix = decl[suffixStart(decl):]
	)
	//
	switch {
	case strings.HasPrefix(suffix, ":getter:"):
		return Getter
	case strings.HasPrefix(suffix, ":setter:"):
		return Setter
	default:
		return NotAccessor
	}
}

// IsProperty checks whether this is the signature of a property.
func (s Signature) IsProperty() bool {
	var decl = s.Declaration()
	//
	if _, _, tp := splitTypeParameter(decl); tp {
		return false
	}
	//
	return strings.HasPrefix(decl[suffixStart(decl):], ":prop:")
}

// IsField checks whether this is the signature of a field.
func (s Signature) IsField() bool {
	var decl = s.Declaration()
	//
	return strings.HasPrefix(decl[suffixStart(decl):], ":field:")
}

// suffixStart returns the position of the first character which ends the name
// of the final segment, or the length of the path if there is none.
func suffixStart(decl string) int {
	for i := 0; i < len(decl); i++ {
		switch decl[i] {
		case '(', ':', '@', '<':
			if !strings.HasPrefix(decl[i:], "<init>") {
				return i
			}
			// skip over <init>
			i += len("<init>") - 1
		}
	}
	//
	return len(decl)
}

// splitTypeParameter splits "owner:tp:i" into its owner path and index.
func splitTypeParameter(decl string) (string, uint, bool) {
	i := strings.LastIndex(decl, ":tp:")
	if i < 0 {
		return "", 0, false
	}
	//
	index, err := strconv.ParseUint(decl[i+len(":tp:"):], 10, 32)
	if err != nil {
		return "", 0, false
	}
	//
	return decl[:i], uint(index), true
}

// splitTopLevel splits a string on a separator, ignoring separators nested
// within type arguments.
func splitTopLevel(s string, sep byte) []string {
	var (
		parts []string
		depth int
		start int
	)
	//
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[', '<':
			depth++
		case ']', '>':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	//
	return append(parts, s[start:])
}

// HasReceiver checks whether the declaration identified by this signature is
// an extension, i.e. has an extension receiver.
func (s Signature) HasReceiver() bool {
	var (
		decl   = s.Declaration()
		suffix = decl[suffixStart(decl):]
	)
	//
	if _, _, tp := splitTypeParameter(decl); tp {
		return false
	} else if _, receiver, ok := s.Arity(); ok {
		return receiver
	}
	//
	return strings.HasPrefix(suffix, "@") || strings.HasPrefix(suffix, ":prop:@") ||
		strings.HasPrefix(suffix, ":getter:@") || strings.HasPrefix(suffix, ":setter:@")
}
