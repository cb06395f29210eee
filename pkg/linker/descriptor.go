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
package linker

import (
	"fmt"
	"slices"

	"github.com/consensys/go-irlink/pkg/ir"
	"github.com/consensys/go-irlink/pkg/util"
	log "github.com/sirupsen/logrus"
)

// canonical returns the key (and signature, if any) by which a reference to
// the declaration with a given key should be made.  References to forward
// declarations which have been matched become references to the real
// declarations.
func (l *Linker) canonical(key ir.UniqIdKey, sig ir.Signature) (ir.UniqIdKey, ir.Signature) {
	sub, ok := l.substitutes[key]
	if !ok {
		return key, sig
	}
	//
	if module, ok := l.moduleOf(sub); ok {
		if entry, ok := module.Entry(sub.Id); ok {
			return sub, entry.Signature
		}
	}
	//
	return sub, ""
}

// descriptorKey is the structural key of a symbol allocated for a descriptor
// reference which could not (yet) be resolved.
func descriptorKey(ref *ir.DescriptorRef) ir.Key {
	return ir.LinkKey(ir.UniqIdKey{Id: ref.Uniq, Module: ref.String()})
}

// resolveDescriptor resolves a reference made in terms of the semantic model.
// The containing class (or package) is located by qualified name and its
// members are matched against the reference.  When no attached module
// provides the container, an unbound symbol carrying the descriptor is
// returned instead.
func (l *Linker) resolveDescriptor(kind ir.Kind, ref *ir.DescriptorRef) (*ir.Symbol, error) {
	flat, ok := l.session.Table.Flat(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s refers to a %s", ErrDescriptorUnresolved, ref, kind)
	}
	//
	candidates, known, err := l.descriptorCandidates(ref)
	if err != nil {
		return nil, err
	} else if !known {
		log.Debugf("container of %s not provided by any attached module", ref)
		//
		return flat.ReferenceKey(descriptorKey(ref), func(util.Option[ir.Signature]) *ir.Symbol {
			symbol := ir.NewSymbol(kind)
			symbol.SetDescriptor(ref)
			//
			return symbol
		}), nil
	}
	//
	matches, err := l.match(kind, ref, candidates)
	if err != nil {
		return nil, err
	} else if len(matches) != 1 {
		return nil, fmt.Errorf("%w: %s %s matched %d declarations", ErrDescriptorUnresolved, kind, ref, len(matches))
	}
	//
	symbol := l.session.Arena.Get(matches[0]).Symbol
	if symbol == nil {
		panic(ir.Inconsistent("%s %s resolved to undeclared #%d", kind, ref, matches[0]))
	}
	//
	return symbol, nil
}

// descriptorCandidates materialises the container named by a descriptor
// reference, returning the declarations amongst which the member is sought.
func (l *Linker) descriptorCandidates(ref *ir.DescriptorRef) ([]ir.DeclID, bool, error) {
	if ref.Container != "" {
		class, known, err := l.materializeFqName(ref.ContainerFqName(), ir.KindClass)
		if err != nil || !known {
			return nil, known, err
		}
		//
		return l.session.Arena.Get(class).Members, true, nil
	}
	// Package-level members
	var (
		fqName = ref.Name
		ids    []ir.DeclID
	)
	//
	if ref.Package != "" {
		fqName = ref.Package + "." + ref.Name
	}
	//
	for _, loc := range l.byFqName[fqName] {
		if !loc.entry.IsTopLevel() {
			continue
		} else if _, err := l.materializeNow(loc.key()); err != nil {
			return nil, true, err
		} else if id, ok := l.decls[loc.key()]; ok {
			ids = append(ids, id)
		}
	}
	//
	return ids, len(ids) > 0, nil
}

// materializeFqName materialises the declaration of a given kind with a given
// qualified name, returning false if no attached module provides one.
func (l *Linker) materializeFqName(fqName string, kind ir.Kind) (ir.DeclID, bool, error) {
	for _, loc := range l.byFqName[fqName] {
		if loc.entry.Kind != kind.String() {
			continue
		} else if _, err := l.materializeNow(loc.key()); err != nil {
			return ir.NoDecl, true, err
		} else if id, ok := l.decls[loc.key()]; ok {
			return id, true, nil
		}
	}
	//
	return ir.NoDecl, false, nil
}

// match the candidate members of a container against a descriptor reference.
// Enum entries and enum helpers are matched by name alone, whilst other
// members are matched by stable identifier.  Fake overrides have no
// declaration of their own, so the real members they override are matched
// instead.
func (l *Linker) match(kind ir.Kind, ref *ir.DescriptorRef, candidates []ir.DeclID) ([]ir.DeclID, error) {
	var (
		arena   = l.session.Arena
		matches []ir.DeclID
	)
	//
	for _, c := range candidates {
		decl := arena.Get(c)
		//
		if decl.Name != ref.Name {
			continue
		}
		//
		switch ref.Kind {
		case ir.DescriptorEnumEntry:
			if decl.Kind == ir.KindEnumEntry {
				matches = append(matches, c)
			}
		case ir.DescriptorEnumHelper:
			if decl.Kind == kind {
				matches = append(matches, c)
			}
		case ir.DescriptorFakeOverride:
			if !decl.FakeOverride {
				continue
			}
			//
			overridden, err := l.overridden(c)
			if err != nil {
				return nil, err
			}
			//
			for _, o := range overridden {
				if l.matchesId(o, kind, ref.Uniq) && !slices.Contains(matches, o) {
					matches = append(matches, o)
				}
			}
		default:
			if l.matchesId(c, kind, ref.Uniq) {
				matches = append(matches, c)
			}
		}
	}
	//
	return matches, nil
}

func (l *Linker) matchesId(id ir.DeclID, kind ir.Kind, uniq ir.UniqId) bool {
	decl := l.session.Arena.Get(id)
	actual, ok := decl.Uniq.Get()
	//
	return ok && decl.Kind == kind && actual == uniq
}

// overridden expands a fake override into the set of real declarations it
// overrides, materialising them as necessary.
func (l *Linker) overridden(id ir.DeclID) ([]ir.DeclID, error) {
	var (
		arena    = l.session.Arena
		worklist = slices.Clone(arena.Get(id).Overridden)
		visited  = make(map[*ir.Symbol]bool)
		members  []ir.DeclID
	)
	//
	for len(worklist) > 0 {
		symbol := worklist[0]
		worklist = worklist[1:]
		//
		if visited[symbol] {
			continue
		}
		//
		visited[symbol] = true
		//
		if key, ok := l.symbols[symbol]; ok && !symbol.IsBound() {
			if _, err := l.materializeNow(key); err != nil {
				return nil, err
			}
		}
		//
		owner, ok := ir.OwnerOf(symbol)
		if !ok {
			continue
		} else if decl := arena.Get(owner); decl.FakeOverride {
			worklist = append(worklist, decl.Overridden...)
		} else {
			members = append(members, owner)
		}
	}
	//
	return members, nil
}
