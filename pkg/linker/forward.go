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
	"sort"

	"github.com/consensys/go-irlink/pkg/ir"
	log "github.com/sirupsen/logrus"
)

// discoverSubstitutes matches top-level forward declarations with the real
// declarations of the same qualified name and kind, as provided by attached
// modules.
func (l *Linker) discoverSubstitutes() {
	forward, ok := l.config.ForwardDeclarations.Get()
	if !ok {
		return
	}
	//
	module, ok := l.modules[forward]
	if !ok {
		return
	}
	//
	for fqName, placeholder := range l.forwardByFqName {
		if _, ok := l.substitutes[placeholder]; ok {
			continue
		}
		//
		entry, _ := module.Entry(placeholder.Id)
		//
		for _, loc := range l.byFqName[fqName] {
			if loc.entry.IsTopLevel() && loc.entry.Kind == entry.Kind {
				l.substitutes[placeholder] = loc.key()
				log.Debugf("forward declaration %s (%s) is %s of module %s", placeholder, fqName, loc.entry.Id,
					loc.module.Name())
				//
				break
			}
		}
	}
}

// flushForward materialises every reached forward declaration for which no
// real declaration has been discovered.  Those which have since been matched
// are replaced by their substitutes.
func (l *Linker) flushForward() error {
	for _, key := range l.forward.Items() {
		l.forward.Remove(key)
		//
		if l.deserialized.Contains(key) {
			continue
		} else if sub, ok := l.substitutes[key]; ok {
			l.enqueue(sub)
			continue
		}
		//
		log.Debugf("materialising unmatched forward declaration %s", key)
		//
		module, _ := l.moduleOf(key)
		//
		if err := l.materialize(key, module, true); err != nil {
			return err
		}
	}
	//
	return nil
}

// reconcile binds any symbol allocated for a forward declaration to the real
// declaration substituted for it, once that has been materialised.  Such a
// symbol then aliases the real declaration's own symbol (see
// ir.Arena.Canonical).
func (l *Linker) reconcile() {
	var placeholders = make([]ir.UniqIdKey, 0, len(l.substitutes))
	//
	for placeholder := range l.substitutes {
		placeholders = append(placeholders, placeholder)
	}
	//
	sort.Slice(placeholders, func(i, j int) bool { return placeholders[i].Id.Index < placeholders[j].Id.Index })
	//
	for _, placeholder := range placeholders {
		owner, ok := l.decls[l.substitutes[placeholder]]
		if !ok {
			continue
		}
		//
		for _, table := range l.session.Table.FlatTables() {
			symbol, ok := table.LookupKey(ir.LinkKey(placeholder))
			//
			if !ok || symbol.IsBound() {
				continue
			} else if kind := l.session.Arena.Get(owner).Kind; symbol.Kind() != kind {
				panic(ir.Inconsistent("forward declaration %s is a %s, but %s is a %s", placeholder, symbol.Kind(),
					l.substitutes[placeholder], kind))
			}
			//
			symbol.Bind(owner)
		}
	}
}
