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
	"errors"
	"fmt"

	"github.com/consensys/go-irlink/pkg/ir"
	"github.com/consensys/go-irlink/pkg/library"
	"github.com/consensys/go-irlink/pkg/mangle"
	"github.com/consensys/go-irlink/pkg/stub"
	"github.com/consensys/go-irlink/pkg/util"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrDescriptorUnresolved is reported when a descriptor reference matches
	// no declaration, or more than one.
	ErrDescriptorUnresolved = errors.New("unresolved descriptor reference")
	// ErrUnknownModule is reported when attaching a module which is not in
	// the library.
	ErrUnknownModule = errors.New("unknown module")
	// ErrLinkerFailed is reported for any request made of a linker after a
	// linking pass has failed.
	ErrLinkerFailed = errors.New("linker failed")
)

// State of a linker.
type State uint8

const (
	// Idle linkers are waiting for a request.
	Idle State = iota
	// Resolving linkers are computing the closure of a request.
	Resolving
	// Failed linkers encountered a fatal error, and refuse all requests.
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Resolving:
		return "resolving"
	default:
		return "failed"
	}
}

// Linker lazily materialises declarations from a library into a session, on
// demand.  Each request computes the closure of the declarations reachable
// from it, using a worklist which is drained in FIFO order.  A declaration is
// read at most once, and only when it is reachable.
type Linker struct {
	session *Session
	library *library.Library
	config  Config
	state   State
	failure error
	// Modules attached so far, in order of attachment.
	modules  map[string]*library.Module
	attached []string
	// Owning module of every non-local identifier of an attached module.
	global map[ir.UniqId]string
	// Manifest entries of attached (non-forward) modules by qualified name.
	byFqName map[string][]location
	// Top-level forward declarations by qualified name.
	forwardByFqName map[string]ir.UniqIdKey
	// Forward declaration keys mapped to the keys of their real declarations.
	substitutes map[ir.UniqIdKey]ir.UniqIdKey
	// Worklist state.  The reachable and deserialized sets are always disjoint.
	reachable    *util.OrderedSet[ir.UniqIdKey]
	deserialized *util.OrderedSet[ir.UniqIdKey]
	parked       *util.OrderedSet[ir.UniqIdKey]
	forward      *util.OrderedSet[ir.UniqIdKey]
	// Materialised declarations by key, and the linker key of every flat
	// symbol created on behalf of a reference.
	decls   map[ir.UniqIdKey]ir.DeclID
	symbols map[*ir.Symbol]ir.UniqIdKey
	// Synthetic containers for materialised declarations.
	moduleDecls map[string]ir.DeclID
	files       map[fileKey]ir.DeclID
}

type location struct {
	module *library.Module
	entry  library.Entry
}

func (l location) key() ir.UniqIdKey {
	return ir.KeyOf(l.entry.Id, l.module.Name())
}

type fileKey struct {
	module string
	name   string
	pkg    string
}

// New constructs a linker for a given library, materialising into a given
// session.  The forward declarations module (if any) and all configured modules
// are attached immediately.
func New(session *Session, lib *library.Library, config Config) (*Linker, error) {
	if config.MaxNestingDepth == 0 {
		config.MaxNestingDepth = DefaultMaxNestingDepth
	}
	//
	l := &Linker{
		session:         session,
		library:         lib,
		config:          config,
		modules:         make(map[string]*library.Module),
		global:          make(map[ir.UniqId]string),
		byFqName:        make(map[string][]location),
		forwardByFqName: make(map[string]ir.UniqIdKey),
		substitutes:     make(map[ir.UniqIdKey]ir.UniqIdKey),
		reachable:       util.NewOrderedSet[ir.UniqIdKey](),
		deserialized:    util.NewOrderedSet[ir.UniqIdKey](),
		parked:          util.NewOrderedSet[ir.UniqIdKey](),
		forward:         util.NewOrderedSet[ir.UniqIdKey](),
		decls:           make(map[ir.UniqIdKey]ir.DeclID),
		symbols:         make(map[*ir.Symbol]ir.UniqIdKey),
		moduleDecls:     make(map[string]ir.DeclID),
		files:           make(map[fileKey]ir.DeclID),
	}
	//
	if forward, ok := config.ForwardDeclarations.Get(); ok {
		if err := l.Attach(forward); err != nil {
			return nil, err
		}
	}
	//
	for _, name := range config.Modules {
		if err := l.Attach(name); err != nil {
			return nil, err
		}
	}
	//
	return l, nil
}

// Session returns the session into which this linker materialises.
func (l *Linker) Session() *Session {
	return l.session
}

// State returns the current state of this linker.
func (l *Linker) State() State {
	return l.state
}

// Attached returns the names of all attached modules, in order of attachment.
func (l *Linker) Attached() []string {
	return l.attached
}

// Reachable returns the keys currently awaiting materialisation.  Outside of a
// linking pass this is always empty.
func (l *Linker) Reachable() []ir.UniqIdKey {
	return l.reachable.Items()
}

// Deserialized returns the keys of all records materialised so far, in order
// of materialisation.
func (l *Linker) Deserialized() []ir.UniqIdKey {
	return l.deserialized.Items()
}

// Parked returns the keys which were reached, but whose owning module has not
// been attached.
func (l *Linker) Parked() []ir.UniqIdKey {
	return l.parked.Items()
}

// Substitute returns the key of the real declaration registered for a given
// forward declaration key, if one has been discovered.
func (l *Linker) Substitute(key ir.UniqIdKey) (ir.UniqIdKey, bool) {
	sub, ok := l.substitutes[key]
	return sub, ok
}

// Lookup returns the materialised declaration for a given key.  Forward
// declaration keys transparently yield the real declaration, once it has been
// materialised.  A miss is not an error.
func (l *Linker) Lookup(key ir.UniqIdKey) (ir.DeclID, bool) {
	if sub, ok := l.substitutes[key]; ok {
		if id, ok := l.decls[sub]; ok {
			return id, true
		}
	}
	//
	id, ok := l.decls[key]
	//
	return id, ok
}

// Attach a module of the library to this linker.  Keys previously reached but
// parked because this module was not attached are reseeded, and the closure
// of them is computed.
func (l *Linker) Attach(name string) error {
	if l.state == Failed {
		return fmt.Errorf("%w: %w", ErrLinkerFailed, l.failure)
	} else if _, ok := l.modules[name]; ok {
		return nil
	}
	//
	module, ok := l.library.Module(name)
	if !ok {
		return fmt.Errorf("%w \"%s\" in library %s", ErrUnknownModule, name, l.library.Dir())
	}
	//
	l.modules[name] = module
	l.attached = append(l.attached, name)
	forward := l.isForward(name)
	//
	for _, entry := range module.Entries() {
		loc := location{module, entry}
		//
		switch {
		case forward && entry.IsTopLevel():
			l.forwardByFqName[entry.FqName] = loc.key()
		case !forward:
			if !entry.Id.IsLocal {
				if prev, ok := l.global[entry.Id]; ok {
					log.Debugf("declaration %s of module %s already provided by module %s", entry.Id, name, prev)
					continue
				}
				//
				l.global[entry.Id] = name
			}
			//
			l.byFqName[entry.FqName] = append(l.byFqName[entry.FqName], loc)
		}
	}
	//
	l.discoverSubstitutes()
	//
	log.Debugf("attached module %s (%d declarations, %d parked keys)", name, len(module.Entries()), l.parked.Len())
	// Reseed parked keys
	if l.parked.IsEmpty() || l.state != Idle {
		return nil
	}
	//
	for _, key := range l.parked.Items() {
		if _, ok := l.moduleOf(key); ok {
			l.parked.Remove(key)
			l.enqueue(key)
		}
	}
	//
	return l.pass()
}

// Resolve materialises the declaration with a given key, along with every
// declaration reachable from it.
func (l *Linker) Resolve(key ir.UniqIdKey) error {
	switch l.state {
	case Failed:
		return fmt.Errorf("%w: %w", ErrLinkerFailed, l.failure)
	case Resolving:
		// A request made during a pass simply joins it.
		l.enqueue(key)
		return nil
	}
	//
	l.enqueue(key)
	//
	return l.pass()
}

// ResolveSignature materialises the top-level declaration with a given
// signature, along with every declaration reachable from it.
func (l *Linker) ResolveSignature(sig ir.Signature) error {
	return l.Resolve(ir.KeyOf(mangle.GlobalId(sig), ""))
}

// ResolveSymbol materialises the declaration behind a given unbound symbol,
// binding it.  The symbol must be identified either by signature, or by a
// descriptor reference.  A symbol resolved by descriptor is bound as an alias,
// i.e. the declaration's own symbol remains ir.Arena.Canonical for it.
func (l *Linker) ResolveSymbol(symbol *ir.Symbol) error {
	if symbol.IsBound() {
		return nil
	} else if sig, ok := symbol.Signature().Get(); ok {
		return l.ResolveSignature(sig)
	} else if symbol.Descriptor() == nil {
		return fmt.Errorf("cannot resolve %s: neither signature nor descriptor", symbol)
	}
	//
	return l.run(func() error {
		resolved, err := l.resolveDescriptor(symbol.Kind(), symbol.Descriptor())
		if err != nil {
			return err
		} else if resolved != symbol {
			if owner, ok := ir.OwnerOf(resolved); ok {
				symbol.Bind(owner)
			}
		}
		//
		return l.drain()
	})
}

// Finish completes linking.  Every symbol which remains unbound (because no
// attached module provides it) is bound to a generated stub.  Afterwards, no
// symbol of any flat table is unbound.
func (l *Linker) Finish() error {
	if l.state == Failed {
		return fmt.Errorf("%w: %w", ErrLinkerFailed, l.failure)
	}
	//
	if !l.parked.IsEmpty() {
		log.Debugf("%d keys remain parked", l.parked.Len())
	}
	//
	generator := stub.NewGenerator(l.session.Arena, l.session.Table)
	//
	return l.run(func() error {
		count, err := generator.Generate()
		//
		log.Debugf("generated %d dependency stubs", count)
		//
		return err
	})
}

// pass runs a complete linking pass over whatever keys are reachable.
func (l *Linker) pass() error {
	return l.run(l.drain)
}

// run executes a given operation as a linking pass.  A consistency violation
// raised during the pass is turned into an error, so that a partial closure is
// never observable.
func (l *Linker) run(fn func() error) (err error) {
	var stats = util.NewPerfStats()
	//
	l.state = Resolving
	//
	defer func() {
		if r := recover(); r != nil {
			cerr, ok := r.(*ir.ConsistencyError)
			if !ok {
				panic(r)
			}
			//
			err = cerr
		}
		//
		if err != nil {
			l.state, l.failure = Failed, err
			log.Debugf("linking pass failed: %s", err)
		} else {
			l.state = Idle
		}
		//
		stats.Log("Linking pass")
	}()
	//
	if err := fn(); err != nil {
		return err
	}
	//
	l.reconcile()
	//
	return nil
}

// drain the worklist until it is empty.  Forward declarations which were
// reached, but never matched with a real declaration, are materialised only
// once nothing else is reachable.
func (l *Linker) drain() error {
	for {
		for !l.reachable.IsEmpty() {
			if err := l.step(l.reachable.PopFirst()); err != nil {
				return err
			}
		}
		//
		if l.forward.IsEmpty() {
			return nil
		} else if err := l.flushForward(); err != nil {
			return err
		}
	}
}

// step processes a single key taken from the worklist.
func (l *Linker) step(key ir.UniqIdKey) error {
	if l.deserialized.Contains(key) {
		return nil
	} else if sub, ok := l.substitutes[key]; ok {
		log.Debugf("substituting %s for forward declaration %s", sub, key)
		l.enqueue(sub)
		//
		return nil
	}
	//
	module, ok := l.moduleOf(key)
	//
	switch {
	case !ok:
		// Owning module not attached (yet)
		log.Debugf("parking %s", key)
		l.parked.Insert(key)
	case l.isForward(module.Name()):
		l.forward.Insert(key)
	default:
		return l.materialize(key, module, false)
	}
	//
	return nil
}

// enqueue a key as reachable, unless it has been materialised already.  Keys
// of nested declarations are replaced by the key of the record holding them,
// and forward declarations by their substitutes.
func (l *Linker) enqueue(key ir.UniqIdKey) {
	if sub, ok := l.substitutes[key]; ok {
		key = sub
	}
	//
	key = l.recordKey(key)
	//
	if !l.deserialized.Contains(key) {
		l.reachable.Insert(key)
	}
}

// recordKey returns the key of the record holding the declaration with a given
// key, or the key itself if this cannot (yet) be determined.
func (l *Linker) recordKey(key ir.UniqIdKey) ir.UniqIdKey {
	module, ok := l.moduleOf(key)
	if !ok {
		return key
	}
	//
	if entry, ok := module.Entry(key.Id); ok {
		return ir.KeyOf(entry.Record, module.Name())
	}
	//
	return key
}

// moduleOf determines the attached module owning a given key, if any.
func (l *Linker) moduleOf(key ir.UniqIdKey) (*library.Module, bool) {
	if key.Id.IsLocal {
		module, ok := l.modules[key.Module]
		return module, ok
	} else if name, ok := l.global[key.Id]; ok {
		return l.modules[name], true
	}
	//
	return nil, false
}

func (l *Linker) isForward(module string) bool {
	forward, ok := l.config.ForwardDeclarations.Get()
	return ok && forward == module
}

// materialize reads the record with a given key and deserialises it into the
// session, enqueuing every key it references.
func (l *Linker) materialize(key ir.UniqIdKey, module *library.Module, forward bool) error {
	record, err := module.ReadRecord(key.Id, l.config.MaxNestingDepth)
	if err != nil {
		return err
	}
	// Mark first, since resolving descriptor references can re-enter.
	l.reachable.Remove(key)
	l.deserialized.Insert(key)
	//
	d := newDeserializer(l, record.Module)
	//
	if _, err := d.decl(&record.Decl, l.fileFor(record.Module, record.File, record.Package, forward)); err != nil {
		return err
	}
	//
	log.Debugf("deserialized %s (%s %s)", key, record.Decl.Kind, record.Decl.Name)
	//
	for _, ref := range d.references.Items() {
		l.enqueue(ref)
	}
	//
	return nil
}

// materializeNow materialises the record holding a given key immediately,
// rather than via the worklist.  This returns false if the owning module is not
// attached.
func (l *Linker) materializeNow(key ir.UniqIdKey) (bool, error) {
	if sub, ok := l.substitutes[key]; ok {
		key = sub
	}
	//
	module, ok := l.moduleOf(key)
	//
	if !ok {
		return false, nil
	}
	//
	record := l.recordKey(key)
	//
	if l.deserialized.Contains(record) {
		return true, nil
	}
	//
	return true, l.materialize(record, module, l.isForward(module.Name()))
}

// fileFor returns the file into which a record is materialised, creating it
// (and its module) on first use.  Forward declarations are bundled into one
// synthetic file per package.
func (l *Linker) fileFor(module string, name string, pkg string, forward bool) ir.DeclID {
	if forward {
		name = ForwardFileName
	}
	//
	key := fileKey{module, name, pkg}
	//
	if id, ok := l.files[key]; ok {
		return id
	}
	//
	mid, ok := l.moduleDecls[module]
	if !ok {
		mid = l.session.Builder.Module(module)
		l.session.Arena.Get(mid).External = true
		l.moduleDecls[module] = mid
	}
	//
	id := l.session.Builder.File(mid, name, pkg)
	l.session.Arena.Get(id).External = true
	l.files[key] = id
	//
	return id
}
