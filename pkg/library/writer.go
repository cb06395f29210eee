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
package library

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/consensys/go-irlink/pkg/binfile"
	"github.com/consensys/go-irlink/pkg/ir"
	"github.com/consensys/go-irlink/pkg/mangle"
	"github.com/consensys/go-irlink/pkg/util"
	log "github.com/sirupsen/logrus"
)

// ============================================================================
// Module Writer
// ============================================================================

// ModuleWriter writes the records of a single module into a library
// directory, accumulating its manifest as it goes.
type ModuleWriter struct {
	dir      string
	manifest Manifest
	ids      map[ir.UniqId]bool
}

// NewModuleWriter constructs a writer for a module of the given name, within
// the given library directory.
func NewModuleWriter(dir string, name string) *ModuleWriter {
	version := fmt.Sprintf("%d.%d", binfile.RECORD_MAJOR_VERSION, binfile.RECORD_MINOR_VERSION)
	//
	return &ModuleWriter{
		dir:      filepath.Join(dir, name),
		manifest: Manifest{Name: name, Version: version},
		ids:      make(map[ir.UniqId]bool),
	}
}

// AddFile records a source file of this module.
func (p *ModuleWriter) AddFile(name string, pkg string) {
	p.manifest.Files = append(p.manifest.Files, FileEntry{name, pkg})
}

// AddDependency records a module on which this module depends.
func (p *ModuleWriter) AddDependency(name string) {
	if !slices.Contains(p.manifest.Dependencies, name) {
		p.manifest.Dependencies = append(p.manifest.Dependencies, name)
	}
}

// Add writes a given record, registering every addressable declaration within
// it in the manifest.
func (p *ModuleWriter) Add(record *binfile.Record) error {
	if record.Module != p.manifest.Name {
		return fmt.Errorf("record %s belongs to module %s, not %s", record.Id, record.Module, p.manifest.Name)
	} else if record.Decl.Id != record.Id {
		return fmt.Errorf("record %s holds declaration %s", record.Id, record.Decl.Id)
	}
	//
	if err := p.register(record, &record.Decl, record.Package); err != nil {
		return err
	}
	//
	bytes, err := binfile.Encode(binfile.NewHeader(nil), record)
	if err != nil {
		return err
	}
	//
	dir := filepath.Join(p.dir, RecordDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	//
	return os.WriteFile(filepath.Join(dir, record.Id.RecordName(binfile.Extension)), bytes, 0644)
}

func (p *ModuleWriter) register(record *binfile.Record, decl *binfile.Decl, prefix string) error {
	// Parameters and variables are only ever referenced from within their
	// own record.
	if decl.Kind == ir.KindValueParameter || decl.Kind == ir.KindVariable {
		return nil
	} else if p.ids[decl.Id] {
		return fmt.Errorf("duplicate declaration %s in module %s", decl.Id, p.manifest.Name)
	}
	//
	fqName := decl.Name
	if prefix != "" {
		fqName = prefix + "." + decl.Name
	}
	//
	p.ids[decl.Id] = true
	p.manifest.Declarations = append(p.manifest.Declarations, DeclEntry{
		Id:        decl.Id.String(),
		Record:    record.Id.String(),
		Signature: decl.Signature,
		FqName:    fqName,
		Kind:      decl.Kind.String(),
		File:      record.File,
	})
	//
	for _, group := range [][]binfile.Decl{decl.TypeParams, decl.Members} {
		for i := range group {
			if err := p.register(record, &group[i], fqName); err != nil {
				return err
			}
		}
	}
	//
	return nil
}

// Close writes the manifest of this module.
func (p *ModuleWriter) Close() error {
	if err := os.MkdirAll(p.dir, 0755); err != nil {
		return err
	}
	//
	log.Debugf("wrote module %s (%d declarations)", p.manifest.Name, len(p.manifest.Declarations))
	//
	return WriteManifest(filepath.Join(p.dir, ManifestFile), &p.manifest)
}

// ============================================================================
// Serialiser
// ============================================================================

// Writer serialises modules held in an arena into a library directory.  Each
// declaration is assigned its identifier exactly once: exported declarations
// receive a non-local identifier derived from their signature, whilst all
// others receive the next local identifier of their module.  Declarations of
// the forward declarations module (if any) always receive local identifiers
// and are never keyed by signature.
type Writer struct {
	dir        string
	arena      *ir.Arena
	forward    util.Option[string]
	checker    *mangle.ExportChecker
	mangler    *mangle.Mangler
	collisions *mangle.CollisionChecker
	ids        map[ir.DeclID]ir.UniqId
	counters   map[string]uint64
}

// NewWriter constructs a writer for modules of a given arena.
func NewWriter(dir string, arena *ir.Arena, forward util.Option[string]) *Writer {
	return &Writer{
		dir:        dir,
		arena:      arena,
		forward:    forward,
		checker:    mangle.NewExportChecker(arena),
		mangler:    mangle.NewMangler(arena),
		collisions: mangle.NewCollisionChecker(),
		ids:        make(map[ir.DeclID]ir.UniqId),
		counters:   make(map[string]uint64),
	}
}

// Id returns the identifier of a given declaration, assigning one if
// necessary.
func (w *Writer) Id(id ir.DeclID) (ir.UniqId, error) {
	if uid, ok := w.ids[id]; ok {
		return uid, nil
	}
	//
	decl := w.arena.Get(id)
	uid, ok := decl.Uniq.Get()
	//
	if !ok {
		if sig, exported := w.signature(id); exported {
			if err := w.collisions.Check(sig); err != nil {
				return ir.UniqId{}, err
			}
			//
			uid = mangle.GlobalId(sig)
		} else {
			module := w.arena.ModuleName(id)
			w.counters[module]++
			uid = ir.LocalId(w.counters[module])
		}
		//
		decl.Uniq = util.Some(uid)
	}
	//
	w.ids[id] = uid
	//
	return uid, nil
}

// signature returns the signature by which a declaration is keyed, if it is
// keyed by one.
func (w *Writer) signature(id ir.DeclID) (ir.Signature, bool) {
	decl := w.arena.Get(id)
	//
	switch decl.Kind {
	case ir.KindModule, ir.KindFile, ir.KindPackage, ir.KindValueParameter, ir.KindVariable:
		return "", false
	}
	//
	if w.isForward(id) || !w.checker.IsExported(id) {
		return "", false
	}
	//
	return w.mangler.Signature(id), true
}

func (w *Writer) isForward(id ir.DeclID) bool {
	forward, ok := w.forward.Get()
	return ok && w.arena.ModuleName(id) == forward
}

// WriteModule serialises a module, writing one record for every declaration
// held directly within its package fragments.
func (w *Writer) WriteModule(module ir.DeclID) error {
	var (
		decl   = w.arena.Get(module)
		writer = NewModuleWriter(w.dir, decl.Name)
	)
	//
	if decl.Kind != ir.KindModule {
		return fmt.Errorf("cannot write %s \"%s\" as a module", decl.Kind, decl.Name)
	}
	//
	for _, fragment := range decl.Members {
		file := w.arena.Get(fragment)
		writer.AddFile(file.Name, file.Package)
		//
		for _, member := range file.Members {
			enc := encoder{w, decl.Name, writer}
			//
			record, err := enc.record(member, file)
			if err != nil {
				return err
			} else if err := writer.Add(record); err != nil {
				return err
			}
		}
	}
	//
	return writer.Close()
}

// encoder converts the declarations of a single module into their serialised
// form.
type encoder struct {
	writer *Writer
	module string
	out    *ModuleWriter
}

func (e *encoder) record(id ir.DeclID, file *ir.Decl) (*binfile.Record, error) {
	decl, err := e.decl(id)
	if err != nil {
		return nil, err
	}
	//
	return &binfile.Record{Id: decl.Id, Module: e.module, File: file.Name, Package: file.Package, Decl: decl}, nil
}

func (e *encoder) decl(id ir.DeclID) (binfile.Decl, error) {
	var (
		decl = e.writer.arena.Get(id)
		err  error
		d    = binfile.Decl{
			Kind:         decl.Kind,
			Name:         decl.Name,
			Visibility:   decl.Visibility,
			Annotations:  decl.Annotations,
			ClassKind:    decl.ClassKind,
			Accessor:     decl.Accessor,
			Const:        decl.Const,
			Static:       decl.Static,
			Vararg:       decl.Vararg,
			FakeOverride: decl.FakeOverride,
			External:     decl.External,
			Index:        decl.Index,
		}
	)
	//
	if d.Id, err = e.writer.Id(id); err != nil {
		return d, err
	}
	//
	if sig, ok := e.writer.signature(id); ok {
		d.Signature = string(sig)
	}
	//
	if d.Supertypes, err = e.types(decl.Supertypes); err != nil {
		return d, err
	} else if d.Bounds, err = e.types(decl.Bounds); err != nil {
		return d, err
	}
	//
	if receiver, ok := decl.Receiver.Get(); ok {
		if d.Receiver, err = e.optionalType(receiver, true); err != nil {
			return d, err
		}
	}
	//
	if d.Return, err = e.optionalType(decl.Return, false); err != nil {
		return d, err
	}
	//
	for _, symbol := range decl.Overridden {
		ref, err := e.ref(symbol)
		if err != nil {
			return d, err
		}
		//
		d.Overridden = append(d.Overridden, *ref)
	}
	//
	if d.TypeParams, err = e.decls(decl.TypeParams); err != nil {
		return d, err
	} else if d.Params, err = e.decls(decl.Params); err != nil {
		return d, err
	} else if d.Variables, err = e.decls(e.variables(decl)); err != nil {
		return d, err
	} else if d.Members, err = e.decls(decl.Members); err != nil {
		return d, err
	}
	//
	for i := range decl.Body {
		expr, err := e.expr(&decl.Body[i])
		if err != nil {
			return d, err
		}
		//
		d.Body = append(d.Body, expr)
	}
	//
	return d, nil
}

func (e *encoder) decls(ids []ir.DeclID) ([]binfile.Decl, error) {
	var decls []binfile.Decl
	//
	for _, id := range ids {
		d, err := e.decl(id)
		if err != nil {
			return nil, err
		}
		//
		decls = append(decls, d)
	}
	//
	return decls, nil
}

// variables returns the local variables introduced within the body of a given
// declaration, in order of introduction.
func (e *encoder) variables(decl *ir.Decl) []ir.DeclID {
	var variables []ir.DeclID
	//
	for i := range decl.Body {
		decl.Body[i].Walk(func(expr *ir.Expr) {
			if expr.Op != ir.OpDeclare || expr.Target == nil {
				return
			}
			//
			if owner, ok := ir.OwnerOf(expr.Target); ok && !slices.Contains(variables, owner) {
				variables = append(variables, owner)
			}
		})
	}
	//
	return variables
}

func (e *encoder) types(types []ir.Type) ([]binfile.Type, error) {
	var result []binfile.Type
	//
	for _, t := range types {
		r, err := e.typ(t)
		if err != nil {
			return nil, err
		}
		//
		result = append(result, r)
	}
	//
	return result, nil
}

// optionalType serialises a type which is omitted when unknown (unless
// required).
func (e *encoder) optionalType(t ir.Type, required bool) (*binfile.Type, error) {
	if !t.IsKnown() && len(t.Args) == 0 && !required {
		return nil, nil
	}
	//
	r, err := e.typ(t)
	//
	return &r, err
}

func (e *encoder) typ(t ir.Type) (binfile.Type, error) {
	var (
		r   = binfile.Type{Nullable: t.Nullable}
		err error
	)
	//
	if t.Classifier != nil {
		if r.Classifier, err = e.ref(t.Classifier); err != nil {
			return r, err
		}
	}
	//
	r.Args, err = e.types(t.Args)
	//
	return r, err
}

func (e *encoder) expr(expr *ir.Expr) (binfile.Expr, error) {
	var (
		r   = binfile.Expr{Op: expr.Op, Value: expr.Value}
		err error
	)
	//
	if expr.Target != nil {
		if r.Target, err = e.ref(expr.Target); err != nil {
			return r, err
		}
	}
	//
	if r.Type, err = e.optionalType(expr.Type, false); err != nil {
		return r, err
	}
	//
	for i := range expr.Args {
		arg, err := e.expr(&expr.Args[i])
		if err != nil {
			return r, err
		}
		//
		r.Args = append(r.Args, arg)
	}
	//
	return r, nil
}

// ref serialises a reference to the declaration of a given symbol.  References
// to unbound symbols are recorded by signature or by descriptor, since no
// identifier can be assigned to a declaration which does not (yet) exist.
func (e *encoder) ref(symbol *ir.Symbol) (*binfile.SymbolRef, error) {
	var ref = binfile.SymbolRef{Kind: symbol.Kind()}
	//
	if owner, ok := ir.OwnerOf(symbol); ok {
		var err error
		//
		if ref.Id, err = e.writer.Id(owner); err != nil {
			return nil, err
		} else if ref.TopLevel, err = e.writer.Id(e.topLevel(owner)); err != nil {
			return nil, err
		}
		//
		ref.Module = e.writer.arena.ModuleName(owner)
		//
		if sig, ok := e.writer.signature(owner); ok {
			ref.Signature = string(sig)
		}
		//
		if ref.Module != e.module && ref.Module != "" {
			e.out.AddDependency(ref.Module)
		}
		//
		return &ref, nil
	} else if sig, ok := symbol.Signature().Get(); ok {
		ref.Id = mangle.GlobalId(sig)
		ref.TopLevel = ref.Id
		ref.Signature = string(sig)
		//
		return &ref, nil
	} else if desc := symbol.Descriptor(); desc != nil {
		ref.Id = desc.Uniq
		ref.TopLevel = desc.Uniq
		ref.Descriptor = desc
		//
		return &ref, nil
	}
	//
	return nil, fmt.Errorf("cannot serialise reference to %s", symbol)
}

// topLevel returns the declaration held directly within a package fragment
// which encloses (or is) the given declaration.
func (e *encoder) topLevel(id ir.DeclID) ir.DeclID {
	arena := e.writer.arena
	//
	for {
		parent := arena.Get(id).Parent
		//
		if !parent.IsValid() || arena.Get(parent).Kind.IsPackageFragment() {
			return id
		}
		//
		id = parent
	}
}
