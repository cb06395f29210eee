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
	"os"
	"slices"
	"testing"

	"github.com/consensys/go-irlink/pkg/binfile"
	"github.com/consensys/go-irlink/pkg/ir"
	"github.com/consensys/go-irlink/pkg/library"
	"github.com/consensys/go-irlink/pkg/mangle"
	"github.com/consensys/go-irlink/pkg/stub"
	"github.com/consensys/go-irlink/pkg/util"
	"github.com/consensys/go-irlink/pkg/util/assert"
)

// ===================================================================
// Closure
// ===================================================================

func Test_Closure_01(t *testing.T) {
	lib := newLibrary(t)
	lib.add("core", "a.kt", "a.b", class(ir.GlobalId(7), "a.b/A", "A", classRef(ir.GlobalId(42), "", "a.b/B")))
	lib.add("core", "a.kt", "a.b", class(ir.GlobalId(42), "a.b/B", "B", nil))
	l := newLinker(t, lib.open(), "", "core")
	//
	assert.NoError(t, l.Resolve(global(7)))
	check_Closure(t, l, global(7), global(42))
	// Both are materialised into the same file
	var (
		arena = l.Session().Arena
		a     = check_Lookup(t, l, global(7))
		b     = check_Lookup(t, l, global(42))
	)
	//
	assert.Equal(t, arena.Get(a).Parent, arena.Get(b).Parent)
	assert.Equal(t, []ir.DeclID{a, b}, arena.Get(arena.Get(a).Parent).Members)
	assert.Equal(t, "a.kt", arena.Get(arena.Get(a).Parent).Name)
	// The supertype of A is B
	check_Bound(t, arena.Get(a).Supertypes[0].Classifier, b)
	assert.True(t, arena.Get(a).External)
}

func Test_Closure_02(t *testing.T) {
	lib := newLibrary(t)
	// A.h() calls B.g(), whilst B extends A
	call := binfile.Expr{Op: ir.OpCall, Target: &binfile.SymbolRef{Kind: ir.KindFunction, Id: ir.GlobalId(3),
		TopLevel: ir.GlobalId(3), Signature: "a.b/B.g()"}}
	lib.add("core", "a.kt", "a.b", class(ir.GlobalId(1), "a.b/A", "A", nil,
		function(ir.GlobalId(5), "a.b/A.h()", "h", call)))
	lib.add("core", "a.kt", "a.b", class(ir.GlobalId(2), "a.b/B", "B", classRef(ir.GlobalId(1), "", "a.b/A"),
		function(ir.GlobalId(3), "a.b/B.g()", "g")))
	lib.add("core", "a.kt", "a.b", class(ir.GlobalId(6), "a.b/D", "D", nil))
	l := newLinker(t, lib.open(), "", "core")
	//
	assert.NoError(t, l.Resolve(global(1)))
	// The cycle is closed, whilst D is unreachable
	check_Closure(t, l, global(1), global(2))
	//
	var (
		arena = l.Session().Arena
		h     = check_Lookup(t, l, global(5))
		g     = check_Lookup(t, l, global(3))
	)
	//
	check_Bound(t, arena.Get(h).Body[0].Target, g)
	// Resolving again changes nothing
	assert.NoError(t, l.Resolve(global(2)))
	assert.NoError(t, l.Resolve(global(3)))
	check_Closure(t, l, global(1), global(2))
}

func Test_Closure_03(t *testing.T) {
	lib := newLibrary(t)
	sig := ir.Signature("a.b/A")
	lib.add("core", "a.kt", "a.b", class(mangle.GlobalId(sig), string(sig), "A", nil))
	l := newLinker(t, lib.open(), "", "core")
	//
	assert.NoError(t, l.ResolveSignature(sig))
	check_Closure(t, l, ir.KeyOf(mangle.GlobalId(sig), ""))
	//
	symbol, ok := l.Session().Table.Classes.LookupSignature(sig)
	assert.True(t, ok)
	assert.True(t, symbol.IsBound())
}

func Test_Closure_04(t *testing.T) {
	lib := newLibrary(t)
	// Local declarations are keyed by module
	lib.add("core", "a.kt", "a.b", class(ir.LocalId(1), "", "A", classRef(ir.LocalId(2), "core", "")))
	lib.add("core", "a.kt", "a.b", class(ir.LocalId(2), "", "B", nil))
	lib.add("other", "a.kt", "a.b", class(ir.LocalId(2), "", "B", nil))
	l := newLinker(t, lib.open(), "", "core", "other")
	//
	assert.NoError(t, l.Resolve(ir.KeyOf(ir.LocalId(1), "core")))
	check_Closure(t, l, ir.KeyOf(ir.LocalId(1), "core"), ir.KeyOf(ir.LocalId(2), "core"))
	//
	_, ok := l.Lookup(ir.KeyOf(ir.LocalId(2), "other"))
	assert.False(t, ok)
}

func Test_Closure_05(t *testing.T) {
	lib := newLibrary(t)
	sig := ir.Signature("a.b/C")
	lib.add("core", "c.kt", "a.b", class(mangle.GlobalId(sig), string(sig), "C", nil,
		function(ir.GlobalId(11), "a.b/C.f()", "f")))
	l := newLinker(t, lib.open(), "", "core")
	// By signature
	table := l.Session().Table
	class := table.Classes.ReferenceSignature(sig, nil)
	assert.NoError(t, l.ResolveSymbol(class))
	assert.True(t, class.IsBound())
	// By descriptor
	ref := &ir.DescriptorRef{Package: "a.b", Container: "C", Name: "f", Kind: ir.DescriptorMember,
		Uniq: ir.GlobalId(11)}
	fn := ir.NewSymbol(ir.KindFunction)
	fn.SetDescriptor(ref)
	assert.NoError(t, l.ResolveSymbol(fn))
	check_Bound(t, fn, check_Lookup(t, l, global(11)))
	// An alias of the declaration's own symbol
	arena := l.Session().Arena
	assert.True(t, fn != arena.Get(check_Lookup(t, l, global(11))).Symbol)
	assert.Same(t, arena.Get(check_Lookup(t, l, global(11))).Symbol, arena.Canonical(fn))
	// Neither
	assert.True(t, l.ResolveSymbol(ir.NewSymbol(ir.KindFunction)) != nil)
	assert.Equal(t, Idle, l.State())
}

// ===================================================================
// Parking
// ===================================================================

func Test_Parking_01(t *testing.T) {
	lib := newLibrary(t)
	lib.add("core", "a.kt", "a.b", class(ir.GlobalId(1), "a.b/A", "A", classRef(ir.GlobalId(50), "", "x.y/L")))
	lib.add("lib", "l.kt", "x.y", class(ir.GlobalId(50), "x.y/L", "L", nil))
	l := newLinker(t, lib.open(), "", "core")
	//
	assert.NoError(t, l.Resolve(global(1)))
	check_Closure(t, l, global(1))
	assert.Equal(t, []ir.UniqIdKey{global(50)}, l.Parked())
	assert.Equal(t, 1, len(l.Session().Table.Classes.Unbound()))
	// Attaching the owning module reseeds what was parked
	assert.NoError(t, l.Attach("lib"))
	check_Closure(t, l, global(1), global(50))
	assert.Equal(t, 0, len(l.Parked()))
	assert.Equal(t, 0, len(l.Session().Table.Unbound()))
	assert.Equal(t, []string{"core", "lib"}, l.Attached())
	//
	arena := l.Session().Arena
	a := check_Lookup(t, l, global(1))
	assert.Equal(t, "lib", arena.ModuleName(check_Owner(t, arena.Get(a).Supertypes[0].Classifier)))
}

func Test_Parking_02(t *testing.T) {
	lib := newLibrary(t)
	lib.add("core", "a.kt", "a.b", class(ir.GlobalId(1), "a.b/A", "A", nil))
	l := newLinker(t, lib.open(), "", "core")
	//
	assert.ErrorIs(t, l.Attach("missing"), ErrUnknownModule)
	// Attaching twice is harmless
	assert.NoError(t, l.Attach("core"))
	assert.Equal(t, []string{"core"}, l.Attached())
	//
	_, err := New(NewSession(), lib.open(), Config{Modules: []string{"missing"}})
	assert.ErrorIs(t, err, ErrUnknownModule)
}

// ===================================================================
// Forward declarations
// ===================================================================

func Test_Forward_01(t *testing.T) {
	lib := newLibrary(t)
	placeholder := ir.KeyOf(ir.LocalId(1), "fwd")
	lib.add("fwd", "a.kt", "a.b", class(ir.LocalId(1), "", "B", nil))
	lib.add("core", "a.kt", "a.b", class(ir.GlobalId(1), "a.b/A", "A", classRef(ir.LocalId(1), "fwd", "")))
	lib.add("impl", "b.kt", "a.b", class(ir.GlobalId(42), "a.b/B", "B", nil))
	l := newLinker(t, lib.open(), "fwd", "core", "impl")
	//
	sub, ok := l.Substitute(placeholder)
	assert.True(t, ok)
	assert.Equal(t, global(42), sub)
	//
	assert.NoError(t, l.Resolve(global(1)))
	// The placeholder itself is never materialised
	check_Closure(t, l, global(1), global(42))
	//
	var (
		arena = l.Session().Arena
		a     = check_Lookup(t, l, global(1))
		b     = check_Lookup(t, l, global(42))
	)
	//
	assert.Equal(t, b, check_Lookup(t, l, placeholder))
	assert.Equal(t, "impl", arena.ModuleName(b))
	check_Bound(t, arena.Get(a).Supertypes[0].Classifier, b)
}

func Test_Forward_02(t *testing.T) {
	lib := newLibrary(t)
	placeholder := ir.KeyOf(ir.LocalId(1), "fwd")
	lib.add("fwd", "a.kt", "a.b", class(ir.LocalId(1), "", "B", nil))
	lib.add("core", "a.kt", "a.b", class(ir.GlobalId(1), "a.b/A", "A", classRef(ir.LocalId(1), "fwd", "")))
	l := newLinker(t, lib.open(), "fwd", "core")
	// No real declaration, so the placeholder is materialised
	assert.NoError(t, l.Resolve(global(1)))
	check_Closure(t, l, global(1), placeholder)
	//
	var (
		arena = l.Session().Arena
		a     = check_Lookup(t, l, global(1))
		b     = check_Lookup(t, l, placeholder)
		file  = arena.Get(arena.Get(b).Parent)
	)
	//
	assert.Equal(t, ForwardFileName, file.Name)
	assert.Equal(t, "a.b", file.Package)
	check_Bound(t, arena.Get(a).Supertypes[0].Classifier, b)
}

func Test_Forward_03(t *testing.T) {
	lib := newLibrary(t)
	placeholder := ir.KeyOf(ir.LocalId(1), "fwd")
	lib.add("fwd", "a.kt", "a.b", class(ir.LocalId(1), "", "B", nil))
	lib.add("impl", "b.kt", "a.b", class(ir.GlobalId(42), "a.b/B", "B", nil))
	l := newLinker(t, lib.open(), "fwd", "impl")
	// Requests for the placeholder yield the real declaration
	assert.NoError(t, l.Resolve(placeholder))
	check_Closure(t, l, global(42))
}

func Test_Forward_04(t *testing.T) {
	lib := newLibrary(t)
	placeholder := ir.KeyOf(ir.LocalId(1), "fwd")
	lib.add("fwd", "a.kt", "a.b", class(ir.LocalId(1), "", "B", nil))
	lib.add("impl", "b.kt", "a.b", class(ir.GlobalId(42), "a.b/B", "B", nil))
	l := newLinker(t, lib.open(), "fwd", "impl")
	// A symbol referenced by the placeholder's key
	var (
		table  = l.Session().Table
		arena  = l.Session().Arena
		symbol = table.Classes.ReferenceKey(ir.LinkKey(placeholder), nil)
	)
	//
	assert.NoError(t, l.Resolve(placeholder))
	//
	b := check_Lookup(t, l, global(42))
	check_Bound(t, symbol, b)
	assert.True(t, symbol != arena.Get(b).Symbol)
	assert.Same(t, arena.Get(b).Symbol, arena.Canonical(symbol))
	assert.Same(t, arena.Get(b).Symbol, arena.Canonical(arena.Get(b).Symbol))
}

// ===================================================================
// Descriptors
// ===================================================================

func Test_Descriptor_01(t *testing.T) {
	l := descriptorLinker(t, &ir.DescriptorRef{Package: "a.b", Container: "C", Name: "f",
		Kind: ir.DescriptorMember, Uniq: ir.GlobalId(11)}, ir.KindFunction)
	//
	assert.NoError(t, l.Resolve(global(20)))
	check_Closure(t, l, global(20), global(10))
	check_Bound(t, callTarget(t, l), check_Lookup(t, l, global(11)))
}

func Test_Descriptor_02(t *testing.T) {
	l := descriptorLinker(t, &ir.DescriptorRef{Package: "a.b", Container: "E", Name: "Y",
		Kind: ir.DescriptorEnumEntry, Uniq: ir.LocalId(99)}, ir.KindEnumEntry)
	//
	assert.NoError(t, l.Resolve(global(20)))
	check_Bound(t, callTarget(t, l), check_Lookup(t, l, global(14)))
}

func Test_Descriptor_03(t *testing.T) {
	l := descriptorLinker(t, &ir.DescriptorRef{Package: "a.b", Container: "D", Name: "f",
		Kind: ir.DescriptorFakeOverride, Uniq: ir.GlobalId(11)}, ir.KindFunction)
	// The fake override in D resolves to the real member of C
	assert.NoError(t, l.Resolve(global(20)))
	check_Bound(t, callTarget(t, l), check_Lookup(t, l, global(11)))
	assert.True(t, l.Session().Arena.Get(check_Lookup(t, l, global(16))).FakeOverride)
}

func Test_Descriptor_04(t *testing.T) {
	l := descriptorLinker(t, &ir.DescriptorRef{Package: "a.b", Container: "C", Name: "f",
		Kind: ir.DescriptorMember, Uniq: ir.GlobalId(999)}, ir.KindFunction)
	// Nothing matches
	assert.ErrorIs(t, l.Resolve(global(20)), ErrDescriptorUnresolved)
	assert.Equal(t, Failed, l.State())
	assert.ErrorIs(t, l.Resolve(global(10)), ErrLinkerFailed)
	check_NoScopes(t, l)
}

func Test_Descriptor_05(t *testing.T) {
	ref := &ir.DescriptorRef{Package: "q", Container: "Z", Name: "z", Kind: ir.DescriptorMember,
		Uniq: ir.LocalId(5)}
	l := descriptorLinker(t, ref, ir.KindFunction)
	// No attached module provides the container
	assert.NoError(t, l.Resolve(global(20)))
	//
	target := callTarget(t, l)
	assert.False(t, target.IsBound())
	assert.Equal(t, ref, target.Descriptor())
	// Until stubbed
	assert.NoError(t, l.Finish())
	//
	arena := l.Session().Arena
	owner := check_Owner(t, target)
	assert.Equal(t, stub.ModuleName, arena.ModuleName(owner))
	assert.Equal(t, "q.Z.z", arena.FqName(owner))
}

// ===================================================================
// Finishing
// ===================================================================

func Test_Finish_01(t *testing.T) {
	var (
		lib     = newLibrary(t)
		missing = ir.Signature("x.y/Missing")
		fn1     = mangle.FunctionClassSignature(mangle.Function, 1)
	)
	//
	decl := class(ir.GlobalId(1), "a.b/A", "A", classRef(mangle.GlobalId(missing), "", string(missing)))
	fn := binfile.Type{Classifier: classRef(mangle.GlobalId(fn1), "", string(fn1))}
	decl.Supertypes = append(decl.Supertypes, fn)
	lib.add("core", "a.kt", "a.b", decl)
	l := newLinker(t, lib.open(), "", "core")
	//
	assert.NoError(t, l.Resolve(global(1)))
	assert.Equal(t, 2, len(l.Parked()))
	assert.NoError(t, l.Finish())
	// Every symbol is now bound
	assert.Equal(t, 0, len(l.Session().Table.Unbound()))
	//
	var (
		arena = l.Session().Arena
		a     = arena.Get(check_Lookup(t, l, global(1)))
		m     = check_Owner(t, a.Supertypes[0].Classifier)
		f     = check_Owner(t, a.Supertypes[1].Classifier)
	)
	//
	assert.Equal(t, stub.ModuleName, arena.ModuleName(m))
	assert.Equal(t, "x.y.Missing", arena.FqName(m))
	assert.Equal(t, 2, len(arena.Get(f).TypeParams))
	assert.Equal(t, Idle, l.State())
}

// ===================================================================
// Round trip
// ===================================================================

func Test_RoundTrip_01(t *testing.T) {
	var (
		dir     = t.TempDir()
		arena   = ir.NewArena()
		builder = ir.NewBuilder(arena)
		core    = builder.Module("core")
		file    = builder.File(core, "a.kt", "a.b")
		box     = builder.Class(file, "Box", ir.Public, ir.OrdinaryClass)
		fn      = builder.Function(file, "id", ir.Public, ir.Type{})
	)
	// class Box<T> { fun get(): T }
	arena.Bind(box, ir.NewPublicSymbol(ir.KindClass, "a.b/Box"))
	element := builder.TypeParameter(box, "T")
	arena.Bind(element, ir.NewSymbol(ir.KindTypeParameter))
	builder.Function(box, "get", ir.Public, ir.ClassType(arena.Get(element).Symbol))
	// fun <T> id(x: T): T
	tp := builder.TypeParameter(fn, "T")
	arena.Bind(tp, ir.NewSymbol(ir.KindTypeParameter))
	builder.ValueParameter(fn, "x", ir.ClassType(arena.Get(tp).Symbol))
	arena.Get(fn).Return = ir.ClassType(arena.Get(tp).Symbol)
	// val Box.size, and var count (with a backing field)
	size := builder.Property(file, "size", ir.Public, ir.Type{}, false)
	builder.Extension(size, ir.ClassType(arena.Get(box).Symbol))
	builder.Property(file, "count", ir.Public, ir.Type{}, true)
	// internal fun helper()
	builder.Function(file, "helper", ir.Internal, ir.Type{})
	//
	writer := library.NewWriter(dir, arena, util.None[string]())
	assert.NoError(t, writer.WriteModule(core))
	//
	lib, err := library.Open(dir)
	assert.NoError(t, err)
	module, _ := lib.Module("core")
	l := newLinker(t, lib, "", "core")
	//
	var signatures []ir.Signature
	//
	for _, entry := range module.Entries() {
		if entry.Signature == "" {
			continue
		}
		//
		key := ir.KeyOf(entry.Id, "core")
		assert.NoError(t, l.Resolve(key))
		// Linked declarations have the signatures they were written with
		id := check_Lookup(t, l, key)
		assert.Equal(t, entry.Signature, mangle.NewMangler(l.Session().Arena).Signature(id))
		//
		signatures = append(signatures, entry.Signature)
	}
	//
	for _, sig := range []ir.Signature{"a.b/Box:tp:0", "a.b/Box.get():#0", "a.b/id(#0)<0:>:#0",
		"a.b/id(#0)<0:>:#0:tp:0", "a.b/size:prop:@a.b.Box", "a.b/size:getter:@a.b.Box", "a.b/size:field:",
		"a.b/count:setter:", "a.b/count:field:", "a.b/helper$core()"} {
		assert.True(t, slices.Contains(signatures, sig), "%s not written", sig)
	}
	//
	assert.NoError(t, l.Finish())
	assert.Equal(t, 0, len(l.Session().Table.Unbound()))
}

// ===================================================================
// Failures
// ===================================================================

func Test_Failure_01(t *testing.T) {
	lib := newLibrary(t)
	lib.add("core", "a.kt", "a.b", class(ir.GlobalId(1), "a.b/A", "A", classRef(ir.GlobalId(2), "", "a.b/B")))
	lib.add("core", "a.kt", "a.b", class(ir.GlobalId(2), "a.b/B", "B", nil))
	//
	opened := lib.open()
	module, _ := opened.Module("core")
	assert.NoError(t, os.Remove(module.RecordPath(ir.GlobalId(2))))
	l := newLinker(t, opened, "", "core")
	// The manifest promises a record which does not exist
	assert.ErrorIs(t, l.Resolve(global(1)), library.ErrRecordNotFound)
	assert.Equal(t, Failed, l.State())
	assert.ErrorIs(t, l.Resolve(global(1)), ErrLinkerFailed)
	assert.ErrorIs(t, l.Finish(), ErrLinkerFailed)
}

func Test_Failure_02(t *testing.T) {
	var (
		lib  = newLibrary(t)
		body = binfile.Expr{Op: ir.OpConst, Value: "0"}
	)
	//
	for range 16 {
		body = binfile.Expr{Op: ir.OpBlock, Args: []binfile.Expr{body}}
	}
	//
	lib.add("core", "a.kt", "a.b", function(ir.GlobalId(1), "a.b/f()", "f", body))
	//
	config := DefaultConfig()
	config.MaxNestingDepth = 8
	config.Modules = []string{"core"}
	//
	l, err := New(NewSession(), lib.open(), config)
	assert.NoError(t, err)
	assert.ErrorIs(t, l.Resolve(global(1)), binfile.ErrNestingLimit)
}

func Test_Failure_03(t *testing.T) {
	lib := newLibrary(t)
	// A reference to a parameter which the function never declares
	body := binfile.Expr{Op: ir.OpGetValue, Target: &binfile.SymbolRef{Kind: ir.KindValueParameter,
		Id: ir.LocalId(9), TopLevel: ir.GlobalId(1), Module: "core"}}
	lib.add("core", "a.kt", "a.b", function(ir.GlobalId(1), "a.b/f()", "f", body))
	l := newLinker(t, lib.open(), "", "core")
	//
	var cerr *ir.ConsistencyError
	//
	err := l.Resolve(global(1))
	assert.True(t, errors.As(err, &cerr), "expected consistency error, got %v", err)
	assert.Equal(t, Failed, l.State())
	// The scope of f is not left open
	check_NoScopes(t, l)
}

// ===================================================================
// Test Helpers
// ===================================================================

type testLibrary struct {
	t       *testing.T
	dir     string
	writers map[string]*library.ModuleWriter
	order   []string
}

func newLibrary(t *testing.T) *testLibrary {
	return &testLibrary{t, t.TempDir(), make(map[string]*library.ModuleWriter), nil}
}

func (p *testLibrary) add(module string, file string, pkg string, decl binfile.Decl) {
	p.t.Helper()
	//
	writer, ok := p.writers[module]
	if !ok {
		writer = library.NewModuleWriter(p.dir, module)
		p.writers[module] = writer
		p.order = append(p.order, module)
	}
	//
	writer.AddFile(file, pkg)
	assert.NoError(p.t, writer.Add(&binfile.Record{Id: decl.Id, Module: module, File: file, Package: pkg, Decl: decl}))
}

func (p *testLibrary) open() *library.Library {
	p.t.Helper()
	//
	for _, name := range p.order {
		assert.NoError(p.t, p.writers[name].Close())
	}
	//
	lib, err := library.Open(p.dir)
	assert.NoError(p.t, err)
	//
	return lib
}

func newLinker(t *testing.T, lib *library.Library, forward string, modules ...string) *Linker {
	t.Helper()
	//
	config := DefaultConfig()
	config.Modules = modules
	//
	if forward != "" {
		config.ForwardDeclarations = util.Some(forward)
	}
	//
	l, err := New(NewSession(), lib, config)
	assert.NoError(t, err)
	//
	return l
}

// descriptorLinker constructs a linker over two modules: "core" provides
// classes C (a member f), D (a fake override of f) and an enum E (entries X
// and Y); "app" provides a function a() whose body calls the given
// descriptor.
func descriptorLinker(t *testing.T, ref *ir.DescriptorRef, kind ir.Kind) *Linker {
	t.Helper()
	//
	var (
		lib  = newLibrary(t)
		fake = function(ir.GlobalId(16), "a.b/D.f()", "f")
		enum = class(ir.GlobalId(12), "a.b/E", "E", nil,
			binfile.Decl{Id: ir.GlobalId(13), Signature: "a.b/E.X", Kind: ir.KindEnumEntry, Name: "X"},
			binfile.Decl{Id: ir.GlobalId(14), Signature: "a.b/E.Y", Kind: ir.KindEnumEntry, Name: "Y"})
		call = binfile.Expr{Op: ir.OpCall, Target: &binfile.SymbolRef{Kind: kind, Descriptor: ref}}
	)
	//
	fake.FakeOverride = true
	fake.Overridden = []binfile.SymbolRef{{Kind: ir.KindFunction, Id: ir.GlobalId(11), TopLevel: ir.GlobalId(11),
		Signature: "a.b/C.f()"}}
	enum.ClassKind = ir.EnumClass
	//
	lib.add("core", "c.kt", "a.b", class(ir.GlobalId(10), "a.b/C", "C", nil,
		function(ir.GlobalId(11), "a.b/C.f()", "f")))
	lib.add("core", "c.kt", "a.b", class(ir.GlobalId(15), "a.b/D", "D", classRef(ir.GlobalId(10), "", "a.b/C"),
		fake))
	lib.add("core", "c.kt", "a.b", enum)
	lib.add("app", "a.kt", "a.b", function(ir.GlobalId(20), "a.b/a()", "a", call))
	//
	return newLinker(t, lib.open(), "", "core", "app")
}

func callTarget(t *testing.T, l *Linker) *ir.Symbol {
	t.Helper()
	//
	return l.Session().Arena.Get(check_Lookup(t, l, global(20))).Body[0].Target
}

func class(id ir.UniqId, sig string, name string, super *binfile.SymbolRef, members ...binfile.Decl) binfile.Decl {
	decl := binfile.Decl{Id: id, Signature: sig, Kind: ir.KindClass, Name: name, Members: members}
	//
	if super != nil {
		decl.Supertypes = []binfile.Type{{Classifier: super}}
	}
	//
	return decl
}

func function(id ir.UniqId, sig string, name string, body ...binfile.Expr) binfile.Decl {
	return binfile.Decl{Id: id, Signature: sig, Kind: ir.KindFunction, Name: name, Body: body}
}

func classRef(id ir.UniqId, module string, sig string) *binfile.SymbolRef {
	return &binfile.SymbolRef{Kind: ir.KindClass, Id: id, TopLevel: id, Module: module, Signature: sig}
}

func global(index uint64) ir.UniqIdKey {
	return ir.KeyOf(ir.GlobalId(index), "")
}

// check_Closure checks that the worklist has been drained, and exactly the
// given keys were materialised (in order).
func check_Closure(t *testing.T, l *Linker, keys ...ir.UniqIdKey) {
	t.Helper()
	//
	assert.Equal(t, 0, len(l.Reachable()))
	assert.Equal(t, keys, l.Deserialized())
	assert.Equal(t, Idle, l.State())
	//
	for _, key := range l.Deserialized() {
		_, ok := l.Lookup(key)
		assert.True(t, ok, "%s deserialized but not materialised", key)
	}
}

func check_Lookup(t *testing.T, l *Linker, key ir.UniqIdKey) ir.DeclID {
	t.Helper()
	//
	id, ok := l.Lookup(key)
	assert.True(t, ok, "%s not materialised", key)
	//
	return id
}

func check_Owner(t *testing.T, symbol *ir.Symbol) ir.DeclID {
	t.Helper()
	//
	owner, ok := ir.OwnerOf(symbol)
	assert.True(t, ok, "%s is unbound", symbol)
	//
	return owner
}

// check_NoScopes checks that no scope remains open in the session's table.
func check_NoScopes(t *testing.T, l *Linker) {
	t.Helper()
	//
	table := l.Session().Table
	assert.Equal(t, 0, table.TypeParameters.Depth())
	assert.Equal(t, 0, table.ValueParameters.Depth())
	assert.Equal(t, 0, table.Variables.Depth())
}

func check_Bound(t *testing.T, symbol *ir.Symbol, expected ir.DeclID) {
	t.Helper()
	//
	assert.Equal(t, expected, check_Owner(t, symbol))
}
