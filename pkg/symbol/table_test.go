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
package symbol

import (
	"testing"

	"github.com/consensys/go-irlink/pkg/ir"
	"github.com/consensys/go-irlink/pkg/util"
	"github.com/consensys/go-irlink/pkg/util/assert"
)

var intType = ir.ClassType(ir.NewPublicSymbol(ir.KindClass, "kotlin/Int"))

func Test_FlatTable_01(t *testing.T) {
	env := newEnvironment()
	f := env.builder.Function(env.file, "f", ir.Public, ir.Type{}, intType)
	// Declaring twice yields the same symbol
	s1 := env.table.Declare(f)
	s2 := env.table.Declare(f)
	//
	assert.Same(t, s1, s2)
	check_Owner(t, s1, f)
	assert.Equal(t, util.Some(ir.Signature("a.b/f(kotlin.Int)")), s1.Signature())
}

func Test_FlatTable_02(t *testing.T) {
	env := newEnvironment()
	f := env.builder.Function(env.file, "f", ir.Public, ir.Type{})
	// Forward reference
	ref := env.table.Reference(f)
	assert.False(t, ref.IsBound())
	assert.Equal(t, []*ir.Symbol{ref}, env.table.Functions.Unbound())
	//
	sym := env.table.Declare(f)
	//
	assert.Same(t, ref, sym)
	check_Owner(t, sym, f)
	assert.Equal(t, 0, len(env.table.Unbound()))
}

func Test_FlatTable_03(t *testing.T) {
	env := newEnvironment()
	class := env.builder.Class(env.file, "C", ir.Public, ir.OrdinaryClass)
	ref := env.table.Classes.ReferenceSignature("a.b/C", nil)
	// Declared from elsewhere, then by the declaration itself
	owner := env.table.Classes.DeclareFromExternalId("a.b/C", class, nil, Identity(class))
	//
	assert.Equal(t, class, owner)
	check_Owner(t, ref, class)
	assert.Same(t, ref, env.table.Declare(class))
}

func Test_FlatTable_04(t *testing.T) {
	env := newEnvironment()
	class := env.builder.Class(env.file, "C", ir.Private, ir.OrdinaryClass)
	sym := env.table.Declare(class)
	// Private declarations are keyed structurally
	assert.False(t, sym.IsPublic())
	//
	found, ok := env.table.Classes.LookupKey(ir.DeclKey(class))
	assert.True(t, ok)
	assert.Same(t, sym, found)
	//
	_, ok = env.table.Classes.LookupSignature("a.b/C")
	assert.False(t, ok)
}

func Test_FlatTable_05(t *testing.T) {
	env := newEnvironment()
	f1 := env.builder.Function(env.file, "f", ir.Public, ir.Type{}, intType)
	f2 := env.builder.Function(env.file, "f", ir.Public, ir.Type{}, intType)
	// Two declarations claiming one signature
	env.table.Declare(f1)
	check_Inconsistent(t, func() { env.table.Declare(f2) })
}

func Test_FlatTable_06(t *testing.T) {
	env := newEnvironment()
	f := env.builder.Function(env.file, "f", ir.Public, ir.Type{})
	g := env.builder.Function(env.file, "g", ir.Public, ir.Type{})
	// The materializer binds to one owner, but returns another
	materialize := func(symbol *ir.Symbol) ir.DeclID {
		env.arena.Bind(g, symbol)
		return f
	}
	//
	check_Inconsistent(t, func() { env.table.Functions.Declare(f, nil, materialize) })
}

func Test_FlatTable_07(t *testing.T) {
	env := newEnvironment()
	f := env.builder.Function(env.file, "f", ir.Public, ir.Type{})
	wrong := func(util.Option[ir.Signature]) *ir.Symbol { return ir.NewSymbol(ir.KindClass) }
	//
	check_Inconsistent(t, func() { env.table.Functions.Declare(f, wrong, Identity(f)) })
	check_Inconsistent(t, func() { env.table.Classes.Bind(ir.NewSymbol(ir.KindFunction), f) })
}

func Test_FlatTable_08(t *testing.T) {
	env := newEnvironment()
	f := env.builder.Function(env.file, "f", ir.Public, ir.Type{})
	sym := env.table.Declare(f)
	// Rebinding is never permitted
	check_Inconsistent(t, func() { env.table.Functions.Bind(sym, f) })
}

func Test_ScopedTable_01(t *testing.T) {
	env := newEnvironment()
	f := env.builder.Function(env.file, "f", ir.Public, ir.Type{}, intType)
	param := env.arena.Get(f).Params[0]
	//
	env.table.EnterScope(f)
	sym := env.table.Declare(param)
	check_Owner(t, sym, param)
	assert.Same(t, sym, env.table.Reference(param))
	env.table.LeaveScope(f)
	// Nothing is visible once the scope is left
	_, ok := env.table.ValueParameters.Lookup(param)
	assert.False(t, ok)
	assert.Equal(t, 0, env.table.ValueParameters.Depth())
}

func Test_ScopedTable_02(t *testing.T) {
	env := newEnvironment()
	f := env.builder.Function(env.file, "f", ir.Public, ir.Type{})
	key := ir.DeclKey(ir.DeclID(99))
	//
	env.table.EnterScope(f)
	env.table.Variables.ReferenceKey(key, nil)
	// An unbound local leaks out of its scope
	check_Inconsistent(t, func() { env.table.LeaveScope(f) })
}

func Test_ScopedTable_03(t *testing.T) {
	env := newEnvironment()
	f := env.builder.Function(env.file, "f", ir.Public, ir.Type{})
	g := env.builder.Function(env.file, "g", ir.Public, ir.Type{})
	//
	check_Inconsistent(t, func() { env.table.Variables.LeaveScope(f) })
	//
	env.table.Variables.EnterScope(f)
	check_Inconsistent(t, func() { env.table.Variables.LeaveScope(g) })
}

func Test_ScopedTable_04(t *testing.T) {
	env := newEnvironment()
	f := env.builder.Function(env.file, "f", ir.Public, ir.Type{})
	g := env.builder.Function(f, "g", ir.Local, ir.Type{})
	outer := env.builder.Variable(f, "x", intType)
	inner := env.builder.Variable(g, "x", intType)
	key := ir.LinkKey(ir.KeyOf(ir.LocalId(1), "core"))
	variables := env.table.Variables
	//
	variables.EnterScope(f)
	s1 := variables.ReferenceKey(key, nil)
	variables.DeclareKey(key, outer, nil, Identity(outer))
	variables.EnterScope(g)
	// Visible from the inner scope
	found, ok := variables.LookupKey(key)
	assert.True(t, ok)
	assert.Same(t, s1, found)
	// Shadowing is permitted
	variables.DeclareKey(key, inner, nil, Identity(inner))
	found, _ = variables.LookupKey(key)
	check_Owner(t, found, inner)
	variables.LeaveScope(g)
	//
	found, _ = variables.LookupKey(key)
	assert.Same(t, s1, found)
	variables.LeaveScope(f)
}

func Test_ScopedTable_05(t *testing.T) {
	env := newEnvironment()
	f := env.builder.Function(env.file, "f", ir.Public, ir.Type{})
	g := env.builder.Function(f, "g", ir.Local, ir.Type{})
	h := env.builder.Function(env.file, "h", ir.Public, ir.Type{})
	key := ir.DeclKey(ir.DeclID(99))
	//
	env.table.EnterScope(f)
	env.table.EnterScope(g)
	env.table.Variables.ReferenceKey(key, nil)
	// Nothing is live for h
	env.table.DiscardScope(h)
	assert.Equal(t, 2, env.table.Variables.Depth())
	// Abandoning f abandons g as well, despite the unbound local
	env.table.DiscardScope(f)
	assert.Equal(t, 0, env.table.Variables.Depth())
	assert.Equal(t, 0, env.table.ValueParameters.Depth())
	assert.Equal(t, 0, env.table.TypeParameters.Depth())
	//
	_, ok := env.table.Variables.LookupKey(key)
	assert.False(t, ok)
}

func Test_Table_01(t *testing.T) {
	env := newEnvironment()
	class := env.builder.Class(env.file, "C", ir.Public, ir.OrdinaryClass)
	f := env.builder.Function(class, "f", ir.Public, ir.Type{})
	hidden := env.builder.Function(class, "hidden", ir.Private, ir.Type{})
	tp := env.builder.TypeParameter(class, "T")
	//
	for _, id := range []ir.DeclID{f, hidden, class, tp} {
		env.table.Declare(id)
	}
	//
	var sigs []ir.Signature
	//
	env.table.ForEachPublicSymbol(func(sig ir.Signature, symbol *ir.Symbol) {
		assert.True(t, symbol.IsBound())
		sigs = append(sigs, sig)
	})
	// Sorted, and without the private function
	assert.Equal(t, []ir.Signature{"a.b/C", "a.b/C.f()", "a.b/C:tp:0"}, sigs)
}

func Test_Table_02(t *testing.T) {
	env := newEnvironment()
	f := env.builder.Function(env.file, "f", ir.Public, ir.Type{})
	tp := env.builder.TypeParameter(f, "T")
	// Type parameters of callables are scoped
	env.table.EnterScope(f)
	sym := env.table.Declare(tp)
	_, ok := env.table.GlobalTypeParameters.Lookup(tp)
	assert.False(t, ok)
	found, ok := env.table.TypeParameters.Lookup(tp)
	assert.True(t, ok)
	assert.Same(t, sym, found)
	env.table.LeaveScope(f)
}

// ===================================================================
// Test Helpers
// ===================================================================

type environment struct {
	arena   *ir.Arena
	builder *ir.Builder
	table   *Table
	file    ir.DeclID
}

func newEnvironment() *environment {
	var (
		arena   = ir.NewArena()
		builder = ir.NewBuilder(arena)
		module  = builder.Module("core")
		file    = builder.File(module, "a.kt", "a.b")
	)
	//
	return &environment{arena, builder, NewTable(arena), file}
}

func check_Owner(t *testing.T, symbol *ir.Symbol, expected ir.DeclID) {
	t.Helper()
	//
	owner, ok := ir.OwnerOf(symbol)
	assert.True(t, ok, "%s is unbound", symbol)
	assert.Equal(t, expected, owner)
}

func check_Inconsistent(t *testing.T, fn func()) {
	t.Helper()
	//
	value := assert.Panics(t, fn)
	//
	if _, ok := value.(*ir.ConsistencyError); !ok {
		t.Fatalf("expected consistency error, got %v", value)
	}
}
