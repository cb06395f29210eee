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
	"testing"

	"github.com/consensys/go-irlink/pkg/ir"
	"github.com/consensys/go-irlink/pkg/util/assert"
)

var (
	intType    = classType("kotlin/Int")
	stringType = classType("kotlin/String")
	unitType   = classType("kotlin/Unit")
)

func Test_Mangler_01(t *testing.T) {
	env := newEnvironment()
	class := env.builder.Class(env.file, "C", ir.Public, ir.OrdinaryClass)
	f := env.builder.Function(class, "f", ir.Public, ir.Type{}, intType)
	// Signatures are deterministic
	check_Signature(t, env, f, "a.b/C.f(kotlin.Int)")
	check_Signature(t, env, f, "a.b/C.f(kotlin.Int)")
}

func Test_Mangler_02(t *testing.T) {
	env := newEnvironment()
	f1 := env.builder.Function(env.file, "f", ir.Public, ir.Type{}, intType)
	f2 := env.builder.Function(env.file, "f", ir.Public, ir.Type{}, stringType)
	// Overloads must be distinguished
	s1, s2 := env.mangler.Signature(f1), env.mangler.Signature(f2)
	assert.NotEqual(t, s1, s2)
	assert.NotEqual(t, GlobalId(s1), GlobalId(s2))
}

func Test_Mangler_03(t *testing.T) {
	env := newEnvironment()
	class := env.builder.Class(env.file, "C", ir.Public, ir.OrdinaryClass)
	prop := env.builder.Property(class, "p", ir.Public, intType, true)
	decl := env.arena.Get(prop)
	//
	check_Signature(t, env, prop, "a.b/C.p:prop:")
	check_Signature(t, env, decl.Getter, "a.b/C.p:getter:")
	check_Signature(t, env, decl.Setter, "a.b/C.p:setter:")
	check_Signature(t, env, decl.BackingField, "a.b/C.p:field:")
}

func Test_Mangler_04(t *testing.T) {
	env := newEnvironment()
	h := env.builder.Function(env.file, "h", ir.Internal, ir.Type{})
	// Internal declarations carry their module
	check_Signature(t, env, h, "a.b/h$core()")
}

func Test_Mangler_05(t *testing.T) {
	env := newEnvironment()
	id := env.builder.Function(env.file, "id", ir.Public, ir.Type{})
	tp := env.builder.TypeParameter(id, "T")
	env.arena.Bind(tp, ir.NewSymbol(ir.KindTypeParameter))
	ref := ir.ClassType(env.arena.Get(tp).Symbol)
	env.builder.ValueParameter(id, "x", ref)
	env.arena.Get(id).Return = ref
	//
	check_Signature(t, env, id, "a.b/id(#0)<0:>:#0")
	check_Signature(t, env, tp, "a.b/id(#0)<0:>:#0:tp:0")
	// Renaming a type parameter changes nothing
	env.arena.Get(tp).Name = "U"
	check_Signature(t, env, id, "a.b/id(#0)<0:>:#0")
}

func Test_Mangler_06(t *testing.T) {
	env := newEnvironment()
	class := env.builder.Class(env.file, "C", ir.Public, ir.OrdinaryClass)
	ctp := env.builder.TypeParameter(class, "T")
	env.arena.Bind(ctp, ir.NewSymbol(ir.KindTypeParameter))
	m := env.builder.Function(class, "m", ir.Public, ir.Type{}, ir.ClassType(env.arena.Get(ctp).Symbol))
	n := env.builder.Function(class, "n", ir.Public, ir.Type{})
	ftp := env.builder.TypeParameter(n, "S", intType)
	env.arena.Bind(ftp, ir.NewSymbol(ir.KindTypeParameter))
	env.builder.ValueParameter(n, "s", ir.ClassType(env.arena.Get(ftp).Symbol))
	// Type parameters are counted outermost first
	check_Signature(t, env, ctp, "a.b/C:tp:0")
	check_Signature(t, env, m, "a.b/C.m(#0)")
	check_Signature(t, env, n, "a.b/C.n(#1)<1:kotlin.Int>")
}

func Test_Mangler_07(t *testing.T) {
	env := newEnvironment()
	f := env.builder.Function(env.file, "f", ir.Public, ir.Type{}, intType)
	env.builder.Extension(f, stringType)
	p := env.builder.Property(env.file, "p", ir.Public, intType, false)
	env.builder.Extension(p, stringType)
	//
	check_Signature(t, env, f, "a.b/f(@kotlin.String;kotlin.Int)")
	check_Signature(t, env, p, "a.b/p:prop:@kotlin.String")
	check_Signature(t, env, env.arena.Get(p).Getter, "a.b/p:getter:@kotlin.String")
}

func Test_Mangler_08(t *testing.T) {
	env := newEnvironment()
	class := env.builder.Class(env.file, "C", ir.Public, ir.OrdinaryClass)
	ctor := env.builder.Constructor(class, ir.Public, intType)
	g := env.builder.Function(env.file, "g", ir.Public, stringType)
	u := env.builder.Function(env.file, "u", ir.Public, unitType)
	//
	check_Signature(t, env, ctor, "a.b/C.<init>(kotlin.Int)")
	check_Signature(t, env, g, "a.b/g():kotlin.String")
	check_Signature(t, env, u, "a.b/u()")
}

func Test_Mangler_09(t *testing.T) {
	env := newEnvironment()
	list := ir.NullableType(ir.ClassType(ir.NewPublicSymbol(ir.KindClass, "kotlin.collections/List"), stringType))
	f := env.builder.Function(env.file, "f", ir.Public, ir.Type{}, list)
	v := env.builder.Function(env.file, "v", ir.Public, ir.Type{}, intType)
	env.arena.Get(env.arena.Get(v).Params[0]).Vararg = true
	//
	check_Signature(t, env, f, "a.b/f(kotlin.collections.List[kotlin.String]?)")
	check_Signature(t, env, v, "a.b/v(kotlin.Int...)")
}

func Test_Mangler_10(t *testing.T) {
	env := newEnvironment()
	// Package fragments have no signature
	value := assert.Panics(t, func() { env.mangler.Signature(env.file) })
	_, ok := value.(*ir.ConsistencyError)
	assert.True(t, ok)
}

func Test_Mangler_11(t *testing.T) {
	env := newEnvironment()
	class := env.builder.Class(env.file, "x", ir.Public, ir.OrdinaryClass)
	prop := env.builder.Property(env.file, "x", ir.Public, intType, false)
	// A class and a property of the same name do not collide
	check_Signature(t, env, class, "a.b/x")
	check_Signature(t, env, prop, "a.b/x:prop:")
	assert.NotEqual(t, GlobalId(env.mangler.Signature(class)), GlobalId(env.mangler.Signature(prop)))
}

// ===================================================================
// Test Helpers
// ===================================================================

type environment struct {
	arena   *ir.Arena
	builder *ir.Builder
	mangler *Mangler
	checker *ExportChecker
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
	return &environment{arena, builder, NewMangler(arena), NewExportChecker(arena), file}
}

func classType(sig ir.Signature) ir.Type {
	return ir.ClassType(ir.NewPublicSymbol(ir.KindClass, sig))
}

func check_Signature(t *testing.T, env *environment, id ir.DeclID, expected ir.Signature) {
	t.Helper()
	//
	assert.Equal(t, expected, env.mangler.Signature(id))
}
