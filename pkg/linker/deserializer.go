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

	"github.com/consensys/go-irlink/pkg/binfile"
	"github.com/consensys/go-irlink/pkg/ir"
	"github.com/consensys/go-irlink/pkg/symbol"
	"github.com/consensys/go-irlink/pkg/util"
	log "github.com/sirupsen/logrus"
)

// declarer is implemented by both flat and scoped tables.
type declarer interface {
	DeclareFromExternalId(sig ir.Signature, origin ir.DeclID, create symbol.Factory,
		materialize symbol.Materializer) ir.DeclID
	DeclareKey(key ir.Key, origin ir.DeclID, create symbol.Factory, materialize symbol.Materializer) ir.DeclID
}

// deserializer materialises the declarations of a single record into the
// session, binding each into the symbol table.  Declarations keyed by
// signature in the record are declared by that signature; all others by their
// linker key.
type deserializer struct {
	linker *Linker
	module string
	// Keys of records referenced from the record being materialised.
	references *util.OrderedSet[ir.UniqIdKey]
}

func newDeserializer(l *Linker, module string) *deserializer {
	return &deserializer{l, module, util.NewOrderedSet[ir.UniqIdKey]()}
}

func (d *deserializer) decl(bd *binfile.Decl, parent ir.DeclID) (ir.DeclID, error) {
	var (
		arena = d.linker.session.Arena
		key   = ir.KeyOf(bd.Id, d.module)
		fresh bool
		id    ir.DeclID
	)
	//
	table, err := d.tableFor(bd.Kind, parent)
	if err != nil {
		return ir.NoDecl, err
	}
	//
	materialize := func(*ir.Symbol) ir.DeclID {
		fresh = true
		//
		return arena.New(ir.Decl{
			Kind:         bd.Kind,
			Name:         bd.Name,
			Parent:       parent,
			Visibility:   bd.Visibility,
			Annotations:  bd.Annotations,
			ClassKind:    bd.ClassKind,
			Accessor:     bd.Accessor,
			Const:        bd.Const,
			Static:       bd.Static,
			Index:        bd.Index,
			Vararg:       bd.Vararg,
			FakeOverride: bd.FakeOverride,
			Uniq:         util.Some(bd.Id),
			External:     true,
		})
	}
	//
	if bd.Signature != "" {
		id = table.DeclareFromExternalId(ir.Signature(bd.Signature), ir.NoDecl, nil, materialize)
	} else {
		id = table.DeclareKey(ir.LinkKey(key), ir.NoDecl, nil, materialize)
	}
	//
	d.linker.decls[key] = id
	//
	if !fresh {
		// Some other declaration was bound first
		log.Debugf("%s %s already declared as #%d", bd.Kind, key, id)
		return id, nil
	}
	//
	return id, d.fill(bd, id)
}

// fill in the contents of a freshly allocated declaration.  Callables
// introduce a scope, within which their locals are declared.  A scope is never
// left behind, even when filling fails.
func (d *deserializer) fill(bd *binfile.Decl, id ir.DeclID) error {
	var (
		table  = d.linker.session.Table
		decl   = d.linker.session.Arena.Get(id)
		scoped = bd.Kind == ir.KindConstructor || bd.Kind == ir.KindFunction || bd.Kind == ir.KindProperty
		left   bool
		err    error
	)
	//
	if scoped {
		table.EnterScope(id)
		//
		defer func() {
			if !left {
				table.DiscardScope(id)
			}
		}()
	}
	//
	if decl.TypeParams, err = d.typeParameters(bd.TypeParams, id); err != nil {
		return err
	} else if decl.Supertypes, err = d.types(bd.Supertypes); err != nil {
		return err
	}
	//
	if bd.Receiver != nil {
		receiver, err := d.typ(bd.Receiver)
		if err != nil {
			return err
		}
		//
		decl.Receiver = util.Some(receiver)
	}
	//
	if decl.Params, err = d.decls(bd.Params, id); err != nil {
		return err
	}
	//
	if bd.Return != nil {
		if decl.Return, err = d.typ(bd.Return); err != nil {
			return err
		}
	}
	//
	if _, err = d.decls(bd.Variables, id); err != nil {
		return err
	}
	//
	for i := range bd.Overridden {
		symbol, err := d.symbolFor(&bd.Overridden[i])
		if err != nil {
			return err
		}
		//
		decl.Overridden = append(decl.Overridden, symbol)
	}
	//
	if _, err = d.decls(bd.Members, id); err != nil {
		return err
	} else if decl.Body, err = d.exprs(bd.Body); err != nil {
		return err
	}
	//
	if bd.Kind == ir.KindProperty {
		d.linkAccessors(id)
	}
	//
	if scoped {
		table.LeaveScope(id)
		left = true
	}
	//
	return nil
}

func (d *deserializer) decls(bds []binfile.Decl, parent ir.DeclID) ([]ir.DeclID, error) {
	var ids []ir.DeclID
	//
	for i := range bds {
		id, err := d.decl(&bds[i], parent)
		if err != nil {
			return nil, err
		}
		//
		ids = append(ids, id)
	}
	//
	return ids, nil
}

// typeParameters declares all type parameters of an owner before their
// bounds, since bounds may refer to any of them.
func (d *deserializer) typeParameters(bds []binfile.Decl, owner ir.DeclID) ([]ir.DeclID, error) {
	ids, err := d.decls(bds, owner)
	if err != nil {
		return nil, err
	}
	//
	for i, id := range ids {
		if d.linker.session.Arena.Get(id).Bounds, err = d.types(bds[i].Bounds); err != nil {
			return nil, err
		}
	}
	//
	return ids, nil
}

// linkAccessors connects a materialised property with its accessors and
// backing field.
func (d *deserializer) linkAccessors(id ir.DeclID) {
	var (
		arena = d.linker.session.Arena
		prop  = arena.Get(id)
	)
	//
	for _, m := range prop.Members {
		member := arena.Get(m)
		//
		switch {
		case member.Kind == ir.KindFunction && member.Accessor == ir.Getter:
			prop.Getter = m
		case member.Kind == ir.KindFunction && member.Accessor == ir.Setter:
			prop.Setter = m
		case member.Kind == ir.KindField:
			prop.BackingField = m
		default:
			continue
		}
		//
		member.Property = id
	}
}

// tableFor determines which table declarations of a given kind belong to.
// Type parameters of classes are global, whilst all others are local.
func (d *deserializer) tableFor(kind ir.Kind, parent ir.DeclID) (declarer, error) {
	var table = d.linker.session.Table
	//
	switch kind {
	case ir.KindValueParameter:
		return table.ValueParameters, nil
	case ir.KindVariable:
		return table.Variables, nil
	case ir.KindTypeParameter:
		if d.linker.session.Arena.Get(parent).Kind == ir.KindClass {
			return table.GlobalTypeParameters, nil
		}
		//
		return table.TypeParameters, nil
	case ir.KindClass, ir.KindConstructor, ir.KindEnumEntry, ir.KindField, ir.KindFunction, ir.KindProperty:
		flat, _ := table.Flat(kind)
		return flat, nil
	default:
		return nil, fmt.Errorf("%w: %s cannot be held in a record", binfile.ErrMalformedRecord, kind)
	}
}

// symbolFor returns the symbol referred to by a given reference.  References
// to declarations outside the current record are noted, so that their records
// become reachable.
func (d *deserializer) symbolFor(ref *binfile.SymbolRef) (*ir.Symbol, error) {
	var (
		table = d.linker.session.Table
		key   = ref.Key()
		sig   = ir.Signature(ref.Signature)
	)
	//
	if ref.IsDescriptor() {
		return d.linker.resolveDescriptor(ref.Kind, ref.Descriptor)
	}
	//
	switch ref.Kind {
	case ir.KindValueParameter:
		return table.ValueParameters.ReferenceKey(ir.LinkKey(key), nil), nil
	case ir.KindVariable:
		return table.Variables.ReferenceKey(ir.LinkKey(key), nil), nil
	case ir.KindTypeParameter:
		if symbol, ok := d.localTypeParameter(key, sig); ok {
			return symbol, nil
		}
	}
	//
	flat, ok := table.Flat(ref.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: reference to %s", binfile.ErrMalformedRecord, ref.Kind)
	}
	//
	d.references.Insert(ref.TopLevelKey())
	//
	var symbol *ir.Symbol
	//
	if key, sig = d.linker.canonical(key, sig); sig != "" {
		symbol = flat.ReferenceSignature(sig, nil)
	} else {
		symbol = flat.ReferenceKey(ir.LinkKey(key), nil)
	}
	//
	if !symbol.IsBound() {
		d.linker.symbols[symbol] = key
	}
	//
	return symbol, nil
}

// localTypeParameter finds a type parameter of an enclosing callable, if the
// given key identifies one.
func (d *deserializer) localTypeParameter(key ir.UniqIdKey, sig ir.Signature) (*ir.Symbol, bool) {
	var table = d.linker.session.Table.TypeParameters
	//
	if table.Depth() == 0 {
		return nil, false
	} else if sig != "" {
		return table.LookupSignature(sig)
	}
	//
	return table.LookupKey(ir.LinkKey(key))
}

func (d *deserializer) types(bts []binfile.Type) ([]ir.Type, error) {
	var types []ir.Type
	//
	for i := range bts {
		t, err := d.typ(&bts[i])
		if err != nil {
			return nil, err
		}
		//
		types = append(types, t)
	}
	//
	return types, nil
}

func (d *deserializer) typ(bt *binfile.Type) (ir.Type, error) {
	var (
		t   = ir.Type{Nullable: bt.Nullable}
		err error
	)
	//
	if bt.Classifier != nil {
		if t.Classifier, err = d.symbolFor(bt.Classifier); err != nil {
			return t, err
		}
	}
	//
	t.Args, err = d.types(bt.Args)
	//
	return t, err
}

func (d *deserializer) exprs(bes []binfile.Expr) ([]ir.Expr, error) {
	var exprs []ir.Expr
	//
	for i := range bes {
		e, err := d.expr(&bes[i])
		if err != nil {
			return nil, err
		}
		//
		exprs = append(exprs, e)
	}
	//
	return exprs, nil
}

func (d *deserializer) expr(be *binfile.Expr) (ir.Expr, error) {
	var (
		e   = ir.Expr{Op: be.Op, Value: be.Value}
		err error
	)
	//
	if be.Target != nil {
		if e.Target, err = d.symbolFor(be.Target); err != nil {
			return e, err
		}
	}
	//
	if be.Type != nil {
		if e.Type, err = d.typ(be.Type); err != nil {
			return e, err
		}
	}
	//
	e.Args, err = d.exprs(be.Args)
	//
	return e, err
}
