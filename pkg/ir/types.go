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

// Type is a (possibly generic) type, as used for parameters, return types,
// supertypes and bounds.  The classifier is the symbol of a class or of a type
// parameter.  A nil classifier is the unknown type, used only by stubs.
type Type struct {
	Classifier *Symbol
	Args       []Type
	Nullable   bool
}

// ClassType constructs a non-nullable type from a given classifier.
func ClassType(classifier *Symbol, args ...Type) Type {
	return Type{classifier, args, false}
}

// NullableType returns a nullable variant of the given type.
func NullableType(t Type) Type {
	t.Nullable = true
	return t
}

// IsKnown checks whether this type has a classifier.
func (t Type) IsKnown() bool {
	return t.Classifier != nil
}

// Symbols appends every symbol referenced by this type (including its
// arguments) to the given slice.
func (t Type) Symbols(symbols []*Symbol) []*Symbol {
	if t.Classifier != nil {
		symbols = append(symbols, t.Classifier)
	}
	//
	for _, arg := range t.Args {
		symbols = arg.Symbols(symbols)
	}
	//
	return symbols
}

// ExprOp identifies the operation performed by an expression.
type ExprOp uint8

const (
	// OpConst is a literal constant held in Value.
	OpConst ExprOp = iota
	// OpGetValue reads a parameter or variable.
	OpGetValue
	// OpSetValue writes a variable.
	OpSetValue
	// OpGetField reads a field.
	OpGetField
	// OpSetField writes a field.
	OpSetField
	// OpCall invokes a function.
	OpCall
	// OpNew invokes a constructor.
	OpNew
	// OpGetEnum reads an enum entry.
	OpGetEnum
	// OpTypeOp checks or casts against Type.
	OpTypeOp
	// OpFunctionRef takes a reference to a function.
	OpFunctionRef
	// OpReturn returns from the enclosing callable.
	OpReturn
	// OpBlock sequences its arguments.
	OpBlock
	// OpDeclare introduces the local variable Target.
	OpDeclare
)

// Expr is a node of a declaration body.  Bodies are trees and can nest far
// deeper than declarations themselves.
type Expr struct {
	Op     ExprOp
	Target *Symbol
	Type   Type
	Args   []Expr
	Value  string
}

// Walk visits this expression and all its descendants in pre-order.
func (e *Expr) Walk(fn func(*Expr)) {
	fn(e)
	//
	for i := range e.Args {
		e.Args[i].Walk(fn)
	}
}

// Depth returns the nesting depth of this expression, where a leaf has depth
// one.
func (e *Expr) Depth() uint {
	var depth uint
	//
	for i := range e.Args {
		depth = max(depth, e.Args[i].Depth())
	}
	//
	return depth + 1
}
