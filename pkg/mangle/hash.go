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
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/consensys/go-irlink/pkg/ir"
)

// MaxFunctionArity is the largest arity for which built-in function types have
// reserved signatures.
const MaxFunctionArity = 22

// FunctionFamily identifies a family of built-in function-arity types.
type FunctionFamily uint8

const (
	// Function is the family of kotlin.FunctionN.
	Function FunctionFamily = iota
	// KFunction is the family of kotlin.reflect.KFunctionN.
	KFunction
	// SuspendFunction is the family of kotlin.coroutines.SuspendFunctionN.
	SuspendFunction
	// KSuspendFunction is the family of kotlin.reflect.KSuspendFunctionN.
	KSuspendFunction
)

var functionFamilies = []FunctionFamily{Function, KFunction, SuspendFunction, KSuspendFunction}

// Package returns the package holding the types of this family.
func (f FunctionFamily) Package() string {
	switch f {
	case Function:
		return "kotlin"
	case SuspendFunction:
		return "kotlin.coroutines"
	default:
		return "kotlin.reflect"
	}
}

// Prefix returns the common name prefix of the types of this family.
func (f FunctionFamily) Prefix() string {
	switch f {
	case Function:
		return "Function"
	case KFunction:
		return "KFunction"
	case SuspendFunction:
		return "SuspendFunction"
	default:
		return "KSuspendFunction"
	}
}

// FunctionClassSignature returns the reserved signature of the built-in
// function type of a given family and arity.
func FunctionClassSignature(family FunctionFamily, arity uint) ir.Signature {
	return ir.Signature(fmt.Sprintf("%s/%s%d", family.Package(), family.Prefix(), arity))
}

type reservedFunction struct {
	family FunctionFamily
	arity  uint
	hash   uint64
}

// Reserved hashes occupy [1, reservedLimit).  No ordinary signature hashes
// into this range.
var (
	reserved      = make(map[ir.Signature]reservedFunction)
	reservedLimit uint64
)

func init() {
	var next uint64 = 1
	//
	for _, family := range functionFamilies {
		for arity := uint(0); arity <= MaxFunctionArity; arity++ {
			reserved[FunctionClassSignature(family, arity)] = reservedFunction{family, arity, next}
			next++
		}
	}
	//
	reservedLimit = next
}

// IsReserved checks whether the given signature is that of a built-in function
// type.
func IsReserved(sig ir.Signature) bool {
	_, ok := reserved[sig]
	return ok
}

// ReservedFunctionClass returns the family and arity of a built-in function
// type, given its signature.
func ReservedFunctionClass(sig ir.Signature) (FunctionFamily, uint, bool) {
	if r, ok := reserved[sig]; ok {
		return r.family, r.arity, true
	}
	//
	return 0, 0, false
}

// Hash computes the stable 64-bit hash of a signature.  This is used as the
// index of non-local identifiers and, hence, must never change between
// compiler versions.
func Hash(sig ir.Signature) uint64 {
	if r, ok := reserved[sig]; ok {
		return r.hash
	}
	//
	hash := fnv.New64a()
	// Writing to an fnv hash never fails
	_, _ = hash.Write([]byte(sig))
	h := hash.Sum64()
	//
	if h < reservedLimit {
		h += reservedLimit
	}
	//
	return h
}

// GlobalId returns the non-local identifier of the declaration with the given
// signature.
func GlobalId(sig ir.Signature) ir.UniqId {
	return ir.GlobalId(Hash(sig))
}

// ErrHashCollision is reported when two distinct signatures hash to the same
// identifier.
var ErrHashCollision = errors.New("signature hash collision")

// CollisionChecker detects distinct signatures which hash to the same global
// identifier.  Reserved signatures are excluded from checking.
type CollisionChecker struct {
	seen map[uint64]ir.Signature
}

// NewCollisionChecker constructs an empty collision checker.
func NewCollisionChecker() *CollisionChecker {
	return &CollisionChecker{make(map[uint64]ir.Signature)}
}

// Check records the given signature, reporting an error if a different
// signature was previously recorded with the same hash.
func (p *CollisionChecker) Check(sig ir.Signature) error {
	if IsReserved(sig) {
		return nil
	}
	//
	h := Hash(sig)
	//
	if prev, ok := p.seen[h]; ok && prev != sig {
		return fmt.Errorf("%w: %s and %s (%d)", ErrHashCollision, prev, sig, h)
	}
	//
	p.seen[h] = sig
	//
	return nil
}
