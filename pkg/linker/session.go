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
	"github.com/consensys/go-irlink/pkg/binfile"
	"github.com/consensys/go-irlink/pkg/ir"
	"github.com/consensys/go-irlink/pkg/symbol"
	"github.com/consensys/go-irlink/pkg/util"
)

// DefaultMaxNestingDepth is the default limit on the nesting depth of the
// records read by a linker.
const DefaultMaxNestingDepth = binfile.DefaultMaxNestingDepth

// ForwardFileName is the name given to the synthetic file holding the forward
// declarations of a package which were never matched with real ones.
const ForwardFileName = "<forward declarations>"

// Session is the state shared by every operation of a compilation: the arena
// owning all declarations, and the symbol table interning them.  There is no
// ambient state; a session is passed explicitly wherever it is needed.  A
// session has one writer at a time.
type Session struct {
	Arena   *ir.Arena
	Table   *symbol.Table
	Builder *ir.Builder
}

// NewSession constructs a session with an empty arena and symbol table.
func NewSession() *Session {
	arena := ir.NewArena()
	//
	return &Session{arena, symbol.NewTable(arena), ir.NewBuilder(arena)}
}

// Config configures a linker.
type Config struct {
	// Name of the module holding forward declarations, if any.
	ForwardDeclarations util.Option[string]
	// Limit on the nesting depth of records, where zero selects the default.
	MaxNestingDepth uint
	// Modules attached when the linker is constructed.
	Modules []string
}

// DefaultConfig returns a configuration with no forward declarations module
// and no modules attached.
func DefaultConfig() Config {
	return Config{util.None[string](), DefaultMaxNestingDepth, nil}
}
