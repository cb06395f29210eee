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

import (
	"testing"

	"github.com/consensys/go-irlink/pkg/util/assert"
)

func Test_UniqId_01(t *testing.T) {
	assert.Equal(t, "7G", GlobalId(7).String())
	assert.Equal(t, "12L", LocalId(12).String())
	assert.Equal(t, "7G.ird", GlobalId(7).RecordName("ird"))
}

func Test_UniqId_02(t *testing.T) {
	for _, id := range []UniqId{GlobalId(0), GlobalId(7), LocalId(42), GlobalId(1<<63 + 5)} {
		parsed, err := ParseUniqId(id.String())
		assert.NoError(t, err)
		assert.Equal(t, id, parsed)
	}
}

func Test_UniqId_03(t *testing.T) {
	for _, s := range []string{"", "7", "G", "7X", "-1G", "1.5L"} {
		_, err := ParseUniqId(s)
		assert.True(t, err != nil, "parsed \"%s\"", s)
	}
}

func Test_UniqIdKey_01(t *testing.T) {
	// Modules are irrelevant for non-local identifiers
	assert.Equal(t, KeyOf(GlobalId(7), "a"), KeyOf(GlobalId(7), "b"))
	assert.NotEqual(t, KeyOf(LocalId(7), "a"), KeyOf(LocalId(7), "b"))
	assert.NotEqual(t, KeyOf(LocalId(7), "a"), KeyOf(GlobalId(7), "a"))
	assert.Equal(t, "7L@a", KeyOf(LocalId(7), "a").String())
}

func Test_Key_01(t *testing.T) {
	decl := DeclKey(3)
	link := LinkKey(KeyOf(LocalId(3), "a"))
	//
	id, ok := decl.Decl()
	assert.True(t, ok)
	assert.Equal(t, DeclID(3), id)
	_, ok = decl.Link()
	assert.False(t, ok)
	//
	key, ok := link.Link()
	assert.True(t, ok)
	assert.Equal(t, KeyOf(LocalId(3), "a"), key)
	_, ok = link.Decl()
	assert.False(t, ok)
}

func Test_Key_02(t *testing.T) {
	// The zero link key and the zero declaration key are distinct
	assert.NotEqual(t, DeclKey(NoDecl), LinkKey(UniqIdKey{}))
}
