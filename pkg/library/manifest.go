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

	"github.com/consensys/go-irlink/pkg/ir"
	"github.com/pelletier/go-toml"
)

// ManifestFile is the name of the manifest held in every module directory.
const ManifestFile = "manifest.toml"

// RecordDir is the subdirectory of a module directory holding its records.
const RecordDir = "decls"

// Manifest describes a module of a library as it is encoded in TOML.
type Manifest struct {
	Name         string      `toml:"name"`
	Version      string      `toml:"version"`
	Dependencies []string    `toml:"dependencies"`
	Files        []FileEntry `toml:"files"`
	Declarations []DeclEntry `toml:"declarations"`
}

// FileEntry describes one source file of a module.
type FileEntry struct {
	Name    string `toml:"name"`
	Package string `toml:"package"`
}

// DeclEntry describes one addressable declaration of a module, and the record
// in which it can be found.
type DeclEntry struct {
	Id        string `toml:"id"`
	Record    string `toml:"record"`
	Signature string `toml:"signature,omitempty"`
	FqName    string `toml:"fqname"`
	Kind      string `toml:"kind"`
	File      string `toml:"file"`
}

// Entry is a declaration entry of a loaded module, with its identifiers
// parsed.
type Entry struct {
	Id        ir.UniqId
	Record    ir.UniqId
	Signature ir.Signature
	FqName    string
	Kind      string
	File      string
}

// IsTopLevel checks whether this entry describes a declaration stored in its
// own record.
func (e *Entry) IsTopLevel() bool {
	return e.Id == e.Record
}

// ReadManifest reads and validates the manifest at a given path.
func ReadManifest(path string) (*Manifest, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	//
	manifest := &Manifest{}
	if err := toml.Unmarshal(bytes, manifest); err != nil {
		return nil, fmt.Errorf("error parsing manifest at \"%s\": %w", path, err)
	} else if manifest.Name == "" {
		return nil, fmt.Errorf("manifest at \"%s\" is missing module name", path)
	}
	//
	return manifest, nil
}

// WriteManifest writes a manifest to a given path.
func WriteManifest(path string, manifest *Manifest) error {
	bytes, err := toml.Marshal(*manifest)
	if err != nil {
		return err
	}
	//
	return os.WriteFile(path, bytes, 0644)
}

func parseEntry(d *DeclEntry) (Entry, error) {
	id, err := ir.ParseUniqId(d.Id)
	if err != nil {
		return Entry{}, err
	}
	//
	record, err := ir.ParseUniqId(d.Record)
	if err != nil {
		return Entry{}, err
	}
	//
	return Entry{id, record, ir.Signature(d.Signature), d.FqName, d.Kind, d.File}, nil
}
