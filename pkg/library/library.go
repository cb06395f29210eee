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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/consensys/go-irlink/pkg/binfile"
	"github.com/consensys/go-irlink/pkg/ir"
	log "github.com/sirupsen/logrus"
)

// ErrRecordNotFound is reported when the record of a declaration which should
// exist cannot be located.
var ErrRecordNotFound = errors.New("record not found")

// Library is a directory of previously compiled modules.  Each module resides
// in its own subdirectory holding a manifest, and one record per top-level
// declaration.
type Library struct {
	dir     string
	modules map[string]*Module
	names   []string
}

// Module is a single module of a library.
type Module struct {
	dir      string
	manifest *Manifest
	entries  map[ir.UniqId]Entry
	order    []ir.UniqId
}

// Open a library directory, loading the manifest of every module found in it.
// Subdirectories without a manifest are ignored.
func Open(dir string) (*Library, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	//
	library := &Library{dir, make(map[string]*Module), nil}
	//
	for _, e := range entries {
		path := filepath.Join(dir, e.Name(), ManifestFile)
		//
		if !e.IsDir() {
			continue
		} else if _, err := os.Stat(path); err != nil {
			continue
		}
		//
		module, err := loadModule(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		} else if _, ok := library.modules[module.Name()]; ok {
			return nil, fmt.Errorf("duplicate module \"%s\" in library \"%s\"", module.Name(), dir)
		}
		//
		library.modules[module.Name()] = module
		library.names = append(library.names, module.Name())
	}
	//
	sort.Strings(library.names)
	//
	log.Debugf("opened library %s (%d modules)", dir, len(library.names))
	//
	return library, nil
}

// Dir returns the directory of this library.
func (p *Library) Dir() string {
	return p.dir
}

// Modules returns the names of all modules in this library, in sorted order.
func (p *Library) Modules() []string {
	return p.names
}

// Module returns the module with the given name, if it exists.
func (p *Library) Module(name string) (*Module, bool) {
	module, ok := p.modules[name]
	return module, ok
}

func loadModule(dir string) (*Module, error) {
	manifest, err := ReadManifest(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}
	//
	module := &Module{dir, manifest, make(map[ir.UniqId]Entry), nil}
	//
	for i := range manifest.Declarations {
		entry, err := parseEntry(&manifest.Declarations[i])
		if err != nil {
			return nil, fmt.Errorf("module \"%s\": %w", manifest.Name, err)
		} else if _, ok := module.entries[entry.Id]; ok {
			return nil, fmt.Errorf("module \"%s\": duplicate declaration %s", manifest.Name, entry.Id)
		}
		//
		module.entries[entry.Id] = entry
		module.order = append(module.order, entry.Id)
	}
	//
	log.Debugf("loaded module %s (%d declarations)", manifest.Name, len(module.order))
	//
	return module, nil
}

// Name returns the name of this module.
func (p *Module) Name() string {
	return p.manifest.Name
}

// Manifest returns the manifest of this module.
func (p *Module) Manifest() *Manifest {
	return p.manifest
}

// Entry returns the manifest entry for a given declaration, if there is one.
func (p *Module) Entry(id ir.UniqId) (Entry, bool) {
	entry, ok := p.entries[id]
	return entry, ok
}

// Entries returns every declaration entry of this module, in manifest order.
func (p *Module) Entries() []Entry {
	entries := make([]Entry, len(p.order))
	//
	for i, id := range p.order {
		entries[i] = p.entries[id]
	}
	//
	return entries
}

// RecordPath returns the path of the record with a given identifier.
func (p *Module) RecordPath(id ir.UniqId) string {
	return filepath.Join(p.dir, RecordDir, id.RecordName(binfile.Extension))
}

// ReadRecord reads the record with the given identifier, rejecting any nested
// deeper than the given limit (with zero selecting the default limit).
func (p *Module) ReadRecord(id ir.UniqId, limit uint) (*binfile.Record, error) {
	bytes, err := os.ReadFile(p.RecordPath(id))
	//
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s in module %s", ErrRecordNotFound, id, p.Name())
	} else if err != nil {
		return nil, err
	}
	//
	_, record, err := binfile.Decode(bytes, limit)
	if err != nil {
		return nil, fmt.Errorf("record %s of module %s: %w", id, p.Name(), err)
	} else if record.Id != id || record.Module != p.Name() {
		return nil, fmt.Errorf("%w: record %s of module %s claims to be %s of module %s", binfile.ErrMalformedRecord,
			id, p.Name(), record.Id, record.Module)
	}
	//
	return record, nil
}
