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
package cmd

import (
	"fmt"
	"os"

	"github.com/consensys/go-irlink/pkg/ir"
	"github.com/consensys/go-irlink/pkg/library"
	"github.com/consensys/go-irlink/pkg/linker"
	"github.com/pterm/pterm"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var linkCmd = &cobra.Command{
	Use:   "link [flags] library_dir",
	Short: "link the closure of declarations reachable from given entry points.",
	Long: `Materialise every declaration reachable from the given entry points, as
	found in the attached modules of a library.  Any declaration not provided by
	an attached module is replaced by a dependency stub.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		//
		entries := GetStringArray(cmd, "entry")
		config := getLinkerConfig(cmd)
		//
		lib, err := library.Open(args[0])
		exitOnError(err)
		// By default, attach everything
		if len(config.Modules) == 0 {
			config.Modules = allModules(lib, config)
		}
		//
		session := linker.NewSession()
		l, err := linker.New(session, lib, config)
		exitOnError(err)
		//
		for _, entry := range entries {
			log.Debugf("resolving entry point %s", entry)
			exitOnError(l.ResolveSignature(ir.Signature(entry)))
		}
		//
		exitOnError(l.Finish())
		//
		printSuccess("linked", "%d declarations from %d modules (%d keys parked)",
			len(l.Deserialized()), len(l.Attached()), len(l.Parked()))
		//
		if GetFlag(cmd, "list") {
			printDeserialized(l)
		}
	},
}

// allModules returns the names of all modules in a library, except for the
// forward declarations module (which is attached separately).
func allModules(lib *library.Library, config linker.Config) []string {
	var (
		names      []string
		forward, _ = config.ForwardDeclarations.Get()
	)
	//
	for _, name := range lib.Modules() {
		if name != forward {
			names = append(names, name)
		}
	}
	//
	return names
}

func printDeserialized(l *linker.Linker) {
	var (
		arena = l.Session().Arena
		data  = pterm.TableData{{"Key", "Kind", "Name", "Module"}}
	)
	//
	for _, key := range l.Deserialized() {
		id, ok := l.Lookup(key)
		if !ok {
			continue
		}
		//
		decl := arena.Get(id)
		data = append(data, []string{key.String(), decl.Kind.String(), arena.FqName(id), arena.ModuleName(id)})
	}
	//
	exitOnError(pterm.DefaultTable.WithHasHeader().WithData(data).Render())
}

//nolint:errcheck
func init() {
	rootCmd.AddCommand(linkCmd)
	linkCmd.Flags().StringArrayP("entry", "e", []string{}, "signature of an entry point.")
	linkCmd.Flags().BoolP("list", "l", false, "list all materialised declarations.")
	addLinkerFlags(linkCmd)
}
