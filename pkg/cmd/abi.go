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
	"encoding/json"
	"fmt"
	"os"

	"github.com/consensys/go-irlink/pkg/ir"
	"github.com/consensys/go-irlink/pkg/library"
	"github.com/consensys/go-irlink/pkg/linker"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var abiCmd = &cobra.Command{
	Use:   "abi [flags] library_dir module",
	Short: "list the public symbols of a module.",
	Long: `Materialise every top-level declaration of a module, and list the
	 signature-keyed symbols which result.  This includes symbols referenced by
	 the module but provided elsewhere (or by stubs).`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 2 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		//
		config := getLinkerConfig(cmd)
		config.Modules = append(config.Modules, args[1])
		//
		lib, err := library.Open(args[0])
		exitOnError(err)
		//
		module, ok := lib.Module(args[1])
		if !ok {
			exitOnError(fmt.Errorf("%w \"%s\"", linker.ErrUnknownModule, args[1]))
		}
		//
		l, err := linker.New(linker.NewSession(), lib, config)
		exitOnError(err)
		//
		for _, entry := range module.Entries() {
			if entry.IsTopLevel() {
				exitOnError(l.Resolve(ir.KeyOf(entry.Id, module.Name())))
			}
		}
		//
		exitOnError(l.Finish())
		//
		symbols := publicSymbols(l)
		//
		if GetFlag(cmd, "json") {
			bytes, err := json.MarshalIndent(symbols, "", "  ")
			exitOnError(err)
			fmt.Println(string(bytes))
		} else {
			data := pterm.TableData{{"Signature", "Kind", "Module"}}
			for _, s := range symbols {
				data = append(data, []string{s.Signature, s.Kind, s.Module})
			}
			//
			exitOnError(pterm.DefaultTable.WithHasHeader().WithData(data).Render())
		}
	},
}

type publicSymbol struct {
	Signature string `json:"signature"`
	Kind      string `json:"kind"`
	Module    string `json:"module"`
}

func publicSymbols(l *linker.Linker) []publicSymbol {
	var (
		symbols []publicSymbol
		arena   = l.Session().Arena
	)
	//
	l.Session().Table.ForEachPublicSymbol(func(sig ir.Signature, symbol *ir.Symbol) {
		var module string
		//
		if owner, ok := ir.OwnerOf(symbol); ok {
			module = arena.ModuleName(owner)
		}
		//
		symbols = append(symbols, publicSymbol{string(sig), symbol.Kind().String(), module})
	})
	//
	return symbols
}

//nolint:errcheck
func init() {
	rootCmd.AddCommand(abiCmd)
	abiCmd.Flags().Bool("json", false, "output as JSON.")
	addLinkerFlags(abiCmd)
}
