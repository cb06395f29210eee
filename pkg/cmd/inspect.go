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
	"strings"

	"github.com/consensys/go-irlink/pkg/binfile"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [flags] record_file",
	Short: "inspect a declaration record.",
	Long:  `Print the header and declaration tree of a single declaration record.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		//
		bytes, err := os.ReadFile(args[0])
		exitOnError(err)
		//
		header, record, err := binfile.Decode(bytes, GetUint(cmd, "max-depth"))
		exitOnError(err)
		//
		printSuccess("record", "%s of module %s (v%d.%d, %s in package %s)", record.Id, record.Module,
			header.MajorVersion, header.MinorVersion, record.File, record.Package)
		//
		root := pterm.TreeNode{Text: describeDecl(&record.Decl), Children: declTree(&record.Decl)}
		exitOnError(pterm.DefaultTree.WithRoot(root).Render())
	},
}

func declTree(d *binfile.Decl) []pterm.TreeNode {
	var nodes []pterm.TreeNode
	//
	for _, group := range [][]binfile.Decl{d.TypeParams, d.Params, d.Variables, d.Members} {
		for i := range group {
			child := &group[i]
			nodes = append(nodes, pterm.TreeNode{Text: describeDecl(child), Children: declTree(child)})
		}
	}
	//
	for _, ref := range d.Overridden {
		nodes = append(nodes, pterm.TreeNode{Text: "overrides " + describeRef(&ref)})
	}
	//
	return nodes
}

func describeDecl(d *binfile.Decl) string {
	var builder strings.Builder
	//
	builder.WriteString(fmt.Sprintf("%s %s [%s]", d.Kind, d.Name, d.Id))
	//
	if d.Signature != "" {
		builder.WriteString(" ")
		builder.WriteString(pterm.FgCyan.Sprint(d.Signature))
	}
	//
	if d.FakeOverride {
		builder.WriteString(" (fake override)")
	}
	//
	return builder.String()
}

func describeRef(r *binfile.SymbolRef) string {
	switch {
	case r.IsDescriptor():
		return r.Descriptor.String()
	case r.Signature != "":
		return r.Signature
	default:
		return r.Key().String()
	}
}

//nolint:errcheck
func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().Uint("max-depth", binfile.DefaultMaxNestingDepth, "limit on the nesting depth of records.")
}
