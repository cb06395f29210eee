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

	"github.com/consensys/go-irlink/pkg/linker"
	"github.com/consensys/go-irlink/pkg/util"
	"github.com/spf13/cobra"
)

// GetFlag gets an expected flag, or panic if an error arises.
func GetFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetString gets an expected string, or panic if an error arises.
func GetString(cmd *cobra.Command, flag string) string {
	r, err := cmd.Flags().GetString(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetStringArray gets an expected string array, or panic if an error arises.
func GetStringArray(cmd *cobra.Command, flag string) []string {
	r, err := cmd.Flags().GetStringArray(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetUint gets an expected unsigned integer, or panic if an error arises.
func GetUint(cmd *cobra.Command, flag string) uint {
	r, err := cmd.Flags().GetUint(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// getLinkerConfig extracts the linker configuration from the flags shared by
// all commands which link.
func getLinkerConfig(cmd *cobra.Command) linker.Config {
	config := linker.DefaultConfig()
	//
	if forward := GetString(cmd, "forward"); forward != "" {
		config.ForwardDeclarations = util.Some(forward)
	}
	//
	config.MaxNestingDepth = GetUint(cmd, "max-depth")
	config.Modules = GetStringArray(cmd, "module")
	//
	return config
}

// addLinkerFlags registers the flags shared by all commands which link.
func addLinkerFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayP("module", "m", []string{}, "attach a module of the library.")
	cmd.Flags().String("forward", "", "name of the forward declarations module.")
	cmd.Flags().Uint("max-depth", linker.DefaultMaxNestingDepth, "limit on the nesting depth of records.")
}
