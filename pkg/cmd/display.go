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
	"errors"
	"fmt"
	"os"

	"github.com/consensys/go-irlink/pkg/ir"
	"github.com/pterm/pterm"
)

var (
	successColorFG = pterm.FgLightGreen
	successStyleBG = pterm.NewStyle(pterm.BgLightGreen, pterm.FgBlack)
	errorColorFG   = pterm.FgRed
	errorStyleBG   = pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
)

// printError prints an error to the console, distinguishing internal
// consistency violations from ordinary failures.
func printError(err error) {
	var cerr *ir.ConsistencyError
	//
	tag := "error"
	if errors.As(err, &cerr) {
		tag = "internal error"
	}
	//
	errorStyleBG.Print(" " + tag + " ")
	errorColorFG.Println(" " + err.Error())
}

// printSuccess prints an informational message to the console.
func printSuccess(tag string, format string, args ...any) {
	successStyleBG.Print(" " + tag + " ")
	successColorFG.Println(" " + fmt.Sprintf(format, args...))
}

// exitOnError reports an error and exits, if there is one.
func exitOnError(err error) {
	if err != nil {
		printError(err)
		os.Exit(1)
	}
}
