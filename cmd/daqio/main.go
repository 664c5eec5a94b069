/* This file is part of daqio.
 *
 * Copyright © 2026 The daqio authors
 *
 * Licensed under the Apache Software License, Version 2.0
 * Fedora-License-Identifier: ASL 2.0
 * SPDX-2.0-License-Identifier: Apache-2.0
 * SPDX-3.0-License-Identifier: Apache-2.0
 *
 * daqio is free software.
 * For more information on the license, see LICENSE.
 * For more information on free software, see <https://www.gnu.org/philosophy/free-sw.en.html>.
 *
 * You may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	verbosityNormal verbosityLevel = iota
	verbosityVerbose
	verbosityVery
)

type verbosityLevel int

var (
	verboseFlag     bool
	veryVerboseFlag bool
	configPath      string
)

var rootCmd = &cobra.Command{
	Use:   "daqio",
	Short: "Data acquisition engine with a simulated device",
	Long: `daqio runs the acquisition engine against a simulated device.

Commands:
  run      Acquire continuously and expose Prometheus metrics
  capture  Acquire for a fixed duration and write a WAV file
  types    List the registered trigger and buffer types`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable logging to stderr")
	rootCmd.PersistentFlags().BoolVar(&veryVerboseFlag, "vv", false, "Enable very verbose logging to stderr")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
}

// calculateVerbosityLevel produces a verbosity level given the verbosity level flags provided
func calculateVerbosityLevel(verbose, veryVerbose bool) verbosityLevel {
	if veryVerbose {
		return verbosityVery
	} else if verbose {
		return verbosityVerbose
	}

	return verbosityNormal
}
