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
	"io/ioutil"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/daqio/daqio"
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the registered trigger and buffer types",
	RunE:  runTypes,
}

func init() {
	rootCmd.AddCommand(typesCmd)
}

func runTypes(cmd *cobra.Command, args []string) error {
	logger := logrus.New()
	logger.SetOutput(ioutil.Discard)

	f := daqio.New(logger)

	fmt.Println("Trigger types:")
	for _, name := range f.TriggerTypeNames() {
		fmt.Printf("  %s\n", name)
	}

	fmt.Println("Buffer types:")
	for _, name := range f.BufferTypeNames() {
		fmt.Printf("  %s\n", name)
	}

	return nil
}
