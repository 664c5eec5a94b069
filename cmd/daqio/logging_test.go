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
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestLogFieldsStampsEveryEntry(t *testing.T) {
	hook := logFields{deviceLogField: "sim-0"}

	entry := &logrus.Entry{Data: logrus.Fields{}}
	assert.NoError(t, hook.Fire(entry))
	assert.Equal(t, "sim-0", entry.Data[deviceLogField])

	assert.Equal(t, logrus.AllLevels, hook.Levels())
}

func TestCalculateVerbosityLevel(t *testing.T) {
	assert.Equal(t, verbosityNormal, calculateVerbosityLevel(false, false))
	assert.Equal(t, verbosityVerbose, calculateVerbosityLevel(true, false))
	assert.Equal(t, verbosityVery, calculateVerbosityLevel(false, true))
	assert.Equal(t, verbosityVery, calculateVerbosityLevel(true, true))
}
