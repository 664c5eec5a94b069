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

package daqio

import (
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func TestRegisterLiteralName(t *testing.T) {
	logger, _ := test.NewNullLogger()
	r := newNameRegistry("widget", logger)

	name, err := r.register("adc", 1)
	assert.NoError(t, err)
	assert.Equal(t, "adc", name)

	got, err := r.lookup("adc")
	assert.NoError(t, err)
	assert.Equal(t, 1, got)
}

func TestRegisterDuplicateLiteralFails(t *testing.T) {
	logger, _ := test.NewNullLogger()
	r := newNameRegistry("widget", logger)

	_, err := r.register("adc", 1)
	assert.NoError(t, err)

	_, err = r.register("adc", 2)
	assert.ErrorIs(t, err, ErrExists)
}

func TestRegisterExpandsPlaceholder(t *testing.T) {
	logger, _ := test.NewNullLogger()
	r := newNameRegistry("widget", logger)

	first, err := r.register("adc-%d", 1)
	assert.NoError(t, err)
	assert.Equal(t, "adc-0", first)

	second, err := r.register("adc-%d", 2)
	assert.NoError(t, err)
	assert.Equal(t, "adc-1", second)

	// A freed index is reused by the next registration
	assert.NoError(t, r.unregister("adc-0"))
	third, err := r.register("adc-%d", 3)
	assert.NoError(t, err)
	assert.Equal(t, "adc-0", third)
}

func TestUnregisterUnknownFails(t *testing.T) {
	logger, _ := test.NewNullLogger()
	r := newNameRegistry("widget", logger)

	assert.ErrorIs(t, r.unregister("adc"), ErrNotFound)
}

func TestPinnedEntryCannotBeUnregistered(t *testing.T) {
	logger, _ := test.NewNullLogger()
	r := newNameRegistry("widget", logger)

	_, _ = r.register("adc", 1)

	_, err := r.get("adc")
	assert.NoError(t, err)

	assert.ErrorIs(t, r.unregister("adc"), ErrBusy)

	r.put("adc")
	assert.NoError(t, r.unregister("adc"))
}

func TestUnbalancedPutPanics(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Errorf("This test should panic")
		} else {
			assert.Equal(t, `unbalanced put of widget "adc"`, r)
		}
	}()

	logger, _ := test.NewNullLogger()
	r := newNameRegistry("widget", logger)

	_, _ = r.register("adc", 1)
	r.put("adc")
}

func TestRenameKeepsPins(t *testing.T) {
	logger, _ := test.NewNullLogger()
	r := newNameRegistry("widget", logger)

	_, _ = r.register("adc", 1)
	_, _ = r.get("adc")

	assert.NoError(t, r.rename("adc", "dac"))

	_, err := r.lookup("adc")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, r.unregister("dac"), ErrBusy)
	r.put("dac")
	assert.NoError(t, r.unregister("dac"))
}

func TestRenameToTakenNameFails(t *testing.T) {
	logger, _ := test.NewNullLogger()
	r := newNameRegistry("widget", logger)

	_, _ = r.register("adc", 1)
	_, _ = r.register("dac", 2)

	assert.ErrorIs(t, r.rename("adc", "dac"), ErrExists)
}

func TestNamesAreSorted(t *testing.T) {
	logger, _ := test.NewNullLogger()
	r := newNameRegistry("widget", logger)

	_, _ = r.register("dac", 1)
	_, _ = r.register("adc", 2)
	_, _ = r.register("tdc", 3)

	assert.Equal(t, []string{"adc", "dac", "tdc"}, r.names())
	assert.Equal(t, 3, r.count())
}
