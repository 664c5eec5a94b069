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

func TestGetReturnsExactLength(t *testing.T) {
	logger, _ := test.NewNullLogger()
	pool := newPayloadPool(logger)

	buf := pool.get(100)
	assert.Equal(t, 100, len(buf))
	assert.Equal(t, 128, cap(buf))
}

func TestTinyPayloadUsesSmallestClass(t *testing.T) {
	logger, _ := test.NewNullLogger()
	pool := newPayloadPool(logger)

	buf := pool.get(1)
	assert.Equal(t, 1, len(buf))
	assert.Equal(t, minPayloadChunk, cap(buf))
}

func TestZeroLengthPayloadIsNil(t *testing.T) {
	logger, _ := test.NewNullLogger()
	pool := newPayloadPool(logger)

	assert.Nil(t, pool.get(0))
}

func TestOversizedPayloadBypassesPool(t *testing.T) {
	logger, hook := test.NewNullLogger()
	pool := newPayloadPool(logger)

	buf := pool.get(maxPayloadChunk + 1)
	assert.Equal(t, maxPayloadChunk+1, len(buf))
	assert.NotNil(t, hook.LastEntry())

	assert.Error(t, pool.put(buf))
}

func TestPutRoundTrip(t *testing.T) {
	logger, _ := test.NewNullLogger()
	pool := newPayloadPool(logger)

	buf := pool.get(4096)
	assert.NoError(t, pool.put(buf))
}

func TestPutRejectsForeignSlices(t *testing.T) {
	logger, _ := test.NewNullLogger()
	pool := newPayloadPool(logger)

	assert.Error(t, pool.put(make([]byte, 100)))
	assert.Error(t, pool.put(make([]byte, 2)))
}

func TestPayloadClassBoundaries(t *testing.T) {
	idx, ok := payloadClass(minPayloadChunk)
	assert.True(t, ok)
	assert.Equal(t, 0, idx)

	idx, ok = payloadClass(minPayloadChunk + 1)
	assert.True(t, ok)
	assert.Equal(t, 1, idx)

	idx, ok = payloadClass(maxPayloadChunk)
	assert.True(t, ok)
	assert.Equal(t, maxPayloadPower-minPayloadPower, idx)

	_, ok = payloadClass(maxPayloadChunk + 1)
	assert.False(t, ok)
}
