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
	"errors"
	"math/bits"
	"sync"

	"github.com/sirupsen/logrus"
)

const minPayloadPower = 6  // 2 ^ 6 bytes, 64 bytes
const maxPayloadPower = 20 // 2 ^ 20 bytes, 1 MiB
const minPayloadChunk = 1 << minPayloadPower
const maxPayloadChunk = 1 << maxPayloadPower

// payloadPool caches block payload slices in power-of-two size classes
// so steady-state acquisition does not churn the garbage collector. A
// timer trigger at a few kHz allocates and frees one payload per channel
// per cycle; without pooling that is pure GC pressure.
type payloadPool struct {
	classes []*sync.Pool
	log     *logrus.Logger
}

// newPayloadPool initializes one sync.Pool per size class
func newPayloadPool(log *logrus.Logger) *payloadPool {
	classes := make([]*sync.Pool, 0, maxPayloadPower-minPayloadPower+1)

	for pow := minPayloadPower; pow <= maxPayloadPower; pow++ {
		size := 1 << uint(pow)
		classes = append(classes, &sync.Pool{
			New: func() interface{} {
				return make([]byte, size)
			},
		})
	}

	return &payloadPool{classes: classes, log: log}
}

// get fetches a slice of exactly length bytes backed by the smallest
// enclosing size class. The slice holds junk from its previous life; the
// driver overwrites every byte during acquisition.
func (pp *payloadPool) get(length int) []byte {
	if length == 0 {
		return nil
	}

	idx, ok := payloadClass(length)
	if !ok {
		// Oversized payloads bypass the pool entirely
		pp.log.Warnf("pool bypass for %d byte payload", length)
		return make([]byte, length)
	}

	return pp.classes[idx].Get().([]byte)[:length]
}

// put returns a payload slice to its size class. Slices the pool did
// not hand out are released to the garbage collector with an error so
// callers can spot ownership bugs in tests.
func (pp *payloadPool) put(buf []byte) error {
	capacity := cap(buf)

	if bits.OnesCount(uint(capacity)) != 1 {
		return errors.New("payload capacity is not a pool size class")
	}
	if capacity < minPayloadChunk || capacity > maxPayloadChunk {
		return errors.New("payload capacity outside pooled range")
	}

	idx, _ := payloadClass(capacity)
	pp.classes[idx].Put(buf[:capacity])

	return nil
}

// payloadClass maps a byte length to its enclosing size-class index
func payloadClass(length int) (int, bool) {
	if length > maxPayloadChunk {
		return 0, false
	}

	pow := bits.Len(uint(length - 1))
	if pow < minPayloadPower {
		pow = minPayloadPower
	}

	return pow - minPayloadPower, true
}
