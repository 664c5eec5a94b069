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
	"encoding/binary"
	"time"
)

// Define the now function so that we can overwrite the definition in tests
var timeNow = time.Now

// nowTimeStamp captures the current wall clock as an acquisition
// timestamp. Bins stays 0 for host-clock stamps; hardware drivers with
// a finer local counter overwrite it.
func nowTimeStamp() TimeStamp {
	now := timeNow()

	return TimeStamp{
		Secs:  uint64(now.Unix()),
		Ticks: uint64(now.Nanosecond()),
	}
}

// putSample writes one little-endian sample of the given size into b
func putSample(b []byte, ssize int, v uint64) {
	switch ssize {
	case 1:
		b[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(b, v)
	default:
		panic("unsupported sample size")
	}
}

// sampleAt reads the little-endian sample at index i from b
func sampleAt(b []byte, ssize, i int) uint64 {
	s := b[i*ssize:]
	switch ssize {
	case 1:
		return uint64(s[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(s))
	case 4:
		return uint64(binary.LittleEndian.Uint32(s))
	case 8:
		return binary.LittleEndian.Uint64(s)
	default:
		panic("unsupported sample size")
	}
}
