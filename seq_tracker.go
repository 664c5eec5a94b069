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
	"sync"

	"github.com/RoaringBitmap/roaring"
	"github.com/sirupsen/logrus"
)

// seqTracker is a thin thread-safe wrapper around
// https://github.com/RoaringBitmap/roaring recording which sequence
// numbers a channel has successfully stored. Sequence numbers start at
// 1, so any unset bit below the high-water mark is a dropped
// acquisition.
type seqTracker struct {
	bitmap *roaring.Bitmap
	lock   *sync.Mutex
	stored uint64
	logger *logrus.Logger
}

func newSeqTracker(logger *logrus.Logger) *seqTracker {
	return &seqTracker{
		roaring.New(),
		&sync.Mutex{},
		0,
		logger,
	}
}

// record marks a sequence number as stored
func (st *seqTracker) record(seq uint32) {
	if seq == 0 {
		st.logger.Error("sequence number 0 is reserved")
		panic("sequence number 0 is reserved")
	}

	st.lock.Lock()
	if st.bitmap.CheckedAdd(seq) {
		st.stored++
	}
	st.lock.Unlock()
}

// missing returns the sequence numbers between the oldest and newest
// stored ones that were never stored, in ascending order. Each one is
// an acquisition cycle whose block got dropped.
func (st *seqTracker) missing() []uint32 {
	st.lock.Lock()
	defer st.lock.Unlock()

	if st.bitmap.IsEmpty() {
		return nil
	}

	lo := st.bitmap.Minimum()
	hi := st.bitmap.Maximum()
	gaps := roaring.Flip(st.bitmap, uint64(lo), uint64(hi)+1)
	if gaps.IsEmpty() {
		return nil
	}

	return gaps.ToArray()
}

// totalStored returns how many distinct sequence numbers were stored
func (st *seqTracker) totalStored() uint64 {
	st.lock.Lock()
	totalStored := st.stored
	st.lock.Unlock()

	return totalStored
}
