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
	"time"
)

// AcqAction is an enum for countable acquisition events
type AcqAction int

const (
	// ArmAction counts trigger arms
	ArmAction AcqAction = 0
	// StoreAction counts payload bytes stored into buffers
	StoreAction AcqAction = 1
)

const acqActionCount = 2

// The maximum amount of seconds of history the tracker stores
const maximumRecordSeconds = 30

const millisecondWindow = maximumRecordSeconds * 1000

// How much time each actionBucket stores
// WARNING: Must be < 1000 and must evenly divide millisecondWindow (millisecondWindow % intervalMilliseconds == 0)!
const intervalMilliseconds = 100

type actionBucket struct {
	updateTime   time.Time
	actionCounts []uint64
}

// actionTracker efficiently stores acquisition event counts over time
// in a ring of time buckets. Recording happens inline on the trigger
// path, so it must stay cheap: one lock, one slice index.
type actionTracker struct {
	actionBuckets []*actionBucket
	actionLock    *sync.Mutex
}

func newActionTracker() *actionTracker {
	bucketCount := maximumRecordSeconds * (1000 / intervalMilliseconds)
	actionBuckets := make([]*actionBucket, bucketCount)
	for i := 0; i < bucketCount; i++ {
		actionBuckets[i] = &actionBucket{
			time.Time{},
			make([]uint64, acqActionCount),
		}
	}

	return &actionTracker{
		actionBuckets,
		&sync.Mutex{},
	}
}

// record adds count to the current bucket for the given action
func (a *actionTracker) record(action AcqAction, count uint64) {
	now := timeNow()
	bucketIx := getBucketIndex(now)

	a.actionLock.Lock()
	bucket := a.actionBuckets[bucketIx]
	if !isFresh(bucket, now) {
		reset(bucket)
	}

	bucket.updateTime = now
	bucket.actionCounts[action] += count
	a.actionLock.Unlock()
}

// sampleRate sums the counts for action over the trailing
// timeMilliseconds of history
func (a *actionTracker) sampleRate(action AcqAction, timeMilliseconds int) uint64 {
	now := timeNow()
	startBucket := getBucketIndex(now)

	a.actionLock.Lock()

	currentIx := startBucket
	currentTime := now
	returnCount := uint64(0)
	for i := 0; i < timeMilliseconds/intervalMilliseconds; i++ {
		if isFresh(a.actionBuckets[currentIx], currentTime) {
			returnCount += a.actionBuckets[currentIx].actionCounts[action]
		}
		currentIx--
		if currentIx < 0 {
			currentIx = maximumRecordSeconds*(1000/intervalMilliseconds) - 1
		}
		currentTime = currentTime.Add(-intervalMilliseconds * time.Millisecond)
	}

	a.actionLock.Unlock()

	return returnCount
}

func isFresh(bucket *actionBucket, now time.Time) bool {
	nonStaleTime := now.Add(time.Duration(-intervalMilliseconds-1) * time.Millisecond)

	return bucket.updateTime.After(nonStaleTime)
}

func reset(bucket *actionBucket) {
	bucket.updateTime = time.Time{}
	for i := 0; i < acqActionCount; i++ {
		bucket.actionCounts[i] = 0
	}
}

func getBucketIndex(now time.Time) int {
	millisecondNow := now.UnixNano() / int64(time.Millisecond)
	millisecondMod := millisecondNow % millisecondWindow

	return int(millisecondMod / intervalMilliseconds)
}
