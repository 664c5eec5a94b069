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
	"time"
)

func TestRecordedActionsAreSampled(t *testing.T) {
	fakeNow := time.Unix(1000000, 0)
	timeNow = func() time.Time {
		return fakeNow
	}
	defer func() { timeNow = time.Now }()

	tracker := newActionTracker()

	tracker.record(ArmAction, 1)
	tracker.record(ArmAction, 1)
	tracker.record(StoreAction, 4096)

	if tracker.sampleRate(ArmAction, 1000) != 2 {
		t.Errorf("Expected 2 arms in the sample window")
	}
	if tracker.sampleRate(StoreAction, 1000) != 4096 {
		t.Errorf("Expected 4096 stored bytes in the sample window")
	}
}

func TestActionsAgeOutOfTheWindow(t *testing.T) {
	fakeNow := time.Unix(1000000, 0)
	timeNow = func() time.Time {
		return fakeNow
	}
	defer func() { timeNow = time.Now }()

	tracker := newActionTracker()
	tracker.record(ArmAction, 1)

	// Inside the window the count is visible
	fakeNow = fakeNow.Add(500 * time.Millisecond)
	if tracker.sampleRate(ArmAction, 1000) != 1 {
		t.Errorf("Expected the arm to still be visible after 500ms")
	}

	// Far outside the window it is not
	fakeNow = fakeNow.Add(10 * time.Second)
	if tracker.sampleRate(ArmAction, 1000) != 0 {
		t.Errorf("Expected the arm to have aged out")
	}
}

func TestSeparateActionsDoNotMix(t *testing.T) {
	fakeNow := time.Unix(1000000, 0)
	timeNow = func() time.Time {
		return fakeNow
	}
	defer func() { timeNow = time.Now }()

	tracker := newActionTracker()
	tracker.record(StoreAction, 128)

	if tracker.sampleRate(ArmAction, 1000) != 0 {
		t.Errorf("Expected stored bytes not to count as arms")
	}
}
