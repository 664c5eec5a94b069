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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerTriggerAcquiresPeriodically(t *testing.T) {
	f := newTestFramework(t)

	sim, err := NewSimDriver(f, SimConfig{
		Name: "sim", InputChannels: 1, SSize: 2, Trigger: TimerTriggerName,
	})
	require.NoError(t, err)
	defer func() { _ = f.UnregisterDevice(sim.Device()) }()

	cs := sim.InputCSet()
	require.NoError(t, cs.Trigger().SetAttr(StdAttrPeriod.Name(), 5))

	// The period is sampled at enable time, so bounce the cset
	cs.SetEnabled(false)
	cs.SetEnabled(true)

	ch := cs.Channel(0)
	assert.Eventually(t, func() bool {
		_, err := ch.Retrieve()
		if err != nil {
			return false
		}
		ch.ReleaseBlock()
		return true
	}, 2*time.Second, 2*time.Millisecond)
}

func TestDisablingStopsTheTimer(t *testing.T) {
	f := newTestFramework(t)

	sim, err := NewSimDriver(f, SimConfig{
		Name: "sim", InputChannels: 1, SSize: 2, Trigger: TimerTriggerName,
	})
	require.NoError(t, err)
	defer func() { _ = f.UnregisterDevice(sim.Device()) }()

	cs := sim.InputCSet()
	require.NoError(t, cs.Trigger().SetAttr(StdAttrPeriod.Name(), 5))
	cs.SetEnabled(false)
	cs.SetEnabled(true)

	ch := cs.Channel(0)
	require.Eventually(t, func() bool {
		_, err := ch.Retrieve()
		if err != nil {
			return false
		}
		ch.ReleaseBlock()
		return true
	}, 2*time.Second, 2*time.Millisecond)

	cs.SetEnabled(false)

	// Let any in-flight tick finish, then drain what it left behind
	time.Sleep(50 * time.Millisecond)
	for {
		if _, err := ch.Retrieve(); err != nil {
			break
		}
		ch.ReleaseBlock()
	}

	time.Sleep(50 * time.Millisecond)
	_, err = ch.Retrieve()
	assert.ErrorIs(t, err, ErrWouldBlock)
}

func TestTimerPeriodDefaultsWhenUnset(t *testing.T) {
	f := newTestFramework(t)

	tt := newTimerTriggerType(f.log)
	a, ok := tt.attrs.Std[StdAttrPeriod]
	require.True(t, ok)
	assert.Equal(t, uint32(defaultTimerPeriodMS), a.Value)
	assert.Equal(t, "ms-period", a.Name)
}
