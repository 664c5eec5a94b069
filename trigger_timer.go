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

	"github.com/sirupsen/logrus"
)

const defaultTimerPeriodMS = 100

// timerTrigger arms its cset periodically from a ticker goroutine. The
// engine treats each tick like any other external trigger event, so a
// tick landing while the previous cycle is still in flight is simply
// absorbed by the armed-state gate.
type timerTrigger struct {
	ti  *TriggerInstance
	log *logrus.Logger

	// mu guards start/stop only; it is never held while taking the
	// device lock, so ChangeStatus may be called under that lock
	mu   sync.Mutex
	stop chan struct{}
}

func newTimerTriggerType(log *logrus.Logger) *TriggerType {
	attrs := NewAttributeSet().
		AddStd(StdAttrNSamples, &Attribute{Mode: AttrRW, Value: defaultNSamples, Control: true}).
		AddStd(StdAttrPeriod, &Attribute{Mode: AttrRW, Value: defaultTimerPeriodMS, Control: true})

	factory := func(ti *TriggerInstance) (TriggerPolicy, error) {
		return &timerTrigger{ti: ti, log: log}, nil
	}

	return NewTriggerType(TimerTriggerName, attrs, factory)
}

// ChangeStatus starts or stops the ticker. The period is sampled when
// the ticker starts; a new ms-period value takes effect on the next
// enable. Stopping never waits for the goroutine, which may itself be
// blocked on the device lock the caller holds.
func (t *timerTrigger) ChangeStatus(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if enabled {
		if t.stop != nil {
			return
		}

		period := uint32(defaultTimerPeriodMS)
		if a, ok := t.ti.attrs.Std[StdAttrPeriod]; ok && a.Value > 0 {
			period = a.Value
		}

		t.stop = make(chan struct{})
		go t.run(t.stop, time.Duration(period)*time.Millisecond)
		return
	}

	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}

func (t *timerTrigger) Destroy() {
	t.ChangeStatus(false)
}

func (t *timerTrigger) run(stop chan struct{}, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := t.ti.cset.Arm(); err != nil {
				t.log.Warnf("timer arm: %s", err)
			}
		}
	}
}
