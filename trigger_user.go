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

// userTrigger is the default trigger: it fires only when the
// application (or the attribute exposure layer) calls Arm on the cset.
// All state lives in the engine; the policy is inert.
type userTrigger struct{}

func newUserTriggerType() *TriggerType {
	attrs := NewAttributeSet().
		AddStd(StdAttrNSamples, &Attribute{Mode: AttrRW, Value: defaultNSamples, Control: true}).
		AddStd(StdAttrPreSamples, &Attribute{Mode: AttrRW, Value: 0, Control: true})

	factory := func(ti *TriggerInstance) (TriggerPolicy, error) {
		return &userTrigger{}, nil
	}

	return NewTriggerType(DefaultTriggerName, attrs, factory)
}

func (t *userTrigger) ChangeStatus(enabled bool) {}

func (t *userTrigger) Destroy() {}
