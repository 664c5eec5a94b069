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

// Direction describes which way samples flow through a channel set
type Direction int

const (
	// Input csets acquire samples from hardware into blocks
	Input Direction = iota
	// Output csets push blocks of samples out to hardware
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "output"
	}

	return "input"
}

// Protocol version carried in every Control header. Consumers reject
// headers whose major version does not match.
const (
	ControlVersionMajor = 1
	ControlVersionMinor = 2
)

// controlBinarySize is the fixed wire size of an encoded Control header
const controlBinarySize = 512

// maxDevNameLength is the widest device name that fits in the Control header
const maxDevNameLength = 16

// Attribute index space. Standard attributes own fixed slots below
// maxStdAttrs, extended attributes are assigned sequential indices in
// [maxStdAttrs, maxStdAttrs+maxExtAttrs).
const (
	maxStdAttrs = 16
	maxExtAttrs = 32
)

// minorSpaceSize bounds the framework-wide minor number space. Every
// registered cset claims a contiguous range of 2 minors per channel
// (one control node plus one data node).
const minorSpaceSize = 1 << 16

// minorsPerChannel is the control+data node split per channel
const minorsPerChannel = 2

// Trigger instance status flags
const (
	// tiDisabled is set while the instance must ignore arm requests
	tiDisabled = 1 << iota
	// tiArmed is set from arm until the acquisition completes
	tiArmed
	// tiCompleting is set while data-done finalization is running
	tiCompleting
)

// CSetFlag carries per-cset behavior bits declared by the driver template
type CSetFlag uint32

const (
	// CSetSelfTimed marks hardware that paces its own acquisitions; the
	// engine re-arms the trigger immediately after every async completion
	CSetSelfTimed CSetFlag = 1 << iota
	// CSetTimeOnly marks csets that carry no payload, only timestamps.
	// These are the only csets allowed a zero sample size.
	CSetTimeOnly
)

// Default type names instantiated for csets that do not name a
// preferred trigger or buffer.
const (
	DefaultTriggerName = "user"
	DefaultBufferName  = "fifo"

	// TimerTriggerName is the built-in periodic trigger
	TimerTriggerName = "timer"
)

// defaultFIFOLength is the block capacity of a fifo buffer instance
// when the length attribute is left at its template value
const defaultFIFOLength = 16

// defaultNSamples is the per-acquisition sample count a trigger template
// starts with before the driver or user reconfigures it
const defaultNSamples = 16
