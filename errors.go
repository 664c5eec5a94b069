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

import "errors"

// Sentinel errors returned by the engine. Callers match them with
// errors.Is; wrapped variants add the object and operation context.
var (
	// ErrNotFound reports a name or attribute lookup miss
	ErrNotFound = errors.New("no such object")

	// ErrExists reports a registration under an already-taken name
	ErrExists = errors.New("name already registered")

	// ErrInvalidTemplate reports a malformed driver template
	ErrInvalidTemplate = errors.New("invalid device template")

	// ErrOutOfMemory reports a failed block or control allocation
	ErrOutOfMemory = errors.New("out of memory")

	// ErrBusy reports an operation that needs a quiescent object while
	// the trigger is armed or a buffer instance has open readers
	ErrBusy = errors.New("object is busy")

	// ErrNoSpace reports an exhausted range allocator
	ErrNoSpace = errors.New("no space left in range")

	// ErrUnsupported reports a direction or operation mismatch
	ErrUnsupported = errors.New("operation not supported")

	// ErrTooManyAttributes reports a template whose combined attribute
	// count overflows the Control bitmask index space
	ErrTooManyAttributes = errors.New("too many control attributes")

	// ErrAgain is returned by a driver's raw I/O callback when the
	// acquisition completes asynchronously. The driver later calls
	// DataDone from its own completion context.
	ErrAgain = errors.New("acquisition pending")

	// ErrWouldBlock reports an empty buffer on a non-blocking retrieve
	ErrWouldBlock = errors.New("no block available")

	// ErrFull is returned by a bounded buffer policy whose queue is at
	// capacity; the caller frees the rejected block
	ErrFull = errors.New("buffer full")
)
