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
	"github.com/sirupsen/logrus"
)

// fifoBuffer is the default storage policy: a bounded FIFO of blocks
// backed by a buffered channel. Store rejects with ErrFull instead of
// blocking, so a stalled consumer can never deadlock the acquisition
// path; the engine frees the rejected block and the consumer sees the
// gap in the sequence counter.
type fifoBuffer struct {
	queue chan *Block
	pool  *payloadPool
	log   *logrus.Logger
}

// newFIFOBufferType builds the registrable "fifo" type. All instances
// share the framework's payload pool.
func newFIFOBufferType(pool *payloadPool, log *logrus.Logger) *BufferType {
	attrs := NewAttributeSet().
		AddStd(StdAttrMaxLen, &Attribute{Mode: AttrRW, Value: defaultFIFOLength})

	factory := func(bi *BufferInstance) (BufferPolicy, error) {
		length := defaultFIFOLength
		if a, ok := bi.attrs.Std[StdAttrMaxLen]; ok && a.Value > 0 {
			length = int(a.Value)
		}

		return &fifoBuffer{
			queue: make(chan *Block, length),
			pool:  pool,
			log:   log,
		}, nil
	}

	return NewBufferType(DefaultBufferName, attrs, factory)
}

func (f *fifoBuffer) Alloc(ctrl *Control, length int) (*Block, error) {
	return &Block{Ctrl: ctrl, Data: f.pool.get(length)}, nil
}

func (f *fifoBuffer) Store(b *Block) error {
	select {
	case f.queue <- b:
		return nil
	default:
		return ErrFull
	}
}

func (f *fifoBuffer) Retrieve() *Block {
	select {
	case b := <-f.queue:
		return b
	default:
		return nil
	}
}

func (f *fifoBuffer) Free(b *Block) {
	if b.Data != nil {
		// Oversized or foreign payloads just fall to the GC
		_ = f.pool.put(b.Data)
		b.Data = nil
	}
	b.Ctrl = nil
}

func (f *fifoBuffer) Destroy() {
	for {
		select {
		case b := <-f.queue:
			f.Free(b)
		default:
			return
		}
	}
}
