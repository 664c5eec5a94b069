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
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Block ownership states. A block has exactly one owner at any instant:
// the driver/engine (live), the buffer queue (stored), or a consumer
// (user). Freeing is terminal; a second free is a collaborator bug.
const (
	blockLive int32 = iota
	blockStored
	blockUser
	blockFreed
)

// Block is the unit of data movement: a Control header, a payload, and
// a consumer cursor into the payload.
type Block struct {
	Ctrl *Control
	Data []byte
	// uoff is the consumer's drain cursor into Data
	uoff  int
	state int32
}

// Remaining reports how much payload the consumer has not drained yet
func (b *Block) Remaining() int {
	return len(b.Data) - b.uoff
}

// Drain copies undrained payload into out, advancing the cursor, and
// returns the number of bytes copied
func (b *Block) Drain(out []byte) int {
	n := copy(out, b.Data[b.uoff:])
	b.uoff += n
	return n
}

// BufferPolicy is the storage strategy behind a buffer instance. The
// instance wrapper owns use counting and ownership-state bookkeeping;
// the policy only queues and allocates.
type BufferPolicy interface {
	// Alloc creates a block with a payload of exactly length bytes
	Alloc(ctrl *Control, length int) (*Block, error)
	// Store enqueues a block at rest; ErrFull leaves ownership with
	// the caller, which must free the block
	Store(b *Block) error
	// Retrieve dequeues the oldest stored block, or nil when empty
	Retrieve() *Block
	// Free releases a block's payload storage
	Free(b *Block)
	// Destroy releases the queue itself, freeing any blocks still
	// stored in it
	Destroy()
}

// BufferType is a named, registered storage policy plus its attribute
// template. One live BufferInstance exists per channel.
type BufferType struct {
	name    string
	attrs   *AttributeSet
	factory func(bi *BufferInstance) (BufferPolicy, error)
}

// NewBufferType describes a storage policy for registration
func NewBufferType(name string, attrs *AttributeSet, factory func(bi *BufferInstance) (BufferPolicy, error)) *BufferType {
	return &BufferType{name: name, attrs: attrs, factory: factory}
}

// Name returns the registered type name
func (bt *BufferType) Name() string {
	return bt.name
}

// BufferInstance is the live per-channel buffer object
type BufferInstance struct {
	btype *BufferType
	name  string
	attrs *AttributeSet
	ch    *Channel
	// use counts open readers; a non-zero count blocks ChangeBuffer
	use    int32
	policy BufferPolicy
	log    *logrus.Logger
}

// newBufferInstance clones the type's attribute template and builds the
// policy. The caller has already pinned the type in the registry.
func newBufferInstance(bt *BufferType, name string, ch *Channel, log *logrus.Logger) (*BufferInstance, error) {
	bi := &BufferInstance{
		btype: bt,
		name:  name,
		attrs: bt.attrs.clone(),
		ch:    ch,
		log:   log,
	}

	policy, err := bt.factory(bi)
	if err != nil {
		return nil, fmt.Errorf("buffer %q: %w", bt.name, err)
	}
	bi.policy = policy

	return bi, nil
}

// Type returns the instance's buffer type
func (bi *BufferInstance) Type() *BufferType {
	return bi.btype
}

// Attrs exposes the instance's attribute set for the exposure layer
func (bi *BufferInstance) Attrs() *AttributeSet {
	return bi.attrs
}

// InUse reports the current reader count
func (bi *BufferInstance) InUse() int32 {
	return atomic.LoadInt32(&bi.use)
}

func (bi *BufferInstance) pin() {
	atomic.AddInt32(&bi.use, 1)
}

func (bi *BufferInstance) unpin() {
	if atomic.AddInt32(&bi.use, -1) < 0 {
		bi.log.Errorf("unbalanced release on buffer %q", bi.name)
		panic(fmt.Sprintf("unbalanced release on buffer %q", bi.name))
	}
}

// AllocBlock allocates a block sized from the given Control header. The
// header is cloned so later attribute propagation into the channel's
// cache never mutates an in-flight block.
func (bi *BufferInstance) AllocBlock(ctrl *Control) (*Block, error) {
	b, err := bi.policy.Alloc(ctrl.clone(), ctrl.PayloadLen())
	if err != nil {
		return nil, fmt.Errorf("buffer %q: %w", bi.name, err)
	}
	b.state = blockLive

	return b, nil
}

// StoreBlock transfers a live block into the queue. On ErrFull the
// block stays with the caller.
func (bi *BufferInstance) StoreBlock(b *Block) error {
	bi.assertState(b, blockLive, "store")

	if err := bi.policy.Store(b); err != nil {
		return fmt.Errorf("buffer %q: %w", bi.name, err)
	}
	atomic.StoreInt32(&b.state, blockStored)

	return nil
}

// RetrieveBlock hands the oldest stored block to a consumer, or returns
// ErrWouldBlock when the queue is empty. Blocking-until-available is
// layered on top by the I/O adapter.
func (bi *BufferInstance) RetrieveBlock() (*Block, error) {
	b := bi.policy.Retrieve()
	if b == nil {
		return nil, ErrWouldBlock
	}
	atomic.StoreInt32(&b.state, blockUser)

	return b, nil
}

// FreeBlock releases a block from any live owner. This is the only path
// that deallocates; calling it twice on one block is a collaborator bug
// and panics.
func (bi *BufferInstance) FreeBlock(b *Block) {
	if atomic.SwapInt32(&b.state, blockFreed) == blockFreed {
		bi.log.Errorf("double free of block seq %d on buffer %q", b.Ctrl.Seq, bi.name)
		panic(fmt.Sprintf("double free of block seq %d on buffer %q", b.Ctrl.Seq, bi.name))
	}
	bi.policy.Free(b)
}

// destroy tears the instance down, releasing all queued blocks
func (bi *BufferInstance) destroy() {
	bi.policy.Destroy()
}

func (bi *BufferInstance) assertState(b *Block, want int32, op string) {
	if atomic.LoadInt32(&b.state) != want {
		bi.log.Errorf("%s of block seq %d in wrong ownership state", op, b.Ctrl.Seq)
		panic(fmt.Sprintf("%s of block seq %d in wrong ownership state", op, b.Ctrl.Seq))
	}
}
