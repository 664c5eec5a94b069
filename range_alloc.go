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
	"sync"

	"github.com/sirupsen/logrus"
)

type cellStatus int

const (
	cellFree cellStatus = iota
	cellBusy
)

// rangeCell is one node of the allocator's cell list. The list is kept
// sorted by address, fully partitions [begin,end), and never holds two
// adjacent cells of equal status.
type rangeCell struct {
	begin  uint32 // inclusive
	end    uint32 // exclusive
	status cellStatus
	prev   *rangeCell
	next   *rangeCell
}

func (c *rangeCell) size() uint32 {
	return c.end - c.begin
}

// RangeAllocator hands out contiguous sub-ranges of an integer address
// space, first-fit. The scan starts from a movable cursor rather than the
// list head, so repeated alloc/free cycles tend to walk forward through
// the space instead of re-fragmenting its low end.
type RangeAllocator struct {
	begin uint32
	end   uint32
	head  *rangeCell
	cur   *rangeCell
	lock  *sync.Mutex
	log   *logrus.Logger
}

// NewRangeAllocator creates an allocator managing [begin, end) as one
// free cell. An empty or inverted range is a caller bug.
func NewRangeAllocator(begin, end uint32, log *logrus.Logger) *RangeAllocator {
	if begin >= end {
		log.Errorf("invalid range [%d,%d)", begin, end)
		panic(fmt.Sprintf("invalid range [%d,%d)", begin, end))
	}

	cell := &rangeCell{begin: begin, end: end, status: cellFree}

	return &RangeAllocator{
		begin: begin,
		end:   end,
		head:  cell,
		cur:   cell,
		lock:  &sync.Mutex{},
		log:   log,
	}
}

// Alloc claims the first free cell of at least size addresses, scanning
// circularly from the cursor. Returns the claimed base address, or
// ErrNoSpace when no free cell is large enough.
func (ra *RangeAllocator) Alloc(size uint32) (uint32, error) {
	if size == 0 {
		ra.log.Error("zero-size range allocation")
		panic("zero-size range allocation")
	}

	ra.lock.Lock()
	defer ra.lock.Unlock()

	start := ra.cur
	if start == nil {
		start = ra.head
	}

	c := start
	for {
		if c.status == cellFree && c.size() >= size {
			return ra.takeLocked(c, size), nil
		}

		c = c.next
		if c == nil {
			c = ra.head
		}
		if c == start {
			break
		}
	}

	return 0, ErrNoSpace
}

// Free releases [addr, addr+size). The range must lie inside a single
// busy cell; anything else means the caller is freeing an address it
// never owned, which is a bug, not a recoverable condition.
func (ra *RangeAllocator) Free(addr, size uint32) {
	ra.lock.Lock()
	defer ra.lock.Unlock()

	var c *rangeCell
	for c = ra.head; c != nil; c = c.next {
		if c.begin <= addr && addr+size <= c.end {
			break
		}
	}

	if c == nil || c.status != cellBusy || size == 0 {
		ra.log.Errorf("bad free of [%d,%d)", addr, addr+size)
		panic(fmt.Sprintf("bad free of [%d,%d)", addr, addr+size))
	}

	// Split off busy remainders that the freed range does not cover
	if c.begin < addr {
		ra.insertBefore(c, &rangeCell{begin: c.begin, end: addr, status: cellBusy})
		c.begin = addr
	}
	if c.end > addr+size {
		ra.insertAfter(c, &rangeCell{begin: addr + size, end: c.end, status: cellBusy})
		c.end = addr + size
	}

	c.status = cellFree
	c = ra.mergeWithPrevLocked(c)
	ra.mergeWithNextLocked(c)
}

// Reset moves the scan cursor back to the lowest-addressed cell, making
// subsequent allocations deterministic across re-initialization.
func (ra *RangeAllocator) Reset() {
	ra.lock.Lock()
	ra.cur = ra.head
	ra.lock.Unlock()
}

// FreeCapacity returns the total number of unallocated addresses
func (ra *RangeAllocator) FreeCapacity() uint32 {
	ra.lock.Lock()
	defer ra.lock.Unlock()

	var total uint32
	for c := ra.head; c != nil; c = c.next {
		if c.status == cellFree {
			total += c.size()
		}
	}

	return total
}

// takeLocked carves size addresses off the front of free cell c
func (ra *RangeAllocator) takeLocked(c *rangeCell, size uint32) uint32 {
	addr := c.begin

	if c.size() == size {
		c.status = cellBusy
		if c.next != nil {
			ra.cur = c.next
		} else {
			ra.cur = ra.head
		}
		c = ra.mergeWithPrevLocked(c)
		ra.mergeWithNextLocked(c)
		return addr
	}

	busy := &rangeCell{begin: addr, end: addr + size, status: cellBusy}
	ra.insertBefore(c, busy)
	c.begin += size
	ra.cur = c
	ra.mergeWithPrevLocked(busy)

	return addr
}

// mergeWithPrevLocked absorbs c into its predecessor when both share a
// status, returning whichever cell survives
func (ra *RangeAllocator) mergeWithPrevLocked(c *rangeCell) *rangeCell {
	p := c.prev
	if p == nil || p.status != c.status {
		return c
	}

	p.end = c.end
	ra.unlink(c, p)

	return p
}

// mergeWithNextLocked absorbs c's successor into c when both share a status
func (ra *RangeAllocator) mergeWithNextLocked(c *rangeCell) {
	n := c.next
	if n == nil || n.status != c.status {
		return
	}

	c.end = n.end
	ra.unlink(n, c)
}

func (ra *RangeAllocator) insertBefore(c, nb *rangeCell) {
	nb.prev = c.prev
	nb.next = c
	if c.prev != nil {
		c.prev.next = nb
	} else {
		ra.head = nb
	}
	c.prev = nb
}

func (ra *RangeAllocator) insertAfter(c, nb *rangeCell) {
	nb.next = c.next
	nb.prev = c
	if c.next != nil {
		c.next.prev = nb
	}
	c.next = nb
}

// unlink removes c from the list; survivor takes the cursor if c held it
func (ra *RangeAllocator) unlink(c, survivor *rangeCell) {
	if c.prev != nil {
		c.prev.next = c.next
	} else {
		ra.head = c.next
	}
	if c.next != nil {
		c.next.prev = c.prev
	}
	if ra.cur == c {
		ra.cur = survivor
	}
}
