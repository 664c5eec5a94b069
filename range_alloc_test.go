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
	"math/rand"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cellSnapshot struct {
	begin  uint32
	end    uint32
	status cellStatus
}

func snapshotCells(ra *RangeAllocator) []cellSnapshot {
	out := make([]cellSnapshot, 0)
	for c := ra.head; c != nil; c = c.next {
		out = append(out, cellSnapshot{c.begin, c.end, c.status})
	}

	return out
}

// checkCellInvariants walks the list: sorted, gapless, covering the
// whole space, never two adjacent cells of equal status
func checkCellInvariants(t *testing.T, ra *RangeAllocator) {
	t.Helper()

	require.NotNil(t, ra.head)
	assert.Equal(t, ra.begin, ra.head.begin)

	var prev *rangeCell
	for c := ra.head; c != nil; c = c.next {
		assert.Less(t, c.begin, c.end)
		if prev != nil {
			assert.Equal(t, prev.end, c.begin)
			assert.NotEqual(t, prev.status, c.status)
			assert.Same(t, prev, c.prev)
		}
		if c.next == nil {
			assert.Equal(t, ra.end, c.end)
		}
		prev = c
	}
}

func TestAllocIsFirstFit(t *testing.T) {
	logger, _ := test.NewNullLogger()
	ra := NewRangeAllocator(0, 64, logger)

	a, err := ra.Alloc(16)
	assert.NoError(t, err)
	assert.Equal(t, uint32(0), a)

	b, err := ra.Alloc(16)
	assert.NoError(t, err)
	assert.Equal(t, uint32(16), b)

	c, err := ra.Alloc(8)
	assert.NoError(t, err)
	assert.Equal(t, uint32(32), c)

	checkCellInvariants(t, ra)
	assert.Equal(t, uint32(24), ra.FreeCapacity())
}

func TestFreeMergesAdjacentBusyRemainder(t *testing.T) {
	logger, _ := test.NewNullLogger()
	ra := NewRangeAllocator(0, 64, logger)

	a, _ := ra.Alloc(16)
	_, _ = ra.Alloc(16)
	_, _ = ra.Alloc(8)

	ra.Free(a, 16)

	// The two remaining allocations collapse into one busy cell
	assert.Equal(t, []cellSnapshot{
		{0, 16, cellFree},
		{16, 40, cellBusy},
		{40, 64, cellFree},
	}, snapshotCells(ra))
	checkCellInvariants(t, ra)
	assert.Equal(t, uint32(40), ra.FreeCapacity())
}

func TestFreeingEverythingRestoresOneCell(t *testing.T) {
	logger, _ := test.NewNullLogger()
	ra := NewRangeAllocator(0, 64, logger)

	a, _ := ra.Alloc(16)
	b, _ := ra.Alloc(16)
	c, _ := ra.Alloc(8)

	ra.Free(b, 16)
	ra.Free(a, 16)
	ra.Free(c, 8)

	assert.Equal(t, []cellSnapshot{{0, 64, cellFree}}, snapshotCells(ra))
	assert.Equal(t, uint32(64), ra.FreeCapacity())
}

func TestAllocScansFromCursor(t *testing.T) {
	logger, _ := test.NewNullLogger()
	ra := NewRangeAllocator(0, 64, logger)

	a, _ := ra.Alloc(16)
	_, _ = ra.Alloc(16)
	ra.Free(a, 16)

	// The cursor sits past the busy cell, so the scan wraps and the
	// freed low cell is only found after the high one is consumed
	c, err := ra.Alloc(32)
	assert.NoError(t, err)
	assert.Equal(t, uint32(32), c)

	d, err := ra.Alloc(16)
	assert.NoError(t, err)
	assert.Equal(t, uint32(0), d)
}

func TestResetMakesAllocationDeterministic(t *testing.T) {
	logger, _ := test.NewNullLogger()
	ra := NewRangeAllocator(0, 64, logger)

	a, _ := ra.Alloc(8)
	ra.Free(a, 8)
	ra.Reset()

	b, err := ra.Alloc(8)
	assert.NoError(t, err)
	assert.Equal(t, uint32(0), b)
}

func TestAllocFailsWhenFragmented(t *testing.T) {
	logger, _ := test.NewNullLogger()
	ra := NewRangeAllocator(0, 48, logger)

	a, _ := ra.Alloc(16)
	_, _ = ra.Alloc(16)
	c, _ := ra.Alloc(16)
	ra.Free(a, 16)
	ra.Free(c, 16)

	// 32 addresses are free but no contiguous 32-wide cell exists
	assert.Equal(t, uint32(32), ra.FreeCapacity())
	_, err := ra.Alloc(32)
	assert.ErrorIs(t, err, ErrNoSpace)
}

func TestPartialFreeSplitsBusyCell(t *testing.T) {
	logger, _ := test.NewNullLogger()
	ra := NewRangeAllocator(0, 64, logger)

	_, _ = ra.Alloc(32)
	ra.Free(8, 16)

	assert.Equal(t, []cellSnapshot{
		{0, 8, cellBusy},
		{8, 24, cellFree},
		{24, 32, cellBusy},
		{32, 64, cellFree},
	}, snapshotCells(ra))
	checkCellInvariants(t, ra)
}

func TestZeroSizeAllocPanics(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Errorf("This test should panic")
		} else {
			assert.Equal(t, "zero-size range allocation", r)
		}
	}()

	logger, _ := test.NewNullLogger()
	ra := NewRangeAllocator(0, 64, logger)

	_, _ = ra.Alloc(0)
}

func TestFreeingUnownedRangePanics(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Errorf("This test should panic")
		} else {
			assert.Equal(t, "bad free of [0,8)", r)
		}
	}()

	logger, _ := test.NewNullLogger()
	ra := NewRangeAllocator(0, 64, logger)

	ra.Free(0, 8)
}

func TestRandomizedAllocFreeKeepsInvariants(t *testing.T) {
	logger, _ := test.NewNullLogger()
	ra := NewRangeAllocator(0, 1024, logger)
	rng := rand.New(rand.NewSource(42))

	type claim struct {
		addr uint32
		size uint32
	}
	var claims []claim
	var claimed uint32

	for i := 0; i < 2000; i++ {
		if len(claims) == 0 || rng.Intn(2) == 0 {
			size := uint32(rng.Intn(32) + 1)
			addr, err := ra.Alloc(size)
			if err != nil {
				assert.ErrorIs(t, err, ErrNoSpace)
				continue
			}
			claims = append(claims, claim{addr, size})
			claimed += size
		} else {
			ix := rng.Intn(len(claims))
			ra.Free(claims[ix].addr, claims[ix].size)
			claimed -= claims[ix].size
			claims = append(claims[:ix], claims[ix+1:]...)
		}

		checkCellInvariants(t, ra)
		require.Equal(t, 1024-claimed, ra.FreeCapacity())
	}
}
