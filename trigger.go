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
	"errors"
	"fmt"
)

// TriggerPolicy is the behavior behind a trigger instance. The engine
// owns the arm/fire/data-done state machine; the policy only reacts to
// enable state changes (a timer starts and stops its ticker here) and
// tears private state down on Destroy.
type TriggerPolicy interface {
	ChangeStatus(enabled bool)
	Destroy()
}

// TriggerType is a named, registered trigger policy plus its attribute
// template. One live TriggerInstance exists per cset.
type TriggerType struct {
	name    string
	attrs   *AttributeSet
	factory func(ti *TriggerInstance) (TriggerPolicy, error)
}

// NewTriggerType describes a trigger policy for registration
func NewTriggerType(name string, attrs *AttributeSet, factory func(ti *TriggerInstance) (TriggerPolicy, error)) *TriggerType {
	return &TriggerType{name: name, attrs: attrs, factory: factory}
}

// Name returns the registered type name
func (tt *TriggerType) Name() string {
	return tt.name
}

// TriggerInstance is the live per-cset trigger object
type TriggerInstance struct {
	ttype  *TriggerType
	name   string
	cset   *ChannelSet
	attrs  *AttributeSet
	flags  uint32
	tstamp TimeStamp
	policy TriggerPolicy
}

func newTriggerInstance(tt *TriggerType, name string, cs *ChannelSet) (*TriggerInstance, error) {
	ti := &TriggerInstance{
		ttype: tt,
		name:  name,
		cset:  cs,
		attrs: tt.attrs.clone(),
	}

	policy, err := tt.factory(ti)
	if err != nil {
		return nil, fmt.Errorf("trigger %q: %w", tt.name, err)
	}
	ti.policy = policy

	return ti, nil
}

// Type returns the instance's trigger type
func (ti *TriggerInstance) Type() *TriggerType {
	return ti.ttype
}

// CSet returns the channel set this instance drives
func (ti *TriggerInstance) CSet() *ChannelSet {
	return ti.cset
}

// Attrs exposes the instance's attribute set for the exposure layer
func (ti *TriggerInstance) Attrs() *AttributeSet {
	return ti.attrs
}

// Armed reports whether an acquisition cycle is in flight
func (ti *TriggerInstance) Armed() bool {
	ti.cset.dev.lock.Lock()
	defer ti.cset.dev.lock.Unlock()

	return ti.flags&tiArmed != 0
}

// SetAttr configures a trigger attribute and re-propagates it into
// every Control header under the cset. Writing post-samples also
// resizes the next acquisition.
func (ti *TriggerInstance) SetAttr(name string, v uint32) error {
	cs := ti.cset
	cs.dev.lock.Lock()
	defer cs.dev.lock.Unlock()

	a, err := ti.attrs.Lookup(name)
	if err != nil {
		return err
	}
	if err := a.setValue(v); err != nil {
		return err
	}

	for _, ch := range cs.channels {
		ch.current.applyAttr(a.index, a.Value)
	}
	if a == ti.attrs.Std[StdAttrNSamples] {
		for _, ch := range cs.channels {
			ch.current.NSamples = v
		}
	}

	return nil
}

// GetAttr reads a trigger attribute, refreshing the cache when the type
// has a hardware accessor
func (ti *TriggerInstance) GetAttr(name string) (uint32, error) {
	cs := ti.cset
	cs.dev.lock.Lock()
	defer cs.dev.lock.Unlock()

	a, err := ti.attrs.Lookup(name)
	if err != nil {
		return 0, err
	}

	return a.getValue()
}

// Arm starts one acquisition cycle. Arming a disabled or already-armed
// trigger is a silent no-op; that is how re-entrant and late trigger
// events are absorbed. For input csets a block is allocated per enabled
// channel; a channel whose allocation fails sits the cycle out.
func (cs *ChannelSet) Arm() error {
	cs.dev.lock.Lock()
	defer cs.dev.lock.Unlock()

	return cs.armLocked()
}

func (cs *ChannelSet) armLocked() error {
	ti := cs.trig
	if ti.flags&(tiDisabled|tiArmed) != 0 {
		return nil
	}

	fw := cs.dev.fw
	ti.flags |= tiArmed
	ti.tstamp = nowTimeStamp()
	fw.metrics.recordArm(cs)
	fw.actions.record(ArmAction, 1)

	for _, ch := range cs.channels {
		if !ch.enabled {
			continue
		}
		ch.current.Seq++

		if cs.dir == Input {
			blk, err := ch.bi.AllocBlock(ch.current)
			if err != nil {
				cs.dev.log.Warnf("channel %d of %s/%s skips cycle %d: %s",
					ch.index, cs.dev.name, cs.name, ch.current.Seq, err)
				fw.metrics.recordAllocFailure(cs)
				ch.active = nil
				continue
			}
			ch.active = blk
			continue
		}

		// Output: the active slot was filled by a prior push, or is
		// refilled from the buffer queue here
		if ch.active == nil {
			ch.active = ch.bi.retrieveActive()
		}
		if ch.active != nil {
			ch.active.Ctrl.Seq = ch.current.Seq
		}
	}

	err := cs.raw(cs)
	switch {
	case err == nil:
		// Self-contained hardware finished inline
		cs.dataDoneLocked()
		return nil
	case errors.Is(err, ErrAgain):
		// Asynchronous hardware; the driver calls DataDone later
		return nil
	default:
		cs.freeActiveLocked()
		ti.flags &^= tiArmed
		fw.metrics.recordIOError(cs)
		return fmt.Errorf("raw I/O on %s/%s: %w", cs.dev.name, cs.name, err)
	}
}

// DataDone finalizes an asynchronous acquisition. Drivers call it from
// their completion context once the hardware transfer finished. A call
// without a matching arm, or a duplicate completion, is dropped. If the
// cset is self-timed the trigger re-arms immediately.
func (cs *ChannelSet) DataDone() {
	cs.dev.lock.Lock()
	defer cs.dev.lock.Unlock()

	ti := cs.trig
	if ti.flags&tiArmed == 0 || ti.flags&tiCompleting != 0 {
		return
	}

	cs.dataDoneLocked()

	if cs.flags&CSetSelfTimed != 0 {
		if err := cs.armLocked(); err != nil {
			cs.dev.log.Errorf("self-timed re-arm of %s/%s failed: %s", cs.dev.name, cs.name, err)
		}
	}
}

// dataDoneLocked stamps, stores, and releases this cycle's blocks, then
// returns the trigger to idle
func (cs *ChannelSet) dataDoneLocked() {
	ti := cs.trig
	ti.flags |= tiCompleting
	fw := cs.dev.fw

	for _, ch := range cs.channels {
		blk := ch.active
		if blk == nil {
			continue
		}

		if cs.dir == Output {
			// The driver consumed the payload; recycle the slot
			ch.bi.FreeBlock(blk)
			fw.metrics.recordFree(cs)
			ch.active = ch.bi.retrieveActive()
			continue
		}

		ch.active = nil
		blk.Ctrl.TStamp = ti.tstamp
		if err := ch.bi.StoreBlock(blk); err != nil {
			// Store failure is non-fatal: drop the block, keep the cycle
			cs.dev.log.Warnf("dropping block seq %d on %s/%s: %s",
				blk.Ctrl.Seq, cs.dev.name, cs.name, err)
			ch.bi.FreeBlock(blk)
			fw.metrics.recordDrop(cs)
			continue
		}
		ch.seq.record(blk.Ctrl.Seq)
		fw.metrics.recordStore(cs, len(blk.Data))
		fw.actions.record(StoreAction, uint64(len(blk.Data)))
	}

	ti.flags &^= tiArmed | tiCompleting
	fw.metrics.recordCompletion(cs)
}

// Abort cancels an in-flight acquisition. It is the mandatory precursor
// to trigger or buffer swaps and to teardown, and is safe to call on an
// idle trigger.
func (cs *ChannelSet) Abort() {
	cs.dev.lock.Lock()
	defer cs.dev.lock.Unlock()

	cs.abortLocked()
}

func (cs *ChannelSet) abortLocked() {
	ti := cs.trig
	if ti.flags&tiArmed == 0 || ti.flags&tiCompleting != 0 {
		return
	}

	if cs.abortIO != nil {
		cs.abortIO(cs)
	}
	cs.freeActiveLocked()
	ti.flags &^= tiArmed
	cs.dev.fw.metrics.recordAbort(cs)
}

func (cs *ChannelSet) freeActiveLocked() {
	for _, ch := range cs.channels {
		if ch.active != nil {
			ch.bi.FreeBlock(ch.active)
			ch.active = nil
		}
	}
}

// retrieveActive pulls a stored block back under engine ownership; used
// by the output path to feed the hardware-facing slot
func (bi *BufferInstance) retrieveActive() *Block {
	b := bi.policy.Retrieve()
	if b != nil {
		b.state = blockLive
	}

	return b
}
