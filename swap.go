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

	"github.com/google/uuid"
)

// ChangeTrigger replaces the cset's live trigger instance with a fresh
// instance of the named type. The replacement is fully initialized and
// registered under a temporary name before the old instance is touched;
// if any step fails the new instance is destroyed and the old one stays
// authoritative. A disabled cset stays disabled across the swap.
// Swapping while an acquisition is in flight fails with ErrBusy.
func (cs *ChannelSet) ChangeTrigger(name string) error {
	f := cs.dev.fw

	cs.dev.lock.Lock()
	defer cs.dev.lock.Unlock()

	old := cs.trig
	if old.ttype.name == name {
		return nil
	}
	if old.flags&tiArmed != 0 {
		return fmt.Errorf("trigger swap on %s/%s: %w", cs.dev.name, cs.name, ErrBusy)
	}
	wasEnabled := old.flags&tiDisabled == 0

	ttAny, err := f.triggers.get(name)
	if err != nil {
		return err
	}
	tt := ttAny.(*TriggerType)

	tmpName := swapName(name)
	ti, err := newTriggerInstance(tt, tmpName, cs)
	if err != nil {
		f.triggers.put(name)
		return err
	}
	if _, err := f.instances.register(tmpName, ti); err != nil {
		ti.policy.Destroy()
		f.triggers.put(name)
		return err
	}

	// Rebuild every channel's Control cache against the new trigger
	// before committing anything
	newCtrls := make([]*Control, len(cs.channels))
	for i, ch := range cs.channels {
		ctrl, cerr := buildControl(ch, ti, ch.current.Seq)
		if cerr != nil {
			ti.policy.Destroy()
			_ = f.instances.unregister(tmpName)
			f.triggers.put(name)
			cs.rebuildControlsLocked(old)
			return cerr
		}
		newCtrls[i] = ctrl
	}

	old.flags |= tiDisabled
	old.policy.ChangeStatus(false)

	canonical := old.name
	cs.trig = ti
	if !wasEnabled {
		ti.flags |= tiDisabled
	}
	for i, ch := range cs.channels {
		ch.current = newCtrls[i]
	}

	old.policy.Destroy()
	_ = f.instances.unregister(canonical)
	f.triggers.put(old.ttype.name)

	if err := f.instances.rename(tmpName, canonical); err != nil {
		// The canonical slot was just vacated; a clash here means a
		// collaborator raced the swap
		f.log.Errorf("rename of trigger instance %q failed: %s", tmpName, err)
		panic(fmt.Sprintf("rename of trigger instance %q failed: %s", tmpName, err))
	}
	ti.name = canonical

	if wasEnabled {
		ti.policy.ChangeStatus(true)
		if cs.flags&CSetSelfTimed != 0 {
			if err := cs.armLocked(); err != nil {
				cs.dev.log.Warnf("arm after trigger swap on %s/%s failed: %s", cs.dev.name, cs.name, err)
			}
		}
	}

	f.log.Infof("cset %s/%s now triggered by %q", cs.dev.name, cs.name, name)

	return nil
}

// ChangeBuffer replaces every channel's buffer instance with instances
// of the named type. It fails with ErrBusy if any instance has an open
// reader. All new instances are created before any old one is removed;
// creation failure unwinds the instances created so far and leaves the
// cset untouched.
func (cs *ChannelSet) ChangeBuffer(name string) error {
	f := cs.dev.fw

	cs.dev.lock.Lock()
	defer cs.dev.lock.Unlock()

	if len(cs.channels) > 0 && cs.channels[0].bi.btype.name == name {
		return nil
	}

	for _, ch := range cs.channels {
		if ch.bi.InUse() != 0 {
			return fmt.Errorf("buffer on channel %d of %s/%s has open readers: %w",
				ch.index, cs.dev.name, cs.name, ErrBusy)
		}
	}

	newBis := make([]*BufferInstance, 0, len(cs.channels))
	unwind := func() {
		for i := len(newBis) - 1; i >= 0; i-- {
			newBis[i].destroy()
			_ = f.instances.unregister(newBis[i].name)
			f.buffers.put(name)
		}
	}

	for _, ch := range cs.channels {
		btAny, err := f.buffers.get(name)
		if err != nil {
			unwind()
			return err
		}
		bt := btAny.(*BufferType)

		tmpName := swapName(name)
		bi, err := newBufferInstance(bt, tmpName, ch, f.log)
		if err != nil {
			f.buffers.put(name)
			unwind()
			return err
		}
		if _, err := f.instances.register(tmpName, bi); err != nil {
			bi.destroy()
			f.buffers.put(name)
			unwind()
			return err
		}
		newBis = append(newBis, bi)
	}

	// Quiesce the trigger while instances are replaced
	ti := cs.trig
	wasEnabled := ti.flags&tiDisabled == 0
	cs.abortLocked()
	ti.flags |= tiDisabled
	ti.policy.ChangeStatus(false)

	for i, ch := range cs.channels {
		old := ch.bi
		canonical := old.name

		if ch.user != nil {
			old.FreeBlock(ch.user)
			ch.user = nil
		}
		old.destroy()
		_ = f.instances.unregister(canonical)
		f.buffers.put(old.btype.name)

		if err := f.instances.rename(newBis[i].name, canonical); err != nil {
			f.log.Errorf("rename of buffer instance %q failed: %s", newBis[i].name, err)
			panic(fmt.Sprintf("rename of buffer instance %q failed: %s", newBis[i].name, err))
		}
		newBis[i].name = canonical
		ch.bi = newBis[i]
	}

	if wasEnabled {
		ti.flags &^= tiDisabled
		ti.policy.ChangeStatus(true)
		if cs.flags&CSetSelfTimed != 0 {
			if err := cs.armLocked(); err != nil {
				cs.dev.log.Warnf("arm after buffer swap on %s/%s failed: %s", cs.dev.name, cs.name, err)
			}
		}
	}

	f.log.Infof("cset %s/%s now buffered by %q", cs.dev.name, cs.name, name)

	return nil
}

// rebuildControlsLocked restores every channel's Control cache against
// the given (known-good) trigger instance after a failed swap attempt
// clobbered the flattened attribute indices
func (cs *ChannelSet) rebuildControlsLocked(ti *TriggerInstance) {
	for _, ch := range cs.channels {
		ctrl, err := buildControl(ch, ti, ch.current.Seq)
		if err != nil {
			// The same walk succeeded when the cset was built
			cs.dev.log.Errorf("control rebuild on %s/%s failed: %s", cs.dev.name, cs.name, err)
			panic(fmt.Sprintf("control rebuild on %s/%s failed: %s", cs.dev.name, cs.name, err))
		}
		ctrl.TStamp = ch.current.TStamp
		ch.current = ctrl
	}
}

// swapName generates the temporary registry name a replacement instance
// lives under until the swap commits
func swapName(typeName string) string {
	return typeName + ".swap-" + uuid.NewString()
}
