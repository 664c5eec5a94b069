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
	"encoding/binary"
	"fmt"
)

// TimeStamp is the acquisition timestamp stamped at arm time. Bins carry
// implementation-defined sub-tick resolution and are zero for software
// triggers.
type TimeStamp struct {
	Secs  uint64
	Ticks uint64
	Bins  uint64
}

// ControlAddr locates the channel a Control header describes
type ControlAddr struct {
	DevName string
	DevID   uint32
	CSet    uint16
	Chan    uint16
}

// Control is the fixed-layout metadata record carried with every Block.
// The std/ext value arrays are a denormalized cache of the attribute
// hierarchy; propagation keeps them in sync with live attribute values
// under the owning device's lock.
type Control struct {
	Major     uint8
	Minor     uint8
	BigEndian bool
	// Seq starts at 1 and is incremented exactly once per arm cycle
	Seq      uint32
	NSamples uint32
	SSize    uint16
	Addr     ControlAddr
	TStamp   TimeStamp
	StdMask  uint16
	ExtMask  uint32
	StdVal   [maxStdAttrs]uint32
	ExtVal   [maxExtAttrs]uint32
}

// PayloadLen is the block payload size this header describes
func (c *Control) PayloadLen() int {
	return int(c.NSamples) * int(c.SSize)
}

func (c *Control) clone() *Control {
	out := *c
	return &out
}

// applyAttr writes a propagated attribute value into its flattened slot.
// Indices below maxStdAttrs are standard slots, the rest are extended.
func (c *Control) applyAttr(index int, v uint32) {
	if index < 0 {
		return
	}
	if index < maxStdAttrs {
		c.StdVal[index] = v
		return
	}
	c.ExtVal[index-maxStdAttrs] = v
}

// Wire layout offsets, little-endian throughout
const (
	ctrlOffVersion  = 0
	ctrlOffFlags    = 2
	ctrlOffSeq      = 4
	ctrlOffNSamples = 8
	ctrlOffSSize    = 12
	ctrlOffCSet     = 14
	ctrlOffChan     = 16
	ctrlOffDevID    = 20
	ctrlOffDevName  = 24
	ctrlOffTStamp   = 40
	ctrlOffStdMask  = 64
	ctrlOffExtMask  = 68
	ctrlOffStdVal   = 72
	ctrlOffExtVal   = 136
)

const ctrlFlagBigEndian = 1 << 0

// MarshalBinary encodes the header into its fixed 512-byte wire form
func (c *Control) MarshalBinary() ([]byte, error) {
	if len(c.Addr.DevName) > maxDevNameLength {
		return nil, fmt.Errorf("device name %q exceeds %d bytes: %w",
			c.Addr.DevName, maxDevNameLength, ErrUnsupported)
	}

	buf := make([]byte, controlBinarySize)
	buf[ctrlOffVersion] = c.Major
	buf[ctrlOffVersion+1] = c.Minor

	var flags uint16
	if c.BigEndian {
		flags |= ctrlFlagBigEndian
	}
	binary.LittleEndian.PutUint16(buf[ctrlOffFlags:], flags)
	binary.LittleEndian.PutUint32(buf[ctrlOffSeq:], c.Seq)
	binary.LittleEndian.PutUint32(buf[ctrlOffNSamples:], c.NSamples)
	binary.LittleEndian.PutUint16(buf[ctrlOffSSize:], c.SSize)
	binary.LittleEndian.PutUint16(buf[ctrlOffCSet:], c.Addr.CSet)
	binary.LittleEndian.PutUint16(buf[ctrlOffChan:], c.Addr.Chan)
	binary.LittleEndian.PutUint32(buf[ctrlOffDevID:], c.Addr.DevID)
	copy(buf[ctrlOffDevName:ctrlOffDevName+maxDevNameLength], c.Addr.DevName)
	binary.LittleEndian.PutUint64(buf[ctrlOffTStamp:], c.TStamp.Secs)
	binary.LittleEndian.PutUint64(buf[ctrlOffTStamp+8:], c.TStamp.Ticks)
	binary.LittleEndian.PutUint64(buf[ctrlOffTStamp+16:], c.TStamp.Bins)
	binary.LittleEndian.PutUint16(buf[ctrlOffStdMask:], c.StdMask)
	binary.LittleEndian.PutUint32(buf[ctrlOffExtMask:], c.ExtMask)
	for i, v := range c.StdVal {
		binary.LittleEndian.PutUint32(buf[ctrlOffStdVal+i*4:], v)
	}
	for i, v := range c.ExtVal {
		binary.LittleEndian.PutUint32(buf[ctrlOffExtVal+i*4:], v)
	}

	return buf, nil
}

// UnmarshalBinary decodes a wire-form header, rejecting records of the
// wrong size or an incompatible major version
func (c *Control) UnmarshalBinary(buf []byte) error {
	if len(buf) != controlBinarySize {
		return fmt.Errorf("control record is %d bytes, want %d: %w",
			len(buf), controlBinarySize, ErrUnsupported)
	}
	if buf[ctrlOffVersion] != ControlVersionMajor {
		return fmt.Errorf("control version %d.%d: %w",
			buf[ctrlOffVersion], buf[ctrlOffVersion+1], ErrUnsupported)
	}

	c.Major = buf[ctrlOffVersion]
	c.Minor = buf[ctrlOffVersion+1]
	c.BigEndian = binary.LittleEndian.Uint16(buf[ctrlOffFlags:])&ctrlFlagBigEndian != 0
	c.Seq = binary.LittleEndian.Uint32(buf[ctrlOffSeq:])
	c.NSamples = binary.LittleEndian.Uint32(buf[ctrlOffNSamples:])
	c.SSize = binary.LittleEndian.Uint16(buf[ctrlOffSSize:])
	c.Addr.CSet = binary.LittleEndian.Uint16(buf[ctrlOffCSet:])
	c.Addr.Chan = binary.LittleEndian.Uint16(buf[ctrlOffChan:])
	c.Addr.DevID = binary.LittleEndian.Uint32(buf[ctrlOffDevID:])

	name := buf[ctrlOffDevName : ctrlOffDevName+maxDevNameLength]
	end := 0
	for end < len(name) && name[end] != 0 {
		end++
	}
	c.Addr.DevName = string(name[:end])

	c.TStamp.Secs = binary.LittleEndian.Uint64(buf[ctrlOffTStamp:])
	c.TStamp.Ticks = binary.LittleEndian.Uint64(buf[ctrlOffTStamp+8:])
	c.TStamp.Bins = binary.LittleEndian.Uint64(buf[ctrlOffTStamp+16:])
	c.StdMask = binary.LittleEndian.Uint16(buf[ctrlOffStdMask:])
	c.ExtMask = binary.LittleEndian.Uint32(buf[ctrlOffExtMask:])
	for i := range c.StdVal {
		c.StdVal[i] = binary.LittleEndian.Uint32(buf[ctrlOffStdVal+i*4:])
	}
	for i := range c.ExtVal {
		c.ExtVal[i] = binary.LittleEndian.Uint32(buf[ctrlOffExtVal+i*4:])
	}

	return nil
}

// buildControl assembles a channel's cached Control header from the live
// attribute tree, walking device, cset, channel, then trigger. Standard
// attributes keep their fixed slot and may appear only once across the
// chain; extended attributes take sequential indices after the standard
// block. seq carries the channel's sequence counter across rebuilds so
// a trigger swap never resets the consumer-visible counter.
func buildControl(ch *Channel, ti *TriggerInstance, seq uint32) (*Control, error) {
	cs := ch.cset
	d := cs.dev

	ctrl := &Control{
		Major:    ControlVersionMajor,
		Minor:    ControlVersionMinor,
		Seq:      seq,
		NSamples: 1,
		SSize:    uint16(cs.ssize),
		Addr: ControlAddr{
			DevName: d.name,
			DevID:   d.id,
			CSet:    uint16(cs.index),
			Chan:    uint16(ch.index),
		},
	}
	if a, ok := ti.attrs.Std[StdAttrNSamples]; ok {
		ctrl.NSamples = a.Value
	}

	seen := make(map[StdAttr]bool)
	next := maxStdAttrs
	for _, level := range []*AttributeSet{d.attrs, cs.attrs, ch.attrs, ti.attrs} {
		if level == nil {
			continue
		}
		for slot, a := range level.Std {
			if !a.Control {
				a.index = -1
				continue
			}
			if seen[slot] {
				return nil, fmt.Errorf("standard attribute %q defined at two levels of %q: %w",
					slot.Name(), d.name, ErrInvalidTemplate)
			}
			seen[slot] = true
			a.index = int(slot)
			ctrl.StdMask |= 1 << uint(slot)
			ctrl.StdVal[slot] = a.Value
		}
		for _, a := range level.Ext {
			if !a.Control {
				a.index = -1
				continue
			}
			if next == maxStdAttrs+maxExtAttrs {
				return nil, fmt.Errorf("device %q: %w", d.name, ErrTooManyAttributes)
			}
			a.index = next
			ctrl.ExtMask |= 1 << uint(next-maxStdAttrs)
			ctrl.ExtVal[next-maxStdAttrs] = a.Value
			next++
		}
	}

	return ctrl, nil
}
