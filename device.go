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
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// DeviceTemplate is the immutable prototype a driver hands to
// RegisterDevice. The framework clones everything it keeps; drivers may
// reuse one template for several registrations (names auto-index).
type DeviceTemplate struct {
	Name  string
	ID    uint32
	Attrs *AttributeSet
	CSets []*CSetTemplate
	// PreferredTrigger and PreferredBuffer name the types instantiated
	// for csets that do not pick their own; empty means the defaults
	PreferredTrigger string
	PreferredBuffer  string
}

// CSetTemplate describes one channel set of a device template
type CSetTemplate struct {
	Name      string
	Direction Direction
	// SSize is the fixed bytes-per-sample; zero only for time-only csets
	SSize int
	// NChans declares identical channels; Chans overrides it with
	// per-channel attribute sets
	NChans int
	Chans  []*ChanTemplate
	Flags  CSetFlag
	Attrs  *AttributeSet
	// RawIO performs the hardware transfer: nil for synchronous
	// completion, ErrAgain when the driver completes via DataDone
	RawIO func(cs *ChannelSet) error
	// AbortIO optionally cancels in-flight hardware I/O
	AbortIO          func(cs *ChannelSet)
	PreferredTrigger string
	PreferredBuffer  string
}

// ChanTemplate describes one channel of a cset template
type ChanTemplate struct {
	Attrs *AttributeSet
}

// Device is the top-level runtime object built from a template. Its
// single lock serializes every attribute write, trigger transition, and
// instance swap underneath it; that coarseness is what guarantees an
// attribute write can never race an arm/fire/data-done cycle.
type Device struct {
	fw      *Framework
	name    string
	id      uint32
	lock    sync.Mutex
	attrs   *AttributeSet
	csets   []*ChannelSet
	enabled bool
	log     *logrus.Logger
}

// ChannelSet groups channels sharing direction, sample size, trigger,
// and acquisition semantics. Direction and sample size are fixed at
// registration.
type ChannelSet struct {
	dev        *Device
	name       string
	index      int
	dir        Direction
	ssize      int
	flags      CSetFlag
	attrs      *AttributeSet
	channels   []*Channel
	trig       *TriggerInstance
	minorBase  uint32
	minorWidth uint32
	raw        func(cs *ChannelSet) error
	abortIO    func(cs *ChannelSet)
	enabled    bool
}

// Channel owns the two exclusive block slots: active (hardware-facing,
// in flight) and user (being drained by a consumer). Its cached Control
// header is the canonical attribute snapshot for the next acquisition.
type Channel struct {
	cset    *ChannelSet
	index   int
	attrs   *AttributeSet
	current *Control
	active  *Block
	user    *Block
	bi      *BufferInstance
	seq     *seqTracker
	enabled bool
}

// RegisterDevice validates a template, builds the runtime tree, claims
// a minor range per cset, and instantiates the preferred or default
// trigger and buffer types. Any failure unwinds every cset registered
// so far, in reverse order, before the error surfaces.
func (f *Framework) RegisterDevice(t *DeviceTemplate) (*Device, error) {
	if err := validateTemplate(t); err != nil {
		return nil, err
	}

	d := &Device{
		fw:      f,
		id:      t.ID,
		attrs:   t.Attrs.clone(),
		enabled: true,
		log:     f.log,
	}

	name, err := f.devices.register(t.Name, d)
	if err != nil {
		return nil, err
	}
	d.name = name

	if len(name) > maxDevNameLength {
		_ = f.devices.unregister(name)
		return nil, fmt.Errorf("device name %q exceeds %d bytes: %w",
			name, maxDevNameLength, ErrInvalidTemplate)
	}

	for i, ct := range t.CSets {
		cs, err := d.addCSet(i, ct, t)
		if err != nil {
			for j := len(d.csets) - 1; j >= 0; j-- {
				d.csets[j].destroy()
			}
			_ = f.devices.unregister(name)
			return nil, err
		}
		d.csets = append(d.csets, cs)
	}

	// Hardware-paced csets start acquiring as soon as they exist
	d.lock.Lock()
	for _, cs := range d.csets {
		if cs.flags&CSetSelfTimed != 0 {
			if err := cs.armLocked(); err != nil {
				d.log.Warnf("initial arm of %s/%s failed: %s", d.name, cs.name, err)
			}
		}
	}
	d.lock.Unlock()

	f.log.Infof("registered device %q with %d cset(s)", name, len(d.csets))

	return d, nil
}

// UnregisterDevice tears the tree down in reverse registration order:
// channels and their buffer instances, trigger instances, minor ranges,
// then the device's registry entry.
func (f *Framework) UnregisterDevice(d *Device) error {
	d.lock.Lock()
	for _, cs := range d.csets {
		cs.abortLocked()
		cs.trig.flags |= tiDisabled
		cs.trig.policy.ChangeStatus(false)
	}
	d.lock.Unlock()

	for i := len(d.csets) - 1; i >= 0; i-- {
		d.csets[i].destroy()
	}
	d.csets = nil

	if err := f.devices.unregister(d.name); err != nil {
		return err
	}
	f.log.Infof("unregistered device %q", d.name)

	return nil
}

func validateTemplate(t *DeviceTemplate) error {
	if t.Name == "" {
		return fmt.Errorf("device template has no name: %w", ErrInvalidTemplate)
	}
	if !strings.Contains(t.Name, "%d") && len(t.Name) > maxDevNameLength {
		return fmt.Errorf("device name %q exceeds %d bytes: %w",
			t.Name, maxDevNameLength, ErrInvalidTemplate)
	}
	if len(t.CSets) == 0 {
		return fmt.Errorf("device %q declares no csets: %w", t.Name, ErrInvalidTemplate)
	}

	for i, ct := range t.CSets {
		if ct.RawIO == nil {
			return fmt.Errorf("cset %d of %q has no raw I/O callback: %w", i, t.Name, ErrInvalidTemplate)
		}
		if ct.NChans <= 0 && len(ct.Chans) == 0 {
			return fmt.Errorf("cset %d of %q declares no channels: %w", i, t.Name, ErrInvalidTemplate)
		}
		if ct.SSize <= 0 && ct.Flags&CSetTimeOnly == 0 {
			return fmt.Errorf("cset %d of %q has no sample size: %w", i, t.Name, ErrInvalidTemplate)
		}
	}

	return nil
}

// addCSet builds one channel set: minors, channels, buffer instances,
// trigger instance, and the per-channel Control caches. On error it
// releases everything it created.
func (d *Device) addCSet(index int, ct *CSetTemplate, t *DeviceTemplate) (cs *ChannelSet, err error) {
	f := d.fw

	nchans := ct.NChans
	if len(ct.Chans) > 0 {
		nchans = len(ct.Chans)
	}

	csName := ct.Name
	if csName == "" {
		csName = fmt.Sprintf("cset%d", index)
	}

	cs = &ChannelSet{
		dev:     d,
		name:    csName,
		index:   index,
		dir:     ct.Direction,
		ssize:   ct.SSize,
		flags:   ct.Flags,
		attrs:   ct.Attrs.clone(),
		raw:     ct.RawIO,
		abortIO: ct.AbortIO,
		enabled: true,
	}

	width := uint32(nchans * minorsPerChannel)
	base, err := f.minors.Alloc(width)
	if err != nil {
		return nil, fmt.Errorf("minor range for %s/%s: %w", d.name, csName, err)
	}
	cs.minorBase, cs.minorWidth = base, width
	defer func() {
		if err != nil {
			f.minors.Free(base, width)
		}
	}()

	trigName := firstNonEmpty(ct.PreferredTrigger, t.PreferredTrigger, DefaultTriggerName)
	bufName := firstNonEmpty(ct.PreferredBuffer, t.PreferredBuffer, DefaultBufferName)

	ttAny, err := f.triggers.get(trigName)
	if err != nil {
		return nil, err
	}
	tt := ttAny.(*TriggerType)
	defer func() {
		if err != nil {
			f.triggers.put(trigName)
		}
	}()

	ti, err := newTriggerInstance(tt, instanceName(d.name, csName, "trigger"), cs)
	if err != nil {
		return nil, err
	}
	if _, err = f.instances.register(ti.name, ti); err != nil {
		ti.policy.Destroy()
		return nil, err
	}
	cs.trig = ti
	defer func() {
		if err != nil {
			ti.policy.Destroy()
			_ = f.instances.unregister(ti.name)
		}
	}()

	for j := 0; j < nchans; j++ {
		var chAttrs *AttributeSet
		if len(ct.Chans) > 0 {
			chAttrs = ct.Chans[j].Attrs
		}

		ch := &Channel{
			cset:    cs,
			index:   j,
			attrs:   chAttrs.clone(),
			seq:     newSeqTracker(d.log),
			enabled: true,
		}

		ch.current, err = buildControl(ch, ti, 1)
		if err != nil {
			cs.removeChannels()
			return nil, err
		}

		btAny, gerr := f.buffers.get(bufName)
		if gerr != nil {
			err = gerr
			cs.removeChannels()
			return nil, err
		}
		bt := btAny.(*BufferType)

		ch.bi, err = newBufferInstance(bt, instanceName(d.name, csName, fmt.Sprintf("chan%d-buffer", j)), ch, d.log)
		if err != nil {
			f.buffers.put(bufName)
			cs.removeChannels()
			return nil, err
		}
		if _, err = f.instances.register(ch.bi.name, ch.bi); err != nil {
			ch.bi.destroy()
			f.buffers.put(bufName)
			cs.removeChannels()
			return nil, err
		}

		cs.channels = append(cs.channels, ch)
	}

	ti.policy.ChangeStatus(true)

	return cs, nil
}

// removeChannels unwinds the channels built so far during addCSet
func (cs *ChannelSet) removeChannels() {
	f := cs.dev.fw
	for i := len(cs.channels) - 1; i >= 0; i-- {
		ch := cs.channels[i]
		ch.bi.destroy()
		_ = f.instances.unregister(ch.bi.name)
		f.buffers.put(ch.bi.btype.name)
	}
	cs.channels = nil
}

// destroy releases a fully built cset; the trigger must already be
// quiescent (aborted and disabled)
func (cs *ChannelSet) destroy() {
	f := cs.dev.fw

	cs.trig.policy.Destroy()
	_ = f.instances.unregister(cs.trig.name)
	f.triggers.put(cs.trig.ttype.name)

	cs.removeChannels()
	f.minors.Free(cs.minorBase, cs.minorWidth)
}

// SetEnabled toggles the whole device. Disabling cascades to every cset
// and its trigger; enabling reverses this top-down.
func (d *Device) SetEnabled(on bool) {
	d.lock.Lock()
	defer d.lock.Unlock()

	d.enabled = on
	for _, cs := range d.csets {
		cs.setEnabledLocked(on)
	}
}

// SetEnabled toggles one cset, its trigger instance, and its channels
func (cs *ChannelSet) SetEnabled(on bool) {
	cs.dev.lock.Lock()
	defer cs.dev.lock.Unlock()

	cs.setEnabledLocked(on)
}

func (cs *ChannelSet) setEnabledLocked(on bool) {
	cs.enabled = on
	ti := cs.trig

	if !on {
		cs.abortLocked()
		ti.flags |= tiDisabled
		ti.policy.ChangeStatus(false)
		for _, ch := range cs.channels {
			ch.enabled = false
		}
		return
	}

	ti.flags &^= tiDisabled
	for _, ch := range cs.channels {
		ch.enabled = true
	}
	ti.policy.ChangeStatus(true)
	if cs.flags&CSetSelfTimed != 0 {
		if err := cs.armLocked(); err != nil {
			cs.dev.log.Warnf("arm on enable of %s/%s failed: %s", cs.dev.name, cs.name, err)
		}
	}
}

// SetEnabled toggles only this channel; the cset and trigger keep running
func (ch *Channel) SetEnabled(on bool) {
	ch.cset.dev.lock.Lock()
	defer ch.cset.dev.lock.Unlock()

	ch.enabled = on
}

// SetAttr writes a device-level attribute and re-propagates it into the
// Control cache of every channel under every cset
func (d *Device) SetAttr(name string, v uint32) error {
	d.lock.Lock()
	defer d.lock.Unlock()

	a, err := d.attrs.Lookup(name)
	if err != nil {
		return err
	}
	if err := a.setValue(v); err != nil {
		return err
	}

	for _, cs := range d.csets {
		for _, ch := range cs.channels {
			ch.current.applyAttr(a.index, a.Value)
		}
	}

	return nil
}

// GetAttr reads a device-level attribute
func (d *Device) GetAttr(name string) (uint32, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	a, err := d.attrs.Lookup(name)
	if err != nil {
		return 0, err
	}

	return a.getValue()
}

// SetAttr writes a cset-level attribute, reaching this cset's channels
func (cs *ChannelSet) SetAttr(name string, v uint32) error {
	cs.dev.lock.Lock()
	defer cs.dev.lock.Unlock()

	a, err := cs.attrs.Lookup(name)
	if err != nil {
		return err
	}
	if err := a.setValue(v); err != nil {
		return err
	}

	for _, ch := range cs.channels {
		ch.current.applyAttr(a.index, a.Value)
	}

	return nil
}

// GetAttr reads a cset-level attribute
func (cs *ChannelSet) GetAttr(name string) (uint32, error) {
	cs.dev.lock.Lock()
	defer cs.dev.lock.Unlock()

	a, err := cs.attrs.Lookup(name)
	if err != nil {
		return 0, err
	}

	return a.getValue()
}

// SetAttr writes a channel-level attribute; it reaches only this
// channel's Control cache
func (ch *Channel) SetAttr(name string, v uint32) error {
	ch.cset.dev.lock.Lock()
	defer ch.cset.dev.lock.Unlock()

	a, err := ch.attrs.Lookup(name)
	if err != nil {
		return err
	}
	if err := a.setValue(v); err != nil {
		return err
	}
	ch.current.applyAttr(a.index, a.Value)

	return nil
}

// GetAttr reads a channel-level attribute
func (ch *Channel) GetAttr(name string) (uint32, error) {
	ch.cset.dev.lock.Lock()
	defer ch.cset.dev.lock.Unlock()

	a, err := ch.attrs.Lookup(name)
	if err != nil {
		return 0, err
	}

	return a.getValue()
}

// Open pins the channel's buffer instance on behalf of a consumer. A
// pinned buffer cannot be swapped out underneath its reader.
func (ch *Channel) Open() {
	ch.bi.pin()
}

// Release drops a consumer's pin
func (ch *Channel) Release() {
	ch.bi.unpin()
}

// Retrieve returns the block the consumer is draining, fetching the
// oldest stored block when the user slot is empty. ErrWouldBlock means
// nothing is stored; blocking is the I/O adapter's business.
func (ch *Channel) Retrieve() (*Block, error) {
	ch.cset.dev.lock.Lock()
	defer ch.cset.dev.lock.Unlock()

	if ch.user != nil {
		return ch.user, nil
	}

	blk, err := ch.bi.RetrieveBlock()
	if err != nil {
		return nil, err
	}
	ch.user = blk

	return blk, nil
}

// ReleaseBlock frees the fully drained user block
func (ch *Channel) ReleaseBlock() {
	ch.cset.dev.lock.Lock()
	defer ch.cset.dev.lock.Unlock()

	if ch.user == nil {
		return
	}
	ch.bi.FreeBlock(ch.user)
	ch.user = nil
}

// Push queues sample data on an output channel. The first push lands in
// the hardware-facing slot directly; later pushes queue in the buffer
// until the trigger consumes them.
func (ch *Channel) Push(data []byte) error {
	cs := ch.cset
	if cs.dir != Output {
		return fmt.Errorf("push on input channel %d of %s/%s: %w",
			ch.index, cs.dev.name, cs.name, ErrUnsupported)
	}
	if cs.ssize == 0 || len(data)%cs.ssize != 0 {
		return fmt.Errorf("%d bytes is not a whole number of %d-byte samples: %w",
			len(data), cs.ssize, ErrUnsupported)
	}

	cs.dev.lock.Lock()
	defer cs.dev.lock.Unlock()

	ctrl := ch.current.clone()
	ctrl.NSamples = uint32(len(data) / cs.ssize)

	blk, err := ch.bi.AllocBlock(ctrl)
	if err != nil {
		return err
	}
	copy(blk.Data, data)

	if ch.active == nil {
		ch.active = blk
		return nil
	}
	if err := ch.bi.StoreBlock(blk); err != nil {
		ch.bi.FreeBlock(blk)
		return err
	}

	return nil
}

// Accessors

// Name returns the device's registered name
func (d *Device) Name() string { return d.name }

// ID returns the driver-assigned device id
func (d *Device) ID() uint32 { return d.id }

// CSets returns the device's channel sets in registration order
func (d *Device) CSets() []*ChannelSet { return d.csets }

// CSet returns one channel set by index
func (d *Device) CSet(i int) *ChannelSet { return d.csets[i] }

// Enabled reports the device-level enable state
func (d *Device) Enabled() bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.enabled
}

// Name returns the cset's name, unique within its device
func (cs *ChannelSet) Name() string { return cs.name }

// Device returns the owning device
func (cs *ChannelSet) Device() *Device { return cs.dev }

// Direction reports which way samples flow
func (cs *ChannelSet) Direction() Direction { return cs.dir }

// SampleSize returns the fixed bytes-per-sample
func (cs *ChannelSet) SampleSize() int { return cs.ssize }

// Channels returns the cset's channels
func (cs *ChannelSet) Channels() []*Channel { return cs.channels }

// Channel returns one channel by index
func (cs *ChannelSet) Channel(i int) *Channel { return cs.channels[i] }

// Trigger returns the live trigger instance
func (cs *ChannelSet) Trigger() *TriggerInstance {
	cs.dev.lock.Lock()
	defer cs.dev.lock.Unlock()
	return cs.trig
}

// MinorRange returns the cset's stable minor-number range as base and
// width; the width is two minors per channel
func (cs *ChannelSet) MinorRange() (base, width uint32) {
	return cs.minorBase, cs.minorWidth
}

// Index returns the channel's position in its cset
func (ch *Channel) Index() int { return ch.index }

// CSet returns the owning channel set
func (ch *Channel) CSet() *ChannelSet { return ch.cset }

// Buffer returns the live buffer instance
func (ch *Channel) Buffer() *BufferInstance {
	ch.cset.dev.lock.Lock()
	defer ch.cset.dev.lock.Unlock()
	return ch.bi
}

// Control returns a snapshot of the channel's cached Control header
func (ch *Channel) Control() Control {
	ch.cset.dev.lock.Lock()
	defer ch.cset.dev.lock.Unlock()
	return *ch.current
}

// MissingSeq lists sequence numbers that were armed but never stored,
// the consumer-visible acquisition gaps
func (ch *Channel) MissingSeq() []uint32 {
	return ch.seq.missing()
}

func instanceName(dev, cset, leaf string) string {
	return dev + "/" + cset + "/" + leaf
}

func firstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}
