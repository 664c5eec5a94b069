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

import "fmt"

// AttrMode is the access mode of an attribute endpoint
type AttrMode int

const (
	// AttrRO attributes can only be read
	AttrRO AttrMode = iota
	// AttrRW attributes accept configuration writes
	AttrRW
)

// StdAttr enumerates the standard attributes. Each owns a fixed slot in
// the Control header's std bitmask, so a given standard attribute may
// appear at most once across a device/cset/channel/trigger chain.
type StdAttr int

const (
	// StdAttrVersion is the device's interface version
	StdAttrVersion StdAttr = iota
	// StdAttrResolution is the number of meaningful bits per sample
	StdAttrResolution
	// StdAttrGain is the analog front-end gain, device units
	StdAttrGain
	// StdAttrOffset is the analog front-end offset, device units
	StdAttrOffset
	// StdAttrMaxRate is the highest sustainable sample rate in Hz
	StdAttrMaxRate
	// StdAttrVref selects the voltage reference
	StdAttrVref
	// StdAttrNSamples is the trigger's samples-per-acquisition count
	StdAttrNSamples
	// StdAttrPreSamples is how many samples precede the fire event
	StdAttrPreSamples
	// StdAttrReEnable re-arms a one-shot trigger after it fires
	StdAttrReEnable
	// StdAttrPeriod is the timer trigger period in milliseconds
	StdAttrPeriod
	// StdAttrMaxLen is a buffer instance's block capacity
	StdAttrMaxLen

	stdAttrCount
)

var stdAttrNames = map[StdAttr]string{
	StdAttrVersion:    "version",
	StdAttrResolution: "resolution-bits",
	StdAttrGain:       "gain",
	StdAttrOffset:     "offset",
	StdAttrMaxRate:    "max-sample-rate",
	StdAttrVref:       "vref-src",
	StdAttrNSamples:   "post-samples",
	StdAttrPreSamples: "pre-samples",
	StdAttrReEnable:   "re-enable",
	StdAttrPeriod:     "ms-period",
	StdAttrMaxLen:     "max-buffer-len",
}

// Name returns the canonical endpoint name of a standard attribute
func (s StdAttr) Name() string {
	return stdAttrNames[s]
}

// Attribute binds a named value to optional hardware accessors. The
// cached Value is authoritative between acquisitions; InfoGet re-reads
// hardware on demand and ConfSet pushes writes down before the cache
// and any affected Control headers are updated.
type Attribute struct {
	Name string
	Mode AttrMode
	// ID is a driver-private address, typically a register number
	ID    uint32
	Value uint32
	// Control marks the attribute for mirroring into Control headers
	Control bool
	InfoGet func(a *Attribute) (uint32, error)
	ConfSet func(a *Attribute, v uint32) error

	// index is the flattened Control slot assigned by buildControl,
	// or -1 for attributes that stay out of the header
	index int
}

// AttributeSet groups the attributes of one hierarchy level. Standard
// attributes are keyed by their fixed slot; extended attributes are
// driver-defined and indexed sequentially at Control-build time.
type AttributeSet struct {
	Std map[StdAttr]*Attribute
	Ext []*Attribute
}

// NewAttributeSet returns an empty set
func NewAttributeSet() *AttributeSet {
	return &AttributeSet{Std: make(map[StdAttr]*Attribute)}
}

// AddStd registers a standard attribute in its fixed slot. The endpoint
// name comes from the slot; a duplicate slot is a template bug surfaced
// at device registration.
func (s *AttributeSet) AddStd(slot StdAttr, a *Attribute) *AttributeSet {
	a.Name = slot.Name()
	a.index = -1
	s.Std[slot] = a
	return s
}

// AddExt appends a driver-defined attribute
func (s *AttributeSet) AddExt(a *Attribute) *AttributeSet {
	a.index = -1
	s.Ext = append(s.Ext, a)
	return s
}

// Lookup finds an attribute by endpoint name
func (s *AttributeSet) Lookup(name string) (*Attribute, error) {
	if s != nil {
		for _, a := range s.Std {
			if a.Name == name {
				return a, nil
			}
		}
		for _, a := range s.Ext {
			if a.Name == name {
				return a, nil
			}
		}
	}

	return nil, fmt.Errorf("attribute %q: %w", name, ErrNotFound)
}

// clone deep-copies the set so instances never share cached values with
// their template. Accessor callbacks are shared; they are stateless
// with respect to the attribute they receive.
func (s *AttributeSet) clone() *AttributeSet {
	out := NewAttributeSet()
	if s == nil {
		return out
	}

	for slot, a := range s.Std {
		c := *a
		c.index = -1
		out.Std[slot] = &c
	}
	for _, a := range s.Ext {
		c := *a
		c.index = -1
		out.Ext = append(out.Ext, &c)
	}

	return out
}

// setValue runs the attribute's configuration callback and updates the
// cache. The caller holds the owning device's lock and handles Control
// propagation.
func (a *Attribute) setValue(v uint32) error {
	if a.Mode != AttrRW {
		return fmt.Errorf("attribute %q is read-only: %w", a.Name, ErrUnsupported)
	}
	if a.ConfSet != nil {
		if err := a.ConfSet(a, v); err != nil {
			return fmt.Errorf("attribute %q: %w", a.Name, err)
		}
	}
	a.Value = v

	return nil
}

// getValue re-reads hardware when an accessor is present, refreshing
// the cache, and returns the cached value otherwise
func (a *Attribute) getValue() (uint32, error) {
	if a.InfoGet != nil {
		v, err := a.InfoGet(a)
		if err != nil {
			return 0, fmt.Errorf("attribute %q: %w", a.Name, err)
		}
		a.Value = v
	}

	return a.Value, nil
}
