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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControlBinaryRoundTrip(t *testing.T) {
	in := &Control{
		Major:    ControlVersionMajor,
		Minor:    ControlVersionMinor,
		Seq:      7,
		NSamples: 64,
		SSize:    2,
		Addr: ControlAddr{
			DevName: "sim-0",
			DevID:   3,
			CSet:    1,
			Chan:    2,
		},
		TStamp:  TimeStamp{Secs: 1700000000, Ticks: 12345, Bins: 9},
		StdMask: 1 << uint(StdAttrGain),
		ExtMask: 0x3,
	}
	in.StdVal[StdAttrGain] = 10
	in.ExtVal[0] = 111
	in.ExtVal[1] = 222

	buf, err := in.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, controlBinarySize, len(buf))

	out := &Control{}
	require.NoError(t, out.UnmarshalBinary(buf))
	assert.Equal(t, in, out)
}

func TestUnmarshalRejectsWrongSize(t *testing.T) {
	c := &Control{}

	assert.ErrorIs(t, c.UnmarshalBinary(make([]byte, 100)), ErrUnsupported)
}

func TestUnmarshalRejectsWrongMajorVersion(t *testing.T) {
	in := &Control{Major: ControlVersionMajor, SSize: 2}
	buf, err := in.MarshalBinary()
	require.NoError(t, err)
	buf[0] = ControlVersionMajor + 1

	out := &Control{}
	assert.ErrorIs(t, out.UnmarshalBinary(buf), ErrUnsupported)
}

func TestMarshalRejectsOverlongDeviceName(t *testing.T) {
	c := &Control{Addr: ControlAddr{DevName: "this-name-is-longer-than-16"}}

	_, err := c.MarshalBinary()
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestPayloadLen(t *testing.T) {
	c := &Control{NSamples: 64, SSize: 2}

	assert.Equal(t, 128, c.PayloadLen())
}

func TestApplyAttrRoutesStdAndExtSlots(t *testing.T) {
	c := &Control{}

	c.applyAttr(-1, 99)
	c.applyAttr(int(StdAttrGain), 10)
	c.applyAttr(maxStdAttrs, 11)
	c.applyAttr(maxStdAttrs+5, 12)

	assert.Equal(t, uint32(10), c.StdVal[StdAttrGain])
	assert.Equal(t, uint32(11), c.ExtVal[0])
	assert.Equal(t, uint32(12), c.ExtVal[5])
}

func TestBuildControlFlattensAttributeHierarchy(t *testing.T) {
	f := newTestFramework(t)

	tmpl := &DeviceTemplate{
		Name: "flat",
		ID:   9,
		Attrs: NewAttributeSet().
			AddStd(StdAttrVersion, &Attribute{Mode: AttrRO, Value: 3, Control: true}).
			AddExt(&Attribute{Name: "dev-ext", Mode: AttrRW, Value: 100, Control: true}),
		CSets: []*CSetTemplate{{
			Direction: Input,
			SSize:     2,
			NChans:    1,
			Attrs: NewAttributeSet().
				AddStd(StdAttrGain, &Attribute{Mode: AttrRW, Value: 10, Control: true}).
				AddExt(&Attribute{Name: "cset-ext", Mode: AttrRW, Value: 200, Control: true}),
			Chans: []*ChanTemplate{{
				Attrs: NewAttributeSet().
					AddExt(&Attribute{Name: "chan-ext", Mode: AttrRW, Value: 300, Control: true}),
			}},
			RawIO: func(cs *ChannelSet) error { return ErrAgain },
		}},
	}

	dev, err := f.RegisterDevice(tmpl)
	require.NoError(t, err)
	defer func() { _ = f.UnregisterDevice(dev) }()

	ctrl := dev.CSet(0).Channel(0).Control()

	assert.Equal(t, uint8(ControlVersionMajor), ctrl.Major)
	assert.Equal(t, uint32(1), ctrl.Seq)
	assert.Equal(t, "flat", ctrl.Addr.DevName)
	assert.Equal(t, uint32(9), ctrl.Addr.DevID)

	// Standard slots are fixed
	assert.NotZero(t, ctrl.StdMask&(1<<uint(StdAttrVersion)))
	assert.NotZero(t, ctrl.StdMask&(1<<uint(StdAttrGain)))
	assert.Equal(t, uint32(3), ctrl.StdVal[StdAttrVersion])
	assert.Equal(t, uint32(10), ctrl.StdVal[StdAttrGain])

	// Extended slots are sequential: device, cset, channel, trigger.
	// The default trigger has no extended attributes.
	assert.Equal(t, uint32(100), ctrl.ExtVal[0])
	assert.Equal(t, uint32(200), ctrl.ExtVal[1])
	assert.Equal(t, uint32(300), ctrl.ExtVal[2])
	assert.Equal(t, uint32(0x7), ctrl.ExtMask)
}

func TestChannelExtendedAttributesPrecedeTriggerExtendedAttributes(t *testing.T) {
	f := newTestFramework(t)

	tagged := NewTriggerType("tagged", NewAttributeSet().
		AddStd(StdAttrNSamples, &Attribute{Mode: AttrRW, Value: defaultNSamples, Control: true}).
		AddExt(&Attribute{Name: "trig-ext", Mode: AttrRW, Value: 400, Control: true}),
		func(ti *TriggerInstance) (TriggerPolicy, error) {
			return &userTrigger{}, nil
		})
	require.NoError(t, f.RegisterTriggerType(tagged))

	tmpl := &DeviceTemplate{
		Name:             "tagged-adc",
		PreferredTrigger: "tagged",
		CSets: []*CSetTemplate{{
			Direction: Input,
			SSize:     2,
			Chans: []*ChanTemplate{{
				Attrs: NewAttributeSet().
					AddExt(&Attribute{Name: "chan-ext", Mode: AttrRW, Value: 300, Control: true}),
			}},
			RawIO: func(cs *ChannelSet) error { return ErrAgain },
		}},
	}

	dev, err := f.RegisterDevice(tmpl)
	require.NoError(t, err)
	defer func() { _ = f.UnregisterDevice(dev) }()

	ctrl := dev.CSet(0).Channel(0).Control()
	assert.Equal(t, uint32(300), ctrl.ExtVal[0])
	assert.Equal(t, uint32(400), ctrl.ExtVal[1])
	assert.Equal(t, uint32(0x3), ctrl.ExtMask)
}

func TestDuplicateStdAttributeAcrossLevelsIsRejected(t *testing.T) {
	f := newTestFramework(t)

	tmpl := &DeviceTemplate{
		Name: "dup",
		Attrs: NewAttributeSet().
			AddStd(StdAttrGain, &Attribute{Mode: AttrRW, Value: 1, Control: true}),
		CSets: []*CSetTemplate{{
			Direction: Input,
			SSize:     2,
			NChans:    1,
			Attrs: NewAttributeSet().
				AddStd(StdAttrGain, &Attribute{Mode: AttrRW, Value: 2, Control: true}),
			RawIO: func(cs *ChannelSet) error { return ErrAgain },
		}},
	}

	_, err := f.RegisterDevice(tmpl)
	assert.ErrorIs(t, err, ErrInvalidTemplate)
	assert.Empty(t, f.DeviceNames())
}

func TestExtendedAttributeOverflowIsRejected(t *testing.T) {
	f := newTestFramework(t)

	attrs := NewAttributeSet()
	for i := 0; i <= maxExtAttrs; i++ {
		attrs.AddExt(&Attribute{Name: attrName(i), Mode: AttrRW, Control: true})
	}

	tmpl := &DeviceTemplate{
		Name:  "wide",
		Attrs: attrs,
		CSets: []*CSetTemplate{{
			Direction: Input,
			SSize:     2,
			NChans:    1,
			RawIO:     func(cs *ChannelSet) error { return ErrAgain },
		}},
	}

	_, err := f.RegisterDevice(tmpl)
	assert.ErrorIs(t, err, ErrTooManyAttributes)
	assert.Empty(t, f.DeviceNames())
}
