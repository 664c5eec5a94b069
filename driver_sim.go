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
	"math/rand"
	"sync"

	"github.com/sirupsen/logrus"
)

// SimConfig describes a simulated device. The simulator has no
// hardware behind it: input channels synthesize waveforms, output
// channels record what the engine hands them.
type SimConfig struct {
	Name           string
	InputChannels  int
	OutputChannels int
	SSize          int
	// Trigger names the trigger type instantiated for the input cset;
	// empty means the framework default
	Trigger string
	// Async makes raw input I/O return ErrAgain; the acquisition then
	// finishes when Complete is called
	Async bool
	// SelfTimed marks the input cset as hardware-paced
	SelfTimed bool
}

// SimDriver registers a device whose input cset produces deterministic
// test patterns: channel 0 all zeros, channel 1 a sawtooth counter,
// channel 2 pseudo-random samples, higher channels their own index.
// Output channels loop back: the last block consumed per channel stays
// readable through LastOutput.
type SimDriver struct {
	cfg SimConfig
	dev *Device
	log *logrus.Logger

	mu       sync.Mutex
	pending  *ChannelSet
	sawtooth uint64
	rng      *rand.Rand
	lastOut  [][]byte
}

// NewSimDriver builds and registers the simulated device
func NewSimDriver(f *Framework, cfg SimConfig) (*SimDriver, error) {
	if cfg.Name == "" {
		cfg.Name = "sim-%d"
	}
	if cfg.InputChannels <= 0 {
		cfg.InputChannels = 4
	}
	if cfg.SSize <= 0 {
		cfg.SSize = 2
	}

	s := &SimDriver{
		cfg: cfg,
		log: f.log,
		rng: rand.New(rand.NewSource(0x1d4)),
	}

	var inFlags CSetFlag
	if cfg.SelfTimed {
		inFlags |= CSetSelfTimed
	}

	csets := []*CSetTemplate{{
		Name:             "in",
		Direction:        Input,
		SSize:            cfg.SSize,
		NChans:           cfg.InputChannels,
		Flags:            inFlags,
		RawIO:            s.rawInput,
		AbortIO:          s.abortInput,
		PreferredTrigger: cfg.Trigger,
	}}

	if cfg.OutputChannels > 0 {
		s.lastOut = make([][]byte, cfg.OutputChannels)
		csets = append(csets, &CSetTemplate{
			Name:      "out",
			Direction: Output,
			SSize:     cfg.SSize,
			NChans:    cfg.OutputChannels,
			RawIO:     s.rawOutput,
		})
	}

	tmpl := &DeviceTemplate{
		Name: cfg.Name,
		Attrs: NewAttributeSet().
			AddStd(StdAttrVersion, &Attribute{Mode: AttrRO, Value: ControlVersionMajor, Control: true}).
			AddStd(StdAttrResolution, &Attribute{Mode: AttrRO, Value: uint32(cfg.SSize * 8)}),
		CSets: csets,
	}

	dev, err := f.RegisterDevice(tmpl)
	if err != nil {
		return nil, err
	}
	s.dev = dev

	return s, nil
}

// Device returns the registered device
func (s *SimDriver) Device() *Device { return s.dev }

// InputCSet returns the simulated input cset
func (s *SimDriver) InputCSet() *ChannelSet { return s.dev.CSet(0) }

// OutputCSet returns the simulated output cset, or nil if the config
// declared no output channels
func (s *SimDriver) OutputCSet() *ChannelSet {
	if s.cfg.OutputChannels == 0 {
		return nil
	}
	return s.dev.CSet(1)
}

// Complete finishes the acquisition a previous ErrAgain left in
// flight. It must not race Abort; real drivers serialize this in their
// interrupt path, the simulator leaves it to the caller.
func (s *SimDriver) Complete() error {
	s.mu.Lock()
	cs := s.pending
	s.pending = nil
	s.mu.Unlock()

	if cs == nil {
		return fmt.Errorf("no acquisition in flight: %w", ErrNotFound)
	}

	s.fillInput(cs)
	cs.DataDone()

	return nil
}

// LastOutput returns a copy of the newest block consumed on an output
// channel, or nil if none completed yet
func (s *SimDriver) LastOutput(chanIndex int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	if chanIndex >= len(s.lastOut) || s.lastOut[chanIndex] == nil {
		return nil
	}
	out := make([]byte, len(s.lastOut[chanIndex]))
	copy(out, s.lastOut[chanIndex])

	return out
}

func (s *SimDriver) rawInput(cs *ChannelSet) error {
	if s.cfg.Async {
		s.mu.Lock()
		s.pending = cs
		s.mu.Unlock()
		return ErrAgain
	}

	s.fillInput(cs)

	return nil
}

func (s *SimDriver) abortInput(cs *ChannelSet) {
	s.mu.Lock()
	if s.pending == cs {
		s.pending = nil
	}
	s.mu.Unlock()
}

func (s *SimDriver) rawOutput(cs *ChannelSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ch := range cs.channels {
		if ch.active == nil {
			continue
		}
		out := make([]byte, len(ch.active.Data))
		copy(out, ch.active.Data)
		s.lastOut[ch.index] = out
	}

	return nil
}

// fillInput synthesizes one block of samples per armed channel
func (s *SimDriver) fillInput(cs *ChannelSet) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ssize := cs.ssize
	for _, ch := range cs.channels {
		blk := ch.active
		if blk == nil {
			continue
		}

		nsamples := len(blk.Data) / ssize
		for i := 0; i < nsamples; i++ {
			var v uint64
			switch ch.index {
			case 0:
				v = 0
			case 1:
				v = s.sawtooth
				s.sawtooth++
			case 2:
				v = s.rng.Uint64()
			default:
				v = uint64(ch.index)
			}
			putSample(blk.Data[i*ssize:], ssize, v)
		}
	}
}
