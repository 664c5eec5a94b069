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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Framework ties the registries, the minor-number allocator, and the
// shared payload pool together. Drivers register devices against one
// framework; consumers find them through it.
type Framework struct {
	log       *logrus.Logger
	devices   *nameRegistry
	triggers  *nameRegistry
	buffers   *nameRegistry
	instances *nameRegistry
	minors    *RangeAllocator
	pool      *payloadPool
	metrics   *engineMetrics
	actions   *actionTracker
}

// New builds a framework with the built-in trigger types ("user",
// "timer") and the default "fifo" buffer type already registered.
func New(log *logrus.Logger) *Framework {
	f := &Framework{
		log:       log,
		devices:   newNameRegistry("device", log),
		triggers:  newNameRegistry("trigger type", log),
		buffers:   newNameRegistry("buffer type", log),
		instances: newNameRegistry("instance", log),
		minors:    NewRangeAllocator(0, minorSpaceSize, log),
		pool:      newPayloadPool(log),
		metrics:   newEngineMetrics(),
		actions:   newActionTracker(),
	}

	for _, tt := range []*TriggerType{newUserTriggerType(), newTimerTriggerType(log)} {
		if err := f.RegisterTriggerType(tt); err != nil {
			log.Errorf("built-in trigger %q: %s", tt.name, err)
			panic(err)
		}
	}
	if err := f.RegisterBufferType(newFIFOBufferType(f.pool, log)); err != nil {
		log.Errorf("built-in buffer: %s", err)
		panic(err)
	}

	return f
}

// RegisterTriggerType adds a loadable trigger policy under its name
func (f *Framework) RegisterTriggerType(tt *TriggerType) error {
	name, err := f.triggers.register(tt.name, tt)
	if err != nil {
		return err
	}
	tt.name = name

	return nil
}

// UnregisterTriggerType removes a trigger type; fails with ErrBusy
// while any instance still pins it
func (f *Framework) UnregisterTriggerType(name string) error {
	return f.triggers.unregister(name)
}

// RegisterBufferType adds a loadable storage policy under its name
func (f *Framework) RegisterBufferType(bt *BufferType) error {
	name, err := f.buffers.register(bt.name, bt)
	if err != nil {
		return err
	}
	bt.name = name

	return nil
}

// UnregisterBufferType removes a buffer type; fails with ErrBusy while
// any instance still pins it
func (f *Framework) UnregisterBufferType(name string) error {
	return f.buffers.unregister(name)
}

// LookupDevice finds a registered device by name
func (f *Framework) LookupDevice(name string) (*Device, error) {
	d, err := f.devices.lookup(name)
	if err != nil {
		return nil, err
	}

	return d.(*Device), nil
}

// DeviceNames lists registered devices, sorted
func (f *Framework) DeviceNames() []string {
	return f.devices.names()
}

// TriggerTypeNames lists registered trigger types, sorted
func (f *Framework) TriggerTypeNames() []string {
	return f.triggers.names()
}

// BufferTypeNames lists registered buffer types, sorted
func (f *Framework) BufferTypeNames() []string {
	return f.buffers.names()
}

// MetricsRegistry exposes the engine's Prometheus registry so callers
// can mount it on an HTTP endpoint
func (f *Framework) MetricsRegistry() *prometheus.Registry {
	return f.metrics.registry
}

// SampleRate reports the recent per-second rate of an acquisition
// action over the trailing window
func (f *Framework) SampleRate(action AcqAction, windowMillis int) uint64 {
	return f.actions.sampleRate(action, windowMillis)
}
