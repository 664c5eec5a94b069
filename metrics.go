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
)

// engineMetrics holds the per-cset acquisition counters on a private
// registry, so embedding applications choose whether and where to
// expose them.
type engineMetrics struct {
	registry *prometheus.Registry

	arms         *prometheus.CounterVec
	completions  *prometheus.CounterVec
	storedBlocks *prometheus.CounterVec
	storedBytes  *prometheus.CounterVec
	drops        *prometheus.CounterVec
	frees        *prometheus.CounterVec
	allocFails   *prometheus.CounterVec
	aborts       *prometheus.CounterVec
	ioErrors     *prometheus.CounterVec
}

var csetLabels = []string{"device", "cset"}

func newEngineMetrics() *engineMetrics {
	m := &engineMetrics{
		registry: prometheus.NewRegistry(),
		arms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "daqio",
			Name:      "trigger_arms_total",
			Help:      "Number of times a cset trigger was armed",
		}, csetLabels),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "daqio",
			Name:      "acquisitions_total",
			Help:      "Number of completed acquisition cycles",
		}, csetLabels),
		storedBlocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "daqio",
			Name:      "stored_blocks_total",
			Help:      "Number of blocks stored into channel buffers",
		}, csetLabels),
		storedBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "daqio",
			Name:      "stored_bytes_total",
			Help:      "Payload bytes stored into channel buffers",
		}, csetLabels),
		drops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "daqio",
			Name:      "dropped_blocks_total",
			Help:      "Number of blocks dropped because the buffer was full",
		}, csetLabels),
		frees: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "daqio",
			Name:      "freed_blocks_total",
			Help:      "Number of consumed output blocks released after a cycle",
		}, csetLabels),
		allocFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "daqio",
			Name:      "alloc_failures_total",
			Help:      "Number of block allocations that failed at arm time",
		}, csetLabels),
		aborts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "daqio",
			Name:      "aborts_total",
			Help:      "Number of armed acquisitions that were aborted",
		}, csetLabels),
		ioErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "daqio",
			Name:      "io_errors_total",
			Help:      "Number of raw I/O submissions that failed",
		}, csetLabels),
	}

	m.registry.MustRegister(
		m.arms, m.completions, m.storedBlocks, m.storedBytes,
		m.drops, m.frees, m.allocFails, m.aborts, m.ioErrors,
	)

	return m
}

func (m *engineMetrics) labels(cs *ChannelSet) prometheus.Labels {
	return prometheus.Labels{"device": cs.dev.name, "cset": cs.name}
}

func (m *engineMetrics) recordArm(cs *ChannelSet) {
	m.arms.With(m.labels(cs)).Inc()
}

func (m *engineMetrics) recordCompletion(cs *ChannelSet) {
	m.completions.With(m.labels(cs)).Inc()
}

func (m *engineMetrics) recordStore(cs *ChannelSet, bytes int) {
	labels := m.labels(cs)
	m.storedBlocks.With(labels).Inc()
	m.storedBytes.With(labels).Add(float64(bytes))
}

func (m *engineMetrics) recordDrop(cs *ChannelSet) {
	m.drops.With(m.labels(cs)).Inc()
}

func (m *engineMetrics) recordFree(cs *ChannelSet) {
	m.frees.With(m.labels(cs)).Inc()
}

func (m *engineMetrics) recordAllocFailure(cs *ChannelSet) {
	m.allocFails.With(m.labels(cs)).Inc()
}

func (m *engineMetrics) recordAbort(cs *ChannelSet) {
	m.aborts.With(m.labels(cs)).Inc()
}

func (m *engineMetrics) recordIOError(cs *ChannelSet) {
	m.ioErrors.With(m.labels(cs)).Inc()
}
