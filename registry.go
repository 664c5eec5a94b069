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
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// registryEntry pairs a registered object with its pin count. An entry
// with pins > 0 cannot be unregistered; this replaces loader-level
// module pinning with plain reference counting.
type registryEntry struct {
	name     string
	payload  interface{}
	pins     int
	removing bool
}

// nameRegistry is a typed list of uniquely named objects. The framework
// keeps one per object class (devices, trigger types, buffer types,
// live instances).
type nameRegistry struct {
	kind    string
	entries map[string]*registryEntry
	lock    *sync.Mutex
	log     *logrus.Logger
}

func newNameRegistry(kind string, log *logrus.Logger) *nameRegistry {
	return &nameRegistry{
		kind:    kind,
		entries: make(map[string]*registryEntry),
		lock:    &sync.Mutex{},
		log:     log,
	}
}

// register adds payload under name and returns the final name. A name
// containing a %d placeholder is expanded by probing successive indexes
// until a free slot is found; a literal name that collides fails with
// ErrExists.
func (r *nameRegistry) register(name string, payload interface{}) (string, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	final := name
	if strings.Contains(name, "%d") {
		for i := 0; ; i++ {
			candidate := fmt.Sprintf(name, i)
			if _, taken := r.entries[candidate]; !taken {
				final = candidate
				break
			}
		}
	} else if _, taken := r.entries[name]; taken {
		return "", fmt.Errorf("%s %q: %w", r.kind, name, ErrExists)
	}

	r.entries[final] = &registryEntry{name: final, payload: payload}
	r.log.Debugf("registered %s %q", r.kind, final)

	return final, nil
}

// unregister removes an entry. The caller must hold the last reference;
// an entry that is still pinned fails with ErrBusy.
func (r *nameRegistry) unregister(name string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return fmt.Errorf("%s %q: %w", r.kind, name, ErrNotFound)
	}
	if e.pins > 0 {
		return fmt.Errorf("%s %q has %d users: %w", r.kind, name, e.pins, ErrBusy)
	}

	e.removing = true
	delete(r.entries, name)
	r.log.Debugf("unregistered %s %q", r.kind, name)

	return nil
}

// lookup returns the payload registered under name without pinning it
func (r *nameRegistry) lookup(name string) (interface{}, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%s %q: %w", r.kind, name, ErrNotFound)
	}

	return e.payload, nil
}

// get pins the entry and returns its payload. Pin-then-check: an entry
// in the middle of removal fails atomically, so a user can never pin an
// object whose owner has started tearing it down.
func (r *nameRegistry) get(name string) (interface{}, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	e, ok := r.entries[name]
	if !ok || e.removing {
		return nil, fmt.Errorf("%s %q: %w", r.kind, name, ErrNotFound)
	}
	e.pins++

	return e.payload, nil
}

// put drops one pin taken by get
func (r *nameRegistry) put(name string) {
	r.lock.Lock()
	defer r.lock.Unlock()

	e, ok := r.entries[name]
	if !ok || e.pins == 0 {
		r.log.Errorf("unbalanced put of %s %q", r.kind, name)
		panic(fmt.Sprintf("unbalanced put of %s %q", r.kind, name))
	}
	e.pins--
}

// rename moves an entry to a new unique name, keeping its pins
func (r *nameRegistry) rename(oldName, newName string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	e, ok := r.entries[oldName]
	if !ok {
		return fmt.Errorf("%s %q: %w", r.kind, oldName, ErrNotFound)
	}
	if _, taken := r.entries[newName]; taken {
		return fmt.Errorf("%s %q: %w", r.kind, newName, ErrExists)
	}

	delete(r.entries, oldName)
	e.name = newName
	r.entries[newName] = e

	return nil
}

// names returns all registered names, sorted
func (r *nameRegistry) names() []string {
	r.lock.Lock()
	defer r.lock.Unlock()

	out := make([]string, 0, len(r.entries))
	for name := range r.entries {
		out = append(out, name)
	}
	sort.Strings(out)

	return out
}

func (r *nameRegistry) count() int {
	r.lock.Lock()
	defer r.lock.Unlock()

	return len(r.entries)
}
