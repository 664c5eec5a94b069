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

package main

import (
	"fmt"
	"io/ioutil"
	"log/syslog"
	"os"

	"github.com/sirupsen/logrus"
	syslogrus "github.com/sirupsen/logrus/hooks/syslog"
)

const (
	syslogTag      = "daqio"
	deviceLogField = "device"
)

// logFields stamps a fixed set of fields onto every entry, so each log
// line identifies the device this process runs against.
// Implements logrus.Hook.
type logFields logrus.Fields

// Levels fires on every level; filtering happens at the logger
func (h logFields) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire dumps the stored fields into the given entry
func (h logFields) Fire(entry *logrus.Entry) error {
	for key, value := range h {
		entry.Data[key] = value
	}

	return nil
}

// setupLogging configures the process-wide logger from the verbosity
// flags and the loaded config: JSON entries, stderr output only when
// verbose, a device field on every entry, and an optional syslog mirror.
func setupLogging(verbosity verbosityLevel, cfg *appConfig) error {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	switch verbosity {
	case verbosityNormal:
		logrus.SetOutput(ioutil.Discard)
	case verbosityVerbose:
		logrus.SetOutput(os.Stderr)
	default:
		logrus.SetOutput(os.Stderr)
		logrus.SetLevel(logrus.DebugLevel)
	}

	logrus.AddHook(logFields{deviceLogField: cfg.Device.Name})

	if !cfg.Syslog {
		return nil
	}
	syslogHook, err := syslogrus.NewSyslogHook("", "", syslog.LOG_USER|syslog.LOG_INFO, syslogTag)
	if err != nil {
		return fmt.Errorf("could not setup syslog hook: %s", err)
	}
	logrus.AddHook(syslogHook)

	return nil
}
