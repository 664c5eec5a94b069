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

	"gopkg.in/yaml.v2"
)

// appConfig is the YAML-backed configuration of the CLI. Every field has
// a working default so the tool runs without a config file at all.
type appConfig struct {
	Device struct {
		Name           string `yaml:"name"`
		InputChannels  int    `yaml:"input_channels"`
		OutputChannels int    `yaml:"output_channels"`
		SampleSize     int    `yaml:"sample_size"`
	} `yaml:"device"`

	Trigger struct {
		PeriodMS    uint32 `yaml:"period_ms"`
		PostSamples uint32 `yaml:"post_samples"`
	} `yaml:"trigger"`

	MetricsListen string `yaml:"metrics_listen"`
	Syslog        bool   `yaml:"syslog"`
}

func defaultConfig() *appConfig {
	cfg := &appConfig{}
	cfg.Device.Name = "sim-%d"
	cfg.Device.InputChannels = 4
	cfg.Device.SampleSize = 2
	cfg.Trigger.PeriodMS = 100
	cfg.Trigger.PostSamples = 64
	cfg.MetricsListen = "localhost:9477"

	return cfg
}

// loadConfig reads the YAML file at path over the defaults; an empty
// path returns the defaults unchanged
func loadConfig(path string) (*appConfig, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config %q: %s", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("could not parse config %q: %s", path, err)
	}

	if cfg.Device.InputChannels <= 0 {
		return nil, fmt.Errorf("config %q: input_channels must be positive", path)
	}
	if cfg.Device.SampleSize != 1 && cfg.Device.SampleSize != 2 &&
		cfg.Device.SampleSize != 4 && cfg.Device.SampleSize != 8 {
		return nil, fmt.Errorf("config %q: sample_size must be 1, 2, 4 or 8", path)
	}
	if cfg.Trigger.PeriodMS == 0 {
		return nil, fmt.Errorf("config %q: period_ms must be positive", path)
	}

	return cfg, nil
}
