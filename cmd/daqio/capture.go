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
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/daqio/daqio"
)

var (
	captureDuration time.Duration
	captureChannel  int
)

var captureCmd = &cobra.Command{
	Use:   "capture <output-wav-file>",
	Short: "Acquire for a fixed duration and write a WAV file",
	Long: `capture drains one simulated input channel for the given duration
and writes the samples to a WAV file. Channel 1 produces a sawtooth,
channel 2 pseudo-random noise.`,
	Args: cobra.ExactArgs(1),
	RunE: runCapture,
}

func init() {
	captureCmd.Flags().DurationVar(&captureDuration, "duration", 5*time.Second, "How long to capture")
	captureCmd.Flags().IntVar(&captureChannel, "channel", 1, "Which input channel to capture")
	rootCmd.AddCommand(captureCmd)
}

func runCapture(cmd *cobra.Command, args []string) error {
	outputPath := args[0]

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.Device.SampleSize != 2 {
		return fmt.Errorf("WAV capture needs 16-bit samples, config says %d bytes", cfg.Device.SampleSize)
	}
	if captureChannel < 0 || captureChannel >= cfg.Device.InputChannels {
		return fmt.Errorf("channel %d out of range, device has %d input channels",
			captureChannel, cfg.Device.InputChannels)
	}

	verbosity := calculateVerbosityLevel(verboseFlag, veryVerboseFlag)
	if err := setupLogging(verbosity, cfg); err != nil {
		return err
	}
	logger := logrus.StandardLogger()

	f := daqio.New(logger)
	sim, err := daqio.NewSimDriver(f, daqio.SimConfig{
		Name:          cfg.Device.Name,
		InputChannels: cfg.Device.InputChannels,
		SSize:         cfg.Device.SampleSize,
		Trigger:       daqio.TimerTriggerName,
	})
	if err != nil {
		return fmt.Errorf("cannot create simulated device: %s", err)
	}
	defer func() { _ = f.UnregisterDevice(sim.Device()) }()

	cs := sim.InputCSet()
	if err := cs.Trigger().SetAttr(daqio.StdAttrPeriod.Name(), cfg.Trigger.PeriodMS); err != nil {
		return err
	}
	if err := cs.Trigger().SetAttr(daqio.StdAttrNSamples.Name(), cfg.Trigger.PostSamples); err != nil {
		return err
	}
	cs.SetEnabled(false)
	cs.SetEnabled(true)

	// The effective sample rate of the simulated stream
	rate := int(cfg.Trigger.PostSamples) * 1000 / int(cfg.Trigger.PeriodMS)

	wavFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("cannot create WAV file: %s", err)
	}
	defer wavFile.Close()

	// Audio format 1 is PCM
	encoder := wav.NewEncoder(wavFile, rate, 16, 1, 1)
	defer encoder.Close()

	ch := cs.Channel(captureChannel)
	ch.Open()
	defer ch.Release()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	deadline := time.After(captureDuration)

	fmt.Printf("Capturing channel %d for %s at %d Hz... Press Ctrl+C to stop early.\n",
		captureChannel, captureDuration, rate)

	samples := 0
	running := true
	for running {
		select {
		case <-sig:
			fmt.Println("\nCapture interrupted by user.")
			running = false
			continue
		case <-deadline:
			running = false
			continue
		case <-time.After(time.Duration(cfg.Trigger.PeriodMS) * time.Millisecond / 2):
		}

		for {
			blk, err := ch.Retrieve()
			if err != nil {
				if !errors.Is(err, daqio.ErrWouldBlock) {
					return fmt.Errorf("retrieve failed: %s", err)
				}
				break
			}

			buf, err := blockToIntBuffer(blk, rate)
			if err != nil {
				return err
			}
			if err := encoder.Write(buf); err != nil {
				return fmt.Errorf("cannot write WAV data: %s", err)
			}
			samples += len(buf.Data)
			ch.ReleaseBlock()
		}
	}

	fmt.Printf("Capture finished. Wrote %d samples (%.2f seconds) to %s\n",
		samples, float64(samples)/float64(rate), outputPath)

	return nil
}

// blockToIntBuffer converts a block of 16-bit little-endian samples into
// an audio.IntBuffer the WAV encoder can consume
func blockToIntBuffer(blk *daqio.Block, rate int) (*audio.IntBuffer, error) {
	if len(blk.Data)%2 != 0 {
		return nil, fmt.Errorf("block of %d bytes is not 16-bit aligned", len(blk.Data))
	}

	samples := len(blk.Data) / 2
	data := make([]int, samples)
	for i := 0; i < samples; i++ {
		data[i] = int(int16(uint16(blk.Data[2*i]) | uint16(blk.Data[2*i+1])<<8))
	}

	return &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
		SourceBitDepth: 16,
		Data:           data,
	}, nil
}
