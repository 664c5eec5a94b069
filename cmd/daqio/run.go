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
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/daqio/daqio"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Acquire continuously from the simulated device",
	RunE:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	verbosity := calculateVerbosityLevel(verboseFlag, veryVerboseFlag)
	if err := setupLogging(verbosity, cfg); err != nil {
		return err
	}
	logger := logrus.StandardLogger()

	f := daqio.New(logger)
	sim, err := daqio.NewSimDriver(f, daqio.SimConfig{
		Name:           cfg.Device.Name,
		InputChannels:  cfg.Device.InputChannels,
		OutputChannels: cfg.Device.OutputChannels,
		SSize:          cfg.Device.SampleSize,
		Trigger:        daqio.TimerTriggerName,
	})
	if err != nil {
		return fmt.Errorf("cannot create simulated device: %s", err)
	}

	cs := sim.InputCSet()
	if err := cs.Trigger().SetAttr(daqio.StdAttrPeriod.Name(), cfg.Trigger.PeriodMS); err != nil {
		return err
	}
	if err := cs.Trigger().SetAttr(daqio.StdAttrNSamples.Name(), cfg.Trigger.PostSamples); err != nil {
		return err
	}

	// The ticker samples its period at enable time
	cs.SetEnabled(false)
	cs.SetEnabled(true)

	ctx, cancel := context.WithCancel(context.Background())
	var waitGroup sync.WaitGroup

	for _, ch := range cs.Channels() {
		waitGroup.Add(1)
		go drainChannel(ctx, &waitGroup, logger, ch, time.Duration(cfg.Trigger.PeriodMS)*time.Millisecond)
	}

	var metricsServer *http.Server
	if cfg.MetricsListen != "" {
		metricsServer = serveMetrics(f, logger, cfg.MetricsListen)
	}

	fmt.Printf("Acquiring on %s, %d channel(s), %d samples every %dms. Press Ctrl+C to stop.\n",
		sim.Device().Name(), cfg.Device.InputChannels, cfg.Trigger.PostSamples, cfg.Trigger.PeriodMS)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	<-sig

	logger.Info("shutting down")
	cancel()
	waitGroup.Wait()

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = metricsServer.Shutdown(shutdownCtx)
		shutdownCancel()
	}

	if err := f.UnregisterDevice(sim.Device()); err != nil {
		return err
	}

	fmt.Printf("Stored %d bytes over the last %ds.\n",
		f.SampleRate(daqio.StoreAction, 30000), 30)

	return nil
}

// drainChannel polls one channel, freeing every stored block and keeping
// a running count until cancellation
func drainChannel(ctx context.Context, waitGroup *sync.WaitGroup, logger *logrus.Logger, ch *daqio.Channel, period time.Duration) {
	defer waitGroup.Done()

	ch.Open()
	defer ch.Release()

	poll := period / 2
	if poll < time.Millisecond {
		poll = time.Millisecond
	}

	var blocks, bytes uint64
	for {
		select {
		case <-ctx.Done():
			logger.WithFields(logrus.Fields{
				"channel": ch.Index(),
				"blocks":  blocks,
				"bytes":   bytes,
				"missing": len(ch.MissingSeq()),
			}).Info("channel drained")
			return
		case <-time.After(poll):
		}

		for {
			blk, err := ch.Retrieve()
			if err != nil {
				if !errors.Is(err, daqio.ErrWouldBlock) {
					logger.Errorf("retrieve on channel %d: %s", ch.Index(), err)
				}
				break
			}

			blocks++
			bytes += uint64(len(blk.Data))
			logger.WithFields(logrus.Fields{
				"channel": ch.Index(),
				"seq":     blk.Ctrl.Seq,
				"bytes":   len(blk.Data),
			}).Debug("block retrieved")
			ch.ReleaseBlock()
		}
	}
}

// serveMetrics exposes the engine's Prometheus registry over HTTP
func serveMetrics(f *daqio.Framework, logger *logrus.Logger, listen string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(f.MetricsRegistry(), promhttp.HandlerOpts{}))

	server := &http.Server{Addr: listen, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("metrics server stopped: %s", err)
		}
	}()

	return server
}
