// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"popdetect/cmd"
	"popdetect/internal/audio"
	applog "popdetect/internal/log"
	"popdetect/pkg/build"
)

// main is the entry point for the pop detector.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and merge configuration
//   - Configure logging
//   - Initialize PortAudio for commands that use audio devices
//
// 2. Concurrent Phase (Hot Path):
//   - Decode and scan a file, or capture live input while detecting pops
//   - Publish live events and refresh the monitor
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals
//   - Drain and freeze the capture, stop recording
//   - Report and clean up resources
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Development builds run without ldflags and keep the defaults.
	if err := build.Initialize(); err != nil {
		applog.Debugf("build info: %v", err)
	}

	cfg, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if cfg == nil {
		// Help or version output only.
		return
	}

	applog.Configure(cfg.LogLevel, cfg.Debug)
	applog.Debugf("%s", build.GetBuildFlags())

	if cmd.NeedsPortAudio(cfg) {
		if err := audio.Initialize(); err != nil {
			applog.Fatalf("%v", err)
		}
		defer func() {
			if err := audio.Terminate(); err != nil {
				applog.Errorf("%v", err)
			}
		}()
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	// Setup signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	if err := cmd.Execute(ctx, cfg, os.Stdout); err != nil {
		applog.Errorf("%v", err)
		stop()
		if cmd.NeedsPortAudio(cfg) {
			_ = audio.Terminate()
		}
		os.Exit(1)
	}
}
