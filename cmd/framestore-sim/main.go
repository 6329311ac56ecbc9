// Command framestore-sim runs a widget storage adapter against a
// simulated host over an in-process bridge with configurable loss and
// latency, for poking at the reliability behavior interactively.
//
// Usage:
//
//	framestore-sim [flags]
//
// Flags:
//
//	-options string   Options file path (YAML)
//	-drop float       Initial message drop rate (0.0-1.0)
//	-latency duration Initial one-way latency (default 0)
//	-state string     Host store file path (default in-memory)
//	-debug            Enable diagnostic logging
//
// Examples:
//
//	# Lossy channel with 20% drops and 30ms latency
//	framestore-sim -drop 0.2 -latency 30ms -debug
//
//	# Custom tuning from an options file
//	framestore-sim -options ./bridge.yaml
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/framestore-protocol/framestore-go/pkg/adapter"
	"github.com/framestore-protocol/framestore-go/pkg/config"
	"github.com/framestore-protocol/framestore-go/pkg/fallback"
	"github.com/framestore-protocol/framestore-go/pkg/host"
	"github.com/framestore-protocol/framestore-go/pkg/log"
	"github.com/framestore-protocol/framestore-go/pkg/transport"
)

func main() {
	var (
		optionsPath = flag.String("options", "", "options file path (YAML)")
		dropRate    = flag.Float64("drop", 0, "initial message drop rate (0.0-1.0)")
		latency     = flag.Duration("latency", 0, "initial one-way latency")
		statePath   = flag.String("state", "", "host store file path (default in-memory)")
		debug       = flag.Bool("debug", false, "enable diagnostic logging")
	)
	flag.Parse()

	opts := config.DefaultOptions()
	if *optionsPath != "" {
		loaded, err := config.LoadFile(*optionsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "framestore-sim: %v\n", err)
			os.Exit(1)
		}
		opts = loaded
	}

	var logger log.Logger
	if *debug {
		logger = log.NewSlogAdapter(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	widgetEnd, hostEnd := transport.NewBridge(transport.BridgeConfig{
		Latency:  *latency,
		DropRate: *dropRate,
	})

	var hostStore fallback.Store = fallback.NewMemoryStore()
	if *statePath != "" {
		hostStore = fallback.NewFileStore(*statePath)
	}
	responder := host.New(hostEnd, hostStore, logger)
	defer responder.Stop()

	a := adapter.New(opts, widgetEnd, fallback.NewMemoryStore(), logger)
	defer a.Destroy()

	// Give the first heartbeat a chance before the prompt appears.
	time.Sleep(opts.HeartbeatTimeout)

	console, err := newConsole(a, widgetEnd.Bridge())
	if err != nil {
		fmt.Fprintf(os.Stderr, "framestore-sim: %v\n", err)
		os.Exit(1)
	}
	console.run()
}
