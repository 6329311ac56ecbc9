package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/framestore-protocol/framestore-go/pkg/adapter"
	"github.com/framestore-protocol/framestore-go/pkg/transport"
)

// console is the interactive command loop driving one adapter and the
// bridge it talks over.
type console struct {
	a      *adapter.Adapter
	bridge *transport.Bridge
	rl     *readline.Instance
	silent bool
}

func newConsole(a *adapter.Adapter, bridge *transport.Bridge) (*console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "framestore> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &console{a: a, bridge: bridge, rl: rl}, nil
}

func (c *console) run() {
	defer c.rl.Close()

	c.printHelp()

	for {
		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "get", "g":
			c.cmdGet(args)

		case "set", "s":
			c.cmdSet(args)

		case "stats":
			c.cmdStats()

		case "queue":
			fmt.Fprintf(c.rl.Stdout(), "%d pending write(s)\n", c.a.QueueSize())

		case "drop":
			c.cmdDrop(args)

		case "latency":
			c.cmdLatency(args)

		case "silent":
			c.cmdSilent()

		case "quit", "exit", "q":
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			return

		default:
			fmt.Fprintf(c.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (c *console) printHelp() {
	fmt.Fprintln(c.rl.Stdout(), `
Framestore Simulator Commands:
  Storage:
    get <key>          - Read a value (cache, channel, or fallback)
    set <key> <value>  - Write a value (debounced, queued when offline)
    queue              - Show pending write queue depth
    stats              - Show connection state and heartbeat stats

  Channel faults:
    drop <rate>        - Set message drop rate (0.0-1.0)
    latency <duration> - Set one-way latency (e.g. 50ms)
    silent             - Toggle total channel silence (outage)

  General:
    help               - Show this help
    quit               - Exit`)
}

func (c *console) cmdGet(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: get <key>")
		return
	}
	value, ok := c.a.GetItem(context.Background(), args[0])
	if !ok {
		fmt.Fprintf(c.rl.Stdout(), "%s: (absent)\n", args[0])
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "%s = %s\n", args[0], value)
}

func (c *console) cmdSet(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: set <key> <value>")
		return
	}
	c.a.SetItem(args[0], strings.Join(args[1:], " "))
	fmt.Fprintf(c.rl.Stdout(), "%s <- %s\n", args[0], strings.Join(args[1:], " "))
}

func (c *console) cmdStats() {
	stats := c.a.Stats()
	fmt.Fprintf(c.rl.Stdout(), "state: %s\n", c.a.State())
	fmt.Fprintf(c.rl.Stdout(), "average latency: %s\n", stats.AverageLatency)
	fmt.Fprintf(c.rl.Stdout(), "failed pings: %d\n", stats.FailedPings)
	fmt.Fprintf(c.rl.Stdout(), "queued writes: %d\n", c.a.QueueSize())
}

func (c *console) cmdDrop(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: drop <rate>")
		return
	}
	rate, err := strconv.ParseFloat(args[0], 64)
	if err != nil || rate < 0 || rate > 1 {
		fmt.Fprintln(c.rl.Stdout(), "Rate must be between 0.0 and 1.0")
		return
	}
	c.bridge.SetDropRate(rate)
	fmt.Fprintf(c.rl.Stdout(), "drop rate: %.0f%%\n", rate*100)
}

func (c *console) cmdLatency(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: latency <duration>")
		return
	}
	d, err := time.ParseDuration(args[0])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Invalid duration: %v\n", err)
		return
	}
	c.bridge.SetLatency(d)
	fmt.Fprintf(c.rl.Stdout(), "latency: %s\n", d)
}

func (c *console) cmdSilent() {
	c.silent = !c.silent
	c.bridge.SetSilent(c.silent)
	if c.silent {
		fmt.Fprintln(c.rl.Stdout(), "channel silenced (outage)")
	} else {
		fmt.Fprintln(c.rl.Stdout(), "channel restored")
	}
}
