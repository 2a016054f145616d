// Command evm runs a single hex-encoded bytecode payload through the
// interpreter and prints the gas used and the returned bytes (if
// any). It is a thin, single-invocation harness, not a recreation of
// the teacher's full node CLI: there is no subcommand tree, no p2p/RPC
// flags, and no persistent config — the engine it drives does not
// have state to wire up beyond a gas limit, a fork, and a code payload
// (§1 Non-goals).
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/elmattic/psyche-sub000/interpreter"
	"github.com/elmattic/psyche-sub000/memory"
	"github.com/elmattic/psyche-sub000/params"
	"github.com/elmattic/psyche-sub000/rom"
	"github.com/elmattic/psyche-sub000/tracelog"
	"github.com/elmattic/psyche-sub000/u256"
)

var forkNames = map[string]params.Fork{
	"frontier":         params.Frontier,
	"homestead":        params.Homestead,
	"tangerinewhistle": params.TangerineWhistle,
	"spuriousdragon":   params.SpuriousDragon,
	"byzantium":        params.Byzantium,
	"constantinople":   params.Constantinople,
	"petersburg":       params.Petersburg,
	"istanbul":         params.Istanbul,
	"berlin":           params.Berlin,
	"london":           params.London,
}

func parseFork(name string) (params.Fork, error) {
	f, ok := forkNames[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("unknown fork %q", name)
	}
	return f, nil
}

func main() {
	app := &cli.App{
		Name:      "evm",
		Usage:     "run a bytecode payload against the interpreter",
		UsageText: "evm [options] <hex-code>",
		Flags: []cli.Flag{
			&cli.Uint64Flag{
				Name:  "gas",
				Usage: "gas limit for the run",
				Value: 10_000_000,
			},
			&cli.StringFlag{
				Name:  "fork",
				Usage: "rule fork: frontier, homestead, tangerinewhistle, spuriousdragon, byzantium, constantinople, petersburg, istanbul, berlin, london",
				Value: "berlin",
			},
			&cli.BoolFlag{
				Name:  "trace",
				Usage: "log every executed step to stderr",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "evm:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("expected exactly one argument: hex-encoded bytecode", 1)
	}
	code, err := hex.DecodeString(strings.TrimPrefix(c.Args().Get(0), "0x"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid hex code: %v", err), 1)
	}

	fork, err := parseFork(c.String("fork"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	gasLimit := c.Uint64("gas")

	schedule := params.NewSchedule(fork)
	r, err := rom.Build(code, schedule)
	if err != nil {
		return cli.Exit(fmt.Sprintf("rom.Build: %v", err), 1)
	}

	mem, err := memory.NewMemory(gasLimit, schedule)
	if err != nil {
		return cli.Exit(fmt.Sprintf("memory.NewMemory: %v", err), 1)
	}
	defer mem.Close()

	cfg := interpreter.Config{}
	if c.Bool("trace") {
		cfg.Debug = true
		cfg.Tracer = tracelog.New(os.Stderr, logrus.DebugLevel)
	}

	rd := interpreter.Execute(mem, r, schedule, u256.New(gasLimit), cfg)
	if rd.Err != nil {
		fmt.Fprintln(os.Stderr, "execution error:", rd.Err)
		fmt.Printf("gas used: %d\n", gasLimit-rd.GasRemaining)
		os.Exit(1)
	}

	out := mem.Slice(rd.Offset, rd.Size)
	fmt.Printf("gas used: %d\n", gasLimit-rd.GasRemaining)
	fmt.Printf("return: 0x%x\n", out)
	return nil
}
