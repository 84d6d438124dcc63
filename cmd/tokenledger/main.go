package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := loadEnvFile(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	app := &cli.App{
		Name:  "tokenledger",
		Usage: "Replay token transfer events into an owner ledger",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Replay a contract's transfers over a block range and write the ledger",
				Flags:  runFlags(),
				Action: run,
			},
			{
				Name:   "remove",
				Usage:  "Remove a contract's ledger snapshots from ClickHouse",
				Flags:  removeFlags(),
				Action: remove,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
