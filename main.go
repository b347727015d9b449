package main

import (
	"os"

	"slava0135/smtshim/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
