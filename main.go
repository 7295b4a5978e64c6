package main

import (
	"fmt"
	"os"

	"semzo-prive/internal/cli"
)

func main() {
	if err := cli.NewRootCommand("semzo").Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
