package main

import (
	"fmt"
	"os"

	"github.com/capturd/capturd/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
