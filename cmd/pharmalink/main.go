package main

import (
	"fmt"
	"os"

	"pharmalink/m/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pharmalink:", err)
		os.Exit(1)
	}
}
