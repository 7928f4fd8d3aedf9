package main

import (
	"fmt"
	"os"

	"github.com/kilianp07/carbridge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "carbridge:", err)
		os.Exit(1)
	}
}
