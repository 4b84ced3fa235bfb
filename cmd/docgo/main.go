// Command docgo manages docgo collections from the command line.
package main

import (
	"fmt"
	"os"
)

func main() {
	cli := newCLI(os.Stdin, os.Stdout, os.Stderr)

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
