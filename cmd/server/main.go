// Command server exposes the sidecar encoder over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	// run derives its own signal-aware context for shutdown.
	if err := run(context.Background(), os.Args, os.Getenv, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
