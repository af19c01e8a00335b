// Command miniapp serves a simulated Mini App host and probes the bridge
// runtime against it.
package main

import (
	"fmt"
	"os"

	"github.com/go-drift/miniapp/cmd/miniapp/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
