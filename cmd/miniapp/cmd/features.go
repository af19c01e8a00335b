package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/go-drift/miniapp/pkg/version"
)

func init() {
	RegisterCommand(&Command{
		Name:  "features",
		Short: "List features and the API version that adds them",
		Long: `List every gated feature with the first host API version that
offers it, and whether the given version supports it.

Without an argument the host version from miniapp.yaml (or
MINIAPP_VERSION) is used.

Usage:
  miniapp features         # check the configured host version
  miniapp features 7.6     # check API 7.6`,
		Usage: "miniapp features [VERSION]",
		Run:   runFeatures,
	})
}

func runFeatures(g *Globals, args []string) error {
	var raw string
	switch len(args) {
	case 0:
		cfg, err := g.LoadConfig()
		if err != nil {
			return err
		}
		raw = cfg.Host.Version
	case 1:
		raw = args[0]
	default:
		return fmt.Errorf("too many arguments\n\nUsage: miniapp features [VERSION]")
	}
	if _, err := version.Parse(raw); err != nil {
		return err
	}
	printFeatures(os.Stdout, version.NewGate(raw))
	return nil
}

func printFeatures(w io.Writer, gate *version.Gate) {
	supported := 0
	features := gate.Features()
	fmt.Fprintf(w, "Host API %s\n\n", gate.Version())
	for _, req := range features {
		mark := "-"
		if req.Supported {
			mark = "yes"
			supported++
		}
		fmt.Fprintf(w, "  %-22s %-6s %s\n", req.Feature, req.Since, mark)
	}
	fmt.Fprintf(w, "\n%d of %d features supported\n", supported, len(features))
}
