package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-drift/miniapp/cmd/miniapp/internal/probe"
)

func init() {
	RegisterCommand(&Command{
		Name:  "probe",
		Short: "Drive the bridge against a simulator",
		Long: `Connect to a running simulator, exercise the bridge and print
the resulting state.

The probe signals ready, expands the viewport, shows the main button,
reads the clipboard, checks the home screen shortcut, round-trips a
cloud storage key and initialises the biometric manager. Steps the host
API version does not support are reported, not treated as failures.

Flags:
  --url URL         Simulator base URL (default: http://<server.addr>)
  --timeout D       Overall deadline (default: 15s)`,
		Usage: "miniapp probe [--url URL] [--timeout D]",
		Run:   runProbe,
	})
}

func runProbe(g *Globals, args []string) error {
	cfg, err := g.LoadConfig()
	if err != nil {
		return err
	}
	baseURL := "http://" + cfg.Server.Addr
	timeout := 15 * time.Second
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--url":
			if i+1 >= len(args) {
				return fmt.Errorf("--url requires a URL")
			}
			baseURL = args[i+1]
			i++
		case "--timeout":
			if i+1 >= len(args) {
				return fmt.Errorf("--timeout requires a duration")
			}
			d, err := time.ParseDuration(args[i+1])
			if err != nil {
				return fmt.Errorf("invalid --timeout: %w", err)
			}
			timeout = d
			i++
		default:
			return fmt.Errorf("unknown flag %q", args[i])
		}
	}

	log, err := g.Logger()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	report, err := probe.Run(ctx, baseURL, probe.Options{
		Logger:      log,
		CallTimeout: cfg.Bridge.CallTimeout,
		RateLimit:   cfg.Bridge.RateLimit,
		Burst:       cfg.Bridge.Burst,
	})
	if err != nil {
		return err
	}
	printReport(os.Stdout, report)
	return nil
}

func printReport(w io.Writer, r *probe.Report) {
	fmt.Fprintf(w, "Host API %s on %s\n\n", r.Version, r.Platform)

	fmt.Fprintln(w, "Steps:")
	for _, s := range r.Steps {
		status := "ok"
		if s.Err != nil {
			status = s.Err.Error()
		}
		fmt.Fprintf(w, "  %-14s %s\n", s.Name, status)
	}
	fmt.Fprintln(w)

	st := r.State
	fmt.Fprintln(w, "State:")
	fmt.Fprintf(w, "  %-22s %s\n", "color scheme", st.ColorScheme)
	fmt.Fprintf(w, "  %-22s %t\n", "expanded", st.IsExpanded)
	fmt.Fprintf(w, "  %-22s %.0f (stable %.0f)\n", "viewport", st.ViewportHeight, st.ViewportStableHeight)
	fmt.Fprintf(w, "  %-22s %s\n", "header color", st.HeaderColor)
	fmt.Fprintf(w, "  %-22s %s\n", "background color", st.BackgroundColor)
	fmt.Fprintf(w, "  %-22s %s\n", "bottom bar color", st.BottomBarColor)
	fmt.Fprintf(w, "  %-22s %q %s/%s visible=%t\n", "main button",
		r.MainButton.Text, r.MainButton.Color, r.MainButton.TextColor, r.MainButton.IsVisible)
	fmt.Fprintf(w, "  %-22s %q\n", "clipboard", r.Clipboard)
	if r.HomeScreen != "" {
		fmt.Fprintf(w, "  %-22s %s\n", "home screen", r.HomeScreen)
	}
	if r.CloudValue != "" {
		fmt.Fprintf(w, "  %-22s %q\n", "cloud storage", r.CloudValue)
	}
	if r.Biometric.Inited {
		fmt.Fprintf(w, "  %-22s available=%t type=%s\n", "biometric", r.Biometric.Available, r.Biometric.Type)
	}

	if failed := r.Failed(); len(failed) > 0 {
		names := make([]string, len(failed))
		for i, s := range failed {
			names[i] = s.Name
		}
		fmt.Fprintf(w, "\n%d step(s) did not complete: %s\n", len(failed), strings.Join(names, ", "))
	}
}
