package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/go-drift/miniapp/cmd/miniapp/internal/simsrv"
)

func init() {
	RegisterCommand(&Command{
		Name:  "simulate",
		Short: "Serve a simulated Mini App host",
		Long: `Serve a simulated Mini App host over HTTP.

Routes:
  /launch    Launch parameters for a new session (JSON)
  /ws        Bridge transport (WebSocket)
  /metrics   Prometheus metrics
  /healthz   Liveness

Each WebSocket session gets its own simulated device. The device profile
comes from the host section of miniapp.yaml.

Flags:
  --addr ADDR       Listen address (overrides server.addr)
  --version VER     Host API version (overrides host.version)`,
		Usage: "miniapp simulate [--addr ADDR] [--version VER]",
		Run:   runSimulate,
	})
}

func runSimulate(g *Globals, args []string) error {
	cfg, err := g.LoadConfig()
	if err != nil {
		return err
	}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--addr":
			if i+1 >= len(args) {
				return fmt.Errorf("--addr requires an address")
			}
			cfg.Server.Addr = args[i+1]
			i++
		case "--version":
			if i+1 >= len(args) {
				return fmt.Errorf("--version requires an API version")
			}
			cfg.Host.Version = args[i+1]
			i++
		default:
			return fmt.Errorf("unknown flag %q", args[i])
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := g.Logger()
	if err != nil {
		return err
	}
	defer log.Sync()

	srv, err := simsrv.New(cfg.Host, log)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.Addr, err)
	}
	httpSrv := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		log.Info("simulator listening",
			zap.String("addr", ln.Addr().String()),
			zap.String("version", cfg.Host.Version),
			zap.String("platform", cfg.Host.Platform))
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := httpSrv.Shutdown(shutdownCtx)
		srv.Close()
		log.Info("simulator stopped")
		return err
	})
	return eg.Wait()
}
