// Package probe drives a WebApp against a running host simulator and
// reports what came back.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/go-drift/miniapp/pkg/bridge"
	"github.com/go-drift/miniapp/pkg/errors"
	"github.com/go-drift/miniapp/pkg/webapp"
	"github.com/go-drift/miniapp/pkg/wstransport"
)

// Options tunes the bridge the probe opens.
type Options struct {
	Logger      *zap.Logger
	CallTimeout time.Duration
	RateLimit   float64
	Burst       int
	Registerer  prometheus.Registerer
}

// Step is the outcome of one probe action. A nil Err means success.
type Step struct {
	Name string
	Err  error
}

// Report is everything a probe learned.
type Report struct {
	Version    string
	Platform   string
	State      webapp.State
	MainButton webapp.ButtonModel
	Clipboard  string
	HomeScreen webapp.HomeScreenStatus
	CloudValue string
	Biometric  webapp.BiometricState
	Steps      []Step
}

// Failed returns the steps that did not succeed.
func (r *Report) Failed() []Step {
	var out []Step
	for _, s := range r.Steps {
		if s.Err != nil {
			out = append(out, s)
		}
	}
	return out
}

// Run probes the simulator at baseURL (http or https).
func Run(ctx context.Context, baseURL string, opts Options) (*Report, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	baseURL = strings.TrimRight(baseURL, "/")

	launch, err := fetchLaunch(ctx, baseURL)
	if err != nil {
		return nil, err
	}
	wsURL, err := websocketURL(baseURL)
	if err != nil {
		return nil, err
	}
	conn, err := wstransport.Dial(ctx, wsURL, wstransport.WithLogger(log))
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	loop := bridge.NewLoop()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := loop.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	report, runErr := drive(ctx, conn, loop, launch, opts, log)

	loop.Stop()
	if err := g.Wait(); err != nil && runErr == nil {
		runErr = err
	}
	return report, runErr
}

func drive(ctx context.Context, conn *wstransport.Conn, loop *bridge.Loop, launch webapp.LaunchParams, opts Options, log *zap.Logger) (*Report, error) {
	bridgeOpts := []bridge.Option{
		bridge.WithDispatcher(loop),
		bridge.WithLogger(log),
	}
	if opts.CallTimeout > 0 {
		bridgeOpts = append(bridgeOpts, bridge.WithCallTimeout(opts.CallTimeout))
	}
	if opts.RateLimit > 0 {
		bridgeOpts = append(bridgeOpts, bridge.WithRateLimit(opts.RateLimit, opts.Burst))
	}
	if opts.Registerer != nil {
		bridgeOpts = append(bridgeOpts, bridge.WithMetrics(opts.Registerer))
	}

	app, err := webapp.New(conn, launch, webapp.WithBridgeOptions(bridgeOpts...))
	if err != nil {
		return nil, err
	}
	defer app.Shutdown()

	report := &Report{Version: app.Version(), Platform: app.Platform()}
	var wg sync.WaitGroup

	// Steps and callbacks both run on the loop, so report needs no lock
	// until wg.Wait.
	record := func(name string, err error) {
		report.Steps = append(report.Steps, Step{Name: name, Err: err})
	}
	pending := func(name string, issue func(done func(error)) error) {
		wg.Add(1)
		var once sync.Once
		done := func(err error) {
			once.Do(func() {
				record(name, err)
				wg.Done()
			})
		}
		if err := issue(done); err != nil {
			done(err)
		}
	}

	err = loop.Sync(ctx, func() error {
		record("ready", app.Ready())
		record("expand", app.Expand())
		record("main_button", app.MainButton().SetText("Probe").Show().Err())

		pending("clipboard", func(done func(error)) error {
			return app.ReadTextFromClipboard(func(text string, err error) {
				report.Clipboard = text
				done(err)
			})
		})
		pending("home_screen", func(done func(error)) error {
			return app.CheckHomeScreenStatus(func(s webapp.HomeScreenStatus, err error) {
				report.HomeScreen = s
				done(err)
			})
		})
		pending("cloud_storage", func(done func(error)) error {
			cloud := app.CloudStorage()
			return cloud.SetItem("probe", launch.Platform, func(_ bool, err error) {
				if err != nil {
					done(err)
					return
				}
				if err := cloud.GetItem("probe", func(v string, err error) {
					report.CloudValue = v
					done(err)
				}); err != nil {
					done(err)
				}
			})
		})
		pending("biometric", func(done func(error)) error {
			return app.BiometricManager().Init(done)
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("probe: issue steps: %w", err)
	}

	if err := wait(ctx, &wg); err != nil {
		return nil, err
	}

	err = loop.Sync(ctx, func() error {
		report.State = app.State()
		report.MainButton = app.MainButton().Model()
		report.Biometric = app.BiometricManager().State()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("probe: snapshot: %w", err)
	}
	return report, nil
}

func wait(ctx context.Context, wg *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("probe: waiting for replies: %w", ctx.Err())
	}
}

func fetchLaunch(ctx context.Context, baseURL string) (webapp.LaunchParams, error) {
	var launch webapp.LaunchParams
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/launch", nil)
	if err != nil {
		return launch, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return launch, fmt.Errorf("probe: fetch launch params: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return launch, fmt.Errorf("probe: fetch launch params: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&launch); err != nil {
		return launch, fmt.Errorf("probe: decode launch params: %w", err)
	}
	return launch, nil
}

func websocketURL(baseURL string) (string, error) {
	switch {
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://") + "/ws", nil
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://") + "/ws", nil
	default:
		return "", fmt.Errorf("probe: %q is not an http(s) URL", baseURL)
	}
}
