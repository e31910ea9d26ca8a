package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gogpu/gg"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/signalsfoundry/constellation-netview/config"
	"github.com/signalsfoundry/constellation-netview/core"
	"github.com/signalsfoundry/constellation-netview/internal/logging"
	"github.com/signalsfoundry/constellation-netview/internal/observability"
	"github.com/signalsfoundry/constellation-netview/internal/raster"
	"github.com/signalsfoundry/constellation-netview/kb"
	"github.com/signalsfoundry/constellation-netview/render"
	"github.com/signalsfoundry/constellation-netview/timectrl"
)

type renderOptions struct {
	scenario    string
	settings    string
	out         string
	frames      int
	every       int
	metricsAddr string
	retire      []string
}

func newRenderCmd() *cobra.Command {
	var opts renderOptions
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Run the frame loop over a scenario and write overlay images",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sum, err := runRender(ctx, opts, logging.NewFromEnv())
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), sum)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.scenario, "scenario", "", "scenario YAML file")
	flags.StringVar(&opts.settings, "settings", "", "settings TOML file (defaults apply when empty or missing)")
	flags.StringVar(&opts.out, "out", "frames", "directory for PNG output")
	flags.IntVar(&opts.frames, "frames", 0, "number of frames (overrides settings)")
	flags.IntVar(&opts.every, "every", 0, "write a PNG every N frames (overrides settings)")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "HTTP address for Prometheus /metrics; empty disables")
	flags.StringSliceVar(&opts.retire, "retire", nil, "unregister a node at a frame, as id@frame (repeatable)")
	_ = cmd.MarkFlagRequired("scenario")
	return cmd
}

type runSummary struct {
	Frames      int
	Images      []string
	Markers     int
	Reloads     int
	Retired     int
	Stats       render.Stats
	Filter      render.Filter
	Created     int
	Destroyed   int
	Live        int
	Interrupted bool
}

func runRender(ctx context.Context, opts renderOptions, log logging.Logger) (runSummary, error) {
	var sum runSummary
	if log == nil {
		log = logging.Noop()
	}

	settings, err := config.LoadSettings(opts.settings)
	if err != nil {
		return sum, err
	}
	if opts.frames > 0 {
		settings.Run.Frames = opts.frames
	}
	if opts.every > 0 {
		settings.Run.Every = opts.every
	}
	retirements, err := parseRetirements(opts.retire)
	if err != nil {
		return sum, err
	}

	sc, err := loadScenario(opts.scenario)
	if err != nil {
		return sum, err
	}
	network := core.NewNetwork()
	if err := sc.Apply(network); err != nil {
		return sum, fmt.Errorf("apply scenario: %w", err)
	}
	nodes := kb.NewKnowledgeBase()
	for _, n := range sc.Nodes {
		if err := nodes.RegisterNode(n); err != nil {
			return sum, fmt.Errorf("register node: %w", err)
		}
	}
	devices := newDeviceList(sc.Antennas)

	reg := prometheus.NewRegistry()
	rendererMetrics, err := observability.NewRendererCollector(reg)
	if err != nil {
		return sum, fmt.Errorf("renderer metrics: %w", err)
	}
	loopMetrics, err := observability.NewLoopCollector(reg)
	if err != nil {
		return sum, fmt.Errorf("loop metrics: %w", err)
	}

	tracing := observability.TracingConfigFromEnv()
	tracing.Scenario = filepath.Base(opts.scenario)
	tracing.Frames = settings.Run.Frames
	shutdownTracing, err := observability.InitTracing(ctx, tracing, log)
	if err != nil {
		return sum, fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	palette := paletteFrom(settings.Style)
	scene := raster.NewScene()
	observer := settings.Run.Observer
	r, err := render.Attach(render.Collaborators{
		Network: network,
		Nodes:   nodes,
		Devices: devices,
		Backend: scene,
		Observer: func() *core.Node {
			if observer == "" {
				return nil
			}
			return nodes.GetNode(observer)
		},
	},
		render.WithLogger(log),
		render.WithMetrics(rendererMetrics),
		render.WithTracer(observability.Tracer("netview/render")),
		render.WithPalette(palette),
		render.WithStyle(render.Style{
			LineWidth: settings.Style.LineWidth,
			ConeWidth: settings.Style.ConeWidth,
			Material:  render.MaterialOrbitLines,
		}),
	)
	if err != nil {
		return sum, err
	}
	defer r.Detach()

	state, err := loadState(settings.StateFile, func(err error) {
		log.Warn(ctx, "state file malformed; using default map filter",
			logging.String("path", settings.StateFile),
			logging.Err(err),
		)
	})
	if err != nil {
		return sum, err
	}
	r.Load(state)

	// The watcher goroutine hands filters over; the frame loop applies the
	// newest one at the start of the next frame.
	reloads := make(chan render.Filter, 1)
	watcher, err := config.NewWatcher(settings.StateFile, reloadFilter(ctx, reloads, log), config.DefaultDebounce, log)
	if err != nil {
		return sum, fmt.Errorf("state watcher: %w", err)
	}
	if err := watcher.Start(ctx); err != nil {
		log.Warn(ctx, "map filter hot reload disabled", logging.Err(err))
	}
	defer watcher.Stop()

	if err := os.MkdirAll(opts.out, 0o755); err != nil {
		return sum, fmt.Errorf("create output dir: %w", err)
	}

	width, height := settings.Canvas.Width, settings.Canvas.Height
	background := gg.Black
	if settings.Canvas.Background != "" {
		background = gg.Hex(settings.Canvas.Background)
	}
	cam := render.PerspectiveCamera{
		Eye:     vec(settings.Camera.Eye),
		Target:  vec(settings.Camera.Target),
		Up:      vec(settings.Camera.Up),
		FovYDeg: settings.Camera.FovDeg,
		Width:   float64(width),
		Height:  float64(height),
	}

	connectivity := core.NewConnectivityService(network)
	fleet := core.NewFleet(sc.Nodes)
	live := append([]*core.Node(nil), sc.Nodes...)
	every := uint64(settings.Run.Every)
	last := uint64(settings.Run.Frames - 1)

	clock := timectrl.NewTimeController(settings.StartTime(time.Now().UTC()), settings.Run.Step, settings.Run.Tick, timectrl.RealTime)
	clock.AddListener(func(ctx context.Context, f timectrl.Frame) error {
		select {
		case filter := <-reloads:
			r.SetFilter(filter)
			loopMetrics.IncFilterReloads()
			sum.Reloads++
			log.Info(ctx, "map filter reloaded", logging.String("filter", filter.String()))
		default:
		}

		for _, id := range retirements[f.Index] {
			n := nodes.GetNode(id)
			if n == nil {
				log.Warn(ctx, "cannot retire unknown node", logging.String("node", id))
				continue
			}
			network.RemoveNode(n)
			if err := nodes.UnregisterNode(id); err != nil {
				return err
			}
			devices.dropOwner(n)
			live = removeNode(live, n)
			sum.Retired++
		}

		fleet.UpdatePositions(f.Time)
		began := time.Now()
		connectivity.UpdateConnectivity(live, devices.Antennas())
		loopMetrics.ObserveConnectivity(time.Since(began), network.LinkCount())

		if err := r.Tick(ctx, f.Index); err != nil {
			return err
		}
		loopMetrics.IncFrames()
		sum.Frames++

		if f.Index%every != 0 && f.Index != last {
			return nil
		}
		sum.Markers += r.DrawMarkers(cam, scene)
		path := filepath.Join(opts.out, fmt.Sprintf("frame-%05d.png", f.Index))
		if err := scene.RenderPNG(path, width, height, background, cam); err != nil {
			return fmt.Errorf("write frame %d: %w", f.Index, err)
		}
		sum.Images = append(sum.Images, path)
		return nil
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)
	if opts.metricsAddr != "" {
		srv := &http.Server{
			Addr:              opts.metricsAddr,
			Handler:           metricsMux(rendererMetrics),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Info(gctx, "serving Prometheus metrics", logging.String("addr", opts.metricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}
	g.Go(func() error {
		defer cancel()
		return <-clock.Run(gctx, settings.Run.Frames)
	})

	runErr := g.Wait()
	if runErr != nil && errors.Is(runErr, context.Canceled) && ctx.Err() != nil {
		log.Info(ctx, "render interrupted", logging.Int("frames", sum.Frames))
		sum.Interrupted = true
		runErr = nil
	}
	if runErr != nil {
		return sum, runErr
	}

	watcher.Stop()
	r.Save(state)
	if err := state.Save(settings.StateFile); err != nil {
		return sum, fmt.Errorf("save map filter: %w", err)
	}

	sum.Stats = r.Stats()
	sum.Filter = r.Filter()
	r.Detach()
	sum.Created, sum.Destroyed = scene.Counts()
	sum.Live = scene.Live()
	return sum, nil
}

// reloadFilter publishes the node's filter into a one-slot channel,
// replacing any value the frame loop has not picked up yet. An unparsable
// value publishes the default, as Renderer.Load does.
func reloadFilter(ctx context.Context, reloads chan render.Filter, log logging.Logger) config.NodeHandler {
	return func(n *config.Node) {
		f, ok := filterFromNode(n)
		if !ok {
			log.Warn(ctx, "map filter unparsable; using default",
				logging.String("value", n.GetValue(render.MapFilterKey)),
				logging.String("filter", f.String()),
			)
		}
		select {
		case <-reloads:
		default:
		}
		select {
		case reloads <- f:
		default:
		}
	}
}

func loadScenario(path string) (*core.Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()
	sc, err := core.LoadScenario(f)
	if err != nil {
		return nil, fmt.Errorf("load scenario %s: %w", path, err)
	}
	return sc, nil
}

// parseRetirements reads id@frame pairs.
func parseRetirements(specs []string) (map[uint64][]string, error) {
	out := make(map[uint64][]string, len(specs))
	for _, s := range specs {
		id, frame, ok := strings.Cut(s, "@")
		if !ok || id == "" {
			return nil, fmt.Errorf("retire %q: want id@frame", s)
		}
		n, err := strconv.ParseUint(frame, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("retire %q: %w", s, err)
		}
		out[n] = append(out[n], id)
	}
	return out, nil
}

func paletteFrom(s config.StyleSettings) render.Palette {
	p := render.DefaultPalette()
	for _, c := range []struct {
		hex string
		dst *gg.RGBA
	}{
		{s.Path, &p.Path},
		{s.Omni, &p.Omni},
		{s.Dish, &p.Dish},
		{s.Fallback, &p.Fallback},
		{s.Cone, &p.Cone},
	} {
		if c.hex != "" {
			*c.dst = gg.Hex(c.hex)
		}
	}
	return p
}

// filterFromNode resolves the stored MapFilter, treating a missing key as
// the default. ok is false when the stored value does not parse; f is then
// the default as well.
func filterFromNode(n *config.Node) (f render.Filter, ok bool) {
	if n == nil || !n.HasValue(render.MapFilterKey) {
		return render.DefaultFilter, true
	}
	f, err := render.ParseFilter(n.GetValue(render.MapFilterKey))
	if err != nil {
		return render.DefaultFilter, false
	}
	return f, true
}

func metricsMux(c *observability.RendererCollector) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	return mux
}

func removeNode(nodes []*core.Node, n *core.Node) []*core.Node {
	out := nodes[:0]
	for _, x := range nodes {
		if x != n {
			out = append(out, x)
		}
	}
	return out
}

func vec(v [3]float64) core.Vec3 {
	return core.Vec3{X: v[0], Y: v[1], Z: v[2]}
}
