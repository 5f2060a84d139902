// Command runner is the market data engine's process entrypoint: it
// loads a JSON config file, starts one pipeline per connection, and
// shuts down cleanly on SIGINT/SIGTERM. Exit codes: 0 graceful, 1
// config error, 2 startup error, 130 SIGINT.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"

	"main/internal/adaptor/binance"
	"main/internal/adaptor/bitget"
	"main/internal/adaptor/bybit"
	"main/internal/adaptor/okx"
	"main/internal/adaptor/udpsource"
	"main/internal/marketmodel"
	"main/internal/mdconfig"
	"main/internal/metrics"
	"main/internal/pipeline"
	"main/internal/udppub"
)

func main() {
	os.Exit(run())
}

func run() int {
	logLevelFlag := flag.String("log-level", "", "override application.log_level")
	flag.Parse()

	configPath := flag.Arg(0)
	if flag.NArg() > 1 {
		// flag.Parse stops at the config path; parse flags that follow it.
		_ = flag.CommandLine.Parse(flag.Args()[1:])
	}
	if configPath == "" {
		fmt.Fprintln(os.Stderr, "usage: runner <config-file> [--log-level LEVEL]")
		return 1
	}

	file, err := mdconfig.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "runner: config error: %v\n", err)
		return 1
	}
	if *logLevelFlag != "" {
		file.Application.LogLevel = *logLevelFlag
	}

	if file.Application.ProfilerServerAddress != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: file.Application.ModuleName,
			ServerAddress:   file.Application.ProfilerServerAddress,
			Tags:            map[string]string{"component": "runner"},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			logs.Errorf("runner: pyroscope start failed, continuing without profiling: %v", err)
		} else {
			defer func() { _ = profiler.Stop() }()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	engines, sources, err := buildEngines(file)
	if err != nil {
		logs.Errorf("runner: build failed: %v", err)
		return 1
	}

	for _, src := range sources {
		s := src
		go func() {
			if err := s.Run(ctx); err != nil {
				logs.Errorf("runner: udp source stopped: %v", err)
			}
		}()
	}

	for _, eng := range engines {
		if err := eng.InitShm(); err != nil {
			logs.Errorf("runner: init_shm failed: %v", err)
			return 2
		}
	}
	for _, eng := range engines {
		if err := eng.Start(ctx); err != nil {
			logs.Errorf("runner: start failed: %v", err)
			return 2
		}
	}

	if file.Application.MetricsAddr != "" {
		metricsSources := make([]metrics.Source, len(engines))
		for i, eng := range engines {
			metricsSources[i] = eng
		}
		go func() {
			if err := metrics.Serve(file.Application.MetricsAddr, metricsSources); err != nil {
				logs.Warnf("runner: metrics server stopped: %v", err)
			}
		}()
	}

	logs.Infof("runner: %s started with %d connection(s)", file.Application.ModuleName, len(file.Connections))

	sig := <-sigCh
	cancel()
	logs.Infof("runner: received %s, stopping", sig)

	var stopErr error
	for _, eng := range engines {
		if err := eng.Stop(2 * time.Second); err != nil {
			stopErr = err
		}
	}
	if stopErr != nil {
		logs.Errorf("runner: stop incomplete: %v", stopErr)
		return 2
	}
	if sig == os.Interrupt {
		return 130
	}
	return 0
}

// buildEngines turns every connection in the config file into either a
// pipeline.Engine (WebSocket exchanges) or a standalone UDP source.
// The UDP receiving connection kind does not fit the StreamDef/
// redundant-client shape the other exchanges share, so it is driven
// directly instead of through pipeline.Engine.
func buildEngines(file *mdconfig.File) ([]*pipeline.Engine, []*runningUDPSource, error) {
	var engines []*pipeline.Engine
	var udpSources []*runningUDPSource

	for _, conn := range file.Connections {
		switch conn.Exchange {
		case "binance":
			engines = append(engines, newEngine(conn, binance.Build(conn)))
		case "okx":
			engines = append(engines, newEngine(conn, okx.Build(conn)))
		case "bitget":
			engines = append(engines, newEngine(conn, bitget.Build(conn)))
		case "bybit":
			engines = append(engines, newEngine(conn, bybit.Build(conn)))
		case "udp":
			src, err := udpsource.New(conn)
			if err != nil {
				return nil, nil, err
			}
			udpSources = append(udpSources, &runningUDPSource{source: src})
		default:
			return nil, nil, fmt.Errorf("runner: unknown exchange %q", conn.Exchange)
		}
	}
	return engines, udpSources, nil
}

func newEngine(conn mdconfig.ConnectionConfig, streams []marketmodel.StreamDef) *pipeline.Engine {
	var udp *udppub.Publisher
	if conn.UDPSender != nil && conn.UDPSender.Enabled {
		p, err := udppub.Dial(conn.UDPSender.IP, conn.UDPSender.Port)
		if err != nil {
			logs.Warnf("runner: udp fan-out dial failed, disabling: %v", err)
		} else {
			udp = p
		}
	}
	return pipeline.NewEngine(streams, conn.Redundancy, conn.MdSize, conn.RotationWindowSeconds, conn.RotationFloorRatio, conn.CPUAffinity, udp)
}

// runningUDPSource owns its own shm stores, created lazily at Run time
// since udpsource.Source.Run expects the caller to pass pre-created
// stores (mirroring pipeline.Engine's init_shm/start split).
type runningUDPSource struct {
	source *udpsource.Source
}

func (r *runningUDPSource) Run(ctx context.Context) error {
	stores, err := r.source.InitShm()
	if err != nil {
		return err
	}
	defer func() {
		for _, store := range stores {
			_ = store.Close()
		}
	}()
	return r.source.Run(ctx, stores)
}
