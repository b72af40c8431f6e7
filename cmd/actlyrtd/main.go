// actlyrtd is a demo and benchmark harness for the scheduler runtime.
// It is not a production BIF host: entries it spawns are small Go
// closures rather than bytecode, enough to drive every scheduling
// path end to end on one machine.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/khryptorgraphics/actlyrt/internal/config"
	"github.com/khryptorgraphics/actlyrt/internal/rtlog"
	"github.com/khryptorgraphics/actlyrt/pkg/metrics"
	"github.com/khryptorgraphics/actlyrt/pkg/sched"
)

var (
	version = "dev"
	commit  = "unknown"
)

// Application holds the harness's long-lived state: a logger, a
// context pair, and whatever component the command handler actually
// started.
type Application struct {
	Logger zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func main() {
	app := &Application{}
	app.ctx, app.cancel = context.WithCancel(context.Background())

	rootCmd := &cobra.Command{
		Use:     "actlyrtd",
		Short:   "Reduction-counted, work-stealing process scheduler demo",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.initializeLogging()
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "log format (json, console)")
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(
		buildRunCmd(app),
		buildBenchCmd(app),
		buildVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		app.Logger.Fatal().Err(err).Msg("command failed")
	}
}

func (app *Application) initializeLogging() error {
	level := viper.GetString("logging.level")
	format := viper.GetString("logging.format")
	if level == "" {
		level = "info"
	}
	if format == "" {
		format = "json"
	}
	app.Logger = rtlog.New(level, format)
	return nil
}

// defaultCores clamps the host CPU count to what one runtime may
// dispatch on (affinity masks cap online cores at 64).
func defaultCores() int {
	n := runtime.NumCPU()
	if n > sched.MaxOnlineCores {
		return sched.MaxOnlineCores
	}
	return n
}

func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("actlyrtd %s (%s) %s\n", version, commit, runtime.Version())
			return nil
		},
	}
}

// buildRunCmd starts a scheduler runtime, spawns a fixed demo process
// graph exercising every priority level and a handful of sends, and
// serves it until interrupted.
func buildRunCmd(app *Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler with a small demo workload",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runDemo(cmd)
		},
	}
	cmd.Flags().Int("cores", defaultCores(), "number of scheduler cores")
	cmd.Flags().String("config-file", "", "path to a RuntimeConfig YAML file")
	cmd.Flags().String("metrics-listen", "", "if set, serve Prometheus metrics on this address")
	cmd.Flags().Int("spawn", 8, "number of demo processes to spawn")
	return cmd
}

func (app *Application) runDemo(cmd *cobra.Command) error {
	numCores, _ := cmd.Flags().GetInt("cores")
	configFile, _ := cmd.Flags().GetString("config-file")
	if configFile == "" {
		configFile, _ = cmd.Flags().GetString("config")
	}
	metricsListen, _ := cmd.Flags().GetString("metrics-listen")
	spawnCount, _ := cmd.Flags().GetInt("spawn")

	cfg, err := config.Load(configFile, numCores)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if rendered, err := cfg.YAML(); err == nil {
		app.Logger.Debug().Str("config", rendered).Msg("effective configuration")
	}

	rt, err := sched.New(cfg.ToSchedConfig(), app.Logger)
	if err != nil {
		return fmt.Errorf("build runtime: %w", err)
	}

	ctx, stop := signal.NotifyContext(app.ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt.Start(ctx)
	defer rt.Stop()

	var sm *metrics.SchedulerMetrics
	if metricsListen != "" {
		sm = metrics.NewSchedulerMetrics()
		srv := metrics.NewServer(metricsListen, sm)
		go func() {
			if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
				app.Logger.Error().Err(err).Msg("metrics server exited")
			}
		}()
		go metrics.Run(ctx, rt, sm, time.Second)
	}

	var completed int64
	priorities := []sched.Priority{sched.PriorityMax, sched.PriorityHigh, sched.PriorityNormal, sched.PriorityLow}

	for i := 0; i < spawnCount; i++ {
		idx := i
		priority := priorities[i%len(priorities)]
		_, err := rt.Spawn(func(p *sched.Process) {
			for step := 0; step < 3; step++ {
				p.Charge(sched.BIFSpawnCost)
				p.Yield()
			}
			if idx%3 == 0 {
				peer := int64((idx+1)%spawnCount) + 1
				_ = p.Send(peer, []byte(fmt.Sprintf("hello from %d", idx)))
			}
			atomic.AddInt64(&completed, 1)
		}, priority, 0, 0, 0)
		if err != nil {
			app.Logger.Error().Err(err).Int("index", idx).Msg("spawn failed")
		}
	}

	app.Logger.Info().Int("spawned", spawnCount).Msg("demo workload spawned")

	<-ctx.Done()
	app.Logger.Info().Int64("completed", atomic.LoadInt64(&completed)).Msg("shutting down")
	return nil
}

// buildBenchCmd runs a short, fixed-duration spawn/yield/steal load
// and reports aggregate throughput.
func buildBenchCmd(app *Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run a fixed-duration scheduling throughput benchmark",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runBench(cmd)
		},
	}
	cmd.Flags().Int("cores", defaultCores(), "number of scheduler cores")
	cmd.Flags().Duration("duration", 2*time.Second, "benchmark duration")
	cmd.Flags().Int("concurrency", 64, "number of concurrently spawned processes")
	return cmd
}

func (app *Application) runBench(cmd *cobra.Command) error {
	numCores, _ := cmd.Flags().GetInt("cores")
	duration, _ := cmd.Flags().GetDuration("duration")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	rt, err := sched.New(sched.DefaultConfig(numCores), app.Logger)
	if err != nil {
		return fmt.Errorf("build runtime: %w", err)
	}

	ctx, cancel := context.WithTimeout(app.ctx, duration)
	defer cancel()

	rt.Start(ctx)
	defer rt.Stop()

	var scheduled int64
	for i := 0; i < concurrency; i++ {
		var body EntryLoop
		body.rt = rt
		body.counter = &scheduled
		_, _ = rt.Spawn(body.Run, sched.PriorityNormal, 0, 0, 0)
	}

	<-ctx.Done()

	var total int64
	for _, core := range rt.Cores() {
		total += core.Stats().TotalScheduled
	}
	succeeded, failed := rt.Balancer().Stats()

	fmt.Printf("cores=%d duration=%s scheduled=%d steals_ok=%d steals_failed=%d\n",
		numCores, duration, total, succeeded, failed)
	return nil
}

// EntryLoop is a demo process body that yields repeatedly until its
// Runtime's context is cancelled, used by bench to keep the ready
// queues saturated for the whole benchmark window.
type EntryLoop struct {
	rt      *sched.Runtime
	counter *int64
}

// Run is the EntryFunc body: it loops yielding and counting, reading
// a small amount of pseudo-work between yields so the profile is not
// a tight spin.
func (e EntryLoop) Run(p *sched.Process) {
	for {
		atomic.AddInt64(e.counter, 1)
		_ = strings.Repeat("x", 1+rand.Intn(4))
		p.Charge(sched.BIFSpawnCost)
		p.Yield()
	}
}
