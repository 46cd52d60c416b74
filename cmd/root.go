package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/latency-sim/latency-sim/sim"
	"github.com/latency-sim/latency-sim/sim/export"
	"github.com/latency-sim/latency-sim/sim/trace"
)

var (
	// Engine flags shared by run and serve
	seed             int64         // Seed for base-latency noise and jitter
	logLevel         string        // Log verbosity level
	serversPath      string        // Server set file (YAML or TOML)
	tickPeriod       time.Duration // Scheduler period
	arbitragePeriod  time.Duration // Arbitrage re-scan period
	alertThresholdMs float64       // Initial alert threshold
	alertPolicy      string        // append or coalesce
	traceLevel       string        // none or ticks

	// run flags
	numTicks    int    // Ticks to simulate headless
	exportDir   string // Directory to write the JSON report into ("" = no export)
	predictSeed int    // Seed for the prediction panel
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "latency-sim",
	Short: "Simulated inter-exchange network latency with live analytics",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := applyEnvOverrides(cmd); err != nil {
			return err
		}
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", logLevel, err)
		}
		logrus.SetLevel(level)
		return nil
	},
}

// engineConfig assembles the EngineConfig from flags.
func engineConfig() (sim.EngineConfig, error) {
	if !sim.IsValidAlertPolicy(alertPolicy) {
		return sim.EngineConfig{}, fmt.Errorf("unknown --alert-policy %q; valid: append, coalesce", alertPolicy)
	}
	if !trace.IsValidTraceLevel(traceLevel) {
		return sim.EngineConfig{}, fmt.Errorf("unknown --trace %q; valid: none, ticks", traceLevel)
	}
	if alertThresholdMs <= 0 {
		return sim.EngineConfig{}, fmt.Errorf("--threshold must be > 0, got %v", alertThresholdMs)
	}
	return sim.EngineConfig{
		Seed:             seed,
		TickPeriod:       tickPeriod,
		ArbitragePeriod:  arbitragePeriod,
		AlertThresholdMs: alertThresholdMs,
		AlertPolicy:      sim.AlertPolicy(alertPolicy),
		Trace:            trace.TraceConfig{Level: trace.TraceLevel(traceLevel)},
	}, nil
}

// buildEngine loads the server set and constructs the engine.
func buildEngine() (*sim.Engine, error) {
	servers, err := LoadServerSet(serversPath)
	if err != nil {
		return nil, err
	}
	cfg, err := engineConfig()
	if err != nil {
		return nil, err
	}
	return sim.NewEngine(servers, cfg)
}

// scanEvery converts the arbitrage period into a tick count for headless runs.
func scanEvery(tick, arbitrage time.Duration) int {
	if tick <= 0 || arbitrage <= tick {
		return 1
	}
	return int(arbitrage / tick)
}

// runHeadless steps the engine ticks times without real timers and prints a report to w.
func runHeadless(engine *sim.Engine, ticks int, w io.Writer) {
	every := scanEvery(tickPeriod, arbitragePeriod)
	engine.Publish()
	engine.ScanArbitrage()
	for i := 1; i <= ticks; i++ {
		engine.Step()
		if i%every == 0 {
			engine.ScanArbitrage()
		}
	}
	printReport(engine, w)
}

// printReport renders metrics, alerts, opportunities, topology and predictions.
func printReport(engine *sim.Engine, w io.Writer) {
	engine.Metrics().Print(w)

	alerts := engine.Alerts()
	fmt.Fprintf(w, "\n=== Alerts (threshold %.0fms, %d critical) ===\n", alerts.Threshold(), alerts.CriticalCount())
	for _, a := range alerts.Alerts() {
		fmt.Fprintf(w, "%-8s %-20s %7.1fms  (%s)\n", a.Severity, a.ServerName, a.LatencyMs, a.SampleID)
	}

	fmt.Fprintln(w, "\n=== Arbitrage Opportunities ===")
	for _, o := range engine.Scanner().Opportunities() {
		fmt.Fprintf(w, "%-15s -> %-15s $%8.2f  %6.1fms  %s risk\n",
			o.SourceExchange, o.TargetExchange, o.ProfitEstimate, o.LatencyMs, o.Risk)
	}

	topo := engine.Topology()
	fmt.Fprintf(w, "\n=== Network Topology (%d nodes, %d links) ===\n", topo.NodeCount(), topo.LinkCount())
	for _, sc := range topo.TopConnected(sim.DefaultTopConnected) {
		fmt.Fprintf(w, "%-20s %-15s %d connections\n", sc.Server.Name, sc.Server.Location.City, sc.Connections)
	}

	m := engine.Metrics()
	fmt.Fprintf(w, "\n=== Predictions (network health: %s) ===\n", sim.NetworkHealth(m.AvgLatencyMs))
	for _, p := range engine.Predictions(predictSeed) {
		fmt.Fprintf(w, "%-15s %6.1fms -> %6.1fms  %3.0f%% confidence  %s\n",
			p.ServerID, p.CurrentLatencyMs, p.PredictedLatencyMs, p.Confidence*100, p.Trend)
	}

	if engine.Trace().Enabled() {
		s := trace.Summarize(engine.Trace())
		fmt.Fprintln(w, "\n=== Trace Summary ===")
		fmt.Fprintf(w, "Ticks                : %d (%d delivered, %d suppressed)\n", s.TotalTicks, s.DeliveredTicks, s.SuppressedTicks)
		fmt.Fprintf(w, "Alerts               : %d (%d critical)\n", s.TotalAlerts, s.CriticalAlerts)
		fmt.Fprintf(w, "Peak Latency         : %.1fms\n", s.PeakLatencyMs)
		fmt.Fprintf(w, "Scans                : %d (%d with results, best $%.2f)\n", s.TotalScans, s.ScansWithResults, s.BestProfitOverall)
	}
}

// runCmd executes a headless simulation using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the latency simulation for a fixed number of ticks and print a report",
	Run: func(cmd *cobra.Command, args []string) {
		if numTicks < 0 {
			logrus.Fatalf("--ticks must be >= 0, got %d", numTicks)
		}
		engine, err := buildEngine()
		if err != nil {
			logrus.Fatalf("Failed to build engine: %v", err)
		}
		defer engine.Stop()

		logrus.Infof("Starting simulation: %d servers, %d ticks, seed=%d", engine.Servers().Len(), numTicks, seed)
		startTime := time.Now()
		runHeadless(engine, numTicks, os.Stdout)
		logrus.Infof("Simulation complete in %v.", time.Since(startTime))

		if exportDir != "" {
			now := time.Now()
			report := export.BuildReport(engine, sim.Filters{}, now)
			if _, err := export.SaveReport(exportDir, report, now); err != nil {
				logrus.Fatalf("Export failed: %v", err)
			}
		}
	},
}

// serversCmd lists the validated server set
var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "Validate and list the server set",
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := LoadServerSet(serversPath)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, s := range set.Servers() {
			fmt.Fprintf(out, "%-15s %-20s %-6s %-15s %s, %s (%.2f, %.2f)\n",
				s.ID, s.Name, s.Provider, s.Region, s.Location.City, s.Location.Country, s.Location.Lat, s.Location.Lon)
		}
		return nil
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	pf.StringVar(&serversPath, "servers", DefaultServersFilePath, "Server set file (.yaml or .toml)")
	pf.Int64Var(&seed, "seed", 42, "Seed for base-latency noise and per-tick jitter")
	pf.DurationVar(&tickPeriod, "tick-period", sim.DefaultTickPeriod, "Scheduler tick period")
	pf.DurationVar(&arbitragePeriod, "arbitrage-period", sim.DefaultArbitragePeriod, "Arbitrage re-scan period")
	pf.Float64Var(&alertThresholdMs, "threshold", sim.DefaultAlertThresholdMs, "Initial alert threshold (ms)")
	pf.StringVar(&alertPolicy, "alert-policy", string(sim.AlertPolicyAppend), "Alert accumulation policy (append, coalesce)")
	pf.StringVar(&traceLevel, "trace", string(trace.TraceLevelNone), "Trace level (none, ticks)")

	runCmd.Flags().IntVar(&numTicks, "ticks", 12, "Number of ticks to simulate")
	runCmd.Flags().StringVar(&exportDir, "export-dir", "", "Write a JSON latency report into this directory")
	runCmd.Flags().IntVar(&predictSeed, "predict-seed", sim.DefaultForecastSeed, "Seed for latency predictions")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(serversCmd)
}
