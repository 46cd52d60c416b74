package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/sugawarayuuta/sonnet"
	"golang.org/x/sync/errgroup"

	sim "github.com/latency-sim/latency-sim/sim"
	"github.com/latency-sim/latency-sim/sim/export"
	"github.com/latency-sim/latency-sim/sim/feed"
)

var listenAddr string // HTTP listen address for serve

// API exposes the engine to the display layer over HTTP. Every handler either
// reads derived state or calls one of the engine's control operations
// (threshold, dismiss, pause, resume); none touches the latency table.
type API struct {
	engine *sim.Engine
	hub    *feed.Hub
}

// NewAPI wires handlers for engine.
func NewAPI(engine *sim.Engine, hub *feed.Hub) *API {
	return &API{engine: engine, hub: hub}
}

// Routes returns the HTTP handler.
func (a *API) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/servers", a.handleServers)
	mux.HandleFunc("GET /api/snapshot", a.handleSnapshot)
	mux.HandleFunc("GET /api/latency", a.handleLatency)
	mux.HandleFunc("GET /api/alerts", a.handleAlerts)
	mux.HandleFunc("DELETE /api/alerts/{id}", a.handleDismissAlert)
	mux.HandleFunc("GET /api/threshold", a.handleGetThreshold)
	mux.HandleFunc("PUT /api/threshold", a.handleSetThreshold)
	mux.HandleFunc("GET /api/opportunities", a.handleOpportunities)
	mux.HandleFunc("GET /api/topology", a.handleTopology)
	mux.HandleFunc("GET /api/metrics", a.handleMetrics)
	mux.HandleFunc("GET /api/predictions", a.handlePredictions)
	mux.HandleFunc("GET /api/history", a.handleHistory)
	mux.HandleFunc("GET /api/export", a.handleExport)
	mux.HandleFunc("POST /api/pause", a.handlePause)
	mux.HandleFunc("POST /api/resume", a.handleResume)
	if a.hub != nil {
		mux.HandleFunc("GET /ws", a.hub.HandleWS)
	}
	return withRequestLogging(mux)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonnet.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (a *API) handleServers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.engine.Servers().Servers())
}

// GET /api/snapshot returns an empty list (not null) before the first delivery.
func (a *API) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := a.engine.Latest()
	if snap == nil {
		snap = sim.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snap)
}

// GET /api/latency?source=&target=
func (a *API) handleLatency(w http.ResponseWriter, r *http.Request) {
	source, target := r.URL.Query().Get("source"), r.URL.Query().Get("target")
	if source == "" || target == "" {
		writeError(w, http.StatusBadRequest, "source and target are required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"source":  source,
		"target":  target,
		"latency": a.engine.Latency(source, target),
	})
}

func (a *API) handleAlerts(w http.ResponseWriter, r *http.Request) {
	alerts := a.engine.Alerts()
	writeJSON(w, http.StatusOK, map[string]any{
		"threshold": alerts.Threshold(),
		"critical":  alerts.CriticalCount(),
		"alerts":    alerts.Alerts(),
	})
}

func (a *API) handleDismissAlert(w http.ResponseWriter, r *http.Request) {
	if !a.engine.Alerts().Dismiss(r.PathValue("id")) {
		writeError(w, http.StatusNotFound, "alert not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type thresholdBody struct {
	Threshold float64 `json:"threshold"`
}

func (a *API) handleGetThreshold(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, thresholdBody{Threshold: a.engine.Alerts().Threshold()})
}

func (a *API) handleSetThreshold(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, 1<<10))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var body thresholdBody
	if err := sonnet.Unmarshal(data, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := a.engine.Alerts().SetThreshold(body.Threshold); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	logrus.WithField("threshold", body.Threshold).Info("alert threshold updated")
	writeJSON(w, http.StatusOK, body)
}

func (a *API) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	opps := a.engine.Scanner().Opportunities()
	if opps == nil {
		opps = []sim.Opportunity{}
	}
	writeJSON(w, http.StatusOK, opps)
}

func (a *API) handleTopology(w http.ResponseWriter, r *http.Request) {
	topo := a.engine.Topology()
	writeJSON(w, http.StatusOK, map[string]any{
		"nodes":        topo.NodeCount(),
		"links":        topo.LinkCount(),
		"topConnected": topo.TopConnected(sim.DefaultTopConnected),
	})
}

func (a *API) handleMetrics(w http.ResponseWriter, r *http.Request) {
	m := a.engine.Metrics()
	writeJSON(w, http.StatusOK, map[string]any{
		"metrics":   m,
		"providers": sim.SummarizeProviders(a.engine.Servers(), a.engine.Latest()),
		"health":    sim.NetworkHealth(m.AvgLatencyMs),
	})
}

// GET /api/predictions?seed=
func (a *API) handlePredictions(w http.ResponseWriter, r *http.Request) {
	seedValue := sim.DefaultForecastSeed
	if raw := r.URL.Query().Get("seed"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "seed must be an integer")
			return
		}
		seedValue = parsed
	}
	writeJSON(w, http.StatusOK, a.engine.Predictions(seedValue))
}

// GET /api/history?range=1h|24h|7d|30d
func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	hours, ok := historyRanges[r.URL.Query().Get("range")]
	if !ok {
		writeError(w, http.StatusBadRequest, "range must be one of 1h, 24h, 7d, 30d")
		return
	}
	writeJSON(w, http.StatusOK, a.engine.History(hours))
}

var historyRanges = map[string]float64{
	"":    24,
	"1h":  1,
	"24h": 24,
	"7d":  7 * 24,
	"30d": 30 * 24,
}

// GET /api/export?provider=AWS&provider=GCP&exchange=id&range=low
func (a *API) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	now := time.Now()
	data, err := export.Encode(export.BuildReport(a.engine, filters, now))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(now)))
	_, _ = w.Write(data)
}

func parseFilters(r *http.Request) (sim.Filters, error) {
	q := r.URL.Query()
	var f sim.Filters
	for _, raw := range q["provider"] {
		p, err := sim.ParseCloudProvider(raw)
		if err != nil {
			return sim.Filters{}, err
		}
		f.CloudProviders = append(f.CloudProviders, p)
	}
	f.Exchanges = q["exchange"]
	if raw := q.Get("range"); raw != "" {
		lr := sim.LatencyRange(raw)
		if lr != sim.RangeLow && lr != sim.RangeMedium && lr != sim.RangeHigh {
			return sim.Filters{}, fmt.Errorf("unknown latency range %q; valid: low, medium, high", raw)
		}
		f.LatencyRange = &lr
	}
	return f, nil
}

func (a *API) handlePause(w http.ResponseWriter, r *http.Request) {
	a.engine.Pause()
	writeJSON(w, http.StatusOK, map[string]bool{"paused": true})
}

func (a *API) handleResume(w http.ResponseWriter, r *http.Request) {
	a.engine.Resume()
	writeJSON(w, http.StatusOK, map[string]bool{"paused": false})
}

// serve runs the engine, the websocket hub and the HTTP server until ctx is done.
func serve(ctx context.Context, engine *sim.Engine, addr string) error {
	hub := feed.NewHub(engine)
	hub.Attach()
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewAPI(engine, hub).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := hub.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		if err := engine.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		return engine.Stop()
	})
	g.Go(func() error {
		logrus.Infof("listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// serveCmd runs the engine on real timers behind an HTTP + WebSocket API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the engine on real timers and expose it over HTTP and WebSocket",
	Run: func(cmd *cobra.Command, args []string) {
		engine, err := buildEngine()
		if err != nil {
			logrus.Fatalf("Failed to build engine: %v", err)
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := serve(ctx, engine, listenAddr); err != nil {
			logrus.Fatalf("serve: %v", err)
		}
		logrus.Info("Shutdown complete.")
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "addr", ":8080", "HTTP listen address")
}
