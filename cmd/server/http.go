package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/pprof"

	"go.uber.org/zap"

	"factorycraft.ai/internal/config"
	"factorycraft.ai/internal/persistence/indexdb"
	"factorycraft.ai/internal/sim/world"
	"factorycraft.ai/internal/transport/observer"
	"factorycraft.ai/internal/transport/ws"
)

func newMux(cfg *config.Config, w *world.World, idx *indexdb.SQLiteIndex, logger *zap.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", metricsHandler(w, idx))
	mux.HandleFunc("/v1/state", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		resp := struct {
			WorldID string             `json:"world_id"`
			Tick    uint64             `json:"tick"`
			Metrics world.WorldMetrics `json:"metrics"`
			Index   indexdb.Stats      `json:"index"`
		}{
			WorldID: w.ID(),
			Tick:    w.CurrentTick(),
			Metrics: w.Metrics(),
			Index:   idx.Stats(),
		}
		_ = json.NewEncoder(rw).Encode(resp)
	})

	mux.HandleFunc("/v1/ws", ws.NewServer(w, ws.Options{
		MaxMessageBytes: cfg.Transport.MaxMessageBytes,
		WriteTimeout:    cfg.Transport.WriteTimeout,
		ReadTimeout:     cfg.Transport.ReadTimeout,
		CommandTimeout:  cfg.Transport.CommandTimeout,
		RateWindowTicks: cfg.Transport.RateWindowTicks,
		RateMax:         cfg.Transport.RateMax,
	}, logger.Named("ws")).Handler())

	obs := observer.NewServer(w, cfg.Transport.ObserverBuffer, logger.Named("observer"))
	mux.HandleFunc("/v1/observer/bootstrap", obs.BootstrapHandler())
	mux.HandleFunc("/v1/observer/ws", obs.WSHandler())

	if cfg.Server.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return mux
}

// metricsHandler writes the Prometheus text exposition format.
func metricsHandler(w *world.World, idx *indexdb.SQLiteIndex) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		id := w.ID()
		m := w.Metrics()
		tick := w.CurrentTick()
		if m.Tick != 0 {
			tick = m.Tick
		}

		gauge := func(name, help string, v any) {
			fmt.Fprintf(rw, "# HELP %s %s\n", name, help)
			fmt.Fprintf(rw, "# TYPE %s gauge\n", name)
			fmt.Fprintf(rw, "%s{world=%q} %v\n", name, id, v)
		}
		counter := func(name, help string, v uint64) {
			fmt.Fprintf(rw, "# HELP %s %s\n", name, help)
			fmt.Fprintf(rw, "# TYPE %s counter\n", name)
			fmt.Fprintf(rw, "%s{world=%q} %d\n", name, id, v)
		}

		gauge("factorycraft_world_tick", "Current world tick.", tick)
		gauge("factorycraft_world_structures", "Placed structures.", m.Structures)
		gauge("factorycraft_world_belts", "Placed belt segments.", m.Belts)
		gauge("factorycraft_world_ground_piles", "Cells holding spilled items.", m.GroundPile)
		gauge("factorycraft_world_observers", "Connected observers.", m.Observers)
		gauge("factorycraft_world_stuck_structures", "Structures reporting a blocking status.", m.StuckNow)
		gauge("factorycraft_world_inbox_depth", "Commands waiting for the next tick.", m.QueueDepth)
		gauge("factorycraft_world_step_ms", "Last tick step duration in milliseconds.", fmt.Sprintf("%.3f", m.StepMS))

		counter("factorycraft_crafted_total", "Crafts completed.", m.Crafted)
		counter("factorycraft_mined_total", "Resource items mined.", m.Mined)
		counter("factorycraft_fuel_burned_total", "Fuel items consumed.", m.FuelBurned)
		counter("factorycraft_transfers_total", "Items moved by inserters and drills.", m.Transfers)
		counter("factorycraft_belt_handoffs_total", "Items handed between belt segments.", m.Handoffs)
		counter("factorycraft_placements_total", "Structures placed.", m.Placements)
		counter("factorycraft_removals_total", "Structures removed.", m.Removals)
		counter("factorycraft_commands_total", "Commands applied.", m.Commands)

		if idx != nil {
			s := idx.Stats()
			gauge("factorycraft_index_queue_depth", "Index writer backlog.", s.QueueDepth)
			counter("factorycraft_index_drop_tick_total", "Tick rows dropped by the index writer.", s.DropTickTotal)
			counter("factorycraft_index_drop_audit_total", "Audit rows dropped by the index writer.", s.DropAuditTotal)
			counter("factorycraft_index_write_error_total", "Index write errors.", s.WriteErrorTotal)
		}
	}
}
