package world

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "factorycraft.ai/internal/sim/world"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type instruments struct {
	items      metric.Int64Counter
	transfers  metric.Int64Counter
	handoffs   metric.Int64Counter
	structures metric.Int64Counter
	commands   metric.Int64Counter
	stepMs     metric.Float64Histogram
}

// newInstruments binds to the global provider, which is a no-op until one
// is installed.
func newInstruments() (instruments, error) {
	m := meter()
	var in instruments
	var err error
	if in.items, err = m.Int64Counter("factory.items",
		metric.WithDescription("Items crafted, mined or burned"),
	); err != nil {
		return in, fmt.Errorf("creating items counter: %w", err)
	}
	if in.transfers, err = m.Int64Counter("factory.inserter.transfers",
		metric.WithDescription("Items moved by inserters and miner ejection"),
	); err != nil {
		return in, fmt.Errorf("creating transfers counter: %w", err)
	}
	if in.handoffs, err = m.Int64Counter("factory.belt.handoffs",
		metric.WithDescription("Items handed from one belt segment to the next"),
	); err != nil {
		return in, fmt.Errorf("creating handoffs counter: %w", err)
	}
	if in.structures, err = m.Int64Counter("factory.structures",
		metric.WithDescription("Structures placed and removed"),
	); err != nil {
		return in, fmt.Errorf("creating structures counter: %w", err)
	}
	if in.commands, err = m.Int64Counter("factory.commands",
		metric.WithDescription("Commands applied at tick boundaries"),
	); err != nil {
		return in, fmt.Errorf("creating commands counter: %w", err)
	}
	if in.stepMs, err = m.Float64Histogram("factory.step.duration",
		metric.WithDescription("Wall time of one simulation step"),
		metric.WithUnit("ms"),
	); err != nil {
		return in, fmt.Errorf("creating step histogram: %w", err)
	}
	return in, nil
}

// WorldMetrics is a thread-safe read-only view of key runtime signals.
// It is updated from the world loop goroutine and read from HTTP handlers.
type WorldMetrics struct {
	Tick       uint64  `json:"tick"`
	Structures int     `json:"structures"`
	Belts      int     `json:"belts"`
	Observers  int     `json:"observers"`
	GroundPile int     `json:"ground_piles"`
	StepMS     float64 `json:"step_ms"`

	Crafted    uint64 `json:"crafted_total"`
	Mined      uint64 `json:"mined_total"`
	FuelBurned uint64 `json:"fuel_burned_total"`
	Transfers  uint64 `json:"transfers_total"`
	Handoffs   uint64 `json:"belt_handoffs_total"`
	Placements uint64 `json:"placements_total"`
	Removals   uint64 `json:"removals_total"`
	Commands   uint64 `json:"commands_total"`
	StuckNow   int    `json:"stuck_structures"`
	QueueDepth int    `json:"inbox_depth"`
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	m, _ := w.metrics.Load().(WorldMetrics)
	return m
}

func (w *World) recordStep(tick uint64, d time.Duration) {
	c := w.counts
	ms := float64(d.Microseconds()) / 1000

	ctx := context.Background()
	w.inst.stepMs.Record(ctx, ms)
	addItems := func(kind string, n int) {
		if n > 0 {
			w.inst.items.Add(ctx, int64(n), metric.WithAttributes(attribute.String("kind", kind)))
		}
	}
	addItems("crafted", c.crafted)
	addItems("mined", c.mined)
	addItems("burned", c.fuelBurned)
	if n := c.dropped + c.ejected; n > 0 {
		w.inst.transfers.Add(ctx, int64(n))
	}
	if c.handoffs > 0 {
		w.inst.handoffs.Add(ctx, int64(c.handoffs))
	}
	if c.placements > 0 {
		w.inst.structures.Add(ctx, int64(c.placements), metric.WithAttributes(attribute.String("op", "place")))
	}
	if c.removals > 0 {
		w.inst.structures.Add(ctx, int64(c.removals), metric.WithAttributes(attribute.String("op", "remove")))
	}
	if c.commands > 0 {
		w.inst.commands.Add(ctx, int64(c.commands))
	}

	prev := w.Metrics()
	w.metrics.Store(WorldMetrics{
		Tick:       tick,
		Structures: w.table.live,
		Belts:      len(w.belts),
		Observers:  len(w.observers),
		GroundPile: len(w.ground),
		StepMS:     ms,
		Crafted:    prev.Crafted + uint64(c.crafted),
		Mined:      prev.Mined + uint64(c.mined),
		FuelBurned: prev.FuelBurned + uint64(c.fuelBurned),
		Transfers:  prev.Transfers + uint64(c.dropped+c.ejected),
		Handoffs:   prev.Handoffs + uint64(c.handoffs),
		Placements: prev.Placements + uint64(c.placements),
		Removals:   prev.Removals + uint64(c.removals),
		Commands:   prev.Commands + uint64(c.commands),
		StuckNow:   c.stuck,
		QueueDepth: len(w.inbox),
	})
}
