// Package telemetry exposes simulation counters and gauges through the
// OpenTelemetry metric API. Without an SDK installed the global meter is a
// no-op, so instruments cost nothing.
package telemetry

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/frontline/warsim/internal/war"
)

const instrumentationName = "github.com/frontline/warsim/internal/telemetry"

// Meter returns the global meter for this module.
func Meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

var factionAttrs = [2]metric.MeasurementOption{
	metric.WithAttributes(attribute.String("faction", war.Blufor.String())),
	metric.WithAttributes(attribute.String("faction", war.Opfor.String())),
}

// Metrics holds every instrument. A nil *Metrics is valid and records nothing.
type Metrics struct {
	casualties     metric.Int64Counter
	engagements    metric.Int64Counter
	promotions     metric.Int64Counter
	demotions      metric.Int64Counter
	evictions      metric.Int64Counter
	events         metric.Int64Counter
	saves          metric.Int64Counter
	reinforcements metric.Int64Counter
	tickDuration   metric.Float64Histogram

	agentsGauge       metric.Int64ObservableGauge
	materializedGauge metric.Int64ObservableGauge

	// written by the simulation goroutine, read by the collection callback
	alive        [2]atomic.Int64
	materialized atomic.Int64
}

func New(m metric.Meter) (*Metrics, error) {
	if m == nil {
		m = Meter()
	}
	t := &Metrics{}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&t.casualties, "warsim.casualties", "Agents killed by the abstract resolver"},
		{&t.engagements, "warsim.engagements", "Squad pairs resolved"},
		{&t.promotions, "warsim.materialize.promoted", "Agents materialized"},
		{&t.demotions, "warsim.materialize.demoted", "Agents dematerialized"},
		{&t.evictions, "warsim.materialize.evicted", "Agents evicted at capacity"},
		{&t.events, "warsim.events.flushed", "War events delivered"},
		{&t.saves, "warsim.saves", "Save attempts"},
		{&t.reinforcements, "warsim.reinforcements", "Agents revived as reinforcements"},
	}
	for _, c := range counters {
		if *c.dst, err = m.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, fmt.Errorf("creating %s counter: %w", c.name, err)
		}
	}

	t.tickDuration, err = m.Float64Histogram(
		"warsim.tick.duration",
		metric.WithDescription("Wall time spent in one simulation tick"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tick histogram: %w", err)
	}

	t.agentsGauge, err = m.Int64ObservableGauge(
		"warsim.agents.alive",
		metric.WithDescription("Alive agents per faction"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating agents gauge: %w", err)
	}
	t.materializedGauge, err = m.Int64ObservableGauge(
		"warsim.agents.materialized",
		metric.WithDescription("Agents currently owned by the combat layer"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating materialized gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			for i := range t.alive {
				o.ObserveInt64(t.agentsGauge, t.alive[i].Load(), factionAttrs[i])
			}
			o.ObserveInt64(t.materializedGauge, t.materialized.Load())
			return nil
		},
		t.agentsGauge, t.materializedGauge,
	)
	if err != nil {
		return nil, fmt.Errorf("registering gauge callback: %w", err)
	}
	return t, nil
}

// Observe copies the population figures the gauges report.
func (t *Metrics) Observe(r *war.Roster) {
	if t == nil || r == nil {
		return
	}
	for i, f := range war.Factions {
		alive, _ := r.FactionCounts(f)
		t.alive[i].Store(int64(alive))
	}
	t.materialized.Store(int64(r.MaterializedCount()))
}

// Alive returns the last observed alive count of f.
func (t *Metrics) Alive(f war.Faction) int64 {
	if t == nil || !f.Valid() {
		return 0
	}
	return t.alive[f].Load()
}

func (t *Metrics) AddCasualties(f war.Faction, n int) {
	if t == nil || n == 0 || !f.Valid() {
		return
	}
	t.casualties.Add(context.Background(), int64(n), factionAttrs[f])
}

func (t *Metrics) AddEngagements(n int) {
	if t == nil || n == 0 {
		return
	}
	t.engagements.Add(context.Background(), int64(n))
}

func (t *Metrics) RecordPipeline(promoted, demoted, evicted int) {
	if t == nil {
		return
	}
	ctx := context.Background()
	if promoted > 0 {
		t.promotions.Add(ctx, int64(promoted))
	}
	if demoted > 0 {
		t.demotions.Add(ctx, int64(demoted))
	}
	if evicted > 0 {
		t.evictions.Add(ctx, int64(evicted))
	}
}

func (t *Metrics) AddEvents(n int) {
	if t == nil || n == 0 {
		return
	}
	t.events.Add(context.Background(), int64(n))
}

func (t *Metrics) RecordSave(slot int, ok bool) {
	if t == nil {
		return
	}
	t.saves.Add(context.Background(), 1, metric.WithAttributes(
		attribute.Int("slot", slot),
		attribute.Bool("ok", ok),
	))
}

func (t *Metrics) AddReinforcements(f war.Faction, n int) {
	if t == nil || n == 0 || !f.Valid() {
		return
	}
	t.reinforcements.Add(context.Background(), int64(n), factionAttrs[f])
}

func (t *Metrics) ObserveTick(d time.Duration) {
	if t == nil {
		return
	}
	t.tickDuration.Record(context.Background(), float64(d.Microseconds())/1000)
}
