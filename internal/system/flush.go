package system

import (
	"time"

	"github.com/frontline/warsim/internal/core/event"
	coresys "github.com/frontline/warsim/internal/core/system"
	"github.com/frontline/warsim/internal/telemetry"
	"github.com/frontline/warsim/internal/war"
)

// FlushSystem delivers the tick's events once every producer has run, and
// publishes population gauges. Phase 5 (Flush).
type FlushSystem struct {
	bus     *event.Bus
	roster  *war.Roster
	frame   *Frame
	metrics *telemetry.Metrics
}

func NewFlushSystem(bus *event.Bus, r *war.Roster, frame *Frame, m *telemetry.Metrics) *FlushSystem {
	return &FlushSystem{bus: bus, roster: r, frame: frame, metrics: m}
}

func (s *FlushSystem) Phase() coresys.Phase { return coresys.PhaseFlush }

func (s *FlushSystem) Update(_ time.Duration) {
	s.metrics.AddEvents(s.bus.Flush())
	s.metrics.Observe(s.roster)
	s.frame.Ticks++
}
