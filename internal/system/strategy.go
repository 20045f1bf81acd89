package system

import (
	"time"

	coresys "github.com/frontline/warsim/internal/core/system"
	"github.com/frontline/warsim/internal/director"
	"github.com/frontline/warsim/internal/telemetry"
	"github.com/frontline/warsim/internal/war"
)

// StrategySystem turns zone changes into events, then lets the director plan.
// Phase 3 (Strategy).
type StrategySystem struct {
	zones    war.ZoneSource
	watch    *director.ZoneWatch
	director *director.Director
	frame    *Frame
	metrics  *telemetry.Metrics
}

func NewStrategySystem(zones war.ZoneSource, watch *director.ZoneWatch, d *director.Director, frame *Frame, m *telemetry.Metrics) *StrategySystem {
	return &StrategySystem{zones: zones, watch: watch, director: d, frame: frame, metrics: m}
}

func (s *StrategySystem) Phase() coresys.Phase { return coresys.PhaseStrategy }

func (s *StrategySystem) Update(dt time.Duration) {
	s.watch.Observe(s.zones.Zones(), s.frame.Elapsed)

	rep, fired := s.director.Advance(dt, s.frame.Elapsed)
	if !fired {
		return
	}
	for i, f := range war.Factions {
		s.metrics.AddReinforcements(f, rep.Reinforced[i])
	}
}
