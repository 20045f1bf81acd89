package system

import (
	"time"

	"github.com/frontline/warsim/internal/combat"
	coresys "github.com/frontline/warsim/internal/core/system"
	"github.com/frontline/warsim/internal/telemetry"
	"github.com/frontline/warsim/internal/war"
)

// CombatSystem fires the abstract resolver on its own simulated-time cadence.
// Phase 2 (Combat).
type CombatSystem struct {
	resolver *combat.Resolver
	frame    *Frame
	metrics  *telemetry.Metrics
	last     combat.Report
}

func NewCombatSystem(rv *combat.Resolver, frame *Frame, m *telemetry.Metrics) *CombatSystem {
	return &CombatSystem{resolver: rv, frame: frame, metrics: m}
}

func (s *CombatSystem) Phase() coresys.Phase { return coresys.PhaseCombat }

func (s *CombatSystem) Update(dt time.Duration) {
	rep, fired := s.resolver.Advance(dt, s.frame.Elapsed)
	if !fired {
		return
	}
	s.last = rep
	s.metrics.AddEngagements(rep.Engagements)
	for i, f := range war.Factions {
		s.metrics.AddCasualties(f, rep.Casualties[i])
	}
}

// Last returns the report of the most recent fire.
func (s *CombatSystem) Last() combat.Report { return s.last }
