package system

import (
	"time"

	coresys "github.com/frontline/warsim/internal/core/system"
	"github.com/frontline/warsim/internal/telemetry"
	"github.com/frontline/warsim/internal/war"
)

// MaterializeSystem promotes and demotes agents around the player.
// Phase 0 (Materialize). Runs in the ended phase too so entities tear down.
type MaterializeSystem struct {
	pipe    *war.Pipeline
	frame   *Frame
	metrics *telemetry.Metrics
}

func NewMaterializeSystem(pipe *war.Pipeline, frame *Frame, m *telemetry.Metrics) *MaterializeSystem {
	return &MaterializeSystem{pipe: pipe, frame: frame, metrics: m}
}

func (s *MaterializeSystem) Phase() coresys.Phase { return coresys.PhaseMaterialize }

func (s *MaterializeSystem) Update(_ time.Duration) {
	rep := s.pipe.Update(s.frame.Player)
	s.metrics.RecordPipeline(rep.Promoted, rep.Demoted, rep.Evicted)
}
