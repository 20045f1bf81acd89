package system

import (
	"context"
	"time"

	"go.uber.org/zap"

	coresys "github.com/frontline/warsim/internal/core/system"
	"github.com/frontline/warsim/internal/persist"
	"github.com/frontline/warsim/internal/telemetry"
	"github.com/frontline/warsim/internal/war"
)

// Snapshotter produces the state written by an auto-save.
type Snapshotter interface {
	WarState() *war.WarState
}

// AutoSaveSystem writes the auto-save slot every interval of simulated time.
// Phase 4 (Persist). A failed save is logged by the manager and the tick goes on.
type AutoSaveSystem struct {
	saves   *persist.Manager
	source  Snapshotter
	metrics *telemetry.Metrics
	log     *zap.Logger
}

func NewAutoSaveSystem(saves *persist.Manager, src Snapshotter, m *telemetry.Metrics, log *zap.Logger) *AutoSaveSystem {
	return &AutoSaveSystem{saves: saves, source: src, metrics: m, log: log}
}

func (s *AutoSaveSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *AutoSaveSystem) Update(dt time.Duration) {
	if !s.saves.Advance(dt) {
		return
	}
	s.save(persist.AutoSlot)
}

// SaveNow writes the auto-save slot immediately, for graceful shutdown.
func (s *AutoSaveSystem) SaveNow() bool {
	s.saves.ResetTimer()
	return s.save(persist.AutoSlot)
}

func (s *AutoSaveSystem) save(slot int) bool {
	st := s.source.WarState()
	if st == nil {
		return false
	}
	ok := s.saves.Save(context.Background(), slot, st)
	s.metrics.RecordSave(slot, ok)
	if ok {
		s.log.Debug("auto-save written", zap.Int("agents", len(st.Agents)), zap.Float64("elapsed", st.ElapsedTime))
	}
	return ok
}
