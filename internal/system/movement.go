package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/frontline/warsim/internal/core/event"
	coresys "github.com/frontline/warsim/internal/core/system"
	"github.com/frontline/warsim/internal/movement"
	"github.com/frontline/warsim/internal/war"
)

// MovementSystem integrates non-materialized agents toward their destinations,
// then refreshes squad strength so later phases see this tick's losses.
// Deaths reported by the combat layer surface here as squad_wiped.
// Phase 1 (Movement).
type MovementSystem struct {
	roster  *war.Roster
	mover   *movement.Mover
	terrain war.TerrainFunc
	bus     *event.Bus
	frame   *Frame
	log     *zap.Logger

	truncated int
}

func NewMovementSystem(r *war.Roster, mover *movement.Mover, terrain war.TerrainFunc, bus *event.Bus, frame *Frame, log *zap.Logger) *MovementSystem {
	return &MovementSystem{roster: r, mover: mover, terrain: terrain, bus: bus, frame: frame, log: log}
}

func (s *MovementSystem) Phase() coresys.Phase { return coresys.PhaseMovement }

func (s *MovementSystem) Update(dt time.Duration) {
	rep := s.mover.Integrate(s.roster.Agents(), dt.Seconds(), s.terrain)
	if rep.Truncated {
		s.truncated++
		// one line per 100 truncated frames is plenty
		if s.truncated%100 == 1 {
			s.log.Debug("movement budget exhausted",
				zap.Int("visited", rep.Visited),
				zap.Int("agents", s.roster.Count()),
				zap.Int("cursor", s.mover.Cursor()))
		}
	}

	for _, sq := range s.roster.RefreshSquads() {
		s.bus.Emit(event.SquadWiped{
			Stamp:   event.Stamp{Time: s.frame.Elapsed},
			SquadID: sq.ID,
			Faction: sq.Faction,
			X:       sq.CenterX,
			Z:       sq.CenterZ,
		})
	}
}

// Truncated is how many frames ran out of movement budget.
func (s *MovementSystem) Truncated() int { return s.truncated }
