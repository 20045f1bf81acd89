package scenario

import (
	"math/rand"

	"go.uber.org/zap"

	"github.com/frontline/warsim/internal/data"
	"github.com/frontline/warsim/internal/war"
)

// Host bundles the headless collaborators for one scenario.
type Host struct {
	Board   *Board
	Match   *Match
	Puppets *Puppets
}

func NewHost(sc *data.Scenario, rng *rand.Rand, log *zap.Logger) *Host {
	if log == nil {
		log = zap.NewNop()
	}
	board := NewBoard(sc.Zones, sc.CaptureSeconds)
	return &Host{
		Board:   board,
		Match:   NewMatch(sc.Tickets, sc.SetupSeconds, board, log.Named("match")),
		Puppets: NewPuppets(DefaultPuppetConfig(), rng),
	}
}

// Step advances the match clock, zone capture and puppet fire by dt seconds.
// It runs before the simulation tick so the tick observes fresh zone state.
func (h *Host) Step(dt float64, agents []*war.Agent) {
	h.Match.Update(dt)
	if !h.Match.Active() {
		return
	}
	h.Board.Update(dt, agents)
	h.Puppets.Step(dt)
}
