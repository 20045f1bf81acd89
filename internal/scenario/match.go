package scenario

import (
	"go.uber.org/zap"

	"github.com/frontline/warsim/internal/war"
)

// Match tracks game phase and tickets. A faction bleeds tickets for every
// zone the enemy holds, at BleedRate tickets per minute.
type Match struct {
	phase     war.GamePhase
	setupLeft float64
	tickets   [2]int
	bleed     [2]float64
	zones     war.ZoneSource
	winner    war.Faction
	log       *zap.Logger
}

func NewMatch(tickets int, setupSeconds float64, zones war.ZoneSource, log *zap.Logger) *Match {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Match{
		phase:     war.PhaseSetup,
		setupLeft: setupSeconds,
		tickets:   [2]int{tickets, tickets},
		zones:     zones,
		winner:    war.NoFaction,
		log:       log,
	}
	if setupSeconds <= 0 {
		m.phase = war.PhaseCombat
	}
	return m
}

func (m *Match) Phase() war.GamePhase { return m.phase }

func (m *Match) Active() bool { return m.phase == war.PhaseCombat }

func (m *Match) Tickets(f war.Faction) int {
	if !f.Valid() {
		return 0
	}
	return m.tickets[f]
}

// Winner is the surviving faction once the match ended, NoFaction before.
func (m *Match) Winner() war.Faction { return m.winner }

func (m *Match) DeductTicket(f war.Faction) {
	if !f.Valid() || m.phase != war.PhaseCombat {
		return
	}
	m.tickets[f]--
	m.checkEnd()
}

// End stops the match without a winner.
func (m *Match) End() {
	if m.phase != war.PhaseEnded {
		m.phase = war.PhaseEnded
		m.log.Info("match ended", zap.String("winner", m.winner.String()))
	}
}

// Update runs the setup countdown and ticket bleed for dt seconds.
func (m *Match) Update(dt float64) {
	switch m.phase {
	case war.PhaseSetup:
		m.setupLeft -= dt
		if m.setupLeft <= 0 {
			m.phase = war.PhaseCombat
			m.log.Info("match live", zap.Int("tickets", m.tickets[war.Blufor]))
		}
		return
	case war.PhaseEnded:
		return
	}

	if m.zones != nil {
		for _, z := range m.zones.Zones() {
			if z.HomeBase || !z.Owner.Valid() || z.BleedRate <= 0 {
				continue
			}
			m.bleed[z.Owner.Enemy()] += z.BleedRate * dt / 60
		}
	}
	for _, f := range war.Factions {
		if n := int(m.bleed[f]); n > 0 {
			m.bleed[f] -= float64(n)
			m.tickets[f] -= n
		}
	}
	m.checkEnd()
}

func (m *Match) checkEnd() {
	blu, op := m.tickets[war.Blufor] <= 0, m.tickets[war.Opfor] <= 0
	if !blu && !op {
		return
	}
	switch {
	case blu && !op:
		m.winner = war.Opfor
	case op && !blu:
		m.winner = war.Blufor
	}
	m.End()
}
