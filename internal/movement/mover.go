// Package movement integrates lightweight agents toward their destinations
// under a per-frame wall-clock budget.
package movement

import (
	"math"
	"time"

	"github.com/frontline/warsim/internal/war"
)

// Policy decides where a budget-truncated pass resumes next frame.
type Policy uint8

const (
	// RoundRobin carries a cursor across frames so every agent is eventually
	// visited under sustained overload.
	RoundRobin Policy = iota
	// Restart begins every frame at the first agent.
	Restart
)

// ParsePolicy maps a config string to a Policy. Unknown names give RoundRobin.
func ParsePolicy(s string) Policy {
	if s == "restart" {
		return Restart
	}
	return RoundRobin
}

func (p Policy) String() string {
	if p == Restart {
		return "restart"
	}
	return "round_robin"
}

// Report is the result of one Integrate pass.
type Report struct {
	Moved     int
	Visited   int
	Truncated bool
}

// Mover advances SIMULATED and STRATEGIC agents along straight lines.
type Mover struct {
	Policy     Policy
	Budget     time.Duration // zero means unbounded
	CheckEvery int           // agents between clock reads

	now    func() time.Time
	cursor int
}

func New(policy Policy, budget time.Duration) *Mover {
	return &Mover{
		Policy:     policy,
		Budget:     budget,
		CheckEvery: 64,
		now:        time.Now,
	}
}

// SetClock swaps the wall clock used for the frame budget.
func (m *Mover) SetClock(now func() time.Time) { m.now = now }

// Cursor is the index the next pass starts from.
func (m *Mover) Cursor() int { return m.cursor }

// Integrate moves agents by speed×dt toward their destination. Materialized,
// dead and fighting agents are skipped. Agents that arrive snap to the
// destination and go idle. terrain may be nil.
func (m *Mover) Integrate(agents []*war.Agent, dt float64, terrain war.TerrainFunc) Report {
	var rep Report
	n := len(agents)
	if n == 0 || dt <= 0 {
		return rep
	}
	start := 0
	if m.Policy == RoundRobin {
		start = m.cursor % n
	}
	every := m.CheckEvery
	if every <= 0 {
		every = 64
	}
	var deadline time.Time
	if m.Budget > 0 {
		deadline = m.now().Add(m.Budget)
	}

	for i := 0; i < n; i++ {
		if m.Budget > 0 && i > 0 && i%every == 0 && !m.now().Before(deadline) {
			rep.Truncated = true
			m.cursor = (start + i) % n
			return rep
		}
		rep.Visited++
		if step(agents[(start+i)%n], dt, terrain) {
			rep.Moved++
		}
	}
	m.cursor = 0
	if m.Policy == RoundRobin {
		m.cursor = start
	}
	return rep
}

func step(a *war.Agent, dt float64, terrain war.TerrainFunc) bool {
	if !a.Alive || a.State == war.Fighting || a.Tier() == war.Materialized {
		return false
	}
	if !a.HasDestination() {
		if a.State == war.Moving {
			a.State = war.Idle
		}
		return false
	}
	dx := a.DestX - a.Pos.X
	dz := a.DestZ - a.Pos.Z
	dist := math.Hypot(dx, dz)
	travel := a.Speed * dt
	if travel >= dist {
		a.Pos.X, a.Pos.Z = a.DestX, a.DestZ
		a.State = war.Idle
	} else {
		a.Pos.X += dx / dist * travel
		a.Pos.Z += dz / dist * travel
		a.State = war.Moving
	}
	if terrain != nil && a.Tier() == war.Simulated {
		a.Pos.Y = terrain(a.Pos.X, a.Pos.Z)
	}
	return true
}
