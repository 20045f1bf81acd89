package movement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frontline/warsim/internal/war"
	"github.com/frontline/warsim/internal/war/wartest"
)

func TestIntegrateStraightLine(t *testing.T) {
	r := wartest.Roster(wartest.Squad{Faction: war.Blufor, Members: []war.Vec3{{}}})
	a := r.Agents()[0]
	a.DestX, a.DestZ = 10, 0

	m := New(RoundRobin, 0)
	rep := m.Integrate(r.Agents(), 1, nil)
	assert.Equal(t, 1, rep.Moved)
	assert.InDelta(t, 4.0, a.Pos.X, 1e-9)
	assert.Equal(t, war.Moving, a.State)

	m.Integrate(r.Agents(), 1, nil)
	m.Integrate(r.Agents(), 1, nil)
	assert.Equal(t, 10.0, a.Pos.X, "arrival snaps to destination")
	assert.Equal(t, war.Idle, a.State)
	assert.False(t, a.HasDestination())

	rep = m.Integrate(r.Agents(), 1, nil)
	assert.Zero(t, rep.Moved)
}

func TestIntegrateSkipsFightingAndDead(t *testing.T) {
	r := wartest.Roster(wartest.Squad{Faction: war.Opfor, Members: wartest.Line(war.Vec3{}, 3, 5)})
	agents := r.Agents()
	for _, a := range agents {
		a.DestZ = 100
	}
	agents[0].State = war.Fighting
	require.True(t, r.Kill(agents[1]))

	rep := New(RoundRobin, 0).Integrate(agents, 1, nil)
	assert.Equal(t, 1, rep.Moved)
	assert.Equal(t, 3, rep.Visited)
	assert.Zero(t, agents[0].Pos.Z)
	assert.Zero(t, agents[1].Pos.Z)
	assert.InDelta(t, 4.0, agents[2].Pos.Z, 1e-9)
}

func TestIntegrateTerrainOnlyForSimulated(t *testing.T) {
	r := wartest.Roster(wartest.Squad{Faction: war.Blufor, Members: []war.Vec3{{X: 300}, {X: 5000}}})
	war.NewPipeline(r, nil, war.PipelineConfig{MaterializationRadius: 100, DematerializationRadius: 150, SimulationRadius: 800}, nil).
		Update(war.Vec3{})
	near, far := r.Agents()[0], r.Agents()[1]
	require.Equal(t, war.Simulated, near.Tier())
	require.Equal(t, war.Strategic, far.Tier())
	near.DestZ, far.DestZ = 50, 50

	New(RoundRobin, 0).Integrate(r.Agents(), 1, func(x, z float64) float64 { return 7 })
	assert.Equal(t, 7.0, near.Pos.Y)
	assert.Zero(t, far.Pos.Y)
	assert.InDelta(t, 4.0, far.Pos.Z, 1e-9)
}

func TestIntegrateSkipsMaterialized(t *testing.T) {
	r := wartest.Roster(wartest.Squad{Faction: war.Blufor, Members: []war.Vec3{{X: 10}}})
	war.NewPipeline(r, wartest.NewLayer(), war.PipelineConfig{MaxMaterialized: 4}, nil).Update(war.Vec3{})
	a := r.Agents()[0]
	require.Equal(t, war.Materialized, a.Tier())
	a.DestX = 500

	rep := New(RoundRobin, 0).Integrate(r.Agents(), 1, nil)
	assert.Zero(t, rep.Moved)
	assert.Equal(t, 10.0, a.Pos.X)
}

// tickingClock advances one millisecond on every read.
func tickingClock() func() time.Time {
	now := time.Unix(0, 0)
	return func() time.Time {
		now = now.Add(time.Millisecond)
		return now
	}
}

func movedSet(agents []*war.Agent) map[war.AgentID]bool {
	out := make(map[war.AgentID]bool)
	for _, a := range agents {
		if a.Pos.Z != 0 {
			out[a.ID] = true
		}
	}
	return out
}

func overloaded() *war.Roster {
	r := wartest.Roster(wartest.Squad{Faction: war.Blufor, Members: wartest.Line(war.Vec3{}, 10, 1)})
	for _, a := range r.Agents() {
		a.DestZ = 1000
	}
	return r
}

func TestRoundRobinVisitsEveryAgentUnderOverload(t *testing.T) {
	r := overloaded()
	m := New(RoundRobin, 2*time.Millisecond)
	m.CheckEvery = 2
	m.SetClock(tickingClock())

	rep := m.Integrate(r.Agents(), 1, nil)
	assert.True(t, rep.Truncated)
	assert.Equal(t, 4, rep.Visited)
	assert.Equal(t, 4, m.Cursor())

	m.Integrate(r.Agents(), 1, nil)
	m.Integrate(r.Agents(), 1, nil)
	assert.Len(t, movedSet(r.Agents()), 10)
}

func TestRestartPolicyStarvesTail(t *testing.T) {
	r := overloaded()
	m := New(Restart, 2*time.Millisecond)
	m.CheckEvery = 2
	m.SetClock(tickingClock())

	for i := 0; i < 5; i++ {
		assert.True(t, m.Integrate(r.Agents(), 1, nil).Truncated)
	}
	moved := movedSet(r.Agents())
	assert.Len(t, moved, 4)
	assert.False(t, moved[r.Agents()[9].ID])
}

func TestParsePolicy(t *testing.T) {
	assert.Equal(t, Restart, ParsePolicy("restart"))
	assert.Equal(t, RoundRobin, ParsePolicy("round_robin"))
	assert.Equal(t, RoundRobin, ParsePolicy("bogus"))
	assert.Equal(t, "restart", Restart.String())
}
