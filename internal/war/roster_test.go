package war

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawnIsIdempotent(t *testing.T) {
	r := NewRoster()
	zones := testZones()

	n := r.Spawn(zones, testSpawnConfig(), testRand(), nil)
	require.Equal(t, 200, n)
	assert.Equal(t, 200, r.Count())
	assert.Len(t, r.Squads(), 20)

	n = r.Spawn(zones, testSpawnConfig(), testRand(), nil)
	assert.Equal(t, 200, n)
	assert.Equal(t, 200, r.Count())
	assert.Len(t, r.Squads(), 20)
	assert.Equal(t, AgentID(1), r.Agents()[0].ID)
}

func TestSpawnEveryAgentStartsStrategic(t *testing.T) {
	r := NewRoster()
	r.Spawn(testZones(), testSpawnConfig(), testRand(), func(x, z float64) float64 { return 12 })

	for _, a := range r.Agents() {
		assert.Equal(t, Strategic, a.Tier())
		assert.True(t, a.Alive)
		assert.Equal(t, MaxHealth, a.Health)
		assert.Equal(t, 12.0, a.Pos.Y)
		_, linked := a.Link()
		assert.False(t, linked)
	}
	for _, sq := range r.Squads() {
		assert.Equal(t, 1.0, sq.Strength())
		assert.Equal(t, 10, sq.Size())
		leader := r.Agent(sq.LeaderID)
		require.NotNil(t, leader)
		assert.True(t, leader.Leader)
	}
}

func TestSpawnFrontlineConvergesOnHighestBleed(t *testing.T) {
	zones := testZones()
	zones = append(zones,
		Zone{ID: "ridge", Pos: Vec3{X: 2000, Z: -1000}, Radius: 40, Owner: NoFaction, BleedRate: 5},
		Zone{ID: "quarry", Pos: Vec3{X: 2500, Z: -500}, Radius: 40, Owner: NoFaction, BleedRate: 3},
	)
	cfg := testSpawnConfig()
	cfg.FrontlineShare = 0.1 // one frontline slot per faction

	r := NewRoster()
	r.Spawn(zones, cfg, testRand(), nil)

	frontline := map[Faction][]string{}
	for _, sq := range r.Squads() {
		if sq.Stance == Attack {
			frontline[sq.Faction] = append(frontline[sq.Faction], sq.Objective)
		}
	}
	assert.Equal(t, []string{"ridge"}, frontline[Blufor])
	assert.Equal(t, []string{"ridge"}, frontline[Opfor])
}

func TestSpawnWithoutZonesIsNoop(t *testing.T) {
	r := NewRoster()
	assert.Zero(t, r.Spawn(nil, testSpawnConfig(), testRand(), nil))
	assert.Zero(t, r.Count())
}

func TestKillSkipsMaterialized(t *testing.T) {
	r := NewRoster()
	sq := addSquad(r, Blufor, Vec3{}, Vec3{X: 1}, Vec3{X: 2}, Vec3{X: 3})
	agents := r.Agents()
	agents[1].tier = Materialized
	agents[1].link = 9

	assert.False(t, r.Kill(agents[1]))
	assert.True(t, agents[1].Alive)

	require.True(t, r.Kill(agents[2]))
	assert.False(t, r.Kill(agents[2]), "already dead")
	assert.Equal(t, Dead, agents[2].State)
	assert.Zero(t, agents[2].Health)

	r.Refresh(sq)
	assert.InDelta(t, 0.75, sq.Strength(), 1e-9)
	assert.Equal(t, 1, r.Tally(Blufor).Deaths)
	assert.Equal(t, 1, r.Tally(Opfor).Kills)
}

func TestRefreshPromotesNewLeader(t *testing.T) {
	r := NewRoster()
	sq := addSquad(r, Opfor, Vec3{X: 0}, Vec3{X: 10}, Vec3{X: 20})
	first := r.Agent(sq.LeaderID)
	require.True(t, r.Kill(first))

	r.Refresh(sq)
	assert.NotEqual(t, first.ID, sq.LeaderID)
	assert.True(t, r.Agent(sq.LeaderID).Leader)
	assert.False(t, first.Leader)
	assert.InDelta(t, 15.0, sq.CenterX, 1e-9)
}

func TestRefreshSquadsReportsWipeOnce(t *testing.T) {
	r := NewRoster()
	sq := addSquad(r, Blufor, Vec3{}, Vec3{X: 1})
	sq.CombatActive = true
	for _, a := range r.Agents() {
		r.Kill(a)
	}

	wiped := r.RefreshSquads()
	require.Len(t, wiped, 1)
	assert.Equal(t, sq.ID, wiped[0].ID)
	assert.Empty(t, r.RefreshSquads())
}

func TestReviveResetsAgent(t *testing.T) {
	r := NewRoster()
	addSquad(r, Blufor, Vec3{X: 5})
	a := r.Agents()[0]
	assert.False(t, r.Revive(a, Vec3{}), "alive agents cannot be revived")

	r.Kill(a)
	require.True(t, r.Revive(a, Vec3{X: 100, Z: 50}))
	assert.True(t, a.Alive)
	assert.Equal(t, MaxHealth, a.Health)
	assert.Equal(t, Idle, a.State)
	assert.Equal(t, Strategic, a.Tier())
	assert.Equal(t, 100.0, a.Pos.X)
	assert.False(t, a.HasDestination())
}

func TestMapBufferSkipsDead(t *testing.T) {
	r := NewRoster()
	addSquad(r, Opfor, Vec3{X: 1, Z: 2}, Vec3{X: 3, Z: 4}, Vec3{X: 5, Z: 6})
	r.Kill(r.Agents()[1])

	buf := r.MapBuffer()
	require.Len(t, buf, 8)
	assert.Equal(t, []float32{float32(Opfor), 1, 2, float32(Strategic), float32(Opfor), 5, 6, float32(Strategic)}, buf)

	allocs := testing.AllocsPerRun(20, func() { _ = r.MapBuffer() })
	assert.Zero(t, allocs)
}

func TestSpawnReservesHomeShare(t *testing.T) {
	cfg := testSpawnConfig()
	cfg.HomeShare = 0.5 // home + owned + frontline over-commit the 10 squads

	r := NewRoster()
	r.Spawn(testZones(), cfg, testRand(), nil)

	byZone := map[string]int{}
	for _, sq := range r.Squads() {
		if sq.Faction == Blufor {
			byZone[sq.Objective]++
		}
	}
	assert.Equal(t, 5, byZone["blufor_hq"])
	assert.Equal(t, 4, byZone["bridge"]+byZone["village"])
	assert.Equal(t, 1, byZone["farm"])

	cfg.HomeShare = 0
	cfg.OwnedShare = 0.6
	r.Spawn(testZones(), cfg, testRand(), nil)
	clear(byZone)
	for _, sq := range r.Squads() {
		if sq.Faction == Blufor {
			byZone[sq.Objective]++
		}
	}
	assert.Zero(t, byZone["blufor_hq"])
	assert.Equal(t, 6, byZone["farm"])
}
