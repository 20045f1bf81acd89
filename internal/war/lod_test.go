package war

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lodConfig() PipelineConfig {
	return PipelineConfig{
		MaterializationRadius:   100,
		DematerializationRadius: 150,
		SimulationRadius:        500,
		MaxMaterialized:         3,
	}
}

func TestNormalizeEnforcesHysteresis(t *testing.T) {
	cfg := PipelineConfig{MaterializationRadius: 200, DematerializationRadius: 100, MaxMaterialized: 5}.Normalize()
	assert.Greater(t, cfg.DematerializationRadius, cfg.MaterializationRadius)
	assert.GreaterOrEqual(t, cfg.SimulationRadius, cfg.DematerializationRadius)
}

func TestPipelineBandsTiers(t *testing.T) {
	r := NewRoster()
	addSquad(r, Blufor, Vec3{X: 50}, Vec3{X: 300}, Vec3{X: 900})
	layer := newFakeLayer()
	p := NewPipeline(r, layer, lodConfig(), nil)

	rep := p.Update(Vec3{})
	assert.Equal(t, 1, rep.Promoted)

	agents := r.Agents()
	assert.Equal(t, Materialized, agents[0].Tier())
	link, ok := agents[0].Link()
	assert.True(t, ok)
	assert.NotZero(t, link)
	assert.Equal(t, Simulated, agents[1].Tier())
	assert.Equal(t, Strategic, agents[2].Tier())
	assert.Equal(t, 1, r.MaterializedCount())
}

func TestPipelineHysteresisPreventsFlapping(t *testing.T) {
	r := NewRoster()
	addSquad(r, Blufor, Vec3{X: 90})
	layer := newFakeLayer()
	p := NewPipeline(r, layer, lodConfig(), nil)
	a := r.Agents()[0]

	p.Update(Vec3{})
	require.Equal(t, Materialized, a.Tier())

	// player steps back so the agent sits between the two radii
	p.Update(Vec3{X: -30})
	p.Update(Vec3{X: -30})
	assert.Equal(t, Materialized, a.Tier(), "inside outer radius stays materialized")

	p.Update(Vec3{X: -100})
	p.Update(Vec3{X: -100})
	assert.Equal(t, Simulated, a.Tier())
	assert.Equal(t, 1, layer.despawned)
	_, linked := a.Link()
	assert.False(t, linked)
}

func TestPipelineEvictsFurthestAtCapacity(t *testing.T) {
	r := NewRoster()
	addSquad(r, Opfor, Vec3{X: 80}, Vec3{X: 60}, Vec3{X: 40})
	layer := newFakeLayer()
	p := NewPipeline(r, layer, lodConfig(), nil)
	p.Update(Vec3{})
	require.Equal(t, 3, p.Resident())

	// a closer agent arrives while the table is full
	close := addSquad(r, Opfor, Vec3{X: 10})
	rep := p.Update(Vec3{})
	assert.Equal(t, 1, rep.Evicted)
	assert.Equal(t, 1, rep.Promoted)
	assert.Equal(t, 3, p.Resident())
	assert.Equal(t, Materialized, r.Agent(close.LeaderID).Tier())
	assert.Equal(t, Simulated, r.Agents()[0].Tier(), "agent at 80m was the furthest")

	// a farther candidate is deferred instead
	far := addSquad(r, Opfor, Vec3{X: 95})
	rep = p.Update(Vec3{})
	assert.Zero(t, rep.Evicted)
	assert.GreaterOrEqual(t, rep.Deferred, 1)
	assert.Equal(t, Simulated, r.Agent(far.LeaderID).Tier())
	assert.LessOrEqual(t, r.MaterializedCount(), 3)
}

func TestPipelineCopiesEntityStateBack(t *testing.T) {
	r := NewRoster()
	sq := addSquad(r, Blufor, Vec3{X: 20}, Vec3{X: 30})
	layer := newFakeLayer()
	p := NewPipeline(r, layer, lodConfig(), nil)
	p.Update(Vec3{})

	a := r.Agents()[0]
	link, _ := a.Link()
	layer.entities[link] = EntityState{Pos: Vec3{X: 25, Z: 5}, Health: 40, Alive: true, State: Fighting}
	p.Update(Vec3{})
	assert.Equal(t, 40.0, a.Health)
	assert.Equal(t, 5.0, a.Pos.Z)

	// the full combat layer kills the entity: the record follows and is released
	layer.entities[link] = EntityState{Pos: Vec3{X: 25}, Health: 0, Alive: false, State: Dead}
	rep := p.Update(Vec3{})
	assert.Equal(t, 1, rep.Demoted)
	assert.False(t, a.Alive)
	assert.NotEqual(t, Materialized, a.Tier())
	r.Refresh(sq)
	assert.InDelta(t, 0.5, sq.Strength(), 1e-9)
	assert.Equal(t, 1, r.Tally(Blufor).Deaths)
}

func TestPipelineLeadsPlayerVelocity(t *testing.T) {
	r := NewRoster()
	addSquad(r, Blufor, Vec3{X: 190})
	p := NewPipeline(r, newFakeLayer(), lodConfig(), nil)

	p.Update(Vec3{X: 0})
	assert.NotEqual(t, Materialized, r.Agents()[0].Tier())
	// moving +50/tick: predicted position is 100, agent at 190 is 90 away
	p.Update(Vec3{X: 50})
	assert.Equal(t, Materialized, r.Agents()[0].Tier())
}

func TestPipelineWithoutLayerOnlyBands(t *testing.T) {
	r := NewRoster()
	addSquad(r, Blufor, Vec3{X: 10})
	p := NewPipeline(r, nil, lodConfig(), nil)
	rep := p.Update(Vec3{})
	assert.Zero(t, rep.Promoted)
	assert.Equal(t, Simulated, r.Agents()[0].Tier())
}

func TestPipelineSpawnFailureDefers(t *testing.T) {
	r := NewRoster()
	addSquad(r, Blufor, Vec3{X: 10})
	layer := newFakeLayer()
	layer.failSpawn = true
	p := NewPipeline(r, layer, lodConfig(), nil)
	rep := p.Update(Vec3{})
	assert.Equal(t, 1, rep.Deferred)
	assert.Equal(t, Simulated, r.Agents()[0].Tier())
}

func TestReleaseAll(t *testing.T) {
	r := NewRoster()
	addSquad(r, Blufor, Vec3{X: 10}, Vec3{X: 20})
	layer := newFakeLayer()
	p := NewPipeline(r, layer, lodConfig(), nil)
	p.Update(Vec3{})
	require.Equal(t, 2, r.MaterializedCount())

	assert.Equal(t, 2, p.ReleaseAll())
	assert.Zero(t, r.MaterializedCount())
	assert.Empty(t, layer.entities)
}

func TestPipelineKeepsResidentWhenReplacementFails(t *testing.T) {
	r := NewRoster()
	addSquad(r, Blufor, Vec3{X: 90})
	layer := newFakeLayer()
	cfg := lodConfig()
	cfg.MaxMaterialized = 1
	p := NewPipeline(r, layer, cfg, nil)
	p.Update(Vec3{})
	resident := r.Agents()[0]
	require.Equal(t, Materialized, resident.Tier())

	closer := addSquad(r, Blufor, Vec3{X: 5})
	layer.failSpawn = true
	for i := 0; i < 3; i++ {
		rep := p.Update(Vec3{})
		assert.Zero(t, rep.Evicted)
		assert.Zero(t, rep.Demoted)
		assert.Equal(t, 1, rep.Deferred)
	}
	assert.Equal(t, Materialized, resident.Tier())
	assert.Equal(t, Simulated, r.Agent(closer.LeaderID).Tier())
	assert.Equal(t, 1, r.MaterializedCount())
	assert.Zero(t, layer.despawned)

	layer.failSpawn = false
	rep := p.Update(Vec3{})
	assert.Equal(t, 1, rep.Evicted)
	assert.Equal(t, Materialized, r.Agent(closer.LeaderID).Tier())
	assert.Equal(t, Simulated, resident.Tier())
}
