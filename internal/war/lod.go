package war

import (
	"sort"

	"go.uber.org/zap"
)

// PipelineConfig bounds the materialized set.
type PipelineConfig struct {
	MaterializationRadius   float64
	DematerializationRadius float64 // outer hysteresis radius, > MaterializationRadius
	SimulationRadius        float64
	MaxMaterialized         int
}

// Normalize enforces the hysteresis and band ordering.
func (c PipelineConfig) Normalize() PipelineConfig {
	if c.MaterializationRadius <= 0 {
		c.MaterializationRadius = 150
	}
	if c.DematerializationRadius <= c.MaterializationRadius {
		c.DematerializationRadius = c.MaterializationRadius * 1.2
	}
	if c.SimulationRadius < c.DematerializationRadius {
		c.SimulationRadius = c.DematerializationRadius
	}
	if c.MaxMaterialized < 0 {
		c.MaxMaterialized = 0
	}
	return c
}

type PipelineReport struct {
	Promoted int
	Demoted  int
	Evicted  int
	Deferred int
}

// resident is one row of the materialized table.
type resident struct {
	agent *Agent
	dist2 float64
}

type candidate struct {
	agent *Agent
	dist2 float64
}

// Pipeline promotes and demotes agents between tiers around the player.
//
// The MATERIALIZED set is a bounded table: admission needs the agent inside the
// inner radius and a free row; rows are released past the outer radius, or
// the furthest row is evicted when a closer candidate arrives at capacity.
type Pipeline struct {
	roster *Roster
	layer  CombatLayer
	cfg    PipelineConfig
	log    *zap.Logger

	table      []resident
	candidates []candidate

	lastPlayer Vec3
	havePlayer bool
}

// NewPipeline creates the pipeline. layer may be nil, in which case agents are
// only banded between SIMULATED and STRATEGIC.
func NewPipeline(r *Roster, layer CombatLayer, cfg PipelineConfig, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	cfg = cfg.Normalize()
	return &Pipeline{
		roster: r,
		layer:  layer,
		cfg:    cfg,
		log:    log,
		table:  make([]resident, 0, cfg.MaxMaterialized),
	}
}

func (p *Pipeline) Config() PipelineConfig { return p.cfg }

// Resident is the number of rows currently in the materialized table.
func (p *Pipeline) Resident() int { return len(p.table) }

// Update runs one pass against the player's position. The position is led by
// one tick of the player's velocity.
func (p *Pipeline) Update(player Vec3) PipelineReport {
	var rep PipelineReport

	predicted := player
	if p.havePlayer {
		predicted.X += player.X - p.lastPlayer.X
		predicted.Z += player.Z - p.lastPlayer.Z
	}
	p.lastPlayer = player
	p.havePlayer = true

	inner2 := p.cfg.MaterializationRadius * p.cfg.MaterializationRadius
	outer2 := p.cfg.DematerializationRadius * p.cfg.DematerializationRadius
	band2 := p.cfg.SimulationRadius * p.cfg.SimulationRadius

	// sync residents from the combat layer, release the ones out of range
	kept := p.table[:0]
	for _, row := range p.table {
		a := row.agent
		st, ok := p.layer.Entity(a.link)
		if ok {
			a.Pos = st.Pos
			a.Health = st.Health
			a.State = st.State
			if !st.Alive && a.Alive {
				a.Alive = false
				a.Health = 0
				a.State = Dead
				p.roster.recordDeath(a.Faction)
			}
		}
		row.dist2 = a.Pos.Dist2XZ(predicted)
		if !ok || !a.Alive || row.dist2 > outer2 {
			p.release(a, row.dist2 <= band2)
			rep.Demoted++
			continue
		}
		kept = append(kept, row)
	}
	p.table = kept

	p.candidates = p.candidates[:0]
	for _, a := range p.roster.agents {
		if !a.Alive || a.tier == Materialized {
			continue
		}
		d2 := a.Pos.Dist2XZ(predicted)
		switch {
		case d2 <= inner2:
			a.tier = Simulated
			p.candidates = append(p.candidates, candidate{agent: a, dist2: d2})
		case d2 <= band2:
			a.tier = Simulated
		default:
			a.tier = Strategic
		}
	}
	if p.layer == nil || p.cfg.MaxMaterialized == 0 {
		rep.Deferred = len(p.candidates)
		return rep
	}

	sort.Slice(p.candidates, func(i, j int) bool {
		return p.candidates[i].dist2 < p.candidates[j].dist2
	})
	for i, c := range p.candidates {
		if len(p.table) < p.cfg.MaxMaterialized {
			if p.admit(c) {
				rep.Promoted++
			} else {
				rep.Deferred++
			}
			continue
		}

		fi := p.furthest()
		if p.table[fi].dist2 <= c.dist2 {
			rep.Deferred += len(p.candidates) - i
			break
		}
		// the resident is only evicted once its replacement exists
		link, ok := p.spawn(c.agent)
		if !ok {
			rep.Deferred++
			continue
		}
		p.release(p.table[fi].agent, true)
		rep.Evicted++
		rep.Demoted++
		c.agent.tier = Materialized
		c.agent.link = link
		p.table[fi] = resident{agent: c.agent, dist2: c.dist2}
		rep.Promoted++
	}
	return rep
}

func (p *Pipeline) furthest() int {
	fi := 0
	for i := 1; i < len(p.table); i++ {
		if p.table[i].dist2 > p.table[fi].dist2 {
			fi = i
		}
	}
	return fi
}

func (p *Pipeline) spawn(a *Agent) (LinkID, bool) {
	link, err := p.layer.Spawn(a)
	if err != nil || link == 0 {
		p.log.Debug("materialize failed", zap.Uint32("agent", uint32(a.ID)), zap.Error(err))
		return 0, false
	}
	return link, true
}

func (p *Pipeline) admit(c candidate) bool {
	link, ok := p.spawn(c.agent)
	if !ok {
		return false
	}
	c.agent.tier = Materialized
	c.agent.link = link
	p.table = append(p.table, resident{agent: c.agent, dist2: c.dist2})
	return true
}

// release despawns the entity behind a and drops it to SIMULATED (inside the
// band) or STRATEGIC. The agent's last synced state stays on the record.
func (p *Pipeline) release(a *Agent, inBand bool) {
	if a.link != 0 && p.layer != nil {
		p.layer.Despawn(a.link)
	}
	a.link = 0
	if inBand && a.Alive {
		a.tier = Simulated
	} else {
		a.tier = Strategic
	}
	if a.Alive && a.State == Fighting {
		a.State = Idle
	}
}

// ReleaseAll despawns every materialized entity and empties the table.
func (p *Pipeline) ReleaseAll() int {
	n := len(p.table)
	for _, row := range p.table {
		p.release(row.agent, false)
	}
	p.table = p.table[:0]
	p.havePlayer = false
	return n
}
