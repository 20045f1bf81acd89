package scenario

import (
	"errors"
	"math/rand"

	"github.com/frontline/warsim/internal/core/ecs"
	"github.com/frontline/warsim/internal/war"
)

// ErrPuppetsFull is returned by Spawn at capacity.
var ErrPuppetsFull = errors.New("puppet layer at capacity")

type PuppetConfig struct {
	Capacity int
	Range    float64 // metres
	Damage   float64 // per hit
	Accuracy float64 // hit chance per shot
	Cooldown float64 // seconds between shots
}

func DefaultPuppetConfig() PuppetConfig {
	return PuppetConfig{Capacity: 64, Range: 80, Damage: 34, Accuracy: 0.35, Cooldown: 1.2}
}

type body struct {
	agent   war.AgentID
	faction war.Faction
	pos     war.Vec3
	health  float64
	state   war.CombatState
}

type rifle struct {
	ready float64 // seconds until the next shot
}

// Puppets is a minimal full-fidelity combat layer: materialized agents stand
// where they spawned and trade fire with the nearest enemy in range.
type Puppets struct {
	cfg    PuppetConfig
	world  *ecs.World
	bodies *ecs.Store[body]
	rifles *ecs.Store[rifle]
	rng    *rand.Rand
}

func NewPuppets(cfg PuppetConfig, rng *rand.Rand) *Puppets {
	w := ecs.NewWorld()
	p := &Puppets{
		cfg:    cfg,
		world:  w,
		bodies: ecs.NewStore[body](),
		rifles: ecs.NewStore[rifle](),
		rng:    rng,
	}
	w.Register(p.bodies)
	w.Register(p.rifles)
	return p
}

func (p *Puppets) Spawn(a *war.Agent) (war.LinkID, error) {
	if p.cfg.Capacity > 0 && p.world.Len() >= p.cfg.Capacity {
		return 0, ErrPuppetsFull
	}
	id := p.world.Create()
	state := a.State
	if state == war.Dead {
		state = war.Idle
	}
	p.bodies.Set(id, &body{agent: a.ID, faction: a.Faction, pos: a.Pos, health: a.Health, state: state})
	p.rifles.Set(id, &rifle{ready: p.rng.Float64() * p.cfg.Cooldown})
	return war.LinkID(id), nil
}

func (p *Puppets) Despawn(link war.LinkID) {
	p.world.DestroyNow(ecs.EntityID(link))
}

func (p *Puppets) Entity(link war.LinkID) (war.EntityState, bool) {
	id := ecs.EntityID(link)
	if !p.world.Alive(id) {
		return war.EntityState{}, false
	}
	b, ok := p.bodies.Get(id)
	if !ok {
		return war.EntityState{}, false
	}
	return war.EntityState{Pos: b.pos, Health: b.health, Alive: b.health > 0, State: b.state}, true
}

// Len is the number of live puppets.
func (p *Puppets) Len() int { return p.world.Len() }

// Step lets every armed puppet fire once its rifle is ready. Returns kills.
func (p *Puppets) Step(dt float64) int {
	r2 := p.cfg.Range * p.cfg.Range
	kills := 0
	ecs.Join(p.bodies, p.rifles, func(_ ecs.EntityID, b *body, g *rifle) {
		if b.health <= 0 {
			return
		}
		g.ready -= dt
		target := p.nearestEnemy(b, r2)
		if target == nil {
			if b.state == war.Fighting {
				b.state = war.Idle
			}
			return
		}
		b.state = war.Fighting
		if g.ready > 0 {
			return
		}
		g.ready = p.cfg.Cooldown
		if p.rng.Float64() >= p.cfg.Accuracy {
			return
		}
		target.health -= p.cfg.Damage
		if target.health <= 0 {
			target.health = 0
			target.state = war.Dead
			kills++
		}
	})
	return kills
}

func (p *Puppets) nearestEnemy(b *body, r2 float64) *body {
	var best *body
	bestD := r2
	p.bodies.Each(func(_ ecs.EntityID, o *body) {
		if o.faction == b.faction || o.health <= 0 {
			return
		}
		if d := b.pos.Dist2XZ(o.pos); d <= bestD {
			best, bestD = o, d
		}
	})
	return best
}
