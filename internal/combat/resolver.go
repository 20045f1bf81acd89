// Package combat resolves abstract casualties between opposing squads that
// the full combat layer does not own.
package combat

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/frontline/warsim/internal/config"
	"github.com/frontline/warsim/internal/core/event"
	"github.com/frontline/warsim/internal/war"
)

// Report summarizes one resolver fire.
type Report struct {
	Engagements int
	Casualties  [2]int // by faction
	Wiped       int
	Battles     int
}

type pair struct {
	a, b *war.Squad
}

type cellKey struct {
	x, z int64
}

type battleCell struct {
	sides  int
	sx, sz float64
}

// Resolver fires on an accumulator of simulated time.
type Resolver struct {
	cfg    config.CombatConfig
	roster *war.Roster
	bus    *event.Bus
	match  war.MatchControl // nil: no ticket deduction
	zones  war.ZoneSource   // nil: no defense bonus
	rng    *rand.Rand
	log    *zap.Logger

	acc time.Duration

	wasActive map[war.SquadID]bool
	live      []*war.Squad
	pairs     []pair
	cells     map[cellKey]*battleCell
	zoneView  []war.Zone
}

func NewResolver(cfg config.CombatConfig, r *war.Roster, bus *event.Bus, rng *rand.Rand, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Resolver{
		cfg:       cfg,
		roster:    r,
		bus:       bus,
		rng:       rng,
		log:       log,
		wasActive: make(map[war.SquadID]bool),
		cells:     make(map[cellKey]*battleCell),
	}
}

// SetMatch wires the ticket collaborator. nil disables ticket deduction.
func (rv *Resolver) SetMatch(m war.MatchControl) { rv.match = m }

// SetZones wires the zone collaborator. nil disables the defense bonus.
func (rv *Resolver) SetZones(z war.ZoneSource) { rv.zones = z }

// Advance accumulates dt of simulated time and fires at most once when the
// interval is reached. The remainder carries into the next call.
func (rv *Resolver) Advance(dt time.Duration, now float64) (Report, bool) {
	if rv.cfg.Interval <= 0 {
		return Report{}, false
	}
	rv.acc += dt
	if rv.acc < rv.cfg.Interval {
		return Report{}, false
	}
	rv.acc -= rv.cfg.Interval
	if rv.acc > rv.cfg.Interval {
		rv.acc = rv.cfg.Interval
	}
	return rv.Resolve(now), true
}

// KillProbability is the per-member death chance for a side of effective
// strength own facing enemy. Always within [0, base*maxRatio].
func KillProbability(base, maxRatio, enemy, own float64) float64 {
	if base <= 0 || enemy <= 0 {
		return 0
	}
	if own <= 0 {
		return base * maxRatio
	}
	ratio := math.Min(enemy/own, maxRatio)
	return base * ratio
}

// Resolve runs one fire immediately.
func (rv *Resolver) Resolve(now float64) Report {
	var rep Report

	// combat-active is rebuilt from scratch every fire
	clear(rv.wasActive)
	rv.live = rv.live[:0]
	for _, sq := range rv.roster.Squads() {
		rv.wasActive[sq.ID] = sq.CombatActive
		sq.CombatActive = false
		if sq.Strength() > 0 && sq.Faction.Valid() {
			rv.live = append(rv.live, sq)
		}
	}

	rng2 := rv.cfg.EngagementRange * rv.cfg.EngagementRange
	rv.pairs = rv.pairs[:0]
	for i, a := range rv.live {
		for _, b := range rv.live[i+1:] {
			if a.Faction == b.Faction {
				continue
			}
			if war.Dist2XZ(a.CenterX, a.CenterZ, b.CenterX, b.CenterZ) > rng2 {
				continue
			}
			rv.pairs = append(rv.pairs, pair{a: a, b: b})
		}
	}
	rep.Engagements = len(rv.pairs)

	for _, p := range rv.pairs {
		rv.engage(p.a, p.b, now)
		rv.engage(p.b, p.a, now)
	}

	rv.zoneView = rv.zoneView[:0]
	if rv.zones != nil {
		rv.zoneView = append(rv.zoneView, rv.zones.Zones()...)
	}

	clear(rv.cells)
	for _, p := range rv.pairs {
		effA := p.a.Strength() * rv.defense(p.a)
		effB := p.b.Strength() * rv.defense(p.b)
		// both sides roll against the strengths at the start of the exchange
		probA := KillProbability(rv.cfg.BaseKillProbability, rv.cfg.MaxStrengthRatio, effB, effA)
		probB := KillProbability(rv.cfg.BaseKillProbability, rv.cfg.MaxStrengthRatio, effA, effB)
		rv.casualties(p.a, probA, now, &rep)
		rv.casualties(p.b, probB, now, &rep)
		rv.settle(p.a, now, &rep)
		rv.settle(p.b, now, &rep)
		rv.bucket((p.a.CenterX+p.b.CenterX)/2, (p.a.CenterZ+p.b.CenterZ)/2)
	}

	rv.emitBattles(now, &rep)
	rv.updateStates()

	if rep.Engagements > 0 {
		rv.log.Debug("combat resolved",
			zap.Int("engagements", rep.Engagements),
			zap.Int("blufor_dead", rep.Casualties[war.Blufor]),
			zap.Int("opfor_dead", rep.Casualties[war.Opfor]),
			zap.Int("wiped", rep.Wiped),
			zap.Int("battles", rep.Battles))
	}
	return rep
}

// engage marks sq combat-active and emits squad_engaged on the rising edge.
func (rv *Resolver) engage(sq, enemy *war.Squad, now float64) {
	if sq.CombatActive {
		return
	}
	sq.CombatActive = true
	sq.LastCombat = now
	if !rv.wasActive[sq.ID] {
		rv.bus.Emit(event.SquadEngaged{
			Stamp:   event.Stamp{Time: now},
			SquadID: sq.ID,
			EnemyID: enemy.ID,
			Faction: sq.Faction,
			X:       sq.CenterX,
			Z:       sq.CenterZ,
		})
	}
}

// defense returns the multiplier for sq: the bonus applies when it holds its
// own objective zone and stands within DefenseRadiusFactor radii of it.
func (rv *Resolver) defense(sq *war.Squad) float64 {
	if len(rv.zoneView) == 0 || sq.Objective == "" {
		return 1
	}
	z, ok := war.FindZone(rv.zoneView, sq.Objective)
	if !ok || !z.HeldBy(sq.Faction) {
		return 1
	}
	reach := z.Radius * rv.cfg.DefenseRadiusFactor
	if war.Dist2XZ(sq.CenterX, sq.CenterZ, z.Pos.X, z.Pos.Z) > reach*reach {
		return 1
	}
	return rv.cfg.DefenseMultiplier
}

func (rv *Resolver) casualties(sq *war.Squad, prob float64, now float64, rep *Report) {
	if prob <= 0 {
		return
	}
	rv.roster.EachMember(sq, func(a *war.Agent) {
		if !a.Alive || a.Tier() == war.Materialized {
			return
		}
		if rv.rng.Float64() >= prob {
			return
		}
		if !rv.roster.Kill(a) {
			return
		}
		rep.Casualties[a.Faction]++
		if rv.match != nil {
			rv.match.DeductTicket(a.Faction)
		}
		rv.bus.Emit(event.AgentKilled{
			Stamp:   event.Stamp{Time: now},
			AgentID: a.ID,
			SquadID: sq.ID,
			Faction: a.Faction,
			X:       a.Pos.X,
			Z:       a.Pos.Z,
		})
	})
}

// settle recomputes strength right after casualties and reports a wipe on
// the >0 to 0 transition.
func (rv *Resolver) settle(sq *war.Squad, now float64, rep *Report) {
	prev := rv.roster.Refresh(sq)
	if prev > 0 && sq.Strength() == 0 {
		rep.Wiped++
		rv.bus.Emit(event.SquadWiped{
			Stamp:   event.Stamp{Time: now},
			SquadID: sq.ID,
			Faction: sq.Faction,
			X:       sq.CenterX,
			Z:       sq.CenterZ,
		})
	}
}

func (rv *Resolver) bucket(x, z float64) {
	size := rv.cfg.BattleCellSize
	if size <= 0 {
		return
	}
	k := cellKey{x: int64(math.Floor(x / size)), z: int64(math.Floor(z / size))}
	c := rv.cells[k]
	if c == nil {
		c = &battleCell{}
		rv.cells[k] = c
	}
	// one engagement contributes both of its sides
	c.sides += 2
	c.sx += 2 * x
	c.sz += 2 * z
}

func (rv *Resolver) emitBattles(now float64, rep *Report) {
	if len(rv.cells) == 0 {
		return
	}
	keys := make([]cellKey, 0, len(rv.cells))
	for k, c := range rv.cells {
		if c.sides >= rv.cfg.MajorBattleThreshold {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].x != keys[j].x {
			return keys[i].x < keys[j].x
		}
		return keys[i].z < keys[j].z
	})
	for _, k := range keys {
		c := rv.cells[k]
		intensity := 1.0
		if rv.cfg.MajorBattleScale > 0 {
			intensity = math.Min(1, float64(c.sides)/rv.cfg.MajorBattleScale)
		}
		rv.bus.Emit(event.MajorBattle{
			Stamp:     event.Stamp{Time: now},
			X:         c.sx / float64(c.sides),
			Z:         c.sz / float64(c.sides),
			Intensity: intensity,
		})
		rep.Battles++
	}
}

// updateStates puts members of engaged squads into fighting and releases the
// rest. Retreating squads keep moving under fire. Materialized members follow
// the combat layer instead.
func (rv *Resolver) updateStates() {
	for _, sq := range rv.roster.Squads() {
		active := sq.CombatActive && sq.Stance != war.Retreat
		rv.roster.EachMember(sq, func(a *war.Agent) {
			if !a.Alive || a.Tier() == war.Materialized {
				return
			}
			switch {
			case active:
				a.State = war.Fighting
			case a.State == war.Fighting && a.HasDestination():
				a.State = war.Moving
			case a.State == war.Fighting:
				a.State = war.Idle
			}
		})
	}
}
