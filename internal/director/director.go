// Package director assigns squad objectives per faction on a slow cadence and
// revives dead agents as reinforcements.
package director

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

// Report summarizes one plan.
type Report struct {
	Attack     int
	Defend     int
	Patrol     int
	Retreat    int
	Spent      int
	Reinforced [2]int
}

// Director is the strategic AI. It writes squad stance, objective and member
// destinations; nothing else does.
type Director struct {
	cfg       config.DirectorConfig
	roster    *war.Roster
	bus       *event.Bus
	zones     war.ZoneSource // nil: no scoring, no assignment, no reinforcement
	doctrines DoctrineSource
	terrain   war.TerrainFunc
	rng       *rand.Rand
	log       *zap.Logger

	acc           time.Duration
	lastReinforce [2]float64
	leader        war.Faction // current faction_advantage holder

	scores map[string]float64
	strong []*war.Squad
	weak   []*war.Squad
}

func New(cfg config.DirectorConfig, r *war.Roster, bus *event.Bus, rng *rand.Rand, log *zap.Logger) *Director {
	if log == nil {
		log = zap.NewNop()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Director{
		cfg:       cfg,
		roster:    r,
		bus:       bus,
		doctrines: DefaultDoctrines(),
		rng:       rng,
		log:       log,
		leader:    war.NoFaction,
		scores:    make(map[string]float64),
	}
}

func (d *Director) SetZones(z war.ZoneSource) { d.zones = z }

func (d *Director) SetTerrain(t war.TerrainFunc) { d.terrain = t }

// SetDoctrines swaps the doctrine source. nil restores the defaults.
func (d *Director) SetDoctrines(src DoctrineSource) {
	if src == nil {
		src = DefaultDoctrines()
	}
	d.doctrines = src
}

// Reset forgets cooldowns and the advantage holder. Used after a load or reseed.
func (d *Director) Reset() {
	d.acc = 0
	d.lastReinforce = [2]float64{}
	d.leader = war.NoFaction
}

// Advance accumulates simulated time and plans at most once per interval.
func (d *Director) Advance(dt time.Duration, now float64) (Report, bool) {
	if d.cfg.Interval <= 0 {
		return Report{}, false
	}
	d.acc += dt
	if d.acc < d.cfg.Interval {
		return Report{}, false
	}
	d.acc -= d.cfg.Interval
	if d.acc > d.cfg.Interval {
		d.acc = d.cfg.Interval
	}
	return d.Plan(now), true
}

// ScoreZones rates every non-home zone:
// bleed × (contested weight if contested) × (1 + nearby squads × nearby weight).
// Nearby squads of either faction count.
func ScoreZones(cfg config.DirectorConfig, zones []war.Zone, squads []*war.Squad) map[string]float64 {
	out := make(map[string]float64, len(zones))
	scoreInto(out, cfg, zones, squads)
	return out
}

func scoreInto(out map[string]float64, cfg config.DirectorConfig, zones []war.Zone, squads []*war.Squad) {
	clear(out)
	r2 := cfg.NearbyRadius * cfg.NearbyRadius
	for i := range zones {
		z := &zones[i]
		if z.HomeBase {
			continue
		}
		nearby := 0
		for _, sq := range squads {
			if sq.Strength() > 0 && war.Dist2XZ(sq.CenterX, sq.CenterZ, z.Pos.X, z.Pos.Z) <= r2 {
				nearby++
			}
		}
		s := z.BleedRate
		if z.Contested() {
			s *= cfg.ContestedWeight
		}
		out[z.ID] = s * (1 + float64(nearby)*cfg.NearbyWeight)
	}
}

// Plan runs one strategic pass immediately.
func (d *Director) Plan(now float64) Report {
	var rep Report
	var zones []war.Zone
	if d.zones != nil {
		zones = d.zones.Zones()
	}

	if len(zones) > 0 {
		scoreInto(d.scores, d.cfg, zones, d.roster.Squads())
		for _, f := range war.Factions {
			d.assign(f, zones, now, &rep)
		}
		for _, f := range war.Factions {
			d.reinforce(f, zones, now, &rep)
		}
	}
	d.checkAdvantage(now)

	d.log.Debug("director planned",
		zap.Int("attack", rep.Attack),
		zap.Int("defend", rep.Defend),
		zap.Int("patrol", rep.Patrol),
		zap.Int("retreat", rep.Retreat),
		zap.Int("spent", rep.Spent))
	return rep
}

func (d *Director) assign(f war.Faction, zones []war.Zone, now float64, rep *Report) {
	d.strong = d.strong[:0]
	d.weak = d.weak[:0]
	spent := 0
	for _, sq := range d.roster.Squads() {
		if sq.Faction != f {
			continue
		}
		switch s := sq.Strength(); {
		case s > d.cfg.StrongThreshold:
			d.strong = append(d.strong, sq)
		case s > d.cfg.SpentThreshold:
			d.weak = append(d.weak, sq)
		default:
			spent++
		}
	}
	rep.Spent += spent

	var attackTargets, defendTargets, patrolTargets, refuges []*war.Zone
	ctx := Context{Faction: f, Strong: len(d.strong), Weak: len(d.weak), Spent: spent, Elapsed: now}
	ctx.Alive, ctx.Total = d.roster.FactionCounts(f)
	for i := range zones {
		z := &zones[i]
		held := z.HeldBy(f)
		if held {
			refuges = append(refuges, z)
		}
		if z.HomeBase {
			if held {
				defendTargets = append(defendTargets, z)
			}
			continue
		}
		patrolTargets = append(patrolTargets, z)
		switch {
		case z.Contested():
			ctx.Contested++
			attackTargets = append(attackTargets, z)
			defendTargets = append(defendTargets, z)
		case held:
			ctx.Owned++
			defendTargets = append(defendTargets, z)
		case z.Owner == war.NoFaction:
			ctx.Neutral++
			attackTargets = append(attackTargets, z)
		default:
			ctx.Enemy++
			attackTargets = append(attackTargets, z)
		}
	}
	d.byScore(attackTargets)
	d.byScore(defendTargets)
	if len(patrolTargets) == 0 {
		for i := range zones {
			patrolTargets = append(patrolTargets, &zones[i])
		}
	}

	doctrine := d.doctrines.Doctrine(f, ctx)
	nAttack, nDefend, _ := doctrine.Split(len(d.strong))
	for i, sq := range d.strong {
		switch {
		case i < nAttack && len(attackTargets) > 0:
			d.order(sq, attackTargets[i%len(attackTargets)], war.Attack)
			rep.Attack++
		case i >= nAttack && i < nAttack+nDefend && len(defendTargets) > 0:
			d.order(sq, defendTargets[(i-nAttack)%len(defendTargets)], war.Defend)
			rep.Defend++
		default:
			d.order(sq, patrolTargets[d.rng.Intn(len(patrolTargets))], war.Patrol)
			rep.Patrol++
		}
	}

	for _, sq := range d.weak {
		if z := nearest(refuges, sq.CenterX, sq.CenterZ); z != nil {
			d.order(sq, z, war.Retreat)
			rep.Retreat++
		}
	}
}

// byScore sorts zones by descending score, then id for a stable order.
func (d *Director) byScore(zs []*war.Zone) {
	sort.SliceStable(zs, func(i, j int) bool {
		si, sj := d.scores[zs[i].ID], d.scores[zs[j].ID]
		if si != sj {
			return si > sj
		}
		return zs[i].ID < zs[j].ID
	})
}

func nearest(zs []*war.Zone, x, z float64) *war.Zone {
	var best *war.Zone
	bestD := math.Inf(1)
	for _, zone := range zs {
		if d2 := war.Dist2XZ(x, z, zone.Pos.X, zone.Pos.Z); d2 < bestD {
			best, bestD = zone, d2
		}
	}
	return best
}

// order points sq at zone and scatters each alive member's destination
// within the formation spread.
func (d *Director) order(sq *war.Squad, zone *war.Zone, stance war.Stance) {
	sq.Stance = stance
	sq.Objective = zone.ID
	sq.ObjectiveX = zone.Pos.X
	sq.ObjectiveZ = zone.Pos.Z
	d.roster.EachMember(sq, func(a *war.Agent) {
		if !a.Alive {
			return
		}
		ox, oz := d.disk(d.cfg.FormationSpread)
		a.DestX = zone.Pos.X + ox
		a.DestZ = zone.Pos.Z + oz
	})
}

// disk returns a uniform random offset inside a circle of radius r.
func (d *Director) disk(r float64) (float64, float64) {
	if r <= 0 {
		return 0, 0
	}
	ang := d.rng.Float64() * 2 * math.Pi
	rad := r * math.Sqrt(d.rng.Float64())
	return math.Cos(ang) * rad, math.Sin(ang) * rad
}

func (d *Director) reinforce(f war.Faction, zones []war.Zone, now float64, rep *Report) {
	if now-d.lastReinforce[f] < d.cfg.ReinforceCooldown.Seconds() {
		return
	}
	alive, total := d.roster.FactionCounts(f)
	if total == 0 || float64(alive)/float64(total) >= d.cfg.ReinforceBelow {
		return
	}
	var homes []*war.Zone
	for i := range zones {
		if zones[i].HomeBase && zones[i].Owner == f {
			homes = append(homes, &zones[i])
		}
	}
	if len(homes) == 0 {
		return
	}
	budget := min(d.cfg.ReinforceBatch, total-alive)
	if budget <= 0 {
		return
	}

	revived := 0
	touched := make(map[war.SquadID]*war.Zone)
	for _, a := range d.roster.Agents() {
		if revived >= budget {
			break
		}
		if a.Faction != f || a.Alive {
			continue
		}
		home := homes[revived%len(homes)]
		ang := d.rng.Float64() * 2 * math.Pi
		rad := d.cfg.RingMin + d.rng.Float64()*(d.cfg.RingMax-d.cfg.RingMin)
		pos := war.Vec3{X: home.Pos.X + math.Cos(ang)*rad, Y: home.Pos.Y, Z: home.Pos.Z + math.Sin(ang)*rad}
		if d.terrain != nil {
			pos.Y = d.terrain(pos.X, pos.Z)
		}
		if !d.roster.Revive(a, pos) {
			continue
		}
		revived++
		if _, ok := touched[a.SquadID]; !ok {
			touched[a.SquadID] = home
		}
	}
	if revived == 0 {
		return
	}
	for id, home := range touched {
		sq := d.roster.Squad(id)
		if sq == nil {
			continue
		}
		d.roster.Refresh(sq)
		sq.Stance = war.Reinforce
		sq.Objective = home.ID
		sq.ObjectiveX = home.Pos.X
		sq.ObjectiveZ = home.Pos.Z
	}

	d.lastReinforce[f] = now
	rep.Reinforced[f] = revived
	d.bus.Emit(event.ReinforcementsArriving{
		Stamp:   event.Stamp{Time: now},
		Faction: f,
		Count:   revived,
		ZoneID:  homes[0].ID,
		X:       homes[0].Pos.X,
		Z:       homes[0].Pos.Z,
	})
	d.log.Info("reinforcements arriving",
		zap.String("faction", f.String()),
		zap.Int("count", revived),
		zap.String("zone", homes[0].ID))
}

// checkAdvantage emits faction_advantage when a side newly reaches the
// configured alive ratio over the other.
func (d *Director) checkAdvantage(now float64) {
	blu, _ := d.roster.FactionCounts(war.Blufor)
	op, _ := d.roster.FactionCounts(war.Opfor)
	leader := war.NoFaction
	ratio := 0.0
	if r := float64(blu) / float64(max(op, 1)); blu > op && r >= d.cfg.AdvantageRatio {
		leader, ratio = war.Blufor, r
	} else if r := float64(op) / float64(max(blu, 1)); op > blu && r >= d.cfg.AdvantageRatio {
		leader, ratio = war.Opfor, r
	}
	if leader != d.leader && leader != war.NoFaction {
		d.bus.Emit(event.FactionAdvantage{
			Stamp:   event.Stamp{Time: now},
			Faction: leader,
			Ratio:   ratio,
		})
	}
	d.leader = leader
}
