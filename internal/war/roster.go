package war

import (
	"math"
	"math/rand"
	"sort"
)

// FactionTally is the per-faction running score.
type FactionTally struct {
	Faction Faction `json:"faction"`
	Tickets int     `json:"tickets"`
	Kills   int     `json:"kills"`
	Deaths  int     `json:"deaths"`
}

// Roster owns the agent and squad tables. It is created once by the
// orchestrator and shared by reference with every subsystem.
// Accessed only from the simulation goroutine, no locks needed.
type Roster struct {
	agents    []*Agent
	agentByID map[AgentID]*Agent
	squads    []*Squad
	squadByID map[SquadID]*Squad
	tallies   [2]FactionTally

	nextAgent AgentID
	nextSquad SquadID

	mapBuf []float32
}

func NewRoster() *Roster {
	r := &Roster{}
	r.Reset()
	return r
}

// Reset destroys both tables wholesale.
func (r *Roster) Reset() {
	r.agents = r.agents[:0]
	r.agentByID = make(map[AgentID]*Agent, 1024)
	r.squads = r.squads[:0]
	r.squadByID = make(map[SquadID]*Squad, 128)
	r.tallies = [2]FactionTally{{Faction: Blufor}, {Faction: Opfor}}
	r.nextAgent = 1
	r.nextSquad = 1
	r.mapBuf = r.mapBuf[:0]
}

// Agents returns every agent in id order. The slice is shared.
func (r *Roster) Agents() []*Agent { return r.agents }

// Squads returns every squad in id order. The slice is shared.
func (r *Roster) Squads() []*Squad { return r.squads }

func (r *Roster) Agent(id AgentID) *Agent { return r.agentByID[id] }

func (r *Roster) Squad(id SquadID) *Squad { return r.squadByID[id] }

func (r *Roster) Count() int { return len(r.agents) }

func (r *Roster) AliveCount() int {
	n := 0
	for _, a := range r.agents {
		if a.Alive {
			n++
		}
	}
	return n
}

// FactionCounts returns alive and total agents for f.
func (r *Roster) FactionCounts(f Faction) (alive, total int) {
	for _, a := range r.agents {
		if a.Faction != f {
			continue
		}
		total++
		if a.Alive {
			alive++
		}
	}
	return alive, total
}

func (r *Roster) MaterializedCount() int {
	n := 0
	for _, a := range r.agents {
		if a.tier == Materialized {
			n++
		}
	}
	return n
}

// EachMember calls fn for every member of sq that has a matching agent.
// Unknown member ids are skipped.
func (r *Roster) EachMember(sq *Squad, fn func(*Agent)) {
	for _, id := range sq.members {
		if a := r.agentByID[id]; a != nil {
			fn(a)
		}
	}
}

// Tally returns a copy of the running score for f.
func (r *Roster) Tally(f Faction) FactionTally {
	if !f.Valid() {
		return FactionTally{Faction: f}
	}
	return r.tallies[f]
}

func (r *Roster) recordDeath(f Faction) {
	if !f.Valid() {
		return
	}
	r.tallies[f].Deaths++
	r.tallies[f.Enemy()].Kills++
}

// Kill marks a non-materialized agent dead. Materialized agents belong to the
// external combat layer and are never killed here.
func (r *Roster) Kill(a *Agent) bool {
	if a == nil || !a.Alive || a.tier == Materialized {
		return false
	}
	a.Alive = false
	a.Health = 0
	a.State = Dead
	r.recordDeath(a.Faction)
	return true
}

// Revive brings a dead, unlinked agent back at pos as a fresh STRATEGIC record.
func (r *Roster) Revive(a *Agent, pos Vec3) bool {
	if a == nil || a.Alive || a.tier == Materialized {
		return false
	}
	a.Alive = true
	a.Health = MaxHealth
	a.State = Idle
	a.Pos = pos
	a.DestX, a.DestZ = pos.X, pos.Z
	a.tier = Strategic
	a.link = 0
	return true
}

// Refresh recomputes strength and centroid of sq from its alive members and
// returns the strength it had before.
func (r *Roster) Refresh(sq *Squad) float64 {
	prev := sq.strength
	if len(sq.members) == 0 {
		sq.strength = 0
		return prev
	}
	var alive int
	var sx, sz float64
	leaderAlive := false
	for _, id := range sq.members {
		a := r.agentByID[id]
		if a == nil || !a.Alive {
			continue
		}
		alive++
		sx += a.Pos.X
		sz += a.Pos.Z
		if id == sq.LeaderID {
			leaderAlive = true
		}
	}
	sq.strength = float64(alive) / float64(len(sq.members))
	if alive > 0 {
		sq.CenterX = sx / float64(alive)
		sq.CenterZ = sz / float64(alive)
	}
	if !leaderAlive && alive > 0 {
		r.promoteLeader(sq)
	}
	return prev
}

func (r *Roster) promoteLeader(sq *Squad) {
	if old := r.agentByID[sq.LeaderID]; old != nil {
		old.Leader = false
	}
	for _, id := range sq.members {
		if a := r.agentByID[id]; a != nil && a.Alive {
			a.Leader = true
			sq.LeaderID = id
			return
		}
	}
}

// RefreshSquads recomputes every squad and returns those that just dropped to
// zero strength while combat-active.
func (r *Roster) RefreshSquads() []*Squad {
	var wiped []*Squad
	for _, sq := range r.squads {
		prev := r.Refresh(sq)
		if prev > 0 && sq.strength == 0 && sq.CombatActive {
			wiped = append(wiped, sq)
		}
	}
	return wiped
}

// MapBuffer returns [factionCode, x, z, tierCode] for every alive agent. The
// backing array is reused between calls and only grows, so steady-state calls
// do not allocate. The slice is valid until the next call.
func (r *Roster) MapBuffer() []float32 {
	buf := r.mapBuf[:0]
	for _, a := range r.agents {
		if !a.Alive {
			continue
		}
		buf = append(buf, float32(a.Faction), float32(a.Pos.X), float32(a.Pos.Z), float32(a.tier))
	}
	r.mapBuf = buf
	return buf
}

// SpawnConfig controls the one-time bulk bootstrap.
type SpawnConfig struct {
	AgentsPerFaction int
	SquadSize        int
	Speed            float64
	HomeShare        float64
	OwnedShare       float64
	FrontlineShare   float64
	Spread           float64
}

// Spawn resets both tables and creates every faction's forces across zones.
// Calling it again with the same zones yields the same population.
// Returns the number of agents created.
func (r *Roster) Spawn(zones []Zone, cfg SpawnConfig, rng *rand.Rand, terrain TerrainFunc) int {
	r.Reset()
	if len(zones) == 0 || cfg.AgentsPerFaction <= 0 {
		return 0
	}
	if cfg.SquadSize <= 0 {
		cfg.SquadSize = 10
	}
	if cfg.Speed <= 0 {
		cfg.Speed = 4
	}
	for _, f := range Factions {
		nSquads := (cfg.AgentsPerFaction + cfg.SquadSize - 1) / cfg.SquadSize
		slots := allocateSlots(zones, f, nSquads, cfg)
		remaining := cfg.AgentsPerFaction
		for i := 0; i < nSquads; i++ {
			size := cfg.SquadSize
			if remaining < size {
				size = remaining
			}
			remaining -= size
			r.spawnSquad(f, slots[i], size, cfg, rng, terrain)
		}
	}
	if cap(r.mapBuf) < 4*len(r.agents) {
		r.mapBuf = make([]float32, 0, 4*len(r.agents))
	}
	return len(r.agents)
}

type spawnSlot struct {
	zone   *Zone
	stance Stance
}

func (r *Roster) spawnSquad(f Faction, slot spawnSlot, size int, cfg SpawnConfig, rng *rand.Rand, terrain TerrainFunc) {
	z := slot.zone
	sq := &Squad{
		ID:         r.nextSquad,
		Faction:    f,
		Stance:     slot.stance,
		Objective:  z.ID,
		ObjectiveX: z.Pos.X,
		ObjectiveZ: z.Pos.Z,
		members:    make([]AgentID, 0, size),
	}
	r.nextSquad++

	spread := cfg.Spread
	if z.Radius > 0 && z.Radius < spread {
		spread = z.Radius
	}
	// squads fan out around the zone so they don't all stack on the centre
	cx, cz := z.Pos.X, z.Pos.Z
	if spread > 0 {
		ang := rng.Float64() * 2 * math.Pi
		rad := rng.Float64() * spread
		cx += math.Cos(ang) * rad
		cz += math.Sin(ang) * rad
	}

	for i := 0; i < size; i++ {
		x := cx + (rng.Float64()*2-1)*10
		zz := cz + (rng.Float64()*2-1)*10
		y := z.Pos.Y
		if terrain != nil {
			y = terrain(x, zz)
		}
		a := &Agent{
			ID:      r.nextAgent,
			Faction: f,
			Pos:     Vec3{X: x, Y: y, Z: zz},
			Health:  MaxHealth,
			Alive:   true,
			SquadID: sq.ID,
			Leader:  i == 0,
			DestX:   x,
			DestZ:   zz,
			Speed:   cfg.Speed,
			State:   Idle,
			tier:    Strategic,
		}
		r.nextAgent++
		if i == 0 {
			sq.LeaderID = a.ID
		}
		sq.members = append(sq.members, a.ID)
		r.agents = append(r.agents, a)
		r.agentByID[a.ID] = a
	}
	r.squads = append(r.squads, sq)
	r.squadByID[sq.ID] = sq
	r.Refresh(sq)
}

// allocateSlots decides the zone of each of f's n squads. At least HomeShare of
// them garrison the home base. Frontline slots go to contested/neutral zones by
// descending bleed rate, round-robin.
func allocateSlots(zones []Zone, f Faction, n int, cfg SpawnConfig) []spawnSlot {
	var home, owned, front []*Zone
	for i := range zones {
		z := &zones[i]
		switch {
		case z.HomeBase && z.Owner == f:
			home = append(home, z)
		case z.HomeBase:
			// enemy home base, never a spawn or frontline slot
		case z.Owner == f && !z.Contested():
			owned = append(owned, z)
		case z.Contested() || z.Owner == NoFaction:
			front = append(front, z)
		}
	}
	sort.SliceStable(front, func(i, j int) bool {
		if front[i].BleedRate != front[j].BleedRate {
			return front[i].BleedRate > front[j].BleedRate
		}
		return front[i].ID < front[j].ID
	})
	byID := func(zs []*Zone) {
		sort.SliceStable(zs, func(i, j int) bool { return zs[i].ID < zs[j].ID })
	}
	byID(home)
	byID(owned)

	// the home share is a floor reserved before the other shares are taken
	reserved := clampCount(int(math.Round(float64(n)*cfg.HomeShare)), 0, n)
	nFront := clampCount(int(math.Round(float64(n)*cfg.FrontlineShare)), 0, n-reserved)
	nOwned := clampCount(int(math.Round(float64(n)*cfg.OwnedShare)), 0, n-reserved-nFront)
	if len(front) == 0 {
		nOwned = clampCount(nOwned+nFront, 0, n-reserved)
		nFront = 0
	}
	if len(owned) == 0 {
		nOwned = 0
	}
	nHome := n - nFront - nOwned

	if len(home) == 0 {
		// no home base: garrison squads fall back to owned, frontline, then anything
		switch {
		case len(owned) > 0:
			home = owned
		case len(front) > 0:
			home = front
		default:
			for i := range zones {
				home = append(home, &zones[i])
			}
		}
	}

	slots := make([]spawnSlot, 0, n)
	for i := 0; i < nFront; i++ {
		slots = append(slots, spawnSlot{zone: front[i%len(front)], stance: Attack})
	}
	for i := 0; i < nOwned; i++ {
		slots = append(slots, spawnSlot{zone: owned[i%len(owned)], stance: Defend})
	}
	for i := 0; i < nHome; i++ {
		slots = append(slots, spawnSlot{zone: home[i%len(home)], stance: Defend})
	}
	return slots
}

func clampCount(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
