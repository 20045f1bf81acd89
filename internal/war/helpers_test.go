package war

import (
	"errors"
	"math/rand"
)

// addSquad appends a squad of alive STRATEGIC agents at the given positions.
func addSquad(r *Roster, f Faction, positions ...Vec3) *Squad {
	sq := &Squad{ID: r.nextSquad, Faction: f}
	r.nextSquad++
	for i, p := range positions {
		a := &Agent{
			ID:      r.nextAgent,
			Faction: f,
			Pos:     p,
			Health:  MaxHealth,
			Alive:   true,
			SquadID: sq.ID,
			Leader:  i == 0,
			DestX:   p.X,
			DestZ:   p.Z,
			Speed:   4,
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
	return sq
}

type fakeLayer struct {
	next      LinkID
	entities  map[LinkID]EntityState
	spawned   int
	despawned int
	failSpawn bool
}

func newFakeLayer() *fakeLayer {
	return &fakeLayer{entities: make(map[LinkID]EntityState)}
}

func (f *fakeLayer) Spawn(a *Agent) (LinkID, error) {
	if f.failSpawn {
		return 0, errors.New("combat layer full")
	}
	f.next++
	f.entities[f.next] = EntityState{Pos: a.Pos, Health: a.Health, Alive: true, State: a.State}
	f.spawned++
	return f.next, nil
}

func (f *fakeLayer) Despawn(l LinkID) {
	delete(f.entities, l)
	f.despawned++
}

func (f *fakeLayer) Entity(l LinkID) (EntityState, bool) {
	st, ok := f.entities[l]
	return st, ok
}

func testZones() []Zone {
	return []Zone{
		{ID: "blufor_hq", Pos: Vec3{X: 0}, Radius: 50, Owner: Blufor, State: ZoneControlled, HomeBase: true},
		{ID: "opfor_hq", Pos: Vec3{X: 4000}, Radius: 50, Owner: Opfor, State: ZoneControlled, HomeBase: true},
		{ID: "farm", Pos: Vec3{X: 1000}, Radius: 40, Owner: Blufor, State: ZoneControlled, BleedRate: 1},
		{ID: "depot", Pos: Vec3{X: 3000}, Radius: 40, Owner: Opfor, State: ZoneControlled, BleedRate: 1},
		{ID: "bridge", Pos: Vec3{X: 2000}, Radius: 40, Owner: Blufor, State: ZoneContested, BleedRate: 2},
		{ID: "village", Pos: Vec3{X: 2000, Z: 1000}, Radius: 40, Owner: NoFaction, State: ZoneNeutral, BleedRate: 1},
	}
}

func testSpawnConfig() SpawnConfig {
	return SpawnConfig{
		AgentsPerFaction: 100,
		SquadSize:        10,
		Speed:            4,
		HomeShare:        0.2,
		OwnedShare:       0.4,
		FrontlineShare:   0.4,
		Spread:           30,
	}
}

func testRand() *rand.Rand { return rand.New(rand.NewSource(7)) }
