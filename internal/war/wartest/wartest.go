// Package wartest builds rosters and fake collaborators for tests in other
// packages.
package wartest

import (
	"errors"

	"github.com/frontline/warsim/internal/war"
)

// Squad describes one squad handed to Roster. Members start alive, idle,
// standing at their positions with no destination.
type Squad struct {
	Faction      war.Faction
	Stance       war.Stance
	Objective    string
	ObjectivePos war.Vec3
	Speed        float64
	Members      []war.Vec3
}

// Roster builds a roster through the restore path, so every agent starts
// STRATEGIC and unlinked. Squad ids are 1..n in argument order, agent ids
// are assigned in member order.
func Roster(squads ...Squad) *war.Roster {
	st := &war.WarState{SchemaVersion: war.SchemaVersion}
	var aid war.AgentID
	for i, s := range squads {
		speed := s.Speed
		if speed == 0 {
			speed = 4
		}
		rec := war.SquadRecord{
			ID:         war.SquadID(i + 1),
			Faction:    s.Faction,
			Stance:     s.Stance,
			Objective:  s.Objective,
			ObjectiveX: s.ObjectivePos.X,
			ObjectiveZ: s.ObjectivePos.Z,
		}
		for j, p := range s.Members {
			aid++
			st.Agents = append(st.Agents, war.AgentRecord{
				ID:      aid,
				Faction: s.Faction,
				X:       p.X,
				Y:       p.Y,
				Z:       p.Z,
				Health:  war.MaxHealth,
				Alive:   true,
				SquadID: rec.ID,
				Leader:  j == 0,
				DestX:   p.X,
				DestZ:   p.Z,
				Speed:   speed,
				State:   war.Idle,
			})
			rec.Members = append(rec.Members, aid)
			if j == 0 {
				rec.LeaderID = aid
			}
		}
		st.Squads = append(st.Squads, rec)
	}
	r := war.NewRoster()
	if err := r.Restore(st); err != nil {
		panic(err)
	}
	return r
}

// Line returns n points spaced step metres apart along X starting at origin.
func Line(origin war.Vec3, n int, step float64) []war.Vec3 {
	out := make([]war.Vec3, n)
	for i := range out {
		out[i] = origin
		out[i].X += float64(i) * step
	}
	return out
}

// Layer is an in-memory combat layer.
type Layer struct {
	Entities  map[war.LinkID]war.EntityState
	Spawned   int
	Despawned int
	Fail      bool

	next war.LinkID
}

func NewLayer() *Layer {
	return &Layer{Entities: make(map[war.LinkID]war.EntityState)}
}

func (l *Layer) Spawn(a *war.Agent) (war.LinkID, error) {
	if l.Fail {
		return 0, errors.New("wartest: spawn refused")
	}
	l.next++
	l.Entities[l.next] = war.EntityState{Pos: a.Pos, Health: a.Health, Alive: true, State: a.State}
	l.Spawned++
	return l.next, nil
}

func (l *Layer) Despawn(link war.LinkID) {
	delete(l.Entities, link)
	l.Despawned++
}

func (l *Layer) Entity(link war.LinkID) (war.EntityState, bool) {
	st, ok := l.Entities[link]
	return st, ok
}

// Zones is a static zone source.
type Zones []war.Zone

func (z Zones) Zones() []war.Zone { return z }

// Match is a recording match collaborator.
type Match struct {
	GamePhase war.GamePhase
	Deducted  [2]int
	Tickets   [2]int
}

func (m *Match) Phase() war.GamePhase { return m.GamePhase }

func (m *Match) Active() bool { return m.GamePhase == war.PhaseCombat }

func (m *Match) DeductTicket(f war.Faction) {
	if f.Valid() {
		m.Deducted[f]++
		m.Tickets[f]--
	}
}
