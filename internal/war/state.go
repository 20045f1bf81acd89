package war

import (
	"errors"
	"fmt"
	"time"
)

// SchemaVersion is bumped whenever WarState changes shape incompatibly.
const SchemaVersion = 1

// ErrSchemaMismatch is returned by Restore for states written by another schema.
var ErrSchemaMismatch = errors.New("war state schema mismatch")

// WarState is the serializable snapshot of the whole simulation.
type WarState struct {
	SchemaVersion int            `json:"schemaVersion"`
	Timestamp     int64          `json:"timestamp"` // unix millis
	ElapsedTime   float64        `json:"elapsedTime"`
	Agents        []AgentRecord  `json:"agents"`
	Squads        []SquadRecord  `json:"squads"`
	Factions      []FactionTally `json:"factions"`
	Zones         []ZoneRecord   `json:"zones"`
	Player        PlayerRecord   `json:"player"`
}

type AgentRecord struct {
	ID      AgentID     `json:"id"`
	Faction Faction     `json:"faction"`
	X       float64     `json:"x"`
	Y       float64     `json:"y"`
	Z       float64     `json:"z"`
	Health  float64     `json:"health"`
	Alive   bool        `json:"alive"`
	Tier    Tier        `json:"tier"`
	SquadID SquadID     `json:"squadId"`
	Leader  bool        `json:"leader,omitempty"`
	DestX   float64     `json:"destX"`
	DestZ   float64     `json:"destZ"`
	Speed   float64     `json:"speed"`
	State   CombatState `json:"state"`
}

type SquadRecord struct {
	ID           SquadID   `json:"id"`
	Faction      Faction   `json:"faction"`
	Members      []AgentID `json:"members"`
	LeaderID     AgentID   `json:"leaderId"`
	CenterX      float64   `json:"centerX"`
	CenterZ      float64   `json:"centerZ"`
	Objective    string    `json:"objective"`
	ObjectiveX   float64   `json:"objectiveX"`
	ObjectiveZ   float64   `json:"objectiveZ"`
	Stance       Stance    `json:"stance"`
	Strength     float64   `json:"strength"`
	CombatActive bool      `json:"combatActive"`
	LastCombat   float64   `json:"lastCombat"`
}

type ZoneRecord struct {
	ID              string    `json:"id"`
	Owner           Faction   `json:"owner"`
	State           ZoneState `json:"state"`
	CaptureProgress float64   `json:"captureProgress"`
}

type PlayerRecord struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Snapshot captures the tables plus the supplied context. tickets may be nil.
func (r *Roster) Snapshot(elapsed float64, savedAt time.Time, zones []Zone, player Vec3, tickets TicketReader) *WarState {
	st := &WarState{
		SchemaVersion: SchemaVersion,
		Timestamp:     savedAt.UnixMilli(),
		ElapsedTime:   elapsed,
		Agents:        make([]AgentRecord, 0, len(r.agents)),
		Squads:        make([]SquadRecord, 0, len(r.squads)),
		Factions:      make([]FactionTally, 0, len(r.tallies)),
		Zones:         make([]ZoneRecord, 0, len(zones)),
		Player:        PlayerRecord{X: player.X, Y: player.Y, Z: player.Z},
	}
	for _, a := range r.agents {
		st.Agents = append(st.Agents, AgentRecord{
			ID:      a.ID,
			Faction: a.Faction,
			X:       a.Pos.X,
			Y:       a.Pos.Y,
			Z:       a.Pos.Z,
			Health:  a.Health,
			Alive:   a.Alive,
			Tier:    a.tier,
			SquadID: a.SquadID,
			Leader:  a.Leader,
			DestX:   a.DestX,
			DestZ:   a.DestZ,
			Speed:   a.Speed,
			State:   a.State,
		})
	}
	for _, sq := range r.squads {
		members := make([]AgentID, len(sq.members))
		copy(members, sq.members)
		st.Squads = append(st.Squads, SquadRecord{
			ID:           sq.ID,
			Faction:      sq.Faction,
			Members:      members,
			LeaderID:     sq.LeaderID,
			CenterX:      sq.CenterX,
			CenterZ:      sq.CenterZ,
			Objective:    sq.Objective,
			ObjectiveX:   sq.ObjectiveX,
			ObjectiveZ:   sq.ObjectiveZ,
			Stance:       sq.Stance,
			Strength:     sq.strength,
			CombatActive: sq.CombatActive,
			LastCombat:   sq.LastCombat,
		})
	}
	for _, t := range r.tallies {
		if tickets != nil {
			t.Tickets = tickets.Tickets(t.Faction)
		}
		st.Factions = append(st.Factions, t)
	}
	for _, z := range zones {
		st.Zones = append(st.Zones, ZoneRecord{
			ID:              z.ID,
			Owner:           z.Owner,
			State:           z.State,
			CaptureProgress: z.CaptureProgress,
		})
	}
	return st
}

// Restore replaces both tables with the content of st. A mismatched schema
// leaves the current tables untouched. Every restored agent comes back
// STRATEGIC and unlinked, every squad combat-inactive.
func (r *Roster) Restore(st *WarState) error {
	if st == nil {
		return errors.New("restore: nil state")
	}
	if st.SchemaVersion != SchemaVersion {
		return fmt.Errorf("%w: got %d, want %d", ErrSchemaMismatch, st.SchemaVersion, SchemaVersion)
	}

	agents := make([]*Agent, 0, len(st.Agents))
	byID := make(map[AgentID]*Agent, len(st.Agents))
	var maxAgent AgentID
	for _, rec := range st.Agents {
		if _, dup := byID[rec.ID]; dup || rec.ID == 0 {
			continue
		}
		a := &Agent{
			ID:      rec.ID,
			Faction: rec.Faction,
			Pos:     Vec3{X: rec.X, Y: rec.Y, Z: rec.Z},
			Health:  rec.Health,
			Alive:   rec.Alive,
			SquadID: rec.SquadID,
			Leader:  rec.Leader,
			DestX:   rec.DestX,
			DestZ:   rec.DestZ,
			Speed:   rec.Speed,
			State:   rec.State,
			tier:    Strategic,
		}
		if !a.Alive {
			a.Health = 0
			a.State = Dead
		} else if a.State == Dead {
			a.State = Idle
		}
		agents = append(agents, a)
		byID[a.ID] = a
		if a.ID > maxAgent {
			maxAgent = a.ID
		}
	}

	squads := make([]*Squad, 0, len(st.Squads))
	squadByID := make(map[SquadID]*Squad, len(st.Squads))
	var maxSquad SquadID
	for _, rec := range st.Squads {
		if _, dup := squadByID[rec.ID]; dup || rec.ID == 0 {
			continue
		}
		members := make([]AgentID, 0, len(rec.Members))
		for _, id := range rec.Members {
			if byID[id] != nil {
				members = append(members, id)
			}
		}
		sq := &Squad{
			ID:         rec.ID,
			Faction:    rec.Faction,
			LeaderID:   rec.LeaderID,
			CenterX:    rec.CenterX,
			CenterZ:    rec.CenterZ,
			Objective:  rec.Objective,
			ObjectiveX: rec.ObjectiveX,
			ObjectiveZ: rec.ObjectiveZ,
			Stance:     rec.Stance,
			LastCombat: rec.LastCombat,
			members:    members,
		}
		squads = append(squads, sq)
		squadByID[sq.ID] = sq
		if sq.ID > maxSquad {
			maxSquad = sq.ID
		}
	}

	r.agents = agents
	r.agentByID = byID
	r.squads = squads
	r.squadByID = squadByID
	r.nextAgent = maxAgent + 1
	r.nextSquad = maxSquad + 1
	r.tallies = [2]FactionTally{{Faction: Blufor}, {Faction: Opfor}}
	for _, t := range st.Factions {
		if t.Faction.Valid() {
			r.tallies[t.Faction] = t
		}
	}
	for _, sq := range r.squads {
		r.Refresh(sq)
	}
	if cap(r.mapBuf) < 4*len(r.agents) {
		r.mapBuf = make([]float32, 0, 4*len(r.agents))
	}
	return nil
}
