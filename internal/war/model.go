package war

import (
	"fmt"
	"math"
)

// Faction identifies one side of the war. The numeric value doubles as the
// faction code in the map position buffer.
type Faction uint8

const (
	Blufor Faction = iota
	Opfor
	NoFaction
)

// Factions lists the two playable sides in code order.
var Factions = [2]Faction{Blufor, Opfor}

func (f Faction) String() string {
	switch f {
	case Blufor:
		return "blufor"
	case Opfor:
		return "opfor"
	default:
		return "none"
	}
}

// Enemy returns the opposing faction. NoFaction has no enemy.
func (f Faction) Enemy() Faction {
	switch f {
	case Blufor:
		return Opfor
	case Opfor:
		return Blufor
	default:
		return NoFaction
	}
}

// Valid reports whether f is one of the two playable sides.
func (f Faction) Valid() bool { return f == Blufor || f == Opfor }

func (f Faction) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *Faction) UnmarshalText(b []byte) error {
	switch string(b) {
	case "blufor":
		*f = Blufor
	case "opfor":
		*f = Opfor
	case "none", "":
		*f = NoFaction
	default:
		return fmt.Errorf("unknown faction %q", b)
	}
	return nil
}

// Tier is an agent's fidelity level. The numeric value is the tier code in the
// map position buffer.
type Tier uint8

const (
	Materialized Tier = iota // full entity owned by the external combat layer
	Simulated                // lerped position, terrain snapped
	Strategic                // counter-only
)

func (t Tier) String() string {
	switch t {
	case Materialized:
		return "materialized"
	case Simulated:
		return "simulated"
	default:
		return "strategic"
	}
}

func (t Tier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Tier) UnmarshalText(b []byte) error {
	switch string(b) {
	case "materialized":
		*t = Materialized
	case "simulated":
		*t = Simulated
	case "strategic", "":
		*t = Strategic
	default:
		return fmt.Errorf("unknown tier %q", b)
	}
	return nil
}

type CombatState uint8

const (
	Idle CombatState = iota
	Moving
	Fighting
	Dead
)

var combatStateNames = [...]string{"idle", "moving", "fighting", "dead"}

func (s CombatState) String() string {
	if int(s) < len(combatStateNames) {
		return combatStateNames[s]
	}
	return "idle"
}

func (s CombatState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *CombatState) UnmarshalText(b []byte) error {
	for i, name := range combatStateNames {
		if name == string(b) {
			*s = CombatState(i)
			return nil
		}
	}
	return fmt.Errorf("unknown combat state %q", b)
}

type Stance uint8

const (
	Attack Stance = iota
	Defend
	Patrol
	Retreat
	Reinforce
)

var stanceNames = [...]string{"attack", "defend", "patrol", "retreat", "reinforce"}

func (s Stance) String() string {
	if int(s) < len(stanceNames) {
		return stanceNames[s]
	}
	return "patrol"
}

func (s Stance) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Stance) UnmarshalText(b []byte) error {
	for i, name := range stanceNames {
		if name == string(b) {
			*s = Stance(i)
			return nil
		}
	}
	return fmt.Errorf("unknown stance %q", b)
}

type Vec3 struct {
	X, Y, Z float64
}

// Dist2XZ returns the squared ground-plane distance between two points.
func Dist2XZ(ax, az, bx, bz float64) float64 {
	dx := ax - bx
	dz := az - bz
	return dx*dx + dz*dz
}

func (v Vec3) Dist2XZ(o Vec3) float64 { return Dist2XZ(v.X, v.Z, o.X, o.Z) }

type AgentID uint32
type SquadID uint32

// LinkID references an entity owned by the external combat layer.
type LinkID uint64

// MaxHealth is the health a freshly spawned or revived agent starts with.
const MaxHealth = 100.0

// Agent is one lightweight combatant record.
//
// tier and link are written only by the materialization pipeline and by the
// roster's bulk spawn/restore paths; everything else reads them through Tier()
// and Link().
type Agent struct {
	ID      AgentID
	Faction Faction
	Pos     Vec3
	Health  float64
	Alive   bool
	SquadID SquadID
	Leader  bool
	DestX   float64
	DestZ   float64
	Speed   float64
	State   CombatState

	tier Tier
	link LinkID
}

func (a *Agent) Tier() Tier { return a.tier }

// Link returns the combat-layer entity id while the agent is materialized.
func (a *Agent) Link() (LinkID, bool) {
	return a.link, a.tier == Materialized && a.link != 0
}

// HasDestination reports whether the agent is further than one metre from its
// destination.
func (a *Agent) HasDestination() bool {
	return Dist2XZ(a.Pos.X, a.Pos.Z, a.DestX, a.DestZ) > 1
}

// Squad is a fixed group of agents sharing one objective and stance.
type Squad struct {
	ID         SquadID
	Faction    Faction
	LeaderID   AgentID
	CenterX    float64
	CenterZ    float64
	Stance     Stance
	Objective  string // zone id
	ObjectiveX float64
	ObjectiveZ float64

	// CombatActive is recomputed on every resolver fire, never sticky.
	CombatActive bool
	LastCombat   float64

	members  []AgentID
	strength float64
}

// Members returns the squad roster. The slice is shared; callers must not modify it.
func (s *Squad) Members() []AgentID { return s.members }

// Size is the total member count, alive or not.
func (s *Squad) Size() int { return len(s.members) }

// Strength is alive members over total members, in [0,1].
func (s *Squad) Strength() float64 { return s.strength }

// AliveMembers derives the alive count from strength without walking members.
func (s *Squad) AliveMembers() int {
	return int(math.Round(s.strength * float64(len(s.members))))
}
