package war

import "fmt"

// GamePhase is the match phase reported by the external game-mode system.
type GamePhase uint8

const (
	PhaseSetup GamePhase = iota
	PhaseCombat
	PhaseEnded
)

func (p GamePhase) String() string {
	switch p {
	case PhaseSetup:
		return "setup"
	case PhaseCombat:
		return "combat"
	default:
		return "ended"
	}
}

// MatchControl is the game-phase and ticket collaborator.
type MatchControl interface {
	Phase() GamePhase
	DeductTicket(f Faction)
	Active() bool
}

// TicketReader is an optional capability of a MatchControl, used to capture
// ticket counts in saves.
type TicketReader interface {
	Tickets(f Faction) int
}

type ZoneState uint8

const (
	ZoneNeutral ZoneState = iota
	ZoneControlled
	ZoneContested
)

var zoneStateNames = [...]string{"neutral", "controlled", "contested"}

func (s ZoneState) String() string {
	if int(s) < len(zoneStateNames) {
		return zoneStateNames[s]
	}
	return "neutral"
}

func (s ZoneState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *ZoneState) UnmarshalText(b []byte) error {
	for i, name := range zoneStateNames {
		if name == string(b) {
			*s = ZoneState(i)
			return nil
		}
	}
	return fmt.Errorf("unknown zone state %q", b)
}

// Zone is the read-only view of a capture zone owned by the zone collaborator.
type Zone struct {
	ID              string    `json:"id" yaml:"id"`
	Name            string    `json:"name" yaml:"name"`
	Pos             Vec3      `json:"pos" yaml:"pos"`
	Radius          float64   `json:"radius" yaml:"radius"`
	Owner           Faction   `json:"owner" yaml:"owner"`
	State           ZoneState `json:"state" yaml:"state"`
	HomeBase        bool      `json:"homeBase" yaml:"home_base"`
	BleedRate       float64   `json:"bleedRate" yaml:"bleed_rate"`
	CaptureProgress float64   `json:"captureProgress" yaml:"capture_progress"`
}

// Contested reports whether the zone is currently being fought over.
func (z *Zone) Contested() bool { return z.State == ZoneContested }

// Neutral reports whether nobody holds the zone.
func (z *Zone) Neutral() bool { return z.Owner == NoFaction && z.State != ZoneContested }

// HeldBy reports whether f owns the zone.
func (z *Zone) HeldBy(f Faction) bool { return z.Owner == f }

// ZoneSource enumerates zones. Implementations return a fresh or stable slice;
// callers never modify it.
type ZoneSource interface {
	Zones() []Zone
}

// EntityState is what the combat layer reports about a materialized entity.
type EntityState struct {
	Pos    Vec3
	Health float64
	Alive  bool
	State  CombatState
}

// CombatLayer owns fully simulated entities.
type CombatLayer interface {
	Spawn(a *Agent) (LinkID, error)
	Despawn(link LinkID)
	Entity(link LinkID) (EntityState, bool)
}

// TerrainFunc returns ground height at (x, z).
type TerrainFunc func(x, z float64) float64

// FindZone returns the zone with the given id.
func FindZone(zones []Zone, id string) (*Zone, bool) {
	for i := range zones {
		if zones[i].ID == id {
			return &zones[i], true
		}
	}
	return nil, false
}
