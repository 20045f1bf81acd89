package event

import "github.com/frontline/warsim/internal/war"

// Kind tags a WarEvent variant.
type Kind string

const (
	KindZoneCaptured           Kind = "zone_captured"
	KindZoneContested          Kind = "zone_contested"
	KindZoneLost               Kind = "zone_lost"
	KindSquadEngaged           Kind = "squad_engaged"
	KindSquadWiped             Kind = "squad_wiped"
	KindReinforcementsArriving Kind = "reinforcements_arriving"
	KindMajorBattle            Kind = "major_battle"
	KindFactionAdvantage       Kind = "faction_advantage"
	KindAgentKilled            Kind = "agent_killed"
)

// Event is a write-only war fact. The set of variants is closed: only types in
// this package implement it.
type Event interface {
	Kind() Kind
	At() float64 // simulated seconds
	sealed()
}

// Stamp is embedded by every variant.
type Stamp struct {
	Time float64 `json:"time"`
}

func (s Stamp) At() float64 { return s.Time }
func (Stamp) sealed()       {}

type ZoneCaptured struct {
	Stamp
	ZoneID   string      `json:"zoneId"`
	ZoneName string      `json:"zoneName"`
	Faction  war.Faction `json:"faction"`
}

type ZoneContested struct {
	Stamp
	ZoneID   string      `json:"zoneId"`
	ZoneName string      `json:"zoneName"`
	Holder   war.Faction `json:"holder"`
}

type ZoneLost struct {
	Stamp
	ZoneID   string      `json:"zoneId"`
	ZoneName string      `json:"zoneName"`
	Faction  war.Faction `json:"faction"` // the side that lost it
}

type SquadEngaged struct {
	Stamp
	SquadID war.SquadID `json:"squadId"`
	EnemyID war.SquadID `json:"enemyId"`
	Faction war.Faction `json:"faction"`
	X       float64     `json:"x"`
	Z       float64     `json:"z"`
}

type SquadWiped struct {
	Stamp
	SquadID war.SquadID `json:"squadId"`
	Faction war.Faction `json:"faction"`
	X       float64     `json:"x"`
	Z       float64     `json:"z"`
}

type ReinforcementsArriving struct {
	Stamp
	Faction war.Faction `json:"faction"`
	Count   int         `json:"count"`
	ZoneID  string      `json:"zoneId"`
	X       float64     `json:"x"`
	Z       float64     `json:"z"`
}

type MajorBattle struct {
	Stamp
	X         float64 `json:"x"`
	Z         float64 `json:"z"`
	Intensity float64 `json:"intensity"` // 0..1
}

type FactionAdvantage struct {
	Stamp
	Faction war.Faction `json:"faction"`
	Ratio   float64     `json:"ratio"`
}

type AgentKilled struct {
	Stamp
	AgentID war.AgentID `json:"agentId"`
	SquadID war.SquadID `json:"squadId"`
	Faction war.Faction `json:"faction"`
	X       float64     `json:"x"`
	Z       float64     `json:"z"`
}

func (ZoneCaptured) Kind() Kind           { return KindZoneCaptured }
func (ZoneContested) Kind() Kind          { return KindZoneContested }
func (ZoneLost) Kind() Kind               { return KindZoneLost }
func (SquadEngaged) Kind() Kind           { return KindSquadEngaged }
func (SquadWiped) Kind() Kind             { return KindSquadWiped }
func (ReinforcementsArriving) Kind() Kind { return KindReinforcementsArriving }
func (MajorBattle) Kind() Kind            { return KindMajorBattle }
func (FactionAdvantage) Kind() Kind       { return KindFactionAdvantage }
func (AgentKilled) Kind() Kind            { return KindAgentKilled }
