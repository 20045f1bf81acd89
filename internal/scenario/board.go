// Package scenario provides headless stand-ins for the collaborators a game
// host normally supplies: a zone board with presence capture, a match with
// tickets and phases, and a puppet combat layer for materialized agents.
package scenario

import (
	"github.com/frontline/warsim/internal/war"
)

// Board owns capture zones and flips them by agent presence.
type Board struct {
	zones          []war.Zone
	captureSeconds float64
	present        [][2]int
}

// NewBoard copies zones. captureSeconds is the time one uncontested faction
// needs inside a zone to take it.
func NewBoard(zones []war.Zone, captureSeconds float64) *Board {
	if captureSeconds <= 0 {
		captureSeconds = 30
	}
	b := &Board{
		zones:          append([]war.Zone(nil), zones...),
		captureSeconds: captureSeconds,
		present:        make([][2]int, len(zones)),
	}
	return b
}

// Zones returns the live zone slice. Callers must not modify it.
func (b *Board) Zones() []war.Zone { return b.zones }

// Holdings counts the zones f owns.
func (b *Board) Holdings(f war.Faction) int {
	n := 0
	for i := range b.zones {
		if b.zones[i].Owner == f {
			n++
		}
	}
	return n
}

// Update counts alive agents inside each zone and advances capture.
// Returns the number of zones that changed owner.
func (b *Board) Update(dt float64, agents []*war.Agent) int {
	for i := range b.present {
		b.present[i] = [2]int{}
	}
	for _, a := range agents {
		if !a.Alive || !a.Faction.Valid() {
			continue
		}
		for i := range b.zones {
			z := &b.zones[i]
			if a.Pos.Dist2XZ(z.Pos) <= z.Radius*z.Radius {
				b.present[i][a.Faction]++
			}
		}
	}

	rate := dt / b.captureSeconds
	flips := 0
	for i := range b.zones {
		if b.capture(&b.zones[i], b.present[i], rate) {
			flips++
		}
	}
	return flips
}

func (b *Board) capture(z *war.Zone, present [2]int, rate float64) bool {
	blu, op := present[war.Blufor] > 0, present[war.Opfor] > 0
	switch {
	case blu && op:
		z.State = war.ZoneContested
		return false
	case !blu && !op:
		z.CaptureProgress = max(z.CaptureProgress-rate, 0)
		z.State = settled(z.Owner)
		return false
	}

	taker := war.Blufor
	if op {
		taker = war.Opfor
	}
	if taker == z.Owner || z.HomeBase {
		z.CaptureProgress = max(z.CaptureProgress-rate, 0)
		z.State = settled(z.Owner)
		return false
	}

	z.CaptureProgress += rate
	if z.Owner.Valid() {
		z.State = war.ZoneContested
	}
	if z.CaptureProgress < 1 {
		return false
	}
	z.Owner = taker
	z.State = war.ZoneControlled
	z.CaptureProgress = 0
	return true
}

func settled(owner war.Faction) war.ZoneState {
	if owner.Valid() {
		return war.ZoneControlled
	}
	return war.ZoneNeutral
}
