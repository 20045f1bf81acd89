package director

import (
	"github.com/frontline/warsim/internal/core/event"
	"github.com/frontline/warsim/internal/war"
)

type zoneMark struct {
	owner war.Faction
	state war.ZoneState
}

// ZoneWatch turns zone ownership changes reported by the zone collaborator
// into war events. The first observation of a zone only records it.
type ZoneWatch struct {
	bus  *event.Bus
	seen map[string]zoneMark
}

func NewZoneWatch(bus *event.Bus) *ZoneWatch {
	return &ZoneWatch{bus: bus, seen: make(map[string]zoneMark)}
}

// Reset forgets every observed zone.
func (w *ZoneWatch) Reset() { clear(w.seen) }

// Observe diffs zones against the previous call and returns the number of
// events emitted.
func (w *ZoneWatch) Observe(zones []war.Zone, now float64) int {
	n := 0
	stamp := event.Stamp{Time: now}
	for i := range zones {
		z := &zones[i]
		cur := zoneMark{owner: z.Owner, state: z.State}
		prev, ok := w.seen[z.ID]
		w.seen[z.ID] = cur
		if !ok || prev == cur {
			continue
		}
		if cur.state == war.ZoneContested && prev.state != war.ZoneContested {
			w.bus.Emit(event.ZoneContested{Stamp: stamp, ZoneID: z.ID, ZoneName: z.Name, Holder: z.Owner})
			n++
		}
		if cur.owner == prev.owner {
			continue
		}
		if prev.owner.Valid() {
			w.bus.Emit(event.ZoneLost{Stamp: stamp, ZoneID: z.ID, ZoneName: z.Name, Faction: prev.owner})
			n++
		}
		if cur.owner.Valid() {
			w.bus.Emit(event.ZoneCaptured{Stamp: stamp, ZoneID: z.ID, ZoneName: z.Name, Faction: cur.owner})
			n++
		}
	}
	return n
}
