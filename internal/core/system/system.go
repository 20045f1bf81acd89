package system

import "time"

// Phase defines execution ordering within a single simulation tick.
type Phase int

const (
	PhaseMaterialize Phase = iota // 0: tier promotion/demotion around the player
	PhaseMovement                 // 1: time-sliced movement + squad refresh
	PhaseCombat                   // 2: abstract combat resolver
	PhaseStrategy                 // 3: zone watch + director
	PhasePersist                  // 4: auto-save
	PhaseFlush                    // 5: deliver queued events
)

var phaseNames = [...]string{"materialize", "movement", "combat", "strategy", "persist", "flush"}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// System is the interface every simulation system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
