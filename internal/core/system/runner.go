package system

import (
	"sort"
	"time"
)

// Runner executes systems in phase order each tick. Systems sharing a phase
// run in registration order.
type Runner struct {
	systems []System
	sorted  bool
}

func NewRunner() *Runner {
	return &Runner{
		systems: make([]System, 0, 8),
	}
}

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.sorted = false
}

// Len is the number of registered systems.
func (r *Runner) Len() int { return len(r.systems) }

// Tick runs every system.
func (r *Runner) Tick(dt time.Duration) {
	r.TickWhere(nil, dt)
}

// TickPhase runs only the systems registered for phase.
func (r *Runner) TickPhase(phase Phase, dt time.Duration) {
	r.TickWhere(func(p Phase) bool { return p == phase }, dt)
}

// TickWhere runs, in order, every system whose phase satisfies allow. A nil
// allow admits all phases. An ended match still materializes and flushes
// through this.
func (r *Runner) TickWhere(allow func(Phase) bool, dt time.Duration) {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Phase() < r.systems[j].Phase()
		})
		r.sorted = true
	}
	for _, s := range r.systems {
		if allow == nil || allow(s.Phase()) {
			s.Update(dt)
		}
	}
}
