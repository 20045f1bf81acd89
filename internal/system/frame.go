package system

import "github.com/frontline/warsim/internal/war"

// Frame is the per-tick context shared by the war systems. The orchestrator
// owns it and advances Elapsed before the runner ticks.
type Frame struct {
	Elapsed float64 // simulated seconds, advances only while the match is live
	Player  war.Vec3
	Ticks   uint64
}
