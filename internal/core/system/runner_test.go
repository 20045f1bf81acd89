package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type probe struct {
	name  string
	phase Phase
	log   *[]string
}

func (p probe) Phase() Phase { return p.phase }

func (p probe) Update(time.Duration) { *p.log = append(*p.log, p.name) }

func TestRunnerOrdersByPhaseStable(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(probe{"flush", PhaseFlush, &log})
	r.Register(probe{"combat", PhaseCombat, &log})
	r.Register(probe{"zones", PhaseStrategy, &log})
	r.Register(probe{"director", PhaseStrategy, &log})
	r.Register(probe{"lod", PhaseMaterialize, &log})

	r.Tick(time.Millisecond)
	assert.Equal(t, []string{"lod", "combat", "zones", "director", "flush"}, log)
	assert.Equal(t, 5, r.Len())
}

func TestRunnerTickWhere(t *testing.T) {
	var log []string
	r := NewRunner()
	for p := PhaseMaterialize; p <= PhaseFlush; p++ {
		r.Register(probe{p.String(), p, &log})
	}
	r.TickWhere(func(p Phase) bool { return p == PhaseMaterialize || p == PhaseFlush }, 0)
	assert.Equal(t, []string{"materialize", "flush"}, log)

	log = log[:0]
	r.TickPhase(PhaseCombat, 0)
	assert.Equal(t, []string{"combat"}, log)
}
