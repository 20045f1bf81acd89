package sim

import (
	"math/rand"
	"time"

	"github.com/frontline/warsim/internal/director"
	"github.com/frontline/warsim/internal/persist"
	"github.com/frontline/warsim/internal/telemetry"
	"github.com/frontline/warsim/internal/war"
)

// Option wires an optional collaborator at configuration time.
type Option func(*options)

type options struct {
	match     war.MatchControl
	zones     war.ZoneSource
	layer     war.CombatLayer
	terrain   war.TerrainFunc
	saves     *persist.Manager
	doctrines director.DoctrineSource
	metrics   *telemetry.Metrics
	rng       *rand.Rand
	now       func() time.Time
}

// WithMatch supplies the game-phase and ticket collaborator.
func WithMatch(m war.MatchControl) Option { return func(o *options) { o.match = m } }

// WithZones supplies the capture-zone collaborator.
func WithZones(z war.ZoneSource) Option { return func(o *options) { o.zones = z } }

// WithCombatLayer supplies the full combat layer that owns materialized entities.
func WithCombatLayer(l war.CombatLayer) Option { return func(o *options) { o.layer = l } }

func WithTerrain(t war.TerrainFunc) Option { return func(o *options) { o.terrain = t } }

// WithSaves supplies the save manager. Without it saves live in memory only.
func WithSaves(m *persist.Manager) Option { return func(o *options) { o.saves = m } }

func WithDoctrines(src director.DoctrineSource) Option {
	return func(o *options) { o.doctrines = src }
}

func WithMetrics(m *telemetry.Metrics) Option { return func(o *options) { o.metrics = m } }

// WithRand fixes the random source, for reproducible runs.
func WithRand(rng *rand.Rand) Option { return func(o *options) { o.rng = rng } }

// WithClock swaps the wall clock used for save timestamps and the movement budget.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// freeplay stands in for a missing match collaborator: the war is always live
// and tickets are not tracked.
type freeplay struct{}

func (freeplay) Phase() war.GamePhase     { return war.PhaseCombat }
func (freeplay) DeductTicket(war.Faction) {}
func (freeplay) Active() bool             { return true }

type noZones struct{}

func (noZones) Zones() []war.Zone { return nil }

func flat(_, _ float64) float64 { return 0 }

// resolve fills every missing collaborator with its null object.
func (o *options) resolve(seed int64) {
	if o.match == nil {
		o.match = freeplay{}
	}
	if o.zones == nil {
		o.zones = noZones{}
	}
	if o.terrain == nil {
		o.terrain = flat
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.rng == nil {
		if seed == 0 {
			seed = o.now().UnixNano()
		}
		o.rng = rand.New(rand.NewSource(seed))
	}
	if o.doctrines == nil {
		o.doctrines = director.DefaultDoctrines()
	}
}
