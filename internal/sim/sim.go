// Package sim is the war simulation orchestrator. It owns the agent and squad
// tables, wires every subsystem once at configuration time and runs them in a
// fixed order each tick:
//
//	materialize → movement → combat → strategy → auto-save → flush
//
// Nothing here is safe for concurrent use; the host drives Tick from one
// goroutine and reads results from the same goroutine or from flushed events.
package sim

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/frontline/warsim/internal/combat"
	"github.com/frontline/warsim/internal/config"
	"github.com/frontline/warsim/internal/core/event"
	coresys "github.com/frontline/warsim/internal/core/system"
	"github.com/frontline/warsim/internal/director"
	"github.com/frontline/warsim/internal/movement"
	"github.com/frontline/warsim/internal/persist"
	"github.com/frontline/warsim/internal/system"
	"github.com/frontline/warsim/internal/war"
)

type Simulation struct {
	log    *zap.Logger
	roster *war.Roster
	bus    *event.Bus
	frame  system.Frame

	configured bool
	cfg        *config.Config
	opts       options

	pipeline *war.Pipeline
	mover    *movement.Mover
	resolver *combat.Resolver
	director *director.Director
	watch    *director.ZoneWatch
	saves    *persist.Manager
	runner   *coresys.Runner
	autosave *system.AutoSaveSystem
	moveSys  *system.MovementSystem
	combat   *system.CombatSystem
}

// New creates an unconfigured simulation. Every operation is a safe no-op
// until Configure is called.
func New(log *zap.Logger) *Simulation {
	if log == nil {
		log = zap.NewNop()
	}
	return &Simulation{
		log:    log,
		roster: war.NewRoster(),
		bus:    event.NewBus(),
	}
}

// Configure builds every subsystem. Calling it again tears down materialized
// entities and rebuilds the subsystems around the existing tables.
func (s *Simulation) Configure(cfg *config.Config, opts ...Option) {
	if cfg == nil {
		cfg = config.Default()
	}
	if s.configured {
		s.pipeline.ReleaseAll()
	}

	var o options
	for _, fn := range opts {
		fn(&o)
	}
	o.resolve(cfg.Server.Seed)
	s.cfg = cfg
	s.opts = o

	if o.saves == nil {
		o.saves = persist.NewManager(persist.NewMemoryStore(), s.log,
			persist.WithCompression(cfg.Storage.Compress),
			persist.WithGameMode(cfg.Server.GameMode),
			persist.WithAutoSaveInterval(cfg.Simulation.AutoSaveInterval),
		)
		s.opts.saves = o.saves
	}
	s.saves = o.saves

	sc := cfg.Simulation
	s.pipeline = war.NewPipeline(s.roster, o.layer, war.PipelineConfig{
		MaterializationRadius:   sc.MaterializationRadius,
		DematerializationRadius: sc.DematerializationRadius,
		SimulationRadius:        sc.SimulationRadius,
		MaxMaterialized:         sc.MaxMaterialized,
	}, s.log.Named("pipeline"))

	s.mover = movement.New(movement.ParsePolicy(sc.MovementPolicy), sc.MovementBudget)
	s.mover.SetClock(o.now)

	s.resolver = combat.NewResolver(cfg.Combat, s.roster, s.bus, o.rng, s.log.Named("combat"))
	s.resolver.SetMatch(o.match)
	s.resolver.SetZones(o.zones)

	s.director = director.New(cfg.Director, s.roster, s.bus, o.rng, s.log.Named("director"))
	s.director.SetZones(o.zones)
	s.director.SetTerrain(o.terrain)
	s.director.SetDoctrines(o.doctrines)

	s.watch = director.NewZoneWatch(s.bus)

	s.moveSys = system.NewMovementSystem(s.roster, s.mover, o.terrain, s.bus, &s.frame, s.log.Named("movement"))
	s.combat = system.NewCombatSystem(s.resolver, &s.frame, o.metrics)
	s.autosave = system.NewAutoSaveSystem(s.saves, s, o.metrics, s.log.Named("autosave"))

	s.runner = coresys.NewRunner()
	s.runner.Register(system.NewMaterializeSystem(s.pipeline, &s.frame, o.metrics))
	s.runner.Register(s.moveSys)
	s.runner.Register(s.combat)
	s.runner.Register(system.NewStrategySystem(o.zones, s.watch, s.director, &s.frame, o.metrics))
	s.runner.Register(s.autosave)
	s.runner.Register(system.NewFlushSystem(s.bus, s.roster, &s.frame, o.metrics))

	s.configured = true
	s.log.Info("simulation configured",
		zap.Int("systems", s.runner.Len()),
		zap.Bool("combat_layer", o.layer != nil),
		zap.String("movement_policy", s.mover.Policy.String()),
		zap.Int("max_materialized", s.pipeline.Config().MaxMaterialized))
}

// Configured reports whether Configure has run and Disable has not.
func (s *Simulation) Configured() bool { return s.configured }

// Disable releases every materialized entity, drops queued events, destroys
// the agent and squad tables and turns the simulation back into a no-op.
func (s *Simulation) Disable() {
	if !s.configured {
		return
	}
	n := s.pipeline.ReleaseAll()
	s.bus.Reset()
	s.roster.Reset()
	s.frame = system.Frame{}
	s.configured = false
	s.log.Info("simulation disabled", zap.Int("released", n))
}

// the ended phase still tears down materialized entities and delivers events
func endedPhases(p coresys.Phase) bool {
	return p == coresys.PhaseMaterialize || p == coresys.PhaseFlush
}

// Tick advances the simulation by one frame of dt.
func (s *Simulation) Tick(dt time.Duration) {
	if !s.configured || dt <= 0 {
		return
	}
	start := s.opts.now()

	m := s.opts.match
	switch {
	case m.Phase() == war.PhaseSetup:
		return
	case m.Phase() == war.PhaseCombat && m.Active():
		s.frame.Elapsed += dt.Seconds()
		s.runner.Tick(dt)
	default:
		s.runner.TickWhere(endedPhases, dt)
	}

	s.opts.metrics.ObserveTick(s.opts.now().Sub(start))
}

// Subscribe registers a listener for flushed event batches. It works before
// Configure; the returned function unsubscribes.
func (s *Simulation) Subscribe(fn event.Listener) func() {
	return s.bus.Subscribe(fn)
}

func (s *Simulation) Agents() []*war.Agent { return s.roster.Agents() }

func (s *Simulation) Squads() []*war.Squad { return s.roster.Squads() }

func (s *Simulation) AgentCount() int { return s.roster.Count() }

func (s *Simulation) AliveCount() int { return s.roster.AliveCount() }

func (s *Simulation) MaterializedCount() int { return s.roster.MaterializedCount() }

// MapBuffer is the flat [faction, x, z, tier] buffer of alive agents. Valid
// until the next call.
func (s *Simulation) MapBuffer() []float32 { return s.roster.MapBuffer() }

// FactionCounts returns alive and total agents of f.
func (s *Simulation) FactionCounts(f war.Faction) (alive, total int) {
	return s.roster.FactionCounts(f)
}

// Tally returns the kill/death counters of f.
func (s *Simulation) Tally(f war.Faction) war.FactionTally { return s.roster.Tally(f) }

// Elapsed is the simulated time in seconds.
func (s *Simulation) Elapsed() float64 { return s.frame.Elapsed }

// Ticks is the number of ticks that reached the flush phase.
func (s *Simulation) Ticks() uint64 { return s.frame.Ticks }

func (s *Simulation) SetPlayerPosition(x, y, z float64) {
	s.frame.Player = war.Vec3{X: x, Y: y, Z: z}
}

func (s *Simulation) PlayerPosition() war.Vec3 { return s.frame.Player }

// SpawnStrategicForces replaces the whole population with freshly spawned
// forces for zones. Calling it again with the same zones never duplicates
// agents. Returns the number of agents created.
func (s *Simulation) SpawnStrategicForces(zones []war.Zone) int {
	if !s.configured {
		return 0
	}
	s.pipeline.ReleaseAll()

	sc := s.cfg.Simulation
	n := s.roster.Spawn(zones, war.SpawnConfig{
		AgentsPerFaction: sc.TotalAgents / 2,
		SquadSize:        sc.SquadSize,
		Speed:            sc.AgentSpeed,
		HomeShare:        sc.HomeShare,
		OwnedShare:       sc.OwnedShare,
		FrontlineShare:   sc.FrontlineShare,
		Spread:           sc.SpawnSpread,
	}, s.opts.rng, s.opts.terrain)

	s.director.Reset()
	s.watch.Reset()
	s.saves.ResetTimer()
	s.log.Info("strategic forces spawned",
		zap.Int("agents", n),
		zap.Int("squads", len(s.roster.Squads())),
		zap.Int("zones", len(zones)))
	return n
}

// WarState snapshots the simulation. Nil when unconfigured.
func (s *Simulation) WarState() *war.WarState {
	if !s.configured {
		return nil
	}
	tickets, _ := s.opts.match.(war.TicketReader)
	return s.roster.Snapshot(s.frame.Elapsed, s.opts.now(), s.opts.zones.Zones(), s.frame.Player, tickets)
}

// LoadWarState replaces the tables with st. A state from another schema is
// rejected with a warning and the current tables are left untouched.
func (s *Simulation) LoadWarState(st *war.WarState) bool {
	if !s.configured || st == nil {
		return false
	}
	if st.SchemaVersion != war.SchemaVersion {
		s.log.Warn("war state rejected: schema mismatch",
			zap.Int("got", st.SchemaVersion),
			zap.Int("want", war.SchemaVersion))
		return false
	}

	s.pipeline.ReleaseAll()
	if err := s.roster.Restore(st); err != nil {
		s.log.Error("war state restore failed", zap.Error(err))
		return false
	}
	s.frame.Elapsed = st.ElapsedTime
	s.director.Reset()
	s.watch.Reset()
	s.saves.ResetTimer()
	s.log.Info("war state loaded",
		zap.Int("agents", s.roster.Count()),
		zap.Int("alive", s.roster.AliveCount()),
		zap.Float64("elapsed", st.ElapsedTime))
	return true
}

// Save writes the current state into slot (0 auto, 1-2 manual).
func (s *Simulation) Save(slot int) bool {
	if !s.configured || !persist.ValidSlot(slot) {
		return false
	}
	ok := s.saves.Save(context.Background(), slot, s.WarState())
	s.opts.metrics.RecordSave(slot, ok)
	return ok
}

// Load restores slot into the simulation.
func (s *Simulation) Load(slot int) bool {
	if !s.configured {
		return false
	}
	st, ok := s.saves.Load(context.Background(), slot)
	if !ok {
		return false
	}
	return s.LoadWarState(st)
}

// SlotInfo describes what slot holds.
func (s *Simulation) SlotInfo(slot int) (persist.SlotInfo, bool) {
	if !s.configured {
		return persist.SlotInfo{}, false
	}
	return s.saves.Info(context.Background(), slot)
}

// DeleteSlot removes the save in slot.
func (s *Simulation) DeleteSlot(slot int) bool {
	if !s.configured {
		return false
	}
	return s.saves.Delete(context.Background(), slot)
}

// SaveOnShutdown writes the auto-save slot immediately.
func (s *Simulation) SaveOnShutdown() bool {
	if !s.configured {
		return false
	}
	return s.autosave.SaveNow()
}

// LastCombat is the report of the resolver's most recent fire.
func (s *Simulation) LastCombat() combat.Report {
	if !s.configured {
		return combat.Report{}
	}
	return s.combat.Last()
}

// MovementTruncations is how many frames ran out of movement budget.
func (s *Simulation) MovementTruncations() int {
	if !s.configured {
		return 0
	}
	return s.moveSys.Truncated()
}

// Rand exposes the configured random source to collaborators that want to
// share it, such as the headless scenario.
func (s *Simulation) Rand() *rand.Rand { return s.opts.rng }
