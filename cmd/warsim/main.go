package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/frontline/warsim/internal/config"
	"github.com/frontline/warsim/internal/core/event"
	"github.com/frontline/warsim/internal/data"
	"github.com/frontline/warsim/internal/director"
	"github.com/frontline/warsim/internal/observer"
	"github.com/frontline/warsim/internal/persist"
	"github.com/frontline/warsim/internal/scenario"
	"github.com/frontline/warsim/internal/scripting"
	"github.com/frontline/warsim/internal/sim"
	"github.com/frontline/warsim/internal/telemetry"
	"github.com/frontline/warsim/internal/war"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

var numbers = message.NewPrinter(language.English)

func printBanner(name, mode string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              warsim  v0.1.0               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m        tiered war simulation core         \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s \033[90m(mode: %s)\033[0m\n\n", name, mode)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := numbers.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main loop ─────────────────────────────────────────────────────

func run() error {
	cfgPath := flag.String("config", "config/warsim.toml", "path to the toml config")
	resume := flag.Int("resume", -1, "save slot to resume from (0 auto, 1-2 manual); -1 starts fresh")
	duration := flag.Duration("duration", 0, "stop after this much wall time; 0 runs until signalled")
	flag.Parse()
	if p := os.Getenv("WARSIM_CONFIG"); p != "" {
		*cfgPath = p
	}

	// 1. Config
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name, cfg.Server.GameMode)

	// 3. Scenario
	printSection("scenario")
	sc, err := data.LoadScenario(cfg.Server.Scenario)
	if err != nil {
		return fmt.Errorf("scenario: %w", err)
	}
	printOK(sc.Name)
	printStat("zones", len(sc.Zones))
	printStat("tickets per faction", sc.Tickets)
	if sc.Heightmap != nil {
		cols, rows := sc.Heightmap.Size()
		printStat("heightmap cells", cols*rows)
	}
	fmt.Println()

	// 4. Storage
	printSection("storage")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	store, err := persist.Open(ctx, cfg.Storage, log.Named("persist"))
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	saves := persist.NewManager(store, log.Named("saves"),
		persist.WithCompression(cfg.Storage.Compress),
		persist.WithGameMode(cfg.Server.GameMode),
		persist.WithAutoSaveInterval(cfg.Simulation.AutoSaveInterval),
	)
	defer saves.Close()
	printOK(fmt.Sprintf("%s backend ready", cfg.Storage.Backend))
	fmt.Println()

	// 5. Doctrine: Lua overrides the scenario table when a script defines one
	var doctrines director.DoctrineSource = sc.Doctrines
	if cfg.Scripting.Dir != "" {
		engine, err := scripting.NewEngine(cfg.Scripting.Dir, log.Named("lua"))
		if err != nil {
			return fmt.Errorf("scripting: %w", err)
		}
		defer engine.Close()
		doctrines = scripting.NewDoctrines(engine, sc.Doctrines)
		printOK("lua doctrine scripts loaded")
	}

	var metrics *telemetry.Metrics
	if cfg.Metrics.Enabled {
		if metrics, err = telemetry.New(nil); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	// 6. Simulation and its collaborators
	seed := cfg.Server.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	host := scenario.NewHost(sc, rand.New(rand.NewSource(seed+1)), log)

	s := sim.New(log.Named("sim"))
	s.Configure(cfg,
		sim.WithMatch(host.Match),
		sim.WithZones(host.Board),
		sim.WithCombatLayer(host.Puppets),
		sim.WithTerrain(sc.Terrain()),
		sim.WithSaves(saves),
		sim.WithDoctrines(doctrines),
		sim.WithMetrics(metrics),
		sim.WithRand(rng),
	)
	s.SetPlayerPosition(sc.Player.X, sc.Player.Y, sc.Player.Z)
	s.Subscribe(logEvents(log.Named("events")))

	printSection("forces")
	if *resume >= 0 && s.Load(*resume) {
		printOK(fmt.Sprintf("resumed slot %d at %.0fs", *resume, s.Elapsed()))
	} else {
		s.SpawnStrategicForces(host.Board.Zones())
	}
	printStat("agents", s.AgentCount())
	printStat("squads", len(s.Squads()))
	fmt.Println()

	runCtx, stop := context.WithCancel(context.Background())
	defer stop()

	var hub *observer.Hub
	if cfg.Observer.Enabled {
		hub = observer.NewHub(cfg.Observer.SendBuffer, log.Named("observer"))
		s.Subscribe(hub.Listener())
		go func() {
			if err := hub.Serve(runCtx, cfg.Observer.BindAddress); err != nil {
				log.Error("observer stopped", zap.Error(err))
			}
		}()
	}

	// 7. Loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Server.TickRate)
	defer ticker.Stop()
	var deadline <-chan time.Time
	if *duration > 0 {
		deadline = time.After(*duration)
	}

	printSection("running")
	printReady(fmt.Sprintf("tick %s", cfg.Server.TickRate))
	if hub != nil {
		printReady(fmt.Sprintf("observer on %s", cfg.Observer.BindAddress))
	}
	fmt.Println()

	dt := cfg.Server.TickRate
	statusEvery := uint64(max(time.Second/dt, 1))
	for {
		select {
		case <-ticker.C:
			host.Step(dt.Seconds(), s.Agents())
			s.Tick(dt)
			if hub != nil && s.Ticks()%statusEvery == 0 {
				hub.Publish(status(s, host.Match))
			}
			if host.Match.Phase() == war.PhaseEnded && s.MaterializedCount() == 0 {
				log.Info("match over", zap.String("winner", host.Match.Winner().String()))
				return shutdown(s, log)
			}
		case <-deadline:
			log.Info("duration reached", zap.Duration("duration", *duration))
			return shutdown(s, log)
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			return shutdown(s, log)
		}
	}
}

func shutdown(s *sim.Simulation, log *zap.Logger) error {
	ok := s.SaveOnShutdown()
	blu, opf := s.Tally(war.Blufor), s.Tally(war.Opfor)
	log.Info("simulation stopped",
		zap.Bool("saved", ok),
		zap.Float64("elapsed", s.Elapsed()),
		zap.Int("alive", s.AliveCount()),
		zap.Int("blufor_deaths", blu.Deaths),
		zap.Int("opfor_deaths", opf.Deaths))
	s.Disable()
	if !ok {
		return errors.New("final save failed")
	}
	return nil
}

func status(s *sim.Simulation, m *scenario.Match) observer.Status {
	st := observer.Status{
		Elapsed:      s.Elapsed(),
		Ticks:        s.Ticks(),
		Phase:        m.Phase().String(),
		Materialized: s.MaterializedCount(),
	}
	for i, f := range war.Factions {
		st.Tickets[i] = m.Tickets(f)
		st.Alive[i], _ = s.FactionCounts(f)
	}
	return st
}

func logEvents(log *zap.Logger) event.Listener {
	return func(batch []event.Event) {
		for _, ev := range batch {
			switch e := ev.(type) {
			case event.ZoneCaptured:
				log.Info("zone captured", zap.String("zone", e.ZoneName), zap.String("by", e.Faction.String()))
			case event.ReinforcementsArriving:
				log.Info("reinforcements", zap.String("faction", e.Faction.String()), zap.Int("count", e.Count), zap.String("zone", e.ZoneID))
			case event.MajorBattle:
				log.Info("major battle", zap.Float64("x", e.X), zap.Float64("z", e.Z), zap.Float64("intensity", e.Intensity))
			case event.FactionAdvantage:
				log.Info("faction advantage", zap.String("faction", e.Faction.String()), zap.Float64("ratio", e.Ratio))
			case event.SquadWiped:
				log.Debug("squad wiped", zap.Uint32("squad", uint32(e.SquadID)), zap.String("faction", e.Faction.String()))
			}
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
