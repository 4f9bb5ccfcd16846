package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/orrery/server/internal/config"
	"github.com/orrery/server/internal/core/event"
	coresys "github.com/orrery/server/internal/core/system"
	"github.com/orrery/server/internal/handler"
	gonet "github.com/orrery/server/internal/net"
	"github.com/orrery/server/internal/net/packet"
	"github.com/orrery/server/internal/persist"
	"github.com/orrery/server/internal/physics"
	"github.com/orrery/server/internal/scenario"
	"github.com/orrery/server/internal/scripting"
	"github.com/orrery/server/internal/system"
	"github.com/orrery/server/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func main() {
	if len(os.Args) == 3 && os.Args[1] == "hash-password" {
		hash, err := bcrypt.GenerateFromPassword([]byte(os.Args[2]), bcrypt.DefaultCost)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(hash))
		return
	}
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

var numbers = message.NewPrinter(language.English)

func printBanner(serverName string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              orrery  v0.1.0               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m        n-body gravity · Go server         \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s\n\n", serverName)
}

func printSection(title string) {
	lineLen := max(46-utf8.RuneCountInString(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, value any) {
	valStr := numbers.Sprint(value)
	dotsLen := max(42-utf8.RuneCountInString(label)-len(valStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), valStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/orrery.toml"
	if p := os.Getenv("ORRERY_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name)

	// 3. Build the initial conditions
	printSection("scenario")
	engine := scripting.NewEngine(log)
	defer engine.Close()

	sc, err := scenario.Build(cfg.Scenario, engine)
	if err != nil {
		return fmt.Errorf("scenario: %w", err)
	}
	printStat(sc.Kind, sc.Name)
	printStat("bodies", len(sc.Bodies))
	if sc.Seed != 0 {
		printStat("seed", sc.Seed)
		log.Info("scenario seed", zap.Uint64("seed", sc.Seed))
	}

	sim, err := physics.New(physics.Config{
		G:         cfg.Simulation.G,
		Dt:        cfg.Simulation.Dt,
		Softening: cfg.Simulation.Softening,
		Bodies:    sc.Bodies,
	})
	if err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	worldState := world.NewState(sim, sc)
	worldState.Paused = cfg.Simulation.StartPaused
	fmt.Println()

	// 4. Optional PostgreSQL run recording
	printSection("database")
	var snapshotRepo *persist.SnapshotRepo
	var eventRepo *persist.EventRepo
	if cfg.Database.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")

		if err := persist.RunMigrations(ctx, db.Pool, log); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK("migrations applied")

		runRow := &persist.RunRow{
			ScenarioKind: sc.Kind,
			ScenarioName: sc.Name,
			Seed:         sc.Seed,
			G:            sim.G(),
			Dt:           sim.Dt(),
			Softening:    sim.Softening(),
			BodyCount:    sim.Len(),
		}
		if err := persist.NewRunRepo(db).Create(ctx, runRow); err != nil {
			return fmt.Errorf("record run: %w", err)
		}
		worldState.RunID = runRow.ID
		printStat("run", runRow.ID)

		snapshotRepo = persist.NewSnapshotRepo(db)
		eventRepo = persist.NewEventRepo(db)
	} else {
		printOK("disabled")
	}
	fmt.Println()

	// 5. Packet handlers
	bus := event.NewBus()
	pktReg := packet.NewRegistry(log)
	handler.RegisterAll(pktReg, &handler.Deps{
		Config: cfg,
		Log:    log,
		World:  worldState,
		Bus:    bus,
	})

	// 6. Network server
	netServer, err := gonet.NewServer(cfg.Network.BindAddress, gonet.SessionOptions{
		InQueueSize:      cfg.Network.InQueueSize,
		OutQueueSize:     cfg.Network.OutQueueSize,
		PacketsPerSecond: cfg.Network.PacketsPerSecond,
		WriteTimeout:     cfg.Network.WriteTimeout,
	}, log)
	if err != nil {
		return fmt.Errorf("net server: %w", err)
	}
	go netServer.AcceptLoop()

	// 7. Systems
	store := gonet.NewSessionStore()
	runner := coresys.NewRunner()
	runner.Register(system.NewInputSystem(netServer, pktReg, store, cfg.Network.MaxPacketsPerTick, log))
	runner.Register(system.NewEventDispatchSystem(bus))
	runner.Register(system.NewPhysicsSystem(worldState, bus, cfg.Simulation.StepsPerTick, cfg.Simulation.DiagnosticsEvery, log))
	runner.Register(system.NewBroadcastSystem(worldState, store, bus, cfg.Network.SnapshotEvery))
	var persistSys *system.PersistenceSystem
	if snapshotRepo != nil {
		persistSys = system.NewPersistenceSystem(worldState, bus, snapshotRepo, eventRepo, log, cfg.Database.SnapshotInterval)
		runner.Register(persistSys)
	}

	// 8. Game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Simulation.TickRate)
	defer ticker.Stop()

	printSection("ready")
	printReady(fmt.Sprintf("listening on %s", netServer.Addr().String()))
	printReady(fmt.Sprintf("tick %s × %d steps, dt %g", cfg.Simulation.TickRate, cfg.Simulation.StepsPerTick, sim.Dt()))
	if worldState.Paused {
		printReady("starting paused")
	}
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Simulation.TickRate)
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			if persistSys != nil {
				persistSys.SaveSnapshot()
			}
			netServer.Shutdown()
			store.ForEach(func(sess *gonet.Session) { sess.Close() })
			log.Info("server stopped",
				zap.Uint64("ticks", runner.Ticks()),
				zap.Uint64("steps", sim.Steps()),
			)
			return nil
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
