package main

import (
	"context"
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

	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/config"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/data"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/persist"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/scripting"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/statsd"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/system"
	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

var printer = message.NewPrinter(language.English)

func printBanner(cfg *config.Config) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m            simcore  v0.1.0                \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m      shipping simulation · ECS core       \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mrate:\033[0m %d steps/s \033[90m(workers: %d)\033[0m\n\n",
		cfg.Simulation.StepsPerSecond, cfg.Simulation.WorkerCount())
}

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := printer.Sprintf("%d", count)
	dotsLen := max(42-len(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main simulation loop ──────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/simcore.toml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
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

	printBanner(cfg)

	if cfg.Metrics.StatsdAddress != "" {
		if err := statsd.Init(cfg.Metrics.StatsdAddress, []string{"service:simcore"}); err != nil {
			return fmt.Errorf("statsd: %w", err)
		}
		defer statsd.Close()
	}

	// 3. World and components
	printSection("World")
	w, err := world.New(cfg, log)
	if err != nil {
		return fmt.Errorf("world: %w", err)
	}
	defer w.Close()

	kinds, err := system.RegisterKinds(w)
	if err != nil {
		return err
	}
	printStat("component kinds", len(w.Registry().Kinds()))

	if cfg.Data.PrefabFile != "" {
		prefabs, err := data.LoadPrefabTable(cfg.Data.PrefabFile)
		if err != nil {
			return fmt.Errorf("prefabs: %w", err)
		}
		n, err := system.SpawnPrefabs(w, kinds, prefabs, rand.New(rand.NewSource(time.Now().UnixNano())))
		if err != nil {
			return err
		}
		printStat("prefabs", prefabs.Count())
		printStat("entities spawned", n)
	}
	fmt.Println()

	// 4. Systems
	printSection("Systems")
	if err := w.RegisterSystem(system.NewCargoSystem(kinds)); err != nil {
		return err
	}
	if err := w.RegisterSystem(system.NewRouteSystem(kinds)); err != nil {
		return err
	}
	if err := w.RegisterSystem(system.NewMovementSystem(kinds), "route"); err != nil {
		return err
	}
	if err := w.RegisterSystem(system.NewDockingSystem(kinds, log), "movement"); err != nil {
		return err
	}

	if cfg.Scripting.Dir != "" {
		scripts, err := scripting.LoadSystems(cfg.Scripting.Dir, w, scripting.ShippingBindings(kinds), log.Named("lua"))
		if err != nil {
			return fmt.Errorf("scripts: %w", err)
		}
		for _, s := range scripts {
			defer s.Close()
			if err := w.RegisterSystem(s, s.After()...); err != nil {
				return err
			}
		}
		printStat("lua systems", len(scripts))
	}

	// 5. Optional snapshot persistence
	var persistence *system.PersistenceSystem
	if cfg.Database.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		if err := persist.RunMigrations(ctx, db.Pool, log); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK("PostgreSQL connected, schema migrated")

		repo := persist.NewSnapshotRepo(db, cfg.Database.KeepSnapshots)
		if last, ok, err := repo.Latest(ctx); err != nil {
			log.Warn("could not read latest snapshot", zap.Error(err))
		} else if ok {
			log.Info("latest snapshot",
				zap.Stringer("id", last.ID),
				zap.Uint64("step", last.Step),
				zap.Time("taken_at", last.TakenAt),
				zap.Int("entities", last.EntityCount))
		}

		saver := persist.NewSaver(repo, log.Named("snapshot"), 10*time.Second)
		defer saver.Close()
		persistence = system.NewPersistenceSystem(saver, log, cfg.Database.SnapshotInterval)
		if err := w.RegisterSystem(persistence); err != nil {
			return err
		}
	}

	groups := w.Groups()
	printStat("systems", len(w.Report().Scheduler.Systems))
	printStat("execution groups", len(groups))
	for i, g := range groups {
		log.Debug("execution group", zap.Int("group", i), zap.Strings("systems", g))
	}
	fmt.Println()

	// 6. Loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	budget := cfg.Simulation.FrameBudget()
	ticker := time.NewTicker(budget)
	defer ticker.Stop()
	report := time.NewTicker(cfg.Metrics.ReportInterval)
	defer report.Stop()

	printSection("Running")
	printReady(fmt.Sprintf("simulation loop started (step: %s)", budget))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			rep := w.Step(budget)
			for _, f := range rep.Faults {
				log.Warn("step completed with fault", zap.Uint64("frame", rep.Frame), zap.String("system", f.System))
			}
		case <-report.C:
			logReport(log, w.Report())
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			if persistence != nil {
				persistence.SaveNow(w)
			}
			logReport(log, w.Report())
			log.Info("simulation stopped", zap.Uint64("steps", w.StepCount()))
			return nil
		}
	}
}

func logReport(log *zap.Logger, r world.Report) {
	fields := []zap.Field{
		zap.Uint64("step", r.Step),
		zap.String("entities", printer.Sprintf("%d", r.Entities)),
		zap.Int("archetypes", r.Archetypes),
		zap.Uint64("compactions", r.Compactions),
		zap.Duration("last_frame", r.LastFrame),
		zap.Duration("budget", r.Budget),
		zap.Int("groups", r.Scheduler.Last.Groups),
		zap.Float64("parallel_capable", r.Scheduler.Last.ParallelCapable),
		zap.String("slowest", r.Scheduler.Last.Slowest),
		zap.Duration("slowest_time", r.Scheduler.Last.SlowestTime),
	}
	log.Info("performance report", fields...)
	for _, s := range r.Scheduler.Systems {
		log.Debug("system stats",
			zap.String("system", s.Name),
			zap.Uint64("invocations", s.Invocations),
			zap.Uint64("faults", s.Faults),
			zap.Duration("avg", s.Avg),
			zap.Duration("max", s.Max))
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
