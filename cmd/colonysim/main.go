// Command colonysim runs a computational colony simulation from a
// scenario file, either headless for a fixed number of ticks or under a
// live bubbletea console. It is the thin external CLI SPEC_FULL.md §1
// calls out as a collaborator outside the kernel's own scope — it parses
// flags, loads a scenario, drives kernel.Tick in a loop, and renders.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ftahirops/colonysim/archive"
	"github.com/ftahirops/colonysim/config"
	"github.com/ftahirops/colonysim/evaluator"
	"github.com/ftahirops/colonysim/eventlog"
	"github.com/ftahirops/colonysim/kernel"
	"github.com/ftahirops/colonysim/sandbox/binhost"
	"github.com/ftahirops/colonysim/sandbox/scripthost"
	"github.com/ftahirops/colonysim/snapshot"
)

// Version is set at build time via ldflags.
var Version = "0.1.0"

func printUsage() {
	fmt.Fprintf(os.Stderr, `colonysim v%s — deterministic computational colony simulation kernel

Usage:
  colonysim -scenario FILE [OPTIONS]

Modes:
  (default)      Interactive live console (bubbletea)
  -headless      Run to -ticks and exit, no TUI
  -version       Print version and exit

Options:
  -scenario FILE   TOML scenario file (required)
  -ticks N         Ticks to run in -headless mode (default: 1000)
  -datadir PATH    Directory for event log and snapshots (default: ./colonysim-data)
  -autosave N      Override the scenario's autosave_every cadence (0 = scenario default)
  -pg-dsn DSN      Also archive KPI samples to Postgres at DSN (optional)
  -refresh MS      Live console refresh interval in ms (default: preferences default)
  -sandbox-caps    Comma-separated capability ceiling applied to every bin
                   module and scripted callback the scenario registers
                   (default: empty, no ceiling beyond the scenario's own
                   per-mod masks). Names: log,rng,kpi_read,job_enqueue,
                   tick_read,register,random,save_state,load_state
`, Version)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "colonysim: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		scenarioPath string
		ticks        uint64
		dataDir      string
		autosave     uint64
		pgDSN        string
		refreshMS    int
		headless     bool
		showVersion  bool
		sandboxCaps  string
	)
	flag.StringVar(&scenarioPath, "scenario", "", "TOML scenario file")
	flag.Uint64Var(&ticks, "ticks", 1000, "ticks to run in -headless mode")
	flag.StringVar(&dataDir, "datadir", "./colonysim-data", "directory for event log and snapshots")
	flag.Uint64Var(&autosave, "autosave", 0, "override autosave_every (0 = scenario default)")
	flag.StringVar(&pgDSN, "pg-dsn", "", "also archive KPI samples to Postgres at DSN")
	flag.IntVar(&refreshMS, "refresh", 0, "live console refresh interval in ms (0 = preferences default)")
	flag.BoolVar(&headless, "headless", false, "run to -ticks and exit, no TUI")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.StringVar(&sandboxCaps, "sandbox-caps", "", "comma-separated capability ceiling for every registered bin module and scripted callback")
	flag.Usage = printUsage
	flag.Parse()

	if showVersion {
		fmt.Println(Version)
		return nil
	}
	if scenarioPath == "" {
		printUsage()
		return fmt.Errorf("-scenario is required")
	}

	scenario, err := config.LoadScenario(scenarioPath)
	if err != nil {
		return err
	}
	store, cfg, sandboxSpec, err := scenario.Build()
	if err != nil {
		return fmt.Errorf("build scenario: %w", err)
	}
	if autosave > 0 {
		cfg.AutosaveEvery = autosave
	}
	cfg.KernelVersion = snapshot.KernelVersion{Major: 0, Minor: 1, Patch: 0}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create datadir: %w", err)
	}
	cfg.SnapshotPath = func(tick uint64) string {
		return filepath.Join(dataDir, fmt.Sprintf("snapshot-%010d.bin", tick))
	}

	events, err := eventlog.Open(filepath.Join(dataDir, "events.log"))
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer events.Close()

	var sink archive.Sink = archive.Discard{}
	if pgDSN != "" {
		pg, err := archive.OpenPG(context.Background(), pgDSN, "")
		if err != nil {
			return fmt.Errorf("open postgres archive: %w", err)
		}
		defer pg.Close()
		sink = pg
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	k := kernel.New(cfg, store, log, events, sink)

	registerSandbox(k, sandboxSpec, sandboxCaps)

	if headless {
		return runHeadless(k, ticks)
	}

	prefs := config.LoadPreferences()
	if refreshMS <= 0 {
		refreshMS = prefs.RefreshMS
	}
	return runConsole(k, time.Duration(refreshMS)*time.Millisecond)
}

// registerSandbox loads the scenario's bin modules and scripted callbacks
// into k, ANDing each against the -sandbox-caps ceiling (if set) so a
// deployment can cap what any scenario is allowed to grant, regardless of
// what an individual bin_module/script_callback table declares.
func registerSandbox(k *kernel.Kernel, spec config.SandboxSpec, capsFlag string) {
	var binCeiling binhost.Capability = ^binhost.Capability(0)
	var scriptCeiling scripthost.Capability = ^scripthost.Capability(0)
	if capsFlag != "" {
		names := strings.Split(capsFlag, ",")
		binCeiling = config.CeilingBinCapabilities(names)
		scriptCeiling = config.CeilingScriptCapabilities(names)
	}

	for _, reg := range spec.BinModules {
		mod := reg.Module
		mod.Capabilities &= binCeiling
		k.RegisterBinModule(reg.OpID, mod)
	}
	for _, cb := range spec.ScriptCallbacks {
		cb.Capabilities &= scriptCeiling
		k.ScriptRegistry().Register(cb)
	}
}

func runHeadless(k *kernel.Kernel, ticks uint64) error {
	for i := uint64(0); i < ticks; i++ {
		k.Tick()
		if outcome, tick := k.Outcome(); outcome != evaluator.None {
			fmt.Printf("run ended at tick %d: %s\n", tick, outcome)
			return nil
		}
	}
	return k.Checkpoint()
}
