package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/cachesim/cache"
	"github.com/sarchlab/cachesim/report"
	"github.com/sarchlab/cachesim/webstats"
)

var (
	runConfigPath string
	runTracePath  string
	runDBPath     string
	runLog        bool
	runWebPort    int
	runOpenWeb    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay a trace file through a configured cache chain and print its statistics.",
	RunE:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runConfigPath, "config", "", "path to a RunConfig JSON file (default: built-in L1/L2 hierarchy)")
	runCmd.Flags().StringVar(&runTracePath, "trace", envOr("CACHESIM_TRACE", ""), "path to a trace file (overrides CACHESIM_TRACE)")
	runCmd.Flags().StringVar(&runDBPath, "db", envOr("CACHESIM_DB", ""), "optional SQLite database to persist final statistics to")
	runCmd.Flags().BoolVar(&runLog, "log", false, "emit one diagnostic line per miss to stderr")
	runCmd.Flags().IntVar(&runWebPort, "web-port", 0, "if set, serve live statistics at this port while replaying")
	runCmd.Flags().BoolVar(&runOpenWeb, "open", false, "open the web statistics page in a browser (without --web-port, serves on a free port)")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func runRun(cmd *cobra.Command, _ []string) error {
	// The flag defaults above were read during init, before main loaded
	// .env, so look the variables up again now.
	if runTracePath == "" {
		runTracePath = os.Getenv("CACHESIM_TRACE")
	}
	if runDBPath == "" {
		runDBPath = os.Getenv("CACHESIM_DB")
	}

	if runTracePath == "" {
		return fmt.Errorf("no trace file given: pass --trace or set CACHESIM_TRACE")
	}

	runCfg := DefaultRunConfig()
	if runConfigPath != "" {
		loaded, err := LoadRunConfig(runConfigPath)
		if err != nil {
			return err
		}
		runCfg = loaded
	}

	caches, err := runCfg.BuildChain()
	if err != nil {
		return err
	}

	var reporter *report.SQLiteReporter
	if runDBPath != "" {
		reporter, err = report.NewSQLiteReporter(runDBPath)
		if err != nil {
			return err
		}
		defer reporter.Close()
	}

	for _, c := range caches {
		if runLog {
			c.SetLog(true)
		}
		if reporter != nil {
			c.SetReporter(reporter)
		}
	}
	atexit.Register(func() {
		for _, c := range caches {
			c.Close()
		}
	})

	if runWebPort > 0 || runOpenWeb {
		srv := webstats.NewServer(runWebPort)
		for _, c := range caches {
			srv.Register(c)
		}
		port, err := srv.StartServer()
		if err != nil {
			return err
		}
		if runOpenWeb {
			if err := srv.OpenBrowser(port); err != nil {
				fmt.Fprintf(os.Stderr, "cachesim: could not open browser: %s\n", err)
			}
		}
	}

	f, err := os.Open(runTracePath)
	if err != nil {
		return fmt.Errorf("opening trace file: %w", err)
	}
	defer f.Close()

	entries, err := readTrace(f)
	if err != nil {
		return err
	}

	l1 := caches[0]
	for _, e := range entries {
		l1.Trace(e.addr, e.bytes, e.kind)
	}

	textReporter := cache.NewTextReporter(cmd.OutOrStdout())
	for _, c := range caches {
		if err := textReporter.Report(c.Stats()); err != nil {
			return err
		}
	}
	return nil
}
