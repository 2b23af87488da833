// Command gridtown runs the organic city growth simulation.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/talgya/gridtown/internal/config"
	"github.com/talgya/gridtown/internal/persistence"
	"github.com/talgya/gridtown/internal/sim"
)

var (
	flagConfig string
	flagSeed   int64
	flagSize   int
	flagDB     string
)

var rootCmd = &cobra.Command{
	Use:   "gridtown",
	Short: "Grid-based organic city growth simulation",
	Long:  "Simulates demand-driven city growth on a terrain grid: zones develop into buildings when road access, power, and demand line up, and decay back when services are lost.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to YAML config overlay")
	rootCmd.PersistentFlags().Int64Var(&flagSeed, "seed", 0, "terrain/entropy seed (0 = random)")
	rootCmd.PersistentFlags().IntVar(&flagSize, "size", 0, "override map width and height")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "sqlite database path (empty = no persistence)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(viewCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig builds the effective config from defaults, the optional
// YAML overlay, and command-line overrides, in that order.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if flagConfig != "" {
		c, err := config.Load(flagConfig)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = c
	}
	if flagSize > 0 {
		cfg.Terrain.Width = flagSize
		cfg.Terrain.Height = flagSize
	}
	return cfg, nil
}

// openCity opens the database (if configured) and either restores the
// saved city or generates a fresh one.
func openCity(cfg config.Config) (*sim.Simulation, *persistence.DB, error) {
	var db *persistence.DB
	if flagDB != "" {
		d, err := persistence.Open(flagDB)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		db = d
		slog.Info("database opened", "path", flagDB)
	}

	if db != nil && db.HasState() {
		st, err := db.Load()
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("load saved city: %w", err)
		}
		cfg.Terrain.Width = st.Width
		cfg.Terrain.Height = st.Height
		s, err := sim.New(cfg, st.Seed)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		if err := s.Restore(st); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("restore saved city: %w", err)
		}
		slog.Info("city restored", "tick", st.Tick, "seed", st.Seed,
			"zones", len(st.Zones), "buildings", len(st.Buildings))
		return s, db, nil
	}

	s, err := sim.New(cfg, flagSeed)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, nil, err
	}
	slog.Info("new city generated", "seed", s.Seed(),
		"width", cfg.Terrain.Width, "height", cfg.Terrain.Height)
	return s, db, nil
}
