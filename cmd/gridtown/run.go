package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/talgya/gridtown/internal/api"
	"github.com/talgya/gridtown/internal/sim"
)

var (
	flagAPIAddr  string
	flagSpeed    float64
	flagAutosave int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the city headless with the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		s, db, err := openCity(cfg)
		if err != nil {
			return err
		}
		if db != nil {
			defer db.Close()
		}

		loop := sim.NewLoop(s)
		loop.SetSpeed(flagSpeed)

		// Autosave every flagAutosave ticks; new event log rows go with it.
		if db != nil && flagAutosave > 0 {
			every := uint64(flagAutosave)
			var lastLogged uint64
			loop.OnTick = func(tick uint64) {
				if tick%every != 0 {
					return
				}
				if err := db.Save(s.Export()); err != nil {
					slog.Error("autosave failed", "tick", tick, "error", err)
					return
				}
				var fresh []sim.LogEntry
				for _, e := range s.RecentEvents(0) {
					if e.Tick > lastLogged {
						fresh = append(fresh, e)
					}
				}
				if err := db.AppendEvents(fresh); err != nil {
					slog.Error("autosave event log failed", "error", err)
				}
				lastLogged = tick
			}
		}

		adminKey := os.Getenv("GRIDTOWN_ADMIN_KEY")
		if adminKey == "" {
			slog.Warn("GRIDTOWN_ADMIN_KEY not set, admin POST endpoints disabled")
		}
		server := &api.Server{
			Sim:      s,
			Loop:     loop,
			DB:       db,
			Addr:     flagAPIAddr,
			AdminKey: adminKey,
		}
		server.Start()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigCh
			slog.Info("received signal, shutting down", "signal", sig)
			loop.Stop()
		}()

		fmt.Printf("gridtown running, API at http://localhost%s/api/v1/status (Ctrl+C to stop)\n", flagAPIAddr)
		loop.Run()

		if db != nil {
			slog.Info("final save")
			if err := db.Save(s.Export()); err != nil {
				slog.Error("final save failed", "error", err)
			}
		}
		s.LogSummary()
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&flagAPIAddr, "api-addr", ":8080", "HTTP API listen address")
	runCmd.Flags().Float64Var(&flagSpeed, "speed", 1, "simulation speed multiplier (0 = paused)")
	runCmd.Flags().IntVar(&flagAutosave, "autosave", 600, "autosave interval in ticks (0 = disabled)")
}
