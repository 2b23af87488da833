// Package persistence provides SQLite-based snapshot and restore of
// the city state: grid contents, building records, and demand valves,
// in that dependency order.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/gridtown/internal/demand"
	"github.com/talgya/gridtown/internal/growth"
	"github.com/talgya/gridtown/internal/infra"
	"github.com/talgya/gridtown/internal/sim"
	"github.com/talgya/gridtown/internal/world"
	"github.com/talgya/gridtown/internal/zone"
)

// DB wraps a SQLite connection for city state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path and
// configures WAL mode.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("exec %s: %w", pragma, err)
		}
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS roads (
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		PRIMARY KEY (x, y)
	);

	CREATE TABLE IF NOT EXISTS power_lines (
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		PRIMARY KEY (x, y)
	);

	CREATE TABLE IF NOT EXISTS power_plants (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		type INTEGER NOT NULL,
		anchor_x INTEGER NOT NULL,
		anchor_y INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS zones (
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		category INTEGER NOT NULL,
		density INTEGER NOT NULL,
		PRIMARY KEY (x, y)
	);

	CREATE TABLE IF NOT EXISTS buildings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		category INTEGER NOT NULL,
		density INTEGER NOT NULL,
		population INTEGER NOT NULL,
		jobs INTEGER NOT NULL,
		status INTEGER NOT NULL,
		no_road INTEGER NOT NULL,
		no_power INTEGER NOT NULL,
		lost_at REAL,
		contributing INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS valves (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		residential REAL NOT NULL,
		commercial REAL NOT NULL,
		industrial REAL NOT NULL,
		prev_norm_population REAL NOT NULL,
		last_population INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		kind TEXT NOT NULL,
		description TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	CREATE INDEX IF NOT EXISTS idx_buildings_pos ON buildings(x, y);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Save writes a full snapshot (full replace). Each save gets a fresh
// snapshot id so observers can tell saves apart.
func (db *DB) Save(st sim.State) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"roads", "power_lines", "power_plants", "zones", "buildings", "valves"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, p := range st.Roads {
		if _, err := tx.Exec("INSERT INTO roads (x, y) VALUES (?, ?)", p.X, p.Y); err != nil {
			return fmt.Errorf("insert road: %w", err)
		}
	}
	for _, p := range st.Lines {
		if _, err := tx.Exec("INSERT INTO power_lines (x, y) VALUES (?, ?)", p.X, p.Y); err != nil {
			return fmt.Errorf("insert power line: %w", err)
		}
	}
	for _, plant := range st.Plants {
		if _, err := tx.Exec(
			"INSERT INTO power_plants (type, anchor_x, anchor_y) VALUES (?, ?, ?)",
			plant.Type, plant.Anchor.X, plant.Anchor.Y,
		); err != nil {
			return fmt.Errorf("insert plant: %w", err)
		}
	}
	for _, z := range st.Zones {
		if _, err := tx.Exec(
			"INSERT INTO zones (x, y, category, density) VALUES (?, ?, ?, ?)",
			z.Pos.X, z.Pos.Y, z.Category, z.Density,
		); err != nil {
			return fmt.Errorf("insert zone: %w", err)
		}
	}

	stmt, err := tx.Preparex(`INSERT INTO buildings
		(x, y, category, density, population, jobs, status, no_road, no_power, lost_at, contributing)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, b := range st.Buildings {
		var lostAt sql.NullFloat64
		if b.LostAt != nil {
			lostAt = sql.NullFloat64{Float64: *b.LostAt, Valid: true}
		}
		if _, err := stmt.Exec(
			b.Pos.X, b.Pos.Y, b.Category, b.Density, b.Population, b.Jobs,
			b.Status, b.Issues.NoRoad, b.Issues.NoPower, lostAt, b.Contributing,
		); err != nil {
			return fmt.Errorf("insert building at (%d,%d): %w", b.Pos.X, b.Pos.Y, err)
		}
	}

	if _, err := tx.Exec(
		`INSERT INTO valves (id, residential, commercial, industrial, prev_norm_population, last_population)
		 VALUES (1, ?, ?, ?, ?, ?)`,
		st.Demand.ResidentialValve, st.Demand.CommercialValve, st.Demand.IndustrialValve,
		st.Demand.PrevNormPopulation, st.Demand.LastPopulation,
	); err != nil {
		return fmt.Errorf("insert valves: %w", err)
	}

	meta := map[string]string{
		"snapshot_id": uuid.NewString(),
		"saved_at":    time.Now().UTC().Format(time.RFC3339),
		"seed":        strconv.FormatInt(st.Seed, 10),
		"width":       strconv.Itoa(st.Width),
		"height":      strconv.Itoa(st.Height),
		"tick":        strconv.FormatUint(st.Tick, 10),
	}
	for key, value := range meta {
		if _, err := tx.Exec(
			"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)", key, value,
		); err != nil {
			return fmt.Errorf("insert meta %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	slog.Info("city state saved",
		"tick", st.Tick,
		"zones", len(st.Zones),
		"buildings", len(st.Buildings),
		"roads", len(st.Roads),
	)
	return nil
}

// HasState reports whether the database contains a snapshot.
func (db *DB) HasState() bool {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = 'tick'")
	return err == nil
}

// Load reads the stored snapshot.
func (db *DB) Load() (sim.State, error) {
	var st sim.State

	meta, err := db.loadMeta()
	if err != nil {
		return st, err
	}
	if st.Seed, err = strconv.ParseInt(meta["seed"], 10, 64); err != nil {
		return st, fmt.Errorf("meta seed: %w", err)
	}
	if st.Width, err = strconv.Atoi(meta["width"]); err != nil {
		return st, fmt.Errorf("meta width: %w", err)
	}
	if st.Height, err = strconv.Atoi(meta["height"]); err != nil {
		return st, fmt.Errorf("meta height: %w", err)
	}
	if st.Tick, err = strconv.ParseUint(meta["tick"], 10, 64); err != nil {
		return st, fmt.Errorf("meta tick: %w", err)
	}

	type xy struct {
		X int `db:"x"`
		Y int `db:"y"`
	}
	var points []xy
	if err := db.conn.Select(&points, "SELECT x, y FROM roads ORDER BY y, x"); err != nil {
		return st, fmt.Errorf("load roads: %w", err)
	}
	for _, p := range points {
		st.Roads = append(st.Roads, world.Point{X: p.X, Y: p.Y})
	}

	points = points[:0]
	if err := db.conn.Select(&points, "SELECT x, y FROM power_lines ORDER BY y, x"); err != nil {
		return st, fmt.Errorf("load power lines: %w", err)
	}
	for _, p := range points {
		st.Lines = append(st.Lines, world.Point{X: p.X, Y: p.Y})
	}

	var plants []struct {
		Type    infra.PlantType `db:"type"`
		AnchorX int             `db:"anchor_x"`
		AnchorY int             `db:"anchor_y"`
	}
	if err := db.conn.Select(&plants, "SELECT type, anchor_x, anchor_y FROM power_plants ORDER BY id"); err != nil {
		return st, fmt.Errorf("load plants: %w", err)
	}
	for _, p := range plants {
		st.Plants = append(st.Plants, sim.PlantState{
			Type:   p.Type,
			Anchor: world.Point{X: p.AnchorX, Y: p.AnchorY},
		})
	}

	var zones []struct {
		X        int           `db:"x"`
		Y        int           `db:"y"`
		Category zone.Category `db:"category"`
		Density  zone.Density  `db:"density"`
	}
	if err := db.conn.Select(&zones, "SELECT x, y, category, density FROM zones ORDER BY y, x"); err != nil {
		return st, fmt.Errorf("load zones: %w", err)
	}
	for _, z := range zones {
		st.Zones = append(st.Zones, sim.ZoneState{
			Pos:      world.Point{X: z.X, Y: z.Y},
			Category: z.Category,
			Density:  z.Density,
		})
	}

	var buildings []struct {
		X            int             `db:"x"`
		Y            int             `db:"y"`
		Category     zone.Category   `db:"category"`
		Density      zone.Density    `db:"density"`
		Population   int             `db:"population"`
		Jobs         int             `db:"jobs"`
		Status       growth.Status   `db:"status"`
		NoRoad       bool            `db:"no_road"`
		NoPower      bool            `db:"no_power"`
		LostAt       sql.NullFloat64 `db:"lost_at"`
		Contributing bool            `db:"contributing"`
	}
	if err := db.conn.Select(&buildings, `SELECT x, y, category, density, population, jobs,
		status, no_road, no_power, lost_at, contributing FROM buildings ORDER BY id`); err != nil {
		return st, fmt.Errorf("load buildings: %w", err)
	}
	for _, b := range buildings {
		building := growth.Building{
			Pos:          world.Point{X: b.X, Y: b.Y},
			Category:     b.Category,
			Density:      b.Density,
			Population:   b.Population,
			Jobs:         b.Jobs,
			Status:       b.Status,
			Issues:       growth.Issues{NoRoad: b.NoRoad, NoPower: b.NoPower},
			Contributing: b.Contributing,
		}
		if b.LostAt.Valid {
			lostAt := b.LostAt.Float64
			building.LostAt = &lostAt
		}
		st.Buildings = append(st.Buildings, building)
	}

	var valves struct {
		Residential        float64 `db:"residential"`
		Commercial         float64 `db:"commercial"`
		Industrial         float64 `db:"industrial"`
		PrevNormPopulation float64 `db:"prev_norm_population"`
		LastPopulation     int     `db:"last_population"`
	}
	err = db.conn.Get(&valves, "SELECT residential, commercial, industrial, prev_norm_population, last_population FROM valves WHERE id = 1")
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return st, fmt.Errorf("load valves: %w", err)
	}
	st.Demand = demand.State{
		ResidentialValve:   valves.Residential,
		CommercialValve:    valves.Commercial,
		IndustrialValve:    valves.Industrial,
		PrevNormPopulation: valves.PrevNormPopulation,
		LastPopulation:     valves.LastPopulation,
	}

	return st, nil
}

func (db *DB) loadMeta() (map[string]string, error) {
	var rows []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	if err := db.conn.Select(&rows, "SELECT key, value FROM meta"); err != nil {
		return nil, fmt.Errorf("load meta: %w", err)
	}
	meta := make(map[string]string, len(rows))
	for _, row := range rows {
		meta[row.Key] = row.Value
	}
	for _, required := range []string{"seed", "width", "height", "tick"} {
		if _, ok := meta[required]; !ok {
			return nil, fmt.Errorf("meta missing %q", required)
		}
	}
	return meta, nil
}

// AppendEvents appends recent-event log entries to the events table.
func (db *DB) AppendEvents(entries []sim.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range entries {
		if _, err := tx.Exec(
			"INSERT INTO events (tick, kind, description) VALUES (?, ?, ?)",
			e.Tick, e.Kind, e.Description,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RecentEvents returns the most recent limit events, oldest first.
func (db *DB) RecentEvents(limit int) ([]sim.LogEntry, error) {
	var entries []struct {
		Tick        uint64 `db:"tick"`
		Kind        string `db:"kind"`
		Description string `db:"description"`
	}
	err := db.conn.Select(&entries,
		"SELECT tick, kind, description FROM events ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	out := make([]sim.LogEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		out = append(out, sim.LogEntry{
			Tick:        entries[i].Tick,
			Kind:        entries[i].Kind,
			Description: entries[i].Description,
		})
	}
	return out, nil
}
