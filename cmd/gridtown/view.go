package main

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/talgya/gridtown/internal/infra"
	"github.com/talgya/gridtown/internal/sim"
	"github.com/talgya/gridtown/internal/world"
	"github.com/talgya/gridtown/internal/zone"
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Run the city with an interactive terminal viewer",
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

		screen, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("open terminal: %w", err)
		}
		if err := screen.Init(); err != nil {
			return fmt.Errorf("init terminal: %w", err)
		}
		defer screen.Fini()

		v := &viewer{
			sim:     s,
			loop:    sim.NewLoop(s),
			screen:  screen,
			density: zone.DensityLow,
		}
		go v.loop.Run()
		v.run()

		if db != nil {
			if err := db.Save(s.Export()); err != nil {
				return fmt.Errorf("save on exit: %w", err)
			}
		}
		return nil
	},
}

// viewer renders one snapshot per frame and translates keystrokes into
// simulation operations. It never holds simulation state of its own.
type viewer struct {
	sim    *sim.Simulation
	loop   *sim.Loop
	screen tcell.Screen

	cursor  world.Point
	density zone.Density
	status  string
}

const frameInterval = 33 * time.Millisecond

func (v *viewer) run() {
	events := make(chan tcell.Event, 16)
	go func() {
		for {
			events <- v.screen.PollEvent()
		}
	}()

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()
	defer v.loop.Stop()

	for {
		select {
		case ev := <-events:
			if v.handleEvent(ev) {
				return
			}
		case <-ticker.C:
			v.render(v.sim.Snapshot())
		}
	}
}

// handleEvent returns true when the viewer should exit.
func (v *viewer) handleEvent(ev tcell.Event) bool {
	key, ok := ev.(*tcell.EventKey)
	if !ok {
		if _, resized := ev.(*tcell.EventResize); resized {
			v.screen.Sync()
		}
		return false
	}

	switch key.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyUp:
		v.moveCursor(0, -1)
	case tcell.KeyDown:
		v.moveCursor(0, 1)
	case tcell.KeyLeft:
		v.moveCursor(-1, 0)
	case tcell.KeyRight:
		v.moveCursor(1, 0)
	case tcell.KeyRune:
		return v.handleRune(key.Rune())
	}
	return false
}

func (v *viewer) handleRune(r rune) bool {
	switch r {
	case 'q':
		return true
	case 'h':
		v.moveCursor(-1, 0)
	case 'j':
		v.moveCursor(0, 1)
	case 'k':
		v.moveCursor(0, -1)
	case 'l':
		v.moveCursor(1, 0)
	case ' ':
		v.togglePause()
	case '+', '=':
		v.loop.SetSpeed(v.loop.Speed() * 2)
	case '-':
		v.loop.SetSpeed(v.loop.Speed() / 2)
	case '1', '2', '3':
		v.density = zone.Density(r - '1')
		v.status = fmt.Sprintf("density: %s", zone.DensityName(v.density))
	case 'z':
		v.placeZone(zone.CategoryResidential)
	case 'x':
		v.placeZone(zone.CategoryCommercial)
	case 'c':
		v.placeZone(zone.CategoryIndustrial)
	case 'r':
		v.report(v.sim.PlaceRoad(v.cursor), "road placed", "cannot place road")
	case 't':
		v.report(v.sim.PlacePowerLine(v.cursor), "power line placed", "cannot place power line")
	case 'w':
		v.placePlant(infra.PlantWindmill)
	case 's':
		v.placePlant(infra.PlantSolar)
	case 'o':
		v.placePlant(infra.PlantCoal)
	case 'd':
		v.demolish()
	}
	return false
}

func (v *viewer) moveCursor(dx, dy int) {
	snap := v.sim.Snapshot()
	nx, ny := v.cursor.X+dx, v.cursor.Y+dy
	if nx >= 0 && nx < snap.Width {
		v.cursor.X = nx
	}
	if ny >= 0 && ny < snap.Height {
		v.cursor.Y = ny
	}
}

func (v *viewer) togglePause() {
	if v.loop.Speed() == 0 {
		v.loop.SetSpeed(1)
		v.status = "running"
	} else {
		v.loop.SetSpeed(0)
		v.status = "paused"
	}
}

func (v *viewer) placeZone(cat zone.Category) {
	cost, ok := v.sim.PlaceZone(v.cursor, cat, v.density)
	if ok {
		v.status = fmt.Sprintf("%s zone placed ($%d)", zone.CategoryName(cat), cost)
	} else {
		v.status = "cannot zone here"
	}
}

func (v *viewer) placePlant(t infra.PlantType) {
	spec := infra.SpecFor(t)
	if _, ok := v.sim.PlacePowerPlant(t, v.cursor); ok {
		v.status = fmt.Sprintf("%s plant placed (%d MW)", spec.Name, spec.Capacity)
	} else {
		v.status = fmt.Sprintf("cannot place %s plant", spec.Name)
	}
}

// demolish removes whatever occupies the cursor cell, preferring the
// zone layer over infrastructure.
func (v *viewer) demolish() {
	switch {
	case v.sim.RemoveZone(v.cursor):
		v.status = "zone removed"
	case v.sim.RemoveRoad(v.cursor):
		v.status = "road removed"
	case v.sim.RemovePowerLine(v.cursor):
		v.status = "power line removed"
	default:
		v.status = "nothing to remove"
	}
}

func (v *viewer) report(ok bool, good, bad string) {
	if ok {
		v.status = good
	} else {
		v.status = bad
	}
}

var (
	styleDefault = tcell.StyleDefault
	styleWater   = styleDefault.Foreground(tcell.ColorBlue)
	styleSteep   = styleDefault.Foreground(tcell.ColorGray)
	styleFlat    = styleDefault.Foreground(tcell.ColorDarkGreen)
	styleRoad    = styleDefault.Foreground(tcell.ColorSilver)
	styleLine    = styleDefault.Foreground(tcell.ColorYellow)
	stylePlant   = styleDefault.Foreground(tcell.ColorWhite).Bold(true)
	styleCursor  = styleDefault.Reverse(true)

	categoryStyles = map[zone.Category]tcell.Style{
		zone.CategoryResidential: styleDefault.Foreground(tcell.ColorGreen),
		zone.CategoryCommercial:  styleDefault.Foreground(tcell.ColorBlue),
		zone.CategoryIndustrial:  styleDefault.Foreground(tcell.ColorYellow),
	}
)

func (v *viewer) render(snap *sim.Snapshot) {
	v.screen.Clear()

	sw, sh := v.screen.Size()
	// Two header rows, one status row at the bottom.
	viewW, viewH := min(snap.Width, sw), min(snap.Height, sh-3)

	for y := 0; y < viewH; y++ {
		for x := 0; x < viewW; x++ {
			r, style := cellGlyph(snap.At(x, y))
			if x == v.cursor.X && y == v.cursor.Y {
				style = styleCursor
			}
			v.screen.SetContent(x, y+2, r, nil, style)
		}
	}

	d := snap.Demand
	putString(v.screen, 0, 0, styleDefault, fmt.Sprintf(
		"tick %d  pop %d  jobs %d  power %d MW  speed %.2gx",
		snap.Tick, snap.Population, snap.Jobs, snap.Capacity, v.loop.Speed()))
	putString(v.screen, 0, 1, styleDefault, fmt.Sprintf(
		"demand R %+.2f  C %+.2f  I %+.2f  cursor (%d,%d)  density %s",
		d.Gauges[0], d.Gauges[1], d.Gauges[2],
		v.cursor.X, v.cursor.Y, zone.DensityName(v.density)))

	help := "z/x/c zone  1-3 density  r road  t line  w/s/o plant  d remove  space pause  q quit"
	if v.status != "" {
		help = v.status + "  |  " + help
	}
	putString(v.screen, 0, sh-1, styleDefault, help)

	v.screen.Show()
}

func cellGlyph(c sim.CellView) (rune, tcell.Style) {
	switch {
	case c.Plant:
		return '@', stylePlant
	case c.Category != zone.CategoryNone:
		style := categoryStyles[c.Category]
		r := categoryRune(c.Category)
		if c.Developed {
			return r - 32, style.Bold(true) // uppercase
		}
		if !c.Powered {
			style = style.Dim(true)
		}
		return r, style
	case c.Road:
		return '#', styleRoad
	case c.PowerLine:
		return '+', styleLine
	case c.Terrain == world.TerrainWater:
		return '~', styleWater
	case c.Terrain == world.TerrainSteep:
		return '^', styleSteep
	default:
		return '.', styleFlat
	}
}

func categoryRune(cat zone.Category) rune {
	switch cat {
	case zone.CategoryResidential:
		return 'r'
	case zone.CategoryCommercial:
		return 'c'
	default:
		return 'i'
	}
}

func putString(s tcell.Screen, x, y int, style tcell.Style, text string) {
	w, _ := s.Size()
	for _, r := range text {
		if x >= w {
			return
		}
		s.SetContent(x, y, r, nil, style)
		x++
	}
}
