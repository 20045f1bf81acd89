package data

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/frontline/warsim/internal/director"
	"github.com/frontline/warsim/internal/war"
)

// TerrainEntry points at a heightmap file, relative to the scenario file.
type TerrainEntry struct {
	File    string  `yaml:"file"`
	OriginX float64 `yaml:"origin_x"`
	OriginZ float64 `yaml:"origin_z"`
	Cell    float64 `yaml:"cell"`
}

// ZoneEntry is one zone as written in yaml. An omitted owner means neutral.
type ZoneEntry struct {
	ID        string   `yaml:"id"`
	Name      string   `yaml:"name"`
	Pos       war.Vec3 `yaml:"pos"`
	Radius    float64  `yaml:"radius"`
	Owner     string   `yaml:"owner"`
	Contested bool     `yaml:"contested"`
	HomeBase  bool     `yaml:"home_base"`
	BleedRate float64  `yaml:"bleed_rate"`
}

// ScenarioFile is the on-disk shape of scenario.yaml.
type ScenarioFile struct {
	Name           string                       `yaml:"name"`
	Tickets        int                          `yaml:"tickets"`
	SetupSeconds   float64                      `yaml:"setup_seconds"`
	CaptureSeconds float64                      `yaml:"capture_seconds"`
	Player         war.Vec3                     `yaml:"player"`
	Terrain        *TerrainEntry                `yaml:"terrain"`
	Zones          []ZoneEntry                  `yaml:"zones"`
	Doctrines      map[string]director.Doctrine `yaml:"doctrines"` // keyed by faction name
}

// Scenario is a validated, ready-to-use scenario.
type Scenario struct {
	Name           string
	Tickets        int
	SetupSeconds   float64
	CaptureSeconds float64
	Player         war.Vec3
	Zones          []war.Zone
	Doctrines      director.StaticDoctrines
	Heightmap      *Heightmap // nil: flat ground
}

// Terrain returns the height query for the scenario's ground.
func (s *Scenario) Terrain() war.TerrainFunc {
	if s.Heightmap == nil {
		return nil
	}
	return s.Heightmap.Height
}

// LoadScenario reads and validates a scenario yaml.
func LoadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	var file ScenarioFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	sc, err := file.build()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	if t := file.Terrain; t != nil && t.File != "" {
		p := t.File
		if !filepath.IsAbs(p) {
			p = filepath.Join(filepath.Dir(path), p)
		}
		if sc.Heightmap, err = LoadHeightmap(p, t.OriginX, t.OriginZ, t.Cell); err != nil {
			return nil, err
		}
	}
	return sc, nil
}

func (f *ScenarioFile) build() (*Scenario, error) {
	sc := &Scenario{
		Name:           f.Name,
		Tickets:        f.Tickets,
		SetupSeconds:   f.SetupSeconds,
		CaptureSeconds: f.CaptureSeconds,
		Player:         f.Player,
		Zones:          make([]war.Zone, 0, len(f.Zones)),
		Doctrines:      director.DefaultDoctrines(),
	}
	if sc.Tickets <= 0 {
		sc.Tickets = 300
	}
	if sc.CaptureSeconds <= 0 {
		sc.CaptureSeconds = 30
	}

	seen := make(map[string]bool, len(f.Zones))
	homes := [2]int{}
	for i, e := range f.Zones {
		if e.ID == "" {
			return nil, fmt.Errorf("zone %d: missing id", i)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("zone %q: duplicate id", e.ID)
		}
		seen[e.ID] = true
		if e.Radius <= 0 {
			return nil, fmt.Errorf("zone %q: radius must be positive", e.ID)
		}
		owner := war.NoFaction
		if err := owner.UnmarshalText([]byte(strings.ToLower(e.Owner))); err != nil {
			return nil, fmt.Errorf("zone %q: %w", e.ID, err)
		}
		z := war.Zone{
			ID:        e.ID,
			Name:      e.Name,
			Pos:       e.Pos,
			Radius:    e.Radius,
			Owner:     owner,
			HomeBase:  e.HomeBase,
			BleedRate: e.BleedRate,
		}
		if z.Name == "" {
			z.Name = z.ID
		}
		switch {
		case e.Contested && !e.HomeBase:
			z.State = war.ZoneContested
		case owner.Valid():
			z.State = war.ZoneControlled
		}
		if z.HomeBase {
			if !owner.Valid() {
				return nil, fmt.Errorf("zone %q: home base needs an owner", z.ID)
			}
			homes[owner]++
		}
		sc.Zones = append(sc.Zones, z)
	}
	for _, fa := range war.Factions {
		if homes[fa] == 0 {
			return nil, fmt.Errorf("%s has no home base", fa)
		}
	}

	for name, d := range f.Doctrines {
		var fa war.Faction
		if err := fa.UnmarshalText([]byte(strings.ToLower(name))); err != nil || !fa.Valid() {
			return nil, fmt.Errorf("doctrine for unknown faction %q", name)
		}
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if d.Name == "" {
			d.Name = name
		}
		sc.Doctrines[fa] = d
	}
	return sc, nil
}
