package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	DefaultDogSpeed        = 1.0
	DefaultBagCapacity     = 3
	DefaultRetirementTime  = 60.0
	DefaultLootPeriod      = 5.0
	DefaultLootProbability = 0.5
)

// GameConfig is the parsed game file: the map catalog plus game-wide loot
// generator settings.
type GameConfig struct {
	DefaultDogSpeed    float64    `json:"defaultDogSpeed"`
	DefaultBagCapacity int        `json:"defaultBagCapacity"`
	DogRetirementTime  float64    `json:"dogRetirementTime"` // seconds
	LootGenerator      LootGenDef `json:"lootGeneratorConfig"`
	Maps               []MapDef   `json:"maps"`

	// Digest is the sha256 of the raw file; logged at startup and stored in
	// snapshot headers.
	Digest string `json:"-"`
}

type LootGenDef struct {
	Period      float64 `json:"period"` // seconds
	Probability float64 `json:"probability"`
}

type MapDef struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	DogSpeed    *float64      `json:"dogSpeed,omitempty"`
	BagCapacity *int          `json:"bagCapacity,omitempty"`
	MaxPlayers  int           `json:"maxPlayers,omitempty"`
	LootTypes   []LootTypeDef `json:"lootTypes"`
	Roads       []RoadDef     `json:"roads"`
	Buildings   []BuildingDef `json:"buildings"`
	Offices     []OfficeDef   `json:"offices"`
}

// RoadDef is horizontal when X1 is set and vertical when Y1 is set.
type RoadDef struct {
	X0 int  `json:"x0"`
	Y0 int  `json:"y0"`
	X1 *int `json:"x1,omitempty"`
	Y1 *int `json:"y1,omitempty"`
}

type BuildingDef struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type OfficeDef struct {
	ID      string `json:"id"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	OffsetX int    `json:"offsetX"`
	OffsetY int    `json:"offsetY"`
}

type LootTypeDef struct {
	Name     string   `json:"name"`
	File     string   `json:"file"`
	Type     string   `json:"type"`
	Rotation *int     `json:"rotation,omitempty"`
	Color    string   `json:"color,omitempty"`
	Scale    *float64 `json:"scale,omitempty"`
	Value    int      `json:"value"`
}

// Load reads and validates the game config at path. Missing game-level
// settings fall back to the package defaults.
func Load(path string) (*GameConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw, filepath.Base(path))
}

func Parse(raw []byte, name string) (*GameConfig, error) {
	var c GameConfig
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	c.Digest = sha256Hex(raw)
	if c.DefaultDogSpeed <= 0 {
		c.DefaultDogSpeed = DefaultDogSpeed
	}
	if c.DefaultBagCapacity <= 0 {
		c.DefaultBagCapacity = DefaultBagCapacity
	}
	if c.DogRetirementTime <= 0 {
		c.DogRetirementTime = DefaultRetirementTime
	}
	if c.LootGenerator.Period <= 0 {
		c.LootGenerator.Period = DefaultLootPeriod
	}
	if c.LootGenerator.Probability < 0 || c.LootGenerator.Probability > 1 {
		return nil, fmt.Errorf("%s: lootGeneratorConfig.probability out of [0,1]: %v", name, c.LootGenerator.Probability)
	}
	if len(c.Maps) == 0 {
		return nil, fmt.Errorf("%s: no maps", name)
	}

	seen := map[string]bool{}
	for i := range c.Maps {
		m := &c.Maps[i]
		if m.ID == "" {
			return nil, fmt.Errorf("%s: map %d: empty id", name, i)
		}
		if seen[m.ID] {
			return nil, fmt.Errorf("%s: duplicate map id %q", name, m.ID)
		}
		seen[m.ID] = true
		if len(m.Roads) == 0 {
			return nil, fmt.Errorf("%s: map %q: no roads", name, m.ID)
		}
		for j, r := range m.Roads {
			if (r.X1 == nil) == (r.Y1 == nil) {
				return nil, fmt.Errorf("%s: map %q: road %d: exactly one of x1/y1 required", name, m.ID, j)
			}
		}
		if m.MaxPlayers < 0 {
			return nil, fmt.Errorf("%s: map %q: negative maxPlayers", name, m.ID)
		}
	}
	return &c, nil
}

// SpeedFor returns the map's dog speed or the game default.
func (c *GameConfig) SpeedFor(m MapDef) float64 {
	if m.DogSpeed != nil && *m.DogSpeed > 0 {
		return *m.DogSpeed
	}
	return c.DefaultDogSpeed
}

func (c *GameConfig) BagCapacityFor(m MapDef) int {
	if m.BagCapacity != nil && *m.BagCapacity > 0 {
		return *m.BagCapacity
	}
	return c.DefaultBagCapacity
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
