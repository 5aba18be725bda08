package world

import (
	"fmt"

	"dogcourier.ai/internal/sim/catalogs"
	"dogcourier.ai/internal/sim/geom"
)

// Collision widths.
const (
	DogWidth    = 0.6
	LootWidth   = 0.0
	OfficeWidth = 0.5
)

type Building struct {
	Bounds geom.Rect
}

type Office struct {
	ID     string
	Pos    geom.Point
	Offset [2]int
}

// LootType carries render hints through to clients untouched; only Value
// matters to the simulation.
type LootType struct {
	Name     string
	File     string
	Type     string
	Color    string
	Rotation *int
	Scale    *float64
	Value    int
}

// Map is immutable once loaded.
type Map struct {
	ID          string
	Name        string
	DogSpeed    float64
	BagCapacity int
	MaxPlayers  int
	Roads       []Road
	Buildings   []Building
	Offices     []Office
	LootTypes   []LootType
}

// RoadBorders unions the borders of every road containing p. ok is false when
// p lies on no road.
func (m *Map) RoadBorders(p geom.Point) (b geom.Borders, ok bool) {
	for _, r := range m.Roads {
		if !r.Contains(p) {
			continue
		}
		if !ok {
			b, ok = r.Borders(), true
			continue
		}
		b = b.Union(r.Borders())
	}
	return b, ok
}

type MapHandle int

// MapArena owns every loaded map. Sessions refer to maps by handle.
type MapArena struct {
	maps []*Map
	byID map[string]MapHandle
}

// NewArena builds maps from the game config. Maps without maxPlayers get
// defaultCapacity seats per session.
func NewArena(cfg *catalogs.GameConfig, defaultCapacity int) (*MapArena, error) {
	if defaultCapacity <= 0 {
		return nil, fmt.Errorf("default session capacity must be > 0, got %d", defaultCapacity)
	}
	a := &MapArena{byID: make(map[string]MapHandle, len(cfg.Maps))}
	for _, md := range cfg.Maps {
		if _, dup := a.byID[md.ID]; dup {
			return nil, fmt.Errorf("duplicate map id %q", md.ID)
		}
		m := &Map{
			ID:          md.ID,
			Name:        md.Name,
			DogSpeed:    cfg.SpeedFor(md),
			BagCapacity: cfg.BagCapacityFor(md),
			MaxPlayers:  md.MaxPlayers,
		}
		if m.MaxPlayers == 0 {
			m.MaxPlayers = defaultCapacity
		}
		for _, rd := range md.Roads {
			start := geom.Point{X: float64(rd.X0), Y: float64(rd.Y0)}
			if rd.X1 != nil {
				m.Roads = append(m.Roads, NewHorizontalRoad(start, float64(*rd.X1)))
			} else if rd.Y1 != nil {
				m.Roads = append(m.Roads, NewVerticalRoad(start, float64(*rd.Y1)))
			}
		}
		if len(m.Roads) == 0 {
			return nil, fmt.Errorf("map %q: no roads", md.ID)
		}
		for _, bd := range md.Buildings {
			m.Buildings = append(m.Buildings, Building{Bounds: geom.Rect{X: bd.X, Y: bd.Y, W: bd.W, H: bd.H}})
		}
		for _, od := range md.Offices {
			m.Offices = append(m.Offices, Office{
				ID:     od.ID,
				Pos:    geom.Point{X: float64(od.X), Y: float64(od.Y)},
				Offset: [2]int{od.OffsetX, od.OffsetY},
			})
		}
		for _, lt := range md.LootTypes {
			m.LootTypes = append(m.LootTypes, LootType{
				Name:     lt.Name,
				File:     lt.File,
				Type:     lt.Type,
				Color:    lt.Color,
				Rotation: lt.Rotation,
				Scale:    lt.Scale,
				Value:    lt.Value,
			})
		}
		a.byID[m.ID] = MapHandle(len(a.maps))
		a.maps = append(a.maps, m)
	}
	return a, nil
}

func (a *MapArena) Lookup(id string) (MapHandle, bool) {
	h, ok := a.byID[id]
	return h, ok
}

func (a *MapArena) Get(h MapHandle) *Map { return a.maps[h] }

// Maps returns maps in config order.
func (a *MapArena) Maps() []*Map {
	out := make([]*Map, len(a.maps))
	copy(out, a.maps)
	return out
}
