package httpapi

import "dogcourier.ai/internal/sim/world"

// Map views mirror the layout of the game config file.

type mapSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type mapView struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	DogSpeed    float64        `json:"dogSpeed"`
	BagCapacity int            `json:"bagCapacity"`
	MaxPlayers  int            `json:"maxPlayers"`
	Roads       []roadView     `json:"roads"`
	Buildings   []buildingView `json:"buildings"`
	Offices     []officeView   `json:"offices"`
	LootTypes   []lootTypeView `json:"lootTypes"`
}

type roadView struct {
	X0 int  `json:"x0"`
	Y0 int  `json:"y0"`
	X1 *int `json:"x1,omitempty"`
	Y1 *int `json:"y1,omitempty"`
}

type buildingView struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type officeView struct {
	ID      string `json:"id"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	OffsetX int    `json:"offsetX"`
	OffsetY int    `json:"offsetY"`
}

type lootTypeView struct {
	Name     string   `json:"name"`
	File     string   `json:"file"`
	Type     string   `json:"type"`
	Rotation *int     `json:"rotation,omitempty"`
	Color    string   `json:"color,omitempty"`
	Scale    *float64 `json:"scale,omitempty"`
	Value    int      `json:"value"`
}

func newMapView(m *world.Map) mapView {
	v := mapView{
		ID:          m.ID,
		Name:        m.Name,
		DogSpeed:    m.DogSpeed,
		BagCapacity: m.BagCapacity,
		MaxPlayers:  m.MaxPlayers,
		Roads:       make([]roadView, 0, len(m.Roads)),
		Buildings:   make([]buildingView, 0, len(m.Buildings)),
		Offices:     make([]officeView, 0, len(m.Offices)),
		LootTypes:   make([]lootTypeView, 0, len(m.LootTypes)),
	}
	for _, r := range m.Roads {
		rv := roadView{X0: int(r.Start.X), Y0: int(r.Start.Y)}
		if r.IsHorizontal() {
			x1 := int(r.End.X)
			rv.X1 = &x1
		} else {
			y1 := int(r.End.Y)
			rv.Y1 = &y1
		}
		v.Roads = append(v.Roads, rv)
	}
	for _, b := range m.Buildings {
		v.Buildings = append(v.Buildings, buildingView{X: b.Bounds.X, Y: b.Bounds.Y, W: b.Bounds.W, H: b.Bounds.H})
	}
	for _, o := range m.Offices {
		v.Offices = append(v.Offices, officeView{ID: o.ID, X: int(o.Pos.X), Y: int(o.Pos.Y), OffsetX: o.Offset[0], OffsetY: o.Offset[1]})
	}
	for _, lt := range m.LootTypes {
		v.LootTypes = append(v.LootTypes, lootTypeView{Name: lt.Name, File: lt.File, Type: lt.Type, Rotation: lt.Rotation, Color: lt.Color, Scale: lt.Scale, Value: lt.Value})
	}
	return v
}
