package protocol

// STATE (server -> client): everything the dog's session can see.
type StateMsg struct {
	Type            string        `json:"type"`
	ProtocolVersion string        `json:"protocol_version"`
	Tick            uint64        `json:"tick"`
	DogID           uint64        `json:"dog_id"`
	MapID           string        `json:"map_id"`
	Session         int           `json:"session"`
	Players         []PlayerState `json:"players"`
	LostObjects     []LootState   `json:"lost_objects"`
}

type PlayerState struct {
	ID    uint64     `json:"id"`
	Name  string     `json:"name"`
	Pos   [2]float64 `json:"pos"`
	Speed [2]float64 `json:"speed"`
	Dir   string     `json:"dir"`
	Bag   []BagItem  `json:"bag"`
	Score int        `json:"score"`
}

type BagItem struct {
	ID   uint64 `json:"id"`
	Type int    `json:"type"`
}

type LootState struct {
	ID   uint64     `json:"id"`
	Type int        `json:"type"`
	Pos  [2]float64 `json:"pos"`
}
