package protocol

// HELLO (client -> server): join a map.
type HelloMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	DogName         string            `json:"dog_name"`
	MapID           string            `json:"map_id"`
	Capabilities    HelloCapabilities `json:"capabilities"`
}

type HelloCapabilities struct {
	// Binary asks for msgpack STATE frames instead of JSON text.
	Binary bool `json:"binary,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	DogID           uint64      `json:"dog_id"`
	Session         int         `json:"session"`
	MapID           string      `json:"map_id"`
	Binary          bool        `json:"binary,omitempty"`
	Params          WorldParams `json:"params"`
}

type WorldParams struct {
	TickPeriodMs int     `json:"tick_period_ms"`
	BagCapacity  int     `json:"bag_capacity"`
	DogSpeed     float64 `json:"dog_speed"`
	ConfigDigest string  `json:"config_digest,omitempty"`
}

// ACT (client -> server). Move is one of "U", "D", "L", "R" or "" to stop.
type ActMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Move            string `json:"move"`
}

type AckMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AckFor          string `json:"ack_for"`
	Accepted        bool   `json:"accepted"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	ServerTick      uint64 `json:"server_tick,omitempty"`
}

type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

// MaxRecordsPage is the largest max_items a RECORDS_REQ may ask for.
const MaxRecordsPage = 100

// RECORDS_REQ (client -> server): page through the retired-dog leaderboard.
type RecordsReqMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id,omitempty"`
	Start           int    `json:"start"`
	// MaxItems defaults to MaxRecordsPage when absent.
	MaxItems *int `json:"max_items,omitempty"`
}

type RecordsMsg struct {
	Type            string        `json:"type"`
	ProtocolVersion string        `json:"protocol_version"`
	ReqID           string        `json:"req_id,omitempty"`
	Records         []RecordEntry `json:"records"`
	NextStart       int           `json:"next_start"`
}

type RecordEntry struct {
	Name     string  `json:"name"`
	Score    int     `json:"score"`
	PlayTime float64 `json:"play_time"` // seconds
}
