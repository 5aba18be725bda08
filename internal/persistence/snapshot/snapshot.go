package snapshot

import (
	"bufio"
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version      int    `json:"version"`
	Tick         uint64 `json:"tick"`
	ConfigDigest string `json:"config_digest,omitempty"`
	SavedAtUnix  int64  `json:"saved_at_unix,omitempty"`
	// InputSeq is the sequence number of the last input already applied to
	// this state; replay skips tick log inputs up to it.
	InputSeq uint64 `json:"input_seq,omitempty"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	LootPeriod      time.Duration `json:"loot_period"`
	LootProbability float64       `json:"loot_probability"`
	NextDogID       uint64        `json:"next_dog_id"`
	RandomizeSpawn  bool          `json:"randomize_spawn,omitempty"`
	// Seed is the state of the spawn rng: it was last seeded with this value
	// when the snapshot was taken.
	Seed int64 `json:"seed"`

	Sessions []SessionV1 `json:"sessions"`
}

// SessionV1 is one slot. A spent slot keeps its map and capacity only.
type SessionV1 struct {
	Slot     int    `json:"slot"`
	MapID    string `json:"map_id"`
	Spent    bool   `json:"spent,omitempty"`
	Capacity int    `json:"capacity"`

	LootInterval    time.Duration `json:"loot_interval"`
	LootProbability float64       `json:"loot_probability"`
	TimeWithoutLoot time.Duration `json:"time_without_loot"`
	NextLootID      uint64        `json:"next_loot_id"`

	Dogs []DogV1  `json:"dogs,omitempty"`
	Loot []LootV1 `json:"loot,omitempty"`
}

type DogV1 struct {
	ID       uint64          `json:"id"`
	Name     string          `json:"name"`
	Pos      [2]float64      `json:"pos"`
	Speed    [2]float64      `json:"speed"`
	Facing   string          `json:"facing"`
	Bag      []FoundObjectV1 `json:"bag,omitempty"`
	Score    int             `json:"score"`
	LifeTime time.Duration   `json:"life_time"`
	StayTime time.Duration   `json:"stay_time"`
}

type FoundObjectV1 struct {
	ID    uint64 `json:"id"`
	Type  int    `json:"type"`
	Value int    `json:"value"`
}

type LootV1 struct {
	ID    uint64     `json:"id"`
	Type  int        `json:"type"`
	Pos   [2]float64 `json:"pos"`
	Value int        `json:"value"`
}

// Encode writes snap as zstd( header JSON line + gob ).
func Encode(w io.Writer, snap SnapshotV1) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func Decode(r io.Reader) (SnapshotV1, error) {
	var snap SnapshotV1
	dec, err := zstd.NewReader(r)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version: %d", snap.Header.Version)
	}
	return snap, nil
}

// Marshal and Unmarshal are the in-memory form of Encode and Decode.
func Marshal(snap SnapshotV1) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func Unmarshal(b []byte) (SnapshotV1, error) {
	return Decode(bytes.NewReader(b))
}

// ReadHeader decodes only the leading JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()
	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("header: %w", err)
	}
	return h, nil
}

// WriteSnapshot encodes into path+".tmp" and renames it over path, so a
// failed write leaves the previous file intact.
func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := Encode(f, snap); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	f, err := os.Open(path)
	if err != nil {
		return SnapshotV1{}, err
	}
	defer f.Close()
	return Decode(f)
}
