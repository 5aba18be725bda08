package snapshot

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func sample() SnapshotV1 {
	return SnapshotV1{
		Header:          Header{Version: Version, Tick: 42, ConfigDigest: "abc", InputSeq: 17},
		LootPeriod:      5 * time.Second,
		LootProbability: 0.5,
		NextDogID:       3,
		RandomizeSpawn:  true,
		Seed:            -8812,
		Sessions: []SessionV1{
			{
				Slot: 0, MapID: "map1", Capacity: 4,
				LootInterval: 5 * time.Second, LootProbability: 0.5, TimeWithoutLoot: 1200 * time.Millisecond,
				NextLootID: 2,
				Dogs: []DogV1{{
					ID: 0, Name: "rex", Pos: [2]float64{1.5, 0}, Speed: [2]float64{1, 0}, Facing: "R",
					Bag: []FoundObjectV1{{ID: 0, Type: 1, Value: 10}}, Score: 20,
					LifeTime: 3 * time.Second, StayTime: 0,
				}},
				Loot: []LootV1{{ID: 1, Type: 0, Pos: [2]float64{7.25, 0.1}, Value: 5}},
			},
			{Slot: 1, MapID: "map1", Spent: true, Capacity: 4},
		},
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	in := sample()
	b, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	out, err := Unmarshal(b)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch:\nin=%+v\nout=%+v", in, out)
	}
}

func TestWriteReadSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "game.snap")
	in := sample()
	if err := WriteSnapshot(path, in); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("tmp file left behind: %v", err)
	}
	out, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("file round trip mismatch")
	}
	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if h != in.Header {
		t.Fatalf("header: got %+v want %+v", h, in.Header)
	}
}

func TestUnmarshalRejects(t *testing.T) {
	if _, err := Unmarshal([]byte("not zstd")); err == nil {
		t.Fatalf("expected error for garbage input")
	}
	bad := sample()
	bad.Header.Version = 9
	b, err := Marshal(bad)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if _, err := Unmarshal(b); err == nil {
		t.Fatalf("expected version error")
	}
}
