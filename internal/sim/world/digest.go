package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"
)

// StateDigest hashes the full simulation state in a fixed order. Two games
// with the same digest behave identically on the next tick given the same
// inputs and random source.
func (g *Game) StateDigest(nowTick uint64) string {
	h := sha256.New()
	var tmp [8]byte
	digestU64(h, &tmp, nowTick)
	digestU64(h, &tmp, uint64(g.nextDogID))
	for slot, s := range g.sessions {
		digestU64(h, &tmp, uint64(slot))
		digestU64(h, &tmp, uint64(g.slotMaps[slot]))
		if s == nil {
			h.Write([]byte{0})
			continue
		}
		h.Write([]byte{1})
		digestU64(h, &tmp, uint64(s.capacity))
		digestU64(h, &tmp, uint64(s.nextLootID))
		digestU64(h, &tmp, uint64(s.generator.BaseInterval()))
		digestF64(h, &tmp, s.generator.Probability())
		digestU64(h, &tmp, uint64(s.generator.TimeWithoutLoot()))
		for _, d := range s.Dogs() {
			digestU64(h, &tmp, uint64(d.ID))
			h.Write([]byte(d.Name))
			digestF64(h, &tmp, d.Pos.X)
			digestF64(h, &tmp, d.Pos.Y)
			digestF64(h, &tmp, d.Speed.DX)
			digestF64(h, &tmp, d.Speed.DY)
			h.Write([]byte{byte(d.Facing)})
			digestU64(h, &tmp, uint64(d.Score))
			digestU64(h, &tmp, uint64(d.LifeTime))
			digestU64(h, &tmp, uint64(d.StayTime))
			for _, o := range d.Bag {
				digestU64(h, &tmp, uint64(o.ID))
				digestU64(h, &tmp, uint64(o.Type))
				digestU64(h, &tmp, uint64(o.Value))
			}
		}
		for _, l := range s.Loot() {
			digestU64(h, &tmp, uint64(l.ID))
			digestU64(h, &tmp, uint64(l.Type))
			digestF64(h, &tmp, l.Pos.X)
			digestF64(h, &tmp, l.Pos.Y)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func digestU64(h hash.Hash, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestF64(h hash.Hash, tmp *[8]byte, v float64) {
	digestU64(h, tmp, math.Float64bits(v))
}
