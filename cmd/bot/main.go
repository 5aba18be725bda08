package main

import (
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"dogcourier.ai/internal/protocol"
)

var moves = []string{"U", "D", "L", "R", ""}

func main() {
	var (
		url    = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name   = flag.String("name", "bot", "dog name")
		mapID  = flag.String("map", "map1", "map to join")
		binary = flag.Bool("binary", false, "ask for msgpack STATE frames")
		every  = flag.Duration("turn_every", 2*time.Second, "how often to pick a new direction")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		DogName:         *name,
		MapID:           *mapID,
		Capabilities:    protocol.HelloCapabilities{Binary: *binary},
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	b := &bot{conn: conn, logger: logger, every: *every, rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Printf("disconnected: %v", err)
			return
		}
		if kind == websocket.BinaryMessage {
			var st protocol.StateMsg
			if err := protocol.DecodeBinary(msg, &st); err == nil {
				b.onState(&st)
			}
			continue
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("WELCOME dog_id=%d map=%s session=%d speed=%g bag=%d", w.DogID, w.MapID, w.Session, w.Params.DogSpeed, w.Params.BagCapacity)
		case protocol.TypeState:
			var st protocol.StateMsg
			if err := json.Unmarshal(msg, &st); err != nil {
				continue
			}
			b.onState(&st)
		case protocol.TypeError:
			var e protocol.ErrorMsg
			_ = json.Unmarshal(msg, &e)
			logger.Printf("ERROR %s: %s", e.Code, e.Message)
		}
	}
}

type bot struct {
	conn   *websocket.Conn
	logger *log.Logger
	every  time.Duration
	rng    *rand.Rand

	lastTurn  time.Time
	lastScore int
}

// onState wanders: a new random direction every b.every, and a log line
// whenever the score changes.
func (b *bot) onState(st *protocol.StateMsg) {
	for _, p := range st.Players {
		if p.ID != st.DogID {
			continue
		}
		if p.Score != b.lastScore {
			b.logger.Printf("tick=%d score=%d bag=%d pos=%v", st.Tick, p.Score, len(p.Bag), p.Pos)
			b.lastScore = p.Score
		}
	}
	if time.Since(b.lastTurn) < b.every {
		return
	}
	b.lastTurn = time.Now()
	act := protocol.ActMsg{Type: protocol.TypeAct, ProtocolVersion: protocol.Version, Move: moves[b.rng.Intn(len(moves))]}
	if err := b.conn.WriteJSON(act); err != nil {
		b.logger.Printf("send ACT: %v", err)
	}
}
