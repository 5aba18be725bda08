package ws

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"dogcourier.ai/internal/persistence/records"
	"dogcourier.ai/internal/protocol"
	"dogcourier.ai/internal/sim/catalogs"
	"dogcourier.ai/internal/sim/runtime"
	"dogcourier.ai/internal/sim/world"
)

const testGame = `{
  "defaultDogSpeed": 2.0,
  "maps": [
    {"id": "town", "name": "Town", "bagCapacity": 4,
     "roads": [{"x0": 0, "y0": 0, "x1": 40}]}
  ]
}`

func newTestServer(t *testing.T) (*runtime.Runtime, *httptest.Server) {
	t.Helper()
	cfg, err := catalogs.Parse([]byte(testGame), "game.json")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	arena, err := world.NewArena(cfg, 4)
	if err != nil {
		t.Fatalf("arena: %v", err)
	}
	logger := log.New(io.Discard, "", 0)
	rt := runtime.New(world.NewGame(arena, world.Options{}), 0, runtime.Config{ConfigDigest: cfg.Digest}, logger)

	store, err := records.OpenSQLite(filepath.Join(t.TempDir(), "records.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.SaveRetired(context.Background(), []records.RetiredDog{{DogID: 9, Name: "old", MapID: "town", Score: 30, PlayTime: 90 * time.Second}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	rt.SetLeaderboard(store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = rt.Run(ctx)
		close(done)
	}()

	srv := httptest.NewServer(NewServer(rt, 10*time.Millisecond, logger).Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return rt, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// readType skips frames until one of the wanted type arrives.
func readType(t *testing.T, conn *websocket.Conn, typ string) (int, []byte) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		kind, b, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read %s: %v", typ, err)
		}
		if kind == websocket.BinaryMessage {
			if typ == protocol.TypeState {
				return kind, b
			}
			continue
		}
		base, err := protocol.DecodeBase(b)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if base.Type == typ {
			return kind, b
		}
	}
}

func hello(name string, binary bool) protocol.HelloMsg {
	return protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		DogName:         name,
		MapID:           "town",
		Capabilities:    protocol.HelloCapabilities{Binary: binary},
	}
}

func TestHandshakeActAndState(t *testing.T) {
	rt, srv := newTestServer(t)
	conn := dial(t, srv)
	send(t, conn, hello("rex", false))

	var welcome protocol.WelcomeMsg
	_, b := readType(t, conn, protocol.TypeWelcome)
	if err := json.Unmarshal(b, &welcome); err != nil {
		t.Fatalf("welcome: %v", err)
	}
	if welcome.DogID != 0 || welcome.MapID != "town" || welcome.Params.BagCapacity != 4 || welcome.Params.DogSpeed != 2 {
		t.Fatalf("welcome: %+v", welcome)
	}

	send(t, conn, protocol.ActMsg{Type: protocol.TypeAct, ProtocolVersion: protocol.Version, Move: "R"})
	var ack protocol.AckMsg
	_, b = readType(t, conn, protocol.TypeAck)
	if err := json.Unmarshal(b, &ack); err != nil || !ack.Accepted {
		t.Fatalf("ack: %+v %v", ack, err)
	}
	if _, err := rt.Tick(context.Background(), time.Second); err != nil {
		t.Fatalf("tick: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var st protocol.StateMsg
		_, b = readType(t, conn, protocol.TypeState)
		if err := json.Unmarshal(b, &st); err != nil {
			t.Fatalf("state: %v", err)
		}
		if st.Tick == 1 {
			if len(st.Players) != 1 || st.Players[0].Pos != [2]float64{2, 0} || st.Players[0].Dir != "R" {
				t.Fatalf("state after tick: %+v", st)
			}
			return
		}
	}
	t.Fatalf("no STATE for tick 1")
}

func TestBadMoveIsRejected(t *testing.T) {
	_, srv := newTestServer(t)
	conn := dial(t, srv)
	send(t, conn, hello("rex", false))
	readType(t, conn, protocol.TypeWelcome)

	send(t, conn, protocol.ActMsg{Type: protocol.TypeAct, ProtocolVersion: protocol.Version, Move: "X"})
	var ack protocol.AckMsg
	_, b := readType(t, conn, protocol.TypeAck)
	if err := json.Unmarshal(b, &ack); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if ack.Accepted || ack.Code != protocol.ErrBadRequest {
		t.Fatalf("ack: %+v", ack)
	}

	send(t, conn, map[string]string{"type": "DANCE", "protocol_version": protocol.Version})
	var e protocol.ErrorMsg
	_, b = readType(t, conn, protocol.TypeError)
	if err := json.Unmarshal(b, &e); err != nil || e.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("error: %+v %v", e, err)
	}
}

func TestBinaryState(t *testing.T) {
	_, srv := newTestServer(t)
	conn := dial(t, srv)
	send(t, conn, hello("rex", true))
	readType(t, conn, protocol.TypeWelcome)

	kind, b := readType(t, conn, protocol.TypeState)
	if kind != websocket.BinaryMessage {
		t.Fatalf("expected a binary STATE frame")
	}
	var st protocol.StateMsg
	if err := protocol.DecodeBinary(b, &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Type != protocol.TypeState || len(st.Players) != 1 || st.Players[0].Name != "rex" {
		t.Fatalf("state: %+v", st)
	}
}

func TestRecords(t *testing.T) {
	_, srv := newTestServer(t)
	conn := dial(t, srv)
	send(t, conn, hello("rex", false))
	readType(t, conn, protocol.TypeWelcome)

	send(t, conn, protocol.RecordsReqMsg{Type: protocol.TypeRecordsReq, ProtocolVersion: protocol.Version, ReqID: "r1", MaxItems: intPtr(10)})
	var recs protocol.RecordsMsg
	_, b := readType(t, conn, protocol.TypeRecords)
	if err := json.Unmarshal(b, &recs); err != nil {
		t.Fatalf("records: %v", err)
	}
	if recs.ReqID != "r1" || len(recs.Records) != 1 || recs.Records[0].Name != "old" || recs.Records[0].PlayTime != 90 || recs.NextStart != 1 {
		t.Fatalf("records: %+v", recs)
	}

	send(t, conn, protocol.RecordsReqMsg{Type: protocol.TypeRecordsReq, ProtocolVersion: protocol.Version, MaxItems: intPtr(101)})
	_, b = readType(t, conn, protocol.TypeError)
	var e protocol.ErrorMsg
	if err := json.Unmarshal(b, &e); err != nil || e.Code != protocol.ErrBadRequest {
		t.Fatalf("oversized page: %+v %v", e, err)
	}

	send(t, conn, protocol.RecordsReqMsg{Type: protocol.TypeRecordsReq, ProtocolVersion: protocol.Version, ReqID: "zero", MaxItems: intPtr(0)})
	_, b = readType(t, conn, protocol.TypeRecords)
	recs = protocol.RecordsMsg{}
	if err := json.Unmarshal(b, &recs); err != nil || recs.ReqID != "zero" || len(recs.Records) != 0 || recs.NextStart != 0 {
		t.Fatalf("zero page: %+v %v", recs, err)
	}

	send(t, conn, protocol.RecordsReqMsg{Type: protocol.TypeRecordsReq, ProtocolVersion: protocol.Version, ReqID: "default"})
	_, b = readType(t, conn, protocol.TypeRecords)
	recs = protocol.RecordsMsg{}
	if err := json.Unmarshal(b, &recs); err != nil || recs.ReqID != "default" || len(recs.Records) != 1 {
		t.Fatalf("default page: %+v %v", recs, err)
	}
}

func intPtr(v int) *int { return &v }

func TestHelloUnknownMap(t *testing.T) {
	_, srv := newTestServer(t)
	conn := dial(t, srv)
	h := hello("rex", false)
	h.MapID = "nowhere"
	send(t, conn, h)
	var e protocol.ErrorMsg
	_, b := readType(t, conn, protocol.TypeError)
	if err := json.Unmarshal(b, &e); err != nil || e.Code != protocol.ErrMapNotFound {
		t.Fatalf("error: %+v %v", e, err)
	}
}
