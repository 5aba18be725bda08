package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"dogcourier.ai/internal/protocol"
	"dogcourier.ai/internal/sim/runtime"
	"dogcourier.ai/internal/sim/world"
)

const defaultStatePush = 100 * time.Millisecond

type Server struct {
	rt        *runtime.Runtime
	log       *log.Logger
	statePush time.Duration

	upgrader websocket.Upgrader
}

// NewServer serves dogs over websocket. Every connection gets a STATE frame
// each statePush.
func NewServer(rt *runtime.Runtime, statePush time.Duration, logger *log.Logger) *Server {
	if statePush <= 0 {
		statePush = defaultStatePush
	}
	return &Server{
		rt:        rt,
		log:       logger,
		statePush: statePush,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

type frame struct {
	binary bool
	data   []byte
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		dogID, binary, ok := s.handshake(ctx, conn)
		if !ok {
			return
		}

		out := make(chan frame, 16)
		// Writer goroutine: the only writer once the handshake is done.
		go func() {
			defer cancel()
			push := time.NewTicker(s.statePush)
			defer push.Stop()
			for {
				var f frame
				select {
				case <-ctx.Done():
					return
				case f = <-out:
				case <-push.C:
					st, err := s.rt.State(ctx, dogID)
					if err != nil {
						if errors.Is(err, world.ErrDogNotFound) {
							b, _ := json.Marshal(errorMsg(protocol.ErrDogNotFound, "dog retired"))
							_ = write(conn, frame{data: b})
						}
						return
					}
					b, err := protocol.Encode(st, binary)
					if err != nil {
						s.log.Printf("encode state: %v", err)
						return
					}
					f = frame{binary: binary, data: b}
				}
				if err := write(conn, f); err != nil {
					return
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			reply := s.handle(ctx, dogID, msg)
			if reply == nil {
				continue
			}
			b, err := json.Marshal(reply)
			if err != nil {
				continue
			}
			select {
			case out <- frame{data: b}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *Server) handle(ctx context.Context, dogID world.DogID, msg []byte) any {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return errorMsg(protocol.ErrProtoBadRequest, "bad json")
	}
	if base.ProtocolVersion != protocol.Version {
		return errorMsg(protocol.ErrProtoBadRequest, "bad protocol_version")
	}
	switch base.Type {
	case protocol.TypeAct:
		var act protocol.ActMsg
		if err := json.Unmarshal(msg, &act); err != nil {
			return errorMsg(protocol.ErrProtoBadRequest, "bad ACT")
		}
		ack := protocol.AckMsg{Type: protocol.TypeAck, ProtocolVersion: protocol.Version, AckFor: protocol.TypeAct, ServerTick: s.rt.CurrentTick()}
		dir, moving, err := world.ParseMove(act.Move)
		if err == nil {
			err = s.rt.Move(ctx, dogID, dir, moving)
		}
		if err != nil {
			ack.Code = protocol.ErrBadRequest
			if !errors.Is(err, world.ErrBadDirection) {
				ack.Code = runtime.ErrorCode(err)
			}
			ack.Message = err.Error()
			return ack
		}
		ack.Accepted = true
		return ack
	case protocol.TypeRecordsReq:
		var req protocol.RecordsReqMsg
		if err := json.Unmarshal(msg, &req); err != nil {
			return errorMsg(protocol.ErrProtoBadRequest, "bad RECORDS_REQ")
		}
		maxItems := protocol.MaxRecordsPage
		if req.MaxItems != nil {
			maxItems = *req.MaxItems
		}
		if req.Start < 0 || maxItems < 0 || maxItems > protocol.MaxRecordsPage {
			return errorMsg(protocol.ErrBadRequest, "start must be >= 0 and max_items in [0,100]")
		}
		page, err := s.rt.RecordsPage(ctx, req.ReqID, req.Start, maxItems)
		if err != nil {
			return errorMsg(protocol.ErrInternal, err.Error())
		}
		return page
	default:
		return errorMsg(protocol.ErrProtoBadRequest, "unexpected message type "+base.Type)
	}
}

func (s *Server) handshake(ctx context.Context, conn *websocket.Conn) (world.DogID, bool, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return 0, false, false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return 0, false, false
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		closeWith(conn, "bad HELLO")
		return 0, false, false
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return 0, false, false
	}
	name := strings.TrimSpace(hello.DogName)
	if name == "" {
		name = "dog"
	}

	res, err := s.rt.Join(ctx, hello.MapID, name)
	if err != nil {
		b, _ := json.Marshal(errorMsg(runtime.ErrorCode(err), err.Error()))
		_ = write(conn, frame{data: b})
		closeWith(conn, "join failed")
		return 0, false, false
	}
	s.log.Printf("dog %d (%s) joined map %s session %d", res.DogID, name, res.Map.ID, res.Slot)

	cfg := s.rt.Config()
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		DogID:           uint64(res.DogID),
		Session:         res.Slot,
		MapID:           res.Map.ID,
		Binary:          hello.Capabilities.Binary,
		Params: protocol.WorldParams{
			TickPeriodMs: int(cfg.TickPeriod.Milliseconds()),
			BagCapacity:  res.Map.BagCapacity,
			DogSpeed:     res.Map.DogSpeed,
			ConfigDigest: cfg.ConfigDigest,
		},
	}
	b, err := json.Marshal(welcome)
	if err != nil {
		return 0, false, false
	}
	if err := write(conn, frame{data: b}); err != nil {
		return 0, false, false
	}
	return res.DogID, hello.Capabilities.Binary, true
}

func errorMsg(code, message string) protocol.ErrorMsg {
	return protocol.ErrorMsg{Type: protocol.TypeError, ProtocolVersion: protocol.Version, Code: code, Message: message}
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func write(conn *websocket.Conn, f frame) error {
	typ := websocket.TextMessage
	if f.binary {
		typ = websocket.BinaryMessage
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(typ, f.data)
}
