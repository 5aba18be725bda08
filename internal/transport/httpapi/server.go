// Package httpapi is the JSON-over-HTTP face of the game: map catalog,
// joining, moving, state polling, manual ticks and the leaderboard.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dogcourier.ai/internal/protocol"
	"dogcourier.ai/internal/sim/runtime"
	"dogcourier.ai/internal/sim/world"
)

const maxBody = 64 << 10

type Server struct {
	rt  *runtime.Runtime
	log *log.Logger
}

func NewServer(rt *runtime.Runtime, logger *log.Logger) *Server {
	return &Server{rt: rt, log: logger}
}

// Register mounts the API routes on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/maps", method(http.MethodGet, s.handleMaps))
	mux.HandleFunc("/api/v1/maps/{id}", method(http.MethodGet, s.handleMap))
	mux.HandleFunc("/api/v1/game/join", method(http.MethodPost, s.handleJoin))
	mux.HandleFunc("/api/v1/game/state", method(http.MethodGet, s.handleState))
	mux.HandleFunc("/api/v1/game/player/action", method(http.MethodPost, s.handleAction))
	mux.HandleFunc("/api/v1/game/tick", method(http.MethodPost, s.handleTick))
	mux.HandleFunc("/api/v1/game/records", method(http.MethodGet, s.handleRecords))
}

// method rejects every verb but want (HEAD rides along with GET).
func method(want string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != want && !(want == http.MethodGet && r.Method == http.MethodHead) {
			allow := want
			if want == http.MethodGet {
				allow += ", " + http.MethodHead
			}
			w.Header().Set("Allow", allow)
			writeError(w, http.StatusMethodNotAllowed, protocol.ErrInvalidMethod, "only "+allow+" is allowed")
			return
		}
		h(w, r)
	}
}

type joinRequest struct {
	DogName string `json:"dog_name"`
	MapID   string `json:"map_id"`
}

type joinResponse struct {
	DogID   uint64     `json:"dog_id"`
	Session int        `json:"session"`
	MapID   string     `json:"map_id"`
	Pos     [2]float64 `json:"pos"`
}

type actionRequest struct {
	DogID *uint64 `json:"dog_id"`
	Move  string  `json:"move"`
}

type tickRequest struct {
	TimeDeltaMs *int64 `json:"time_delta_ms"`
}

type tickResponse struct {
	Tick   uint64           `json:"tick"`
	Report world.TickReport `json:"report"`
}

func (s *Server) handleMaps(w http.ResponseWriter, r *http.Request) {
	maps := s.rt.Maps()
	out := make([]mapSummary, 0, len(maps))
	for _, m := range maps {
		out = append(out, mapSummary{ID: m.ID, Name: m.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m, ok := s.rt.LookupMap(id)
	if !ok {
		writeError(w, http.StatusNotFound, protocol.ErrMapNotFound, fmt.Sprintf("map %q not found", id))
		return
	}
	writeJSON(w, http.StatusOK, newMapView(m))
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, protocol.ErrBadRequest, err.Error())
		return
	}
	name := strings.TrimSpace(req.DogName)
	if name == "" {
		writeError(w, http.StatusBadRequest, protocol.ErrBadRequest, "dog_name is required")
		return
	}
	res, err := s.rt.Join(r.Context(), req.MapID, name)
	if err != nil {
		s.writeRuntimeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, joinResponse{DogID: uint64(res.DogID), Session: res.Slot, MapID: res.Map.ID, Pos: res.Pos})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.URL.Query().Get("dog_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, protocol.ErrBadRequest, "dog_id must be an unsigned integer")
		return
	}
	st, err := s.rt.State(r.Context(), world.DogID(id))
	if err != nil {
		s.writeRuntimeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, protocol.ErrBadRequest, err.Error())
		return
	}
	if req.DogID == nil {
		writeError(w, http.StatusBadRequest, protocol.ErrBadRequest, "dog_id is required")
		return
	}
	dir, moving, err := world.ParseMove(req.Move)
	if err != nil {
		writeError(w, http.StatusBadRequest, protocol.ErrBadRequest, err.Error())
		return
	}
	if err := s.rt.Move(r.Context(), world.DogID(*req.DogID), dir, moving); err != nil {
		s.writeRuntimeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	var req tickRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, protocol.ErrBadRequest, err.Error())
		return
	}
	if req.TimeDeltaMs == nil || *req.TimeDeltaMs < 0 {
		writeError(w, http.StatusBadRequest, protocol.ErrBadRequest, "time_delta_ms must be a non-negative integer")
		return
	}
	rep, err := s.rt.Tick(r.Context(), time.Duration(*req.TimeDeltaMs)*time.Millisecond)
	if err != nil {
		s.writeRuntimeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tickResponse{Tick: s.rt.CurrentTick(), Report: rep})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := intParam(q.Get("start"), 0)
	if err != nil || start < 0 {
		writeError(w, http.StatusBadRequest, protocol.ErrBadRequest, "start must be a non-negative integer")
		return
	}
	maxItems, err := intParam(q.Get("maxItems"), protocol.MaxRecordsPage)
	if err != nil || maxItems < 0 || maxItems > protocol.MaxRecordsPage {
		writeError(w, http.StatusBadRequest, protocol.ErrBadRequest, fmt.Sprintf("maxItems must be in [0,%d]", protocol.MaxRecordsPage))
		return
	}
	page, err := s.rt.RecordsPage(r.Context(), "", start, maxItems)
	if err != nil {
		s.writeRuntimeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func (s *Server) writeRuntimeError(w http.ResponseWriter, err error) {
	code := runtime.ErrorCode(err)
	status := http.StatusInternalServerError
	switch code {
	case protocol.ErrMapNotFound, protocol.ErrDogNotFound:
		status = http.StatusNotFound
	case protocol.ErrManualTick:
		status = http.StatusBadRequest
	default:
		s.log.Printf("api: %v", err)
	}
	writeError(w, status, code, err.Error())
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}
		return fmt.Errorf("bad json: %w", err)
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, protocol.ErrorMsg{Type: protocol.TypeError, ProtocolVersion: protocol.Version, Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
