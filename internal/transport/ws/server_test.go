package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"factorycraft.ai/internal/protocol"
	"factorycraft.ai/internal/sim/catalogs"
	"factorycraft.ai/internal/sim/terrain"
	"factorycraft.ai/internal/sim/tuning"
	"factorycraft.ai/internal/sim/world"
)

func startWorld(t *testing.T) *world.World {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	tune := tuning.Defaults()
	tune.TickDurationMs = 5
	w, err := world.New(world.Config{ID: "ws_test"}, cats, tune, terrain.NewGrid(16, 16), zap.NewNop())
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = w.Run(ctx) }()
	t.Cleanup(func() {
		w.Stop()
		cancel()
	})
	return w
}

func dial(t *testing.T, w *world.World) *websocket.Conn {
	t.Helper()
	return dialWith(t, w, Options{})
}

func dialWith(t *testing.T, w *world.World, opts Options) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(NewServer(w, opts, zap.NewNop()).Handler())
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, v any, out any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(out); err != nil {
		t.Fatalf("read: %v", err)
	}
}

func hello(t *testing.T, conn *websocket.Conn) protocol.WelcomeMsg {
	t.Helper()
	var welcome protocol.WelcomeMsg
	roundTrip(t, conn, protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      "test",
	}, &welcome)
	return welcome
}

func cell(x, y int) *[2]int { return &[2]int{x, y} }

func TestHandshakeDescribesWorld(t *testing.T) {
	w := startWorld(t)
	conn := dial(t, w)
	welcome := hello(t, conn)
	if welcome.Type != protocol.TypeWelcome || welcome.SessionID == "" {
		t.Fatalf("welcome: %+v", welcome)
	}
	if welcome.WorldID != "ws_test" {
		t.Fatalf("world id: %q", welcome.WorldID)
	}
	if welcome.WorldParams.Width != 16 || welcome.WorldParams.Height != 16 || welcome.WorldParams.TickDurationMs != 5 {
		t.Fatalf("params: %+v", welcome.WorldParams)
	}
	if welcome.Catalogs.Combined != w.Catalogs().Digest() {
		t.Fatalf("catalog digest mismatch")
	}
}

func TestHandshakeRejectsOtherVersion(t *testing.T) {
	w := startWorld(t)
	conn := dial(t, w)
	if err := conn.WriteJSON(protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: "0.1"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy close, got %v", err)
	}
}

func TestPlaceInsertQuery(t *testing.T) {
	w := startWorld(t)
	conn := dial(t, w)
	hello(t, conn)

	var placed protocol.ResultMsg
	roundTrip(t, conn, protocol.CmdMsg{
		Type: protocol.TypeCmd, ProtocolVersion: protocol.Version, ReqID: "r1",
		Op: protocol.OpPlace, Structure: "Iron chest", Cell: cell(2, 3), Dir: "N",
	}, &placed)
	if !placed.OK || placed.ReqID != "r1" || placed.Handle == "" {
		t.Fatalf("place: %+v", placed)
	}

	var inserted protocol.ResultMsg
	roundTrip(t, conn, protocol.CmdMsg{
		Type: protocol.TypeCmd, ProtocolVersion: protocol.Version, ReqID: "r2",
		Op: protocol.OpInsert, Handle: placed.Handle, Inventory: "STORAGE", Item: "Coal", Count: 7,
	}, &inserted)
	if !inserted.OK || inserted.Count != 7 {
		t.Fatalf("insert: %+v", inserted)
	}

	var queried struct {
		protocol.ResultMsg
		View world.StructureView `json:"view"`
	}
	roundTrip(t, conn, protocol.CmdMsg{
		Type: protocol.TypeCmd, ProtocolVersion: protocol.Version, ReqID: "r3",
		Op: protocol.OpQuery, Handle: placed.Handle,
	}, &queried)
	if !queried.OK || queried.View.Name != "Iron chest" {
		t.Fatalf("query: %+v", queried)
	}
}

func TestPlacementErrorCarriesCode(t *testing.T) {
	w := startWorld(t)
	conn := dial(t, w)
	hello(t, conn)

	var res protocol.ResultMsg
	roundTrip(t, conn, protocol.CmdMsg{
		Type: protocol.TypeCmd, ProtocolVersion: protocol.Version, ReqID: "r1",
		Op: protocol.OpPlace, Structure: "Iron chest", Cell: cell(40, 40),
	}, &res)
	if res.OK || res.Code != protocol.ErrOutOfBounds {
		t.Fatalf("expected out of bounds, got %+v", res)
	}
}

func TestMalformedCommandIsRejected(t *testing.T) {
	w := startWorld(t)
	conn := dial(t, w)
	hello(t, conn)

	var res protocol.ResultMsg
	roundTrip(t, conn, map[string]any{
		"type": "CMD", "protocol_version": protocol.Version, "req_id": "r1", "op": "PLACE",
	}, &res)
	if res.OK || res.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("expected bad request, got %+v", res)
	}

	roundTrip(t, conn, map[string]any{"type": "CMD", "protocol_version": "9.9"}, &res)
	if res.Code != protocol.ErrProtoVersion {
		t.Fatalf("expected version error, got %+v", res)
	}
}

func TestSessionRateLimit(t *testing.T) {
	w := startWorld(t)
	conn := dialWith(t, w, Options{RateWindowTicks: 1 << 40, RateMax: 1})
	hello(t, conn)

	query := protocol.CmdMsg{Type: protocol.TypeCmd, ProtocolVersion: protocol.Version, ReqID: "q", Op: protocol.OpQuery}
	var first, second protocol.ResultMsg
	roundTrip(t, conn, query, &first)
	if !first.OK {
		t.Fatalf("first query: %+v", first)
	}
	roundTrip(t, conn, query, &second)
	if second.OK || second.Code != protocol.ErrRateLimited {
		t.Fatalf("expected rate limit, got %+v", second)
	}
}

func TestToCommandLanesAndHandles(t *testing.T) {
	cmd, err := ToCommand(protocol.CmdMsg{Op: protocol.OpPutOnBelt, Handle: "S3.1", Item: "Coal", Lane: "LEFT"})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if cmd.Kind != world.CmdPutOnBelt || cmd.Handle.String() != "S3.1" || cmd.Lane.String() != "L" {
		t.Fatalf("command: %+v", cmd)
	}
	if _, err := ToCommand(protocol.CmdMsg{Op: protocol.OpRemove, Handle: "nope"}); err == nil {
		t.Fatalf("expected bad handle")
	}
	if _, err := ToCommand(protocol.CmdMsg{Op: protocol.OpPlace, Dir: "UP"}); err == nil {
		t.Fatalf("expected bad dir")
	}
}

func TestFromResultOmitsZeroHandle(t *testing.T) {
	msg := FromResult("x", world.Result{Kind: world.CmdTake, OK: true, Count: 2, Tick: 9})
	if msg.Handle != "" || msg.Op != "TAKE" || msg.Tick != 9 {
		t.Fatalf("result: %+v", msg)
	}
	b, _ := json.Marshal(msg)
	if strings.Contains(string(b), `"handle"`) {
		t.Fatalf("zero handle serialized: %s", b)
	}
}
