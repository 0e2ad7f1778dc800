package observer

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"factorycraft.ai/internal/protocol"
	"factorycraft.ai/internal/sim/world"
	"factorycraft.ai/internal/transport/ws"
)

// Server exposes read-only world views to loopback clients: a bootstrap
// document over HTTP and one OBS_TICK per simulated tick over websocket.
type Server struct {
	world  *world.World
	log    *zap.Logger
	buffer int

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, buffer int, logger *zap.Logger) *Server {
	if buffer <= 0 {
		buffer = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		world:  w,
		log:    logger,
		buffer: buffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// Bootstrap builds the full bootstrap document. The world view is read on
// the world goroutine.
func (s *Server) Bootstrap(ctx context.Context) (protocol.ObsBootstrapMsg, error) {
	resp, err := s.world.Submit(ctx, world.Command{Kind: world.CmdQuery})
	if err != nil {
		return protocol.ObsBootstrapMsg{}, err
	}
	var res world.Result
	select {
	case res = <-resp:
	case <-ctx.Done():
		return protocol.ObsBootstrapMsg{}, ctx.Err()
	}
	if !res.OK {
		return protocol.ObsBootstrapMsg{}, errors.New(res.Message)
	}
	return protocol.ObsBootstrapMsg{
		Type:            protocol.TypeObsBootstrap,
		ProtocolVersion: protocol.Version,
		WorldID:         s.world.ID(),
		Tick:            res.Tick,
		WorldParams:     ws.Params(s.world),
		Catalogs:        ws.Digests(s.world),
		World:           res.View,
	}, nil
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		doc, err := s.Bootstrap(ctx)
		if err != nil {
			http.Error(rw, "world unavailable", http.StatusServiceUnavailable)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(doc)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sid := "O-" + uuid.NewString()
		log := s.log.With(zap.String("session", sid))
		tickOut := make(chan []byte, s.buffer)

		select {
		case s.world.ObserverJoin() <- world.ObserverJoinRequest{SessionID: sid, TickOut: tickOut}:
		default:
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server busy"), time.Now().Add(time.Second))
			return
		}
		defer func() {
			select {
			case s.world.ObserverLeave() <- sid:
			default:
				// World loop is stopping; nothing else to do.
			}
		}()
		log.Debug("observer connected", zap.String("remote", r.RemoteAddr))

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-tickOut:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						cancel()
						return
					}
				}
			}
		}()

		// Observers never send; reading only detects the close.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
		log.Debug("observer disconnected")
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
