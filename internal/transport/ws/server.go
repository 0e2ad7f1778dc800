package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"factorycraft.ai/internal/protocol"
	"factorycraft.ai/internal/sim/world"
	"factorycraft.ai/internal/sim/world/logic/rates"
)

type Options struct {
	MaxMessageBytes int64
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	CommandTimeout  time.Duration

	// At most RateMax commands per RateWindowTicks ticks per session.
	// Zero disables the limit.
	RateWindowTicks uint64
	RateMax         int
}

func (o *Options) normalize() {
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = 64 * 1024
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 60 * time.Second
	}
	if o.CommandTimeout <= 0 {
		o.CommandTimeout = 5 * time.Second
	}
}

// Server accepts command sessions: HELLO, then any number of CMD messages,
// each answered by exactly one RESULT.
type Server struct {
	world *world.World
	log   *zap.Logger
	opts  Options

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, opts Options, logger *zap.Logger) *Server {
	opts.normalize()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		world: w,
		log:   logger,
		opts:  opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.SetReadLimit(s.opts.MaxMessageBytes)

		sessionID, ok := s.handshake(conn)
		if !ok {
			return
		}
		log := s.log.With(zap.String("session", sessionID))
		log.Info("command session opened", zap.String("remote", r.RemoteAddr))
		defer log.Info("command session closed")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		out := make(chan []byte, 64)
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		limiter := &rates.Window{Size: s.opts.RateWindowTicks, Max: s.opts.RateMax}
		for {
			_ = conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			res, async := s.handleMessage(ctx, msg, limiter)
			if async == nil {
				send(ctx, out, res)
				continue
			}
			go func() { send(ctx, out, <-async) }()
		}
		cancel()
		<-writerDone
	}
}

// handleMessage returns either an immediate result or a channel that will
// carry one once the world has applied the command.
func (s *Server) handleMessage(ctx context.Context, msg []byte, limiter *rates.Window) (protocol.ResultMsg, <-chan protocol.ResultMsg) {
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeCmd {
		return reject("", "", protocol.ErrProtoBadRequest, "expected CMD"), nil
	}
	if base.ProtocolVersion != protocol.Version {
		return reject("", "", protocol.ErrProtoVersion, "unsupported protocol_version"), nil
	}
	cmdMsg, err := protocol.DecodeCmd(msg)
	if err != nil {
		return reject("", "", protocol.ErrProtoBadRequest, err.Error()), nil
	}
	cmd, err := ToCommand(cmdMsg)
	if err != nil {
		return reject(cmdMsg.ReqID, cmdMsg.Op, protocol.ErrProtoBadRequest, err.Error()), nil
	}
	if ok, cd := limiter.Allow(s.world.CurrentTick()); !ok {
		return reject(cmdMsg.ReqID, cmdMsg.Op, protocol.ErrRateLimited, fmt.Sprintf("retry in %d ticks", cd)), nil
	}

	subCtx, cancel := context.WithTimeout(ctx, s.opts.CommandTimeout)
	resp, err := s.world.Submit(subCtx, cmd)
	if err != nil {
		cancel()
		return reject(cmdMsg.ReqID, cmdMsg.Op, protocol.ErrWorldStopped, err.Error()), nil
	}
	async := make(chan protocol.ResultMsg, 1)
	go func() {
		defer cancel()
		select {
		case res := <-resp:
			async <- FromResult(cmdMsg.ReqID, res)
		case <-subCtx.Done():
			async <- reject(cmdMsg.ReqID, cmdMsg.Op, protocol.ErrWorldBusy, "command timed out")
		}
	}()
	return protocol.ResultMsg{}, async
}

func (s *Server) handshake(conn *websocket.Conn) (string, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", false
	}
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return "", false
	}
	if err := protocol.Validate("hello", msg); err != nil {
		closeWith(conn, "bad HELLO")
		return "", false
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", false
	}
	if !supports(hello) {
		closeWith(conn, "bad protocol_version")
		return "", false
	}

	sessionID := uuid.NewString()
	if err := writeJSON(conn, s.opts.WriteTimeout, Welcome(s.world, sessionID)); err != nil {
		return "", false
	}
	return sessionID, true
}

func supports(h protocol.HelloMsg) bool {
	if h.ProtocolVersion == protocol.Version {
		return true
	}
	for _, v := range h.SupportedVersions {
		if v == protocol.Version {
			return true
		}
	}
	return false
}

// Welcome describes the world a session is attached to.
func Welcome(w *world.World, sessionID string) protocol.WelcomeMsg {
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		WorldID:         w.ID(),
		Tick:            w.CurrentTick(),
		WorldParams:     Params(w),
		Catalogs:        Digests(w),
	}
}

func Params(w *world.World) protocol.WorldParams {
	tune := w.Tuning()
	p := protocol.WorldParams{
		TickDurationMs: tune.TickDurationMs,
		BeltLength:     tune.Belt.Length,
		ItemSpacing:    tune.Belt.ItemSpacing,
	}
	if wd, ht, ok := w.Bounds(); ok {
		p.Width, p.Height = wd, ht
	}
	return p
}

func Digests(w *world.World) protocol.CatalogDigests {
	c := w.Catalogs()
	return protocol.CatalogDigests{
		Items:      c.Items.Digest,
		Recipes:    c.Recipes.Digest,
		Structures: c.Structures.Digest,
		Combined:   c.Digest(),
	}
}

func reject(reqID, op, code, msg string) protocol.ResultMsg {
	return protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		ReqID:           reqID,
		Op:              op,
		Code:            code,
		Message:         msg,
	}
}

func send(ctx context.Context, out chan<- []byte, res protocol.ResultMsg) {
	b, err := json.Marshal(res)
	if err != nil {
		return
	}
	select {
	case out <- b:
	case <-ctx.Done():
	}
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, timeout time.Duration, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(timeout))
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	}
	return nil
}
