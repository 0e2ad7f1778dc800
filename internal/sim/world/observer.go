package world

import (
	"encoding/json"

	"go.uber.org/zap"

	"factorycraft.ai/internal/protocol"
)

// ObserverJoinRequest registers a read-only observer session that receives
// one world view per tick on TickOut. Slow readers only ever see the newest
// view.
type ObserverJoinRequest struct {
	SessionID string
	TickOut   chan []byte
}

type observerClient struct {
	id      string
	tickOut chan []byte
}

func (w *World) handleObserverJoin(req ObserverJoinRequest) {
	if req.SessionID == "" || req.TickOut == nil {
		return
	}
	w.observers[req.SessionID] = &observerClient{id: req.SessionID, tickOut: req.TickOut}
	w.log.Info("observer joined", zap.String("session", req.SessionID))
}

func (w *World) handleObserverLeave(id string) {
	if _, ok := w.observers[id]; !ok {
		return
	}
	delete(w.observers, id)
	w.log.Info("observer left", zap.String("session", id))
}

func (w *World) broadcastObservers(tick uint64) {
	if len(w.observers) == 0 {
		return
	}
	view := w.Snapshot()
	view.Tick = tick
	msg := protocol.ObsTickMsg{
		Type:            protocol.TypeObsTick,
		ProtocolVersion: protocol.Version,
		Tick:            tick,
		World:           view,
	}
	b, err := json.Marshal(msg)
	if err != nil {
		w.log.Error("observer tick marshal failed", zap.Uint64("tick", tick), zap.Error(err))
		return
	}
	for _, c := range w.observers {
		sendLatest(c.tickOut, b)
	}
}
