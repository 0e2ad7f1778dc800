package ws

import (
	"fmt"

	"factorycraft.ai/internal/protocol"
	"factorycraft.ai/internal/sim/world"
	"factorycraft.ai/internal/sim/world/feature/conveyor"
	"factorycraft.ai/internal/sim/world/kernel/model"
)

// ToCommand converts a validated CMD message into a world command.
func ToCommand(m protocol.CmdMsg) (world.Command, error) {
	cmd := world.Command{
		Kind:      world.CommandKind(m.Op),
		Structure: m.Structure,
		Item:      m.Item,
		Count:     m.Count,
		Recipe:    m.Recipe,
	}
	if m.Cell != nil {
		cmd.Cell = model.Cell{X: m.Cell[0], Y: m.Cell[1]}
	}
	if m.Dir != "" {
		d, ok := model.ParseDirection(m.Dir)
		if !ok {
			return cmd, fmt.Errorf("bad dir %q", m.Dir)
		}
		cmd.Dir = d
	}
	if m.Handle != "" {
		h, err := world.ParseHandle(m.Handle)
		if err != nil {
			return cmd, err
		}
		cmd.Handle = h
	}
	if m.Inventory != "" {
		k, ok := world.ParseInventoryKind(m.Inventory)
		if !ok {
			return cmd, fmt.Errorf("bad inventory %q", m.Inventory)
		}
		cmd.Inventory = k
	}
	switch m.Lane {
	case "", "RIGHT":
		cmd.Lane = conveyor.Right
	case "LEFT":
		cmd.Lane = conveyor.Left
	default:
		return cmd, fmt.Errorf("bad lane %q", m.Lane)
	}
	return cmd, nil
}

// FromResult converts a world result into a RESULT message.
func FromResult(reqID string, r world.Result) protocol.ResultMsg {
	out := protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		ReqID:           reqID,
		Op:              string(r.Kind),
		OK:              r.OK,
		Tick:            r.Tick,
		Count:           r.Count,
		Code:            r.Code,
		Message:         r.Message,
		View:            r.View,
	}
	if !r.Handle.IsZero() {
		out.Handle = r.Handle.String()
	}
	for _, st := range r.Items {
		out.Items = append(out.Items, protocol.ItemStack{Item: st.Item, Count: st.Count})
	}
	return out
}
