package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello        = "HELLO"
	TypeWelcome      = "WELCOME"
	TypeCmd          = "CMD"
	TypeResult       = "RESULT"
	TypeObsTick      = "OBS_TICK"
	TypeObsBootstrap = "OBS_BOOTSTRAP"
)

// Command operations carried by CMD.
const (
	OpPlace        = "PLACE"
	OpRemove       = "REMOVE"
	OpInsert       = "INSERT"
	OpTake         = "TAKE"
	OpSetRecipe    = "SET_RECIPE"
	OpPutOnBelt    = "PUT_ON_BELT"
	OpPickupGround = "PICKUP_GROUND"
	OpQuery        = "QUERY"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
