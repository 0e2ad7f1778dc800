package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoVersion    = "E_PROTO_VERSION"

	// World routing/state.
	ErrWorldBusy    = "E_WORLD_BUSY"
	ErrWorldStopped = "E_WORLD_STOPPED"
	ErrRateLimited  = "E_RATE_LIMITED"

	// Placement.
	ErrUnknownStructure = "E_UNKNOWN_STRUCTURE"
	ErrBadRotation      = "E_BAD_ROTATION"
	ErrOutOfBounds      = "E_OUT_OF_BOUNDS"
	ErrImpassable       = "E_IMPASSABLE"
	ErrCellOccupied     = "E_CELL_OCCUPIED"
	ErrColliderOverlap  = "E_COLLIDER_OVERLAP"
	ErrNoResource       = "E_NO_RESOURCE"

	// Command layer.
	ErrBadRequest      = "E_BAD_REQUEST"
	ErrUnknownHandle   = "E_UNKNOWN_HANDLE"
	ErrNoSuchInventory = "E_NO_SUCH_INVENTORY"
	ErrUnknownItem     = "E_UNKNOWN_ITEM"
	ErrUnknownRecipe   = "E_UNKNOWN_RECIPE"
	ErrNotAssembler    = "E_NOT_ASSEMBLER"
	ErrNotBelt         = "E_NOT_BELT"
	ErrInternal        = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:  {},
	ErrProtoVersion:     {},
	ErrWorldBusy:        {},
	ErrWorldStopped:     {},
	ErrRateLimited:      {},
	ErrUnknownStructure: {},
	ErrBadRotation:      {},
	ErrOutOfBounds:      {},
	ErrImpassable:       {},
	ErrCellOccupied:     {},
	ErrColliderOverlap:  {},
	ErrNoResource:       {},
	ErrBadRequest:       {},
	ErrUnknownHandle:    {},
	ErrNoSuchInventory:  {},
	ErrUnknownItem:      {},
	ErrUnknownRecipe:    {},
	ErrNotAssembler:     {},
	ErrNotBelt:          {},
	ErrInternal:         {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
