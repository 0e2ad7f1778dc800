package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type              string   `json:"type"`
	ProtocolVersion   string   `json:"protocol_version"`
	SupportedVersions []string `json:"supported_versions,omitempty"`
	ClientName        string   `json:"client_name"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	WorldID         string         `json:"world_id"`
	Tick            uint64         `json:"tick"`
	WorldParams     WorldParams    `json:"world_params"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type WorldParams struct {
	TickDurationMs int `json:"tick_duration_ms"`
	Width          int `json:"width"`
	Height         int `json:"height"`
	BeltLength     int `json:"belt_length"`
	ItemSpacing    int `json:"item_spacing"`
}

type CatalogDigests struct {
	Items      string `json:"items"`
	Recipes    string `json:"recipes"`
	Structures string `json:"structures"`
	Combined   string `json:"combined"`
}

// CMD (client -> server). Only the fields relevant to Op are read. Handles
// are "S<index>.<gen>", directions "N", "E", "S" or "W".
type CmdMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id"`
	Op              string `json:"op"`

	Structure string  `json:"structure,omitempty"`
	Cell      *[2]int `json:"cell,omitempty"`
	Dir       string  `json:"dir,omitempty"`
	Handle    string  `json:"handle,omitempty"`
	Inventory string  `json:"inventory,omitempty"`
	Item      string  `json:"item,omitempty"`
	Count     int     `json:"count,omitempty"`
	Recipe    string  `json:"recipe,omitempty"`
	Lane      string  `json:"lane,omitempty"`
}

type ItemStack struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

// RESULT (server -> client), one per CMD.
type ResultMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	ReqID           string      `json:"req_id"`
	Op              string      `json:"op,omitempty"`
	OK              bool        `json:"ok"`
	Tick            uint64      `json:"tick,omitempty"`
	Handle          string      `json:"handle,omitempty"`
	Count           int         `json:"count,omitempty"`
	Items           []ItemStack `json:"items,omitempty"`
	Code            string      `json:"code,omitempty"`
	Message         string      `json:"message,omitempty"`
	// View is a structure or world view, set for QUERY.
	View any `json:"view,omitempty"`
}

// OBS_TICK (server -> observer), one per simulated tick.
type ObsTickMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	World           any    `json:"world"`
}

// OBS_BOOTSTRAP is the HTTP bootstrap document for observers.
type ObsBootstrapMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	WorldID         string         `json:"world_id"`
	Tick            uint64         `json:"tick"`
	WorldParams     WorldParams    `json:"world_params"`
	Catalogs        CatalogDigests `json:"catalogs"`
	World           any            `json:"world"`
}
