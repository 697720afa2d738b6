package network

import "encoding/json"

// Message types - Client → Server
const (
	MsgTypeJoin           = "join"
	MsgTypePing           = "ping"
	MsgTypePointerDown    = "pointer_down"
	MsgTypePointerMove    = "pointer_move"
	MsgTypePointerUp      = "pointer_up"
	MsgTypeRotate         = "rotate"
	MsgTypeAddItem        = "add_item"
	MsgTypeRemoveItem     = "remove_item"
	MsgTypeSellItem       = "sell_item"
	MsgTypeOpenContainer  = "open_container"
	MsgTypeCloseContainer = "close_container"
	MsgTypeItemDetails    = "item_details"
	MsgTypeSave           = "save"
	MsgTypeLayoutSettled  = "layout_settled"
)

// Message types - Server → Client
const (
	MsgTypeWelcome    = "welcome"
	MsgTypeLayout     = "layout"
	MsgTypePreview    = "preview"
	MsgTypeDragResult = "drag_result"
	MsgTypeEvent      = "event"
	MsgTypeDetails    = "details"
	MsgTypeSold       = "sold"
	MsgTypeSaved      = "saved"
	MsgTypeError      = "error"
	MsgTypePong       = "pong"
)

// Layout command operations
const (
	OpCreateGrid      = "create_grid"
	OpCreateItem      = "create_item"
	OpCreateTelegraph = "create_telegraph"
	OpSetPosition     = "set_position"
	OpSetSize         = "set_size"
	OpSetVisible      = "set_visible"
	OpSetRotation     = "set_rotation"
	OpBringToFront    = "bring_to_front"
	OpRelease         = "release"
)

// ClientMessage represents any message from client to server
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ServerMessage represents any message from server to client
type ServerMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// --- Client Message Payloads ---

// Mouse buttons as sent by clients
const (
	ButtonPrimary   = 0
	ButtonSecondary = 2
)

// PointerPayload is sent for pointer presses and releases
type PointerPayload struct {
	InstanceID string `json:"instance_id,omitempty"`
	Button     int    `json:"button"`
}

// PointerMovePayload carries the pointer position in screen coordinates
type PointerMovePayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ItemPayload names an item instance
type ItemPayload struct {
	InstanceID string `json:"instance_id"`
}

// AddItemPayload asks for a new item from the catalog
type AddItemPayload struct {
	DefinitionID string `json:"definition_id"`
}

// Box is a bounding box reported by the client
type Box struct {
	Handle int     `json:"handle"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	W      float64 `json:"w"`
	H      float64 `json:"h"`
}

// LayoutSettledPayload answers a layout message that asked to settle. It
// carries the box of every live handle after the pass.
type LayoutSettledPayload struct {
	Pass  int   `json:"pass"`
	Boxes []Box `json:"boxes"`
}

// --- Server Message Payloads ---

// LayoutCommand is one change to a presentation handle
type LayoutCommand struct {
	Op     string `json:"op"`
	Handle int    `json:"handle"`
	Parent int    `json:"parent,omitempty"`

	X       float64 `json:"x,omitempty"`
	Y       float64 `json:"y,omitempty"`
	W       float64 `json:"w,omitempty"`
	H       float64 `json:"h,omitempty"`
	Visible *bool   `json:"visible,omitempty"`
	Degrees float64 `json:"degrees,omitempty"`

	// Set on create commands
	Key     string `json:"key,omitempty"`
	Title   string `json:"title,omitempty"`
	Icon    string `json:"icon,omitempty"`
	Columns int    `json:"columns,omitempty"`
	Rows    int    `json:"rows,omitempty"`
}

// LayoutPayload carries queued handle changes. When Settle is set the client
// must run a layout pass and reply with layout_settled for the same Pass.
type LayoutPayload struct {
	Pass     int             `json:"pass,omitempty"`
	Settle   bool            `json:"settle"`
	Commands []LayoutCommand `json:"commands"`
}

// WelcomePayload is sent to client after joining
type WelcomePayload struct {
	PlayerID string  `json:"player_id"`
	Username string  `json:"username"`
	Columns  int     `json:"columns"`
	Rows     int     `json:"rows"`
	SlotSize float64 `json:"slot_size"`
	Loaded   int     `json:"loaded"`
	Rejected int     `json:"rejected"`
}

// PreviewPayload describes where the held item would land
type PreviewPayload struct {
	Outcome   string `json:"outcome"`
	TargetX   int    `json:"target_x"`
	TargetY   int    `json:"target_y"`
	Container string `json:"container,omitempty"`
}

// DragResultPayload reports how a release was resolved
type DragResultPayload struct {
	Outcome    string `json:"outcome"`
	InstanceID string `json:"instance_id,omitempty"`
	Container  string `json:"container,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// SoldPayload confirms a sale
type SoldPayload struct {
	InstanceID string `json:"instance_id"`
	Price      int    `json:"price"`
}

// ErrorPayload contains error information
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
