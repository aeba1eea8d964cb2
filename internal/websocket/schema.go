package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer   Action = "answer"
	ActionNavigate Action = "navigate"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// RequestPayload is the union of all client action fields. The Action
// discriminator selects which fields are meaningful.
type RequestPayload struct {
	Action Action `json:"action"`

	// answer
	QID    string `json:"q_id,omitempty"`
	Option *int   `json:"option,omitempty"`

	// navigate
	Index *int `json:"index,omitempty"`

	// submit
	Confirm bool `json:"confirm,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventTimeSync  Event = "time_sync"
	EventAck       Event = "ack"
	EventSubmitted Event = "submitted"
	EventError     Event = "error"
	EventPong      Event = "pong"
)

// TimeSyncResponse carries the server-authoritative countdown.
type TimeSyncResponse struct {
	Event     Event `json:"event"`
	Remaining int   `json:"remaining"`
}

// AckResponse confirms an answer or navigate action was applied.
type AckResponse struct {
	Event  Event  `json:"event"`
	Action Action `json:"action"`
}

// SubmittedResponse announces the session was finalized, with the result.
type SubmittedResponse struct {
	Event      Event  `json:"event"`
	Mode       string `json:"mode"`
	Score      int    `json:"score"`
	TotalMarks int    `json:"total_marks"`
	Percentage int    `json:"percentage"`
}

// ErrorResponse carries a typed error code plus message.
type ErrorResponse struct {
	Event   Event  `json:"event"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
