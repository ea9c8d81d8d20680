package domain

// Real-time channel event types.
const (
	EventTypeConnectionEstablished = "connection_established"
	EventTypeStatus                = "status"
	EventTypeMessage               = "message"
	EventTypeError                 = "error"
)

// StatusProcessing is sent to the requesting client once its turn is accepted.
const StatusProcessing = "processing"

// RealtimeEvent is a frame sent over the real-time channel.
type RealtimeEvent struct {
	Type        string `json:"type"`
	Status      string `json:"status,omitempty"`
	Message     string `json:"message,omitempty"`
	Role        Role   `json:"role,omitempty"`
	MessageID   string `json:"message_id,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
	ServiceType string `json:"service_type,omitempty"`
}
