package models

// NotificationKind values mirror the notifications collection's type column.
const (
	NotifyTableReady = "table_ready"
	NotifySeated     = "seated"
	NotifyCancelled  = "cancelled"
	NotifyPosition   = "position_update"
)

// NotificationIntent is what the engine hands to the delivery collaborator.
// How it reaches the customer (push, SMS, websocket) is not the engine's
// concern.
type NotificationIntent struct {
	Recipient    string `json:"recipient"`
	QueueEntryID string `json:"queue_entry_id"`
	Kind         string `json:"kind"`
	Title        string `json:"title"`
	Message      string `json:"message"`
}
