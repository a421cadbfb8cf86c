package services

import (
	"fmt"
	"log/slog"

	"github.com/pocketbase/pocketbase/core"
	pubnub "github.com/pubnub/go"

	"waitline/models"
	"waitline/monitoring"
	"waitline/utils"
)

// NotifyService is the boundary to the notification-delivery collaborator.
// The engine only produces intents: each one is persisted to the
// notifications collection and pushed to the customer's channel. Delivery
// is best-effort behind a circuit breaker; a dead delivery path never
// blocks or rolls back a queue transition.
type NotifyService struct {
	pubnub  *pubnub.PubNub
	breaker *utils.CircuitBreaker
}

func NewNotifyService(pn *pubnub.PubNub) *NotifyService {
	return &NotifyService{
		pubnub:  pn,
		breaker: utils.NewCircuitBreaker("notification-delivery"),
	}
}

// TableReadyIntent is emitted on notify. The message carries the
// confirmation expectation; nothing in the engine enforces it (the no-show
// sweeper does).
func TableReadyIntent(entry models.QueueEntry, confirmMinutes int) models.NotificationIntent {
	return models.NotificationIntent{
		Recipient:    entry.CustomerID,
		QueueEntryID: entry.ID,
		Kind:         models.NotifyTableReady,
		Title:        "Your Table is Ready!",
		Message: fmt.Sprintf(
			"Please proceed to the entrance to be seated. Confirm within %d minutes to avoid auto cancellation.",
			confirmMinutes,
		),
	}
}

// SeatedIntent is emitted when the party is seated.
func SeatedIntent(entry models.QueueEntry, tableLabel string) models.NotificationIntent {
	return models.NotificationIntent{
		Recipient:    entry.CustomerID,
		QueueEntryID: entry.ID,
		Kind:         models.NotifySeated,
		Title:        "Seat Secured!",
		Message: fmt.Sprintf(
			"Your seat has been secured. Thank you for waiting! Please proceed to Table %s.",
			tableLabel,
		),
	}
}

// NoShowIntent is emitted when the sweeper expires a notified entry.
func NoShowIntent(entry models.QueueEntry) models.NotificationIntent {
	return models.NotificationIntent{
		Recipient:    entry.CustomerID,
		QueueEntryID: entry.ID,
		Kind:         models.NotifyCancelled,
		Title:        "Queue Entry Expired",
		Message:      "Your table offer expired and your spot in line was released. Please rejoin the queue if you still want a table.",
	}
}

// Dispatch persists the intent and hands it to the delivery channel.
func (s *NotifyService) Dispatch(app core.App, intent models.NotificationIntent) {
	if err := s.persist(app, intent); err != nil {
		monitoring.TrackHistoryWriteFailure("notification")
		slog.Error("notification persist failed", "kind", intent.Kind, "entry_id", intent.QueueEntryID, "error", err)
	}

	s.publish("user-"+intent.Recipient, map[string]any{
		"type":           intent.Kind,
		"queue_entry_id": intent.QueueEntryID,
		"title":          intent.Title,
		"message":        intent.Message,
	})
}

// PublishPositionUpdate pushes a recomputed position to the customer after
// a reorder. Positions also land via polling, so this is fire-and-forget.
func (s *NotifyService) PublishPositionUpdate(entry models.QueueEntry) {
	s.publish("user-"+entry.CustomerID, map[string]any{
		"type":           models.NotifyPosition,
		"queue_entry_id": entry.ID,
		"position":       entry.Position,
	})
}

func (s *NotifyService) persist(app core.App, intent models.NotificationIntent) error {
	collection, err := app.FindCollectionByNameOrId("notifications")
	if err != nil {
		return err
	}

	record := core.NewRecord(collection)
	record.Set("user_id", intent.Recipient)
	record.Set("queue_entry_id", intent.QueueEntryID)
	record.Set("type", intent.Kind)
	record.Set("title", intent.Title)
	record.Set("message", intent.Message)
	record.Set("read", false)

	return app.Save(record)
}

func (s *NotifyService) publish(channel string, message map[string]any) {
	if s.pubnub == nil {
		return
	}

	err := s.breaker.Execute(func() error {
		_, _, err := s.pubnub.Publish().
			Channel(channel).
			Message(message).
			Execute()
		return err
	})
	if err != nil {
		slog.Warn("notification publish failed", "channel", channel, "error", err)
	}
}
