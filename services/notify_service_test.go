package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"waitline/models"
)

func intentEntry() models.QueueEntry {
	return models.QueueEntry{
		ID:         "entry1",
		CustomerID: "cust1",
	}
}

func TestTableReadyIntent(t *testing.T) {
	intent := TableReadyIntent(intentEntry(), 10)

	assert.Equal(t, "cust1", intent.Recipient)
	assert.Equal(t, "entry1", intent.QueueEntryID)
	assert.Equal(t, models.NotifyTableReady, intent.Kind)
	assert.Equal(t, "Your Table is Ready!", intent.Title)
	assert.Contains(t, intent.Message, "Confirm within 10 minutes")
}

func TestSeatedIntent(t *testing.T) {
	intent := SeatedIntent(intentEntry(), "T4")

	assert.Equal(t, models.NotifySeated, intent.Kind)
	assert.Equal(t, "Seat Secured!", intent.Title)
	assert.Contains(t, intent.Message, "Table T4")
}

func TestNoShowIntent(t *testing.T) {
	intent := NoShowIntent(intentEntry())

	assert.Equal(t, models.NotifyCancelled, intent.Kind)
	assert.Equal(t, "Queue Entry Expired", intent.Title)
	assert.Contains(t, intent.Message, "rejoin the queue")
}

func TestPublish_NilClientIsNoOp(t *testing.T) {
	svc := NewNotifyService(nil)

	assert.NotPanics(t, func() {
		svc.PublishPositionUpdate(models.QueueEntry{ID: "e", CustomerID: "c", Position: 2})
	})
}
