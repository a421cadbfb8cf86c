package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueueStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from    QueueStatus
		to      QueueStatus
		allowed bool
	}{
		{StatusWaiting, StatusNotified, true},
		{StatusWaiting, StatusSeated, true},
		{StatusWaiting, StatusCancelled, true},
		{StatusWaiting, StatusNoShow, false},
		{StatusWaiting, StatusWaiting, false},

		{StatusNotified, StatusSeated, true},
		{StatusNotified, StatusCancelled, true},
		{StatusNotified, StatusNoShow, true},
		{StatusNotified, StatusWaiting, false},

		{StatusSeated, StatusCancelled, false},
		{StatusSeated, StatusWaiting, false},
		{StatusCancelled, StatusWaiting, false},
		{StatusCancelled, StatusSeated, false},
		{StatusNoShow, StatusWaiting, false},
		{StatusNoShow, StatusSeated, false},
	}

	for _, c := range cases {
		assert.Equal(t, c.allowed, c.from.CanTransitionTo(c.to), "%s -> %s", c.from, c.to)
	}
}

func TestQueueStatus_IsActive(t *testing.T) {
	assert.True(t, StatusWaiting.IsActive())
	assert.True(t, StatusNotified.IsActive())

	assert.False(t, StatusSeated.IsActive())
	assert.False(t, StatusCancelled.IsActive())
	assert.False(t, StatusNoShow.IsActive())
}

func TestQueueStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusWaiting.IsTerminal())
	assert.False(t, StatusNotified.IsTerminal())

	assert.True(t, StatusSeated.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.True(t, StatusNoShow.IsTerminal())
}

func TestQueueStatus_UnknownStatusTransitionsNowhere(t *testing.T) {
	bogus := QueueStatus("bogus")
	for _, next := range []QueueStatus{StatusWaiting, StatusNotified, StatusSeated, StatusCancelled, StatusNoShow} {
		assert.False(t, bogus.CanTransitionTo(next))
	}
}
