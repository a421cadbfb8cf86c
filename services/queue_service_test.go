package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waitline/config"
	"waitline/models"
)

func activeEntry(id string, position int, joinedAt time.Time) models.QueueEntry {
	return models.QueueEntry{
		ID:       id,
		Status:   models.StatusWaiting,
		Position: position,
		JoinedAt: joinedAt,
	}
}

func TestRankChanges_CompactsAfterDeparture(t *testing.T) {
	base := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)

	// the entry at position 2 just left; 3 and 4 must each slide down one
	entries := []models.QueueEntry{
		activeEntry("a", 1, base),
		activeEntry("c", 3, base.Add(2*time.Minute)),
		activeEntry("d", 4, base.Add(3*time.Minute)),
	}

	changes := rankChanges(entries)
	assert.Equal(t, map[string]int{"c": 2, "d": 3}, changes)
}

func TestRankChanges_NoWritesWhenAlreadyContiguous(t *testing.T) {
	base := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)

	entries := []models.QueueEntry{
		activeEntry("a", 1, base),
		activeEntry("b", 2, base.Add(time.Minute)),
		activeEntry("c", 3, base.Add(2*time.Minute)),
	}

	assert.Empty(t, rankChanges(entries))
}

func TestRankChanges_OrdersByJoinTimeNotStoredPosition(t *testing.T) {
	base := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)

	entries := []models.QueueEntry{
		activeEntry("late", 1, base.Add(time.Hour)),
		activeEntry("early", 2, base),
	}

	changes := rankChanges(entries)
	assert.Equal(t, map[string]int{"early": 1, "late": 2}, changes)
}

func TestRankChanges_IgnoresTerminalEntries(t *testing.T) {
	base := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)

	seated := activeEntry("done", 1, base)
	seated.Status = models.StatusSeated

	entries := []models.QueueEntry{
		seated,
		activeEntry("w", 2, base.Add(time.Minute)),
	}

	assert.Equal(t, map[string]int{"w": 1}, rankChanges(entries))
}

func TestWholeMinutes(t *testing.T) {
	from := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, wholeMinutes(from, from))
	assert.Equal(t, 0, wholeMinutes(from, from.Add(59*time.Second)))
	assert.Equal(t, 12, wholeMinutes(from, from.Add(12*time.Minute+30*time.Second)))
	// clock skew must not produce a negative wait
	assert.Equal(t, 0, wholeMinutes(from, from.Add(-time.Minute)))
}

func testQueueService(t *testing.T) (*QueueService, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	cfg := &config.Config{QueueLockTTL: 5 * time.Second}
	return &QueueService{Redis: db, cfg: cfg, Now: time.Now}, mock
}

func TestAcquireQueueLock_FirstAttempt(t *testing.T) {
	svc, mock := testQueueService(t)
	mock.ExpectSetNX(queueLockKey, "1", 5*time.Second).SetVal(true)

	require.NoError(t, svc.acquireQueueLock(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquireQueueLock_RetriesThenSucceeds(t *testing.T) {
	svc, mock := testQueueService(t)
	mock.ExpectSetNX(queueLockKey, "1", 5*time.Second).SetVal(false)
	mock.ExpectSetNX(queueLockKey, "1", 5*time.Second).SetVal(true)

	require.NoError(t, svc.acquireQueueLock(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquireQueueLock_ContendedMapsToConflict(t *testing.T) {
	svc, mock := testQueueService(t)
	for i := 0; i < queueLockAttempts; i++ {
		mock.ExpectSetNX(queueLockKey, "1", 5*time.Second).SetVal(false)
	}

	err := svc.acquireQueueLock(context.Background())
	assert.ErrorIs(t, err, ErrConcurrencyConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquireQueueLock_HonorsContextCancel(t *testing.T) {
	svc, mock := testQueueService(t)
	mock.ExpectSetNX(queueLockKey, "1", 5*time.Second).SetVal(false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.acquireQueueLock(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReleaseQueueLock_DeletesKey(t *testing.T) {
	svc, mock := testQueueService(t)
	mock.ExpectDel(queueLockKey).SetVal(1)

	svc.releaseQueueLock(context.Background())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithConflictRetry_RetriesOnceOnConflict(t *testing.T) {
	svc, _ := testQueueService(t)

	calls := 0
	err := svc.withConflictRetry(func() error {
		calls++
		if calls == 1 {
			return fmt.Errorf("lost race: %w", ErrConcurrencyConflict)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestWithConflictRetry_SingleRetryOnly(t *testing.T) {
	svc, _ := testQueueService(t)

	calls := 0
	err := svc.withConflictRetry(func() error {
		calls++
		return fmt.Errorf("still contended: %w", ErrConcurrencyConflict)
	})
	assert.ErrorIs(t, err, ErrConcurrencyConflict)
	assert.Equal(t, 2, calls)
}

func TestWithConflictRetry_NoRetryOnOtherErrors(t *testing.T) {
	svc, _ := testQueueService(t)

	calls := 0
	boom := errors.New("boom")
	err := svc.withConflictRetry(func() error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}
