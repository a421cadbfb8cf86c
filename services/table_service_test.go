package services

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waitline/models"
)

func testTableService(t *testing.T) (*TableService, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	return &TableService{Redis: db, claimTTL: 5 * time.Second}, mock
}

func TestClaimTable_Acquired(t *testing.T) {
	svc, mock := testTableService(t)
	mock.ExpectSetNX("lock:table:tbl1", "1", 5*time.Second).SetVal(true)

	claimed, err := svc.ClaimTable(context.Background(), "tbl1")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimTable_HeldBySomeoneElse(t *testing.T) {
	svc, mock := testTableService(t)
	mock.ExpectSetNX("lock:table:tbl1", "1", 5*time.Second).SetVal(false)

	claimed, err := svc.ClaimTable(context.Background(), "tbl1")
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestReleaseClaim_DeletesKey(t *testing.T) {
	svc, mock := testTableService(t)
	mock.ExpectDel("lock:table:tbl1").SetVal(1)

	svc.ReleaseClaim(context.Background(), "tbl1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTableClaimKey(t *testing.T) {
	assert.Equal(t, "lock:table:abc123", tableClaimKey("abc123"))
}

func TestValidTier(t *testing.T) {
	assert.True(t, validTier(2))
	assert.True(t, validTier(4))
	assert.True(t, validTier(6))

	assert.False(t, validTier(1))
	assert.False(t, validTier(3))
	assert.False(t, validTier(5))
	assert.False(t, validTier(8))
	assert.False(t, validTier(0))
}

func TestPartyBand(t *testing.T) {
	assert.Equal(t, 2, models.PartyBand(1))
	assert.Equal(t, 2, models.PartyBand(2))
	assert.Equal(t, 4, models.PartyBand(3))
	assert.Equal(t, 4, models.PartyBand(4))
	assert.Equal(t, 6, models.PartyBand(5))
	assert.Equal(t, 6, models.PartyBand(6))
	// oversized parties still map to the biggest tier
	assert.Equal(t, 6, models.PartyBand(9))
}
