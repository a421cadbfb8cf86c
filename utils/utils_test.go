package utils

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode(12)
	require.NoError(t, err)

	assert.Len(t, code, 24)
	assert.Equal(t, strings.ToUpper(code), code)
}

func TestNewAdmissionToken(t *testing.T) {
	token, err := NewAdmissionToken()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(token, "WL-"))
	assert.Len(t, token, 27)
}

func TestNewAdmissionToken_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := NewAdmissionToken()
		require.NoError(t, err)
		assert.False(t, seen[token], "duplicate token %s", token)
		seen[token] = true
	}
}

func testBreaker() *CircuitBreaker {
	return &CircuitBreaker{
		name:         "test",
		minRequests:  2,
		interval:     time.Minute,
		timeout:      10 * time.Millisecond,
		failureRatio: 0.5,
		state:        BreakerClosed,
	}
}

func TestCircuitBreaker_PassesThroughWhileClosed(t *testing.T) {
	cb := testBreaker()

	calls := 0
	err := cb.Execute(func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, BreakerClosed, cb.State())
}

func TestCircuitBreaker_ReturnsCallerError(t *testing.T) {
	cb := testBreaker()

	boom := errors.New("boom")
	err := cb.Execute(func() error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestCircuitBreaker_TripsOnFailureRatio(t *testing.T) {
	cb := testBreaker()

	boom := errors.New("boom")
	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return boom })
	}
	assert.Equal(t, BreakerOpen, cb.State())

	calls := 0
	err := cb.Execute(func() error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.Equal(t, 0, calls)
}

func TestCircuitBreaker_HalfOpensAfterTimeoutAndRecovers(t *testing.T) {
	cb := testBreaker()

	boom := errors.New("boom")
	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return boom })
	}
	require.Equal(t, BreakerOpen, cb.State())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, BreakerHalfOpen, cb.State())

	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, BreakerClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := testBreaker()

	boom := errors.New("boom")
	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return boom })
	}
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, BreakerHalfOpen, cb.State())

	_ = cb.Execute(func() error { return boom })
	assert.Equal(t, BreakerOpen, cb.State())
}
