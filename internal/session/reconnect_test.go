package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffDelayGrowsLinearly(t *testing.T) {
	base := 2 * time.Second
	max := 30 * time.Second

	expected := []time.Duration{
		2 * time.Second, 4 * time.Second, 6 * time.Second, 8 * time.Second,
		10 * time.Second, 12 * time.Second, 14 * time.Second, 16 * time.Second,
		18 * time.Second, 20 * time.Second,
	}
	for i, want := range expected {
		assert.Equal(t, want, backoffDelay(i+1, base, max), "attempt %d", i+1)
	}
}

func TestBackoffDelayCapped(t *testing.T) {
	base := 2 * time.Second
	max := 30 * time.Second

	assert.Equal(t, max, backoffDelay(15, base, max))
	assert.Equal(t, max, backoffDelay(100, base, max))
}

func TestPolicyExhaustsAfterCeiling(t *testing.T) {
	policy := newReconnectPolicy(10, 2*time.Second, 30*time.Second)

	for i := 1; i <= 10; i++ {
		delay, ok := policy.next()
		require.True(t, ok, "attempt %d", i)
		assert.Equal(t, time.Duration(i)*2*time.Second, delay)
	}

	_, ok := policy.next()
	assert.False(t, ok, "attempt beyond the ceiling must be refused")
}

func TestPolicyResetRestartsSequence(t *testing.T) {
	policy := newReconnectPolicy(3, time.Second, 30*time.Second)

	policy.next()
	policy.next()
	policy.reset()

	delay, ok := policy.next()
	require.True(t, ok)
	assert.Equal(t, time.Second, delay, "after reset the sequence starts over")
}

func TestPolicyScheduleReplacesPendingTimer(t *testing.T) {
	policy := newReconnectPolicy(3, time.Second, 30*time.Second)

	fired := make(chan string, 2)
	policy.schedule(10*time.Millisecond, func() { fired <- "first" })
	policy.schedule(10*time.Millisecond, func() { fired <- "second" })

	select {
	case got := <-fired:
		assert.Equal(t, "second", got)
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}

	// The replaced timer must not fire as well
	select {
	case got := <-fired:
		t.Fatalf("unexpected second firing: %s", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPolicyCancelStopsTimer(t *testing.T) {
	policy := newReconnectPolicy(3, time.Second, 30*time.Second)

	fired := make(chan struct{}, 1)
	policy.schedule(20*time.Millisecond, func() { fired <- struct{}{} })
	policy.cancel()

	select {
	case <-fired:
		t.Fatal("cancelled timer fired")
	case <-time.After(100 * time.Millisecond):
	}
}
