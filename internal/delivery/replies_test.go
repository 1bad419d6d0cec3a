package delivery_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verdantchat/gatekeeper/internal/delivery"
	"github.com/verdantchat/gatekeeper/internal/models"
)

func TestReplyRouter_DeliversToWaitingSession(t *testing.T) {
	router := delivery.NewReplyRouter()

	got := make(chan string, 1)
	go func() {
		content, err := router.Await(context.Background(), "user-1", "dm-1", time.Second)
		require.NoError(t, err)
		got <- content
	}()

	// Wait until the mailbox is registered
	require.Eventually(t, func() bool {
		return router.Deliver("user-1", "dm-1", "B")
	}, time.Second, 5*time.Millisecond)

	select {
	case content := <-got:
		assert.Equal(t, "B", content)
	case <-time.After(time.Second):
		t.Fatal("session never received the reply")
	}
}

func TestReplyRouter_TimesOut(t *testing.T) {
	router := delivery.NewReplyRouter()

	_, err := router.Await(context.Background(), "user-1", "dm-1", 10*time.Millisecond)
	assert.ErrorIs(t, err, models.ErrReplyTimeout)

	// Mailbox must be gone after timeout
	assert.False(t, router.Deliver("user-1", "dm-1", "late"))
}

func TestReplyRouter_ContextCancellation(t *testing.T) {
	router := delivery.NewReplyRouter()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := router.Await(ctx, "user-1", "dm-1", time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReplyRouter_NobodyWaiting(t *testing.T) {
	router := delivery.NewReplyRouter()
	assert.False(t, router.Deliver("user-1", "dm-1", "hello"))
}

func TestReplyRouter_KeyedByUserAndChannel(t *testing.T) {
	router := delivery.NewReplyRouter()

	go func() {
		_, _ = router.Await(context.Background(), "user-1", "dm-1", time.Second)
	}()

	require.Eventually(t, func() bool {
		// Same user, different channel: must not match
		assert.False(t, router.Deliver("user-1", "dm-2", "nope"))
		return router.Deliver("user-1", "dm-1", "yes")
	}, time.Second, 5*time.Millisecond)
}
