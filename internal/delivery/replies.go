package delivery

import (
	"context"
	"sync"
	"time"

	"github.com/verdantchat/gatekeeper/internal/models"
)

// ReplyRouter routes gateway-forwarded private-channel replies to the quiz
// session waiting on them. A mailbox exists only while a session is inside
// Await; replies arriving between questions are dropped, same as a bot that
// only listens while it waits.
type ReplyRouter struct {
	mu    sync.Mutex
	boxes map[string]chan string
}

// NewReplyRouter creates an empty router.
func NewReplyRouter() *ReplyRouter {
	return &ReplyRouter{boxes: make(map[string]chan string)}
}

func replyKey(userID, channelID string) string {
	return userID + "|" + channelID
}

// Deliver hands a reply to the session waiting on (user, channel). It returns
// true if a session consumed it.
func (r *ReplyRouter) Deliver(userID, channelID, content string) bool {
	r.mu.Lock()
	box, ok := r.boxes[replyKey(userID, channelID)]
	r.mu.Unlock()
	if !ok {
		return false
	}

	select {
	case box <- content:
		return true
	default:
		// Session already received a reply for this question
		return false
	}
}

// Await blocks until a reply arrives for (user, channel), the timeout
// expires, or the context is cancelled. The mailbox is always deregistered
// before returning.
func (r *ReplyRouter) Await(ctx context.Context, userID, channelID string, timeout time.Duration) (string, error) {
	key := replyKey(userID, channelID)
	box := make(chan string, 1)

	r.mu.Lock()
	r.boxes[key] = box
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.boxes, key)
		r.mu.Unlock()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case content := <-box:
		return content, nil
	case <-timer.C:
		return "", models.ErrReplyTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
